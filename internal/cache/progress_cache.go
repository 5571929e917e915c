package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"complianceiq/internal/model"
)

// ProgressCache handles Redis operations for autosaved progress snapshots.
// It is the hot path for the engine's onProgress hook and for resuming a
// session; Mongo keeps the durable copy.
type ProgressCache interface {
	SetSnapshot(ctx context.Context, snap *model.ProgressSnapshot) error
	GetSnapshot(ctx context.Context, assessmentID string) (*model.ProgressSnapshot, error)
	DeleteSnapshot(ctx context.Context, assessmentID string) error
	Touch(ctx context.Context, assessmentID string) error
}

type progressCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewProgressCache creates a new progress cache
func NewProgressCache(client *redis.Client) ProgressCache {
	return &progressCache{
		client: client,
		ttl:    24 * time.Hour,
	}
}

func (c *progressCache) key(assessmentID string) string {
	return fmt.Sprintf("assessment:%s:snapshot", assessmentID)
}

func (c *progressCache) SetSnapshot(ctx context.Context, snap *model.ProgressSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return c.client.Set(ctx, c.key(snap.AssessmentID), data, c.ttl).Err()
}

func (c *progressCache) GetSnapshot(ctx context.Context, assessmentID string) (*model.ProgressSnapshot, error) {
	data, err := c.client.Get(ctx, c.key(assessmentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap model.ProgressSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

func (c *progressCache) DeleteSnapshot(ctx context.Context, assessmentID string) error {
	return c.client.Del(ctx, c.key(assessmentID)).Err()
}

// Touch extends the snapshot TTL for an active session without rewriting it
func (c *progressCache) Touch(ctx context.Context, assessmentID string) error {
	return c.client.Expire(ctx, c.key(assessmentID), c.ttl).Err()
}
