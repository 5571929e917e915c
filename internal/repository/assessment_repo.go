package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"complianceiq/internal/model"
)

// AssessmentRepo handles MongoDB operations for assessment sessions and
// their durable progress snapshots. Redis holds the hot snapshot; Mongo is
// the fallback when the cache entry expired.
type AssessmentRepo interface {
	Create(ctx context.Context, a *model.Assessment) error
	GetByID(ctx context.Context, id string) (*model.Assessment, error)
	ListByRespondent(ctx context.Context, respondent string) ([]*model.Assessment, error)
	SetStatus(ctx context.Context, id string, status model.AssessmentStatus, completedAt *time.Time) error

	SaveSnapshot(ctx context.Context, snap *model.ProgressSnapshot) error
	GetSnapshot(ctx context.Context, assessmentID string) (*model.ProgressSnapshot, error)
	DeleteSnapshot(ctx context.Context, assessmentID string) error
}

type assessmentRepo struct {
	assessments *mongo.Collection
	snapshots   *mongo.Collection
}

// NewAssessmentRepo creates a new assessment repository
func NewAssessmentRepo(db *mongo.Database) AssessmentRepo {
	return &assessmentRepo{
		assessments: db.Collection("assessments"),
		snapshots:   db.Collection("progress_snapshots"),
	}
}

func (r *assessmentRepo) Create(ctx context.Context, a *model.Assessment) error {
	if a.StartedAt.IsZero() {
		a.StartedAt = time.Now()
	}
	_, err := r.assessments.InsertOne(ctx, a)
	return err
}

func (r *assessmentRepo) GetByID(ctx context.Context, id string) (*model.Assessment, error) {
	var a model.Assessment
	err := r.assessments.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assessmentRepo) ListByRespondent(ctx context.Context, respondent string) ([]*model.Assessment, error) {
	cursor, err := r.assessments.Find(ctx, bson.M{"respondent": respondent})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*model.Assessment
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *assessmentRepo) SetStatus(ctx context.Context, id string, status model.AssessmentStatus, completedAt *time.Time) error {
	update := bson.M{"status": status}
	if completedAt != nil {
		update["completedAt"] = completedAt
	}
	result, err := r.assessments.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": update})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *assessmentRepo) SaveSnapshot(ctx context.Context, snap *model.ProgressSnapshot) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.snapshots.ReplaceOne(ctx, bson.M{"assessmentId": snap.AssessmentID}, snap, opts)
	return err
}

func (r *assessmentRepo) GetSnapshot(ctx context.Context, assessmentID string) (*model.ProgressSnapshot, error) {
	var snap model.ProgressSnapshot
	err := r.snapshots.FindOne(ctx, bson.M{"assessmentId": assessmentID}).Decode(&snap)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (r *assessmentRepo) DeleteSnapshot(ctx context.Context, assessmentID string) error {
	_, err := r.snapshots.DeleteOne(ctx, bson.M{"assessmentId": assessmentID})
	return err
}
