package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"complianceiq/internal/model"
)

// ResultRepo handles MongoDB operations for finalized assessment results.
// Results are immutable once written; Save upserts only to make completion
// retries idempotent.
type ResultRepo interface {
	Save(ctx context.Context, result *model.AssessmentResult) error
	GetByAssessmentID(ctx context.Context, assessmentID string) (*model.AssessmentResult, error)
	ListByFramework(ctx context.Context, frameworkID string) ([]*model.AssessmentResult, error)
}

type resultRepo struct {
	collection *mongo.Collection
}

// NewResultRepo creates a new result repository
func NewResultRepo(db *mongo.Database) ResultRepo {
	return &resultRepo{
		collection: db.Collection("results"),
	}
}

func (r *resultRepo) Save(ctx context.Context, result *model.AssessmentResult) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": result.AssessmentID}, result, opts)
	return err
}

func (r *resultRepo) GetByAssessmentID(ctx context.Context, assessmentID string) (*model.AssessmentResult, error) {
	var result model.AssessmentResult
	err := r.collection.FindOne(ctx, bson.M{"_id": assessmentID}).Decode(&result)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *resultRepo) ListByFramework(ctx context.Context, frameworkID string) ([]*model.AssessmentResult, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"frameworkId": frameworkID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []*model.AssessmentResult
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}
