package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"complianceiq/internal/model"
)

// FrameworkRepo handles MongoDB operations for assessment frameworks
type FrameworkRepo interface {
	Create(ctx context.Context, fw *model.Framework) (string, error)
	GetByID(ctx context.Context, id string) (*model.Framework, error)
	List(ctx context.Context) ([]*model.Framework, error)
	Update(ctx context.Context, fw *model.Framework) error
	Delete(ctx context.Context, id string) error
}

type frameworkRepo struct {
	collection *mongo.Collection
}

// NewFrameworkRepo creates a new framework repository
func NewFrameworkRepo(db *mongo.Database) FrameworkRepo {
	return &frameworkRepo{
		collection: db.Collection("frameworks"),
	}
}

func (r *frameworkRepo) Create(ctx context.Context, fw *model.Framework) (string, error) {
	if fw.ID == "" {
		fw.ID = primitive.NewObjectID().Hex()
	}
	now := time.Now()
	fw.CreatedAt = now
	fw.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, fw); err != nil {
		return "", err
	}
	return fw.ID, nil
}

func (r *frameworkRepo) GetByID(ctx context.Context, id string) (*model.Framework, error) {
	var fw model.Framework
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&fw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &fw, nil
}

func (r *frameworkRepo) List(ctx context.Context) ([]*model.Framework, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var frameworks []*model.Framework
	if err := cursor.All(ctx, &frameworks); err != nil {
		return nil, err
	}
	return frameworks, nil
}

func (r *frameworkRepo) Update(ctx context.Context, fw *model.Framework) error {
	fw.UpdatedAt = time.Now()
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": fw.ID}, fw)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *frameworkRepo) Delete(ctx context.Context, id string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
