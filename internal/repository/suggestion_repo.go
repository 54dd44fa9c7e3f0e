package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lychee/internal/model"
)

// SuggestionRepo 建议仓库
type SuggestionRepo struct {
	collection *mongo.Collection
}

// NewSuggestionRepo 创建建议仓库
func NewSuggestionRepo(db *mongo.Database) *SuggestionRepo {
	return &SuggestionRepo{
		collection: db.Collection("suggestions"),
	}
}

// InsertMany 批量写入建议
func (r *SuggestionRepo) InsertMany(ctx context.Context, suggestions []*model.Suggestion) error {
	if len(suggestions) == 0 {
		return nil
	}

	now := time.Now()
	docs := make([]interface{}, 0, len(suggestions))
	for _, s := range suggestions {
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		docs = append(docs, s)
	}

	_, err := r.collection.InsertMany(ctx, docs)
	return err
}

// ListByDocumentID 查询文档的全部建议
func (r *SuggestionRepo) ListByDocumentID(ctx context.Context, documentID string) ([]*model.Suggestion, error) {
	opts := options.Find().
		SetSort(bson.D{bson.E{Key: "created_at", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"document_id": documentID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var suggestions []*model.Suggestion
	if err := cursor.All(ctx, &suggestions); err != nil {
		return nil, err
	}

	return suggestions, nil
}
