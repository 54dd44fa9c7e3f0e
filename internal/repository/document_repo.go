package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"lychee/internal/model"
)

// DocumentRepo 文档仓库
type DocumentRepo struct {
	collection *mongo.Collection
}

// NewDocumentRepo 创建文档仓库
func NewDocumentRepo(db *mongo.Database) *DocumentRepo {
	return &DocumentRepo{
		collection: db.Collection("documents"),
	}
}

// Create 创建文档
func (r *DocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, doc)
	return err
}

// FindByID 根据 ID 查询
func (r *DocumentRepo) FindByID(ctx context.Context, id string) (*model.Document, error) {
	var doc model.Document
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &doc, nil
}

// UpdateContent 更新文档内容
func (r *DocumentRepo) UpdateContent(ctx context.Context, id, content string) error {
	update := bson.M{"$set": bson.M{
		"content":    content,
		"updated_at": time.Now(),
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
