package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes 创建所有集合的索引
// 在应用启动时调用一次
func EnsureIndexes(db *mongo.Database) error {
	ctx := context.Background()

	// conversations 集合索引
	convColl := db.Collection("conversations")
	convIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{bson.E{Key: "user_id", Value: 1}, bson.E{Key: "updated_at", Value: -1}},
			Options: options.Index().SetName("idx_user_updated"),
		},
		{
			Keys:    bson.D{bson.E{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_created"),
		},
	}

	if err := CreateIndexes(ctx, convColl, convIndexes); err != nil {
		return err
	}

	// messages 集合索引（按对话取消息、级联删除都走 conversation_id）
	msgColl := db.Collection("messages")
	msgIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{bson.E{Key: "conversation_id", Value: 1}, bson.E{Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_conversation_created"),
		},
	}

	if err := CreateIndexes(ctx, msgColl, msgIndexes); err != nil {
		return err
	}

	// documents 集合索引
	docColl := db.Collection("documents")
	docIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{bson.E{Key: "user_id", Value: 1}, bson.E{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_user_created"),
		},
	}

	if err := CreateIndexes(ctx, docColl, docIndexes); err != nil {
		return err
	}

	// suggestions 集合索引
	sugColl := db.Collection("suggestions")
	sugIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{bson.E{Key: "document_id", Value: 1}},
			Options: options.Index().SetName("idx_document_id"),
		},
	}

	if err := CreateIndexes(ctx, sugColl, sugIndexes); err != nil {
		return err
	}

	// users 集合索引
	userColl := db.Collection("users")
	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{bson.E{Key: "username", Value: 1}},
			Options: options.Index().SetName("idx_username").SetUnique(true),
		},
		{
			Keys:    bson.D{bson.E{Key: "email", Value: 1}},
			Options: options.Index().SetName("idx_email").SetUnique(true),
		},
	}

	if err := CreateIndexes(ctx, userColl, userIndexes); err != nil {
		return err
	}

	return nil
}
