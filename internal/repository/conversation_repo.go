package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lychee/internal/model"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

// ConversationRepo 对话仓库
// 对话ID由客户端生成（UUID string），消息单独存放在 messages 集合
type ConversationRepo struct {
	collection *mongo.Collection
	messages   *MessageRepo
}

// NewConversationRepo 创建对话仓库
func NewConversationRepo(db *mongo.Database) *ConversationRepo {
	return &ConversationRepo{
		collection: db.Collection("conversations"),
		messages:   NewMessageRepo(db),
	}
}

// Create 创建对话
// 同一ID重复创建返回错误，title 只在创建时写入一次
func (r *ConversationRepo) Create(ctx context.Context, conv *model.Conversation) error {
	now := time.Now()
	conv.CreatedAt = now
	conv.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, conv)
	return err
}

// FindByID 根据 ID 查询
func (r *ConversationRepo) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&conv)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &conv, nil
}

// ListByUserID 查询用户对话列表
func (r *ConversationRepo) ListByUserID(ctx context.Context, userID string, limit, offset int64) ([]*model.Conversation, error) {
	opts := options.Find().
		SetSort(bson.D{bson.E{Key: "updated_at", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var convs []*model.Conversation
	if err := cursor.All(ctx, &convs); err != nil {
		return nil, err
	}

	return convs, nil
}

// Touch 刷新对话的更新时间
func (r *ConversationRepo) Touch(ctx context.Context, id string) error {
	update := bson.M{"$set": bson.M{"updated_at": time.Now()}}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

// Delete 删除对话并级联删除所属消息
func (r *ConversationRepo) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}

	return r.messages.DeleteByConversationID(ctx, id)
}

// Messages 获取消息仓库
func (r *ConversationRepo) Messages() *MessageRepo {
	return r.messages
}
