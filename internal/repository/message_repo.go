package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lychee/internal/model"
)

// MessageRepo 消息仓库
// 消息只增不改；删除只发生在对话级联删除时
type MessageRepo struct {
	collection *mongo.Collection
}

// NewMessageRepo 创建消息仓库
func NewMessageRepo(db *mongo.Database) *MessageRepo {
	return &MessageRepo{
		collection: db.Collection("messages"),
	}
}

// Insert 写入单条消息
func (r *MessageRepo) Insert(ctx context.Context, msg *model.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	_, err := r.collection.InsertOne(ctx, msg)
	return err
}

// InsertMany 批量写入消息（一次生成收尾可能产出多条助手消息）
func (r *MessageRepo) InsertMany(ctx context.Context, msgs []*model.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	now := time.Now()
	docs := make([]interface{}, 0, len(msgs))
	for _, msg := range msgs {
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = now
		}
		docs = append(docs, msg)
	}

	// 保持提交顺序写入
	opts := options.InsertMany().SetOrdered(true)
	_, err := r.collection.InsertMany(ctx, docs, opts)
	return err
}

// ListByConversationID 按时间顺序取对话的全部消息
func (r *MessageRepo) ListByConversationID(ctx context.Context, conversationID string) ([]*model.Message, error) {
	opts := options.Find().
		SetSort(bson.D{bson.E{Key: "created_at", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var msgs []*model.Message
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, err
	}

	return msgs, nil
}

// CountByConversationID 统计对话消息数
func (r *MessageRepo) CountByConversationID(ctx context.Context, conversationID string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"conversation_id": conversationID})
}

// DeleteByConversationID 删除对话的全部消息
func (r *MessageRepo) DeleteByConversationID(ctx context.Context, conversationID string) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"conversation_id": conversationID})
	return err
}
