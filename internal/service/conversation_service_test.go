package service

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"lychee/internal/model"
	"lychee/internal/pkg/cache"
	"lychee/internal/repository"
)

// fakeConvManager 会话管理存储替身
type fakeConvManager struct {
	convs   map[string]*model.Conversation
	deleted []string
}

func newFakeConvManager() *fakeConvManager {
	return &fakeConvManager{convs: make(map[string]*model.Conversation)}
}

func (f *fakeConvManager) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	conv, ok := f.convs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return conv, nil
}

func (f *fakeConvManager) ListByUserID(ctx context.Context, userID string, limit, offset int64) ([]*model.Conversation, error) {
	var out []*model.Conversation
	for _, conv := range f.convs {
		if conv.UserID == userID {
			out = append(out, conv)
		}
	}
	return out, nil
}

func (f *fakeConvManager) Delete(ctx context.Context, id string) error {
	if _, ok := f.convs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.convs, id)
	f.deleted = append(f.deleted, id)
	return nil
}

// fakeMsgReader 消息读取替身
type fakeMsgReader struct {
	messages map[string][]*model.Message
}

func (f *fakeMsgReader) ListByConversationID(ctx context.Context, conversationID string) ([]*model.Message, error) {
	return f.messages[conversationID], nil
}

// fakeConvCache 会话缓存替身
type fakeConvCache struct {
	entries map[string]*model.Conversation
	deleted []string
}

func newFakeConvCache() *fakeConvCache {
	return &fakeConvCache{entries: make(map[string]*model.Conversation)}
}

func (f *fakeConvCache) Get(ctx context.Context, key string, dest any) error {
	conv, ok := f.entries[key]
	if !ok {
		return errors.New("cache miss")
	}
	*dest.(*model.Conversation) = *conv
	return nil
}

func (f *fakeConvCache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	f.entries[key] = value.(*model.Conversation)
	return nil
}

func (f *fakeConvCache) Delete(ctx context.Context, keys ...string) error {
	f.deleted = append(f.deleted, keys...)
	for _, key := range keys {
		delete(f.entries, key)
	}
	return nil
}

func TestConversationServiceDelete(t *testing.T) {
	Convey("删除会话", t, func() {
		convs := newFakeConvManager()
		msgs := &fakeMsgReader{messages: map[string][]*model.Message{
			"conv-1": {{Role: model.RoleUser, Content: "hi"}},
		}}
		convCache := newFakeConvCache()
		svc := &ConversationService{convRepo: convs, msgRepo: msgs, cache: convCache}

		convs.convs["conv-1"] = &model.Conversation{ID: "conv-1", UserID: "owner"}

		Convey("归属人删除成功并失效缓存", func() {
			err := svc.Delete(context.Background(), "owner", "conv-1")
			So(err, ShouldBeNil)
			So(convs.deleted, ShouldContain, "conv-1")
			So(convCache.deleted, ShouldContain, cache.ConversationCacheKey("conv-1"))
		})

		Convey("非归属人删除被拒绝且会话保持原样", func() {
			err := svc.Delete(context.Background(), "intruder", "conv-1")
			So(err, ShouldEqual, ErrUnauthorized)
			So(len(convs.deleted), ShouldEqual, 0)
			_, found := convs.convs["conv-1"]
			So(found, ShouldBeTrue)

			messages, _ := msgs.ListByConversationID(context.Background(), "conv-1")
			So(len(messages), ShouldEqual, 1)
		})

		Convey("缓存命中时归属校验仍然生效", func() {
			convCache.entries[cache.ConversationCacheKey("conv-1")] = &model.Conversation{ID: "conv-1", UserID: "owner"}

			err := svc.Delete(context.Background(), "intruder", "conv-1")
			So(err, ShouldEqual, ErrUnauthorized)
			So(len(convs.deleted), ShouldEqual, 0)
		})

		Convey("会话不存在时返回未找到", func() {
			err := svc.Delete(context.Background(), "owner", "missing")
			So(err, ShouldEqual, ErrConversationNotFound)
		})
	})
}

func TestConversationServiceGet(t *testing.T) {
	Convey("获取会话详情", t, func() {
		convs := newFakeConvManager()
		msgs := &fakeMsgReader{messages: map[string][]*model.Message{
			"conv-1": {{Role: model.RoleUser, Content: "hi"}, {Role: model.RoleAssistant, Content: "hello"}},
		}}
		svc := &ConversationService{convRepo: convs, msgRepo: msgs}

		convs.convs["conv-1"] = &model.Conversation{ID: "conv-1", UserID: "owner", Title: "t"}

		Convey("归属人取得会话与全部消息", func() {
			detail, err := svc.Get(context.Background(), "owner", "conv-1")
			So(err, ShouldBeNil)
			So(detail.Conversation.Title, ShouldEqual, "t")
			So(len(detail.Messages), ShouldEqual, 2)
		})

		Convey("非归属人被拒绝", func() {
			_, err := svc.Get(context.Background(), "intruder", "conv-1")
			So(err, ShouldEqual, ErrUnauthorized)
		})

		Convey("回源后写入缓存", func() {
			convCache := newFakeConvCache()
			svc := &ConversationService{convRepo: convs, msgRepo: msgs, cache: convCache}

			_, err := svc.Get(context.Background(), "owner", "conv-1")
			So(err, ShouldBeNil)
			So(convCache.entries[cache.ConversationCacheKey("conv-1")], ShouldNotBeNil)
		})
	})
}
