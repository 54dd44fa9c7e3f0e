package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"lychee/internal/model"
	"lychee/internal/pkg/cache"
	"lychee/internal/repository"
)

// ErrConversationNotFound 会话不存在
var ErrConversationNotFound = errors.New("conversation not found")

// conversationManager 会话管理存储
type conversationManager interface {
	FindByID(ctx context.Context, id string) (*model.Conversation, error)
	ListByUserID(ctx context.Context, userID string, limit, offset int64) ([]*model.Conversation, error)
	Delete(ctx context.Context, id string) error
}

// messageReader 消息读取存储
type messageReader interface {
	ListByConversationID(ctx context.Context, conversationID string) ([]*model.Message, error)
}

// conversationCache 会话元数据缓存
type conversationCache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// ConversationService 会话管理服务
// 职责: 会话的查询与删除，所有操作按归属人限定
type ConversationService struct {
	convRepo conversationManager
	msgRepo  messageReader
	cache    conversationCache
}

// NewConversationService 创建会话管理服务
func NewConversationService(convRepo *repository.ConversationRepo, msgRepo *repository.MessageRepo, redisCache *cache.RedisCache) *ConversationService {
	s := &ConversationService{
		convRepo: convRepo,
		msgRepo:  msgRepo,
	}
	// 未配置 redis 时不经缓存
	if redisCache != nil {
		s.cache = redisCache
	}
	return s
}

// ConversationDetail 会话详情
type ConversationDetail struct {
	Conversation *model.Conversation `json:"conversation"`
	Messages     []*model.Message    `json:"messages"`
}

// List 列出用户的会话，按更新时间倒序
func (s *ConversationService) List(ctx context.Context, userID string, limit, offset int64) ([]*model.Conversation, error) {
	return s.convRepo.ListByUserID(ctx, userID, limit, offset)
}

// Get 获取会话详情及全部消息
func (s *ConversationService) Get(ctx context.Context, userID, conversationID string) (*ConversationDetail, error) {
	conv, err := s.findOwned(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	messages, err := s.msgRepo.ListByConversationID(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	return &ConversationDetail{
		Conversation: conv,
		Messages:     messages,
	}, nil
}

// Delete 删除会话及其全部消息
func (s *ConversationService) Delete(ctx context.Context, userID, conversationID string) error {
	if _, err := s.findOwned(ctx, userID, conversationID); err != nil {
		return err
	}

	if err := s.convRepo.Delete(ctx, conversationID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrConversationNotFound
		}
		return err
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, cache.ConversationCacheKey(conversationID)); err != nil {
			log.Warn().Err(err).Str("conversation_id", conversationID).Msg("failed to invalidate conversation cache")
		}
	}
	return nil
}

// findOwned 查找会话并校验归属
// 未命中缓存时回源数据库并写缓存
func (s *ConversationService) findOwned(ctx context.Context, userID, conversationID string) (*model.Conversation, error) {
	var conv *model.Conversation

	if s.cache != nil {
		var cached model.Conversation
		if err := s.cache.Get(ctx, cache.ConversationCacheKey(conversationID), &cached); err == nil {
			conv = &cached
		}
	}

	if conv == nil {
		found, err := s.convRepo.FindByID(ctx, conversationID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrConversationNotFound
			}
			return nil, err
		}
		conv = found

		if s.cache != nil {
			if err := s.cache.Set(ctx, cache.ConversationCacheKey(conversationID), conv, cache.ConversationCacheTTL); err != nil {
				log.Warn().Err(err).Str("conversation_id", conversationID).Msg("failed to cache conversation")
			}
		}
	}

	if conv.UserID != userID {
		return nil, ErrUnauthorized
	}
	return conv, nil
}
