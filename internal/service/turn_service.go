package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lychee/internal/ai"
	"lychee/internal/model"
	"lychee/internal/pkg/ctxutil"
	"lychee/internal/repository"
)

var (
	// ErrUnauthorized 调用者不持有该会话
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNoUserMessage 请求中没有用户消息
	ErrNoUserMessage = errors.New("no user message found")
)

// PDF 提取结果注入消息正文的标记
const (
	pdfContentHeader = "\n\nExtracted PDF Content:\n"
	pdfContentFooter = "\n\n"
	pdfFailureMark   = "\n\n[Failed to extract PDF content.]\n\n"
)

// titleFallbackLength 标题生成失败时截取消息前缀作为标题
const titleFallbackLength = 80

// TitleGenerator 标题生成能力
type TitleGenerator interface {
	GenerateTitle(ctx context.Context, content string) (string, error)
}

// GenerationSession 单轮生成会话
type GenerationSession interface {
	Run(ctx context.Context, history []model.Message, emit func(model.StreamEvent)) (*ai.SessionResult, error)
}

// SessionFactory 按所选模型创建生成会话
type SessionFactory func(selectedModel string) GenerationSession

// Extractor PDF 内容提取能力
type Extractor interface {
	Extract(ctx context.Context, documentURLs []string, instruction string) (string, error)
}

// conversationStore 会话存储
type conversationStore interface {
	Create(ctx context.Context, conv *model.Conversation) error
	FindByID(ctx context.Context, id string) (*model.Conversation, error)
	Touch(ctx context.Context, id string) error
}

// messageStore 消息存储
type messageStore interface {
	Insert(ctx context.Context, msg *model.Message) error
	InsertMany(ctx context.Context, msgs []*model.Message) error
}

// TurnService 单轮对话编排服务
// 职责: 鉴权、会话懒创建、入站消息落库、附件分流、驱动生成、收尾落库
type TurnService struct {
	titles     TitleGenerator
	newSession SessionFactory
	extractor  Extractor
	convRepo   conversationStore
	msgRepo    messageStore
}

// NewTurnService 创建对话编排服务
func NewTurnService(
	titles TitleGenerator,
	newSession SessionFactory,
	extractor Extractor,
	convRepo conversationStore,
	msgRepo messageStore,
) *TurnService {
	return &TurnService{
		titles:     titles,
		newSession: newSession,
		extractor:  extractor,
		convRepo:   convRepo,
		msgRepo:    msgRepo,
	}
}

// TurnStream 一轮对话的事件流
// 消费者断开后调用 Close，生成与落库在内部继续跑完
type TurnStream struct {
	events    chan model.StreamEvent
	closed    chan struct{}
	closeOnce sync.Once
}

// Events 返回事件通道，生成结束后关闭
func (t *TurnStream) Events() <-chan model.StreamEvent {
	return t.events
}

// Close 声明不再消费事件
func (t *TurnStream) Close() {
	t.closeOnce.Do(func() {
		close(t.closed)
	})
}

// emit 投递事件; 消费者已关闭时直接丢弃
func (t *TurnStream) emit(ev model.StreamEvent) {
	select {
	case t.events <- ev:
	case <-t.closed:
	}
}

// HandleTurn 处理一轮对话
// 同步阶段完成校验、鉴权与入站消息落库，返回事件流后异步生成。
// 生成与收尾落库不随调用方断开而中止。
func (s *TurnService) HandleTurn(ctx context.Context, userID string, req *model.TurnRequest) (*TurnStream, error) {
	userMessage := mostRecentUserMessage(req.Messages)
	if userMessage == nil {
		return nil, ErrNoUserMessage
	}

	logger := log.With().Str("conversation_id", req.ConversationID).Str("user_id", userID).Logger()

	conv, err := s.convRepo.FindByID(ctx, req.ConversationID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		// 首轮: 以首条用户消息生成标题并创建会话
		conv = &model.Conversation{
			ID:     req.ConversationID,
			UserID: userID,
			Title:  s.generateTitle(ctx, userMessage.Content),
			Model:  req.SelectedModel,
		}
		if err := s.convRepo.Create(ctx, conv); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case conv.UserID != userID:
		return nil, ErrUnauthorized
	}

	inbound := *userMessage
	inbound.ConversationID = conv.ID
	inbound.CreatedAt = time.Now()
	if err := s.msgRepo.Insert(ctx, &inbound); err != nil {
		return nil, err
	}

	stream := &TurnStream{
		events: make(chan model.StreamEvent, 64),
		closed: make(chan struct{}),
	}

	// 调用方断开不应中止生成，持久化依赖完整跑完
	genCtx := ctxutil.WithUserID(context.WithoutCancel(ctx), userID)
	go s.run(genCtx, logger, conv.ID, req, stream)

	return stream, nil
}

// run 异步生成阶段: 附件分流 -> 驱动会话 -> 收尾落库
func (s *TurnService) run(ctx context.Context, logger zerolog.Logger, conversationID string, req *model.TurnRequest, stream *TurnStream) {
	defer close(stream.events)

	submit := s.prepareMessages(ctx, req.Messages)

	session := s.newSession(req.SelectedModel)
	result, err := session.Run(ctx, submit, stream.emit)
	if err != nil {
		logger.Error().Err(err).Msg("generation failed")
		stream.emit(model.ErrorEvent())
		return
	}

	s.persistOutcome(ctx, logger, conversationID, result)
	stream.emit(model.DoneEvent(result.Usage))
}

// persistOutcome 落库生成产物
// 落库失败只记录，不打断已经产生的回复
func (s *TurnService) persistOutcome(ctx context.Context, logger zerolog.Logger, conversationID string, result *ai.SessionResult) {
	now := time.Now()
	outbound := make([]*model.Message, 0, len(result.Messages))
	for i := range result.Messages {
		m := result.Messages[i]
		if m.Content == "" {
			continue
		}
		m.ConversationID = conversationID
		m.CreatedAt = now
		outbound = append(outbound, &m)
	}

	if len(outbound) > 0 {
		if err := s.msgRepo.InsertMany(ctx, outbound); err != nil {
			logger.Warn().Err(err).Msg("failed to save response messages")
		}
	}

	if err := s.convRepo.Touch(ctx, conversationID); err != nil {
		logger.Warn().Err(err).Msg("failed to touch conversation")
	}
}

// prepareMessages 附件分流
// PDF 附件提取为文本注入消息正文后从附件中移除，其余附件原样透传给模型。
// 同一条消息的多个 PDF 并发提取，结果按附件顺序拼接。提取失败注入失败标记。
func (s *TurnService) prepareMessages(ctx context.Context, messages []model.Message) []model.Message {
	out := make([]model.Message, len(messages))
	for i := range messages {
		out[i] = messages[i]

		var pdfs []model.Attachment
		var kept []model.Attachment
		for _, att := range out[i].Attachments {
			if att.IsPDF() {
				pdfs = append(pdfs, att)
			} else {
				kept = append(kept, att)
			}
		}
		if len(pdfs) == 0 {
			continue
		}

		type extraction struct {
			text string
			err  error
		}
		results := make([]extraction, len(pdfs))
		instruction := out[i].Content

		var wg sync.WaitGroup
		for j := range pdfs {
			wg.Add(1)
			go func(j int, url string) {
				defer wg.Done()
				text, err := s.extractor.Extract(ctx, []string{url}, instruction)
				results[j] = extraction{text: text, err: err}
			}(j, pdfs[j].URL)
		}
		wg.Wait()

		content := out[i].Content
		for j, r := range results {
			if r.err != nil {
				log.Warn().Err(r.err).Str("url", pdfs[j].URL).Msg("failed to extract PDF attachment")
				content += pdfFailureMark
				continue
			}
			content += pdfContentHeader + r.text + pdfContentFooter
		}
		out[i].Content = content
		out[i].Attachments = kept
	}
	return out
}

// generateTitle 生成会话标题，失败时退化为消息前缀
func (s *TurnService) generateTitle(ctx context.Context, content string) string {
	title, err := s.titles.GenerateTitle(ctx, content)
	if err == nil && title != "" {
		return title
	}
	if err != nil {
		log.Warn().Err(err).Msg("failed to generate conversation title")
	}

	if r := []rune(content); len(r) > titleFallbackLength {
		return string(r[:titleFallbackLength])
	}
	return content
}

// mostRecentUserMessage 返回最后一条用户角色消息
func mostRecentUserMessage(messages []model.Message) *model.Message {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == model.RoleUser {
			return &messages[i]
		}
	}
	return nil
}
