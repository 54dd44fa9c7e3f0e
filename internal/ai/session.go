package ai

import (
	"context"
	"errors"
	"io"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	"lychee/internal/config"
	"lychee/internal/model"
)

// ToolSet 会话可调用的工具集
type ToolSet interface {
	// Infos 返回全部工具的描述，用于模型绑定
	Infos() []*schema.ToolInfo
	// Call 执行指定工具，emit 用于透出工具的中间进度事件
	Call(ctx context.Context, callID, name, arguments string, emit func(model.StreamEvent)) (string, error)
}

// Session 单轮生成会话
// 职责: 驱动模型流式生成，分发工具调用，透出流事件
type Session struct {
	chatModel einomodel.ChatModel
	toolSet   ToolSet
	system    string
	maxSteps  int
	timeout   time.Duration
}

// SessionResult 会话产出
type SessionResult struct {
	// Messages 本次生成产生的消息 (助手消息与工具消息，按产生顺序)
	Messages []model.Message
	Usage    *model.TokenUsage
}

// NewSession 创建生成会话
// 推理模型不绑定工具，推理内容以 reasoning-token 事件透出
func (c *Client) NewSession(selectedModel string, chatCfg *config.ChatConfig) *Session {
	s := &Session{
		system:   chatCfg.SystemPrompt,
		maxSteps: chatCfg.MaxSteps,
		timeout:  chatCfg.StreamTimeout,
	}
	if s.maxSteps <= 0 {
		s.maxSteps = 1
	}

	if selectedModel == model.ChatModelReasoning {
		if c.reasoningModel != nil {
			s.chatModel = c.reasoningModel
		} else {
			// 未配置推理模型时退化为未绑定工具的模型
			s.chatModel = c.utilModel
		}
		return s
	}

	s.chatModel = c.chatModel
	s.toolSet = c.toolSet
	return s
}

// Run 执行生成循环
// 每步流式调用模型; 产生工具调用时执行工具并将结果回填继续下一步，
// 直到模型产出纯文本回复或达到步数上限。超时视为正常完成。
func (s *Session) Run(ctx context.Context, history []model.Message, emit func(model.StreamEvent)) (*SessionResult, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	messages := make([]*schema.Message, 0, len(history)+1)
	if s.system != "" {
		messages = append(messages, schema.SystemMessage(s.system))
	}
	messages = append(messages, convertMessages(history)...)

	result := &SessionResult{}

	for step := 0; step < s.maxSteps; step++ {
		sr, err := s.chatModel.Stream(ctx, messages)
		if err != nil {
			if isDeadline(err) {
				return result, nil
			}
			return result, err
		}

		full, err := s.drain(sr, emit)
		if err != nil {
			if isDeadline(err) {
				if full != nil && full.Content != "" {
					result.Messages = append(result.Messages, assistantMessage(full))
				}
				return result, nil
			}
			return result, err
		}

		result.Messages = append(result.Messages, assistantMessage(full))
		if u := extractUsage(full); u != nil {
			result.Usage = u
		}

		if len(full.ToolCalls) == 0 || s.toolSet == nil {
			return result, nil
		}

		messages = append(messages, full)
		for _, tc := range full.ToolCalls {
			emit(model.ToolCallEvent(tc.ID, tc.Function.Name, tc.Function.Arguments))

			out, err := s.toolSet.Call(ctx, tc.ID, tc.Function.Name, tc.Function.Arguments, emit)
			if err != nil {
				log.Warn().Err(err).Str("tool", tc.Function.Name).Msg("tool call failed")
				out = "Error: " + err.Error()
			}
			emit(model.ToolResultEvent(tc.ID, tc.Function.Name, out))

			toolMsg := schema.ToolMessage(out, tc.ID)
			messages = append(messages, toolMsg)
			result.Messages = append(result.Messages, model.Message{
				Role:    model.RoleTool,
				Content: out,
			})
		}
	}

	return result, nil
}

// drain 消费一次流式响应，透出 token 事件并拼接完整消息
func (s *Session) drain(sr *schema.StreamReader[*schema.Message], emit func(model.StreamEvent)) (*schema.Message, error) {
	defer sr.Close()

	tokenSmoother := NewSmoother(func(word string) {
		emit(model.TokenEvent(word))
	})
	reasoningSmoother := NewSmoother(func(word string) {
		emit(model.ReasoningTokenEvent(word))
	})

	var chunks []*schema.Message
	for {
		chunk, err := sr.Recv()
		if err != nil {
			if err == io.EOF {
				break
			}
			tokenSmoother.Flush()
			reasoningSmoother.Flush()
			if len(chunks) > 0 {
				if full, cerr := schema.ConcatMessages(chunks); cerr == nil {
					return full, err
				}
			}
			return nil, err
		}

		if chunk.ReasoningContent != "" {
			reasoningSmoother.Write(chunk.ReasoningContent)
		}
		if chunk.Content != "" {
			tokenSmoother.Write(chunk.Content)
		}
		chunks = append(chunks, chunk)
	}

	tokenSmoother.Flush()
	reasoningSmoother.Flush()

	return schema.ConcatMessages(chunks)
}

// convertMessages 将存储消息转换为模型消息
// 图片附件以 image_url 传入，其余附件以 file_url 传入
func convertMessages(history []model.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(history))
	for i := range history {
		m := &history[i]

		var role schema.RoleType
		switch m.Role {
		case model.RoleAssistant:
			role = schema.Assistant
		case model.RoleSystem:
			role = schema.System
		case model.RoleTool:
			role = schema.Tool
		default:
			role = schema.User
		}

		sm := &schema.Message{Role: role, Content: m.Content}

		if len(m.Attachments) > 0 && role == schema.User {
			parts := make([]schema.ChatMessagePart, 0, len(m.Attachments)+1)
			if m.Content != "" {
				parts = append(parts, schema.ChatMessagePart{
					Type: schema.ChatMessagePartTypeText,
					Text: m.Content,
				})
			}
			for _, att := range m.Attachments {
				if att.IsImage() {
					parts = append(parts, schema.ChatMessagePart{
						Type: schema.ChatMessagePartTypeImageURL,
						ImageURL: &schema.ChatMessageImageURL{
							URL:      att.URL,
							MIMEType: att.ContentType,
						},
					})
				} else {
					parts = append(parts, schema.ChatMessagePart{
						Type: schema.ChatMessagePartTypeFileURL,
						FileURL: &schema.ChatMessageFileURL{
							URL:      att.URL,
							MIMEType: att.ContentType,
						},
					})
				}
			}
			sm.Content = ""
			sm.MultiContent = parts
		}

		out = append(out, sm)
	}
	return out
}

// assistantMessage 将模型产出转换为持久化消息
// 推理内容不落库，只随流透出
func assistantMessage(m *schema.Message) model.Message {
	return model.Message{
		Role:    model.RoleAssistant,
		Content: m.Content,
	}
}

// extractUsage 提取 token 用量
func extractUsage(m *schema.Message) *model.TokenUsage {
	if m == nil || m.ResponseMeta == nil || m.ResponseMeta.Usage == nil {
		return nil
	}
	u := m.ResponseMeta.Usage
	return &model.TokenUsage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}

func isDeadline(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

func isStreamEnd(err error) bool {
	return err == io.EOF
}
