package ai

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	"lychee/internal/ai/component"
	"lychee/internal/config"
)

// titleSystemPrompt 标题生成提示词
const titleSystemPrompt = `you will generate a short title based on the first message a user begins a conversation with
- ensure it is not more than 80 characters long
- the title should be a summary of the user's message
- do not use quotes or colons`

// maxTitleLength 标题最大长度 (按 rune 截断)
const maxTitleLength = 80

// Client AI 能力层客户端
// 职责: 封装模型调用，提供对话、标题生成、文档理解等能力
type Client struct {
	cfg *config.AIConfig

	// chatModel 对话主模型 (会话中绑定工具)
	chatModel einomodel.ChatModel
	// reasoningModel 推理模型 (不绑定工具，推理过程透出)
	reasoningModel einomodel.ChatModel
	// utilModel 工具性调用专用模型 (标题、文档内容生成，不绑定工具)
	utilModel einomodel.ChatModel

	toolSet ToolSet
}

// NewClient 创建 AI 客户端
func NewClient(ctx context.Context, cfg *config.AIConfig) (*Client, error) {
	if cfg.APIKey == "" {
		log.Warn().Msg("AI API key not configured")
	}

	chatModel, err := component.NewChatModel(ctx, cfg, cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	utilModel, err := component.NewChatModel(ctx, cfg, cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to create utility model: %w", err)
	}

	c := &Client{
		cfg:       cfg,
		chatModel: chatModel,
		utilModel: utilModel,
	}

	if cfg.ReasoningModel != "" {
		reasoningModel, err := component.NewChatModel(ctx, cfg, cfg.ReasoningModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create reasoning model: %w", err)
		}
		c.reasoningModel = reasoningModel
	}

	return c, nil
}

// BindToolSet 为对话主模型绑定工具集
// 推理模型与工具性模型不绑定工具
func (c *Client) BindToolSet(ts ToolSet) error {
	infos := ts.Infos()
	if len(infos) > 0 {
		if err := c.chatModel.BindTools(infos); err != nil {
			return fmt.Errorf("failed to bind tools: %w", err)
		}
	}
	c.toolSet = ts
	return nil
}

// GenerateTitle 根据首条用户消息生成会话标题
func (c *Client) GenerateTitle(ctx context.Context, content string) (string, error) {
	messages := []*schema.Message{
		schema.SystemMessage(titleSystemPrompt),
		schema.UserMessage(content),
	}

	resp, err := c.utilModel.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("failed to generate title: %w", err)
	}

	title := strings.TrimSpace(resp.Content)
	title = strings.Trim(title, `"'`)
	title = strings.ReplaceAll(title, ":", "")
	if r := []rune(title); len(r) > maxTitleLength {
		title = string(r[:maxTitleLength])
	}
	return title, nil
}

// ReadFile 让模型直接理解远程文件并回答指令
// 用于小文件的进程内解析路径
func (c *Client) ReadFile(ctx context.Context, fileURL, instruction string) (string, error) {
	if instruction == "" {
		instruction = "Summarize this document in detail"
	}

	msg := &schema.Message{
		Role: schema.User,
		MultiContent: []schema.ChatMessagePart{
			{
				Type: schema.ChatMessagePartTypeFileURL,
				FileURL: &schema.ChatMessageFileURL{
					URL:      fileURL,
					MIMEType: "application/pdf",
				},
			},
			{
				Type: schema.ChatMessagePartTypeText,
				Text: instruction,
			},
		},
	}

	resp, err := c.utilModel.Generate(ctx, []*schema.Message{msg})
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return resp.Content, nil
}

// GenerateText 单次文本生成 (文档工具使用)
func (c *Client) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	messages := []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(prompt),
	}

	resp, err := c.utilModel.Generate(ctx, messages)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// StreamText 流式文本生成，逐段回调增量内容，返回完整文本
func (c *Client) StreamText(ctx context.Context, system, prompt string, onDelta func(delta string)) (string, error) {
	messages := []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(prompt),
	}

	sr, err := c.utilModel.Stream(ctx, messages)
	if err != nil {
		return "", err
	}
	defer sr.Close()

	var sb strings.Builder
	for {
		chunk, err := sr.Recv()
		if err != nil {
			if isStreamEnd(err) {
				break
			}
			return sb.String(), err
		}
		if chunk.Content != "" {
			sb.WriteString(chunk.Content)
			if onDelta != nil {
				onDelta(chunk.Content)
			}
		}
	}
	return sb.String(), nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	return nil
}
