package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"lychee/internal/model"
	"lychee/internal/pkg/ctxutil"
	"lychee/internal/pkg/id"
	"lychee/internal/repository"
)

const suggestionsPrompt = "You are a help writing assistant. Given a piece of writing, " +
	"please offer suggestions to improve the piece of writing and describe the change. " +
	"It is very important for the edits to contain full sentences instead of just words. Max 5 suggestions. " +
	`Respond with a JSON array of objects, each with fields "originalSentence", "suggestedSentence" and "description". ` +
	"Respond with the JSON array only."

// RequestSuggestionsTool 文档修改建议工具
// 让模型针对文档内容产出改写建议并落库
type RequestSuggestionsTool struct {
	generator   Generator
	documents   *repository.DocumentRepo
	suggestions *repository.SuggestionRepo
}

// NewRequestSuggestionsTool 创建修改建议工具
func NewRequestSuggestionsTool(generator Generator, documents *repository.DocumentRepo, suggestions *repository.SuggestionRepo) *RequestSuggestionsTool {
	return &RequestSuggestionsTool{
		generator:   generator,
		documents:   documents,
		suggestions: suggestions,
	}
}

func (t *RequestSuggestionsTool) Info() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: "requestSuggestions",
		Desc: "Request suggestions for a document",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"documentId": {
				Type:     schema.String,
				Desc:     "The ID of the document to request edits",
				Required: true,
			},
		}),
	}
}

type requestSuggestionsParams struct {
	DocumentID string `json:"documentId"`
}

// rawSuggestion 模型返回的建议条目
type rawSuggestion struct {
	OriginalSentence  string `json:"originalSentence"`
	SuggestedSentence string `json:"suggestedSentence"`
	Description       string `json:"description"`
}

func (t *RequestSuggestionsTool) Execute(ctx context.Context, call Call) (string, error) {
	var params requestSuggestionsParams
	if err := json.Unmarshal([]byte(call.Arguments), &params); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if params.DocumentID == "" {
		return "", fmt.Errorf("missing required parameter: documentId")
	}

	userID, ok := ctxutil.GetUserID(ctx)
	if !ok {
		return "", fmt.Errorf("user not found in context")
	}

	doc, err := t.documents.FindByID(ctx, params.DocumentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", fmt.Errorf("document not found: %s", params.DocumentID)
		}
		return "", err
	}
	if doc.UserID != userID {
		return "", fmt.Errorf("document not found: %s", params.DocumentID)
	}

	raw, err := t.generator.GenerateText(ctx, suggestionsPrompt, doc.Content)
	if err != nil {
		return "", fmt.Errorf("failed to generate suggestions: %w", err)
	}

	items, err := parseSuggestions(raw)
	if err != nil {
		return "", fmt.Errorf("failed to parse suggestions: %w", err)
	}

	now := time.Now()
	suggestions := make([]*model.Suggestion, 0, len(items))
	for _, item := range items {
		s := &model.Suggestion{
			ID:            id.New(),
			DocumentID:    doc.ID,
			UserID:        userID,
			OriginalText:  item.OriginalSentence,
			SuggestedText: item.SuggestedSentence,
			Description:   item.Description,
			CreatedAt:     now,
		}
		suggestions = append(suggestions, s)

		if call.Emit != nil {
			if b, err := json.Marshal(s); err == nil {
				call.Emit(model.ToolResultEvent(call.ID, "requestSuggestions", string(b)))
			}
		}
	}

	if len(suggestions) > 0 {
		if err := t.suggestions.InsertMany(ctx, suggestions); err != nil {
			return "", fmt.Errorf("failed to save suggestions: %w", err)
		}
	}

	out, err := json.Marshal(map[string]string{
		"id":      doc.ID,
		"title":   doc.Title,
		"kind":    doc.Kind,
		"message": "Suggestions have been added to the document",
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// parseSuggestions 解析模型返回的建议数组
// 容忍 markdown 代码块包裹与数组前后的说明文字
func parseSuggestions(raw string) ([]rawSuggestion, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	var items []rawSuggestion
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		return nil, err
	}
	return items, nil
}
