package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"

	"lychee/internal/model"
	"lychee/internal/pkg/ctxutil"
	"lychee/internal/pkg/id"
	"lychee/internal/repository"
)

// 文档内容生成提示词，按文档类型区分
const (
	textDocumentPrompt = "Write about the given topic. Markdown is supported. Use headings wherever appropriate."
	codeDocumentPrompt = "Generate a self-contained code snippet about the given topic. " +
		"Include helpful comments and keep it concise. Wrap the code in a markdown code block."
)

// CreateDocumentTool 文档创建工具
// 根据标题流式生成内容，边生成边透出增量，完成后落库
type CreateDocumentTool struct {
	generator Generator
	documents *repository.DocumentRepo
}

// NewCreateDocumentTool 创建文档创建工具
func NewCreateDocumentTool(generator Generator, documents *repository.DocumentRepo) *CreateDocumentTool {
	return &CreateDocumentTool{generator: generator, documents: documents}
}

func (t *CreateDocumentTool) Info() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: "createDocument",
		Desc: "Create a document for a writing or content creation activities. This tool will call other functions that will generate the contents of the document based on the title and kind.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"title": {
				Type:     schema.String,
				Desc:     "Title of the document",
				Required: true,
			},
			"kind": {
				Type:     schema.String,
				Desc:     "Kind of the document",
				Enum:     []string{model.DocumentKindText, model.DocumentKindCode},
				Required: true,
			},
		}),
	}
}

type createDocumentParams struct {
	Title string `json:"title"`
	Kind  string `json:"kind"`
}

func (p *createDocumentParams) validate() error {
	if p.Title == "" {
		return fmt.Errorf("missing required parameter: title")
	}
	switch p.Kind {
	case model.DocumentKindText, model.DocumentKindCode:
		return nil
	default:
		return fmt.Errorf("invalid document kind: %s", p.Kind)
	}
}

func (t *CreateDocumentTool) Execute(ctx context.Context, call Call) (string, error) {
	var params createDocumentParams
	if err := json.Unmarshal([]byte(call.Arguments), &params); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if err := params.validate(); err != nil {
		return "", err
	}

	userID, ok := ctxutil.GetUserID(ctx)
	if !ok {
		return "", fmt.Errorf("user not found in context")
	}

	system := textDocumentPrompt
	if params.Kind == model.DocumentKindCode {
		system = codeDocumentPrompt
	}

	content, err := t.generator.StreamText(ctx, system, params.Title, func(delta string) {
		if call.Emit != nil {
			call.Emit(model.ToolResultEvent(call.ID, "createDocument", delta))
		}
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate document content: %w", err)
	}

	now := time.Now()
	doc := &model.Document{
		ID:        id.New(),
		UserID:    userID,
		Title:     params.Title,
		Content:   content,
		Kind:      params.Kind,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := t.documents.Create(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to save document: %w", err)
	}

	out, err := json.Marshal(map[string]string{
		"id":      doc.ID,
		"title":   doc.Title,
		"kind":    doc.Kind,
		"content": "A document was created and is now visible to the user.",
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}
