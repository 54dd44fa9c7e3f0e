package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"lychee/internal/model"
	"lychee/internal/pkg/ctxutil"
	"lychee/internal/repository"
)

// UpdateDocumentTool 文档更新工具
// 基于原内容与修改说明重新生成内容并落库
type UpdateDocumentTool struct {
	generator Generator
	documents *repository.DocumentRepo
}

// NewUpdateDocumentTool 创建文档更新工具
func NewUpdateDocumentTool(generator Generator, documents *repository.DocumentRepo) *UpdateDocumentTool {
	return &UpdateDocumentTool{generator: generator, documents: documents}
}

func (t *UpdateDocumentTool) Info() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: "updateDocument",
		Desc: "Update a document with the given description.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"id": {
				Type:     schema.String,
				Desc:     "The ID of the document to update",
				Required: true,
			},
			"description": {
				Type:     schema.String,
				Desc:     "The description of changes that need to be made",
				Required: true,
			},
		}),
	}
}

type updateDocumentParams struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

func (p *updateDocumentParams) validate() error {
	if p.ID == "" {
		return fmt.Errorf("missing required parameter: id")
	}
	if p.Description == "" {
		return fmt.Errorf("missing required parameter: description")
	}
	return nil
}

func (t *UpdateDocumentTool) Execute(ctx context.Context, call Call) (string, error) {
	var params updateDocumentParams
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

	doc, err := t.documents.FindByID(ctx, params.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", fmt.Errorf("document not found: %s", params.ID)
		}
		return "", err
	}
	if doc.UserID != userID {
		return "", fmt.Errorf("document not found: %s", params.ID)
	}

	system := "Improve the following contents of the document based on the given prompt.\n\n" + doc.Content
	content, err := t.generator.StreamText(ctx, system, params.Description, func(delta string) {
		if call.Emit != nil {
			call.Emit(model.ToolResultEvent(call.ID, "updateDocument", delta))
		}
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate document content: %w", err)
	}

	if err := t.documents.UpdateContent(ctx, doc.ID, content); err != nil {
		return "", fmt.Errorf("failed to save document: %w", err)
	}

	out, err := json.Marshal(map[string]string{
		"id":      doc.ID,
		"title":   doc.Title,
		"kind":    doc.Kind,
		"content": "The document has been updated successfully.",
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}
