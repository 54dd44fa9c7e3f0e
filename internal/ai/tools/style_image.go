package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"lychee/internal/pkg/styleimage"
)

// StyleImageTool 吉卜力风格图片生成工具
type StyleImageTool struct {
	styler styleimage.Styler
}

// NewStyleImageTool 创建风格化图片工具
func NewStyleImageTool(styler styleimage.Styler) *StyleImageTool {
	return &StyleImageTool{styler: styler}
}

func (t *StyleImageTool) Info() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: "ghibliStyleMaker",
		Desc: "This is ghibli style maker tool",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"filePath": {
				Type:     schema.String,
				Desc:     "URL of the source image",
				Required: true,
			},
			"message": {
				Type:     schema.String,
				Desc:     "Prompt describing the desired result",
				Required: true,
			},
		}),
	}
}

type styleImageParams struct {
	FilePath string `json:"filePath"`
	Message  string `json:"message"`
}

func (p *styleImageParams) validate() error {
	if p.FilePath == "" {
		return fmt.Errorf("missing required parameter: filePath")
	}
	if p.Message == "" {
		return fmt.Errorf("missing required parameter: message")
	}
	return nil
}

// Execute 风格化失败时把错误折叠为文本返回，让模型继续对话
func (t *StyleImageTool) Execute(ctx context.Context, call Call) (string, error) {
	var params styleImageParams
	if err := json.Unmarshal([]byte(call.Arguments), &params); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if err := params.validate(); err != nil {
		return "", err
	}

	result, err := t.styler.Stylize(ctx, params.FilePath, params.Message)
	if err != nil {
		return fmt.Sprintf("Ghibli style maker processing error: %v", err), nil
	}
	if result == "" {
		return "No content received from ghibli style maker server", nil
	}
	return result, nil
}
