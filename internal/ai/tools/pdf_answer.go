package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"lychee/internal/pkg/docparse"
)

// PDFAnswerTool PDF 阅读问答工具
// 复用按体积分流的解析通道，解析失败以文本返回
type PDFAnswerTool struct {
	extractor *docparse.Client
}

// NewPDFAnswerTool 创建 PDF 问答工具
func NewPDFAnswerTool(extractor *docparse.Client) *PDFAnswerTool {
	return &PDFAnswerTool{extractor: extractor}
}

func (t *PDFAnswerTool) Info() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: "answerFormPDF",
		Desc: "For reading multiple PDFs and returning links",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"allPDFUrls": {
				Type:     schema.Array,
				Desc:     "URLs of the PDF documents to read",
				ElemInfo: &schema.ParameterInfo{Type: schema.String},
				Required: true,
			},
			"message": {
				Type:     schema.String,
				Desc:     "Question or instruction about the documents",
				Required: true,
			},
		}),
	}
}

type pdfAnswerParams struct {
	AllPDFUrls []string `json:"allPDFUrls"`
	Message    string   `json:"message"`
}

func (p *pdfAnswerParams) validate() error {
	if len(p.AllPDFUrls) == 0 {
		return fmt.Errorf("missing required parameter: allPDFUrls")
	}
	return nil
}

func (t *PDFAnswerTool) Execute(ctx context.Context, call Call) (string, error) {
	var params pdfAnswerParams
	if err := json.Unmarshal([]byte(call.Arguments), &params); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if err := params.validate(); err != nil {
		return "", err
	}

	text, err := t.extractor.Extract(ctx, params.AllPDFUrls, params.Message)
	if err != nil {
		return fmt.Sprintf("Failed to process PDF: %v", err), nil
	}
	return text, nil
}
