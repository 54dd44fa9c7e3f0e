package docparse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"lychee/internal/config"
)

// FileReader 进程内文档理解能力
// 小文档不走远端提取服务，直接交给生成模型按提取指令阅读
type FileReader interface {
	ReadFile(ctx context.Context, fileURL, instruction string) (string, error)
}

// Client PDF 提取客户端
// 按文档总大小路由：大文档走专用端点，中等走转文本，小文档走转 Markdown，
// 微型文档进程内读取。
type Client struct {
	cfg        *config.ExtractConfig
	httpClient *http.Client
	reader     FileReader
}

// NewClient 创建提取客户端
func NewClient(cfg *config.ExtractConfig, reader FileReader) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		reader:     reader,
	}
}

// extractRequest 远端提取请求
type extractRequest struct {
	PDFURL      string `json:"pdfUrl"`
	Instruction string `json:"instruction,omitempty"`
}

// extractResponse 远端提取响应
// response 字段缺失视为提取失败
type extractResponse struct {
	Response string `json:"response"`
}

// Extract 提取文档内容
// 任何一个文档探测或提取失败则整体失败
func (c *Client) Extract(ctx context.Context, documentURLs []string, instruction string) (string, error) {
	if len(documentURLs) == 0 {
		return "", nil
	}

	// 先做元数据探测，按总大小决定路由
	var total int64
	for _, docURL := range documentURLs {
		size, err := c.probeSize(ctx, docURL)
		if err != nil {
			log.Warn().Err(err).Str("url", docURL).Msg("failed to probe document size")
			return "", fmt.Errorf("failed to probe document size: %w", err)
		}
		total += size
	}

	endpoint := c.routeEndpoint(total)

	var parts []string
	for _, docURL := range documentURLs {
		var text string
		var err error

		if endpoint == "" {
			// 微型文档：进程内模型阅读
			text, err = c.reader.ReadFile(ctx, docURL, instruction)
		} else {
			text, err = c.callRemote(ctx, endpoint, docURL, instruction)
		}

		if err != nil {
			log.Warn().Err(err).Str("url", docURL).Str("endpoint", endpoint).Msg("document extraction failed")
			return "", err
		}
		parts = append(parts, text)
	}

	return strings.Join(parts, "\n\n"), nil
}

// probeSize 通过 HEAD 请求探测文档字节数，不下载内容
func (c *Client) probeSize(ctx context.Context, docURL string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, docURL, nil)
	if err != nil {
		return 0, fmt.Errorf("create probe request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("probe document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("probe document: status %d", resp.StatusCode)
	}

	if resp.ContentLength < 0 {
		return 0, nil
	}
	return resp.ContentLength, nil
}

// routeEndpoint 按总大小选择远端端点；返回空串表示走进程内路径
func (c *Client) routeEndpoint(totalSize int64) string {
	switch {
	case totalSize > c.cfg.LargeThreshold:
		return c.cfg.LargeEndpoint
	case totalSize > c.cfg.MediumThreshold:
		return c.cfg.TextEndpoint
	case totalSize > c.cfg.SmallThreshold:
		return c.cfg.MarkdownEndpoint
	default:
		return ""
	}
}

// callRemote 调用远端提取端点
func (c *Client) callRemote(ctx context.Context, endpoint, docURL, instruction string) (string, error) {
	body, err := json.Marshal(extractRequest{
		PDFURL:      docURL,
		Instruction: instruction,
	})
	if err != nil {
		return "", fmt.Errorf("marshal extract request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create extract request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call extract service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("extract service returned status %d", resp.StatusCode)
	}

	var apiResp extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("decode extract response: %w", err)
	}

	if apiResp.Response == "" {
		return "", fmt.Errorf("no content received from PDF parser")
	}

	return apiResp.Response, nil
}
