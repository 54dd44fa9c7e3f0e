package styleimage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"lychee/internal/config"
)

// Styler 风格化图片生成能力
// 输入原图 URL 和指令，输出结果图 URL（或 base64 数据 URL）
type Styler interface {
	Stylize(ctx context.Context, imageURL, prompt string) (string, error)
}

// New 根据配置创建 Styler
func New(cfg *config.StyleConfig) (Styler, error) {
	switch cfg.Provider {
	case "remote", "":
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("style endpoint is required for remote provider")
		}
		return newRemoteStyler(cfg), nil
	case "volcengine":
		return newVolcengineStyler(cfg)
	default:
		return nil, fmt.Errorf("unsupported style provider: %s", cfg.Provider)
	}
}

// remoteStyler 远端风格化服务
// 对接独立部署的风格化端点，纯转发，无本地状态
type remoteStyler struct {
	endpoint   string
	httpClient *http.Client
}

func newRemoteStyler(cfg *config.StyleConfig) *remoteStyler {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 300 * time.Second
	}

	return &remoteStyler{
		endpoint:   cfg.Endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// stylizeRequest 远端风格化请求
type stylizeRequest struct {
	Prompt   string `json:"prompt"`
	ImageURL string `json:"image_url"`
}

// stylizeResponse 远端风格化响应
type stylizeResponse struct {
	Data struct {
		Response string `json:"response"`
	} `json:"data"`
}

// Stylize 风格化图片
func (s *remoteStyler) Stylize(ctx context.Context, imageURL, prompt string) (string, error) {
	body, err := json.Marshal(stylizeRequest{
		Prompt:   prompt,
		ImageURL: imageURL,
	})
	if err != nil {
		return "", fmt.Errorf("marshal stylize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create stylize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call style service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("style service returned status %d", resp.StatusCode)
	}

	var apiResp stylizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("decode stylize response: %w", err)
	}

	if apiResp.Data.Response == "" {
		return "", fmt.Errorf("no content received from style service")
	}

	return apiResp.Data.Response, nil
}
