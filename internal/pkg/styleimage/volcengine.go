package styleimage

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/volcengine/volcengine-go-sdk/volcengine"
	"github.com/volcengine/volcengine-go-sdk/volcengine/credentials"
	"github.com/volcengine/volcengine-go-sdk/volcengine/session"

	"lychee/internal/config"
)

const volcengineVisualAPI = "https://visual.volcengineapi.com"

// volcengineStyler 火山引擎 visual 服务的图生图风格化
// 使用 CVProcess 接口（img2img 风格化系列 req_key）
type volcengineStyler struct {
	reqKey     string
	region     string
	accessKey  string
	secretKey  string
	session    *session.Session
	httpClient *http.Client
	apiURL     string
}

func newVolcengineStyler(cfg *config.StyleConfig) (*volcengineStyler, error) {
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("volcengine access_key and secret_key are required")
	}

	region := cfg.Region
	if region == "" {
		region = "cn-north-1"
	}

	// 创建 credentials 和 session
	creds := credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	volcengineConfig := volcengine.NewConfig().
		WithCredentials(creds).
		WithRegion(region)

	sess, err := session.NewSession(volcengineConfig)
	if err != nil {
		return nil, fmt.Errorf("create volcengine session: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 300 * time.Second
	}

	reqKey := cfg.ReqKey
	if reqKey == "" {
		reqKey = "img2img_ghibli_style_usage"
	}

	return &volcengineStyler{
		reqKey:     reqKey,
		region:     region,
		accessKey:  cfg.AccessKey,
		secretKey:  cfg.SecretKey,
		session:    sess,
		httpClient: &http.Client{Timeout: timeout},
		apiURL:     volcengineVisualAPI,
	}, nil
}

// cvProcessResponse CVProcess 接口响应
type cvProcessResponse struct {
	ResponseMetadata *struct {
		Error *struct {
			Code    string `json:"Code"`
			Message string `json:"Message"`
		} `json:"Error,omitempty"`
	} `json:"ResponseMetadata,omitempty"`
	Data *struct {
		ImageURL         []string `json:"image_url,omitempty"`
		BinaryDataBase64 []string `json:"binary_data_base64,omitempty"`
	} `json:"data,omitempty"`
}

// Stylize 风格化图片
func (s *volcengineStyler) Stylize(ctx context.Context, imageURL, prompt string) (string, error) {
	form := map[string]interface{}{
		"req_key":    s.reqKey,
		"prompt":     prompt,
		"image_urls": []string{imageURL},
		"return_url": true,
	}

	requestBody, err := json.Marshal(form)
	if err != nil {
		return "", fmt.Errorf("marshal request body: %w", err)
	}

	apiURL := fmt.Sprintf("%s/?Action=CVProcess&Version=2020-08-26", s.apiURL)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(requestBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	// 火山引擎签名
	// 参考: https://www.volcengine.com/docs/6460/6490
	if err := s.signRequest(httpReq, requestBody); err != nil {
		return "", fmt.Errorf("sign request: %w", err)
	}

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	var apiResp cvProcessResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if apiResp.ResponseMetadata != nil && apiResp.ResponseMetadata.Error != nil {
		return "", fmt.Errorf("API error: %s - %s",
			apiResp.ResponseMetadata.Error.Code,
			apiResp.ResponseMetadata.Error.Message)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API request failed, status: %d", resp.StatusCode)
	}

	if apiResp.Data == nil || len(apiResp.Data.ImageURL) == 0 {
		return "", fmt.Errorf("no image_url in response")
	}

	return apiResp.Data.ImageURL[0], nil
}

// signRequest 为请求添加火山引擎签名
func (s *volcengineStyler) signRequest(req *http.Request, body []byte) error {
	u, err := url.Parse(req.URL.String())
	if err != nil {
		return fmt.Errorf("parse URL: %w", err)
	}

	timestamp := time.Now().UTC().Format("20060102T150405Z")
	date := timestamp[:8]

	method := req.Method
	uri := u.Path
	if uri == "" {
		uri = "/"
	}

	// 查询字符串按字典序排序
	queryParams := u.Query()
	var queryKeys []string
	for k := range queryParams {
		queryKeys = append(queryKeys, k)
	}
	sort.Strings(queryKeys)
	var queryParts []string
	for _, k := range queryKeys {
		for _, v := range queryParams[k] {
			queryParts = append(queryParts, fmt.Sprintf("%s=%s", k, url.QueryEscape(v)))
		}
	}
	queryString := strings.Join(queryParts, "&")

	// Headers 按字典序排序
	headerKeys := make([]string, 0, len(req.Header))
	for k := range req.Header {
		headerKeys = append(headerKeys, strings.ToLower(k))
	}
	sort.Strings(headerKeys)
	var headerParts []string
	for _, k := range headerKeys {
		if k == "host" || k == "content-type" {
			continue
		}
		for _, v := range req.Header[strings.Title(k)] {
			headerParts = append(headerParts, fmt.Sprintf("%s:%s", k, strings.TrimSpace(v)))
		}
	}
	headersString := strings.Join(headerParts, "\n")

	stringToSign := fmt.Sprintf("%s\n%s\n%s\n%s\n%s",
		method,
		uri,
		queryString,
		headersString,
		string(body))

	// 逐级派生签名密钥
	kDate := hmacSHA256([]byte(s.secretKey), date)
	kRegion := hmacSHA256(kDate, s.region)
	kService := hmacSHA256(kRegion, "visual")
	kSigning := hmacSHA256(kService, "request")
	signature := hmacSHA256(kSigning, stringToSign)
	signatureHex := fmt.Sprintf("%x", signature)

	signedHeaders := strings.Join(headerKeys, ";")
	if signedHeaders != "" {
		signedHeaders = ";" + signedHeaders
	}
	authorization := fmt.Sprintf("HMAC-SHA256 Credential=%s/%s/%s/visual/request, SignedHeaders=%s, Signature=%s",
		s.accessKey,
		date,
		s.region,
		signedHeaders,
		signatureHex)

	req.Header.Set("Authorization", authorization)
	req.Header.Set("X-Date", timestamp)

	return nil
}

// hmacSHA256 计算 HMAC-SHA256
func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}
