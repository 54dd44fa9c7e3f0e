package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"lychee/internal/config"
)

// Client open-meteo 天气查询客户端
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient 创建天气客户端
func NewClient(cfg *config.WeatherConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.open-meteo.com"
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Forecast 天气数据
type Forecast struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
	Current   struct {
		Time          string  `json:"time"`
		Temperature2M float64 `json:"temperature_2m"`
	} `json:"current"`
	Hourly struct {
		Time          []string  `json:"time"`
		Temperature2M []float64 `json:"temperature_2m"`
	} `json:"hourly"`
	Daily struct {
		Time    []string `json:"time"`
		Sunrise []string `json:"sunrise"`
		Sunset  []string `json:"sunset"`
	} `json:"daily"`
}

// CurrentWeather 查询指定坐标的当前天气
func (c *Client) CurrentWeather(ctx context.Context, latitude, longitude float64) (*Forecast, error) {
	url := fmt.Sprintf(
		"%s/v1/forecast?latitude=%f&longitude=%f&current=temperature_2m&hourly=temperature_2m&daily=sunrise,sunset&timezone=auto",
		c.baseURL, latitude, longitude,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create weather request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call weather service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather service returned status %d", resp.StatusCode)
	}

	var forecast Forecast
	if err := json.NewDecoder(resp.Body).Decode(&forecast); err != nil {
		return nil, fmt.Errorf("decode weather response: %w", err)
	}

	return &forecast, nil
}
