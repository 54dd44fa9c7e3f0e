package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"lychee/internal/pkg/weather"
)

// WeatherTool 天气查询工具
type WeatherTool struct {
	client *weather.Client
}

// NewWeatherTool 创建天气查询工具
func NewWeatherTool(client *weather.Client) *WeatherTool {
	return &WeatherTool{client: client}
}

func (t *WeatherTool) Info() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: "getWeather",
		Desc: "Get the current weather at a location",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"latitude": {
				Type:     schema.Number,
				Desc:     "Latitude of the location",
				Required: true,
			},
			"longitude": {
				Type:     schema.Number,
				Desc:     "Longitude of the location",
				Required: true,
			},
		}),
	}
}

type weatherParams struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (p *weatherParams) validate() error {
	if p.Latitude == nil {
		return fmt.Errorf("missing required parameter: latitude")
	}
	if p.Longitude == nil {
		return fmt.Errorf("missing required parameter: longitude")
	}
	return nil
}

func (t *WeatherTool) Execute(ctx context.Context, call Call) (string, error) {
	var params weatherParams
	if err := json.Unmarshal([]byte(call.Arguments), &params); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if err := params.validate(); err != nil {
		return "", err
	}

	forecast, err := t.client.CurrentWeather(ctx, *params.Latitude, *params.Longitude)
	if err != nil {
		return "", fmt.Errorf("failed to fetch weather: %w", err)
	}

	out, err := json.Marshal(forecast)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
