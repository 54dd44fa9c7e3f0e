package config

import (
	"errors"
	"time"
)

// Config 应用配置根结构
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	AI      AIConfig      `mapstructure:"ai"`
	Chat    ChatConfig    `mapstructure:"chat"`
	Log     LogConfig     `mapstructure:"log"`
	Mongo   MongoConfig   `mapstructure:"mongo"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Storage StorageConfig `mapstructure:"storage"`
	Extract ExtractConfig `mapstructure:"extract"`
	Tools   ToolsConfig   `mapstructure:"tools"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AIConfig AI 服务配置
type AIConfig struct {
	Provider       string          `mapstructure:"provider"`
	APIKey         string          `mapstructure:"api_key"`
	Model          string          `mapstructure:"model"`
	ReasoningModel string          `mapstructure:"reasoning_model"` // 推理模型（不绑定工具）
	BaseURL        string          `mapstructure:"base_url"`
	Options        AIOptionsConfig `mapstructure:"options"`
}

// AIOptionsConfig AI 模型参数
type AIOptionsConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	TopP        float64 `mapstructure:"top_p"`
}

// ChatConfig 对话编排配置
type ChatConfig struct {
	MaxSteps      int           `mapstructure:"max_steps"`      // 单轮最多的工具调用循环次数
	StreamTimeout time.Duration `mapstructure:"stream_timeout"` // 单轮生成的总时长预算
	SystemPrompt  string        `mapstructure:"system_prompt"`
}

// LogConfig 日志配置 (Zerolog)
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	TimeFormat string `mapstructure:"time_format"`
}

// MongoConfig MongoDB 配置
type MongoConfig struct {
	URI         string `mapstructure:"uri"`
	Database    string `mapstructure:"database"`
	MaxPoolSize uint64 `mapstructure:"max_pool_size"`
	MinPoolSize uint64 `mapstructure:"min_pool_size"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWTSecret         string        `mapstructure:"jwt_secret"`          // JWT密钥
	AccessTokenExpiry time.Duration `mapstructure:"access_token_expiry"` // Access Token过期时间
}

// StorageConfig 存储配置
type StorageConfig struct {
	Type  string       `mapstructure:"type"` // local, oss
	Local *LocalConfig `mapstructure:"local,omitempty"`
	OSS   *OSSConfig   `mapstructure:"oss,omitempty"`
}

// LocalConfig 本地文件系统配置
type LocalConfig struct {
	BasePath      string `mapstructure:"base_path"`      // 基础路径
	BaseURL       string `mapstructure:"base_url"`       // 基础URL（用于生成访问URL）
	PresignExpiry int    `mapstructure:"presign_expiry"` // 预签名URL过期时间（秒）
}

// OSSConfig 阿里云OSS配置
type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`          // OSS端点
	Bucket          string `mapstructure:"bucket"`            // Bucket名称
	AccessKeyID     string `mapstructure:"access_key_id"`     // AccessKey ID
	AccessKeySecret string `mapstructure:"access_key_secret"` // AccessKey Secret
	PresignExpiry   int    `mapstructure:"presign_expiry"`    // 预签名URL过期时间（秒）
}

// ExtractConfig PDF 提取服务配置
// 按文档总大小路由到不同的远端提取端点，阈值是可配置的策略而非硬约束
type ExtractConfig struct {
	BaseURL          string        `mapstructure:"base_url"`          // 远端提取服务地址
	LargeEndpoint    string        `mapstructure:"large_endpoint"`    // 大文档提取端点
	TextEndpoint     string        `mapstructure:"text_endpoint"`     // 标准 PDF 转文本端点
	MarkdownEndpoint string        `mapstructure:"markdown_endpoint"` // PDF 转 Markdown 端点
	LargeThreshold   int64         `mapstructure:"large_threshold"`   // 大文档阈值（字节）
	MediumThreshold  int64         `mapstructure:"medium_threshold"`  // 中等文档阈值（字节）
	SmallThreshold   int64         `mapstructure:"small_threshold"`   // 小文档阈值（字节）
	Timeout          time.Duration `mapstructure:"timeout"`
}

// ToolsConfig 工具外部依赖配置
type ToolsConfig struct {
	Weather WeatherConfig `mapstructure:"weather"`
	Style   StyleConfig   `mapstructure:"style"`
}

// WeatherConfig 天气查询配置
type WeatherConfig struct {
	BaseURL string        `mapstructure:"base_url"` // open-meteo API 地址
	Timeout time.Duration `mapstructure:"timeout"`
}

// StyleConfig 风格化图片生成配置
type StyleConfig struct {
	Provider  string        `mapstructure:"provider"` // remote, volcengine
	Endpoint  string        `mapstructure:"endpoint"` // remote provider 的端点
	ReqKey    string        `mapstructure:"req_key"`  // volcengine provider 的请求密钥
	AccessKey string        `mapstructure:"access_key"`
	SecretKey string        `mapstructure:"secret_key"`
	Region    string        `mapstructure:"region"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// Validate 验证配置有效性
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}

	validModes := map[string]bool{"debug": true, "release": true, "test": true}
	if !validModes[c.Server.Mode] {
		return errors.New("invalid server mode, must be debug/release/test")
	}

	if c.Extract.SmallThreshold > c.Extract.MediumThreshold ||
		c.Extract.MediumThreshold > c.Extract.LargeThreshold {
		return errors.New("extract thresholds must satisfy small <= medium <= large")
	}

	return nil
}
