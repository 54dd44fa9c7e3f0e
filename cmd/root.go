package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"lychee/internal/config"
	"lychee/internal/pkg/logger"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "lychee",
	Short: "Lychee - conversational assistant backend",
	Long: `Lychee is a conversational assistant backend built with the Eino framework.
It orchestrates chat turns: authorization, PDF attachment extraction,
tool-augmented streaming generation and conversation persistence.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ./configs/config.yaml)")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.lychee")
	}

	// 环境变量设置
	viper.SetEnvPrefix("LYCHEE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 设置默认值
	setDefaults()

	// 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			fmt.Fprintln(os.Stderr, "No config file found, using defaults and environment variables")
		} else {
			fmt.Fprintf(os.Stderr, "Failed to read config: %v\n", err)
			os.Exit(1)
		}
	}

	// 反序列化到结构体
	cfg = &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to unmarshal config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}

	log.Debug().Str("config_file", viper.ConfigFileUsed()).Msg("configuration loaded")
}

func setDefaults() {
	// Server
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 7080)
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "120s")

	// AI
	viper.SetDefault("ai.provider", "openai")
	viper.SetDefault("ai.model", "gpt-4o")
	viper.SetDefault("ai.options.temperature", 0.7)
	viper.SetDefault("ai.options.max_tokens", 4096)
	viper.SetDefault("ai.options.top_p", 1.0)

	// Chat
	viper.SetDefault("chat.max_steps", 5)
	viper.SetDefault("chat.stream_timeout", "60s")
	viper.SetDefault("chat.system_prompt",
		"You are a friendly assistant! Keep your responses concise and helpful.")

	// Log
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.time_format", "RFC3339")

	// MongoDB
	viper.SetDefault("mongo.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongo.database", "lychee")
	viper.SetDefault("mongo.max_pool_size", 100)
	viper.SetDefault("mongo.min_pool_size", 10)

	// Redis
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)

	// Storage
	viper.SetDefault("storage.type", "local")
	viper.SetDefault("storage.local.base_path", "./tmp/storage")
	viper.SetDefault("storage.local.base_url", "http://localhost:7080/storage")
	viper.SetDefault("storage.local.presign_expiry", 3600)

	// Extract（默认阈值: 10MB / 3MB / 100B）
	viper.SetDefault("extract.large_endpoint", "/api/convert-large-pdf-to-text")
	viper.SetDefault("extract.text_endpoint", "/api/convert-pdf-to-text")
	viper.SetDefault("extract.markdown_endpoint", "/api/convert-pdf-to-markdown")
	viper.SetDefault("extract.large_threshold", 10*1000000)
	viper.SetDefault("extract.medium_threshold", 3*1000000)
	viper.SetDefault("extract.small_threshold", 100)
	viper.SetDefault("extract.timeout", "120s")

	// Tools
	viper.SetDefault("tools.weather.base_url", "https://api.open-meteo.com")
	viper.SetDefault("tools.weather.timeout", "10s")
	viper.SetDefault("tools.style.provider", "remote")
	viper.SetDefault("tools.style.req_key", "img2img_ghibli_style_usage")
	viper.SetDefault("tools.style.region", "cn-north-1")
	viper.SetDefault("tools.style.timeout", "300s")
}

// GetConfig returns the global configuration
func GetConfig() *config.Config {
	return cfg
}
