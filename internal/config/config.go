// Package config loads application configuration and initializes logging.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Gemini     GeminiConfig     `yaml:"gemini" mapstructure:"gemini"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Maps       MapsConfig       `yaml:"maps" mapstructure:"maps"`
	Webhook    WebhookConfig    `yaml:"webhook" mapstructure:"webhook"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Scrape     ScrapeConfig     `yaml:"scrape" mapstructure:"scrape"`
	Media      MediaConfig      `yaml:"media" mapstructure:"media"`
	Categories CategoriesConfig `yaml:"categories" mapstructure:"categories"`
	Analyzer   AnalyzerConfig   `yaml:"analyzer" mapstructure:"analyzer"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Worker     WorkerConfig     `yaml:"worker" mapstructure:"worker"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// GeminiConfig holds Gemini API settings.
type GeminiConfig struct {
	Key              string `yaml:"key" mapstructure:"key"`
	BaseURL          string `yaml:"base_url" mapstructure:"base_url"`
	UploadBaseURL    string `yaml:"upload_base_url" mapstructure:"upload_base_url"`
	VideoModel       string `yaml:"video_model" mapstructure:"video_model"`
	TextModel        string `yaml:"text_model" mapstructure:"text_model"`
	PollTimeoutSecs  int    `yaml:"poll_timeout_secs" mapstructure:"poll_timeout_secs"`
	PollIntervalSecs int    `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
}

// AnthropicConfig holds Anthropic API settings for the text-only analyzer.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// AnalyzerConfig selects the model provider.
type AnalyzerConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"` // "gemini" or "anthropic"
}

// MapsConfig holds Google Maps API settings.
type MapsConfig struct {
	Key             string  `yaml:"key" mapstructure:"key"`
	ReverseLanguage string  `yaml:"reverse_language" mapstructure:"reverse_language"`
	PhotoRadius     float64 `yaml:"photo_radius" mapstructure:"photo_radius"`
	RatePerSecond   float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
}

// WebhookConfig holds delivery sink settings.
type WebhookConfig struct {
	URL   string `yaml:"url" mapstructure:"url"`
	Token string `yaml:"token" mapstructure:"token"`
}

// StoreConfig configures the job-status store backend.
type StoreConfig struct {
	Driver        string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "redis"
	SQLitePath    string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	RedisAddr     string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string `yaml:"redis_password" mapstructure:"redis_password"`
	RedisDB       int    `yaml:"redis_db" mapstructure:"redis_db"`
	TTLHours      int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// ScrapeConfig configures web page scraping.
type ScrapeConfig struct {
	TimeoutSecs  int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxTextChars int `yaml:"max_text_chars" mapstructure:"max_text_chars"`
}

// MediaConfig configures video probing and download.
type MediaConfig struct {
	YtDlpPath  string `yaml:"ytdlp_path" mapstructure:"ytdlp_path"`
	ScratchDir string `yaml:"scratch_dir" mapstructure:"scratch_dir"`
}

// CategoriesConfig locates the category master list.
type CategoriesConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the HTTP gateway.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	MaxBodyBytes   int64    `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxTextChars   int      `yaml:"max_text_chars" mapstructure:"max_text_chars"`
}

// WorkerConfig configures the in-process job queue.
type WorkerConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
	QueueDepth  int `yaml:"queue_depth" mapstructure:"queue_depth"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TRIP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_body_bytes", 1_000_000)
	v.SetDefault("server.max_text_chars", 50_000)
	v.SetDefault("worker.concurrency", 4)
	v.SetDefault("worker.queue_depth", 64)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "jobs.db")
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.ttl_hours", 720)
	v.SetDefault("scrape.timeout_secs", 10)
	v.SetDefault("scrape.max_text_chars", 5000)
	v.SetDefault("media.ytdlp_path", "yt-dlp")
	v.SetDefault("media.scratch_dir", "/tmp")
	v.SetDefault("categories.path", "categories.json")
	v.SetDefault("analyzer.provider", "gemini")
	v.SetDefault("maps.reverse_language", "he")
	v.SetDefault("maps.photo_radius", 500.0)
	v.SetDefault("maps.rate_per_second", 10)
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("gemini.upload_base_url", "https://generativelanguage.googleapis.com/upload")
	v.SetDefault("gemini.video_model", "models/gemini-2.5-flash")
	v.SetDefault("gemini.text_model", "models/gemini-2.0-flash")
	v.SetDefault("gemini.poll_timeout_secs", 300)
	v.SetDefault("gemini.poll_interval_secs", 2)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
