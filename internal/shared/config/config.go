package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/reshetovitsme/insta-autoreply/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

type Config struct {
	AppEnv   string `koanf:"app_env"`
	HTTPPort string `koanf:"http_port"`
	LogLevel string `koanf:"log_level"`
	LogFile  string `koanf:"log_file"`

	DatabaseDriver          string        `koanf:"database_driver"`
	DatabaseDSN             string        `koanf:"database_dsn"`
	DatabaseMaxOpenConns    int           `koanf:"database_max_open_conns"`
	DatabaseMaxIdleConns    int           `koanf:"database_max_idle_conns"`
	DatabaseConnMaxLifetime time.Duration `koanf:"database_conn_max_lifetime"`

	CacheEnabled bool          `koanf:"cache_enabled"`
	RedisURL     string        `koanf:"redis_url"`
	CacheTTL     time.Duration `koanf:"cache_ttl"`

	GeminiAPIKey          string  `koanf:"gemini_api_key"`
	GeminiModel           string  `koanf:"gemini_model"`
	GeminiTemperature     float32 `koanf:"gemini_temperature"`
	GeminiMaxOutputTokens int32   `koanf:"gemini_max_output_tokens"`
	ReplyMaxSentences     int     `koanf:"reply_max_sentences"`
	HistoryLimit          int     `koanf:"history_limit"`
	FallbackReply         string  `koanf:"fallback_reply"`

	InstagramBaseURL    string        `koanf:"instagram_base_url"`
	InstagramAPIVersion string        `koanf:"instagram_api_version"`
	DeliveryTimeout     time.Duration `koanf:"delivery_timeout"`
	WebhookVerifyToken  string        `koanf:"webhook_verify_token"`
	WebhookAppSecret    string        `koanf:"webhook_app_secret"`

	// FeedToken guards the transcript feeds; empty disables them
	FeedToken string `koanf:"feed_token"`

	TelegramBotToken    string `koanf:"telegram_bot_token"`
	TelegramAlertChatID int64  `koanf:"telegram_alert_chat_id"`
}

// DefaultFallbackReply is sent when the generative backend cannot produce an answer.
const DefaultFallbackReply = "I apologize, but I'm currently experiencing technical difficulties. Please try again later or contact support."

var defaults = map[string]any{
	"app_env":                    "production",
	"http_port":                  "8080",
	"log_level":                  "info",
	"database_driver":            "postgres",
	"database_max_open_conns":    25,
	"database_max_idle_conns":    5,
	"database_conn_max_lifetime": "30m",
	"redis_url":                  "redis://localhost:6379/0",
	"cache_ttl":                  "30s",
	"gemini_model":               "gemini-2.5-flash",
	"gemini_temperature":         0.7,
	"gemini_max_output_tokens":   2048,
	"reply_max_sentences":        3,
	"history_limit":              20,
	"fallback_reply":             DefaultFallbackReply,
	"instagram_base_url":         "https://graph.instagram.com",
	"instagram_api_version":      "v21.0",
	"delivery_timeout":           "10s",
}

func Load() (*Config, error) {
	k := koanf.New(".")

	configFiles := []string{
		"config.yaml",
		"config.yml",
		"config.json",
		"config.toml",
	}

	configFile, found := lo.Find(configFiles, func(file string) bool {
		_, err := os.Stat(file)
		return err == nil
	})

	if found {
		var parser koanf.Parser
		ext := filepath.Ext(configFile)

		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		case ".toml":
			parser = toml.Parser()
		default:
			return nil, oops.Errorf("unsupported config file extension: %s", ext)
		}

		if err := k.Load(file.Provider(configFile), parser); err != nil {
			return nil, oops.With("config_file", configFile).Wrap(err)
		}
	}

	// Environment variables override config file values
	if err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(s)
	}), nil); err != nil {
		return nil, oops.With("context", "loading environment variables").Wrap(err)
	}

	return fromKoanf(k)
}

func fromKoanf(k *koanf.Koanf) (*Config, error) {
	for key, value := range defaults {
		if !k.Exists(key) {
			if err := k.Set(key, value); err != nil {
				return nil, oops.With("key", key).Wrap(err)
			}
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.With("context", "unmarshaling config").Wrap(err)
	}

	cfg.DatabaseDriver = strings.ToLower(strings.TrimSpace(cfg.DatabaseDriver))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if cfg.DatabaseDSN == "" {
		return nil, errors.ErrMissingDatabaseDSN
	}
	if !lo.Contains([]string{"postgres", "sqlite"}, cfg.DatabaseDriver) {
		return nil, oops.With("database_driver", cfg.DatabaseDriver).Wrap(errors.ErrUnsupportedDriver)
	}

	return &cfg, nil
}
