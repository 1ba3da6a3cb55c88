// Package config loads application configuration from a YAML file with
// environment variable overrides (prefix MONEYWISE, dots as underscores).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	Server struct {
		Addr         string        `mapstructure:"addr"`
		ReadTimeout  time.Duration `mapstructure:"read_timeout"`
		WriteTimeout time.Duration `mapstructure:"write_timeout"`
		IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	} `mapstructure:"server"`

	DB struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"db"`

	JWT struct {
		Secret string        `mapstructure:"secret"`
		TTL    time.Duration `mapstructure:"ttl"`
	} `mapstructure:"jwt"`

	Anthropic struct {
		APIKey string `mapstructure:"api_key"`
		Model  string `mapstructure:"model"`
	} `mapstructure:"anthropic"`

	Memory struct {
		Enabled       bool    `mapstructure:"enabled"`
		MaxRecall     int     `mapstructure:"max_recall"`
		MinSimilarity float64 `mapstructure:"min_similarity"`
	} `mapstructure:"memory"`

	Guardrails struct {
		ChatTurnsPerMinute int `mapstructure:"chat_turns_per_minute"`
	} `mapstructure:"guardrails"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

// Load reads configuration from the given file, or from
// ./configs/config.yaml when path is empty. A missing file is not an
// error; defaults and environment variables still apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("db.path", "moneywise.db")
	v.SetDefault("jwt.secret", "dev-secret-do-not-use-in-production")
	v.SetDefault("jwt.ttl", 24*time.Hour)
	v.SetDefault("anthropic.model", "")
	v.SetDefault("memory.enabled", true)
	v.SetDefault("memory.max_recall", 5)
	v.SetDefault("memory.min_similarity", 0.3)
	v.SetDefault("guardrails.chat_turns_per_minute", 20)
	v.SetDefault("log.level", "info")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./configs")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("MONEYWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && path == "" {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if path != "" {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
