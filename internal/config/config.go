// Package config loads application configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	GitHubToken     string        `mapstructure:"GITHUB_TOKEN"`
	ListenAddr      string        `mapstructure:"LISTEN_ADDR"`
	DBPath          string        `mapstructure:"DB_PATH"`
	SyncInterval    time.Duration `mapstructure:"SYNC_INTERVAL"`
	SyncConcurrency int           `mapstructure:"SYNC_CONCURRENCY"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
}

// Load reads configuration from a .env file if present, then from environment
// variables. GITHUB_TOKEN is required; everything else has a default.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("LISTEN_ADDR", "127.0.0.1:8080")
	v.SetDefault("DB_PATH", "gitpulse.db")
	v.SetDefault("SYNC_INTERVAL", "1h")
	v.SetDefault("SYNC_CONCURRENCY", 5)
	v.SetDefault("LOG_LEVEL", "info")

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Missing .env is fine; environment variables still apply.

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv alone does not surface env vars through Unmarshal, so each
	// key is bound explicitly.
	for _, key := range []string{"GITHUB_TOKEN", "LISTEN_ADDR", "DB_PATH", "SYNC_INTERVAL", "SYNC_CONCURRENCY", "LOG_LEVEL"} {
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.GitHubToken == "" {
		return nil, errors.New("GITHUB_TOKEN is a required configuration field")
	}
	if cfg.SyncInterval <= 0 {
		return nil, errors.New("SYNC_INTERVAL must be a positive duration")
	}
	if cfg.SyncConcurrency < 1 {
		return nil, errors.New("SYNC_CONCURRENCY must be at least 1")
	}

	return &cfg, nil
}
