package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Policy    PolicyConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8700"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// StoreConfig selects and addresses the backing store.
type StoreConfig struct {
	// Backend is "memory" or "remote".
	Backend string `envconfig:"STORE_BACKEND" default:"memory"`
	// Address is the base URL of the remote store server.
	Address string `envconfig:"STORE_ADDR" default:"http://localhost:8900"`
	// RetryMax bounds transport-level retries of the remote adapter.
	RetryMax int `envconfig:"STORE_RETRY_MAX" default:"2"`
}

// PolicyConfig holds tool execution policy configuration.
type PolicyConfig struct {
	TimeoutMs     int `envconfig:"POLICY_TIMEOUT_MS" default:"30000"`
	MaxRetries    int `envconfig:"POLICY_MAX_RETRIES" default:"3"`
	BackoffBaseMs int `envconfig:"POLICY_BACKOFF_BASE_MS" default:"1000"`
	BackoffCapMs  int `envconfig:"POLICY_BACKOFF_CAP_MS" default:"30000"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8700",
			Host: "0.0.0.0",
		},
		Store: StoreConfig{
			Backend:  "memory",
			Address:  "http://localhost:8900",
			RetryMax: 2,
		},
		Policy: PolicyConfig{
			TimeoutMs:     30000,
			MaxRetries:    3,
			BackoffBaseMs: 1000,
			BackoffCapMs:  30000,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
