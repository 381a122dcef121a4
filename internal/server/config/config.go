// Package config loads the backend configuration from YAML with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full backend configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging"`
	Sweeper   SweeperConfig   `yaml:"sweeper"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	// DSN selects PostgreSQL; the in-memory store is used when empty.
	DSN string `yaml:"dsn"`
}

type AuthConfig struct {
	Secret     string        `yaml:"secret"`
	AccessTTL  time.Duration `yaml:"access_ttl"`
	RefreshTTL time.Duration `yaml:"refresh_ttl"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	Burst             int `yaml:"burst"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type SweeperConfig struct {
	Schedule string `yaml:"schedule"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
		},
		Auth: AuthConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 30 * 24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Sweeper: SweeperConfig{
			Schedule: "@hourly",
		},
	}
}

// Load reads the YAML file at path, falling back to defaults when the file
// does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)

	if cfg.Auth.Secret == "" {
		return nil, fmt.Errorf("auth secret is required (set auth.secret or PAWSYNC_AUTH_SECRET)")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PAWSYNC_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("PAWSYNC_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("PAWSYNC_AUTH_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}
	if v := os.Getenv("PAWSYNC_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PAWSYNC_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateLimit.RequestsPerSecond = n
		}
	}
}
