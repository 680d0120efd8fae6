package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	SessionBackendSQLite   = "sqlite"
	SessionBackendFile     = "file"
	SessionBackendMemory   = "memory"
	SessionBackendPostgres = "postgres"
)

type Config struct {
	APIBaseURL   string        `env:"GAMERLINK_API_BASE_URL"   envDefault:"http://localhost:8080"`
	HTTPTimeout  time.Duration `env:"GAMERLINK_HTTP_TIMEOUT"   envDefault:"0s"`
	Session      SessionConfig
	AuditLogFile string `env:"GAMERLINK_AUDIT_LOG_FILE" envDefault:"./data/audit.log"`
	Retry        RetryConfig
	LogLevel     string `env:"GAMERLINK_LOG_LEVEL"     envDefault:"info"`
	OTelEndpoint string `env:"GAMERLINK_OTEL_ENDPOINT"`
}

type SessionConfig struct {
	Backend     string `env:"GAMERLINK_SESSION_BACKEND" envDefault:"sqlite"`
	File        string `env:"GAMERLINK_SESSION_FILE"    envDefault:"./data/session.json"`
	SQLitePath  string `env:"GAMERLINK_SESSION_DB"      envDefault:"./data/session.db"`
	DatabaseURL string `env:"GAMERLINK_DATABASE_URL"`
	// Key selects the row in a shared Postgres table; empty means hostname.
	Key string `env:"GAMERLINK_SESSION_KEY"`
}

type RetryConfig struct {
	MaxAttempts     uint          `env:"GAMERLINK_RETRY_MAX_ATTEMPTS"     envDefault:"1"`
	InitialInterval time.Duration `env:"GAMERLINK_RETRY_INITIAL_INTERVAL" envDefault:"200ms"`
	MaxInterval     time.Duration `env:"GAMERLINK_RETRY_MAX_INTERVAL"     envDefault:"2s"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Session.Backend = strings.ToLower(strings.TrimSpace(cfg.Session.Backend))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if cfg.APIBaseURL == "" {
		return Config{}, fmt.Errorf("GAMERLINK_API_BASE_URL must not be empty")
	}
	if u, err := url.Parse(cfg.APIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return Config{}, fmt.Errorf("GAMERLINK_API_BASE_URL must be an absolute URL")
	}
	if cfg.HTTPTimeout < 0 {
		return Config{}, fmt.Errorf("GAMERLINK_HTTP_TIMEOUT must be >= 0")
	}

	switch cfg.Session.Backend {
	case SessionBackendSQLite:
		if cfg.Session.SQLitePath == "" {
			return Config{}, fmt.Errorf("GAMERLINK_SESSION_DB must not be empty")
		}
	case SessionBackendFile:
		if cfg.Session.File == "" {
			return Config{}, fmt.Errorf("GAMERLINK_SESSION_FILE must not be empty")
		}
	case SessionBackendPostgres:
		if cfg.Session.DatabaseURL == "" {
			return Config{}, fmt.Errorf("GAMERLINK_DATABASE_URL must not be empty when GAMERLINK_SESSION_BACKEND=postgres")
		}
	case SessionBackendMemory:
	default:
		return Config{}, fmt.Errorf("GAMERLINK_SESSION_BACKEND must be one of sqlite, file, memory, postgres")
	}

	if cfg.Retry.MaxAttempts < 1 {
		return Config{}, fmt.Errorf("GAMERLINK_RETRY_MAX_ATTEMPTS must be >= 1")
	}
	if cfg.Retry.InitialInterval <= 0 {
		return Config{}, fmt.Errorf("GAMERLINK_RETRY_INITIAL_INTERVAL must be > 0")
	}
	if cfg.Retry.MaxInterval < cfg.Retry.InitialInterval {
		return Config{}, fmt.Errorf("GAMERLINK_RETRY_MAX_INTERVAL must be >= GAMERLINK_RETRY_INITIAL_INTERVAL")
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("GAMERLINK_LOG_LEVEL must be one of debug, info, warn, error")
	}

	return cfg, nil
}
