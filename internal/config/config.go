package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	GRPCAddr string `env:"GRPC_ADDR" envDefault:":9090"`

	// DB
	Env           string `env:"ENV" envDefault:"dev"` // "dev" | "prod"
	DBPath        string `env:"DB_PATH" envDefault:"./data/vehicle_db.db"`
	BusyTimeoutMS int    `env:"BUSY_TIMEOUT_MS" envDefault:"5000"`

	// Retry wrapper
	RetryMaxAttempts int           `env:"RETRY_MAX_ATTEMPTS" envDefault:"3"`
	RetryBaseDelay   time.Duration `env:"RETRY_BASE_DELAY" envDefault:"100ms"`

	// Seeded administrator
	AdminName     string `env:"ADMIN_NAME" envDefault:"root"`
	AdminPassword string `env:"ADMIN_PASSWORD" envDefault:"123456"`

	// Passage retention
	PassageRetentionDays int `env:"PASSAGE_RETENTION_DAYS" envDefault:"0"` // 0 = keep forever
	PruneIntervalHours   int `env:"PRUNE_INTERVAL_HOURS" envDefault:"6"`

	// Ingestion throttling
	IngestRate  float64 `env:"INGEST_RATE" envDefault:"50"`
	IngestBurst int     `env:"INGEST_BURST" envDefault:"100"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

const envPrefix = "CAMPUSPASS_"

// FromEnv parses CAMPUSPASS_* variables.
func FromEnv() (Config, error) {
	return parse(env.Options{Prefix: envPrefix})
}

// FromMap parses a fixed environment; used by tests and the CLI's overrides.
func FromMap(vars map[string]string) (Config, error) {
	return parse(env.Options{Prefix: envPrefix, Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	if cfg.Env != "dev" && cfg.Env != "prod" {
		// fail-soft: treat unknown as dev
		cfg.Env = "dev"
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("db path is required")
	}
	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf("retry max attempts must be >= 1, got %d", c.RetryMaxAttempts)
	}
	if c.RetryBaseDelay < 0 {
		return fmt.Errorf("retry base delay must not be negative")
	}
	if c.PassageRetentionDays < 0 || c.PruneIntervalHours < 0 {
		return fmt.Errorf("retention and prune interval must not be negative")
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}
