// Package config loads insight settings from an optional YAML file, a .env
// file and the process environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all runtime settings for insight.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Log       LogConfig       `yaml:"log"`

	// SeedPath points at a YAML manifest applied when the store is empty.
	SeedPath string `yaml:"seed_path" env:"INSIGHT_SEED_PATH" env-default:""`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr     string `yaml:"addr" env:"INSIGHT_ADDR" env-default:":8080"`
	BasePath string `yaml:"base_path" env:"INSIGHT_BASE_PATH" env-default:"/insight"`
	// EmbedBaseURL prefixes the iframe snippet of each dashboard.
	EmbedBaseURL string `yaml:"embed_base_url" env:"INSIGHT_EMBED_BASE_URL" env-default:"http://localhost:8080/insight"`
}

// DatabaseConfig selects the persistence backend. An empty path keeps
// everything in memory.
type DatabaseConfig struct {
	Path string `yaml:"path" env:"INSIGHT_DB_PATH" env-default:"insight.db"`
}

// SchedulerConfig tunes the background refresh loop.
type SchedulerConfig struct {
	Enabled   bool          `yaml:"enabled" env:"INSIGHT_SCHEDULER_ENABLED" env-default:"true"`
	Heartbeat time.Duration `yaml:"heartbeat" env:"INSIGHT_SCHEDULER_HEARTBEAT" env-default:"30s"`
	// Simulate makes refreshes wait SyncDelay instead of calling the source.
	Simulate  bool          `yaml:"simulate" env:"INSIGHT_SCHEDULER_SIMULATE" env-default:"false"`
	SyncDelay time.Duration `yaml:"sync_delay" env:"INSIGHT_SYNC_DELAY" env-default:"2s"`
}

// LogConfig configures the zap logger and optional file rotation.
type LogConfig struct {
	Level       string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Development bool   `yaml:"development" env:"LOG_DEVELOPMENT" env-default:"false"`
	File        string `yaml:"file" env:"LOG_FILE" env-default:""`
	MaxSizeMB   int    `yaml:"max_size_mb" env:"LOG_MAX_SIZE" env-default:"100"`
	MaxBackups  int    `yaml:"max_backups" env:"LOG_MAX_BACKUPS" env-default:"7"`
	MaxAgeDays  int    `yaml:"max_age_days" env:"LOG_MAX_AGE" env-default:"7"`
	Compress    bool   `yaml:"compress" env:"LOG_COMPRESS" env-default:"true"`
}

// Load reads path (when not empty) with environment overrides. A .env file
// in the working directory is loaded first if present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	cfg := &Config{}
	if path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("config: read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("config: server addr is required")
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config: base path %q must start with /", c.Server.BasePath)
	}
	if c.Scheduler.Heartbeat <= 0 {
		return fmt.Errorf("config: scheduler heartbeat must be positive, got %s", c.Scheduler.Heartbeat)
	}
	if c.Scheduler.SyncDelay < 0 {
		return fmt.Errorf("config: sync delay must not be negative, got %s", c.Scheduler.SyncDelay)
	}
	if c.SeedPath != "" {
		if _, err := os.Stat(c.SeedPath); err != nil {
			return fmt.Errorf("config: seed manifest: %w", err)
		}
	}
	return nil
}
