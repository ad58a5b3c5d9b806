package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Listen          string        `yaml:"listen"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	RateLimitPerSec float64       `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
}

type DatabaseConfig struct {
	Path            string        `yaml:"path"`
	MaxReadConns    int           `yaml:"max_read_conns"`
	RetentionDays   int           `yaml:"retention_days"`
	RetentionPeriod time.Duration `yaml:"retention_period"`
}

type MonitorConfig struct {
	// CertExpiryDays is the warning window for notifyCertExpiry on http
	// monitors.
	CertExpiryDays int `yaml:"cert_expiry_days"`
	// PushTolerance multiplies pushInterval when judging heartbeat
	// freshness.
	PushTolerance float64 `yaml:"push_tolerance"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:          "127.0.0.1:8090",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			RateLimitPerSec: 30,
			RateLimitBurst:  60,
		},
		Database: DatabaseConfig{
			Path:            "watchdog.db",
			MaxReadConns:    4,
			RetentionDays:   30,
			RetentionPeriod: 24 * time.Hour,
		},
		Monitor: MonitorConfig{
			CertExpiryDays: 14,
			PushTolerance:  1.5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return fmt.Errorf("server.listen is required")
	}
	if c.Server.RateLimitPerSec <= 0 {
		return fmt.Errorf("server.rate_limit_per_sec must be positive")
	}
	if c.Server.RateLimitBurst <= 0 {
		return fmt.Errorf("server.rate_limit_burst must be positive")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.MaxReadConns <= 0 {
		return fmt.Errorf("database.max_read_conns must be positive")
	}
	if c.Database.RetentionDays <= 0 {
		return fmt.Errorf("database.retention_days must be positive")
	}
	if c.Monitor.CertExpiryDays <= 0 {
		return fmt.Errorf("monitor.cert_expiry_days must be positive")
	}
	if c.Monitor.PushTolerance < 1 {
		return fmt.Errorf("monitor.push_tolerance must be at least 1")
	}
	return validateLogLevel(c.Logging.Level)
}

func validateLogLevel(level string) error {
	switch level {
	case "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("logging.level must be one of debug, info, warn, error")
}
