// Package config provides configuration management for the wizard tools.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"alert-wizard/internal/alertlist"
	"alert-wizard/internal/kafka"
	"alert-wizard/internal/logging"
	"alert-wizard/internal/storage/s3"
	"alert-wizard/internal/wizard"
)

// DefaultPath is read when WIZARD_CONFIG_PATH is not set.
const DefaultPath = "configs/wizard.yaml"

// Config holds all configuration for the wizard tools.
type Config struct {
	Defaults DefaultsConfig        `yaml:"defaults"`
	Logging  LoggingConfig         `yaml:"logging"`
	Postgres PostgresConfig        `yaml:"postgres"`
	Redis    alertlist.RedisConfig `yaml:"redis"`
	Kafka    kafka.Config          `yaml:"kafka"`
	S3       s3.Config             `yaml:"s3"`
}

// DefaultsConfig holds the values used when a rule file omits them.
type DefaultsConfig struct {
	// Backlog is the number of messages attached to a notification.
	Backlog int64 `yaml:"backlog"`
	// Time is the search window in minutes.
	Time int64 `yaml:"time"`
	// Grace is the execution interval in minutes.
	Grace         int64  `yaml:"grace"`
	Severity      string `yaml:"severity"`
	MatchingType  string `yaml:"matching_type"`
	ThresholdType string `yaml:"threshold_type"`
	// CreatorUserID owns lists created by imports.
	CreatorUserID string `yaml:"creator_user_id"`
}

// RuleDefaults converts the defaults for rule parsing.
func (d DefaultsConfig) RuleDefaults() wizard.RuleDefaults {
	params := wizard.Parameters{
		wizard.KeyBacklog: d.Backlog,
		wizard.KeyTime:    d.Time,
		wizard.KeyGrace:   d.Grace,
	}
	if d.ThresholdType != "" {
		params[wizard.KeyThresholdType] = d.ThresholdType
	}
	return wizard.RuleDefaults{
		Severity:     d.Severity,
		MatchingType: d.MatchingType,
		Parameters:   params,
	}
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// PostgresConfig holds the event definition database settings.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	MigrateOnStart  bool          `yaml:"migrate_on_start"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Defaults: DefaultsConfig{
			Backlog:       wizard.DefaultBacklog,
			Time:          wizard.DefaultTime,
			Grace:         wizard.DefaultGrace,
			Severity:      "info",
			MatchingType:  "AND",
			ThresholdType: "MORE",
			CreatorUserID: "admin",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Postgres: PostgresConfig{
			DSN:             "postgres://wizard@localhost:5432/wizard?sslmode=disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			MigrateOnStart:  true,
		},
		Redis: alertlist.DefaultRedisConfig(),
		Kafka: *kafka.DefaultConfig(),
		S3:    *s3.DefaultConfig(),
	}
}

// Load loads configuration from WIZARD_CONFIG_PATH, or DefaultPath.
func Load() (*Config, error) {
	configPath := os.Getenv("WIZARD_CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultPath
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path. A missing file yields the
// defaults. Environment overrides apply in both cases.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if level := os.Getenv("WIZARD_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}

	if dsn := os.Getenv("WIZARD_POSTGRES_DSN"); dsn != "" {
		c.Postgres.DSN = dsn
	}

	if addr := os.Getenv("WIZARD_REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
	}
	if pass := os.Getenv("WIZARD_REDIS_PASSWORD"); pass != "" {
		c.Redis.Password = pass
	}

	if brokers := os.Getenv("WIZARD_KAFKA_BROKERS"); brokers != "" {
		c.Kafka.Brokers = splitAndTrim(brokers, ",")
		c.Kafka.Enabled = len(c.Kafka.Brokers) > 0
	}

	if bucket := os.Getenv("WIZARD_S3_BUCKET"); bucket != "" {
		c.S3.Bucket = bucket
		c.S3.Enabled = true
	}

	if backlog := os.Getenv("WIZARD_DEFAULT_BACKLOG"); backlog != "" {
		if n, err := strconv.ParseInt(backlog, 10, 64); err == nil {
			c.Defaults.Backlog = n
		}
	}
}

// splitAndTrim splits a string by separator and drops empty parts.
func splitAndTrim(s, sep string) []string {
	parts := make([]string, 0)
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

// Validate validates the configuration. Sections of disabled integrations
// are not checked.
func (c *Config) Validate() error {
	if c.Defaults.Backlog < 0 {
		return fmt.Errorf("defaults.backlog cannot be negative: %d", c.Defaults.Backlog)
	}
	if c.Defaults.Time < 0 || c.Defaults.Grace < 0 {
		return fmt.Errorf("defaults.time and defaults.grace cannot be negative")
	}
	if c.Defaults.Severity != "" && !wizard.IsValidSeverity(c.Defaults.Severity) {
		return fmt.Errorf("invalid defaults.severity: %q", c.Defaults.Severity)
	}
	switch c.Defaults.MatchingType {
	case "", "AND", "OR":
	default:
		return fmt.Errorf("invalid defaults.matching_type: %q", c.Defaults.MatchingType)
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging.level: %w", err)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "text":
	default:
		return fmt.Errorf("invalid logging.format: %q", c.Logging.Format)
	}

	if c.Postgres.MaxOpenConns < 0 || c.Postgres.MaxIdleConns < 0 {
		return fmt.Errorf("postgres connection limits cannot be negative")
	}

	if c.Kafka.Enabled {
		if err := c.Kafka.Validate(); err != nil {
			return err
		}
	}
	if c.S3.Enabled {
		if err := c.S3.Validate(); err != nil {
			return err
		}
	}

	return nil
}
