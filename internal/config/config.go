// Package config provides centralized configuration management for the Heimdall
// SDK relay. It uses envconfig for environment variable loading and validator for
// validation.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvironmentProduction is the production environment identifier
	EnvironmentProduction = "production"
)

// Config holds the complete application configuration.
type Config struct {
	App           AppConfig           `envconfig:"APP"`
	SDK           SDKConfig           `envconfig:"SDK"`
	Events        EventsConfig        `envconfig:"EVENTS"`
	Relay         RelayConfig         `envconfig:"RELAY"`
	Database      DatabaseConfig      `envconfig:"DB"`
	Redis         RedisConfig         `envconfig:"REDIS"`
	Observability ObservabilityConfig `envconfig:"OBSERVABILITY"`
}

// AppConfig contains core application settings.
type AppConfig struct {
	Name            string        `envconfig:"NAME" default:"heimdall-relay"`
	Version         string        `envconfig:"VERSION" default:"dev"`
	Environment     string        `envconfig:"ENV" default:"development" validate:"oneof=development staging production"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"text" validate:"oneof=json text"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// Load reads configuration from environment variables with the HEIMDALL prefix.
func Load() (*Config, error) {
	cfg := &Config{}

	// Load with HEIMDALL_ prefix
	if err := envconfig.Process("HEIMDALL", cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate runs the struct tags through go-playground/validator and then the
// cross-field checks of each section. Redis and the database are optional and
// only checked when configured.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	env := c.App.Environment
	checks := []func() error{
		c.SDK.Validate,
		c.Events.Validate,
		func() error { return c.Relay.Validate(env) },
		c.Observability.Validate,
	}
	if c.Database.IsConfigured() {
		checks = append(checks, func() error { return c.Database.Validate(env) })
	}
	if c.Redis.IsConfigured() {
		checks = append(checks, func() error { return c.Redis.Validate(env) })
	}

	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

// LogConfig logs the current configuration (without sensitive data).
func (c *Config) LogConfig(log *slog.Logger) {
	log.Info("configuration loaded",
		slog.String("app_name", c.App.Name),
		slog.String("version", c.App.Version),
		slog.String("environment", c.App.Environment),
		slog.String("log_level", c.App.LogLevel),
		slog.String("log_format", c.App.LogFormat),
		slog.Duration("shutdown_timeout", c.App.ShutdownTimeout),
		slog.String("sdk_url", c.SDK.URL),
		slog.String("events_url", c.SDK.EventsURL),
		slog.Duration("polling_interval", c.SDK.PollingInterval),
		slog.String("workspace_file", c.SDK.WorkspaceFile),
		slog.Int("event_queue_capacity", c.Events.QueueCapacity),
		slog.Int("event_batch_size", c.Events.BatchSize),
		slog.String("relay_port", c.Relay.Port),
		slog.Bool("relay_tls_enabled", c.Relay.TLSEnabled),
		slog.Bool("relay_auth_enabled", c.Relay.APIKeyHash != ""),
		slog.String("observability_port", c.Observability.Port),
		slog.Bool("db_configured", c.Database.IsConfigured()),
		slog.String("archive_table", c.Database.ArchiveTable),
		slog.Bool("redis_configured", c.Redis.IsConfigured()),
		slog.String("snapshot_key", c.Redis.SnapshotKey),
	)
}
