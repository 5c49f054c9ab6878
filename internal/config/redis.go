package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// RedisConfig configures the optional snapshot store. Every workspace the
// relay accepts is written under SnapshotKey and read back on a cold start,
// so the pool only ever serves one GET at boot and one SET per change.
type RedisConfig struct {
	// URL wins over the individual fields when set.
	URL        string `envconfig:"URL"`
	Host       string `envconfig:"HOST"`
	Port       string `envconfig:"PORT"`
	Password   string `envconfig:"PASSWORD"`
	DB         int    `envconfig:"DB" default:"0" validate:"min=0,max=15"`
	TLSEnabled bool   `envconfig:"TLS_ENABLED" default:"false"`

	PoolSize     int           `envconfig:"POOL_SIZE" default:"4" validate:"min=1"`
	MinIdleConns int           `envconfig:"MIN_IDLE_CONNS" default:"1" validate:"min=0,ltefield=PoolSize"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`
	MaxRetries   int           `envconfig:"MAX_RETRIES" default:"3" validate:"min=0"`

	// Startup ping, retried with a doubling backoff.
	PingMaxRetries int           `envconfig:"PING_MAX_RETRIES" default:"5" validate:"min=1"`
	PingBackoff    time.Duration `envconfig:"PING_BACKOFF" default:"2s"`

	SnapshotKey string        `envconfig:"SNAPSHOT_KEY" default:"heimdall:workspace:snapshot" validate:"required"`
	SnapshotTTL time.Duration `envconfig:"SNAPSHOT_TTL" default:"0s" validate:"min=0"`
}

// IsConfigured reports whether the snapshot store was requested.
func (c *RedisConfig) IsConfigured() bool {
	return c.URL != "" || c.Host != ""
}

// Address returns URL as is, or host:port built from the fields.
func (c *RedisConfig) Address() string {
	if c.URL != "" {
		return c.URL
	}
	return net.JoinHostPort(c.Host, c.Port)
}

// Validate checks the endpoint and, in production, that the connection is
// authenticated and encrypted. A URL carries its own credentials and scheme,
// so only its shape is checked.
func (c *RedisConfig) Validate(environment string) error {
	if c.URL != "" {
		if err := validateRedisURL(c.URL); err != nil {
			return fmt.Errorf("invalid redis URL: %w", err)
		}
		return nil
	}

	if err := validateEndpoint("redis", c.Host, c.Port); err != nil {
		return err
	}
	if environment == EnvironmentProduction && !c.TLSEnabled {
		return errors.New("redis TLS must be enabled in production environment")
	}
	return validateSecret("redis", c.Password, environment)
}

func validateRedisURL(raw string) error {
	parsed, err := parseURL(raw, "redis", "rediss")
	if err != nil {
		return err
	}

	db := strings.Trim(parsed.Path, "/")
	if db == "" {
		return nil
	}
	n, err := strconv.Atoi(db)
	if err != nil {
		return fmt.Errorf("database number must be a valid integer: %s", db)
	}
	if n < 0 || n > 15 {
		return fmt.Errorf("database number must be between 0 and 15, got %d", n)
	}
	return nil
}
