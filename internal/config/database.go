package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"
)

// archiveTablePattern keeps the table name a plain unquoted identifier.
var archiveTablePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

var secureSSLModes = []string{"require", "verify-ca", "verify-full"}

// DatabaseConfig configures the optional Postgres event archive.
type DatabaseConfig struct {
	// URL wins over the individual fields when set.
	URL      string `envconfig:"URL"`
	Host     string `envconfig:"HOST"`
	Port     string `envconfig:"PORT"`
	Name     string `envconfig:"NAME"`
	User     string `envconfig:"USER"`
	Password string `envconfig:"PASSWORD"`
	SSLMode  string `envconfig:"SSL_MODE" default:"prefer" validate:"oneof=disable allow prefer require verify-ca verify-full"`

	// The archive writes one COPY per dispatched batch, so a handful of
	// connections is plenty.
	MaxConns        int           `envconfig:"MAX_CONNS" default:"4" validate:"min=1"`
	MinConns        int           `envconfig:"MIN_CONNS" default:"1" validate:"min=0,ltefield=MaxConns"`
	MaxConnLifetime time.Duration `envconfig:"MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `envconfig:"MAX_CONN_IDLE_TIME" default:"30m"`
	ConnectTimeout  time.Duration `envconfig:"CONNECT_TIMEOUT" default:"5s"`

	ArchiveTable string `envconfig:"ARCHIVE_TABLE" default:"user_events"`
}

// IsConfigured reports whether the event archive was requested.
func (c *DatabaseConfig) IsConfigured() bool {
	return c.URL != "" || c.Host != ""
}

// ConnectionString returns URL as is, or a postgres:// URL built from the fields.
func (c *DatabaseConfig) ConnectionString() string {
	if c.URL != "" {
		return c.URL
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// Validate checks the connection settings and the archive table name.
func (c *DatabaseConfig) Validate(environment string) error {
	if c.URL != "" {
		if err := validatePostgresURL(c.URL); err != nil {
			return fmt.Errorf("invalid database URL: %w", err)
		}
	} else if err := c.validateFields(environment); err != nil {
		return err
	}

	if !archiveTablePattern.MatchString(c.ArchiveTable) {
		return fmt.Errorf("archive table %q must be a plain lowercase identifier", c.ArchiveTable)
	}
	return nil
}

func (c *DatabaseConfig) validateFields(environment string) error {
	if err := validateEndpoint("database", c.Host, c.Port); err != nil {
		return err
	}
	if err := validateNoWhitespace(c.Name, "database name"); err != nil {
		return err
	}
	if len(c.Name) > 63 {
		return errors.New("database name cannot exceed 63 characters")
	}
	if err := validateNoWhitespace(c.User, "database user"); err != nil {
		return err
	}

	if environment == EnvironmentProduction && !slices.Contains(secureSSLModes, c.SSLMode) {
		return fmt.Errorf("database SSL mode must be one of %v in production environment", secureSSLModes)
	}
	return validateSecret("database", c.Password, environment)
}

func validatePostgresURL(raw string) error {
	parsed, err := parseURL(raw, "postgres", "postgresql")
	if err != nil {
		return err
	}
	if parsed.User.Username() == "" {
		return errors.New("user is required in URL")
	}
	if strings.TrimPrefix(parsed.Path, "/") == "" {
		return errors.New("database name is required in URL path")
	}
	return nil
}
