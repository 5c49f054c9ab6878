package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"time"
)

// RelayConfig configures the HTTP API that serves decisions to non-Go callers.
type RelayConfig struct {
	Host string `envconfig:"HOST" default:"0.0.0.0"`
	Port string `envconfig:"PORT" default:"8080"`

	ReadTimeout       time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	ReadHeaderTimeout time.Duration `envconfig:"READ_HEADER_TIMEOUT" default:"5s"`
	WriteTimeout      time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s"`
	IdleTimeout       time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s"`

	// Request size limits: 512KB of headers, 64KB of body.
	MaxHeaderBytes int   `envconfig:"MAX_HEADER_BYTES" default:"524288" validate:"min=1"`
	MaxBodyBytes   int64 `envconfig:"MAX_BODY_BYTES" default:"65536" validate:"min=1"`

	// APIKeyHash is the hex SHA-256 of the key callers send in X-API-Key.
	// Empty disables authentication, which production refuses.
	APIKeyHash string `envconfig:"API_KEY_HASH"`

	TLSEnabled bool   `envconfig:"TLS_ENABLED" default:"false"`
	TLSCert    string `envconfig:"TLS_CERT_FILE"`
	TLSKey     string `envconfig:"TLS_KEY_FILE"`
}

// Address returns the listen address in host:port form.
func (c *RelayConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Validate checks the listen address, the key hash and the TLS material.
func (c *RelayConfig) Validate(environment string) error {
	if err := validateEndpoint("relay", c.Host, c.Port); err != nil {
		return err
	}

	if c.APIKeyHash != "" {
		if err := validateSHA256Hex(c.APIKeyHash); err != nil {
			return fmt.Errorf("invalid API key hash: %w", err)
		}
	}

	if c.TLSEnabled && (c.TLSCert == "" || c.TLSKey == "") {
		return errors.New("TLS enabled but cert or key file not specified")
	}

	if environment != EnvironmentProduction {
		return nil
	}
	switch {
	case c.APIKeyHash == "":
		return errors.New("API key hash is required in production environment")
	case !c.TLSEnabled:
		return errors.New("TLS must be enabled in production environment")
	}
	return nil
}

func validateSHA256Hex(s string) error {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("hash must be valid hexadecimal: %w", err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("SHA-256 hash must be 64 characters, got %d", len(s))
	}
	return nil
}
