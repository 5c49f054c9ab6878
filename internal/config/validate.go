package config

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// minProductionSecretLength applies to the Redis and database passwords.
const minProductionSecretLength = 12

// validatePort checks that port is a number in 1-65535.
func validatePort(port, component string) error {
	if port == "" {
		return fmt.Errorf("%s port cannot be empty", component)
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("%s port must be a number: %w", component, err)
	}
	if n < 1 || n > 65535 {
		return fmt.Errorf("%s port must be between 1 and 65535, got %d", component, n)
	}
	return nil
}

// validateHost rejects empty hosts and hosts padded with whitespace.
func validateHost(host, component string) error {
	return validateNoWhitespace(host, component+" host")
}

// validateEndpoint checks a host/port pair given as separate settings.
func validateEndpoint(component, host, port string) error {
	if err := validateHost(host, component); err != nil {
		return err
	}
	return validatePort(port, component)
}

func validateNoWhitespace(value, field string) error {
	switch {
	case value == "":
		return fmt.Errorf("%s cannot be empty", field)
	case strings.TrimSpace(value) != value:
		return fmt.Errorf("%s cannot contain whitespace", field)
	}
	return nil
}

// validateSecret requires a long enough password in production. Other
// environments accept anything, including no password.
func validateSecret(component, password, environment string) error {
	if environment != EnvironmentProduction {
		return nil
	}
	if password == "" {
		return fmt.Errorf("%s password is required in production environment", component)
	}
	if len(password) < minProductionSecretLength {
		return fmt.Errorf("%s password must be at least %d characters in production", component, minProductionSecretLength)
	}
	return nil
}

// parseURL parses raw and requires one of schemes and a host.
func parseURL(raw string, schemes ...string) (*url.URL, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if !slices.Contains(schemes, parsed.Scheme) {
		return nil, fmt.Errorf("invalid scheme '%s', must be one of: %v", parsed.Scheme, schemes)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("host is required in URL")
	}
	return parsed, nil
}
