package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sha256 of "relay-key".
const relayKeyHash = "f03f5ae3ec5478bc0baf12a049cba5844090fc9b751a19b3a0e3e2113cbb1cc5"

func TestRelayConfig_Validate(t *testing.T) {
	t.Parallel()

	secure := func(c *RelayConfig) {
		c.APIKeyHash = relayKeyHash
		c.TLSEnabled = true
		c.TLSCert, c.TLSKey = "/certs/tls.crt", "/certs/tls.key"
	}

	tests := []struct {
		name        string
		mutate      func(c *RelayConfig)
		environment string
		wantErr     string
	}{
		{name: "Should accept an open relay in development", mutate: func(*RelayConfig) {}},
		{name: "Should accept a secured relay in production", mutate: secure, environment: EnvironmentProduction},
		{
			name:    "Should reject port zero",
			mutate:  func(c *RelayConfig) { c.Port = "0" },
			wantErr: "between 1 and 65535",
		},
		{
			name:    "Should reject a host with trailing whitespace",
			mutate:  func(c *RelayConfig) { c.Host = "0.0.0.0 " },
			wantErr: "relay host cannot contain whitespace",
		},
		{
			name:    "Should reject TLS without certificate files",
			mutate:  func(c *RelayConfig) { c.TLSEnabled = true },
			wantErr: "cert or key file not specified",
		},
		{
			name:    "Should reject a short key hash",
			mutate:  func(c *RelayConfig) { c.APIKeyHash = "aaaaaa" },
			wantErr: "must be 64 characters",
		},
		{
			name:    "Should reject a non-hex key hash",
			mutate:  func(c *RelayConfig) { c.APIKeyHash = strings.Repeat("z", 64) },
			wantErr: "valid hexadecimal",
		},
		{
			name: "Should require a key hash in production",
			mutate: func(c *RelayConfig) {
				secure(c)
				c.APIKeyHash = ""
			},
			environment: EnvironmentProduction,
			wantErr:     "API key hash is required",
		},
		{
			name: "Should require TLS in production",
			mutate: func(c *RelayConfig) {
				secure(c)
				c.TLSEnabled = false
			},
			environment: EnvironmentProduction,
			wantErr:     "TLS must be enabled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Arrange
			cfg := RelayConfig{Host: "0.0.0.0", Port: "8080"}
			tt.mutate(&cfg)
			env := tt.environment
			if env == "" {
				env = "development"
			}

			// Act
			err := cfg.Validate(env)

			// Assert
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoad_Relay(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		want    func(t *testing.T, cfg *Config)
		wantErr bool
	}{
		{
			name:    "Should default the listener and limits",
			envVars: mergeEnvVars(nil),
			want: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "0.0.0.0:8080", cfg.Relay.Address())
				assert.Equal(t, 10*time.Second, cfg.Relay.ReadTimeout)
				assert.Equal(t, 10*time.Second, cfg.Relay.WriteTimeout)
				assert.Equal(t, 5*time.Second, cfg.Relay.ReadHeaderTimeout)
				assert.Equal(t, time.Minute, cfg.Relay.IdleTimeout)
				assert.Equal(t, 512<<10, cfg.Relay.MaxHeaderBytes)
				assert.Equal(t, int64(64<<10), cfg.Relay.MaxBodyBytes)
				assert.Empty(t, cfg.Relay.APIKeyHash)
			},
		},
		{
			name: "Should load the TLS files",
			envVars: mergeEnvVars(map[string]string{
				"HEIMDALL_RELAY_TLS_ENABLED":   "true",
				"HEIMDALL_RELAY_TLS_CERT_FILE": "/certs/tls.crt",
				"HEIMDALL_RELAY_TLS_KEY_FILE":  "/certs/tls.key",
			}),
			want: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.Relay.TLSEnabled)
				assert.Equal(t, "/certs/tls.crt", cfg.Relay.TLSCert)
				assert.Equal(t, "/certs/tls.key", cfg.Relay.TLSKey)
			},
		},
		{
			name:    "Should reject a zero header limit",
			envVars: mergeEnvVars(map[string]string{"HEIMDALL_RELAY_MAX_HEADER_BYTES": "0"}),
			wantErr: true,
		},
		{
			name:    "Should reject a negative body limit",
			envVars: mergeEnvVars(map[string]string{"HEIMDALL_RELAY_MAX_BODY_BYTES": "-100"}),
			wantErr: true,
		},
		{
			name: "Should accept production passwords of exactly 12 characters",
			envVars: func() map[string]string {
				env := validProductionConfig()
				env["HEIMDALL_DB_PASSWORD"] = "exactly12chr"
				env["HEIMDALL_REDIS_PASSWORD"] = "redis_pass12"
				return env
			}(),
			want: func(t *testing.T, cfg *Config) {
				assert.Equal(t, relayKeyHash, cfg.Relay.APIKeyHash)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			cfg, err := Load()

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.want(t, cfg)
		})
	}
}
