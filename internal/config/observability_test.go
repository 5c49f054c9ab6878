package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservabilityConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		want    func(t *testing.T, cfg *Config)
		wantErr string
	}{
		{
			name: "Should load custom port, timeout and paths",
			envVars: mergeEnvVars(map[string]string{
				"HEIMDALL_OBSERVABILITY_PORT":           "9191",
				"HEIMDALL_OBSERVABILITY_TIMEOUT":        "2s",
				"HEIMDALL_OBSERVABILITY_READINESS_PATH": "/ready",
			}),
			want: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.Observability.Enabled)
				assert.Equal(t, "9191", cfg.Observability.Port)
				assert.Equal(t, 2*time.Second, cfg.Observability.Timeout)
				assert.Equal(t, "/ready", cfg.Observability.ReadinessPath)
				assert.Equal(t, "/metrics", cfg.Observability.MetricsPath)
			},
		},
		{
			name: "Should skip validation when disabled",
			envVars: mergeEnvVars(map[string]string{
				"HEIMDALL_OBSERVABILITY_ENABLED": "false",
				"HEIMDALL_OBSERVABILITY_PORT":    "0",
			}),
			want: func(t *testing.T, cfg *Config) {
				assert.False(t, cfg.Observability.Enabled)
			},
		},
		{
			name:    "Should reject a port out of range",
			envVars: mergeEnvVars(map[string]string{"HEIMDALL_OBSERVABILITY_PORT": "65536"}),
			wantErr: "port",
		},
		{
			name:    "Should reject a timeout below one second",
			envVars: mergeEnvVars(map[string]string{"HEIMDALL_OBSERVABILITY_TIMEOUT": "999ms"}),
			wantErr: "Timeout",
		},
		{
			name:    "Should reject a relative path",
			envVars: mergeEnvVars(map[string]string{"HEIMDALL_OBSERVABILITY_METRICS_PATH": "metrics"}),
			wantErr: "must start with '/'",
		},
		{
			name: "Should reject colliding paths",
			envVars: mergeEnvVars(map[string]string{
				"HEIMDALL_OBSERVABILITY_LIVENESS_PATH":  "/health",
				"HEIMDALL_OBSERVABILITY_READINESS_PATH": "/health",
			}),
			wantErr: "liveness and readiness",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			// Act
			cfg, err := Load()

			// Assert
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.want(t, cfg)
		})
	}
}
