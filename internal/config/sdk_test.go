package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSDKConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		want    func(t *testing.T, cfg *Config)
		wantErr bool
	}{
		{
			name:    "Should verify SDK defaults",
			envVars: mergeEnvVars(map[string]string{}),
			want: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "test-sdk-key", cfg.SDK.Key)
				assert.Equal(t, "https://sdk.hackle.io", cfg.SDK.URL)
				assert.Equal(t, "https://event.hackle.io", cfg.SDK.EventsURL)
				assert.Equal(t, 10*time.Second, cfg.SDK.PollingInterval)
				assert.Equal(t, 1000, cfg.SDK.VersionCacheSize)
				assert.Empty(t, cfg.SDK.WorkspaceFile)
			},
		},
		{
			name: "Should accept a YAML workspace file",
			envVars: mergeEnvVars(map[string]string{
				"HEIMDALL_SDK_WORKSPACE_FILE": "/etc/heimdall/workspace.yaml",
			}),
			want: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/etc/heimdall/workspace.yaml", cfg.SDK.WorkspaceFile)
			},
		},
		{
			name: "Should fail on an unsupported workspace file extension",
			envVars: mergeEnvVars(map[string]string{
				"HEIMDALL_SDK_WORKSPACE_FILE": "/etc/heimdall/workspace.toml",
			}),
			wantErr: true,
		},
		{
			name: "Should fail on an SDK key with whitespace",
			envVars: mergeEnvVars(map[string]string{
				"HEIMDALL_SDK_KEY": " key",
			}),
			wantErr: true,
		},
		{
			name: "Should fail on a non-HTTP events URL",
			envVars: mergeEnvVars(map[string]string{
				"HEIMDALL_SDK_EVENTS_URL": "ftp://event.example.com",
			}),
			wantErr: true,
		},
		{
			name: "Should fail on a polling interval under one second",
			envVars: mergeEnvVars(map[string]string{
				"HEIMDALL_SDK_POLLING_INTERVAL": "500ms",
			}),
			wantErr: true,
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
			if tt.want != nil {
				tt.want(t, cfg)
			}
		})
	}
}

func TestEventsConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		want    func(t *testing.T, cfg *Config)
		wantErr bool
	}{
		{
			name:    "Should verify event defaults",
			envVars: mergeEnvVars(map[string]string{}),
			want: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 10000, cfg.Events.QueueCapacity)
				assert.Equal(t, 100, cfg.Events.BatchSize)
				assert.Equal(t, 10*time.Second, cfg.Events.FlushInterval)
				assert.Equal(t, 2, cfg.Events.DispatchWorkers)
			},
		},
		{
			name: "Should fail when the batch is larger than the queue",
			envVars: mergeEnvVars(map[string]string{
				"HEIMDALL_EVENTS_QUEUE_CAPACITY": "10",
				"HEIMDALL_EVENTS_BATCH_SIZE":     "11",
			}),
			wantErr: true,
		},
		{
			name: "Should fail with zero dispatch workers",
			envVars: mergeEnvVars(map[string]string{
				"HEIMDALL_EVENTS_DISPATCH_WORKERS": "0",
			}),
			wantErr: true,
		},
		{
			name: "Should fail with a flush interval under 100ms",
			envVars: mergeEnvVars(map[string]string{
				"HEIMDALL_EVENTS_FLUSH_INTERVAL": "10ms",
			}),
			wantErr: true,
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
			if tt.want != nil {
				tt.want(t, cfg)
			}
		})
	}
}
