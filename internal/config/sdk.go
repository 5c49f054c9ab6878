package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// SDKConfig configures the embedded SDK client: where the workspace comes
// from and where events go.
type SDKConfig struct {
	Key string `envconfig:"KEY"`

	URL       string `envconfig:"URL" default:"https://sdk.hackle.io"`
	EventsURL string `envconfig:"EVENTS_URL" default:"https://event.hackle.io"`

	PollingInterval time.Duration `envconfig:"POLLING_INTERVAL" default:"10s" validate:"min=1s"`
	HTTPTimeout     time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s" validate:"gt=0"`

	// WorkspaceFile replaces remote polling with a local, hot-reloaded snapshot.
	WorkspaceFile string `envconfig:"WORKSPACE_FILE"`

	VersionCacheSize int `envconfig:"VERSION_CACHE_SIZE" default:"1000" validate:"min=0"`
}

// Validate checks the SDK key, the endpoints and the workspace file extension.
func (c *SDKConfig) Validate() error {
	if err := validateNoWhitespace(c.Key, "sdk key"); err != nil {
		return err
	}

	for name, raw := range map[string]string{"sdk": c.URL, "events": c.EventsURL} {
		if _, err := parseURL(raw, "http", "https"); err != nil {
			return fmt.Errorf("invalid %s URL: %w", name, err)
		}
	}

	if c.WorkspaceFile != "" {
		switch strings.ToLower(filepath.Ext(c.WorkspaceFile)) {
		case ".json", ".yaml", ".yml":
		default:
			return fmt.Errorf("workspace file must be .json, .yaml or .yml, got %q", c.WorkspaceFile)
		}
	}

	return nil
}
