package config

import (
	"fmt"
	"strings"
	"time"
)

// ObservabilityConfig configures the admin server exposing probes and metrics.
type ObservabilityConfig struct {
	// Enabled turns the admin server off, e.g. when the relay runs as a sidecar
	// whose host already scrapes the process.
	Enabled bool   `envconfig:"ENABLED" default:"true"`
	Port    string `envconfig:"PORT" default:"9090"`

	// Timeout bounds reads, writes and the readiness checks.
	Timeout time.Duration `envconfig:"TIMEOUT" default:"5s" validate:"min=1s"`

	LivenessPath  string `envconfig:"LIVENESS_PATH" default:"/healthz"`
	ReadinessPath string `envconfig:"READINESS_PATH" default:"/readyz"`
	MetricsPath   string `envconfig:"METRICS_PATH" default:"/metrics"`
}

// Validate checks the port and that the three paths are absolute and distinct.
func (o *ObservabilityConfig) Validate() error {
	if !o.Enabled {
		return nil
	}
	if err := validatePort(o.Port, "observability"); err != nil {
		return err
	}

	paths := []struct{ name, path string }{
		{"liveness", o.LivenessPath},
		{"readiness", o.ReadinessPath},
		{"metrics", o.MetricsPath},
	}
	seen := make(map[string]string, len(paths))
	for _, p := range paths {
		if !strings.HasPrefix(p.path, "/") {
			return fmt.Errorf("observability %s path must start with '/', got %q", p.name, p.path)
		}
		if other, ok := seen[p.path]; ok {
			return fmt.Errorf("observability %s and %s paths are both %q", other, p.name, p.path)
		}
		seen[p.path] = p.name
	}
	return nil
}
