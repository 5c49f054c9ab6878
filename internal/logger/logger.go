// Package logger builds the slog logger shared by the relay and the SDK
// components it hosts: JSON or text output, a level from config, and
// redaction of credentials.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/rafaeljc/heimdall-sdk/internal/config"
)

const redacted = "[REDACTED]"

// Credentials are matched by exact key, anything ending in one of the
// suffixes is redacted too (db_password, client_secret).
var (
	secretKeys     = map[string]struct{}{"sdk_key": {}, "api_key": {}}
	secretSuffixes = []string{"password", "secret", "token"}
)

// New returns a logger writing to stdout.
func New(cfg *config.AppConfig) *slog.Logger {
	return NewWithWriter(cfg, os.Stdout)
}

// NewWithWriter returns a logger writing to w. Every record carries the
// service name, version and environment.
func NewWithWriter(cfg *config.AppConfig, w io.Writer) *slog.Logger {
	if cfg == nil {
		panic("logger: config cannot be nil")
	}

	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
		// Source locations are too costly for production volume.
		AddSource:   cfg.Environment != config.EnvironmentProduction,
		ReplaceAttr: redact,
	}

	return slog.New(newHandler(cfg.LogFormat, w, opts)).With(
		slog.String("service", cfg.Name),
		slog.String("version", cfg.Version),
		slog.String("env", cfg.Environment),
	)
}

func newHandler(format string, w io.Writer, opts *slog.HandlerOptions) slog.Handler {
	if format == "text" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

func redact(_ []string, a slog.Attr) slog.Attr {
	key := strings.ToLower(a.Key)
	if _, ok := secretKeys[key]; ok {
		return slog.String(a.Key, redacted)
	}
	for _, suffix := range secretSuffixes {
		if strings.HasSuffix(key, suffix) {
			return slog.String(a.Key, redacted)
		}
	}
	return a
}

// parseLevel accepts any casing of debug, info, warn or error and falls back
// to info.
func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
