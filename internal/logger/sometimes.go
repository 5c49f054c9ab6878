package logger

import (
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// Sometimes logs at most once per interval. The first call always logs.
// It is safe for concurrent use.
type Sometimes struct {
	logger *slog.Logger
	limit  rate.Sometimes
}

// NewSometimes creates a rate-limited view over logger.
func NewSometimes(logger *slog.Logger, interval time.Duration) *Sometimes {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sometimes{
		logger: logger,
		limit:  rate.Sometimes{First: 1, Interval: interval},
	}
}

// Warn logs msg at WARN level unless a message was logged within the interval.
func (s *Sometimes) Warn(msg string, args ...any) {
	s.limit.Do(func() { s.logger.Warn(msg, args...) })
}
