package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSometimes_Warn(t *testing.T) {
	t.Parallel()

	// Arrange
	var buf bytes.Buffer
	s := NewSometimes(slog.New(slog.NewTextHandler(&buf, nil)), time.Hour)

	// Act
	for i := 0; i < 10; i++ {
		s.Warn("queue full", slog.Int("attempt", i))
	}

	// Assert
	assert.Equal(t, 1, strings.Count(buf.String(), "queue full"), "only the first warning should pass within the interval")
	assert.Contains(t, buf.String(), "level=WARN")
}
