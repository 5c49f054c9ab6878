package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAsNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input any
		want  float64
		ok    bool
	}{
		{"float64", 1.5, 1.5, true},
		{"int from yaml", 42, 42, true},
		{"int64", int64(-3), -3, true},
		{"uint8", uint8(7), 7, true},
		{"json number", json.Number("12.25"), 12.25, true},
		{"invalid json number", json.Number("x"), 0, false},
		{"numeric string is not a number", "42", 0, false},
		{"bool", true, 0, false},
		{"nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := AsNumber(tt.input)

			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestElements(t *testing.T) {
	t.Parallel()

	t.Run("Should expand typed slices", func(t *testing.T) {
		got, ok := Elements([]string{"a", "b"})
		assert.True(t, ok)
		assert.Equal(t, []any{"a", "b"}, got)
	})

	t.Run("Should keep []any as is", func(t *testing.T) {
		in := []any{1, "x"}
		got, ok := Elements(in)
		assert.True(t, ok)
		assert.Equal(t, in, got)
	})

	t.Run("Should not treat scalars or bytes as lists", func(t *testing.T) {
		for _, v := range []any{"abc", 1, nil, []byte("raw"), map[string]any{}} {
			_, ok := Elements(v)
			assert.False(t, ok, "%v", v)
		}
	})
}

func TestFormatNumber(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "10", FormatNumber(10))
	assert.Equal(t, "1.5", FormatNumber(1.5))
	assert.Equal(t, "-0.25", FormatNumber(-0.25))
}
