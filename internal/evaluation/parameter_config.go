package evaluation

import (
	"maps"

	"github.com/rafaeljc/heimdall-sdk/internal/model"
)

// ParameterConfig is a read-only, typed view over a variation's parameters.
// The zero value is an empty config.
type ParameterConfig struct {
	params map[string]any
}

// NewParameterConfig wraps params. The map must not be mutated afterwards.
func NewParameterConfig(params map[string]any) ParameterConfig {
	return ParameterConfig{params: params}
}

// Parameters returns a copy of the raw parameters.
func (c ParameterConfig) Parameters() map[string]any {
	return maps.Clone(c.params)
}

// Get returns the stored value when it has the same kind as def
// (string, number or bool), otherwise def. A nil def returns the raw value.
func (c ParameterConfig) Get(key string, def any) any {
	v, ok := c.params[key]
	if !ok || v == nil {
		return def
	}
	if def == nil {
		return v
	}

	switch {
	case model.IsString(def):
		if model.IsString(v) {
			return v
		}
	case model.IsNumber(def):
		if model.IsNumber(v) {
			return v
		}
	case model.IsBool(def):
		if model.IsBool(v) {
			return v
		}
	}
	return def
}

// GetString returns the string parameter key, or def.
func (c ParameterConfig) GetString(key, def string) string {
	if s, ok := c.params[key].(string); ok {
		return s
	}
	return def
}

// GetNumber returns the numeric parameter key as float64, or def.
func (c ParameterConfig) GetNumber(key string, def float64) float64 {
	if n, ok := model.AsNumber(c.params[key]); ok {
		return n
	}
	return def
}

// GetBool returns the boolean parameter key, or def.
func (c ParameterConfig) GetBool(key string, def bool) bool {
	if b, ok := c.params[key].(bool); ok {
		return b
	}
	return def
}
