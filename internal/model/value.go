package model

import (
	"encoding/json"
	"reflect"
	"strconv"
)

// AsNumber reports v as a float64 when it holds any Go numeric kind.
// Decoders produce float64 (JSON) or int (YAML), callers produce anything.
func AsNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case int16:
		return float64(n), true
	case int8:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint8:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// IsNumber reports whether v holds a numeric value.
func IsNumber(v any) bool {
	_, ok := AsNumber(v)
	return ok
}

// IsBool reports whether v holds a boolean.
func IsBool(v any) bool {
	_, ok := v.(bool)
	return ok
}

// IsString reports whether v holds a string.
func IsString(v any) bool {
	_, ok := v.(string)
	return ok
}

// FormatNumber renders f without a trailing ".0" for integral values.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Elements returns the elements of v when v is a slice or an array.
// Any other value, []byte included, is not a list.
func Elements(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []byte, nil:
		return nil, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
