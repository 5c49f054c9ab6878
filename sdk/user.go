package sdk

import (
	"log/slog"
	"math"
	"strings"

	"github.com/rafaeljc/heimdall-sdk/internal/model"
)

const (
	maxIdentifierTypeLength  = 128
	maxIdentifierValueLength = 512

	maxPropertiesCount     = 128
	maxPropertyKeyLength   = 128
	maxPropertyValueLength = 1024
	systemPropertyPrefix   = "$"
)

// User is the subject of a decision. At least one identifier is required.
type User struct {
	// ID is sent as the $id identifier.
	ID string
	// UserID is sent as the $userId identifier.
	UserID string
	// DeviceID is sent as the $deviceId identifier.
	DeviceID    string
	Identifiers map[string]string
	Properties  map[string]any
}

// resolveUser validates u. It reports false when no identifier survives.
func resolveUser(logger *slog.Logger, u User) (model.User, bool) {
	identifiers := make(map[string]string, len(u.Identifiers)+3)
	for t, v := range u.Identifiers {
		addIdentifier(logger, identifiers, t, v)
	}
	if u.ID != "" {
		addIdentifier(logger, identifiers, model.IdentifierID, u.ID)
	}
	if u.DeviceID != "" {
		addIdentifier(logger, identifiers, model.IdentifierDeviceID, u.DeviceID)
	}
	if u.UserID != "" {
		addIdentifier(logger, identifiers, model.IdentifierUserID, u.UserID)
	}
	if len(identifiers) == 0 {
		return model.User{}, false
	}

	return model.User{
		Identifiers: identifiers,
		Properties:  sanitizeProperties(logger, u.Properties),
	}, true
}

func addIdentifier(logger *slog.Logger, dst map[string]string, t, v string) {
	if t == "" || len(t) > maxIdentifierTypeLength || v == "" || len(v) > maxIdentifierValueLength {
		logger.Warn("invalid user identifier", slog.String("type", t), slog.String("value", v))
		return
	}
	dst[t] = v
}

// sanitizeProperties keeps at most 128 valid entries. Strings are capped at
// 1024 characters, numbers must be finite, and slices keep their string and
// number elements. System ($-prefixed) keys skip the length cap but still
// need a string, number or bool.
func sanitizeProperties(logger *slog.Logger, props map[string]any) map[string]any {
	out := make(map[string]any, min(len(props), maxPropertiesCount))
	for key, value := range props {
		if len(out) >= maxPropertiesCount {
			break
		}
		if key == "" || len(key) > maxPropertyKeyLength {
			logger.Warn("invalid property key", slog.String("key", key))
			continue
		}
		if v, ok := sanitizeValue(key, value); ok {
			out[key] = v
		}
	}
	return out
}

func sanitizeValue(key string, value any) (any, bool) {
	if value == nil {
		return nil, false
	}
	if elems, ok := model.Elements(value); ok {
		kept := make([]any, 0, len(elems))
		for _, e := range elems {
			if validElement(e) {
				kept = append(kept, e)
			}
		}
		return kept, true
	}
	if validValue(value) {
		return value, true
	}
	if strings.HasPrefix(key, systemPropertyPrefix) && validSystemValue(value) {
		return value, true
	}
	return nil, false
}

func validValue(v any) bool {
	if s, ok := v.(string); ok {
		return len([]rune(s)) <= maxPropertyValueLength
	}
	return finiteNumber(v) || model.IsBool(v)
}

func validElement(v any) bool {
	if s, ok := v.(string); ok {
		return len([]rune(s)) <= maxPropertyValueLength
	}
	return finiteNumber(v)
}

func validSystemValue(v any) bool {
	return model.IsString(v) || finiteNumber(v) || model.IsBool(v)
}

// finiteNumber rejects NaN and infinities, which have no JSON form.
func finiteNumber(v any) bool {
	f, ok := model.AsNumber(v)
	return ok && !math.IsNaN(f) && !math.IsInf(f, 0)
}

// typeOf returns the remote-config type requested by a default value.
func typeOf(v any) model.ValueType {
	switch {
	case v == nil:
		return model.ValueTypeNull
	case model.IsString(v):
		return model.ValueTypeString
	case model.IsNumber(v):
		return model.ValueTypeNumber
	case model.IsBool(v):
		return model.ValueTypeBoolean
	default:
		return model.ValueTypeUnknown
	}
}
