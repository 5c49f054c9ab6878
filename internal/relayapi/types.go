package relayapi

import (
	"fmt"
	"strings"

	"github.com/rafaeljc/heimdall-sdk/sdk"
)

// Remote config value types accepted in RemoteConfigRequest.Type.
const (
	valueTypeString  = "STRING"
	valueTypeNumber  = "NUMBER"
	valueTypeBoolean = "BOOLEAN"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// UserRequest is the wire form of sdk.User.
type UserRequest struct {
	ID          string            `json:"id,omitempty"`
	UserID      string            `json:"userId,omitempty"`
	DeviceID    string            `json:"deviceId,omitempty"`
	Identifiers map[string]string `json:"identifiers,omitempty"`
	Properties  map[string]any    `json:"properties,omitempty"`
}

func (u UserRequest) toSDK() sdk.User {
	return sdk.User{
		ID:          u.ID,
		UserID:      u.UserID,
		DeviceID:    u.DeviceID,
		Identifiers: u.Identifiers,
		Properties:  u.Properties,
	}
}

// ExperimentRequest is the body of POST /api/v1/experiments/{key}.
type ExperimentRequest struct {
	User             UserRequest `json:"user"`
	DefaultVariation string      `json:"defaultVariation"`
}

// Sanitize fills in the default variation.
func (r *ExperimentRequest) Sanitize() {
	r.DefaultVariation = strings.TrimSpace(r.DefaultVariation)
	if r.DefaultVariation == "" {
		r.DefaultVariation = "A"
	}
}

// ExperimentResponse is the result of an experiment decision.
type ExperimentResponse struct {
	Variation string         `json:"variation"`
	Reason    string         `json:"reason"`
	Config    map[string]any `json:"config"`
}

// FeatureFlagRequest is the body of POST /api/v1/feature-flags/{key}.
type FeatureFlagRequest struct {
	User UserRequest `json:"user"`
}

// FeatureFlagResponse is the result of a feature flag decision.
type FeatureFlagResponse struct {
	IsOn   bool           `json:"isOn"`
	Reason string         `json:"reason"`
	Config map[string]any `json:"config"`
}

// RemoteConfigRequest is the body of POST /api/v1/remote-configs/{key}.
// Type is optional; when empty the type of Default decides, and a null
// Default accepts any value.
type RemoteConfigRequest struct {
	User    UserRequest `json:"user"`
	Type    string      `json:"type"`
	Default any         `json:"default"`
}

// Sanitize normalises Type.
func (r *RemoteConfigRequest) Sanitize() {
	r.Type = strings.ToUpper(strings.TrimSpace(r.Type))
}

// Validate checks that Default agrees with Type and fills a missing default
// with the zero value of Type.
func (r *RemoteConfigRequest) Validate() *ErrorResponse {
	switch r.Type {
	case "":
		return nil
	case valueTypeString:
		return r.checkDefault("", func(v any) bool { _, ok := v.(string); return ok })
	case valueTypeNumber:
		return r.checkDefault(float64(0), func(v any) bool { _, ok := v.(float64); return ok })
	case valueTypeBoolean:
		return r.checkDefault(false, func(v any) bool { _, ok := v.(bool); return ok })
	default:
		return &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: fmt.Sprintf("Unsupported type %q, expected STRING, NUMBER or BOOLEAN", r.Type),
		}
	}
}

func (r *RemoteConfigRequest) checkDefault(zero any, ok func(any) bool) *ErrorResponse {
	if r.Default == nil {
		r.Default = zero
		return nil
	}
	if !ok(r.Default) {
		return &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: fmt.Sprintf("Default value does not match type %s", r.Type),
		}
	}
	return nil
}

// RemoteConfigResponse is the result of a remote config decision.
type RemoteConfigResponse struct {
	Value  any    `json:"value"`
	Reason string `json:"reason"`
}

// EventRequest is the wire form of sdk.Event.
type EventRequest struct {
	Key        string         `json:"key"`
	Value      *float64       `json:"value,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// TrackRequest is the body of POST /api/v1/events.
type TrackRequest struct {
	User  UserRequest  `json:"user"`
	Event EventRequest `json:"event"`
}

// Sanitize trims the event key.
func (r *TrackRequest) Sanitize() {
	r.Event.Key = strings.TrimSpace(r.Event.Key)
}

// Validate rejects requests the SDK would silently drop.
func (r *TrackRequest) Validate() *ErrorResponse {
	if r.Event.Key == "" {
		return &ErrorResponse{Code: "ERR_INVALID_INPUT", Message: "Event key is required"}
	}
	u := r.User
	if u.ID == "" && u.UserID == "" && u.DeviceID == "" && len(u.Identifiers) == 0 {
		return &ErrorResponse{Code: "ERR_INVALID_INPUT", Message: "At least one user identifier is required"}
	}
	return nil
}
