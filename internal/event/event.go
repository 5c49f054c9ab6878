// Package event turns evaluations and tracked events into user events and
// ships them in batches: a Factory builds them, a Processor queues and
// batches them, and Dispatchers deliver each batch to one or more sinks.
package event

import (
	"fmt"

	"github.com/rafaeljc/heimdall-sdk/internal/model"
)

// Kind tells the three user event shapes apart.
type Kind uint8

const (
	KindExposure Kind = iota + 1
	KindTrack
	KindRemoteConfig
)

func (k Kind) String() string {
	switch k {
	case KindExposure:
		return "EXPOSURE"
	case KindTrack:
		return "TRACK"
	case KindRemoteConfig:
		return "REMOTE_CONFIG"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// UserEvent is an analytics record produced by a decision or a track call.
type UserEvent interface {
	Kind() Kind
	Header() Common
}

// Common holds the fields every user event carries.
type Common struct {
	InsertID string
	// Timestamp is in Unix milliseconds.
	Timestamp int64
	User      model.User
}

// Exposure records that a user was shown a variation.
type Exposure struct {
	Common
	Experiment   *model.Experiment
	VariationID  *int64
	VariationKey string
	Reason       model.DecisionReason
	Properties   map[string]any
}

func (e *Exposure) Kind() Kind     { return KindExposure }
func (e *Exposure) Header() Common { return e.Common }

// Track records a custom event.
type Track struct {
	Common
	EventType model.EventType
	Event     model.Event
}

func (e *Track) Kind() Kind     { return KindTrack }
func (e *Track) Header() Common { return e.Common }

// RemoteConfig records that a user received a parameter value.
type RemoteConfig struct {
	Common
	Parameter  *model.RemoteConfigParameter
	ValueID    *int64
	Reason     model.DecisionReason
	Properties map[string]any
}

func (e *RemoteConfig) Kind() Kind     { return KindRemoteConfig }
func (e *RemoteConfig) Header() Common { return e.Common }
