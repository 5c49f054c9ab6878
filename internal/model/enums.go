// Package model defines the immutable entities of a workspace snapshot and
// the closed set of type tags used to describe them.
//
// Every tag is a small integer type with an explicit wire table. Parsing an
// unknown wire value returns ErrUnknownValue so the decoder can skip the
// owning entity instead of carrying an "unknown" placeholder around.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownValue is returned when a wire value does not map to any known tag.
var ErrUnknownValue = errors.New("unknown wire value")

// parseEnum looks the upper-cased wire value up in table.
func parseEnum[T ~uint8](kind string, table map[string]T, s string) (T, error) {
	if v, ok := table[strings.ToUpper(s)]; ok {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("%w: %s %q", ErrUnknownValue, kind, s)
}

// -----------------------------------------------------------------------------
// ExperimentType
// -----------------------------------------------------------------------------

// ExperimentType distinguishes A/B tests from feature flags.
type ExperimentType uint8

const (
	ExperimentTypeABTest ExperimentType = iota + 1
	ExperimentTypeFeatureFlag
)

var experimentTypeWire = map[string]ExperimentType{
	"AB_TEST":      ExperimentTypeABTest,
	"FEATURE_FLAG": ExperimentTypeFeatureFlag,
}

// ParseExperimentType maps a wire name to an ExperimentType.
func ParseExperimentType(s string) (ExperimentType, error) {
	return parseEnum("experiment type", experimentTypeWire, s)
}

func (t ExperimentType) String() string {
	switch t {
	case ExperimentTypeABTest:
		return "AB_TEST"
	case ExperimentTypeFeatureFlag:
		return "FEATURE_FLAG"
	default:
		return fmt.Sprintf("ExperimentType(%d)", uint8(t))
	}
}

// -----------------------------------------------------------------------------
// ExperimentStatus
// -----------------------------------------------------------------------------

// ExperimentStatus is the execution state of an experiment.
type ExperimentStatus uint8

const (
	ExperimentStatusDraft ExperimentStatus = iota + 1
	ExperimentStatusRunning
	ExperimentStatusPaused
	ExperimentStatusCompleted
)

// The server still emits the historical names READY and STOPPED for the
// draft and completed states, so the table is kept explicit.
var experimentStatusWire = map[string]ExperimentStatus{
	"READY":   ExperimentStatusDraft,
	"RUNNING": ExperimentStatusRunning,
	"PAUSED":  ExperimentStatusPaused,
	"STOPPED": ExperimentStatusCompleted,
}

// ParseExperimentStatus maps a wire name (READY, RUNNING, PAUSED, STOPPED) to a status.
func ParseExperimentStatus(s string) (ExperimentStatus, error) {
	return parseEnum("experiment status", experimentStatusWire, s)
}

func (s ExperimentStatus) String() string {
	switch s {
	case ExperimentStatusDraft:
		return "DRAFT"
	case ExperimentStatusRunning:
		return "RUNNING"
	case ExperimentStatusPaused:
		return "PAUSED"
	case ExperimentStatusCompleted:
		return "COMPLETED"
	default:
		return fmt.Sprintf("ExperimentStatus(%d)", uint8(s))
	}
}

// -----------------------------------------------------------------------------
// TargetKeyType
// -----------------------------------------------------------------------------

// TargetKeyType selects what a condition inspects.
type TargetKeyType uint8

const (
	TargetKeyUserID TargetKeyType = iota + 1
	TargetKeyUserProperty
	TargetKeyHackleProperty
	TargetKeySegment
	TargetKeyABTest
	TargetKeyFeatureFlag
)

var targetKeyTypeWire = map[string]TargetKeyType{
	"USER_ID":         TargetKeyUserID,
	"USER_PROPERTY":   TargetKeyUserProperty,
	"HACKLE_PROPERTY": TargetKeyHackleProperty,
	"SEGMENT":         TargetKeySegment,
	"AB_TEST":         TargetKeyABTest,
	"FEATURE_FLAG":    TargetKeyFeatureFlag,
}

// ParseTargetKeyType maps a wire name to a TargetKeyType.
func ParseTargetKeyType(s string) (TargetKeyType, error) {
	return parseEnum("target key type", targetKeyTypeWire, s)
}

func (t TargetKeyType) String() string {
	for name, v := range targetKeyTypeWire {
		if v == t {
			return name
		}
	}
	return fmt.Sprintf("TargetKeyType(%d)", uint8(t))
}

// -----------------------------------------------------------------------------
// MatchType
// -----------------------------------------------------------------------------

// MatchType is the polarity applied to the result of a condition.
type MatchType uint8

const (
	MatchTypeMatch MatchType = iota + 1
	MatchTypeNotMatch
)

var matchTypeWire = map[string]MatchType{
	"MATCH":     MatchTypeMatch,
	"NOT_MATCH": MatchTypeNotMatch,
}

// ParseMatchType maps a wire name to a MatchType.
func ParseMatchType(s string) (MatchType, error) {
	return parseEnum("match type", matchTypeWire, s)
}

// String returns the display label. NOT_MATCH has always been labelled
// "NOT MATCH"; lookups never go through the label.
func (m MatchType) String() string {
	switch m {
	case MatchTypeMatch:
		return "MATCH"
	case MatchTypeNotMatch:
		return "NOT MATCH"
	default:
		return fmt.Sprintf("MatchType(%d)", uint8(m))
	}
}

// Apply turns a raw match result into the final condition result.
func (m MatchType) Apply(matches bool) bool {
	if m == MatchTypeNotMatch {
		return !matches
	}
	return matches
}

// -----------------------------------------------------------------------------
// Operator
// -----------------------------------------------------------------------------

// Operator is the comparison a condition applies between user and candidate values.
type Operator uint8

const (
	OperatorIn Operator = iota + 1
	OperatorContains
	OperatorStartsWith
	OperatorEndsWith
	OperatorGT
	OperatorGTE
	OperatorLT
	OperatorLTE
)

var operatorWire = map[string]Operator{
	"IN":          OperatorIn,
	"CONTAINS":    OperatorContains,
	"STARTS_WITH": OperatorStartsWith,
	"ENDS_WITH":   OperatorEndsWith,
	"GT":          OperatorGT,
	"GTE":         OperatorGTE,
	"LT":          OperatorLT,
	"LTE":         OperatorLTE,
}

// ParseOperator maps a wire name to an Operator.
func ParseOperator(s string) (Operator, error) {
	return parseEnum("operator", operatorWire, s)
}

func (o Operator) String() string {
	for name, v := range operatorWire {
		if v == o {
			return name
		}
	}
	return fmt.Sprintf("Operator(%d)", uint8(o))
}

// -----------------------------------------------------------------------------
// ValueType
// -----------------------------------------------------------------------------

// ValueType describes how condition values and remote-config values are typed.
type ValueType uint8

const (
	ValueTypeNull ValueType = iota + 1
	ValueTypeUnknown
	ValueTypeString
	ValueTypeNumber
	ValueTypeBoolean
	ValueTypeVersion
	ValueTypeJSON
)

var valueTypeWire = map[string]ValueType{
	"NULL":    ValueTypeNull,
	"UNKNOWN": ValueTypeUnknown,
	"STRING":  ValueTypeString,
	"NUMBER":  ValueTypeNumber,
	"BOOLEAN": ValueTypeBoolean,
	"VERSION": ValueTypeVersion,
	"JSON":    ValueTypeJSON,
}

// ParseValueType maps a wire name to a ValueType.
func ParseValueType(s string) (ValueType, error) {
	return parseEnum("value type", valueTypeWire, s)
}

func (t ValueType) String() string {
	for name, v := range valueTypeWire {
		if v == t {
			return name
		}
	}
	return fmt.Sprintf("ValueType(%d)", uint8(t))
}

// -----------------------------------------------------------------------------
// ActionType
// -----------------------------------------------------------------------------

// ActionType tells whether an action names a variation directly or buckets the user.
type ActionType uint8

const (
	ActionTypeVariation ActionType = iota + 1
	ActionTypeBucket
)

var actionTypeWire = map[string]ActionType{
	"VARIATION": ActionTypeVariation,
	"BUCKET":    ActionTypeBucket,
}

// ParseActionType maps a wire name to an ActionType.
func ParseActionType(s string) (ActionType, error) {
	return parseEnum("action type", actionTypeWire, s)
}

func (t ActionType) String() string {
	switch t {
	case ActionTypeVariation:
		return "VARIATION"
	case ActionTypeBucket:
		return "BUCKET"
	default:
		return fmt.Sprintf("ActionType(%d)", uint8(t))
	}
}

// -----------------------------------------------------------------------------
// SegmentType
// -----------------------------------------------------------------------------

// SegmentType is the kind of user set a segment describes.
type SegmentType uint8

const (
	SegmentTypeUserID SegmentType = iota + 1
	SegmentTypeUserProperty
)

var segmentTypeWire = map[string]SegmentType{
	"USER_ID":       SegmentTypeUserID,
	"USER_PROPERTY": SegmentTypeUserProperty,
}

// ParseSegmentType maps a wire name to a SegmentType.
func ParseSegmentType(s string) (SegmentType, error) {
	return parseEnum("segment type", segmentTypeWire, s)
}

func (t SegmentType) String() string {
	switch t {
	case SegmentTypeUserID:
		return "USER_ID"
	case SegmentTypeUserProperty:
		return "USER_PROPERTY"
	default:
		return fmt.Sprintf("SegmentType(%d)", uint8(t))
	}
}

// -----------------------------------------------------------------------------
// TargetingType
// -----------------------------------------------------------------------------

// TargetingType is the context a target is declared in. It limits which
// condition keys are meaningful there; the decoder drops the rest.
type TargetingType uint8

const (
	// TargetingIdentifier is used by segment overrides.
	TargetingIdentifier TargetingType = iota + 1
	// TargetingProperty is used by audiences, target rules and remote-config rules.
	TargetingProperty
	// TargetingSegment is used by the targets inside a segment.
	TargetingSegment
)

// Supports reports whether a condition keyed by k may appear in this targeting context.
func (t TargetingType) Supports(k TargetKeyType) bool {
	switch t {
	case TargetingIdentifier:
		return k == TargetKeySegment
	case TargetingProperty:
		switch k {
		case TargetKeySegment, TargetKeyUserProperty, TargetKeyHackleProperty, TargetKeyABTest, TargetKeyFeatureFlag:
			return true
		}
	case TargetingSegment:
		switch k {
		case TargetKeyUserID, TargetKeyUserProperty, TargetKeyHackleProperty:
			return true
		}
	}
	return false
}
