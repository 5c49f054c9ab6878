package model

// Experiment is an A/B test or a feature flag definition.
// Feature flags share the shape; only Type differs.
type Experiment struct {
	ID               int64
	Key              int64
	Name             string
	Type             ExperimentType
	IdentifierType   string
	Status           ExperimentStatus
	Version          int
	ExecutionVersion int
	Variations       []Variation

	// UserOverrides maps an identifier value to a forced variation id.
	UserOverrides    map[string]int64
	SegmentOverrides []TargetRule
	TargetAudiences  []Target
	TargetRules      []TargetRule
	DefaultRule      Action

	ContainerID       *int64
	WinnerVariationID *int64
}

// VariationByID returns the variation with the given id, or nil.
func (e *Experiment) VariationByID(id int64) *Variation {
	for i := range e.Variations {
		if e.Variations[i].ID == id {
			return &e.Variations[i]
		}
	}
	return nil
}

// VariationByKey returns the variation with the given key, or nil.
func (e *Experiment) VariationByKey(key string) *Variation {
	for i := range e.Variations {
		if e.Variations[i].Key == key {
			return &e.Variations[i]
		}
	}
	return nil
}

// WinnerVariation returns the declared winner, or nil when none is set or it is unknown.
func (e *Experiment) WinnerVariation() *Variation {
	if e.WinnerVariationID == nil {
		return nil
	}
	return e.VariationByID(*e.WinnerVariationID)
}

// Variation is one possible outcome of an experiment.
type Variation struct {
	ID                       int64
	Key                      string
	Dropped                  bool
	ParameterConfigurationID *int64
}

// Action decides a variation either directly or by bucketing.
type Action struct {
	Type        ActionType
	VariationID *int64
	BucketID    *int64
}

// TargetRule pairs a target with the action applied when it matches.
type TargetRule struct {
	Target Target
	Action Action
}

// Target is a conjunction of conditions.
type Target struct {
	Conditions []Condition
}

// Condition is a single boolean rule over a key.
type Condition struct {
	Key   TargetKey
	Match TargetMatch
}

// TargetKey names the subject of a condition.
type TargetKey struct {
	Type TargetKeyType
	Name string
}

// TargetMatch describes how the subject is compared against the candidate values.
type TargetMatch struct {
	Type      MatchType
	Operator  Operator
	ValueType ValueType
	Values    []any
}

// Segment is a reusable OR of targets.
type Segment struct {
	ID      int64
	Key     string
	Type    SegmentType
	Targets []Target
}

// EventType is a trackable event definition.
type EventType struct {
	ID  int64
	Key string
}

// ParameterConfiguration is the set of parameters attached to a variation.
type ParameterConfiguration struct {
	ID         int64
	Parameters map[string]any
}
