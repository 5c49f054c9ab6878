package match

import (
	"fmt"
	"strconv"

	"github.com/rafaeljc/heimdall-sdk/internal/evaluation"
	"github.com/rafaeljc/heimdall-sdk/internal/model"
)

// ConditionMatcher evaluates one condition of a target.
type ConditionMatcher interface {
	Matches(req evaluation.Request, ectx *evaluation.Context, c model.Condition) (bool, error)
}

// UserConditionMatcher compares a user identifier or property.
// An absent subject never matches, whatever the polarity.
type UserConditionMatcher struct {
	values *ValueOperatorMatcher
}

func NewUserConditionMatcher(values *ValueOperatorMatcher) *UserConditionMatcher {
	if values == nil {
		panic("match: value operator matcher cannot be nil")
	}
	return &UserConditionMatcher{values: values}
}

func (m *UserConditionMatcher) Matches(req evaluation.Request, _ *evaluation.Context, c model.Condition) (bool, error) {
	value, ok, err := userValue(req.User(), c.Key)
	if err != nil || !ok {
		return false, err
	}
	return m.values.Matches(value, c.Match)
}

func userValue(u model.User, key model.TargetKey) (any, bool, error) {
	switch key.Type {
	case model.TargetKeyUserID:
		v, ok := u.Identifiers[key.Name]
		return v, ok, nil
	case model.TargetKeyUserProperty:
		v, ok := u.Properties[key.Name]
		return v, ok && v != nil, nil
	case model.TargetKeyHackleProperty:
		// Server-side users carry no platform properties.
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("%w: %s is not a user key", evaluation.ErrInvariant, key.Type)
	}
}

// SegmentConditionMatcher matches when the user belongs to any listed segment.
type SegmentConditionMatcher struct {
	user ConditionMatcher
}

func NewSegmentConditionMatcher(user ConditionMatcher) *SegmentConditionMatcher {
	if user == nil {
		panic("match: user condition matcher cannot be nil")
	}
	return &SegmentConditionMatcher{user: user}
}

func (m *SegmentConditionMatcher) Matches(req evaluation.Request, ectx *evaluation.Context, c model.Condition) (bool, error) {
	if c.Key.Type != model.TargetKeySegment {
		return false, fmt.Errorf("%w: %s is not a segment key", evaluation.ErrInvariant, c.Key.Type)
	}

	matched := false
	for _, v := range c.Match.Values {
		ok, err := m.segmentMatches(req, ectx, v)
		if err != nil {
			return false, err
		}
		if ok {
			matched = true
			break
		}
	}
	return c.Match.Type.Apply(matched), nil
}

func (m *SegmentConditionMatcher) segmentMatches(req evaluation.Request, ectx *evaluation.Context, value any) (bool, error) {
	key, ok := value.(string)
	if !ok {
		return false, fmt.Errorf("%w: segment key %v", evaluation.ErrIntegrity, value)
	}
	segment := req.Workspace().Segment(key)
	if segment == nil {
		return false, fmt.Errorf("%w: segment %q", evaluation.ErrIntegrity, key)
	}

	// A segment is an OR of targets; each target is an AND of user conditions.
	for _, target := range segment.Targets {
		all := true
		for _, cond := range target.Conditions {
			ok, err := m.user.Matches(req, ectx, cond)
			if err != nil {
				return false, err
			}
			if !ok {
				all = false
				break
			}
		}
		if all {
			return true, nil
		}
	}
	return false, nil
}

// abTestDecidedReasons are the outcomes in which the user actually took part.
var abTestDecidedReasons = map[model.DecisionReason]bool{
	model.ReasonOverridden:                  true,
	model.ReasonTrafficAllocated:            true,
	model.ReasonTrafficAllocatedByTargeting: true,
	model.ReasonExperimentCompleted:         true,
}

// ExperimentConditionMatcher matches on the outcome of another A/B test or
// feature flag, evaluating it through the shared evaluator at most once per session.
type ExperimentConditionMatcher struct {
	evaluator evaluation.Evaluator
	values    *ValueOperatorMatcher
}

func NewExperimentConditionMatcher(evaluator evaluation.Evaluator, values *ValueOperatorMatcher) *ExperimentConditionMatcher {
	if evaluator == nil {
		panic("match: evaluator cannot be nil")
	}
	if values == nil {
		panic("match: value operator matcher cannot be nil")
	}
	return &ExperimentConditionMatcher{evaluator: evaluator, values: values}
}

func (m *ExperimentConditionMatcher) Matches(req evaluation.Request, ectx *evaluation.Context, c model.Condition) (bool, error) {
	key, err := strconv.ParseInt(c.Key.Name, 10, 64)
	if err != nil {
		return false, fmt.Errorf("%w: invalid experiment key %s %q", evaluation.ErrIntegrity, c.Key.Type, c.Key.Name)
	}

	var exp *model.Experiment
	switch c.Key.Type {
	case model.TargetKeyABTest:
		exp = req.Workspace().Experiment(key)
	case model.TargetKeyFeatureFlag:
		exp = req.Workspace().FeatureFlag(key)
	default:
		return false, fmt.Errorf("%w: %s is not an experiment key", evaluation.ErrInvariant, c.Key.Type)
	}
	if exp == nil {
		return false, nil
	}

	result := ectx.ExperimentEvaluation(exp.ID)
	if result == nil {
		if result, err = m.evaluate(req, ectx, exp, c.Key.Type); err != nil {
			return false, err
		}
	}

	if c.Key.Type == model.TargetKeyFeatureFlag {
		on := result.VariationKey != evaluation.NestedDefaultVariationKey
		return m.values.Matches(on, c.Match)
	}
	if !abTestDecidedReasons[result.Reason] {
		return false, nil
	}
	return m.values.Matches(result.VariationKey, c.Match)
}

func (m *ExperimentConditionMatcher) evaluate(req evaluation.Request, ectx *evaluation.Context, exp *model.Experiment, keyType model.TargetKeyType) (*evaluation.ExperimentEvaluation, error) {
	nested := evaluation.NestedExperimentRequest(req, exp)
	e, err := m.evaluator.Evaluate(nested, ectx)
	if err != nil {
		return nil, err
	}
	result, ok := e.(*evaluation.ExperimentEvaluation)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected evaluation %T", evaluation.ErrInvariant, e)
	}

	// Mark allocations that only happened because another rule asked.
	if keyType == model.TargetKeyABTest && result.Reason == model.ReasonTrafficAllocated {
		result = result.With(model.ReasonTrafficAllocatedByTargeting)
	}
	ectx.Add(result)
	return result, nil
}
