package match

import (
	"fmt"

	"github.com/rafaeljc/heimdall-sdk/internal/evaluation"
	"github.com/rafaeljc/heimdall-sdk/internal/model"
)

// TargetMatcher evaluates a target as the AND of its conditions,
// dispatching each condition by key type.
type TargetMatcher struct {
	user       ConditionMatcher
	segment    ConditionMatcher
	experiment ConditionMatcher
}

// NewTargetMatcher wires the standard condition matchers.
// evaluator resolves AB_TEST and FEATURE_FLAG conditions; versions may be nil.
func NewTargetMatcher(evaluator evaluation.Evaluator, versions *VersionParser) *TargetMatcher {
	values := NewValueOperatorMatcher(versions)
	user := NewUserConditionMatcher(values)
	return &TargetMatcher{
		user:       user,
		segment:    NewSegmentConditionMatcher(user),
		experiment: NewExperimentConditionMatcher(evaluator, values),
	}
}

// Matches reports whether every condition of target holds. An empty target matches.
func (m *TargetMatcher) Matches(req evaluation.Request, ectx *evaluation.Context, target model.Target) (bool, error) {
	for _, c := range target.Conditions {
		cm, err := m.matcherFor(c.Key.Type)
		if err != nil {
			return false, err
		}
		ok, err := cm.Matches(req, ectx, c)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (m *TargetMatcher) matcherFor(t model.TargetKeyType) (ConditionMatcher, error) {
	switch t {
	case model.TargetKeyUserID, model.TargetKeyUserProperty, model.TargetKeyHackleProperty:
		return m.user, nil
	case model.TargetKeySegment:
		return m.segment, nil
	case model.TargetKeyABTest, model.TargetKeyFeatureFlag:
		return m.experiment, nil
	default:
		return nil, fmt.Errorf("%w: unsupported key type %s", evaluation.ErrInvariant, t)
	}
}
