// Package remoteconfig evaluates remote-config parameters: the first target
// rule that matches and buckets the user decides the value, otherwise the
// parameter default applies.
package remoteconfig

import (
	"fmt"

	"github.com/rafaeljc/heimdall-sdk/internal/bucketer"
	"github.com/rafaeljc/heimdall-sdk/internal/evaluation"
	"github.com/rafaeljc/heimdall-sdk/internal/model"
)

// TargetMatcher decides whether a user satisfies a target.
type TargetMatcher interface {
	Matches(req evaluation.Request, ectx *evaluation.Context, target model.Target) (bool, error)
}

// RuleMatcher matches a rule when its target matches and the user falls into
// an allocated slot of the rule bucket.
type RuleMatcher struct {
	matcher TargetMatcher
}

func NewRuleMatcher(matcher TargetMatcher) *RuleMatcher {
	if matcher == nil {
		panic("remoteconfig: target matcher cannot be nil")
	}
	return &RuleMatcher{matcher: matcher}
}

// Matches reports whether rule applies to the request.
func (m *RuleMatcher) Matches(req *evaluation.RemoteConfigRequest, ectx *evaluation.Context, rule model.RemoteConfigTargetRule) (bool, error) {
	ok, err := m.matcher.Matches(req, ectx, rule.Target)
	if err != nil || !ok {
		return false, err
	}

	identifier, ok := req.Identifier()
	if !ok {
		return false, nil
	}

	bucket := req.Workspace().Bucket(rule.BucketID)
	if bucket == nil {
		return false, fmt.Errorf("%w: bucket [%d]", evaluation.ErrIntegrity, rule.BucketID)
	}
	return bucketer.Bucketing(bucket, identifier) != nil, nil
}

// Determiner picks the first matching rule.
type Determiner struct {
	rules *RuleMatcher
}

func NewDeterminer(rules *RuleMatcher) *Determiner {
	if rules == nil {
		panic("remoteconfig: rule matcher cannot be nil")
	}
	return &Determiner{rules: rules}
}

// Determine returns the first matching rule, or nil.
func (d *Determiner) Determine(req *evaluation.RemoteConfigRequest, ectx *evaluation.Context) (*model.RemoteConfigTargetRule, error) {
	rules := req.Parameter.TargetRules
	for i := range rules {
		ok, err := d.rules.Matches(req, ectx, rules[i])
		if err != nil {
			return nil, err
		}
		if ok {
			return &rules[i], nil
		}
	}
	return nil, nil
}

// Evaluator evaluates remote-config requests.
type Evaluator struct {
	determiner *Determiner
}

// NewEvaluator wires the rule determiner over matcher.
func NewEvaluator(matcher TargetMatcher) *Evaluator {
	return &Evaluator{determiner: NewDeterminer(NewRuleMatcher(matcher))}
}

// Evaluate implements evaluation.Evaluator.
func (e *Evaluator) Evaluate(req evaluation.Request, ectx *evaluation.Context) (evaluation.Evaluation, error) {
	r, ok := req.(*evaluation.RemoteConfigRequest)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected request %T", evaluation.ErrInvariant, req)
	}
	return evaluation.Guard(req, ectx, func() (evaluation.Evaluation, error) {
		result, err := e.EvaluateParameter(r, ectx)
		if err != nil {
			return nil, err
		}
		return result, nil
	})
}

// EvaluateParameter resolves the value without the cycle guard.
func (e *Evaluator) EvaluateParameter(req *evaluation.RemoteConfigRequest, ectx *evaluation.Context) (*evaluation.RemoteConfigEvaluation, error) {
	props := map[string]any{
		"requestValueType":    req.RequiredType.String(),
		"requestDefaultValue": req.DefaultValue,
	}

	if _, ok := req.Identifier(); !ok {
		return evaluation.DefaultRemoteConfigEvaluation(req, ectx, model.ReasonIdentifierNotFound, props), nil
	}

	rule, err := e.determiner.Determine(req, ectx)
	if err != nil {
		return nil, fmt.Errorf("remote config %q: %w", req.Parameter.Key, err)
	}
	if rule != nil {
		props["targetRuleKey"] = rule.Key
		props["targetRuleName"] = rule.Name
		return decide(req, ectx, rule.Value, model.ReasonTargetRuleMatch, props), nil
	}
	return decide(req, ectx, req.Parameter.DefaultValue, model.ReasonDefaultRule, props), nil
}

func decide(req *evaluation.RemoteConfigRequest, ectx *evaluation.Context, v model.RemoteConfigValue, reason model.DecisionReason, props map[string]any) *evaluation.RemoteConfigEvaluation {
	if !Conforms(req.RequiredType, v.RawValue) {
		return evaluation.DefaultRemoteConfigEvaluation(req, ectx, model.ReasonTypeMismatch, props)
	}
	id := v.ID
	return evaluation.NewRemoteConfigEvaluation(req, ectx, &id, v.RawValue, reason, props)
}

// Conforms reports whether value may be returned to a caller asking for t.
// NULL accepts anything; types other than STRING, NUMBER and BOOLEAN accept nothing.
func Conforms(t model.ValueType, value any) bool {
	switch t {
	case model.ValueTypeNull:
		return true
	case model.ValueTypeString:
		return model.IsString(value)
	case model.ValueTypeNumber:
		return model.IsNumber(value)
	case model.ValueTypeBoolean:
		return model.IsBool(value)
	default:
		return false
	}
}
