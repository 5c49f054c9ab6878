// Package experiment evaluates A/B tests and feature flags by walking an
// ordered pipeline of steps over resolvers for actions, overrides,
// mutual-exclusion containers and targeting rules.
package experiment

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

// ActionResolver turns an Action into a variation.
type ActionResolver struct{}

// Resolve returns the variation decided by action. A bucket action resolves to
// nil when the user lacks the identifier or lands outside every slot.
func (ActionResolver) Resolve(req *evaluation.ExperimentRequest, action model.Action) (*model.Variation, error) {
	exp := req.Experiment

	switch action.Type {
	case model.ActionTypeVariation:
		if action.VariationID == nil {
			return nil, fmt.Errorf("%w: action variation missing [%d]", evaluation.ErrIntegrity, exp.ID)
		}
		v := exp.VariationByID(*action.VariationID)
		if v == nil {
			return nil, fmt.Errorf("%w: variation [%d]", evaluation.ErrIntegrity, *action.VariationID)
		}
		return v, nil

	case model.ActionTypeBucket:
		if action.BucketID == nil {
			return nil, fmt.Errorf("%w: action bucket missing [%d]", evaluation.ErrIntegrity, exp.ID)
		}
		bucket := req.Workspace().Bucket(*action.BucketID)
		if bucket == nil {
			return nil, fmt.Errorf("%w: bucket [%d]", evaluation.ErrIntegrity, *action.BucketID)
		}
		identifier, ok := req.Identifier()
		if !ok {
			return nil, nil
		}
		slot := bucketer.Bucketing(bucket, identifier)
		if slot == nil {
			return nil, nil
		}
		return exp.VariationByID(slot.VariationID), nil

	default:
		return nil, fmt.Errorf("%w: unsupported action type %s", evaluation.ErrInvariant, action.Type)
	}
}

// OverrideResolver finds a forced variation: the per-user override first,
// then the first matching segment override.
type OverrideResolver struct {
	matcher TargetMatcher
	actions ActionResolver
}

func NewOverrideResolver(matcher TargetMatcher) *OverrideResolver {
	if matcher == nil {
		panic("experiment: target matcher cannot be nil")
	}
	return &OverrideResolver{matcher: matcher}
}

// Resolve returns the overridden variation, or nil when none applies.
func (r *OverrideResolver) Resolve(req *evaluation.ExperimentRequest, ectx *evaluation.Context) (*model.Variation, error) {
	if identifier, ok := req.Identifier(); ok {
		if id, found := req.Experiment.UserOverrides[identifier]; found {
			if v := req.Experiment.VariationByID(id); v != nil {
				return v, nil
			}
		}
	}

	for _, rule := range req.Experiment.SegmentOverrides {
		ok, err := r.matcher.Matches(req, ectx, rule.Target)
		if err != nil {
			return nil, err
		}
		if ok {
			return r.actions.Resolve(req, rule.Action)
		}
	}
	return nil, nil
}

// ContainerResolver applies mutual exclusion.
type ContainerResolver struct{}

// InGroup reports whether the user's container group lists the experiment.
func (ContainerResolver) InGroup(req *evaluation.ExperimentRequest, container *model.Container) (bool, error) {
	identifier, ok := req.Identifier()
	if !ok {
		return false, nil
	}

	bucket := req.Workspace().Bucket(container.BucketID)
	if bucket == nil {
		return false, fmt.Errorf("%w: bucket [%d]", evaluation.ErrIntegrity, container.BucketID)
	}
	slot := bucketer.Bucketing(bucket, identifier)
	if slot == nil {
		return false, nil
	}

	group := container.GroupByID(slot.VariationID)
	if group == nil {
		return false, fmt.Errorf("%w: container group [%d]", evaluation.ErrIntegrity, slot.VariationID)
	}
	return group.Allows(req.Experiment.ID), nil
}

// AudienceDeterminer checks the A/B test audience.
type AudienceDeterminer struct {
	matcher TargetMatcher
}

func NewAudienceDeterminer(matcher TargetMatcher) *AudienceDeterminer {
	if matcher == nil {
		panic("experiment: target matcher cannot be nil")
	}
	return &AudienceDeterminer{matcher: matcher}
}

// InAudience reports whether any audience matches. No audience means everyone.
func (d *AudienceDeterminer) InAudience(req *evaluation.ExperimentRequest, ectx *evaluation.Context) (bool, error) {
	if len(req.Experiment.TargetAudiences) == 0 {
		return true, nil
	}
	for _, target := range req.Experiment.TargetAudiences {
		ok, err := d.matcher.Matches(req, ectx, target)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// TargetRuleDeterminer picks the first matching feature flag rule.
type TargetRuleDeterminer struct {
	matcher TargetMatcher
}

func NewTargetRuleDeterminer(matcher TargetMatcher) *TargetRuleDeterminer {
	if matcher == nil {
		panic("experiment: target matcher cannot be nil")
	}
	return &TargetRuleDeterminer{matcher: matcher}
}

// Determine returns the first rule whose target matches, or nil.
func (d *TargetRuleDeterminer) Determine(req *evaluation.ExperimentRequest, ectx *evaluation.Context) (*model.TargetRule, error) {
	rules := req.Experiment.TargetRules
	for i := range rules {
		ok, err := d.matcher.Matches(req, ectx, rules[i].Target)
		if err != nil {
			return nil, err
		}
		if ok {
			return &rules[i], nil
		}
	}
	return nil, nil
}
