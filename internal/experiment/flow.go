package experiment

import (
	"fmt"

	"github.com/rafaeljc/heimdall-sdk/internal/evaluation"
	"github.com/rafaeljc/heimdall-sdk/internal/model"
)

// Step is one stage of an evaluation pipeline.
// It returns a nil evaluation to hand over to the next step.
type Step interface {
	Name() string
	Evaluate(req *evaluation.ExperimentRequest, ectx *evaluation.Context) (*evaluation.ExperimentEvaluation, error)
}

// Flow is an ordered pipeline walked by index. The last step is terminal.
type Flow []Step

// Evaluate runs the steps in order and returns the first decision.
// It returns nil only when every step deferred.
func (f Flow) Evaluate(req *evaluation.ExperimentRequest, ectx *evaluation.Context) (*evaluation.ExperimentEvaluation, error) {
	for i := 0; i < len(f); i++ {
		e, err := f[i].Evaluate(req, ectx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f[i].Name(), err)
		}
		if e != nil {
			return e, nil
		}
	}
	return nil, nil
}

// Names lists the steps in execution order.
func (f Flow) Names() []string {
	names := make([]string, len(f))
	for i, s := range f {
		names[i] = s.Name()
	}
	return names
}

// Flows holds the pipeline of each experiment type.
type Flows struct {
	abTest      Flow
	featureFlag Flow
}

// NewFlows builds both pipelines over matcher.
func NewFlows(matcher TargetMatcher) *Flows {
	override := NewOverrideResolver(matcher)

	return &Flows{
		abTest: Flow{
			overrideStep{resolver: override},
			identifierStep{},
			containerStep{},
			audienceStep{determiner: NewAudienceDeterminer(matcher)},
			draftStep{},
			pausedStep{},
			completedStep{},
			trafficAllocateStep{},
		},
		featureFlag: Flow{
			draftStep{},
			pausedStep{},
			completedStep{},
			overrideStep{resolver: override},
			identifierStep{},
			targetRuleStep{determiner: NewTargetRuleDeterminer(matcher)},
			defaultRuleStep{},
		},
	}
}

// For returns the pipeline of t.
func (f *Flows) For(t model.ExperimentType) (Flow, error) {
	switch t {
	case model.ExperimentTypeABTest:
		return f.abTest, nil
	case model.ExperimentTypeFeatureFlag:
		return f.featureFlag, nil
	default:
		return nil, fmt.Errorf("%w: unsupported experiment type %s", evaluation.ErrInvariant, t)
	}
}

func requireType(exp *model.Experiment, t model.ExperimentType) error {
	if exp.Type != t {
		return fmt.Errorf("%w: experiment type must be %s [%d]", evaluation.ErrInvariant, t, exp.ID)
	}
	return nil
}

func requireRunning(exp *model.Experiment) error {
	if exp.Status != model.ExperimentStatusRunning {
		return fmt.Errorf("%w: experiment status must be %s [%d]", evaluation.ErrInvariant, model.ExperimentStatusRunning, exp.ID)
	}
	return nil
}

type overrideStep struct {
	resolver *OverrideResolver
}

func (overrideStep) Name() string { return "override" }

func (s overrideStep) Evaluate(req *evaluation.ExperimentRequest, ectx *evaluation.Context) (*evaluation.ExperimentEvaluation, error) {
	v, err := s.resolver.Resolve(req, ectx)
	if err != nil || v == nil {
		return nil, err
	}

	switch req.Experiment.Type {
	case model.ExperimentTypeABTest:
		return evaluation.NewExperimentEvaluation(req, ectx, v, model.ReasonOverridden), nil
	case model.ExperimentTypeFeatureFlag:
		return evaluation.NewExperimentEvaluation(req, ectx, v, model.ReasonIndividualTargetMatch), nil
	default:
		return nil, fmt.Errorf("%w: unsupported experiment type %s", evaluation.ErrInvariant, req.Experiment.Type)
	}
}

type identifierStep struct{}

func (identifierStep) Name() string { return "identifier" }

func (identifierStep) Evaluate(req *evaluation.ExperimentRequest, ectx *evaluation.Context) (*evaluation.ExperimentEvaluation, error) {
	if _, ok := req.Identifier(); ok {
		return nil, nil
	}
	return evaluation.DefaultExperimentEvaluation(req, ectx, model.ReasonIdentifierNotFound), nil
}

type containerStep struct {
	resolver ContainerResolver
}

func (containerStep) Name() string { return "container" }

func (s containerStep) Evaluate(req *evaluation.ExperimentRequest, ectx *evaluation.Context) (*evaluation.ExperimentEvaluation, error) {
	id := req.Experiment.ContainerID
	if id == nil {
		return nil, nil
	}
	container := req.Workspace().Container(*id)
	if container == nil {
		return nil, fmt.Errorf("%w: container [%d]", evaluation.ErrIntegrity, *id)
	}

	ok, err := s.resolver.InGroup(req, container)
	if err != nil || ok {
		return nil, err
	}
	return evaluation.DefaultExperimentEvaluation(req, ectx, model.ReasonNotInMutualExclusionExperiment), nil
}

type audienceStep struct {
	determiner *AudienceDeterminer
}

func (audienceStep) Name() string { return "audience" }

func (s audienceStep) Evaluate(req *evaluation.ExperimentRequest, ectx *evaluation.Context) (*evaluation.ExperimentEvaluation, error) {
	if err := requireType(req.Experiment, model.ExperimentTypeABTest); err != nil {
		return nil, err
	}
	ok, err := s.determiner.InAudience(req, ectx)
	if err != nil || ok {
		return nil, err
	}
	return evaluation.DefaultExperimentEvaluation(req, ectx, model.ReasonNotInExperimentTarget), nil
}

type draftStep struct{}

func (draftStep) Name() string { return "draft" }

func (draftStep) Evaluate(req *evaluation.ExperimentRequest, ectx *evaluation.Context) (*evaluation.ExperimentEvaluation, error) {
	if req.Experiment.Status != model.ExperimentStatusDraft {
		return nil, nil
	}
	return evaluation.DefaultExperimentEvaluation(req, ectx, model.ReasonExperimentDraft), nil
}

type pausedStep struct{}

func (pausedStep) Name() string { return "paused" }

func (pausedStep) Evaluate(req *evaluation.ExperimentRequest, ectx *evaluation.Context) (*evaluation.ExperimentEvaluation, error) {
	if req.Experiment.Status != model.ExperimentStatusPaused {
		return nil, nil
	}

	switch req.Experiment.Type {
	case model.ExperimentTypeABTest:
		return evaluation.DefaultExperimentEvaluation(req, ectx, model.ReasonExperimentPaused), nil
	case model.ExperimentTypeFeatureFlag:
		return evaluation.DefaultExperimentEvaluation(req, ectx, model.ReasonFeatureFlagInactive), nil
	default:
		return nil, fmt.Errorf("%w: unsupported experiment type %s", evaluation.ErrInvariant, req.Experiment.Type)
	}
}

type completedStep struct{}

func (completedStep) Name() string { return "completed" }

func (completedStep) Evaluate(req *evaluation.ExperimentRequest, ectx *evaluation.Context) (*evaluation.ExperimentEvaluation, error) {
	if req.Experiment.Status != model.ExperimentStatusCompleted {
		return nil, nil
	}
	winner := req.Experiment.WinnerVariation()
	if winner == nil {
		return nil, fmt.Errorf("%w: winner variation [%d]", evaluation.ErrIntegrity, req.Experiment.ID)
	}
	return evaluation.NewExperimentEvaluation(req, ectx, winner, model.ReasonExperimentCompleted), nil
}

type trafficAllocateStep struct {
	actions ActionResolver
}

func (trafficAllocateStep) Name() string { return "traffic_allocate" }

func (s trafficAllocateStep) Evaluate(req *evaluation.ExperimentRequest, ectx *evaluation.Context) (*evaluation.ExperimentEvaluation, error) {
	if err := requireRunning(req.Experiment); err != nil {
		return nil, err
	}
	if err := requireType(req.Experiment, model.ExperimentTypeABTest); err != nil {
		return nil, err
	}

	v, err := s.actions.Resolve(req, req.Experiment.DefaultRule)
	if err != nil {
		return nil, err
	}
	switch {
	case v == nil:
		return evaluation.DefaultExperimentEvaluation(req, ectx, model.ReasonTrafficNotAllocated), nil
	case v.Dropped:
		return evaluation.DefaultExperimentEvaluation(req, ectx, model.ReasonVariationDropped), nil
	default:
		return evaluation.NewExperimentEvaluation(req, ectx, v, model.ReasonTrafficAllocated), nil
	}
}

type targetRuleStep struct {
	determiner *TargetRuleDeterminer
	actions    ActionResolver
}

func (targetRuleStep) Name() string { return "target_rule" }

func (s targetRuleStep) Evaluate(req *evaluation.ExperimentRequest, ectx *evaluation.Context) (*evaluation.ExperimentEvaluation, error) {
	if err := requireRunning(req.Experiment); err != nil {
		return nil, err
	}
	if err := requireType(req.Experiment, model.ExperimentTypeFeatureFlag); err != nil {
		return nil, err
	}
	if _, ok := req.Identifier(); !ok {
		return nil, nil
	}

	rule, err := s.determiner.Determine(req, ectx)
	if err != nil || rule == nil {
		return nil, err
	}
	v, err := s.actions.Resolve(req, rule.Action)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("%w: feature flag must decide the variation [%d]", evaluation.ErrIntegrity, req.Experiment.ID)
	}
	return evaluation.NewExperimentEvaluation(req, ectx, v, model.ReasonTargetRuleMatch), nil
}

type defaultRuleStep struct {
	actions ActionResolver
}

func (defaultRuleStep) Name() string { return "default_rule" }

func (s defaultRuleStep) Evaluate(req *evaluation.ExperimentRequest, ectx *evaluation.Context) (*evaluation.ExperimentEvaluation, error) {
	if err := requireRunning(req.Experiment); err != nil {
		return nil, err
	}
	if err := requireType(req.Experiment, model.ExperimentTypeFeatureFlag); err != nil {
		return nil, err
	}
	if _, ok := req.Identifier(); !ok {
		return evaluation.DefaultExperimentEvaluation(req, ectx, model.ReasonDefaultRule), nil
	}

	v, err := s.actions.Resolve(req, req.Experiment.DefaultRule)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("%w: feature flag must decide the variation [%d]", evaluation.ErrIntegrity, req.Experiment.ID)
	}
	return evaluation.NewExperimentEvaluation(req, ectx, v, model.ReasonDefaultRule), nil
}
