package evaluation

import (
	"github.com/rafaeljc/heimdall-sdk/internal/model"
	"github.com/rafaeljc/heimdall-sdk/internal/workspace"
)

// NestedDefaultVariationKey is the fallback used when an experiment is
// evaluated on behalf of another rule's targeting. It is also the
// feature flag "off" variation.
const NestedDefaultVariationKey = "A"

// ExperimentRequest asks for the variation of an A/B test or feature flag.
type ExperimentRequest struct {
	subject
	Experiment          *model.Experiment
	DefaultVariationKey string
}

// NewExperimentRequest builds a top-level request.
func NewExperimentRequest(ws *workspace.Workspace, user model.User, exp *model.Experiment, defaultVariationKey string) *ExperimentRequest {
	return &ExperimentRequest{
		subject:             subject{ws: ws, user: user},
		Experiment:          exp,
		DefaultVariationKey: defaultVariationKey,
	}
}

// NestedExperimentRequest builds a request for exp on behalf of parent,
// sharing its snapshot and user.
func NestedExperimentRequest(parent Request, exp *model.Experiment) *ExperimentRequest {
	return NewExperimentRequest(parent.Workspace(), parent.User(), exp, NestedDefaultVariationKey)
}

// Key implements Request.
func (r *ExperimentRequest) Key() Key {
	return Key{Kind: KindExperiment, ID: r.Experiment.ID}
}

// Identifier returns the user identifier the experiment buckets on.
func (r *ExperimentRequest) Identifier() (string, bool) {
	return r.user.Identifier(r.Experiment.IdentifierType)
}

// ExperimentEvaluation is the outcome of an experiment request.
type ExperimentEvaluation struct {
	Reason            model.DecisionReason
	TargetEvaluations []Evaluation
	Experiment        *model.Experiment
	// VariationID is nil when the default key names no variation of the experiment.
	VariationID  *int64
	VariationKey string
	Config       *model.ParameterConfiguration
}

// DecisionReason implements Evaluation.
func (e *ExperimentEvaluation) DecisionReason() model.DecisionReason { return e.Reason }

// Targets implements Evaluation.
func (e *ExperimentEvaluation) Targets() []Evaluation { return e.TargetEvaluations }

// With returns a copy carrying reason.
func (e *ExperimentEvaluation) With(reason model.DecisionReason) *ExperimentEvaluation {
	c := *e
	c.Reason = reason
	return &c
}

// ParameterConfig returns the typed view of the variation's configuration.
func (e *ExperimentEvaluation) ParameterConfig() ParameterConfig {
	if e.Config == nil {
		return ParameterConfig{}
	}
	return NewParameterConfig(e.Config.Parameters)
}

// NewExperimentEvaluation records variation as the outcome of req.
// The session's nested evaluations are captured at this point.
func NewExperimentEvaluation(req *ExperimentRequest, ectx *Context, variation *model.Variation, reason model.DecisionReason) *ExperimentEvaluation {
	id := variation.ID
	return &ExperimentEvaluation{
		Reason:            reason,
		TargetEvaluations: ectx.Evaluations(),
		Experiment:        req.Experiment,
		VariationID:       &id,
		VariationKey:      variation.Key,
		Config:            configuration(req.Workspace(), variation),
	}
}

// DefaultExperimentEvaluation falls back to the request's default variation key.
func DefaultExperimentEvaluation(req *ExperimentRequest, ectx *Context, reason model.DecisionReason) *ExperimentEvaluation {
	if v := req.Experiment.VariationByKey(req.DefaultVariationKey); v != nil {
		return NewExperimentEvaluation(req, ectx, v, reason)
	}
	return &ExperimentEvaluation{
		Reason:            reason,
		TargetEvaluations: ectx.Evaluations(),
		Experiment:        req.Experiment,
		VariationKey:      req.DefaultVariationKey,
	}
}

func configuration(ws *workspace.Workspace, v *model.Variation) *model.ParameterConfiguration {
	if v.ParameterConfigurationID == nil || ws == nil {
		return nil
	}
	return ws.ParameterConfiguration(*v.ParameterConfigurationID)
}
