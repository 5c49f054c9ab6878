package experiment

import (
	"fmt"

	"github.com/rafaeljc/heimdall-sdk/internal/evaluation"
	"github.com/rafaeljc/heimdall-sdk/internal/model"
)

// Evaluator evaluates experiment requests through the pipeline of their type.
type Evaluator struct {
	flows *Flows
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(flows *Flows) *Evaluator {
	if flows == nil {
		panic("experiment: flows cannot be nil")
	}
	return &Evaluator{flows: flows}
}

// Evaluate implements evaluation.Evaluator.
func (e *Evaluator) Evaluate(req evaluation.Request, ectx *evaluation.Context) (evaluation.Evaluation, error) {
	r, ok := req.(*evaluation.ExperimentRequest)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected request %T", evaluation.ErrInvariant, req)
	}
	return evaluation.Guard(req, ectx, func() (evaluation.Evaluation, error) {
		result, err := e.EvaluateExperiment(r, ectx)
		if err != nil {
			return nil, err
		}
		return result, nil
	})
}

// EvaluateExperiment runs the pipeline without the cycle guard.
func (e *Evaluator) EvaluateExperiment(req *evaluation.ExperimentRequest, ectx *evaluation.Context) (*evaluation.ExperimentEvaluation, error) {
	flow, err := e.flows.For(req.Experiment.Type)
	if err != nil {
		return nil, err
	}

	result, err := flow.Evaluate(req, ectx)
	if err != nil {
		return nil, fmt.Errorf("experiment %d: %w", req.Experiment.ID, err)
	}
	if result == nil {
		return evaluation.DefaultExperimentEvaluation(req, ectx, model.ReasonTrafficNotAllocated), nil
	}
	return result, nil
}
