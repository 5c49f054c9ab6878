package evaluation

import (
	"maps"

	"github.com/rafaeljc/heimdall-sdk/internal/model"
	"github.com/rafaeljc/heimdall-sdk/internal/workspace"
)

// RemoteConfigRequest asks for a parameter value of a caller-chosen type.
type RemoteConfigRequest struct {
	subject
	Parameter    *model.RemoteConfigParameter
	RequiredType model.ValueType
	DefaultValue any
}

// NewRemoteConfigRequest builds a top-level request.
func NewRemoteConfigRequest(ws *workspace.Workspace, user model.User, p *model.RemoteConfigParameter, required model.ValueType, def any) *RemoteConfigRequest {
	return &RemoteConfigRequest{
		subject:      subject{ws: ws, user: user},
		Parameter:    p,
		RequiredType: required,
		DefaultValue: def,
	}
}

// Key implements Request.
func (r *RemoteConfigRequest) Key() Key {
	return Key{Kind: KindRemoteConfig, ID: r.Parameter.ID}
}

// Identifier returns the user identifier the parameter buckets on.
func (r *RemoteConfigRequest) Identifier() (string, bool) {
	return r.user.Identifier(r.Parameter.IdentifierType)
}

// RemoteConfigEvaluation is the outcome of a remote-config request.
type RemoteConfigEvaluation struct {
	Reason            model.DecisionReason
	TargetEvaluations []Evaluation
	Parameter         *model.RemoteConfigParameter
	// ValueID is nil when the request default was returned.
	ValueID    *int64
	Value      any
	Properties map[string]any
}

// DecisionReason implements Evaluation.
func (e *RemoteConfigEvaluation) DecisionReason() model.DecisionReason { return e.Reason }

// Targets implements Evaluation.
func (e *RemoteConfigEvaluation) Targets() []Evaluation { return e.TargetEvaluations }

// NewRemoteConfigEvaluation records value as the outcome of req.
// returnValue is added to a copy of properties.
func NewRemoteConfigEvaluation(req *RemoteConfigRequest, ectx *Context, valueID *int64, value any, reason model.DecisionReason, properties map[string]any) *RemoteConfigEvaluation {
	props := maps.Clone(properties)
	if props == nil {
		props = make(map[string]any, 1)
	}
	props["returnValue"] = value

	return &RemoteConfigEvaluation{
		Reason:            reason,
		TargetEvaluations: ectx.Evaluations(),
		Parameter:         req.Parameter,
		ValueID:           valueID,
		Value:             value,
		Properties:        props,
	}
}

// DefaultRemoteConfigEvaluation falls back to the request's default value.
func DefaultRemoteConfigEvaluation(req *RemoteConfigRequest, ectx *Context, reason model.DecisionReason, properties map[string]any) *RemoteConfigEvaluation {
	return NewRemoteConfigEvaluation(req, ectx, nil, req.DefaultValue, reason, properties)
}
