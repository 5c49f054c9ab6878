// Package evaluation defines the request/evaluation types shared by every
// evaluator, the per-call session that carries cycle detection and nested
// results, and the dispatcher that routes a request to its evaluator.
package evaluation

import (
	"errors"
	"fmt"

	"github.com/rafaeljc/heimdall-sdk/internal/model"
	"github.com/rafaeljc/heimdall-sdk/internal/workspace"
)

var (
	// ErrIntegrity reports a snapshot that references a missing entity.
	ErrIntegrity = errors.New("workspace integrity violation")

	// ErrCircularEvaluation reports a targeting graph that revisits an in-flight request.
	ErrCircularEvaluation = errors.New("circular evaluation has occurred")

	// ErrInvariant reports a component receiving an entity it cannot handle.
	ErrInvariant = errors.New("evaluation invariant violated")
)

// Kind identifies the evaluator responsible for a request.
type Kind uint8

const (
	KindExperiment Kind = iota + 1
	KindRemoteConfig
)

// String returns the label used for $targetingRootType.
func (k Kind) String() string {
	switch k {
	case KindExperiment:
		return "EXPERIMENT"
	case KindRemoteConfig:
		return "REMOTE_CONFIG"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Key identifies one request within a session.
type Key struct {
	Kind Kind
	ID   int64
}

// Request is the input to an Evaluator.
type Request interface {
	Key() Key
	Workspace() *workspace.Workspace
	User() model.User
}

// Evaluation is the output of an Evaluator.
type Evaluation interface {
	DecisionReason() model.DecisionReason
	// Targets lists the nested evaluations performed while computing this one.
	Targets() []Evaluation
}

// Evaluator turns a request into an evaluation within a session.
type Evaluator interface {
	Evaluate(req Request, ectx *Context) (Evaluation, error)
}

type subject struct {
	ws   *workspace.Workspace
	user model.User
}

func (s subject) Workspace() *workspace.Workspace { return s.ws }

func (s subject) User() model.User { return s.user }
