package observability

import "context"

// Checker reports the health of one relay dependency: the workspace, Redis or Postgres.
// Check must honour ctx, since the readiness probe runs every checker under one deadline.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckFunc adapts a plain function into a Checker.
type CheckFunc struct {
	name string
	fn   func(ctx context.Context) error
}

// NewCheckFunc returns a Checker named name that runs fn.
func NewCheckFunc(name string, fn func(ctx context.Context) error) CheckFunc {
	return CheckFunc{name: name, fn: fn}
}

func (c CheckFunc) Name() string { return c.name }

func (c CheckFunc) Check(ctx context.Context) error { return c.fn(ctx) }
