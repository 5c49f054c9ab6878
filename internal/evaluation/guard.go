package evaluation

import "fmt"

// Guard runs fn with req pushed on the in-flight stack.
// It fails with ErrCircularEvaluation when req is already in flight.
// The stack entry is removed on every exit path.
func Guard(req Request, ectx *Context, fn func() (Evaluation, error)) (Evaluation, error) {
	key := req.Key()
	if ectx.InFlight(key) {
		return nil, fmt.Errorf("%w: %s %d (stack %v)", ErrCircularEvaluation, key.Kind, key.ID, ectx.Requests())
	}

	ectx.push(key)
	defer ectx.pop(key)

	return fn()
}

// Delegating routes a request to the evaluator registered for its kind.
// Registration happens during wiring; Evaluate is safe for concurrent use afterwards.
type Delegating struct {
	evaluators map[Kind]Evaluator
}

// NewDelegating returns a dispatcher with no evaluators.
func NewDelegating() *Delegating {
	return &Delegating{evaluators: make(map[Kind]Evaluator)}
}

// Register binds kind to e. It must not be called once evaluation has started.
func (d *Delegating) Register(kind Kind, e Evaluator) {
	if e == nil {
		panic("evaluation: evaluator cannot be nil")
	}
	d.evaluators[kind] = e
}

// Evaluate implements Evaluator.
func (d *Delegating) Evaluate(req Request, ectx *Context) (Evaluation, error) {
	e, ok := d.evaluators[req.Key().Kind]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported request kind %s", ErrInvariant, req.Key().Kind)
	}
	return e.Evaluate(req, ectx)
}
