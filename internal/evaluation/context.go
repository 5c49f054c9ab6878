package evaluation

import "slices"

// Context is the mutable session of one public decision call.
// It is created by the outermost call, passed down by reference and
// discarded afterwards. It must never be shared between goroutines.
type Context struct {
	inFlight    []Key
	evaluations []Evaluation
}

// NewContext returns an empty session.
func NewContext() *Context {
	return &Context{}
}

// InFlight reports whether key is currently being evaluated.
func (c *Context) InFlight(key Key) bool {
	return slices.Contains(c.inFlight, key)
}

// Requests returns a copy of the in-flight stack, outermost first.
func (c *Context) Requests() []Key {
	return slices.Clone(c.inFlight)
}

func (c *Context) push(key Key) {
	c.inFlight = append(c.inFlight, key)
}

func (c *Context) pop(key Key) {
	if i := slices.Index(c.inFlight, key); i >= 0 {
		c.inFlight = slices.Delete(c.inFlight, i, i+1)
	}
}

// Add records a nested evaluation.
func (c *Context) Add(e Evaluation) {
	c.evaluations = append(c.evaluations, e)
}

// Evaluations returns a copy of the recorded nested evaluations, in order.
func (c *Context) Evaluations() []Evaluation {
	return slices.Clone(c.evaluations)
}

// ExperimentEvaluation returns the recorded evaluation of experimentID, or nil.
func (c *Context) ExperimentEvaluation(experimentID int64) *ExperimentEvaluation {
	for _, e := range c.evaluations {
		if ee, ok := e.(*ExperimentEvaluation); ok && ee.Experiment.ID == experimentID {
			return ee
		}
	}
	return nil
}
