// Package match implements the targeting subsystem: typed value comparison,
// operators, and the condition matchers that resolve a condition's subject
// from the user, a segment or another experiment's outcome.
package match

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/rafaeljc/heimdall-sdk/internal/evaluation"
	"github.com/rafaeljc/heimdall-sdk/internal/model"
)

// OperatorMatcher compares a user value with one candidate value of the same type.
type OperatorMatcher interface {
	MatchString(value, candidate string) bool
	MatchNumber(value, candidate float64) bool
	MatchBool(value, candidate bool) bool
	MatchVersion(value, candidate model.Version) bool
}

// inMatcher is equality for every type.
type inMatcher struct{}

func (inMatcher) MatchString(v, c string) bool         { return v == c }
func (inMatcher) MatchNumber(v, c float64) bool        { return v == c }
func (inMatcher) MatchBool(v, c bool) bool             { return v == c }
func (inMatcher) MatchVersion(v, c model.Version) bool { return v.Equal(c) }

// textMatcher only applies to strings.
type textMatcher func(value, candidate string) bool

func (f textMatcher) MatchString(v, c string) bool                 { return f(v, c) }
func (textMatcher) MatchNumber(float64, float64) bool              { return false }
func (textMatcher) MatchBool(bool, bool) bool                      { return false }
func (textMatcher) MatchVersion(model.Version, model.Version) bool { return false }

// orderMatcher accepts a comparison result. Booleans have no order.
type orderMatcher func(c int) bool

func (f orderMatcher) MatchString(v, c string) bool         { return f(cmp.Compare(v, c)) }
func (f orderMatcher) MatchNumber(v, c float64) bool        { return f(cmp.Compare(v, c)) }
func (orderMatcher) MatchBool(bool, bool) bool              { return false }
func (f orderMatcher) MatchVersion(v, c model.Version) bool { return f(v.Compare(c)) }

var operators = map[model.Operator]OperatorMatcher{
	model.OperatorIn:         inMatcher{},
	model.OperatorContains:   textMatcher(strings.Contains),
	model.OperatorStartsWith: textMatcher(strings.HasPrefix),
	model.OperatorEndsWith:   textMatcher(strings.HasSuffix),
	model.OperatorGT:         orderMatcher(func(c int) bool { return c > 0 }),
	model.OperatorGTE:        orderMatcher(func(c int) bool { return c >= 0 }),
	model.OperatorLT:         orderMatcher(func(c int) bool { return c < 0 }),
	model.OperatorLTE:        orderMatcher(func(c int) bool { return c <= 0 }),
}

// OperatorFor returns the matcher implementing op.
func OperatorFor(op model.Operator) (OperatorMatcher, error) {
	m, ok := operators[op]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported operator %s", evaluation.ErrInvariant, op)
	}
	return m, nil
}
