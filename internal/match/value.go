package match

import (
	"fmt"
	"math"
	"strconv"

	"github.com/rafaeljc/heimdall-sdk/internal/evaluation"
	"github.com/rafaeljc/heimdall-sdk/internal/model"
)

// ValueMatcher coerces both sides to one value type, then applies an operator.
// A side that cannot be coerced never matches.
type ValueMatcher interface {
	Matches(op OperatorMatcher, value, candidate any) bool
}

type stringMatcher struct{}

func (stringMatcher) Matches(op OperatorMatcher, value, candidate any) bool {
	v, ok1 := asString(value)
	c, ok2 := asString(candidate)
	return ok1 && ok2 && op.MatchString(v, c)
}

func asString(v any) (string, bool) {
	if s, ok := v.(string); ok {
		return s, true
	}
	if n, ok := model.AsNumber(v); ok {
		return model.FormatNumber(n), true
	}
	return "", false
}

type numberMatcher struct{}

func (numberMatcher) Matches(op OperatorMatcher, value, candidate any) bool {
	v, ok1 := asNumber(value)
	c, ok2 := asNumber(candidate)
	return ok1 && ok2 && op.MatchNumber(v, c)
}

// asNumber accepts numeric strings. NaN and infinities never match,
// whether parsed ("Inf", "NaN") or passed in directly.
func asNumber(v any) (float64, bool) {
	var (
		f  float64
		ok bool
	)
	if s, isString := v.(string); isString {
		var err error
		f, err = strconv.ParseFloat(s, 64)
		ok = err == nil
	} else {
		f, ok = model.AsNumber(v)
	}
	return f, ok && !math.IsNaN(f) && !math.IsInf(f, 0)
}

type boolMatcher struct{}

func (boolMatcher) Matches(op OperatorMatcher, value, candidate any) bool {
	v, ok1 := value.(bool)
	c, ok2 := candidate.(bool)
	return ok1 && ok2 && op.MatchBool(v, c)
}

type versionMatcher struct {
	versions *VersionParser
}

func (m versionMatcher) Matches(op OperatorMatcher, value, candidate any) bool {
	v, ok1 := m.versions.Parse(value)
	if !ok1 {
		return false
	}
	c, ok2 := m.versions.Parse(candidate)
	return ok2 && op.MatchVersion(v, c)
}

// valueMatchers holds one matcher per comparable value type. JSON compares as text.
type valueMatchers map[model.ValueType]ValueMatcher

func newValueMatchers(versions *VersionParser) valueMatchers {
	return valueMatchers{
		model.ValueTypeString:  stringMatcher{},
		model.ValueTypeNumber:  numberMatcher{},
		model.ValueTypeBoolean: boolMatcher{},
		model.ValueTypeVersion: versionMatcher{versions: versions},
		model.ValueTypeJSON:    stringMatcher{},
	}
}

func (m valueMatchers) get(t model.ValueType) (ValueMatcher, error) {
	vm, ok := m[t]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported value type %s", evaluation.ErrInvariant, t)
	}
	return vm, nil
}
