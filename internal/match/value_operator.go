package match

import "github.com/rafaeljc/heimdall-sdk/internal/model"

// ValueOperatorMatcher applies a TargetMatch to a subject value.
type ValueOperatorMatcher struct {
	values valueMatchers
}

// NewValueOperatorMatcher builds the matcher. versions may be nil.
func NewValueOperatorMatcher(versions *VersionParser) *ValueOperatorMatcher {
	return &ValueOperatorMatcher{values: newValueMatchers(versions)}
}

// Matches reports whether value satisfies m. The value matches when it equals
// any candidate under the operator; a list value matches when any element does.
// The match polarity is applied last.
func (m *ValueOperatorMatcher) Matches(value any, tm model.TargetMatch) (bool, error) {
	vm, err := m.values.get(tm.ValueType)
	if err != nil {
		return false, err
	}
	op, err := OperatorFor(tm.Operator)
	if err != nil {
		return false, err
	}

	var matched bool
	if elems, ok := model.Elements(value); ok {
		for _, e := range elems {
			if anyCandidate(vm, op, e, tm.Values) {
				matched = true
				break
			}
		}
	} else {
		matched = anyCandidate(vm, op, value, tm.Values)
	}

	return tm.Type.Apply(matched), nil
}

func anyCandidate(vm ValueMatcher, op OperatorMatcher, value any, candidates []any) bool {
	for _, c := range candidates {
		if vm.Matches(op, value, c) {
			return true
		}
	}
	return false
}
