package docstore

import (
	"fmt"
	"reflect"
	"regexp"
)

// Op is a filter comparison.
type Op int

const (
	OpEq Op = iota + 1
	OpIn
	OpArrayContains
	OpArrayContainsAny
)

// String returns the operator name.
func (o Op) String() string {
	switch o {
	case OpEq:
		return "=="
	case OpIn:
		return "in"
	case OpArrayContains:
		return "array-contains"
	case OpArrayContainsAny:
		return "array-contains-any"
	default:
		return "unknown"
	}
}

// maxInValues bounds In and ArrayContainsAny value lists.
const maxInValues = 30

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Filter is one condition on a top-level document field.
type Filter struct {
	Field  string
	Op     Op
	Value  any   // Eq, ArrayContains
	Values []any // In, ArrayContainsAny
}

// Eq matches documents whose field equals v.
func Eq(field string, v any) Filter {
	return Filter{Field: field, Op: OpEq, Value: v}
}

// In matches documents whose field equals one of vs.
func In[T any](field string, vs ...T) Filter {
	return Filter{Field: field, Op: OpIn, Values: toAny(vs)}
}

// ArrayContains matches documents whose array field contains v.
func ArrayContains(field string, v any) Filter {
	return Filter{Field: field, Op: OpArrayContains, Value: v}
}

// ArrayContainsAny matches documents whose array field contains one of vs.
func ArrayContainsAny[T any](field string, vs ...T) Filter {
	return Filter{Field: field, Op: OpArrayContainsAny, Values: toAny(vs)}
}

func toAny[T any](vs []T) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

// String renders the filter for logs.
func (f Filter) String() string {
	if f.Op == OpIn || f.Op == OpArrayContainsAny {
		return fmt.Sprintf("%s %s %v", f.Field, f.Op, f.Values)
	}
	return fmt.Sprintf("%s %s %v", f.Field, f.Op, f.Value)
}

// Validate checks the field name and operand shape.
func (f Filter) Validate() error {
	if !fieldPattern.MatchString(f.Field) {
		return fmt.Errorf("%w: field %q", ErrInvalidFilter, f.Field)
	}
	switch f.Op {
	case OpEq, OpArrayContains:
		return nil
	case OpIn, OpArrayContainsAny:
		if len(f.Values) == 0 || len(f.Values) > maxInValues {
			return fmt.Errorf("%w: %s needs 1 to %d values", ErrInvalidFilter, f.Op, maxInValues)
		}
		return nil
	default:
		return fmt.Errorf("%w: operator %d", ErrInvalidFilter, f.Op)
	}
}

// normalized returns a copy with operands in stored JSON form.
func (f Filter) normalized() (Filter, error) {
	out := Filter{Field: f.Field, Op: f.Op}
	var err error
	if out.Value, err = normalizeValue(f.Value); err != nil {
		return Filter{}, err
	}
	if len(f.Values) > 0 {
		out.Values = make([]any, len(f.Values))
		for i, v := range f.Values {
			if out.Values[i], err = normalizeValue(v); err != nil {
				return Filter{}, err
			}
		}
	}
	return out, nil
}

// Match reports whether fields satisfy the filter. Operands must be normalized.
func (f Filter) Match(fields map[string]any) bool {
	got, present := fields[f.Field]
	switch f.Op {
	case OpEq:
		return present && valuesEqual(got, f.Value)
	case OpIn:
		return present && containsValue(f.Values, got)
	case OpArrayContains:
		arr, ok := got.([]any)
		return ok && containsValue(arr, f.Value)
	case OpArrayContainsAny:
		arr, ok := got.([]any)
		if !ok {
			return false
		}
		for _, v := range f.Values {
			if containsValue(arr, v) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// MatchAll reports whether fields satisfy every filter.
func MatchAll(fields map[string]any, filters []Filter) bool {
	for _, f := range filters {
		if !f.Match(fields) {
			return false
		}
	}
	return true
}

func prepareFilters(filters []Filter) ([]Filter, error) {
	out := make([]Filter, 0, len(filters))
	for _, f := range filters {
		if err := f.Validate(); err != nil {
			return nil, err
		}
		n, err := f.normalized()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func containsValue(haystack []any, v any) bool {
	for _, h := range haystack {
		if valuesEqual(h, v) {
			return true
		}
	}
	return false
}

func valuesEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}
