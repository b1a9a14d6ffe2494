// Declarative filters and sorts, as loaded from configuration files.

package collection

import (
	"fmt"
	"strings"

	"github.com/maruel/gel/internal/listmodel"
	"github.com/maruel/gel/internal/record"
	"golang.org/x/text/language"
)

// Filter defines a condition on a role of a record.
type Filter struct {
	Property string   `json:"property,omitempty" yaml:"property,omitempty" jsonschema:"description=Role to filter on"`
	Operator FilterOp `json:"operator,omitempty" yaml:"operator,omitempty" jsonschema:"description=Filter operator"`
	Value    any      `json:"value,omitempty" yaml:"value,omitempty" jsonschema:"description=Value to compare against"`

	// Compound filters (mutually exclusive with Property/Operator/Value)
	And []Filter `json:"and,omitempty" yaml:"and,omitempty" jsonschema:"description=All conditions must match (AND)"`
	Or  []Filter `json:"or,omitempty" yaml:"or,omitempty" jsonschema:"description=Any condition must match (OR)"`
}

// FilterOp defines the comparison operator for a filter.
type FilterOp string

const (
	// FilterOpEquals matches if value equals the filter value.
	FilterOpEquals FilterOp = "equals"
	// FilterOpNotEquals matches if value does not equal the filter value.
	FilterOpNotEquals FilterOp = "not_equals"
	// FilterOpContains matches if value contains the filter value (text).
	FilterOpContains FilterOp = "contains"
	// FilterOpNotContains matches if value does not contain the filter value.
	FilterOpNotContains FilterOp = "not_contains"
	// FilterOpStartsWith matches if value starts with the filter value.
	FilterOpStartsWith FilterOp = "starts_with"
	// FilterOpEndsWith matches if value ends with the filter value.
	FilterOpEndsWith FilterOp = "ends_with"
	// FilterOpGreaterThan matches if value is greater than the filter value.
	FilterOpGreaterThan FilterOp = "gt"
	// FilterOpLessThan matches if value is less than the filter value.
	FilterOpLessThan FilterOp = "lt"
	// FilterOpGreaterEqual matches if value is greater than or equal to the filter value.
	FilterOpGreaterEqual FilterOp = "gte"
	// FilterOpLessEqual matches if value is less than or equal to the filter value.
	FilterOpLessEqual FilterOp = "lte"
	// FilterOpIsEmpty matches if value is missing, null, or an empty string or array.
	FilterOpIsEmpty FilterOp = "is_empty"
	// FilterOpIsNotEmpty matches if value is not empty.
	FilterOpIsNotEmpty FilterOp = "is_not_empty"
)

var filterOps = []FilterOp{
	FilterOpEquals, FilterOpNotEquals, FilterOpContains, FilterOpNotContains,
	FilterOpStartsWith, FilterOpEndsWith, FilterOpGreaterThan, FilterOpLessThan,
	FilterOpGreaterEqual, FilterOpLessEqual, FilterOpIsEmpty, FilterOpIsNotEmpty,
}

// Validate checks operators recursively.
func (f *Filter) Validate() error {
	for i := range f.And {
		if err := f.And[i].Validate(); err != nil {
			return fmt.Errorf("and[%d]: %w", i, err)
		}
	}
	for i := range f.Or {
		if err := f.Or[i].Validate(); err != nil {
			return fmt.Errorf("or[%d]: %w", i, err)
		}
	}
	if f.Property == "" {
		return nil
	}
	for _, op := range filterOps {
		if f.Operator == op {
			return nil
		}
	}
	return fmt.Errorf("property %q: unknown operator %q", f.Property, f.Operator)
}

// Sort defines the sort order for a role.
type Sort struct {
	Property  string  `json:"property" yaml:"property" jsonschema:"description=Role to sort by"`
	Direction SortDir `json:"direction,omitempty" yaml:"direction,omitempty" jsonschema:"description=Sort direction (asc/desc)"`
}

// SortDir defines the sort direction.
type SortDir string

const (
	// SortAsc sorts in ascending order (A-Z, 0-9, oldest-newest).
	SortAsc SortDir = "asc"
	// SortDesc sorts in descending order (Z-A, 9-0, newest-oldest).
	SortDesc SortDir = "desc"
)

// MatchFilters returns a Predicate accepting rows matching all filters.
//
// Roles are resolved through l when it is not nil, so attached properties can
// be filtered on; otherwise they are looked up on the record itself. Text
// operators are case insensitive. A nil Predicate is returned when filters is
// empty.
func MatchFilters(l listmodel.List, filters []Filter) Predicate {
	if len(filters) == 0 {
		return nil
	}
	compiled := compileFilters(filters)
	vc := NewValueComparer(true, false, language.Und)
	return func(v record.Value, row int) bool {
		get := func(role string) record.Value {
			if l == nil {
				return fieldOf(v, role)
			}
			return l.Field(row, role)
		}
		for i := range compiled {
			if !compiled[i].matches(get, vc) {
				return false
			}
		}
		return true
	}
}

// compiledFilter is a Filter with its value converted once.
type compiledFilter struct {
	role string
	op   FilterOp
	want record.Value
	and  []compiledFilter
	or   []compiledFilter
}

func compileFilters(filters []Filter) []compiledFilter {
	out := make([]compiledFilter, len(filters))
	for i := range filters {
		f := &filters[i]
		out[i] = compiledFilter{
			role: f.Property,
			op:   f.Operator,
			want: record.FromAny(f.Value),
			and:  compileFilters(f.And),
			or:   compileFilters(f.Or),
		}
	}
	return out
}

func (f *compiledFilter) matches(get func(string) record.Value, vc *ValueComparer) bool {
	if len(f.and) > 0 {
		for i := range f.and {
			if !f.and[i].matches(get, vc) {
				return false
			}
		}
		return true
	}
	if len(f.or) > 0 {
		for i := range f.or {
			if f.or[i].matches(get, vc) {
				return true
			}
		}
		return false
	}
	if f.role == "" {
		return true
	}
	value := get(f.role)
	if value.IsUndefined() {
		// Role not set - only match is_empty
		return f.op == FilterOpIsEmpty
	}
	return matchesOperator(value, f.op, f.want, vc)
}

func matchesOperator(value record.Value, op FilterOp, want record.Value, vc *ValueComparer) bool {
	switch op {
	case FilterOpIsEmpty:
		return isEmpty(value)
	case FilterOpIsNotEmpty:
		return !isEmpty(value)
	case FilterOpEquals:
		return vc.Compare(value, want) == 0
	case FilterOpNotEquals:
		return vc.Compare(value, want) != 0
	case FilterOpGreaterThan:
		return vc.Compare(value, want) > 0
	case FilterOpLessThan:
		return vc.Compare(value, want) < 0
	case FilterOpGreaterEqual:
		return vc.Compare(value, want) >= 0
	case FilterOpLessEqual:
		return vc.Compare(value, want) <= 0
	case FilterOpContains:
		return contains(value, want, vc)
	case FilterOpNotContains:
		return !contains(value, want, vc)
	case FilterOpStartsWith:
		return strings.HasPrefix(strings.ToLower(value.String()), strings.ToLower(want.String()))
	case FilterOpEndsWith:
		return strings.HasSuffix(strings.ToLower(value.String()), strings.ToLower(want.String()))
	default:
		return false
	}
}

func isEmpty(v record.Value) bool {
	switch v.Kind() {
	case record.KindUndefined, record.KindNull:
		return true
	case record.KindString:
		s, _ := v.Str()
		return s == ""
	case record.KindArray:
		return v.Len() == 0
	case record.KindNumber, record.KindBool, record.KindDate, record.KindObject:
	}
	return false
}

// contains matches a substring for scalars and an element for arrays.
func contains(value, want record.Value, vc *ValueComparer) bool {
	if value.IsArray() {
		for _, e := range value.Elements() {
			if vc.Compare(e, want) == 0 {
				return true
			}
		}
		return false
	}
	return strings.Contains(strings.ToLower(value.String()), strings.ToLower(want.String()))
}

// compareKeys compares two rows' values of the sorted roles, in sorts order.
// Ties on every sort compare equal, so a stable sort keeps source order.
func compareKeys(sorts []Sort, a, b []record.Value, vc *ValueComparer) int {
	for i := range sorts {
		if c := vc.Compare(a[i], b[i]); c != 0 {
			if sorts[i].Direction == SortDesc {
				return -c
			}
			return c
		}
	}
	return 0
}
