// Discovers roles (field names) from records and keeps their positions stable.

package listmodel

import (
	"slices"

	"github.com/maruel/gel/internal/record"
)

// ModelDataRole is the role exposing a scalar record as a whole.
const ModelDataRole = "modelData"

// NoRole is returned by [Store.RoleID] for unknown role names.
const NoRole = -1

// ColumnType is the type inferred for a role from the first non-null value
// observed for it.
type ColumnType string

const (
	// ColumnTypeUnknown is used until a role was seen with a non-null value.
	ColumnTypeUnknown ColumnType = ""
	ColumnTypeText    ColumnType = "text"
	ColumnTypeNumber  ColumnType = "number"
	ColumnTypeBool    ColumnType = "bool"
	ColumnTypeDate    ColumnType = "date"
	ColumnTypeObject  ColumnType = "object"
	ColumnTypeArray   ColumnType = "array"
)

// Column describes a discovered role.
type Column struct {
	Name     string     `json:"name"`
	Type     ColumnType `json:"type,omitempty"`
	Attached bool       `json:"attached,omitempty"`
}

// kindToColumnType maps a value kind to the column type it implies.
func kindToColumnType(k record.Kind) ColumnType {
	switch k {
	case record.KindString:
		return ColumnTypeText
	case record.KindNumber:
		return ColumnTypeNumber
	case record.KindBool:
		return ColumnTypeBool
	case record.KindDate:
		return ColumnTypeDate
	case record.KindObject:
		return ColumnTypeObject
	case record.KindArray:
		return ColumnTypeArray
	case record.KindUndefined, record.KindNull:
		return ColumnTypeUnknown
	}
	return ColumnTypeUnknown
}

// roleSet is an append-only ordered set of role names. A role's position
// never changes once assigned.
type roleSet struct {
	columns []Column
	index   map[string]int
}

func (r *roleSet) len() int { return len(r.columns) }

func (r *roleSet) id(name string) int {
	if i, ok := r.index[name]; ok {
		return i
	}
	return NoRole
}

func (r *roleSet) name(id int) string {
	if id < 0 || id >= len(r.columns) {
		return ""
	}
	return r.columns[id].Name
}

func (r *roleSet) names() []string {
	out := make([]string, len(r.columns))
	for i, c := range r.columns {
		out[i] = c.Name
	}
	return out
}

// add registers name if unknown and returns true when it was appended. The
// column type of a known role is filled in once a typed value shows up.
func (r *roleSet) add(name string, t ColumnType, attached bool) bool {
	if i, ok := r.index[name]; ok {
		if r.columns[i].Type == ColumnTypeUnknown {
			r.columns[i].Type = t
		}
		return false
	}
	if r.index == nil {
		r.index = make(map[string]int)
	}
	r.index[name] = len(r.columns)
	r.columns = append(r.columns, Column{Name: name, Type: t, Attached: attached})
	return true
}

// discover walks v and appends every role it exposes to added.
//
// Scalars expose ModelDataRole. Objects expose each field, and fields of
// nested objects under a dotted name. Arrays are not descended into.
func (r *roleSet) discover(v record.Value, added []string) []string {
	if v.IsScalar() {
		if r.add(ModelDataRole, kindToColumnType(v.Kind()), false) {
			added = append(added, ModelDataRole)
		}
		return added
	}
	return r.discoverFields(v, "", added)
}

func (r *roleSet) discoverFields(v record.Value, prefix string, added []string) []string {
	for name, f := range v.Fields() {
		role := prefix + name
		if r.add(role, kindToColumnType(f.Kind()), false) {
			added = append(added, role)
		}
		if f.IsObject() {
			added = r.discoverFields(f, role+".", added)
		}
	}
	return added
}

func (r *roleSet) clone() []Column {
	return slices.Clone(r.columns)
}
