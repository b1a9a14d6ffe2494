package listmodel

import "github.com/maruel/gel/internal/record"

// Attached is a synthetic role supplied by the host rather than by the
// records: either a constant or a function of the record and its row. It is
// consulted when a record lacks a field of the same name.
type Attached struct {
	Value   record.Value
	Compute func(rec record.Value, row int) record.Value
}

// Constant returns an attached property always resolving to v.
func Constant(v record.Value) Attached {
	return Attached{Value: v}
}

// Computed returns an attached property resolved by calling f.
func Computed(f func(rec record.Value, row int) record.Value) Attached {
	return Attached{Compute: f}
}

func (a Attached) resolve(rec record.Value, row int) record.Value {
	if a.Compute != nil {
		return a.Compute(rec, row)
	}
	return a.Value
}

func (a Attached) columnType() ColumnType {
	if a.Compute != nil {
		return ColumnTypeUnknown
	}
	return kindToColumnType(a.Value.Kind())
}
