package record

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Type coercion lets values of different kinds be compared meaningfully.
//
//	string "12"  → NUMERIC → number 12
//	bool true    → NUMERIC → number 1
//	number 3.5   → TEXT    → string "3.5"
//	bool false   → TEXT    → string "false"
//	object/array → any     → unchanged
//
// The affinity of a value is derived from its kind; a comparison coerces the
// other operand to it.

// Affinity is the type preference applied during coercion.
type Affinity int

const (
	// AffinityBLOB has no type preference; values pass through unchanged.
	AffinityBLOB Affinity = iota
	// AffinityTEXT converts scalars to their string form.
	AffinityTEXT
	// AffinityNUMERIC converts numeric strings and booleans to numbers.
	AffinityNUMERIC
)

// KindAffinity returns the affinity matching a value kind.
func KindAffinity(k Kind) Affinity {
	switch k {
	case KindString:
		return AffinityTEXT
	case KindNumber, KindBool:
		return AffinityNUMERIC
	default:
		return AffinityBLOB
	}
}

// Coerce applies affinity to v. Values that cannot be coerced are returned
// unchanged.
func Coerce(v Value, affinity Affinity) Value {
	switch affinity {
	case AffinityTEXT:
		if v.IsScalar() {
			return String(v.String())
		}
		return v
	case AffinityNUMERIC:
		switch v.kind {
		case KindString:
			s := strings.TrimSpace(v.str)
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				return Number(float64(i))
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return Number(f)
			}
			return v
		case KindBool:
			if v.b {
				return Number(1)
			}
			return Number(0)
		case KindDate:
			return Number(float64(v.t.UnixMilli()))
		default:
			return v
		}
	case AffinityBLOB:
		return v
	default:
		return v
	}
}

// FromAny converts a decoded Go value, as produced by encoding/json or
// yaml.v3, into a Value. Map keys are sorted since Go maps carry no order.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case int:
		return Number(float64(t))
	case int8:
		return Number(float64(t))
	case int16:
		return Number(float64(t))
	case int32:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case uint:
		return Number(float64(t))
	case uint8:
		return Number(float64(t))
	case uint16:
		return Number(float64(t))
	case uint32:
		return Number(float64(t))
	case uint64:
		return Number(float64(t))
	case time.Time:
		return Date(t)
	case map[string]any:
		fs := make([]Field, 0, len(t))
		for _, k := range slices.Sorted(maps.Keys(t)) {
			fs = append(fs, Field{Name: k, Value: FromAny(t[k])})
		}
		return Object(fs...)
	case map[string]Value:
		fs := make([]Field, 0, len(t))
		for _, k := range slices.Sorted(maps.Keys(t)) {
			fs = append(fs, Field{Name: k, Value: t[k]})
		}
		return Object(fs...)
	case []any:
		vs := make([]Value, len(t))
		for i, e := range t {
			vs[i] = FromAny(e)
		}
		return Array(vs...)
	case []Value:
		return Array(t...)
	case fmt.Stringer:
		return String(t.String())
	default:
		return String(fmt.Sprint(t))
	}
}
