// Package record defines Value, the semi-structured record type stored by
// listmodel and projected by collection.
//
// A Value is a tagged variant: a scalar (string, number, bool, date), a
// structured object with ordered named fields, an array, null or undefined.
// Objects and arrays are reference values: copying a Value shares the
// underlying storage, and [Same] compares them by identity rather than by
// content.
package record

import (
	"iter"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Kind is the tag of a Value.
type Kind uint8

const (
	// KindUndefined is the zero Value. Returned for missing fields and
	// out-of-range rows.
	KindUndefined Kind = iota
	KindNull
	KindString
	KindNumber
	KindBool
	KindDate
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// fields holds the ordered fields of an object.
type fields = orderedmap.OrderedMap[string, Value]

// Value is a semi-structured record or field value.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	t    time.Time
	obj  *fields
	arr  *[]Value
}

// Field is a named value, used to build objects.
type Field struct {
	Name  string
	Value Value
}

// Undefined returns the undefined sentinel.
func Undefined() Value { return Value{} }

// Null returns a null value.
func Null() Value { return Value{kind: KindNull} }

// String returns a string scalar.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number returns a number scalar.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Bool returns a boolean scalar.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Date returns a date scalar.
func Date(t time.Time) Value { return Value{kind: KindDate, t: t} }

// Object returns a new object with the given fields in order. A repeated
// name keeps its first position and its last value.
func Object(fs ...Field) Value {
	m := orderedmap.New[string, Value](orderedmap.WithCapacity[string, Value](len(fs)))
	for _, f := range fs {
		m.Set(f.Name, f.Value)
	}
	return Value{kind: KindObject, obj: m}
}

// Array returns a new array holding vs.
func Array(vs ...Value) Value {
	a := slices.Clone(vs)
	return Value{kind: KindArray, arr: &a}
}

// Kind returns the tag of v.
func (v Value) Kind() Kind { return v.kind }

// IsUndefined reports whether v is the undefined sentinel.
func (v Value) IsUndefined() bool { return v.kind == KindUndefined }

// IsScalar reports whether v is a string, number, bool or date.
func (v Value) IsScalar() bool {
	switch v.kind {
	case KindString, KindNumber, KindBool, KindDate:
		return true
	default:
		return false
	}
}

// IsObject reports whether v is a structured object.
func (v Value) IsObject() bool { return v.kind == KindObject }

// IsArray reports whether v is an array.
func (v Value) IsArray() bool { return v.kind == KindArray }

// Str returns the string held by a string scalar.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Float returns the number held by a number scalar.
func (v Value) Float() (float64, bool) { return v.num, v.kind == KindNumber }

// Boolean returns the boolean held by a bool scalar.
func (v Value) Boolean() (bool, bool) { return v.b, v.kind == KindBool }

// Time returns the time held by a date scalar.
func (v Value) Time() (time.Time, bool) { return v.t, v.kind == KindDate }

// Len returns the number of fields of an object or elements of an array,
// and 0 for anything else.
func (v Value) Len() int {
	switch v.kind {
	case KindObject:
		return v.obj.Len()
	case KindArray:
		return len(*v.arr)
	default:
		return 0
	}
}

// Index returns the i-th element of an array, or Undefined.
func (v Value) Index(i int) Value {
	if v.kind != KindArray || i < 0 || i >= len(*v.arr) {
		return Value{}
	}
	return (*v.arr)[i]
}

// Elements iterates over the elements of an array.
func (v Value) Elements() iter.Seq2[int, Value] {
	return func(yield func(int, Value) bool) {
		if v.kind != KindArray {
			return
		}
		for i, e := range *v.arr {
			if !yield(i, e) {
				return
			}
		}
	}
}

// Get returns the field name of an object.
func (v Value) Get(name string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	return v.obj.Get(name)
}

// Has reports whether an object has the field name.
func (v Value) Has(name string) bool {
	_, ok := v.Get(name)
	return ok
}

// Fields iterates over the fields of an object in insertion order.
func (v Value) Fields() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if v.kind != KindObject {
			return
		}
		for p := v.obj.Oldest(); p != nil; p = p.Next() {
			if !yield(p.Key, p.Value) {
				return
			}
		}
	}
}

// Set assigns the field name of an object in place. Every Value sharing the
// object observes the change. It returns false when v is not an object.
func (v Value) Set(name string, val Value) bool {
	if v.kind != KindObject {
		return false
	}
	v.obj.Set(name, val)
	return true
}

// Lookup resolves a dotted path such as "address.city" against an object.
//
// At each level a field whose name equals the whole remaining path wins over
// descending, so field names that contain dots stay reachable.
func (v Value) Lookup(path string) (Value, bool) {
	cur := v
	for {
		if cur.kind != KindObject {
			return Value{}, false
		}
		if f, ok := cur.obj.Get(path); ok {
			return f, true
		}
		head, rest, found := strings.Cut(path, ".")
		if !found {
			return Value{}, false
		}
		next, ok := cur.obj.Get(head)
		if !ok {
			return Value{}, false
		}
		cur, path = next, rest
	}
}

// String returns the string form of v, used as the identity key of scalar
// records. Numbers are formatted without a trailing fraction when whole,
// objects and arrays as JSON.
func (v Value) String() string {
	switch v.kind {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindString:
		return v.str
	case KindNumber:
		return formatNumber(v.num)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindDate:
		return v.t.Format(time.RFC3339Nano)
	default:
		return string(v.AppendJSON(nil))
	}
}

// Same reports whether a and b are the same value: scalars compare by value,
// objects and arrays by reference. Two distinct objects with equal content
// are not the same.
func Same(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindUndefined, KindNull:
		return true
	case KindString:
		return a.str == b.str
	case KindNumber:
		// NaN is never the same as anything, including itself.
		return a.num == b.num
	case KindBool:
		return a.b == b.b
	case KindDate:
		return a.t.Equal(b.t)
	case KindObject:
		return a.obj == b.obj
	case KindArray:
		return a.arr == b.arr
	default:
		return false
	}
}

// DeepCopy returns a copy of v in which every object, including objects
// nested in objects, is rebuilt. Scalars and arrays are returned as is.
func DeepCopy(v Value) Value {
	if v.kind != KindObject {
		return v
	}
	m := orderedmap.New[string, Value](orderedmap.WithCapacity[string, Value](v.obj.Len()))
	for p := v.obj.Oldest(); p != nil; p = p.Next() {
		m.Set(p.Key, DeepCopy(p.Value))
	}
	return Value{kind: KindObject, obj: m}
}

// isWhole reports whether f is a finite integral number representable as int64.
func isWhole(f float64) bool {
	return f == math.Trunc(f) && !math.IsInf(f, 0) && !math.IsNaN(f) && f >= math.MinInt64 && f <= math.MaxInt64
}

func formatNumber(f float64) string {
	if isWhole(f) && math.Abs(f) < 1e21 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
