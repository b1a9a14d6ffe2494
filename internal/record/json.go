// Decodes and encodes Values as JSON, preserving object field order.

package record

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/buger/jsonparser"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	errEmptyDocument = errors.New("empty JSON document")
	errMalformed     = errors.New("malformed JSON document")
)

// Parse decodes a single JSON document into a Value.
//
// Object fields keep their document order, which drives the order in which
// roles are discovered. Anything but whitespace after the document is an
// error.
func Parse(data []byte) (Value, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Value{}, errEmptyDocument
	}
	// jsonparser is lenient about trailing commas and unbalanced brackets.
	if !json.Valid(data) {
		return Value{}, fmt.Errorf("failed to parse JSON: %w", errMalformed)
	}
	raw, typ, end, err := jsonparser.Get(data)
	if err != nil {
		return Value{}, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if rest := bytes.TrimSpace(data[end:]); len(rest) != 0 {
		return Value{}, fmt.Errorf("failed to parse JSON: %w: trailing data %q", errMalformed, rest)
	}
	return fromRaw(raw, typ)
}

func fromRaw(raw []byte, typ jsonparser.ValueType) (Value, error) {
	switch typ {
	case jsonparser.String:
		s, err := jsonparser.ParseString(raw)
		if err != nil {
			return Value{}, fmt.Errorf("invalid string: %w", err)
		}
		return String(s), nil
	case jsonparser.Number:
		f, err := jsonparser.ParseFloat(raw)
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", raw, err)
		}
		return Number(f), nil
	case jsonparser.Boolean:
		b, err := jsonparser.ParseBoolean(raw)
		if err != nil {
			return Value{}, fmt.Errorf("invalid boolean: %w", err)
		}
		return Bool(b), nil
	case jsonparser.Null:
		return Null(), nil
	case jsonparser.Object:
		m := orderedmap.New[string, Value]()
		err := jsonparser.ObjectEach(raw, func(key, val []byte, vt jsonparser.ValueType, _ int) error {
			// Keys arrive unescaped.
			name := string(key)
			f, err := fromRaw(val, vt)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			m.Set(name, f)
			return nil
		})
		if err != nil {
			return Value{}, err
		}
		return Value{kind: KindObject, obj: m}, nil
	case jsonparser.Array:
		var elems []Value
		var inner error
		_, err := jsonparser.ArrayEach(raw, func(val []byte, vt jsonparser.ValueType, _ int, err error) {
			if inner != nil {
				return
			}
			if err != nil {
				inner = err
				return
			}
			e, err := fromRaw(val, vt)
			if err != nil {
				inner = fmt.Errorf("[%d]: %w", len(elems), err)
				return
			}
			elems = append(elems, e)
		})
		if err == nil {
			err = inner
		}
		if err != nil {
			return Value{}, err
		}
		if elems == nil {
			elems = []Value{}
		}
		return Value{kind: KindArray, arr: &elems}, nil
	default:
		return Value{}, fmt.Errorf("unsupported JSON value %q", raw)
	}
}

// ReadJSONL decodes one Value per non-empty line of r.
func ReadJSONL(r io.Reader) ([]Value, error) {
	var out []Value
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}
		v, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return out, nil
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return v.AppendJSON(nil), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	p, err := Parse(data)
	if err != nil {
		return err
	}
	*v = p
	return nil
}

// AppendJSON appends the JSON encoding of v to buf. Undefined and non-finite
// numbers encode as null; undefined object fields are omitted.
func (v Value) AppendJSON(buf []byte) []byte {
	switch v.kind {
	case KindString:
		return appendString(buf, v.str)
	case KindNumber:
		if math.IsInf(v.num, 0) || math.IsNaN(v.num) {
			return append(buf, "null"...)
		}
		if isWhole(v.num) && math.Abs(v.num) < 1e21 {
			return strconv.AppendInt(buf, int64(v.num), 10)
		}
		return strconv.AppendFloat(buf, v.num, 'g', -1, 64)
	case KindBool:
		return strconv.AppendBool(buf, v.b)
	case KindDate:
		return appendString(buf, v.t.Format(time.RFC3339Nano))
	case KindObject:
		buf = append(buf, '{')
		first := true
		for p := v.obj.Oldest(); p != nil; p = p.Next() {
			if p.Value.kind == KindUndefined {
				continue
			}
			if !first {
				buf = append(buf, ',')
			}
			first = false
			buf = appendString(buf, p.Key)
			buf = append(buf, ':')
			buf = p.Value.AppendJSON(buf)
		}
		return append(buf, '}')
	case KindArray:
		buf = append(buf, '[')
		for i, e := range *v.arr {
			if i != 0 {
				buf = append(buf, ',')
			}
			buf = e.AppendJSON(buf)
		}
		return append(buf, ']')
	default:
		return append(buf, "null"...)
	}
}

func appendString(buf []byte, s string) []byte {
	// json.Marshal of a string cannot fail.
	b, _ := json.Marshal(s)
	return append(buf, b...)
}
