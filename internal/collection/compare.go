// Compares field values for sorting and filtering.

package collection

import (
	"cmp"
	"strings"

	"github.com/maruel/gel/internal/record"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ValueComparer orders field values of possibly different kinds.
//
// Missing values (undefined or null) sort first. Values of the same kind
// compare naturally; strings honor case sensitivity and, when a collator is
// configured, the locale. When one side of a mixed pair is a number or a bool,
// both are coerced to numbers. Whatever still differs compares by string form.
//
// A ValueComparer with a locale is not safe for concurrent use.
type ValueComparer struct {
	caseSensitive bool
	collator      *collate.Collator
}

// NewValueComparer returns a comparer. When localeAware is set, strings are
// collated following locale; language.Und selects the root collation.
func NewValueComparer(caseSensitive, localeAware bool, locale language.Tag) *ValueComparer {
	c := &ValueComparer{caseSensitive: caseSensitive}
	if localeAware {
		var opts []collate.Option
		if !caseSensitive {
			opts = append(opts, collate.IgnoreCase)
		}
		c.collator = collate.New(locale, opts...)
	}
	return c
}

// Compare returns -1, 0 or 1.
func (c *ValueComparer) Compare(a, b record.Value) int {
	am, bm := isMissing(a), isMissing(b)
	switch {
	case am && bm:
		return 0
	case am:
		return -1
	case bm:
		return 1
	}
	if a.Kind() != b.Kind() && (isNumeric(a) || isNumeric(b)) {
		a = record.Coerce(a, record.AffinityNUMERIC)
		b = record.Coerce(b, record.AffinityNUMERIC)
	}
	if a.Kind() == b.Kind() {
		switch a.Kind() {
		case record.KindString:
			as, _ := a.Str()
			bs, _ := b.Str()
			return c.compareStrings(as, bs)
		case record.KindNumber:
			af, _ := a.Float()
			bf, _ := b.Float()
			return cmp.Compare(af, bf)
		case record.KindBool:
			ab, _ := a.Boolean()
			bb, _ := b.Boolean()
			switch {
			case ab == bb:
				return 0
			case !ab:
				return -1
			default:
				return 1
			}
		case record.KindDate:
			at, _ := a.Time()
			bt, _ := b.Time()
			return at.Compare(bt)
		case record.KindUndefined, record.KindNull, record.KindObject, record.KindArray:
		}
	}
	return c.compareStrings(a.String(), b.String())
}

func (c *ValueComparer) compareStrings(a, b string) int {
	if c.collator != nil {
		return c.collator.CompareString(a, b)
	}
	if !c.caseSensitive {
		return cmp.Compare(strings.ToLower(a), strings.ToLower(b))
	}
	return cmp.Compare(a, b)
}

func isNumeric(v record.Value) bool {
	return record.KindAffinity(v.Kind()) == record.AffinityNUMERIC
}

func isMissing(v record.Value) bool {
	return v.Kind() == record.KindUndefined || v.Kind() == record.KindNull
}

// fieldOf resolves role on a record the way a store does, without attached
// properties: scalars resolve to themselves.
func fieldOf(v record.Value, role string) record.Value {
	if v.IsScalar() {
		return v
	}
	f, _ := v.Lookup(role)
	return f
}
