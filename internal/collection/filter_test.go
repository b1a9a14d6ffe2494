// Tests for declarative filters, sorts and value comparison.

package collection

import (
	"slices"
	"testing"
	"time"

	"github.com/maruel/gel/internal/listmodel"
	"github.com/maruel/gel/internal/record"
	"golang.org/x/text/language"
)

func TestMatchFilters(t *testing.T) {
	s := newStore(t,
		`{"id":"alice","name":"Alice","age":30,"active":true,"tags":["a","b"]}`,
		`{"id":"bob","name":"Bob","age":25,"active":false,"tags":[]}`,
		`{"id":"charlie","name":"Charlie","age":35,"active":true,"note":""}`,
	)
	tests := []struct {
		name    string
		filters []Filter
		want    []string
	}{
		{"equals", []Filter{{Property: "name", Operator: FilterOpEquals, Value: "Bob"}}, []string{"bob"}},
		{"equals is case sensitive", []Filter{{Property: "name", Operator: FilterOpEquals, Value: "bob"}}, nil},
		{"not equals", []Filter{{Property: "name", Operator: FilterOpNotEquals, Value: "Bob"}}, []string{"alice", "charlie"}},
		{"greater than", []Filter{{Property: "age", Operator: FilterOpGreaterThan, Value: 28}}, []string{"alice", "charlie"}},
		{"less than", []Filter{{Property: "age", Operator: FilterOpLessThan, Value: 30}}, []string{"bob"}},
		{"gte", []Filter{{Property: "age", Operator: FilterOpGreaterEqual, Value: 30}}, []string{"alice", "charlie"}},
		{"lte", []Filter{{Property: "age", Operator: FilterOpLessEqual, Value: 30}}, []string{"alice", "bob"}},
		{"numeric string", []Filter{{Property: "age", Operator: FilterOpEquals, Value: "25"}}, []string{"bob"}},
		{"bool", []Filter{{Property: "active", Operator: FilterOpEquals, Value: true}}, []string{"alice", "charlie"}},
		{"contains", []Filter{{Property: "name", Operator: FilterOpContains, Value: "LI"}}, []string{"alice", "charlie"}},
		{"not contains", []Filter{{Property: "name", Operator: FilterOpNotContains, Value: "li"}}, []string{"bob"}},
		{"contains element", []Filter{{Property: "tags", Operator: FilterOpContains, Value: "b"}}, []string{"alice"}},
		{"starts with", []Filter{{Property: "name", Operator: FilterOpStartsWith, Value: "a"}}, []string{"alice"}},
		{"ends with", []Filter{{Property: "name", Operator: FilterOpEndsWith, Value: "E"}}, []string{"alice", "charlie"}},
		{"is empty", []Filter{{Property: "tags", Operator: FilterOpIsEmpty}}, []string{"bob", "charlie"}},
		{"is not empty", []Filter{{Property: "note", Operator: FilterOpIsNotEmpty}}, nil},
		{"missing only matches is_empty", []Filter{{Property: "nope", Operator: FilterOpNotEquals, Value: 1}}, nil},
		{"unknown operator", []Filter{{Property: "name", Operator: "like", Value: "x"}}, nil},
		{"no property", []Filter{{Operator: FilterOpEquals, Value: "x"}}, []string{"alice", "bob", "charlie"}},
		{"all must match", []Filter{
			{Property: "active", Operator: FilterOpEquals, Value: true},
			{Property: "age", Operator: FilterOpLessThan, Value: 33},
		}, []string{"alice"}},
		{"and", []Filter{{And: []Filter{
			{Property: "age", Operator: FilterOpGreaterThan, Value: 20},
			{Property: "age", Operator: FilterOpLessThan, Value: 31},
		}}}, []string{"alice", "bob"}},
		{"or", []Filter{{Or: []Filter{
			{Property: "name", Operator: FilterOpEquals, Value: "Bob"},
			{Property: "age", Operator: FilterOpGreaterThan, Value: 33},
		}}}, []string{"bob", "charlie"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(s, Options{Predicate: MatchFilters(s, tt.filters), Logger: quietLogger()})
			if got := ids(c); !slices.Equal(got, tt.want) {
				t.Errorf("rows = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("empty", func(t *testing.T) {
		if MatchFilters(s, nil) != nil {
			t.Error("expected nil predicate")
		}
	})

	t.Run("attached", func(t *testing.T) {
		s := newStore(t, `{"id":"a","age":30}`, `{"id":"b","age":12}`)
		s.SetAttached("adult", listmodel.Computed(func(v record.Value, _ int) record.Value {
			age, _ := get(v, "age").Float()
			return record.Bool(age >= 18)
		}))
		c := New(s, Options{Predicate: MatchFilters(s, []Filter{
			{Property: "adult", Operator: FilterOpEquals, Value: true},
		}), Logger: quietLogger()})
		wantIDs(t, c, "a")
	})

	t.Run("without list", func(t *testing.T) {
		pred := MatchFilters(nil, []Filter{{Property: "p.n", Operator: FilterOpEquals, Value: 2}})
		if !pred(obj(t, `{"p":{"n":2}}`), 0) {
			t.Error("nested role should match")
		}
		if pred(obj(t, `{"p":{"n":3}}`), 0) {
			t.Error("nested role should not match")
		}
	})
}

func TestFilterValidate(t *testing.T) {
	valid := Filter{Or: []Filter{
		{Property: "a", Operator: FilterOpEquals, Value: 1},
		{And: []Filter{{Property: "b", Operator: FilterOpIsEmpty}}},
	}}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	invalid := Filter{And: []Filter{{Property: "a", Operator: "like"}}}
	if err := invalid.Validate(); err == nil {
		t.Error("expected error for unknown operator")
	}
}

func TestSorts(t *testing.T) {
	s := newStore(t,
		`{"id":"a","dept":"eng","name":"Zed","x":3}`,
		`{"id":"b","dept":"ops","name":"Amy","x":1}`,
		`{"id":"c","dept":"eng","name":"Bob","x":2}`,
	)
	s.SetAttached("rank", listmodel.Computed(func(v record.Value, _ int) record.Value {
		return get(v, "x")
	}))
	t.Run("multi", func(t *testing.T) {
		c, _ := newCollection(s, Options{Sorts: []Sort{
			{Property: "dept", Direction: SortAsc},
			{Property: "name", Direction: SortAsc},
		}})
		wantIDs(t, c, "c", "a", "b")
	})
	t.Run("desc", func(t *testing.T) {
		c, _ := newCollection(s, Options{Sorts: []Sort{
			{Property: "dept", Direction: SortDesc},
			{Property: "name"},
		}})
		wantIDs(t, c, "b", "c", "a")
	})
	t.Run("attached role", func(t *testing.T) {
		c, _ := newCollection(s, Options{Sorts: []Sort{{Property: "rank"}}})
		wantIDs(t, c, "b", "c", "a")
	})
	t.Run("descending flag", func(t *testing.T) {
		c, _ := newCollection(s, Options{
			Sorts: []Sort{{Property: "rank"}},
			Sort:  SortOptions{Descending: true},
		})
		wantIDs(t, c, "a", "c", "b")
	})
	t.Run("win over role", func(t *testing.T) {
		c, _ := newCollection(s, Options{
			Sorts: []Sort{{Property: "dept"}, {Property: "name", Direction: SortDesc}},
			Sort:  SortOptions{Role: "x"},
		})
		wantIDs(t, c, "a", "c", "b")
	})
	t.Run("comparator wins", func(t *testing.T) {
		c, _ := newCollection(s, Options{Comparator: byX, Sorts: []Sort{{Property: "name", Direction: SortDesc}}})
		wantIDs(t, c, "b", "c", "a")
		c.SetComparator(nil)
		wantIDs(t, c, "a", "c", "b")
	})
	t.Run("set sorts", func(t *testing.T) {
		c, rec := newCollection(s, Options{Sort: SortOptions{Role: "name"}})
		wantIDs(t, c, "b", "c", "a")
		c.SetSorts([]Sort{{Property: "rank", Direction: SortDesc}})
		wantEvents(t, rec, "reset")
		wantIDs(t, c, "a", "c", "b")
		if got := c.Sorts(); len(got) != 1 || got[0].Property != "rank" {
			t.Errorf("Sorts() = %v", got)
		}
		c.SetSorts(nil)
		wantIDs(t, c, "b", "c", "a")
	})
}

func TestValueComparer(t *testing.T) {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	ci := NewValueComparer(false, false, language.Und)
	cs := NewValueComparer(true, false, language.Und)
	tests := []struct {
		name string
		vc   *ValueComparer
		a, b record.Value
		want int
	}{
		{"undefined equal null", ci, record.Undefined(), record.Null(), 0},
		{"missing first", ci, record.Null(), record.Number(0), -1},
		{"present after missing", ci, record.String(""), record.Undefined(), 1},
		{"numbers", ci, record.Number(2), record.Number(10), -1},
		{"numeric string", ci, record.Number(10), record.String("9"), 1},
		{"string and number", ci, record.String("9"), record.Number(10), -1},
		{"text is not numeric", ci, record.Number(10), record.String("abc"), -1},
		{"bools", ci, record.Bool(false), record.Bool(true), -1},
		{"dates", ci, record.Date(day), record.Date(day.Add(time.Hour)), -1},
		{"case insensitive", ci, record.String("abc"), record.String("ABC"), 0},
		{"case sensitive", cs, record.String("B"), record.String("a"), -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.vc.Compare(tt.a, tt.b); got != tt.want {
				t.Errorf("Compare(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestDelta(t *testing.T) {
	rg := func(s, e int) listmodel.Range { return listmodel.Range{Start: s, End: e} }
	tests := []struct {
		name string
		got  delta
		want delta
	}{
		{"insert appended", insertDelta([]int{0, 1}, []int{0, 1, 2}, rg(2, 3)), delta{deltaInsert, rg(2, 3)}},
		{"insert sorted", insertDelta([]int{1, 0}, []int{1, 2, 0}, rg(2, 3)), delta{deltaInsert, rg(1, 2)}},
		{"insert middle", insertDelta([]int{0, 1}, []int{0, 1, 2}, rg(1, 2)), delta{deltaInsert, rg(1, 2)}},
		{"insert hidden", insertDelta([]int{0}, []int{0}, rg(1, 2)), delta{}},
		{"insert split", insertDelta([]int{0}, []int{1, 0, 2}, rg(1, 3)), resetDelta},
		{"insert reorders", insertDelta([]int{0, 1}, []int{1, 0, 2}, rg(2, 3)), resetDelta},
		{"remove", removeDelta([]int{0, 2, 1}, []int{0, 1}, rg(2, 3)), delta{deltaRemove, rg(1, 2)}},
		{"remove hidden", removeDelta([]int{0, 2}, []int{0, 1}, rg(1, 2)), delta{}},
		{"remove split", removeDelta([]int{2, 0, 1}, []int{0}, rg(1, 3)), resetDelta},
		{"remove with new row", removeDelta([]int{0, 1}, []int{0, 1}, rg(1, 2)), resetDelta},
		{"changed", changedDelta([]int{0, 2, 1}, []int{0, 2, 1}, rg(1, 3)), delta{deltaChanged, rg(1, 3)}},
		{"changed hidden", changedDelta([]int{0}, []int{0}, rg(1, 2)), delta{}},
		{"changed moved", changedDelta([]int{0, 1}, []int{1, 0}, rg(0, 1)), resetDelta},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %+v, want %+v", tt.got, tt.want)
			}
		})
	}
}
