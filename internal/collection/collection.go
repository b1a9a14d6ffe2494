package collection

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/maruel/gel/internal/listmodel"
	"github.com/maruel/gel/internal/record"
	"golang.org/x/text/language"
)

// Comparator orders two records. It returns a negative number when a sorts
// before b, a positive number when after, and zero for ties.
type Comparator func(a, b record.Value) int

// Predicate reports whether the record at source row row is visible.
type Predicate func(v record.Value, row int) bool

// Source is what a Collection projects. *listmodel.Store and *Collection both
// implement it, so projections can be chained.
type Source interface {
	listmodel.List
	AddObserver(o listmodel.Observer)
	RemoveObserver(o listmodel.Observer)
	Snapshot(deep bool) []record.Value
}

// SortOptions configures the role based ordering, used when no Comparator is
// set.
type SortOptions struct {
	// Role to sort on. No role and no Comparator keep source order.
	Role string
	// Descending reverses the ordering, including a Comparator's.
	Descending bool
	// CaseSensitive compares text exactly.
	CaseSensitive bool
	// LocaleAware collates text following Locale.
	LocaleAware bool
	// Locale defaults to the root collation.
	Locale language.Tag
}

// Options configures a Collection.
type Options struct {
	Comparator Comparator
	Predicate  Predicate
	// Sorts orders rows on several roles, resolved through the source like
	// Sort.Role so attached properties sort like record fields. A Comparator
	// wins over Sorts, which win over Sort.Role. Sort still provides the text
	// comparison settings and Descending.
	Sorts []Sort
	Sort  SortOptions
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Collection is a sorted and filtered view over a Source.
//
// It keeps a mapping from its rows to source rows, rebuilds it whenever the
// source or its own configuration changes, and republishes the smallest
// notification describing the difference. Rebuilds run one at a time on the
// goroutine that mutated the source or changed the configuration, so the
// Comparator and Predicate are never called concurrently. They must not
// reconfigure the Collection. Reads never wait for a rebuild.
//
// Like the Store, notifications are delivered on the mutating goroutine.
// When several goroutines mutate the source or reconfigure the Collection,
// the mapping always ends up matching the latest state but the order in which
// their notifications reach observers is unspecified.
type Collection struct {
	listmodel.Notifier

	// build serializes computing the mapping and swapping it in.
	build sync.Mutex

	mu      sync.RWMutex
	src     Source
	cmp     Comparator
	pred    Predicate
	sorts   []Sort
	sort    SortOptions
	rows    []int
	pending []string

	log *slog.Logger
}

// New creates a Collection over src, which may be nil.
func New(src Source, opts Options) *Collection {
	c := &Collection{
		cmp:   opts.Comparator,
		pred:  opts.Predicate,
		sorts: slices.Clone(opts.Sorts),
		sort:  opts.Sort,
		log:   opts.Logger,
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	if src != nil {
		c.build.Lock()
		c.src = src
		src.AddObserver(c)
		rows := c.mapping()
		c.mu.Lock()
		c.rows = rows
		c.mu.Unlock()
		c.build.Unlock()
	}
	return c
}

// Source returns the projected source.
func (c *Collection) Source() Source {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.src
}

// SetSource detaches from the current source and projects src instead.
// Observers see a reset.
func (c *Collection) SetSource(src Source) {
	c.mu.Lock()
	old := c.src
	if old == src {
		c.mu.Unlock()
		return
	}
	c.src = src
	c.mu.Unlock()
	if old != nil {
		old.RemoveObserver(c)
	}
	if src != nil {
		src.AddObserver(c)
	}
	c.invalidate("source")
}

// SetComparator replaces the ordering function. A nil Comparator falls back to
// Sorts, then the sort role.
func (c *Collection) SetComparator(f Comparator) {
	c.mu.Lock()
	c.cmp = f
	c.mu.Unlock()
	c.invalidate("comparator")
}

// SetPredicate replaces the filter. A nil Predicate accepts every row.
func (c *Collection) SetPredicate(f Predicate) {
	c.mu.Lock()
	c.pred = f
	c.mu.Unlock()
	c.invalidate("predicate")
}

// Sorts returns the declarative multi-role ordering.
func (c *Collection) Sorts() []Sort {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.sorts)
}

// SetSorts orders rows on sorts when no Comparator is set. Empty sorts fall
// back to the sort role.
func (c *Collection) SetSorts(sorts []Sort) {
	c.mu.Lock()
	c.sorts = slices.Clone(sorts)
	c.mu.Unlock()
	c.invalidate("sorts")
}

// SortOptions returns the current role based ordering.
func (c *Collection) SortOptions() SortOptions {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sort
}

// SetSortOptions replaces the role based ordering.
func (c *Collection) SetSortOptions(so SortOptions) {
	c.updateSort(func(s *SortOptions) { *s = so })
}

// SetSortRole sorts on role when no Comparator is set.
func (c *Collection) SetSortRole(role string) {
	c.updateSort(func(s *SortOptions) { s.Role = role })
}

// SetDescending flips the ordering.
func (c *Collection) SetDescending(descending bool) {
	c.updateSort(func(s *SortOptions) { s.Descending = descending })
}

// SetCaseSensitive controls how text compares when sorting on a role.
func (c *Collection) SetCaseSensitive(caseSensitive bool) {
	c.updateSort(func(s *SortOptions) { s.CaseSensitive = caseSensitive })
}

// SetLocaleAware controls whether text is collated when sorting on a role.
func (c *Collection) SetLocaleAware(localeAware bool) {
	c.updateSort(func(s *SortOptions) { s.LocaleAware = localeAware })
}

func (c *Collection) updateSort(f func(*SortOptions)) {
	c.mu.Lock()
	old := c.sort
	f(&c.sort)
	changed := c.sort != old
	c.mu.Unlock()
	if changed {
		c.invalidate("sort")
	}
}

// ReSort recomputes the ordering. Call it when a Comparator depends on state
// outside the records.
func (c *Collection) ReSort() { c.invalidate("resort") }

// ReFilter recomputes the visible rows. Call it when a Predicate depends on
// state outside the records.
func (c *Collection) ReFilter() { c.invalidate("refilter") }

// Len returns the number of visible rows.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rows)
}

// SourceRow maps a row of the collection to its source row, or -1.
func (c *Collection) SourceRow(row int) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if row < 0 || row >= len(c.rows) {
		return -1
	}
	return c.rows[row]
}

// Row maps a source row to its row in the collection, or -1 when it is
// filtered out.
func (c *Collection) Row(sourceRow int) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Index(c.rows, sourceRow)
}

// At returns the record at row, or Undefined.
func (c *Collection) At(row int) record.Value {
	src, i := c.resolve(row)
	if i < 0 {
		return record.Undefined()
	}
	return src.At(i)
}

// Field returns the value of role for the record at row, as the source
// resolves it.
func (c *Collection) Field(row int, role string) record.Value {
	src, i := c.resolve(row)
	if i < 0 {
		return record.Undefined()
	}
	return src.Field(i, role)
}

// Roles returns the roles of the source.
func (c *Collection) Roles() []string {
	src := c.Source()
	if src == nil {
		return nil
	}
	return src.Roles()
}

// Snapshot returns the visible records in order.
func (c *Collection) Snapshot(deep bool) []record.Value {
	c.mu.RLock()
	src, rows := c.src, c.rows
	c.mu.RUnlock()
	if src == nil {
		return nil
	}
	all := src.Snapshot(deep)
	out := make([]record.Value, 0, len(rows))
	for _, i := range rows {
		if i < len(all) {
			out = append(out, all[i])
		}
	}
	return out
}

func (c *Collection) resolve(row int) (Source, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.src == nil || row < 0 || row >= len(c.rows) {
		return nil, -1
	}
	return c.src, c.rows[row]
}

// OnRolesAdded implements listmodel.RolesObserver. The roles are forwarded
// with the reset that always follows.
func (c *Collection) OnRolesAdded(roles []string) {
	c.mu.Lock()
	c.pending = append(c.pending, roles...)
	c.mu.Unlock()
}

// OnReset implements listmodel.Observer.
func (c *Collection) OnReset() {
	c.apply(func(_, _ []int) delta { return delta{kind: deltaReset} })
}

// OnInsert implements listmodel.Observer.
func (c *Collection) OnInsert(r listmodel.Range) {
	c.apply(func(old, fresh []int) delta { return insertDelta(old, fresh, r) })
}

// OnRemove implements listmodel.Observer.
func (c *Collection) OnRemove(r listmodel.Range) {
	c.apply(func(old, fresh []int) delta { return removeDelta(old, fresh, r) })
}

// OnDataChanged implements listmodel.Observer.
func (c *Collection) OnDataChanged(r listmodel.Range) {
	c.apply(func(old, fresh []int) delta { return changedDelta(old, fresh, r) })
}

func (c *Collection) invalidate(reason string) {
	start := time.Now()
	c.OnReset()
	c.log.Debug("Collection rebuilt", "reason", reason, "rows", c.Len(), "dur", time.Since(start))
}

// apply rebuilds the mapping and publishes what classify reports.
func (c *Collection) apply(classify func(old, fresh []int) delta) {
	c.build.Lock()
	fresh := c.mapping()
	c.mu.Lock()
	old := c.rows
	c.rows = fresh
	roles := c.pending
	c.pending = nil
	c.mu.Unlock()
	d := classify(old, fresh)
	c.build.Unlock()

	if len(roles) != 0 {
		c.NotifyRolesAdded(roles)
		return
	}
	switch d.kind {
	case deltaReset:
		c.NotifyReset()
	case deltaInsert:
		c.NotifyInsert(d.r)
	case deltaRemove:
		c.NotifyRemove(d.r)
	case deltaChanged:
		c.NotifyDataChanged(d.r)
	case deltaNone:
	}
}

// mapping computes the visible source rows in order for the current
// configuration. c.build must be held; c.mu is not held while calling the
// predicate or comparator.
func (c *Collection) mapping() []int {
	c.mu.RLock()
	src, cmpFn, pred, sorts, so := c.src, c.cmp, c.pred, c.sorts, c.sort
	c.mu.RUnlock()
	if src == nil {
		return nil
	}
	recs := src.Snapshot(false)
	rows := make([]int, 0, len(recs))
	for i, v := range recs {
		if pred == nil || pred(v, i) {
			rows = append(rows, i)
		}
	}
	sign := 1
	if so.Descending {
		sign = -1
	}
	switch {
	case cmpFn != nil:
		slices.SortStableFunc(rows, func(a, b int) int {
			return sign * cmpFn(recs[a], recs[b])
		})
	case len(sorts) != 0 || so.Role != "":
		if len(sorts) == 0 {
			sorts = []Sort{{Property: so.Role}}
		}
		keys := make([][]record.Value, len(recs))
		for _, i := range rows {
			k := make([]record.Value, len(sorts))
			for j := range sorts {
				k[j] = src.Field(i, sorts[j].Property)
			}
			keys[i] = k
		}
		vc := NewValueComparer(so.CaseSensitive, so.LocaleAware, so.Locale)
		slices.SortStableFunc(rows, func(a, b int) int {
			return sign * compareKeys(sorts, keys[a], keys[b], vc)
		})
	}
	return rows
}
