package listmodel

import (
	"fmt"
	"sync"

	"github.com/maruel/gel/internal/record"
)

// List is the read side of the host binding contract. It is implemented by
// [Store] and by projections over it.
type List interface {
	Len() int
	At(row int) record.Value
	Field(row int, role string) record.Value
	Roles() []string
}

// Range is a half-open interval of rows [Start, End).
type Range struct {
	Start int
	End   int
}

// Len returns the number of rows in the range.
func (r Range) Len() int { return r.End - r.Start }

// Contains reports whether row is in the range.
func (r Range) Contains(row int) bool { return row >= r.Start && row < r.End }

func (r Range) String() string { return fmt.Sprintf("[%d,%d)", r.Start, r.End) }

// Observer receives change notifications from a [List].
//
// Notifications are delivered synchronously on the mutating goroutine after
// the list released its lock, so observers may read the list. Every
// notification describes state already visible to readers.
type Observer interface {
	// OnReset is called when all rows must be considered stale.
	OnReset()
	// OnInsert is called after rows were inserted at r.
	OnInsert(r Range)
	// OnRemove is called after the rows previously at r were removed.
	OnRemove(r Range)
	// OnDataChanged is called after the rows in r were replaced in place.
	OnDataChanged(r Range)
}

// RolesObserver is optionally implemented by an [Observer] that wants to know
// about newly discovered roles. OnRolesAdded is always followed by OnReset.
type RolesObserver interface {
	OnRolesAdded(roles []string)
}

// Funcs adapts plain functions to [Observer] and [RolesObserver]. Nil fields
// are skipped. Register it by pointer.
type Funcs struct {
	Reset       func()
	Insert      func(Range)
	Remove      func(Range)
	DataChanged func(Range)
	RolesAdded  func([]string)
}

// OnReset implements [Observer].
func (f *Funcs) OnReset() {
	if f.Reset != nil {
		f.Reset()
	}
}

// OnInsert implements [Observer].
func (f *Funcs) OnInsert(r Range) {
	if f.Insert != nil {
		f.Insert(r)
	}
}

// OnRemove implements [Observer].
func (f *Funcs) OnRemove(r Range) {
	if f.Remove != nil {
		f.Remove(r)
	}
}

// OnDataChanged implements [Observer].
func (f *Funcs) OnDataChanged(r Range) {
	if f.DataChanged != nil {
		f.DataChanged(r)
	}
}

// OnRolesAdded implements [RolesObserver].
func (f *Funcs) OnRolesAdded(roles []string) {
	if f.RolesAdded != nil {
		f.RolesAdded(roles)
	}
}

type changeKind int

const (
	changeNone changeKind = iota
	changeReset
	changeInsert
	changeRemove
	changeDataChanged
)

// change is the single notification computed by a mutation while locked and
// delivered once unlocked.
type change struct {
	kind  changeKind
	r     Range
	roles []string
}

func (c change) deliver(observers []Observer) {
	if c.kind == changeNone {
		return
	}
	if len(c.roles) != 0 {
		for _, o := range observers {
			if ro, ok := o.(RolesObserver); ok {
				ro.OnRolesAdded(c.roles)
			}
		}
	}
	for _, o := range observers {
		switch c.kind {
		case changeReset:
			o.OnReset()
		case changeInsert:
			o.OnInsert(c.r)
		case changeRemove:
			o.OnRemove(c.r)
		case changeDataChanged:
			o.OnDataChanged(c.r)
		case changeNone:
		}
	}
}

// Notifier keeps a list of observers and broadcasts changes to them. It is
// embedded by [Store] and reusable by projections that expose the same
// contract.
type Notifier struct {
	mu        sync.Mutex
	observers []Observer
}

// AddObserver registers o. Observers must be comparable, typically pointers.
func (n *Notifier) AddObserver(o Observer) {
	n.mu.Lock()
	n.observers = append(n.observers, o)
	n.mu.Unlock()
}

// RemoveObserver unregisters o. Unknown observers are ignored.
func (n *Notifier) RemoveObserver(o Observer) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, x := range n.observers {
		if x == o {
			n.observers = append(n.observers[:i:i], n.observers[i+1:]...)
			return
		}
	}
}

func (n *Notifier) snapshot() []Observer {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.observers
}

func (n *Notifier) publish(c change) {
	c.deliver(n.snapshot())
}

// NotifyReset broadcasts OnReset.
func (n *Notifier) NotifyReset() { n.publish(change{kind: changeReset}) }

// NotifyRolesAdded broadcasts OnRolesAdded followed by OnReset.
func (n *Notifier) NotifyRolesAdded(roles []string) {
	n.publish(change{kind: changeReset, roles: roles})
}

// NotifyInsert broadcasts OnInsert.
func (n *Notifier) NotifyInsert(r Range) { n.publish(change{kind: changeInsert, r: r}) }

// NotifyRemove broadcasts OnRemove.
func (n *Notifier) NotifyRemove(r Range) { n.publish(change{kind: changeRemove, r: r}) }

// NotifyDataChanged broadcasts OnDataChanged.
func (n *Notifier) NotifyDataChanged(r Range) { n.publish(change{kind: changeDataChanged, r: r}) }
