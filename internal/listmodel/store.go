package listmodel

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"maps"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/maruel/gel/internal/record"
	"golang.org/x/time/rate"
)

var (
	// ErrNoIdentity is reported when a structured record lacks a scalar
	// identity field.
	ErrNoIdentity = errors.New("record has no identity field")
	// ErrInvalidRecord is reported for records that are neither scalars nor
	// objects.
	ErrInvalidRecord = errors.New("record is neither a scalar nor an object")
)

// DefaultIDAttribute is the identity field used when none is configured.
const DefaultIDAttribute = "id"

// Options configures a [Store].
type Options struct {
	// IDAttribute names the field holding the identity of structured records.
	// Defaults to DefaultIDAttribute.
	IDAttribute string
	// DynamicRoles discovers roles from every inserted record. When false,
	// only the first record of each Add or AddAll call is inspected.
	DynamicRoles bool
	// Attached are synthetic roles merged into the schema, in name order.
	Attached map[string]Attached
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// OnReject is called for every record that could not be stored, after the
	// store lock was released.
	OnReject func(v record.Value, err error)
}

// Store is an identity-keyed, insertion-ordered collection of records.
//
// It discovers roles from the records it sees and notifies observers with the
// smallest change describing each mutation. Reads are safe from any
// goroutine; mutations are expected from a single owner goroutine.
type Store struct {
	Notifier

	mu           sync.RWMutex
	idAttribute  string
	dynamicRoles bool
	items        map[string]record.Value
	keys         []string
	pos          map[string]int
	roles        roleSet
	attached     map[string]Attached

	log      *slog.Logger
	onReject func(record.Value, error)
	warn     rate.Sometimes
}

type rejection struct {
	v   record.Value
	err error
}

// New creates an empty Store.
func New(opts Options) *Store {
	s := &Store{
		idAttribute:  opts.IDAttribute,
		dynamicRoles: opts.DynamicRoles,
		items:        make(map[string]record.Value),
		pos:          make(map[string]int),
		attached:     make(map[string]Attached, len(opts.Attached)),
		log:          opts.Logger,
		onReject:     opts.OnReject,
		warn:         rate.Sometimes{First: 10, Interval: 10 * time.Second},
	}
	if s.idAttribute == "" {
		s.idAttribute = DefaultIDAttribute
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	for _, name := range slices.Sorted(maps.Keys(opts.Attached)) {
		a := opts.Attached[name]
		s.attached[name] = a
		s.roles.add(name, a.columnType(), true)
	}
	return s
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

// At returns the record at row, or Undefined when row is out of range.
func (s *Store) At(row int) record.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if row < 0 || row >= len(s.keys) {
		return record.Undefined()
	}
	return s.items[s.keys[row]]
}

// Get returns the record stored under key.
func (s *Store) Get(key string) (record.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

// Key returns the identity key at row, or "" when row is out of range.
func (s *Store) Key(row int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if row < 0 || row >= len(s.keys) {
		return ""
	}
	return s.keys[row]
}

// IndexOf returns the row of key, or -1.
func (s *Store) IndexOf(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i, ok := s.pos[key]; ok {
		return i
	}
	return -1
}

// Keys returns the identity keys in row order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.keys)
}

// All iterates over a snapshot of the rows taken when iteration starts.
func (s *Store) All() iter.Seq2[int, record.Value] {
	return func(yield func(int, record.Value) bool) {
		for i, v := range s.Snapshot(false) {
			if !yield(i, v) {
				return
			}
		}
	}
}

// Snapshot returns all records in row order. When deep is true every
// structured record is deep copied, so the caller can mutate the result.
func (s *Store) Snapshot(deep bool) []record.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]record.Value, len(s.keys))
	for i, k := range s.keys {
		v := s.items[k]
		if deep {
			v = record.DeepCopy(v)
		}
		out[i] = v
	}
	return out
}

// Field returns the value of role for the record at row.
//
// Scalar records resolve to themselves for any role that is not an attached
// property. Structured records resolve the dotted role path, then fall back
// to the attached property of that name, then to Undefined.
func (s *Store) Field(row int, role string) record.Value {
	s.mu.RLock()
	if row < 0 || row >= len(s.keys) {
		s.mu.RUnlock()
		return record.Undefined()
	}
	rec := s.items[s.keys[row]]
	a, isAttached := s.attached[role]
	s.mu.RUnlock()
	// Computed properties run outside the lock so they may read the store.
	if rec.IsScalar() {
		if isAttached {
			return a.resolve(rec, row)
		}
		return rec
	}
	if v, ok := rec.Lookup(role); ok {
		return v
	}
	if isAttached {
		return a.resolve(rec, row)
	}
	return record.Undefined()
}

// FieldByID is Field with a role position as returned by RoleID.
func (s *Store) FieldByID(row, id int) record.Value {
	name := s.RoleName(id)
	if name == "" {
		return record.Undefined()
	}
	return s.Field(row, name)
}

// Roles returns the discovered role names in position order.
func (s *Store) Roles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roles.names()
}

// Columns returns the discovered roles with their inferred types.
func (s *Store) Columns() []Column {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roles.clone()
}

// RoleID returns the stable position of role, or NoRole.
func (s *Store) RoleID(role string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roles.id(role)
}

// RoleName returns the role at position id, or "".
func (s *Store) RoleName(id int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roles.name(id)
}

// IDAttribute returns the field naming the identity of structured records.
func (s *Store) IDAttribute() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idAttribute
}

// SetIDAttribute changes the identity field. Records already stored keep
// their keys.
func (s *Store) SetIDAttribute(name string) {
	if name == "" {
		name = DefaultIDAttribute
	}
	s.mu.Lock()
	old := s.idAttribute
	s.idAttribute = name
	s.mu.Unlock()
	if old != name {
		s.log.Debug("Identity attribute changed", "from", old, "to", name)
	}
}

// DynamicRoles reports whether every inserted record is inspected for roles.
func (s *Store) DynamicRoles() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dynamicRoles
}

// SetDynamicRoles switches between dynamic and static role discovery.
func (s *Store) SetDynamicRoles(dynamic bool) {
	s.mu.Lock()
	s.dynamicRoles = dynamic
	s.mu.Unlock()
}

// SetAttached adds or replaces the attached property name.
//
// A new name is appended to the roles, which resets observers. Replacing an
// existing property reports every row as changed.
func (s *Store) SetAttached(name string, a Attached) {
	s.mu.Lock()
	s.attached[name] = a
	var c change
	if s.roles.add(name, a.columnType(), true) {
		c = change{kind: changeReset, roles: []string{name}}
	} else if n := len(s.keys); n != 0 {
		c = change{kind: changeDataChanged, r: Range{0, n}}
	}
	s.mu.Unlock()
	s.publish(c)
}

// Add inserts or updates records. An array is a batch: each element is a
// record. Anything else is a single record.
func (s *Store) Add(v record.Value) {
	if v.IsArray() {
		batch := make([]record.Value, 0, v.Len())
		for _, e := range v.Elements() {
			batch = append(batch, e)
		}
		s.AddAll(batch)
		return
	}
	s.AddAll([]record.Value{v})
}

// AddAll inserts or updates a batch of records and emits exactly one
// notification for the whole batch.
//
// A record whose key is new is appended. A record whose key exists replaces
// the stored record in place, unless it is the same value, in which case it
// is ignored. When new roles were discovered observers get OnRolesAdded and
// OnReset; otherwise appends yield OnInsert and pure updates OnDataChanged
// covering the first to last updated rows.
func (s *Store) AddAll(vs []record.Value) {
	if len(vs) == 0 {
		return
	}
	var rejected []rejection
	var added []string
	s.mu.Lock()
	oldLen := len(s.keys)
	first, last := math.MaxInt, -1
	discovered := false
	for _, v := range vs {
		key, err := s.keyLocked(v)
		if err != nil {
			rejected = append(rejected, rejection{v, err})
			continue
		}
		if s.dynamicRoles || !discovered || v.IsScalar() {
			added = s.roles.discover(v, added)
			discovered = true
		}
		if row := s.putLocked(key, v); row >= 0 && row < oldLen {
			first = min(first, row)
			last = max(last, row)
		}
	}
	newLen := len(s.keys)
	s.mu.Unlock()

	s.reject(rejected)
	var c change
	switch {
	case len(added) != 0:
		c = change{kind: changeReset, roles: added}
	case newLen > oldLen:
		c = change{kind: changeInsert, r: Range{oldLen, newLen}}
	case last >= 0:
		c = change{kind: changeDataChanged, r: Range{first, last + 1}}
	}
	s.publish(c)
}

// Remove deletes the record identified by v, either a scalar key or a
// structured record carrying the identity field. Unknown keys are ignored.
func (s *Store) Remove(v record.Value) bool {
	s.mu.RLock()
	key, err := s.keyLocked(v)
	s.mu.RUnlock()
	if err != nil {
		s.log.Warn("Unable to remove record", "err", err)
		return false
	}
	return s.RemoveKey(key)
}

// RemoveKey deletes the record stored under key. Unknown keys are ignored.
func (s *Store) RemoveKey(key string) bool {
	s.mu.Lock()
	row, ok := s.pos[key]
	if !ok {
		s.mu.Unlock()
		s.log.Debug("Remove of unknown key", "key", key)
		return false
	}
	s.keys = slices.Delete(s.keys, row, row+1)
	delete(s.items, key)
	delete(s.pos, key)
	for i := row; i < len(s.keys); i++ {
		s.pos[s.keys[i]] = i
	}
	s.mu.Unlock()
	s.publish(change{kind: changeRemove, r: Range{row, row + 1}})
	return true
}

// Clear removes every record. Discovered roles are kept so views bound to
// role positions stay valid.
func (s *Store) Clear() {
	s.mu.Lock()
	n := len(s.keys)
	s.keys = nil
	s.items = make(map[string]record.Value)
	s.pos = make(map[string]int)
	s.mu.Unlock()
	if n != 0 {
		s.publish(change{kind: changeRemove, r: Range{0, n}})
	}
}

// KeyOf returns the identity key of v under the current identity attribute.
func (s *Store) KeyOf(v record.Value) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keyLocked(v)
}

func (s *Store) keyLocked(v record.Value) (string, error) {
	if v.IsScalar() {
		return v.String(), nil
	}
	if !v.IsObject() {
		return "", fmt.Errorf("%w: got %s", ErrInvalidRecord, v.Kind())
	}
	id, ok := v.Get(s.idAttribute)
	if !ok || !id.IsScalar() {
		return "", fmt.Errorf("%w %q", ErrNoIdentity, s.idAttribute)
	}
	return id.String(), nil
}

// putLocked stores v under key and returns its row, or -1 when v is the
// value already stored.
func (s *Store) putLocked(key string, v record.Value) int {
	if row, ok := s.pos[key]; ok {
		if record.Same(s.items[key], v) {
			return -1
		}
		s.items[key] = v
		return row
	}
	row := len(s.keys)
	s.keys = append(s.keys, key)
	s.pos[key] = row
	s.items[key] = v
	return row
}

func (s *Store) reject(rejected []rejection) {
	for _, r := range rejected {
		s.warn.Do(func() {
			s.log.Warn("Record rejected", "err", r.err)
		})
		if s.onReject != nil {
			s.onReject(r.v, r.err)
		}
	}
}
