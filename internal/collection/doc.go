// Package collection projects a listmodel.Store through a filter and an
// ordering.
//
// # Overview
//
// A Collection exposes the same read contract as the store it observes: Len,
// At, Field and Roles, plus change notifications. Row i of the collection is
// row SourceRow(i) of the source.
//
// # Ordering
//
// A Comparator takes precedence over Sorts, which take precedence over
// SortOptions.Role. Without any of them, rows keep source order. Ties always
// keep source order. Descending reverses every ordering. Sorts and the sort
// role are resolved through the source, so attached properties sort like
// record fields.
//
// # Notifications
//
// The mapping is rebuilt on every source change and compared with the
// previous one. When the difference is a single contiguous insertion, removal
// or in place change, observers receive exactly that; otherwise a reset.
// Roles discovered by the source are forwarded before the reset.
//
// # Declarative views
//
// Filter and Sort describe a view in configuration files. MatchFilters turns
// filters into a Predicate; sorts go in Options.Sorts.
package collection
