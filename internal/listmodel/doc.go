// Package listmodel provides Store, a concurrent-safe, identity-keyed list of
// semi-structured records that a UI binding layer can consume.
//
// # Overview
//
// [Store] keeps records in insertion order, keyed by an identity derived from
// each record: the string form of a scalar, or the identity field (default
// "id") of an object. Inserting a record under an existing key replaces it in
// place; inserting the very same value again is a no-op.
//
// # Roles
//
// The store discovers roles, the field names exposed to the host, from the
// records it sees. Nested object fields are exposed under dotted names such as
// "address.city". Arrays are never flattened. Roles are append-only: once a
// role has a position it keeps it, so bound views can rely on it. In static
// mode only the first record of each call is inspected; in dynamic mode every
// record is.
//
// # Notifications
//
// Each mutation emits at most one notification to registered [Observer]s,
// chosen by priority: new roles (OnRolesAdded then OnReset), appended rows
// (OnInsert), updated rows (OnDataChanged). Notifications are computed while
// the write lock is held and delivered after it is released, so observers
// can read the store and always see the post-mutation state.
//
// # Errors
//
// Nothing in this package fails loudly. Rejected records are logged and
// passed to [Options.OnReject]; out-of-range reads return Undefined; unknown
// roles return [NoRole]; removing an unknown key does nothing.
package listmodel
