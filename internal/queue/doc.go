// Package queue persists queued actions in SQLite and exposes the transitions
// that drive their lifecycle.
//
// An action enters as pending, moves to in_flight while the backend is being
// called, and either disappears (completion is deletion) or lands in failed
// with an incremented retry count and the last error. Failed actions stay until
// they are retried successfully or dismissed. Ordering is always enqueue order.
//
// The Store also keeps small sync metadata (the last successful sync time) and
// offers stats, health, and integrity diagnostics. Schema changes bump the
// version in schema.go; users clear the database to adopt the new schema.
package queue
