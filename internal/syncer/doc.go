// Package syncer coordinates replay of queued actions against the backend.
//
// The Coordinator owns the derived sync state (pending and failed counts,
// whether a pass is running, the last successful sync) and is the only
// component that moves actions through their lifecycle during a pass. At most
// one full sync or manual retry runs at a time; callers arriving while one is
// active are turned away rather than queued.
//
// Consumers observe state through State snapshots or Subscribe, and the
// coordinator reacts to connectivity transitions by starting a pass when the
// backend becomes reachable again.
package syncer
