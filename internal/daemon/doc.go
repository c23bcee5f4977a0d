// Package daemon coordinates the long-running PetSync process and its
// integration points.
//
// It wires configuration, queue storage, the connectivity observer and the
// sync coordinator into a single lifecycle with flock-based locking to prevent
// multiple instances. The daemon exposes queue helpers used by the IPC and
// HTTP layers, recovers actions left in flight by a previous run, and serves
// the optional HTTP status API.
//
// Keep orchestration logic here: sync policy lives in internal/syncer and
// reachability in internal/connectivity while the daemon focuses on startup,
// shutdown, and high level coordination.
package daemon
