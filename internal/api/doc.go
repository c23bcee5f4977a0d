// Package api defines wire-format types and converters shared by the IPC and
// HTTP layers. It translates queue and sync models into transport-friendly
// DTOs so the CLI and other consumers can render them without coupling to
// internal types.
//
// # Key Types
//
// Action: transport representation of a queued action with retry metadata and
// a display label.
//
// SyncStatus: coordinator snapshot (counts, syncing flag, last sync, status
// text, connectivity).
//
// DaemonStatus: aggregated runtime information for status commands.
//
// # Converters
//
// FromAction / FromActions: queue.Action -> Action.
//
// FromSyncState: syncer.State -> SyncStatus.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Enums (queue.Status, queue.ErrorKind) are
// exposed as lowercase strings. Timestamps use RFC3339 with milliseconds.
// Payloads pass through as json.RawMessage to avoid double-encoding.
package api
