package api

import "encoding/json"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Action describes a queued action in a transport-friendly format.
type Action struct {
	ID           string          `json:"id"`
	Seq          int64           `json:"seq"`
	Type         string          `json:"type"`
	Label        string          `json:"label"`
	Status       string          `json:"status"`
	RetryCount   int             `json:"retryCount"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	ErrorKind    string          `json:"errorKind,omitempty"`
	Permanent    bool            `json:"permanent"`
	EnqueuedAt   string          `json:"enqueuedAt,omitempty"`
	UpdatedAt    string          `json:"updatedAt,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

// SyncStatus summarizes coordinator state.
type SyncStatus struct {
	PendingCount            int    `json:"pendingCount"`
	InFlightCount           int    `json:"inFlightCount"`
	FailedCount             int    `json:"failedCount"`
	IsSyncing               bool   `json:"isSyncing"`
	LastSyncDate            string `json:"lastSyncDate,omitempty"`
	SyncStatus              string `json:"syncStatus"`
	Online                  bool   `json:"online"`
	ConnectivityDescription string `json:"connectivityDescription"`
	UpdatedAt               string `json:"updatedAt,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool       `json:"running"`
	PID          int        `json:"pid"`
	QueueDBPath  string     `json:"queueDbPath"`
	LockFilePath string     `json:"lockFilePath"`
	APIBind      string     `json:"apiBind,omitempty"`
	Netlink      bool       `json:"netlinkMonitoring"`
	Sync         SyncStatus `json:"sync"`
}

// QueueStatsResponse provides a normalized queue stats payload.
type QueueStatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// ActionListResponse wraps a collection of actions for API responses.
type ActionListResponse struct {
	Actions []Action `json:"actions"`
}

// EnqueueRequest is the body accepted when queueing an action.
type EnqueueRequest struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// SyncResult reports the outcome of a full sync request.
type SyncResult struct {
	Skipped   bool   `json:"skipped"`
	Attempted int    `json:"attempted"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
	Status    string `json:"status"`
}

// RetryResult reports the outcome of a single retry.
type RetryResult struct {
	ID        string  `json:"id"`
	Succeeded bool    `json:"succeeded"`
	Error     string  `json:"error,omitempty"`
	ErrorKind string  `json:"errorKind,omitempty"`
	Action    *Action `json:"action,omitempty"`
}

// RetryAllResult reports the outcome of retrying every failed action.
type RetryAllResult struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// DismissResult reports how many actions were removed.
type DismissResult struct {
	Removed int64 `json:"removed"`
}

// RequeueRequest selects failed actions to requeue. No ids means all.
type RequeueRequest struct {
	IDs []string `json:"ids,omitempty"`
}

// RequeueResult reports how many failed actions moved back to pending.
type RequeueResult struct {
	Updated int64 `json:"updated"`
}
