package ipc

import (
	"encoding/json"

	"petsync/internal/api"
)

// Action mirrors the HTTP API action DTO for IPC callers.
type Action = api.Action

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse wraps the daemon status payload.
type StatusResponse struct {
	Status api.DaemonStatus `json:"status"`
}

// StopRequest asks the daemon process to exit.
type StopRequest struct{}

// StopResponse indicates whether shutdown was initiated.
type StopResponse struct {
	Stopping bool `json:"stopping"`
}

// SyncRequest runs a full sync pass.
type SyncRequest struct{}

// SyncResponse reports the pass outcome.
type SyncResponse struct {
	Result api.SyncResult `json:"result"`
}

// ActionListRequest filters actions by status.
type ActionListRequest struct {
	Statuses []string `json:"statuses"`
}

// ActionListResponse contains queued actions in enqueue order.
type ActionListResponse struct {
	Actions []Action `json:"actions"`
}

// ActionEnqueueRequest queues a new action.
type ActionEnqueueRequest struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ActionEnqueueResponse returns the stored action.
type ActionEnqueueResponse struct {
	Action Action `json:"action"`
}

// ActionRetryRequest retries one failed action.
type ActionRetryRequest struct {
	ID string `json:"id"`
}

// ActionRetryResponse reports the retry outcome.
type ActionRetryResponse struct {
	Result api.RetryResult `json:"result"`
}

// ActionRetryAllRequest retries every eligible failed action.
type ActionRetryAllRequest struct{}

// ActionRetryAllResponse summarizes a retry-all run.
type ActionRetryAllResponse struct {
	Result api.RetryAllResult `json:"result"`
}

// ActionDismissRequest removes one failed action.
type ActionDismissRequest struct {
	ID string `json:"id"`
}

// ActionDismissResponse reports how many actions were removed.
type ActionDismissResponse struct {
	Removed int64 `json:"removed"`
}

// ActionDismissAllRequest removes every failed action.
type ActionDismissAllRequest struct{}

// ActionDismissAllResponse reports how many actions were removed.
type ActionDismissAllResponse struct {
	Removed int64 `json:"removed"`
}

// ActionRequeueRequest moves failed actions back to pending. No ids means all.
type ActionRequeueRequest struct {
	IDs []string `json:"ids"`
}

// ActionRequeueResponse reports how many actions were requeued.
type ActionRequeueResponse struct {
	Updated int64 `json:"updated"`
}

// QueueHealthRequest fetches aggregate queue counts.
type QueueHealthRequest struct{}

// QueueHealthResponse reports aggregate queue counts.
type QueueHealthResponse struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	InFlight int `json:"in_flight"`
	Failed   int `json:"failed"`
}

// DatabaseHealthRequest fetches database diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse reports database diagnostics.
type DatabaseHealthResponse struct {
	DBPath           string   `json:"db_path"`
	DatabaseExists   bool     `json:"database_exists"`
	DatabaseReadable bool     `json:"database_readable"`
	SchemaVersion    int      `json:"schema_version"`
	TableExists      bool     `json:"table_exists"`
	MissingColumns   []string `json:"missing_columns"`
	IntegrityCheck   bool     `json:"integrity_check"`
	TotalActions     int      `json:"total_actions"`
	Error            string   `json:"error"`
}

// TestNotificationRequest sends a test notification.
type TestNotificationRequest struct{}

// TestNotificationResponse reports whether the notification was sent.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
