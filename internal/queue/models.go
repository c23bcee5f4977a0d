package queue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a queued action.
type Status string

const (
	StatusPending  Status = "pending"
	StatusInFlight Status = "in_flight"
	StatusFailed   Status = "failed"

	// StatusCompleted is never stored; completing an action deletes it.
	StatusCompleted Status = "completed"
)

var storedStatuses = []Status{
	StatusPending,
	StatusInFlight,
	StatusFailed,
}

// ParseStatus converts a user supplied status string into a stored Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "inflight" || normalized == "in-flight" {
		normalized = StatusInFlight
	}
	for _, status := range storedStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// AllStatuses returns the statuses an action can hold while stored.
func AllStatuses() []Status {
	out := make([]Status, len(storedStatuses))
	copy(out, storedStatuses)
	return out
}

// ActionType discriminates the API mutation an action replays.
type ActionType string

const (
	ActionUpdateProfile     ActionType = "update_profile"
	ActionUpdatePreferences ActionType = "update_preferences"
	ActionSubmitStory       ActionType = "submit_story"
	ActionReportMissing     ActionType = "report_missing"
	ActionMarkFound         ActionType = "mark_found"
	ActionUpdatePrivacy     ActionType = "update_privacy"
)

var actionTypes = []ActionType{
	ActionUpdateProfile,
	ActionUpdatePreferences,
	ActionSubmitStory,
	ActionReportMissing,
	ActionMarkFound,
	ActionUpdatePrivacy,
}

// ActionTypes lists every known action type in a stable order.
func ActionTypes() []ActionType {
	out := make([]ActionType, len(actionTypes))
	copy(out, actionTypes)
	return out
}

// ParseActionType validates an action type, accepting dashes for underscores.
func ParseActionType(value string) (ActionType, error) {
	normalized := ActionType(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "-", "_"))
	for _, known := range actionTypes {
		if known == normalized {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidActionType, value)
}

// ErrorKind classifies the last failure recorded on an action.
type ErrorKind string

const (
	ErrorKindNetwork        ErrorKind = "network"
	ErrorKindServerRejected ErrorKind = "server_rejected"
	ErrorKindUnknown        ErrorKind = "unknown"
)

// Permanent reports whether retrying the same payload is expected to fail again.
func (k ErrorKind) Permanent() bool {
	return k == ErrorKindServerRejected
}

// Action is a deferred API mutation persisted in SQLite.
type Action struct {
	ID           string
	Seq          int64
	Type         ActionType
	Payload      json.RawMessage
	RetryCount   int
	ErrorMessage string
	ErrorKind    ErrorKind
	Status       Status
	EnqueuedAt   time.Time
	UpdatedAt    time.Time
}

// IsFailed reports whether the action is awaiting manual or automatic retry.
func (a *Action) IsFailed() bool {
	return a != nil && a.Status == StatusFailed
}

// HealthSummary describes aggregated queue counts per lifecycle state.
type HealthSummary struct {
	Total    int
	Pending  int
	InFlight int
	Failed   int
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int
	TableExists      bool
	MissingColumns   []string
	IntegrityCheck   bool
	TotalActions     int
	Error            string
}
