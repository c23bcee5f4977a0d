package api

import (
	"time"

	"petsync/internal/queue"
	"petsync/internal/syncer"
)

// FromAction converts a queue record to its API representation.
func FromAction(action *queue.Action) Action {
	if action == nil {
		return Action{}
	}
	dto := Action{
		ID:           action.ID,
		Seq:          action.Seq,
		Type:         string(action.Type),
		Label:        syncer.ActionTypeDescription(action.Type),
		Status:       string(action.Status),
		RetryCount:   action.RetryCount,
		ErrorMessage: action.ErrorMessage,
		ErrorKind:    string(action.ErrorKind),
		Permanent:    action.ErrorKind.Permanent(),
		EnqueuedAt:   formatTime(action.EnqueuedAt),
		UpdatedAt:    formatTime(action.UpdatedAt),
	}
	if len(action.Payload) > 0 {
		dto.Payload = append(dto.Payload, action.Payload...)
	}
	return dto
}

// FromActions converts a slice of queue records.
func FromActions(actions []*queue.Action) []Action {
	out := make([]Action, 0, len(actions))
	for _, action := range actions {
		if action == nil {
			continue
		}
		out = append(out, FromAction(action))
	}
	return out
}

// FromSyncState converts a coordinator snapshot.
func FromSyncState(state syncer.State) SyncStatus {
	dto := SyncStatus{
		PendingCount:            state.PendingCount,
		InFlightCount:           state.InFlightCount,
		FailedCount:             state.FailedCount,
		IsSyncing:               state.IsSyncing,
		SyncStatus:              state.SyncStatus,
		Online:                  state.Online,
		ConnectivityDescription: state.ConnectivityDescription,
		UpdatedAt:               formatTime(state.UpdatedAt),
	}
	if state.LastSyncDate != nil {
		dto.LastSyncDate = formatTime(*state.LastSyncDate)
	}
	return dto
}

// FromSyncResult converts a full sync result.
func FromSyncResult(result syncer.Result) SyncResult {
	return SyncResult{
		Skipped:   result.Skipped,
		Attempted: result.Attempted,
		Completed: result.Completed,
		Failed:    result.Failed,
		Status:    result.Status,
	}
}

// FromRetryOutcome converts a single retry outcome.
func FromRetryOutcome(outcome syncer.RetryOutcome) RetryResult {
	dto := RetryResult{
		ID:        outcome.ID,
		Succeeded: outcome.Succeeded,
		Error:     outcome.Error,
		ErrorKind: string(outcome.ErrorKind),
	}
	if outcome.Action != nil {
		action := FromAction(outcome.Action)
		dto.Action = &action
	}
	return dto
}

// FromRetrySummary converts a retry-all summary.
func FromRetrySummary(summary syncer.RetrySummary) RetryAllResult {
	return RetryAllResult{
		Attempted: summary.Attempted,
		Succeeded: summary.Succeeded,
		Failed:    summary.Failed,
		Skipped:   summary.Skipped,
	}
}

// MergeQueueStats converts status counts into a map keyed by status string,
// with every stored status present.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(queue.AllStatuses()))
	for _, status := range queue.AllStatuses() {
		out[string(status)] = stats[status]
	}
	return out
}

// ParseTime parses a timestamp produced by this package. It returns the zero
// time for empty or malformed values.
func ParseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(dateTimeFormat)
}
