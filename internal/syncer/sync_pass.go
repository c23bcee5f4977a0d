package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"petsync/internal/logging"
	"petsync/internal/notifications"
	"petsync/internal/queue"
	"petsync/internal/services"
)

// Result summarizes one PerformFullSync call.
type Result struct {
	// Skipped is true when another pass or retry was already active.
	Skipped   bool          `json:"skipped"`
	Attempted int           `json:"attempted"`
	Completed int           `json:"completed"`
	Failed    int           `json:"failed"`
	Status    string        `json:"status"`
	Duration  time.Duration `json:"duration"`
}

// attemptOutcome is the result of driving one action through an attempt.
type attemptOutcome struct {
	completed bool
	// dismissed is set when the action was removed while the attempt ran.
	dismissed bool
	action    *queue.Action
	err       error
	kind      queue.ErrorKind
}

// PerformFullSync attempts every pending action in enqueue order. Failures
// are recorded on the action and never stop the pass. When a pass or retry
// is already running the call returns at once with Skipped set.
func (c *Coordinator) PerformFullSync(ctx context.Context) Result {
	if !c.tryBegin(true, "Syncing...") {
		c.logger.Debug("sync already in progress; skipping pass")
		return Result{Skipped: true, Status: c.State().SyncStatus}
	}
	defer c.end()

	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, c.logger)
	started := time.Now()

	pending, err := c.store.ListPending(ctx)
	if err != nil {
		status := "Sync failed: " + err.Error()
		logging.ErrorWithContext(logger, "failed to list pending actions", "sync_list_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue database access"),
			logging.String(logging.FieldImpact, "queued changes were not synced"),
		)
		_ = c.refresh(ctx, status)
		return Result{Status: status, Duration: time.Since(started)}
	}

	result := Result{}
	if len(pending) > 0 {
		_ = c.refresh(ctx, fmt.Sprintf("Syncing %d %s...", len(pending), plural(len(pending), "change", "changes")))
		logger.Info("sync pass started",
			logging.String(logging.FieldEventType, "sync_pass_started"),
			logging.Int("pending", len(pending)),
		)
	}

	for _, action := range pending {
		if ctx.Err() != nil {
			break
		}
		outcome := c.attempt(ctx, action)
		if errors.Is(outcome.err, errAttemptAborted) {
			continue
		}
		if outcome.dismissed {
			_ = c.refresh(ctx, "")
			continue
		}
		result.Attempted++
		if outcome.completed {
			result.Completed++
		} else {
			result.Failed++
		}
		_ = c.refresh(ctx, "")
	}

	if ctx.Err() == nil && (result.Completed > 0 || len(pending) == 0) {
		c.setLastSync(ctx, time.Now())
	}

	result.Status = passStatus(len(pending), result)
	result.Duration = time.Since(started)
	_ = c.refresh(ctx, result.Status)

	if len(pending) > 0 {
		logger.Info("sync pass completed",
			logging.String(logging.FieldEventType, "sync_pass_completed"),
			logging.Int("attempted", result.Attempted),
			logging.Int("completed", result.Completed),
			logging.Int("failed", result.Failed),
			logging.Duration("duration", result.Duration),
		)
	}

	switch {
	case result.Failed > 0:
		c.publish(ctx, notifications.EventSyncFailures, notifications.Payload{
			"synced": result.Completed,
			"failed": result.Failed,
		})
	case result.Completed > 0:
		c.publish(ctx, notifications.EventSyncCompleted, notifications.Payload{
			"synced": result.Completed,
		})
	}
	return result
}

var errAttemptAborted = errors.New("attempt aborted")

// attempt claims an action, sends it, and records the outcome. It returns
// errAttemptAborted when the action could not be claimed or the outcome
// could not be recorded, leaving the store untouched or the action in flight
// for startup recovery.
func (c *Coordinator) attempt(ctx context.Context, action *queue.Action) attemptOutcome {
	ctx = services.WithActionID(ctx, action.ID)
	ctx = services.WithActionType(ctx, string(action.Type))
	logger := logging.WithContext(ctx, c.logger)

	claimed, err := c.store.MarkInFlight(ctx, action.ID)
	if err != nil {
		if errors.Is(err, queue.ErrNotFound) || errors.Is(err, queue.ErrInvalidTransition) {
			logger.Debug("action no longer claimable; skipping", logging.Error(err))
		} else {
			logger.Warn("failed to claim action",
				logging.Error(err),
				logging.String(logging.FieldEventType, "action_claim_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
				logging.String(logging.FieldImpact, "action left for the next pass"),
			)
		}
		return attemptOutcome{err: errAttemptAborted}
	}
	_ = c.refresh(ctx, "")

	attemptErr := c.attempter.Attempt(ctx, claimed)
	if attemptErr != nil && ctx.Err() != nil {
		logger.Debug("attempt interrupted by shutdown; action left in flight", logging.Error(attemptErr))
		return attemptOutcome{err: errAttemptAborted}
	}

	if attemptErr == nil {
		if err := c.store.MarkCompleted(ctx, claimed.ID); err != nil {
			if errors.Is(err, queue.ErrNotFound) {
				logger.Debug("action dismissed during attempt")
				return attemptOutcome{completed: true}
			}
			logging.ErrorWithContext(logger, "failed to record completed action", "action_complete_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check queue database access"),
				logging.String(logging.FieldImpact, "action may be replayed after restart"),
			)
			return attemptOutcome{err: errAttemptAborted}
		}
		logger.Info("action synced",
			logging.String(logging.FieldEventType, "action_synced"),
		)
		return attemptOutcome{completed: true}
	}

	kind := services.Classify(attemptErr)
	message := services.Message(attemptErr)
	failed, err := c.store.MarkFailed(ctx, claimed.ID, kind, message)
	if err != nil {
		if errors.Is(err, queue.ErrNotFound) {
			logger.Debug("action dismissed during attempt", logging.Error(attemptErr))
			return attemptOutcome{dismissed: true, err: attemptErr, kind: kind}
		}
		logging.ErrorWithContext(logger, "failed to record failed action", "action_fail_record_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue database access"),
			logging.String(logging.FieldImpact, "action stays in flight until restart"),
		)
		return attemptOutcome{err: errAttemptAborted}
	}

	logging.WarnWithContext(logger, "action sync failed", "action_sync_failed",
		logging.Error(attemptErr),
		logging.String("error_kind", string(kind)),
		logging.Int("retry_count", failed.RetryCount),
		logging.String(logging.FieldErrorHint, failureHint(kind)),
		logging.String(logging.FieldImpact, "action kept as failed for retry or dismissal"),
	)
	if kind.Permanent() {
		c.publish(ctx, notifications.EventActionRejected, notifications.Payload{
			"label": actionLabel(failed),
			"type":  string(failed.Type),
			"error": message,
		})
	}
	return attemptOutcome{action: failed, err: attemptErr, kind: kind}
}

func failureHint(kind queue.ErrorKind) string {
	switch kind {
	case queue.ErrorKindNetwork:
		return "backend unreachable; the action is retried on the next sync"
	case queue.ErrorKindServerRejected:
		return "the backend refused the change; review the payload and dismiss or retry"
	default:
		return "inspect the error message and retry"
	}
}

func passStatus(pending int, result Result) string {
	switch {
	case pending == 0:
		return statusUpToDate
	case result.Failed == 0 && result.Completed == result.Attempted && result.Attempted == pending:
		return fmt.Sprintf("Synced %d %s", result.Completed, plural(result.Completed, "change", "changes"))
	case result.Failed == 0:
		return fmt.Sprintf("Synced %d of %d changes", result.Completed, pending)
	case result.Completed == 0:
		return fmt.Sprintf("Sync failed: %d %s could not be synced", result.Failed, plural(result.Failed, "change", "changes"))
	default:
		return fmt.Sprintf("Synced %d of %d changes, %d failed", result.Completed, pending, result.Failed)
	}
}

func plural(count int, singular, pluralForm string) string {
	if count == 1 {
		return singular
	}
	return pluralForm
}
