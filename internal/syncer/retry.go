package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"petsync/internal/logging"
	"petsync/internal/notifications"
	"petsync/internal/queue"
	"petsync/internal/services"
)

// RetryOutcome describes a single manual retry.
type RetryOutcome struct {
	ID        string          `json:"id"`
	Succeeded bool            `json:"succeeded"`
	Dismissed bool            `json:"dismissed,omitempty"`
	Error     string          `json:"error,omitempty"`
	ErrorKind queue.ErrorKind `json:"error_kind,omitempty"`
	// Action is the stored action after a failed retry; nil after success.
	Action *queue.Action `json:"-"`
}

// RetrySummary describes a RetryAllFailedActions call.
type RetrySummary struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	// Skipped counts permanently rejected actions and actions at the retry cap.
	Skipped int `json:"skipped"`
}

// RetryFailedAction re-attempts exactly one failed action. Success removes
// it; failure increments its retry count and keeps it failed. The retry cap
// and permanent classification do not apply to an explicit single retry.
func (c *Coordinator) RetryFailedAction(ctx context.Context, id string) (RetryOutcome, error) {
	action, err := c.store.Get(ctx, id)
	if err != nil {
		return RetryOutcome{}, fmt.Errorf("load action: %w", err)
	}
	if action == nil || action.Status != queue.StatusFailed {
		return RetryOutcome{}, fmt.Errorf("%w: %s", ErrActionNotFound, id)
	}
	if !c.tryBegin(false, "Retrying "+ActionTypeDescription(action.Type)+"...") {
		return RetryOutcome{}, ErrSyncInProgress
	}
	defer c.end()

	ctx = services.WithRequestID(ctx, uuid.NewString())
	outcome := c.retryOne(ctx, action)

	status := "Retried " + ActionTypeDescription(action.Type)
	if !outcome.Succeeded {
		status = "Retry failed: " + outcome.Error
	}
	_ = c.refresh(ctx, status)
	return outcome, nil
}

func (c *Coordinator) retryOne(ctx context.Context, action *queue.Action) RetryOutcome {
	result := c.attempt(ctx, action)
	outcome := RetryOutcome{ID: action.ID, Succeeded: result.completed}
	switch {
	case result.completed:
	case result.dismissed:
		outcome.Dismissed = true
		outcome.Error = "action dismissed during retry"
	case errors.Is(result.err, errAttemptAborted):
		outcome.Error = "retry could not be recorded"
		outcome.ErrorKind = queue.ErrorKindUnknown
	default:
		outcome.Error = services.Message(result.err)
		outcome.ErrorKind = result.kind
		outcome.Action = result.action
	}
	return outcome
}

// RetryAllFailedActions retries, in enqueue order, every action that was
// failed when the call began. Actions rejected by the server and actions that
// reached queue.max_retries are skipped.
func (c *Coordinator) RetryAllFailedActions(ctx context.Context) (RetrySummary, error) {
	if !c.tryBegin(false, "Retrying failed changes...") {
		return RetrySummary{}, ErrSyncInProgress
	}
	defer c.end()

	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, c.logger)

	failed, err := c.store.ListFailed(ctx)
	if err != nil {
		_ = c.refresh(ctx, "Retry failed: "+err.Error())
		return RetrySummary{}, fmt.Errorf("list failed actions: %w", err)
	}

	summary := RetrySummary{}
	for _, action := range failed {
		if ctx.Err() != nil {
			break
		}
		if c.skipOnRetryAll(action) {
			summary.Skipped++
			logger.Debug("skipping failed action",
				logging.String(logging.FieldActionID, action.ID),
				logging.String("error_kind", string(action.ErrorKind)),
				logging.Int("retry_count", action.RetryCount),
			)
			continue
		}
		outcome := c.retryOne(ctx, action)
		if outcome.Dismissed {
			_ = c.refresh(ctx, "")
			continue
		}
		summary.Attempted++
		if outcome.Succeeded {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
		_ = c.refresh(ctx, "")
	}

	status := retryAllStatus(summary)
	_ = c.refresh(ctx, status)
	if len(failed) > 0 {
		logger.Info("retry all completed",
			logging.String(logging.FieldEventType, "retry_all_completed"),
			logging.Int("attempted", summary.Attempted),
			logging.Int("succeeded", summary.Succeeded),
			logging.Int("failed", summary.Failed),
			logging.Int("skipped", summary.Skipped),
		)
	}
	if summary.Failed > 0 {
		c.publish(ctx, notifications.EventSyncFailures, notifications.Payload{
			"synced": summary.Succeeded,
			"failed": summary.Failed,
		})
	}
	return summary, ctx.Err()
}

func (c *Coordinator) skipOnRetryAll(action *queue.Action) bool {
	if action.ErrorKind.Permanent() {
		return true
	}
	return c.maxRetries > 0 && action.RetryCount >= c.maxRetries
}

func retryAllStatus(summary RetrySummary) string {
	switch {
	case summary.Attempted == 0 && summary.Skipped == 0:
		return "No failed changes to retry"
	case summary.Attempted == 0:
		return fmt.Sprintf("%d failed %s need attention", summary.Skipped, plural(summary.Skipped, "change", "changes"))
	case summary.Failed == 0 && summary.Skipped == 0:
		return fmt.Sprintf("Retried %d %s", summary.Succeeded, plural(summary.Succeeded, "change", "changes"))
	default:
		return fmt.Sprintf("Retried %d of %d changes, %d still failing, %d skipped",
			summary.Succeeded, summary.Attempted, summary.Failed, summary.Skipped)
	}
}

// DismissFailedAction removes one failed action without contacting the
// backend.
func (c *Coordinator) DismissFailedAction(ctx context.Context, id string) error {
	action, err := c.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load action: %w", err)
	}
	if action == nil || action.Status != queue.StatusFailed {
		return fmt.Errorf("%w: %s", ErrActionNotFound, id)
	}
	removed, err := c.store.Remove(ctx, id)
	if err != nil {
		return fmt.Errorf("remove action: %w", err)
	}
	if !removed {
		return fmt.Errorf("%w: %s", ErrActionNotFound, id)
	}
	c.logger.Info("failed action dismissed",
		logging.String(logging.FieldEventType, "action_dismissed"),
		logging.String(logging.FieldActionID, id),
		logging.String(logging.FieldActionType, string(action.Type)),
	)
	_ = c.refresh(ctx, "Dismissed "+ActionTypeDescription(action.Type))
	return nil
}

// DismissAllFailedActions removes every failed action and returns how many
// were removed. Pending actions are untouched.
func (c *Coordinator) DismissAllFailedActions(ctx context.Context) (int64, error) {
	removed, err := c.store.RemoveAllFailed(ctx)
	if err != nil {
		return 0, fmt.Errorf("remove failed actions: %w", err)
	}
	if removed > 0 {
		c.logger.Info("failed actions dismissed",
			logging.String(logging.FieldEventType, "actions_dismissed"),
			logging.Int64("count", removed),
		)
	}
	_ = c.refresh(ctx, fmt.Sprintf("Dismissed %d failed %s", removed, plural(int(removed), "change", "changes")))
	return removed, nil
}
