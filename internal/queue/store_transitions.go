package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// MarkInFlight claims an action for a single attempt. Only pending and failed
// actions can be claimed, so an action never has two attempts outstanding.
func (s *Store) MarkInFlight(ctx context.Context, id string) (*Action, error) {
	return s.transition(ctx, id, "mark in flight",
		`UPDATE queued_actions SET status = ?, updated_at = ?
         WHERE id = ? AND status IN (?, ?)`,
		StatusInFlight, formatTime(time.Now()), id, StatusPending, StatusFailed,
	)
}

// MarkFailed records a failed attempt: the retry count is incremented and the
// error text and kind replace any previous values.
func (s *Store) MarkFailed(ctx context.Context, id string, kind ErrorKind, message string) (*Action, error) {
	if kind == "" {
		kind = ErrorKindUnknown
	}
	return s.transition(ctx, id, "mark failed",
		`UPDATE queued_actions
         SET status = ?, retry_count = retry_count + 1, error_message = ?, error_kind = ?, updated_at = ?
         WHERE id = ? AND status IN (?, ?)`,
		StatusFailed, nullableString(message), string(kind), formatTime(time.Now()), id, StatusInFlight, StatusPending,
	)
}

// MarkCompleted finishes an in-flight or pending action. Completion removes the
// action from the store.
func (s *Store) MarkCompleted(ctx context.Context, id string) error {
	_, err := s.transition(ctx, id, "mark completed",
		`DELETE FROM queued_actions WHERE id = ? AND status IN (?, ?)`,
		id, StatusInFlight, StatusPending,
	)
	return err
}

// transition runs a guarded single-row update and distinguishes a missing
// action from one whose current status forbids the change. It returns the
// action after the update, or nil when the row was deleted.
func (s *Store) transition(ctx context.Context, id, operation, query string, args ...any) (*Action, error) {
	ctx = ensureContext(ctx)
	var updated *Action
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			var status string
			err := tx.QueryRowContext(ctx, `SELECT status FROM queued_actions WHERE id = ?`, id).Scan(&status)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: %s", ErrNotFound, id)
			}
			if err != nil {
				return err
			}
			return fmt.Errorf("%w: %s is %s", ErrInvalidTransition, id, status)
		}
		row := tx.QueryRowContext(ctx, `SELECT `+actionColumns+` FROM queued_actions WHERE id = ?`, id)
		updated, err = scanAction(row)
		if errors.Is(err, sql.ErrNoRows) {
			updated = nil
			return nil
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return updated, nil
}

// Requeue moves failed actions back to pending so the next sync pass picks
// them up. With no ids every failed action is requeued.
func (s *Store) Requeue(ctx context.Context, ids ...string) (int64, error) {
	now := formatTime(time.Now())
	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE queued_actions SET status = ?, updated_at = ? WHERE status = ?`,
			StatusPending, now, StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("requeue failed actions: %w", err)
		}
		return res.RowsAffected()
	}

	args := make([]any, 0, len(ids)+3)
	args = append(args, StatusPending, now)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, StatusFailed)
	query := `UPDATE queued_actions SET status = ?, updated_at = ?
        WHERE id IN (` + makePlaceholders(len(ids)) + `) AND status = ?`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("requeue selected actions: %w", err)
	}
	return res.RowsAffected()
}

// ResetInFlight returns actions left in flight by an interrupted process to
// pending. The daemon calls it on start.
func (s *Store) ResetInFlight(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queued_actions SET status = ?, updated_at = ? WHERE status = ?`,
		StatusPending, formatTime(time.Now()), StatusInFlight,
	)
	if err != nil {
		return 0, fmt.Errorf("reset in-flight actions: %w", err)
	}
	return res.RowsAffected()
}
