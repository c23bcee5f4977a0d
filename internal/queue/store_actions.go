package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Enqueue appends a pending action with a zero retry count. It returns
// ErrQueueFull when stored actions already reach the configured capacity.
func (s *Store) Enqueue(ctx context.Context, actionType ActionType, payload json.RawMessage) (*Action, error) {
	parsed, err := ParseActionType(string(actionType))
	if err != nil {
		return nil, err
	}
	if len(payload) > 0 && !json.Valid(payload) {
		return nil, ErrInvalidPayload
	}

	id := uuid.NewString()
	timestamp := formatTime(time.Now())

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if s.capacity > 0 {
			var count int
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM queued_actions`).Scan(&count); err != nil {
				return fmt.Errorf("count actions: %w", err)
			}
			if count >= s.capacity {
				return fmt.Errorf("%w: %d of %d slots used", ErrQueueFull, count, s.capacity)
			}
		}
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO queued_actions (
                id, action_type, payload, status, retry_count, enqueued_at, updated_at
            ) VALUES (?, ?, ?, ?, 0, ?, ?)`,
			id,
			string(parsed),
			nullableString(string(payload)),
			StatusPending,
			timestamp,
			timestamp,
		)
		if err != nil {
			return fmt.Errorf("insert action: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, id)
}

// Get fetches an action by identifier. It returns nil without error when absent.
func (s *Store) Get(ctx context.Context, id string) (*Action, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+actionColumns+` FROM queued_actions WHERE id = ?`, id)
	action, err := scanAction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get action: %w", err)
	}
	return action, nil
}

// List returns actions in enqueue order, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Action, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + actionColumns + ` FROM queued_actions`
	args := statusArgs(statuses)
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
	}
	query += ` ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	actions, err := scanActions(rows)
	if err != nil {
		return nil, fmt.Errorf("scan actions: %w", err)
	}
	return actions, nil
}

// ListPending returns pending actions in enqueue order.
func (s *Store) ListPending(ctx context.Context) ([]*Action, error) {
	return s.List(ctx, StatusPending)
}

// ListFailed returns failed actions in enqueue order.
func (s *Store) ListFailed(ctx context.Context) ([]*Action, error) {
	return s.List(ctx, StatusFailed)
}

// Remove deletes an action regardless of status. It reports whether a row was removed.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queued_actions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("remove action: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// RemoveAllFailed deletes every failed action.
func (s *Store) RemoveAllFailed(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queued_actions WHERE status = ?`, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("remove failed actions: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes every stored action.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queued_actions`)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}
