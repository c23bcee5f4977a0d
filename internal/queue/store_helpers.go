package queue

import (
	"database/sql"
	"errors"
	"time"
)

const actionColumns = "seq, id, action_type, payload, status, retry_count, error_message, error_kind, enqueued_at, updated_at"

func scanAction(scanner interface{ Scan(dest ...any) error }) (*Action, error) {
	var (
		seq          int64
		id           string
		actionType   string
		payload      sql.NullString
		status       string
		retryCount   int
		errorMessage sql.NullString
		errorKind    sql.NullString
		enqueuedRaw  sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&seq,
		&id,
		&actionType,
		&payload,
		&status,
		&retryCount,
		&errorMessage,
		&errorKind,
		&enqueuedRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	action := &Action{
		ID:           id,
		Seq:          seq,
		Type:         ActionType(actionType),
		Status:       Status(status),
		RetryCount:   retryCount,
		ErrorMessage: errorMessage.String,
		ErrorKind:    ErrorKind(errorKind.String),
	}
	if payload.Valid && payload.String != "" {
		action.Payload = []byte(payload.String)
	}
	if enqueued, err := parseTimeString(enqueuedRaw.String); err == nil {
		action.EnqueuedAt = enqueued
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		action.UpdatedAt = updated
	}
	return action, nil
}

func scanActions(rows *sql.Rows) ([]*Action, error) {
	defer rows.Close()
	var actions []*Action
	for rows.Next() {
		action, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}
	return actions, rows.Err()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func statusArgs(statuses []Status) []any {
	args := make([]any, 0, len(statuses))
	for _, status := range statuses {
		args = append(args, string(status))
	}
	return args
}
