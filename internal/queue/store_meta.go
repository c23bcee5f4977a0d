package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const metaLastSync = "last_sync"

// LastSync returns the time of the last successful full sync, or nil if none
// has been recorded.
func (s *Store) LastSync(ctx context.Context) (*time.Time, error) {
	var raw string
	err := s.db.QueryRowContext(ensureContext(ctx), `SELECT value FROM sync_meta WHERE key = ?`, metaLastSync).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read last sync: %w", err)
	}
	parsed, err := parseTimeString(raw)
	if err != nil {
		return nil, fmt.Errorf("parse last sync %q: %w", raw, err)
	}
	return &parsed, nil
}

// SetLastSync records the time of a successful full sync.
func (s *Store) SetLastSync(ctx context.Context, at time.Time) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO sync_meta (key, value) VALUES (?, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		metaLastSync,
		formatTime(at),
	); err != nil {
		return fmt.Errorf("record last sync: %w", err)
	}
	return nil
}
