package syncer

import (
	"context"
	"sync"
	"time"

	"petsync/internal/logging"
)

const (
	statusIdle     = "Idle"
	statusUpToDate = "Up to date"
)

// State is a consistent snapshot of the coordinator's observable values.
type State struct {
	PendingCount            int        `json:"pending_count"`
	InFlightCount           int        `json:"in_flight_count"`
	FailedCount             int        `json:"failed_count"`
	IsSyncing               bool       `json:"is_syncing"`
	LastSyncDate            *time.Time `json:"last_sync_date,omitempty"`
	SyncStatus              string     `json:"sync_status"`
	Online                  bool       `json:"online"`
	ConnectivityDescription string     `json:"connectivity_description"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// PartialFailure reports whether the coordinator is idle with failed actions
// awaiting retry or dismissal.
func (s State) PartialFailure() bool {
	return !s.IsSyncing && s.FailedCount > 0
}

// SinceLastSync returns the time elapsed since the last successful sync, or
// zero and false when no sync has completed.
func (s State) SinceLastSync(now time.Time) (time.Duration, bool) {
	if s.LastSyncDate == nil {
		return 0, false
	}
	return now.Sub(*s.LastSyncDate), true
}

func (s State) clone() State {
	out := s
	if s.LastSyncDate != nil {
		ts := *s.LastSyncDate
		out.LastSyncDate = &ts
	}
	return out
}

// State returns the latest snapshot.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Subscribe returns a channel that receives a snapshot after every change.
// Each subscriber holds at most one undelivered snapshot; a slow reader sees
// the newest state and skips intermediate ones. The current state is
// delivered immediately.
func (c *Coordinator) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)
	c.mu.Lock()
	id := c.nextSubscriber
	c.nextSubscriber++
	c.subscribers[id] = ch
	ch <- c.state.clone()
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			if existing, ok := c.subscribers[id]; ok {
				delete(c.subscribers, id)
				close(existing)
			}
			c.mu.Unlock()
		})
	}
}

// publishLocked stamps the state and hands a copy to every subscriber.
// Callers hold c.mu.
func (c *Coordinator) publishLocked() {
	c.state.UpdatedAt = time.Now().UTC()
	snapshot := c.state.clone()
	for _, ch := range c.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- snapshot
	}
}

// Refresh recomputes counts from the store and publishes the result.
func (c *Coordinator) Refresh(ctx context.Context) error {
	return c.refresh(ctx, "")
}

// refresh recomputes counts and, when status is non-empty, replaces the sync
// status in the same snapshot.
func (c *Coordinator) refresh(ctx context.Context, status string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	health, err := c.store.Health(ctx)
	if err != nil {
		c.logger.Warn("queue counts unavailable",
			logging.Error(err),
			logging.String(logging.FieldEventType, "queue_stats_failed"),
			logging.String(logging.FieldErrorHint, "check queue database access"),
			logging.String(logging.FieldImpact, "sync state counts may be stale"),
		)
		if status != "" {
			c.mu.Lock()
			c.state.SyncStatus = status
			c.publishLocked()
			c.mu.Unlock()
		}
		return err
	}

	var lastSync *time.Time
	c.mu.Lock()
	loaded := c.lastSyncLoaded
	c.mu.Unlock()
	if !loaded {
		lastSync, err = c.store.LastSync(ctx)
		if err != nil {
			c.logger.Debug("last sync date unavailable", logging.Error(err))
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.PendingCount = health.Pending
	c.state.InFlightCount = health.InFlight
	c.state.FailedCount = health.Failed
	if !c.lastSyncLoaded && err == nil {
		c.lastSyncLoaded = true
		if c.state.LastSyncDate == nil {
			c.state.LastSyncDate = lastSync
		}
	}
	if status != "" {
		c.state.SyncStatus = status
	}
	c.publishLocked()
	return nil
}

func (c *Coordinator) setLastSync(ctx context.Context, at time.Time) {
	at = at.UTC()
	if err := c.store.SetLastSync(ctx, at); err != nil {
		logging.WarnWithContext(c.logger, "failed to persist last sync date", "last_sync_persist_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue database access"),
			logging.String(logging.FieldImpact, "last sync time resets after restart"),
		)
	}
	c.mu.Lock()
	c.state.LastSyncDate = &at
	c.lastSyncLoaded = true
	c.mu.Unlock()
}

func (c *Coordinator) setConnectivity(online bool, description string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Online == online && c.state.ConnectivityDescription == description {
		return
	}
	c.state.Online = online
	c.state.ConnectivityDescription = description
	c.publishLocked()
}
