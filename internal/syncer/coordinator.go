package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"petsync/internal/config"
	"petsync/internal/connectivity"
	"petsync/internal/logging"
	"petsync/internal/notifications"
	"petsync/internal/queue"
)

var (
	// ErrSyncInProgress is returned when a retry is requested while a full sync
	// or another retry is active.
	ErrSyncInProgress = errors.New("sync already in progress")
	// ErrActionNotFound is returned when the referenced action is not failed.
	ErrActionNotFound = errors.New("failed action not found")
)

// ActionStore is the subset of the queue store the coordinator drives.
type ActionStore interface {
	Get(ctx context.Context, id string) (*queue.Action, error)
	ListPending(ctx context.Context) ([]*queue.Action, error)
	ListFailed(ctx context.Context) ([]*queue.Action, error)
	MarkInFlight(ctx context.Context, id string) (*queue.Action, error)
	MarkFailed(ctx context.Context, id string, kind queue.ErrorKind, message string) (*queue.Action, error)
	MarkCompleted(ctx context.Context, id string) error
	Remove(ctx context.Context, id string) (bool, error)
	RemoveAllFailed(ctx context.Context) (int64, error)
	Health(ctx context.Context) (queue.HealthSummary, error)
	LastSync(ctx context.Context) (*time.Time, error)
	SetLastSync(ctx context.Context, at time.Time) error
}

// Attempter sends one action to the backend. A nil error means success.
type Attempter interface {
	Attempt(ctx context.Context, action *queue.Action) error
}

// ConnectivitySource reports reachability and its transitions.
type ConnectivitySource interface {
	Current() connectivity.State
	Subscribe() (<-chan connectivity.Transition, func())
}

// Coordinator runs sync passes, retries and dismissals over an ActionStore.
type Coordinator struct {
	store      ActionStore
	attempter  Attempter
	notifier   notifications.Service
	logger     *slog.Logger
	maxRetries int
	autoSync   bool
	interval   time.Duration

	// refreshMu orders store reads with the snapshots built from them.
	refreshMu sync.Mutex

	mu             sync.Mutex
	busy           bool
	state          State
	lastSyncLoaded bool
	subscribers    map[int]chan State
	nextSubscriber int

	runMu   sync.Mutex
	running bool
	runCtx  context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a coordinator. A nil notifier drops events.
func New(cfg *config.Config, store ActionStore, attempter Attempter, notifier notifications.Service, logger *slog.Logger) *Coordinator {
	if notifier == nil {
		notifier = notifications.NewNoop()
	}
	c := &Coordinator{
		store:       store,
		attempter:   attempter,
		notifier:    notifier,
		logger:      logging.NewComponentLogger(logger, "syncer"),
		autoSync:    true,
		subscribers: make(map[int]chan State),
		state: State{
			SyncStatus:              statusIdle,
			ConnectivityDescription: "Connectivity unknown",
		},
	}
	if cfg != nil {
		c.maxRetries = cfg.Queue.MaxRetries
		c.autoSync = cfg.Sync.AutoSyncOnReconnect
		c.interval = time.Duration(cfg.Sync.IntervalSeconds) * time.Second
	}
	return c
}

// FailedActions returns failed actions in enqueue order.
func (c *Coordinator) FailedActions(ctx context.Context) ([]*queue.Action, error) {
	return c.store.ListFailed(ctx)
}

// PendingActions returns pending actions in enqueue order.
func (c *Coordinator) PendingActions(ctx context.Context) ([]*queue.Action, error) {
	return c.store.ListPending(ctx)
}

// tryBegin claims the single sync slot. syncing marks a full pass, which is
// the only activity reported through State.IsSyncing.
func (c *Coordinator) tryBegin(syncing bool, status string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return false
	}
	c.busy = true
	if syncing {
		c.state.IsSyncing = true
	}
	if status != "" {
		c.state.SyncStatus = status
	}
	c.publishLocked()
	return true
}

func (c *Coordinator) end() {
	c.mu.Lock()
	c.busy = false
	if c.state.IsSyncing {
		c.state.IsSyncing = false
		c.publishLocked()
	}
	c.mu.Unlock()
}

// Busy reports whether a full sync or retry is currently running.
func (c *Coordinator) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

func (c *Coordinator) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.Publish(ctx, event, payload); err != nil {
		if errors.Is(err, context.Canceled) {
			c.logger.Debug("shutting down, notification not sent", logging.String("event", string(event)))
			return
		}
		c.logger.Debug("notification failed",
			logging.String("event", string(event)),
			logging.Error(err),
		)
	}
}

func actionLabel(action *queue.Action) string {
	if action == nil {
		return ""
	}
	label := ActionTypeDescription(action.Type)
	var payload struct {
		PetName string `json:"pet_name"`
	}
	if len(action.Payload) > 0 && json.Unmarshal(action.Payload, &payload) == nil && payload.PetName != "" {
		return label + " (" + payload.PetName + ")"
	}
	return label
}
