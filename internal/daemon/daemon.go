package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"petsync/internal/config"
	"petsync/internal/connectivity"
	"petsync/internal/logging"
	"petsync/internal/notifications"
	"petsync/internal/queue"
	"petsync/internal/syncer"
)

// ErrInvalidRequest rejects malformed queue requests from IPC or HTTP clients.
var ErrInvalidRequest = errors.New("invalid request")

// Daemon coordinates the background sync services and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	syncer   *syncer.Coordinator
	observer *connectivity.Observer
	notifier notifications.Service
	apiSrv   *apiServer

	lockPath string
	lock     *flock.Flock

	running  atomic.Bool
	mu       sync.Mutex
	cancel   context.CancelFunc
	shutdown func()
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Sync         syncer.State
	QueueDBPath  string
	LockFilePath string
	APIBind      string
	Netlink      bool
}

// New constructs a daemon with initialized dependencies. The observer may be
// nil, in which case connectivity is never reported online and syncs only run
// on request.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, coord *syncer.Coordinator, observer *connectivity.Observer, notifier notifications.Service) (*Daemon, error) {
	if cfg == nil || store == nil || coord == nil {
		return nil, errors.New("daemon requires config, store, and sync coordinator")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		syncer:   coord,
		observer: observer,
		notifier: notifier,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.apiSrv = newAPIServer(cfg, d, logger)
	return d, nil
}

// SetShutdownFunc registers the callback used when a client asks the daemon
// process to exit.
func (d *Daemon) SetShutdownFunc(fn func()) {
	d.mu.Lock()
	d.shutdown = fn
	d.mu.Unlock()
}

// RequestShutdown asks the hosting process to exit. It reports false when no
// shutdown callback is registered.
func (d *Daemon) RequestShutdown() bool {
	d.mu.Lock()
	fn := d.shutdown
	d.mu.Unlock()
	if fn == nil {
		return false
	}
	d.logger.Info("shutdown requested", logging.String(logging.FieldEventType, "daemon_shutdown_requested"))
	go fn()
	return true
}

// Start acquires the daemon lock, recovers in-flight actions, and launches
// the connectivity observer, sync coordinator and HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another petsync daemon instance is already running")
	}

	reset, err := d.store.ResetInFlight(ctx)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("recover in-flight actions: %w", err)
	}
	if reset > 0 {
		d.logger.Info("recovered actions left in flight",
			logging.String(logging.FieldEventType, "inflight_recovered"),
			logging.Int64("count", reset),
		)
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	d.cancel = cancel
	d.mu.Unlock()

	var source syncer.ConnectivitySource
	if d.observer != nil {
		if err := d.observer.Start(runCtx); err != nil {
			d.abortStart()
			return fmt.Errorf("start connectivity observer: %w", err)
		}
		source = d.observer
	}
	if err := d.syncer.Start(runCtx, source); err != nil {
		d.abortStart()
		return fmt.Errorf("start sync coordinator: %w", err)
	}
	if err := d.apiSrv.start(runCtx); err != nil {
		logging.WarnWithContext(d.logger, "http api unavailable", "api_start_failed",
			logging.Error(err),
			logging.String("bind", d.cfg.Paths.APIBind),
			logging.String(logging.FieldErrorHint, "check paths.api_bind or free the port"),
			logging.String(logging.FieldImpact, "status API disabled; IPC remains available"),
		)
	}

	d.running.Store(true)
	d.logger.Info("petsync daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("queue_db", d.store.Path()),
	)
	return nil
}

func (d *Daemon) abortStart() {
	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if d.observer != nil {
		d.observer.Stop()
	}
	_ = d.lock.Unlock()
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	d.apiSrv.stop()
	d.syncer.Stop()
	if d.observer != nil {
		d.observer.Stop()
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("petsync daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether Start has completed and Stop has not been called.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Enqueue validates and stores a new action. When the backend is reachable
// and automatic sync is enabled, a pass is started in the background.
func (d *Daemon) Enqueue(ctx context.Context, actionType string, payload json.RawMessage) (*queue.Action, error) {
	parsed, err := queue.ParseActionType(actionType)
	if err != nil {
		return nil, err
	}
	action, err := d.store.Enqueue(ctx, parsed, payload)
	if err != nil {
		return nil, err
	}
	d.logger.Info("action queued",
		logging.String(logging.FieldEventType, "action_queued"),
		logging.String(logging.FieldActionID, action.ID),
		logging.String(logging.FieldActionType, string(action.Type)),
	)
	_ = d.syncer.Refresh(ctx)
	d.kickSync("enqueue")
	return action, nil
}

func (d *Daemon) kickSync(trigger string) {
	if !d.cfg.Sync.AutoSyncOnReconnect || d.observer == nil || !d.observer.Online() {
		return
	}
	if !d.running.Load() {
		return
	}
	d.syncer.TriggerSync(trigger)
}

// ListActions returns actions filtered by optional statuses.
func (d *Daemon) ListActions(ctx context.Context, statuses []queue.Status) ([]*queue.Action, error) {
	return d.store.List(ctx, statuses...)
}

// Sync runs a full sync pass and waits for it to finish.
func (d *Daemon) Sync(ctx context.Context) syncer.Result {
	return d.syncer.PerformFullSync(ctx)
}

// Retry retries one failed action.
func (d *Daemon) Retry(ctx context.Context, id string) (syncer.RetryOutcome, error) {
	return d.syncer.RetryFailedAction(ctx, strings.TrimSpace(id))
}

// RetryAll retries every eligible failed action.
func (d *Daemon) RetryAll(ctx context.Context) (syncer.RetrySummary, error) {
	return d.syncer.RetryAllFailedActions(ctx)
}

// Dismiss removes one failed action.
func (d *Daemon) Dismiss(ctx context.Context, id string) error {
	return d.syncer.DismissFailedAction(ctx, strings.TrimSpace(id))
}

// DismissAll removes every failed action.
func (d *Daemon) DismissAll(ctx context.Context) (int64, error) {
	return d.syncer.DismissAllFailedActions(ctx)
}

// Requeue moves failed actions back to pending, every failed action when ids
// is empty, and kicks a background pass when online.
func (d *Daemon) Requeue(ctx context.Context, ids []string) (int64, error) {
	trimmed := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			trimmed = append(trimmed, id)
		}
	}
	if len(ids) > 0 && len(trimmed) == 0 {
		return 0, fmt.Errorf("%w: action ids are blank", ErrInvalidRequest)
	}
	updated, err := d.store.Requeue(ctx, trimmed...)
	if err != nil {
		return 0, err
	}
	if updated > 0 {
		d.logger.Info("failed actions requeued",
			logging.String(logging.FieldEventType, "actions_requeued"),
			logging.Int64("updated", updated),
		)
		_ = d.syncer.Refresh(ctx)
		d.kickSync("requeue")
	}
	return updated, nil
}

// QueueHealth returns aggregate queue diagnostics.
func (d *Daemon) QueueHealth(ctx context.Context) (queue.HealthSummary, error) {
	return d.store.Health(ctx)
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	return d.store.CheckHealth(ctx)
}

// TestNotification sends a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	if err := d.syncer.Refresh(ctx); err != nil {
		d.logger.Debug("status refresh failed", logging.Error(err))
	}
	netlink := d.observer != nil && d.observer.NetlinkEnabled()
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Sync:         d.syncer.State(),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		APIBind:      d.apiSrv.address(),
		Netlink:      netlink,
	}
}
