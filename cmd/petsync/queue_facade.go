package main

import (
	"context"
	"encoding/json"

	"petsync/internal/api"
	"petsync/internal/backend"
	"petsync/internal/config"
	"petsync/internal/ipc"
	"petsync/internal/logging"
	"petsync/internal/notifications"
	"petsync/internal/queue"
	"petsync/internal/syncer"
)

// queueAPI is the set of queue operations available to CLI commands whether
// or not the daemon is running.
type queueAPI interface {
	List(ctx context.Context, statuses []string) ([]api.Action, error)
	Enqueue(ctx context.Context, actionType string, payload json.RawMessage) (api.Action, error)
	Sync(ctx context.Context) (api.SyncResult, error)
	Retry(ctx context.Context, id string) (api.RetryResult, error)
	RetryAll(ctx context.Context) (api.RetryAllResult, error)
	Dismiss(ctx context.Context, id string) (int64, error)
	DismissAll(ctx context.Context) (int64, error)
	Requeue(ctx context.Context, ids []string) (int64, error)
	Health(ctx context.Context) (queue.HealthSummary, error)
	DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error)
	Close() error
}

// withQueue runs fn against the daemon when it answers, otherwise against the
// queue database directly.
func (c *commandContext) withQueue(fn func(queueAPI) error) error {
	var q queueAPI
	if client, err := ipc.Dial(c.socketPath()); err == nil {
		q = &queueIPCAdapter{client: client}
	} else {
		cfg, cfgErr := c.ensureConfig()
		if cfgErr != nil {
			return cfgErr
		}
		adapter, openErr := newQueueStoreAdapter(cfg)
		if openErr != nil {
			return openErr
		}
		q = adapter
	}
	defer q.Close()
	return fn(q)
}

// --- IPC adapter ---

type queueIPCAdapter struct {
	client *ipc.Client
}

func (a *queueIPCAdapter) List(_ context.Context, statuses []string) ([]api.Action, error) {
	resp, err := a.client.ActionList(statuses)
	if err != nil {
		return nil, err
	}
	return resp.Actions, nil
}

func (a *queueIPCAdapter) Enqueue(_ context.Context, actionType string, payload json.RawMessage) (api.Action, error) {
	resp, err := a.client.ActionEnqueue(actionType, payload)
	if err != nil {
		return api.Action{}, err
	}
	return resp.Action, nil
}

func (a *queueIPCAdapter) Sync(_ context.Context) (api.SyncResult, error) {
	resp, err := a.client.Sync()
	if err != nil {
		return api.SyncResult{}, err
	}
	return resp.Result, nil
}

func (a *queueIPCAdapter) Retry(_ context.Context, id string) (api.RetryResult, error) {
	resp, err := a.client.ActionRetry(id)
	if err != nil {
		return api.RetryResult{}, err
	}
	return resp.Result, nil
}

func (a *queueIPCAdapter) RetryAll(_ context.Context) (api.RetryAllResult, error) {
	resp, err := a.client.ActionRetryAll()
	if err != nil {
		return api.RetryAllResult{}, err
	}
	return resp.Result, nil
}

func (a *queueIPCAdapter) Dismiss(_ context.Context, id string) (int64, error) {
	resp, err := a.client.ActionDismiss(id)
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *queueIPCAdapter) DismissAll(_ context.Context) (int64, error) {
	resp, err := a.client.ActionDismissAll()
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *queueIPCAdapter) Requeue(_ context.Context, ids []string) (int64, error) {
	resp, err := a.client.ActionRequeue(ids)
	if err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

func (a *queueIPCAdapter) Health(_ context.Context) (queue.HealthSummary, error) {
	resp, err := a.client.QueueHealth()
	if err != nil {
		return queue.HealthSummary{}, err
	}
	return queue.HealthSummary(*resp), nil
}

func (a *queueIPCAdapter) DatabaseHealth(_ context.Context) (queue.DatabaseHealth, error) {
	resp, err := a.client.DatabaseHealth()
	if err != nil {
		return queue.DatabaseHealth{}, err
	}
	return queue.DatabaseHealth(*resp), nil
}

func (a *queueIPCAdapter) Close() error {
	return a.client.Close()
}

// --- Store adapter ---

// queueStoreAdapter drives the queue in-process. Sync and retry attempts go
// straight to the backend using the same coordinator the daemon runs.
type queueStoreAdapter struct {
	store *queue.Store
	coord *syncer.Coordinator
}

func newQueueStoreAdapter(cfg *config.Config) (*queueStoreAdapter, error) {
	store, err := queue.Open(cfg)
	if err != nil {
		return nil, err
	}
	coord := syncer.New(cfg, store, backend.New(cfg), notifications.NewService(cfg), logging.NewNop())
	return &queueStoreAdapter{store: store, coord: coord}, nil
}

func (a *queueStoreAdapter) List(ctx context.Context, statuses []string) ([]api.Action, error) {
	filters, err := parseStatuses(statuses)
	if err != nil {
		return nil, err
	}
	actions, err := a.store.List(ctx, filters...)
	if err != nil {
		return nil, err
	}
	return api.FromActions(actions), nil
}

func (a *queueStoreAdapter) Enqueue(ctx context.Context, actionType string, payload json.RawMessage) (api.Action, error) {
	parsed, err := queue.ParseActionType(actionType)
	if err != nil {
		return api.Action{}, err
	}
	action, err := a.store.Enqueue(ctx, parsed, payload)
	if err != nil {
		return api.Action{}, err
	}
	return api.FromAction(action), nil
}

func (a *queueStoreAdapter) Sync(ctx context.Context) (api.SyncResult, error) {
	return api.FromSyncResult(a.coord.PerformFullSync(ctx)), nil
}

func (a *queueStoreAdapter) Retry(ctx context.Context, id string) (api.RetryResult, error) {
	outcome, err := a.coord.RetryFailedAction(ctx, id)
	if err != nil {
		return api.RetryResult{}, err
	}
	return api.FromRetryOutcome(outcome), nil
}

func (a *queueStoreAdapter) RetryAll(ctx context.Context) (api.RetryAllResult, error) {
	summary, err := a.coord.RetryAllFailedActions(ctx)
	if err != nil {
		return api.RetryAllResult{}, err
	}
	return api.FromRetrySummary(summary), nil
}

func (a *queueStoreAdapter) Dismiss(ctx context.Context, id string) (int64, error) {
	if err := a.coord.DismissFailedAction(ctx, id); err != nil {
		return 0, err
	}
	return 1, nil
}

func (a *queueStoreAdapter) DismissAll(ctx context.Context) (int64, error) {
	return a.coord.DismissAllFailedActions(ctx)
}

func (a *queueStoreAdapter) Requeue(ctx context.Context, ids []string) (int64, error) {
	return a.store.Requeue(ctx, ids...)
}

func (a *queueStoreAdapter) Health(ctx context.Context) (queue.HealthSummary, error) {
	return a.store.Health(ctx)
}

func (a *queueStoreAdapter) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	return a.store.CheckHealth(ctx)
}

func (a *queueStoreAdapter) Close() error {
	return a.store.Close()
}
