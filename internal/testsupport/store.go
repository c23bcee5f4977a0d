package testsupport

import (
	"context"
	"encoding/json"
	"testing"

	"petsync/internal/config"
	"petsync/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// Enqueue adds an action with a small JSON payload derived from label.
func Enqueue(t testing.TB, store *queue.Store, actionType queue.ActionType, label string) *queue.Action {
	t.Helper()

	payload, err := json.Marshal(map[string]string{"label": label})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	action, err := store.Enqueue(context.Background(), actionType, payload)
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return action
}

// MustFail drives an action through an attempt that fails with kind.
func MustFail(t testing.TB, store *queue.Store, id string, kind queue.ErrorKind, message string) *queue.Action {
	t.Helper()

	ctx := context.Background()
	if _, err := store.MarkInFlight(ctx, id); err != nil {
		t.Fatalf("store.MarkInFlight: %v", err)
	}
	action, err := store.MarkFailed(ctx, id, kind, message)
	if err != nil {
		t.Fatalf("store.MarkFailed: %v", err)
	}
	return action
}
