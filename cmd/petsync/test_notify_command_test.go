package main

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestTestNotifyWithoutTopic(t *testing.T) {
	for _, withDaemon := range []bool{false, true} {
		env := setupCLITestEnv(t, withDaemon)
		out, err := env.run(t, "test-notify")
		if err != nil {
			t.Fatalf("test-notify (daemon=%v): %v", withDaemon, err)
		}
		requireContains(t, out, "ntfy topic not configured")
	}
}

func TestTestNotifyPublishesWithoutDaemon(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Title") == "PetSync - Test" {
			hits.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	env := setupCLITestEnv(t, false)
	env.cfg.Notifications.NtfyTopic = srv.URL + "/petsync"
	writeTestConfig(t, env.configPath, env.cfg)

	out, err := env.run(t, "test-notify")
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "test notification sent")
	if hits.Load() != 1 {
		t.Fatalf("expected one ntfy request, got %d", hits.Load())
	}
}
