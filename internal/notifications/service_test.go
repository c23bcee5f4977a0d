package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"petsync/internal/config"
	"petsync/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventSyncFailures, notifications.Payload{"failed": 2}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:          "sync completed",
			event:         notifications.EventSyncCompleted,
			payload:       notifications.Payload{"synced": 3},
			expectTitle:   "PetSync - Synced",
			expectMessage: "✅ 3 queued changes synced",
			expectTags:    "petsync,sync,completed",
		},
		{
			name:          "sync failures",
			event:         notifications.EventSyncFailures,
			payload:       notifications.Payload{"failed": 1, "synced": 2},
			expectTitle:   "PetSync - Sync Failures",
			expectMessage: "⚠️ 1 change could not be synced (2 synced)",
			expectTags:    "petsync,sync,failed",
		},
		{
			name:  "action rejected",
			event: notifications.EventActionRejected,
			payload: notifications.Payload{
				"label": "Submit success story",
				"error": "story text is required",
			},
			expectTitle:    "PetSync - Change Rejected",
			expectMessage:  "❌ Submit success story was rejected by the server: story text is required",
			expectTags:     "petsync,rejected,alert",
			expectPriority: "high",
		},
		{
			name:          "connectivity restored",
			event:         notifications.EventConnectivityRestored,
			payload:       notifications.Payload{"pending": 2},
			expectTitle:   "PetSync - Online",
			expectMessage: "📶 Back online, syncing 2 queued changes",
			expectTags:    "petsync,connectivity",
		},
		{
			name:           "test",
			event:          notifications.EventTest,
			expectTitle:    "PetSync - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "petsync,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Errorf("read body: %v", err)
				}
				captured.body = string(body)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5
			cfg.Notifications.SyncCompleted = true
			cfg.Notifications.ConnectivityRestored = true

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceIgnoresDisabledEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call for disabled event: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.SyncCompleted = false
	cfg.Notifications.ConnectivityRestored = false

	svc := notifications.NewService(&cfg)
	for _, event := range []notifications.Event{
		notifications.EventSyncCompleted,
		notifications.EventConnectivityRestored,
		notifications.Event("unknown_event"),
	} {
		if err := svc.Publish(context.Background(), event, notifications.Payload{"value": "ignored"}); err != nil {
			t.Fatalf("expected no error for disabled event %s, got %v", event, err)
		}
	}
}

func TestNtfyServiceReportsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic muted", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	err := notifications.NewService(&cfg).Publish(context.Background(), notifications.EventTest, nil)
	if err == nil {
		t.Fatal("expected error for 403 response")
	}
	if !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "topic muted") {
		t.Fatalf("unexpected error: %v", err)
	}
}
