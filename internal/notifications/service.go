package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"petsync/internal/config"
)

const userAgent = "PetSync-Go/0.1.0"

// Event identifies a sync milestone worth telling the user about.
type Event string

const (
	EventSyncCompleted        Event = "sync_completed"
	EventSyncFailures         Event = "sync_failures"
	EventActionRejected       Event = "action_rejected"
	EventConnectivityRestored Event = "connectivity_restored"
	EventTest                 Event = "test"
)

// Payload carries event specific values keyed by name.
type Payload map[string]any

// Service defines the notification surface exposed to sync components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventSyncCompleted:        cfg.Notifications.SyncCompleted,
			EventSyncFailures:         cfg.Notifications.SyncFailures,
			EventActionRejected:       cfg.Notifications.ActionRejected,
			EventConnectivityRestored: cfg.Notifications.ConnectivityRestored,
			EventTest:                 true,
		},
	}
}

// NewNoop returns a service that drops every event.
func NewNoop() Service {
	return noopService{}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventSyncCompleted:
		synced := payloadInt(payload, "synced")
		return message{
			title: "PetSync - Synced",
			body:  fmt.Sprintf("✅ %d queued %s synced", synced, plural(synced, "change", "changes")),
			tags:  []string{"petsync", "sync", "completed"},
		}, true
	case EventSyncFailures:
		failed := payloadInt(payload, "failed")
		body := fmt.Sprintf("⚠️ %d %s could not be synced", failed, plural(failed, "change", "changes"))
		if synced := payloadInt(payload, "synced"); synced > 0 {
			body = fmt.Sprintf("%s (%d synced)", body, synced)
		}
		return message{
			title: "PetSync - Sync Failures",
			body:  body,
			tags:  []string{"petsync", "sync", "failed"},
		}, true
	case EventActionRejected:
		label := payloadString(payload, "label")
		if label == "" {
			label = payloadString(payload, "type")
		}
		body := fmt.Sprintf("❌ %s was rejected by the server", label)
		if reason := payloadString(payload, "error"); reason != "" {
			body = fmt.Sprintf("%s: %s", body, reason)
		}
		return message{
			title:    "PetSync - Change Rejected",
			body:     body,
			tags:     []string{"petsync", "rejected", "alert"},
			priority: "high",
		}, true
	case EventConnectivityRestored:
		body := "📶 Back online"
		if pending := payloadInt(payload, "pending"); pending > 0 {
			body = fmt.Sprintf("%s, syncing %d queued %s", body, pending, plural(pending, "change", "changes"))
		}
		return message{
			title: "PetSync - Online",
			body:  body,
			tags:  []string{"petsync", "connectivity"},
		}, true
	case EventTest:
		return message{
			title:    "PetSync - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"petsync", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func payloadString(payload Payload, key string) string {
	if payload == nil {
		return ""
	}
	switch v := payload[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func payloadInt(payload Payload, key string) int {
	if payload == nil {
		return 0
	}
	switch v := payload[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func plural(count int, one, many string) string {
	if count == 1 {
		return one
	}
	return many
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
