package api

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"petsync/internal/queue"
)

type mockQueueReader struct {
	actions  []*queue.Action
	stats    map[queue.Status]int
	listErr  error
	statsErr error
}

func (m *mockQueueReader) List(context.Context, ...queue.Status) ([]*queue.Action, error) {
	return m.actions, m.listErr
}

func (m *mockQueueReader) Stats(context.Context) (map[queue.Status]int, error) {
	return m.stats, m.statsErr
}

func (m *mockQueueReader) Get(_ context.Context, id string) (*queue.Action, error) {
	for _, action := range m.actions {
		if action.ID == id {
			return action, m.listErr
		}
	}
	return nil, m.listErr
}

func TestQueueService_List(t *testing.T) {
	now := time.Now().UTC()
	reader := &mockQueueReader{
		actions: []*queue.Action{{
			ID:           "a1",
			Seq:          3,
			Type:         queue.ActionSubmitStory,
			Payload:      json.RawMessage(`{"text":"home safe"}`),
			Status:       queue.StatusFailed,
			RetryCount:   2,
			ErrorMessage: "server rejected: too long",
			ErrorKind:    queue.ErrorKindServerRejected,
			EnqueuedAt:   now,
			UpdatedAt:    now,
		}},
	}
	svc := NewQueueService(reader)
	got, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("unexpected action count: %d", len(got))
	}
	if got[0].Label != "Success Story" {
		t.Fatalf("unexpected label: %q", got[0].Label)
	}
	if got[0].Status != string(queue.StatusFailed) || got[0].RetryCount != 2 {
		t.Fatalf("unexpected status fields: %+v", got[0])
	}
	if !got[0].Permanent {
		t.Fatal("expected server rejected action to be marked permanent")
	}
	if got[0].EnqueuedAt == "" || got[0].UpdatedAt == "" {
		t.Fatal("expected timestamps to be formatted")
	}
	if !ParseTime(got[0].EnqueuedAt).Equal(now.Truncate(time.Millisecond)) {
		t.Fatalf("unexpected enqueued time %q", got[0].EnqueuedAt)
	}
	if string(got[0].Payload) != `{"text":"home safe"}` {
		t.Fatalf("unexpected payload %s", got[0].Payload)
	}
}

func TestQueueService_Stats(t *testing.T) {
	reader := &mockQueueReader{stats: map[queue.Status]int{queue.StatusPending: 2}}
	svc := NewQueueService(reader)
	got, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if got["pending"] != 2 || got["failed"] != 0 {
		t.Fatalf("unexpected stats: %+v", got)
	}
	if _, ok := got["in_flight"]; !ok {
		t.Fatal("expected every stored status key present")
	}

	reader.statsErr = errors.New("boom")
	if _, err := svc.Stats(context.Background()); err == nil {
		t.Fatal("expected stats error")
	}
}

func TestQueueService_Describe(t *testing.T) {
	reader := &mockQueueReader{actions: []*queue.Action{{ID: "a1", Type: queue.ActionMarkFound, Status: queue.StatusPending}}}
	svc := NewQueueService(reader)

	got, err := svc.Describe(context.Background(), "a1")
	if err != nil {
		t.Fatalf("Describe returned error: %v", err)
	}
	if got == nil || got.Label != "Pet Found Report" {
		t.Fatalf("unexpected action: %+v", got)
	}

	missing, err := svc.Describe(context.Background(), "nope")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing action, got %+v, %v", missing, err)
	}
}

func TestNilQueueService(t *testing.T) {
	if svc := NewQueueService(nil); svc != nil {
		t.Fatal("expected nil service for nil reader")
	}
	var svc *QueueService
	if got, err := svc.List(context.Background()); got != nil || err != nil {
		t.Fatalf("expected nil results from nil service, got %v, %v", got, err)
	}
}
