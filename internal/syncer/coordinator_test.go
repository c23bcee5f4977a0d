package syncer_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"petsync/internal/config"
	"petsync/internal/connectivity"
	"petsync/internal/notifications"
	"petsync/internal/queue"
	"petsync/internal/services"
	"petsync/internal/syncer"
	"petsync/internal/testsupport"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
	last   map[notifications.Event]notifications.Payload
}

func (n *recordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	if n.last == nil {
		n.last = make(map[notifications.Event]notifications.Payload)
	}
	n.last[event] = payload
	return nil
}

func (n *recordingNotifier) payload(event notifications.Event) (notifications.Payload, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	p, ok := n.last[event]
	return p, ok
}

type harness struct {
	cfg       *config.Config
	store     *queue.Store
	attempter *testsupport.StubAttempter
	notifier  *recordingNotifier
	coord     *syncer.Coordinator
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	attempter := testsupport.NewStubAttempter()
	notifier := &recordingNotifier{}
	coord := syncer.New(cfg, store, attempter, notifier, nil)
	return &harness{cfg: cfg, store: store, attempter: attempter, notifier: notifier, coord: coord}
}

func networkErr(msg string) error {
	return services.Wrap(services.ErrNetwork, "backend", "attempt", msg, nil)
}

func rejectedErr(msg string) error {
	return services.Wrap(services.ErrServerRejected, "backend", "attempt", msg, nil)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func countByStatus(t *testing.T, store *queue.Store) (int, int) {
	t.Helper()
	ctx := context.Background()
	pending, err := store.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending failed: %v", err)
	}
	failed, err := store.ListFailed(ctx)
	if err != nil {
		t.Fatalf("ListFailed failed: %v", err)
	}
	return len(pending), len(failed)
}

func TestScenarioMiddleActionFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	testsupport.Enqueue(t, h.store, queue.ActionUpdateProfile, "A")
	b := testsupport.Enqueue(t, h.store, queue.ActionUpdatePreferences, "B")
	testsupport.Enqueue(t, h.store, queue.ActionSubmitStory, "C")
	h.attempter.FailLabel("B", networkErr("connection reset"))

	result := h.coord.PerformFullSync(ctx)
	if result.Skipped {
		t.Fatal("expected pass to run")
	}
	if result.Attempted != 3 || result.Completed != 2 || result.Failed != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if calls := h.attempter.Calls(); len(calls) != 3 || calls[0] != "A" || calls[1] != "B" || calls[2] != "C" {
		t.Fatalf("expected attempts in enqueue order, got %v", calls)
	}

	state := h.coord.State()
	if state.PendingCount != 0 || state.FailedCount != 1 {
		t.Fatalf("unexpected counts %+v", state)
	}
	if state.IsSyncing {
		t.Fatal("expected IsSyncing false after pass")
	}
	if state.LastSyncDate == nil {
		t.Fatal("expected LastSyncDate to be set when an action completed")
	}
	if !state.PartialFailure() {
		t.Fatal("expected partial failure state")
	}

	failed, err := h.coord.FailedActions(ctx)
	if err != nil {
		t.Fatalf("FailedActions failed: %v", err)
	}
	if len(failed) != 1 || failed[0].ID != b.ID {
		t.Fatalf("expected failed actions [B], got %+v", failed)
	}
	if failed[0].RetryCount != 1 {
		t.Fatalf("expected B retry count 1, got %d", failed[0].RetryCount)
	}
	if failed[0].ErrorKind != queue.ErrorKindNetwork || failed[0].ErrorMessage == "" {
		t.Fatalf("expected network failure recorded, got kind=%q msg=%q", failed[0].ErrorKind, failed[0].ErrorMessage)
	}

	payload, ok := h.notifier.payload(notifications.EventSyncFailures)
	if !ok {
		t.Fatal("expected sync failures notification")
	}
	if payload["synced"] != 2 || payload["failed"] != 1 {
		t.Fatalf("unexpected notification payload %+v", payload)
	}
}

func TestPerformFullSyncWithKFailures(t *testing.T) {
	h := newHarness(t)
	labels := []string{"a", "b", "c", "d", "e", "f"}
	failing := map[string]bool{"b": true, "d": true, "e": true}
	for _, label := range labels {
		testsupport.Enqueue(t, h.store, queue.ActionUpdateProfile, label)
		if failing[label] {
			h.attempter.FailLabel(label, errors.New("boom"))
		}
	}

	h.coord.PerformFullSync(context.Background())

	state := h.coord.State()
	if state.FailedCount != len(failing) || state.PendingCount != 0 {
		t.Fatalf("expected failed=%d pending=0, got %+v", len(failing), state)
	}
	failed, _ := h.coord.FailedActions(context.Background())
	for _, action := range failed {
		if action.ErrorKind != queue.ErrorKindUnknown {
			t.Fatalf("expected unknown kind for unclassified error, got %q", action.ErrorKind)
		}
	}
}

func TestConcurrentFullSyncRunsOnePass(t *testing.T) {
	h := newHarness(t)
	testsupport.Enqueue(t, h.store, queue.ActionUpdateProfile, "first")
	testsupport.Enqueue(t, h.store, queue.ActionUpdateProfile, "second")
	failedAction := testsupport.Enqueue(t, h.store, queue.ActionUpdatePrivacy, "old")
	testsupport.MustFail(t, h.store, failedAction.ID, queue.ErrorKindNetwork, "offline")

	started, release := h.attempter.Block()
	results := make(chan syncer.Result, 1)
	go func() {
		results <- h.coord.PerformFullSync(context.Background())
	}()

	<-started
	if !h.coord.State().IsSyncing {
		t.Fatal("expected IsSyncing while pass is active")
	}

	second := h.coord.PerformFullSync(context.Background())
	if !second.Skipped {
		t.Fatalf("expected concurrent pass to be skipped, got %+v", second)
	}
	if _, err := h.coord.RetryFailedAction(context.Background(), failedAction.ID); !errors.Is(err, syncer.ErrSyncInProgress) {
		t.Fatalf("expected ErrSyncInProgress for retry, got %v", err)
	}
	if _, err := h.coord.RetryAllFailedActions(context.Background()); !errors.Is(err, syncer.ErrSyncInProgress) {
		t.Fatalf("expected ErrSyncInProgress for retry all, got %v", err)
	}

	release()
	first := <-results
	if first.Skipped || first.Completed != 2 {
		t.Fatalf("unexpected first pass result %+v", first)
	}
	if calls := h.attempter.Calls(); len(calls) != 2 {
		t.Fatalf("expected exactly one pass of 2 attempts, got %v", calls)
	}
	if h.coord.State().IsSyncing {
		t.Fatal("expected IsSyncing false after pass")
	}
}

func TestRetryFailedActionSuccessRemovesAction(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := testsupport.Enqueue(t, h.store, queue.ActionSubmitStory, "a")
	testsupport.Enqueue(t, h.store, queue.ActionSubmitStory, "b")
	h.attempter.FailLabel("a", networkErr("timeout"))
	h.attempter.FailLabel("b", networkErr("timeout"))
	h.coord.PerformFullSync(ctx)

	before := h.coord.State().FailedCount
	if before != 2 {
		t.Fatalf("expected 2 failed, got %d", before)
	}

	h.attempter.Succeed()
	outcome, err := h.coord.RetryFailedAction(ctx, a.ID)
	if err != nil {
		t.Fatalf("RetryFailedAction failed: %v", err)
	}
	if !outcome.Succeeded || outcome.Action != nil {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if after := h.coord.State().FailedCount; after != before-1 {
		t.Fatalf("expected failed count %d, got %d", before-1, after)
	}
	got, err := h.store.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Fatal("expected retried action to be removed")
	}
}

func TestRetryFailedActionFailureIncrementsRetryCount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := testsupport.Enqueue(t, h.store, queue.ActionMarkFound, "a")
	h.attempter.FailLabel("a", rejectedErr("pet already found"))
	h.coord.PerformFullSync(ctx)

	outcome, err := h.coord.RetryFailedAction(ctx, a.ID)
	if err != nil {
		t.Fatalf("RetryFailedAction failed: %v", err)
	}
	if outcome.Succeeded {
		t.Fatal("expected retry to fail")
	}
	if outcome.ErrorKind != queue.ErrorKindServerRejected {
		t.Fatalf("unexpected error kind %q", outcome.ErrorKind)
	}
	if outcome.Action == nil || outcome.Action.RetryCount != 2 || outcome.Action.Status != queue.StatusFailed {
		t.Fatalf("expected failed action with retry count 2, got %+v", outcome.Action)
	}
	if h.coord.State().FailedCount != 1 {
		t.Fatalf("expected action to stay failed, got %+v", h.coord.State())
	}
	if _, ok := h.notifier.payload(notifications.EventActionRejected); !ok {
		t.Fatal("expected action rejected notification")
	}
}

func TestRetryFailedActionRejectsUnknownAndPending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pending := testsupport.Enqueue(t, h.store, queue.ActionUpdateProfile, "p")

	if _, err := h.coord.RetryFailedAction(ctx, "missing"); !errors.Is(err, syncer.ErrActionNotFound) {
		t.Fatalf("expected ErrActionNotFound for missing id, got %v", err)
	}
	if _, err := h.coord.RetryFailedAction(ctx, pending.ID); !errors.Is(err, syncer.ErrActionNotFound) {
		t.Fatalf("expected ErrActionNotFound for pending action, got %v", err)
	}
	if err := h.coord.DismissFailedAction(ctx, pending.ID); !errors.Is(err, syncer.ErrActionNotFound) {
		t.Fatalf("expected ErrActionNotFound when dismissing pending action, got %v", err)
	}
	if len(h.attempter.Calls()) != 0 {
		t.Fatal("expected no attempts")
	}
}

func TestRetryAllSkipsPermanentAndCappedActions(t *testing.T) {
	h := newHarness(t, testsupport.WithMaxRetries(2))
	ctx := context.Background()

	network := testsupport.Enqueue(t, h.store, queue.ActionUpdateProfile, "network")
	testsupport.MustFail(t, h.store, network.ID, queue.ErrorKindNetwork, "offline")

	rejected := testsupport.Enqueue(t, h.store, queue.ActionSubmitStory, "rejected")
	testsupport.MustFail(t, h.store, rejected.ID, queue.ErrorKindServerRejected, "too long")

	capped := testsupport.Enqueue(t, h.store, queue.ActionUpdatePrivacy, "capped")
	testsupport.MustFail(t, h.store, capped.ID, queue.ErrorKindNetwork, "offline")
	testsupport.MustFail(t, h.store, capped.ID, queue.ErrorKindNetwork, "offline")

	stillFailing := testsupport.Enqueue(t, h.store, queue.ActionUpdatePreferences, "still")
	testsupport.MustFail(t, h.store, stillFailing.ID, queue.ErrorKindUnknown, "odd")
	h.attempter.FailLabel("still", networkErr("unreachable"))

	summary, err := h.coord.RetryAllFailedActions(ctx)
	if err != nil {
		t.Fatalf("RetryAllFailedActions failed: %v", err)
	}
	want := syncer.RetrySummary{Attempted: 2, Succeeded: 1, Failed: 1, Skipped: 2}
	if summary != want {
		t.Fatalf("unexpected summary: got %+v want %+v", summary, want)
	}
	if calls := h.attempter.Calls(); len(calls) != 2 || calls[0] != "network" || calls[1] != "still" {
		t.Fatalf("unexpected attempts %v", calls)
	}
	if h.coord.State().FailedCount != 3 {
		t.Fatalf("expected 3 failed actions left, got %d", h.coord.State().FailedCount)
	}

	// An explicit retry ignores both the cap and the permanent classification.
	if _, err := h.coord.RetryFailedAction(ctx, capped.ID); err != nil {
		t.Fatalf("RetryFailedAction on capped action failed: %v", err)
	}
	if _, err := h.coord.RetryFailedAction(ctx, rejected.ID); err != nil {
		t.Fatalf("RetryFailedAction on rejected action failed: %v", err)
	}
	if h.coord.State().FailedCount != 1 {
		t.Fatalf("expected only the still-failing action left, got %d", h.coord.State().FailedCount)
	}
}

func TestRetryAllUsesSnapshotAtCallTime(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := testsupport.Enqueue(t, h.store, queue.ActionUpdateProfile, "first")
	testsupport.MustFail(t, h.store, first.ID, queue.ErrorKindNetwork, "offline")

	started, release := h.attempter.Block()
	done := make(chan syncer.RetrySummary, 1)
	go func() {
		summary, _ := h.coord.RetryAllFailedActions(ctx)
		done <- summary
	}()
	<-started

	late := testsupport.Enqueue(t, h.store, queue.ActionUpdateProfile, "late")
	if _, err := h.store.MarkInFlight(ctx, late.ID); err != nil {
		t.Fatalf("MarkInFlight failed: %v", err)
	}
	if _, err := h.store.MarkFailed(ctx, late.ID, queue.ErrorKindNetwork, "offline"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}
	release()

	summary := <-done
	if summary.Attempted != 1 || summary.Succeeded != 1 {
		t.Fatalf("expected only the snapshot action to be retried, got %+v", summary)
	}
	if calls := h.attempter.Calls(); len(calls) != 1 || calls[0] != "first" {
		t.Fatalf("unexpected attempts %v", calls)
	}
}

func TestDismissAllFailedLeavesPendingUnchanged(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for _, label := range []string{"x", "y"} {
		action := testsupport.Enqueue(t, h.store, queue.ActionReportMissing, label)
		testsupport.MustFail(t, h.store, action.ID, queue.ErrorKindNetwork, "offline")
	}
	testsupport.Enqueue(t, h.store, queue.ActionUpdateProfile, "pending-1")
	testsupport.Enqueue(t, h.store, queue.ActionUpdateProfile, "pending-2")
	if err := h.coord.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	pendingBefore := h.coord.State().PendingCount

	removed, err := h.coord.DismissAllFailedActions(ctx)
	if err != nil {
		t.Fatalf("DismissAllFailedActions failed: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	state := h.coord.State()
	if state.FailedCount != 0 {
		t.Fatalf("expected failed count 0, got %d", state.FailedCount)
	}
	if state.PendingCount != pendingBefore || pendingBefore != 2 {
		t.Fatalf("expected pending count unchanged at 2, got before=%d after=%d", pendingBefore, state.PendingCount)
	}
	if len(h.attempter.Calls()) != 0 {
		t.Fatal("expected dismissal without network attempts")
	}
}

func TestDismissFailedAction(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	action := testsupport.Enqueue(t, h.store, queue.ActionUpdatePrivacy, "x")
	testsupport.MustFail(t, h.store, action.ID, queue.ErrorKindServerRejected, "nope")

	if err := h.coord.DismissFailedAction(ctx, action.ID); err != nil {
		t.Fatalf("DismissFailedAction failed: %v", err)
	}
	if h.coord.State().FailedCount != 0 {
		t.Fatal("expected failed count 0 after dismiss")
	}
	if err := h.coord.DismissFailedAction(ctx, action.ID); !errors.Is(err, syncer.ErrActionNotFound) {
		t.Fatalf("expected ErrActionNotFound on second dismiss, got %v", err)
	}
}

func TestCountsMatchStoreAcrossOperations(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	check := func(step string) {
		t.Helper()
		pending, failed := countByStatus(t, h.store)
		state := h.coord.State()
		if state.PendingCount+state.FailedCount != pending+failed {
			t.Fatalf("%s: state counts %d+%d != store counts %d+%d", step, state.PendingCount, state.FailedCount, pending, failed)
		}
		if state.PendingCount != pending || state.FailedCount != failed {
			t.Fatalf("%s: state %+v does not match store pending=%d failed=%d", step, state, pending, failed)
		}
	}

	a := testsupport.Enqueue(t, h.store, queue.ActionUpdateProfile, "a")
	testsupport.Enqueue(t, h.store, queue.ActionUpdateProfile, "b")
	c := testsupport.Enqueue(t, h.store, queue.ActionUpdateProfile, "c")
	_ = h.coord.Refresh(ctx)
	check("enqueue")

	h.attempter.FailLabel("a", networkErr("down"))
	h.attempter.FailLabel("c", networkErr("down"))
	h.coord.PerformFullSync(ctx)
	check("sync")

	if err := h.coord.DismissFailedAction(ctx, a.ID); err != nil {
		t.Fatalf("DismissFailedAction failed: %v", err)
	}
	check("dismiss")

	h.attempter.Succeed()
	if _, err := h.coord.RetryFailedAction(ctx, c.ID); err != nil {
		t.Fatalf("RetryFailedAction failed: %v", err)
	}
	check("retry")
}

func TestEmptyPassSetsLastSyncAndPersists(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	result := h.coord.PerformFullSync(ctx)
	if result.Status != "Up to date" {
		t.Fatalf("unexpected status %q", result.Status)
	}
	state := h.coord.State()
	if state.LastSyncDate == nil {
		t.Fatal("expected LastSyncDate after empty pass")
	}
	stored, err := h.store.LastSync(ctx)
	if err != nil {
		t.Fatalf("LastSync failed: %v", err)
	}
	if stored == nil || !stored.Equal(*state.LastSyncDate) {
		t.Fatalf("expected persisted last sync %v, got %v", state.LastSyncDate, stored)
	}

	reloaded := syncer.New(h.cfg, h.store, h.attempter, nil, nil)
	if err := reloaded.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if got := reloaded.State().LastSyncDate; got == nil || !got.Equal(*state.LastSyncDate) {
		t.Fatalf("expected reloaded last sync %v, got %v", state.LastSyncDate, got)
	}
}

func TestAllFailingPassDoesNotUpdateLastSync(t *testing.T) {
	h := newHarness(t)
	testsupport.Enqueue(t, h.store, queue.ActionUpdateProfile, "a")
	h.attempter.FailLabel("a", networkErr("down"))

	result := h.coord.PerformFullSync(context.Background())
	if result.Failed != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if h.coord.State().LastSyncDate != nil {
		t.Fatal("expected LastSyncDate unset when nothing completed")
	}
}

func TestSubscribeDeliversLatestSnapshot(t *testing.T) {
	h := newHarness(t)
	updates, unsubscribe := h.coord.Subscribe()
	defer unsubscribe()

	initial := <-updates
	if initial.IsSyncing {
		t.Fatal("expected initial snapshot idle")
	}

	testsupport.Enqueue(t, h.store, queue.ActionUpdateProfile, "a")
	h.coord.PerformFullSync(context.Background())

	latest := <-updates
	if latest.IsSyncing || latest.PendingCount != 0 || latest.LastSyncDate == nil {
		t.Fatalf("expected coalesced final snapshot, got %+v", latest)
	}
	select {
	case extra := <-updates:
		t.Fatalf("expected at most one buffered snapshot, got extra %+v", extra)
	default:
	}

	unsubscribe()
	if _, ok := <-updates; ok {
		t.Fatal("expected channel closed after unsubscribe")
	}
}

func TestOfflineToOnlineTriggersAutomaticSync(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	testsupport.Enqueue(t, h.store, queue.ActionUpdateProfile, "one")
	testsupport.Enqueue(t, h.store, queue.ActionSubmitStory, "two")

	observer := connectivity.NewWithProber(nil, 0, nil)
	observer.Set(false, "No connection")
	if err := h.coord.Start(ctx, observer); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer h.coord.Stop()

	if state := h.coord.State(); state.PendingCount != 2 || state.Online || state.LastSyncDate != nil {
		t.Fatalf("unexpected state before reconnect %+v", state)
	}

	started, release := h.attempter.Block()
	observer.Set(true, "Connected via wifi")

	<-started
	if !h.coord.State().IsSyncing {
		t.Fatal("expected IsSyncing true during automatic sync")
	}
	release()

	waitFor(t, "automatic sync to finish", func() bool {
		state := h.coord.State()
		return !state.IsSyncing && state.LastSyncDate != nil && state.PendingCount == 0
	})
	state := h.coord.State()
	if !state.Online || state.ConnectivityDescription != "Connected via wifi" {
		t.Fatalf("expected connectivity reflected in state, got %+v", state)
	}
	if calls := h.attempter.Calls(); len(calls) != 2 {
		t.Fatalf("expected 2 attempts, got %v", calls)
	}
	if payload, ok := h.notifier.payload(notifications.EventConnectivityRestored); !ok || payload["pending"] != 2 {
		t.Fatalf("expected connectivity restored notification with pending=2, got %+v", payload)
	}
}

func TestAutoSyncDisabledIgnoresReconnect(t *testing.T) {
	h := newHarness(t)
	h.cfg.Sync.AutoSyncOnReconnect = false
	coord := syncer.New(h.cfg, h.store, h.attempter, nil, nil)
	testsupport.Enqueue(t, h.store, queue.ActionUpdateProfile, "one")

	observer := connectivity.NewWithProber(nil, 0, nil)
	if err := coord.Start(context.Background(), observer); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	observer.Set(true, "Connected")
	waitFor(t, "online state", func() bool { return coord.State().Online })
	coord.Stop()

	if calls := h.attempter.Calls(); len(calls) != 0 {
		t.Fatalf("expected no automatic attempts, got %v", calls)
	}
}

func TestStartTwiceFails(t *testing.T) {
	h := newHarness(t)
	if err := h.coord.Start(context.Background(), nil); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer h.coord.Stop()
	if err := h.coord.Start(context.Background(), nil); err == nil {
		t.Fatal("expected second Start to fail")
	}
}

func TestActionTypeDescription(t *testing.T) {
	tests := map[queue.ActionType]string{
		queue.ActionUpdateProfile:     "Profile Update",
		queue.ActionUpdatePreferences: "Notification Preferences",
		queue.ActionSubmitStory:       "Success Story",
		queue.ActionReportMissing:     "Missing Pet Report",
		queue.ActionMarkFound:         "Pet Found Report",
		queue.ActionUpdatePrivacy:     "Privacy Settings",
		queue.ActionType("renew_tag"): "Renew Tag",
		queue.ActionType(""):          "Unknown Action",
	}
	for actionType, want := range tests {
		if got := syncer.ActionTypeDescription(actionType); got != want {
			t.Errorf("ActionTypeDescription(%q) = %q, want %q", actionType, got, want)
		}
	}
}

// staleHealthStore reads counts on its first Health call, then holds them
// until released, so a concurrent mutation lands between read and publish.
type staleHealthStore struct {
	*queue.Store
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func (s *staleHealthStore) Health(ctx context.Context) (queue.HealthSummary, error) {
	health, err := s.Store.Health(ctx)
	first := false
	s.once.Do(func() { first = true })
	if first {
		close(s.read)
		<-s.release
	}
	return health, err
}

func TestRefreshDoesNotPublishStaleCounts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	action := testsupport.Enqueue(t, store, queue.ActionUpdatePrivacy, "a")
	testsupport.MustFail(t, store, action.ID, queue.ErrorKindNetwork, "timeout")

	gated := &staleHealthStore{Store: store, read: make(chan struct{}), release: make(chan struct{})}
	coord := syncer.New(cfg, gated, testsupport.NewStubAttempter(), nil, nil)

	refreshed := make(chan error, 1)
	go func() { refreshed <- coord.Refresh(ctx) }()
	<-gated.read

	dismissed := make(chan error, 1)
	go func() { dismissed <- coord.DismissFailedAction(ctx, action.ID) }()
	waitFor(t, "dismissal to reach the store", func() bool {
		_, failed := countByStatus(t, store)
		return failed == 0
	})
	close(gated.release)

	if err := <-refreshed; err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if err := <-dismissed; err != nil {
		t.Fatalf("DismissFailedAction failed: %v", err)
	}
	if got := coord.State().FailedCount; got != 0 {
		t.Fatalf("published FailedCount=%d after dismissal, store has 0", got)
	}
}

// dismissingAttempter removes the action from the store while "sending" it
// and then reports a network failure.
type dismissingAttempter struct {
	store *queue.Store
}

func (a *dismissingAttempter) Attempt(ctx context.Context, action *queue.Action) error {
	if _, err := a.store.Remove(ctx, action.ID); err != nil {
		return err
	}
	return networkErr("connection reset")
}

func TestActionDismissedDuringAttemptIsNotCountedAsFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	notifier := &recordingNotifier{}
	coord := syncer.New(cfg, store, &dismissingAttempter{store: store}, notifier, nil)
	ctx := context.Background()
	testsupport.Enqueue(t, store, queue.ActionUpdateProfile, "gone")

	result := coord.PerformFullSync(ctx)
	if result.Failed != 0 || result.Attempted != 0 {
		t.Fatalf("expected dismissed action left out of counts, got %+v", result)
	}
	if _, ok := notifier.payload(notifications.EventSyncFailures); ok {
		t.Fatal("expected no sync_failures notification for a dismissed action")
	}
	if state := coord.State(); state.FailedCount != 0 || state.PendingCount != 0 {
		t.Fatalf("unexpected state %+v", state)
	}
}
