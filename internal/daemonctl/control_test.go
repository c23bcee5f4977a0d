package daemonctl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"petsync/internal/api"
	"petsync/internal/queue"
	"petsync/internal/testsupport"
)

func TestBuildStatusSnapshotFallsBackToStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.Enqueue(t, store, queue.ActionUpdateProfile, "pending")
	failed := testsupport.Enqueue(t, store, queue.ActionUpdatePrivacy, "failed")
	testsupport.MustFail(t, store, failed.ID, queue.ErrorKindNetwork, "offline")
	syncedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := store.SetLastSync(context.Background(), syncedAt); err != nil {
		t.Fatalf("SetLastSync: %v", err)
	}

	status, err := BuildStatusSnapshot(context.Background(), filepath.Join(t.TempDir(), "missing.sock"), cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	if status.Running {
		t.Fatal("expected daemon to be reported as not running")
	}
	if status.Sync.PendingCount != 1 || status.Sync.FailedCount != 1 {
		t.Fatalf("unexpected counts %+v", status.Sync)
	}
	if got := api.ParseTime(status.Sync.LastSyncDate); !got.Equal(syncedAt) {
		t.Fatalf("expected last sync %s, got %q", syncedAt, status.Sync.LastSyncDate)
	}
}

func TestBuildSystemChecksOffline(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStateFile())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	if err := os.WriteFile(cfg.Connectivity.StateFile, []byte("offline\n"), 0o644); err != nil {
		t.Fatalf("write state: %v", err)
	}

	lines := BuildSystemChecks(context.Background(), cfg, api.DaemonStatus{})
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	if lines[0].Severity != "warn" {
		t.Fatalf("expected daemon warning, got %+v", lines[0])
	}
	if lines[1].Label != "Connectivity" || lines[1].Severity != "warn" || lines[1].Detail != "No connection" {
		t.Fatalf("unexpected connectivity line %+v", lines[1])
	}
	if lines[3].Detail != "Inactive (daemon not running)" {
		t.Fatalf("unexpected network events line %+v", lines[3])
	}
}

func TestBuildSystemChecksRunning(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = "https://ntfy.sh/petsync"
	status := api.DaemonStatus{
		Running: true,
		PID:     42,
		Netlink: true,
		Sync:    api.SyncStatus{Online: true, ConnectivityDescription: "Connected to api.example.test"},
	}

	lines := BuildSystemChecks(context.Background(), cfg, status)
	want := []StatusLine{
		{Label: "PetSync", Severity: "ok", Detail: "Running (pid 42)"},
		{Label: "Connectivity", Severity: "ok", Detail: "Connected to api.example.test"},
		{Label: "Notifications", Severity: "ok", Detail: "Configured"},
		{Label: "Network Events", Severity: "ok", Detail: "Netlink monitoring active"},
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d", len(want), len(lines))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: got %+v want %+v", i, lines[i], want[i])
		}
	}
}

func TestProcessInfoMissingSocket(t *testing.T) {
	alive, pid, err := ProcessInfo(filepath.Join(t.TempDir(), "missing.sock"))
	if err != nil {
		t.Fatalf("ProcessInfo: %v", err)
	}
	if alive || pid != 0 {
		t.Fatalf("expected no daemon, got alive=%v pid=%d", alive, pid)
	}
}

func TestStopAndTerminateWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := StopAndTerminate(filepath.Join(t.TempDir(), "missing.sock"), cfg, time.Second)
	if !errors.Is(err, ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestForceKillProcessRefusesSelf(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "petsyncd.pid")
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	if _, err := ForceKillProcess(pidPath, "", 0); err == nil {
		t.Fatal("expected refusal to kill current process")
	}
	if _, err := ForceKillProcess(filepath.Join(t.TempDir(), "none.pid"), "", 0); err == nil {
		t.Fatal("expected error without a pid")
	}
}

func TestLaunchRequiresExecutable(t *testing.T) {
	if err := Launch("  ", LaunchOptions{}); err == nil {
		t.Fatal("expected error for empty executable path")
	}
}
