package preflight

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"petsync/internal/backend"
	"petsync/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckBackend_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	result := CheckBackend(context.Background(), backend.NewWithClient(srv.URL, "", "", srv.Client()))
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckBackend_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	result := CheckBackend(context.Background(), backend.NewWithClient(srv.URL, "", "", srv.Client()))
	if result.Passed {
		t.Fatal("expected failure for 503")
	}
	if !strings.Contains(result.Detail, "503") {
		t.Fatalf("expected status in detail, got %q", result.Detail)
	}
}

type slowChecker struct{}

func (slowChecker) Health(context.Context) error { return context.DeadlineExceeded }

type failingChecker struct{ err error }

func (f failingChecker) Health(context.Context) error { return f.err }

func TestCheckBackend_Summaries(t *testing.T) {
	result := CheckBackend(context.Background(), slowChecker{})
	if result.Passed || !strings.Contains(result.Detail, "timed out") {
		t.Fatalf("expected timeout summary, got %+v", result)
	}
	result = CheckBackend(context.Background(), failingChecker{err: errors.New("dns failure")})
	if result.Detail != "dns failure" {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
	if CheckBackend(context.Background(), nil).Passed {
		t.Fatal("expected nil checker to fail")
	}
}

func TestCheckConnectivity_StateFile(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStateFile())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	if err := os.WriteFile(cfg.Connectivity.StateFile, []byte("online eth0\n"), 0o644); err != nil {
		t.Fatalf("write state: %v", err)
	}
	result := CheckConnectivity(context.Background(), cfg)
	if !result.Passed || result.Detail != "Connected via eth0" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCheckConnectivity_HTTPProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithBaseURL(srv.URL))
	result := CheckConnectivity(context.Background(), cfg)
	if !result.Passed {
		t.Fatalf("expected probe to pass, got %+v", result)
	}
}

func TestCheckNotificationTopic(t *testing.T) {
	if CheckNotificationTopic("").Passed {
		t.Fatal("expected empty topic to fail")
	}
	if CheckNotificationTopic("ntfy.sh/topic").Passed {
		t.Fatal("expected schemeless topic to fail")
	}
	result := CheckNotificationTopic("https://ntfy.sh/petsync")
	if !result.Passed || result.Detail != "ntfy.sh/petsync" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_ReachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithBaseURL(srv.URL))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), cfg)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
	if Failed(results) {
		t.Fatal("expected no failures")
	}

	cfg.Notifications.NtfyTopic = "not a url"
	results = RunAll(context.Background(), cfg)
	if len(results) != 5 || !Failed(results) {
		t.Fatalf("expected failing notification check, got %+v", results)
	}
}
