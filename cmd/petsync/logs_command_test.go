package main

import (
	"os"
	"strings"
	"testing"
)

func TestLogsCommandFormatsAndFilters(t *testing.T) {
	env := setupCLITestEnv(t, false)
	lines := []string{
		`{"ts":"2026-03-01T10:00:00Z","level":"info","msg":"sync pass started","component":"syncer","pending":2}`,
		`{"ts":"2026-03-01T10:00:01Z","level":"warn","msg":"action sync failed","component":"syncer","action_id":"a-1","error_kind":"network"}`,
		`{"ts":"2026-03-01T10:00:02Z","level":"info","msg":"connectivity changed","component":"connectivity"}`,
	}
	if err := os.WriteFile(env.cfg.LogFilePath(), []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, err := env.run(t, "logs")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "[syncer] sync pass started")
	requireContains(t, out, "action_id=a-1")
	requireContains(t, out, "[connectivity] connectivity changed")

	out, err = env.run(t, "logs", "--level", "warn")
	if err != nil {
		t.Fatalf("logs --level: %v", err)
	}
	if strings.Contains(out, "sync pass started") {
		t.Fatalf("expected info lines filtered out, got %q", out)
	}
	requireContains(t, out, "WARN")

	out, err = env.run(t, "logs", "-n", "1", "--raw")
	if err != nil {
		t.Fatalf("logs -n 1: %v", err)
	}
	if strings.TrimSpace(out) != lines[2] {
		t.Fatalf("expected last raw line, got %q", out)
	}

	out, err = env.run(t, "logs", "--component", "syncer", "--action", "a-1")
	if err != nil {
		t.Fatalf("logs --action: %v", err)
	}
	if strings.Count(strings.TrimSpace(out), "\n") != 0 {
		t.Fatalf("expected a single matching entry, got %q", out)
	}
}
