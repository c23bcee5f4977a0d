package main

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestFlagsToOptions(t *testing.T) {
	cmd := newRootCommand()
	if err := cmd.ParseFlags([]string{"--socket", " /run/petsync.sock ", "--log-level", "debug", "--diagnostic"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	socket, _ := cmd.Flags().GetString("socket")
	level, _ := cmd.Flags().GetString("log-level")
	diagnostic, _ := cmd.Flags().GetBool("diagnostic")

	opts := flags{socketPath: socket, logLevel: level, diagnostic: diagnostic}.options()
	if opts.SocketPath != "/run/petsync.sock" || opts.LogLevel != "debug" || !opts.Diagnostic {
		t.Fatalf("unexpected options: %+v", opts)
	}
}

func TestRunFailsWithoutBaseURL(t *testing.T) {
	t.Setenv("PETSYNC_API_BASE_URL", "")
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)

	cmd := newRootCommand()
	cmd.SetArgs([]string{"--config", filepath.Join(dir, "missing.toml")})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "api.base_url is required") {
		t.Fatalf("expected base url error, got %v", err)
	}
}

func TestRejectsPositionalArgs(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"extra"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for positional argument")
	}
}
