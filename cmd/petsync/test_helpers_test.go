package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"petsync/internal/config"
	"petsync/internal/connectivity"
	"petsync/internal/daemon"
	"petsync/internal/ipc"
	"petsync/internal/logging"
	"petsync/internal/queue"
	"petsync/internal/syncer"
	"petsync/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *queue.Store
	attempter  *testsupport.StubAttempter
	daemon     *daemon.Daemon
	server     *ipc.Server
	socketPath string
	configPath string
}

// setupCLITestEnv writes a config file for an offline state-file setup. With
// withDaemon set it also runs a daemon backed by a stub attempter and serves
// IPC on socketPath; otherwise socketPath points at nothing and commands fall
// back to the queue database.
func setupCLITestEnv(t *testing.T, withDaemon bool) *cliTestEnv {
	t.Helper()

	for _, key := range []string{"PETSYNC_API_BASE_URL", "PETSYNC_API_TOKEN", "PETSYNC_NTFY_TOPIC", "PETSYNC_STATUS_TOKEN"} {
		t.Setenv(key, "")
	}

	cfg := testsupport.NewConfig(t, testsupport.WithStateFile())
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	if err := os.WriteFile(cfg.Connectivity.StateFile, []byte("offline\n"), 0o644); err != nil {
		t.Fatalf("write state file: %v", err)
	}

	configPath := filepath.Join(base, "petsync.toml")
	writeTestConfig(t, configPath, cfg)

	env := &cliTestEnv{
		cfg:        cfg,
		store:      testsupport.MustOpenStore(t, cfg),
		socketPath: filepath.Join(base, "cli.sock"),
		configPath: configPath,
	}
	if !withDaemon {
		return env
	}

	logger := logging.NewNop()
	env.attempter = testsupport.NewStubAttempter()
	coord := syncer.New(cfg, env.store, env.attempter, nil, logger)
	observer := connectivity.NewObserver(cfg, logger)
	d, err := daemon.New(cfg, env.store, logger, coord, observer, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("daemon start: %v", err)
	}

	srv, err := ipc.NewServer(ctx, env.socketPath, d, logger)
	if err != nil {
		cancel()
		d.Stop()
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	d.SetShutdownFunc(srv.Close)

	env.daemon = d
	env.server = srv
	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Stop()
	})
	return env
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	stdout, _, err := runCLI(t, args, e.socketPath, e.configPath)
	return stdout, err
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
