package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"petsync/internal/backend"
	"petsync/internal/config"
	"petsync/internal/connectivity"
	"petsync/internal/daemon"
	"petsync/internal/ipc"
	"petsync/internal/logging"
	"petsync/internal/notifications"
	"petsync/internal/queue"
	"petsync/internal/syncer"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel   string
	Diagnostic bool
	SocketPath string
}

// Run starts the petsync daemon runtime loop and blocks until the context is
// cancelled, a termination signal arrives, or a client requests shutdown.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		cfg.Logging.Level = strings.ToLower(level)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if opts.Diagnostic {
		logger = withDiagnosticLog(logger, cfg)
	}

	logConfigSnapshot(logger, cfg)
	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	notifier := notifications.NewService(cfg)
	client := backend.New(cfg)
	observer := connectivity.NewObserver(cfg, logger)
	coord := syncer.New(cfg, store, client, notifier, logger)

	d, err := daemon.New(cfg, store, logger, coord, observer, notifier)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	d.SetShutdownFunc(cancel)
	defer d.Stop()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check for another running petsyncd and queue database access"),
			logging.String(logging.FieldImpact, "queued actions will not sync"),
		)
		return err
	}

	socketPath := strings.TrimSpace(opts.SocketPath)
	if socketPath == "" {
		socketPath = cfg.SocketPath()
	}
	ipcServer, err := ipc.NewServer(signalCtx, socketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	<-signalCtx.Done()
	logger.Info("petsync daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

func withDiagnosticLog(logger *slog.Logger, cfg *config.Config) *slog.Logger {
	sessionID := uuid.NewString()
	runID := time.Now().UTC().Format("20060102T150405.000Z")
	debugDir := filepath.Join(cfg.Paths.LogDir, "debug")
	if err := os.MkdirAll(debugDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to create debug log directory: %v\n", err)
		return logger
	}
	debugLogPath := filepath.Join(debugDir, fmt.Sprintf("petsyncd-%s.log", runID))
	debugLogger, err := logging.New(logging.Options{
		Level:       "debug",
		Format:      "json",
		OutputPaths: []string{debugLogPath},
		Development: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to initialize debug logger: %v\n", err)
		return logger
	}
	logger = logging.TeeLogger(logger, debugLogger.With(logging.String("session_id", sessionID)).Handler())
	logger.Info("diagnostic mode enabled",
		logging.String(logging.FieldEventType, "diagnostic_mode_enabled"),
		logging.String("session_id", sessionID),
		logging.String("debug_log_path", debugLogPath),
	)
	return logger
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	probe := cfg.Connectivity.ProbeURL
	if cfg.Connectivity.StateFile != "" {
		probe = "file:" + cfg.Connectivity.StateFile
	}
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.String("api_base_url", cfg.API.BaseURL),
		logging.Bool("api_token_present", strings.TrimSpace(cfg.API.Token) != ""),
		logging.String("connectivity_probe", probe),
		logging.Bool("netlink", cfg.Connectivity.Netlink),
		logging.Int("queue_capacity", cfg.Queue.Capacity),
		logging.Int("max_retries", cfg.Queue.MaxRetries),
		logging.Bool("auto_sync_on_reconnect", cfg.Sync.AutoSyncOnReconnect),
		logging.Int("sync_interval_seconds", cfg.Sync.IntervalSeconds),
		logging.Bool("notifications_configured", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.String("api_bind", cfg.Paths.APIBind),
	)
}
