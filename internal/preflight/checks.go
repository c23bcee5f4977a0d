package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"petsync/internal/config"
	"petsync/internal/connectivity"
	"petsync/internal/services"
)

// HealthChecker is satisfied by the backend client.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// CheckBackend verifies that the backend health endpoint answers.
// It uses a 10-second timeout and a single attempt.
func CheckBackend(ctx context.Context, client HealthChecker) Result {
	const name = "Backend API"
	if client == nil {
		return Result{Name: name, Detail: "not configured"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.Health(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// CheckConnectivity runs the configured connectivity probe once.
func CheckConnectivity(ctx context.Context, cfg *config.Config) Result {
	const name = "Connectivity"
	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}

	var prober connectivity.Prober
	if path := strings.TrimSpace(cfg.Connectivity.StateFile); path != "" {
		prober = &connectivity.FileProber{Path: path}
	} else {
		timeout := time.Duration(cfg.Connectivity.ProbeTimeoutSeconds) * time.Second
		prober = connectivity.NewHTTPProber(cfg.Connectivity.ProbeURL, timeout)
	}

	result := prober.Probe(ctx)
	return Result{Name: name, Passed: result.Online, Detail: result.Description}
}

// CheckNotificationTopic validates the ntfy topic URL without publishing.
func CheckNotificationTopic(topic string) Result {
	const name = "Notifications"
	trimmed := strings.TrimSpace(topic)
	if trimmed == "" {
		return Result{Name: name, Detail: "Not configured"}
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return Result{Name: name, Detail: fmt.Sprintf("invalid topic url %q", trimmed)}
	}
	return Result{Name: name, Passed: true, Detail: parsed.Host + parsed.Path}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (backend unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (backend unreachable)"
	}
	return services.Message(err)
}
