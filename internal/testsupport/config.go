package testsupport

import (
	"path/filepath"
	"testing"

	"petsync/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = ""
	cfgVal.API.BaseURL = "http://127.0.0.1:1"
	cfgVal.API.Token = "test-token"
	cfgVal.Connectivity.ProbeURL = "http://127.0.0.1:1/health"
	cfgVal.Connectivity.Netlink = false
	cfgVal.Sync.IntervalSeconds = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithBaseURL points the backend client and health probe at url.
func WithBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.BaseURL = url
		b.cfg.Connectivity.ProbeURL = url + "/health"
	}
}

// WithCapacity overrides the queue capacity.
func WithCapacity(capacity int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Queue.Capacity = capacity
	}
}

// WithMaxRetries overrides the retry cap used by retry-all.
func WithMaxRetries(maxRetries int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Queue.MaxRetries = maxRetries
	}
}

// WithStateFile switches connectivity to a state file under the temp directory.
func WithStateFile() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Connectivity.StateFile = filepath.Join(b.baseDir, "state", "connectivity")
	}
}

// WithAPIBind enables the HTTP API on addr.
func WithAPIBind(addr, token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIBind = addr
		b.cfg.Paths.APIToken = token
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
