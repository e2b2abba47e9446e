package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/sarmentow/codepencil/internal/config"
)

// ConfigOption adjusts a test configuration after defaults are applied.
type ConfigOption func(*config.Config)

// NewConfig returns the default config rooted in a fresh temp directory:
// in-process yaegi execution, short timeouts and an ephemeral serve port.
// Directories are not created; call EnsureDirectories when a test needs them.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Serve.Bind = "127.0.0.1:0"
	cfg.Bridge.Isolation = config.IsolationInProcess
	cfg.Bridge.RequestTimeout = 5
	cfg.Bridge.ExecTimeout = 2

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithoutLiveHandles forces every project through the archive backend.
func WithoutLiveHandles() ConfigOption {
	return func(cfg *config.Config) { cfg.Storage.LiveHandles = false }
}

// WithCommandRuntime switches the sandbox to an external interpreter.
func WithCommandRuntime(command ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Bridge.Runtime = config.RuntimeCommand
		cfg.Bridge.Command = command
	}
}

// BaseDir returns the temp directory NewConfig rooted cfg in.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
