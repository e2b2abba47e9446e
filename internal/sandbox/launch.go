package sandbox

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/sarmentow/codepencil/internal/bridge"
	"github.com/sarmentow/codepencil/internal/config"
)

// NewLauncher returns the launcher selected by bridge.isolation. Process
// isolation re-executes the running binary as a hidden worker that loads
// configPath.
func NewLauncher(cfg *config.Config, configPath string, logger *slog.Logger) (bridge.Launcher, error) {
	switch cfg.Bridge.Isolation {
	case config.IsolationInProcess:
		rt, err := FromConfig(cfg)
		if err != nil {
			return nil, err
		}
		return bridge.LocalLauncher(NewWorker(rt, logger).Serve, logger), nil
	case config.IsolationProcess, "":
		self, err := bridge.SelfExecutable()
		if err != nil {
			return nil, fmt.Errorf("locate worker binary: %w", err)
		}
		args := []string{bridge.WorkerCommand}
		if configPath != "" {
			args = append(args, "--config", configPath)
		}
		env := minimalEnv()
		if level := os.Getenv("CODEPENCIL_LOG_LEVEL"); level != "" {
			env = append(env, "CODEPENCIL_LOG_LEVEL="+level)
		}
		return bridge.ProcessLauncher(bridge.ProcessOptions{
			Path:   self,
			Args:   args,
			Env:    env,
			Dir:    cfg.Paths.DataDir,
			Stderr: os.Stderr,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown isolation %q", cfg.Bridge.Isolation)
	}
}

// NewBridge wires a bridge to the configured launcher.
func NewBridge(cfg *config.Config, configPath string, logger *slog.Logger) (*bridge.Bridge, error) {
	launch, err := NewLauncher(cfg, configPath, logger)
	if err != nil {
		return nil, err
	}
	return bridge.New(launch,
		bridge.WithTimeout(cfg.RequestTimeout()),
		bridge.WithLogger(logger),
	), nil
}
