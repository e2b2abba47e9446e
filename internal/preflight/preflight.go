package preflight

import (
	"context"

	"github.com/sarmentow/codepencil/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckRuntime(cfg),
	}

	if cfg.Bridge.Isolation == config.IsolationProcess {
		results = append(results, CheckWorkerExecutable())
	}

	results = append(results, CheckBind(ctx, cfg.Serve.Bind))

	if cfg.History.Enabled {
		results = append(results, CheckHistory(ctx, cfg))
	}

	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
