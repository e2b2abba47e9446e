//go:build !unix

package bridge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"
)

// ProcessOptions configures a worker process.
type ProcessOptions struct {
	Path   string
	Args   []string
	Env    []string
	Dir    string
	Stderr io.Writer
	Grace  time.Duration
}

// ProcessLauncher is unavailable on this platform.
func ProcessLauncher(ProcessOptions, *slog.Logger) Launcher {
	return func(context.Context) (ExecContext, error) {
		return nil, errors.New("process isolation requires a unix host; set bridge.isolation = \"inprocess\"")
	}
}
