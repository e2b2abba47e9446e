//go:build unix

package bridge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/sarmentow/codepencil/internal/logging"
)

// ProcessOptions configures a worker process.
type ProcessOptions struct {
	Path string
	Args []string
	// Env is the complete worker environment. The parent environment is not
	// inherited.
	Env    []string
	Dir    string
	Stderr io.Writer
	// Grace is how long Close waits after closing stdin before killing the
	// worker's process group.
	Grace time.Duration
}

// ProcessLauncher starts a separate worker process in its own process group
// and talks to it over stdin/stdout.
func ProcessLauncher(opts ProcessOptions, logger *slog.Logger) Launcher {
	logger = logging.NewComponentLogger(logger, "bridge")
	if opts.Grace <= 0 {
		opts.Grace = 2 * time.Second
	}
	return func(ctx context.Context) (ExecContext, error) {
		cmd := exec.Command(opts.Path, opts.Args...)
		cmd.Env = opts.Env
		if cmd.Env == nil {
			cmd.Env = []string{}
		}
		cmd.Dir = opts.Dir
		cmd.Stderr = opts.Stderr
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

		stdin, err := cmd.StdinPipe()
		if err != nil {
			return nil, fmt.Errorf("worker stdin: %w", err)
		}
		// A plain pipe rather than StdoutPipe: Wait runs concurrently with the
		// reader and must not close stdout underneath it.
		stdout, stdoutW, err := os.Pipe()
		if err != nil {
			return nil, fmt.Errorf("worker stdout: %w", err)
		}
		cmd.Stdout = stdoutW
		if err := cmd.Start(); err != nil {
			_ = stdout.Close()
			_ = stdoutW.Close()
			return nil, fmt.Errorf("start worker: %w", err)
		}
		_ = stdoutW.Close()
		pid := cmd.Process.Pid
		logger.Debug("worker started", logging.Int("pid", pid), logging.String("path", opts.Path))

		exited := make(chan struct{})
		go func() {
			err := cmd.Wait()
			close(exited)
			logger.Debug("worker exited", logging.Int("pid", pid), logging.Error(err))
		}()

		go func() {
			select {
			case <-ctx.Done():
				killGroup(pid)
			case <-exited:
			}
		}()

		closer := func() error {
			select {
			case <-exited:
				return nil
			case <-time.After(opts.Grace):
			}
			killGroup(pid)
			<-exited
			return nil
		}
		return NewStream(stdout, stdin, func() error {
			err := closer()
			_ = stdout.Close()
			return err
		}), nil
	}
}

func killGroup(pid int) {
	if pgid, err := unix.Getpgid(pid); err == nil && pgid > 0 {
		_ = unix.Kill(-pgid, unix.SIGKILL)
		return
	}
	_ = unix.Kill(pid, unix.SIGKILL)
}
