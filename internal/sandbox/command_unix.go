//go:build unix

package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Command runs code by piping it to an external interpreter's stdin. The
// child runs in its own process group with a minimal environment, and the
// whole group is killed on timeout.
type Command struct {
	argv    []string
	timeout time.Duration
	dir     string
}

// NewCommand builds a runtime around argv, for example ["python3", "-"].
func NewCommand(argv []string, timeout time.Duration) (*Command, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, errors.New("command runtime: empty command")
	}
	return &Command{argv: append([]string(nil), argv...), timeout: timeout}, nil
}

// WithDir sets the working directory of the child.
func (c *Command) WithDir(dir string) *Command {
	c.dir = dir
	return c
}

// Name implements Runtime.
func (c *Command) Name() string { return "command" }

// Run implements Runtime.
func (c *Command) Run(ctx context.Context, code string) Result {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.argv[0], c.argv[1:]...)
	cmd.Stdin = strings.NewReader(code)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Dir = c.dir
	cmd.Env = minimalEnv()
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		if err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
			return cmd.Process.Kill()
		}
		return nil
	}
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.Stderr = appendLine(res.Stderr, fmt.Sprintf("execution exceeded %s", c.timeout))
	case errors.Is(ctx.Err(), context.Canceled):
		res.Stderr = appendLine(res.Stderr, "execution cancelled")
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.Stderr = appendLine(res.Stderr, fmt.Sprintf("exit status %d", exitErr.ExitCode()))
		} else {
			res.Stderr = appendLine(res.Stderr, err.Error())
		}
	}
	return res
}
