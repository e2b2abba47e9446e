//go:build !unix

package sandbox

import (
	"context"
	"errors"
	"time"
)

// Command is unavailable on this platform.
type Command struct{}

// NewCommand always fails on this platform.
func NewCommand(argv []string, timeout time.Duration) (*Command, error) {
	return nil, errors.New("command runtime requires a unix platform")
}

// WithDir is a no-op on this platform.
func (c *Command) WithDir(string) *Command { return c }

// Name implements Runtime.
func (c *Command) Name() string { return "command" }

// Run implements Runtime.
func (c *Command) Run(context.Context, string) Result {
	return Result{Stderr: "command runtime requires a unix platform\n"}
}
