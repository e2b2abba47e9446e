package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/sarmentow/codepencil/internal/storage"
)

// promptGranter asks on the terminal before a backend touches a project.
type promptGranter struct {
	in  *bufio.Reader
	out io.Writer
}

func (p promptGranter) Grant(ctx context.Context, target string, access storage.Access) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(p.out, "Allow %s access to %s? [y/N] ", access, abs)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", storage.ErrCancelled
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return abs, nil
	default:
		return "", storage.ErrCancelled
	}
}

// granter prompts only when stdin is an interactive terminal and --yes was
// not given. Scripted runs are granted access to what they name.
func (c *commandContext) granter(cmd *cobra.Command) storage.Granter {
	if c.assumeYes() {
		return storage.AllowAll
	}
	in := cmd.InOrStdin()
	file, ok := in.(*os.File)
	if !ok || !isTerminal(file) {
		return storage.AllowAll
	}
	return promptGranter{in: bufio.NewReader(in), out: cmd.ErrOrStderr()}
}

func isTerminal(file *os.File) bool {
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
