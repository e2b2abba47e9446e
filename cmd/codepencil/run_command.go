package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sarmentow/codepencil/internal/bridge"
	"github.com/sarmentow/codepencil/internal/ipc"
	"github.com/sarmentow/codepencil/internal/notebook"
	"github.com/sarmentow/codepencil/internal/sandbox"
)

// errRunFailed is returned when any executed code wrote to stderr, so the
// process exits non-zero.
var errRunFailed = errors.New("execution reported errors")

func newRunCommand(ctx *commandContext) *cobra.Command {
	var projectPath string
	var cellNumber int
	var serverURL string
	var parallel bool

	cmd := &cobra.Command{
		Use:   "run [file|-]",
		Short: "Run code in the isolated execution context",
		Long: "Run a source file, stdin, or the recognized code of project cells.\n" +
			"With --server the code runs on a `codepencil serve` instance instead of a local worker.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.log()

			var cells []notebook.Cell
			offset := 0
			switch {
			case projectPath != "" && len(args) > 0:
				return errors.New("pass either a file or --project, not both")
			case projectPath != "":
				projects, err := ctx.projects(cmd)
				if err != nil {
					return err
				}
				_, res := projects.load(cmd.Context(), projectPath)
				projects.Close()
				ok, err := reportResult(cmd.OutOrStdout(), "load", res.Result)
				if !ok {
					return err
				}
				cells, offset, err = selectCells(res.Project.Cells, cellNumber)
				if err != nil {
					return err
				}
			default:
				code, err := readCode(cmd, args)
				if err != nil {
					return err
				}
				cell := notebook.NewCell()
				cell.SetRecognizedCode(code)
				cells = []notebook.Cell{cell}
			}

			var b *bridge.Bridge
			if serverURL != "" {
				b = bridge.New(ipc.Launcher(serverURL),
					bridge.WithTimeout(cfg.RequestTimeout()),
					bridge.WithLogger(logger),
				)
			} else {
				b, err = sandbox.NewBridge(cfg, ctx.configPath, logger)
				if err != nil {
					return err
				}
			}
			defer b.Close()

			if err := runCells(cmd.Context(), b, cells, parallel); err != nil {
				return err
			}
			return printRuns(cmd, cells, offset)
		},
	}

	cmd.Flags().StringVarP(&projectPath, "project", "p", "", "Run cells of this project")
	cmd.Flags().IntVar(&cellNumber, "cell", 0, "Only run this cell (1-based); default runs every cell")
	cmd.Flags().StringVar(&serverURL, "server", "", "Run on a codepencil serve instance (host:port or ws:// URL)")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "Submit all cells at once instead of one after another")
	return cmd
}

func readCode(cmd *cobra.Command, args []string) (string, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return "", fmt.Errorf("read code: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", errors.New("no code to run")
	}
	return string(data), nil
}

// runCells submits each cell with recognized code and records its output on
// the cell. Cells without code are left idle.
func runCells(ctx context.Context, b *bridge.Bridge, cells []notebook.Cell, parallel bool) error {
	run := func(cell *notebook.Cell) {
		if strings.TrimSpace(cell.RecognizedCode) == "" {
			return
		}
		cell.MarkRunning()
		out := b.Submit(ctx, cell.RecognizedCode)
		cell.RecordRun(out.Stdout, out.Stderr)
	}

	if !parallel {
		for i := range cells {
			if err := ctx.Err(); err != nil {
				return err
			}
			run(&cells[i])
		}
		return nil
	}

	var g errgroup.Group
	for i := range cells {
		g.Go(func() error {
			run(&cells[i])
			return nil
		})
	}
	return g.Wait()
}

func printRuns(cmd *cobra.Command, cells []notebook.Cell, offset int) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	colorize := shouldColorize(out)
	failed := false
	for i, cell := range cells {
		if len(cells) > 1 {
			fmt.Fprintln(out, renderSectionHeader(fmt.Sprintf("cell %d", offset+i+1), colorize))
		}
		if cell.RunStatus == notebook.RunIdle {
			fmt.Fprintln(out, "(no recognized code)")
			continue
		}
		fmt.Fprint(out, cell.Stdout)
		if cell.Stderr != "" {
			failed = true
			fmt.Fprint(errOut, cell.Stderr)
			if !strings.HasSuffix(cell.Stderr, "\n") {
				fmt.Fprintln(errOut)
			}
		}
	}
	if failed {
		return errRunFailed
	}
	return nil
}
