package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sarmentow/codepencil/internal/history"
	"github.com/sarmentow/codepencil/internal/notebook"
	"github.com/sarmentow/codepencil/internal/storage"
	"github.com/sarmentow/codepencil/internal/storage/livehandle"
)

func newProjectCommand(ctx *commandContext) *cobra.Command {
	projectCmd := &cobra.Command{
		Use:   "project",
		Short: "Save, load, and convert notebook projects",
	}

	projectCmd.AddCommand(newProjectNewCommand(ctx))
	projectCmd.AddCommand(newProjectShowCommand(ctx))
	projectCmd.AddCommand(newProjectCellsCommand(ctx))
	projectCmd.AddCommand(newProjectConvertCommand(ctx))

	return projectCmd
}

func newProjectNewCommand(ctx *commandContext) *cobra.Command {
	var fromPath string
	var cellCount int

	cmd := &cobra.Command{
		Use:   "new <target>",
		Short: "Create a project from a notebook snapshot or empty cells",
		Long: "Create a project at <target>. A target ending in .zip is written as an archive;\n" +
			"anything else is a project directory unless live handles are disabled.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var cells []notebook.Cell
			if strings.TrimSpace(fromPath) != "" {
				nb, err := readSnapshot(cmd, fromPath)
				if err != nil {
					return err
				}
				cells = nb.Cells
			} else {
				if cellCount < 1 {
					return errors.New("--cells must be at least 1")
				}
				for i := 0; i < cellCount; i++ {
					cells = append(cells, notebook.NewCell())
				}
			}

			projects, err := ctx.projects(cmd)
			if err != nil {
				return err
			}
			defer projects.Close()

			backend, res := projects.save(cmd.Context(), args[0], cells)
			ok, err := reportResult(cmd.OutOrStdout(), "save", res)
			if !ok {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %d %s to %s (%s)\n", len(cells), plural(len(cells), "cell"), res.Target, backend)
			return nil
		},
	}

	cmd.Flags().StringVar(&fromPath, "from", "", "Notebook snapshot JSON to persist (- for stdin)")
	cmd.Flags().IntVar(&cellCount, "cells", 1, "Number of empty cells when --from is not given")
	return cmd
}

func readSnapshot(cmd *cobra.Command, path string) (*notebook.Notebook, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open snapshot: %w", err)
		}
		defer f.Close()
		r = f
	}
	nb, err := notebook.Decode(r)
	if err != nil {
		return nil, err
	}
	if len(nb.Cells) == 0 {
		return nil, storage.ErrNoCells
	}
	return nb, nil
}

// projectView is the JSON shape of `project show --json`.
type projectView struct {
	Target       string             `json:"target"`
	Backend      string             `json:"backend"`
	FromManifest bool               `json:"fromManifest"`
	StrokeWidth  float64            `json:"strokeWidth"`
	Skipped      []string           `json:"skipped,omitempty"`
	Notebook     *notebook.Notebook `json:"notebook"`
}

func newProjectShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var watch bool

	cmd := &cobra.Command{
		Use:   "show <target>",
		Short: "Load a project and summarize its cells",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := ctx.projects(cmd)
			if err != nil {
				return err
			}
			defer projects.Close()

			target := args[0]
			show := func() (string, error) {
				backend, res := projects.load(cmd.Context(), target)
				ok, err := reportResult(cmd.OutOrStdout(), "load", res.Result)
				if !ok {
					return "", err
				}
				if jsonOutput {
					return res.Target, writeJSON(cmd, newProjectView(backend, res))
				}
				printProject(cmd.OutOrStdout(), backend, res)
				return res.Target, nil
			}

			root, err := show()
			if err != nil || !watch || root == "" {
				return err
			}
			if projects.backendFor(target) != storage.LiveHandle {
				return errors.New("--watch needs a project directory")
			}
			return livehandle.Watch(cmd.Context(), root, livehandle.DefaultDebounce, projects.logger, func() {
				if _, err := show(); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), err)
				}
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the loaded notebook as JSON")
	cmd.Flags().BoolVar(&watch, "watch", false, "Reload and print again whenever the project directory changes")
	return cmd
}

func newProjectView(backend storage.Backend, res storage.LoadResult) projectView {
	nb := notebook.New()
	nb.Replace(res.Project.Cells)
	return projectView{
		Target:       res.Target,
		Backend:      backend.String(),
		FromManifest: res.Project.FromManifest,
		StrokeWidth:  res.Project.StrokeWidth,
		Skipped:      res.Project.Skipped,
		Notebook:     nb,
	}
}

func printProject(out io.Writer, backend storage.Backend, res storage.LoadResult) {
	colorize := shouldColorize(out)
	project := res.Project
	order := "manifest order"
	if !project.FromManifest {
		order = "file name order"
	}
	fmt.Fprintln(out, renderSectionHeader(res.Target, colorize))
	fmt.Fprintln(out, renderStatusLine("Backend", statusInfo, backend.String(), colorize))
	fmt.Fprintln(out, renderStatusLine("Cells", statusOK, fmt.Sprintf("%d in %s", len(project.Cells), order), colorize))
	if len(project.Skipped) > 0 {
		fmt.Fprintln(out, renderStatusLine("Skipped", statusWarn, strings.Join(project.Skipped, ", "), colorize))
	}

	rows := make([][]string, 0, len(project.Cells))
	for i, cell := range project.Cells {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			strconv.Itoa(len(cell.Strokes)),
			strconv.Itoa(cell.PointCount()),
			strconv.FormatFloat(cell.Height, 'f', -1, 64),
			firstLine(cell.RecognizedCode),
		})
	}
	fmt.Fprintln(out, renderTable([]column{
		{Header: "#", Align: alignRight},
		{Header: "Strokes", Align: alignRight},
		{Header: "Points", Align: alignRight},
		{Header: "Height", Align: alignRight},
		{Header: "Code", MaxWidth: 48},
	}, rows))
}

func newProjectCellsCommand(ctx *commandContext) *cobra.Command {
	var cellNumber int

	cmd := &cobra.Command{
		Use:   "cells <target>",
		Short: "Print the recognized code of each cell",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := ctx.projects(cmd)
			if err != nil {
				return err
			}
			defer projects.Close()

			_, res := projects.load(cmd.Context(), args[0])
			ok, err := reportResult(cmd.OutOrStdout(), "load", res.Result)
			if !ok {
				return err
			}
			cells, offset, err := selectCells(res.Project.Cells, cellNumber)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for i, cell := range cells {
				fmt.Fprintln(out, renderSectionHeader(fmt.Sprintf("cell %d", offset+i+1), colorize))
				code := cell.RecognizedCode
				if code == "" {
					code = "(no recognized code)"
				}
				fmt.Fprintln(out, strings.TrimRight(code, "\n"))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&cellNumber, "cell", 0, "Only print this cell (1-based)")
	return cmd
}

func newProjectConvertCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <source> <destination>",
		Short: "Copy a project between a directory and a zip archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := ctx.projects(cmd)
			if err != nil {
				return err
			}
			defer projects.Close()

			fromBackend, loaded := projects.load(cmd.Context(), args[0])
			ok, err := reportResult(cmd.OutOrStdout(), "load", loaded.Result)
			if !ok {
				return err
			}
			toBackend, saved := projects.save(cmd.Context(), args[1], loaded.Project.Cells)
			ok, err = reportResult(cmd.OutOrStdout(), "save", saved)
			if !ok {
				return err
			}
			n := len(loaded.Project.Cells)
			projects.recordAction(cmd.Context(), history.ActionConvert, fromBackend.String()+"->"+toBackend.String(), saved, n)
			fmt.Fprintf(cmd.OutOrStdout(), "Converted %d %s: %s (%s) -> %s (%s)\n",
				n, plural(n, "cell"), loaded.Target, fromBackend, saved.Target, toBackend)
			return nil
		},
	}
}

// selectCells returns all cells for n == 0, or just cell n (1-based), along
// with the index offset of the first returned cell.
func selectCells(cells []notebook.Cell, n int) ([]notebook.Cell, int, error) {
	if n == 0 {
		return cells, 0, nil
	}
	if n < 1 || n > len(cells) {
		return nil, 0, fmt.Errorf("cell %d out of range (project has %d %s)", n, len(cells), plural(len(cells), "cell"))
	}
	return cells[n-1 : n], n - 1, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
