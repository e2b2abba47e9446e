package main

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sarmentow/codepencil/internal/export"
	"github.com/sarmentow/codepencil/internal/fileutil"
	"github.com/sarmentow/codepencil/internal/history"
	"github.com/sarmentow/codepencil/internal/storage"
	"github.com/sarmentow/codepencil/internal/svgcodec"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Render a project to PDF or PNG",
	}
	exportCmd.AddCommand(newExportPDFCommand(ctx))
	exportCmd.AddCommand(newExportPNGCommand(ctx))
	return exportCmd
}

func newExportPDFCommand(ctx *commandContext) *cobra.Command {
	var outPath string
	var includeCode bool

	cmd := &cobra.Command{
		Use:   "pdf <project>",
		Short: "Write every cell to a PDF, one page per cell",
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
			if outPath == "" {
				outPath = defaultExportPath(res.Target, ".pdf")
			}

			cfg := projects.cfg
			var buf bytes.Buffer
			err = export.PDF(&buf, res.Project.Cells, export.PDFOptions{
				CanvasWidth: cfg.Canvas.Width,
				StrokeWidth: res.Project.StrokeWidth,
				StrokeColor: cfg.Canvas.StrokeColor,
				IncludeCode: includeCode,
				Title:       filepath.Base(res.Target),
			})
			if err == nil {
				err = fileutil.WriteFileAtomic(outPath, buf.Bytes(), 0o644)
			}
			projects.recordAction(cmd.Context(), history.ActionExport, "pdf", storage.Outcome(outPath, err), len(res.Project.Cells))
			if err != nil {
				return fmt.Errorf("export pdf: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Destination PDF (default <project>.pdf)")
	cmd.Flags().BoolVar(&includeCode, "code", false, "Print recognized code under each cell")
	return cmd
}

func newExportPNGCommand(ctx *commandContext) *cobra.Command {
	var outPath string
	var cellNumber int
	var scale float64

	cmd := &cobra.Command{
		Use:   "png <project>",
		Short: "Render one cell's SVG document to PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cellNumber < 1 {
				return errors.New("--cell must be at least 1")
			}
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
			cells, _, err := selectCells(res.Project.Cells, cellNumber)
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = defaultExportPath(res.Target, fmt.Sprintf("-cell-%03d.png", cellNumber))
			}

			cfg := projects.cfg
			cell := cells[0]
			doc := svgcodec.Encode(cell.Strokes, cfg.Canvas.Width, cell.Height, res.Project.StrokeWidth,
				svgcodec.WithColor(cfg.Canvas.StrokeColor))
			var buf bytes.Buffer
			err = export.PNG(&buf, doc, scale)
			if err == nil {
				err = fileutil.WriteFileAtomic(outPath, buf.Bytes(), 0o644)
			}
			projects.recordAction(cmd.Context(), history.ActionExport, "png", storage.Outcome(outPath, err), 1)
			if err != nil {
				return fmt.Errorf("export png: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Destination PNG (default <project>-cell-NNN.png)")
	cmd.Flags().IntVar(&cellNumber, "cell", 1, "Cell to render (1-based)")
	cmd.Flags().Float64Var(&scale, "scale", 1, "Pixel scale relative to canvas units")
	return cmd
}

// defaultExportPath places the export next to the project.
func defaultExportPath(target, suffix string) string {
	base := strings.TrimRight(target, `/\`)
	if storage.IsArchivePath(base) {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return base + suffix
}
