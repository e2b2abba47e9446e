package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/sarmentow/codepencil/internal/logging"
	"github.com/sarmentow/codepencil/internal/manifest"
	"github.com/sarmentow/codepencil/internal/notebook"
	"github.com/sarmentow/codepencil/internal/svgcodec"
)

// Source reads project documents by name. Read of a missing document returns
// an error wrapping fs.ErrNotExist.
type Source interface {
	List(ctx context.Context) ([]string, error)
	Read(ctx context.Context, name string) ([]byte, error)
}

// Sink stores project documents by name.
type Sink interface {
	Write(ctx context.Context, name string, data []byte) error
}

// SaveParams is everything Save needs to render a project.
type SaveParams struct {
	Cells       []notebook.Cell
	StrokeWidth float64
	CanvasWidth float64
	StrokeColor string
}

// Project is the result of a successful Load.
type Project struct {
	Cells       []notebook.Cell
	StrokeWidth float64
	// FromManifest is false when cells came from name-sorted enumeration.
	FromManifest bool
	// Skipped lists documents that were referenced or found but could not be
	// loaded.
	Skipped []string
}

// LoadOptions tunes Load.
type LoadOptions struct {
	Concurrency int
	Logger      *slog.Logger
}

const defaultConcurrency = 4

// Save writes one SVG document per cell, in cell order, and then the
// manifest. The manifest is only written after every document write has
// succeeded.
func Save(ctx context.Context, sink Sink, params SaveParams) (manifest.Manifest, error) {
	if len(params.Cells) == 0 {
		return manifest.Manifest{}, ErrNoCells
	}
	canvasWidth := params.CanvasWidth
	if canvasWidth <= 0 {
		canvasWidth = svgcodec.DefaultWidth
	}
	var opts []svgcodec.Option
	if params.StrokeColor != "" {
		opts = append(opts, svgcodec.WithColor(params.StrokeColor))
	}

	m := manifest.Build(params.Cells, params.StrokeWidth)
	for i, cell := range params.Cells {
		if err := ctx.Err(); err != nil {
			return manifest.Manifest{}, err
		}
		height := cell.Height
		if height <= 0 {
			height = svgcodec.DefaultHeight
		}
		doc := svgcodec.Encode(cell.Strokes, canvasWidth, height, params.StrokeWidth, opts...)
		name := m.Cells[i].File
		if err := sink.Write(ctx, name, doc); err != nil {
			return manifest.Manifest{}, fmt.Errorf("write %s: %w", name, err)
		}
	}

	data, err := manifest.Marshal(m)
	if err != nil {
		return manifest.Manifest{}, err
	}
	if err := sink.Write(ctx, manifest.FileName, data); err != nil {
		return manifest.Manifest{}, fmt.Errorf("write %s: %w", manifest.FileName, err)
	}
	return m, nil
}

// plan is the ordered list of documents Load fetches.
type plan struct {
	entries      []manifest.Entry
	strokeWidth  float64
	fromManifest bool
}

// Load reads a project. When the manifest exists and parses, cells follow
// manifest order; otherwise every .svg document is loaded in lexical name
// order without metadata. Documents that cannot be read or are not SVG are
// skipped with a warning. Zero loaded cells is ErrNoCells.
func Load(ctx context.Context, src Source, opts LoadOptions) (*Project, error) {
	logger := logging.NewComponentLogger(opts.Logger, "storage")

	p, err := resolvePlan(ctx, src, logger)
	if err != nil {
		return nil, err
	}

	limit := opts.Concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}

	slots := make([]*notebook.Cell, len(p.entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, entry := range p.entries {
		if !manifest.SafeName(entry.File) {
			logging.WarnWithContext(logger, "manifest entry skipped; unsafe document name", "project_cell_skipped",
				logging.Cell(i),
				logging.Document(entry.File),
				logging.String(logging.FieldErrorHint, "manifest file names must be plain base names"),
				logging.String(logging.FieldImpact, "project loads with fewer cells"),
			)
			continue
		}
		g.Go(func() error {
			data, err := src.Read(gctx, entry.File)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				logging.WarnWithContext(logger, "cell document skipped; read failed", "project_cell_skipped",
					logging.Cell(i),
					logging.Document(entry.File),
					logging.Error(err),
					logging.String(logging.FieldImpact, "project loads with fewer cells"),
				)
				return nil
			}
			if !svgcodec.Sniff(data) {
				logging.WarnWithContext(logger, "cell document skipped; not an SVG document", "project_cell_skipped",
					logging.Cell(i),
					logging.Document(entry.File),
					logging.String(logging.FieldImpact, "project loads with fewer cells"),
				)
				return nil
			}
			cell := decodeCell(data, entry)
			slots[i] = &cell
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	project := &Project{
		StrokeWidth:  p.strokeWidth,
		FromManifest: p.fromManifest,
		Cells:        make([]notebook.Cell, 0, len(slots)),
	}
	for i, slot := range slots {
		if slot == nil {
			project.Skipped = append(project.Skipped, p.entries[i].File)
			continue
		}
		project.Cells = append(project.Cells, *slot)
	}
	if len(project.Cells) == 0 {
		return nil, ErrNoCells
	}

	logger.Debug("project loaded",
		logging.Int("cells", len(project.Cells)),
		logging.Int("skipped", len(project.Skipped)),
		logging.Bool("from_manifest", project.FromManifest),
	)
	return project, nil
}

func resolvePlan(ctx context.Context, src Source, logger *slog.Logger) (plan, error) {
	data, err := src.Read(ctx, manifest.FileName)
	switch {
	case err == nil:
		m, parseErr := manifest.Parse(data)
		if parseErr == nil {
			return plan{entries: m.Cells, strokeWidth: m.StrokeWidth, fromManifest: true}, nil
		}
		logging.WarnWithContext(logger, "manifest ignored; falling back to document names", "project_manifest_invalid",
			logging.Error(parseErr),
			logging.String(logging.FieldErrorHint, "re-save the project to rewrite manifest.json"),
			logging.String(logging.FieldImpact, "cell order follows file names and cell metadata is lost"),
		)
	case errors.Is(err, fs.ErrNotExist):
	default:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return plan{}, ctxErr
		}
		logging.WarnWithContext(logger, "manifest unreadable; falling back to document names", "project_manifest_invalid",
			logging.Error(err),
			logging.String(logging.FieldImpact, "cell order follows file names and cell metadata is lost"),
		)
	}

	names, err := src.List(ctx)
	if err != nil {
		return plan{}, fmt.Errorf("list documents: %w", err)
	}
	docs := make([]string, 0, len(names))
	for _, name := range names {
		if manifest.IsDocumentName(name) {
			docs = append(docs, name)
		}
	}
	sort.Strings(docs)

	entries := make([]manifest.Entry, len(docs))
	for i, name := range docs {
		entries[i] = manifest.Entry{File: name}
	}
	return plan{entries: entries}, nil
}

func decodeCell(doc []byte, entry manifest.Entry) notebook.Cell {
	strokes, _, height := svgcodec.Decode(doc)
	cell := notebook.NewCell()
	cell.Strokes = strokes
	cell.Height = height
	if entry.Height > 0 {
		cell.Height = entry.Height
	}
	if entry.RecognizedCode != "" {
		cell.SetRecognizedCode(entry.RecognizedCode)
	}
	return cell
}
