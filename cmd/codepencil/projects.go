package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sarmentow/codepencil/internal/config"
	"github.com/sarmentow/codepencil/internal/history"
	"github.com/sarmentow/codepencil/internal/logging"
	"github.com/sarmentow/codepencil/internal/notebook"
	"github.com/sarmentow/codepencil/internal/storage"
	"github.com/sarmentow/codepencil/internal/storage/archive"
	"github.com/sarmentow/codepencil/internal/storage/livehandle"
)

// projectStore routes each save and load to the backend chosen for its
// target and records the outcome in history.
type projectStore struct {
	cfg     *config.Config
	logger  *slog.Logger
	granter storage.Granter
	history *history.Store
}

func (c *commandContext) projects(cmd *cobra.Command) (*projectStore, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger := c.log()
	ps := &projectStore{cfg: cfg, logger: logger, granter: c.granter(cmd)}
	if cfg.History.Enabled {
		store, err := history.Open(cfg)
		if err != nil {
			logging.WarnWithContext(logger, "history unavailable", "history_open_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check paths.data_dir permissions or set history.enabled = false"),
				logging.String(logging.FieldImpact, "this action will not appear in `codepencil history`"),
			)
		} else {
			ps.history = store
		}
	}
	return ps, nil
}

func (p *projectStore) Close() error {
	return p.history.Close()
}

// backendFor probes capabilities per action.
func (p *projectStore) backendFor(target string) storage.Backend {
	return storage.Select(target, storage.Capabilities{LiveHandles: p.cfg.Storage.LiveHandles})
}

func (p *projectStore) saveParams(cells []notebook.Cell) storage.SaveParams {
	sized := make([]notebook.Cell, len(cells))
	copy(sized, cells)
	for i := range sized {
		if sized[i].Height <= 0 {
			sized[i].Height = p.cfg.Canvas.Height
		}
	}
	return storage.SaveParams{
		Cells:       sized,
		StrokeWidth: p.cfg.Canvas.StrokeWidth,
		CanvasWidth: p.cfg.Canvas.Width,
		StrokeColor: p.cfg.Canvas.StrokeColor,
	}
}

func (p *projectStore) save(ctx context.Context, target string, cells []notebook.Cell) (storage.Backend, storage.Result) {
	backend := p.backendFor(target)
	params := p.saveParams(cells)

	var res storage.Result
	switch backend {
	case storage.LiveHandle:
		res = p.liveHandles().Save(ctx, target, params)
	default:
		res = p.archives().Export(ctx, storage.ArchivePath(target), params).Result
	}
	p.record(ctx, history.ActionSave, backend, res, len(cells))
	return backend, res
}

func (p *projectStore) load(ctx context.Context, target string) (storage.Backend, storage.LoadResult) {
	backend := p.backendFor(target)

	var res storage.LoadResult
	switch backend {
	case storage.LiveHandle:
		res = p.liveHandles().Load(ctx, target)
	default:
		res = p.archives().Import(ctx, storage.ArchivePath(target))
	}
	cells := 0
	if res.Project != nil {
		cells = len(res.Project.Cells)
	}
	p.record(ctx, history.ActionLoad, backend, res.Result, cells)
	return backend, res
}

func (p *projectStore) liveHandles() *livehandle.Adapter {
	return livehandle.New(p.granter, p.logger,
		livehandle.WithLock(p.cfg.Storage.Lock),
		livehandle.WithConcurrency(p.cfg.Storage.LoadConcurrency),
	)
}

func (p *projectStore) archives() *archive.Adapter {
	return archive.New(p.logger,
		archive.WithGranter(p.granter),
		archive.WithConcurrency(p.cfg.Storage.LoadConcurrency),
	)
}

func (p *projectStore) record(ctx context.Context, action history.Action, backend storage.Backend, res storage.Result, cells int) {
	if p.history == nil {
		return
	}
	if _, err := p.history.RecordResult(context.WithoutCancel(ctx), action, backend, res, cells); err != nil {
		logging.WarnWithContext(p.logger, "history record failed", "history_record_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this action will not appear in `codepencil history`"),
		)
	}
}

// recordAction records an action whose backend label is not a storage
// backend, such as an export format or a conversion pair.
func (p *projectStore) recordAction(ctx context.Context, action history.Action, label string, res storage.Result, cells int) {
	if p.history == nil {
		return
	}
	_, err := p.history.Record(context.WithoutCancel(ctx), history.Event{
		Action:  action,
		Backend: label,
		Target:  res.Target,
		Cells:   cells,
		Status:  res.Status(),
		Message: res.Message(),
	})
	if err != nil {
		logging.WarnWithContext(p.logger, "history record failed", "history_record_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this action will not appear in `codepencil history`"),
		)
	}
}

// reportResult prints a cancelled outcome and turns a failure into an error.
func reportResult(out io.Writer, verb string, res storage.Result) (bool, error) {
	switch {
	case res.Success:
		return true, nil
	case res.Cancelled:
		fmt.Fprintf(out, "%s cancelled\n", titleCaser.String(verb))
		return false, nil
	default:
		return false, fmt.Errorf("%s %s: %w", verb, res.Target, res.Err)
	}
}
