// Package livehandle persists projects directly into a directory the user
// grants access to. Each cell is one SVG file beside manifest.json.
package livehandle

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"github.com/gofrs/flock"

	"github.com/sarmentow/codepencil/internal/fileutil"
	"github.com/sarmentow/codepencil/internal/logging"
	"github.com/sarmentow/codepencil/internal/manifest"
	"github.com/sarmentow/codepencil/internal/storage"
)

// LockName is the advisory lock file taken in a project directory while saving.
const LockName = ".codepencil.lock"

// Adapter is the live-handle storage backend.
type Adapter struct {
	granter     storage.Granter
	logger      *slog.Logger
	lock        bool
	concurrency int
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLock toggles the advisory save lock.
func WithLock(enabled bool) Option {
	return func(a *Adapter) { a.lock = enabled }
}

// WithConcurrency bounds concurrent document reads during Load.
func WithConcurrency(n int) Option {
	return func(a *Adapter) { a.concurrency = n }
}

// New builds an adapter that asks granter for access before every operation.
func New(granter storage.Granter, logger *slog.Logger, opts ...Option) *Adapter {
	if granter == nil {
		granter = storage.AllowAll
	}
	a := &Adapter{
		granter: granter,
		logger:  logging.NewComponentLogger(logger, "livehandle"),
		lock:    true,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Save writes the project into the directory target, creating it when
// needed. Stale cell documents from an earlier, longer save are removed once
// the new manifest is in place.
func (a *Adapter) Save(ctx context.Context, target string, params storage.SaveParams) storage.Result {
	root, err := a.granter.Grant(ctx, target, storage.ReadWrite)
	if err != nil {
		return a.outcome("save", target, err)
	}
	return a.outcome("save", root, a.save(ctx, root, params))
}

func (a *Adapter) save(ctx context.Context, root string, params storage.SaveParams) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create project directory: %w", err)
	}

	if a.lock {
		lock := flock.New(filepath.Join(root, LockName))
		locked, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire project lock: %w", err)
		}
		if !locked {
			return storage.ErrLocked
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				a.logger.Warn("project lock release failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "project_lock_release_failed"),
				)
			}
		}()
	}

	m, err := storage.Save(ctx, Dir(root), params)
	if err != nil {
		return err
	}
	a.pruneStale(root, m)
	return nil
}

var canonicalDocument = regexp.MustCompile(`^cell-\d{3,}\.svg$`)

func (a *Adapter) pruneStale(root string, m manifest.Manifest) {
	keep := make(map[string]struct{}, len(m.Cells))
	for _, entry := range m.Cells {
		keep[entry.File] = struct{}{}
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !canonicalDocument.MatchString(name) {
			continue
		}
		if _, ok := keep[name]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(root, name)); err != nil {
			a.logger.Debug("stale document not removed", logging.Document(name), logging.Error(err))
			continue
		}
		a.logger.Debug("stale document removed", logging.Document(name))
	}
}

// Load reads the project in the directory target.
func (a *Adapter) Load(ctx context.Context, target string) storage.LoadResult {
	root, err := a.granter.Grant(ctx, target, storage.Read)
	if err != nil {
		return storage.LoadResult{Result: a.outcome("load", target, err)}
	}
	info, err := os.Stat(root)
	if err != nil {
		return storage.LoadResult{Result: a.outcome("load", root, fmt.Errorf("open project: %w", err))}
	}
	if !info.IsDir() {
		return storage.LoadResult{Result: a.outcome("load", root, fmt.Errorf("open project: %s is not a directory", root))}
	}

	project, err := storage.Load(ctx, Dir(root), storage.LoadOptions{
		Concurrency: a.concurrency,
		Logger:      a.logger,
	})
	return storage.LoadResult{Result: a.outcome("load", root, err), Project: project}
}

func (a *Adapter) outcome(op, target string, err error) storage.Result {
	result := storage.Outcome(target, err)
	switch {
	case result.Success:
		a.logger.Info("project "+op+" complete",
			logging.Project(target),
			logging.Backend(storage.LiveHandle),
			logging.String(logging.FieldEventType, "project_"+op+"_complete"),
		)
	case result.Cancelled:
		a.logger.Info("project "+op+" cancelled",
			logging.Project(target),
			logging.Backend(storage.LiveHandle),
			logging.String(logging.FieldEventType, "project_"+op+"_cancelled"),
		)
	default:
		logging.ErrorWithContext(a.logger, "project "+op+" failed", "project_"+op+"_failed",
			logging.Project(target),
			logging.Backend(storage.LiveHandle),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hint(err)),
		)
	}
	return result
}

func hint(err error) string {
	switch {
	case errors.Is(err, storage.ErrLocked):
		return "another codepencil process is saving this project; retry when it finishes"
	case errors.Is(err, storage.ErrNoCells):
		return "the directory has no manifest.json and no .svg cell documents"
	case errors.Is(err, fs.ErrPermission):
		return "check directory permissions"
	default:
		return "check logs for details"
	}
}

// Dir exposes a directory as a storage Source and Sink.
type Dir string

// List returns the names of regular files directly under the directory.
func (d Dir) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(string(d))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// Read returns the named document.
func (d Dir) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !manifest.SafeName(name) {
		return nil, fmt.Errorf("read %q: unsafe document name", name)
	}
	return os.ReadFile(filepath.Join(string(d), name))
}

// Write replaces the named document atomically.
func (d Dir) Write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !manifest.SafeName(name) {
		return fmt.Errorf("write %q: unsafe document name", name)
	}
	return fileutil.WriteFileAtomic(filepath.Join(string(d), name), data, 0o644)
}
