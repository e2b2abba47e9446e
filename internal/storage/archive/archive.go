// Package archive persists projects as a single zip file. Members use the same
// flat names as a live-handle project directory, so either backend can read
// what the other wrote.
package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/sarmentow/codepencil/internal/fileutil"
	"github.com/sarmentow/codepencil/internal/logging"
	"github.com/sarmentow/codepencil/internal/storage"
)

// MaxMemberSize caps how much of a single member Load will inflate.
const MaxMemberSize = 32 << 20

// ErrMemberTooLarge reports a member that inflates past MaxMemberSize.
var ErrMemberTooLarge = errors.New("archive member too large")

// Adapter is the archive storage backend.
type Adapter struct {
	granter     storage.Granter
	logger      *slog.Logger
	concurrency int
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithConcurrency bounds concurrent member reads during Load.
func WithConcurrency(n int) Option {
	return func(a *Adapter) { a.concurrency = n }
}

// WithGranter sets the granter consulted by Import and Export.
func WithGranter(g storage.Granter) Option {
	return func(a *Adapter) { a.granter = g }
}

// New builds an archive adapter.
func New(logger *slog.Logger, opts ...Option) *Adapter {
	a := &Adapter{
		granter: storage.AllowAll,
		logger:  logging.NewComponentLogger(logger, "archive"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SaveResult carries the finished archive on success.
type SaveResult struct {
	storage.Result
	Blob []byte
}

// Save builds the archive in memory, one member per document, manifest last.
func (a *Adapter) Save(ctx context.Context, params storage.SaveParams) SaveResult {
	blob, err := a.build(ctx, params)
	if err != nil {
		return SaveResult{Result: a.outcome("save", "", err)}
	}
	a.logger.Debug("archive built", logging.Int("bytes", len(blob)), logging.Int("cells", len(params.Cells)))
	return SaveResult{Result: storage.Outcome("", nil), Blob: blob}
}

func (a *Adapter) build(ctx context.Context, params storage.SaveParams) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if _, err := storage.Save(ctx, writer{zw}, params); err != nil {
		_ = zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finish archive: %w", err)
	}
	return buf.Bytes(), nil
}

// Export saves the project and writes the archive to target, asking the
// granter for write access first.
func (a *Adapter) Export(ctx context.Context, target string, params storage.SaveParams) SaveResult {
	resolved, err := a.granter.Grant(ctx, target, storage.ReadWrite)
	if err != nil {
		return SaveResult{Result: a.outcome("save", target, err)}
	}
	blob, err := a.build(ctx, params)
	if err == nil {
		err = fileutil.WriteFileVerified(resolved, blob, 0o644)
	}
	if err != nil {
		return SaveResult{Result: a.outcome("save", resolved, err)}
	}
	a.logger.Debug("archive written",
		logging.Project(resolved),
		logging.Int("bytes", len(blob)),
		logging.String("sha256", fileutil.Digest(blob)),
	)
	return SaveResult{Result: a.outcome("save", resolved, nil), Blob: blob}
}

// Load reads a project from an archive produced by Save or by zipping a
// project directory.
func (a *Adapter) Load(ctx context.Context, blob []byte) storage.LoadResult {
	return a.load(ctx, "", blob)
}

// Import reads the archive at target after asking the granter for access.
func (a *Adapter) Import(ctx context.Context, target string) storage.LoadResult {
	resolved, err := a.granter.Grant(ctx, target, storage.Read)
	if err != nil {
		return storage.LoadResult{Result: a.outcome("load", target, err)}
	}
	blob, err := os.ReadFile(resolved)
	if err != nil {
		return storage.LoadResult{Result: a.outcome("load", resolved, fmt.Errorf("read archive: %w", err))}
	}
	return a.load(ctx, resolved, blob)
}

func (a *Adapter) load(ctx context.Context, target string, blob []byte) storage.LoadResult {
	src, err := open(blob)
	if err != nil {
		return storage.LoadResult{Result: a.outcome("load", target, err)}
	}
	project, err := storage.Load(ctx, src, storage.LoadOptions{
		Concurrency: a.concurrency,
		Logger:      a.logger,
	})
	return storage.LoadResult{Result: a.outcome("load", target, err), Project: project}
}

func (a *Adapter) outcome(op, target string, err error) storage.Result {
	result := storage.Outcome(target, err)
	switch {
	case result.Success:
		a.logger.Info("project "+op+" complete",
			logging.Project(target),
			logging.Backend(storage.Archive),
			logging.String(logging.FieldEventType, "project_"+op+"_complete"),
		)
	case result.Cancelled:
		a.logger.Info("project "+op+" cancelled",
			logging.Project(target),
			logging.Backend(storage.Archive),
			logging.String(logging.FieldEventType, "project_"+op+"_cancelled"),
		)
	default:
		hint := `rerun with logging.level = "debug" for details`
		if errors.Is(err, zip.ErrFormat) {
			hint = "the file is not a zip archive"
		} else if errors.Is(err, storage.ErrNoCells) {
			hint = "the archive has no manifest.json and no .svg cell documents"
		}
		logging.ErrorWithContext(a.logger, "project "+op+" failed", "project_"+op+"_failed",
			logging.Project(target),
			logging.Backend(storage.Archive),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hint),
		)
	}
	return result
}

type writer struct {
	zw *zip.Writer
}

func (w writer) Write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	member, err := w.zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return err
	}
	_, err = member.Write(data)
	return err
}

// reader serves archive members as a storage Source.
type reader struct {
	members map[string]*zip.File
}

func open(blob []byte) (*reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	files := make([]*zip.File, 0, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || sidecar(f.Name) {
			continue
		}
		files = append(files, f)
	}

	prefix := commonDir(files)
	members := make(map[string]*zip.File, len(files))
	for _, f := range files {
		name := strings.TrimPrefix(f.Name, prefix)
		if strings.Contains(name, "/") {
			continue
		}
		members[name] = f
	}
	return &reader{members: members}, nil
}

// sidecar reports metadata that archivers add next to the real content:
// Finder's __MACOSX tree and dot-files such as .DS_Store or ._cell-001.svg.
func sidecar(name string) bool {
	if name == "__MACOSX" || strings.HasPrefix(name, "__MACOSX/") {
		return true
	}
	return strings.HasPrefix(path.Base(name), ".")
}

// commonDir returns "dir/" when every member sits under that single top-level
// directory, as happens when a project folder is zipped by hand.
func commonDir(files []*zip.File) string {
	var dir string
	for _, f := range files {
		i := strings.IndexByte(f.Name, '/')
		if i <= 0 {
			return ""
		}
		first := f.Name[:i+1]
		if dir == "" {
			dir = first
		} else if dir != first {
			return ""
		}
	}
	return dir
}

func (r *reader) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(r.members))
	for name := range r.members {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (r *reader) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, ok := r.members[path.Clean(name)]
	if !ok {
		return nil, fmt.Errorf("member %s: %w", name, fs.ErrNotExist)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open member %s: %w", name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, MaxMemberSize+1))
	if err != nil {
		return nil, fmt.Errorf("read member %s: %w", name, err)
	}
	if len(data) > MaxMemberSize {
		return nil, fmt.Errorf("member %s: %w", name, ErrMemberTooLarge)
	}
	return data, nil
}
