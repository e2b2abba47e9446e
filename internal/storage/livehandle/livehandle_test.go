package livehandle_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sarmentow/codepencil/internal/logging"
	"github.com/sarmentow/codepencil/internal/manifest"
	"github.com/sarmentow/codepencil/internal/storage"
	"github.com/sarmentow/codepencil/internal/storage/livehandle"
	"github.com/sarmentow/codepencil/internal/testsupport"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	root := filepath.Join(t.TempDir(), "demo")
	adapter := livehandle.New(storage.AllowAll, logging.NewNop())
	cells := testsupport.Cells(t, 3)

	result := adapter.Save(context.Background(), root, storage.SaveParams{Cells: cells, StrokeWidth: 3, CanvasWidth: 800})
	require.True(t, result.Success, "save failed: %v", result.Err)

	for _, name := range []string{"cell-001.svg", "cell-002.svg", "cell-003.svg", manifest.FileName} {
		assert.FileExists(t, filepath.Join(root, name))
	}

	loaded := adapter.Load(context.Background(), root)
	require.True(t, loaded.Success, "load failed: %v", loaded.Err)
	require.Len(t, loaded.Project.Cells, 3)
	for i, cell := range loaded.Project.Cells {
		assert.Equal(t, cells[i].RecognizedCode, cell.RecognizedCode)
		require.Len(t, cell.Strokes, 1)
		assert.InDelta(t, cells[i].Strokes[0][0].X, cell.Strokes[0][0].X, 0.01)
	}
}

func TestSaveRemovesStaleDocuments(t *testing.T) {
	root := filepath.Join(t.TempDir(), "demo")
	adapter := livehandle.New(storage.AllowAll, logging.NewNop())

	require.True(t, adapter.Save(context.Background(), root, storage.SaveParams{Cells: testsupport.Cells(t, 3), StrokeWidth: 3}).Success)
	require.NoError(t, os.WriteFile(filepath.Join(root, "sketch.svg"), []byte("<svg/>"), 0o644))
	require.True(t, adapter.Save(context.Background(), root, storage.SaveParams{Cells: testsupport.Cells(t, 1), StrokeWidth: 3}).Success)

	assert.FileExists(t, filepath.Join(root, "cell-001.svg"))
	assert.NoFileExists(t, filepath.Join(root, "cell-002.svg"))
	assert.NoFileExists(t, filepath.Join(root, "cell-003.svg"))
	assert.FileExists(t, filepath.Join(root, "sketch.svg"), "non-canonical documents are left alone")
}

func TestDeclinedGrantIsCancelled(t *testing.T) {
	declined := storage.GranterFunc(func(context.Context, string, storage.Access) (string, error) {
		return "", storage.ErrCancelled
	})
	adapter := livehandle.New(declined, logging.NewNop())
	root := filepath.Join(t.TempDir(), "demo")

	saved := adapter.Save(context.Background(), root, storage.SaveParams{Cells: testsupport.Cells(t, 1)})
	assert.True(t, saved.Cancelled)
	assert.False(t, saved.Success)
	assert.NoError(t, saved.Err)
	assert.NoDirExists(t, root)

	loaded := adapter.Load(context.Background(), root)
	assert.True(t, loaded.Cancelled)
	assert.Nil(t, loaded.Project)
}

func TestGrantReceivesRequestedAccess(t *testing.T) {
	var seen []storage.Access
	granter := storage.GranterFunc(func(ctx context.Context, target string, access storage.Access) (string, error) {
		seen = append(seen, access)
		return storage.AllowAll.Grant(ctx, target, access)
	})
	adapter := livehandle.New(granter, logging.NewNop())
	root := filepath.Join(t.TempDir(), "demo")

	adapter.Save(context.Background(), root, storage.SaveParams{Cells: testsupport.Cells(t, 1)})
	adapter.Load(context.Background(), root)
	assert.Equal(t, []storage.Access{storage.ReadWrite, storage.Read}, seen)
}

func TestSaveFailsWhenLocked(t *testing.T) {
	root := t.TempDir()
	held := flock.New(filepath.Join(root, livehandle.LockName))
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	t.Cleanup(func() { _ = held.Unlock() })

	adapter := livehandle.New(storage.AllowAll, logging.NewNop())
	result := adapter.Save(context.Background(), root, storage.SaveParams{Cells: testsupport.Cells(t, 1)})
	require.False(t, result.Success)
	assert.True(t, errors.Is(result.Err, storage.ErrLocked), "got %v", result.Err)
	assert.NoFileExists(t, filepath.Join(root, manifest.FileName))

	unlocked := livehandle.New(storage.AllowAll, logging.NewNop(), livehandle.WithLock(false))
	assert.True(t, unlocked.Save(context.Background(), root, storage.SaveParams{Cells: testsupport.Cells(t, 1)}).Success)
}

func TestLoadFailures(t *testing.T) {
	adapter := livehandle.New(storage.AllowAll, logging.NewNop(), livehandle.WithConcurrency(1))

	missing := adapter.Load(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.False(t, missing.Success)
	assert.Error(t, missing.Err)

	empty := adapter.Load(context.Background(), t.TempDir())
	assert.False(t, empty.Success)
	assert.False(t, empty.Cancelled)
	assert.ErrorIs(t, empty.Err, storage.ErrNoCells)

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	notDir := adapter.Load(context.Background(), file)
	assert.False(t, notDir.Success)
}

func TestDirRejectsUnsafeNames(t *testing.T) {
	dir := livehandle.Dir(t.TempDir())
	_, err := dir.Read(context.Background(), "../secret.svg")
	assert.Error(t, err)
	assert.Error(t, dir.Write(context.Background(), "a/b.svg", nil))
}

func TestWatchReportsChanges(t *testing.T) {
	root := filepath.Join(t.TempDir(), "demo")
	adapter := livehandle.New(storage.AllowAll, logging.NewNop())
	require.True(t, adapter.Save(context.Background(), root, storage.SaveParams{Cells: testsupport.Cells(t, 1)}).Success)

	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- livehandle.Watch(ctx, root, 20*time.Millisecond, logging.NewNop(), func() {
			select {
			case changes <- struct{}{}:
			default:
			}
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("ignored"), 0o644))
	require.True(t, adapter.Save(context.Background(), root, storage.SaveParams{Cells: testsupport.Cells(t, 2)}).Success)

	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("expected a change notification")
	}

	cancel()
	require.NoError(t, <-done)
}
