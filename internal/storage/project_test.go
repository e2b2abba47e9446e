package storage_test

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarmentow/codepencil/internal/manifest"
	"github.com/sarmentow/codepencil/internal/notebook"
	"github.com/sarmentow/codepencil/internal/storage"
	"github.com/sarmentow/codepencil/internal/svgcodec"
)

type memMedium struct {
	mu     sync.Mutex
	docs   map[string][]byte
	writes []string
	failOn string
}

func newMem() *memMedium {
	return &memMedium{docs: map[string][]byte{}}
}

func (m *memMedium) List(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.docs))
	for name := range m.docs {
		names = append(names, name)
	}
	return names, nil
}

func (m *memMedium) Read(_ context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.docs[name]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", name, fs.ErrNotExist)
	}
	return data, nil
}

func (m *memMedium) Write(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if name == m.failOn {
		return errors.New("disk full")
	}
	m.docs[name] = data
	m.writes = append(m.writes, name)
	return nil
}

func cellWithStroke(x float64, code string) notebook.Cell {
	cell := notebook.NewCell()
	_ = cell.AppendStroke(notebook.Stroke{{X: x, Y: 1, Pressure: 1}, {X: x + 5, Y: 6, Pressure: 1}})
	if code != "" {
		cell.SetRecognizedCode(code)
	}
	return cell
}

func TestSaveWritesDocumentsBeforeManifest(t *testing.T) {
	mem := newMem()
	cells := []notebook.Cell{cellWithStroke(1, "a := 1"), cellWithStroke(2, ""), cellWithStroke(3, "")}
	cells[1].Height = 500

	m, err := storage.Save(context.Background(), mem, storage.SaveParams{Cells: cells, StrokeWidth: 2, CanvasWidth: 640})
	require.NoError(t, err)
	require.Len(t, m.Cells, 3)

	assert.Equal(t, []string{"cell-001.svg", "cell-002.svg", "cell-003.svg", "manifest.json"}, mem.writes)

	_, w, h := svgcodec.Decode(mem.docs["cell-002.svg"])
	assert.Equal(t, 640.0, w)
	assert.Equal(t, 500.0, h)
	_, _, h = svgcodec.Decode(mem.docs["cell-001.svg"])
	assert.Equal(t, float64(svgcodec.DefaultHeight), h)
}

func TestSaveFailureLeavesNoManifest(t *testing.T) {
	mem := newMem()
	mem.failOn = "cell-002.svg"
	cells := []notebook.Cell{cellWithStroke(1, ""), cellWithStroke(2, ""), cellWithStroke(3, "")}

	_, err := storage.Save(context.Background(), mem, storage.SaveParams{Cells: cells, StrokeWidth: 2})
	require.Error(t, err)
	assert.NotContains(t, mem.docs, manifest.FileName)
	assert.NotContains(t, mem.docs, "cell-003.svg")
}

func TestSaveRejectsEmptyProject(t *testing.T) {
	_, err := storage.Save(context.Background(), newMem(), storage.SaveParams{StrokeWidth: 2})
	assert.ErrorIs(t, err, storage.ErrNoCells)
}

func TestLoadRoundTrip(t *testing.T) {
	mem := newMem()
	cells := []notebook.Cell{cellWithStroke(1, "print(1)"), cellWithStroke(20, "")}
	cells[0].Height = 410
	_, err := storage.Save(context.Background(), mem, storage.SaveParams{Cells: cells, StrokeWidth: 4})
	require.NoError(t, err)

	project, err := storage.Load(context.Background(), mem, storage.LoadOptions{})
	require.NoError(t, err)
	require.True(t, project.FromManifest)
	require.Len(t, project.Cells, 2)
	assert.Equal(t, 4.0, project.StrokeWidth)

	first := project.Cells[0]
	assert.Equal(t, "print(1)", first.RecognizedCode)
	assert.Equal(t, notebook.StatusRecognized, first.Status)
	assert.Equal(t, 410.0, first.Height)
	assert.NotEqual(t, cells[0].ID, first.ID, "loaded cells get fresh identifiers")
	require.Len(t, first.Strokes, 1)
	assert.InDelta(t, 1, first.Strokes[0][0].X, 0.01)
	assert.Equal(t, 0.5, first.Strokes[0][0].Pressure)

	second := project.Cells[1]
	assert.Empty(t, second.RecognizedCode)
	assert.Equal(t, float64(svgcodec.DefaultHeight), second.Height)
	assert.InDelta(t, 20, second.Strokes[0][0].X, 0.01)
}

func TestLoadManifestOrderIsAuthoritative(t *testing.T) {
	mem := newMem()
	mem.docs["a.svg"] = svgcodec.Encode([]notebook.Stroke{{{X: 1, Y: 1}}}, 100, 100, 1)
	mem.docs["b.svg"] = svgcodec.Encode([]notebook.Stroke{{{X: 2, Y: 2}}}, 100, 100, 1)
	mem.docs[manifest.FileName] = []byte(`{"version":1,"cells":[{"file":"b.svg","recognizedCode":"B"},{"file":"a.svg","recognizedCode":"A"}]}`)

	project, err := storage.Load(context.Background(), mem, storage.LoadOptions{Concurrency: 2})
	require.NoError(t, err)
	require.Len(t, project.Cells, 2)
	assert.Equal(t, "B", project.Cells[0].RecognizedCode)
	assert.Equal(t, "A", project.Cells[1].RecognizedCode)
}

func TestLoadFallsBackToNameSort(t *testing.T) {
	mem := newMem()
	for i, name := range []string{"cell-002.svg", "cell-010.svg", "cell-001.svg"} {
		mem.docs[name] = svgcodec.Encode([]notebook.Stroke{{{X: float64(i), Y: 0}, {X: 1, Y: 1}}}, 100, 100, 1)
	}
	mem.docs["notes.txt"] = []byte("ignored")

	project, err := storage.Load(context.Background(), mem, storage.LoadOptions{})
	require.NoError(t, err)
	assert.False(t, project.FromManifest)
	require.Len(t, project.Cells, 3)
	got := []float64{project.Cells[0].Strokes[0][0].X, project.Cells[1].Strokes[0][0].X, project.Cells[2].Strokes[0][0].X}
	assert.Equal(t, []float64{2, 0, 1}, got, "expected cell-001, cell-002, cell-010")
	for _, cell := range project.Cells {
		assert.Empty(t, cell.RecognizedCode)
	}
}

func TestLoadToleratesMissingDocument(t *testing.T) {
	mem := newMem()
	cells := []notebook.Cell{cellWithStroke(1, "one"), cellWithStroke(2, "two"), cellWithStroke(3, "three")}
	_, err := storage.Save(context.Background(), mem, storage.SaveParams{Cells: cells, StrokeWidth: 2})
	require.NoError(t, err)
	delete(mem.docs, "cell-002.svg")

	project, err := storage.Load(context.Background(), mem, storage.LoadOptions{})
	require.NoError(t, err)
	require.Len(t, project.Cells, 2)
	assert.Equal(t, "one", project.Cells[0].RecognizedCode)
	assert.Equal(t, "three", project.Cells[1].RecognizedCode)
	assert.Equal(t, []string{"cell-002.svg"}, project.Skipped)
}

func TestLoadSkipsCorruptAndUnsafeEntries(t *testing.T) {
	mem := newMem()
	mem.docs["cell-001.svg"] = svgcodec.Encode([]notebook.Stroke{{{X: 1, Y: 1}}}, 100, 100, 1)
	mem.docs["cell-002.svg"] = []byte("not an svg")
	mem.docs[manifest.FileName] = []byte(`{"version":1,"cells":[{"file":"../etc/passwd.svg"},{"file":"cell-001.svg"},{"file":"cell-002.svg"}]}`)

	project, err := storage.Load(context.Background(), mem, storage.LoadOptions{})
	require.NoError(t, err)
	require.Len(t, project.Cells, 1)
	skipped := append([]string(nil), project.Skipped...)
	sort.Strings(skipped)
	assert.Equal(t, []string{"../etc/passwd.svg", "cell-002.svg"}, skipped)
}

func TestLoadInvalidManifestFallsBack(t *testing.T) {
	for name, body := range map[string]string{
		"unparseable":   `{not json`,
		"wrong version": `{"version":7,"cells":[{"file":"cell-009.svg"}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			mem := newMem()
			mem.docs["cell-001.svg"] = svgcodec.Encode([]notebook.Stroke{{{X: 1, Y: 1}}}, 100, 100, 1)
			mem.docs[manifest.FileName] = []byte(body)

			project, err := storage.Load(context.Background(), mem, storage.LoadOptions{})
			require.NoError(t, err)
			assert.False(t, project.FromManifest)
			assert.Len(t, project.Cells, 1)
		})
	}
}

func TestLoadEmptyProjectFails(t *testing.T) {
	_, err := storage.Load(context.Background(), newMem(), storage.LoadOptions{})
	assert.ErrorIs(t, err, storage.ErrNoCells)

	mem := newMem()
	mem.docs[manifest.FileName] = []byte(`{"version":1,"cells":[{"file":"cell-001.svg"}]}`)
	_, err = storage.Load(context.Background(), mem, storage.LoadOptions{})
	assert.ErrorIs(t, err, storage.ErrNoCells, "manifest whose documents are all missing")
}

func TestLoadHonoursCancellation(t *testing.T) {
	mem := newMem()
	mem.docs["cell-001.svg"] = svgcodec.Encode(nil, 100, 100, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := storage.Load(ctx, cancelAware{mem}, storage.LoadOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

type cancelAware struct{ *memMedium }

func (c cancelAware) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.memMedium.Read(ctx, name)
}

func (c cancelAware) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.memMedium.List(ctx)
}
