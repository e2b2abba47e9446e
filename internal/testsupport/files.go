package testsupport

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/sarmentow/codepencil/internal/notebook"
)

// Line returns a straight stroke of n points starting at (x, y).
func Line(x, y float64, n int) notebook.Stroke {
	if n < 1 {
		n = 1
	}
	stroke := make(notebook.Stroke, n)
	for i := range stroke {
		stroke[i] = notebook.Point{
			X:         x + float64(i)*3,
			Y:         y + float64(i)*2,
			Pressure:  0.8,
			Timestamp: float64(i) * 16,
		}
	}
	return stroke
}

// Cells returns n cells with one stroke each, recognized code "cell <i>", and
// distinct starting coordinates so order is observable after a round trip.
func Cells(t testing.TB, n int) []notebook.Cell {
	t.Helper()

	cells := make([]notebook.Cell, n)
	for i := range cells {
		cell := notebook.NewCell()
		if err := cell.AppendStroke(Line(float64(10*(i+1)), 5, 4)); err != nil {
			t.Fatalf("append stroke: %v", err)
		}
		cell.SetRecognizedCode("cell " + string(rune('A'+i)))
		cells[i] = cell
	}
	return cells
}

// WriteProjectDir writes files into a fresh directory and returns its path.
func WriteProjectDir(t testing.TB, files map[string][]byte) string {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "project")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir project: %v", err)
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

// PackZip builds a zip archive from files, adding members in name order.
func PackZip(t testing.TB, files map[string][]byte) []byte {
	t.Helper()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write(files[name]); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// ReadDirFiles returns every regular file directly under dir.
func ReadDirFiles(t testing.TB, dir string) map[string][]byte {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir %s: %v", dir, err)
	}
	files := make(map[string][]byte, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			t.Fatalf("read %s: %v", entry.Name(), err)
		}
		files[entry.Name()] = data
	}
	return files
}
