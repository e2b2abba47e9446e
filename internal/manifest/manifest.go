// Package manifest describes a saved project: which cell documents belong to
// it, in what order, and with what per-cell metadata.
//
// Both storage backends marshal manifests through this package so that a
// project written by one backend is byte-for-byte what the other expects.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/sarmentow/codepencil/internal/notebook"
)

const (
	// Version is the manifest format version written and accepted.
	Version = 1
	// FileName is the manifest document name inside a project.
	FileName = "manifest.json"
	// DocumentExt is the extension of cell documents.
	DocumentExt = ".svg"
)

// ErrVersion is returned by Parse for manifests of another format version.
var ErrVersion = errors.New("unsupported manifest version")

// Entry is one cell in a manifest.
type Entry struct {
	File           string  `json:"file"`
	Height         float64 `json:"height,omitempty"`
	RecognizedCode string  `json:"recognizedCode,omitempty"`
}

// Manifest is the ordered project index. Its cell order is authoritative.
type Manifest struct {
	Version     int     `json:"version"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
	Cells       []Entry `json:"cells"`
}

// DocumentName returns the canonical document name for the cell at the
// zero-based index: cell-001.svg, cell-002.svg, ...
func DocumentName(index int) string {
	return fmt.Sprintf("cell-%03d%s", index+1, DocumentExt)
}

// Build derives a manifest from cells in order. Names are positional and
// regenerated on every call; they do not depend on cell identity.
func Build(cells []notebook.Cell, strokeWidth float64) Manifest {
	m := Manifest{
		Version:     Version,
		StrokeWidth: strokeWidth,
		Cells:       make([]Entry, 0, len(cells)),
	}
	for i, cell := range cells {
		m.Cells = append(m.Cells, Entry{
			File:           DocumentName(i),
			Height:         cell.Height,
			RecognizedCode: cell.RecognizedCode,
		})
	}
	return m
}

// Marshal encodes the manifest in its canonical on-disk form.
func Marshal(m Manifest) ([]byte, error) {
	if m.Cells == nil {
		m.Cells = []Entry{}
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// Parse decodes a manifest document and checks its version.
func Parse(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Version != Version {
		return Manifest{}, fmt.Errorf("%w: %d", ErrVersion, m.Version)
	}
	return m, nil
}

// IsDocumentName reports whether name looks like a cell document a loader may
// pick up when no manifest exists.
func IsDocumentName(name string) bool {
	return strings.EqualFold(path.Ext(name), DocumentExt) && SafeName(name)
}

// SafeName reports whether name is a plain base name that cannot escape the
// project root.
func SafeName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.Contains(name, "..")
}
