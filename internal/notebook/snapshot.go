package notebook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrVersion is returned for snapshots written by an unknown format version.
var ErrVersion = errors.New("unsupported notebook version")

// Transcriber turns a rendered cell image into source text. Implementations
// live outside this repository; the notebook only stores what they return.
type Transcriber interface {
	Transcribe(ctx context.Context, image []byte) (string, error)
}

// Decode reads a notebook snapshot. Cells without an identifier, or whose
// identifier repeats an earlier cell, receive a fresh one so identifiers stay
// unique within the notebook.
func Decode(r io.Reader) (*Notebook, error) {
	var nb Notebook
	if err := json.NewDecoder(r).Decode(&nb); err != nil {
		return nil, fmt.Errorf("decode notebook: %w", err)
	}
	if nb.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, nb.Version)
	}
	seen := make(map[string]struct{}, len(nb.Cells))
	for i := range nb.Cells {
		cell := &nb.Cells[i]
		if _, dup := seen[cell.ID]; cell.ID == "" || dup {
			cell.ID = NewID()
		}
		seen[cell.ID] = struct{}{}
		strokes := cell.Strokes[:0]
		for _, s := range cell.Strokes {
			if len(s) > 0 {
				strokes = append(strokes, s)
			}
		}
		cell.Strokes = strokes
	}
	return &nb, nil
}

// Encode writes the notebook snapshot as indented JSON.
func Encode(w io.Writer, nb *Notebook) error {
	if nb == nil {
		return errors.New("notebook is nil")
	}
	out := *nb
	out.Version = Version
	if out.Cells == nil {
		out.Cells = []Cell{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode notebook: %w", err)
	}
	return nil
}
