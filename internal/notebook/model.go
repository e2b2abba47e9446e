package notebook

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Version is the only notebook snapshot version this package reads or writes.
const Version = 1

// Point is one pointer sample. Pressure is in (0,1]; Timestamp is the
// monotonic capture time in milliseconds.
type Point struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Pressure  float64 `json:"pressure"`
	Timestamp float64 `json:"timestamp"`
}

// Stroke is one continuous pen contact. A single-point stroke is a dot.
type Stroke []Point

// IsDot reports whether the stroke is a degenerate single-point mark.
func (s Stroke) IsDot() bool { return len(s) == 1 }

// Status tracks a cell's transcription.
type Status string

const (
	StatusIdle        Status = "idle"
	StatusRecognizing Status = "recognizing"
	StatusRecognized  Status = "recognized"
	StatusError       Status = "error"
)

// RunStatus tracks a cell's last execution.
type RunStatus string

const (
	RunIdle    RunStatus = "idle"
	RunRunning RunStatus = "running"
	RunDone    RunStatus = "done"
	RunError   RunStatus = "error"
)

// Cell is one notebook unit: its ink plus transcription and last run output.
type Cell struct {
	ID             string    `json:"id"`
	Strokes        []Stroke  `json:"strokes"`
	RecognizedCode string    `json:"recognizedCode,omitempty"`
	Status         Status    `json:"status,omitempty"`
	RunStatus      RunStatus `json:"runStatus,omitempty"`
	Stdout         string    `json:"stdout,omitempty"`
	Stderr         string    `json:"stderr,omitempty"`
	Height         float64   `json:"height,omitempty"`
}

// Notebook is the ordered cell list. Cell order is presentation order.
type Notebook struct {
	Version int    `json:"version"`
	Cells   []Cell `json:"cells"`
}

var (
	// ErrStrokeIndex is returned when a stroke index is out of range.
	ErrStrokeIndex = errors.New("stroke index out of range")
	// ErrEmptyStroke is returned when appending a stroke without points.
	ErrEmptyStroke = errors.New("stroke has no points")
)

// NewID returns a fresh opaque cell identifier.
func NewID() string {
	return uuid.NewString()
}

// NewCell creates an empty cell with a fresh identifier.
func NewCell() Cell {
	return Cell{ID: NewID(), Status: StatusIdle, RunStatus: RunIdle}
}

// New returns an empty notebook at the current version.
func New() *Notebook {
	return &Notebook{Version: Version}
}

// AppendStroke adds a copy of stroke to the cell.
func (c *Cell) AppendStroke(stroke Stroke) error {
	if len(stroke) == 0 {
		return ErrEmptyStroke
	}
	cp := make(Stroke, len(stroke))
	copy(cp, stroke)
	c.Strokes = append(c.Strokes, cp)
	return nil
}

// RemoveStroke deletes the stroke at index, preserving the order of the rest.
func (c *Cell) RemoveStroke(index int) error {
	if index < 0 || index >= len(c.Strokes) {
		return fmt.Errorf("%w: %d of %d", ErrStrokeIndex, index, len(c.Strokes))
	}
	c.Strokes = append(c.Strokes[:index], c.Strokes[index+1:]...)
	return nil
}

// ClearStrokes erases all ink from the cell.
func (c *Cell) ClearStrokes() {
	c.Strokes = nil
}

// SetRecognizedCode attaches transcribed source text. The text is not
// validated or parsed.
func (c *Cell) SetRecognizedCode(code string) {
	c.RecognizedCode = code
	c.Status = StatusRecognized
}

// MarkRunning clears the previous output and flags the cell as executing.
func (c *Cell) MarkRunning() {
	c.RunStatus = RunRunning
	c.Stdout = ""
	c.Stderr = ""
}

// RecordRun stores execution output. Any stderr text marks the run as an error.
func (c *Cell) RecordRun(stdout, stderr string) {
	c.Stdout = stdout
	c.Stderr = stderr
	if stderr != "" {
		c.RunStatus = RunError
		return
	}
	c.RunStatus = RunDone
}

// PointCount returns the number of samples across all strokes.
func (c Cell) PointCount() int {
	total := 0
	for _, s := range c.Strokes {
		total += len(s)
	}
	return total
}

// Append adds a cell, assigning an identifier when it has none.
func (n *Notebook) Append(cell Cell) {
	if cell.ID == "" {
		cell.ID = NewID()
	}
	n.Cells = append(n.Cells, cell)
}

// Remove deletes the cell with the given identifier and reports whether it existed.
func (n *Notebook) Remove(id string) bool {
	for i := range n.Cells {
		if n.Cells[i].ID == id {
			n.Cells = append(n.Cells[:i], n.Cells[i+1:]...)
			return true
		}
	}
	return false
}

// Replace swaps the notebook contents wholesale, as a load does.
func (n *Notebook) Replace(cells []Cell) {
	n.Cells = cells
}
