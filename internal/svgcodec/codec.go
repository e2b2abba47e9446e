// Package svgcodec converts strokes to standalone SVG documents and back.
//
// Documents are plain namespaced SVG with an explicit viewBox, one <path> per
// stroke built from M/L commands at two-decimal precision, so any SVG viewer
// renders a cell. Decoding is deliberately tolerant: it pattern-matches path
// data and the viewport instead of validating the document, skips paths that
// yield no points, and fills in placeholder pressure and timestamp values that
// the format does not carry.
package svgcodec

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/sarmentow/codepencil/internal/notebook"
)

const (
	// DefaultWidth and DefaultHeight apply when a document declares no usable size.
	DefaultWidth  = 800.0
	DefaultHeight = 320.0
	// DotOffset is the x distance of the synthetic second point of a dot.
	DotOffset = 0.1
	// DefaultStrokeColor is used when Encode is given no color option.
	DefaultStrokeColor = "#111111"

	placeholderPressure  = 0.5
	placeholderTimestamp = 0
)

// Option customizes Encode.
type Option func(*encodeOptions)

type encodeOptions struct {
	color string
}

// WithColor sets the stroke color attribute.
func WithColor(color string) Option {
	return func(o *encodeOptions) {
		if c := strings.TrimSpace(color); c != "" {
			o.color = c
		}
	}
}

// Encode renders strokes into an SVG document sized width x height.
// Strokes that produce no path data are omitted.
func Encode(strokes []notebook.Stroke, width, height, strokeWidth float64, opts ...Option) []byte {
	o := encodeOptions{color: DefaultStrokeColor}
	for _, opt := range opts {
		opt(&o)
	}

	var buf bytes.Buffer
	buf.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="`)
	buf.WriteString(formatFloat(width))
	buf.WriteString(`" height="`)
	buf.WriteString(formatFloat(height))
	buf.WriteString(`" viewBox="0 0 `)
	buf.WriteString(formatFloat(width))
	buf.WriteByte(' ')
	buf.WriteString(formatFloat(height))
	buf.WriteString("\">\n")

	for _, stroke := range strokes {
		d := pathData(stroke)
		if d == "" {
			continue
		}
		buf.WriteString(`  <path d="`)
		buf.WriteString(d)
		buf.WriteString(`" stroke="`)
		buf.WriteString(escapeAttr(o.color))
		buf.WriteString(`" stroke-width="`)
		buf.WriteString(formatFloat(strokeWidth))
		buf.WriteString(`" fill="none" stroke-linecap="round" stroke-linejoin="round"/>`)
		buf.WriteByte('\n')
	}
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func pathData(stroke notebook.Stroke) string {
	switch len(stroke) {
	case 0:
		return ""
	case 1:
		p := stroke[0]
		return "M " + coord(p.X, p.Y) + " L " + coord(p.X+DotOffset, p.Y)
	}
	var b strings.Builder
	b.Grow(len(stroke) * 16)
	for i, p := range stroke {
		if i == 0 {
			b.WriteString("M ")
		} else {
			b.WriteString(" L ")
		}
		b.WriteString(coord(p.X, p.Y))
	}
	return b.String()
}

func coord(x, y float64) string {
	return strconv.FormatFloat(x, 'f', 2, 64) + " " + strconv.FormatFloat(y, 'f', 2, 64)
}

// formatFloat writes dimensions without a trailing ".00" for whole numbers.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var attrEscaper = strings.NewReplacer(`&`, "&amp;", `"`, "&quot;", `<`, "&lt;", `>`, "&gt;")

func escapeAttr(s string) string {
	return attrEscaper.Replace(s)
}

const number = `[-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?`

var (
	pathElement  = regexp.MustCompile(`(?is)<path\b[^>]*?\sd\s*=\s*("[^"]*"|'[^']*')`)
	moveLinePair = regexp.MustCompile(`([MLml])\s*(` + number + `)[\s,]+(` + number + `)`)
	viewBoxAttr  = regexp.MustCompile(`(?is)<svg\b[^>]*?\sviewBox\s*=\s*["']([^"']*)["']`)
	widthAttr    = regexp.MustCompile(`(?is)<svg\b[^>]*?\swidth\s*=\s*["']\s*(` + number + `)`)
	heightAttr   = regexp.MustCompile(`(?is)<svg\b[^>]*?\sheight\s*=\s*["']\s*(` + number + `)`)
	numberToken  = regexp.MustCompile(number)
	svgRoot      = regexp.MustCompile(`(?is)<svg\b`)
)

// Sniff reports whether doc looks like an SVG document at all. Loaders use it
// to tell a corrupt cell document from one that merely has no strokes.
func Sniff(doc []byte) bool {
	return svgRoot.Match(doc)
}

// Decode extracts strokes and the canvas size from an SVG document. Every
// point gets pressure 0.5 and timestamp 0. Width and height come from the
// viewBox, then the width/height attributes, then the defaults.
func Decode(doc []byte) ([]notebook.Stroke, float64, float64) {
	width, height := dimensions(doc)

	var strokes []notebook.Stroke
	for _, m := range pathElement.FindAllSubmatch(doc, -1) {
		d := m[1][1 : len(m[1])-1]
		stroke := parsePath(d)
		if len(stroke) == 0 {
			continue
		}
		strokes = append(strokes, stroke)
	}
	return strokes, width, height
}

// parsePath reads M/L command pairs only; relative commands are resolved
// against the previous point and anything else in the data is ignored.
func parsePath(d []byte) notebook.Stroke {
	var stroke notebook.Stroke
	var curX, curY float64
	for _, m := range moveLinePair.FindAllSubmatch(d, -1) {
		x, errX := strconv.ParseFloat(string(m[2]), 64)
		y, errY := strconv.ParseFloat(string(m[3]), 64)
		if errX != nil || errY != nil {
			continue
		}
		switch m[1][0] {
		case 'm', 'l':
			x += curX
			y += curY
		}
		curX, curY = x, y
		stroke = append(stroke, notebook.Point{
			X:         x,
			Y:         y,
			Pressure:  placeholderPressure,
			Timestamp: placeholderTimestamp,
		})
	}
	return stroke
}

func dimensions(doc []byte) (float64, float64) {
	if m := viewBoxAttr.FindSubmatch(doc); m != nil {
		fields := numberToken.FindAll(m[1], -1)
		if len(fields) == 4 {
			w, errW := strconv.ParseFloat(string(fields[2]), 64)
			h, errH := strconv.ParseFloat(string(fields[3]), 64)
			if errW == nil && errH == nil && w > 0 && h > 0 {
				return w, h
			}
		}
	}
	return attrDimension(doc, widthAttr, DefaultWidth), attrDimension(doc, heightAttr, DefaultHeight)
}

func attrDimension(doc []byte, re *regexp.Regexp, fallback float64) float64 {
	m := re.FindSubmatch(doc)
	if m == nil {
		return fallback
	}
	v, err := strconv.ParseFloat(string(m[1]), 64)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
