package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/sarmentow/codepencil/internal/notebook"
	"github.com/sarmentow/codepencil/internal/svgcodec"
)

// PDFOptions controls PDF layout. Units are points, matching canvas units.
type PDFOptions struct {
	CanvasWidth float64
	StrokeWidth float64
	StrokeColor string
	// IncludeCode prints recognized code and the last run output under the ink.
	IncludeCode bool
	Title       string
}

const (
	pageMargin = 24.0
	codeLine   = 11.0
)

// PDF writes one page per cell. Pages are sized to the cell so ink is never
// scaled.
func PDF(w io.Writer, cells []notebook.Cell, opts PDFOptions) error {
	if len(cells) == 0 {
		return errors.New("export: notebook has no cells")
	}
	width := opts.CanvasWidth
	if width <= 0 {
		width = svgcodec.DefaultWidth
	}
	strokeWidth := opts.StrokeWidth
	if strokeWidth <= 0 {
		strokeWidth = 1
	}
	ink := parseHex(opts.StrokeColor)
	if opts.StrokeColor == "" {
		ink = parseHex(svgcodec.DefaultStrokeColor)
	}

	pdf := gofpdf.New("P", "pt", "", "")
	pdf.SetAutoPageBreak(false, 0)
	if opts.Title != "" {
		pdf.SetTitle(opts.Title, true)
	}
	pdf.SetCreator("codepencil", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for i, cell := range cells {
		height := cell.Height
		if height <= 0 {
			height = svgcodec.DefaultHeight
		}
		var text []string
		if opts.IncludeCode {
			text = cellText(cell)
		}
		pageHeight := height + 2*pageMargin
		if len(text) > 0 {
			pageHeight += float64(len(text))*codeLine + pageMargin
		}
		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: width + 2*pageMargin, Ht: pageHeight})

		pdf.SetDrawColor(220, 220, 220)
		pdf.SetLineWidth(0.5)
		pdf.Rect(pageMargin, pageMargin, width, height, "D")

		pdf.SetDrawColor(int(ink.R), int(ink.G), int(ink.B))
		pdf.SetFillColor(int(ink.R), int(ink.G), int(ink.B))
		pdf.SetLineWidth(strokeWidth)
		pdf.SetLineCapStyle("round")
		pdf.SetLineJoinStyle("round")
		for _, stroke := range cell.Strokes {
			drawStroke(pdf, stroke, strokeWidth)
		}

		if len(text) > 0 {
			pdf.SetFont("Courier", "", 9)
			pdf.SetTextColor(40, 40, 40)
			y := pageMargin + height + pageMargin
			for _, line := range text {
				pdf.Text(pageMargin, y, tr(line))
				y += codeLine
			}
		}

		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(150, 150, 150)
		pdf.Text(pageMargin, pageMargin-8, fmt.Sprintf("cell %d", i+1))
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return pdf.Output(w)
}

func drawStroke(pdf *gofpdf.Fpdf, stroke notebook.Stroke, width float64) {
	switch {
	case len(stroke) == 0:
		return
	case stroke.IsDot():
		p := stroke[0]
		pdf.Circle(pageMargin+p.X, pageMargin+p.Y, width/2, "F")
		return
	}
	pdf.MoveTo(pageMargin+stroke[0].X, pageMargin+stroke[0].Y)
	for _, p := range stroke[1:] {
		pdf.LineTo(pageMargin+p.X, pageMargin+p.Y)
	}
	pdf.DrawPath("D")
}

func cellText(cell notebook.Cell) []string {
	var lines []string
	if cell.RecognizedCode != "" {
		lines = append(lines, strings.Split(strings.TrimRight(cell.RecognizedCode, "\n"), "\n")...)
	}
	if cell.Stdout != "" {
		lines = append(lines, "")
		for _, l := range strings.Split(strings.TrimRight(cell.Stdout, "\n"), "\n") {
			lines = append(lines, "> "+l)
		}
	}
	if cell.Stderr != "" {
		lines = append(lines, "")
		for _, l := range strings.Split(strings.TrimRight(cell.Stderr, "\n"), "\n") {
			lines = append(lines, "! "+l)
		}
	}
	return lines
}
