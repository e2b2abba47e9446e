package export

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// MaxPNGSide bounds the rendered image in pixels.
const MaxPNGSide = 8192

// PNG rasterizes an SVG document onto a white background. scale multiplies
// the document's viewBox size; zero means 1.
func PNG(w io.Writer, doc []byte, scale float64) error {
	if scale <= 0 {
		scale = 1
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(doc), oksvg.WarnErrorMode)
	if err != nil {
		return fmt.Errorf("parse svg: %w", err)
	}
	width := int(icon.ViewBox.W*scale + 0.5)
	height := int(icon.ViewBox.H*scale + 0.5)
	if width <= 0 || height <= 0 {
		return errors.New("svg has an empty viewBox")
	}
	if width > MaxPNGSide || height > MaxPNGSide {
		return fmt.Errorf("rendered image %dx%d exceeds %d pixels per side", width, height, MaxPNGSide)
	}

	icon.SetTarget(0, 0, float64(width), float64(height))
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(width, height, img, img.Bounds())
	raster := rasterx.NewDasher(width, height, scanner)
	icon.Draw(raster, 1.0)

	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
