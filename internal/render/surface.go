package render

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var ErrNoBacking = errors.New("surface has no backing store")

// fontDPI makes font sizes equal pixel heights
const fontDPI = 72

// Surface is a raster Canvas whose backing store is the CSS layout size
// multiplied by the device pixel ratio.
type Surface struct {
	ratio      float64
	background drawing.Color

	cssWidth  int
	cssHeight int
	width     int
	height    int

	r chart.Renderer
}

// NewSurface creates an empty surface for the given pixel ratio.
func NewSurface(ratio float64, background drawing.Color) *Surface {
	if ratio <= 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		ratio = 1
	}
	return &Surface{ratio: ratio, background: background}
}

// Resize re-derives the backing store from a CSS layout size. It reports
// whether the backing dimensions changed; an unchanged size keeps the store.
func (s *Surface) Resize(cssWidth, cssHeight int) bool {
	if cssWidth < 0 {
		cssWidth = 0
	}
	if cssHeight < 0 {
		cssHeight = 0
	}
	if cssWidth == s.cssWidth && cssHeight == s.cssHeight && s.r != nil {
		return false
	}

	s.cssWidth, s.cssHeight = cssWidth, cssHeight
	width := int(math.Round(float64(cssWidth) * s.ratio))
	height := int(math.Round(float64(cssHeight) * s.ratio))
	changed := width != s.width || height != s.height
	s.width, s.height = width, height
	if changed {
		s.r = nil
	}
	return changed
}

// Ratio returns the device pixel ratio of the surface.
func (s *Surface) Ratio() float64 { return s.ratio }

// CSSSize returns the layout size the backing store was derived from.
func (s *Surface) CSSSize() (int, int) { return s.cssWidth, s.cssHeight }

// Size implements Canvas
func (s *Surface) Size() (int, int) { return s.width, s.height }

// Clear implements Canvas. The previous raster is dropped entirely so no stroke survives.
func (s *Surface) Clear() error {
	if s.width <= 0 || s.height <= 0 {
		s.r = nil
		return fmt.Errorf("%w: %dx%d", ErrNoBacking, s.width, s.height)
	}

	r, err := chart.PNG(s.width, s.height)
	if err != nil {
		return fmt.Errorf("failed to allocate raster: %w", err)
	}
	r.SetDPI(fontDPI)
	if font, err := chart.GetDefaultFont(); err == nil {
		r.SetFont(font)
	}
	s.r = r

	s.FillRect(0, 0, float64(s.width), float64(s.height), s.background)
	return nil
}

// MoveTo implements Canvas
func (s *Surface) MoveTo(x, y float64) {
	if s.r == nil {
		return
	}
	s.r.MoveTo(px(x), px(y))
}

// LineTo implements Canvas
func (s *Surface) LineTo(x, y float64) {
	if s.r == nil {
		return
	}
	s.r.LineTo(px(x), px(y))
}

// Stroke implements Canvas
func (s *Surface) Stroke(color drawing.Color, width float64) {
	if s.r == nil {
		return
	}
	s.r.SetStrokeColor(color)
	s.r.SetStrokeWidth(width)
	s.r.Stroke()
}

// FillRect implements Canvas
func (s *Surface) FillRect(x, y, w, h float64, color drawing.Color) {
	if s.r == nil || w == 0 || h == 0 {
		return
	}
	s.r.SetFillColor(color)
	s.r.MoveTo(px(x), px(y))
	s.r.LineTo(px(x+w), px(y))
	s.r.LineTo(px(x+w), px(y+h))
	s.r.LineTo(px(x), px(y+h))
	s.r.Close()
	s.r.Fill()
}

// FillText implements Canvas
func (s *Surface) FillText(text string, x, y, size float64, color drawing.Color) {
	if s.r == nil {
		return
	}
	s.r.SetFontSize(size)
	s.r.SetFontColor(color)
	s.r.Text(text, px(x), px(y))
}

// MeasureText implements Canvas
func (s *Surface) MeasureText(text string, size float64) float64 {
	if s.r == nil {
		// rough monospace estimate until a raster exists
		return float64(len(text)) * size * 0.6
	}
	s.r.SetFontSize(size)
	return float64(s.r.MeasureText(text).Width())
}

// EncodePNG writes the current raster as PNG.
func (s *Surface) EncodePNG(w io.Writer) error {
	if s.r == nil {
		return ErrNoBacking
	}
	return s.r.Save(w)
}

// PNG returns the current raster as PNG bytes.
func (s *Surface) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := s.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func px(v float64) int {
	return int(math.Round(v))
}
