package render

import (
	"math"

	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/marisusis/eclipse.marisusis.me/internal/domain"
)

// NoDataText is the placeholder shown over an empty panel
const NoDataText = "NO DATA"

// TraceWidth is the stroke width of the waveform in backing pixels
const TraceWidth = 2.0

// Palette holds the colours used for one panel.
type Palette struct {
	Background drawing.Color
	Normal     drawing.Color
	Warning    drawing.Color
	Alert      drawing.Color
	Label      drawing.Color
}

// DefaultPalette matches the dashboard's dark theme.
var DefaultPalette = Palette{
	Background: drawing.Color{R: 0x00, G: 0x00, B: 0x00, A: 0xff},
	Normal:     drawing.Color{R: 0x00, G: 0xff, B: 0x00, A: 0xff},
	Warning:    drawing.Color{R: 0xff, G: 0xc1, B: 0x45, A: 0xff},
	Alert:      drawing.Color{R: 0xff, G: 0x00, B: 0x00, A: 0xff},
	Label:      drawing.Color{R: 0xaa, G: 0xaa, B: 0xaa, A: 0xff},
}

// TraceColor picks the stroke colour. Clipping wins over everything.
func (p Palette) TraceColor(flags domain.WaveformFlags) drawing.Color {
	switch {
	case flags.IsClipping:
		return p.Alert
	case flags.HasGPSFix:
		return p.Normal
	default:
		return p.Warning
	}
}

// Renderer draws waveform samples onto a Canvas.
type Renderer struct {
	palette Palette
	ratio   float64
}

// NewRenderer creates a renderer for surfaces with the given pixel ratio.
func NewRenderer(palette Palette, ratio float64) *Renderer {
	return &Renderer{palette: palette, ratio: scale(ratio)}
}

// Palette returns the renderer's colours.
func (r *Renderer) Palette() Palette { return r.palette }

// Render clears the canvas and draws the sample's trace with its axis labels.
// It returns false only for a nil sample; the canvas is left cleared. A
// sample with fewer than two plottable points still gets its axis.
func (r *Renderer) Render(c Canvas, sample *domain.WaveformSample, window, width, height float64) (bool, error) {
	if err := c.Clear(); err != nil {
		return false, err
	}
	if sample == nil {
		return false, nil
	}

	if points := TracePoints(sample, window, width, height); len(points) >= 2 {
		c.MoveTo(points[0].X, points[0].Y)
		for _, p := range points[1:] {
			c.LineTo(p.X, p.Y)
		}
		c.Stroke(r.palette.TraceColor(sample.Flags), TraceWidth)
	}

	r.drawAxis(c, window, width, height)
	return true, nil
}

// RenderPlaceholder clears the canvas and centres text on it.
func (r *Renderer) RenderPlaceholder(c Canvas, text string, width, height float64) error {
	if err := c.Clear(); err != nil {
		return err
	}

	size := FontSize(r.ratio) * 2
	textW := c.MeasureText(text, size)
	x := math.Max(0, (width-textW)/2)
	y := height/2 + size/3
	c.FillText(text, x, y, size, r.palette.Label)
	return nil
}

func (r *Renderer) drawAxis(c Canvas, window, width, height float64) {
	size := FontSize(r.ratio)
	tickW := math.Max(1, math.Round(r.ratio/2))

	for _, l := range AxisLabels(window, width, height, r.ratio, c.MeasureText) {
		c.FillRect(l.TickX, l.TickTop, tickW, l.TickH, r.palette.Label)
		c.FillText(l.Text, l.TextX, l.Baseline, size, r.palette.Label)
	}

	amp := AmplitudeLabel(r.ratio)
	c.FillText(amp.Text, amp.TextX, amp.Baseline, size, r.palette.Label)
	c.FillRect(amp.RuleX, amp.RuleY, amp.RuleW, tickW, r.palette.Label)
}
