package render

import (
	"fmt"
	"math"

	"github.com/marisusis/eclipse.marisusis.me/internal/domain"
)

// Layout constants in CSS pixels; multiplied by the pixel ratio at draw time.
const (
	fontSizeCSS   = 10.0
	marginCSS     = 10.0
	tickHeightCSS = 20.0
	tickOverlap   = 2.5
	labelGapCSS   = 2.0
	zeroTickCSS   = 5.0
	zeroTextCSS   = 6.0
	ruleWidthCSS  = 20.0
)

// AxisLabel is one tick mark with its text, in backing-store pixels.
type AxisLabel struct {
	Text string
	// TickX is the left edge of the 1px tick
	TickX    float64
	TickTop  float64
	TickH    float64
	TextX    float64
	Baseline float64
}

// ScaleLabel is the amplitude marker near the top-left corner.
type ScaleLabel struct {
	Text     string
	TextX    float64
	Baseline float64
	RuleX    float64
	RuleY    float64
	RuleW    float64
}

// TracePoints maps a sample onto the canvas. Sample i lands at
// x = i*width/(window*rate), y = h/2 - v*h/2. Points past the first one at or
// beyond the right edge are not visible and are omitted.
func TracePoints(sample *domain.WaveformSample, window, width, height float64) []Point {
	if sample == nil || len(sample.Samples) == 0 {
		return nil
	}
	if !(window > 0) || !(sample.SampleRate > 0) || !(width > 0) {
		return nil
	}

	visible := window * sample.SampleRate
	step := width / visible
	mid := height / 2

	n := len(sample.Samples)
	if capHint := int(math.Ceil(visible)) + 1; capHint < n {
		n = capHint
	}
	points := make([]Point, 0, n)
	for i, v := range sample.Samples {
		x := float64(i) * step
		points = append(points, Point{X: x, Y: mid - v*mid})
		if x >= width {
			break
		}
	}
	return points
}

// WindowLabels returns the texts for the zero, half and full ticks.
func WindowLabels(window float64) [3]string {
	ms := window * 1000
	return [3]string{
		"0ms",
		fmt.Sprintf("%dms", int(math.Round(ms/2))),
		fmt.Sprintf("%dms", int(math.Round(ms))),
	}
}

// AxisLabels lays out the time axis along the bottom margin. measure returns
// the rendered width of a label at the given font size.
func AxisLabels(window, width, height, ratio float64, measure func(text string, size float64) float64) []AxisLabel {
	k := scale(ratio)
	size := fontSizeCSS * k
	margin := marginCSS * k
	baseline := height - margin
	tickTop := baseline + tickOverlap*k - tickHeightCSS*k
	gap := labelGapCSS * k

	texts := WindowLabels(window)
	zeroX := zeroTickCSS * k
	halfX := math.Round(width / 2)
	fullX := width - margin

	return []AxisLabel{
		{
			Text:     texts[0],
			TickX:    zeroX,
			TickTop:  tickTop,
			TickH:    tickHeightCSS * k,
			TextX:    zeroX + zeroTextCSS*k,
			Baseline: baseline - gap,
		},
		{
			Text:     texts[1],
			TickX:    halfX,
			TickTop:  tickTop,
			TickH:    tickHeightCSS * k,
			TextX:    halfX - gap - measure(texts[1], size),
			Baseline: baseline,
		},
		{
			Text:     texts[2],
			TickX:    fullX,
			TickTop:  tickTop,
			TickH:    tickHeightCSS * k,
			TextX:    fullX - gap - measure(texts[2], size),
			Baseline: baseline,
		},
	}
}

// AmplitudeLabel places the "1" marker and its rule at the top-left.
func AmplitudeLabel(ratio float64) ScaleLabel {
	k := scale(ratio)
	return ScaleLabel{
		Text:     "1",
		TextX:    marginCSS*k - tickOverlap*k,
		Baseline: tickHeightCSS*k - labelGapCSS*k,
		RuleX:    zeroTickCSS * k,
		RuleY:    (tickHeightCSS - 12.5) * k,
		RuleW:    ruleWidthCSS * k,
	}
}

// FontSize returns the label font size in backing pixels.
func FontSize(ratio float64) float64 {
	return fontSizeCSS * scale(ratio)
}

func scale(ratio float64) float64 {
	if !(ratio > 0) || math.IsInf(ratio, 0) {
		return 1
	}
	return ratio
}
