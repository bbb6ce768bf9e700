package render

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/marisusis/eclipse.marisusis.me/internal/domain"
)

// fakeCanvas records drawing operations
type fakeCanvas struct {
	width, height int
	ops           []string
	path          []Point
	strokes       [][]Point
	strokeColors  []drawing.Color
	strokeWidths  []float64
	texts         []string
	clears        int
	clearErr      error
}

func newFakeCanvas(w, h int) *fakeCanvas {
	return &fakeCanvas{width: w, height: h}
}

func (f *fakeCanvas) Size() (int, int) { return f.width, f.height }

func (f *fakeCanvas) Clear() error {
	if f.clearErr != nil {
		return f.clearErr
	}
	f.clears++
	f.ops = nil
	f.path = nil
	f.strokes = nil
	f.strokeColors = nil
	f.strokeWidths = nil
	f.texts = nil
	return nil
}

func (f *fakeCanvas) MoveTo(x, y float64) {
	f.ops = append(f.ops, "move")
	f.path = []Point{{X: x, Y: y}}
}

func (f *fakeCanvas) LineTo(x, y float64) {
	f.ops = append(f.ops, "line")
	f.path = append(f.path, Point{X: x, Y: y})
}

func (f *fakeCanvas) Stroke(color drawing.Color, width float64) {
	f.ops = append(f.ops, "stroke")
	f.strokes = append(f.strokes, f.path)
	f.strokeColors = append(f.strokeColors, color)
	f.strokeWidths = append(f.strokeWidths, width)
	f.path = nil
}

func (f *fakeCanvas) FillRect(x, y, w, h float64, color drawing.Color) {
	f.ops = append(f.ops, "rect")
}

func (f *fakeCanvas) FillText(text string, x, y, size float64, color drawing.Color) {
	f.ops = append(f.ops, "text")
	f.texts = append(f.texts, text)
}

func (f *fakeCanvas) MeasureText(text string, size float64) float64 {
	return float64(len(text)) * size / 2
}

func etSample(flags domain.WaveformFlags) *domain.WaveformSample {
	return &domain.WaveformSample{
		SampleRate: 1000,
		Samples:    []float64{0, 0.5, -0.5, 0},
		Flags:      flags,
	}
}

func TestTracePoints_OnlineScenario(t *testing.T) {
	points := TracePoints(etSample(domain.WaveformFlags{HasGPSFix: true}), 0.3, 1200, 600)

	require.Len(t, points, 4)
	assert.Equal(t, []Point{
		{X: 0, Y: 300},
		{X: 4, Y: 150},
		{X: 8, Y: 450},
		{X: 12, Y: 300},
	}, points)
}

func TestTracePoints_StopsPastRightEdge(t *testing.T) {
	sample := &domain.WaveformSample{SampleRate: 10, Samples: make([]float64, 100)}

	// 0.5s at 10Hz shows 5 samples across 100px
	points := TracePoints(sample, 0.5, 100, 50)

	require.Len(t, points, 6)
	assert.Equal(t, 100.0, points[5].X)
	for _, p := range points[:5] {
		assert.Less(t, p.X, 100.0)
	}
}

func TestTracePoints_NothingToDraw(t *testing.T) {
	tests := []struct {
		name   string
		sample *domain.WaveformSample
		window float64
		width  float64
	}{
		{"nil sample", nil, 0.3, 100},
		{"empty samples", &domain.WaveformSample{SampleRate: 1000}, 0.3, 100},
		{"zero rate", &domain.WaveformSample{Samples: []float64{1}}, 0.3, 100},
		{"zero window", etSample(domain.WaveformFlags{}), 0, 100},
		{"zero width", etSample(domain.WaveformFlags{}), 0.3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, TracePoints(tt.sample, tt.window, tt.width, 100))
		})
	}
}

func TestWindowLabels(t *testing.T) {
	assert.Equal(t, [3]string{"0ms", "150ms", "300ms"}, WindowLabels(0.3))
	assert.Equal(t, [3]string{"0ms", "5ms", "10ms"}, WindowLabels(0.01))
	assert.Equal(t, [3]string{"0ms", "180ms", "360ms"}, WindowLabels(0.36))
	assert.Equal(t, [3]string{"0ms", "63ms", "125ms"}, WindowLabels(0.125))
}

func TestAxisLabels_Layout(t *testing.T) {
	measure := func(text string, size float64) float64 { return 10 * float64(len(text)) }
	labels := AxisLabels(0.3, 1200, 600, 2, measure)

	require.Len(t, labels, 3)

	zero, half, full := labels[0], labels[1], labels[2]
	assert.Equal(t, "0ms", zero.Text)
	assert.Greater(t, zero.TextX, zero.TickX, "zero label sits right of its tick")

	assert.Equal(t, 600.0, half.TickX)
	assert.InDelta(t, half.TickX-4, half.TextX+measure(half.Text, 0), 1e-9, "half label right-aligned to its tick")

	assert.Less(t, full.TickX, 1200.0, "full tick inset from the right edge")
	assert.InDelta(t, full.TickX-4, full.TextX+measure(full.Text, 0), 1e-9)

	for _, l := range labels {
		assert.Greater(t, l.TickTop, 300.0, "ticks sit in the bottom margin")
		assert.LessOrEqual(t, l.TickTop+l.TickH, 600.0)
		assert.Less(t, l.Baseline, 600.0)
	}
}

func TestFontSize_ScalesWithRatio(t *testing.T) {
	assert.Equal(t, 10.0, FontSize(1))
	assert.Equal(t, 20.0, FontSize(2))
	assert.Equal(t, 10.0, FontSize(0))
}

func TestPalette_TraceColor(t *testing.T) {
	p := DefaultPalette

	tests := []struct {
		flags domain.WaveformFlags
		want  drawing.Color
	}{
		{domain.WaveformFlags{HasGPSFix: true}, p.Normal},
		{domain.WaveformFlags{HasGPSFix: false}, p.Warning},
		{domain.WaveformFlags{HasGPSFix: true, IsClipping: true}, p.Alert},
		{domain.WaveformFlags{HasGPSFix: false, IsClipping: true}, p.Alert},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%+v", tt.flags), func(t *testing.T) {
			assert.Equal(t, tt.want, p.TraceColor(tt.flags))
		})
	}
}

func TestRender_DrawsTraceAndAxis(t *testing.T) {
	r := NewRenderer(DefaultPalette, 2)
	c := newFakeCanvas(1200, 600)

	drawn, err := r.Render(c, etSample(domain.WaveformFlags{HasGPSFix: true}), 0.3, 1200, 600)
	require.NoError(t, err)
	assert.True(t, drawn)

	assert.Equal(t, 1, c.clears)
	require.Len(t, c.strokes, 1)
	assert.Equal(t, []Point{{0, 300}, {4, 150}, {8, 450}, {12, 300}}, c.strokes[0])
	assert.Equal(t, DefaultPalette.Normal, c.strokeColors[0])
	assert.Equal(t, TraceWidth, c.strokeWidths[0])
	assert.Equal(t, []string{"move", "line", "line", "line", "stroke"}, c.ops[:5])
	assert.Equal(t, []string{"0ms", "150ms", "300ms", "1"}, c.texts)
}

func TestRender_ColourFollowsFlags(t *testing.T) {
	r := NewRenderer(DefaultPalette, 2)

	c := newFakeCanvas(100, 50)
	_, err := r.Render(c, etSample(domain.WaveformFlags{HasGPSFix: false}), 0.3, 100, 50)
	require.NoError(t, err)
	assert.Equal(t, DefaultPalette.Warning, c.strokeColors[0])

	_, err = r.Render(c, etSample(domain.WaveformFlags{HasGPSFix: true, IsClipping: true}), 0.3, 100, 50)
	require.NoError(t, err)
	assert.Equal(t, DefaultPalette.Alert, c.strokeColors[0])
}

func TestRender_NilSampleClears(t *testing.T) {
	r := NewRenderer(DefaultPalette, 2)
	c := newFakeCanvas(100, 50)

	_, err := r.Render(c, etSample(domain.WaveformFlags{HasGPSFix: true}), 0.3, 100, 50)
	require.NoError(t, err)
	require.NotEmpty(t, c.ops)

	drawn, err := r.Render(c, nil, 0.3, 100, 50)
	require.NoError(t, err)
	assert.False(t, drawn)
	assert.Equal(t, 2, c.clears)
	assert.Empty(t, c.ops)
	assert.Empty(t, c.strokes)
}

func TestRender_ClearError(t *testing.T) {
	r := NewRenderer(DefaultPalette, 2)
	c := newFakeCanvas(0, 0)
	c.clearErr = ErrNoBacking

	drawn, err := r.Render(c, etSample(domain.WaveformFlags{}), 0.3, 0, 0)
	assert.ErrorIs(t, err, ErrNoBacking)
	assert.False(t, drawn)
}

func TestRenderPlaceholder(t *testing.T) {
	r := NewRenderer(DefaultPalette, 2)
	c := newFakeCanvas(400, 200)

	require.NoError(t, r.RenderPlaceholder(c, NoDataText, 400, 200))
	assert.Equal(t, []string{NoDataText}, c.texts)
	assert.Empty(t, c.strokes)
}

func TestRender_EmptySamplesDrawsAxis(t *testing.T) {
	r := NewRenderer(DefaultPalette, 2)
	c := newFakeCanvas(1200, 600)
	sample := &domain.WaveformSample{SampleRate: 1000, Samples: []float64{}}

	drawn, err := r.Render(c, sample, 0.3, 1200, 600)
	require.NoError(t, err)
	assert.True(t, drawn)
	assert.Empty(t, c.strokes)
	assert.Equal(t, []string{"0ms", "150ms", "300ms", "1"}, c.texts)
}

func TestRender_SinglePointSkipsTrace(t *testing.T) {
	r := NewRenderer(DefaultPalette, 2)
	c := newFakeCanvas(100, 50)
	sample := &domain.WaveformSample{SampleRate: 1000, Samples: []float64{0.5}}

	drawn, err := r.Render(c, sample, 0.3, 100, 50)
	require.NoError(t, err)
	assert.True(t, drawn)
	assert.Empty(t, c.strokes)
	assert.NotEmpty(t, c.texts)
}
