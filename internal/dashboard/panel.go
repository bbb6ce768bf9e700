package dashboard

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/marisusis/eclipse.marisusis.me/internal/domain"
	"github.com/marisusis/eclipse.marisusis.me/internal/poller"
	"github.com/marisusis/eclipse.marisusis.me/internal/render"
	"github.com/marisusis/eclipse.marisusis.me/internal/zoom"
)

// Render outcomes reported to metrics
const (
	renderDrawn  = "drawn"
	renderNoData = "no_data"
	renderCached = "cached"
	renderError  = "error"
)

// Source says where a panel's samples come from
type Source string

const (
	SourceAggregate Source = "aggregate"
	SourceEndpoint  Source = "endpoint"
)

// PanelView is a point-in-time copy of a panel's visible state
type PanelView struct {
	NodeID        string
	Location      string
	Status        domain.Status
	WindowSeconds float64
	HasData       bool
	Flags         domain.WaveformFlags
	SampleRate    float64
	SampleCount   int
	LastUpdate    int64
	Version       uint64
	UpdatedAt     time.Time
	Source        Source
}

type renderKey struct {
	version uint64
	width   int
	height  int
	window  float64
}

// Panel is one node's tile: its latest sample, zoom window and rendered graph.
type Panel struct {
	desc     domain.NodeDescriptor
	zoom     *zoom.Controller
	renderer *render.Renderer
	dash     *Dashboard

	// loop is set only for panels polling their own endpoint
	loop *poller.Loop[*domain.WaveformSample]

	mu        sync.Mutex
	sample    *domain.WaveformSample
	reported  string
	version   uint64
	updatedAt time.Time

	surface   *render.Surface
	cachedKey renderKey
	cached    []byte
}

func newPanel(d *Dashboard, desc domain.NodeDescriptor) *Panel {
	return &Panel{
		desc:     desc,
		zoom:     zoom.NewController(d.config.InitialWindow),
		renderer: d.renderer,
		dash:     d,
		surface:  render.NewSurface(d.config.PixelRatio, d.renderer.Palette().Background),
	}
}

// NodeID returns the panel's node id
func (p *Panel) NodeID() string { return p.desc.NodeID }

// Source reports whether the panel reads the aggregate feed or its own endpoint
func (p *Panel) Source() Source {
	if p.loop != nil {
		return SourceEndpoint
	}
	return SourceAggregate
}

// Sample returns the current sample, nil when absent
func (p *Panel) Sample() *domain.WaveformSample {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sample
}

// Status derives the connectivity indicator from the current sample
func (p *Panel) Status() domain.Status {
	return domain.StatusOf(p.Sample())
}

// Window returns the zoom window in seconds
func (p *Panel) Window() float64 {
	return p.zoom.Window()
}

// Location resolves the displayed location: configured, then reported, then the placeholder
func (p *Panel) Location() string {
	if strings.TrimSpace(p.desc.Location) != "" {
		return p.desc.Location
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if strings.TrimSpace(p.reported) != "" {
		return p.reported
	}
	return domain.DefaultLocation
}

// View returns a copy of the panel's visible state
func (p *Panel) View() PanelView {
	location := p.Location()
	window := p.zoom.Window()

	p.mu.Lock()
	defer p.mu.Unlock()

	v := PanelView{
		NodeID:        p.desc.NodeID,
		Location:      location,
		Status:        domain.StatusOf(p.sample),
		WindowSeconds: window,
		HasData:       p.sample != nil,
		Version:       p.version,
		UpdatedAt:     p.updatedAt,
		Source:        p.Source(),
	}
	if p.sample != nil {
		v.Flags = p.sample.Flags
		v.SampleRate = p.sample.SampleRate
		v.SampleCount = len(p.sample.Samples)
		v.LastUpdate = p.sample.LastUpdate()
	}
	return v
}

// OnWheel applies a wheel gesture to this panel only
func (p *Panel) OnWheel(deltaY float64) bool {
	changed := p.zoom.OnWheel(deltaY)
	if changed {
		p.dash.publish(EventZoom, p.desc.NodeID)
	}
	return changed
}

// setSample replaces the sample cell wholesale
func (p *Panel) setSample(sample *domain.WaveformSample, reported string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sample = sample
	p.reported = reported
	p.version++
	p.updatedAt = time.Now()
}

// RenderPNG draws the panel at the given CSS size and returns the PNG.
// The previous image is reused while sample, size and window are unchanged.
func (p *Panel) RenderPNG(cssWidth, cssHeight int) ([]byte, error) {
	window := p.zoom.Window()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.surface.Resize(cssWidth, cssHeight)
	width, height := p.surface.Size()

	key := renderKey{version: p.version, width: width, height: height, window: window}
	if p.cached != nil && key == p.cachedKey {
		p.dash.metrics.RecordRender(renderCached)
		return p.cached, nil
	}

	drawn, err := p.renderer.Render(p.surface, p.sample, window, float64(width), float64(height))
	if err == nil && !drawn {
		err = p.renderer.RenderPlaceholder(p.surface, render.NoDataText, float64(width), float64(height))
	}
	if err != nil {
		p.dash.metrics.RecordRender(renderError)
		return nil, fmt.Errorf("failed to render panel %s: %w", p.desc.NodeID, err)
	}

	img, err := p.surface.PNG()
	if err != nil {
		p.dash.metrics.RecordRender(renderError)
		return nil, fmt.Errorf("failed to encode panel %s: %w", p.desc.NodeID, err)
	}

	if drawn {
		p.dash.metrics.RecordRender(renderDrawn)
	} else {
		p.dash.metrics.RecordRender(renderNoData)
	}
	p.cached = img
	p.cachedKey = key
	return img, nil
}

// endpointSink commits per-node poll outcomes into the panel
type endpointSink struct {
	panel *Panel
}

func (s endpointSink) OnSuccess(sample *domain.WaveformSample) {
	s.panel.setSample(sample, "")
	s.panel.dash.afterCommit(EventSample, s.panel.desc.NodeID)
}

// OnFailure clears the sample: an unreachable node shows as offline
func (s endpointSink) OnFailure(err error) {
	s.panel.dash.logFailure(s.panel.desc.NodeID, err)
	s.panel.setSample(nil, "")
	s.panel.dash.afterCommit(EventSample, s.panel.desc.NodeID)
}
