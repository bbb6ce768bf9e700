package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marisusis/eclipse.marisusis.me/internal/domain"
	"github.com/marisusis/eclipse.marisusis.me/internal/feed"
	"github.com/marisusis/eclipse.marisusis.me/internal/metrics"
	"github.com/marisusis/eclipse.marisusis.me/internal/poller"
	"github.com/marisusis/eclipse.marisusis.me/internal/render"
	"github.com/marisusis/eclipse.marisusis.me/internal/zoom"
)

const aggregateLoopName = "aggregate"

var ErrAlreadyStarted = errors.New("dashboard already started")

// Fetcher retrieves waveform data from the live-data server
type Fetcher interface {
	FetchAggregate(ctx context.Context) (*domain.AggregateResponse, error)
	FetchSample(ctx context.Context, endpoint string) (*domain.WaveformSample, error)
}

// Config holds dashboard polling and rendering configuration
type Config struct {
	PollInterval  time.Duration
	PollTimeout   time.Duration
	PixelRatio    float64
	InitialWindow float64
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 1500 * time.Millisecond
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = 500 * time.Millisecond
	}
	if !(c.PixelRatio > 0) {
		c.PixelRatio = 1
	}
	if c.InitialWindow == 0 {
		c.InitialWindow = zoom.DefaultWindow
	}
	return c
}

// Snapshot is the last successfully decoded aggregate payload
type Snapshot struct {
	Version   uint64
	Entries   map[string]domain.NodeEntry
	FetchedAt time.Time
}

// Dashboard keeps every panel's latest sample up to date and renders panels on demand.
type Dashboard struct {
	config   Config
	fetcher  Fetcher
	metrics  *metrics.Metrics
	renderer *render.Renderer
	logger   *slog.Logger
	hub      *Hub

	snapshot atomic.Pointer[Snapshot]
	version  atomic.Uint64

	mu     sync.RWMutex
	panels map[string]*Panel
	order  []string

	aggregate *poller.Loop[*domain.AggregateResponse]
	started   atomic.Bool
}

// New creates a dashboard with one panel per descriptor. A descriptor with an
// endpoint polls that endpoint; the rest are fed from the aggregate endpoint.
func New(config Config, fetcher Fetcher, descriptors []domain.NodeDescriptor, m *metrics.Metrics, logger *slog.Logger) *Dashboard {
	if logger == nil {
		logger = slog.Default()
	}
	config = config.withDefaults()

	d := &Dashboard{
		config:   config,
		fetcher:  fetcher,
		metrics:  m,
		renderer: render.NewRenderer(render.DefaultPalette, config.PixelRatio),
		logger:   logger.With("component", "dashboard"),
		hub:      NewHub(),
		panels:   make(map[string]*Panel),
	}

	for _, desc := range descriptors {
		desc.NodeID = domain.NormalizeNodeID(desc.NodeID)
		if desc.NodeID == "" {
			continue
		}
		if _, dup := d.panels[desc.NodeID]; dup {
			d.logger.Warn("Ignoring duplicate panel", "node_id", desc.NodeID)
			continue
		}
		p := newPanel(d, desc)
		if desc.Endpoint != "" {
			p.loop = d.newEndpointLoop(p)
		}
		d.panels[desc.NodeID] = p
		d.order = append(d.order, desc.NodeID)
	}

	d.aggregate = poller.New[*domain.AggregateResponse](
		d.loopConfig(aggregateLoopName),
		fetcher.FetchAggregate,
		aggregateSink{d},
		poller.WithLogger(d.logger),
		poller.WithObserver(m),
		poller.WithClassifier(feed.Classify),
	)

	return d
}

func (d *Dashboard) loopConfig(name string) poller.Config {
	return poller.Config{
		Name:      name,
		Interval:  d.config.PollInterval,
		Timeout:   d.config.PollTimeout,
		Immediate: true,
	}
}

func (d *Dashboard) newEndpointLoop(p *Panel) *poller.Loop[*domain.WaveformSample] {
	endpoint := p.desc.Endpoint
	return poller.New[*domain.WaveformSample](
		d.loopConfig("panel:"+p.desc.NodeID),
		func(ctx context.Context) (*domain.WaveformSample, error) {
			return d.fetcher.FetchSample(ctx, endpoint)
		},
		endpointSink{panel: p},
		poller.WithLogger(d.logger),
		poller.WithObserver(d.metrics),
		poller.WithClassifier(feed.Classify),
	)
}

// Start mounts the dashboard: the aggregate loop and every per-node loop begin polling.
func (d *Dashboard) Start(ctx context.Context) error {
	if d.started.Swap(true) {
		return ErrAlreadyStarted
	}

	d.logger.Info("Starting dashboard",
		"panels", len(d.order),
		"poll_interval", d.config.PollInterval,
		"poll_timeout", d.config.PollTimeout,
		"pixel_ratio", d.config.PixelRatio,
	)

	if err := d.aggregate.Start(ctx); err != nil {
		d.started.Store(false)
		return fmt.Errorf("failed to start aggregate loop: %w", err)
	}

	for _, p := range d.Panels() {
		if p.loop == nil {
			continue
		}
		if err := p.loop.Start(ctx); err != nil {
			d.Stop()
			return fmt.Errorf("failed to start loop for %s: %w", p.desc.NodeID, err)
		}
	}
	return nil
}

// Stop unmounts the dashboard. No state changes after Stop returns.
func (d *Dashboard) Stop() {
	d.aggregate.Stop()
	for _, p := range d.Panels() {
		if p.loop != nil {
			p.loop.Stop()
		}
	}
	d.hub.CloseAll()
	d.started.Store(false)
	d.logger.Info("Dashboard stopped", "version", d.version.Load())
}

// Run starts the dashboard and blocks until ctx is cancelled.
func (d *Dashboard) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	d.Stop()
	return nil
}

// Panels returns the panels in display order
func (d *Dashboard) Panels() []*Panel {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]*Panel, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.panels[id])
	}
	return out
}

// Panel looks up a panel by node id, case-insensitively
func (d *Dashboard) Panel(nodeID string) (*Panel, error) {
	id := domain.NormalizeNodeID(nodeID)

	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.panels[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, id)
	}
	return p, nil
}

// Snapshot returns the last committed aggregate payload, nil before the first success
func (d *Dashboard) Snapshot() *Snapshot {
	return d.snapshot.Load()
}

// Version increases on every committed change
func (d *Dashboard) Version() uint64 {
	return d.version.Load()
}

// Subscribe registers an update stream listener
func (d *Dashboard) Subscribe() chan Event {
	return d.hub.Subscribe()
}

// Unsubscribe removes an update stream listener
func (d *Dashboard) Unsubscribe(ch chan Event) {
	d.hub.Unsubscribe(ch)
}

// Wheel routes a wheel gesture to one panel
func (d *Dashboard) Wheel(nodeID string, deltaY float64) (float64, bool, error) {
	p, err := d.Panel(nodeID)
	if err != nil {
		return 0, false, err
	}
	changed := p.OnWheel(deltaY)
	return p.Window(), changed, nil
}

// panelFor returns the panel for id, creating an aggregate-fed one for a newly seen node
func (d *Dashboard) panelFor(id string) (*Panel, bool) {
	d.mu.RLock()
	p, ok := d.panels[id]
	d.mu.RUnlock()
	if ok {
		return p, false
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.panels[id]; ok {
		return p, false
	}
	p = newPanel(d, domain.NodeDescriptor{NodeID: id})
	d.panels[id] = p
	d.order = append(d.order, id)
	return p, true
}

func (d *Dashboard) publish(t EventType, nodeID string) {
	d.broadcast(t, nodeID, d.version.Add(1))
}

func (d *Dashboard) broadcast(t EventType, nodeID string, version uint64) {
	d.hub.Broadcast(Event{Type: t, NodeID: nodeID, Version: version})
}

func (d *Dashboard) afterCommit(t EventType, nodeID string) {
	d.publish(t, nodeID)
	d.updateReachable()
}

func (d *Dashboard) updateReachable() {
	reachable := 0
	for _, p := range d.Panels() {
		if p.Sample() != nil {
			reachable++
		}
	}
	d.metrics.SetNodesReachable(reachable)
}

func (d *Dashboard) logFailure(source string, err error) {
	if errors.Is(err, feed.ErrDecode) {
		d.logger.Warn("Malformed response", "source", source, "error", err)
		return
	}
	d.logger.Debug("Poll failed", "source", source, "outcome", feed.Classify(err), "error", err)
}

// aggregateSink commits aggregate poll outcomes
type aggregateSink struct {
	d *Dashboard
}

// OnSuccess replaces the snapshot and fans entries out to aggregate-fed panels.
// Aggregate-fed panels missing from the payload become absent.
func (s aggregateSink) OnSuccess(resp *domain.AggregateResponse) {
	d := s.d

	entries := make(map[string]domain.NodeEntry, len(resp.Data))
	for _, entry := range resp.Data {
		entries[entry.NodeID] = entry
		if _, created := d.panelFor(entry.NodeID); created {
			d.logger.Info("Discovered node", "node_id", entry.NodeID, "location", entry.Location)
			d.publish(EventPanelAdded, entry.NodeID)
		}
	}

	for _, p := range d.Panels() {
		if p.loop != nil {
			continue
		}
		entry, ok := entries[p.desc.NodeID]
		if !ok {
			p.setSample(nil, "")
			continue
		}
		p.setSample(entry.LiveSample(), entry.Location)
	}

	v := d.version.Add(1)
	d.snapshot.Store(&Snapshot{
		Version:   v,
		Entries:   entries,
		FetchedAt: time.Now(),
	})
	d.broadcast(EventSnapshot, "", v)
	d.updateReachable()
}

// OnFailure keeps the previous snapshot
func (s aggregateSink) OnFailure(err error) {
	s.d.logFailure(aggregateLoopName, err)
}
