package dashboard

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marisusis/eclipse.marisusis.me/internal/domain"
	"github.com/marisusis/eclipse.marisusis.me/internal/feed"
	"github.com/marisusis/eclipse.marisusis.me/internal/zoom"
)

// fakeFetcher serves a settable aggregate payload
type fakeFetcher struct {
	mu       sync.Mutex
	resp     *domain.AggregateResponse
	err      error
	aggCalls int
	sampleFn func(ctx context.Context, endpoint string) (*domain.WaveformSample, error)
}

func (f *fakeFetcher) set(resp *domain.AggregateResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resp, f.err = resp, err
}

func (f *fakeFetcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.aggCalls
}

func (f *fakeFetcher) FetchAggregate(ctx context.Context) (*domain.AggregateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aggCalls++
	if f.err != nil {
		return nil, f.err
	}
	if f.resp == nil {
		return &domain.AggregateResponse{}, nil
	}
	return f.resp, nil
}

func (f *fakeFetcher) FetchSample(ctx context.Context, endpoint string) (*domain.WaveformSample, error) {
	f.mu.Lock()
	fn := f.sampleFn
	f.mu.Unlock()
	if fn == nil {
		return nil, errors.New("no sample")
	}
	return fn(ctx, endpoint)
}

func testConfig() Config {
	return Config{
		PollInterval:  10 * time.Millisecond,
		PollTimeout:   20 * time.Millisecond,
		PixelRatio:    2,
		InitialWindow: zoom.DefaultWindow,
	}
}

func wave(fix, clip bool) *domain.WaveformSample {
	return &domain.WaveformSample{
		SampleRate: 1000,
		Samples:    []float64{0, 0.5, -0.5, 0},
		Flags:      domain.WaveformFlags{HasGPSFix: fix, IsClipping: clip},
	}
}

func aggregate(entries ...domain.NodeEntry) *domain.AggregateResponse {
	return &domain.AggregateResponse{Data: entries}
}

func startDashboard(t *testing.T, d *Dashboard) {
	t.Helper()
	require.NoError(t, d.Start(context.Background()))
	t.Cleanup(d.Stop)
}

func waitStatus(t *testing.T, d *Dashboard, id string, want domain.Status) *Panel {
	t.Helper()
	var panel *Panel
	require.Eventually(t, func() bool {
		p, err := d.Panel(id)
		if err != nil {
			return false
		}
		panel = p
		return p.Status() == want
	}, 2*time.Second, 5*time.Millisecond)
	return panel
}

func TestDashboard_OnlineScenario(t *testing.T) {
	fetcher := &fakeFetcher{}
	fetcher.set(aggregate(domain.NodeEntry{NodeID: "ET1002", Location: "Lab", Data: wave(true, false)}), nil)

	d := New(testConfig(), fetcher, []domain.NodeDescriptor{{NodeID: "ET1002"}}, nil, nil)
	startDashboard(t, d)

	p := waitStatus(t, d, "ET1002", domain.StatusOnline)
	view := p.View()
	assert.Equal(t, "ONLINE", view.Status.Label())
	assert.Equal(t, "Lab", view.Location)
	assert.True(t, view.HasData)
	assert.Equal(t, 4, view.SampleCount)
	assert.Equal(t, SourceAggregate, view.Source)

	img, err := p.RenderPNG(300, 150)
	require.NoError(t, err)
	decoded, err := png.Decode(bytes.NewReader(img))
	require.NoError(t, err)
	assert.Equal(t, 600, decoded.Bounds().Dx())
	assert.Equal(t, 300, decoded.Bounds().Dy())

	snap := d.Snapshot()
	require.NotNil(t, snap)
	assert.Contains(t, snap.Entries, "ET1002")
}

func TestDashboard_NullDataIsOffline(t *testing.T) {
	fetcher := &fakeFetcher{}
	fetcher.set(aggregate(domain.NodeEntry{NodeID: "ET1002", Data: wave(true, false)}), nil)

	d := New(testConfig(), fetcher, nil, nil, nil)
	startDashboard(t, d)
	waitStatus(t, d, "ET1002", domain.StatusOnline)

	fetcher.set(aggregate(domain.NodeEntry{NodeID: "ET1002", Data: nil}), nil)
	p := waitStatus(t, d, "ET1002", domain.StatusOffline)

	assert.Nil(t, p.Sample())
	assert.Equal(t, "OFFLINE", p.Status().Label())
	assert.Equal(t, domain.DefaultLocation, p.Location())

	img, err := p.RenderPNG(100, 50)
	require.NoError(t, err)
	assert.NotEmpty(t, img, "no-data panels still render the placeholder")
}

func TestDashboard_ServerReportedOffline(t *testing.T) {
	fetcher := &fakeFetcher{}
	fetcher.set(aggregate(domain.NodeEntry{NodeID: "ET1002", Status: domain.NodeStatusTimeout, Data: wave(true, false)}), nil)

	d := New(testConfig(), fetcher, []domain.NodeDescriptor{{NodeID: "ET1002"}}, nil, nil)
	startDashboard(t, d)

	require.Eventually(t, func() bool { return d.Snapshot() != nil }, time.Second, 5*time.Millisecond)
	p, err := d.Panel("ET1002")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOffline, p.Status())
}

func TestDashboard_FlagsDriveStatus(t *testing.T) {
	fetcher := &fakeFetcher{}
	fetcher.set(aggregate(
		domain.NodeEntry{NodeID: "NOFIX", Data: wave(false, false)},
		domain.NodeEntry{NodeID: "CLIP", Data: wave(true, true)},
	), nil)

	d := New(testConfig(), fetcher, nil, nil, nil)
	startDashboard(t, d)

	noFix := waitStatus(t, d, "NOFIX", domain.StatusNoFix)
	assert.Equal(t, "NO-FIX", noFix.View().Status.Label())
	assert.Equal(t, d.renderer.Palette().Warning, d.renderer.Palette().TraceColor(noFix.Sample().Flags))

	clip := waitStatus(t, d, "CLIP", domain.StatusOnline)
	assert.Equal(t, d.renderer.Palette().Alert, d.renderer.Palette().TraceColor(clip.Sample().Flags))
}

func TestDashboard_FailureKeepsSnapshot(t *testing.T) {
	fetcher := &fakeFetcher{}
	fetcher.set(aggregate(domain.NodeEntry{NodeID: "ET1002", Data: wave(true, false)}), nil)

	d := New(testConfig(), fetcher, nil, nil, nil)
	startDashboard(t, d)
	waitStatus(t, d, "ET1002", domain.StatusOnline)
	before := d.Snapshot()

	fetcher.set(nil, feed.ErrDecode)
	start := fetcher.calls()
	require.Eventually(t, func() bool { return fetcher.calls() >= start+3 }, time.Second, 5*time.Millisecond)

	assert.Same(t, before, d.Snapshot())
	p, err := d.Panel("ET1002")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOnline, p.Status())
}

func TestDashboard_MissingFromPayloadIsAbsent(t *testing.T) {
	fetcher := &fakeFetcher{}
	fetcher.set(aggregate(domain.NodeEntry{NodeID: "ET1002", Data: wave(true, false)}), nil)

	d := New(testConfig(), fetcher, []domain.NodeDescriptor{{NodeID: "ET1002"}}, nil, nil)
	startDashboard(t, d)
	waitStatus(t, d, "ET1002", domain.StatusOnline)

	fetcher.set(aggregate(), nil)
	waitStatus(t, d, "ET1002", domain.StatusOffline)
}

func TestDashboard_DiscoversNodes(t *testing.T) {
	fetcher := &fakeFetcher{}
	fetcher.set(aggregate(
		domain.NodeEntry{NodeID: "ET1003", Data: wave(true, false)},
	), nil)

	d := New(testConfig(), fetcher, []domain.NodeDescriptor{{NodeID: "et1002", Location: "Roof"}}, nil, nil)
	events := d.Subscribe()
	startDashboard(t, d)

	waitStatus(t, d, "ET1003", domain.StatusOnline)

	panels := d.Panels()
	require.Len(t, panels, 2)
	assert.Equal(t, "ET1002", panels[0].NodeID(), "configured panels keep their order")
	assert.Equal(t, "ET1003", panels[1].NodeID())
	assert.Equal(t, "Roof", panels[0].Location())

	seen := map[EventType]bool{}
	timeout := time.After(time.Second)
	for !(seen[EventPanelAdded] && seen[EventSnapshot]) {
		select {
		case ev := <-events:
			seen[ev.Type] = true
		case <-timeout:
			t.Fatalf("missing events, saw %v", seen)
		}
	}
}

func TestDashboard_ConfiguredLocationWins(t *testing.T) {
	fetcher := &fakeFetcher{}
	fetcher.set(aggregate(domain.NodeEntry{NodeID: "ET1002", Location: "Reported", Data: wave(true, false)}), nil)

	d := New(testConfig(), fetcher, []domain.NodeDescriptor{{NodeID: "ET1002", Location: "Configured"}}, nil, nil)
	startDashboard(t, d)

	p := waitStatus(t, d, "ET1002", domain.StatusOnline)
	assert.Equal(t, "Configured", p.Location())
}

func TestDashboard_EndpointPanelTimeout(t *testing.T) {
	fetcher := &fakeFetcher{}
	var mu sync.Mutex
	slow := false
	fetcher.sampleFn = func(ctx context.Context, endpoint string) (*domain.WaveformSample, error) {
		assert.Equal(t, "/api/data/et1002", endpoint)
		mu.Lock()
		s := slow
		mu.Unlock()
		if s {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return wave(true, false), nil
	}

	d := New(testConfig(), fetcher, []domain.NodeDescriptor{{NodeID: "ET1002", Endpoint: "/api/data/et1002"}}, nil, nil)
	startDashboard(t, d)

	p := waitStatus(t, d, "ET1002", domain.StatusOnline)
	assert.Equal(t, SourceEndpoint, p.Source())

	// responses slower than the timeout are aborted and the panel goes offline
	mu.Lock()
	slow = true
	mu.Unlock()
	waitStatus(t, d, "ET1002", domain.StatusOffline)
}

func TestDashboard_EndpointPanelIgnoresAggregate(t *testing.T) {
	fetcher := &fakeFetcher{}
	fetcher.set(aggregate(domain.NodeEntry{NodeID: "ET1002", Data: wave(false, false)}), nil)
	fetcher.sampleFn = func(ctx context.Context, endpoint string) (*domain.WaveformSample, error) {
		return wave(true, false), nil
	}

	d := New(testConfig(), fetcher, []domain.NodeDescriptor{{NodeID: "ET1002", Endpoint: "/api/data/et1002"}}, nil, nil)
	startDashboard(t, d)

	require.Eventually(t, func() bool { return fetcher.calls() >= 3 }, time.Second, 5*time.Millisecond)
	p, err := d.Panel("ET1002")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOnline, p.Status())
}

func TestDashboard_Wheel(t *testing.T) {
	d := New(testConfig(), &fakeFetcher{}, []domain.NodeDescriptor{{NodeID: "A"}, {NodeID: "B"}}, nil, nil)

	window, changed, err := d.Wheel("a", -100)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.InDelta(t, 0.2, window, 1e-9)

	b, err := d.Panel("B")
	require.NoError(t, err)
	assert.Equal(t, zoom.DefaultWindow, b.Window(), "wheel input is exclusive to its panel")

	_, _, err = d.Wheel("a", 10000)
	require.NoError(t, err)
	window, changed, err = d.Wheel("a", 10000)
	require.NoError(t, err)
	assert.False(t, changed, "saturated wheel is a no-op")
	assert.Equal(t, zoom.MaxWindow, window)

	_, _, err = d.Wheel("missing", 1)
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)
}

func TestPanel_RenderCache(t *testing.T) {
	d := New(testConfig(), &fakeFetcher{}, []domain.NodeDescriptor{{NodeID: "A"}}, nil, nil)
	p, err := d.Panel("A")
	require.NoError(t, err)
	p.setSample(wave(true, false), "")

	first, err := p.RenderPNG(100, 50)
	require.NoError(t, err)
	second, err := p.RenderPNG(100, 50)
	require.NoError(t, err)
	assert.Same(t, &first[0], &second[0], "unchanged panel serves the cached image")

	p.OnWheel(-50)
	third, err := p.RenderPNG(100, 50)
	require.NoError(t, err)
	assert.NotSame(t, &first[0], &third[0], "zoom change re-renders")

	fourth, err := p.RenderPNG(120, 50)
	require.NoError(t, err)
	assert.NotSame(t, &third[0], &fourth[0], "resize re-renders")

	p.setSample(nil, "")
	fifth, err := p.RenderPNG(120, 50)
	require.NoError(t, err)
	assert.NotSame(t, &fourth[0], &fifth[0], "new sample re-renders")
}

func TestPanel_RenderZeroSize(t *testing.T) {
	d := New(testConfig(), &fakeFetcher{}, []domain.NodeDescriptor{{NodeID: "A"}}, nil, nil)
	p, err := d.Panel("A")
	require.NoError(t, err)

	_, err = p.RenderPNG(0, 0)
	assert.Error(t, err)
}

func TestDashboard_NoCommitAfterStop(t *testing.T) {
	fetcher := &fakeFetcher{}
	fetcher.set(aggregate(domain.NodeEntry{NodeID: "ET1002", Data: wave(true, false)}), nil)

	d := New(testConfig(), fetcher, nil, nil, nil)
	require.NoError(t, d.Start(context.Background()))
	waitStatus(t, d, "ET1002", domain.StatusOnline)

	d.Stop()
	version := d.Version()
	fetcher.set(aggregate(), nil)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, version, d.Version())
	p, err := d.Panel("ET1002")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOnline, p.Status())
}

func TestDashboard_StartTwice(t *testing.T) {
	d := New(testConfig(), &fakeFetcher{}, nil, nil, nil)
	startDashboard(t, d)

	assert.ErrorIs(t, d.Start(context.Background()), ErrAlreadyStarted)
}

func TestDashboard_DuplicateDescriptors(t *testing.T) {
	d := New(testConfig(), &fakeFetcher{}, []domain.NodeDescriptor{{NodeID: "ET1"}, {NodeID: "et1"}, {NodeID: " "}}, nil, nil)
	assert.Len(t, d.Panels(), 1)
}

func TestHub(t *testing.T) {
	h := NewHub()
	a := h.Subscribe()
	b := h.Subscribe()
	assert.Equal(t, 2, h.Subscribers())

	h.Broadcast(Event{Type: EventZoom, NodeID: "A", Version: 1})
	assert.Equal(t, Event{Type: EventZoom, NodeID: "A", Version: 1}, <-a)
	assert.Equal(t, Event{Type: EventZoom, NodeID: "A", Version: 1}, <-b)

	h.Unsubscribe(a)
	_, ok := <-a
	assert.False(t, ok)
	h.Unsubscribe(a)

	for i := 0; i < subscriberBuffer+5; i++ {
		h.Broadcast(Event{Type: EventSnapshot, Version: uint64(i)})
	}
	assert.Equal(t, uint64(5), h.Dropped(), "slow subscribers never block the publisher")

	h.CloseAll()
	assert.Equal(t, 0, h.Subscribers())
}

func TestDashboard_InvalidEntryKeepsSiblings(t *testing.T) {
	var mu sync.Mutex
	body := `{"data":[{"node_id":"ET1","data":{"sample_rate":1000,"data":[0,0.5,-0.5,0],"flags":{"has_gps_fix":true}}}]}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	client, err := feed.NewClient(feed.Config{BaseURL: server.URL}, nil)
	require.NoError(t, err)

	cfg := testConfig()
	cfg.PollTimeout = time.Second
	d := New(cfg, client, nil, nil, nil)
	startDashboard(t, d)
	waitStatus(t, d, "ET1", domain.StatusOnline)

	mu.Lock()
	body = `{"data":[{"node_id":"ET1","data":null},{"node_id":"ET2","data":{"sample_rate":0,"data":[]}}]}`
	mu.Unlock()

	p := waitStatus(t, d, "ET1", domain.StatusOffline)
	assert.False(t, p.View().HasData)

	p2 := waitStatus(t, d, "ET2", domain.StatusOffline)
	assert.False(t, p2.View().HasData)

	snap := d.Snapshot()
	require.NotNil(t, snap)
	assert.Contains(t, snap.Entries, "ET1")
	assert.Contains(t, snap.Entries, "ET2")
}
