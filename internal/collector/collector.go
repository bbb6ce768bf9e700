package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/marisusis/eclipse.marisusis.me/internal/domain"
	"github.com/marisusis/eclipse.marisusis.me/internal/feed"
	"github.com/marisusis/eclipse.marisusis.me/internal/poller"
	"github.com/marisusis/eclipse.marisusis.me/internal/storage"
)

var ErrNoNodes = errors.New("no nodes configured")

// Fetcher retrieves the latest reading from an upstream sensor node
type Fetcher interface {
	FetchReading(ctx context.Context, endpoint string) (*domain.WaveformSample, error)
}

// Collector polls every configured sensor node and keeps its latest reading in the cache
type Collector struct {
	config   *Config
	nodes    []domain.NodeConfig
	fetcher  Fetcher
	cache    storage.SampleCache
	observer poller.Observer
	logger   *slog.Logger

	loops []*poller.Loop[*domain.WaveformSample]

	// Statistics
	pollsSucceeded atomic.Int64
	pollsFailed    atomic.Int64
	pollsTimedOut  atomic.Int64
	readingsStored atomic.Int64
	storeErrors    atomic.Int64
}

// NewCollector creates a new collector. observer may be nil.
func NewCollector(
	config *Config,
	nodes []domain.NodeConfig,
	fetcher Fetcher,
	cache storage.SampleCache,
	observer poller.Observer,
	logger *slog.Logger,
) *Collector {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Collector{
		config:   config,
		nodes:    nodes,
		fetcher:  fetcher,
		cache:    cache,
		observer: observer,
		logger:   logger.With("component", "collector", "instance_id", config.InstanceID),
	}

	for _, node := range nodes {
		c.loops = append(c.loops, c.newLoop(node))
	}
	return c
}

func (c *Collector) newLoop(node domain.NodeConfig) *poller.Loop[*domain.WaveformSample] {
	endpoint := node.DataEndpoint
	fetch := func(ctx context.Context) (*domain.WaveformSample, error) {
		return c.fetcher.FetchReading(ctx, endpoint)
	}

	return poller.New[*domain.WaveformSample](
		poller.Config{
			Name:      "collector:" + node.NodeID,
			Interval:  c.config.PollInterval,
			Timeout:   c.config.PollTimeout,
			Immediate: true,
		},
		fetch,
		&nodeSink{collector: c, nodeID: node.NodeID},
		poller.WithLogger(c.logger),
		poller.WithObserver(c.observer),
		poller.WithClassifier(feed.Classify),
	)
}

// Start seeds every node as offline, then polls until ctx is cancelled
func (c *Collector) Start(ctx context.Context) error {
	if len(c.nodes) == 0 {
		return ErrNoNodes
	}

	c.logger.Info("Starting collector",
		"nodes", len(c.nodes),
		"poll_interval", c.config.PollInterval,
		"poll_timeout", c.config.PollTimeout,
	)

	for _, node := range c.nodes {
		c.store(domain.OfflineReading(node.NodeID))
	}

	for i, loop := range c.loops {
		if err := loop.Start(ctx); err != nil {
			c.stopLoops()
			return fmt.Errorf("failed to start loop for %s: %w", c.nodes[i].NodeID, err)
		}
	}

	// Start statistics reporter
	go c.reportStats(ctx)

	// Wait for context cancellation
	<-ctx.Done()
	c.stopLoops()

	c.logger.Info("Collector shutting down",
		"polls_succeeded", c.pollsSucceeded.Load(),
		"polls_failed", c.pollsFailed.Load(),
	)

	return ctx.Err()
}

func (c *Collector) stopLoops() {
	for _, loop := range c.loops {
		loop.Stop()
	}
}

// nodeSink turns poll outcomes of one node into cached readings
type nodeSink struct {
	collector *Collector
	nodeID    string
}

func (s *nodeSink) OnSuccess(sample *domain.WaveformSample) {
	c := s.collector
	c.pollsSucceeded.Add(1)

	c.store(&domain.NodeReading{
		NodeID:    s.nodeID,
		Sample:    sample,
		Status:    domain.NodeStatusOf(sample),
		UpdatedAt: time.Now().UTC(),
	})

	c.logger.Debug("Stored reading",
		"node_id", s.nodeID,
		"samples", len(sample.Samples),
		"has_gps_fix", sample.Flags.HasGPSFix,
	)
}

func (s *nodeSink) OnFailure(err error) {
	c := s.collector
	c.pollsFailed.Add(1)

	reading := domain.OfflineReading(s.nodeID)
	reading.UpdatedAt = time.Now().UTC()
	if errors.Is(err, context.DeadlineExceeded) {
		c.pollsTimedOut.Add(1)
		reading.Status = domain.NodeStatusTimeout
	}

	if errors.Is(err, feed.ErrDecode) {
		c.logger.Warn("Malformed reading", "node_id", s.nodeID, "error", err)
	} else {
		c.logger.Debug("Failed to fetch reading", "node_id", s.nodeID, "error", err)
	}

	c.store(reading)
}

func (c *Collector) store(reading *domain.NodeReading) {
	ctx, cancel := context.WithTimeout(context.Background(), c.storeTimeout())
	defer cancel()

	if err := c.cache.Store(ctx, reading); err != nil {
		c.storeErrors.Add(1)
		c.logger.Error("Failed to store reading",
			"node_id", reading.NodeID,
			"status", reading.Status,
			"error", err,
		)
		return
	}
	c.readingsStored.Add(1)
}

func (c *Collector) storeTimeout() time.Duration {
	if c.config.StoreTimeout > 0 {
		return c.config.StoreTimeout
	}
	return 2 * time.Second
}

// reportStats periodically logs statistics
func (c *Collector) reportStats(ctx context.Context) {
	interval := c.config.StatsInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var skipped int64
			for _, loop := range c.loops {
				skipped += loop.Stats().Skipped
			}
			c.logger.Info("Collector statistics",
				"polls_succeeded", c.pollsSucceeded.Load(),
				"polls_failed", c.pollsFailed.Load(),
				"polls_timed_out", c.pollsTimedOut.Load(),
				"readings_stored", c.readingsStored.Load(),
				"store_errors", c.storeErrors.Load(),
				"ticks_skipped", skipped,
			)
		}
	}
}

// Stats returns current collector statistics
func (c *Collector) Stats() CollectorStats {
	return CollectorStats{
		PollsSucceeded: c.pollsSucceeded.Load(),
		PollsFailed:    c.pollsFailed.Load(),
		PollsTimedOut:  c.pollsTimedOut.Load(),
		ReadingsStored: c.readingsStored.Load(),
		StoreErrors:    c.storeErrors.Load(),
	}
}

// CollectorStats holds collector statistics
type CollectorStats struct {
	PollsSucceeded int64
	PollsFailed    int64
	PollsTimedOut  int64
	ReadingsStored int64
	StoreErrors    int64
}

// Nodes returns the configured nodes in configuration order
func (c *Collector) Nodes() []domain.NodeConfig {
	return c.nodes
}
