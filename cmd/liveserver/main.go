package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/marisusis/eclipse.marisusis.me/internal/api"
	"github.com/marisusis/eclipse.marisusis.me/internal/collector"
	"github.com/marisusis/eclipse.marisusis.me/internal/config"
	"github.com/marisusis/eclipse.marisusis.me/internal/feed"
	"github.com/marisusis/eclipse.marisusis.me/internal/metrics"
	"github.com/marisusis/eclipse.marisusis.me/internal/storage"
	"github.com/marisusis/eclipse.marisusis.me/internal/storage/inmemory"
	"github.com/marisusis/eclipse.marisusis.me/internal/storage/rediscache"
)

func main() {
	// Load configuration from environment, then flags
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg.BindFlags(flag.CommandLine)
	flag.Parse()

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("Starting live-data server",
		slog.String("service", "liveserver"),
		slog.String("instance_id", cfg.Collector.InstanceID),
		slog.String("nodes_file", cfg.NodesFile),
	)

	nodes, err := config.LoadNodes(cfg.NodesFile)
	if err == nil {
		err = config.RequireDataEndpoints(nodes)
	}
	if err != nil {
		logger.Error("Failed to load node list", "error", err)
		os.Exit(1)
	}

	cache, err := newCache(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize sample cache", "type", cfg.Cache.Type, "error", err)
		os.Exit(1)
	}
	defer cache.Close()

	// Upstream sensor nodes are addressed by absolute URL, so the base only matters for relative ones
	client, err := feed.NewClient(feed.Config{BaseURL: cfg.Feed.BaseURL}, logger)
	if err != nil {
		logger.Error("Failed to create feed client", "error", err)
		os.Exit(1)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	liveCollector := collector.NewCollector(collector.NewConfig(cfg), nodes, client, cache, m, logger)
	router := api.NewLiveDataRouter(cache, nodes, m, logger)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := liveCollector.Start(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", srv.Addr), slog.Int("nodes", len(nodes)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down live-data server...")

		// Give outstanding requests time to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Live-data server stopped with error", "error", err)
		os.Exit(1)
	}

	stats := liveCollector.Stats()
	logger.Info("Shutdown complete",
		"polls_succeeded", stats.PollsSucceeded,
		"polls_failed", stats.PollsFailed,
		"polls_timed_out", stats.PollsTimedOut,
		"readings_stored", stats.ReadingsStored,
		"store_errors", stats.StoreErrors,
	)
}

func newCache(cfg *config.Config, logger *slog.Logger) (storage.SampleCache, error) {
	switch cfg.Cache.Type {
	case config.CacheTypeRedis:
		logger.Info("Using Redis sample cache", "redis_url", cfg.Cache.RedisURL, "ttl", cfg.Cache.TTL)
		cache, err := rediscache.NewSampleCache(rediscache.Config{
			RedisURL: cfg.Cache.RedisURL,
			TTL:      cfg.Cache.TTL,
		}, logger)
		if err != nil {
			return nil, err
		}
		return cache, nil
	default:
		logger.Info("Using in-memory sample cache")
		return inmemory.NewSampleCache(), nil
	}
}
