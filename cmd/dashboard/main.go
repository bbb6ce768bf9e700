package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/marisusis/eclipse.marisusis.me/internal/api"
	"github.com/marisusis/eclipse.marisusis.me/internal/api/handlers"
	"github.com/marisusis/eclipse.marisusis.me/internal/config"
	"github.com/marisusis/eclipse.marisusis.me/internal/dashboard"
	"github.com/marisusis/eclipse.marisusis.me/internal/domain"
	"github.com/marisusis/eclipse.marisusis.me/internal/feed"
	"github.com/marisusis/eclipse.marisusis.me/internal/metrics"
)

func main() {
	// Load configuration from environment, then flags
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	// The live-data server owns the default port
	if os.Getenv("SERVER_PORT") == "" {
		cfg.Server.Port = config.DefaultDashboardPort
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

	logger.Info("Starting dashboard",
		slog.String("service", "dashboard"),
		slog.String("feed_url", cfg.Feed.BaseURL),
	)

	// Without a node list every panel is discovered from the aggregate feed
	var descriptors []domain.NodeDescriptor
	nodes, err := config.LoadNodes(cfg.NodesFile)
	switch {
	case err == nil:
		descriptors = config.Descriptors(nodes)
	case errors.Is(err, fs.ErrNotExist):
		logger.Info("No node list found, discovering nodes from the feed", "nodes_file", cfg.NodesFile)
	default:
		logger.Error("Failed to load node list", "error", err)
		os.Exit(1)
	}

	client, err := feed.NewClient(feed.Config{
		BaseURL:       cfg.Feed.BaseURL,
		AggregatePath: cfg.Feed.AggregatePath,
	}, logger)
	if err != nil {
		logger.Error("Failed to create feed client", "error", err)
		os.Exit(1)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	dash := dashboard.New(dashboard.Config{
		PollInterval:  cfg.Dashboard.PollInterval,
		PollTimeout:   cfg.Dashboard.PollTimeout,
		PixelRatio:    cfg.Dashboard.PixelRatio,
		InitialWindow: cfg.Dashboard.InitialWindow,
	}, client, descriptors, m, logger)

	router := api.NewDashboardRouter(dash, handlers.GraphSize{
		Width:  cfg.Dashboard.PanelWidth,
		Height: cfg.Dashboard.PanelHeight,
	}, m, logger)

	srv := &http.Server{
		Addr:        cfg.Server.Addr(),
		Handler:     router.Handler(),
		ReadTimeout: cfg.Server.ReadTimeout,
		// no WriteTimeout: the update stream keeps its connection open
		IdleTimeout: cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return dash.Run(gctx)
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", srv.Addr), slog.Int("panels", len(descriptors)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down dashboard...")

		// Give outstanding requests time to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Dashboard stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Dashboard stopped gracefully", "version", dash.Version())
}
