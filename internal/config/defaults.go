package config

import "time"

// Default configuration values for all services
const (
	// HTTP server defaults
	DefaultServerHost      = "0.0.0.0"
	DefaultServerPort      = 8080
	DefaultDashboardPort   = 8081
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 10 * time.Second

	// Dashboard defaults
	DefaultFeedBaseURL           = "http://localhost:8080"
	DefaultAggregatePath         = "/api/data/all"
	DefaultDashboardPollInterval = 1500 * time.Millisecond
	DefaultDashboardPollTimeout  = 500 * time.Millisecond
	DefaultPixelRatio            = 2.0
	DefaultPanelWidth            = 600
	DefaultPanelHeight           = 300
	DefaultZoomWindow            = 0.3

	// Collector defaults
	DefaultCollectorInstanceID   = "liveserver-1"
	DefaultCollectorPollInterval = 1 * time.Second
	DefaultCollectorPollTimeout  = 10 * time.Second
	DefaultStatsInterval         = 10 * time.Second

	// Cache defaults
	CacheTypeInMemory = "inmemory"
	CacheTypeRedis    = "redis"
	DefaultCacheType  = CacheTypeInMemory
	DefaultRedisURL   = "redis://localhost:6379/0"
	DefaultCacheTTL   = 30 * time.Second

	DefaultLogLevel  = "info"
	DefaultNodesFile = "nodes.yaml"
)
