package config

import (
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration shared by both binaries
type Config struct {
	Server    ServerConfig
	Feed      FeedConfig
	Dashboard DashboardConfig
	Collector CollectorConfig
	Cache     CacheConfig

	LogLevel  string
	NodesFile string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// FeedConfig points the dashboard at a live-data server
type FeedConfig struct {
	BaseURL       string
	AggregatePath string
}

// DashboardConfig holds panel polling and rendering configuration
type DashboardConfig struct {
	PollInterval  time.Duration
	PollTimeout   time.Duration
	PixelRatio    float64
	PanelWidth    int
	PanelHeight   int
	InitialWindow float64
}

// CollectorConfig holds upstream polling configuration for the live-data server
type CollectorConfig struct {
	InstanceID    string
	PollInterval  time.Duration
	PollTimeout   time.Duration
	StatsInterval time.Duration
}

// CacheConfig selects the latest-sample cache backend
type CacheConfig struct {
	Type     string
	RedisURL string
	TTL      time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", DefaultServerHost),
			Port:            getEnvAsInt("SERVER_PORT", DefaultServerPort),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", DefaultReadTimeout),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", DefaultWriteTimeout),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", DefaultIdleTimeout),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", DefaultShutdownTimeout),
		},
		Feed: FeedConfig{
			BaseURL:       getEnv("FEED_BASE_URL", DefaultFeedBaseURL),
			AggregatePath: getEnv("FEED_AGGREGATE_PATH", DefaultAggregatePath),
		},
		Dashboard: DashboardConfig{
			PollInterval:  getEnvAsDuration("DASHBOARD_POLL_INTERVAL", DefaultDashboardPollInterval),
			PollTimeout:   getEnvAsDuration("DASHBOARD_POLL_TIMEOUT", DefaultDashboardPollTimeout),
			PixelRatio:    getEnvAsFloat("PIXEL_RATIO", DefaultPixelRatio),
			PanelWidth:    getEnvAsInt("PANEL_WIDTH", DefaultPanelWidth),
			PanelHeight:   getEnvAsInt("PANEL_HEIGHT", DefaultPanelHeight),
			InitialWindow: getEnvAsFloat("ZOOM_INITIAL_WINDOW", DefaultZoomWindow),
		},
		Collector: CollectorConfig{
			InstanceID:    getEnv("INSTANCE_ID", DefaultCollectorInstanceID),
			PollInterval:  getEnvAsDuration("COLLECTOR_POLL_INTERVAL", DefaultCollectorPollInterval),
			PollTimeout:   getEnvAsDuration("COLLECTOR_POLL_TIMEOUT", DefaultCollectorPollTimeout),
			StatsInterval: getEnvAsDuration("COLLECTOR_STATS_INTERVAL", DefaultStatsInterval),
		},
		Cache: CacheConfig{
			Type:     getEnv("CACHE_TYPE", DefaultCacheType),
			RedisURL: getEnv("REDIS_URL", DefaultRedisURL),
			TTL:      getEnvAsDuration("CACHE_TTL", DefaultCacheTTL),
		},
		LogLevel:  getEnv("LOG_LEVEL", DefaultLogLevel),
		NodesFile: getEnv("NODES_FILE", DefaultNodesFile),
	}

	return config, nil
}

// BindFlags registers command-line overrides for the most common settings.
// Flags default to the values already loaded from the environment.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Server.Host, "host", c.Server.Host, "Listen host")
	fs.IntVar(&c.Server.Port, "port", c.Server.Port, "Listen port")
	fs.StringVar(&c.NodesFile, "nodes", c.NodesFile, "Path to the YAML node list")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&c.Feed.BaseURL, "feed-url", c.Feed.BaseURL, "Base URL of the live-data server")
	fs.DurationVar(&c.Dashboard.PollInterval, "poll-interval", c.Dashboard.PollInterval, "Dashboard poll interval")
	fs.DurationVar(&c.Dashboard.PollTimeout, "poll-timeout", c.Dashboard.PollTimeout, "Dashboard request timeout")
	fs.Float64Var(&c.Dashboard.PixelRatio, "pixel-ratio", c.Dashboard.PixelRatio, "Device pixel ratio of rendered panels")
	fs.StringVar(&c.Cache.Type, "cache", c.Cache.Type, "Sample cache backend (inmemory, redis)")
	fs.StringVar(&c.Cache.RedisURL, "redis-url", c.Cache.RedisURL, "Redis URL for the redis cache")
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as int or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat gets an environment variable as float64 or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as bool or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration gets an environment variable as duration or returns a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Dashboard.PollInterval <= 0 {
		return fmt.Errorf("invalid dashboard poll interval: %v", c.Dashboard.PollInterval)
	}

	if c.Dashboard.PollTimeout <= 0 {
		return fmt.Errorf("invalid dashboard poll timeout: %v", c.Dashboard.PollTimeout)
	}

	if !(c.Dashboard.PixelRatio > 0) || math.IsInf(c.Dashboard.PixelRatio, 0) {
		return fmt.Errorf("invalid pixel ratio: %v", c.Dashboard.PixelRatio)
	}

	if c.Dashboard.PanelWidth <= 0 || c.Dashboard.PanelHeight <= 0 {
		return fmt.Errorf("invalid panel size: %dx%d", c.Dashboard.PanelWidth, c.Dashboard.PanelHeight)
	}

	if c.Collector.PollInterval <= 0 {
		return fmt.Errorf("invalid collector poll interval: %v", c.Collector.PollInterval)
	}

	if c.Collector.PollTimeout <= 0 {
		return fmt.Errorf("invalid collector poll timeout: %v", c.Collector.PollTimeout)
	}

	switch c.Cache.Type {
	case CacheTypeInMemory:
	case CacheTypeRedis:
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("redis cache requires a redis URL")
		}
	default:
		return fmt.Errorf("unknown cache type: %q", c.Cache.Type)
	}

	if c.Cache.TTL < 0 {
		return fmt.Errorf("invalid cache ttl: %v", c.Cache.TTL)
	}

	return nil
}

// SlogLevel maps LogLevel to a slog level; unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
