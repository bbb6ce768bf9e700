package collector

import (
	"time"

	"github.com/marisusis/eclipse.marisusis.me/internal/config"
)

// Config holds the configuration for the upstream collector
type Config struct {
	InstanceID    string
	PollInterval  time.Duration
	PollTimeout   time.Duration
	StatsInterval time.Duration
	// StoreTimeout bounds a single cache write
	StoreTimeout time.Duration
}

// NewConfig derives the collector configuration from the application configuration
func NewConfig(app *config.Config) *Config {
	return &Config{
		InstanceID:    app.Collector.InstanceID,
		PollInterval:  app.Collector.PollInterval,
		PollTimeout:   app.Collector.PollTimeout,
		StatsInterval: app.Collector.StatsInterval,
		StoreTimeout:  2 * time.Second,
	}
}
