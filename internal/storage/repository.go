package storage

import (
	"context"

	"github.com/marisusis/eclipse.marisusis.me/internal/domain"
)

// SampleCache holds the latest reading of each node. Only the most recent
// value is kept; storing a reading replaces the previous one wholesale.
type SampleCache interface {
	// Store replaces the node's reading
	Store(ctx context.Context, reading *domain.NodeReading) error

	// Get returns the node's reading or domain.ErrNodeNotFound
	Get(ctx context.Context, nodeID string) (*domain.NodeReading, error)

	// GetMany returns the readings that exist among ids, keyed by node id
	GetMany(ctx context.Context, ids []string) (map[string]*domain.NodeReading, error)

	// Close releases the cache's resources
	Close() error
}
