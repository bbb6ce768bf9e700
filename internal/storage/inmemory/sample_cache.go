package inmemory

import (
	"context"
	"sync"

	"github.com/marisusis/eclipse.marisusis.me/internal/domain"
)

// SampleCache is an in-memory implementation of storage.SampleCache
// using a map with mutex protection.
type SampleCache struct {
	mu   sync.RWMutex
	data map[string]*domain.NodeReading // key: normalized node id
}

// NewSampleCache creates a new in-memory sample cache
func NewSampleCache() *SampleCache {
	return &SampleCache{
		data: make(map[string]*domain.NodeReading),
	}
}

// Store replaces the node's reading.
// Thread-safe for concurrent writes
func (c *SampleCache) Store(_ context.Context, reading *domain.NodeReading) error {
	if reading == nil {
		return domain.ErrInvalidInput
	}
	id := domain.NormalizeNodeID(reading.NodeID)
	if id == "" {
		return domain.ErrInvalidInput
	}

	stored := *reading
	stored.NodeID = id

	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[id] = &stored
	return nil
}

// Get retrieves a node's reading.
// Thread-safe for concurrent reads
func (c *SampleCache) Get(_ context.Context, nodeID string) (*domain.NodeReading, error) {
	id := domain.NormalizeNodeID(nodeID)
	if id == "" {
		return nil, domain.ErrInvalidInput
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	reading, exists := c.data[id]
	if !exists {
		return nil, domain.ErrNodeNotFound
	}
	out := *reading
	return &out, nil
}

// GetMany returns the readings that exist among ids
func (c *SampleCache) GetMany(_ context.Context, ids []string) (map[string]*domain.NodeReading, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]*domain.NodeReading, len(ids))
	for _, raw := range ids {
		id := domain.NormalizeNodeID(raw)
		if reading, ok := c.data[id]; ok {
			out := *reading
			result[id] = &out
		}
	}
	return result, nil
}

// Count returns the number of nodes with a stored reading
func (c *SampleCache) Count() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return int64(len(c.data))
}

// Clear removes all readings.
// Useful for testing
func (c *SampleCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = make(map[string]*domain.NodeReading)
}

// Close implements storage.SampleCache
func (c *SampleCache) Close() error {
	return nil
}
