package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marisusis/eclipse.marisusis.me/internal/domain"
)

var (
	ErrCacheClosed     = errors.New("redis cache is closed")
	ErrRedisConnection = errors.New("redis connection failed")
)

// DefaultKeyPrefix namespaces reading keys
const DefaultKeyPrefix = "eclipse:reading:"

// Config configuration for the Redis sample cache
type Config struct {
	RedisURL  string
	KeyPrefix string
	// TTL expires readings of a collector that stopped writing; 0 keeps them forever
	TTL      time.Duration
	PoolSize int
}

// SampleCache implements storage.SampleCache on Redis.
// Each node's reading is one JSON string under <prefix><node_id>.
type SampleCache struct {
	client *redis.Client
	logger *slog.Logger
	prefix string
	ttl    time.Duration

	// Statistics
	totalStored atomic.Int64
	totalErrors atomic.Int64

	closed atomic.Bool
}

// NewSampleCache connects to Redis and verifies the connection
func NewSampleCache(config Config, logger *slog.Logger) (*SampleCache, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultKeyPrefix
	}

	if config.PoolSize == 0 {
		config.PoolSize = 10
	}

	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opts.PoolSize = config.PoolSize

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrRedisConnection, err)
	}

	logger.Info("Redis sample cache initialized",
		"redis_url", config.RedisURL,
		"key_prefix", config.KeyPrefix,
		"ttl", config.TTL,
	)

	return newWithClient(client, config, logger), nil
}

func newWithClient(client *redis.Client, config Config, logger *slog.Logger) *SampleCache {
	return &SampleCache{
		client: client,
		logger: logger.With("component", "redis_sample_cache"),
		prefix: config.KeyPrefix,
		ttl:    config.TTL,
	}
}

func (c *SampleCache) key(id string) string {
	return c.prefix + id
}

// Store replaces the node's reading
func (c *SampleCache) Store(ctx context.Context, reading *domain.NodeReading) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	if reading == nil {
		return domain.ErrInvalidInput
	}
	id := domain.NormalizeNodeID(reading.NodeID)
	if id == "" {
		return domain.ErrInvalidInput
	}

	stored := *reading
	stored.NodeID = id
	payload, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}

	if err := c.client.Set(ctx, c.key(id), payload, c.ttl).Err(); err != nil {
		c.totalErrors.Add(1)
		return fmt.Errorf("%w: set %s: %v", domain.ErrCacheError, id, err)
	}

	c.totalStored.Add(1)
	return nil
}

// Get returns the node's reading or domain.ErrNodeNotFound
func (c *SampleCache) Get(ctx context.Context, nodeID string) (*domain.NodeReading, error) {
	if c.closed.Load() {
		return nil, ErrCacheClosed
	}
	id := domain.NormalizeNodeID(nodeID)
	if id == "" {
		return nil, domain.ErrInvalidInput
	}

	payload, err := c.client.Get(ctx, c.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNodeNotFound
	}
	if err != nil {
		c.totalErrors.Add(1)
		return nil, fmt.Errorf("%w: get %s: %v", domain.ErrCacheError, id, err)
	}

	return decodeReading(payload)
}

// GetMany fetches all ids in one MGET round trip
func (c *SampleCache) GetMany(ctx context.Context, ids []string) (map[string]*domain.NodeReading, error) {
	if c.closed.Load() {
		return nil, ErrCacheClosed
	}

	result := make(map[string]*domain.NodeReading, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	keys := make([]string, len(ids))
	for i, raw := range ids {
		keys[i] = c.key(domain.NormalizeNodeID(raw))
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.totalErrors.Add(1)
		return nil, fmt.Errorf("%w: mget: %v", domain.ErrCacheError, err)
	}

	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue // missing or expired
		}
		reading, err := decodeReading([]byte(s))
		if err != nil {
			c.logger.Warn("Skipping undecodable reading", "error", err)
			continue
		}
		result[reading.NodeID] = reading
	}
	return result, nil
}

func decodeReading(payload []byte) (*domain.NodeReading, error) {
	var reading domain.NodeReading
	if err := json.Unmarshal(payload, &reading); err != nil {
		return nil, fmt.Errorf("%w: decode reading: %v", domain.ErrCacheError, err)
	}
	return &reading, nil
}

// Stats returns the number of stores and failed commands
func (c *SampleCache) Stats() (stored, errs int64) {
	return c.totalStored.Load(), c.totalErrors.Load()
}

// Close closes the Redis client
func (c *SampleCache) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	if err := c.client.Close(); err != nil {
		c.logger.Error("Failed to close Redis client", "error", err)
		return err
	}

	c.logger.Info("Redis sample cache closed")
	return nil
}
