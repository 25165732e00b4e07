package sequence

import (
	"context"
	"fmt"

	"github.com/garyjia/docflow/internal/application/port"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultKeyPrefix namespaces counter keys
const DefaultKeyPrefix = "docflow:seq:"

// RedisCounter implements port.SequenceCounter with INCR.
// Values are not returned on rollback, so a failed creation leaves a gap.
type RedisCounter struct {
	client    redis.UniversalClient
	keyPrefix string
	logger    *zap.Logger
}

// Option configures a RedisCounter
type Option func(*RedisCounter)

// WithKeyPrefix overrides DefaultKeyPrefix
func WithKeyPrefix(prefix string) Option {
	return func(c *RedisCounter) {
		if prefix != "" {
			c.keyPrefix = prefix
		}
	}
}

// NewRedisCounter creates a counter over an existing client
func NewRedisCounter(client redis.UniversalClient, logger *zap.Logger, opts ...Option) *RedisCounter {
	c := &RedisCounter{
		client:    client,
		keyPrefix: DefaultKeyPrefix,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the redis key backing scope
func (c *RedisCounter) Key(scope string) string {
	return c.keyPrefix + scope
}

// Next seeds the key with SETNX when it is missing, then increments it
func (c *RedisCounter) Next(ctx context.Context, scope string, seed port.SeedFunc) (int64, error) {
	key := c.Key(scope)

	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		c.logger.Error("Failed to check sequence key", zap.String("key", key), zap.Error(err))
		return 0, fmt.Errorf("failed to check sequence key: %w", err)
	}

	if exists == 0 {
		start := int64(0)
		if seed != nil {
			if start, err = seed(ctx); err != nil {
				return 0, fmt.Errorf("failed to seed sequence: %w", err)
			}
		}
		// A concurrent seeder may win; its value is the same scan result or newer.
		if err := c.client.SetNX(ctx, key, start, 0).Err(); err != nil {
			c.logger.Error("Failed to seed sequence key", zap.String("key", key), zap.Error(err))
			return 0, fmt.Errorf("failed to seed sequence key: %w", err)
		}
	}

	value, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		c.logger.Error("Failed to increment sequence key", zap.String("key", key), zap.Error(err))
		return 0, fmt.Errorf("failed to increment sequence key: %w", err)
	}
	return value, nil
}

// Close releases the client
func (c *RedisCounter) Close() error {
	return c.client.Close()
}

// Verify interface compliance
var _ port.SequenceCounter = (*RedisCounter)(nil)
