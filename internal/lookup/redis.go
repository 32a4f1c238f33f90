package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores lookup maps in Redis so several API instances share one
// view. Redis failures degrade to calling the fetcher.
type RedisCache struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
	logger    *slog.Logger
	observer  Observer
}

var _ Cache = (*RedisCache)(nil)

// NewRedisCache constructs a RedisCache. namespace prefixes every Redis key.
func NewRedisCache(client *redis.Client, namespace string, ttl time.Duration, logger *slog.Logger, observer Observer) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{client: client, namespace: namespace, ttl: ttl, logger: logger, observer: observer}
}

// GetOrFetch implements Cache.
func (c *RedisCache) GetOrFetch(ctx context.Context, key string, fetch Fetcher) (map[string]string, error) {
	fullKey := c.namespace + key
	payload, err := c.client.Get(ctx, fullKey).Bytes()
	switch {
	case err == nil:
		var data map[string]string
		if err := json.Unmarshal(payload, &data); err == nil {
			observe(c.observer, key, true)
			return data, nil
		}
		c.logger.Warn("lookup cache: discard undecodable entry", slog.String("key", fullKey))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("lookup cache: redis get", slog.String("key", fullKey), slog.Any("error", err))
	}
	observe(c.observer, key, false)

	data, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = map[string]string{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("lookup cache: encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, fullKey, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("lookup cache: redis set", slog.String("key", fullKey), slog.Any("error", err))
	}
	return data, nil
}

// Invalidate implements Cache by scanning for the prefix and deleting matches.
func (c *RedisCache) Invalidate(ctx context.Context, prefix string) error {
	iter := c.client.Scan(ctx, 0, c.namespace+prefix+keySep+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("lookup cache: scan %s: %w", prefix, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("lookup cache: delete %s: %w", prefix, err)
	}
	return nil
}
