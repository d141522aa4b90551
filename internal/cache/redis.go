package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/jackwood1/woodfamily-ai/internal/metrics"
)

// Cache is a Redis-backed result cache for query responses. All methods
// degrade gracefully: a missing or unreachable Redis never fails a query,
// it only skips caching.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis and verifies the connection. Returns an error when
// Redis is unreachable so callers can decide to run without caching.
func New(ctx context.Context, addr, password string, db int, ttl time.Duration) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info().Str("addr", addr).Dur("ttl", ttl).Msg("Connected to query cache")
	return &Cache{client: client, ttl: ttl}, nil
}

// Get loads a cached value into dest. Returns false on a miss.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	if c == nil {
		return false
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.QueryCacheHitsTotal.WithLabelValues("miss").Inc()
		return false
	}
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Query cache read failed")
		metrics.QueryCacheHitsTotal.WithLabelValues("error").Inc()
		return false
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Query cache payload corrupt")
		metrics.QueryCacheHitsTotal.WithLabelValues("error").Inc()
		return false
	}
	metrics.QueryCacheHitsTotal.WithLabelValues("hit").Inc()
	return true
}

// Set stores a value under the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, value any) {
	if c == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Query cache marshal failed")
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Query cache write failed")
	}
}

// Invalidate drops every cached response whose key carries the prefix.
// Called after a refresh replaces a source's rows.
func (c *Cache) Invalidate(ctx context.Context, prefix string) {
	if c == nil {
		return
	}
	iter := c.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			log.Warn().Err(err).Str("key", iter.Val()).Msg("Query cache invalidation failed")
		}
	}
	if err := iter.Err(); err != nil {
		log.Warn().Err(err).Str("prefix", prefix).Msg("Query cache scan failed")
	}
}

// Close closes the Redis connection.
func (c *Cache) Close() {
	if c != nil && c.client != nil {
		c.client.Close()
	}
}
