package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"peertrack/internal/domain/geo"
	"peertrack/internal/domain/track"
	"peertrack/internal/general/config"
	"peertrack/internal/general/logger"

	"github.com/redis/go-redis/v9"
)

// Connect builds a Redis client, or returns nil when no address is
// configured (the route cache is optional).
func Connect(cfg *config.Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
	})
}

// Fetcher is the upstream the cache sits in front of.
type Fetcher interface {
	FetchRoute(ctx context.Context, origin, dest geo.Coordinate) (*track.RouteMetrics, error)
}

// RouteCache is a short-TTL read-through cache for routed estimates, so
// colocated sessions asking for the same pair within one refresh cycle hit
// the router once. Redis being unreachable falls through to the upstream.
type RouteCache struct {
	rdb    *redis.Client
	inner  Fetcher
	ttl    time.Duration
	logger *logger.Logger
}

func NewRouteCache(rdb *redis.Client, inner Fetcher, ttl time.Duration, logger *logger.Logger) *RouteCache {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RouteCache{rdb: rdb, inner: inner, ttl: ttl, logger: logger}
}

// FetchRoute serves from Redis when a fresh entry exists, otherwise asks the
// upstream and stores the result. Cached records keep their original
// FetchedAt so age-based staleness still counts from the real fetch.
func (c *RouteCache) FetchRoute(ctx context.Context, origin, dest geo.Coordinate) (*track.RouteMetrics, error) {
	if c.rdb == nil {
		return c.inner.FetchRoute(ctx, origin, dest)
	}

	key := routeKey(origin, dest)

	if raw, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var m track.RouteMetrics
		if err := json.Unmarshal(raw, &m); err == nil {
			return &m, nil
		}
		// undecodable entry: drop it and refetch
		_ = c.rdb.Del(ctx, key).Err()
	} else if err != redis.Nil && ctx.Err() == nil {
		c.logger.Debug(ctx, "route_cache_read_failed", "Redis read failed, falling through", map[string]any{
			"error": err.Error(),
		})
	}

	m, err := c.inner.FetchRoute(ctx, origin, dest)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(m); err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil && ctx.Err() == nil {
			c.logger.Debug(ctx, "route_cache_write_failed", "Redis write failed", map[string]any{
				"error": err.Error(),
			})
		}
	}

	return m, nil
}

// routeKey rounds coordinates to ~11 m so tiny jitter still hits the cache.
func routeKey(origin, dest geo.Coordinate) string {
	return fmt.Sprintf("route:%.4f,%.4f:%.4f,%.4f",
		origin.Latitude, origin.Longitude, dest.Latitude, dest.Longitude)
}
