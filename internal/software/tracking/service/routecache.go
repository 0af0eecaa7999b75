package service

import (
	"context"
	"sync"
	"time"

	"peertrack/internal/domain/geo"
	"peertrack/internal/domain/track"
	"peertrack/internal/general/logger"
)

// RouteMetricsCache keeps one (origin, destination) travel estimate roughly
// fresh for a single tracking session. Each refresh cycle cancels any
// still-in-flight previous request, so at most one request is outstanding.
// On failure a previously fetched result is re-emitted marked stale while
// its age is within the freshness window; past the window the estimate is
// withdrawn and the caller falls back to a straight-line guess.
type RouteMetricsCache struct {
	fetcher     RouteFetcher
	staleWindow time.Duration
	logger      *logger.Logger
	now         func() time.Time

	mu     sync.Mutex
	last   *track.RouteMetrics // last successful fetch, never mutated in place
	cancel context.CancelFunc  // cancels the in-flight request, if any
}

func NewRouteMetricsCache(fetcher RouteFetcher, staleWindow time.Duration, logger *logger.Logger) *RouteMetricsCache {
	if staleWindow <= 0 {
		staleWindow = 60 * time.Second
	}
	return &RouteMetricsCache{
		fetcher:     fetcher,
		staleWindow: staleWindow,
		logger:      logger,
		now:         time.Now,
	}
}

// Refresh starts one fetch cycle and returns immediately. emit is called
// with the fresh result, a stale copy, or nil when the cache has nothing
// usable; it is not called at all when the request was cancelled by a newer
// cycle or by Stop.
func (c *RouteMetricsCache) Refresh(ctx context.Context, origin, dest geo.Coordinate, emit func(*track.RouteMetrics)) {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	fctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	go func() {
		defer cancel()

		m, err := c.fetcher.FetchRoute(fctx, origin, dest)
		if err != nil {
			if fctx.Err() != nil {
				// cancelled: not an error, and no stale fallback either
				return
			}

			c.mu.Lock()
			fallback, ok := c.staleFallbackLocked(c.now())
			c.mu.Unlock()

			c.logger.Error(fctx, "route_fetch_failed", "Routing service request failed", err,
				map[string]any{"stale_fallback": ok})

			if ok {
				emit(fallback)
			} else {
				emit(nil)
			}
			return
		}

		c.mu.Lock()
		c.last = m
		c.mu.Unlock()
		emit(m)
	}()
}

// staleFallbackLocked returns a stale-marked copy of the last success while
// it is still inside the freshness window. A stale record is only ever
// derived from a real previous fetch.
func (c *RouteMetricsCache) staleFallbackLocked(now time.Time) (*track.RouteMetrics, bool) {
	if c.last == nil || c.last.Age(now) > c.staleWindow {
		return nil, false
	}
	cp := *c.last
	cp.IsStale = true
	return &cp, true
}

// Stop aborts any in-flight request. Part of session teardown.
func (c *RouteMetricsCache) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
