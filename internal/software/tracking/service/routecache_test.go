package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"peertrack/internal/domain/geo"
	"peertrack/internal/domain/track"
)

var (
	testOrigin = geo.Coordinate{Latitude: 14.6000, Longitude: 121.0000}
	testDest   = geo.Coordinate{Latitude: 14.6091, Longitude: 120.9783}
)

func waitMetrics(t *testing.T, ch <-chan *track.RouteMetrics) *track.RouteMetrics {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for route metrics")
		return nil
	}
}

func assertNoEmit(t *testing.T, ch <-chan *track.RouteMetrics) {
	t.Helper()
	select {
	case m := <-ch:
		t.Fatalf("unexpected emit: %+v", m)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRouteCacheEmitsFreshResult(t *testing.T) {
	fetched := &track.RouteMetrics{DurationSeconds: 240, DistanceMeters: 1800, FetchedAt: time.Now()}
	fetcher := &fakeFetcher{m: fetched}
	cache := NewRouteMetricsCache(fetcher, time.Minute, testLogger())
	defer cache.Stop()

	got := make(chan *track.RouteMetrics, 4)
	cache.Refresh(context.Background(), testOrigin, testDest, func(m *track.RouteMetrics) { got <- m })

	m := waitMetrics(t, got)
	if m == nil || m.IsStale || m.DurationSeconds != 240 {
		t.Fatalf("expected fresh metrics, got %+v", m)
	}
}

func TestRouteCacheStaleFallbackWithinWindow(t *testing.T) {
	base := time.Now()
	fetched := &track.RouteMetrics{DurationSeconds: 240, DistanceMeters: 1800, FetchedAt: base}
	fetcher := &fakeFetcher{m: fetched}
	cache := NewRouteMetricsCache(fetcher, time.Minute, testLogger())
	defer cache.Stop()

	got := make(chan *track.RouteMetrics, 4)
	emit := func(m *track.RouteMetrics) { got <- m }

	cache.Refresh(context.Background(), testOrigin, testDest, emit)
	if m := waitMetrics(t, got); m.IsStale {
		t.Fatalf("first result must be fresh")
	}

	// next cycle fails 30 s later, still inside the 60 s window
	fetcher.mu.Lock()
	fetcher.err = errors.New("router down")
	fetcher.mu.Unlock()
	cache.now = func() time.Time { return base.Add(30 * time.Second) }

	cache.Refresh(context.Background(), testOrigin, testDest, emit)
	m := waitMetrics(t, got)
	if m == nil || !m.IsStale {
		t.Fatalf("expected stale fallback, got %+v", m)
	}
	if m.DurationSeconds != 240 || m.DistanceMeters != 1800 || !m.FetchedAt.Equal(base) {
		t.Fatalf("stale copy must keep the original values, got %+v", m)
	}

	// the cached original must not have been mutated
	cache.mu.Lock()
	orig := cache.last
	cache.mu.Unlock()
	if orig.IsStale {
		t.Fatalf("cached result was mutated in place")
	}
}

func TestRouteCacheWithdrawsPastWindow(t *testing.T) {
	base := time.Now()
	fetcher := &fakeFetcher{m: &track.RouteMetrics{DurationSeconds: 240, FetchedAt: base}}
	cache := NewRouteMetricsCache(fetcher, time.Minute, testLogger())
	defer cache.Stop()

	got := make(chan *track.RouteMetrics, 4)
	emit := func(m *track.RouteMetrics) { got <- m }

	cache.Refresh(context.Background(), testOrigin, testDest, emit)
	waitMetrics(t, got)

	fetcher.mu.Lock()
	fetcher.err = errors.New("router down")
	fetcher.mu.Unlock()
	cache.now = func() time.Time { return base.Add(2 * time.Minute) }

	cache.Refresh(context.Background(), testOrigin, testDest, emit)
	if m := waitMetrics(t, got); m != nil {
		t.Fatalf("estimate past the window must be withdrawn, got %+v", m)
	}
}

func TestRouteCacheFailureWithNoPriorEmitsNil(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("router down")}
	cache := NewRouteMetricsCache(fetcher, time.Minute, testLogger())
	defer cache.Stop()

	got := make(chan *track.RouteMetrics, 4)
	cache.Refresh(context.Background(), testOrigin, testDest, func(m *track.RouteMetrics) { got <- m })

	if m := waitMetrics(t, got); m != nil {
		t.Fatalf("expected nil without any prior fetch, got %+v", m)
	}
}

func TestRouteCacheCancelledCycleEmitsNothing(t *testing.T) {
	fetcher := &fakeFetcher{block: make(chan struct{})}
	cache := NewRouteMetricsCache(fetcher, time.Minute, testLogger())

	got := make(chan *track.RouteMetrics, 4)
	cache.Refresh(context.Background(), testOrigin, testDest, func(m *track.RouteMetrics) { got <- m })

	cache.Stop()
	assertNoEmit(t, got)
}

func TestRouteCacheNewCycleCancelsPrevious(t *testing.T) {
	block := make(chan struct{})
	fetcher := &fakeFetcher{block: block, m: &track.RouteMetrics{DurationSeconds: 240, FetchedAt: time.Now()}}
	cache := NewRouteMetricsCache(fetcher, time.Minute, testLogger())
	defer cache.Stop()

	got := make(chan *track.RouteMetrics, 4)
	emit := func(m *track.RouteMetrics) { got <- m }

	cache.Refresh(context.Background(), testOrigin, testDest, emit)

	// the second cycle cancels the first, which exits through its context
	fetcher.mu.Lock()
	fetcher.block = nil
	fetcher.mu.Unlock()
	cache.Refresh(context.Background(), testOrigin, testDest, emit)

	m := waitMetrics(t, got)
	if m == nil || m.DurationSeconds != 240 {
		t.Fatalf("expected the second cycle's result, got %+v", m)
	}
	assertNoEmit(t, got)
}
