package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"peertrack/internal/domain/geo"
	"peertrack/internal/domain/track"
	"peertrack/internal/general/contracts"
	"peertrack/internal/general/logger"
)

func testLogger() *logger.Logger { return logger.New("test") }

// fakeStore implements LiveStore in memory with optional fault injection.
type fakeStore struct {
	mu      sync.Mutex
	recs    []track.LiveLocationRecord
	rows    map[string]*track.LiveLocationRecord
	deleted []string
	err     error
	getGate chan struct{} // when set, Get blocks until closed
}

func (f *fakeStore) Upsert(ctx context.Context, rec track.LiveLocationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.recs = append(f.recs, rec)
	return nil
}

func (f *fakeStore) Get(ctx context.Context, partyID string) (*track.LiveLocationRecord, error) {
	f.mu.Lock()
	gate := f.getGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rows == nil {
		return nil, nil
	}
	return f.rows[partyID], nil
}

func (f *fakeStore) Delete(ctx context.Context, partyID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, partyID)
	return nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.recs)
}

func (f *fakeStore) last() track.LiveLocationRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recs[len(f.recs)-1]
}

// fakeFeed implements Feed and lets tests emit change events by hand.
type fakeFeed struct {
	mu    sync.Mutex
	fns   map[string]func(*track.LiveLocationRecord)
	subs  int
	stops int
	err   error
}

func (f *fakeFeed) Subscribe(ctx context.Context, partyID string, fn func(*track.LiveLocationRecord)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.fns == nil {
		f.fns = make(map[string]func(*track.LiveLocationRecord))
	}
	f.fns[partyID] = fn
	f.subs++
	return func() {
		f.mu.Lock()
		f.stops++
		f.mu.Unlock()
	}, nil
}

func (f *fakeFeed) emit(partyID string, rec *track.LiveLocationRecord) {
	f.mu.Lock()
	fn := f.fns[partyID]
	f.mu.Unlock()
	if fn != nil {
		fn(rec)
	}
}

func (f *fakeFeed) subCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs
}

func (f *fakeFeed) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

// fakeFetcher implements RouteFetcher with scripted results.
type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	m     *track.RouteMetrics
	err   error
	block chan struct{} // when set, FetchRoute blocks until closed or ctx done
}

func (f *fakeFetcher) FetchRoute(ctx context.Context, origin, dest geo.Coordinate) (*track.RouteMetrics, error) {
	f.mu.Lock()
	f.calls++
	block, m, err := f.block, f.m, f.err
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	cp := *m
	return &cp, nil
}

type fakeNotifier struct {
	events chan contracts.NearEvent
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{events: make(chan contracts.NearEvent, 4)}
}

func (n *fakeNotifier) NotifyNear(ctx context.Context, ev contracts.NearEvent) error {
	n.events <- ev
	return nil
}

type fakePusher struct {
	states chan contracts.WSTrackingState
}

func newFakePusher() *fakePusher {
	return &fakePusher{states: make(chan contracts.WSTrackingState, 64)}
}

func (p *fakePusher) PushState(partyID string, st contracts.WSTrackingState) error {
	select {
	case p.states <- st:
	default:
	}
	return nil
}

func waitErr(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for flush")
		return nil
	}
}

func waitState(t *testing.T, p *fakePusher, pred func(contracts.WSTrackingState) bool) contracts.WSTrackingState {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case st := <-p.states:
			if pred(st) {
				return st
			}
		case <-deadline:
			t.Fatalf("timed out waiting for matching state")
		}
	}
}
