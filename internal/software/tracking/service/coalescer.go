package service

import (
	"context"
	"sync"
	"time"

	"peertrack/internal/domain/geo"
	"peertrack/internal/domain/track"
	"peertrack/internal/general/logger"
)

// CoalescerConfig tunes the broadcast gates.
type CoalescerConfig struct {
	MinDisplacementMeters float64       // samples closer than this to the last broadcast are dropped
	SlowSpeedMPS          float64       // below this speed the cooldown applies
	SlowCooldown          time.Duration // minimum gap between accepted slow samples
	Debounce              time.Duration // quiet period before the pending value is flushed
	FlushTimeout          time.Duration // bound on the store write
}

// DefaultCoalescerConfig returns the tuned production gates.
func DefaultCoalescerConfig() CoalescerConfig {
	return CoalescerConfig{
		MinDisplacementMeters: 12,
		SlowSpeedMPS:          1,
		SlowCooldown:          15 * time.Second,
		Debounce:              1500 * time.Millisecond,
		FlushTimeout:          5 * time.Second,
	}
}

// pendingBroadcast is a queue-of-one: the latest unflushed sample plus the
// callers awaiting that flush. A party has at most one at a time.
type pendingBroadcast struct {
	latest  geo.Coordinate
	timer   *time.Timer
	waiters []chan error
}

// Coalescer converts a high-frequency stream of self-position samples into
// a low-frequency stream of store writes. Per party: last-value-wins, at
// most one in-flight write, no automatic retry on failure (the next
// accepted sample schedules a fresh write).
type Coalescer struct {
	store  BroadcastStore
	logger *logger.Logger
	cfg    CoalescerConfig
	now    func() time.Time

	mu       sync.Mutex
	pending  map[string]*pendingBroadcast
	lastSent map[string]geo.Coordinate
	lastSlow map[string]time.Time
}

func NewCoalescer(store BroadcastStore, cfg CoalescerConfig, logger *logger.Logger) *Coalescer {
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = 5 * time.Second
	}
	return &Coalescer{
		store:    store,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
		pending:  make(map[string]*pendingBroadcast),
		lastSent: make(map[string]geo.Coordinate),
		lastSlow: make(map[string]time.Time),
	}
}

// Report accepts every sample but only schedules a write. The returned
// channel resolves when the sample's flush completes; a dropped sample
// resolves immediately with nil. The boolean reports acceptance.
func (c *Coalescer) Report(partyID string, sample geo.Coordinate) (<-chan error, bool) {
	if err := sample.Validate(); err != nil {
		return resolved(err), false
	}

	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	// displacement gate: the very first sample always proceeds
	if last, ok := c.lastSent[partyID]; ok {
		if geo.DistanceMeters(&last, &sample) < c.cfg.MinDisplacementMeters {
			return resolved(nil), false
		}
	}

	// slow-speed cooldown: suppress jitter near zero speed
	if sample.SpeedKnown() && *sample.Speed < c.cfg.SlowSpeedMPS {
		if at, ok := c.lastSlow[partyID]; ok && now.Sub(at) < c.cfg.SlowCooldown {
			return resolved(nil), false
		}
		c.lastSlow[partyID] = now
	}

	done := make(chan error, 1)

	if p, ok := c.pending[partyID]; ok {
		// merge into the single pending entry: last value wins
		p.latest = sample
		p.waiters = append(p.waiters, done)
		return done, true
	}

	p := &pendingBroadcast{latest: sample, waiters: []chan error{done}}
	c.pending[partyID] = p
	p.timer = time.AfterFunc(c.cfg.Debounce, func() { c.flush(partyID) })
	return done, true
}

// flush writes the party's latest pending value once and resolves every
// waiter. The pending entry is destroyed whether the write succeeds or not.
func (c *Coalescer) flush(partyID string) {
	c.mu.Lock()
	p, ok := c.pending[partyID]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.pending, partyID)
	latest, waiters := p.latest, p.waiters
	c.mu.Unlock()

	rec, err := track.NewLiveLocationRecord(partyID, latest)
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.FlushTimeout)
		err = c.store.Upsert(ctx, rec)
		cancel()
	}

	if err != nil {
		c.logger.Error(context.Background(), "broadcast_flush_failed",
			"Failed to write live location", err, map[string]any{"party_id": partyID})
	} else {
		c.mu.Lock()
		c.lastSent[partyID] = latest
		c.mu.Unlock()
	}

	for _, w := range waiters {
		w <- err
		close(w)
	}
}

// Drop cancels any pending broadcast for the party and forgets its gate
// state. Called on session teardown so no timer outlives the session.
func (c *Coalescer) Drop(partyID string) {
	c.mu.Lock()
	p, ok := c.pending[partyID]
	delete(c.pending, partyID)
	delete(c.lastSent, partyID)
	delete(c.lastSlow, partyID)
	c.mu.Unlock()

	if !ok {
		return
	}
	p.timer.Stop()
	for _, w := range p.waiters {
		w <- track.ErrSessionClosed
		close(w)
	}
}

func resolved(err error) <-chan error {
	ch := make(chan error, 1)
	if err != nil {
		ch <- err
	}
	close(ch)
	return ch
}
