package service

import (
	"context"
	"math"
	"sync"
	"time"

	"peertrack/internal/domain/geo"
	"peertrack/internal/domain/track"
	"peertrack/internal/domain/user"
	"peertrack/internal/general/contracts"
	"peertrack/internal/general/logger"
)

// Session is the orchestrator for one tracking screen: it owns the peer
// subscription, the route refresh loop, the proximity latch, and the
// presentation pushed back to the viewer. All callbacks are guarded by the
// liveness flag so nothing mutates state after teardown.
type Session struct {
	id     string
	selfID string
	peerID string
	role   user.Role

	coalescer  *Coalescer
	subscriber *Subscriber
	routes     *RouteMetricsCache
	notifier   Notifier
	pusher     StatePusher
	logger     *logger.Logger
	cfg        TrackingConfig

	mu           sync.Mutex
	alive        bool
	paused       bool
	lastStatus   *contracts.WSDeviceStatus
	lastStatusAt time.Time
	selfCoord    *geo.Coordinate
	peerCoord    *geo.Coordinate
	peerOnline   bool
	metrics      *track.RouteMetrics
	near         *ProximityDetector

	cancel    context.CancelFunc
	unsubPeer func()
}

// start opens the peer subscription and the two timer loops. Called once by
// the service with the session already registered.
func (s *Session) start(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel

	unsub, err := s.subscriber.Subscribe(ctx, s.peerID, s.onPeerUpdate)
	if err != nil {
		cancel()
		return err
	}
	s.unsubPeer = unsub

	go s.refreshLoop(ctx)
	go s.statusLoop(ctx)
	return nil
}

// ReportSelf feeds one device position sample into the session. While the
// session is paused (permission or services missing) samples are dropped:
// no broadcast, no crash.
func (s *Session) ReportSelf(sample geo.Coordinate) error {
	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return track.ErrSessionClosed
	}
	if s.paused {
		s.mu.Unlock()
		return nil
	}
	c := sample
	s.selfCoord = &c
	state := s.recomputeLocked()
	s.mu.Unlock()

	s.coalescer.Report(s.selfID, sample)
	s.push(state)
	return nil
}

// ReportDeviceStatus updates the pause state from a device heartbeat. The
// session resumes automatically as soon as a heartbeat shows both
// permission and services back.
func (s *Session) ReportDeviceStatus(st contracts.WSDeviceStatus) {
	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return
	}
	cp := st
	s.lastStatus = &cp
	s.lastStatusAt = time.Now()
	s.paused = !(st.PermissionGranted && st.ServicesEnabled)
	state := s.recomputeLocked()
	s.mu.Unlock()

	s.push(state)
}

// onPeerUpdate handles reconciled peer positions from the subscriber. nil
// means the peer is offline.
func (s *Session) onPeerUpdate(rec *track.LiveLocationRecord) {
	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return
	}
	if rec == nil {
		s.peerCoord = nil
		s.peerOnline = false
	} else {
		c := rec.Coordinate
		s.peerCoord = &c
		s.peerOnline = true
	}
	state := s.recomputeLocked()
	s.mu.Unlock()

	s.push(state)
}

// onRouteMetrics handles refresh-cycle results. nil withdraws the estimate
// (the straight-line fallback takes over).
func (s *Session) onRouteMetrics(m *track.RouteMetrics) {
	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return
	}
	s.metrics = m
	state := s.recomputeLocked()
	s.mu.Unlock()

	s.push(state)
}

// refreshLoop drives the fixed-cadence route refresh while both
// coordinates are known.
func (s *Session) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshRoute(ctx)
		}
	}
}

// refreshRoute issues one route cycle. Origin and destination depend on the
// viewer's role: the requester watches the responder coming to them, the
// responder watches their own trip to the requester.
func (s *Session) refreshRoute(ctx context.Context) {
	s.mu.Lock()
	if !s.alive || s.selfCoord == nil || s.peerCoord == nil {
		s.mu.Unlock()
		return
	}
	self, peer := *s.selfCoord, *s.peerCoord
	s.mu.Unlock()

	origin, dest := self, peer
	if s.role.IsRequester() {
		origin, dest = peer, self
	}
	s.routes.Refresh(ctx, origin, dest, s.onRouteMetrics)
}

// statusLoop periodically re-evaluates the device environment, covering
// platforms that do not push permission changes as events. A device that
// has gone quiet for several poll intervals is treated as paused until it
// reports again.
func (s *Session) statusLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.DeviceStatusPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			if !s.alive {
				s.mu.Unlock()
				return
			}
			var state *contracts.WSTrackingState
			if s.lastStatus != nil && !s.paused &&
				time.Since(s.lastStatusAt) > 3*s.cfg.DeviceStatusPoll {
				s.paused = true
				st := s.recomputeLocked()
				state = &st
			}
			s.mu.Unlock()
			if state != nil {
				s.push(*state)
			}
		}
	}
}

// bestDistanceLocked prefers the routed distance and falls back to the
// straight line between the two known points.
func (s *Session) bestDistanceLocked() float64 {
	if s.metrics != nil {
		return s.metrics.DistanceMeters
	}
	return geo.DistanceMeters(s.selfCoord, s.peerCoord)
}

// recomputeLocked re-derives the proximity latch and presentation snapshot.
// Callers hold s.mu and push the returned state after unlocking.
func (s *Session) recomputeLocked() contracts.WSTrackingState {
	distance := s.bestDistanceLocked()
	bothKnown := s.selfCoord != nil && s.peerCoord != nil
	s.near.Observe(distance, bothKnown)

	state := contracts.WSTrackingState{
		Type:          "tracking_state",
		SessionID:     s.id,
		PeerOnline:    s.peerOnline,
		DistanceLabel: formatDistance(distance),
		ETALabel:      etaLabel(s.metrics, geo.DistanceMeters(s.selfCoord, s.peerCoord), s.cfg.FallbackSpeedKMH),
		RouteStale:    s.metrics != nil && s.metrics.IsStale,
		Paused:        s.paused,
		Near:          s.near.Fired(),
		Timestamp:     time.Now().UTC(),
	}
	if s.peerCoord != nil {
		lat, lng := s.peerCoord.Latitude, s.peerCoord.Longitude
		state.PeerLatitude, state.PeerLongitude = &lat, &lng
	}
	if s.metrics != nil && len(s.metrics.Path) > 0 {
		path := make([][]float64, 0, len(s.metrics.Path))
		for _, p := range s.metrics.Path {
			path = append(path, []float64{p.Longitude, p.Latitude})
		}
		state.RoutePath = path
	}
	return state
}

// push delivers a snapshot to the viewer. Delivery failure is logged only;
// a dropped frame is recovered by the next change.
func (s *Session) push(state contracts.WSTrackingState) {
	if err := s.pusher.PushState(s.selfID, state); err != nil {
		s.logger.Debug(context.Background(), "state_push_failed",
			"Failed to push tracking state", map[string]any{
				"session_id": s.id, "error": err.Error(),
			})
	}
}

// fireNear publishes the one-shot proximity event. Runs off the session
// lock; the notifier owns its own delivery guarantees.
func (s *Session) fireNear(distanceMeters float64) {
	ev := contracts.NearEvent{
		SessionID:      s.id,
		NotifyPartyID:  s.selfID,
		PeerPartyID:    s.peerID,
		DistanceMeters: distanceMeters,
		At:             time.Now().UTC(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.notifier.NotifyNear(ctx, ev); err != nil {
			s.logger.Error(ctx, "near_notify_failed",
				"Failed to publish proximity event", err,
				map[string]any{"session_id": s.id})
		}
	}()
}

// Close tears the session down synchronously: peer feed, timers, and any
// in-flight route request. Idempotent; callbacks arriving afterwards are
// rejected by the liveness flag.
func (s *Session) Close() {
	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return
	}
	s.alive = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if s.unsubPeer != nil {
		s.unsubPeer()
	}
	s.routes.Stop()
	s.coalescer.Drop(s.selfID)

	s.logger.Info(context.Background(), "session_closed", "Tracking session closed",
		map[string]any{"session_id": s.id, "party_id": s.selfID, "peer_id": s.peerID})
}

// Snapshot returns the current presentation without pushing it. Used by
// tests and the initial frame after session start.
func (s *Session) Snapshot() contracts.WSTrackingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recomputeLocked()
}

// straightLineDistance is a test seam over the current coordinates.
func (s *Session) straightLineDistance() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selfCoord == nil || s.peerCoord == nil {
		return math.Inf(1)
	}
	return geo.DistanceMeters(s.selfCoord, s.peerCoord)
}
