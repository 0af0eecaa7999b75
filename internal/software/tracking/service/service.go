package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"peertrack/internal/domain/geo"
	"peertrack/internal/domain/track"
	"peertrack/internal/domain/user"
	"peertrack/internal/general/contracts"
	"peertrack/internal/general/logger"

	"github.com/google/uuid"
)

// TrackingConfig carries the session-level tunables.
type TrackingConfig struct {
	RefreshInterval  time.Duration
	StaleWindow      time.Duration
	NearThreshold    float64
	FallbackSpeedKMH float64
	DeviceStatusPoll time.Duration
}

// DefaultTrackingConfig returns the tuned production values.
func DefaultTrackingConfig() TrackingConfig {
	return TrackingConfig{
		RefreshInterval:  10 * time.Second,
		StaleWindow:      60 * time.Second,
		NearThreshold:    300,
		FallbackSpeedKMH: 55,
		DeviceStatusPoll: 15 * time.Second,
	}
}

// TrackingService owns the process-wide coalescer and one live session per
// connected viewer. Starting a session for a viewer who already has one
// (same or different peer) tears the old one down first.
type TrackingService struct {
	logger     *logger.Logger
	store      LiveStore
	coalescer  *Coalescer
	subscriber *Subscriber
	fetcher    RouteFetcher
	notifier   Notifier
	cfg        TrackingConfig

	mu       sync.Mutex
	sessions map[string]*Session // keyed by viewer party id
}

func NewTrackingService(
	logger *logger.Logger,
	store LiveStore,
	feed Feed,
	fetcher RouteFetcher,
	notifier Notifier,
	coalescerCfg CoalescerConfig,
	cfg TrackingConfig,
) *TrackingService {
	return &TrackingService{
		logger:     logger,
		store:      store,
		coalescer:  NewCoalescer(store, coalescerCfg, logger),
		subscriber: NewSubscriber(store, feed, logger),
		fetcher:    fetcher,
		notifier:   notifier,
		cfg:        cfg,
		sessions:   make(map[string]*Session),
	}
}

// StartSession validates the peer identifier and opens a tracking session
// for the viewer. An invalid or missing identifier is terminal for the
// screen instance: no subscriptions are opened and no network calls are
// made.
func (t *TrackingService) StartSession(ctx context.Context, viewerID string, role user.Role, peerID string, pusher StatePusher) (*Session, error) {
	peerID = strings.TrimSpace(peerID)
	if peerID == "" {
		return nil, track.ErrMissingPeerID
	}
	if id, err := uuid.Parse(peerID); err != nil || len(peerID) != 36 || id == uuid.Nil {
		return nil, track.ErrInvalidPeerID
	}
	if !role.Valid() {
		return nil, user.ErrInvalidRole
	}

	t.mu.Lock()
	if old, ok := t.sessions[viewerID]; ok {
		delete(t.sessions, viewerID)
		t.mu.Unlock()
		old.Close()
		t.mu.Lock()
	}

	s := &Session{
		id:         uuid.NewString(),
		selfID:     viewerID,
		peerID:     peerID,
		role:       role,
		coalescer:  t.coalescer,
		subscriber: t.subscriber,
		routes:     NewRouteMetricsCache(t.fetcher, t.cfg.StaleWindow, t.logger),
		notifier:   t.notifier,
		pusher:     pusher,
		logger:     t.logger,
		cfg:        t.cfg,
		alive:      true,
	}
	s.near = NewProximityDetector(t.cfg.NearThreshold, s.fireNear)
	t.sessions[viewerID] = s
	t.mu.Unlock()

	if err := s.start(ctx); err != nil {
		t.mu.Lock()
		delete(t.sessions, viewerID)
		t.mu.Unlock()
		s.Close()
		return nil, err
	}

	t.logger.Info(ctx, "session_started", "Tracking session started", map[string]any{
		"session_id": s.id,
		"party_id":   viewerID,
		"peer_id":    peerID,
		"role":       role.String(),
	})

	// initial frame so the screen renders before the first change arrives
	s.push(s.Snapshot())

	return s, nil
}

// StopSession closes the viewer's session if one exists.
func (t *TrackingService) StopSession(viewerID string) {
	t.mu.Lock()
	s, ok := t.sessions[viewerID]
	delete(t.sessions, viewerID)
	t.mu.Unlock()
	if ok {
		s.Close()
	}
}

// ReportLocation routes one device sample to the viewer's session.
func (t *TrackingService) ReportLocation(viewerID string, sample geo.Coordinate) error {
	s, ok := t.session(viewerID)
	if !ok {
		return track.ErrSessionClosed
	}
	return s.ReportSelf(sample)
}

// ReportDeviceStatus routes a device environment heartbeat to the viewer's
// session.
func (t *TrackingService) ReportDeviceStatus(viewerID string, st contracts.WSDeviceStatus) {
	if s, ok := t.session(viewerID); ok {
		s.ReportDeviceStatus(st)
	}
}

// Disconnect tears the viewer's session down and withdraws their live row
// so the peer sees them go offline.
func (t *TrackingService) Disconnect(ctx context.Context, viewerID string) {
	t.StopSession(viewerID)

	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := t.store.Delete(dctx, viewerID); err != nil {
		t.logger.Error(dctx, "live_row_delete_failed",
			"Failed to withdraw live location on disconnect", err,
			map[string]any{"party_id": viewerID})
	}
}

func (t *TrackingService) session(viewerID string) (*Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[viewerID]
	return s, ok
}
