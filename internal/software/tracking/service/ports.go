package service

import (
	"context"

	"peertrack/internal/domain/geo"
	"peertrack/internal/domain/track"
	"peertrack/internal/general/contracts"
)

// LiveStore is the shared live-position store: one row per party,
// upsert/point-read/delete. Writes are keyed by party id so no locking is
// needed across writers.
type LiveStore interface {
	Upsert(ctx context.Context, rec track.LiveLocationRecord) error
	Get(ctx context.Context, partyID string) (*track.LiveLocationRecord, error)
	Delete(ctx context.Context, partyID string) error
}

// BroadcastStore is the write-only slice of LiveStore the coalescer needs.
type BroadcastStore interface {
	Upsert(ctx context.Context, rec track.LiveLocationRecord) error
}

// ChangePublisher fans a change event out to live subscribers after a store
// write.
type ChangePublisher interface {
	Publish(exchange, routingKey string, body []byte) error
}

// Feed delivers change events for one party in per-party order. A delete
// event delivers nil. The returned stop function tears the feed down.
type Feed interface {
	Subscribe(ctx context.Context, partyID string, fn func(*track.LiveLocationRecord)) (func(), error)
}

// RouteFetcher asks the external routing service for one travel estimate.
type RouteFetcher interface {
	FetchRoute(ctx context.Context, origin, dest geo.Coordinate) (*track.RouteMetrics, error)
}

// Notifier hands the one-shot proximity event to the outbound notification
// sender.
type Notifier interface {
	NotifyNear(ctx context.Context, ev contracts.NearEvent) error
}

// StatePusher delivers presentation snapshots to a connected viewer.
type StatePusher interface {
	PushState(partyID string, state contracts.WSTrackingState) error
}
