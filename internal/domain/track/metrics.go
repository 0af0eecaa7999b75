package track

import (
	"time"

	"peertrack/internal/domain/geo"
)

// RouteMetrics is one routed travel estimate for an origin/destination pair.
// IsStale marks a previously fetched result re-emitted past its trust window;
// a record is never created stale from nothing.
type RouteMetrics struct {
	DurationSeconds float64          `json:"duration_seconds"`
	DistanceMeters  float64          `json:"distance_meters"`
	Path            []geo.Coordinate `json:"path,omitempty"`
	FetchedAt       time.Time        `json:"fetched_at"`
	IsStale         bool             `json:"is_stale"`
}

// Age returns how old the estimate is at the given instant.
func (m RouteMetrics) Age(now time.Time) time.Duration {
	return now.Sub(m.FetchedAt)
}
