package track

import (
	"errors"
	"strings"
	"time"

	"peertrack/internal/domain/geo"
)

var (
	ErrEmptyPartyID   = errors.New("party_id cannot be empty")
	ErrInvalidPeerID  = errors.New("peer id is not a valid UUID")
	ErrSessionClosed  = errors.New("tracking session is closed")
	ErrMissingPeerID  = errors.New("peer id is required")
	ErrNoRouteInReply = errors.New("routing reply contains no route")
)

// LiveLocationRecord is the persisted shared-state representation of one
// party's most recent position. One row per party, overwritten in place;
// written only by the subject's own device.
type LiveLocationRecord struct {
	PartyID    string         `json:"party_id"`
	Coordinate geo.Coordinate `json:"coordinate"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// NewLiveLocationRecord constructs a validated record stamped with now (UTC).
func NewLiveLocationRecord(partyID string, c geo.Coordinate) (LiveLocationRecord, error) {
	if strings.TrimSpace(partyID) == "" {
		return LiveLocationRecord{}, ErrEmptyPartyID
	}
	if err := c.Validate(); err != nil {
		return LiveLocationRecord{}, err
	}
	return LiveLocationRecord{
		PartyID:    strings.TrimSpace(partyID),
		Coordinate: c,
		UpdatedAt:  time.Now().UTC(),
	}, nil
}
