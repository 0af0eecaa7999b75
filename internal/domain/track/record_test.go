package track

import (
	"testing"
	"time"

	"peertrack/internal/domain/geo"
)

func TestNewLiveLocationRecord(t *testing.T) {
	rec, err := NewLiveLocationRecord(" party-1 ", geo.Coordinate{Latitude: 14.6, Longitude: 121})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.PartyID != "party-1" {
		t.Fatalf("party id not trimmed: %q", rec.PartyID)
	}
	if rec.UpdatedAt.IsZero() || rec.UpdatedAt.Location() != time.UTC {
		t.Fatalf("expected UTC timestamp, got %v", rec.UpdatedAt)
	}
}

func TestNewLiveLocationRecordRejectsBadInput(t *testing.T) {
	if _, err := NewLiveLocationRecord("", geo.Coordinate{}); err != ErrEmptyPartyID {
		t.Fatalf("expected ErrEmptyPartyID, got %v", err)
	}
	if _, err := NewLiveLocationRecord("p", geo.Coordinate{Latitude: 99}); err != geo.ErrInvalidLatitude {
		t.Fatalf("expected ErrInvalidLatitude, got %v", err)
	}
}
