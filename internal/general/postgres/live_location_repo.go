package postgres

import (
	"context"
	"errors"
	"fmt"

	"peertrack/internal/domain/geo"
	"peertrack/internal/domain/track"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the narrow slice of pgxpool.Pool the repository needs. pgxmock
// satisfies it in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// LiveLocationRepo stores one row per party in live_locations, overwritten
// in place. Only the subject party's device writes its row; peers only read.
type LiveLocationRepo struct {
	db DB
}

func NewLiveLocationRepo(db DB) *LiveLocationRepo {
	return &LiveLocationRepo{db: db}
}

// Upsert writes the party's most recent position, replacing any prior row.
func (r *LiveLocationRepo) Upsert(ctx context.Context, rec track.LiveLocationRecord) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO live_locations (party_id, latitude, longitude, heading, speed, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (party_id) DO UPDATE
		SET latitude = EXCLUDED.latitude,
		    longitude = EXCLUDED.longitude,
		    heading = EXCLUDED.heading,
		    speed = EXCLUDED.speed,
		    updated_at = EXCLUDED.updated_at
	`, rec.PartyID, rec.Coordinate.Latitude, rec.Coordinate.Longitude,
		rec.Coordinate.Heading, rec.Coordinate.Speed, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert live location: %w", err)
	}
	return nil
}

// Get point-reads a party's current row. A missing row returns (nil, nil):
// the party has simply never broadcast or has gone offline.
func (r *LiveLocationRepo) Get(ctx context.Context, partyID string) (*track.LiveLocationRecord, error) {
	var rec track.LiveLocationRecord
	var c geo.Coordinate
	err := r.db.QueryRow(ctx, `
		SELECT party_id, latitude, longitude, heading, speed, updated_at
		FROM live_locations
		WHERE party_id = $1
	`, partyID).Scan(&rec.PartyID, &c.Latitude, &c.Longitude, &c.Heading, &c.Speed, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get live location: %w", err)
	}
	rec.Coordinate = c
	return &rec, nil
}

// Delete removes the party's row, marking the party offline.
func (r *LiveLocationRepo) Delete(ctx context.Context, partyID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM live_locations WHERE party_id = $1`, partyID)
	if err != nil {
		return fmt.Errorf("delete live location: %w", err)
	}
	return nil
}
