package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"peertrack/internal/domain/geo"
	"peertrack/internal/domain/track"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func TestLiveLocationRepoUpsert(t *testing.T) {
	mock := newMock(t)
	repo := NewLiveLocationRepo(mock)

	rec := track.LiveLocationRecord{
		PartyID:    "party-1",
		Coordinate: geo.Coordinate{Latitude: 14.6, Longitude: 121},
		UpdatedAt:  time.Now().UTC(),
	}

	mock.ExpectExec(`INSERT INTO live_locations`).
		WithArgs("party-1", 14.6, 121.0, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Upsert(context.Background(), rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLiveLocationRepoGet(t *testing.T) {
	mock := newMock(t)
	repo := NewLiveLocationRepo(mock)

	updated := time.Now().UTC()
	heading := 90.0
	mock.ExpectQuery(`SELECT party_id, latitude, longitude, heading, speed, updated_at`).
		WithArgs("party-1").
		WillReturnRows(pgxmock.NewRows([]string{"party_id", "latitude", "longitude", "heading", "speed", "updated_at"}).
			AddRow("party-1", 14.6, 121.0, &heading, (*float64)(nil), updated))

	rec, err := repo.Get(context.Background(), "party-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec == nil || rec.PartyID != "party-1" || rec.Coordinate.Latitude != 14.6 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Coordinate.Heading == nil || *rec.Coordinate.Heading != 90 {
		t.Fatalf("heading not scanned: %+v", rec.Coordinate.Heading)
	}
	if rec.Coordinate.Speed != nil {
		t.Fatalf("null speed must stay nil")
	}
}

func TestLiveLocationRepoGetMissingRow(t *testing.T) {
	mock := newMock(t)
	repo := NewLiveLocationRepo(mock)

	mock.ExpectQuery(`SELECT party_id, latitude, longitude, heading, speed, updated_at`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	rec, err := repo.Get(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("missing row must not error: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record, got %+v", rec)
	}
}

func TestLiveLocationRepoGetFailure(t *testing.T) {
	mock := newMock(t)
	repo := NewLiveLocationRepo(mock)

	mock.ExpectQuery(`SELECT party_id, latitude, longitude, heading, speed, updated_at`).
		WithArgs("party-1").
		WillReturnError(errors.New("connection reset"))

	if _, err := repo.Get(context.Background(), "party-1"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLiveLocationRepoDelete(t *testing.T) {
	mock := newMock(t)
	repo := NewLiveLocationRepo(mock)

	mock.ExpectExec(`DELETE FROM live_locations`).
		WithArgs("party-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	if err := repo.Delete(context.Background(), "party-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
