package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"peertrack/internal/domain/track"
	"peertrack/internal/general/contracts"
	"peertrack/internal/general/logger"
)

// PublishingStore composes the row store with the change-event fanout: a
// successful upsert or delete is followed by a publish on the location
// topic so live subscribers hear about it. A failed publish fails the
// write, matching the coalescer's "next accepted sample retries" policy.
type PublishingStore struct {
	repo   LiveStore
	pub    ChangePublisher
	logger *logger.Logger
}

func NewPublishingStore(repo LiveStore, pub ChangePublisher, logger *logger.Logger) *PublishingStore {
	return &PublishingStore{repo: repo, pub: pub, logger: logger}
}

func (s *PublishingStore) Upsert(ctx context.Context, rec track.LiveLocationRecord) error {
	if err := s.repo.Upsert(ctx, rec); err != nil {
		return err
	}

	ev := contracts.LocationChangeEvent{
		PartyID:   rec.PartyID,
		Latitude:  rec.Coordinate.Latitude,
		Longitude: rec.Coordinate.Longitude,
		Heading:   rec.Coordinate.Heading,
		Speed:     rec.Coordinate.Speed,
		UpdatedAt: rec.UpdatedAt,
		Envelope: contracts.Envelope{
			Producer: "tracking-service",
			SentAt:   time.Now().UTC(),
		},
	}
	if err := s.publish(ev); err != nil {
		return fmt.Errorf("publish location change: %w", err)
	}
	return nil
}

func (s *PublishingStore) Get(ctx context.Context, partyID string) (*track.LiveLocationRecord, error) {
	return s.repo.Get(ctx, partyID)
}

func (s *PublishingStore) Delete(ctx context.Context, partyID string) error {
	if err := s.repo.Delete(ctx, partyID); err != nil {
		return err
	}

	ev := contracts.LocationChangeEvent{
		PartyID: partyID,
		Deleted: true,
		Envelope: contracts.Envelope{
			Producer: "tracking-service",
			SentAt:   time.Now().UTC(),
		},
	}
	if err := s.publish(ev); err != nil {
		return fmt.Errorf("publish location delete: %w", err)
	}
	return nil
}

func (s *PublishingStore) publish(ev contracts.LocationChangeEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.pub.Publish(contracts.ExchangeLocationTopic, ev.PartyID, body)
}
