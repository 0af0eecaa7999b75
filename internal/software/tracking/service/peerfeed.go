package service

import (
	"context"
	"sync"
	"time"

	"peertrack/internal/domain/track"
	"peertrack/internal/general/logger"
)

// PointReader is the read-only slice of LiveStore the subscriber needs.
type PointReader interface {
	Get(ctx context.Context, partyID string) (*track.LiveLocationRecord, error)
}

// Subscriber surfaces a reconciled "where is my peer, or are they offline"
// signal by combining a live feed with a one-time point read.
type Subscriber struct {
	reader PointReader
	feed   Feed
	logger *logger.Logger
}

func NewSubscriber(reader PointReader, feed Feed, logger *logger.Logger) *Subscriber {
	return &Subscriber{reader: reader, feed: feed, logger: logger}
}

// Subscribe opens the live feed first, then issues an independent point
// read covering the case where the peer was already online. A live event
// always supersedes the point-read result: once any live event has been
// delivered the point read becomes a no-op, whatever order the two resolve
// in. The returned unsubscribe function tears the feed down and silences
// any still-in-flight point read.
func (s *Subscriber) Subscribe(ctx context.Context, peerID string, onUpdate func(*track.LiveLocationRecord)) (func(), error) {
	var mu sync.Mutex
	seenLive := false
	stopped := false

	deliver := func(rec *track.LiveLocationRecord, live bool) {
		mu.Lock()
		defer mu.Unlock()
		if stopped {
			return
		}
		if live {
			seenLive = true
		} else if seenLive {
			// the point read resolved after a live event: discard it
			return
		}
		onUpdate(rec)
	}

	stopFeed, err := s.feed.Subscribe(ctx, peerID, func(rec *track.LiveLocationRecord) {
		deliver(rec, true)
	})
	if err != nil {
		return nil, err
	}

	go func() {
		rctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		rec, err := s.reader.Get(rctx, peerID)
		if err != nil {
			// neither confirmed online nor offline; the feed will reconcile
			s.logger.Error(rctx, "peer_point_read_failed",
				"Failed to read peer's current position", err,
				map[string]any{"peer_id": peerID})
			return
		}
		if rec != nil {
			deliver(rec, false)
		}
	}()

	unsubscribe := func() {
		mu.Lock()
		stopped = true
		mu.Unlock()
		stopFeed()
	}
	return unsubscribe, nil
}
