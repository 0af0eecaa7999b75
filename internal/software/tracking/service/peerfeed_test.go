package service

import (
	"context"
	"testing"
	"time"

	"peertrack/internal/domain/geo"
	"peertrack/internal/domain/track"
)

func waitRec(t *testing.T, ch <-chan *track.LiveLocationRecord) *track.LiveLocationRecord {
	t.Helper()
	select {
	case rec := <-ch:
		return rec
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for peer update")
		return nil
	}
}

func TestSubscriberDeliversPointRead(t *testing.T) {
	store := &fakeStore{rows: map[string]*track.LiveLocationRecord{
		"peer": {PartyID: "peer", Coordinate: geo.Coordinate{Latitude: 14.6, Longitude: 121}},
	}}
	feed := &fakeFeed{}
	sub := NewSubscriber(store, feed, testLogger())

	got := make(chan *track.LiveLocationRecord, 4)
	stop, err := sub.Subscribe(context.Background(), "peer", func(r *track.LiveLocationRecord) { got <- r })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer stop()

	rec := waitRec(t, got)
	if rec == nil || rec.PartyID != "peer" {
		t.Fatalf("expected point-read record, got %+v", rec)
	}
}

func TestSubscriberLiveEventSupersedesPointRead(t *testing.T) {
	gate := make(chan struct{})
	store := &fakeStore{
		rows:    map[string]*track.LiveLocationRecord{"peer": {PartyID: "peer", Coordinate: geo.Coordinate{Latitude: 1, Longitude: 1}}},
		getGate: gate,
	}
	feed := &fakeFeed{}
	sub := NewSubscriber(store, feed, testLogger())

	got := make(chan *track.LiveLocationRecord, 4)
	stop, err := sub.Subscribe(context.Background(), "peer", func(r *track.LiveLocationRecord) { got <- r })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer stop()

	live := &track.LiveLocationRecord{PartyID: "peer", Coordinate: geo.Coordinate{Latitude: 14.6, Longitude: 121}}
	feed.emit("peer", live)

	rec := waitRec(t, got)
	if rec == nil || rec.Coordinate.Latitude != 14.6 {
		t.Fatalf("expected the live record, got %+v", rec)
	}

	// let the delayed point read resolve: it must be discarded
	close(gate)
	select {
	case rec := <-got:
		t.Fatalf("stale point read delivered after live event: %+v", rec)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscriberDeliversOfflineAsNil(t *testing.T) {
	feed := &fakeFeed{}
	sub := NewSubscriber(&fakeStore{}, feed, testLogger())

	got := make(chan *track.LiveLocationRecord, 4)
	stop, err := sub.Subscribe(context.Background(), "peer", func(r *track.LiveLocationRecord) { got <- r })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer stop()

	feed.emit("peer", nil)
	if rec := waitRec(t, got); rec != nil {
		t.Fatalf("delete event must deliver nil, got %+v", rec)
	}
}

func TestSubscriberUnsubscribeSilencesDeliveries(t *testing.T) {
	feed := &fakeFeed{}
	sub := NewSubscriber(&fakeStore{}, feed, testLogger())

	got := make(chan *track.LiveLocationRecord, 4)
	stop, err := sub.Subscribe(context.Background(), "peer", func(r *track.LiveLocationRecord) { got <- r })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	stop()
	stop() // safe to call twice

	feed.emit("peer", &track.LiveLocationRecord{PartyID: "peer"})
	select {
	case rec := <-got:
		t.Fatalf("delivery after unsubscribe: %+v", rec)
	case <-time.After(100 * time.Millisecond):
	}

	if feed.stopCount() < 1 {
		t.Fatalf("feed was not torn down")
	}
}
