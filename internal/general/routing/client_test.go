package routing

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"peertrack/internal/domain/geo"
	"peertrack/internal/domain/track"
	"peertrack/internal/general/logger"
)

var (
	origin = geo.Coordinate{Latitude: 14.6000, Longitude: 121.0000}
	dest   = geo.Coordinate{Latitude: 14.6091, Longitude: 120.9783}
)

func TestFetchRouteParsesReply(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, `{"code":"Ok","routes":[{"duration":243.7,"distance":1834.2,"geometry":{"coordinates":[[121.0,14.6],[120.9783,14.6091]]}}]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, logger.New("test"))
	m, err := c.FetchRoute(context.Background(), origin, dest)
	if err != nil {
		t.Fatalf("fetch route: %v", err)
	}

	if !strings.HasPrefix(gotPath, "/route/v1/driving/") {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if !strings.Contains(gotQuery, "geometries=geojson") {
		t.Fatalf("unexpected query: %s", gotQuery)
	}

	if m.DurationSeconds != 243.7 || m.DistanceMeters != 1834.2 {
		t.Fatalf("unexpected metrics: %+v", m)
	}
	if len(m.Path) != 2 || m.Path[0].Latitude != 14.6 || m.Path[0].Longitude != 121.0 {
		t.Fatalf("geometry not converted to lat/lng: %+v", m.Path)
	}
	if m.IsStale {
		t.Fatalf("a fresh fetch must not be stale")
	}
}

func TestFetchRouteNoRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"NoRoute","routes":[]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, logger.New("test"))
	if _, err := c.FetchRoute(context.Background(), origin, dest); err != track.ErrNoRouteInReply {
		t.Fatalf("expected ErrNoRouteInReply, got %v", err)
	}
}

func TestFetchRouteServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, logger.New("test"))
	if _, err := c.FetchRoute(context.Background(), origin, dest); err == nil {
		t.Fatalf("expected error on 500")
	}
}

func TestFetchRouteMalformedGeometry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"Ok","routes":[{"duration":60,"distance":500,"geometry":{"coordinates":[[121.0]]}}]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, logger.New("test"))
	if _, err := c.FetchRoute(context.Background(), origin, dest); err == nil {
		t.Fatalf("expected error on malformed coordinate pair")
	}
}

func TestFetchRouteHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, logger.New("test"))
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	if _, err := c.FetchRoute(ctx, origin, dest); err == nil {
		t.Fatalf("expected cancellation error")
	}
}
