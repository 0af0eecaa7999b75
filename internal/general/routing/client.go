package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"peertrack/internal/domain/geo"
	"peertrack/internal/domain/track"
	"peertrack/internal/general/logger"
)

// Client talks to an OSRM-compatible routing service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *logger.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *logger.Logger) *Client {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// osrmResponse mirrors the subset of the OSRM route response we consume.
type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Duration float64 `json:"duration"`
		Distance float64 `json:"distance"`
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"` // [lng, lat]
		} `json:"geometry"`
	} `json:"routes"`
}

// FetchRoute requests one origin→destination estimate. Any non-success
// response or malformed geometry is an error; the caller decides how to
// degrade.
func (c *Client) FetchRoute(ctx context.Context, origin, dest geo.Coordinate) (*track.RouteMetrics, error) {
	url := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=full&geometries=geojson",
		c.baseURL, origin.Longitude, origin.Latitude, dest.Longitude, dest.Latitude)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build route request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("route request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("route request: unexpected status %d", resp.StatusCode)
	}

	var body osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode route response: %w", err)
	}
	if body.Code != "Ok" || len(body.Routes) == 0 {
		return nil, track.ErrNoRouteInReply
	}

	route := body.Routes[0]
	path := make([]geo.Coordinate, 0, len(route.Geometry.Coordinates))
	for _, pair := range route.Geometry.Coordinates {
		if len(pair) != 2 {
			return nil, fmt.Errorf("route geometry: malformed coordinate pair")
		}
		p := geo.Coordinate{Latitude: pair[1], Longitude: pair[0]}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("route geometry: %w", err)
		}
		path = append(path, p)
	}

	return &track.RouteMetrics{
		DurationSeconds: route.Duration,
		DistanceMeters:  route.Distance,
		Path:            path,
		FetchedAt:       time.Now().UTC(),
		IsStale:         false,
	}, nil
}
