package contracts

import (
	"encoding/json"
	"time"
)

// WSClientMessage is the minimal envelope for every inbound device frame.
type WSClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// WSStartTracking opens a tracking session against one peer. The session
// role always comes from the authenticated token, never from the payload.
type WSStartTracking struct {
	PeerID string `json:"peer_id" validate:"required,uuid"`
}

// WSLocationUpdate is one device position sample.
type WSLocationUpdate struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Heading   *float64 `json:"heading,omitempty"`
	Speed     *float64 `json:"speed,omitempty"`
}

// WSDeviceStatus reports the device-side location environment. Devices send
// it on change and as a periodic heartbeat; the session pauses broadcasting
// while either flag is false and resumes when both recover.
type WSDeviceStatus struct {
	PermissionGranted bool `json:"permission_granted"`
	ServicesEnabled   bool `json:"services_enabled"`
}

// WSTrackingState is the presentation snapshot pushed to the viewer after
// every meaningful change.
type WSTrackingState struct {
	Type          string     `json:"type"` // "tracking_state"
	SessionID     string     `json:"session_id"`
	PeerOnline    bool       `json:"peer_online"`
	PeerLatitude  *float64   `json:"peer_latitude,omitempty"`
	PeerLongitude *float64   `json:"peer_longitude,omitempty"`
	DistanceLabel string     `json:"distance_label"`
	ETALabel      string     `json:"eta_label"`
	RouteStale    bool       `json:"route_stale"`
	RoutePath     [][]float64 `json:"route_path,omitempty"` // [lng,lat] pairs
	Paused        bool       `json:"paused"`
	Near          bool       `json:"near"`
	Timestamp     time.Time  `json:"timestamp"`
}

// WSErrorMessage is pushed when a request cannot be honored.
type WSErrorMessage struct {
	Type  string `json:"type"` // "error"
	Error string `json:"error"`
}
