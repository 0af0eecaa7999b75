package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"peertrack/internal/domain/geo"
	"peertrack/internal/domain/track"
	"peertrack/internal/domain/user"
	"peertrack/internal/general/contracts"
	"peertrack/internal/general/jwt"
	"peertrack/internal/general/logger"
	"peertrack/internal/software/tracking/service"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 5 * time.Second
	ctrlTimeout    = 5 * time.Second
	readWindow     = 60 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Gateway is the device-facing WebSocket surface: it authenticates each
// party, feeds inbound samples and status heartbeats into the tracking
// service, and pushes presentation snapshots back out. It is the
// service's StatePusher.
type Gateway struct {
	logger   *logger.Logger
	jwtMgr   *jwt.Manager
	svc      *service.TrackingService
	validate *validator.Validate

	writeLocks sync.Map // *websocket.Conn -> *sync.Mutex
	conns      sync.Map // partyID -> *websocket.Conn
}

func NewGateway(logger *logger.Logger, jwtMgr *jwt.Manager, svc *service.TrackingService) *Gateway {
	return &Gateway{
		logger:   logger,
		jwtMgr:   jwtMgr,
		svc:      svc,
		validate: validator.New(),
	}
}

// PushState sends a tracking snapshot to the party's connection. A party
// that is not connected is not an error; they will get the next frame.
func (g *Gateway) PushState(partyID string, state contracts.WSTrackingState) error {
	v, ok := g.conns.Load(partyID)
	if !ok {
		return nil
	}
	return g.writeJSON(v.(*websocket.Conn), state)
}

// PushNear delivers a proximity notification frame to the party's device.
// A party that is not connected simply misses it; the tracking state frame
// carries the near flag as well.
func (g *Gateway) PushNear(ev contracts.NearEvent) error {
	v, ok := g.conns.Load(ev.NotifyPartyID)
	if !ok {
		return nil
	}
	return g.writeJSON(v.(*websocket.Conn), map[string]any{
		"type":            "near_notification",
		"session_id":      ev.SessionID,
		"peer_id":         ev.PeerPartyID,
		"distance_meters": ev.DistanceMeters,
		"timestamp":       ev.At.UTC().Format(time.RFC3339),
	})
}

// ConnectParty handles one device connection with first-frame JWT auth.
func (g *Gateway) ConnectParty(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Error(r.Context(), "websocket_upgrade_failed", "Failed to upgrade to WebSocket", err, nil)
		return
	}
	defer conn.Close()
	defer g.writeLocks.Delete(conn)

	conn.SetReadLimit(1 << 20) // 1 MiB
	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		g.logger.Error(r.Context(), "ws_set_deadline_failed", "Failed to set initial read deadline", err, nil)
		g.sendAuthError(conn, "internal server error")
		return
	}

	msgType, firstFrame, err := conn.ReadMessage()
	if err != nil {
		g.logger.Error(r.Context(), "ws_auth_read_failed", "Failed to read auth message", err, nil)
		g.sendAuthError(conn, "authentication timeout: please send auth message within 5 seconds")
		return
	}
	if msgType != websocket.TextMessage {
		g.sendAuthError(conn, "auth message must be in text format")
		return
	}

	res, err := jwt.ValidateWSAuth(firstFrame, g.jwtMgr, user.RoleRequester, user.RoleResponder)
	if err != nil {
		g.logger.Error(r.Context(), "ws_auth_failed", "Invalid auth message or token", err, nil)
		g.sendAuthError(conn, "authentication failed: invalid token")
		return
	}

	// path param, if present, must match the token subject
	if pid := r.PathValue("party_id"); pid != "" && pid != res.Claims.Subject {
		g.logger.Error(r.Context(), "ws_auth_failed", "Party ID mismatch", nil, map[string]any{
			"path_party_id": pid,
			"token_subject": res.Claims.Subject,
		})
		g.sendAuthError(conn, "party ID mismatch")
		return
	}
	partyID := res.Claims.Subject
	role := res.Claims.Role

	if err := g.sendAuthSuccess(conn, partyID); err != nil {
		g.logger.Error(r.Context(), "ws_auth_success_failed", "Failed to send auth success message", err, nil)
		return
	}

	g.logger.Info(r.Context(), "ws_connected", "Party WebSocket connected",
		map[string]any{"party_id": partyID, "role": role.String()})

	_ = conn.SetReadDeadline(time.Now().Add(readWindow))
	conn.SetPongHandler(func(_ string) error {
		return conn.SetReadDeadline(time.Now().Add(readWindow))
	})

	// ping loop with the per-connection writer lock
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	go func() {
		for range ticker.C {
			mu := g.lockOf(conn)
			mu.Lock()
			_ = conn.SetWriteDeadline(time.Now().Add(ctrlTimeout))
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctrlTimeout))
			mu.Unlock()
			if err != nil {
				_ = conn.Close()
				return
			}
		}
	}()

	// register this party for outbound snapshots; replace a stale conn
	if old, loaded := g.conns.Swap(partyID, conn); loaded {
		_ = old.(*websocket.Conn).Close()
	}
	defer func() {
		// teardown belongs to whoever owns the registration: after a
		// reconnect swapped us out, the party's session is the new
		// connection's to manage
		if g.conns.CompareAndDelete(partyID, conn) {
			g.svc.Disconnect(r.Context(), partyID)
		}
	}()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(readWindow))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				g.logger.Error(r.Context(), "ws_unexpected_close", "Party connection closed unexpectedly", err,
					map[string]any{"party_id": partyID})
			} else {
				g.logger.Info(r.Context(), "ws_connection_closed", "Party connection closed normally",
					map[string]any{"party_id": partyID})
				g.wsWriteClose(conn, websocket.CloseNormalClosure, "bye")
			}
			break
		}

		var msg contracts.WSClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			g.sendError(conn, "bad json")
			continue
		}

		switch msg.Type {
		case "start_tracking":
			g.handleStartTracking(r, conn, partyID, role, msg.Data)

		case "stop_tracking":
			g.svc.StopSession(partyID)

		case "location_update":
			g.handleLocationUpdate(conn, partyID, msg.Data)

		case "device_status":
			var st contracts.WSDeviceStatus
			if err := json.Unmarshal(msg.Data, &st); err != nil {
				g.sendError(conn, "invalid device status")
				continue
			}
			g.svc.ReportDeviceStatus(partyID, st)

		default:
			g.sendError(conn, "unknown message type")
		}
	}
}

func (g *Gateway) handleStartTracking(r *http.Request, conn *websocket.Conn, partyID string, role user.Role, data json.RawMessage) {
	var req contracts.WSStartTracking
	if err := json.Unmarshal(data, &req); err != nil {
		g.sendError(conn, "Invalid target ID")
		return
	}
	if err := g.validate.Struct(&req); err != nil {
		g.logger.Info(r.Context(), "start_tracking_rejected", "Malformed start_tracking payload",
			map[string]any{"party_id": partyID, "error": err.Error()})
		g.sendError(conn, "Invalid target ID")
		return
	}

	_, err := g.svc.StartSession(r.Context(), partyID, role, req.PeerID, g)
	switch err {
	case nil:
	case track.ErrInvalidPeerID, track.ErrMissingPeerID:
		// terminal for this screen instance; nothing was opened
		g.sendError(conn, "Invalid target ID")
	default:
		g.logger.Error(r.Context(), "session_start_failed", "Failed to start tracking session", err,
			map[string]any{"party_id": partyID})
		g.sendError(conn, "failed to start tracking")
	}
}

func (g *Gateway) handleLocationUpdate(conn *websocket.Conn, partyID string, data json.RawMessage) {
	var upd contracts.WSLocationUpdate
	if err := json.Unmarshal(data, &upd); err != nil {
		g.sendError(conn, "invalid location data")
		return
	}

	sample := geo.Coordinate{
		Latitude:  upd.Latitude,
		Longitude: upd.Longitude,
		Heading:   upd.Heading,
		Speed:     upd.Speed,
	}
	if err := sample.Validate(); err != nil {
		g.sendError(conn, "invalid coordinates")
		return
	}

	if err := g.svc.ReportLocation(partyID, sample); err != nil {
		g.sendError(conn, "no active tracking session")
	}
}
