package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"peertrack/internal/general/contracts"

	"github.com/gorilla/websocket"
)

// lockOf returns the per-connection writer mutex, creating it on first use.
func (g *Gateway) lockOf(conn *websocket.Conn) *sync.Mutex {
	v, _ := g.writeLocks.LoadOrStore(conn, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// writeJSON marshals and writes one frame under the connection's writer lock.
func (g *Gateway) writeJSON(conn *websocket.Conn, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}

	mu := g.lockOf(conn)
	mu.Lock()
	defer mu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, body)
}

// wsWriteClose sends a close frame; best effort.
func (g *Gateway) wsWriteClose(conn *websocket.Conn, code int, reason string) {
	mu := g.lockOf(conn)
	mu.Lock()
	defer mu.Unlock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), time.Now().Add(ctrlTimeout))
}

func (g *Gateway) sendError(conn *websocket.Conn, message string) {
	_ = g.writeJSON(conn, contracts.WSErrorMessage{Type: "error", Error: message})
}

func (g *Gateway) sendAuthError(conn *websocket.Conn, message string) {
	_ = g.writeJSON(conn, map[string]any{
		"type":    "auth_error",
		"error":   message,
		"success": false,
	})
}

func (g *Gateway) sendAuthSuccess(conn *websocket.Conn, partyID string) error {
	return g.writeJSON(conn, map[string]any{
		"type":      "auth_success",
		"message":   "Authentication successful",
		"success":   true,
		"party_id":  partyID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
