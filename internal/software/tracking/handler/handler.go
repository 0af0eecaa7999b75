package handler

import (
	"net/http"

	"peertrack/internal/general/logger"
	"peertrack/internal/general/websocket"
)

// TrackingHTTPHandler exposes the device WebSocket endpoint and the health
// probe.
type TrackingHTTPHandler struct {
	gateway *websocket.Gateway
	logger  *logger.Logger
}

func NewTrackingHTTPHandler(gateway *websocket.Gateway, logger *logger.Logger) *TrackingHTTPHandler {
	return &TrackingHTTPHandler{gateway: gateway, logger: logger}
}

// RegisterRoutes attaches all routes to the mux.
func (h *TrackingHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/tracking/{party_id}", h.gateway.ConnectParty)
	mux.HandleFunc("GET /ws/tracking", h.gateway.ConnectParty)
	mux.HandleFunc("GET /health", h.Health)
}
