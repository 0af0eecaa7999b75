package handler

import (
	"encoding/json"
	"net/http"
	"time"
)

// Health reports service liveness.
func (h *TrackingHTTPHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"service":   "tracking-service",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
