package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Pinger reports backend reachability for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports service and dependency health.
type HealthHandler struct {
	store Pinger
	mode  func() string
}

// NewHealthHandler creates a health handler. store may be nil when no
// persistent backend is configured; mode reports the coordinator state.
func NewHealthHandler(store Pinger, mode func() string) *HealthHandler {
	return &HealthHandler{store: store, mode: mode}
}

// Get returns overall health. The service stays "ok" while the store is
// down because matching continues from cached rosters.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{
		"status": "ok",
		"mode":   h.mode(),
	}

	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			resp["store"] = "unavailable"
		} else {
			resp["store"] = "ok"
		}
	}

	respondJSON(w, http.StatusOK, resp)
}
