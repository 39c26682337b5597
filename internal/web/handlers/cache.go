package handlers

import (
	"net/http"

	"github.com/facegate/facegate/internal/recognition"
	"github.com/facegate/facegate/internal/tenant"
	"github.com/facegate/facegate/internal/web/middleware"
)

// RosterCache is the slice of the embedding cache the admin endpoints use.
type RosterCache interface {
	Stats(scope tenant.Scope) (recognition.CacheStats, bool)
	AllStats() []recognition.CacheStats
	Invalidate(scope tenant.Scope)
	InvalidateAll()
}

// CacheHandler exposes roster cache observability and manual invalidation.
type CacheHandler struct {
	cache        RosterCache
	invalidators []RosterInvalidator
}

// NewCacheHandler creates a cache handler. Extra invalidators (the
// optimized strategy's index set) are notified on manual invalidation.
func NewCacheHandler(cache RosterCache, invalidators ...RosterInvalidator) *CacheHandler {
	return &CacheHandler{cache: cache, invalidators: invalidators}
}

// Stats returns cache statistics for the request's tenant.
func (h *CacheHandler) Stats(w http.ResponseWriter, r *http.Request) {
	scope := middleware.ScopeFromRequest(r)

	stats, ok := h.cache.Stats(scope)
	if !ok {
		respondJSON(w, http.StatusOK, map[string]any{"scope": scope.Key(), "cached": false})
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// AllStats returns cache statistics for every cached tenant.
func (h *CacheHandler) AllStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.cache.AllStats())
}

// Invalidate drops the request tenant's cached roster so the next match
// fetches a fresh snapshot.
func (h *CacheHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	scope := middleware.ScopeFromRequest(r)

	h.cache.Invalidate(scope)
	for _, inv := range h.invalidators {
		inv.Invalidate(scope)
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "invalidated", "scope": scope.Key()})
}
