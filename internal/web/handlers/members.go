package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/facegate/facegate/internal/recognition"
	"github.com/facegate/facegate/internal/store"
	"github.com/facegate/facegate/internal/tenant"
	"github.com/facegate/facegate/internal/web/middleware"
)

// RosterInvalidator drops cached roster state for a scope after an
// enrollment change. Implemented by the embedding cache and (optionally)
// the optimized strategy's index set.
type RosterInvalidator interface {
	Invalidate(scope tenant.Scope)
}

// MembersHandler handles member enrollment CRUD.
type MembersHandler struct {
	store        store.MemberStore
	invalidators []RosterInvalidator
}

// NewMembersHandler creates a members handler. Every invalidator is
// notified after a successful create, update or delete.
func NewMembersHandler(memberStore store.MemberStore, invalidators ...RosterInvalidator) *MembersHandler {
	return &MembersHandler{store: memberStore, invalidators: invalidators}
}

func (h *MembersHandler) invalidate(scope tenant.Scope) {
	for _, inv := range h.invalidators {
		inv.Invalidate(scope)
	}
}

// MemberRequest is the create/update payload.
type MemberRequest struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// MemberResponse is the member representation returned by the API.
// Embeddings are reported by presence only.
type MemberResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Status       string `json:"status"`
	HasEmbedding bool   `json:"has_embedding"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

func toMemberResponse(m recognition.Member) MemberResponse {
	return MemberResponse{
		ID:           m.ID,
		Name:         m.Name,
		Status:       string(m.Status),
		HasEmbedding: m.HasEmbedding(),
		CreatedAt:    m.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:    m.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (h *MembersHandler) decode(w http.ResponseWriter, r *http.Request) (MemberRequest, bool) {
	var req MemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return req, false
	}
	req.Name = strings.Join(strings.Fields(req.Name), " ")
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return req, false
	}
	if req.Status == "" {
		req.Status = string(recognition.StatusAllowed)
	}
	if !recognition.ValidStatus(recognition.MemberStatus(req.Status)) {
		respondError(w, http.StatusBadRequest, "unknown status")
		return req, false
	}
	return req, true
}

// List returns all members of the tenant. An optional q parameter filters
// by name, ignoring case and diacritics.
func (h *MembersHandler) List(w http.ResponseWriter, r *http.Request) {
	scope := middleware.ScopeFromRequest(r)

	members, err := h.store.List(r.Context(), scope)
	if err != nil {
		log.Printf("listing members for %s: %v", scope, err)
		respondError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}

	query := recognition.NormalizeName(r.URL.Query().Get("q"))
	resp := make([]MemberResponse, 0, len(members))
	for _, m := range members {
		if query != "" && !strings.Contains(recognition.NormalizeName(m.Name), query) {
			continue
		}
		resp = append(resp, toMemberResponse(m))
	}
	respondJSON(w, http.StatusOK, resp)
}

// Get returns one member.
func (h *MembersHandler) Get(w http.ResponseWriter, r *http.Request) {
	scope := middleware.ScopeFromRequest(r)
	id := chi.URLParam(r, "id")

	member, err := h.store.Get(r.Context(), scope, id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "member not found")
		return
	}
	if err != nil {
		log.Printf("getting member %s for %s: %v", sanitizeForLog(id), scope, err)
		respondError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	respondJSON(w, http.StatusOK, toMemberResponse(member))
}

// Create enrolls a new member and invalidates the tenant's roster cache.
func (h *MembersHandler) Create(w http.ResponseWriter, r *http.Request) {
	scope := middleware.ScopeFromRequest(r)

	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	member, err := h.store.Create(r.Context(), scope, recognition.Member{
		Name:      req.Name,
		Status:    recognition.MemberStatus(req.Status),
		Embedding: req.Embedding,
	})
	if err != nil {
		log.Printf("creating member for %s: %v", scope, err)
		respondError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}

	h.invalidate(scope)
	respondJSON(w, http.StatusCreated, toMemberResponse(member))
}

// Update replaces a member's name, status and embedding.
func (h *MembersHandler) Update(w http.ResponseWriter, r *http.Request) {
	scope := middleware.ScopeFromRequest(r)
	id := chi.URLParam(r, "id")

	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	err := h.store.Update(r.Context(), scope, recognition.Member{
		ID:        id,
		Name:      req.Name,
		Status:    recognition.MemberStatus(req.Status),
		Embedding: req.Embedding,
	})
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "member not found")
		return
	}
	if err != nil {
		log.Printf("updating member %s for %s: %v", sanitizeForLog(id), scope, err)
		respondError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}

	h.invalidate(scope)

	member, err := h.store.Get(r.Context(), scope, id)
	if err != nil {
		respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
		return
	}
	respondJSON(w, http.StatusOK, toMemberResponse(member))
}

// Delete removes a member and invalidates the tenant's roster cache.
func (h *MembersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	scope := middleware.ScopeFromRequest(r)
	id := chi.URLParam(r, "id")

	err := h.store.Delete(r.Context(), scope, id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "member not found")
		return
	}
	if err != nil {
		log.Printf("deleting member %s for %s: %v", sanitizeForLog(id), scope, err)
		respondError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}

	h.invalidate(scope)
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
