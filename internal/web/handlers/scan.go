package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/facegate/facegate/internal/config"
	"github.com/facegate/facegate/internal/recognition"
	"github.com/facegate/facegate/internal/tenant"
	"github.com/facegate/facegate/internal/vision"
	"github.com/facegate/facegate/internal/web/middleware"
)

// MatchRunner is the slice of the recognition coordinator the scan
// endpoint needs.
type MatchRunner interface {
	Match(ctx context.Context, scope tenant.Scope, frame vision.Frame) (recognition.MatchOutcome, error)
	MatchProbe(ctx context.Context, scope tenant.Scope, probe []float32) (recognition.MatchOutcome, error)
}

// AttendanceRecorder records a matched member's attendance without
// blocking the response.
type AttendanceRecorder interface {
	Record(scope tenant.Scope, memberID string, confidence float64)
}

// ScanHandler handles match requests from camera clients.
type ScanHandler struct {
	config      *config.Config
	coordinator MatchRunner
	recorder    AttendanceRecorder
}

// NewScanHandler creates a scan handler.
func NewScanHandler(cfg *config.Config, coordinator MatchRunner, recorder AttendanceRecorder) *ScanHandler {
	return &ScanHandler{
		config:      cfg,
		coordinator: coordinator,
		recorder:    recorder,
	}
}

// ScanRequest is one frame submitted for matching. Clients that run face
// detection and embedding locally send Embedding instead of Image.
type ScanRequest struct {
	Image     string    `json:"image,omitempty"` // base64-encoded JPEG/PNG
	Width     int       `json:"width,omitempty"`
	Height    int       `json:"height,omitempty"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// ScanResponse is the access decision for one frame.
type ScanResponse struct {
	Matched      bool        `json:"matched"`
	Member       *MemberInfo `json:"member,omitempty"`
	Confidence   float64     `json:"confidence,omitempty"`
	Strategy     string      `json:"strategy"`
	ProcessingMs int64       `json:"processing_time_ms"`
	Admit        bool        `json:"admit"`
	Announce     string      `json:"announce,omitempty"`
	Attendance   string      `json:"attendance,omitempty"`
}

// MemberInfo is the member payload exposed on matches. Embeddings never
// leave the service.
type MemberInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Scan matches one frame against the tenant's roster and, on a match,
// applies the status policy and records attendance asynchronously.
func (h *ScanHandler) Scan(w http.ResponseWriter, r *http.Request) {
	scope := middleware.ScopeFromRequest(r)

	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	outcome, err := h.match(r.Context(), scope, req)
	if errors.Is(err, errNoInput) {
		respondError(w, http.StatusBadRequest, "image or embedding is required")
		return
	}
	if errors.Is(err, errBadImage) {
		respondError(w, http.StatusBadRequest, "invalid image encoding")
		return
	}
	if err != nil {
		log.Printf("scan failed for %s: %v", scope, sanitizeForLog(err.Error()))
		respondError(w, http.StatusServiceUnavailable, "matching unavailable")
		return
	}

	resp := ScanResponse{
		Matched:      outcome.Matched(),
		Strategy:     string(outcome.Strategy),
		ProcessingMs: outcome.ProcessingTime.Milliseconds(),
	}

	if outcome.Matched() {
		member := outcome.Member
		policy := h.config.PolicyFor(string(member.Status))

		resp.Member = &MemberInfo{ID: member.ID, Name: member.Name, Status: string(member.Status)}
		resp.Confidence = outcome.Confidence
		resp.Admit = policy.Admit
		resp.Announce = policy.Announce

		// Attendance is logged for every recognized member, admitted or
		// not; a denied entry attempt is still worth a record.
		h.recorder.Record(scope, member.ID, outcome.Confidence)
		resp.Attendance = "scheduled"
	}

	respondJSON(w, http.StatusOK, resp)
}

var (
	errNoInput  = errors.New("no image or embedding in request")
	errBadImage = errors.New("image is not valid base64")
)

func (h *ScanHandler) match(ctx context.Context, scope tenant.Scope, req ScanRequest) (recognition.MatchOutcome, error) {
	if len(req.Embedding) > 0 {
		return h.coordinator.MatchProbe(ctx, scope, req.Embedding)
	}
	if req.Image == "" {
		return recognition.MatchOutcome{}, errNoInput
	}

	image, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil || len(image) == 0 {
		return recognition.MatchOutcome{}, errBadImage
	}
	frame := vision.Frame{
		Image:      image,
		Width:      req.Width,
		Height:     req.Height,
		CapturedAt: time.Now(),
	}
	return h.coordinator.Match(ctx, scope, frame)
}
