package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/facegate/facegate/internal/store"
	"github.com/facegate/facegate/internal/web/middleware"
)

// AttendanceHandler exposes per-day attendance logs.
type AttendanceHandler struct {
	store store.AttendanceStore
	loc   *time.Location
	now   func() time.Time
}

// NewAttendanceHandler creates an attendance handler using local
// wall-clock day boundaries, matching the recorder.
func NewAttendanceHandler(attendanceStore store.AttendanceStore) *AttendanceHandler {
	return &AttendanceHandler{
		store: attendanceStore,
		loc:   time.Local,
		now:   time.Now,
	}
}

// SetClock overrides the time source and day-boundary location. For tests.
func (h *AttendanceHandler) SetClock(now func() time.Time, loc *time.Location) {
	h.now = now
	h.loc = loc
}

// AttendanceEntry is one attendance log in API form.
type AttendanceEntry struct {
	ID         string  `json:"id"`
	MemberID   string  `json:"member_id"`
	RecordedAt string  `json:"recorded_at"`
	Confidence float64 `json:"confidence"`
}

// AttendanceResponse is the day listing.
type AttendanceResponse struct {
	Day     string            `json:"day"`
	Count   int               `json:"count"`
	Entries []AttendanceEntry `json:"entries"`
}

// Today returns the tenant's attendance logs for the current day. An
// optional day query parameter (YYYY-MM-DD) selects another day.
func (h *AttendanceHandler) Today(w http.ResponseWriter, r *http.Request) {
	scope := middleware.ScopeFromRequest(r)

	now := h.now().In(h.loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.loc)
	if day := r.URL.Query().Get("day"); day != "" {
		parsed, err := time.ParseInLocation("2006-01-02", day, h.loc)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid day, expected YYYY-MM-DD")
			return
		}
		dayStart = parsed
	}

	logs, err := h.store.ListForDay(r.Context(), scope, dayStart)
	if err != nil {
		log.Printf("listing attendance for %s: %v", scope, err)
		respondError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}

	entries := make([]AttendanceEntry, 0, len(logs))
	for _, l := range logs {
		entries = append(entries, AttendanceEntry{
			ID:         l.ID,
			MemberID:   l.MemberID,
			RecordedAt: l.Timestamp.Format(time.RFC3339),
			Confidence: l.Confidence,
		})
	}

	respondJSON(w, http.StatusOK, AttendanceResponse{
		Day:     dayStart.Format("2006-01-02"),
		Count:   len(entries),
		Entries: entries,
	})
}
