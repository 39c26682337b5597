// Package mock provides in-memory implementations of the store interfaces
// for testing, with error injection fields to exercise failure paths.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/facegate/facegate/internal/recognition"
	"github.com/facegate/facegate/internal/store"
	"github.com/facegate/facegate/internal/tenant"
)

// MemberStore is an in-memory store.MemberStore.
type MemberStore struct {
	mu      sync.RWMutex
	members map[string]map[string]recognition.Member // scope key -> id -> member

	// Error injection
	CreateError error
	UpdateError error
	DeleteError error
	GetError    error
	ListError   error
	PingError   error

	// ListCalls counts ListWithEmbeddings invocations, for cache tests.
	ListCalls int
}

// NewMemberStore creates an empty member store.
func NewMemberStore() *MemberStore {
	return &MemberStore{members: make(map[string]map[string]recognition.Member)}
}

// Seed inserts a member directly, bypassing error injection.
func (s *MemberStore) Seed(scope tenant.Scope, m recognition.Member) recognition.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.OrgScope = scope.Key()
	byID, ok := s.members[scope.Key()]
	if !ok {
		byID = make(map[string]recognition.Member)
		s.members[scope.Key()] = byID
	}
	byID[m.ID] = m
	return m
}

// Create stores a new member under the scope.
func (s *MemberStore) Create(ctx context.Context, scope tenant.Scope, m recognition.Member) (recognition.Member, error) {
	if s.CreateError != nil {
		return recognition.Member{}, s.CreateError
	}
	now := time.Now()
	m.CreatedAt = now
	m.UpdatedAt = now
	return s.Seed(scope, m), nil
}

// Update replaces an existing member.
func (s *MemberStore) Update(ctx context.Context, scope tenant.Scope, m recognition.Member) error {
	if s.UpdateError != nil {
		return s.UpdateError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	byID, ok := s.members[scope.Key()]
	if !ok {
		return store.ErrNotFound
	}
	if _, ok := byID[m.ID]; !ok {
		return store.ErrNotFound
	}
	m.OrgScope = scope.Key()
	m.UpdatedAt = time.Now()
	byID[m.ID] = m
	return nil
}

// Delete removes a member.
func (s *MemberStore) Delete(ctx context.Context, scope tenant.Scope, id string) error {
	if s.DeleteError != nil {
		return s.DeleteError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	byID, ok := s.members[scope.Key()]
	if !ok {
		return store.ErrNotFound
	}
	if _, ok := byID[id]; !ok {
		return store.ErrNotFound
	}
	delete(byID, id)
	return nil
}

// Get returns one member.
func (s *MemberStore) Get(ctx context.Context, scope tenant.Scope, id string) (recognition.Member, error) {
	if s.GetError != nil {
		return recognition.Member{}, s.GetError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.members[scope.Key()][id]; ok {
		return m, nil
	}
	return recognition.Member{}, store.ErrNotFound
}

// List returns all members for the scope, ordered by id.
func (s *MemberStore) List(ctx context.Context, scope tenant.Scope) ([]recognition.Member, error) {
	if s.ListError != nil {
		return nil, s.ListError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(scope, false), nil
}

// ListWithEmbeddings returns matchable members for the scope, ordered by id.
func (s *MemberStore) ListWithEmbeddings(ctx context.Context, scope tenant.Scope) ([]recognition.Member, error) {
	s.mu.Lock()
	s.ListCalls++
	s.mu.Unlock()
	if s.ListError != nil {
		return nil, s.ListError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(scope, true), nil
}

func (s *MemberStore) collect(scope tenant.Scope, embeddedOnly bool) []recognition.Member {
	var out []recognition.Member
	for _, m := range s.members[scope.Key()] {
		if embeddedOnly && !m.HasEmbedding() {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Ping reports store reachability.
func (s *MemberStore) Ping(ctx context.Context) error {
	return s.PingError
}

// AttendanceStore is an in-memory store.AttendanceStore with the same
// per-day uniqueness guarantee as the SQL backend.
type AttendanceStore struct {
	mu   sync.Mutex
	logs []store.AttendanceLog
	days map[string]struct{} // scope|member|day

	// Error injection
	HasError    error
	InsertError error
	ListError   error
	PingError   error

	// InsertCalls counts Insert invocations, including rejected duplicates.
	InsertCalls int
}

// NewAttendanceStore creates an empty attendance store.
func NewAttendanceStore() *AttendanceStore {
	return &AttendanceStore{days: make(map[string]struct{})}
}

func dayKey(scope tenant.Scope, memberID string, t time.Time) string {
	return fmt.Sprintf("%s|%s|%s", scope.Key(), memberID, t.Format("2006-01-02"))
}

// HasForDay reports whether a log exists for the member on the given day.
func (s *AttendanceStore) HasForDay(ctx context.Context, scope tenant.Scope, memberID string, dayStart time.Time) (bool, error) {
	if s.HasError != nil {
		return false, s.HasError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.days[dayKey(scope, memberID, dayStart)]
	return ok, nil
}

// Insert stores a log, enforcing the per-day uniqueness constraint.
func (s *AttendanceStore) Insert(ctx context.Context, scope tenant.Scope, logEntry store.AttendanceLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.InsertCalls++
	if s.InsertError != nil {
		return s.InsertError
	}
	key := dayKey(scope, logEntry.MemberID, logEntry.Timestamp)
	if _, ok := s.days[key]; ok {
		return store.ErrDuplicateDay
	}
	if logEntry.ID == "" {
		logEntry.ID = uuid.NewString()
	}
	logEntry.OrgScope = scope.Key()
	s.days[key] = struct{}{}
	s.logs = append(s.logs, logEntry)
	return nil
}

// ListForDay returns the scope's logs for the given day, oldest first.
func (s *AttendanceStore) ListForDay(ctx context.Context, scope tenant.Scope, dayStart time.Time) ([]store.AttendanceLog, error) {
	if s.ListError != nil {
		return nil, s.ListError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	day := dayStart.Format("2006-01-02")
	var out []store.AttendanceLog
	for _, l := range s.logs {
		if l.OrgScope == scope.Key() && l.Timestamp.Format("2006-01-02") == day {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// Logs returns a copy of all stored logs. For test assertions.
func (s *AttendanceStore) Logs() []store.AttendanceLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.AttendanceLog, len(s.logs))
	copy(out, s.logs)
	return out
}

// Ping reports store reachability.
func (s *AttendanceStore) Ping(ctx context.Context) error {
	return s.PingError
}
