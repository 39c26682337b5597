package recognition

import (
	"time"
)

// MemberStatus classifies an enrolled member for access decisions.
type MemberStatus string

const (
	StatusAllowed MemberStatus = "allowed"
	StatusBanned  MemberStatus = "banned"
	StatusVIP     MemberStatus = "vip"
)

// ValidStatus reports whether s is a known member status.
func ValidStatus(s MemberStatus) bool {
	switch s {
	case StatusAllowed, StatusBanned, StatusVIP:
		return true
	}
	return false
}

// Member is an identity enrolled for recognition within one tenant scope.
type Member struct {
	ID        string
	Name      string
	Status    MemberStatus
	Embedding []float32
	OrgScope  string // tenant storage key ("org:<id>" or "legacy")
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasEmbedding reports whether the member carries a usable embedding vector.
func (m *Member) HasEmbedding() bool {
	return len(m.Embedding) > 0
}

// StrategyName tags which pipeline produced a match outcome.
type StrategyName string

const (
	StrategyOptimized StrategyName = "optimized"
	StrategyFallback  StrategyName = "fallback"
)

// MatchOutcome is the uniform result of one match attempt. Member is nil
// iff no candidate met the threshold or no usable probe was available
// (no face detected, low quality, extraction failure).
type MatchOutcome struct {
	Member         *Member
	Confidence     float64
	Strategy       StrategyName
	ProcessingTime time.Duration
}

// Matched reports whether a member was selected.
func (o MatchOutcome) Matched() bool {
	return o.Member != nil
}

// CacheEntry is an immutable per-tenant snapshot of matchable members.
// Entries are replaced wholesale on refresh, never mutated in place, so
// concurrent readers always observe a consistent roster.
type CacheEntry struct {
	ScopeKey  string
	Members   []Member
	FetchedAt time.Time
}

// CacheStats describes one cached roster for observability.
type CacheStats struct {
	ScopeKey  string    `json:"scope"`
	Count     int       `json:"count"`
	FetchedAt time.Time `json:"fetched_at"`
	AgeSecs   float64   `json:"age_seconds"`
}
