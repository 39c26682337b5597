// Package store defines the persistent-store boundary consumed by the
// recognition core: tenant-scoped member and attendance storage.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/facegate/facegate/internal/recognition"
	"github.com/facegate/facegate/internal/tenant"
)

var (
	// ErrUnavailable indicates the backing store cannot be reached.
	// Non-fatal for matching (the cache degrades); attendance writes
	// retry within a budget and are then absorbed.
	ErrUnavailable = errors.New("store unavailable")

	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateDay indicates an attendance insert hit the per-day
	// uniqueness constraint. Expected under concurrent sessions.
	ErrDuplicateDay = errors.New("attendance already recorded for this day")
)

// AttendanceLog is one recorded presence event. Never updated or deleted
// by this core.
type AttendanceLog struct {
	ID         string
	MemberID   string
	OrgScope   string // tenant storage key
	Timestamp  time.Time
	Confidence float64
}

// MemberStore is tenant-scoped CRUD for enrolled members.
type MemberStore interface {
	Create(ctx context.Context, scope tenant.Scope, m recognition.Member) (recognition.Member, error)
	Update(ctx context.Context, scope tenant.Scope, m recognition.Member) error
	Delete(ctx context.Context, scope tenant.Scope, id string) error
	Get(ctx context.Context, scope tenant.Scope, id string) (recognition.Member, error)
	List(ctx context.Context, scope tenant.Scope) ([]recognition.Member, error)

	// ListWithEmbeddings returns only members carrying a usable embedding;
	// this is the roster the embedding cache snapshots.
	ListWithEmbeddings(ctx context.Context, scope tenant.Scope) ([]recognition.Member, error)

	Ping(ctx context.Context) error
}

// AttendanceStore persists deduplicated attendance events.
type AttendanceStore interface {
	// HasForDay reports whether the member already has a log within
	// [dayStart, dayStart+24h) for the scope.
	HasForDay(ctx context.Context, scope tenant.Scope, memberID string, dayStart time.Time) (bool, error)

	// Insert stores a log. Returns ErrDuplicateDay when the per-day
	// uniqueness constraint rejects it.
	Insert(ctx context.Context, scope tenant.Scope, logEntry AttendanceLog) error

	// ListForDay returns the scope's logs within [dayStart, dayStart+24h),
	// oldest first.
	ListForDay(ctx context.Context, scope tenant.Scope, dayStart time.Time) ([]AttendanceLog, error)

	Ping(ctx context.Context) error
}
