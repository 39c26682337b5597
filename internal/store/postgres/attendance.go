package postgres

import (
	"context"
	"errors"
	"fmt"

	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/facegate/facegate/internal/store"
	"github.com/facegate/facegate/internal/tenant"
)

// AttendanceRepository provides PostgreSQL-backed attendance storage with a
// per-day uniqueness constraint backing up the recorder's dedup check.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// HasForDay reports whether the member already has a log on the given day.
func (r *AttendanceRepository) HasForDay(ctx context.Context, scope tenant.Scope, memberID string, dayStart time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM attendance_logs
			WHERE org_scope = $1 AND member_id = $2 AND day = $3
		)
	`, scope.Key(), memberID, dayStart.Format("2006-01-02")).Scan(&exists)
	if err != nil {
		return false, wrapStoreErr("check attendance", err)
	}
	return exists, nil
}

// Insert stores a log. The day column is derived from the timestamp in its
// own location, matching the recorder's local calendar-day boundary.
func (r *AttendanceRepository) Insert(ctx context.Context, scope tenant.Scope, logEntry store.AttendanceLog) error {
	if logEntry.ID == "" {
		logEntry.ID = uuid.NewString()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO attendance_logs (id, org_scope, member_id, recorded_at, day, confidence)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, logEntry.ID, scope.Key(), logEntry.MemberID, logEntry.Timestamp,
		logEntry.Timestamp.Format("2006-01-02"), logEntry.Confidence)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicateDay
		}
		return wrapStoreErr("insert attendance", err)
	}
	return nil
}

// ListForDay returns the scope's logs for one day, oldest first.
func (r *AttendanceRepository) ListForDay(ctx context.Context, scope tenant.Scope, dayStart time.Time) ([]store.AttendanceLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, org_scope, member_id, recorded_at, confidence
		FROM attendance_logs
		WHERE org_scope = $1 AND day = $2
		ORDER BY recorded_at
	`, scope.Key(), dayStart.Format("2006-01-02"))
	if err != nil {
		return nil, wrapStoreErr("list attendance", err)
	}
	defer rows.Close()

	var logs []store.AttendanceLog
	for rows.Next() {
		var l store.AttendanceLog
		if err := rows.Scan(&l.ID, &l.OrgScope, &l.MemberID, &l.Timestamp, &l.Confidence); err != nil {
			return nil, fmt.Errorf("scan attendance log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("list attendance", err)
	}
	return logs, nil
}

// Ping reports store reachability.
func (r *AttendanceRepository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

// isUniqueViolation detects the postgres unique_violation error code.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
