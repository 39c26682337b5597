// Package attendance turns successful matches into at most one attendance
// record per member per tenant per calendar day, without blocking the
// caller's match response.
package attendance

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/facegate/facegate/internal/store"
	"github.com/facegate/facegate/internal/tenant"
)

// Result classifies one record attempt.
type Result string

const (
	ResultRecorded         Result = "recorded"
	ResultSkippedDuplicate Result = "skipped-duplicate"
	ResultFailed           Result = "failed"
)

const (
	recordTimeout = 15 * time.Second
	retryAttempts = 3
	retryBackoff  = 200 * time.Millisecond
)

// Recorder persists attendance events asynchronously and best-effort.
// Persistence failures are retried within a small budget, then logged and
// absorbed: attendance logging never disturbs the access-control decision
// already communicated to the caller.
//
// Day boundaries are calendar days in the recorder's location (local wall
// clock by default). The check-then-insert is not atomic across processes;
// the storage layer's uniqueness constraint closes that race and surfaces
// as a skipped duplicate here.
type Recorder struct {
	store store.AttendanceStore
	loc   *time.Location
	now   func() time.Time
	wg    sync.WaitGroup
}

// NewRecorder creates a recorder using local wall-clock day boundaries.
func NewRecorder(attendanceStore store.AttendanceStore) *Recorder {
	return &Recorder{
		store: attendanceStore,
		loc:   time.Local,
		now:   time.Now,
	}
}

// SetClock overrides the time source and day-boundary location. For tests.
func (r *Recorder) SetClock(now func() time.Time, loc *time.Location) {
	r.now = now
	r.loc = loc
}

// DayStart returns the start of the calendar day containing t, in the
// recorder's location.
func (r *Recorder) DayStart(t time.Time) time.Time {
	t = t.In(r.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, r.loc)
}

// Record is fire-and-forget: it schedules persistence and returns
// immediately, so the caller's match response is never delayed.
func (r *Recorder) Record(scope tenant.Scope, memberID string, confidence float64) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()

		result, err := r.RecordSync(ctx, scope, memberID, confidence)
		if err != nil {
			// Absorbed: attendance logging is non-critical.
			log.Printf("attendance record failed for member %s in %s: %v", memberID, scope, err)
			return
		}
		if result == ResultRecorded {
			log.Printf("attendance recorded for member %s in %s (confidence %.2f)", memberID, scope, confidence)
		}
	}()
}

// RecordSync performs the dedup check and insert synchronously. A second
// call within the same calendar day is a no-op reported as
// ResultSkippedDuplicate, which is expected, not an error.
func (r *Recorder) RecordSync(ctx context.Context, scope tenant.Scope, memberID string, confidence float64) (Result, error) {
	now := r.now().In(r.loc)
	dayStart := r.DayStart(now)

	var result Result
	backoff := retry.WithMaxRetries(retryAttempts, retry.NewConstant(retryBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		exists, err := r.store.HasForDay(ctx, scope, memberID, dayStart)
		if err != nil {
			return retryable(err)
		}
		if exists {
			result = ResultSkippedDuplicate
			return nil
		}

		err = r.store.Insert(ctx, scope, store.AttendanceLog{
			ID:         uuid.NewString(),
			MemberID:   memberID,
			OrgScope:   scope.Key(),
			Timestamp:  now,
			Confidence: confidence,
		})
		if errors.Is(err, store.ErrDuplicateDay) {
			// Lost the race against a concurrent session. Still deduped.
			result = ResultSkippedDuplicate
			return nil
		}
		if err != nil {
			return retryable(err)
		}
		result = ResultRecorded
		return nil
	})
	if err != nil {
		return ResultFailed, err
	}
	return result, nil
}

// Wait blocks until all in-flight asynchronous records complete. Used at
// shutdown and in tests.
func (r *Recorder) Wait() {
	r.wg.Wait()
}

// retryable marks transient store failures for another attempt.
func retryable(err error) error {
	return retry.RetryableError(err)
}
