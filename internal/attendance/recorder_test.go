package attendance

import (
	"errors"
	"testing"
	"time"

	"github.com/facegate/facegate/internal/store"
	"github.com/facegate/facegate/internal/store/mock"
	"github.com/facegate/facegate/internal/tenant"
)

func recorderAt(t *testing.T, at time.Time) (*Recorder, *mock.AttendanceStore, *time.Time) {
	t.Helper()
	attendanceStore := mock.NewAttendanceStore()
	r := NewRecorder(attendanceStore)
	now := at
	r.SetClock(func() time.Time { return now }, time.UTC)
	return r, attendanceStore, &now
}

func TestRecordSync_FirstOfDayIsRecorded(t *testing.T) {
	r, attendanceStore, _ := recorderAt(t, time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC))
	scope := tenant.Legacy()

	result, err := r.RecordSync(t.Context(), scope, "m1", 0.92)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != ResultRecorded {
		t.Errorf("expected recorded, got %s", result)
	}

	logs := attendanceStore.Logs()
	if len(logs) != 1 {
		t.Fatalf("expected 1 log, got %d", len(logs))
	}
	if logs[0].MemberID != "m1" || logs[0].Confidence != 0.92 {
		t.Errorf("unexpected log %+v", logs[0])
	}
	if logs[0].OrgScope != scope.Key() {
		t.Errorf("expected scope key %s, got %s", scope.Key(), logs[0].OrgScope)
	}
}

func TestRecordSync_SameDayIsIdempotent(t *testing.T) {
	r, attendanceStore, now := recorderAt(t, time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC))
	scope := tenant.Legacy()

	if _, err := r.RecordSync(t.Context(), scope, "m1", 0.92); err != nil {
		t.Fatal(err)
	}

	// Same member walks in again hours later.
	*now = now.Add(7 * time.Hour)
	result, err := r.RecordSync(t.Context(), scope, "m1", 0.88)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != ResultSkippedDuplicate {
		t.Errorf("expected skipped-duplicate, got %s", result)
	}
	if len(attendanceStore.Logs()) != 1 {
		t.Errorf("expected exactly 1 log, got %d", len(attendanceStore.Logs()))
	}
}

func TestRecordSync_NextDayRecordsAgain(t *testing.T) {
	r, attendanceStore, now := recorderAt(t, time.Date(2026, 8, 25, 23, 59, 0, 0, time.UTC))
	scope := tenant.Legacy()

	if _, err := r.RecordSync(t.Context(), scope, "m1", 0.9); err != nil {
		t.Fatal(err)
	}

	// Two minutes later it is a new calendar day.
	*now = time.Date(2026, 8, 26, 0, 1, 0, 0, time.UTC)
	result, err := r.RecordSync(t.Context(), scope, "m1", 0.9)
	if err != nil {
		t.Fatal(err)
	}
	if result != ResultRecorded {
		t.Errorf("expected a fresh record on the next day, got %s", result)
	}
	if len(attendanceStore.Logs()) != 2 {
		t.Errorf("expected 2 logs, got %d", len(attendanceStore.Logs()))
	}
}

func TestRecordSync_DifferentMembersSameDay(t *testing.T) {
	r, attendanceStore, _ := recorderAt(t, time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC))
	scope := tenant.Legacy()

	for _, member := range []string{"m1", "m2", "m3"} {
		if _, err := r.RecordSync(t.Context(), scope, member, 0.9); err != nil {
			t.Fatal(err)
		}
	}
	if len(attendanceStore.Logs()) != 3 {
		t.Errorf("expected 3 logs, got %d", len(attendanceStore.Logs()))
	}
}

func TestRecordSync_TenantsDoNotShareDedup(t *testing.T) {
	r, attendanceStore, _ := recorderAt(t, time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC))
	scopeA, _ := tenant.For("org-a")
	scopeB, _ := tenant.For("org-b")

	if _, err := r.RecordSync(t.Context(), scopeA, "m1", 0.9); err != nil {
		t.Fatal(err)
	}
	result, err := r.RecordSync(t.Context(), scopeB, "m1", 0.9)
	if err != nil {
		t.Fatal(err)
	}
	if result != ResultRecorded {
		t.Errorf("expected same member id in another tenant to record, got %s", result)
	}
	if len(attendanceStore.Logs()) != 2 {
		t.Errorf("expected 2 logs, got %d", len(attendanceStore.Logs()))
	}
}

func TestRecordSync_LostInsertRaceIsSkipped(t *testing.T) {
	r, attendanceStore, _ := recorderAt(t, time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC))
	attendanceStore.InsertError = store.ErrDuplicateDay

	result, err := r.RecordSync(t.Context(), tenant.Legacy(), "m1", 0.9)
	if err != nil {
		t.Fatalf("expected the unique-violation race to be absorbed, got %v", err)
	}
	if result != ResultSkippedDuplicate {
		t.Errorf("expected skipped-duplicate, got %s", result)
	}
}

func TestRecordSync_PersistentFailureExhaustsRetries(t *testing.T) {
	r, attendanceStore, _ := recorderAt(t, time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC))
	attendanceStore.HasError = errors.New("connection refused")

	result, err := r.RecordSync(t.Context(), tenant.Legacy(), "m1", 0.9)
	if err == nil {
		t.Fatal("expected an error after retries are exhausted")
	}
	if result != ResultFailed {
		t.Errorf("expected failed result, got %s", result)
	}
	// Initial attempt plus retries, all hitting the check.
	if attendanceStore.InsertCalls != 0 {
		t.Errorf("expected no insert when the dedup check keeps failing, got %d", attendanceStore.InsertCalls)
	}
}

func TestRecord_AsyncCompletesAfterWait(t *testing.T) {
	r, attendanceStore, _ := recorderAt(t, time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC))

	r.Record(tenant.Legacy(), "m1", 0.9)
	r.Wait()

	if len(attendanceStore.Logs()) != 1 {
		t.Errorf("expected the async record to land, got %d logs", len(attendanceStore.Logs()))
	}
}

func TestRecord_WaitCoversRetryingWrites(t *testing.T) {
	r, attendanceStore, _ := recorderAt(t, time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC))
	attendanceStore.InsertError = errors.New("connection refused")

	// Wait is the shutdown drain barrier: it must not return while a
	// record is still inside its retry loop.
	r.Record(tenant.Legacy(), "m1", 0.9)
	r.Wait()

	if attendanceStore.InsertCalls != 4 {
		t.Errorf("expected Wait to cover the full retry budget (4 inserts), got %d", attendanceStore.InsertCalls)
	}
}

func TestRecord_AsyncFailureIsAbsorbed(t *testing.T) {
	r, attendanceStore, _ := recorderAt(t, time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC))
	attendanceStore.InsertError = errors.New("connection refused")

	// Must not panic or surface anywhere; the match response already left.
	r.Record(tenant.Legacy(), "m1", 0.9)
	r.Wait()

	if len(attendanceStore.Logs()) != 0 {
		t.Errorf("expected no logs, got %d", len(attendanceStore.Logs()))
	}
}

func TestDayStart(t *testing.T) {
	r := NewRecorder(mock.NewAttendanceStore())
	r.SetClock(time.Now, time.UTC)

	at := time.Date(2026, 8, 25, 17, 45, 12, 0, time.UTC)
	want := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	if got := r.DayStart(at); !got.Equal(want) {
		t.Errorf("expected %s, got %s", want, got)
	}
}
