package traffic

import (
	"sync"
	"testing"
	"time"
)

// TestRequestCount_Empty verifies that RequestCount returns 0 when no
// requests have been recorded within the time window.
func TestRequestCount_Empty(t *testing.T) {
	Reset()
	if n := RequestCount(1 * time.Minute); n != 0 {
		t.Errorf("RequestCount() = %d, want 0", n)
	}
}

// TestRecordSuccess_AndRequestCount verifies that RecordSuccess correctly
// increments the window count.
func TestRecordSuccess_AndRequestCount(t *testing.T) {
	Reset()
	RecordSuccess()
	RecordSuccess()
	if n := RequestCount(1 * time.Minute); n != 2 {
		t.Errorf("RequestCount() = %d, want 2", n)
	}
}

// TestRecordDenied_AndCounts verifies that RecordDenied increments both
// DenialCount and RequestCount.
func TestRecordDenied_AndCounts(t *testing.T) {
	Reset()
	RecordDenied()
	RecordDenied()
	if n := DenialCount(1 * time.Minute); n != 2 {
		t.Errorf("DenialCount() = %d, want 2", n)
	}
	if n := RequestCount(1 * time.Minute); n != 2 {
		t.Errorf("RequestCount() = %d, want 2", n)
	}
}

// TestErrorRate_SuccessAndError verifies the (errors, total) split for a mix
// of served and failed requests.
func TestErrorRate_SuccessAndError(t *testing.T) {
	Reset()
	RecordSuccess()
	RecordSuccess()
	RecordError()
	errors, total := ErrorRate(1 * time.Minute)
	if errors != 1 || total != 3 {
		t.Errorf("ErrorRate() = (%d, %d), want (1, 3)", errors, total)
	}
}

// TestErrorRate_DeniedExcluded verifies that rate-limit denials count toward
// neither side of the error rate.
func TestErrorRate_DeniedExcluded(t *testing.T) {
	Reset()
	RecordSuccess()
	RecordDenied()
	RecordDenied()
	errors, total := ErrorRate(1 * time.Minute)
	if errors != 0 || total != 1 {
		t.Errorf("ErrorRate() = (%d, %d), want (0, 1) - denied excluded from error rate", errors, total)
	}
}

// TestWindow_ExcludesOldEvents verifies that events older than the requested
// window stop counting without being forgotten by wider windows.
func TestWindow_ExcludesOldEvents(t *testing.T) {
	var tr Tracker
	tr.Record(Success)
	time.Sleep(60 * time.Millisecond)
	tr.Record(Error)

	if n := tr.RequestCount(30 * time.Millisecond); n != 1 {
		t.Errorf("RequestCount(30ms) = %d, want 1 (only the recent event)", n)
	}
	if n := tr.RequestCount(1 * time.Minute); n != 2 {
		t.Errorf("RequestCount(1m) = %d, want 2", n)
	}
	errors, total := tr.ErrorRate(30 * time.Millisecond)
	if errors != 1 || total != 1 {
		t.Errorf("ErrorRate(30ms) = (%d, %d), want (1, 1)", errors, total)
	}
}

// TestTracker_ZeroValue verifies that a zero-value Tracker works without
// construction.
func TestTracker_ZeroValue(t *testing.T) {
	var tr Tracker
	if n := tr.RequestCount(time.Minute); n != 0 {
		t.Errorf("zero-value RequestCount() = %d, want 0", n)
	}
	tr.Record(Denied)
	if n := tr.DenialCount(time.Minute); n != 1 {
		t.Errorf("DenialCount() = %d, want 1", n)
	}
}

// TestTracker_Concurrent verifies that concurrent records and reads do not
// race and that every event is counted. Run with -race.
func TestTracker_Concurrent(t *testing.T) {
	var tr Tracker
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			switch i % 3 {
			case 0:
				tr.Record(Success)
			case 1:
				tr.Record(Error)
			default:
				tr.Record(Denied)
			}
			tr.RequestCount(time.Minute)
		}(i)
	}
	wg.Wait()

	if n := tr.RequestCount(time.Minute); n != 20 {
		t.Errorf("RequestCount() = %d, want 20", n)
	}
}

// TestReset verifies that Reset clears all recorded outcomes.
func TestReset(t *testing.T) {
	Reset()
	RecordSuccess()
	RecordError()
	RecordDenied()
	Reset()
	if n := RequestCount(1 * time.Minute); n != 0 {
		t.Errorf("RequestCount() = %d, want 0", n)
	}
	errors, total := ErrorRate(1 * time.Minute)
	if errors != 0 || total != 0 {
		t.Errorf("ErrorRate() = (%d, %d), want (0, 0)", errors, total)
	}
}
