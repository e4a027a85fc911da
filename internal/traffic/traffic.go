// Package traffic keeps a short sliding window of finished-request outcomes.
// The health endpoint reads it to decide whether the service is overloaded or
// degraded, and the observability gauges export the same window counts.
package traffic

import (
	"sync"
	"time"
)

// Outcome classifies one finished request.
type Outcome int

const (
	Success Outcome = iota
	Error
	Denied // rejected by rate limiting before reaching the service
)

// maxWindow bounds how far back any caller may ask; older events are pruned
// on record.
const maxWindow = 5 * time.Minute

var defaultTracker Tracker

// RecordSuccess records a served request on the default tracker.
func RecordSuccess() { defaultTracker.Record(Success) }

// RecordError records a failed request (upstream error, timeout) on the
// default tracker.
func RecordError() { defaultTracker.Record(Error) }

// RecordDenied records a rate-limit denial on the default tracker.
func RecordDenied() { defaultTracker.Record(Denied) }

// RequestCount returns how many outcomes of any kind landed within the window.
func RequestCount(window time.Duration) int { return defaultTracker.RequestCount(window) }

// DenialCount returns how many rate-limit denials landed within the window.
func DenialCount(window time.Duration) int { return defaultTracker.DenialCount(window) }

// ErrorRate returns (errors, successes+errors) within the window. Denials are
// excluded from both sides; a rejected request says nothing about upstream
// health.
func ErrorRate(window time.Duration) (errors, total int) { return defaultTracker.ErrorRate(window) }

// Reset clears the default tracker. For tests.
func Reset() { defaultTracker.Reset() }

type event struct {
	at   time.Time
	kind Outcome
}

// Tracker records outcome events and answers sliding-window counts over them.
// Events arrive in call order, so the slice stays sorted by time and window
// queries scan backward from the newest event. The zero value is ready to use.
type Tracker struct {
	mu     sync.Mutex
	events []event
}

// Record appends one outcome and drops events older than maxWindow.
func (t *Tracker) Record(kind Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	t.events = append(t.events, event{at: now, kind: kind})

	cutoff := now.Add(-maxWindow)
	keep := 0
	for keep < len(t.events) && t.events[keep].at.Before(cutoff) {
		keep++
	}
	if keep > 0 {
		t.events = append(t.events[:0], t.events[keep:]...)
	}
}

// RequestCount returns how many outcomes of any kind landed within the window.
func (t *Tracker) RequestCount(window time.Duration) int {
	s, e, d := t.tally(window)
	return s + e + d
}

// DenialCount returns how many denials landed within the window.
func (t *Tracker) DenialCount(window time.Duration) int {
	_, _, d := t.tally(window)
	return d
}

// ErrorRate returns (errors, successes+errors) within the window.
func (t *Tracker) ErrorRate(window time.Duration) (errors, total int) {
	s, e, _ := t.tally(window)
	return e, e + s
}

// Reset clears all recorded outcomes.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = nil
}

// tally counts outcomes newer than the window cutoff in one backward pass,
// stopping at the first event outside the window.
func (t *Tracker) tally(window time.Duration) (success, errs, denied int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := time.Now().Add(-window)
	for i := len(t.events) - 1; i >= 0; i-- {
		ev := t.events[i]
		if ev.at.Before(cutoff) {
			break
		}
		switch ev.kind {
		case Error:
			errs++
		case Denied:
			denied++
		default:
			success++
		}
	}
	return success, errs, denied
}
