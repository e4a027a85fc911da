package service

import (
	"context"
	"sync"
	"time"

	"github.com/kjstillabower/weather-dashboard-service/internal/models"
)

// flight is one upstream fetch in progress. done is closed exactly once, after
// the result and err fields are final.
type flight struct {
	done   chan struct{}
	result models.WeatherReport
	err    error
}

// requestCoalescer folds concurrent report fetches for the same city key into
// a single upstream round trip; every caller shares the one result.
type requestCoalescer struct {
	mu       sync.Mutex
	inFlight map[string]*flight
	timeout  time.Duration
}

func newRequestCoalescer(timeout time.Duration) *requestCoalescer {
	return &requestCoalescer{
		inFlight: make(map[string]*flight),
		timeout:  timeout,
	}
}

// GetOrDo joins an in-flight fetch for key if one exists, otherwise starts fn
// and shares its result with every caller that arrives before it finishes.
// Waiting is bounded by the coalescer timeout and the caller's context.
func (rc *requestCoalescer) GetOrDo(ctx context.Context, key string, fn func() (models.WeatherReport, error)) (models.WeatherReport, error) {
	rc.mu.Lock()
	if f, ok := rc.inFlight[key]; ok {
		rc.mu.Unlock()
		return rc.wait(ctx, f)
	}

	f := &flight{done: make(chan struct{})}
	rc.inFlight[key] = f
	rc.mu.Unlock()

	go func() {
		f.result, f.err = fn()
		// Drop the key before publishing so a fetch that starts after this
		// result lands gets fresh data, not a finished flight.
		rc.mu.Lock()
		delete(rc.inFlight, key)
		rc.mu.Unlock()
		close(f.done)
	}()

	return rc.wait(ctx, f)
}

// wait blocks until the flight completes, the caller's context ends, or the
// coalescer timeout elapses, whichever comes first.
func (rc *requestCoalescer) wait(ctx context.Context, f *flight) (models.WeatherReport, error) {
	waitCtx, cancel := context.WithTimeout(ctx, rc.timeout)
	defer cancel()
	select {
	case <-f.done:
		if f.err != nil {
			return models.WeatherReport{}, f.err
		}
		return f.result, nil
	case <-waitCtx.Done():
		return models.WeatherReport{}, waitCtx.Err()
	}
}
