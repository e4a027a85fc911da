package cache

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kjstillabower/weather-dashboard-service/internal/models"
	"github.com/kjstillabower/weather-dashboard-service/internal/units"
)

type mockReportFetcher struct {
	mu     sync.Mutex
	report models.WeatherReport
	err    error
	calls  []string
	units  []units.DisplayUnit
}

func (m *mockReportFetcher) GetReport(ctx context.Context, city string, unit units.DisplayUnit) (models.WeatherReport, error) {
	m.mu.Lock()
	m.calls = append(m.calls, city)
	m.units = append(m.units, unit)
	m.mu.Unlock()
	if m.err != nil {
		return models.WeatherReport{}, m.err
	}
	out := m.report
	out.City = city
	return out, nil
}

func TestCacheWarmer_Warm_Success(t *testing.T) {
	fetcher := &mockReportFetcher{report: models.WeatherReport{Current: models.CurrentConditions{Temperature: 10, Conditions: "Clear"}}}
	warmer := NewCacheWarmer(fetcher, nil)
	ctx := context.Background()

	err := warmer.Warm(ctx, []string{"mumbai", "london"})
	if err != nil {
		t.Fatalf("Warm() error = %v, want nil", err)
	}
	if len(fetcher.calls) != 2 {
		t.Errorf("fetcher calls = %d, want 2", len(fetcher.calls))
	}
	for _, u := range fetcher.units {
		if u != units.Celsius {
			t.Errorf("fetcher unit = %v, want Celsius (cache stores canonical reports)", u)
		}
	}
}

func TestCacheWarmer_Warm_EmptyCities(t *testing.T) {
	fetcher := &mockReportFetcher{}
	warmer := NewCacheWarmer(fetcher, nil)
	ctx := context.Background()

	err := warmer.Warm(ctx, nil)
	if err != nil {
		t.Fatalf("Warm() with nil cities error = %v, want nil", err)
	}
	err = warmer.Warm(ctx, []string{})
	if err != nil {
		t.Fatalf("Warm() with empty cities error = %v, want nil", err)
	}
}

func TestCacheWarmer_Warm_FetcherError(t *testing.T) {
	fetcher := &mockReportFetcher{err: errors.New("api down")}
	warmer := NewCacheWarmer(fetcher, nil)
	ctx := context.Background()

	err := warmer.Warm(ctx, []string{"mumbai"})
	if err == nil {
		t.Fatal("Warm() error = nil, want non-nil")
	}
	if msg := err.Error(); msg != "cache warming: [warm mumbai: api down]" {
		t.Errorf("Warm() error = %q, want aggregated failure message", msg)
	}
}

func TestCacheWarmer_Warm_PartialFailureStillReportsError(t *testing.T) {
	// One city fails; Warm should still finish the rest and surface the error.
	failing := &selectiveFetcher{failCity: "atlantis"}
	warmer := NewCacheWarmer(failing, nil)
	ctx := context.Background()

	err := warmer.Warm(ctx, []string{"mumbai", "atlantis", "london"})
	if err == nil {
		t.Fatal("Warm() error = nil, want non-nil for partial failure")
	}
	if got := failing.callCount(); got != 3 {
		t.Errorf("fetcher calls = %d, want 3 (all cities attempted)", got)
	}
}

type selectiveFetcher struct {
	mu       sync.Mutex
	failCity string
	calls    int
}

func (s *selectiveFetcher) GetReport(ctx context.Context, city string, unit units.DisplayUnit) (models.WeatherReport, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if city == s.failCity {
		return models.WeatherReport{}, errors.New("no such city")
	}
	return models.WeatherReport{City: city}, nil
}

func (s *selectiveFetcher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
