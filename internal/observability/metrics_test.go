package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// TestMetrics_Usable verifies that all Prometheus metrics can be used without
// panic, ensuring label dimensions match usage across client, http, service, and cache packages.
func TestMetrics_Usable(t *testing.T) {
	// Verify metrics can be used without panic; label dimensions match usage in client, http, service, cache
	// Route uses path template to avoid cardinality (e.g. /weather/{city} not /weather/mumbai)
	HTTPRequestsTotal.WithLabelValues("GET", "/weather/{city}", "2xx").Inc()
	HTTPRequestDuration.WithLabelValues("GET", "/weather/{city}").Observe(0.01)
	WeatherAPICallsTotal.WithLabelValues("weather", "success").Inc()
	WeatherAPICallsTotal.WithLabelValues("forecast", "error").Inc()
	WeatherAPIDuration.WithLabelValues("weather", "success").Observe(0.1)
	WeatherAPIRetriesTotal.WithLabelValues("forecast").Inc()
	UpstreamRateLimitWaitSeconds.Observe(0.002)
	CacheHitsTotal.WithLabelValues("weather").Inc()
	CacheErrorsTotal.WithLabelValues("get", "timeout").Inc()
	CacheOperationDurationSeconds.WithLabelValues("set", "success").Observe(0.0003)
	CacheStampedeDetectedTotal.WithLabelValues("other").Inc()
	CacheStampedeConcurrency.WithLabelValues("other").Observe(3)
	RequestCoalescingHitsTotal.WithLabelValues("other").Inc()
	RequestCoalescingWaitSeconds.Observe(0.05)
	CacheWarmingTotal.Inc()
	CacheWarmingDurationSeconds.Observe(1.2)
	WeatherQueriesTotal.Inc()
	WeatherQueriesByCityTotal.WithLabelValues("mumbai").Inc()
	WeatherQueriesByCityTotal.WithLabelValues("other").Inc()
	RequestedUnitsTotal.WithLabelValues("celsius").Inc()
	RequestedUnitsTotal.WithLabelValues("fahrenheit").Inc()
}

// TestSetTrackedCities_and_RecordCityQuery verifies that SetTrackedCities
// configures the city allow-list and RecordCityQuery correctly labels tracked vs "other" cities.
func TestSetTrackedCities_and_RecordCityQuery(t *testing.T) {
	SetTrackedCities([]string{"mumbai", "london"})
	RecordCityQuery("Mumbai", "celsius")
	RecordCityQuery("unknown-city", "fahrenheit")
	SetTrackedCities(nil) // reset for other tests
}

// TestMetricCityLabel verifies tracked cities resolve to themselves and
// everything else collapses to "other".
func TestMetricCityLabel(t *testing.T) {
	SetTrackedCities([]string{"mumbai"})
	defer SetTrackedCities(nil)

	tests := []struct {
		city string
		want string
	}{
		{"mumbai", "mumbai"},
		{"Mumbai", "mumbai"},
		{"  MUMBAI  ", "mumbai"},
		{"atlantis", "other"},
		{"", "other"},
	}
	for _, tt := range tests {
		if got := MetricCityLabel(tt.city); got != tt.want {
			t.Errorf("MetricCityLabel(%q) = %q, want %q", tt.city, got, tt.want)
		}
	}
}

// TestCircuitBreakerMetrics verifies the breaker gauge mapping and that
// transitions record without panic.
func TestCircuitBreakerMetrics(t *testing.T) {
	tests := []struct {
		state string
		want  float64
	}{
		{"closed", 0},
		{"half_open", 1},
		{"open", 2},
		{"unknown", 0},
	}
	for _, tt := range tests {
		if got := CircuitBreakerStateValue(tt.state); got != tt.want {
			t.Errorf("CircuitBreakerStateValue(%q) = %v, want %v", tt.state, got, tt.want)
		}
	}

	RecordCircuitBreakerTransition("weather_api", "closed", "open")
	SetCircuitBreakerStateGauge("weather_api", "closed")
	RecordShutdownInFlight(3)
}

// TestRegisterRateLimitGauges verifies gauge registration is idempotent.
func TestRegisterRateLimitGauges(t *testing.T) {
	RegisterRateLimitGauges(time.Minute)
	RegisterRateLimitGauges(time.Minute) // second call must not panic (sync.Once)
}

// TestMetricsHandler_ServesPrometheusFormat verifies that MetricsHandler serves
// Prometheus text exposition format with correct HTTP status and metric output.
func TestMetricsHandler_ServesPrometheusFormat(t *testing.T) {
	handler := MetricsHandler()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("MetricsHandler status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "httpRequestsTotal") {
		t.Error("MetricsHandler response should contain metric output")
	}
}
