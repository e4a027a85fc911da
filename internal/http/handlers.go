package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-dashboard-service/internal/client"
	"github.com/kjstillabower/weather-dashboard-service/internal/lifecycle"
	"github.com/kjstillabower/weather-dashboard-service/internal/observability"
	"github.com/kjstillabower/weather-dashboard-service/internal/service"
	"github.com/kjstillabower/weather-dashboard-service/internal/traffic"
	"github.com/kjstillabower/weather-dashboard-service/internal/units"
	"github.com/kjstillabower/weather-dashboard-service/internal/validation"
)

// HealthConfig holds the thresholds the health handler evaluates.
type HealthConfig struct {
	OverloadWindow       time.Duration
	OverloadThresholdPct int
	RateLimitRPS         int
	DegradedWindow       time.Duration
	DegradedErrorPct     int
	// CachePing, when set, is called to check cache reachability. Set for
	// backends that can be pinged (memcached, redis).
	CachePing func() error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	weatherService   *service.WeatherService
	client           client.WeatherClient
	healthConfig     *HealthConfig
	logger           *zap.Logger
	cityMinLen       int
	cityMaxLen       int
	defaultUnit      units.DisplayUnit
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. cityMinLen and cityMaxLen bound the city
// path variable; defaultUnit is used when the units query parameter is absent.
func NewHandler(
	weatherService *service.WeatherService,
	client client.WeatherClient,
	healthConfig *HealthConfig,
	logger *zap.Logger,
	cityMinLen, cityMaxLen int,
	defaultUnit units.DisplayUnit,
) *Handler {
	return &Handler{
		weatherService: weatherService,
		client:         client,
		healthConfig:   healthConfig,
		logger:         logger,
		cityMinLen:     cityMinLen,
		cityMaxLen:     cityMaxLen,
		defaultUnit:    defaultUnit,
	}
}

// GetWeather handles GET /weather/{city}?units=celsius|fahrenheit.
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	city, err := validation.ValidateCity(mux.Vars(r)["city"], h.cityMinLen, h.cityMaxLen)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_CITY", err.Error())
		return
	}

	unit := h.defaultUnit
	if q := r.URL.Query().Get("units"); q != "" {
		unit, err = units.Parse(q)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "INVALID_UNITS", "units must be celsius or fahrenheit")
			return
		}
	}

	report, err := h.weatherService.GetReport(r.Context(), city, unit)
	if err != nil {
		h.writeReportError(w, r, city, err)
		return
	}
	traffic.RecordSuccess()
	observability.RecordCityQuery(city, unit.String())
	writeJSON(w, http.StatusOK, report)
}

// writeReportError maps a service error to the response envelope. A city the
// provider does not know is the caller's mistake and does not count toward the
// upstream error rate; everything else does.
func (h *Handler) writeReportError(w http.ResponseWriter, r *http.Request, city string, err error) {
	switch {
	case errors.Is(err, client.ErrCityNotFound):
		traffic.RecordSuccess()
		writeError(w, r, http.StatusNotFound, "CITY_NOT_FOUND",
			fmt.Sprintf("city %q not found; try City,CC (e.g. London,GB)", city))
	case errors.Is(err, client.ErrInvalidAPIKey):
		traffic.RecordError()
		writeError(w, r, http.StatusServiceUnavailable, "UPSTREAM_AUTH",
			"weather provider rejected the configured API key")
	default:
		traffic.RecordError()
		writeError(w, r, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE",
			"Unable to fetch weather data")
	}
	if logger, ok := r.Context().Value("logger").(*zap.Logger); ok && logger != nil {
		logger.Debug("weather request failed", zap.String("city", city), zap.Error(err))
	}
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus(r.Context())

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := make(map[string]string)
	if result.status == "degraded" {
		checks["weatherApi"] = "unhealthy"
	} else {
		checks["weatherApi"] = "healthy"
	}
	if h.healthConfig != nil && h.healthConfig.CachePing != nil {
		if h.healthConfig.CachePing() == nil {
			checks["cache"] = "healthy"
		} else {
			checks["cache"] = "unhealthy"
		}
	}
	resp := map[string]interface{}{
		"status":    result.status,
		"service":   "weather-dashboard-service",
		"version":   "dev",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(result.statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

// computeHealthStatus evaluates health conditions in priority order:
// shutting-down > API key invalid > overloaded > degraded > healthy. Each
// condition is evaluated only if previous conditions are not met.
func (h *Handler) computeHealthStatus(ctx context.Context) healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if err := h.client.ValidateAPIKey(ctx); err != nil {
		return healthResult{"degraded", http.StatusServiceUnavailable, "api_key_invalid"}
	}
	if h.healthConfig == nil {
		return healthResult{"healthy", http.StatusOK, ""}
	}
	// Overloaded when window traffic exceeds the configured share of rate-limit capacity.
	if h.healthConfig.OverloadWindow > 0 && h.healthConfig.RateLimitRPS > 0 {
		threshold := float64(h.healthConfig.RateLimitRPS) * h.healthConfig.OverloadWindow.Seconds() * float64(h.healthConfig.OverloadThresholdPct) / 100
		if float64(traffic.RequestCount(h.healthConfig.OverloadWindow)) > threshold {
			return healthResult{"overloaded", http.StatusServiceUnavailable, "overload_threshold"}
		}
	}
	// Degraded when the upstream error rate breaches the configured percentage.
	if h.healthConfig.DegradedWindow > 0 && h.healthConfig.DegradedErrorPct > 0 {
		errCount, total := traffic.ErrorRate(h.healthConfig.DegradedWindow)
		if total > 0 {
			pct := float64(errCount) * 100 / float64(total)
			if pct >= float64(h.healthConfig.DegradedErrorPct) {
				return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
			}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard envelope with code,
// message, and the correlation ID from request context as requestId.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	corrID := ""
	if v := r.Context().Value("correlation_id"); v != nil {
		corrID = v.(string)
	}
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}
