package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-dashboard-service/internal/cache"
	"github.com/kjstillabower/weather-dashboard-service/internal/client"
	"github.com/kjstillabower/weather-dashboard-service/internal/forecast"
	"github.com/kjstillabower/weather-dashboard-service/internal/models"
	"github.com/kjstillabower/weather-dashboard-service/internal/observability"
	"github.com/kjstillabower/weather-dashboard-service/internal/units"
)

// outlookSamples is how many three-hour forecast samples the near-term outlook
// carries (12 samples = 36 hours).
const outlookSamples = 12

// WeatherService orchestrates weather report retrieval using a cache-aside
// pattern with upstream API fallback. Cached reports are canonical (Celsius);
// display conversion happens per request after retrieval.
type WeatherService struct {
	client          client.WeatherClient
	cache           cache.Cache
	ttl             time.Duration
	iconBaseURL     string
	stampedeTracker *stampedeTracker
	coalescer       *requestCoalescer // Optional request coalescing (nil if disabled)
}

// NewWeatherService creates a new WeatherService with the provided dependencies.
// TTL specifies the cache expiration duration for composed reports.
// iconBaseURL is the base for condition icon image URLs.
// coalesceEnabled and coalesceTimeout configure request coalescing (disabled if timeout 0).
func NewWeatherService(client client.WeatherClient, cache cache.Cache, ttl time.Duration, iconBaseURL string, coalesceEnabled bool, coalesceTimeout time.Duration) *WeatherService {
	var coalescer *requestCoalescer
	if coalesceEnabled && coalesceTimeout > 0 {
		coalescer = newRequestCoalescer(coalesceTimeout)
	}
	return &WeatherService{
		client:          client,
		cache:           cache,
		ttl:             ttl,
		iconBaseURL:     iconBaseURL,
		stampedeTracker: newStampedeTracker(),
		coalescer:       coalescer,
	}
}

// loggerFromContext extracts a zap.Logger from request context if present.
// Returns nil if logger is not found or context is invalid.
func loggerFromContext(ctx context.Context) *zap.Logger {
	if v := ctx.Value("logger"); v != nil {
		if l, ok := v.(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return nil
}

// GetReport retrieves the composed weather report for a city in the requested
// display unit, using a cache-aside pattern. Checks cache first, falls back to
// the upstream API on miss, and populates cache with the canonical report on
// success. The returned report is converted to the requested unit; the cached
// copy always stays Celsius so one entry serves every unit.
func (s *WeatherService) GetReport(ctx context.Context, city string, unit units.DisplayUnit) (models.WeatherReport, error) {
	key := normalizeCity(city)
	start := time.Now()
	logger := loggerFromContext(ctx)

	getStart := time.Now()
	cached, ok, err := s.cache.Get(ctx, key)
	getDuration := time.Since(getStart).Seconds()
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues("get", categorizeCacheError(err)).Inc()
		observability.CacheOperationDurationSeconds.WithLabelValues("get", "error").Observe(getDuration)
	} else if ok {
		observability.CacheOperationDurationSeconds.WithLabelValues("get", "success").Observe(getDuration)
		observability.CacheHitsTotal.WithLabelValues("weather").Inc()
		if logger != nil {
			logger.Debug("cache hit", zap.String("city", key))
			logger.Debug("report served", zap.String("city", key), zap.Bool("cached", true), zap.Duration("duration", time.Since(start)))
		}
		cached.Cached = true
		return convertReport(cached, unit), nil
	}

	concurrentMisses := s.stampedeTracker.RecordMiss(key)
	defer s.stampedeTracker.RecordHit(key)
	cityLabel := observability.MetricCityLabel(key)
	if concurrentMisses > 1 {
		observability.CacheStampedeDetectedTotal.WithLabelValues(cityLabel).Inc()
		observability.CacheStampedeConcurrency.WithLabelValues(cityLabel).Observe(float64(concurrentMisses))
	}

	if logger != nil {
		logger.Debug("cache miss, fetching upstream", zap.String("city", key))
	}

	// Use coalescer if enabled to prevent concurrent upstream calls for same key
	var report models.WeatherReport
	var upstreamErr error
	if s.coalescer != nil {
		coalesceStart := time.Now()
		report, upstreamErr = s.coalescer.GetOrDo(ctx, key, func() (models.WeatherReport, error) {
			return s.fetchReport(ctx, key)
		})
		coalesceWait := time.Since(coalesceStart)
		if upstreamErr == nil {
			// Check if we waited (coalesced) vs initiated the request
			// If wait time > 0, we likely coalesced (approximate)
			if coalesceWait > 10*time.Millisecond {
				observability.RequestCoalescingHitsTotal.WithLabelValues(cityLabel).Inc()
			}
			observability.RequestCoalescingWaitSeconds.Observe(coalesceWait.Seconds())
		}
	} else {
		report, upstreamErr = s.fetchReport(ctx, key)
	}
	if upstreamErr != nil {
		return models.WeatherReport{}, upstreamErr
	}

	setStart := time.Now()
	if setErr := s.cache.Set(ctx, key, report, s.ttl); setErr != nil {
		observability.CacheErrorsTotal.WithLabelValues("set", categorizeCacheError(setErr)).Inc()
		observability.CacheOperationDurationSeconds.WithLabelValues("set", "error").Observe(time.Since(setStart).Seconds())
		if logger != nil {
			logger.Warn("cache set failed", zap.String("city", key), zap.Error(setErr))
		}
	} else {
		observability.CacheOperationDurationSeconds.WithLabelValues("set", "success").Observe(time.Since(setStart).Seconds())
	}
	if logger != nil {
		logger.Debug("report served", zap.String("city", key), zap.Bool("cached", false), zap.Duration("duration", time.Since(start)))
	}
	return convertReport(report, unit), nil
}

// fetchReport fetches current conditions and the forecast concurrently, then
// composes the canonical report. Both upstream calls must succeed; a dashboard
// report without either half is not served.
func (s *WeatherService) fetchReport(ctx context.Context, city string) (models.WeatherReport, error) {
	var (
		wg          sync.WaitGroup
		current     models.CurrentConditions
		fc          models.Forecast
		currentErr  error
		forecastErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		current, currentErr = s.client.GetCurrentWeather(ctx, city)
	}()
	go func() {
		defer wg.Done()
		fc, forecastErr = s.client.GetForecast(ctx, city)
	}()
	wg.Wait()

	if currentErr != nil {
		return models.WeatherReport{}, fmt.Errorf("fetch current weather for %s: %w", city, currentErr)
	}
	if forecastErr != nil {
		return models.WeatherReport{}, fmt.Errorf("fetch forecast for %s: %w", city, forecastErr)
	}

	return s.composeReport(current, fc), nil
}

// composeReport shapes the raw forecast into the daily trend and near-term
// outlook, resolves icon URLs, and assembles the canonical (Celsius) report.
// The outlook is the raw three-hourly strip; the daily summaries come from the
// shaped per-day trend.
func (s *WeatherService) composeReport(current models.CurrentConditions, fc models.Forecast) models.WeatherReport {
	loc := fc.Timezone()
	points := forecast.Shape(fc.Points, loc)
	daily := forecast.Summarize(points, loc)

	n := len(fc.Points)
	if n > outlookSamples {
		n = outlookSamples
	}
	outlook := make([]models.ForecastPoint, n)
	copy(outlook, fc.Points[:n])

	current.IconURL = models.IconURL(s.iconBaseURL, current.Icon)
	for i := range daily {
		daily[i].IconURL = models.IconURL(s.iconBaseURL, daily[i].Icon)
	}

	return models.WeatherReport{
		City:      current.City,
		Country:   current.Country,
		Units:     units.Celsius.String(),
		FetchedAt: time.Now().UTC(),
		Current:   current,
		Daily:     daily,
		Outlook:   outlook,
	}
}

// convertReport renders a canonical report in the requested display unit. The
// slices are copied so the cached canonical report is never mutated.
func convertReport(report models.WeatherReport, unit units.DisplayUnit) models.WeatherReport {
	out := report
	out.Units = unit.String()

	out.Current.Temperature = units.Convert(report.Current.Temperature, unit)
	out.Current.FeelsLike = units.Convert(report.Current.FeelsLike, unit)
	out.Current.TempMin = units.Convert(report.Current.TempMin, unit)
	out.Current.TempMax = units.Convert(report.Current.TempMax, unit)

	out.Daily = make([]models.DailySummary, len(report.Daily))
	copy(out.Daily, report.Daily)
	for i := range out.Daily {
		out.Daily[i].Temperature = units.Convert(out.Daily[i].Temperature, unit)
		out.Daily[i].TempMin = units.Convert(out.Daily[i].TempMin, unit)
		out.Daily[i].TempMax = units.Convert(out.Daily[i].TempMax, unit)
	}

	out.Outlook = make([]models.ForecastPoint, len(report.Outlook))
	copy(out.Outlook, report.Outlook)
	for i := range out.Outlook {
		out.Outlook[i].Temperature = units.Convert(out.Outlook[i].Temperature, unit)
		out.Outlook[i].FeelsLike = units.Convert(out.Outlook[i].FeelsLike, unit)
		out.Outlook[i].TempMin = units.Convert(out.Outlook[i].TempMin, unit)
		out.Outlook[i].TempMax = units.Convert(out.Outlook[i].TempMax, unit)
	}

	return out
}

// categorizeCacheError returns a stable label for cache error metrics (timeout, connection, unknown).
func categorizeCacheError(err error) string {
	if err == nil {
		return "unknown"
	}
	errStr := err.Error()
	if strings.Contains(errStr, "timeout") {
		return "timeout"
	}
	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "network") {
		return "connection"
	}
	return "unknown"
}

// normalizeCity normalizes city strings by trimming whitespace and converting
// to lowercase. Used to ensure consistent cache keys and API requests
// regardless of input format.
func normalizeCity(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}
