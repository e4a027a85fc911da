package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-dashboard-service/internal/circuitbreaker"
	"github.com/kjstillabower/weather-dashboard-service/internal/models"
	"github.com/kjstillabower/weather-dashboard-service/internal/observability"
)

// WeatherClient fetches weather data from the upstream provider. Both calls
// return canonical-Celsius values; display conversion happens downstream.
type WeatherClient interface {
	GetCurrentWeather(ctx context.Context, city string) (models.CurrentConditions, error)
	GetForecast(ctx context.Context, city string) (models.Forecast, error)
	ValidateAPIKey(ctx context.Context) error
}

var (
	ErrInvalidAPIKey   = errors.New("invalid API key")
	ErrCityNotFound    = errors.New("city not found")
	ErrUpstreamFailure = errors.New("upstream failure")
	ErrRateLimited     = errors.New("rate limited")
)

// Upstream endpoint names, appended to the configured base URL and used as
// the endpoint label on client metrics.
const (
	endpointCurrent  = "weather"
	endpointForecast = "forecast"
)

type OpenWeatherClient struct {
	apiKey         string
	baseURL        string
	timeout        time.Duration
	client         *http.Client
	retryAttempts  int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	limiter        *rate.Limiter
	breaker        *circuitbreaker.CircuitBreaker
}

func NewOpenWeatherClient(apiKey, baseURL string, timeout time.Duration) (*OpenWeatherClient, error) {
	return NewOpenWeatherClientWithRetry(apiKey, baseURL, timeout, 3, 100*time.Millisecond, 2*time.Second)
}

func NewOpenWeatherClientWithRetry(apiKey, baseURL string, timeout time.Duration, retryAttempts int, retryBaseDelay, retryMaxDelay time.Duration) (*OpenWeatherClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidAPIKey)
	}
	if len(apiKey) < 10 {
		return nil, fmt.Errorf("%w: API key appears invalid (too short)", ErrInvalidAPIKey)
	}

	return &OpenWeatherClient{
		apiKey:         apiKey,
		baseURL:        baseURL,
		timeout:        timeout,
		retryAttempts:  retryAttempts,
		retryBaseDelay: retryBaseDelay,
		retryMaxDelay:  retryMaxDelay,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// SetRateLimiter installs client-side pacing toward the upstream API. Calls
// block until the limiter grants a token or the context expires. Nil disables
// pacing.
func (c *OpenWeatherClient) SetRateLimiter(l *rate.Limiter) {
	c.limiter = l
}

// SetCircuitBreaker installs a breaker around upstream calls. While open,
// calls fail fast with circuitbreaker.ErrOpen instead of hitting the API.
// Nil disables the breaker.
func (c *OpenWeatherClient) SetCircuitBreaker(cb *circuitbreaker.CircuitBreaker) {
	c.breaker = cb
}

type currentWeatherResponse struct {
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Pressure  int     `json:"pressure"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Visibility int `json:"visibility"`
	Wind       struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Dt  int64 `json:"dt"`
	Sys struct {
		Country string `json:"country"`
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
	} `json:"sys"`
	Timezone int    `json:"timezone"`
	Name     string `json:"name"`
}

type forecastResponse struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			TempMin   float64 `json:"temp_min"`
			TempMax   float64 `json:"temp_max"`
			Humidity  int     `json:"humidity"`
		} `json:"main"`
		Weather []struct {
			Main        string `json:"main"`
			Description string `json:"description"`
			Icon        string `json:"icon"`
		} `json:"weather"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
	} `json:"list"`
	City struct {
		Name     string `json:"name"`
		Country  string `json:"country"`
		Timezone int    `json:"timezone"`
	} `json:"city"`
}

func (c *OpenWeatherClient) GetCurrentWeather(ctx context.Context, city string) (models.CurrentConditions, error) {
	var out models.CurrentConditions
	err := c.withRetry(ctx, endpointCurrent, func(ctx context.Context) error {
		body, err := c.callEndpoint(ctx, endpointCurrent, city)
		if err != nil {
			return err
		}
		var apiResp currentWeatherResponse
		if err := json.Unmarshal(body, &apiResp); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
		out = mapCurrent(apiResp, city)
		return nil
	})
	if err != nil {
		return models.CurrentConditions{}, err
	}
	return out, nil
}

func (c *OpenWeatherClient) GetForecast(ctx context.Context, city string) (models.Forecast, error) {
	var out models.Forecast
	err := c.withRetry(ctx, endpointForecast, func(ctx context.Context) error {
		body, err := c.callEndpoint(ctx, endpointForecast, city)
		if err != nil {
			return err
		}
		var apiResp forecastResponse
		if err := json.Unmarshal(body, &apiResp); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
		out = mapForecast(apiResp, city)
		return nil
	})
	if err != nil {
		return models.Forecast{}, err
	}
	return out, nil
}

// withRetry runs fn with exponential backoff. Non-retryable errors (bad key,
// unknown city, open breaker) return immediately.
func (c *OpenWeatherClient) withRetry(ctx context.Context, endpoint string, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		if attempt > 0 {
			observability.WeatherAPIRetriesTotal.WithLabelValues(endpoint).Inc()
			delay := c.calculateBackoff(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}

		lastErr = err
		if !c.isRetryable(err) {
			observability.WeatherAPIErrorsTotal.WithLabelValues(endpoint, string(CategorizeError(err))).Inc()
			return err
		}
	}

	observability.WeatherAPIErrorsTotal.WithLabelValues(endpoint, string(CategorizeError(lastErr))).Inc()
	return fmt.Errorf("exhausted retries: %w", lastErr)
}

// callEndpoint performs one paced, breaker-guarded HTTP call and returns the
// response body on 2xx.
func (c *OpenWeatherClient) callEndpoint(ctx context.Context, endpoint, city string) ([]byte, error) {
	if c.limiter != nil {
		waitStart := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("upstream rate limit wait: %w", err)
		}
		observability.UpstreamRateLimitWaitSeconds.Observe(time.Since(waitStart).Seconds())
	}

	if c.breaker == nil {
		return c.doRequest(ctx, endpoint, city)
	}

	var body []byte
	var callErr error
	err := c.breaker.Call(ctx, func() error {
		body, callErr = c.doRequest(ctx, endpoint, city)
		if callErr != nil && !countsAsBreakerFailure(callErr) {
			// Caller mistakes (unknown city, bad key) must not open the
			// circuit for everyone else.
			return nil
		}
		return callErr
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}
	if callErr != nil {
		return nil, callErr
	}
	return body, err
}

func (c *OpenWeatherClient) doRequest(ctx context.Context, endpoint, city string) ([]byte, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx, endpoint, city)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("build request: %w", err)
	}

	corrID := extractCorrelationID(ctx)
	if corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		duration := time.Since(start).Seconds()
		observability.WeatherAPICallsTotal.WithLabelValues(endpoint, "error").Inc()
		observability.WeatherAPIDuration.WithLabelValues(endpoint, "error").Observe(duration)

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("request timeout: %w", err)
		}
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start).Seconds()
	status := statusLabel(resp.StatusCode)
	observability.WeatherAPICallsTotal.WithLabelValues(endpoint, status).Inc()
	observability.WeatherAPIDuration.WithLabelValues(endpoint, status).Observe(duration)

	if err := c.handleErrorResponse(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}

func (c *OpenWeatherClient) isRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, circuitbreaker.ErrOpen) {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	if errors.Is(err, ErrUpstreamFailure) {
		return true
	}

	errStr := err.Error()
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "context deadline exceeded") || strings.Contains(errStr, "context canceled") {
		return true
	}

	return false
}

// countsAsBreakerFailure reports whether an error indicates upstream health
// trouble rather than a per-request caller mistake.
func countsAsBreakerFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCityNotFound) || errors.Is(err, ErrInvalidAPIKey) {
		return false
	}
	return true
}

func (c *OpenWeatherClient) calculateBackoff(attempt int) time.Duration {
	delay := float64(c.retryBaseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(c.retryMaxDelay) {
		delay = float64(c.retryMaxDelay)
	}

	jitter := delay * 0.1 * rand.Float64()
	return time.Duration(delay + jitter)
}

func (c *OpenWeatherClient) buildRequest(ctx context.Context, endpoint, city string) (*http.Request, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	endpointURL := base.JoinPath(endpoint)

	params := url.Values{}
	params.Set("q", city)
	params.Set("appid", c.apiKey)
	params.Set("units", "metric")
	endpointURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", endpointURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *OpenWeatherClient) handleErrorResponse(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: invalid API key", ErrInvalidAPIKey)
	case http.StatusNotFound:
		return fmt.Errorf("%w", ErrCityNotFound)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w", ErrRateLimited)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}

	return nil
}

func mapCurrent(apiResp currentWeatherResponse, city string) models.CurrentConditions {
	conditions := ""
	description := ""
	icon := ""
	if len(apiResp.Weather) > 0 {
		conditions = apiResp.Weather[0].Main
		description = apiResp.Weather[0].Description
		icon = apiResp.Weather[0].Icon
	}

	displayName := apiResp.Name
	if displayName == "" {
		displayName = city
	}

	tz := models.FixedTimezone(apiResp.Timezone)

	return models.CurrentConditions{
		City:           displayName,
		Country:        apiResp.Sys.Country,
		Timestamp:      time.Unix(apiResp.Dt, 0).In(tz),
		Conditions:     conditions,
		Description:    description,
		Icon:           icon,
		Temperature:    apiResp.Main.Temp,
		FeelsLike:      apiResp.Main.FeelsLike,
		TempMin:        apiResp.Main.TempMin,
		TempMax:        apiResp.Main.TempMax,
		Humidity:       apiResp.Main.Humidity,
		Pressure:       apiResp.Main.Pressure,
		WindSpeed:      apiResp.Wind.Speed,
		Visibility:     apiResp.Visibility,
		Sunrise:        time.Unix(apiResp.Sys.Sunrise, 0).In(tz),
		Sunset:         time.Unix(apiResp.Sys.Sunset, 0).In(tz),
		TimezoneOffset: apiResp.Timezone,
	}
}

func mapForecast(apiResp forecastResponse, city string) models.Forecast {
	displayName := apiResp.City.Name
	if displayName == "" {
		displayName = city
	}

	tz := models.FixedTimezone(apiResp.City.Timezone)

	points := make([]models.ForecastPoint, 0, len(apiResp.List))
	for _, item := range apiResp.List {
		p := models.ForecastPoint{
			Timestamp:   time.Unix(item.Dt, 0).In(tz),
			Temperature: item.Main.Temp,
			FeelsLike:   item.Main.FeelsLike,
			TempMin:     item.Main.TempMin,
			TempMax:     item.Main.TempMax,
			Humidity:    item.Main.Humidity,
			WindSpeed:   item.Wind.Speed,
		}
		if len(item.Weather) > 0 {
			p.Conditions = item.Weather[0].Main
			p.Description = item.Weather[0].Description
			p.Icon = item.Weather[0].Icon
		}
		points = append(points, p)
	}

	return models.Forecast{
		City:           displayName,
		Country:        apiResp.City.Country,
		TimezoneOffset: apiResp.City.Timezone,
		Points:         points,
	}
}

func extractCorrelationID(ctx context.Context) string {
	if corrIDVal := ctx.Value("correlation_id"); corrIDVal != nil {
		if corrID, ok := corrIDVal.(string); ok {
			return corrID
		}
	}
	return ""
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}

// ValidateAPIKey probes the current-weather endpoint with a known city. Used
// by health checks; bypasses retry, pacing, and the breaker so a health probe
// never competes with real traffic.
func (c *OpenWeatherClient) ValidateAPIKey(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := c.buildRequest(ctx, endpointCurrent, "London")
	if err != nil {
		return fmt.Errorf("build validation request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("validation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: API key is invalid or not activated", ErrInvalidAPIKey)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("validation failed: HTTP %d", resp.StatusCode)
	}

	return nil
}
