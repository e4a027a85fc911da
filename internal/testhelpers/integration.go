//go:build integration
// +build integration

package testhelpers

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/kjstillabower/weather-dashboard-service/internal/cache"
	"github.com/kjstillabower/weather-dashboard-service/internal/client"
	"github.com/kjstillabower/weather-dashboard-service/internal/service"
)

// IntegrationTestConfig holds configuration for integration tests.
type IntegrationTestConfig struct {
	APIKey        string
	APIURL        string
	CacheBackend  string // "in_memory", "memcached" or "redis"
	MemcachedAddr string
	RedisURL      string
}

// GetIntegrationConfig loads integration test configuration from environment.
// Skips test if WEATHER_API_KEY is not set.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	apiKey := os.Getenv("WEATHER_API_KEY")
	if apiKey == "" {
		t.Skip("WEATHER_API_KEY not set, skipping integration test")
	}

	apiURL := os.Getenv("WEATHER_API_URL")
	if apiURL == "" {
		apiURL = "https://api.openweathermap.org/data/2.5"
	}

	cacheBackend := os.Getenv("INTEGRATION_CACHE_BACKEND")
	memcachedAddr := os.Getenv("MEMCACHED_ADDRS")
	if memcachedAddr == "" {
		memcachedAddr = "localhost:11211"
	}
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}

	return IntegrationTestConfig{
		APIKey:        apiKey,
		APIURL:        apiURL,
		CacheBackend:  cacheBackend,
		MemcachedAddr: memcachedAddr,
		RedisURL:      redisURL,
	}
}

// SetupIntegrationCache creates the cache backend selected by the config,
// falling back to in-memory when the external backend is unreachable.
func SetupIntegrationCache(t *testing.T, cfg IntegrationTestConfig) (cache.Cache, func()) {
	switch cfg.CacheBackend {
	case "memcached":
		memcachedCache, err := cache.NewMemcachedCache(cfg.MemcachedAddr, 500*time.Millisecond, 2)
		if err == nil {
			t.Logf("Using Memcached cache at %s", cfg.MemcachedAddr)
			return memcachedCache, func() { memcachedCache.Close() }
		}
		t.Logf("Memcached not available (%v), using in-memory cache", err)
	case "redis":
		redisCache, err := cache.NewRedisCache(context.Background(), cfg.RedisURL)
		if err == nil {
			t.Logf("Using Redis cache at %s", cfg.RedisURL)
			return redisCache, func() { redisCache.Close() }
		}
		t.Logf("Redis not available (%v), using in-memory cache", err)
	}
	return cache.NewInMemoryCache(), func() {}
}

// SetupIntegrationService creates a fully configured service for integration tests.
// Returns weather service, cache instance, and cleanup function.
func SetupIntegrationService(t *testing.T, cfg IntegrationTestConfig) (*service.WeatherService, cache.Cache, func()) {
	weatherClient, err := client.NewOpenWeatherClient(cfg.APIKey, cfg.APIURL, 5*time.Second)
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}

	cacheSvc, cleanup := SetupIntegrationCache(t, cfg)

	weatherService := service.NewWeatherService(weatherClient, cacheSvc, 5*time.Minute, "https://openweathermap.org/img/wn", false, 0)

	return weatherService, cacheSvc, cleanup
}

// SetupIntegrationClient creates a weather client for integration tests.
func SetupIntegrationClient(t *testing.T, cfg IntegrationTestConfig) client.WeatherClient {
	weatherClient, err := client.NewOpenWeatherClient(cfg.APIKey, cfg.APIURL, 5*time.Second)
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}
	return weatherClient
}
