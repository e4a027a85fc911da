//go:build integration
// +build integration

package client

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"testing"
	"time"
)

func isValidAPIKeyFormat(key string) error {
	if len(key) != 32 {
		return fmt.Errorf("API key length is %d, expected 32", len(key))
	}

	hexPattern := regexp.MustCompile(`^[0-9a-fA-F]+$`)
	if !hexPattern.MatchString(key) {
		return fmt.Errorf("API key contains non-hexadecimal characters")
	}

	return nil
}

func TestOpenWeatherClient_ValidateAPIKey_Integration(t *testing.T) {
	apiKey := os.Getenv("WEATHER_API_KEY")
	if apiKey == "" {
		t.Skip("WEATHER_API_KEY not set, skipping integration test")
	}

	if err := isValidAPIKeyFormat(apiKey); err != nil {
		t.Fatalf("API key format validation failed: %v", err)
	}

	client, err := NewOpenWeatherClient(apiKey, "https://api.openweathermap.org/data/2.5", 5*time.Second)
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}

	ctx := context.Background()
	err = client.ValidateAPIKey(ctx)
	if err != nil {
		t.Errorf("ValidateAPIKey() error = %v, want nil (API key may not be activated yet)", err)
	}
}

func TestOpenWeatherClient_GetCurrentWeather_Integration(t *testing.T) {
	apiKey := os.Getenv("WEATHER_API_KEY")
	if apiKey == "" {
		t.Skip("WEATHER_API_KEY not set, skipping integration test")
	}

	if err := isValidAPIKeyFormat(apiKey); err != nil {
		t.Fatalf("API key format validation failed: %v", err)
	}

	client, err := NewOpenWeatherClient(apiKey, "https://api.openweathermap.org/data/2.5", 5*time.Second)
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}

	ctx := context.Background()
	weather, err := client.GetCurrentWeather(ctx, "London")
	if err != nil {
		t.Fatalf("GetCurrentWeather() error = %v (API key may not be activated yet)", err)
	}

	if weather.City == "" {
		t.Error("GetCurrentWeather() returned empty city")
	}
	if weather.Timestamp.IsZero() {
		t.Error("GetCurrentWeather() returned zero timestamp")
	}
}

func TestOpenWeatherClient_GetForecast_Integration(t *testing.T) {
	apiKey := os.Getenv("WEATHER_API_KEY")
	if apiKey == "" {
		t.Skip("WEATHER_API_KEY not set, skipping integration test")
	}

	client, err := NewOpenWeatherClient(apiKey, "https://api.openweathermap.org/data/2.5", 5*time.Second)
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}

	ctx := context.Background()
	forecast, err := client.GetForecast(ctx, "London")
	if err != nil {
		t.Fatalf("GetForecast() error = %v (API key may not be activated yet)", err)
	}

	if forecast.City == "" {
		t.Error("GetForecast() returned empty city")
	}
	if len(forecast.Points) == 0 {
		t.Error("GetForecast() returned no points")
	}
	for i := 1; i < len(forecast.Points); i++ {
		if forecast.Points[i].Timestamp.Before(forecast.Points[i-1].Timestamp) {
			t.Errorf("forecast points out of order at index %d", i)
		}
	}
}
