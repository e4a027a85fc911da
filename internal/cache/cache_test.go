package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kjstillabower/weather-dashboard-service/internal/models"
)

// TestInMemoryCache_GetSet verifies that Set stores values and Get retrieves
// them correctly with the expected data.
func TestInMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()

	val := models.WeatherReport{
		City:    "Mumbai",
		Country: "IN",
		Current: models.CurrentConditions{City: "Mumbai", Temperature: 30.5},
	}
	err := c.Set(ctx, "mumbai", val, time.Minute)
	if err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok, err := c.Get(ctx, "mumbai")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if got.City != val.City || got.Current.Temperature != val.Current.Temperature {
		t.Errorf("Get() = %+v, want %+v", got, val)
	}
}

// TestInMemoryCache_Get_Miss verifies that Get returns ok=false when
// the requested key does not exist in cache.
func TestInMemoryCache_Get_Miss(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()

	_, ok, err := c.Get(ctx, "nonexistent")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() ok = true, want false for miss")
	}
}

// TestInMemoryCache_Get_Expired verifies that Get returns ok=false for expired
// entries and removes them from cache on access.
func TestInMemoryCache_Get_Expired(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()

	val := models.WeatherReport{City: "Mumbai"}
	err := c.Set(ctx, "mumbai", val, 1*time.Millisecond)
	if err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	time.Sleep(2 * time.Millisecond)

	_, ok, err := c.Get(ctx, "mumbai")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() ok = true, want false for expired entry")
	}

	// Expired entry should be removed
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after expired entry removed", c.Len())
	}
}

// TestInMemoryCache_Overwrite verifies that a second Set for the same key
// replaces the earlier value and refreshes its TTL.
func TestInMemoryCache_Overwrite(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()

	_ = c.Set(ctx, "mumbai", models.WeatherReport{City: "Mumbai", Current: models.CurrentConditions{Temperature: 20}}, time.Minute)
	_ = c.Set(ctx, "mumbai", models.WeatherReport{City: "Mumbai", Current: models.CurrentConditions{Temperature: 25}}, time.Minute)

	got, ok, err := c.Get(ctx, "mumbai")
	if err != nil || !ok {
		t.Fatalf("Get() = ok=%v err=%v, want hit", ok, err)
	}
	if got.Current.Temperature != 25 {
		t.Errorf("Temperature = %v, want 25 (latest Set wins)", got.Current.Temperature)
	}
}

// TestInMemoryCache_ConcurrentAccess exercises mixed readers and writers; run
// with -race to catch lock regressions.
func TestInMemoryCache_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := fmt.Sprintf("city-%d", i%4)
			for j := 0; j < 100; j++ {
				if j%2 == 0 {
					_ = c.Set(ctx, key, models.WeatherReport{City: key}, time.Minute)
				} else {
					_, _, _ = c.Get(ctx, key)
				}
			}
		}()
	}
	wg.Wait()

	if c.Len() != 4 {
		t.Errorf("Len() = %d, want 4 distinct keys", c.Len())
	}
}
