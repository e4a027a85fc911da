package models

import (
	"fmt"
	"strings"
	"time"
)

// CurrentConditions is the present-moment observation for a city, as returned
// by the upstream current-weather endpoint. Temperatures are canonical Celsius
// until a report is rendered for a display unit.
type CurrentConditions struct {
	City           string    `json:"city"`
	Country        string    `json:"country,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	Conditions     string    `json:"conditions"`  // group, e.g. "Clouds"
	Description    string    `json:"description"` // detail, e.g. "scattered clouds"
	Icon           string    `json:"icon,omitempty"`
	IconURL        string    `json:"iconUrl,omitempty"`
	Temperature    float64   `json:"temperature"`
	FeelsLike      float64   `json:"feelsLike"`
	TempMin        float64   `json:"tempMin"`
	TempMax        float64   `json:"tempMax"`
	Humidity       int       `json:"humidity"`
	Pressure       int       `json:"pressure"`
	WindSpeed      float64   `json:"windSpeed"` // m/s regardless of display unit
	Visibility     int       `json:"visibility,omitempty"`
	Sunrise        time.Time `json:"sunrise"`
	Sunset         time.Time `json:"sunset"`
	TimezoneOffset int       `json:"timezoneOffset"` // seconds east of UTC
}

// ForecastPoint is a single forecast sample. The upstream forecast endpoint
// emits one every three hours; a shaped trend holds one per calendar day.
type ForecastPoint struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	FeelsLike   float64   `json:"feelsLike,omitempty"`
	TempMin     float64   `json:"tempMin"`
	TempMax     float64   `json:"tempMax"`
	Humidity    int       `json:"humidity"`
	WindSpeed   float64   `json:"windSpeed"`
	Conditions  string    `json:"conditions"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon,omitempty"`
}

// Forecast is the raw multi-day forecast for a city.
type Forecast struct {
	City           string          `json:"city"`
	Country        string          `json:"country,omitempty"`
	TimezoneOffset int             `json:"timezoneOffset"` // seconds east of UTC
	Points         []ForecastPoint `json:"points"`
}

// Timezone returns the city's local zone as a fixed-offset location.
// Calendar-day grouping of forecast points must happen in this zone, not UTC.
func (f Forecast) Timezone() *time.Location {
	return FixedTimezone(f.TimezoneOffset)
}

// FixedTimezone builds a fixed-offset location from an upstream UTC offset in
// seconds. Offset zero is returned as UTC.
func FixedTimezone(offsetSeconds int) *time.Location {
	if offsetSeconds == 0 {
		return time.UTC
	}
	sign := "+"
	secs := offsetSeconds
	if secs < 0 {
		sign = "-"
		secs = -secs
	}
	name := fmt.Sprintf("UTC%s%02d:%02d", sign, secs/3600, (secs%3600)/60)
	return time.FixedZone(name, offsetSeconds)
}

// DailySummary is one calendar day of a shaped forecast: mean temperature,
// the day's extremes, and the midday-representative conditions.
type DailySummary struct {
	Date        string  `json:"date"` // YYYY-MM-DD in the city's local zone
	Temperature float64 `json:"temperature"`
	TempMin     float64 `json:"tempMin"`
	TempMax     float64 `json:"tempMax"`
	Humidity    int     `json:"humidity"`
	WindSpeed   float64 `json:"windSpeed"`
	Conditions  string  `json:"conditions"`
	Description string  `json:"description,omitempty"`
	Icon        string  `json:"icon,omitempty"`
	IconURL     string  `json:"iconUrl,omitempty"`
}

// WeatherReport is the composed dashboard payload: current conditions plus the
// shaped daily trend and the near-term hourly outlook, all in one display unit.
type WeatherReport struct {
	City      string            `json:"city"`
	Country   string            `json:"country,omitempty"`
	Units     string            `json:"units"`
	FetchedAt time.Time         `json:"fetchedAt"`
	Current   CurrentConditions `json:"current"`
	Daily     []DailySummary    `json:"daily"`
	Outlook   []ForecastPoint   `json:"outlook,omitempty"`
	Cached    bool              `json:"cached,omitempty"` // served from cache rather than upstream
}

// IconURL builds the image URL for an upstream icon code, e.g. "04d" becomes
// "<base>/04d@2x.png". Empty codes yield an empty URL.
func IconURL(base, code string) string {
	if code == "" || base == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s@2x.png", strings.TrimSuffix(base, "/"), code)
}
