// Package forecast reduces the upstream three-hourly forecast feed into the
// short daily trend a dashboard renders.
package forecast

import (
	"sort"
	"time"

	"github.com/kjstillabower/weather-dashboard-service/internal/models"
)

// maxTrendDays caps the shaped trend. The upstream forecast endpoint covers
// five days, so later calendar days are partial and dropped.
const maxTrendDays = 5

// Shape reduces raw forecast samples to at most one representative point per
// calendar day in the given zone, in chronological order.
//
// Each day's point carries the day's mean temperature, the minimum of the
// sampled lows, the maximum of the sampled highs, and the timestamp and
// conditions of the day's middle sample, which lands near midday on a full
// day of three-hourly samples. Shaping an already-shaped trend returns it
// unchanged.
func Shape(points []models.ForecastPoint, loc *time.Location) []models.ForecastPoint {
	days := groupByDay(points, loc)
	out := make([]models.ForecastPoint, 0, len(days))
	for _, d := range days {
		out = append(out, d.representative())
	}
	return out
}

// Summarize projects the shaped trend into display summaries keyed by local
// calendar date. Icon URLs are left empty; the caller resolves them against
// its configured icon host.
func Summarize(points []models.ForecastPoint, loc *time.Location) []models.DailySummary {
	if loc == nil {
		loc = time.UTC
	}
	days := groupByDay(points, loc)
	out := make([]models.DailySummary, 0, len(days))
	for _, d := range days {
		rep := d.representative()
		out = append(out, models.DailySummary{
			Date:        rep.Timestamp.In(loc).Format("2006-01-02"),
			Temperature: rep.Temperature,
			TempMin:     rep.TempMin,
			TempMax:     rep.TempMax,
			Humidity:    rep.Humidity,
			WindSpeed:   rep.WindSpeed,
			Conditions:  rep.Conditions,
			Description: rep.Description,
			Icon:        rep.Icon,
		})
	}
	return out
}

// day collects the samples that share one local calendar date.
type day struct {
	samples []models.ForecastPoint
}

// representative collapses a day's samples into a single point.
func (d day) representative() models.ForecastPoint {
	mid := d.samples[len(d.samples)/2]
	rep := mid

	sum := 0.0
	rep.TempMin = d.samples[0].TempMin
	rep.TempMax = d.samples[0].TempMax
	for _, s := range d.samples {
		sum += s.Temperature
		if s.TempMin < rep.TempMin {
			rep.TempMin = s.TempMin
		}
		if s.TempMax > rep.TempMax {
			rep.TempMax = s.TempMax
		}
	}
	rep.Temperature = sum / float64(len(d.samples))
	return rep
}

// groupByDay buckets samples by local calendar date, chronologically, keeping
// at most maxTrendDays buckets. Input order is not trusted; samples are
// sorted by timestamp first so repeated shaping is stable.
func groupByDay(points []models.ForecastPoint, loc *time.Location) []day {
	if len(points) == 0 {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}

	sorted := make([]models.ForecastPoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var days []day
	var curKey string
	for _, p := range sorted {
		key := p.Timestamp.In(loc).Format("2006-01-02")
		if len(days) == 0 || key != curKey {
			if len(days) == maxTrendDays {
				break
			}
			days = append(days, day{})
			curKey = key
		}
		last := &days[len(days)-1]
		last.samples = append(last.samples, p)
	}
	return days
}
