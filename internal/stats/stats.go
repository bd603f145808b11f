// Package stats derives read-only aggregates from behavior incidents. Every
// function is pure: results depend only on the incident list and the instant
// passed as now, so callers control the clock.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/ash-tracker/behavior-api/internal/models"
)

// DailyFrequency produces one entry per calendar day from (now − days + 1) to
// now inclusive, in chronological order. Days without incidents are included
// with a zero count. Calendar days follow the location of now.
func DailyFrequency(incidents []models.BehaviorIncident, days int, now time.Time) []models.DailyCount {
	if days <= 0 {
		return []models.DailyCount{}
	}

	perDay := make(map[string]int, len(incidents))
	for _, incident := range incidents {
		key := incident.OccurredAt.In(now.Location()).Format("2006-01-02")
		perDay[key]++
	}

	series := make([]models.DailyCount, 0, days)
	start := startOfDay(now).AddDate(0, 0, -(days - 1))
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i)
		key := day.Format("2006-01-02")
		series = append(series, models.DailyCount{
			Date:  key,
			Label: day.Format("Jan 2"),
			Count: perDay[key],
		})
	}
	return series
}

// Breakdown maps behavior types to counts and percentage of total (one
// decimal place), sorted descending by count. Ties keep the order in which a
// type was first encountered.
func Breakdown(incidents []models.BehaviorIncident) []models.TypeBreakdown {
	counts := make(map[models.BehaviorType]int)
	order := make([]models.BehaviorType, 0)
	for _, incident := range incidents {
		if _, seen := counts[incident.BehaviorType]; !seen {
			order = append(order, incident.BehaviorType)
		}
		counts[incident.BehaviorType]++
	}

	total := len(incidents)
	entries := make([]models.TypeBreakdown, 0, len(order))
	for _, t := range order {
		entries = append(entries, models.TypeBreakdown{
			Type:       t,
			Label:      t.Label(),
			Count:      counts[t],
			Percentage: round1(float64(counts[t]) / float64(total) * 100),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})
	return entries
}

// Fixed local-time bands for TimeOfDay.
var timeOfDayBands = []struct {
	period string
	label  string
	from   int // inclusive hour
	to     int // exclusive hour
}{
	{"morning", "Morning (6am-12pm)", 6, 12},
	{"afternoon", "Afternoon (12pm-6pm)", 12, 18},
	{"evening", "Evening (6pm-12am)", 18, 24},
	{"night", "Night (12am-6am)", 0, 6},
}

// TimeOfDay partitions incidents into four fixed bands by the local hour of
// the event timestamp. Empty bands are omitted from the result.
func TimeOfDay(incidents []models.BehaviorIncident) []models.TimeOfDayBucket {
	counts := make([]int, len(timeOfDayBands))
	for _, incident := range incidents {
		hour := incident.OccurredAt.Local().Hour()
		for i, band := range timeOfDayBands {
			if hour >= band.from && hour < band.to {
				counts[i]++
				break
			}
		}
	}

	buckets := make([]models.TimeOfDayBucket, 0, len(timeOfDayBands))
	for i, band := range timeOfDayBands {
		if counts[i] == 0 {
			continue
		}
		buckets = append(buckets, models.TimeOfDayBucket{
			Period: band.period,
			Label:  band.label,
			Count:  counts[i],
		})
	}
	return buckets
}

// TopTriggers counts distinct antecedents, skipping the "Not specified"
// sentinel, and returns at most limit entries sorted descending by count.
func TopTriggers(incidents []models.BehaviorIncident, limit int) []models.TriggerCount {
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, incident := range incidents {
		trigger := incident.Antecedent
		if trigger == "" || trigger == models.AntecedentNotSpecified {
			continue
		}
		if _, seen := counts[trigger]; !seen {
			order = append(order, trigger)
		}
		counts[trigger]++
	}

	triggers := make([]models.TriggerCount, 0, len(order))
	for _, trigger := range order {
		triggers = append(triggers, models.TriggerCount{Trigger: trigger, Count: counts[trigger]})
	}
	sort.SliceStable(triggers, func(i, j int) bool {
		return triggers[i].Count > triggers[j].Count
	})
	if limit > 0 && len(triggers) > limit {
		triggers = triggers[:limit]
	}
	return triggers
}

// ComputeTrend splits the trailing window at its midpoint day and compares
// average incidents per day between the recent and earlier halves. It returns
// nil for fewer than 2 incidents. When the earlier half is empty the percent
// change is undefined; the result then reports Defined=false instead of
// dividing by zero.
func ComputeTrend(incidents []models.BehaviorIncident, days int, now time.Time) *models.Trend {
	if len(incidents) < 2 || days < 2 {
		return nil
	}

	midpoint := days / 2
	cutoff := now.AddDate(0, 0, -midpoint)

	recentCount := 0
	for _, incident := range incidents {
		if !incident.OccurredAt.Before(cutoff) {
			recentCount++
		}
	}
	olderCount := len(incidents) - recentCount

	recentAvg := float64(recentCount) / float64(midpoint)
	olderAvg := float64(olderCount) / float64(days-midpoint)

	if olderAvg == 0 {
		direction := models.TrendStable
		if recentAvg > 0 {
			direction = models.TrendUp
		}
		return &models.Trend{Direction: direction, Defined: false}
	}

	change := (recentAvg - olderAvg) / olderAvg * 100
	direction := models.TrendStable
	switch {
	case change > 0:
		direction = models.TrendUp
	case change < 0:
		direction = models.TrendDown
	}
	return &models.Trend{
		Direction:  direction,
		Percentage: round1(math.Abs(change)),
		Defined:    true,
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
