package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ash-tracker/behavior-api/internal/models"
)

var testNow = time.Date(2024, 1, 15, 14, 30, 0, 0, time.Local)

func incidentAt(occurred time.Time, behaviorType models.BehaviorType, antecedent string) models.BehaviorIncident {
	return models.BehaviorIncident{
		ChildID:      "child-1",
		Antecedent:   antecedent,
		Behavior:     "observed",
		BehaviorType: behaviorType,
		Consequence:  models.AntecedentNotSpecified,
		OccurredAt:   occurred,
	}
}

func TestDailyFrequencyWindowShape(t *testing.T) {
	incidents := []models.BehaviorIncident{
		incidentAt(testNow, models.BehaviorAggression, ""),
		incidentAt(testNow.AddDate(0, 0, -2), models.BehaviorOther, ""),
		incidentAt(testNow.AddDate(0, 0, -2), models.BehaviorOther, ""),
		incidentAt(testNow.AddDate(0, 0, -6), models.BehaviorElopement, ""),
	}

	for _, days := range []int{7, 30, 90} {
		series := DailyFrequency(incidents, days, testNow)
		require.Len(t, series, days)

		sum := 0
		for i, day := range series {
			sum += day.Count
			if i > 0 {
				assert.Greater(t, day.Date, series[i-1].Date)
			}
		}
		assert.Equal(t, len(incidents), sum)
	}
}

func TestDailyFrequencyZeroFillAndBounds(t *testing.T) {
	incidents := []models.BehaviorIncident{
		incidentAt(testNow.AddDate(0, 0, -8), models.BehaviorOther, ""), // outside 7-day window
		incidentAt(testNow, models.BehaviorOther, ""),
	}

	series := DailyFrequency(incidents, 7, testNow)
	require.Len(t, series, 7)
	assert.Equal(t, "2024-01-09", series[0].Date)
	assert.Equal(t, "2024-01-15", series[6].Date)
	assert.Equal(t, "Jan 15", series[6].Label)
	assert.Equal(t, 1, series[6].Count)

	sum := 0
	for _, day := range series {
		sum += day.Count
	}
	assert.Equal(t, 1, sum, "incident outside the window must not be counted")
}

func TestDailyFrequencyEmpty(t *testing.T) {
	series := DailyFrequency(nil, 7, testNow)
	require.Len(t, series, 7)
	for _, day := range series {
		assert.Zero(t, day.Count)
	}
}

func TestBreakdownCountsAndPercentages(t *testing.T) {
	incidents := []models.BehaviorIncident{
		incidentAt(testNow, models.BehaviorAggression, ""),
		incidentAt(testNow, models.BehaviorAggression, ""),
		incidentAt(testNow, models.BehaviorTantrumMeltdown, ""),
	}

	entries := Breakdown(incidents)
	require.Len(t, entries, 2)
	assert.Equal(t, models.BehaviorAggression, entries[0].Type)
	assert.Equal(t, "aggression", entries[0].Label)
	assert.Equal(t, 2, entries[0].Count)
	assert.InDelta(t, 66.7, entries[0].Percentage, 0.001)
	assert.Equal(t, "tantrum meltdown", entries[1].Label)

	totalCount := 0
	totalPct := 0.0
	for _, e := range entries {
		totalCount += e.Count
		totalPct += e.Percentage
	}
	assert.Equal(t, len(incidents), totalCount)
	assert.InDelta(t, 100.0, totalPct, 0.2)
}

func TestBreakdownTieKeepsEncounterOrder(t *testing.T) {
	incidents := []models.BehaviorIncident{
		incidentAt(testNow, models.BehaviorElopement, ""),
		incidentAt(testNow, models.BehaviorSelfInjury, ""),
	}

	entries := Breakdown(incidents)
	require.Len(t, entries, 2)
	assert.Equal(t, models.BehaviorElopement, entries[0].Type)
	assert.Equal(t, models.BehaviorSelfInjury, entries[1].Type)
}

func TestBreakdownEmpty(t *testing.T) {
	assert.Empty(t, Breakdown(nil))
}

func TestTimeOfDayPartition(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.Local)
	incidents := []models.BehaviorIncident{
		incidentAt(day.Add(6*time.Hour), models.BehaviorOther, ""),  // morning boundary
		incidentAt(day.Add(11*time.Hour), models.BehaviorOther, ""), // morning
		incidentAt(day.Add(12*time.Hour), models.BehaviorOther, ""), // afternoon boundary
		incidentAt(day.Add(18*time.Hour), models.BehaviorOther, ""), // evening boundary
		incidentAt(day.Add(23*time.Hour), models.BehaviorOther, ""), // evening
		incidentAt(day, models.BehaviorOther, ""),                   // night (midnight)
		incidentAt(day.Add(5*time.Hour), models.BehaviorOther, ""),  // night
	}

	buckets := TimeOfDay(incidents)
	require.Len(t, buckets, 4)

	byPeriod := make(map[string]int)
	sum := 0
	for _, b := range buckets {
		byPeriod[b.Period] = b.Count
		sum += b.Count
	}
	assert.Equal(t, len(incidents), sum)
	assert.Equal(t, 2, byPeriod["morning"])
	assert.Equal(t, 1, byPeriod["afternoon"])
	assert.Equal(t, 2, byPeriod["evening"])
	assert.Equal(t, 2, byPeriod["night"])
}

func TestTimeOfDayOmitsEmptyBands(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.Local)
	incidents := []models.BehaviorIncident{
		incidentAt(day.Add(8*time.Hour), models.BehaviorOther, ""),
	}

	buckets := TimeOfDay(incidents)
	require.Len(t, buckets, 1)
	assert.Equal(t, "morning", buckets[0].Period)
	assert.Equal(t, "Morning (6am-12pm)", buckets[0].Label)
}

func TestTopTriggers(t *testing.T) {
	incidents := []models.BehaviorIncident{
		incidentAt(testNow, models.BehaviorAggression, "Denied preferred item"),
		incidentAt(testNow.AddDate(0, 0, -1), models.BehaviorAggression, "Denied preferred item"),
		incidentAt(testNow.AddDate(0, 0, -2), models.BehaviorOther, "Transition between activities"),
		incidentAt(testNow.AddDate(0, 0, -3), models.BehaviorOther, models.AntecedentNotSpecified),
		incidentAt(testNow.AddDate(0, 0, -4), models.BehaviorOther, ""),
	}

	triggers := TopTriggers(incidents, 5)
	require.Len(t, triggers, 2)
	assert.Equal(t, models.TriggerCount{Trigger: "Denied preferred item", Count: 2}, triggers[0])
	assert.Equal(t, models.TriggerCount{Trigger: "Transition between activities", Count: 1}, triggers[1])
}

func TestTopTriggersLimit(t *testing.T) {
	incidents := make([]models.BehaviorIncident, 0, 8)
	for _, trigger := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		incidents = append(incidents, incidentAt(testNow, models.BehaviorOther, trigger))
	}

	triggers := TopTriggers(incidents, 5)
	assert.Len(t, triggers, 5)
}

func TestComputeTrendUp(t *testing.T) {
	// 7-day window, midpoint 3: one incident in the earlier half, three recent.
	incidents := []models.BehaviorIncident{
		incidentAt(testNow.AddDate(0, 0, -5), models.BehaviorOther, ""),
		incidentAt(testNow.AddDate(0, 0, -1), models.BehaviorOther, ""),
		incidentAt(testNow.AddDate(0, 0, -1), models.BehaviorOther, ""),
		incidentAt(testNow, models.BehaviorOther, ""),
	}

	trend := ComputeTrend(incidents, 7, testNow)
	require.NotNil(t, trend)
	assert.True(t, trend.Defined)
	assert.Equal(t, models.TrendUp, trend.Direction)
	// recent 3/3 = 1.0, older 1/4 = 0.25 -> +300%
	assert.InDelta(t, 300.0, trend.Percentage, 0.001)
}

func TestComputeTrendDown(t *testing.T) {
	incidents := []models.BehaviorIncident{
		incidentAt(testNow.AddDate(0, 0, -6), models.BehaviorOther, ""),
		incidentAt(testNow.AddDate(0, 0, -5), models.BehaviorOther, ""),
		incidentAt(testNow.AddDate(0, 0, -4), models.BehaviorOther, ""),
		incidentAt(testNow.AddDate(0, 0, -1), models.BehaviorOther, ""),
	}

	trend := ComputeTrend(incidents, 7, testNow)
	require.NotNil(t, trend)
	assert.True(t, trend.Defined)
	assert.Equal(t, models.TrendDown, trend.Direction)
	assert.Greater(t, trend.Percentage, 0.0)
}

func TestComputeTrendRequiresTwoIncidents(t *testing.T) {
	incidents := []models.BehaviorIncident{incidentAt(testNow, models.BehaviorOther, "")}
	assert.Nil(t, ComputeTrend(incidents, 7, testNow))
	assert.Nil(t, ComputeTrend(nil, 7, testNow))
}

func TestComputeTrendUndefinedWhenEarlierHalfEmpty(t *testing.T) {
	incidents := []models.BehaviorIncident{
		incidentAt(testNow, models.BehaviorOther, ""),
		incidentAt(testNow.AddDate(0, 0, -1), models.BehaviorOther, ""),
	}

	trend := ComputeTrend(incidents, 7, testNow)
	require.NotNil(t, trend)
	assert.False(t, trend.Defined)
	assert.Equal(t, models.TrendUp, trend.Direction)
	assert.Zero(t, trend.Percentage)
}
