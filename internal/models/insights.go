package models

// DailyCount is one day in the frequency series.
type DailyCount struct {
	Date  string `json:"date"`  // yyyy-MM-dd
	Label string `json:"label"` // e.g. "Jan 5"
	Count int    `json:"count"`
}

// TypeBreakdown is one entry of the behavior-type distribution.
type TypeBreakdown struct {
	Type       BehaviorType `json:"type"`
	Label      string       `json:"label"`
	Count      int          `json:"count"`
	Percentage float64      `json:"percentage"` // one decimal place
}

// TimeOfDayBucket counts incidents inside a fixed local-time band.
type TimeOfDayBucket struct {
	Period string `json:"period"` // morning, afternoon, evening, night
	Label  string `json:"label"`
	Count  int    `json:"count"`
}

// TriggerCount is one antecedent with its occurrence count.
type TriggerCount struct {
	Trigger string `json:"trigger"`
	Count   int    `json:"count"`
}

// Trend direction values.
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"
)

// Trend compares the recent half of the window against the earlier half.
// Defined is false when the earlier half had no incidents, in which case the
// percent change is mathematically undefined and Percentage is zero.
type Trend struct {
	Direction  string  `json:"direction"`
	Percentage float64 `json:"percentage"` // absolute value, one decimal place
	Defined    bool    `json:"defined"`
}

// Insights bundles every derived aggregate for one child and window.
type Insights struct {
	ChildID        string            `json:"child_id"`
	WindowDays     int               `json:"window_days"`
	TotalIncidents int               `json:"total_incidents"`
	DailyFrequency []DailyCount      `json:"daily_frequency"`
	Breakdown      []TypeBreakdown   `json:"breakdown"`
	TimeOfDay      []TimeOfDayBucket `json:"time_of_day"`
	Triggers       []TriggerCount    `json:"triggers"`
	Trend          *Trend            `json:"trend,omitempty"` // nil with fewer than 2 incidents
}
