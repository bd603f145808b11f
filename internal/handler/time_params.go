package handler

import (
	"fmt"
	"time"
)

// parseTimeParam accepts either a full RFC3339 timestamp or a bare calendar
// date. Date-only values resolve to the local start of that day, or to
// 23:59:59.999 when endOfDay is set, so an inclusive "to" date covers the
// whole day.
func parseTimeParam(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	day, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected RFC3339 or yyyy-MM-dd", raw)
	}
	if endOfDay {
		t := day.Add(24*time.Hour - time.Millisecond)
		return &t, nil
	}
	return &day, nil
}
