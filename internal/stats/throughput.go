package stats

import (
	"time"

	"flowcast/internal/dates"
	"flowcast/internal/ingest"
)

// ComputeThroughputRun counts completions per day from the earliest entered
// date of any state up to today. Days without completions are kept with a
// zero count so that resampling sees them.
func ComputeThroughputRun(items []ingest.Item, states []string, today time.Time) []RunPoint {
	var all []*time.Time
	var latest *time.Time
	for _, it := range items {
		for _, s := range states {
			all = append(all, it.EnteredAt(s))
		}
		if done := completionDate(it); done != nil {
			// Completions without any transition still belong in the range.
			all = append(all, done)
			if latest == nil || done.After(*latest) {
				latest = done
			}
		}
	}
	start, _, ok := dates.Span(all...)
	if !ok {
		return nil
	}

	days := dates.EachDay(start, runEnd(today, latest))
	run := make([]RunPoint, len(days))
	for i, day := range days {
		run[i] = RunPoint{Date: day}
	}
	for _, it := range items {
		if done := completionDate(it); done != nil {
			run[dayIndex(start, *done)].Count++
		}
	}
	return run
}

// Counts returns the daily counts of a run, the sample pool for forecasting.
func Counts(run []RunPoint) []int {
	out := make([]int, len(run))
	for i, p := range run {
		out[i] = p.Count
	}
	return out
}

func completionDate(it ingest.Item) *time.Time {
	if it.CycleEnd != nil {
		return it.CycleEnd
	}
	return it.Completed
}
