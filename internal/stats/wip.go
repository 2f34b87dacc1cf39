package stats

import (
	"time"

	"flowcast/internal/dates"
	"flowcast/internal/ingest"
)

// ComputeWipRun counts the items in the system on each day from the earliest
// created date up to today. An item is in the system from its created day up
// to, but excluding, its completed day.
func ComputeWipRun(items []ingest.Item, today time.Time) []RunPoint {
	var created []*time.Time
	var latest *time.Time
	for _, it := range items {
		created = append(created, it.Created)
		if it.Completed != nil && (latest == nil || it.Completed.After(*latest)) {
			latest = it.Completed
		}
	}
	start, _, ok := dates.Span(created...)
	if !ok {
		return nil
	}
	end := runEnd(today, latest)

	days := dates.EachDay(start, end)
	// Difference array: +1 on created, -1 on completed.
	delta := make([]int, len(days)+1)
	for _, it := range items {
		if it.Created == nil {
			continue
		}
		from := dayIndex(start, *it.Created)
		to := len(days)
		if it.Completed != nil {
			to = min(dayIndex(start, *it.Completed), len(days))
		}
		if from >= to {
			continue
		}
		delta[from]++
		delta[to]--
	}

	run := make([]RunPoint, len(days))
	count := 0
	for i, day := range days {
		count += delta[i]
		run[i] = RunPoint{Date: day, Count: count}
	}
	return run
}

// runEnd extends a run to the latest observed date when data sits in the future.
func runEnd(today time.Time, latest *time.Time) time.Time {
	end := dates.Truncate(today)
	if latest != nil && latest.After(end) {
		end = dates.Truncate(*latest)
	}
	return end
}

func dayIndex(start, t time.Time) int {
	n, _ := dates.DaysBetween(dates.Ptr(dates.Truncate(start)), dates.Ptr(dates.Truncate(t)))
	return n
}
