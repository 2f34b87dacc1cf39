package stats

import (
	"slices"
	"sort"
	"time"

	"flowcast/internal/dates"
	"flowcast/internal/ingest"
)

// ComputeCFD reconstructs the cumulative "reached-by" count of every workflow
// state for each day between the earliest and latest date found in the data.
func ComputeCFD(items []ingest.Item, states []string) []CFDRow {
	if len(items) == 0 || len(states) == 0 {
		return nil
	}

	// 1. Collect every relevant date to find the range
	var all []*time.Time
	for _, it := range items {
		all = append(all, it.Created, it.Completed)
		for _, s := range states {
			all = append(all, it.EnteredAt(s))
		}
	}
	start, end, ok := dates.Span(all...)
	if !ok {
		return nil
	}

	// 2. Sort entry dates per state so each day is a binary search
	entered := make(map[string][]time.Time, len(states))
	for _, s := range states {
		var col []time.Time
		for _, it := range items {
			if d := it.EnteredAt(s); d != nil {
				col = append(col, dates.Truncate(*d))
			}
		}
		slices.SortFunc(col, func(a, b time.Time) int { return a.Compare(b) })
		entered[s] = col
	}

	// 3. Count entries on or before each day
	days := dates.EachDay(start, end)
	rows := make([]CFDRow, 0, len(days))
	for _, day := range days {
		row := CFDRow{Date: day, Counts: make(map[string]int, len(states))}
		for _, s := range states {
			col := entered[s]
			row.Counts[s] = sort.Search(len(col), func(i int) bool { return col[i].After(day) })
		}
		rows = append(rows, row)
	}
	return rows
}
