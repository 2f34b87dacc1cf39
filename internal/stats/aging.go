package stats

import (
	"math"
	"slices"
	"time"

	"flowcast/internal/dates"
	"flowcast/internal/ingest"
)

// ComputeAgingWip lists active items with their current state and age in
// days, counting the start day itself (an item started today is 1 day old).
// Items are ordered oldest first and compared with the cycle-time history of
// the finished items.
func ComputeAgingWip(items []ingest.Item, states []string, today time.Time) []AgingItem {
	pct := ComputeCycleTimePercentiles(items)
	day := dates.Truncate(today)

	var results []AgingItem
	for _, it := range items {
		if !it.IsActive() {
			continue
		}

		elapsed := day.Sub(dates.Truncate(*it.CycleStart)).Hours() / 24
		// Items starting in the future still show as one day old.
		age := max(int(math.Floor(elapsed))+1, 1)

		aging := AgingItem{
			ID:      it.ID,
			Title:   it.Title,
			State:   currentState(it, states),
			AgeDays: age,
		}
		aging.Percentile = exceeded(pct, age)
		aging.IsStale = pct.P85 != nil && age > *pct.P85

		results = append(results, aging)
	}

	slices.SortStableFunc(results, func(a, b AgingItem) int { return b.AgeDays - a.AgeDays })
	return results
}

// currentState is the last state, in workflow order, the item has a date for.
func currentState(it ingest.Item, states []string) string {
	for i := len(states) - 1; i >= 0; i-- {
		if it.EnteredAt(states[i]) != nil {
			return states[i]
		}
	}
	return ""
}

func exceeded(p Percentiles, age int) int {
	levels := []struct {
		level int
		value *int
	}{{95, p.P95}, {85, p.P85}, {70, p.P70}, {50, p.P50}}
	for _, l := range levels {
		if l.value != nil && age > *l.value {
			return l.level
		}
	}
	return 0
}
