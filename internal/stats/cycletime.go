package stats

import (
	"math"
	"slices"

	"flowcast/internal/dates"
	"flowcast/internal/ingest"
)

// CycleTimeDays returns the whole-day cycle time of a finished item. Same-day
// completions count as one day.
func CycleTimeDays(it ingest.Item) (int, bool) {
	days, ok := dates.DaysBetween(it.CycleStart, it.CycleEnd)
	if !ok {
		return 0, false
	}
	return max(days, 1), true
}

// CycleTimes returns the cycle time of every finished item in input order.
func CycleTimes(items []ingest.Item) []int {
	var out []int
	for _, it := range items {
		if d, ok := CycleTimeDays(it); ok {
			out = append(out, d)
		}
	}
	return out
}

// ComputeCycleTimeHistogram buckets finished items by cycle time, sorted by value.
func ComputeCycleTimeHistogram(items []ingest.Item) []HistogramBucket {
	counts := make(map[int]int)
	for _, d := range CycleTimes(items) {
		counts[d]++
	}
	return bucketsOf(counts)
}

// ComputeCycleTimeScatter returns one point per finished item, dated by its
// cycle end, in input order.
func ComputeCycleTimeScatter(items []ingest.Item) []ScatterPoint {
	var out []ScatterPoint
	for _, it := range items {
		d, ok := CycleTimeDays(it)
		if !ok {
			continue
		}
		out = append(out, ScatterPoint{ID: it.ID, Date: dates.Truncate(*it.CycleEnd), Value: d})
	}
	return out
}

// ComputeCycleTimePercentiles reports P50/P70/P85/P95 using linear
// interpolation between ranks, rounded to whole days.
func ComputeCycleTimePercentiles(items []ingest.Item) Percentiles {
	values := CycleTimes(items)
	if len(values) == 0 {
		return Percentiles{}
	}
	slices.Sort(values)
	return Percentiles{
		P50: interpolated(values, 50),
		P70: interpolated(values, 70),
		P85: interpolated(values, 85),
		P95: interpolated(values, 95),
	}
}

// interpolated expects sorted, non-empty values.
func interpolated(sorted []int, p float64) *int {
	idx := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	frac := idx - float64(lo)
	v := float64(sorted[lo]) + frac*float64(sorted[hi]-sorted[lo])
	r := int(math.Round(v))
	return &r
}

func bucketsOf(counts map[int]int) []HistogramBucket {
	out := make([]HistogramBucket, 0, len(counts))
	for v, c := range counts {
		out = append(out, HistogramBucket{Value: v, Count: c})
	}
	slices.SortFunc(out, func(a, b HistogramBucket) int { return a.Value - b.Value })
	return out
}
