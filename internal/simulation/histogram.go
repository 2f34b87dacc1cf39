package simulation

import (
	"slices"
)

// Bucket counts how many trials produced a given value.
type Bucket struct {
	Value int `json:"value"`
	Count int `json:"count"`
}

// PoolStats describes the throughput history a simulation samples from.
type PoolStats struct {
	Days       int     `json:"daysInSample"`
	Total      int     `json:"itemsDelivered"`
	ZeroDays   int     `json:"zeroDays"`
	Mean       float64 `json:"throughputOverall"`
	RecentMean float64 `json:"throughputRecent"` // last 30 days
	FatTail    float64 `json:"fatTail"`          // P98/P50
}

// Histogram is the daily throughput pool used for resampling.
type Histogram struct {
	Counts []int
	Stats  PoolStats
}

// NewHistogram copies the daily counts and derives the pool statistics.
func NewHistogram(counts []int) *Histogram {
	h := &Histogram{Counts: slices.Clone(counts)}
	days := len(counts)
	h.Stats.Days = days
	if days == 0 {
		return h
	}

	recentDays := min(30, days)
	recent := 0
	for i, c := range counts {
		h.Stats.Total += c
		if c == 0 {
			h.Stats.ZeroDays++
		}
		if i >= days-recentDays {
			recent += c
		}
	}
	h.Stats.Mean = float64(h.Stats.Total) / float64(days)
	h.Stats.RecentMean = float64(recent) / float64(recentDays)
	h.Stats.FatTail = CalculateFatTail(counts)
	return h
}

// AllZero reports whether no sampled day ever delivered anything.
func (h *Histogram) AllZero() bool {
	return h.Stats.Total == 0
}

// Distribution counts sorted trial outcomes per value.
func Distribution(sorted []int) []Bucket {
	var out []Bucket
	for _, v := range sorted {
		if n := len(out); n > 0 && out[n-1].Value == v {
			out[n-1].Count++
			continue
		}
		out = append(out, Bucket{Value: v, Count: 1})
	}
	return out
}
