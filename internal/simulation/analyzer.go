package simulation

import (
	"fmt"
	"math"
	"sort"
)

// Fat-tail ratio above which forecasts are flagged as unreliable.
const fatTailThreshold = 5.6

// SelectSamples returns the windowed history when it has at least minSamples
// days, and the full history otherwise. The bool reports the fallback.
func SelectSamples(window, full []int, minSamples int) ([]int, bool) {
	if minSamples < 1 {
		minSamples = 1
	}
	if len(window) >= minSamples {
		return window, false
	}
	return full, true
}

// CalculateFatTail calculates the P98/P50 ratio for a throughput series.
func CalculateFatTail(counts []int) float64 {
	if len(counts) == 0 {
		return 0
	}
	floats := make([]float64, len(counts))
	for i, c := range counts {
		floats[i] = float64(c)
	}
	sort.Float64s(floats)

	p50 := floats[int(float64(len(floats))*0.50)]
	p98 := floats[int(float64(len(floats))*0.98)]

	if p50 == 0 {
		if p98 > 0 {
			return 10.0 // Symbolic high value for sparse processes
		}
		return 1.0
	}
	return p98 / p50
}

// poolWarnings flags throughput histories that make forecasts wide or fragile.
func poolWarnings(h *Histogram) []string {
	var warnings []string
	if h.Stats.Days > 0 && h.Stats.ZeroDays*2 > h.Stats.Days && !h.AllZero() {
		warnings = append(warnings, fmt.Sprintf("%d of %d sampled days had zero throughput; forecasts will be wide.", h.Stats.ZeroDays, h.Stats.Days))
	}
	if h.Stats.FatTail >= fatTailThreshold {
		warnings = append(warnings, fmt.Sprintf("Throughput is fat-tailed (P98/P50 = %.1f); a few very productive days dominate the forecast.", math.Round(h.Stats.FatTail*10)/10))
	}
	if h.Stats.Days > 0 && h.Stats.Days < 14 {
		warnings = append(warnings, fmt.Sprintf("Only %d days of throughput history; consider a longer window.", h.Stats.Days))
	}
	return warnings
}
