package stats

import (
	"time"

	"flowcast/internal/ingest"
)

// ComputeSnapshot derives every metric from the same items and workflow.
// Items are expected to carry their cycle fields already.
func ComputeSnapshot(items []ingest.Item, states []string, today time.Time) Snapshot {
	return Snapshot{
		CFD:                  ComputeCFD(items, states),
		WipRun:               ComputeWipRun(items, today),
		ThroughputRun:        ComputeThroughputRun(items, states, today),
		CycleHistogram:       ComputeCycleTimeHistogram(items),
		CycleTimeScatter:     ComputeCycleTimeScatter(items),
		AgingWip:             ComputeAgingWip(items, states, today),
		CycleTimePercentiles: ComputeCycleTimePercentiles(items),
	}
}

// ComputeSummary builds the headline numbers from the items and their snapshot.
func ComputeSummary(items []ingest.Item, snap Snapshot) Summary {
	sum := Summary{TotalItems: len(items)}
	for _, it := range items {
		if it.Completed != nil {
			sum.CompletedItems++
		}
		if it.IsActive() {
			sum.ActiveItems++
		}
	}

	cycles := CycleTimes(items)
	sum.AvgCycleTimeDays = round1(CalculateMean(cycles))
	sum.MedianCycleTimeDays = round1(CalculateMedianDiscrete(cycles))
	sum.AvgDailyThroughput = round1(CalculateMean(Counts(snap.ThroughputRun)))
	return sum
}
