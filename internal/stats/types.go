package stats

import (
	"encoding/json"
	"time"

	"flowcast/internal/dates"
)

// CFDRow holds the cumulative "reached-by" count per workflow state for one day.
type CFDRow struct {
	Date   time.Time      `json:"-"`
	Counts map[string]int `json:"counts"`
}

// RunPoint is a single day of a WIP or throughput run chart.
type RunPoint struct {
	Date  time.Time `json:"-"`
	Count int       `json:"count"`
}

// HistogramBucket counts completed items per whole-day cycle time.
type HistogramBucket struct {
	Value int `json:"value"`
	Count int `json:"count"`
}

// ScatterPoint is one completed item on the cycle-time scatterplot.
type ScatterPoint struct {
	ID    string    `json:"id"`
	Date  time.Time `json:"-"`
	Value int       `json:"value"`
}

// Percentiles are the cycle-time service levels, nil when there is no data.
type Percentiles struct {
	P50 *int `json:"p50"`
	P70 *int `json:"p70"`
	P85 *int `json:"p85"`
	P95 *int `json:"p95"`
}

// AgingItem is an active item and how long it has been in flight.
// Percentile is the highest cycle-time service level the age already exceeds
// (50, 70, 85 or 95), zero when below P50 or without history.
type AgingItem struct {
	ID         string `json:"id"`
	Title      string `json:"title,omitempty"`
	State      string `json:"state"`
	AgeDays    int    `json:"ageDays"`
	Percentile int    `json:"percentile,omitempty"`
	IsStale    bool   `json:"isStale,omitempty"` // older than the P85 cycle time
}

// Snapshot is the full set of derived metrics for one (items, workflow) pair.
type Snapshot struct {
	CFD                  []CFDRow          `json:"cfd"`
	WipRun               []RunPoint        `json:"wipRun"`
	ThroughputRun        []RunPoint        `json:"throughputRun"`
	CycleHistogram       []HistogramBucket `json:"cycleHistogram"`
	CycleTimeScatter     []ScatterPoint    `json:"cycleTimeScatter"`
	AgingWip             []AgingItem       `json:"agingWip"`
	CycleTimePercentiles Percentiles       `json:"cycleTimePercentiles"`
}

// Summary is the headline view of a dataset.
type Summary struct {
	TotalItems          int     `json:"totalItems"`
	CompletedItems      int     `json:"completedItems"`
	ActiveItems         int     `json:"activeItems"`
	AvgCycleTimeDays    float64 `json:"avgCycleTimeDays"`
	MedianCycleTimeDays float64 `json:"medianCycleTimeDays"`
	AvgDailyThroughput  float64 `json:"avgDailyThroughput"`
}

func (r CFDRow) MarshalJSON() ([]byte, error) {
	type alias CFDRow
	return json.Marshal(struct {
		Date string `json:"date"`
		alias
	}{Date: dates.Format(r.Date), alias: alias(r)})
}

func (p RunPoint) MarshalJSON() ([]byte, error) {
	type alias RunPoint
	return json.Marshal(struct {
		Date string `json:"date"`
		alias
	}{Date: dates.Format(p.Date), alias: alias(p)})
}

func (p ScatterPoint) MarshalJSON() ([]byte, error) {
	type alias ScatterPoint
	return json.Marshal(struct {
		Date string `json:"date"`
		alias
	}{Date: dates.Format(p.Date), alias: alias(p)})
}
