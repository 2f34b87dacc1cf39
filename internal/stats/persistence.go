package stats

import (
	"math"
	"slices"
	"time"

	"flowcast/internal/dates"
	"flowcast/internal/ingest"
)

// StatePersistence summarizes how many days items spend in one state.
type StatePersistence struct {
	State   string  `json:"state"`
	Count   int     `json:"count"`
	Share   float64 `json:"share"` // fraction of all items that spent time here
	P50     float64 `json:"p50"`
	P70     float64 `json:"p70"`
	P85     float64 `json:"p85"`
	P95     float64 `json:"p95"`
	IQR     float64 `json:"iqr"`
	Inner80 float64 `json:"inner80"`
}

// ComputeStatePersistence measures residency per state in workflow order. A
// stay runs from the state's date to the next later state's date; the last
// state an item reached runs to today unless it is the terminal state.
func ComputeStatePersistence(items []ingest.Item, states []string, today time.Time) []StatePersistence {
	if len(items) == 0 || len(states) == 0 {
		return nil
	}
	today = dates.Truncate(today)
	terminal := states[len(states)-1]

	durations := make(map[string][]float64, len(states))
	for _, it := range items {
		for i, st := range states {
			from := it.Entered[st]
			if from == nil {
				continue
			}
			var to *time.Time
			for _, next := range states[i+1:] {
				if d := it.Entered[next]; d != nil {
					to = d
					break
				}
			}
			if to == nil {
				if st == terminal || it.Completed != nil {
					continue
				}
				to = &today
			}
			days := to.Sub(dates.Truncate(*from)).Hours() / 24
			durations[st] = append(durations[st], math.Max(days, 0))
		}
	}

	total := float64(len(items))
	var results []StatePersistence
	for _, st := range states {
		d := durations[st]
		n := len(d)
		if n == 0 {
			continue
		}
		slices.Sort(d)
		at := func(q float64) float64 { return d[min(int(float64(n)*q), n-1)] }
		results = append(results, StatePersistence{
			State:   st,
			Count:   n,
			Share:   math.Round(float64(n)/total*1000) / 1000,
			P50:     round1(at(0.50)),
			P70:     round1(at(0.70)),
			P85:     round1(at(0.85)),
			P95:     round1(at(0.95)),
			IQR:     round1(at(0.75) - at(0.25)),
			Inner80: round1(at(0.90) - at(0.10)),
		})
	}
	return results
}
