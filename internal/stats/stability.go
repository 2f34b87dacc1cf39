package stats

import (
	"math"
	"slices"

	"flowcast/internal/ingest"
)

// XmRResult represents the output of a Process Behavior Chart analysis.
type XmRResult struct {
	Average     float64   `json:"average"`
	AmR         float64   `json:"averageMovingRange"`
	UNPL        float64   `json:"upperNaturalProcessLimit"`
	LNPL        float64   `json:"lowerNaturalProcessLimit"`
	Values      []float64 `json:"values"`
	MovingRange []float64 `json:"movingRanges,omitempty"`
	Signals     []Signal  `json:"signals,omitempty"`
}

// Signal represents a detected special cause variation.
type Signal struct {
	Index       int    `json:"index"`
	Key         string `json:"key,omitempty"`
	Type        string `json:"type"` // "outlier", "shift"
	Description string `json:"description"`
}

// CalculateXmR performs the math for an Individuals and Moving Range chart.
func CalculateXmR(values []float64) XmRResult {
	return CalculateXmRWithKeys(values, nil)
}

// CalculateXmRWithKeys performs the math for an Individuals and Moving Range chart and binds keys to signals.
func CalculateXmRWithKeys(values []float64, keys []string) XmRResult {
	if len(values) == 0 {
		return XmRResult{}
	}

	result := XmRResult{
		Values: values,
	}

	// 1. Calculate Average
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	result.Average = sum / float64(len(values))

	// 2. Calculate Moving Ranges
	if len(values) > 1 {
		mrSum := 0.0
		result.MovingRange = make([]float64, len(values)-1)
		for i := 0; i < len(values)-1; i++ {
			mr := math.Abs(values[i+1] - values[i])
			result.MovingRange[i] = mr
			mrSum += mr
		}
		result.AmR = mrSum / float64(len(values)-1)
	}

	// 3. Calculate Limits (Wheeler's scaling constant for Individuals is 2.66)
	result.UNPL = result.Average + (2.66 * result.AmR)
	result.LNPL = math.Max(0, result.Average-(2.66*result.AmR))

	// 4. Detect Signals
	result.Signals = detectSignals(values, result.Average, result.UNPL, result.LNPL, keys)

	return result
}

// StabilityResult is the process behaviour view of a dataset.
type StabilityResult struct {
	CycleTime        XmRResult `json:"cycleTime"`
	WeeklyThroughput XmRResult `json:"weeklyThroughput"`
	ExpectedLeadTime float64   `json:"expectedLeadTime"` // Days: WIP / Throughput
	StabilityIndex   float64   `json:"stabilityIndex"`   // Ratio: Expected Lead Time / Avg Cycle Time
	Status           string    `json:"status"`           // "stable", "unstable"
}

// ComputeStability runs XmR on cycle times (in completion order) and on
// complete weeks of throughput, then checks Little's Law against the current WIP.
func ComputeStability(items []ingest.Item, snap Snapshot) StabilityResult {
	type done struct {
		key   string
		end   int64
		cycle float64
	}
	var finished []done
	for _, it := range items {
		if d, ok := CycleTimeDays(it); ok {
			finished = append(finished, done{key: it.ID, end: it.CycleEnd.Unix(), cycle: float64(d)})
		}
	}
	slices.SortStableFunc(finished, func(a, b done) int {
		switch {
		case a.end < b.end:
			return -1
		case a.end > b.end:
			return 1
		}
		return 0
	})

	values := make([]float64, len(finished))
	keys := make([]string, len(finished))
	for i, d := range finished {
		values[i] = d.cycle
		keys[i] = d.key
	}

	var weekly []float64
	for _, b := range Aggregate(snap.ThroughputRun, BucketWeek) {
		// Partial weeks would dilute the signal.
		if b.Days == 7 {
			weekly = append(weekly, float64(b.Count))
		}
	}

	result := StabilityResult{
		CycleTime:        CalculateXmRWithKeys(values, keys),
		WeeklyThroughput: CalculateXmR(weekly),
		Status:           "stable",
	}
	if len(result.CycleTime.Signals) > 0 || len(result.WeeklyThroughput.Signals) > 0 {
		result.Status = "unstable"
	}

	wip := len(snap.AgingWip)
	throughput := CalculateMean(Counts(snap.ThroughputRun))
	if throughput > 0 {
		result.ExpectedLeadTime = math.Round(float64(wip)/throughput*10) / 10
		if result.CycleTime.Average > 0 {
			result.StabilityIndex = math.Round(float64(wip)/throughput/result.CycleTime.Average*100) / 100
		}
	}
	return result
}

func detectSignals(values []float64, avg, unpl, lnpl float64, keys []string) []Signal {
	var signals []Signal

	for i, v := range values {
		key := ""
		if i < len(keys) {
			key = keys[i]
		}

		if v > unpl {
			signals = append(signals, Signal{
				Index:       i,
				Key:         key,
				Type:        "outlier",
				Description: "Point above Upper Natural Process Limit (UNPL)",
			})
		} else if v < lnpl {
			signals = append(signals, Signal{
				Index:       i,
				Key:         key,
				Type:        "outlier",
				Description: "Point below Lower Natural Process Limit (LNPL)",
			})
		}
	}

	if len(values) >= 8 {
		side := 0
		count := 0
		for i, v := range values {
			currentSide := 0
			if v > avg {
				currentSide = 1
			} else if v < avg {
				currentSide = -1
			}

			if currentSide == side && currentSide != 0 {
				count++
			} else {
				side = currentSide
				count = 1
			}

			if count == 8 {
				key := ""
				if i < len(keys) {
					key = keys[i]
				}
				signals = append(signals, Signal{
					Index:       i,
					Key:         key,
					Type:        "shift",
					Description: "8 consecutive points on one side of the average identified (Process Shift)",
				})
			}
		}
	}

	return signals
}
