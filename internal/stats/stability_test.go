package stats

import (
	"math"
	"testing"

	"flowcast/internal/ingest"
)

func TestCalculateXmR(t *testing.T) {
	tests := []struct {
		name    string
		weekly  []float64
		avg     float64
		amr     float64
		unpl    float64
		lnpl    float64
		signals int
	}{
		{"steady", []float64{10, 12, 11, 13, 11}, 11.4, 1.75, 16.055, 6.745, 0},
		{"single week", []float64{4}, 4, 0, 4, 4, 0},
		{"limits floor at zero", []float64{0, 6, 0, 6}, 3, 6, 18.96, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := CalculateXmR(tt.weekly)
			for _, c := range []struct {
				label     string
				got, want float64
			}{
				{"average", res.Average, tt.avg},
				{"AmR", res.AmR, tt.amr},
				{"UNPL", res.UNPL, tt.unpl},
				{"LNPL", res.LNPL, tt.lnpl},
			} {
				if math.Abs(c.got-c.want) > 0.001 {
					t.Errorf("Expected %s %v, got %v", c.label, c.want, c.got)
				}
			}
			if len(res.Signals) != tt.signals {
				t.Errorf("Expected %d signals, got %+v", tt.signals, res.Signals)
			}
		})
	}
}

func TestXmRSignals(t *testing.T) {
	spike := CalculateXmRWithKeys([]float64{3, 4, 3, 4, 3, 4, 3, 4, 3, 4, 40}, []string{"", "", "", "", "", "", "", "", "", "", "ITEM-11"})
	var outlier *Signal
	for i := range spike.Signals {
		if spike.Signals[i].Type == "outlier" {
			outlier = &spike.Signals[i]
		}
	}
	if outlier == nil || outlier.Index != 10 || outlier.Key != "ITEM-11" {
		t.Errorf("Expected an outlier bound to ITEM-11, got %+v (UNPL %v)", spike.Signals, spike.UNPL)
	}

	// Two runs of eight on opposite sides of the average.
	shifted := CalculateXmR([]float64{9, 9, 9, 9, 9, 9, 9, 9, 1, 1, 1, 1, 1, 1, 1, 1})
	shifts := 0
	for _, s := range shifted.Signals {
		if s.Type == "shift" {
			shifts++
		}
	}
	if shifts != 2 {
		t.Errorf("Expected 2 shift signals, got %d", shifts)
	}
}

func TestComputeStability_KeysFollowCompletionOrder(t *testing.T) {
	items := []ingest.Item{
		finished("late", "2024-01-01", "2024-01-20"),
		finished("early", "2024-01-01", "2024-01-03"),
		active("wip", "2024-01-10"),
	}
	today := day("2024-01-21")
	snap := ComputeSnapshot(items, []string{"A", "B"}, today)

	res := ComputeStability(items, snap)
	if len(res.CycleTime.Values) != 2 || res.CycleTime.Values[0] != 2 || res.CycleTime.Values[1] != 19 {
		t.Fatalf("Expected cycle times [2 19] in completion order, got %v", res.CycleTime.Values)
	}
	if res.ExpectedLeadTime <= 0 {
		t.Errorf("Expected a positive expected lead time, got %v", res.ExpectedLeadTime)
	}
	if res.Status != "stable" {
		t.Errorf("Expected stable status for two points, got %s", res.Status)
	}
}
