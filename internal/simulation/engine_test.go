package simulation

import (
	"context"
	"reflect"
	"testing"
)

func seededEngine() *Engine {
	e := NewEngine()
	e.SetSeed(42)
	return e
}

func TestRunHowMany_AllZeroPool(t *testing.T) {
	res, err := seededEngine().RunHowMany(context.Background(), HowManyRequest{
		Samples:        []int{0, 0, 0, 0, 0},
		Days:           5,
		NumSimulations: 100,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(res.Samples) != 100 {
		t.Fatalf("Expected 100 samples, got %d", len(res.Samples))
	}
	for _, s := range res.Samples {
		if s != 0 {
			t.Fatalf("Expected every total to be 0, got %d", s)
		}
	}
	for name, p := range map[string]*int{"p05": res.Percentiles.P05, "p15": res.Percentiles.P15, "p50": res.Percentiles.P50} {
		if p == nil || *p != 0 {
			t.Errorf("Expected %s = 0, got %v", name, p)
		}
	}
	if len(res.Histogram) != 1 || res.Histogram[0] != (Bucket{Value: 0, Count: 100}) {
		t.Errorf("Unexpected histogram %v", res.Histogram)
	}
}

func TestRunWhen_SingleValuePool(t *testing.T) {
	res, err := seededEngine().RunWhen(context.Background(), WhenRequest{
		Samples:        []int{5},
		TargetCount:    10,
		NumSimulations: 500,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for _, d := range res.Samples {
		if d != 2 {
			t.Fatalf("Expected every run to take 2 days, got %d", d)
		}
	}
	p := res.Percentiles
	if *p.P50 != 2 || *p.P85 != 2 || *p.P95 != 2 {
		t.Errorf("Expected p50=p85=p95=2, got %d/%d/%d", *p.P50, *p.P85, *p.P95)
	}
}

func TestGuardrails(t *testing.T) {
	ctx := context.Background()
	e := seededEngine()

	cases := []struct {
		name string
		run  func() ([]string, []int)
		want string
	}{
		{"no samples", func() ([]string, []int) {
			r, _ := e.RunHowMany(ctx, HowManyRequest{Days: 10, NumSimulations: 1000})
			return r.Guardrails, r.Samples
		}, GuardNoSamples},
		{"zero horizon", func() ([]string, []int) {
			r, _ := e.RunHowMany(ctx, HowManyRequest{Samples: []int{1}, NumSimulations: 1000})
			return r.Guardrails, r.Samples
		}, GuardHorizon},
		{"zero target", func() ([]string, []int) {
			r, _ := e.RunWhen(ctx, WhenRequest{Samples: []int{1}, TargetCount: 0, NumSimulations: 1000})
			return r.Guardrails, r.Samples
		}, GuardTarget},
		{"all zero pool", func() ([]string, []int) {
			r, _ := e.RunWhen(ctx, WhenRequest{Samples: []int{0, 0}, TargetCount: 3, NumSimulations: 1000})
			return r.Guardrails, r.Samples
		}, GuardAllZero},
		{"too few simulations", func() ([]string, []int) {
			r, _ := e.RunHowMany(ctx, HowManyRequest{Samples: []int{1}, Days: 3, NumSimulations: 10})
			return r.Guardrails, r.Samples
		}, "At least 100 simulations are required."},
	}

	for _, tc := range cases {
		guards, samples := tc.run()
		if len(guards) != 1 || guards[0] != tc.want {
			t.Errorf("%s: expected guardrail %q, got %v", tc.name, tc.want, guards)
		}
		if len(samples) != 0 {
			t.Errorf("%s: blocked run must not produce samples", tc.name)
		}
	}

	res, _ := e.RunHowMany(ctx, HowManyRequest{Days: -1})
	if res.Percentiles.P50 != nil {
		t.Errorf("Blocked run must have nil percentiles")
	}
}

func TestRunWhen_CapsMostlyZeroPools(t *testing.T) {
	// One delivery in a sea of zeros: some trials need more than the cap.
	pool := make([]int, 5000)
	pool[0] = 1
	res, err := seededEngine().RunWhen(context.Background(), WhenRequest{Samples: pool, TargetCount: 3, NumSimulations: 200})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.CappedTrials == 0 {
		t.Fatalf("Expected capped trials")
	}
	if res.Samples[len(res.Samples)-1] != MaxTrialDays {
		t.Errorf("Capped trials should record %d days, got %d", MaxTrialDays, res.Samples[len(res.Samples)-1])
	}
	found := false
	for _, w := range res.Warnings {
		if len(w) >= 22 && w[:22] == "Mostly zero throughput" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a mostly-zero warning, got %v", res.Warnings)
	}
}

func TestSeedMakesRunsReproducible(t *testing.T) {
	req := HowManyRequest{Samples: []int{0, 1, 2, 3, 0, 5}, Days: 14, NumSimulations: 1000}
	a, _ := seededEngine().RunHowMany(context.Background(), req)
	b, _ := seededEngine().RunHowMany(context.Background(), req)
	if !reflect.DeepEqual(a.Samples, b.Samples) {
		t.Errorf("Same seed produced different samples")
	}
}

func TestSamplesAreSortedAndPercentilesOrdered(t *testing.T) {
	res, _ := seededEngine().RunWhen(context.Background(), WhenRequest{Samples: []int{0, 1, 3, 0, 2}, TargetCount: 25, NumSimulations: 2000})
	for i := 1; i < len(res.Samples); i++ {
		if res.Samples[i] < res.Samples[i-1] {
			t.Fatalf("Samples not sorted at %d", i)
		}
	}
	p := res.Percentiles
	if !(*p.P50 <= *p.P85 && *p.P85 <= *p.P95) {
		t.Errorf("Percentiles out of order: %d %d %d", *p.P50, *p.P85, *p.P95)
	}
}

func TestRunHowMany_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := seededEngine().RunHowMany(ctx, HowManyRequest{Samples: []int{1}, Days: 5, NumSimulations: 1000})
	if err == nil {
		t.Errorf("Expected a cancellation error")
	}
}

func TestNearestRank(t *testing.T) {
	sorted := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if got := *nearestRank(sorted, 50); got != 6 {
		t.Errorf("Expected P50 = 6, got %d", got)
	}
	if got := *nearestRank(sorted, 95); got != 10 {
		t.Errorf("Expected P95 = 10, got %d", got)
	}
	if got := *nearestRank(sorted, 100); got != 10 {
		t.Errorf("Expected P100 clamped to 10, got %d", got)
	}
	if nearestRank(nil, 50) != nil {
		t.Errorf("Expected nil for empty input")
	}
}

func TestSelectSamples(t *testing.T) {
	full := []int{1, 2, 3}
	if got, fb := SelectSamples([]int{4}, full, 1); fb || len(got) != 1 {
		t.Errorf("Window with data should be used, got %v fallback=%v", got, fb)
	}
	if got, fb := SelectSamples(nil, full, 1); !fb || len(got) != 3 {
		t.Errorf("Empty window should fall back, got %v fallback=%v", got, fb)
	}
	if _, fb := SelectSamples([]int{1, 2}, full, 5); !fb {
		t.Errorf("Window below threshold should fall back")
	}
}

func TestCalculateFatTail(t *testing.T) {
	stable := []int{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	if v := CalculateFatTail(stable); v > 1.1 {
		t.Errorf("Expected low volatility for stable process, got %.2f", v)
	}
	chaotic := []int{1, 1, 1, 1, 1, 1, 1, 1, 1, 10}
	if v := CalculateFatTail(chaotic); v < fatTailThreshold {
		t.Errorf("Expected high volatility for chaotic process, got %.2f", v)
	}
}
