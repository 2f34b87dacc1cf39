package simulation

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	// MinSimulations is the smallest trial count accepted by the engine.
	MinSimulations = 100
	// MaxTrialDays caps a single when-how-long trial.
	MaxTrialDays = 10000
	// shardCount is fixed so a given seed always produces the same samples.
	shardCount = 8
)

// Guardrail messages block a run without raising an error.
const (
	GuardNoSamples      = "No throughput history is available to sample from."
	GuardHorizon        = "The forecast horizon must be at least one day."
	GuardTarget         = "The target count must be at least one item."
	GuardAllZero        = "Every sampled day has zero throughput; the forecast would never finish."
	guardSimulationsFmt = "At least %d simulations are required."
)

// HowManyRequest asks how many items finish within Days days.
type HowManyRequest struct {
	Samples        []int `json:"samples"`
	Days           int   `json:"days"`
	NumSimulations int   `json:"numSimulations"`
}

// WhenRequest asks how many days it takes to finish TargetCount items.
type WhenRequest struct {
	Samples        []int `json:"samples"`
	TargetCount    int   `json:"targetCount"`
	NumSimulations int   `json:"numSimulations"`
}

// HowManyPercentiles are nearest-rank levels; a lower level is the safer bet.
type HowManyPercentiles struct {
	P05 *int `json:"p05"`
	P15 *int `json:"p15"`
	P50 *int `json:"p50"`
}

// WhenPercentiles are nearest-rank levels in days.
type WhenPercentiles struct {
	P50 *int `json:"p50"`
	P85 *int `json:"p85"`
	P95 *int `json:"p95"`
}

// HowManyResult holds the sorted trial totals.
type HowManyResult struct {
	Days         int                `json:"days"`
	Samples      []int              `json:"samples,omitempty"`
	Percentiles  HowManyPercentiles `json:"percentiles"`
	Histogram    []Bucket           `json:"histogram"`
	Pool         PoolStats          `json:"pool"`
	Warnings     []string           `json:"warnings,omitempty"`
	Guardrails   []string           `json:"guardrails,omitempty"`
	FallbackUsed bool               `json:"fallbackUsed"`
}

// WhenResult holds the sorted trial durations in days.
type WhenResult struct {
	TargetCount  int             `json:"targetCount"`
	Samples      []int           `json:"samples,omitempty"`
	Percentiles  WhenPercentiles `json:"percentiles"`
	Histogram    []Bucket        `json:"histogram"`
	Pool         PoolStats       `json:"pool"`
	CappedTrials int             `json:"cappedTrials,omitempty"`
	Warnings     []string        `json:"warnings,omitempty"`
	Guardrails   []string        `json:"guardrails,omitempty"`
	FallbackUsed bool            `json:"fallbackUsed"`
}

// Blocked reports whether a guardrail stopped the run.
func (r HowManyResult) Blocked() bool { return len(r.Guardrails) > 0 }

// Blocked reports whether a guardrail stopped the run.
func (r WhenResult) Blocked() bool { return len(r.Guardrails) > 0 }

// Engine performs the Monte-Carlo simulation.
type Engine struct {
	mu     sync.Mutex
	seed   int64
	seeded bool
}

func NewEngine() *Engine {
	return &Engine{}
}

// SetSeed makes every following run reproducible. Zero restores time seeding.
func (e *Engine) SetSeed(seed int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seed = seed
	e.seeded = seed != 0
}

func (e *Engine) runSeed() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.seeded {
		return e.seed
	}
	return time.Now().UnixNano()
}

// RunHowMany sums Days random draws per trial. Only context cancellation
// produces an error; bad input is reported through Guardrails.
func (e *Engine) RunHowMany(ctx context.Context, req HowManyRequest) (HowManyResult, error) {
	res := HowManyResult{Days: req.Days}
	if len(req.Samples) == 0 {
		res.Guardrails = append(res.Guardrails, GuardNoSamples)
	}
	if req.Days <= 0 {
		res.Guardrails = append(res.Guardrails, GuardHorizon)
	}
	if req.NumSimulations < MinSimulations {
		res.Guardrails = append(res.Guardrails, fmt.Sprintf(guardSimulationsFmt, MinSimulations))
	}
	if res.Blocked() {
		return res, nil
	}

	h := NewHistogram(req.Samples)
	res.Pool = h.Stats
	res.Warnings = poolWarnings(h)

	totals, _, err := e.runTrials(ctx, req.NumSimulations, func(rng *rand.Rand) (int, bool) {
		total := 0
		for range req.Days {
			total += h.Counts[rng.Intn(len(h.Counts))]
		}
		return total, false
	})
	if err != nil {
		return HowManyResult{}, err
	}

	res.Samples = totals
	res.Histogram = Distribution(totals)
	res.Percentiles = HowManyPercentiles{
		P05: nearestRank(totals, 5),
		P15: nearestRank(totals, 15),
		P50: nearestRank(totals, 50),
	}

	log.Debug().Int("trials", req.NumSimulations).Int("days", req.Days).Int("pool", len(h.Counts)).Msg("How-many simulation finished")
	return res, nil
}

// RunWhen draws days until the running total reaches TargetCount. Trials that
// hit MaxTrialDays are recorded at the cap and counted.
func (e *Engine) RunWhen(ctx context.Context, req WhenRequest) (WhenResult, error) {
	res := WhenResult{TargetCount: req.TargetCount}
	if len(req.Samples) == 0 {
		res.Guardrails = append(res.Guardrails, GuardNoSamples)
	}
	if req.TargetCount <= 0 {
		res.Guardrails = append(res.Guardrails, GuardTarget)
	}
	if req.NumSimulations < MinSimulations {
		res.Guardrails = append(res.Guardrails, fmt.Sprintf(guardSimulationsFmt, MinSimulations))
	}
	h := NewHistogram(req.Samples)
	if len(req.Samples) > 0 && h.AllZero() {
		res.Guardrails = append(res.Guardrails, GuardAllZero)
	}
	if res.Blocked() {
		return res, nil
	}

	res.Pool = h.Stats
	res.Warnings = poolWarnings(h)

	durations, capped, err := e.runTrials(ctx, req.NumSimulations, func(rng *rand.Rand) (int, bool) {
		days, total := 0, 0
		for total < req.TargetCount {
			if days == MaxTrialDays {
				return days, true
			}
			days++
			total += h.Counts[rng.Intn(len(h.Counts))]
		}
		return days, false
	})
	if err != nil {
		return WhenResult{}, err
	}

	if capped > 0 {
		res.CappedTrials = capped
		res.Warnings = append(res.Warnings, fmt.Sprintf("Mostly zero throughput: %d of %d trials did not finish within %d days.", capped, req.NumSimulations, MaxTrialDays))
		log.Warn().Int("capped", capped).Int("trials", req.NumSimulations).Msg("When-how-long trials hit the day cap")
	}

	res.Samples = durations
	res.Histogram = Distribution(durations)
	res.Percentiles = WhenPercentiles{
		P50: nearestRank(durations, 50),
		P85: nearestRank(durations, 85),
		P95: nearestRank(durations, 95),
	}

	log.Debug().Int("trials", req.NumSimulations).Int("target", req.TargetCount).Int("pool", len(h.Counts)).Msg("When-how-long simulation finished")
	return res, nil
}

// runTrials splits the trials over a fixed number of shards, each with its
// own RNG derived from the run seed, and returns the sorted outcomes plus the
// number of trials that reported hitting a cap.
func (e *Engine) runTrials(ctx context.Context, trials int, trial func(*rand.Rand) (int, bool)) ([]int, int, error) {
	seed := e.runSeed()
	out := make([]int, trials)
	capped := make([]int, shardCount)

	g, ctx := errgroup.WithContext(ctx)
	for shard := range shardCount {
		lo := shard * trials / shardCount
		hi := (shard + 1) * trials / shardCount
		g.Go(func() error {
			rng := rand.New(rand.NewSource(seed + int64(shard)*1_000_003))
			for i := lo; i < hi; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				v, hitCap := trial(rng)
				out[i] = v
				if hitCap {
					capped[shard]++
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	slices.Sort(out)
	total := 0
	for _, c := range capped {
		total += c
	}
	return out, total, nil
}

// nearestRank picks sorted[floor(p/100*n)], clamped to the last index.
func nearestRank(sorted []int, p float64) *int {
	if len(sorted) == 0 {
		return nil
	}
	idx := min(int(math.Floor(p/100*float64(len(sorted)))), len(sorted)-1)
	v := sorted[idx]
	return &v
}
