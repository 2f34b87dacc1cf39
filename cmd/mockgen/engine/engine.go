package engine

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"flowcast/internal/dates"
	"flowcast/internal/ingest"
)

// States is the workflow every generated dataset follows.
var States = []string{"Open", "Refinement", "In Progress", "Done"}

type GeneratorConfig struct {
	Scenario     string
	Distribution string // "uniform" or "weibull"
	Count        int
	Now          time.Time
	Seed         int64
}

// Generate produces Count items arriving one per day and ending at cfg.Now.
// Items whose sampled cycle time has not elapsed yet are still in flight.
func Generate(cfg GeneratorConfig) []ingest.Item {
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}
	cfg.Now = dates.Truncate(cfg.Now)
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	items := make([]ingest.Item, 0, cfg.Count)
	tArrival := cfg.Now.AddDate(0, 0, -cfg.Count)

	for i := 0; i < cfg.Count; i++ {
		// 1. Arrival
		arrival := tArrival.AddDate(0, 0, i)

		// 2. Determine Parameters
		k, lambda := 2.5, 9.5 // Mild: Targeted at ~5.0 day In-Progress residency
		switch cfg.Scenario {
		case "chaos":
			k = 0.8
			if cfg.Distribution == "weibull" {
				lambda = 12.0
			}
		case "drift":
			ratio := float64(i) / float64(cfg.Count)
			k = 2.5 - (1.7 * ratio) // Shift 2.5 -> 0.8
			lambda = 9.5 + (2.5 * ratio)
		}

		// 3. Sample Total Cycle Time (Duration)
		var totalDuration float64
		if cfg.Distribution == "weibull" {
			totalDuration = weibullSample(rng, k, lambda)
		} else {
			// Uniform baseline: 6-11 days
			totalDuration = 6.0 + rng.Float64()*5.0
			if cfg.Scenario == "chaos" && rng.Float64() < 0.2 {
				totalDuration += 10 + rng.Float64()*15 // Controlled Black Swans
			}
			if cfg.Scenario == "drift" && i > cfg.Count/2 {
				totalDuration *= 2.0
			}
		}

		// 4. Transition dates at fixed shares of the duration; only the past is recorded.
		item := ingest.Item{
			ID:      fmt.Sprintf("MCSTEST-%d", i+1),
			Title:   fmt.Sprintf("Generated item %d", i+1),
			Entered: make(map[string]*time.Time, len(States)),
		}
		for j, share := range []float64{0, 0.15, 0.40, 1.0} {
			at := dates.Truncate(arrival.Add(time.Duration(totalDuration * share * 24 * float64(time.Hour))))
			if at.After(cfg.Now) {
				break
			}
			item.Entered[States[j]] = dates.Ptr(at)
		}
		items = append(items, item)
	}
	return items
}

func weibullSample(rng *rand.Rand, k, lambda float64) float64 {
	u := rng.Float64()
	if u == 0 {
		u = 0.0001
	}
	// X = lambda * (-ln(1-u))^(1/k)
	return lambda * math.Pow(-math.Log(1.0-u), 1.0/k)
}

// Write renders items in the CSV layout the ingester reads.
func Write(w io.Writer, items []ingest.Item) error {
	cw := csv.NewWriter(w)
	header := []string{"id", "title"}
	for _, s := range States {
		header = append(header, ingest.EnteredPrefix+s)
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, it := range items {
		row := []string{it.ID, it.Title}
		for _, s := range States {
			row = append(row, dates.FormatPtr(it.Entered[s]))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Save writes the items to <outDir>/<name>.csv and returns the path.
func Save(outDir, name string, items []ingest.Item) (string, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(outDir, name+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := Write(f, items); err != nil {
		return "", err
	}
	return path, f.Close()
}
