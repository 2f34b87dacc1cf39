package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"flowcast/cmd/mockgen/engine"
)

func main() {
	scenario := flag.String("scenario", "mild", "Scenario to generate: mild, chaos, drift")
	distribution := flag.String("distribution", "uniform", "Distribution to use: uniform, weibull")
	outDir := flag.String("out", "./.cache", "Output directory for the generated CSV")
	name := flag.String("name", "MCSTEST_0", "File name (without extension)")
	count := flag.Int("count", 200, "Number of items to generate")
	seed := flag.Int64("seed", 0, "Random seed (0 = time-seeded)")
	flag.Parse()

	cfg := engine.GeneratorConfig{
		Scenario:     *scenario,
		Distribution: *distribution,
		Count:        *count,
		Now:          time.Now(),
		Seed:         *seed,
	}

	fmt.Printf("Generating scenario '%s' (Distribution: %s, Count: %d) to %s...\n", cfg.Scenario, cfg.Distribution, cfg.Count, *outDir)

	items := engine.Generate(cfg)

	path, err := engine.Save(*outDir, *name, items)
	if err != nil {
		fmt.Printf("Failed to save mock data: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Done: %s\n", path)
}
