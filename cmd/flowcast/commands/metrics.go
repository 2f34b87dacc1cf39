package commands

import (
	"fmt"
	"strings"

	"flowcast/internal/stats"
	"flowcast/internal/visuals"

	"github.com/spf13/cobra"
)

var (
	metricsBucket    string
	metricsStability bool
	metricsCharts    bool
)

var metricsCmd = &cobra.Command{
	Use:   "metrics <csv>",
	Short: "Print the flow metrics of a CSV as JSON or Mermaid charts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		if err := loadCSV(st, args[0]); err != nil {
			return err
		}
		snap := st.Snapshot()
		throughput := stats.Aggregate(snap.Metrics.ThroughputRun, metricsBucket)

		var stability *stats.StabilityResult
		if metricsStability {
			res := stats.ComputeStability(snap.Items, snap.Metrics)
			stability = &res
		}

		if metricsCharts || cfg.EnableMermaidCharts {
			charts := []string{
				visuals.GenerateCFDChart(snap.Metrics.CFD, snap.Definition.VisibleStates()),
				visuals.GenerateWIPRunChart(snap.Metrics.WipRun),
				visuals.GenerateThroughputChart(throughput),
				visuals.GenerateCycleTimeHistogram(snap.Metrics.CycleHistogram),
				visuals.GenerateAgingChart(snap.Metrics.AgingWip),
			}
			if stability != nil {
				charts = append(charts,
					visuals.GenerateXmRChart(stability.CycleTime, "Cycle Time XmR", "Days"),
					visuals.GenerateXmRChart(stability.WeeklyThroughput, "Weekly Throughput XmR", "Items"))
			}
			var out []string
			for _, c := range charts {
				if c != "" {
					out = append(out, c)
				}
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), strings.Join(out, "\n\n"))
			return err
		}

		return writeJSON(cmd.OutOrStdout(), map[string]any{
			"summary":     snap.Summary,
			"workflow":    snap.Definition,
			"metrics":     snap.Metrics,
			"throughput":  throughput,
			"stability":   stability,
			"persistence": stats.ComputeStatePersistence(snap.Items, snap.Definition.States, snap.Today),
			"warnings":    snap.Warnings,
		})
	},
}

func init() {
	metricsCmd.Flags().StringVar(&metricsBucket, "bucket", stats.BucketWeek, "throughput aggregation: day, week or month")
	metricsCmd.Flags().BoolVar(&metricsStability, "stability", false, "include XmR process behaviour analysis")
	metricsCmd.Flags().BoolVar(&metricsCharts, "charts", false, "print Mermaid charts instead of JSON")
	rootCmd.AddCommand(metricsCmd)
}
