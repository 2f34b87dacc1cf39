package mcp

import (
	"context"
	"fmt"

	"flowcast/internal/stats"
	"flowcast/internal/visuals"
)

// MetricsResponse is the data payload of get_metrics.
type MetricsResponse struct {
	Summary     stats.Summary            `json:"summary"`
	Metrics     stats.Snapshot           `json:"metrics"`
	Throughput  []stats.BucketPoint      `json:"throughput"`
	Stability   *stats.StabilityResult   `json:"stability,omitempty"`
	Persistence []stats.StatePersistence `json:"persistence,omitempty"`
}

func (s *Server) handleGetMetrics(_ context.Context, in MetricsInput) (any, error) {
	bucket := in.Bucket
	if bucket == "" {
		bucket = stats.BucketWeek
	}
	switch bucket {
	case stats.BucketDay, stats.BucketWeek, stats.BucketMonth:
	default:
		return nil, fmt.Errorf("unknown bucket %q (want day, week or month)", in.Bucket)
	}
	start, end, err := parseWindow(in.WindowStart, in.WindowEnd)
	if err != nil {
		return nil, err
	}

	st := s.store.Snapshot()
	res := MetricsResponse{
		Summary:    st.Summary,
		Metrics:    st.Metrics,
		Throughput: stats.Aggregate(stats.WindowThroughput(st.Metrics.ThroughputRun, start, end), bucket),
	}

	var warnings []string
	if len(st.Items) == 0 {
		warnings = append(warnings, "No items loaded; call ingest_csv first.")
	}
	if in.IncludeStability {
		stability := stats.ComputeStability(st.Items, st.Metrics)
		res.Stability = &stability
		if stability.Status == "unstable" {
			warnings = append(warnings, "Process signals detected: forecasts assume the future resembles the past.")
		}
	}

	if in.IncludePersistence {
		res.Persistence = stats.ComputeStatePersistence(st.Items, st.Definition.States, st.Today)
	}

	var charts map[string]string
	if s.cfg.EnableMermaidCharts {
		charts = map[string]string{
			"cfd":        visuals.GenerateCFDChart(st.Metrics.CFD, st.Definition.VisibleStates()),
			"wip_run":    visuals.GenerateWIPRunChart(st.Metrics.WipRun),
			"throughput": visuals.GenerateThroughputChart(res.Throughput),
			"cycle_time": visuals.GenerateCycleTimeHistogram(st.Metrics.CycleHistogram),
			"aging":      visuals.GenerateAgingChart(st.Metrics.AgingWip),
		}
		if res.Stability != nil {
			charts["xmr_cycle_time"] = visuals.GenerateXmRChart(res.Stability.CycleTime, "Cycle Time XmR", "Days")
			charts["xmr_throughput"] = visuals.GenerateXmRChart(res.Stability.WeeklyThroughput, "Weekly Throughput XmR", "Items")
		}
	}

	return WrapResponse(res, st, warnings, nil, charts), nil
}
