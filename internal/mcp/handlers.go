package mcp

import (
	"context"
	"fmt"

	"flowcast/internal/report"

	"github.com/rs/zerolog/log"
)

type roadmapStep struct {
	Step        int    `json:"step"`
	Tool        string `json:"tool"`
	Description string `json:"description"`
}

type roadmap struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Steps       []roadmapStep `json:"steps"`
}

var roadmaps = map[string]roadmap{
	"workflow_setup": {
		Title:       "Analytical Workflow: Data & Workflow Setup",
		Description: "Recommended sequence to load data and confirm what counts as work in progress.",
		Steps: []roadmapStep{
			{1, "get_csv_template", "Show the expected CSV layout for the current workflow."},
			{2, "ingest_csv", "Load the items; the workflow states are derived from the entered_ columns."},
			{3, "get_workflow", "Confirm the state order and which states are in progress."},
			{4, "toggle_in_progress", "Correct the in-progress classification where the default is wrong."},
		},
	},
	"flow": {
		Title:       "Analytical Workflow: Flow Health",
		Description: "Recommended sequence to understand how work moves through the system.",
		Steps: []roadmapStep{
			{1, "get_metrics", "Read the cumulative flow and WIP run to spot growing queues."},
			{2, "get_metrics", "Repeat with include_stability to check for special-cause signals (XmR)."},
			{3, "get_metrics", "Inspect aging WIP: items older than the P85 cycle time need attention."},
		},
	},
	"forecasting": {
		Title:       "Analytical Workflow: Probabilistic Forecasting",
		Description: "Recommended sequence to produce reliable delivery forecasts.",
		Steps: []roadmapStep{
			{1, "get_workflow", "Verify the workflow mapping; forecasts sample completions from the last state."},
			{2, "get_metrics", "Verify that throughput is stable enough to sample from (include_stability)."},
			{3, "forecast_backtest", "Check how well past forecasts matched reality."},
			{4, "forecast_how_many", "Forecast the items finished within a horizon."},
			{5, "forecast_when", "Forecast the days needed to finish a number of items."},
		},
	},
}

func (s *Server) handleGetDiagnosticRoadmap(_ context.Context, in RoadmapInput) (any, error) {
	res, ok := roadmaps[in.Goal]
	if !ok {
		return nil, fmt.Errorf("unknown goal: %s. Available goals: forecasting, flow, workflow_setup", in.Goal)
	}
	return WrapResponse(res, nil, nil, nil, nil), nil
}

func (s *Server) handleGenerateReport(_ context.Context, in ReportInput) (any, error) {
	st := s.store.Snapshot()
	path, err := report.Write(s.cfg.ReportDir, st, report.Options{Title: in.Title})
	if err != nil {
		return nil, err
	}

	var warnings []string
	if in.Open {
		if err := report.Open(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Failed to open report")
			warnings = append(warnings, "The report was written but could not be opened: "+err.Error())
		}
	}
	return WrapResponse(map[string]string{"path": path}, st, warnings, nil, nil), nil
}
