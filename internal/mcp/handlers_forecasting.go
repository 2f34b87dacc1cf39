package mcp

import (
	"context"
	"fmt"

	"flowcast/internal/simulation"
	"flowcast/internal/store"
	"flowcast/internal/visuals"
)

const staleResultWarning = "The data changed or a newer forecast was requested while the simulation ran; this result was not kept."

// simulationRequest issues a sequenced worker request for the current snapshot.
func (s *Server) simulationRequest(kind simulation.Kind, windowStart, windowEnd string, sims int) (simulation.Request, *store.State, error) {
	start, end, err := parseWindow(windowStart, windowEnd)
	if err != nil {
		return simulation.Request{}, nil, err
	}
	if sims == 0 {
		sims = s.cfg.Simulations
	}
	req, st := s.store.SimulationRequest(kind, start, end, s.cfg.MinWindowSamples, sims)
	return req, st, nil
}

func fallbackWarning(used bool) []string {
	if !used {
		return nil
	}
	return []string{"The selected window had too little history; the full throughput history was sampled instead."}
}

func (s *Server) handleForecastHowMany(ctx context.Context, in HowManyInput) (any, error) {
	req, st, err := s.simulationRequest(simulation.KindHowMany, in.WindowStart, in.WindowEnd, in.Simulations)
	if err != nil {
		return nil, err
	}
	req.Days = in.Days

	resp := s.worker.RunSync(ctx, req)
	if resp.Err != nil {
		return nil, resp.Err
	}
	res := *resp.HowMany
	if res.Blocked() {
		return WrapResponse(nil, st, nil, res.Guardrails, nil), nil
	}

	warnings := append(fallbackWarning(res.FallbackUsed), res.Warnings...)
	if !s.store.RecordHowMany(resp) {
		warnings = append(warnings, staleResultWarning)
	}

	var charts map[string]string
	if s.cfg.EnableMermaidCharts {
		charts = map[string]string{
			"percentiles":  visuals.GenerateHowManyChart(res.Percentiles),
			"distribution": visuals.GenerateSimulationHistogram(res.Histogram, string(simulation.KindHowMany)),
		}
	}

	res.Samples = nil
	return WrapResponse(res, st, warnings, nil, charts), nil
}

func (s *Server) handleForecastWhen(ctx context.Context, in WhenInput) (any, error) {
	req, st, err := s.simulationRequest(simulation.KindWhen, in.WindowStart, in.WindowEnd, in.Simulations)
	if err != nil {
		return nil, err
	}
	req.TargetCount = in.TargetCount

	resp := s.worker.RunSync(ctx, req)
	if resp.Err != nil {
		return nil, resp.Err
	}
	res := *resp.When
	if res.Blocked() {
		return WrapResponse(nil, st, nil, res.Guardrails, nil), nil
	}

	warnings := append(fallbackWarning(res.FallbackUsed), res.Warnings...)
	if !s.store.RecordWhen(resp) {
		warnings = append(warnings, staleResultWarning)
	}

	var charts map[string]string
	if s.cfg.EnableMermaidCharts {
		charts = map[string]string{
			"percentiles":  visuals.GenerateWhenChart(res.Percentiles),
			"distribution": visuals.GenerateSimulationHistogram(res.Histogram, string(simulation.KindWhen)),
		}
	}

	res.Samples = nil
	return WrapResponse(res, st, warnings, nil, charts), nil
}

func (s *Server) handleBacktest(ctx context.Context, in BacktestInput) (any, error) {
	cfg := simulation.WalkForwardConfig{
		LookbackWindow:  in.LookbackDays,
		StepSize:        in.StepDays,
		ForecastHorizon: in.HorizonDays,
		NumSimulations:  s.cfg.Simulations,
	}
	if cfg.LookbackWindow == 0 {
		cfg.LookbackWindow = 90
	}
	if cfg.StepSize == 0 {
		cfg.StepSize = 14
	}
	if cfg.ForecastHorizon == 0 {
		cfg.ForecastHorizon = 14
	}

	st := s.store.Snapshot()
	res, err := simulation.WalkForward(ctx, s.engine, st.Metrics.ThroughputRun, cfg)
	if err != nil {
		return nil, fmt.Errorf("backtest: %w", err)
	}
	return WrapResponse(res, st, nil, nil, nil), nil
}
