package simulation

import (
	"context"
	"fmt"
	"math"

	"flowcast/internal/dates"
	"flowcast/internal/stats"
)

// WalkForwardConfig defines the parameters for the backtesting analysis.
type WalkForwardConfig struct {
	LookbackWindow  int // Days of history each checkpoint samples from (e.g., 90)
	StepSize        int // Days between checkpoints (e.g., 14)
	ForecastHorizon int // Days forecast from each checkpoint
	NumSimulations  int
}

// ValidationCheckpoint represents a single point in the past where we ran a simulation.
type ValidationCheckpoint struct {
	Date         string `json:"date"`
	ActualValue  int    `json:"actualValue"` // items actually delivered in the horizon
	PredictedP05 int    `json:"predictedP05"`
	PredictedP50 int    `json:"predictedP50"`
	PredictedP95 int    `json:"predictedP95"`
	IsWithinCone bool   `json:"isWithinCone"` // P05 <= actual <= P95
}

// WalkForwardResult holds the aggregate results of the analysis.
type WalkForwardResult struct {
	AccuracyScore     float64                `json:"accuracyScore"` // share of checkpoints within the cone
	Checkpoints       []ValidationCheckpoint `json:"checkpoints"`
	ValidationMessage string                 `json:"validationMessage"`
}

// WalkForward replays how-many forecasts at past checkpoints of a daily
// throughput run and compares them with what was actually delivered.
func WalkForward(ctx context.Context, engine *Engine, run []stats.RunPoint, cfg WalkForwardConfig) (WalkForwardResult, error) {
	result := WalkForwardResult{Checkpoints: make([]ValidationCheckpoint, 0)}
	if cfg.StepSize <= 0 || cfg.ForecastHorizon <= 0 || cfg.LookbackWindow <= 0 {
		result.ValidationMessage = "Lookback, step size and horizon must all be positive."
		return result, nil
	}

	counts := stats.Counts(run)

	// Walk backwards from the most recent checkpoint whose horizon is fully observed.
	within := 0
	for cut := len(counts) - cfg.ForecastHorizon; cut >= cfg.LookbackWindow; cut -= cfg.StepSize {
		history := counts[cut-cfg.LookbackWindow : cut]
		actual := 0
		for _, c := range counts[cut : cut+cfg.ForecastHorizon] {
			actual += c
		}

		res, err := engine.RunHowMany(ctx, HowManyRequest{
			Samples:        history,
			Days:           cfg.ForecastHorizon,
			NumSimulations: cfg.NumSimulations,
		})
		if err != nil {
			return WalkForwardResult{}, err
		}
		if res.Blocked() {
			return WalkForwardResult{}, fmt.Errorf("backtest checkpoint %s: %s", dates.Format(run[cut].Date), res.Guardrails[0])
		}

		cp := ValidationCheckpoint{
			Date:         dates.Format(run[cut].Date),
			ActualValue:  actual,
			PredictedP05: *res.Percentiles.P05,
			PredictedP50: *res.Percentiles.P50,
			PredictedP95: *nearestRank(res.Samples, 95),
		}
		cp.IsWithinCone = actual >= cp.PredictedP05 && actual <= cp.PredictedP95
		if cp.IsWithinCone {
			within++
		}
		result.Checkpoints = append(result.Checkpoints, cp)
	}

	if len(result.Checkpoints) == 0 {
		result.ValidationMessage = fmt.Sprintf("Not enough history: need at least %d days, have %d.", cfg.LookbackWindow+cfg.ForecastHorizon, len(counts))
		return result, nil
	}

	result.AccuracyScore = math.Round(float64(within)/float64(len(result.Checkpoints))*100) / 100
	switch {
	case result.AccuracyScore >= 0.7:
		result.ValidationMessage = "Forecasts from this history have been reliable."
	case result.AccuracyScore >= 0.5:
		result.ValidationMessage = "Forecasts from this history have been moderately reliable; treat the P05 level with care."
	default:
		result.ValidationMessage = "Forecasts from this history have often missed; the delivery system has likely changed."
	}
	return result, nil
}
