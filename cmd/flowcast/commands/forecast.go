package commands

import (
	"errors"
	"fmt"

	"flowcast/internal/simulation"

	"github.com/spf13/cobra"
)

var (
	forecastDays        int
	forecastTarget      int
	forecastSimulations int
	forecastWindowStart string
	forecastWindowEnd   string

	backtestLookback int
	backtestStep     int
	backtestHorizon  int
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Run Monte-Carlo forecasts from the throughput history of a CSV",
}

var howManyCmd = &cobra.Command{
	Use:   "how-many <csv>",
	Short: "Forecast how many items finish within --days days",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := runForecast(cmd, args[0], simulation.KindHowMany)
		if err != nil {
			return err
		}
		res := *resp.HowMany
		res.Samples = nil
		return writeJSON(cmd.OutOrStdout(), res)
	},
}

var whenCmd = &cobra.Command{
	Use:   "when <csv>",
	Short: "Forecast how many days it takes to finish --target items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := runForecast(cmd, args[0], simulation.KindWhen)
		if err != nil {
			return err
		}
		res := *resp.When
		res.Samples = nil
		return writeJSON(cmd.OutOrStdout(), res)
	},
}

var backtestCmd = &cobra.Command{
	Use:   "backtest <csv>",
	Short: "Replay past how-many forecasts against what was actually delivered",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		if err := loadCSV(st, args[0]); err != nil {
			return err
		}
		engine := simulation.NewEngine()
		engine.SetSeed(cfg.Seed)
		res, err := simulation.WalkForward(cmd.Context(), engine, st.Metrics().ThroughputRun, simulation.WalkForwardConfig{
			LookbackWindow:  backtestLookback,
			StepSize:        backtestStep,
			ForecastHorizon: backtestHorizon,
			NumSimulations:  simulationCount(),
		})
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), res)
	},
}

func simulationCount() int {
	if forecastSimulations > 0 {
		return forecastSimulations
	}
	return cfg.Simulations
}

func runForecast(cmd *cobra.Command, path string, kind simulation.Kind) (simulation.Response, error) {
	start, err := parseDateFlag("window-start", forecastWindowStart)
	if err != nil {
		return simulation.Response{}, err
	}
	end, err := parseDateFlag("window-end", forecastWindowEnd)
	if err != nil {
		return simulation.Response{}, err
	}

	st, err := openStore()
	if err != nil {
		return simulation.Response{}, err
	}
	if err := loadCSV(st, path); err != nil {
		return simulation.Response{}, err
	}

	req, _ := st.SimulationRequest(kind, start, end, cfg.MinWindowSamples, simulationCount())
	req.Days = forecastDays
	req.TargetCount = forecastTarget

	engine := simulation.NewEngine()
	engine.SetSeed(cfg.Seed)
	worker := simulation.NewWorker(engine)
	defer worker.Close()

	resp := worker.RunSync(cmd.Context(), req)
	if resp.Err != nil {
		return resp, resp.Err
	}
	guardrails := guardrailsOf(resp)
	if len(guardrails) > 0 {
		return resp, fmt.Errorf("forecast blocked: %w", errors.Join(guardrails...))
	}
	return resp, nil
}

func guardrailsOf(resp simulation.Response) []error {
	var msgs []string
	if resp.HowMany != nil {
		msgs = resp.HowMany.Guardrails
	}
	if resp.When != nil {
		msgs = resp.When.Guardrails
	}
	errs := make([]error, len(msgs))
	for i, m := range msgs {
		errs[i] = errors.New(m)
	}
	return errs
}

func init() {
	for _, c := range []*cobra.Command{howManyCmd, whenCmd} {
		c.Flags().IntVar(&forecastSimulations, "simulations", 0, "number of trials (default from FLOWCAST_SIMULATIONS)")
		c.Flags().StringVar(&forecastWindowStart, "window-start", "", "first day of the sampled history (YYYY-MM-DD)")
		c.Flags().StringVar(&forecastWindowEnd, "window-end", "", "last day of the sampled history (YYYY-MM-DD)")
	}
	howManyCmd.Flags().IntVar(&forecastDays, "days", 14, "forecast horizon in days")
	whenCmd.Flags().IntVar(&forecastTarget, "target", 10, "number of items to finish")

	backtestCmd.Flags().IntVar(&forecastSimulations, "simulations", 0, "number of trials per checkpoint (default from FLOWCAST_SIMULATIONS)")
	backtestCmd.Flags().IntVar(&backtestLookback, "lookback", 90, "days of history each checkpoint samples from")
	backtestCmd.Flags().IntVar(&backtestStep, "step", 14, "days between checkpoints")
	backtestCmd.Flags().IntVar(&backtestHorizon, "horizon", 14, "days forecast from each checkpoint")

	forecastCmd.AddCommand(howManyCmd, whenCmd, backtestCmd)
	rootCmd.AddCommand(forecastCmd)
}
