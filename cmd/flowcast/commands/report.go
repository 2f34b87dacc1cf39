package commands

import (
	"context"
	"fmt"

	"flowcast/internal/report"
	"flowcast/internal/simulation"
	"flowcast/internal/store"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	reportOpen   bool
	reportTitle  string
	reportDays   int
	reportTarget int
)

var reportCmd = &cobra.Command{
	Use:   "report <csv>",
	Short: "Write a self-contained HTML report with metrics and forecasts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		if err := loadCSV(st, args[0]); err != nil {
			return err
		}

		path, err := writeReport(cmd.Context(), st)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)

		if reportOpen {
			return report.Open(path)
		}
		return nil
	},
}

// writeReport runs the requested forecasts into the store and renders it.
func writeReport(ctx context.Context, st *store.Store) (string, error) {
	engine := simulation.NewEngine()
	engine.SetSeed(cfg.Seed)
	worker := simulation.NewWorker(engine)
	defer worker.Close()

	if reportDays > 0 {
		req, _ := st.SimulationRequest(simulation.KindHowMany, nil, nil, cfg.MinWindowSamples, cfg.Simulations)
		req.Days = reportDays
		resp := worker.RunSync(ctx, req)
		if resp.Err != nil {
			return "", resp.Err
		}
		st.RecordHowMany(resp)
	}
	if reportTarget > 0 {
		req, _ := st.SimulationRequest(simulation.KindWhen, nil, nil, cfg.MinWindowSamples, cfg.Simulations)
		req.TargetCount = reportTarget
		resp := worker.RunSync(ctx, req)
		if resp.Err != nil {
			return "", resp.Err
		}
		st.RecordWhen(resp)
	}

	path, err := report.Write(cfg.ReportDir, st.Snapshot(), report.Options{Title: reportTitle})
	if err != nil {
		return "", err
	}
	log.Debug().Str("path", path).Msg("Report ready")
	return path, nil
}

func init() {
	reportCmd.Flags().BoolVar(&reportOpen, "open", false, "open the report in the default browser")
	reportCmd.Flags().StringVar(&reportTitle, "title", "", "report title")
	reportCmd.Flags().IntVar(&reportDays, "days", 14, "how-many forecast horizon in days (0 to skip)")
	reportCmd.Flags().IntVar(&reportTarget, "target", 0, "when forecast item count (0 to skip)")
	rootCmd.AddCommand(reportCmd)
}
