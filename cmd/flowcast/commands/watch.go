package commands

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flowcast/internal/watch"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	watchDebounce time.Duration
	watchReport   bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <csv>",
	Short: "Re-ingest a CSV whenever it changes and log the headline metrics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		refresh := func(path string) {
			// A rejected file keeps the previous data in the store.
			if err := loadCSV(st, path); err != nil {
				log.Error().Err(err).Msg("Ingest failed")
				return
			}
			sum := st.Summary()
			log.Info().
				Int("items", sum.TotalItems).
				Int("completed", sum.CompletedItems).
				Int("active", sum.ActiveItems).
				Float64("medianCycleTime", sum.MedianCycleTimeDays).
				Float64("avgDailyThroughput", sum.AvgDailyThroughput).
				Msg("Metrics refreshed")
			if watchReport {
				if path, err := writeReport(ctx, st); err != nil {
					log.Error().Err(err).Msg("Report failed")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), path)
				}
			}
		}

		w, err := watch.NewFileWatcher(args[0], watchDebounce, refresh)
		if err != nil {
			return err
		}
		refresh(w.Path())

		log.Info().Str("path", w.Path()).Msg("Watching for changes")
		if err := w.Run(ctx); err != nil && !errors.Is(err, ctx.Err()) {
			return err
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "quiet period before re-ingesting")
	watchCmd.Flags().BoolVar(&watchReport, "report", false, "rewrite the HTML report after every change")
	rootCmd.AddCommand(watchCmd)
}
