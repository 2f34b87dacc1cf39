package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"flowcast/internal/config"
	"flowcast/internal/logging"
	"flowcast/internal/mcp"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose bool
	csvPath string
	cfg     *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "flowcast",
	Short: "flowcast computes flow metrics and Monte-Carlo forecasts from a CSV of work items",
	Long: `flowcast reads work items with per-state transition dates from CSV and derives
flow metrics (cumulative flow, WIP, throughput, cycle time, aging WIP) and
Monte-Carlo forecasts (how many items by a date, how long for a number of items).

Without a subcommand it serves the same operations as MCP tools over stdio.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if _, err := logging.Init(logging.Options{Verbose: verbose}); err != nil {
			return err
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		log.Debug().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Str("dataPath", cfg.DataPath).
			Msg("flowcast starting")
		return nil
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the flowcast tools over MCP stdio (default)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	if csvPath != "" {
		if err := loadCSV(st, csvPath); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := mcp.NewServer(cfg, st, Version)
	if err := server.Start(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	serveCmd.Flags().StringVar(&csvPath, "csv", "", "CSV file to load before serving")
	rootCmd.Flags().StringVar(&csvPath, "csv", "", "CSV file to load before serving")
	rootCmd.AddCommand(serveCmd)
}
