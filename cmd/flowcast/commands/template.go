package commands

import (
	"fmt"

	"flowcast/internal/ingest"

	"github.com/spf13/cobra"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Print a CSV template for the saved (or default) workflow",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), ingest.Template(st.Workflow().States))
		return err
	},
}

func init() {
	rootCmd.AddCommand(templateCmd)
}
