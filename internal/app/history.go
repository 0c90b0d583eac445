package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nixmate/nixmate/internal/output"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past cleanups",
	Long: `Show the recorded cleanup history: when each garbage collection,
full cleanup or optimisation ran and how much it freed.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	RootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	d, cleanup, err := openDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Print(output.RenderHistoryTable(d.ledger.Load()))
	return nil
}
