package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nixmate/nixmate/internal/output"
	"github.com/nixmate/nixmate/internal/storage"
)

var (
	storeFlagPaths int
	storeFlagDead  bool
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Show store disk usage and largest paths",
	Long: `Scan the Nix store: disk usage, live/dead path accounting and the
largest store paths. The scan degrades gracefully when parts of the
nix tooling are unavailable; whatever could be determined is shown.

Examples:
  nixmate store
  nixmate store --paths 30
  nixmate store --dead`,
	Args: cobra.NoArgs,
	RunE: runStore,
}

func init() {
	storeCmd.Flags().IntVar(&storeFlagPaths, "paths", 15, "Number of paths to list")
	storeCmd.Flags().BoolVar(&storeFlagDead, "dead", false, "Only list dead (reclaimable) paths")
	RootCmd.AddCommand(storeCmd)
}

func runStore(cmd *cobra.Command, args []string) error {
	d, cleanup, err := openDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	spin := output.NewSpinner("Scanning store").WithTimeout(storage.ScanBudget())
	spin.Start()
	info := d.accountant.Load()
	spin.Stop()

	fmt.Print(output.RenderStoreSummary(info))
	fmt.Println()
	fmt.Print(output.RenderStorePathTable(info, storeFlagPaths, storeFlagDead))
	return nil
}
