package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	deleteFlagUser   bool
	deleteFlagDryRun bool
	deleteFlagYes    bool
)

var deleteCmd = &cobra.Command{
	Use:   "delete <generation>...",
	Short: "Delete generations from a profile",
	Long: `Delete one or more generations. Ids are passed to the underlying
tool explicitly, never as a range. The current generation and pinned
generations are refused.

The exact command is shown and confirmed before anything runs.

Examples:
  nixmate delete 37
  nixmate delete 35 36 37 --dry-run
  nixmate delete 2 --user --yes`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolVar(&deleteFlagUser, "user", false, "Use the Home-Manager profile")
	deleteCmd.Flags().BoolVar(&deleteFlagDryRun, "dry-run", false, "Show the command without executing it")
	deleteCmd.Flags().BoolVar(&deleteFlagYes, "yes", false, "Skip the confirmation prompt")
	RootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}

	d, cleanup, err := openDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	source, err := d.resolveSource(deleteFlagUser)
	if err != nil {
		return err
	}

	gens := d.loadGenerations(source)
	d.machine.RequestDelete(source, gens, ids, deleteFlagDryRun)
	if err := flashError(d.machine); err != nil {
		return err
	}
	pending := d.machine.Pending()

	if !deleteFlagDryRun && !deleteFlagYes &&
		!confirmPrompt(os.Stdin, os.Stdout, fmt.Sprintf("Delete %d generation(s)", len(ids)), pending.Command) {
		d.machine.Cancel()
		fmt.Println("Aborted.")
		return nil
	}

	d.machine.Confirm()
	return reportMutation(d.machine, pending.Command)
}
