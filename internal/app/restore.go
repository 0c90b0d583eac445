package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nixmate/nixmate/internal/actions"
)

var (
	restoreFlagUser   bool
	restoreFlagDryRun bool
	restoreFlagYes    bool
)

var restoreCmd = &cobra.Command{
	Use:   "restore <generation>",
	Short: "Switch the profile back to a generation",
	Long: `Switch the profile to an earlier generation. The system profile runs
the generation's own activation under sudo; Home-Manager generations
run their activate script.

Restoring the currently active generation is refused. The exact
command is shown and confirmed before anything runs.

Examples:
  nixmate restore 39
  nixmate restore 39 --dry-run
  nixmate restore 2 --user`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().BoolVar(&restoreFlagUser, "user", false, "Use the Home-Manager profile")
	restoreCmd.Flags().BoolVar(&restoreFlagDryRun, "dry-run", false, "Show the command without executing it")
	restoreCmd.Flags().BoolVar(&restoreFlagYes, "yes", false, "Skip the confirmation prompt")
	RootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}

	d, cleanup, err := openDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	source, err := d.resolveSource(restoreFlagUser)
	if err != nil {
		return err
	}

	gens := d.loadGenerations(source)
	d.machine.RequestRestore(source, gens, ids[0], restoreFlagDryRun)
	if err := flashError(d.machine); err != nil {
		return err
	}
	pending := d.machine.Pending()

	if !restoreFlagDryRun && !restoreFlagYes &&
		!confirmPrompt(os.Stdin, os.Stdout, fmt.Sprintf("Restore generation %d", ids[0]), pending.Command) {
		d.machine.Cancel()
		fmt.Println("Aborted.")
		return nil
	}

	d.machine.Confirm()
	return reportMutation(d.machine, pending.Command)
}

// reportMutation prints the outcome of a confirmed restore or delete.
// Undo windows are an interactive affordance; the CLI reports and
// finishes.
func reportMutation(machine *actions.Machine, command string) error {
	switch machine.State() {
	case actions.StateFailed:
		err := fmt.Errorf("%s", machine.Failure())
		machine.DismissError()
		return err
	case actions.StateUndoPending:
		fmt.Println(machine.UndoDescription())
		machine.DismissUndo()
		return nil
	default:
		if flash, isErr := machine.Flash(); flash != "" {
			if isErr {
				return fmt.Errorf("%s", flash)
			}
			fmt.Println(flash)
			fmt.Printf("  %s\n", command)
		}
		return nil
	}
}
