package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nixmate/nixmate/internal/actions"
	"github.com/nixmate/nixmate/internal/output"
)

var cleanFlagYes bool

var cleanCmd = &cobra.Command{
	Use:   "clean gc|full|optimise",
	Short: "Reclaim store space",
	Long: `Run one of the store cleanup actions:

  gc        delete dead store paths (nix-collect-garbage)
  full      also delete old generations first (sudo nix-collect-garbage -d)
  optimise  deduplicate identical files via hard links (nix store optimise)

The exact command is shown and confirmed before anything runs. Results
are appended to the cleanup history.

Examples:
  nixmate clean gc
  nixmate clean full --yes
  nixmate clean optimise`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"gc", "full", "optimise"},
	RunE:      runClean,
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanFlagYes, "yes", false, "Skip the confirmation prompt")
	RootCmd.AddCommand(cleanCmd)
}

func cleanKind(name string) (actions.Kind, error) {
	switch name {
	case "gc":
		return actions.KindGC, nil
	case "full":
		return actions.KindFullClean, nil
	case "optimise":
		return actions.KindOptimise, nil
	default:
		return 0, fmt.Errorf("unknown clean action %q (want gc, full or optimise)", name)
	}
}

func runClean(cmd *cobra.Command, args []string) error {
	kind, err := cleanKind(args[0])
	if err != nil {
		return err
	}

	d, cleanup, err := openDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	d.machine.RequestClean(kind)
	pending := d.machine.Pending()

	if !cleanFlagYes && !confirmPrompt(os.Stdin, os.Stdout, kind.String(), pending.Command) {
		d.machine.Cancel()
		fmt.Println("Aborted.")
		return nil
	}

	spin := output.NewSpinner("Cleaning")
	spin.Start()
	d.machine.Confirm()
	spin.Stop()

	if d.machine.State() == actions.StateFailed {
		return fmt.Errorf("%s", d.machine.Failure())
	}
	if flash, _ := d.machine.Flash(); flash != "" {
		fmt.Println(flash)
	}
	return nil
}
