package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	pinFlagUser   bool
	pinFlagRemove bool
)

var pinCmd = &cobra.Command{
	Use:   "pin <generation>",
	Short: "Toggle a generation's pin",
	Long: `Pin or unpin a generation. Pinned generations can never be targeted
for deletion, by nixmate's delete command or its full cleanup.

Pins are nixmate bookkeeping; the Nix store itself does not track
them.

Examples:
  nixmate pin 39
  nixmate pin 39 --remove
  nixmate pin 2 --user`,
	Args: cobra.ExactArgs(1),
	RunE: runPin,
}

func init() {
	pinCmd.Flags().BoolVar(&pinFlagUser, "user", false, "Use the Home-Manager profile")
	pinCmd.Flags().BoolVar(&pinFlagRemove, "remove", false, "Remove the pin instead of toggling")
	RootCmd.AddCommand(pinCmd)
}

func runPin(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}

	d, cleanup, err := openDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	source, err := d.resolveSource(pinFlagUser)
	if err != nil {
		return err
	}

	if _, ok := findByID(d.loadGenerations(source), ids[0]); !ok {
		return fmt.Errorf("generation %d not found", ids[0])
	}

	if pinFlagRemove {
		if err := d.pins.Unpin(source.Type, ids[0]); err != nil {
			return err
		}
		fmt.Printf("Unpinned generation %d\n", ids[0])
		return nil
	}

	pinned, err := d.pins.Toggle(source.Type, ids[0])
	if err != nil {
		return err
	}
	if pinned {
		fmt.Printf("Pinned generation %d\n", ids[0])
	} else {
		fmt.Printf("Unpinned generation %d\n", ids[0])
	}
	return nil
}
