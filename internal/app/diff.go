package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nixmate/nixmate/internal/nix"
	"github.com/nixmate/nixmate/internal/output"
)

var diffFlagUser bool

var diffCmd = &cobra.Command{
	Use:   "diff <old> <new>",
	Short: "Compare the packages of two generations",
	Long: `Show what changed between two generations: added, removed and
updated packages, with kernel and security-relevant updates marked.

Examples:
  nixmate diff 39 40
  nixmate diff 2 3 --user`,
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().BoolVar(&diffFlagUser, "user", false, "Use the Home-Manager profile")
	RootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}

	d, cleanup, err := openDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	source, err := d.resolveSource(diffFlagUser)
	if err != nil {
		return err
	}

	gens := d.loadGenerations(source)
	oldGen, ok := findByID(gens, ids[0])
	if !ok {
		return fmt.Errorf("generation %d not found", ids[0])
	}
	newGen, ok := findByID(gens, ids[1])
	if !ok {
		return fmt.Errorf("generation %d not found", ids[1])
	}

	diff := nix.Diff(d.discoverer.Packages(oldGen.StorePath), d.discoverer.Packages(newGen.StorePath))
	fmt.Print(output.RenderDiffTable(ids[0], ids[1], diff))
	return nil
}
