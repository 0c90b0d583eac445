package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nixmate/nixmate/internal/output"
)

var generationsFlagUser bool

var generationsCmd = &cobra.Command{
	Use:   "generations",
	Short: "List generations of a profile",
	Long: `List the generations of the system profile (or the Home-Manager
profile with --user), newest first, with metadata where available.

Discovery reads the profile's generation links directly and falls back
to nix-env when the directory is unreadable. Missing metadata renders
as "-" rather than failing the listing.

Examples:
  nixmate generations
  nixmate generations --user`,
	Args: cobra.NoArgs,
	RunE: runGenerations,
}

func init() {
	generationsCmd.Flags().BoolVar(&generationsFlagUser, "user", false, "Use the Home-Manager profile")
	RootCmd.AddCommand(generationsCmd)
}

func runGenerations(cmd *cobra.Command, args []string) error {
	d, cleanup, err := openDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	source, err := d.resolveSource(generationsFlagUser)
	if err != nil {
		return err
	}

	gens := d.loadGenerations(source)
	fmt.Print(output.RenderGenerationTable(source.Type, gens))
	return nil
}
