package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nixmate/nixmate/internal/output"
)

var packagesFlagUser bool

var packagesCmd = &cobra.Command{
	Use:   "packages <generation>",
	Short: "List the packages of one generation",
	Long: `List the packages a generation contains. Sizes come from nix
path-info when the store answers; otherwise the listing falls back to
the generation's profile manifest and shows names only.

Examples:
  nixmate packages 40
  nixmate packages 3 --user`,
	Args: cobra.ExactArgs(1),
	RunE: runPackages,
}

func init() {
	packagesCmd.Flags().BoolVar(&packagesFlagUser, "user", false, "Use the Home-Manager profile")
	RootCmd.AddCommand(packagesCmd)
}

func runPackages(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}

	d, cleanup, err := openDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	source, err := d.resolveSource(packagesFlagUser)
	if err != nil {
		return err
	}

	gen, ok := findByID(d.loadGenerations(source), ids[0])
	if !ok {
		return fmt.Errorf("generation %d not found", ids[0])
	}

	pkgs := d.discoverer.Packages(gen.StorePath)
	fmt.Print(output.RenderPackageTable(pkgs))
	return nil
}
