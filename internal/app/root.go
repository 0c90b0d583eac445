// Package app wires the command-line surface. Every command builds on
// the same collaborators: discovery, store accounting, the pin store
// and the action machine.
package app

import (
	"github.com/spf13/cobra"

	"github.com/nixmate/nixmate/internal/nix"
	"github.com/nixmate/nixmate/internal/tui"
	"github.com/nixmate/nixmate/internal/watcher"
)

// RootCmd is the nixmate entry point. Without a subcommand it starts
// the interactive TUI.
var RootCmd = &cobra.Command{
	Use:   "nixmate",
	Short: "NixOS generation and store manager",
	Long: `nixmate manages NixOS and Home-Manager generations and the Nix store:
list and compare generations, pin the ones to keep, restore or delete
with confirmation and an undo window, and reclaim store space.

Run without arguments for the interactive interface, or use the
subcommands for scripting:

  nixmate generations          list system generations
  nixmate diff 39 40           compare two generations
  nixmate store --paths 20     largest store paths and disk usage
  nixmate clean gc             collect garbage (with confirmation)
  nixmate restore 39           switch back to a generation
  nixmate delete 37 38         delete generations
  nixmate history              past cleanups`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI()
	},
}

func init() {
	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command.
func Execute() error {
	return RootCmd.Execute()
}

func runTUI() error {
	d, cleanup, err := openDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	var refresh <-chan struct{}
	w, err := watcher.New(watchedProfiles(d.system)...)
	if err == nil {
		w.Start()
		defer w.Stop()
		refresh = w.Refresh()
	}

	return tui.Run(tui.Deps{
		System:          d.system,
		Machine:         d.machine,
		LoadGenerations: d.loadGenerations,
		LoadStore:       d.accountant.Load,
		LoadHistory:     d.ledger.Load,
		TogglePin:       d.pins.Toggle,
		Refresh:         refresh,
	})
}

// watchedProfiles lists the profile symlinks whose parent directories
// the watcher should observe.
func watchedProfiles(system nix.SystemInfo) []string {
	paths := []string{system.SystemProfile}
	if hm, ok := system.HomeManagerSource(); ok {
		paths = append(paths, hm.ProfilePath)
	}
	return paths
}
