package app

import (
	"testing"
)

func TestSubcommandsRegistered(t *testing.T) {
	want := []string{
		"generations", "packages", "diff", "store",
		"clean", "restore", "delete", "pin", "history",
	}
	for _, name := range want {
		found := false
		for _, c := range RootCmd.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestDestructiveCommandsHaveConfirmBypass(t *testing.T) {
	for _, name := range []string{"clean", "restore", "delete"} {
		cmd, _, err := RootCmd.Find([]string{name})
		if err != nil {
			t.Fatalf("Find(%s): %v", name, err)
		}
		if cmd.Flags().Lookup("yes") == nil {
			t.Errorf("%s has no --yes flag", name)
		}
	}
}

func TestMutationCommandsHaveDryRun(t *testing.T) {
	for _, name := range []string{"restore", "delete"} {
		cmd, _, err := RootCmd.Find([]string{name})
		if err != nil {
			t.Fatalf("Find(%s): %v", name, err)
		}
		if cmd.Flags().Lookup("dry-run") == nil {
			t.Errorf("%s has no --dry-run flag", name)
		}
	}
}

func TestProfileSelectionFlag(t *testing.T) {
	for _, name := range []string{"generations", "packages", "diff", "restore", "delete", "pin"} {
		cmd, _, err := RootCmd.Find([]string{name})
		if err != nil {
			t.Fatalf("Find(%s): %v", name, err)
		}
		if cmd.Flags().Lookup("user") == nil {
			t.Errorf("%s has no --user flag", name)
		}
	}
}
