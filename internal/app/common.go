package app

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/nixmate/nixmate/internal/actions"
	"github.com/nixmate/nixmate/internal/nix"
	"github.com/nixmate/nixmate/internal/pins"
	"github.com/nixmate/nixmate/internal/storage"
)

// deps bundles the collaborators every command needs.
type deps struct {
	system     nix.SystemInfo
	discoverer *nix.Discoverer
	planner    *nix.Planner
	accountant *storage.Accountant
	ledger     *storage.Ledger
	pins       *pins.Store
	machine    *actions.Machine
}

// openDeps probes the system and opens the pin store. The returned
// cleanup must run when the command is done.
func openDeps() (*deps, func(), error) {
	system := nix.Detect()
	runner := nix.NewRunner()

	ledger, err := storage.DefaultLedger()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to locate history: %w", err)
	}
	pinStore, err := pins.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open pin store: %w", err)
	}

	planner := nix.NewPlanner()
	accountant := storage.NewAccountant(runner)

	d := &deps{
		system:     system,
		discoverer: nix.NewDiscoverer(runner),
		planner:    planner,
		accountant: accountant,
		ledger:     ledger,
		pins:       pinStore,
		machine:    actions.NewMachine(planner, accountant, ledger),
	}
	return d, func() { pinStore.Close() }, nil
}

// resolveSource picks the profile a command operates on.
func (d *deps) resolveSource(user bool) (nix.GenerationSource, error) {
	if user {
		source, ok := d.system.HomeManagerSource()
		if !ok {
			return nix.GenerationSource{}, fmt.Errorf("no Home-Manager profile detected")
		}
		return source, nil
	}
	return d.system.SystemSource(), nil
}

// loadGenerations runs discovery and overlays the pin state.
func (d *deps) loadGenerations(source nix.GenerationSource) []nix.Generation {
	gens := d.discoverer.List(source)
	if err := d.pins.Apply(source.Type, gens); err != nil {
		fmt.Fprintf(os.Stderr, "warning: pin overlay unavailable: %v\n", err)
	}
	return gens
}

// findByID looks a generation up in a discovery result.
func findByID(gens []nix.Generation, id int) (nix.Generation, bool) {
	for _, g := range gens {
		if g.ID == id {
			return g, true
		}
	}
	return nix.Generation{}, false
}

// parseIDs converts command arguments to generation ids.
func parseIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, arg := range args {
		id, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid generation id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// confirmPrompt shows the exact command and asks for a y/N answer.
func confirmPrompt(in io.Reader, out io.Writer, description, command string) bool {
	fmt.Fprintf(out, "%s\n", description)
	fmt.Fprintf(out, "  %s\n", command)
	fmt.Fprint(out, "Proceed? [y/N]: ")

	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// flashError surfaces a guard violation recorded by the machine.
func flashError(machine *actions.Machine) error {
	if flash, isErr := machine.Flash(); isErr {
		return fmt.Errorf("%s", flash)
	}
	return nil
}
