// Package actions owns the confirm / execute / undo flow for every
// destructive operation. Nothing mutates the system except through a
// Machine, and a Machine only executes after an explicit Confirm.
package actions

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/nixmate/nixmate/internal/nix"
	"github.com/nixmate/nixmate/internal/storage"
)

// undoWindow is how long a completed restore or delete stays
// dismissible before it is considered finally confirmed.
const undoWindow = 10 * time.Second

// State is the machine's position in the confirm/undo flow.
type State int

const (
	// StateIdle accepts new action requests.
	StateIdle State = iota
	// StateConfirming holds a pending action awaiting Confirm or Cancel.
	StateConfirming
	// StateUndoPending shows the undo notice for a completed mutation.
	StateUndoPending
	// StateFailed holds an execution failure until dismissed.
	StateFailed
)

// Kind identifies which destructive operation is pending.
type Kind int

const (
	KindRestore Kind = iota
	KindDelete
	KindGC
	KindFullClean
	KindOptimise
)

// String returns the user-facing action name.
func (k Kind) String() string {
	switch k {
	case KindRestore:
		return "Restore generation"
	case KindDelete:
		return "Delete generations"
	case KindGC:
		return "Garbage collection"
	case KindFullClean:
		return "Full cleanup"
	case KindOptimise:
		return "Store optimisation"
	default:
		return "Unknown action"
	}
}

// Pending describes the action currently held in StateConfirming.
// Command is the exact text the confirmation will execute.
type Pending struct {
	Kind    Kind
	Source  nix.GenerationSource
	ID      int   // restore target
	IDs     []int // delete targets
	DryRun  bool
	Command string
}

// Planner is the slice of nix.Planner the machine needs.
type Planner interface {
	RestorePreview(source nix.GenerationSource, id int) string
	DeletePreview(source nix.GenerationSource, ids []int) string
	Restore(source nix.GenerationSource, id int, dryRun bool) nix.CommandResult
	Delete(source nix.GenerationSource, ids []int, dryRun bool) nix.CommandResult
}

// Cleaner is the slice of storage.Accountant the machine needs.
type Cleaner interface {
	GarbageCollect() (storage.GCResult, error)
	FullClean() (storage.GCResult, error)
	Optimise() (storage.OptimiseResult, error)
}

// Recorder appends completed cleanups to the history ledger.
type Recorder interface {
	Append(entry storage.HistoryEntry) error
}

// Machine drives the confirm / execute / undo state for one session.
// It is not safe for concurrent use; callers serialize access (the TUI
// update loop, or a single CLI invocation).
type Machine struct {
	planner Planner
	cleaner Cleaner
	ledger  Recorder
	now     func() time.Time

	state     State
	pending   Pending
	undoStart time.Time
	undoDesc  string
	failure   string

	flash    string
	flashErr bool
}

// NewMachine wires a machine to its collaborators. In production
// these are *nix.Planner, *storage.Accountant and *storage.Ledger.
func NewMachine(p Planner, c Cleaner, l Recorder) *Machine {
	return &Machine{planner: p, cleaner: c, ledger: l, now: time.Now}
}

// State reports the current machine state.
func (m *Machine) State() State { return m.state }

// Pending returns the action held in StateConfirming. Meaningless in
// other states.
func (m *Machine) Pending() Pending { return m.pending }

// Failure returns the execution error held in StateFailed.
func (m *Machine) Failure() string { return m.failure }

// Flash returns the transient status message and whether it is an
// error. Guard violations and completed dry-runs land here.
func (m *Machine) Flash() (string, bool) { return m.flash, m.flashErr }

// ClearFlash drops the transient message.
func (m *Machine) ClearFlash() {
	m.flash = ""
	m.flashErr = false
}

// RequestRestore moves to StateConfirming for a profile switch, after
// checking the target against the supplied generation list.
func (m *Machine) RequestRestore(source nix.GenerationSource, gens []nix.Generation, id int, dryRun bool) {
	if m.state != StateIdle {
		return
	}
	target, ok := findGeneration(gens, id)
	if !ok {
		m.setFlash(fmt.Sprintf("Generation %d not found", id), true)
		return
	}
	if target.Current {
		m.setFlash(fmt.Sprintf("Generation %d is already active", id), true)
		return
	}

	m.pending = Pending{
		Kind:    KindRestore,
		Source:  source,
		ID:      id,
		DryRun:  dryRun,
		Command: m.planner.RestorePreview(source, id),
	}
	m.state = StateConfirming
}

// RequestDelete moves to StateConfirming for a generation removal.
// Every id must exist and be neither current nor pinned.
func (m *Machine) RequestDelete(source nix.GenerationSource, gens []nix.Generation, ids []int, dryRun bool) {
	if m.state != StateIdle {
		return
	}
	for _, id := range ids {
		target, ok := findGeneration(gens, id)
		if !ok {
			m.setFlash(fmt.Sprintf("Generation %d not found", id), true)
			return
		}
		if target.Current {
			m.setFlash("Cannot delete the current generation", true)
			return
		}
		if target.Pinned {
			m.setFlash(fmt.Sprintf("Generation %d is pinned", id), true)
			return
		}
	}

	m.pending = Pending{
		Kind:    KindDelete,
		Source:  source,
		IDs:     ids,
		DryRun:  dryRun,
		Command: m.planner.DeletePreview(source, ids),
	}
	m.state = StateConfirming
}

// RequestClean moves to StateConfirming for a store-wide cleanup.
func (m *Machine) RequestClean(kind Kind) {
	if m.state != StateIdle {
		return
	}
	var command string
	switch kind {
	case KindGC:
		command = "nix-collect-garbage"
	case KindFullClean:
		command = "sudo nix-collect-garbage -d"
	case KindOptimise:
		command = "nix store optimise"
	default:
		return
	}
	m.pending = Pending{Kind: kind, Command: command}
	m.state = StateConfirming
}

// Confirm executes the pending action. Successful mutations open the
// undo window; dry-runs and cleanups report through the flash instead.
func (m *Machine) Confirm() {
	if m.state != StateConfirming {
		return
	}
	pending := m.pending
	m.pending = Pending{}
	m.state = StateIdle

	switch pending.Kind {
	case KindRestore:
		m.finishMutation(pending, m.planner.Restore(pending.Source, pending.ID, pending.DryRun))
	case KindDelete:
		m.finishMutation(pending, m.planner.Delete(pending.Source, pending.IDs, pending.DryRun))
	case KindGC, KindFullClean, KindOptimise:
		m.runCleanup(pending.Kind)
	}
}

// Cancel abandons the pending action without executing anything.
func (m *Machine) Cancel() {
	if m.state != StateConfirming {
		return
	}
	m.pending = Pending{}
	m.state = StateIdle
}

// DismissUndo closes the undo notice. The executed action stands;
// dismissal never reverts it.
func (m *Machine) DismissUndo() {
	if m.state != StateUndoPending {
		return
	}
	m.state = StateIdle
}

// DismissError leaves StateFailed.
func (m *Machine) DismissError() {
	if m.state != StateFailed {
		return
	}
	m.failure = ""
	m.state = StateIdle
}

// UndoRemaining reports how much of the undo window is left, measured
// from the execution instant rather than counted down, so missed ticks
// cannot stretch the window.
func (m *Machine) UndoRemaining() time.Duration {
	if m.state != StateUndoPending {
		return 0
	}
	remaining := undoWindow - m.now().Sub(m.undoStart)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// UndoDescription returns the message shown while the undo window is
// open.
func (m *Machine) UndoDescription() string { return m.undoDesc }

// Tick advances time-driven transitions. Call it once per UI frame or
// poll interval.
func (m *Machine) Tick() {
	if m.state == StateUndoPending && m.UndoRemaining() <= 0 {
		m.state = StateIdle
		m.setFlash(m.undoDesc, false)
	}
}

func (m *Machine) finishMutation(pending Pending, result nix.CommandResult) {
	if !result.Success {
		m.failure = result.Message
		m.state = StateFailed
		return
	}
	if pending.DryRun {
		m.setFlash(result.Message, false)
		return
	}
	m.undoDesc = result.Message
	m.undoStart = m.now()
	m.state = StateUndoPending
}

func (m *Machine) runCleanup(kind Kind) {
	var entry storage.HistoryEntry
	switch kind {
	case KindGC:
		res, err := m.cleaner.GarbageCollect()
		if err != nil {
			m.failure = err.Error()
			m.state = StateFailed
			return
		}
		entry = storage.HistoryEntry{
			Action:       kind.String(),
			FreedBytes:   res.BytesFreed,
			PathsRemoved: res.PathsRemoved,
		}
	case KindFullClean:
		res, err := m.cleaner.FullClean()
		if err != nil {
			m.failure = err.Error()
			m.state = StateFailed
			return
		}
		entry = storage.HistoryEntry{
			Action:       kind.String(),
			FreedBytes:   res.BytesFreed,
			PathsRemoved: res.PathsRemoved,
		}
	case KindOptimise:
		res, err := m.cleaner.Optimise()
		if err != nil {
			m.failure = err.Error()
			m.state = StateFailed
			return
		}
		entry = storage.HistoryEntry{
			Action:     kind.String(),
			FreedBytes: res.BytesSaved,
		}
	}

	entry.Timestamp = m.now().Format("2006-01-02 15:04:05")
	if m.ledger != nil {
		// A full ledger disk is not worth failing a finished cleanup.
		_ = m.ledger.Append(entry)
	}
	m.setFlash(fmt.Sprintf("%s complete: %s freed", entry.Action, humanize.IBytes(uint64(entry.FreedBytes))), false)
}

func (m *Machine) setFlash(text string, isError bool) {
	m.flash = text
	m.flashErr = isError
}

func findGeneration(gens []nix.Generation, id int) (nix.Generation, bool) {
	for _, g := range gens {
		if g.ID == id {
			return g, true
		}
	}
	return nix.Generation{}, false
}
