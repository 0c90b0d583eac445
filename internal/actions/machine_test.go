package actions

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nixmate/nixmate/internal/nix"
	"github.com/nixmate/nixmate/internal/storage"
)

// fakePlanner records calls and serves scripted results.
type fakePlanner struct {
	restoreCalls int
	deleteCalls  int
	result       nix.CommandResult
}

func (f *fakePlanner) RestorePreview(source nix.GenerationSource, id int) string {
	return "restore-cmd"
}

func (f *fakePlanner) DeletePreview(source nix.GenerationSource, ids []int) string {
	return "delete-cmd"
}

func (f *fakePlanner) Restore(source nix.GenerationSource, id int, dryRun bool) nix.CommandResult {
	f.restoreCalls++
	return f.result
}

func (f *fakePlanner) Delete(source nix.GenerationSource, ids []int, dryRun bool) nix.CommandResult {
	f.deleteCalls++
	return f.result
}

type fakeCleaner struct {
	gc  storage.GCResult
	err error
}

func (f *fakeCleaner) GarbageCollect() (storage.GCResult, error) { return f.gc, f.err }
func (f *fakeCleaner) FullClean() (storage.GCResult, error)      { return f.gc, f.err }
func (f *fakeCleaner) Optimise() (storage.OptimiseResult, error) {
	return storage.OptimiseResult{BytesSaved: f.gc.BytesFreed}, f.err
}

type fakeLedger struct {
	entries []storage.HistoryEntry
}

func (f *fakeLedger) Append(e storage.HistoryEntry) error {
	f.entries = append(f.entries, e)
	return nil
}

// fakeClock advances only when told to.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func testMachine() (*Machine, *fakePlanner, *fakeCleaner, *fakeLedger, *fakeClock) {
	p := &fakePlanner{result: nix.CommandResult{Success: true, Message: "Successfully done"}}
	c := &fakeCleaner{gc: storage.GCResult{PathsRemoved: 3, BytesFreed: 1024}}
	l := &fakeLedger{}
	clock := &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	m := &Machine{planner: p, cleaner: c, ledger: l, now: clock.now}
	return m, p, c, l, clock
}

func systemSource() nix.GenerationSource {
	return nix.GenerationSource{Type: nix.ProfileSystem, ProfilePath: nix.SystemProfilePath}
}

func sampleGens() []nix.Generation {
	return []nix.Generation{
		{ID: 40, Current: true},
		{ID: 39, Pinned: true},
		{ID: 38},
	}
}

func TestRequestDelete_GuardCurrent(t *testing.T) {
	m, p, _, _, _ := testMachine()

	m.RequestDelete(systemSource(), sampleGens(), []int{40}, false)

	if m.State() != StateIdle {
		t.Errorf("state = %v, want StateIdle", m.State())
	}
	msg, isErr := m.Flash()
	if !isErr || !strings.Contains(msg, "current") {
		t.Errorf("flash = (%q, %v), want current-generation error", msg, isErr)
	}
	if p.deleteCalls != 0 {
		t.Error("guard violation must not execute anything")
	}
}

func TestRequestDelete_GuardPinned(t *testing.T) {
	m, p, _, _, _ := testMachine()

	m.RequestDelete(systemSource(), sampleGens(), []int{38, 39}, false)

	if m.State() != StateIdle {
		t.Errorf("state = %v, want StateIdle", m.State())
	}
	if msg, isErr := m.Flash(); !isErr || !strings.Contains(msg, "pinned") {
		t.Errorf("flash = %q, want pinned error", msg)
	}
	if p.deleteCalls != 0 {
		t.Error("guard violation must not execute anything")
	}
}

func TestRequestDelete_GuardUnknownID(t *testing.T) {
	m, _, _, _, _ := testMachine()

	m.RequestDelete(systemSource(), sampleGens(), []int{99}, false)

	if msg, isErr := m.Flash(); !isErr || !strings.Contains(msg, "not found") {
		t.Errorf("flash = %q, want not-found error", msg)
	}
}

func TestRequestRestore_GuardCurrent(t *testing.T) {
	m, p, _, _, _ := testMachine()

	m.RequestRestore(systemSource(), sampleGens(), 40, false)

	if m.State() != StateIdle {
		t.Errorf("state = %v, want StateIdle", m.State())
	}
	if msg, isErr := m.Flash(); !isErr || !strings.Contains(msg, "already active") {
		t.Errorf("flash = %q, want already-active error", msg)
	}
	if p.restoreCalls != 0 {
		t.Error("guard violation must not execute anything")
	}
}

func TestConfirmDelete_OpensUndoWindow(t *testing.T) {
	m, p, _, _, clock := testMachine()

	m.RequestDelete(systemSource(), sampleGens(), []int{38}, false)
	if m.State() != StateConfirming {
		t.Fatalf("state = %v, want StateConfirming", m.State())
	}
	if m.Pending().Command != "delete-cmd" {
		t.Errorf("pending command = %q", m.Pending().Command)
	}

	m.Confirm()
	if p.deleteCalls != 1 {
		t.Fatalf("deleteCalls = %d, want 1", p.deleteCalls)
	}
	if m.State() != StateUndoPending {
		t.Fatalf("state = %v, want StateUndoPending", m.State())
	}
	if m.UndoRemaining() != 10*time.Second {
		t.Errorf("UndoRemaining = %v, want 10s", m.UndoRemaining())
	}

	// The window is measured from the execution instant, not counted
	// down tick by tick.
	clock.advance(4 * time.Second)
	if m.UndoRemaining() != 6*time.Second {
		t.Errorf("UndoRemaining = %v, want 6s", m.UndoRemaining())
	}

	clock.advance(5 * time.Second)
	m.Tick()
	if m.State() != StateUndoPending {
		t.Error("undo window closed before 10 seconds elapsed")
	}

	clock.advance(time.Second)
	m.Tick()
	if m.State() != StateIdle {
		t.Errorf("state = %v after window expiry, want StateIdle", m.State())
	}
}

func TestDismissUndo_ReturnsToIdleWithoutReverting(t *testing.T) {
	m, p, _, _, _ := testMachine()

	m.RequestDelete(systemSource(), sampleGens(), []int{38}, false)
	m.Confirm()
	m.DismissUndo()

	if m.State() != StateIdle {
		t.Errorf("state = %v, want StateIdle", m.State())
	}
	// Dismissal never re-runs or reverses anything.
	if p.deleteCalls != 1 {
		t.Errorf("deleteCalls = %d after dismissal, want 1", p.deleteCalls)
	}
}

func TestCancel_AbandonsWithoutExecuting(t *testing.T) {
	m, p, _, _, _ := testMachine()

	m.RequestRestore(systemSource(), sampleGens(), 38, false)
	m.Cancel()

	if m.State() != StateIdle {
		t.Errorf("state = %v, want StateIdle", m.State())
	}
	if p.restoreCalls != 0 {
		t.Error("canceled action was executed")
	}
}

func TestConfirm_DryRunSkipsUndoWindow(t *testing.T) {
	m, p, _, _, _ := testMachine()
	p.result = nix.CommandResult{Success: true, Message: "Dry run: Would delete 1 generation(s)"}

	m.RequestDelete(systemSource(), sampleGens(), []int{38}, true)
	m.Confirm()

	if m.State() != StateIdle {
		t.Errorf("state = %v, want StateIdle after dry run", m.State())
	}
	if msg, isErr := m.Flash(); isErr || !strings.Contains(msg, "Dry run") {
		t.Errorf("flash = (%q, %v)", msg, isErr)
	}
}

func TestConfirm_FailureEntersFailedState(t *testing.T) {
	m, p, _, _, _ := testMachine()
	p.result = nix.CommandResult{Success: false, Message: "Failed to delete 1 generation(s): permission denied"}

	m.RequestDelete(systemSource(), sampleGens(), []int{38}, false)
	m.Confirm()

	if m.State() != StateFailed {
		t.Fatalf("state = %v, want StateFailed", m.State())
	}
	if !strings.Contains(m.Failure(), "permission denied") {
		t.Errorf("Failure() = %q", m.Failure())
	}

	m.DismissError()
	if m.State() != StateIdle {
		t.Errorf("state after DismissError = %v", m.State())
	}
}

func TestConfirmCleanup_AppendsHistory(t *testing.T) {
	m, _, _, l, _ := testMachine()

	m.RequestClean(KindGC)
	if m.State() != StateConfirming {
		t.Fatalf("state = %v, want StateConfirming", m.State())
	}
	if m.Pending().Command != "nix-collect-garbage" {
		t.Errorf("pending command = %q", m.Pending().Command)
	}

	m.Confirm()
	if m.State() != StateIdle {
		t.Errorf("state = %v, want StateIdle", m.State())
	}
	if len(l.entries) != 1 {
		t.Fatalf("ledger entries = %d, want 1", len(l.entries))
	}
	e := l.entries[0]
	if e.Action != "Garbage collection" || e.FreedBytes != 1024 || e.PathsRemoved != 3 {
		t.Errorf("entry = %+v", e)
	}
	if e.Timestamp == "" {
		t.Error("entry has no timestamp")
	}
}

func TestConfirmCleanup_FailureSkipsHistory(t *testing.T) {
	m, _, c, l, _ := testMachine()
	c.err = errors.New("nix-collect-garbage not found")

	m.RequestClean(KindFullClean)
	m.Confirm()

	if m.State() != StateFailed {
		t.Errorf("state = %v, want StateFailed", m.State())
	}
	if len(l.entries) != 0 {
		t.Errorf("failed cleanup wrote history: %+v", l.entries)
	}
}

func TestRequest_IgnoredOutsideIdle(t *testing.T) {
	m, _, _, _, _ := testMachine()

	m.RequestDelete(systemSource(), sampleGens(), []int{38}, false)
	m.RequestClean(KindGC)

	if m.State() != StateConfirming || m.Pending().Kind != KindDelete {
		t.Errorf("second request replaced the pending action: %+v", m.Pending())
	}
}
