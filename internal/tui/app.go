// Package tui is the interactive frontend. It renders read-only
// snapshots of discovery and store accounting and routes every
// destructive request through the action machine; no mutation logic
// lives here.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nixmate/nixmate/internal/actions"
	"github.com/nixmate/nixmate/internal/nix"
	"github.com/nixmate/nixmate/internal/storage"
)

// flashTicks is how many 1s ticks a status message stays visible.
const flashTicks = 5

type view int

const (
	viewGenerations view = iota
	viewStore
	viewHistory
)

// tickMsg drives the undo countdown and flash expiry.
type tickMsg time.Time

// refreshMsg arrives when the profile watcher saw a link change.
type refreshMsg struct{}

type generationsLoadedMsg struct {
	source nix.GenerationSource
	gens   []nix.Generation
}

type storeLoadedMsg struct {
	info storage.StoreInfo
}

type historyLoadedMsg struct {
	entries []storage.HistoryEntry
}

// Deps wires the model to its collaborators. The load functions run
// on one-shot goroutines via tea commands, so they may block.
type Deps struct {
	System  nix.SystemInfo
	Machine *actions.Machine

	LoadGenerations func(nix.GenerationSource) []nix.Generation
	LoadStore       func() storage.StoreInfo
	LoadHistory     func() []storage.HistoryEntry
	TogglePin       func(nix.ProfileType, int) (bool, error)

	// Refresh delivers watcher signals; nil disables live refresh.
	Refresh <-chan struct{}
}

// Model is the bubbletea model for the whole application.
type Model struct {
	deps Deps

	view   view
	width  int
	height int

	source      nix.GenerationSource
	gens        []nix.Generation
	gensLoading bool
	cursor      int
	offset      int

	store        storage.StoreInfo
	storeLoading bool
	storeCursor  int
	storeOffset  int
	deadOnly     bool
	searching    bool
	search       textinput.Model

	history []storage.HistoryEntry

	flash    string
	flashErr bool
	flashAge int

	spin     spinner.Model
	quitting bool
}

// New builds the model starting on the generations view of the system
// profile.
func New(deps Deps) Model {
	search := textinput.New()
	search.Placeholder = "filter paths..."
	search.CharLimit = 100

	sp := spinner.New()
	sp.Spinner = spinner.Line

	return Model{
		deps:         deps,
		source:       deps.System.SystemSource(),
		gensLoading:  true,
		storeLoading: true,
		search:       search,
		spin:         sp,
		width:        120,
		height:       30,
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.loadGenerationsCmd(m.source),
		m.loadStoreCmd(),
		m.loadHistoryCmd(),
		m.spin.Tick,
		tickCmd(),
	}
	if c := m.waitRefreshCmd(); c != nil {
		cmds = append(cmds, c)
	}
	return tea.Batch(cmds...)
}

func (m Model) loadGenerationsCmd(source nix.GenerationSource) tea.Cmd {
	load := m.deps.LoadGenerations
	return func() tea.Msg {
		return generationsLoadedMsg{source: source, gens: load(source)}
	}
}

func (m Model) loadStoreCmd() tea.Cmd {
	load := m.deps.LoadStore
	return func() tea.Msg {
		return storeLoadedMsg{info: load()}
	}
}

func (m Model) loadHistoryCmd() tea.Cmd {
	load := m.deps.LoadHistory
	return func() tea.Msg {
		return historyLoadedMsg{entries: load()}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) waitRefreshCmd() tea.Cmd {
	ch := m.deps.Refresh
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return refreshMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		m.deps.Machine.Tick()
		if flash, _ := m.visibleFlash(); flash != "" {
			m.flashAge++
			if m.flashAge >= flashTicks {
				m.clearFlash()
			}
		}
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case generationsLoadedMsg:
		// A stale load for the previously selected profile is dropped.
		if msg.source != m.source {
			return m, nil
		}
		m.gens = msg.gens
		m.gensLoading = false
		if m.cursor >= len(m.gens) {
			m.cursor = maxInt(0, len(m.gens)-1)
		}
		return m, nil

	case storeLoadedMsg:
		m.store = msg.info
		m.storeLoading = false
		if m.storeCursor >= len(m.store.Paths) {
			m.storeCursor = 0
			m.storeOffset = 0
		}
		return m, nil

	case historyLoadedMsg:
		m.history = msg.entries
		return m, nil

	case refreshMsg:
		cmds := []tea.Cmd{m.loadGenerationsCmd(m.source)}
		if c := m.waitRefreshCmd(); c != nil {
			cmds = append(cmds, c)
		}
		m.gensLoading = true
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Modal states swallow everything except their own keys.
	switch m.deps.Machine.State() {
	case actions.StateConfirming:
		return m.updateConfirming(msg)
	case actions.StateUndoPending:
		switch msg.String() {
		case "esc", "x", "enter":
			m.deps.Machine.DismissUndo()
		}
		return m, nil
	case actions.StateFailed:
		m.deps.Machine.DismissError()
		return m, nil
	}

	if m.searching {
		return m.updateSearch(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "tab":
		m.view = (m.view + 1) % 3
		return m, nil
	case "1":
		m.view = viewGenerations
		return m, nil
	case "2":
		m.view = viewStore
		return m, nil
	case "3":
		m.view = viewHistory
		return m, nil
	}

	switch m.view {
	case viewGenerations:
		return m.updateGenerations(msg)
	case viewStore:
		return m.updateStore(msg)
	case viewHistory:
		return m.updateHistory(msg)
	}
	return m, nil
}

func (m Model) updateConfirming(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		kind := m.deps.Machine.Pending().Kind
		m.deps.Machine.Confirm()
		m.flashAge = 0

		// Mutations invalidate the snapshots they touched.
		switch kind {
		case actions.KindRestore, actions.KindDelete:
			m.gensLoading = true
			return m, m.loadGenerationsCmd(m.source)
		default:
			m.storeLoading = true
			return m, tea.Batch(m.loadStoreCmd(), m.loadHistoryCmd())
		}
	case "n", "esc":
		m.deps.Machine.Cancel()
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.search.Blur()
		m.searching = false
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.storeCursor = 0
	m.storeOffset = 0
	return m, cmd
}

// otherSource flips between the system profile and Home-Manager, when
// the latter was detected.
func (m Model) otherSource() (nix.GenerationSource, bool) {
	if m.source.Type == nix.ProfileHomeManager {
		return m.deps.System.SystemSource(), true
	}
	return m.deps.System.HomeManagerSource()
}

func (m *Model) setFlash(text string, isErr bool) {
	m.flash = text
	m.flashErr = isErr
	m.flashAge = 0
}

func (m *Model) clearFlash() {
	m.flash = ""
	m.flashErr = false
	m.flashAge = 0
	m.deps.Machine.ClearFlash()
}

// visibleFlash prefers the machine's message (guard violations,
// results) over the model's own (pin toggles).
func (m Model) visibleFlash() (string, bool) {
	if flash, isErr := m.deps.Machine.Flash(); flash != "" {
		return flash, isErr
	}
	return m.flash, m.flashErr
}

// Run starts the interactive session and blocks until it exits.
func Run(deps Deps) error {
	_, err := tea.NewProgram(New(deps), tea.WithAltScreen()).Run()
	return err
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
