package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/cadenza-music/cadenza/internal/tracker"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	StatusView ViewState = iota
	ConfirmView
	RunningView
	ResultView
)

// Model represents the TUI application state.
type Model struct {
	ctx           context.Context
	view          ViewState
	engine        *tracker.Engine
	mode          tracker.SyncMode
	width         int
	height        int
	counts        tracker.DirectoryCounts
	progressChan  chan tracker.ProgressUpdate
	progress      tracker.ProgressUpdate
	scanOutcome   *tracker.ScanOutcome
	importOutcome *tracker.ImportOutcome
	err           error
	help          help.Model
	keys          keyMap
}

type statusFetchedMsg struct {
	counts tracker.DirectoryCounts
	err    error
}

type progressUpdateMsg tracker.ProgressUpdate

type runCompleteMsg struct {
	scan *tracker.ScanOutcome
	imp  *tracker.ImportOutcome
	err  error
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, engine *tracker.Engine, mode tracker.SyncMode) *Model {
	return &Model{
		ctx:    ctx,
		view:   StatusView,
		engine: engine,
		mode:   mode,
		help:   help.New(),
		keys:   newKeyMap(),
	}
}

// Init initializes the TUI by fetching the library status.
func (m *Model) Init() tea.Cmd {
	return m.fetchStatus()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case StatusView:
			return m.handleStatusKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case statusFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.counts = msg.counts
		return m, nil

	case progressUpdateMsg:
		m.progress = tracker.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case runCompleteMsg:
		m.scanOutcome = msg.scan
		m.importOutcome = msg.imp
		m.err = msg.err
		m.view = ResultView
		if m.progressChan != nil {
			m.progressChan = nil
		}
		return m, nil
	}

	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case StatusView:
		return m.renderStatus()
	case ConfirmView:
		return m.renderConfirm()
	case RunningView:
		return m.renderRunning()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleStatusKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "s":
		m.view = ConfirmView
		return m, nil
	case "r":
		return m, m.fetchStatus()
	}
	return m, nil
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "n", "esc":
		m.view = StatusView
		return m, nil
	case "y":
		m.view = RunningView
		return m, m.startRun()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		m.view = StatusView
		m.scanOutcome = nil
		m.importOutcome = nil
		m.err = nil
		return m, m.fetchStatus()
	}
	return m, nil
}

func (m *Model) fetchStatus() tea.Cmd {
	return func() tea.Msg {
		counts, err := m.engine.Status(m.ctx, "")
		return statusFetchedMsg{counts: counts, err: err}
	}
}

func (m *Model) startRun() tea.Cmd {
	m.progressChan = make(chan tracker.ProgressUpdate, 50)

	go func() {
		scan, err := m.engine.Scan(m.ctx, "", tracker.ScanOptions{}, m.progressChan)
		if err != nil {
			m.scanOutcome = scan
			m.err = err
			close(m.progressChan)
			return
		}

		imp, err := m.engine.Import(m.ctx, "", tracker.ImportOptions{Mode: m.mode}, m.progressChan)
		m.scanOutcome = scan
		m.importOutcome = imp
		m.err = err
		close(m.progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if m.progressChan == nil {
			return runCompleteMsg{scan: m.scanOutcome, imp: m.importOutcome, err: m.err}
		}

		update, ok := <-m.progressChan
		if !ok {
			return runCompleteMsg{scan: m.scanOutcome, imp: m.importOutcome, err: m.err}
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderStatus() string {
	title := styles.title.Render("Library Status")
	info := fmt.Sprintf(
		"\nTracked directories: %d\n\n  current:  %d\n  outdated: %d\n  added:    %d\n  modified: %d\n  orphaned: %d\n",
		m.counts.Total(),
		m.counts.Current, m.counts.Outdated, m.counts.Added, m.counts.Modified, m.counts.Orphaned,
	)

	helpKeys := []key.Binding{m.keys.sync, m.keys.refresh, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render("Scan and import the whole library?")
	info := fmt.Sprintf("\nMode: %s\nPending directories: %d\n", m.mode, m.counts.Added+m.counts.Modified+m.counts.Outdated)

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderRunning() string {
	title := styles.title.Render("Synchronizing Library")

	var phase string
	switch m.progress.Phase {
	case tracker.ScanDirectories:
		phase = fmt.Sprintf("Scanning directories (%d)", m.progress.Step)
	case tracker.SweepOrphans:
		phase = "Sweeping orphaned directories..."
	case tracker.ImportFiles:
		phase = fmt.Sprintf("Importing files (%d)", m.progress.Step)
	case tracker.ImportDirectories:
		phase = fmt.Sprintf("Confirming directories (%d/%d)", m.progress.Step, m.progress.Total)
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, m.progress.Message)
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Sync failed: %v\n\nPress r to go back, q to quit", m.err))
	}

	if m.scanOutcome == nil || m.importOutcome == nil {
		return styles.err.Render("No result available\n\nPress r to go back, q to quit")
	}

	title := styles.ok.Render("✓ Sync Complete")
	info := fmt.Sprintf(
		"\nScan: %s, %d directories\nImport: %s\n\n  created:   %d\n  updated:   %d\n  unchanged: %d\n  failed:    %d\n",
		m.scanOutcome.Completion, m.scanOutcome.Directories.Total(),
		m.importOutcome.Completion,
		m.importOutcome.Tracks.Created,
		m.importOutcome.Tracks.Updated,
		m.importOutcome.Tracks.Unchanged,
		m.importOutcome.Tracks.Failed,
	)

	var issues string
	if len(m.importOutcome.Issues) > 0 {
		issues = fmt.Sprintf("\n%s", styles.warn.Render(fmt.Sprintf("%d files reported issues:", len(m.importOutcome.Issues))))
		for _, issue := range m.importOutcome.Issues {
			issues += fmt.Sprintf("\n  • %s", issue.Path)
		}
	}

	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, issues, helpView)
}
