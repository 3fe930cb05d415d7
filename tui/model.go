// Package tui is a terminal dashboard that replays a running simulation
// round by round.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/cdamarket/internal/orderbook/core"
	"github.com/zappabad/cdamarket/internal/orderbook/view"
	"github.com/zappabad/cdamarket/internal/simulation"
	"github.com/zappabad/cdamarket/tui/panels"
	"github.com/zappabad/cdamarket/tui/styles"
)

// PanelFocus represents which panel is currently focused.
type PanelFocus int

const (
	FocusAgents PanelFocus = iota
	FocusOrderbook
	FocusChart
	FocusRounds

	numPanels
)

// Feed is the simulation side of the dashboard. Snapshots is closed when
// the run ends; Done then delivers the outcome once.
type Feed struct {
	Snapshots <-chan simulation.RoundSnapshot
	Done      <-chan Outcome
	// Rounds is the configured round cap, for the status bar.
	Rounds int
}

// Outcome is how a run ended.
type Outcome struct {
	Result simulation.Result
	Err    error
}

// Model is the main TUI application model.
type Model struct {
	feed  Feed
	delay time.Duration

	book *view.BookView

	agentsPanel    *panels.AgentsPanel
	orderbookPanel *panels.OrderbookPanel
	chartPanel     *panels.CandlestickPanel
	roundsPanel    *panels.RoundsPanel

	focusedPanel PanelFocus

	width  int
	height int

	last     simulation.RoundSnapshot
	seen     bool
	paused   bool
	waiting  bool
	finished bool
	outcome  *Outcome

	statusMsg string
	ready     bool
}

// NewModel creates a dashboard that pulls one snapshot every delay.
func NewModel(feed Feed, delay time.Duration) *Model {
	return &Model{
		feed:           feed,
		delay:          delay,
		book:           view.NewBookView(256),
		agentsPanel:    panels.NewAgentsPanel(),
		orderbookPanel: panels.NewOrderbookPanel(),
		chartPanel:     panels.NewCandlestickPanel(),
		roundsPanel:    panels.NewRoundsPanel(),
		focusedPanel:   FocusChart,
	}
}

// Init starts pulling snapshots.
func (m *Model) Init() tea.Cmd {
	m.waiting = true
	return tea.Batch(
		m.agentsPanel.Init(),
		m.orderbookPanel.Init(),
		m.chartPanel.Init(),
		m.roundsPanel.Init(),
		m.waitForRound(),
		m.waitForDone(),
	)
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, panels.Keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, panels.Keys.Next):
			m.focusedPanel = (m.focusedPanel + 1) % numPanels
		case key.Matches(msg, panels.Keys.Prev):
			m.focusedPanel = (m.focusedPanel + numPanels - 1) % numPanels
		case key.Matches(msg, panels.Keys.Pause):
			m.paused = !m.paused
			if !m.paused {
				cmds = append(cmds, m.next())
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case roundMsg:
		m.waiting = false
		m.apply(msg.snap)
		cmds = append(cmds, m.next())

	case pullMsg:
		if !m.paused && !m.waiting && !m.finished {
			m.waiting = true
			cmds = append(cmds, m.waitForRound())
		}

	case streamClosedMsg:
		m.waiting = false
		m.finished = true

	case doneMsg:
		m.outcome = &msg.Outcome
		switch {
		case msg.Err != nil:
			m.statusMsg = "❌ " + msg.Err.Error()
		default:
			r := msg.Result
			m.statusMsg = fmt.Sprintf("✓ %s after %d rounds, final %s (target %s)",
				r.StopReason, r.RoundsRun, styles.FormatPrice(r.FinalPrice), styles.FormatPrice(r.ConvergenceTarget))
		}
	}

	m.updateFocusedPanel(msg, &cmds)

	return m, tea.Batch(cmds...)
}

// next schedules the following pull after the replay delay.
func (m *Model) next() tea.Cmd {
	if m.paused || m.finished {
		return nil
	}
	return tea.Tick(m.delay, func(time.Time) tea.Msg { return pullMsg{} })
}

func (m *Model) apply(snap simulation.RoundSnapshot) {
	if snap.Round == 0 {
		m.book.Reset()
		m.chartPanel.Reset()
	}
	m.book.ApplyAll(snap.Events)
	if snap.Mechanism == simulation.MechanismCDA {
		m.orderbookPanel.SetLevels(m.book.Levels(core.SideBuy, 0), m.book.Levels(core.SideSell, 0))
		m.orderbookPanel.SetTrades(m.book.TradesLast(20))
	} else {
		m.orderbookPanel.SetTrades(snap.Trades)
	}
	m.chartPanel.AddRound(snap.Round, snap.Price, snap.Trades)
	m.agentsPanel.SetAgents(snap.Agents)
	m.roundsPanel.Add(panels.EntryFor(snap))
	m.last, m.seen = snap, true
	if snap.Done {
		m.finished = true
	}
}

func (m *Model) updateFocusedPanel(msg tea.Msg, cmds *[]tea.Cmd) {
	var cmd tea.Cmd

	switch m.focusedPanel {
	case FocusAgents:
		m.agentsPanel, cmd = m.agentsPanel.Update(msg)
	case FocusOrderbook:
		m.orderbookPanel, cmd = m.orderbookPanel.Update(msg)
	case FocusChart:
		m.chartPanel, cmd = m.chartPanel.Update(msg)
	case FocusRounds:
		m.roundsPanel, cmd = m.roundsPanel.Update(msg)
	}

	if cmd != nil {
		*cmds = append(*cmds, cmd)
	}
}

// View renders the UI.
func (m *Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	m.agentsPanel.SetFocus(m.focusedPanel == FocusAgents)
	m.orderbookPanel.SetFocus(m.focusedPanel == FocusOrderbook)
	m.chartPanel.SetFocus(m.focusedPanel == FocusChart)
	m.roundsPanel.SetFocus(m.focusedPanel == FocusRounds)

	// ┌──────────────┬──────────────┬──────────────┐
	// │    Agents    │  Orderbook   │    Chart     │
	// ├──────────────┴──────┬───────┴──────────────┤
	// │       Rounds        │                      │
	// └─────────────────────┴──────────────────────┘
	leftWidth := m.width / 3
	middleWidth := m.width / 3
	rightWidth := m.width - leftWidth - middleWidth

	topHeight := (m.height - 3) * 2 / 3
	bottomHeight := m.height - topHeight - 3

	m.agentsPanel.SetSize(leftWidth, topHeight)
	m.orderbookPanel.SetSize(middleWidth, topHeight)
	m.chartPanel.SetSize(rightWidth, topHeight)
	topRow := lipgloss.JoinHorizontal(lipgloss.Top,
		m.agentsPanel.View(),
		m.orderbookPanel.View(),
		m.chartPanel.View(),
	)

	m.roundsPanel.SetSize(m.width, bottomHeight)

	return lipgloss.JoinVertical(lipgloss.Left, topRow, m.roundsPanel.View(), m.renderStatusBar())
}

func (m *Model) renderStatusBar() string {
	help := lipgloss.JoinHorizontal(lipgloss.Center,
		styles.StatusBarKeyStyle.Render("Tab")+styles.StatusBarDescStyle.Render(" panels"), " │ ",
		styles.StatusBarKeyStyle.Render("↑↓")+styles.StatusBarDescStyle.Render(" select"), " │ ",
		styles.StatusBarKeyStyle.Render("p")+styles.StatusBarDescStyle.Render(" pause"), " │ ",
		styles.StatusBarKeyStyle.Render("q")+styles.StatusBarDescStyle.Render(" quit"),
	)

	state := "running"
	switch {
	case m.outcome != nil || m.finished:
		state = "finished"
	case m.paused:
		state = "paused"
	}
	status := " │ " + state
	if m.seen {
		status += fmt.Sprintf(" │ %s round %d/%d │ price %s", m.last.Mechanism, m.last.Round, m.feed.Rounds, styles.FormatPrice(m.last.Price))
		if m.last.HasBid || m.last.HasAsk {
			status += fmt.Sprintf(" │ %s / %s", quote(m.last.BestBid, m.last.HasBid), quote(m.last.BestAsk, m.last.HasAsk))
		}
	}
	if m.statusMsg != "" {
		status += " │ " + m.statusMsg
	}

	return styles.StatusBarStyle.Width(m.width).Render(help + status)
}

func quote(p float64, ok bool) string {
	if !ok {
		return "-"
	}
	return styles.FormatPrice(p)
}

// Paused reports whether replay is paused.
func (m *Model) Paused() bool { return m.paused }

// Last returns the most recent snapshot applied.
func (m *Model) Last() (simulation.RoundSnapshot, bool) { return m.last, m.seen }

// Book returns the order book rebuilt from snapshot events.
func (m *Model) Book() *view.BookView { return m.book }

func (m *Model) waitForRound() tea.Cmd {
	ch := m.feed.Snapshots
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return roundMsg{snap: snap}
	}
}

func (m *Model) waitForDone() tea.Cmd {
	ch := m.feed.Done
	return func() tea.Msg {
		out, ok := <-ch
		if !ok {
			return nil
		}
		return doneMsg{Outcome: out}
	}
}

// roundMsg carries one snapshot from the simulation.
type roundMsg struct {
	snap simulation.RoundSnapshot
}

// pullMsg asks for the next snapshot once the replay delay has passed.
type pullMsg struct{}

// streamClosedMsg is sent when the snapshot channel closes.
type streamClosedMsg struct{}

// doneMsg is sent when the simulation returns.
type doneMsg struct {
	Outcome
}
