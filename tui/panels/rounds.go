package panels

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/cdamarket/internal/simulation"
	"github.com/zappabad/cdamarket/tui/styles"
)

// RoundEntry is one line of the round log.
type RoundEntry struct {
	Round     int
	Text      string
	Important bool
}

// EntryFor summarizes a snapshot as a log line. Final rounds are marked
// important.
func EntryFor(snap simulation.RoundSnapshot) RoundEntry {
	var b strings.Builder
	fmt.Fprintf(&b, "p=%s", styles.FormatPrice(snap.Price))
	if snap.HasSignal {
		fmt.Fprintf(&b, " sig=%.3f", snap.Signal)
	}
	fmt.Fprintf(&b, " belief=%.3f vol=%s n=%d", snap.MeanBelief, styles.FormatSize(snap.Volume), len(snap.Trades))
	if snap.Done {
		fmt.Fprintf(&b, " stop=%s", snap.StopReason)
	}
	return RoundEntry{Round: snap.Round, Text: b.String(), Important: snap.Done}
}

// RoundsPanel is a scrolling log of per-round summaries, newest last.
type RoundsPanel struct {
	entries       []RoundEntry
	selectedIndex int
	scrollOffset  int
	follow        bool
	focused       bool
	width         int
	height        int
	maxItems      int
}

// NewRoundsPanel creates a new round log panel.
func NewRoundsPanel() *RoundsPanel {
	return &RoundsPanel{maxItems: 500, follow: true}
}

// Init initializes the panel.
func (p *RoundsPanel) Init() tea.Cmd {
	return nil
}

// Update scrolls the log when focused. Scrolling to the end resumes
// following new rounds.
func (p *RoundsPanel) Update(msg tea.Msg) (*RoundsPanel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !p.focused {
			return p, nil
		}
		switch {
		case key.Matches(msg, keys.Up):
			if p.selectedIndex > 0 {
				p.selectedIndex--
				p.follow = false
			}
		case key.Matches(msg, keys.Down):
			if p.selectedIndex < len(p.entries)-1 {
				p.selectedIndex++
			}
			p.follow = p.selectedIndex == len(p.entries)-1
		}
		p.keepVisible()
	}
	return p, nil
}

func (p *RoundsPanel) visibleItems() int {
	return max(p.height-4, 1)
}

func (p *RoundsPanel) keepVisible() {
	visible := p.visibleItems()
	if p.selectedIndex < p.scrollOffset {
		p.scrollOffset = p.selectedIndex
	}
	if p.selectedIndex >= p.scrollOffset+visible {
		p.scrollOffset = p.selectedIndex - visible + 1
	}
}

// View renders the panel.
func (p *RoundsPanel) View() string {
	var content strings.Builder

	if len(p.entries) == 0 {
		content.WriteString(styles.MutedStyle.Render("Waiting for the first round"))
	} else {
		end := min(p.scrollOffset+p.visibleItems(), len(p.entries))
		for i := p.scrollOffset; i < end; i++ {
			e := p.entries[i]
			text := e.Text
			if limit := p.width - 12; limit > 3 && len(text) > limit {
				text = text[:limit-3] + "..."
			}
			style := styles.LogNormalStyle
			if e.Important {
				style = styles.LogImportantStyle
			}
			line := fmt.Sprintf("%s %s", styles.RoundStyle.Render(fmt.Sprintf("r%-4d", e.Round)), style.Render(text))
			if i == p.selectedIndex && p.focused {
				line = styles.SelectedRowStyle.Render(line)
			}
			content.WriteString(line)
			if i < end-1 {
				content.WriteString("\n")
			}
		}
	}

	panelStyle := styles.PanelStyle
	if p.focused {
		panelStyle = styles.FocusedPanelStyle
	}
	title := styles.RenderTitle("📰 Rounds", p.focused)
	panel := lipgloss.JoinVertical(lipgloss.Left, title, content.String())

	return panelStyle.Width(p.width - 2).Height(p.height - 2).Render(panel)
}

// SetFocus sets the focus state of the panel.
func (p *RoundsPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetSize sets the panel dimensions.
func (p *RoundsPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
	p.keepVisible()
}

// Add appends an entry, dropping the oldest beyond maxItems.
func (p *RoundsPanel) Add(e RoundEntry) {
	p.entries = append(p.entries, e)
	if len(p.entries) > p.maxItems {
		drop := len(p.entries) - p.maxItems
		p.entries = p.entries[drop:]
		p.selectedIndex = max(p.selectedIndex-drop, 0)
	}
	if p.follow {
		p.selectedIndex = len(p.entries) - 1
	}
	p.keepVisible()
}

// Entries returns the log, oldest first.
func (p *RoundsPanel) Entries() []RoundEntry {
	return p.entries
}
