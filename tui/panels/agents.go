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

// AgentsPanel lists every agent's belief, risk aversion and holdings.
type AgentsPanel struct {
	agents        []simulation.AgentState
	selectedIndex int
	scrollOffset  int
	focused       bool
	width         int
	height        int
}

// NewAgentsPanel creates a new agents panel.
func NewAgentsPanel() *AgentsPanel {
	return &AgentsPanel{}
}

// Init initializes the panel.
func (p *AgentsPanel) Init() tea.Cmd {
	return nil
}

// Update moves the selection when focused.
func (p *AgentsPanel) Update(msg tea.Msg) (*AgentsPanel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !p.focused {
			return p, nil
		}
		switch {
		case key.Matches(msg, keys.Up):
			if p.selectedIndex > 0 {
				p.selectedIndex--
			}
		case key.Matches(msg, keys.Down):
			if p.selectedIndex < len(p.agents)-1 {
				p.selectedIndex++
			}
		}
		p.keepVisible()
	}
	return p, nil
}

func (p *AgentsPanel) visibleRows() int {
	return max(p.height-5, 1)
}

func (p *AgentsPanel) keepVisible() {
	visible := p.visibleRows()
	if p.selectedIndex < p.scrollOffset {
		p.scrollOffset = p.selectedIndex
	}
	if p.selectedIndex >= p.scrollOffset+visible {
		p.scrollOffset = p.selectedIndex - visible + 1
	}
}

// View renders the panel.
func (p *AgentsPanel) View() string {
	var content strings.Builder

	header := fmt.Sprintf("%-5s %5s %7s %10s %10s", "Agent", "Rho", "Belief", "Shares", "Cash")
	content.WriteString(styles.HeaderStyle.Render(header))
	content.WriteString("\n")

	end := min(p.scrollOffset+p.visibleRows(), len(p.agents))
	for i := p.scrollOffset; i < end; i++ {
		a := p.agents[i]
		row := fmt.Sprintf("%-5d %5.2f %7.4f %10s %10s",
			a.ID, a.Rho, a.Belief, styles.FormatSize(a.Shares), styles.FormatSize(a.Cash))

		style := styles.RowStyle
		switch {
		case i == p.selectedIndex && p.focused:
			style = styles.SelectedRowStyle
		case a.Shares > 0:
			style = styles.BuyStyle.Bold(false)
		case a.Shares < 0:
			style = styles.SellStyle.Bold(false)
		}
		content.WriteString(style.Render(row))
		if i < end-1 {
			content.WriteString("\n")
		}
	}

	panelStyle := styles.PanelStyle
	if p.focused {
		panelStyle = styles.FocusedPanelStyle
	}
	title := styles.RenderTitle(fmt.Sprintf("👥 Agents (%d)", len(p.agents)), p.focused)
	panel := lipgloss.JoinVertical(lipgloss.Left, title, content.String())

	return panelStyle.Width(p.width - 2).Height(p.height - 2).Render(panel)
}

// SetFocus sets the focus state of the panel.
func (p *AgentsPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetSize sets the panel dimensions.
func (p *AgentsPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetAgents replaces the agent rows, keeping the selection in range.
func (p *AgentsPanel) SetAgents(agents []simulation.AgentState) {
	p.agents = agents
	if p.selectedIndex >= len(agents) {
		p.selectedIndex = max(len(agents)-1, 0)
	}
	p.keepVisible()
}

// Selected returns the highlighted agent.
func (p *AgentsPanel) Selected() (simulation.AgentState, bool) {
	if p.selectedIndex >= 0 && p.selectedIndex < len(p.agents) {
		return p.agents[p.selectedIndex], true
	}
	return simulation.AgentState{}, false
}
