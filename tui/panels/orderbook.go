package panels

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/cdamarket/internal/orderbook/core"
	"github.com/zappabad/cdamarket/tui/styles"
)

// OrderbookPanel shows aggregated depth and the latest trades.
type OrderbookPanel struct {
	bids         []core.Level
	asks         []core.Level
	trades       []core.Trade
	scrollOffset int
	focused      bool
	width        int
	height       int
	maxLevels    int
	maxTrades    int
}

// NewOrderbookPanel creates a new orderbook panel.
func NewOrderbookPanel() *OrderbookPanel {
	return &OrderbookPanel{
		maxLevels: 10,
		maxTrades: 20,
	}
}

// Init initializes the panel.
func (p *OrderbookPanel) Init() tea.Cmd {
	return nil
}

// Update scrolls the depth ladder when focused.
func (p *OrderbookPanel) Update(msg tea.Msg) (*OrderbookPanel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !p.focused {
			return p, nil
		}
		switch {
		case key.Matches(msg, keys.Up):
			if p.scrollOffset > 0 {
				p.scrollOffset--
			}
		case key.Matches(msg, keys.Down):
			if p.scrollOffset < p.maxScroll() {
				p.scrollOffset++
			}
		}
	}
	return p, nil
}

func (p *OrderbookPanel) maxScroll() int {
	n := max(len(p.bids), len(p.asks))
	return max(n-1, 0)
}

// View renders the panel.
func (p *OrderbookPanel) View() string {
	var content strings.Builder

	levelsToShow := (p.height - 6) / 2
	levelsToShow = min(max(levelsToShow, 3), p.maxLevels)

	header := fmt.Sprintf("%10s %8s │ %-8s %-10s", "BidSz", "Bid", "Ask", "AskSz")
	content.WriteString(styles.HeaderStyle.Render(header))
	content.WriteString("\n")

	bids := window(p.bids, p.scrollOffset, levelsToShow)
	asks := window(p.asks, p.scrollOffset, levelsToShow)
	rows := max(len(bids), len(asks))
	if rows == 0 {
		content.WriteString(styles.MutedStyle.Render("book is empty"))
		content.WriteString("\n")
	}
	for i := 0; i < rows; i++ {
		var bidSize, bidPrice, askPrice, askSize string
		if i < len(bids) {
			bidSize = styles.FormatSize(bids[i].Quantity)
			bidPrice = styles.FormatPrice(bids[i].Price)
		}
		if i < len(asks) {
			askPrice = styles.FormatPrice(asks[i].Price)
			askSize = styles.FormatSize(asks[i].Quantity)
		}
		bidPart := styles.BuyStyle.Render(fmt.Sprintf("%10s %8s", bidSize, bidPrice))
		askPart := styles.SellStyle.Render(fmt.Sprintf("%-8s %-10s", askPrice, askSize))
		content.WriteString(fmt.Sprintf("%s │ %s\n", bidPart, askPart))
	}

	content.WriteString("\n")
	content.WriteString(styles.HeaderStyle.Render("Recent Trades"))
	content.WriteString("\n")

	trades := p.trades
	if len(trades) > 5 {
		trades = trades[len(trades)-5:]
	}
	for i := len(trades) - 1; i >= 0; i-- {
		tr := trades[i]
		style := styles.SellStyle
		if tr.AggressorSide == core.SideBuy {
			style = styles.BuyStyle
		}
		line := fmt.Sprintf("%8s @ %s  %d→%d", styles.FormatSize(tr.Quantity), styles.FormatPrice(tr.Price), tr.SellerID, tr.BuyerID)
		content.WriteString(style.Render(line))
		content.WriteString("\n")
	}

	panelStyle := styles.PanelStyle
	if p.focused {
		panelStyle = styles.FocusedPanelStyle
	}
	title := styles.RenderTitle("📊 Orderbook", p.focused)
	panel := lipgloss.JoinVertical(lipgloss.Left, title, content.String())

	return panelStyle.Width(p.width - 2).Height(p.height - 2).Render(panel)
}

func window(levels []core.Level, offset, n int) []core.Level {
	if offset >= len(levels) {
		return nil
	}
	levels = levels[offset:]
	if len(levels) > n {
		levels = levels[:n]
	}
	return levels
}

// SetFocus sets the focus state of the panel.
func (p *OrderbookPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetSize sets the panel dimensions.
func (p *OrderbookPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetLevels replaces the depth, best level first on each side.
func (p *OrderbookPanel) SetLevels(bids, asks []core.Level) {
	p.bids = bids
	p.asks = asks
	p.scrollOffset = min(p.scrollOffset, p.maxScroll())
}

// SetTrades replaces the recent trades, oldest first.
func (p *OrderbookPanel) SetTrades(trades []core.Trade) {
	p.trades = trades
	if len(p.trades) > p.maxTrades {
		p.trades = p.trades[len(p.trades)-p.maxTrades:]
	}
}
