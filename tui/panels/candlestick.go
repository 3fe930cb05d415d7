package panels

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/cdamarket/internal/orderbook/core"
	"github.com/zappabad/cdamarket/tui/styles"
)

// Candle summarizes one round: it opens at the previous round's reference
// price, closes at this round's and spans every trade in between.
type Candle struct {
	Round  int
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// CandlestickPanel charts the reference price round by round.
type CandlestickPanel struct {
	candles    []Candle
	lastClose  float64
	hasClose   bool
	target     float64
	hasTarget  bool
	focused    bool
	width      int
	height     int
	maxCandles int
}

// NewCandlestickPanel creates a new candlestick chart panel.
func NewCandlestickPanel() *CandlestickPanel {
	return &CandlestickPanel{maxCandles: 200}
}

// Init initializes the panel.
func (p *CandlestickPanel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the panel.
func (p *CandlestickPanel) Update(msg tea.Msg) (*CandlestickPanel, tea.Cmd) {
	return p, nil
}

// AddRound appends the candle for round. Round 0 only records the opening
// price.
func (p *CandlestickPanel) AddRound(round int, price float64, trades []core.Trade) {
	if !p.hasClose || round == 0 {
		p.lastClose, p.hasClose = price, true
		if round == 0 {
			return
		}
	}
	c := Candle{Round: round, Open: p.lastClose, High: math.Max(p.lastClose, price), Low: math.Min(p.lastClose, price), Close: price}
	for _, tr := range trades {
		c.High = math.Max(c.High, tr.Price)
		c.Low = math.Min(c.Low, tr.Price)
		c.Volume += tr.Quantity
	}
	p.candles = append(p.candles, c)
	if len(p.candles) > p.maxCandles {
		p.candles = p.candles[len(p.candles)-p.maxCandles:]
	}
	p.lastClose = price
}

// SetTarget draws a reference line at the convergence target.
func (p *CandlestickPanel) SetTarget(target float64) {
	p.target, p.hasTarget = target, true
}

// Candles returns the recorded candles, oldest first.
func (p *CandlestickPanel) Candles() []Candle {
	return p.candles
}

// Reset clears the chart.
func (p *CandlestickPanel) Reset() {
	p.candles = nil
	p.hasClose = false
	p.hasTarget = false
}

// View renders the panel.
func (p *CandlestickPanel) View() string {
	var content strings.Builder
	if len(p.candles) == 0 {
		content.WriteString(styles.MutedStyle.Render("No rounds yet..."))
	} else {
		content.WriteString(p.renderChart(p.width-12, p.height-6))
	}

	panelStyle := styles.PanelStyle
	if p.focused {
		panelStyle = styles.FocusedPanelStyle
	}
	title := styles.RenderTitle("📉 Reference price by round", p.focused)
	panel := lipgloss.JoinVertical(lipgloss.Left, title, content.String())

	return panelStyle.Width(p.width - 2).Height(p.height - 2).Render(panel)
}

func (p *CandlestickPanel) renderChart(width, height int) string {
	// 9 chars for the price axis, 1 for the separator, 2 per candle
	chartWidth := max(width-10, 10)
	show := min(max(chartWidth/2, 1), len(p.candles))
	display := p.candles[len(p.candles)-show:]

	lo, hi := display[0].Low, display[0].High
	for _, c := range display {
		lo = math.Min(lo, c.Low)
		hi = math.Max(hi, c.High)
	}
	if p.hasTarget {
		lo = math.Min(lo, p.target)
		hi = math.Max(hi, p.target)
	}
	pad := math.Max((hi-lo)*0.1, 0.005)
	lo, hi = lo-pad, hi+pad

	chartHeight := max(height-3, 5)
	step := (hi - lo) / float64(chartHeight-1)

	var b strings.Builder
	for row := 0; row < chartHeight; row++ {
		price := yToPrice(row, lo, hi, chartHeight)
		b.WriteString(styles.ChartAxisStyle.Render(fmt.Sprintf("%8s │", styles.FormatPrice(price))))
		onTarget := p.hasTarget && math.Abs(price-p.target) <= step/2
		for _, c := range display {
			style := styles.CandleUpStyle
			if c.Close < c.Open {
				style = styles.CandleDownStyle
			}
			ch := candleChar(c, price, step/2)
			if ch == ' ' && onTarget {
				b.WriteString(styles.ChartLabelStyle.Render("┄┄"))
				continue
			}
			b.WriteString(style.Render(string(ch)))
			b.WriteString(" ")
		}
		b.WriteString("\n")
	}

	b.WriteString(styles.ChartAxisStyle.Render("─────────┴"))
	b.WriteString(styles.ChartAxisStyle.Render(strings.Repeat("──", len(display))))
	b.WriteString("\n")
	b.WriteString(styles.ChartLabelStyle.Render(fmt.Sprintf("          r%d … r%d", display[0].Round, display[len(display)-1].Round)))
	return b.String()
}

// candleChar is the glyph for candle c in the row centred on price.
func candleChar(c Candle, price, tol float64) rune {
	bodyTop, bodyBottom := math.Max(c.Open, c.Close), math.Min(c.Open, c.Close)
	switch {
	case price <= bodyTop+tol && price >= bodyBottom-tol:
		return '┃'
	case price <= c.High+tol && price > bodyTop:
		return '│'
	case price >= c.Low-tol && price < bodyBottom:
		return '│'
	}
	return ' '
}

func yToPrice(y int, lo, hi float64, height int) float64 {
	if height <= 1 {
		return lo
	}
	return hi - float64(y)/float64(height-1)*(hi-lo)
}

// SetFocus sets the focus state of the panel.
func (p *CandlestickPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetSize sets the panel dimensions.
func (p *CandlestickPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}
