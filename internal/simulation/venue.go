package simulation

import (
	"fmt"
	"math"

	"github.com/zappabad/cdamarket/internal/lmsr"
	"github.com/zappabad/cdamarket/internal/orderbook/core"
	"github.com/zappabad/cdamarket/internal/trader"
	"github.com/zappabad/cdamarket/internal/trader/strategy"
)

// MakerAgentID is the counterparty recorded for trades against the LMSR maker.
const MakerAgentID core.AgentID = -1

// roundStats is what one pass over the population produced.
type roundStats struct {
	volume float64
	trades []core.Trade
	events []core.Event
}

// venue is the pricing engine agents trade against during a round.
type venue interface {
	price() float64
	round(agents []*trader.Agent) (roundStats, error)
}

// cdaVenue runs agents through the continuous double auction. Each agent
// keeps at most one live quote: it cancels before deciding again.
type cdaVenue struct {
	book       *core.Book
	strat      strategy.Strategy
	portfolios map[core.AgentID]*trader.Portfolio
}

func newCDAVenue(cfg Config, agents []*trader.Agent) (*cdaVenue, error) {
	book, err := core.NewBook(cfg.Book)
	if err != nil {
		return nil, err
	}
	strat, err := strategy.NewCRRA(cfg.Strategy)
	if err != nil {
		return nil, err
	}
	portfolios := make(map[core.AgentID]*trader.Portfolio, len(agents))
	for _, a := range agents {
		portfolios[a.ID] = &a.Portfolio
	}
	return &cdaVenue{book: book, strat: strat, portfolios: portfolios}, nil
}

func (v *cdaVenue) price() float64 { return v.book.ReferencePrice() }

func (v *cdaVenue) round(agents []*trader.Agent) (roundStats, error) {
	var st roundStats
	for _, a := range agents {
		_, evs := v.book.CancelAgentOrders(a.ID)
		st.events = append(st.events, evs...)

		intent, ok := v.strat.Step(a, strategy.ReadQuote(v.book))
		if !ok {
			continue
		}
		report, evs, err := trader.Submit(v.book, a.ID, intent)
		if err != nil {
			return st, fmt.Errorf("agent %d %s: %w", a.ID, intent, err)
		}
		st.events = append(st.events, evs...)
		st.trades = append(st.trades, report.Trades...)
		st.volume += trader.Settle(report.Trades, v.portfolios)
	}
	return st, nil
}

// lmsrVenue has every agent trade its bounded optimal quantity with the
// market maker at the price quoted when the round opened.
type lmsrVenue struct {
	maker    *lmsr.MarketMaker
	minTrade float64
}

func newLMSRVenue(cfg Config) (*lmsrVenue, error) {
	maker, err := lmsr.New(cfg.LMSR.Liquidity)
	if err != nil {
		return nil, err
	}
	return &lmsrVenue{maker: maker, minTrade: cfg.LMSR.MinTradeSize}, nil
}

func (v *lmsrVenue) price() float64 { return v.maker.Price() }

func (v *lmsrVenue) round(agents []*trader.Agent) (roundStats, error) {
	var st roundStats
	q := v.maker.Price()
	for _, a := range agents {
		x := a.BoundedTrade(q)
		if math.Abs(x) < v.minTrade {
			continue
		}
		cost := v.maker.Trade(x)
		a.Apply(x, cost)

		tr := core.Trade{
			Price:    math.Abs(cost / x),
			Quantity: math.Abs(x),
		}
		if x > 0 {
			tr.BuyerID, tr.SellerID, tr.AggressorSide = a.ID, MakerAgentID, core.SideBuy
		} else {
			tr.BuyerID, tr.SellerID, tr.AggressorSide = MakerAgentID, a.ID, core.SideSell
		}
		st.trades = append(st.trades, tr)
		st.volume += tr.Quantity
	}
	return st, nil
}
