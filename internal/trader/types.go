package trader

import (
	"fmt"

	"github.com/zappabad/cdamarket/internal/orderbook/core"
)

// OrderIntent is what an agent wants to submit this step.
type OrderIntent struct {
	Kind       core.OrderKind
	Side       core.Side
	Quantity   float64
	LimitPrice float64 // for limit orders only
}

func (in OrderIntent) String() string {
	if in.Kind == core.OrderKindMarket {
		return fmt.Sprintf("%s %s %.6f", in.Kind, in.Side, in.Quantity)
	}
	return fmt.Sprintf("%s %s %.6f @ %.4f", in.Kind, in.Side, in.Quantity, in.LimitPrice)
}

// OrderSender is the part of the exchange an agent submits to.
type OrderSender interface {
	SubmitLimit(agent core.AgentID, side core.Side, qty, limit float64) (core.FillReport, []core.Event, error)
	SubmitMarket(agent core.AgentID, side core.Side, qty float64) (core.FillReport, []core.Event, error)
}

// Submit routes an intent to the matching submit call.
func Submit(s OrderSender, agent core.AgentID, in OrderIntent) (core.FillReport, []core.Event, error) {
	switch in.Kind {
	case core.OrderKindLimit:
		return s.SubmitLimit(agent, in.Side, in.Quantity, in.LimitPrice)
	case core.OrderKindMarket:
		return s.SubmitMarket(agent, in.Side, in.Quantity)
	default:
		return core.FillReport{}, nil, fmt.Errorf("unknown order kind %d", in.Kind)
	}
}

// Portfolio is an agent's cash and claim holdings.
type Portfolio struct {
	Cash   float64
	Shares float64
}

// Apply books a fill: shares are signed, cost is what the agent pays.
func (p *Portfolio) Apply(shares, cost float64) {
	p.Cash -= cost
	p.Shares += shares
}

// Payoff is terminal wealth if the claim resolves to outcome (1 or 0).
func (p Portfolio) Payoff(outcome float64) float64 {
	return p.Cash + p.Shares*outcome
}

// Settle applies each trade to the portfolios of its buyer and seller and
// returns the executed volume. Unknown counterparties are skipped.
func Settle(trades []core.Trade, book map[core.AgentID]*Portfolio) float64 {
	var volume float64
	for _, tr := range trades {
		notional := tr.Notional()
		if buyer, ok := book[tr.BuyerID]; ok {
			buyer.Apply(tr.Quantity, notional)
		}
		if seller, ok := book[tr.SellerID]; ok {
			seller.Apply(-tr.Quantity, -notional)
		}
		volume += tr.Quantity
	}
	return volume
}
