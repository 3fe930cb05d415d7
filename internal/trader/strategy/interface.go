package strategy

import (
	"github.com/zappabad/cdamarket/internal/trader"
)

// MarketReader provides read-only access to the quotes an agent sees.
type MarketReader interface {
	BestBid() (float64, bool)
	BestAsk() (float64, bool)
	ReferencePrice() float64
}

// Quote is the market state an agent decides against.
type Quote struct {
	Reference float64
	BestBid   float64
	BestAsk   float64
	HasBid    bool
	HasAsk    bool
}

// ReadQuote snapshots mr.
func ReadQuote(mr MarketReader) Quote {
	q := Quote{Reference: mr.ReferencePrice()}
	q.BestBid, q.HasBid = mr.BestBid()
	q.BestAsk, q.HasAsk = mr.BestAsk()
	return q
}

// Strategy turns an agent and a quote into at most one order.
type Strategy interface {
	// Step returns the order to submit, or false to stay out this step.
	Step(a *trader.Agent, q Quote) (trader.OrderIntent, bool)
}
