package simulation

import (
	"context"

	"github.com/zappabad/cdamarket/internal/orderbook/core"
)

// AgentState is a point-in-time copy of one agent.
type AgentState struct {
	ID     core.AgentID
	Belief float64
	Rho    float64
	Cash   float64
	Shares float64
}

// RoundSnapshot is published after every round, and once for the opening
// state as round 0.
type RoundSnapshot struct {
	Round     int
	Mechanism Mechanism
	Price     float64

	BestBid float64
	BestAsk float64
	HasBid  bool
	HasAsk  bool
	Bids    []core.Level // best first; empty for lmsr
	Asks    []core.Level

	Volume float64
	Trades []core.Trade
	Events []core.Event // book events in order; empty for lmsr

	Signal     float64
	HasSignal  bool
	MeanBelief float64
	Agents     []AgentState

	Done       bool
	StopReason StopReason
}

// Observer receives round snapshots. A non-nil error aborts the run.
type Observer interface {
	OnRound(ctx context.Context, snap RoundSnapshot) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, snap RoundSnapshot) error

// OnRound implements Observer.
func (f ObserverFunc) OnRound(ctx context.Context, snap RoundSnapshot) error { return f(ctx, snap) }
