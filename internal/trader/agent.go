package trader

import (
	"math"

	"github.com/zappabad/cdamarket/internal/belief"
	"github.com/zappabad/cdamarket/internal/orderbook/core"
)

const (
	// tradablePriceLow and tradablePriceHigh bound the prices at which the
	// demand function is evaluated; outside them an agent sits out.
	tradablePriceLow  = 0.01
	tradablePriceHigh = 0.99

	agreementTolerance  = 1e-6
	minPriceDenominator = 1e-9
)

// Agent is a CRRA-utility participant holding a subjective probability that
// the claim pays out.
type Agent struct {
	ID core.AgentID
	Portfolio

	Belief        float64
	InitialBelief float64
	Rho           float64 // relative risk aversion, > 0
}

// NewAgent creates an agent with cash and no shares.
func NewAgent(id core.AgentID, cash, belief, rho float64) *Agent {
	return &Agent{
		ID:            id,
		Portfolio:     Portfolio{Cash: cash},
		Belief:        belief,
		InitialBelief: belief,
		Rho:           rho,
	}
}

// OptimalTrade is the signed change in position that maximizes expected CRRA
// utility at price q:
//
//	k  = (p(1-q) / (q(1-p)))^(1/rho)
//	x* = ((k-1)y - z) / (1 + q(k-1))
//
// with p the belief, y cash and z shares. It is 0 outside (0.01, 0.99), when
// belief and price agree, or when the odds are undefined.
func (a *Agent) OptimalTrade(q float64) float64 {
	if q <= tradablePriceLow || q >= tradablePriceHigh {
		return 0
	}
	p := a.Belief
	if math.Abs(p-q) < agreementTolerance {
		return 0
	}
	num := p * (1 - q)
	den := q * (1 - p)
	if num <= 0 || den <= 0 {
		return 0
	}
	k := math.Pow(num/den, 1/a.Rho)
	return ((k-1)*a.Cash - a.Shares) / (1 + q*(k-1))
}

// BoundedTrade is OptimalTrade clamped so neither outcome leaves the agent
// with negative wealth against a cash-only budget.
func (a *Agent) BoundedTrade(q float64) float64 {
	x := a.OptimalTrade(q)
	if x > 0 {
		return math.Min(x, a.Cash/q)
	}
	if x < 0 {
		return math.Max(x, -a.Cash/(1-q))
	}
	return 0
}

// MaxBuy is how many shares cash covers at price.
func (a *Agent) MaxBuy(price float64) float64 {
	return math.Max(a.Cash, 0) / math.Max(price, minPriceDenominator)
}

// MaxSell is how many shares cash plus holdings collateralize at price.
func (a *Agent) MaxSell(price float64) float64 {
	return math.Max(a.Cash+a.Shares, 0) / math.Max(1-price, minPriceDenominator)
}

// ClipQuantity caps qty at what the agent can afford on side at price.
func (a *Agent) ClipQuantity(side core.Side, qty, price float64) float64 {
	qty = math.Max(qty, 0)
	if side == core.SideBuy {
		return math.Min(qty, a.MaxBuy(price))
	}
	return math.Min(qty, a.MaxSell(price))
}

// UpdateBelief folds a public signal into the agent's belief.
func (a *Agent) UpdateBelief(signal float64, u belief.Update) error {
	p, err := u.Apply(a.Belief, signal)
	if err != nil {
		return err
	}
	a.Belief = p
	return nil
}
