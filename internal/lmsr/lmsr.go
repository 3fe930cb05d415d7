// Package lmsr implements a logarithmic market scoring rule market maker for
// a two-outcome claim. It prices independently of the order book.
package lmsr

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidLiquidity = errors.New("liquidity parameter must be > 0")

// MarketMaker quotes outcome 1 of a binary claim from its net inventory.
// Inventory[0] is outstanding shares of outcome 1, Inventory[1] of outcome 0.
type MarketMaker struct {
	b         float64
	Inventory [2]float64
}

// New creates a market maker with liquidity b and flat inventory.
func New(b float64) (*MarketMaker, error) {
	if !(b > 0) || math.IsInf(b, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLiquidity, b)
	}
	return &MarketMaker{b: b}, nil
}

// Liquidity returns b.
func (m *MarketMaker) Liquidity() float64 { return m.b }

// Cost is C(q) = b * ln(sum_i exp(q_i / b)), evaluated with the max
// factored out so large inventories do not overflow.
func (m *MarketMaker) Cost(inv [2]float64) float64 {
	x0, x1 := inv[0]/m.b, inv[1]/m.b
	hi := math.Max(x0, x1)
	return m.b * (hi + math.Log(math.Exp(x0-hi)+math.Exp(x1-hi)))
}

// Price is the instantaneous price of outcome 1.
func (m *MarketMaker) Price() float64 {
	// logistic of the inventory gap, same as exp(q0/b) / sum exp(qi/b)
	d := (m.Inventory[1] - m.Inventory[0]) / m.b
	return 1 / (1 + math.Exp(d))
}

// Quote returns what buying delta shares of outcome 1 would cost without
// changing inventory. Negative delta sells.
func (m *MarketMaker) Quote(delta float64) float64 {
	next := m.Inventory
	next[0] += delta
	return m.Cost(next) - m.Cost(m.Inventory)
}

// Trade moves delta shares of outcome 1 and returns what the trader pays.
func (m *MarketMaker) Trade(delta float64) float64 {
	cost := m.Quote(delta)
	m.Inventory[0] += delta
	return cost
}

// MaxLoss is the worst-case subsidy of a maker that started flat: b*ln(2).
func (m *MarketMaker) MaxLoss() float64 { return m.b * math.Ln2 }
