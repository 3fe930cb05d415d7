package core

import "math"

// gridTolerance absorbs float noise when a bound divided by the tick lands
// a hair off an integer (0.001/1e-4 == 10.000000000000002).
const gridTolerance = 1e-9

// priceGrid converts between float prices and integer ticks.
// Level keys are ticks, so two prices that normalize alike share a level.
type priceGrid struct {
	tick    float64
	perUnit float64 // ticks per 1.0 when that is an integer, else 0

	minTicks PriceTicks
	maxTicks PriceTicks
}

func newPriceGrid(cfg Config) priceGrid {
	g := priceGrid{tick: cfg.TickSize}
	inv := 1 / cfg.TickSize
	if r := math.Round(inv); r >= 1 && math.Abs(inv-r) <= gridTolerance*r {
		g.perUnit = r
	}
	g.minTicks = PriceTicks(math.Ceil(g.ratio(cfg.MinPrice) - gridTolerance))
	g.maxTicks = PriceTicks(math.Floor(g.ratio(cfg.MaxPrice) + gridTolerance))
	return g
}

func (g priceGrid) ratio(p float64) float64 {
	if g.perUnit > 0 {
		return p * g.perUnit
	}
	return p / g.tick
}

// ticks clips p to the band and rounds to the nearest tick. A bound that is
// not tick-aligned snaps one tick inward.
func (g priceGrid) ticks(p float64) PriceTicks {
	lo, hi := g.price(g.minTicks), g.price(g.maxTicks)
	if p < lo {
		p = lo
	} else if p > hi {
		p = hi
	}
	t := PriceTicks(math.Round(g.ratio(p)))
	if t < g.minTicks {
		t = g.minTicks
	} else if t > g.maxTicks {
		t = g.maxTicks
	}
	return t
}

func (g priceGrid) price(t PriceTicks) float64 {
	if g.perUnit > 0 {
		return float64(t) / g.perUnit
	}
	return float64(t) * g.tick
}

func (g priceGrid) normalize(p float64) float64 { return g.price(g.ticks(p)) }
