package trader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zappabad/cdamarket/internal/belief"
	"github.com/zappabad/cdamarket/internal/orderbook/core"
)

func TestOptimalTrade(t *testing.T) {
	a := NewAgent(1, 100, 0.7, 1)
	// k = 0.35/0.15, x = (k-1)*100 / (1 + 0.5(k-1)) = 80
	assert.InDelta(t, 80.0, a.OptimalTrade(0.5), 1e-9)

	seller := NewAgent(2, 100, 0.3, 1)
	assert.InDelta(t, -80.0, seller.OptimalTrade(0.5), 1e-9)

	tests := []struct {
		name  string
		price float64
	}{
		{"at lower cutoff", 0.01},
		{"below lower cutoff", 0.001},
		{"at upper cutoff", 0.99},
		{"agrees with belief", 0.7},
		{"within agreement tolerance", 0.7 + 5e-7},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, 0.0, a.OptimalTrade(tc.price))
		})
	}
}

func TestOptimalTradeShrinksWithRiskAversion(t *testing.T) {
	prev := NewAgent(1, 100, 0.75, 0.5).OptimalTrade(0.5)
	for _, rho := range []float64{1, 2, 4, 8} {
		x := NewAgent(1, 100, 0.75, rho).OptimalTrade(0.5)
		assert.Greater(t, x, 0.0)
		assert.Less(t, x, prev, "rho=%v", rho)
		prev = x
	}
}

func TestOptimalTradeAccountsForHoldings(t *testing.T) {
	a := NewAgent(1, 100, 0.7, 1)
	a.Shares = 80
	// (133.33 - 80) / (1 + 0.5*1.3333)
	assert.InDelta(t, 32.0, a.OptimalTrade(0.5), 1e-9)

	a.Shares = (0.35/0.15 - 1) * 100
	assert.InDelta(t, 0.0, a.OptimalTrade(0.5), 1e-9, "holdings already optimal")
}

func TestBoundedTrade(t *testing.T) {
	buyer := NewAgent(1, 100, 0.9, 1)
	buyer.Shares = -1000
	assert.Greater(t, buyer.OptimalTrade(0.5), 200.0)
	assert.InDelta(t, 200.0, buyer.BoundedTrade(0.5), 1e-9)

	seller := NewAgent(2, 100, 0.1, 1)
	seller.Shares = 1000
	assert.Less(t, seller.OptimalTrade(0.5), -200.0)
	assert.InDelta(t, -200.0, seller.BoundedTrade(0.5), 1e-9)

	small := NewAgent(3, 100, 0.7, 1)
	assert.Equal(t, small.OptimalTrade(0.5), small.BoundedTrade(0.5))
	assert.Equal(t, 0.0, small.BoundedTrade(0.7))
}

func TestQuantityCaps(t *testing.T) {
	a := NewAgent(1, 50, 0.5, 1)
	a.Shares = 10

	assert.InDelta(t, 100.0, a.MaxBuy(0.5), 1e-12)
	assert.InDelta(t, 50.0/1e-9, a.MaxBuy(0), 1)
	assert.InDelta(t, 120.0, a.MaxSell(0.5), 1e-12)

	assert.InDelta(t, 100.0, a.ClipQuantity(core.SideBuy, 500, 0.5), 1e-12)
	assert.InDelta(t, 30.0, a.ClipQuantity(core.SideSell, 30, 0.5), 1e-12)
	assert.Equal(t, 0.0, a.ClipQuantity(core.SideBuy, -5, 0.5))

	broke := NewAgent(2, -10, 0.5, 1)
	assert.Equal(t, 0.0, broke.MaxBuy(0.5))
	assert.Equal(t, 0.0, broke.MaxSell(0.5))
}

func TestUpdateBelief(t *testing.T) {
	a := NewAgent(1, 100, 0.2, 1)
	require.NoError(t, a.UpdateBelief(0.9, belief.Update{Method: belief.MethodBeta, PriorStrength: 20, ObsStrength: 10}))
	assert.NotEqual(t, 0.2, a.Belief)
	assert.GreaterOrEqual(t, a.Belief, belief.ProbLow)
	assert.LessOrEqual(t, a.Belief, belief.ProbHigh)
	assert.Equal(t, 0.2, a.InitialBelief)

	before := a.Belief
	err := a.UpdateBelief(0.9, belief.Update{Method: belief.MethodWeighted, Weight: 2})
	assert.ErrorIs(t, err, belief.ErrInvalidWeight)
	assert.Equal(t, before, a.Belief, "failed update leaves belief alone")
}

func TestSettleConservesCashAndShares(t *testing.T) {
	book := map[core.AgentID]*Portfolio{
		1: {Cash: 100},
		2: {Cash: 100},
		3: {Cash: 100},
	}
	trades := []core.Trade{
		{BuyerID: 1, SellerID: 2, Price: 0.6, Quantity: 2},
		{BuyerID: 3, SellerID: 1, Price: 0.55, Quantity: 1.5},
	}
	vol := Settle(trades, book)
	assert.Equal(t, 3.5, vol)

	assert.InDelta(t, 0.5, book[1].Shares, 1e-12)
	assert.InDelta(t, -2.0, book[2].Shares, 1e-12)
	assert.InDelta(t, 1.5, book[3].Shares, 1e-12)
	assert.InDelta(t, 100-1.2+0.825, book[1].Cash, 1e-12)

	var cash, shares float64
	for _, p := range book {
		cash += p.Cash
		shares += p.Shares
	}
	assert.InDelta(t, 300.0, cash, 1e-9)
	assert.InDelta(t, 0.0, shares, 1e-12)

	assert.InDelta(t, 100-1.2+0.825+0.5, book[1].Payoff(1), 1e-12)
}

type recordingSender struct {
	limits, markets int
}

func (r *recordingSender) SubmitLimit(core.AgentID, core.Side, float64, float64) (core.FillReport, []core.Event, error) {
	r.limits++
	return core.FillReport{}, nil, nil
}

func (r *recordingSender) SubmitMarket(core.AgentID, core.Side, float64) (core.FillReport, []core.Event, error) {
	r.markets++
	return core.FillReport{}, nil, nil
}

func TestSubmitRoutesByKind(t *testing.T) {
	s := &recordingSender{}
	_, _, err := Submit(s, 1, OrderIntent{Kind: core.OrderKindLimit, Side: core.SideBuy, Quantity: 1, LimitPrice: 0.5})
	require.NoError(t, err)
	_, _, err = Submit(s, 1, OrderIntent{Kind: core.OrderKindMarket, Side: core.SideSell, Quantity: 1})
	require.NoError(t, err)
	_, _, err = Submit(s, 1, OrderIntent{Kind: core.OrderKind(9)})
	assert.Error(t, err)

	assert.Equal(t, 1, s.limits)
	assert.Equal(t, 1, s.markets)
}
