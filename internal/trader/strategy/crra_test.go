package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zappabad/cdamarket/internal/orderbook/core"
	"github.com/zappabad/cdamarket/internal/trader"
)

func newCRRA(t *testing.T, mutate func(*Config)) *CRRA {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := NewCRRA(cfg)
	require.NoError(t, err)
	return s
}

func TestCRRAStep(t *testing.T) {
	tests := []struct {
		name      string
		policy    Policy
		belief    float64
		quote     Quote
		wantOK    bool
		wantKind  core.OrderKind
		wantSide  core.Side
		wantQty   float64
		wantLimit float64
	}{
		{name: "limit policy quotes below belief", policy: PolicyLimit, belief: 0.7, quote: Quote{Reference: 0.5, BestAsk: 0.6, HasAsk: true}, wantOK: true, wantKind: core.OrderKindLimit, wantSide: core.SideBuy, wantQty: 80, wantLimit: 0.69},
		{name: "market policy always crosses", policy: PolicyMarket, belief: 0.7, quote: Quote{Reference: 0.5}, wantOK: true, wantKind: core.OrderKindMarket, wantSide: core.SideBuy, wantQty: 80},
		{name: "hybrid crosses through ask with edge", policy: PolicyHybrid, belief: 0.7, quote: Quote{Reference: 0.5, BestAsk: 0.6, HasAsk: true}, wantOK: true, wantKind: core.OrderKindMarket, wantSide: core.SideBuy, wantQty: 80},
		{name: "hybrid rests without an ask", policy: PolicyHybrid, belief: 0.7, quote: Quote{Reference: 0.5}, wantOK: true, wantKind: core.OrderKindLimit, wantSide: core.SideBuy, wantQty: 80, wantLimit: 0.69},
		{name: "hybrid rests when ask above belief", policy: PolicyHybrid, belief: 0.7, quote: Quote{Reference: 0.5, BestAsk: 0.75, HasAsk: true}, wantOK: true, wantKind: core.OrderKindLimit, wantSide: core.SideBuy, wantQty: 80, wantLimit: 0.69},
		{name: "hybrid sells through bid", policy: PolicyHybrid, belief: 0.3, quote: Quote{Reference: 0.5, BestBid: 0.4, HasBid: true}, wantOK: true, wantKind: core.OrderKindMarket, wantSide: core.SideSell, wantQty: 80},
		{name: "no order when belief matches reference", policy: PolicyHybrid, belief: 0.5, quote: Quote{Reference: 0.5}},
		{name: "no order outside tradable prices", policy: PolicyMarket, belief: 0.7, quote: Quote{Reference: 0.995}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newCRRA(t, func(c *Config) { c.Policy = tc.policy })
			a := trader.NewAgent(1, 100, tc.belief, 1)

			in, ok := s.Step(a, tc.quote)
			require.Equal(t, tc.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tc.wantKind, in.Kind)
			assert.Equal(t, tc.wantSide, in.Side)
			assert.InDelta(t, tc.wantQty, in.Quantity, 1e-9)
			if tc.wantKind == core.OrderKindLimit {
				assert.InDelta(t, tc.wantLimit, in.LimitPrice, 1e-12)
			}
		})
	}
}

func TestCRRAHybridNeedsEdge(t *testing.T) {
	s := newCRRA(t, nil)
	a := trader.NewAgent(1, 100, 0.7, 1)

	// belief is through the ask but only 0.05 from the reference
	in, ok := s.Step(a, Quote{Reference: 0.65, BestAsk: 0.66, HasAsk: true})
	require.True(t, ok)
	assert.Equal(t, core.OrderKindLimit, in.Kind)
	assert.Equal(t, core.SideBuy, in.Side)
}

func TestCRRALimitPriceClipped(t *testing.T) {
	s := newCRRA(t, func(c *Config) {
		c.Policy = PolicyLimit
		c.LimitOffset = 0.5
	})
	a := trader.NewAgent(1, 100, 0.7, 1)

	in, ok := s.Step(a, Quote{Reference: 0.9})
	require.True(t, ok)
	assert.Equal(t, core.SideSell, in.Side)
	assert.Equal(t, 0.999, in.LimitPrice)
}

func TestCRRAMarketQuantityClippedAtRiskPrice(t *testing.T) {
	s := newCRRA(t, func(c *Config) { c.Policy = PolicyMarket })
	a := trader.NewAgent(1, 10, 0.9, 1)
	a.Shares = -1000

	// optimal buy is 216 but 10 cash only covers 10 shares at price 1
	in, ok := s.Step(a, Quote{Reference: 0.5})
	require.True(t, ok)
	assert.InDelta(t, 10.0, in.Quantity, 1e-12)
}

func TestCRRAMinTradeSize(t *testing.T) {
	s := newCRRA(t, func(c *Config) { c.MinTradeSize = 1000 })
	_, ok := s.Step(trader.NewAgent(1, 100, 0.7, 1), Quote{Reference: 0.5})
	assert.False(t, ok)
}

func TestConfigValidate(t *testing.T) {
	_, err := NewCRRA(Config{Policy: "iceberg", MinQuote: 0.001, MaxQuote: 0.999})
	assert.ErrorIs(t, err, ErrUnknownPolicy)

	cfg := DefaultConfig()
	cfg.LimitOffset = -1
	_, err = NewCRRA(cfg)
	assert.Error(t, err)

	p, err := ParsePolicy("HYBRID")
	require.NoError(t, err)
	assert.Equal(t, PolicyHybrid, p)
}

func TestReadQuote(t *testing.T) {
	b, err := core.NewBook(core.DefaultConfig())
	require.NoError(t, err)
	_, _, err = b.SubmitLimit(1, core.SideBuy, 1, 0.4)
	require.NoError(t, err)

	q := ReadQuote(b)
	assert.Equal(t, Quote{Reference: 0.4, BestBid: 0.4, HasBid: true}, q)
}
