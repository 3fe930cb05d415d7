package lmsr

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadLiquidity(t *testing.T) {
	for _, b := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := New(b)
		assert.ErrorIs(t, err, ErrInvalidLiquidity, "b=%v", b)
	}
}

func TestFlatMakerPricesAtHalf(t *testing.T) {
	m, err := New(100)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, m.Price(), 1e-15)
	assert.InDelta(t, 100*math.Ln2, m.Cost(m.Inventory), 1e-12)
}

func TestTradeMovesPriceAndChargesCostDifference(t *testing.T) {
	m, err := New(100)
	require.NoError(t, err)

	before := m.Cost(m.Inventory)
	quote := m.Quote(10)
	cost := m.Trade(10)
	assert.Equal(t, quote, cost)
	assert.InDelta(t, m.Cost(m.Inventory)-before, cost, 1e-12)
	assert.Equal(t, 10.0, m.Inventory[0])

	// exp(0.1) / (exp(0.1) + 1)
	assert.InDelta(t, math.Exp(0.1)/(math.Exp(0.1)+1), m.Price(), 1e-12)
	assert.Greater(t, cost, 5.0, "buying above 0.5 costs more than half")
	assert.Less(t, cost, 10.0)

	refund := m.Trade(-10)
	assert.InDelta(t, -cost, refund, 1e-12, "round trip is free")
	assert.InDelta(t, 0.5, m.Price(), 1e-12)
}

func TestCostStableForLargeInventory(t *testing.T) {
	m, err := New(1)
	require.NoError(t, err)
	m.Inventory = [2]float64{5000, 0}

	c := m.Cost(m.Inventory)
	assert.False(t, math.IsInf(c, 0) || math.IsNaN(c))
	assert.InDelta(t, 5000, c, 1e-9)
	assert.InDelta(t, 1.0, m.Price(), 1e-12)
}

func TestPriceBoundedAndMonotone(t *testing.T) {
	m, err := New(50)
	require.NoError(t, err)
	prev := m.Price()
	for range 20 {
		m.Trade(5)
		p := m.Price()
		assert.Greater(t, p, prev)
		assert.Less(t, p, 1.0)
		prev = p
	}
	assert.InDelta(t, 50*math.Ln2, m.MaxLoss(), 1e-12)
}
