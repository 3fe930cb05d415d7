package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceLadder(t *testing.T) {
	l := newPriceLadder()
	_, ok := l.min()
	assert.False(t, ok)

	for _, p := range []PriceTicks{50, 10, 30, 30, 70} {
		l.insert(p)
	}
	assert.Equal(t, 4, l.len(), "duplicate insert is a no-op")

	lo, ok := l.min()
	require.True(t, ok)
	assert.Equal(t, PriceTicks(10), lo)
	hi, ok := l.max()
	require.True(t, ok)
	assert.Equal(t, PriceTicks(70), hi)

	l.remove(70)
	l.remove(999)
	hi, _ = l.max()
	assert.Equal(t, PriceTicks(50), hi)
	assert.False(t, l.has(70))

	var desc []PriceTicks
	l.walk(true, func(p PriceTicks) bool {
		desc = append(desc, p)
		return true
	})
	assert.Equal(t, []PriceTicks{50, 30, 10}, desc)

	var first []PriceTicks
	l.walk(false, func(p PriceTicks) bool {
		first = append(first, p)
		return len(first) < 2
	})
	assert.Equal(t, []PriceTicks{10, 30}, first)
}

func TestLevelFIFO(t *testing.T) {
	l := &level{ticks: 5000, price: 0.5}
	a := &restingOrder{id: 1, size: 1}
	b := &restingOrder{id: 2, size: 2}
	c := &restingOrder{id: 3, size: 3}
	l.append(a)
	l.append(b)
	l.append(c)
	assert.Equal(t, 3, l.count)
	assert.Equal(t, 6.0, l.totalVolume)

	l.unlink(b)
	assert.False(t, b.resting())
	assert.Equal(t, 4.0, l.totalVolume)

	assert.Same(t, a, l.popHead())
	assert.Same(t, c, l.popHead())
	assert.Nil(t, l.popHead())
	assert.True(t, l.empty())
	assert.Equal(t, 0, l.count)
}

func TestBookSideBestLevel(t *testing.T) {
	bids := newBookSide(true)
	asks := newBookSide(false)
	for _, p := range []PriceTicks{4000, 4500, 4200} {
		bids.getOrCreate(p, float64(p)/10000)
		asks.getOrCreate(p, float64(p)/10000)
	}
	assert.Equal(t, PriceTicks(4500), bids.bestLevel().ticks)
	assert.Equal(t, PriceTicks(4000), asks.bestLevel().ticks)

	bids.removeLevel(bids.levels[4500])
	assert.Equal(t, PriceTicks(4200), bids.bestLevel().ticks)
	assert.Equal(t, 2, bids.ladder.len())
}
