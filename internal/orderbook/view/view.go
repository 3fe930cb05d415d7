package view

import (
	"sort"
	"sync"

	"github.com/zappabad/cdamarket/internal/orderbook/core"
)

type levelState struct {
	size   float64
	orders int
}

type orderState struct {
	agentID  core.AgentID
	side     core.Side
	price    float64
	size     float64
	sequence uint64
}

// Stats summarizes everything the view has seen traded.
type Stats struct {
	Trades    int
	Volume    float64
	Notional  float64
	LastPrice float64
	HasLast   bool
}

// VWAP is the volume-weighted average trade price, 0 before any trade.
func (s Stats) VWAP() float64 {
	if s.Volume == 0 {
		return 0
	}
	return s.Notional / s.Volume
}

// BookView mirrors a core.Book from its event stream.
// It is safe for concurrent use and returns copies (not internal references).
type BookView struct {
	mu     sync.RWMutex
	orders map[core.OrderID]orderState
	bids   map[float64]levelState
	asks   map[float64]levelState
	tape   *TradeTape
	stats  Stats
}

// NewBookView creates a new BookView with the given trade tape capacity.
func NewBookView(tapeCapacity int) *BookView {
	return &BookView{
		orders: map[core.OrderID]orderState{},
		bids:   map[float64]levelState{},
		asks:   map[float64]levelState{},
		tape:   NewTradeTape(tapeCapacity),
	}
}

func (v *BookView) levelsFor(s core.Side) map[float64]levelState {
	if s == core.SideBuy {
		return v.bids
	}
	return v.asks
}

// Apply processes an event and updates the view accordingly.
func (v *BookView) Apply(ev core.Event) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.apply(ev)
}

// ApplyAll applies events in order under a single lock.
func (v *BookView) ApplyAll(evs []core.Event) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, ev := range evs {
		v.apply(ev)
	}
}

func (v *BookView) apply(ev core.Event) {
	switch e := ev.(type) {
	case core.TradeEvent:
		v.tape.Append(e.Trade)
		v.stats.Trades++
		v.stats.Volume += e.Trade.Quantity
		v.stats.Notional += e.Trade.Notional()
		v.stats.LastPrice, v.stats.HasLast = e.Trade.Price, true

	case core.OrderRestedEvent:
		v.orders[e.OrderID] = orderState{
			agentID:  e.AgentID,
			side:     e.Side,
			price:    e.Price,
			size:     e.Size,
			sequence: e.Sequence,
		}
		levels := v.levelsFor(e.Side)
		lv := levels[e.Price]
		lv.size += e.Size
		lv.orders++
		levels[e.Price] = lv

	case core.OrderReducedEvent:
		st, ok := v.orders[e.OrderID]
		if !ok {
			// event stream is incomplete or out of order
			return
		}
		levels := v.levelsFor(st.side)
		lv := levels[st.price]
		lv.size += e.Delta
		levels[st.price] = lv
		st.size = e.Remaining
		v.orders[e.OrderID] = st

	case core.OrderRemovedEvent:
		st, ok := v.orders[e.OrderID]
		if !ok {
			return
		}
		levels := v.levelsFor(st.side)
		lv := levels[st.price]
		lv.size -= st.size
		lv.orders--
		if lv.orders <= 0 {
			delete(levels, st.price)
		} else {
			levels[st.price] = lv
		}
		delete(v.orders, e.OrderID)
	}
}

// Levels returns up to depth aggregated levels, sorted best->worst.
// depth <= 0 returns every level.
func (v *BookView) Levels(side core.Side, depth int) []core.Level {
	v.mu.RLock()
	defer v.mu.RUnlock()

	src := v.levelsFor(side)
	var out []core.Level
	for p, lv := range src {
		out = append(out, core.Level{Price: p, Quantity: lv.size, Orders: lv.orders})
	}
	sort.Slice(out, func(i, j int) bool {
		if side == core.SideBuy {
			return out[i].Price > out[j].Price // best bid is highest
		}
		return out[i].Price < out[j].Price // best ask is lowest
	})
	if depth > 0 && len(out) > depth {
		out = out[:depth]
	}
	return out
}

// Orders returns all resting orders on a side, best price first, then arrival.
func (v *BookView) Orders(side core.Side) []core.RestingOrder {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var out []core.RestingOrder
	for id, st := range v.orders {
		if st.side != side {
			continue
		}
		out = append(out, core.RestingOrder{
			ID:        id,
			AgentID:   st.agentID,
			Side:      st.side,
			Price:     st.price,
			Remaining: st.size,
			Sequence:  st.sequence,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Price != out[j].Price {
			if side == core.SideBuy {
				return out[i].Price > out[j].Price
			}
			return out[i].Price < out[j].Price
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// TradesLast returns the last n trades in chronological order.
func (v *BookView) TradesLast(n int) []core.Trade {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.tape.Last(n)
}

// Stats returns cumulative trade statistics.
func (v *BookView) Stats() Stats {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.stats
}

// Reset clears all state, keeping the tape capacity.
func (v *BookView) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.orders = map[core.OrderID]orderState{}
	v.bids = map[float64]levelState{}
	v.asks = map[float64]levelState{}
	v.tape = NewTradeTape(v.tape.size)
	v.stats = Stats{}
}
