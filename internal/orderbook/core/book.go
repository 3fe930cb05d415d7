package core

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidSide   = errors.New("invalid side")
	ErrInvalidPrice  = errors.New("invalid price")
	ErrInvalidConfig = errors.New("invalid book config")
)

// Book is the continuous double auction for a single binary claim.
// It is deterministic and single-threaded: no goroutines, mutexes or
// wall-clock time. Ordering comes from a logical sequence counter.
type Book struct {
	cfg  Config
	grid priceGrid

	bids *bookSide
	asks *bookSide

	orders  map[OrderID]*restingOrder // resting only
	byAgent map[AgentID][]*restingOrder

	lastOrderID OrderID
	seq         uint64

	lastTrade    float64
	hasLastTrade bool
}

// NewBook creates an empty book. Zero fields in cfg take DefaultConfig values.
func NewBook(cfg Config) (*Book, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Book{
		cfg:     cfg,
		grid:    newPriceGrid(cfg),
		bids:    newBookSide(true),
		asks:    newBookSide(false),
		orders:  map[OrderID]*restingOrder{},
		byAgent: map[AgentID][]*restingOrder{},
	}, nil
}

// Config returns the effective configuration.
func (b *Book) Config() Config { return b.cfg }

func (b *Book) sideFor(s Side) *bookSide {
	if s == SideBuy {
		return b.bids
	}
	return b.asks
}

// NormalizePrice clips p to the price band and snaps it to the tick grid.
func (b *Book) NormalizePrice(p float64) float64 { return b.grid.normalize(p) }

// SubmitLimit matches a limit order and rests any remainder.
func (b *Book) SubmitLimit(agent AgentID, side Side, qty, limit float64) (FillReport, []Event, error) {
	if !side.Valid() {
		return FillReport{}, nil, fmt.Errorf("%w: %d", ErrInvalidSide, side)
	}
	if math.IsNaN(limit) {
		return FillReport{}, nil, fmt.Errorf("%w: NaN limit", ErrInvalidPrice)
	}
	if !validQuantity(qty) {
		return FillReport{}, nil, nil
	}
	b.seq++
	ticks := b.grid.ticks(limit)
	report, evs := b.match(agent, side, qty, &ticks)

	if report.Remaining > b.cfg.Epsilon {
		node := b.addResting(agent, side, ticks, report.Remaining)
		report.RestingOrderID = node.id
		report.Rested = true
		evs = append(evs, OrderRestedEvent{
			OrderID: node.id, AgentID: agent, Side: side,
			Price: node.price, Size: node.size, Sequence: node.sequence,
		})
	}
	return report, evs, nil
}

// SubmitMarket matches immediately; whatever cannot fill is discarded.
func (b *Book) SubmitMarket(agent AgentID, side Side, qty float64) (FillReport, []Event, error) {
	if !side.Valid() {
		return FillReport{}, nil, fmt.Errorf("%w: %d", ErrInvalidSide, side)
	}
	if !validQuantity(qty) {
		return FillReport{}, nil, nil
	}
	b.seq++
	report, evs := b.match(agent, side, qty, nil)
	return report, evs, nil
}

// CancelAgentOrders removes every resting order of agent on both sides.
func (b *Book) CancelAgentOrders(agent AgentID) (CancelReport, []Event) {
	report := CancelReport{AgentID: agent}
	nodes := b.byAgent[agent]
	if len(nodes) == 0 {
		return report, nil
	}
	delete(b.byAgent, agent)

	var evs []Event
	for _, node := range nodes {
		if !node.resting() {
			continue
		}
		side := b.sideFor(node.side)
		l := node.level
		l.unlink(node)
		side.removeIfEmpty(l)
		delete(b.orders, node.id)

		report.Orders++
		report.Quantity += node.size
		evs = append(evs, OrderRemovedEvent{
			OrderID:   node.id,
			Reason:    RemoveReasonCanceled,
			Remaining: node.size,
			Price:     node.price,
			Side:      node.side,
			AgentID:   node.agentID,
			Sequence:  b.seq,
		})
	}
	return report, evs
}

func (b *Book) addResting(agent AgentID, side Side, ticks PriceTicks, size float64) *restingOrder {
	b.lastOrderID++
	node := &restingOrder{
		id:       b.lastOrderID,
		agentID:  agent,
		side:     side,
		ticks:    ticks,
		price:    b.grid.price(ticks),
		size:     size,
		sequence: b.seq,
	}
	l := b.sideFor(side).getOrCreate(ticks, node.price)
	l.append(node)
	b.orders[node.id] = node

	// drop nodes that already filled so the index stays proportional to
	// what the agent actually has resting
	live := b.byAgent[agent][:0]
	for _, o := range b.byAgent[agent] {
		if o.resting() {
			live = append(live, o)
		}
	}
	b.byAgent[agent] = append(live, node)
	return node
}

// BestBid returns the highest bid price.
func (b *Book) BestBid() (float64, bool) {
	if l := b.bids.bestLevel(); l != nil {
		return l.price, true
	}
	return 0, false
}

// BestAsk returns the lowest ask price.
func (b *Book) BestAsk() (float64, bool) {
	if l := b.asks.bestLevel(); l != nil {
		return l.price, true
	}
	return 0, false
}

// MidPrice is defined only when both sides are non-empty.
func (b *Book) MidPrice() (float64, bool) {
	bid, okBid := b.BestBid()
	ask, okAsk := b.BestAsk()
	if !okBid || !okAsk {
		return 0, false
	}
	return (bid + ask) / 2, true
}

// LastTradePrice returns the price of the most recent execution.
func (b *Book) LastTradePrice() (float64, bool) { return b.lastTrade, b.hasLastTrade }

// ReferencePrice falls back from mid to last trade to whichever side is
// quoted, and finally to the configured initial price.
func (b *Book) ReferencePrice() float64 {
	if mid, ok := b.MidPrice(); ok {
		return mid
	}
	if b.hasLastTrade {
		return b.lastTrade
	}
	if bid, ok := b.BestBid(); ok {
		return bid
	}
	if ask, ok := b.BestAsk(); ok {
		return ask
	}
	return b.cfg.InitialReferencePrice
}

// Sequence returns the number of accepted submissions so far.
func (b *Book) Sequence() uint64 { return b.seq }

// Len returns the number of resting orders.
func (b *Book) Len() int { return len(b.orders) }

// Levels returns up to depth aggregated levels, best first. depth <= 0
// returns all of them.
func (b *Book) Levels(side Side, depth int) []Level {
	var out []Level
	b.sideFor(side).walk(func(l *level) bool {
		out = append(out, Level{Price: l.price, Quantity: l.totalVolume, Orders: l.count})
		return depth <= 0 || len(out) < depth
	})
	return out
}

// Orders returns resting orders on side in priority order.
func (b *Book) Orders(side Side) []RestingOrder {
	var out []RestingOrder
	b.sideFor(side).walk(func(l *level) bool {
		for o := l.head; o != nil; o = o.next {
			out = append(out, o.snapshot())
		}
		return true
	})
	return out
}

// AgentOrders returns the agent's resting orders, oldest first.
func (b *Book) AgentOrders(agent AgentID) []RestingOrder {
	var out []RestingOrder
	for _, o := range b.byAgent[agent] {
		if o.resting() {
			out = append(out, o.snapshot())
		}
	}
	return out
}

// validQuantity reports whether qty is positive and finite.
func validQuantity(qty float64) bool {
	return qty > 0 && !math.IsInf(qty, 1)
}
