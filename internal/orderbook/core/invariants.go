package core

import (
	"errors"
	"fmt"
)

// ErrCorrupt is wrapped by every Validate failure.
var ErrCorrupt = errors.New("book invariant violated")

// Validate walks the whole book and checks its structural invariants:
// no crossed quotes, ladder and level map agree, no empty levels, prices on
// the grid and in the band, FIFO order by sequence, strictly positive sizes.
// It is O(n) and meant for tests and debugging.
func (b *Book) Validate() error {
	bid, okBid := b.BestBid()
	ask, okAsk := b.BestAsk()
	if okBid && okAsk && !(bid < ask) {
		return fmt.Errorf("%w: crossed book bid=%v ask=%v", ErrCorrupt, bid, ask)
	}

	seen := 0
	for _, side := range []*bookSide{b.bids, b.asks} {
		if side.ladder.len() != len(side.levels) {
			return fmt.Errorf("%w: ladder has %d prices, map has %d levels", ErrCorrupt, side.ladder.len(), len(side.levels))
		}
		for ticks, l := range side.levels {
			if !side.ladder.has(ticks) {
				return fmt.Errorf("%w: level %v missing from ladder", ErrCorrupt, l.price)
			}
			if l.empty() {
				return fmt.Errorf("%w: empty level %v", ErrCorrupt, l.price)
			}
			if ticks < b.grid.minTicks || ticks > b.grid.maxTicks {
				return fmt.Errorf("%w: level %v outside price band", ErrCorrupt, l.price)
			}
			if l.price != b.grid.price(ticks) {
				return fmt.Errorf("%w: level price %v off grid", ErrCorrupt, l.price)
			}
			var (
				prevSeq uint64
				prevID  OrderID
				n       int
			)
			for o := l.head; o != nil; o = o.next {
				if o.level != l || o.ticks != ticks {
					return fmt.Errorf("%w: order %d linked into wrong level", ErrCorrupt, o.id)
				}
				if !(o.size > b.cfg.Epsilon) {
					return fmt.Errorf("%w: order %d has size %v", ErrCorrupt, o.id, o.size)
				}
				if n > 0 && (o.sequence < prevSeq || o.id <= prevID) {
					return fmt.Errorf("%w: order %d out of FIFO order at %v", ErrCorrupt, o.id, l.price)
				}
				if b.orders[o.id] != o {
					return fmt.Errorf("%w: order %d not indexed", ErrCorrupt, o.id)
				}
				prevSeq, prevID = o.sequence, o.id
				n++
			}
			if n != l.count {
				return fmt.Errorf("%w: level %v counts %d orders, holds %d", ErrCorrupt, l.price, l.count, n)
			}
			seen += n
		}
	}
	if seen != len(b.orders) {
		return fmt.Errorf("%w: %d orders indexed, %d linked", ErrCorrupt, len(b.orders), seen)
	}
	return nil
}
