package core

import "github.com/google/btree"

const ladderDegree = 16

// priceLadder is the sorted set of distinct prices on one side.
type priceLadder struct {
	tree *btree.BTreeG[PriceTicks]
}

func newPriceLadder() *priceLadder {
	return &priceLadder{tree: btree.NewOrderedG[PriceTicks](ladderDegree)}
}

// insert is a no-op for a price already present.
func (l *priceLadder) insert(p PriceTicks) { l.tree.ReplaceOrInsert(p) }

func (l *priceLadder) remove(p PriceTicks) { l.tree.Delete(p) }

func (l *priceLadder) has(p PriceTicks) bool { return l.tree.Has(p) }

func (l *priceLadder) len() int { return l.tree.Len() }

func (l *priceLadder) min() (PriceTicks, bool) { return l.tree.Min() }

func (l *priceLadder) max() (PriceTicks, bool) { return l.tree.Max() }

// walk visits prices best-first: descending for bids, ascending for asks.
func (l *priceLadder) walk(descending bool, fn func(PriceTicks) bool) {
	if descending {
		l.tree.Descend(fn)
		return
	}
	l.tree.Ascend(fn)
}
