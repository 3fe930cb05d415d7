package view

import "github.com/zappabad/cdamarket/internal/orderbook/core"

// TradeTape is a ring buffer for storing trades (bounded memory).
type TradeTape struct {
	buf   []core.Trade
	size  int
	start int
	count int
}

// NewTradeTape creates a new TradeTape with the given capacity.
func NewTradeTape(capacity int) *TradeTape {
	if capacity <= 0 {
		capacity = 1
	}
	return &TradeTape{
		buf:  make([]core.Trade, capacity),
		size: capacity,
	}
}

// Append adds a trade to the tape.
func (t *TradeTape) Append(tr core.Trade) {
	if t.count < t.size {
		t.buf[(t.start+t.count)%t.size] = tr
		t.count++
		return
	}
	// overwrite oldest
	t.buf[t.start] = tr
	t.start = (t.start + 1) % t.size
}

// Last returns the last n trades in chronological order.
// Returns a copy (not internal references).
func (t *TradeTape) Last(n int) []core.Trade {
	if n <= 0 || t.count == 0 {
		return nil
	}
	n = min(n, t.count)
	out := make([]core.Trade, n)
	first := (t.start + (t.count - n)) % t.size
	for i := range n {
		out[i] = t.buf[(first+i)%t.size]
	}
	return out
}

// Count returns the number of trades held, at most the capacity.
func (t *TradeTape) Count() int {
	return t.count
}
