package core

import (
	"math"
	"testing"

	"pgregory.net/rapid"
)

type opKind int

const (
	opLimit opKind = iota
	opMarket
	opCancel
)

type bookOp struct {
	kind  opKind
	agent AgentID
	side  Side
	qty   float64
	price float64
}

// quantities are multiples of 1/4 so sums stay exact in float64
func drawOps(t *rapid.T) []bookOp {
	n := rapid.IntRange(1, 120).Draw(t, "n")
	ops := make([]bookOp, n)
	for i := range ops {
		ops[i] = bookOp{
			kind:  opKind(rapid.IntRange(0, 5).Draw(t, "kind") % 3),
			agent: AgentID(rapid.IntRange(1, 6).Draw(t, "agent")),
			side:  Side(rapid.IntRange(0, 1).Draw(t, "side")),
			qty:   float64(rapid.IntRange(-1, 20).Draw(t, "quarters")) / 4,
			price: float64(rapid.IntRange(4900, 5100).Draw(t, "ticks")) / 10000,
		}
		if ops[i].kind == opLimit && rapid.Bool().Draw(t, "wild") {
			ops[i].price = rapid.Float64Range(-1, 2).Draw(t, "wildPrice")
		}
	}
	return ops
}

type opResult struct {
	report FillReport
	events []Event
	cancel CancelReport
}

func apply(t *rapid.T, b *Book, op bookOp) opResult {
	var (
		res opResult
		err error
	)
	switch op.kind {
	case opLimit:
		res.report, res.events, err = b.SubmitLimit(op.agent, op.side, op.qty, op.price)
	case opMarket:
		res.report, res.events, err = b.SubmitMarket(op.agent, op.side, op.qty)
	case opCancel:
		res.cancel, res.events = b.CancelAgentOrders(op.agent)
	}
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return res
}

func TestProperty_InvariantsHoldAfterEveryOperation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b, err := NewBook(DefaultConfig())
		if err != nil {
			t.Fatal(err)
		}
		for i, op := range drawOps(t) {
			apply(t, b, op)
			if err := b.Validate(); err != nil {
				t.Fatalf("after op %d (%+v): %v", i, op, err)
			}
		}
	})
}

func TestProperty_VolumeConservation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b, _ := NewBook(DefaultConfig())
		shares := map[AgentID]float64{}
		cash := map[AgentID]float64{}

		for _, op := range drawOps(t) {
			res := apply(t, b, op)
			if op.kind == opCancel {
				if len(res.report.Trades) != 0 {
					t.Fatalf("cancel produced trades")
				}
				continue
			}
			var sum float64
			for _, tr := range res.report.Trades {
				if !(tr.Quantity > 0) {
					t.Fatalf("non-positive trade quantity %v", tr.Quantity)
				}
				if tr.BuyerID == 0 || tr.SellerID == 0 {
					t.Fatalf("trade missing counterparty: %+v", tr)
				}
				sum += tr.Quantity
				shares[tr.BuyerID] += tr.Quantity
				shares[tr.SellerID] -= tr.Quantity
				cash[tr.BuyerID] -= tr.Notional()
				cash[tr.SellerID] += tr.Notional()
			}
			if sum != res.report.Filled {
				t.Fatalf("filled %v but trades sum to %v", res.report.Filled, sum)
			}
			if op.qty > 0 && res.report.Filled+res.report.Remaining != op.qty {
				t.Fatalf("filled %v + remaining %v != submitted %v", res.report.Filled, res.report.Remaining, op.qty)
			}
		}

		var totalShares, totalCash float64
		for _, s := range shares {
			totalShares += s
		}
		for _, c := range cash {
			totalCash += c
		}
		if totalShares != 0 {
			t.Fatalf("shares not conserved: %v", totalShares)
		}
		if math.Abs(totalCash) > 1e-9 {
			t.Fatalf("cash not conserved: %v", totalCash)
		}
	})
}

func TestProperty_PriceTimePriority(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b, _ := NewBook(DefaultConfig())
		restedAt := map[OrderID]float64{}

		for _, op := range drawOps(t) {
			res := apply(t, b, op)
			for _, ev := range res.events {
				if rested, ok := ev.(OrderRestedEvent); ok {
					restedAt[rested.OrderID] = rested.Price
				}
			}
			trades := res.report.Trades
			for i, tr := range trades {
				if want, ok := restedAt[tr.MakerOrderID]; !ok || tr.Price != want {
					t.Fatalf("trade at %v, maker %d rested at %v", tr.Price, tr.MakerOrderID, want)
				}
				if op.kind == opLimit {
					limit := b.NormalizePrice(op.price)
					if (op.side == SideBuy && tr.Price > limit) || (op.side == SideSell && tr.Price < limit) {
						t.Fatalf("%v limit %v traded through at %v", op.side, limit, tr.Price)
					}
				}
				if i == 0 {
					continue
				}
				prev := trades[i-1]
				if op.side == SideBuy && tr.Price < prev.Price {
					t.Fatalf("buy walked asks downward: %v then %v", prev.Price, tr.Price)
				}
				if op.side == SideSell && tr.Price > prev.Price {
					t.Fatalf("sell walked bids upward: %v then %v", prev.Price, tr.Price)
				}
				if tr.Price == prev.Price && tr.MakerOrderID <= prev.MakerOrderID {
					t.Fatalf("FIFO violated at %v: maker %d after %d", tr.Price, tr.MakerOrderID, prev.MakerOrderID)
				}
			}
		}
	})
}

func TestProperty_DeterministicReplay(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ops := drawOps(t)
		run := func() ([]opResult, []RestingOrder, []RestingOrder) {
			b, _ := NewBook(DefaultConfig())
			out := make([]opResult, 0, len(ops))
			for _, op := range ops {
				out = append(out, apply(t, b, op))
			}
			return out, b.Orders(SideBuy), b.Orders(SideSell)
		}
		r1, bids1, asks1 := run()
		r2, bids2, asks2 := run()

		for i := range r1 {
			if len(r1[i].report.Trades) != len(r2[i].report.Trades) {
				t.Fatalf("op %d: trade count differs", i)
			}
			for j := range r1[i].report.Trades {
				if r1[i].report.Trades[j] != r2[i].report.Trades[j] {
					t.Fatalf("op %d trade %d differs", i, j)
				}
			}
			if r1[i].report.RestingOrderID != r2[i].report.RestingOrderID || r1[i].cancel != r2[i].cancel {
				t.Fatalf("op %d: report differs", i)
			}
		}
		if len(bids1) != len(bids2) || len(asks1) != len(asks2) {
			t.Fatalf("final books differ")
		}
		for i := range bids1 {
			if bids1[i] != bids2[i] {
				t.Fatalf("bid %d differs", i)
			}
		}
		for i := range asks1 {
			if asks1[i] != asks2[i] {
				t.Fatalf("ask %d differs", i)
			}
		}
	})
}
