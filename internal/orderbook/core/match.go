package core

// crosses reports whether a taker with the given limit may trade at price.
func crosses(side Side, limit, price PriceTicks) bool {
	if side == SideBuy {
		return price <= limit
	}
	return price >= limit
}

// match consumes the opposite side under price-time priority. It mutates
// resting makers, executes at the maker's price and emits events. A nil
// limit means the taker is a market order.
func (b *Book) match(agent AgentID, side Side, qty float64, limit *PriceTicks) (FillReport, []Event) {
	var (
		report = FillReport{Remaining: qty}
		events []Event
	)
	opp := b.sideFor(side.Opposite())
	eps := b.cfg.Epsilon

	for report.Remaining > eps {
		best := opp.bestLevel()
		if best == nil {
			break
		}
		if limit != nil && !crosses(side, *limit, best.ticks) {
			break
		}

		for report.Remaining > eps && best.head != nil {
			maker := best.head
			traded := min(report.Remaining, maker.size)

			report.Remaining -= traded
			best.reduce(maker, traded)

			t := Trade{
				Price:         best.price,
				Quantity:      traded,
				AggressorSide: side,
				MakerOrderID:  maker.id,
				Sequence:      b.seq,
			}
			if side == SideBuy {
				t.BuyerID, t.SellerID = agent, maker.agentID
			} else {
				t.BuyerID, t.SellerID = maker.agentID, agent
			}
			report.Trades = append(report.Trades, t)
			events = append(events, TradeEvent{Trade: t})
			b.lastTrade, b.hasLastTrade = t.Price, true

			if maker.size <= eps {
				best.popHead()
				delete(b.orders, maker.id)
				events = append(events, OrderRemovedEvent{
					OrderID:  maker.id,
					Reason:   RemoveReasonFilled,
					Price:    maker.price,
					Side:     maker.side,
					AgentID:  maker.agentID,
					Sequence: b.seq,
				})
			} else {
				events = append(events, OrderReducedEvent{
					OrderID:   maker.id,
					Delta:     -traded,
					Remaining: maker.size,
					Price:     maker.price,
					Side:      maker.side,
					AgentID:   maker.agentID,
					Sequence:  b.seq,
				})
			}
		}

		opp.removeIfEmpty(best)
	}

	report.Filled = qty - report.Remaining
	return report, events
}
