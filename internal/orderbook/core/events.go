package core

// Event is the interface for all orderbook events.
type Event interface {
	isEvent()
}

// RemoveReason indicates why an order was removed from the book.
type RemoveReason uint8

const (
	RemoveReasonFilled RemoveReason = iota
	RemoveReasonCanceled
)

func (r RemoveReason) String() string {
	switch r {
	case RemoveReasonFilled:
		return "FILLED"
	case RemoveReasonCanceled:
		return "CANCELED"
	default:
		return "UNKNOWN"
	}
}

// TradeEvent is emitted once per execution.
type TradeEvent struct {
	Trade Trade
}

func (TradeEvent) isEvent() {}

// OrderRestedEvent is emitted when a limit remainder joins the book.
type OrderRestedEvent struct {
	OrderID  OrderID
	AgentID  AgentID
	Side     Side
	Price    float64
	Size     float64
	Sequence uint64
}

func (OrderRestedEvent) isEvent() {}

// OrderReducedEvent is emitted when a resting order is partially filled.
type OrderReducedEvent struct {
	OrderID   OrderID
	Delta     float64 // negative
	Remaining float64
	Price     float64
	Side      Side
	AgentID   AgentID
	Sequence  uint64
}

func (OrderReducedEvent) isEvent() {}

// OrderRemovedEvent is emitted when an order leaves the book.
type OrderRemovedEvent struct {
	OrderID   OrderID
	Reason    RemoveReason
	Remaining float64 // 0 when filled, the canceled size otherwise
	Price     float64
	Side      Side
	AgentID   AgentID
	Sequence  uint64
}

func (OrderRemovedEvent) isEvent() {}
