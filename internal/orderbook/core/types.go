package core

import (
	"fmt"
	"strconv"
)

// Side represents the order side: buy or sell.
type Side uint8

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether s is one of the two known sides.
func (s Side) Valid() bool { return s == SideBuy || s == SideSell }

// Opposite returns the opposite side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// ParseSide maps exactly "buy" or "sell" to a Side.
func ParseSide(s string) (Side, error) {
	switch s {
	case "buy":
		return SideBuy, nil
	case "sell":
		return SideSell, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidSide, s)
	}
}

// OrderKind represents the order type: limit or market.
type OrderKind uint8

const (
	OrderKindLimit OrderKind = iota
	OrderKindMarket
)

func (k OrderKind) String() string {
	switch k {
	case OrderKindLimit:
		return "LIMIT"
	case OrderKindMarket:
		return "MARKET"
	default:
		return "UNKNOWN"
	}
}

// PriceTicks represents price as an integer number of ticks.
type PriceTicks int64

func (p PriceTicks) String() string { return strconv.FormatInt(int64(p), 10) }

// OrderID uniquely identifies a resting order. Never reused.
type OrderID int64

// AgentID identifies the participant that placed an order.
type AgentID int64

// Trade is an immutable record of one execution.
type Trade struct {
	BuyerID       AgentID
	SellerID      AgentID
	Price         float64
	Quantity      float64
	AggressorSide Side

	MakerOrderID OrderID
	Sequence     uint64 // sequence of the aggressing submission
}

// Notional is price times quantity.
func (t Trade) Notional() float64 { return t.Price * t.Quantity }

// FillReport is returned after every submission.
type FillReport struct {
	Trades    []Trade
	Filled    float64
	Remaining float64 // resting size for a limit order, discarded size for a market order

	RestingOrderID OrderID // zero unless Rested
	Rested         bool
}

// CancelReport is returned after canceling an agent's orders.
type CancelReport struct {
	AgentID  AgentID
	Orders   int
	Quantity float64
}

// RestingOrder is a read-only snapshot of a resting order.
type RestingOrder struct {
	ID        OrderID
	AgentID   AgentID
	Side      Side
	Price     float64
	Remaining float64
	Sequence  uint64
}

// Level is an aggregated snapshot of one price level.
type Level struct {
	Price    float64
	Quantity float64
	Orders   int
}
