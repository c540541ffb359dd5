package core

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/zappabad/lobsim/internal/market"
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

// Opposite returns the opposite side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

func (s Side) valid() bool { return s == SideBuy || s == SideSell }

// OrderType represents the order type: limit or market.
type OrderType uint8

const (
	OrderTypeLimit OrderType = iota
	OrderTypeMarket
)

func (k OrderType) String() string {
	switch k {
	case OrderTypeLimit:
		return "LIMIT"
	case OrderTypeMarket:
		return "MARKET"
	default:
		return "UNKNOWN"
	}
}

func (k OrderType) valid() bool { return k == OrderTypeLimit || k == OrderTypeMarket }

// ParseOrderType parses "LIMIT" or "MARKET" (case-insensitive).
func ParseOrderType(s string) (OrderType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LIMIT":
		return OrderTypeLimit, nil
	case "MARKET":
		return OrderTypeMarket, nil
	default:
		return 0, fmt.Errorf("unknown order type %q", s)
	}
}

// OrderID uniquely identifies an order.
type OrderID int64

// CounterpartyID identifies the market participant who placed the order.
type CounterpartyID int64

// IDSequence hands out unique order ids. Safe for concurrent use.
type IDSequence struct {
	last atomic.Int64
}

// NewIDSequence returns a sequence whose first id is start+1.
func NewIDSequence(start int64) *IDSequence {
	s := &IDSequence{}
	s.last.Store(start)
	return s
}

// Next returns the next id.
func (s *IDSequence) Next() OrderID {
	return OrderID(s.last.Add(1))
}

// Order is an input/value object.
// Submitting an order hands a copy to the book; the book mutates its own
// resting copy, never the caller's.
type Order struct {
	ID             OrderID
	Timestamp      time.Time
	CounterpartyID CounterpartyID
	Instrument     *market.Instrument
	Type           OrderType
	Side           Side
	Amount         int64
	Price          float64 // limit only

	// CancelAt is carried for analysis only; the book never expires orders.
	CancelAt time.Time
}

// NewLimitOrder builds a limit order. Validation happens at submission.
func NewLimitOrder(id OrderID, ts time.Time, cp CounterpartyID, inst *market.Instrument, side Side, amount int64, price float64) Order {
	return Order{
		ID:             id,
		Timestamp:      ts,
		CounterpartyID: cp,
		Instrument:     inst,
		Type:           OrderTypeLimit,
		Side:           side,
		Amount:         amount,
		Price:          price,
	}
}

// NewMarketOrder builds a market order. Validation happens at submission.
func NewMarketOrder(id OrderID, ts time.Time, cp CounterpartyID, inst *market.Instrument, side Side, amount int64) Order {
	return Order{
		ID:             id,
		Timestamp:      ts,
		CounterpartyID: cp,
		Instrument:     inst,
		Type:           OrderTypeMarket,
		Side:           side,
		Amount:         amount,
	}
}

// HasPrice reports whether the order carries a limit price.
func (o Order) HasPrice() bool { return o.Type == OrderTypeLimit }

// Trade records one match between a buy order and a sell order.
type Trade struct {
	BuyOrderID  OrderID
	SellOrderID OrderID
	Instrument  *market.Instrument
	Price       float64
	Amount      int64
	Timestamp   time.Time
	TakerSide   Side
}

// Notional returns price * amount.
func (t Trade) Notional() float64 { return t.Price * float64(t.Amount) }

// Level represents aggregate resting amount at a price.
type Level struct {
	Price  float64
	Amount int64
	Orders int
}

// RestingOrder is a read-only copy of an order waiting in the book.
type RestingOrder struct {
	ID             OrderID
	CounterpartyID CounterpartyID
	Side           Side
	Price          float64
	Amount         int64
	Timestamp      time.Time
	Seq            uint64 // insertion sequence, breaks price ties
}
