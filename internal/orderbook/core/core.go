package core

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/zappabad/lobsim/internal/market"
)

var (
	ErrInstrumentMismatch = errors.New("instrument mismatch")
	ErrInvalidPrice       = errors.New("invalid limit price")
	ErrInvalidOrder       = errors.New("invalid order")
)

// Outcome describes what happened to a submitted order.
type Outcome uint8

const (
	OutcomeFilled Outcome = iota
	OutcomeRested // limit residual queued in the book
	// OutcomeRejected means a market order found insufficient liquidity
	// and was discarded without touching the book.
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFilled:
		return "FILLED"
	case OutcomeRested:
		return "RESTED"
	case OutcomeRejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// Report is returned after submitting an order.
type Report struct {
	OrderID   OrderID
	Outcome   Outcome
	Trades    []Trade
	Filled    int64
	Remaining int64
}

// Option configures a Book.
type Option func(*Book)

// WithClock sets the clock used to timestamp trades.
func WithClock(now func() time.Time) Option {
	return func(b *Book) { b.now = now }
}

// Book is the price-time priority matching engine for one instrument.
//
// Resting orders live in per-price FIFO levels kept in a heap: O(1) best
// price, O(log n) to open a new level.
//
// Book is not safe for concurrent use. service.Service serializes access.
type Book struct {
	instrument *market.Instrument
	bids       *bookSide
	asks       *bookSide
	trades     []Trade
	seq        uint64
	now        func() time.Time

	lastPrice float64
	hasLast   bool
}

// NewBook creates an empty book for inst.
func NewBook(inst *market.Instrument, opts ...Option) *Book {
	b := &Book{
		instrument: inst,
		bids:       newBookSide(true),
		asks:       newBookSide(false),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Instrument returns the book's instrument.
func (b *Book) Instrument() *market.Instrument { return b.instrument }

func (b *Book) validate(o Order) error {
	if !b.instrument.Equal(o.Instrument) {
		return fmt.Errorf("%w: order %d is for %s, book is %s", ErrInstrumentMismatch, o.ID, o.Instrument, b.instrument)
	}
	if o.Type == OrderTypeLimit {
		if math.IsNaN(o.Price) || o.Price <= 0 || !b.instrument.IsTickAligned(o.Price) {
			return fmt.Errorf("%w: %v breaches minimum tick size %v", ErrInvalidPrice, o.Price, b.instrument.MinTickSize)
		}
		if !b.instrument.InTickRange(o.Price) {
			return fmt.Errorf("%w: %v is beyond the tick range of %s", ErrInvalidPrice, o.Price, b.instrument)
		}
	}
	if !o.Type.valid() || !o.Side.valid() {
		return fmt.Errorf("%w: order %d has side %s type %s", ErrInvalidOrder, o.ID, o.Side, o.Type)
	}
	if o.Amount <= 0 {
		return fmt.Errorf("%w: order %d amount %d must be positive", ErrInvalidOrder, o.ID, o.Amount)
	}
	return nil
}

// AddOrder matches the order against the book and returns the trades it
// generated. A market order that cannot be filled in full returns no trades
// and leaves the book untouched. Validation errors never mutate the book.
func (b *Book) AddOrder(o Order) ([]Trade, error) {
	report, err := b.Submit(o)
	if err != nil {
		return nil, err
	}
	return report.Trades, nil
}

// Submit is AddOrder with a full report of the outcome.
func (b *Book) Submit(o Order) (Report, error) {
	if err := b.validate(o); err != nil {
		return Report{}, err
	}

	report := Report{OrderID: o.ID, Remaining: o.Amount}

	if o.Type == OrderTypeMarket && !b.opposite(o.Side).hasAtLeast(o.Amount) {
		report.Outcome = OutcomeRejected
		return report, nil
	}

	report.Trades = b.match(&o)
	report.Remaining = o.Amount
	for _, tr := range report.Trades {
		report.Filled += tr.Amount
	}

	switch {
	case o.Amount == 0:
		report.Outcome = OutcomeFilled
	case o.Type == OrderTypeLimit:
		b.rest(o)
		report.Outcome = OutcomeRested
	}
	return report, nil
}

func (b *Book) sideFor(s Side) *bookSide {
	if s == SideBuy {
		return b.bids
	}
	return b.asks
}

func (b *Book) opposite(s Side) *bookSide { return b.sideFor(s.Opposite()) }

// crosses reports whether a taker limit allows trading at the level's price.
func crosses(taker *Order, best *level) bool {
	if taker.Type != OrderTypeLimit {
		return true
	}
	if taker.Side == SideBuy {
		return best.price <= taker.Price+market.PriceTolerance
	}
	return best.price >= taker.Price-market.PriceTolerance
}

// match consumes from the opposite side. It mutates resting makers and the
// taker's remaining amount.
func (b *Book) match(taker *Order) []Trade {
	var trades []Trade
	opp := b.opposite(taker.Side)

	for taker.Amount > 0 {
		best := opp.bestLevel()
		if best == nil || !crosses(taker, best) {
			break
		}

		maker := best.head
		traded := min(taker.Amount, maker.order.Amount)

		tr := Trade{
			Instrument: b.instrument,
			Price:      maker.order.Price,
			Amount:     traded,
			Timestamp:  b.now(),
			TakerSide:  taker.Side,
		}
		if taker.Side == SideBuy {
			tr.BuyOrderID, tr.SellOrderID = taker.ID, maker.order.ID
		} else {
			tr.BuyOrderID, tr.SellOrderID = maker.order.ID, taker.ID
		}

		taker.Amount -= traded
		opp.reduce(best, traded)

		b.trades = append(b.trades, tr)
		b.lastPrice, b.hasLast = tr.Price, true
		trades = append(trades, tr)
	}
	return trades
}

// rest queues a limit residual at the back of its price level.
func (b *Book) rest(o Order) {
	b.seq++
	node := &restingOrder{order: o, seq: b.seq}
	b.sideFor(o.Side).add(priceTicks(b.instrument.Ticks(o.Price)), node)
}
