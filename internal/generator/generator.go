// Package generator produces a Poisson stream of random orders around a
// reference midprice.
package generator

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/zappabad/lobsim/internal/market"
	"github.com/zappabad/lobsim/internal/orderbook/core"
)

// ErrNoMidprice is returned when a LIMIT price is needed and neither a
// static nor a live midprice is available.
var ErrNoMidprice = errors.New("no reference midprice")

// MidpriceSource provides the live reference price, usually the book.
type MidpriceSource interface {
	Midprice() (float64, bool)
}

// Option configures a Generator.
type Option func(*Generator)

// WithRand replaces the seeded source. Useful for sharing one stream
// between generators.
func WithRand(rng *rand.Rand) Option {
	return func(g *Generator) { g.rng = rng }
}

// WithIDs sets the order id sequence.
func WithIDs(ids *core.IDSequence) Option {
	return func(g *Generator) { g.ids = ids }
}

// Generator draws orders for one instrument. Not safe for concurrent use.
type Generator struct {
	inst *market.Instrument
	cfg  Config
	mid  MidpriceSource
	rng  *rand.Rand
	ids  *core.IDSequence
}

// New creates a Generator. mid may be nil when cfg.StaticMidprice is set
// or every order is a MARKET.
func New(inst *market.Instrument, cfg Config, mid MidpriceSource, opts ...Option) (*Generator, error) {
	if inst == nil {
		return nil, fmt.Errorf("%w: nil instrument", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	g := &Generator{
		inst: inst,
		cfg:  cfg,
		mid:  mid,
		rng:  rand.New(rand.NewSource(cfg.Seed)),
		ids:  core.NewIDSequence(0),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Config returns the generator's parameters.
func (g *Generator) Config() Config { return g.cfg }

// GenerateOrder draws the next order, timestamped one exponential
// interarrival after prev.
func (g *Generator) GenerateOrder(prev time.Time) (core.Order, error) {
	ts := prev.Add(seconds(g.rng.ExpFloat64() / g.cfg.ArrivalsRate))

	cp := g.counterparty()
	side := g.side()
	amount := g.amount()
	typ := g.orderType()

	var o core.Order
	if typ == core.OrderTypeLimit {
		price, err := g.price(side, amount)
		if err != nil {
			return core.Order{}, err
		}
		o = core.NewLimitOrder(g.ids.Next(), ts, cp, g.inst, side, amount, price)
	} else {
		o = core.NewMarketOrder(g.ids.Next(), ts, cp, g.inst, side, amount)
	}

	if g.cfg.HazardRate > 0 {
		o.CancelAt = ts.Add(seconds(g.rng.ExpFloat64() / g.cfg.HazardRate))
	}
	return o, nil
}

// GenerateOrders draws n orders starting after start. Timestamps are
// non-decreasing.
func (g *Generator) GenerateOrders(start time.Time, n int) ([]core.Order, error) {
	out := make([]core.Order, 0, max(n, 0))
	prev := start
	for i := 0; i < n; i++ {
		o, err := g.GenerateOrder(prev)
		if err != nil {
			return out, fmt.Errorf("order %d: %w", i, err)
		}
		out = append(out, o)
		prev = o.Timestamp
	}
	return out, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func (g *Generator) counterparty() core.CounterpartyID {
	span := int64(counterpartySpread(g.cfg.CounterpartyMin, g.cfg.CounterpartyMax)) + 1
	return g.cfg.CounterpartyMin + core.CounterpartyID(g.rng.Int63n(span))
}

func (g *Generator) side() core.Side {
	if g.rng.Float64() < g.cfg.BuyRatio {
		return core.SideBuy
	}
	return core.SideSell
}

func (g *Generator) orderType() core.OrderType {
	if g.cfg.StaticOrderType != nil {
		return *g.cfg.StaticOrderType
	}
	if g.rng.Float64() < g.cfg.LimitOrderRatio {
		return core.OrderTypeLimit
	}
	return core.OrderTypeMarket
}

// amount draws ceil(Exp(5/MaxAmount)) clamped to [1, MaxAmount].
func (g *Generator) amount() int64 {
	maxAmount := g.cfg.MaxAmount
	draw := g.rng.ExpFloat64() * float64(maxAmount) / 5
	a := int64(math.Ceil(draw))
	return min(max(a, 1), maxAmount)
}

// price offsets the midprice away from the spread: below for BUY, above
// for SELL. Wider offsets are allowed for larger amounts.
func (g *Generator) price(side core.Side, amount int64) (float64, error) {
	mid := g.cfg.StaticMidprice
	if mid == 0 {
		var ok bool
		if g.mid != nil {
			mid, ok = g.mid.Midprice()
		}
		if !ok {
			return 0, ErrNoMidprice
		}
	}

	spread := g.cfg.MaxHalfspread * float64(amount) / float64(g.cfg.MaxAmount)
	offset := g.rng.Float64() * spread
	if side == core.SideBuy {
		offset = -offset
	}

	price := g.inst.RoundUp(mid + offset)
	if price < g.inst.MinTickSize {
		price = g.inst.MinTickSize
	}
	return price, nil
}

type anchored struct {
	src   MidpriceSource
	price float64
}

func (a anchored) Midprice() (float64, bool) {
	if a.src != nil {
		if mid, ok := a.src.Midprice(); ok {
			return mid, true
		}
	}
	return a.price, a.price > 0
}

// Anchored returns src's midprice, or price while src has none. It lets a
// live book be bootstrapped from empty.
func Anchored(src MidpriceSource, price float64) MidpriceSource {
	return anchored{src: src, price: price}
}
