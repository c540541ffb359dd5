package view

import (
	"sync"

	"github.com/zappabad/lobsim/internal/market"
	"github.com/zappabad/lobsim/internal/orderbook/core"
)

// Snapshot is a read-only copy of book state for renderers.
// Bids and asks are best price first; orders within a level are FIFO.
type Snapshot struct {
	Instrument *market.Instrument

	Bids      []core.Level
	Asks      []core.Level
	BidOrders []core.RestingOrder
	AskOrders []core.RestingOrder

	BestBid, BestAsk, Midprice     float64
	HasBestBid, HasBestAsk, HasMid bool
	BidLiquidity, AskLiquidity     int64
	BidOrderCount, AskOrderCount   int
	TradeCount                     int
}

// Spread returns best ask minus best bid when both sides are quoted.
func (s Snapshot) Spread() (float64, bool) {
	if !s.HasBestBid || !s.HasBestAsk {
		return 0, false
	}
	return s.BestAsk - s.BestBid, true
}

// Capture copies the top maxLevels price levels of b (<= 0 for all).
func Capture(b *core.Book, maxLevels int) Snapshot {
	s := Snapshot{
		Instrument:    b.Instrument(),
		Bids:          b.Levels(core.SideBuy, maxLevels),
		Asks:          b.Levels(core.SideSell, maxLevels),
		BidOrders:     b.Orders(core.SideBuy, maxLevels),
		AskOrders:     b.Orders(core.SideSell, maxLevels),
		BidLiquidity:  b.Liquidity(core.SideBuy),
		AskLiquidity:  b.Liquidity(core.SideSell),
		BidOrderCount: b.OrderCount(core.SideBuy),
		AskOrderCount: b.OrderCount(core.SideSell),
		TradeCount:    b.TradeCount(),
	}
	s.BestBid, s.HasBestBid = b.BestBid()
	s.BestAsk, s.HasBestAsk = b.BestAsk()
	s.Midprice, s.HasMid = b.Midprice()
	return s
}

// BookView holds the latest published snapshot and a tape of recent trades.
// It is thread-safe; readers get copies.
type BookView struct {
	mu   sync.RWMutex
	snap Snapshot
	tape *TradeTape
}

// NewBookView creates a new BookView with the given trade tape capacity.
func NewBookView(inst *market.Instrument, tapeCapacity int) *BookView {
	return &BookView{
		snap: Snapshot{Instrument: inst},
		tape: NewTradeTape(tapeCapacity),
	}
}

// Publish replaces the snapshot and appends trades to the tape.
func (v *BookView) Publish(s Snapshot, trades []core.Trade) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.snap = s
	for _, tr := range trades {
		v.tape.Append(tr)
	}
}

// Snapshot returns the latest snapshot. Slices are owned by the caller.
func (v *BookView) Snapshot() Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	s := v.snap
	s.Bids = append([]core.Level(nil), s.Bids...)
	s.Asks = append([]core.Level(nil), s.Asks...)
	s.BidOrders = append([]core.RestingOrder(nil), s.BidOrders...)
	s.AskOrders = append([]core.RestingOrder(nil), s.AskOrders...)
	return s
}

// Midprice returns the midprice of the latest snapshot.
func (v *BookView) Midprice() (float64, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.snap.Midprice, v.snap.HasMid
}

// TradesLast returns the last n trades in chronological order.
func (v *BookView) TradesLast(n int) []core.Trade {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.tape.Last(n)
}
