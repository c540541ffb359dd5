package view

import "github.com/zappabad/lobsim/internal/orderbook/core"

// TradeTape keeps the most recent trades in a fixed ring plus running
// aggregates over every trade it has seen.
type TradeTape struct {
	ring []core.Trade
	next int
	held int

	total    int
	volume   int64
	notional float64
}

// NewTradeTape creates a TradeTape holding at most capacity trades.
func NewTradeTape(capacity int) *TradeTape {
	if capacity <= 0 {
		capacity = 1
	}
	return &TradeTape{ring: make([]core.Trade, capacity)}
}

// Append records tr, overwriting the oldest held trade once full.
func (t *TradeTape) Append(tr core.Trade) {
	t.ring[t.next] = tr
	t.next = (t.next + 1) % len(t.ring)
	if t.held < len(t.ring) {
		t.held++
	}
	t.total++
	t.volume += tr.Amount
	t.notional += tr.Notional()
}

// Last returns copies of the last n trades, oldest first.
func (t *TradeTape) Last(n int) []core.Trade {
	if n <= 0 || t.held == 0 {
		return nil
	}
	if n > t.held {
		n = t.held
	}
	out := make([]core.Trade, n)
	first := t.next - n
	if first < 0 {
		first += len(t.ring)
	}
	for i := range out {
		out[i] = t.ring[(first+i)%len(t.ring)]
	}
	return out
}

// Count returns the number of trades held.
func (t *TradeTape) Count() int { return t.held }

// Total returns the number of trades ever appended.
func (t *TradeTape) Total() int { return t.total }

// Volume returns the summed amount of every appended trade.
func (t *TradeTape) Volume() int64 { return t.volume }

// VWAP returns the volume weighted average price over every appended trade.
func (t *TradeTape) VWAP() (float64, bool) {
	if t.volume == 0 {
		return 0, false
	}
	return t.notional / float64(t.volume), true
}
