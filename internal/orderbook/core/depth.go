package core

// BestBid returns the highest resting bid price.
func (b *Book) BestBid() (float64, bool) { return best(b.bids) }

// BestAsk returns the lowest resting ask price.
func (b *Book) BestAsk() (float64, bool) { return best(b.asks) }

func best(bs *bookSide) (float64, bool) {
	l := bs.bestLevel()
	if l == nil {
		return 0, false
	}
	return l.price, true
}

// Midprice returns the average of best bid and best ask. With one side empty
// it falls back to the other side's best price, then to the last trade price.
func (b *Book) Midprice() (float64, bool) {
	bid, hasBid := b.BestBid()
	ask, hasAsk := b.BestAsk()
	switch {
	case hasBid && hasAsk:
		return (bid + ask) / 2, true
	case hasBid:
		return bid, true
	case hasAsk:
		return ask, true
	case b.hasLast:
		return b.lastPrice, true
	default:
		return 0, false
	}
}

// LastPrice returns the price of the most recent trade.
func (b *Book) LastPrice() (float64, bool) { return b.lastPrice, b.hasLast }

// Liquidity returns the total resting amount on a side.
func (b *Book) Liquidity(side Side) int64 { return b.sideFor(side).totalAmount }

// OrderCount returns the number of resting orders on a side.
func (b *Book) OrderCount(side Side) int { return b.sideFor(side).orders }

// Levels returns aggregate amount per price, best price first.
// maxLevels <= 0 returns every level.
func (b *Book) Levels(side Side, maxLevels int) []Level {
	levels := b.sideFor(side).topLevels(maxLevels)
	out := make([]Level, 0, len(levels))
	for _, l := range levels {
		out = append(out, Level{Price: l.price, Amount: l.totalAmount, Orders: l.count})
	}
	return out
}

// Orders returns copies of resting orders in price-time priority, limited to
// the best maxLevels price levels (<= 0 for all).
func (b *Book) Orders(side Side, maxLevels int) []RestingOrder {
	levels := b.sideFor(side).topLevels(maxLevels)
	var out []RestingOrder
	for _, l := range levels {
		for o := l.head; o != nil; o = o.next {
			out = append(out, o.snapshot())
		}
	}
	return out
}

// Trades returns a copy of every trade the book has produced, oldest first.
func (b *Book) Trades() []Trade {
	out := make([]Trade, len(b.trades))
	copy(out, b.trades)
	return out
}

// TradeCount returns the length of the trade log.
func (b *Book) TradeCount() int { return len(b.trades) }
