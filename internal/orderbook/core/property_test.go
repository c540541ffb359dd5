package core

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zappabad/lobsim/internal/market"
)

func randomOrder(rng *rand.Rand, id OrderID) Order {
	side := SideBuy
	if rng.Intn(2) == 1 {
		side = SideSell
	}
	amount := int64(1 + rng.Intn(20))
	if rng.Float64() < 0.3 {
		return marketOrder(id, side, amount)
	}
	ticks := 9950 + rng.Intn(100) // 99.50 .. 100.49
	return limit(id, side, float64(ticks)*testInstrument.MinTickSize, amount)
}

func requireSorted(t *testing.T, b *Book) {
	t.Helper()

	bids := b.Orders(SideBuy, 0)
	for i := 1; i < len(bids); i++ {
		prev, cur := bids[i-1], bids[i]
		require.GreaterOrEqual(t, prev.Price, cur.Price-market.PriceTolerance, "bids descending")
		if b.instrument.Ticks(prev.Price) == b.instrument.Ticks(cur.Price) {
			require.Less(t, prev.Seq, cur.Seq, "bids FIFO at equal price")
		}
	}

	asks := b.Orders(SideSell, 0)
	for i := 1; i < len(asks); i++ {
		prev, cur := asks[i-1], asks[i]
		require.LessOrEqual(t, prev.Price, cur.Price+market.PriceTolerance, "asks ascending")
		if b.instrument.Ticks(prev.Price) == b.instrument.Ticks(cur.Price) {
			require.Less(t, prev.Seq, cur.Seq, "asks FIFO at equal price")
		}
	}

	for _, o := range append(bids, asks...) {
		require.Positive(t, o.Amount, "resting orders are never empty")
	}

	for _, side := range []Side{SideBuy, SideSell} {
		all := b.Levels(side, 0)
		for _, n := range []int{1, 3, 7} {
			want := all[:min(n, len(all))]
			require.Equal(t, want, b.Levels(side, n), "top %d %s levels", n, side)

			count := 0
			for _, l := range want {
				count += l.Orders
			}
			require.Equal(t, b.Orders(side, 0)[:count], b.Orders(side, n), "top %d %s orders", n, side)
		}
	}

	if bid, ok := b.BestBid(); ok {
		ask, ok := b.BestAsk()
		if ok {
			require.Less(t, bid, ask, "book is never crossed")
		}
	}
}

func TestRandomSequencesKeepInvariants(t *testing.T) {
	for seed := int64(1); seed <= 25; seed++ {
		rng := rand.New(rand.NewSource(seed))
		b := newTestBook()

		for i := 1; i <= 400; i++ {
			o := randomOrder(rng, OrderID(i))

			resting := map[OrderID]int64{}
			for _, side := range []Side{SideBuy, SideSell} {
				for _, r := range b.Orders(side, 0) {
					resting[r.ID] = r.Amount
				}
			}
			opposing := b.Liquidity(o.Side.Opposite())
			beforeTrades := b.TradeCount()

			report, err := b.Submit(o)
			require.NoError(t, err)

			var filled int64
			for _, tr := range report.Trades {
				require.Positive(t, tr.Amount)
				maker := tr.SellOrderID
				if o.Side == SideSell {
					maker = tr.BuyOrderID
				}
				require.Contains(t, resting, maker)
				require.LessOrEqual(t, tr.Amount, resting[maker], "trade never exceeds maker amount")
				require.LessOrEqual(t, tr.Amount, o.Amount, "trade never exceeds taker amount")

				if o.Type == OrderTypeLimit {
					if o.Side == SideBuy {
						require.LessOrEqual(t, tr.Price, o.Price+market.PriceTolerance)
					} else {
						require.GreaterOrEqual(t, tr.Price, o.Price-market.PriceTolerance)
					}
				}
				filled += tr.Amount
			}
			require.LessOrEqual(t, filled, o.Amount)
			require.Equal(t, beforeTrades+len(report.Trades), b.TradeCount())

			if o.Type == OrderTypeMarket {
				if opposing >= o.Amount {
					require.Equal(t, o.Amount, filled, "market orders fill in full")
					require.Equal(t, OutcomeFilled, report.Outcome)
				} else {
					require.Zero(t, filled, "market orders never fill partially")
					require.Equal(t, OutcomeRejected, report.Outcome)
					require.Equal(t, opposing, b.Liquidity(o.Side.Opposite()))
				}
			}

			requireSorted(t, b)
		}
	}
}
