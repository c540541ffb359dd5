package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zappabad/lobsim/internal/market"
	"github.com/zappabad/lobsim/internal/orderbook/core"
)

var inst = &market.Instrument{Code: "FOO", Name: "Foo", IsActive: true, MinTickSize: 0.01}

func trade(buy, sell core.OrderID, amount int64) core.Trade {
	return core.Trade{
		BuyOrderID:  buy,
		SellOrderID: sell,
		Instrument:  inst,
		Price:       100.25,
		Amount:      amount,
		Timestamp:   time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC),
		TakerSide:   core.SideBuy,
	}
}

func TestAppendAndReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := OpenTradeStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Append(nil))
	require.NoError(t, s.Append([]core.Trade{trade(2, 1, 3), trade(2, 4, 1)}))
	assert.Equal(t, uint64(2), s.Count())
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.All()
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Append([]core.Trade{trade(1, 1, 1)}), ErrClosed)

	s, err = OpenTradeStore(dir)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, uint64(2), s.Count(), "sequence survives reopen")

	require.NoError(t, s.Append([]core.Trade{trade(5, 6, 7)}))

	got, err := s.All()
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, core.OrderID(4), got[1].SellOrderID)
	assert.Equal(t, int64(7), got[2].Amount)
	assert.True(t, inst.Equal(got[0].Instrument))
	assert.True(t, got[0].Timestamp.Equal(trade(0, 0, 0).Timestamp))
	assert.Equal(t, core.SideBuy, got[0].TakerSide)
}

func TestKeysSortBySequence(t *testing.T) {
	assert.Less(t, string(tradeKey(255)), string(tradeKey(256)))
	assert.Equal(t, []byte("t;"), keyUpperBound(tradePrefix))
}
