package generator

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zappabad/lobsim/internal/market"
	"github.com/zappabad/lobsim/internal/orderbook/core"
)

var (
	inst  = &market.Instrument{Code: "FOO", Name: "Foo", IsActive: true, MinTickSize: 0.01}
	start = time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
)

type fixedMid struct {
	price float64
	ok    bool
}

func (m fixedMid) Midprice() (float64, bool) { return m.price, m.ok }

func staticConfig() Config {
	cfg := DefaultConfig()
	cfg.StaticMidprice = 100
	return cfg
}

func TestConfigValidate(t *testing.T) {
	limitType := core.OrderTypeLimit
	badType := core.OrderType(7)

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"static limit type", func(c *Config) { c.StaticOrderType = &limitType }, true},
		{"zero rate", func(c *Config) { c.ArrivalsRate = 0 }, false},
		{"buy ratio above one", func(c *Config) { c.BuyRatio = 1.5 }, false},
		{"negative limit ratio", func(c *Config) { c.LimitOrderRatio = -0.1 }, false},
		{"negative min consideration", func(c *Config) { c.MinConsideration = -1 }, false},
		{"zero max amount", func(c *Config) { c.MaxAmount = 0 }, false},
		{"negative halfspread", func(c *Config) { c.MaxHalfspread = -1 }, false},
		{"negative hazard", func(c *Config) { c.HazardRate = -1 }, false},
		{"empty counterparty range", func(c *Config) { c.CounterpartyMin = 5; c.CounterpartyMax = 4 }, false},
		{"full int64 counterparty range", func(c *Config) { c.CounterpartyMin = math.MinInt64; c.CounterpartyMax = math.MaxInt64 }, false},
		{"counterparty range too wide", func(c *Config) { c.CounterpartyMin = 0; c.CounterpartyMax = math.MaxInt64 }, false},
		{"widest counterparty range", func(c *Config) { c.CounterpartyMin = 1; c.CounterpartyMax = math.MaxInt64 }, true},
		{"unknown static type", func(c *Config) { c.StaticOrderType = &badType }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}

func TestWideCounterpartyRange(t *testing.T) {
	cfg := staticConfig()
	cfg.CounterpartyMin = -1 << 61
	cfg.CounterpartyMax = 1 << 61
	g, err := New(inst, cfg, nil)
	require.NoError(t, err)

	orders, err := g.GenerateOrders(start, 200)
	require.NoError(t, err)
	for _, o := range orders {
		assert.GreaterOrEqual(t, o.CounterpartyID, cfg.CounterpartyMin)
		assert.LessOrEqual(t, o.CounterpartyID, cfg.CounterpartyMax)
	}
}

func TestInterarrivalMean(t *testing.T) {
	cfg := staticConfig()
	cfg.ArrivalsRate = 2.0
	g, err := New(inst, cfg, nil)
	require.NoError(t, err)

	orders, err := g.GenerateOrders(start, 1000)
	require.NoError(t, err)
	require.Len(t, orders, 1000)

	prev := start
	for _, o := range orders {
		require.False(t, o.Timestamp.Before(prev), "timestamps are non-decreasing")
		prev = o.Timestamp
	}

	mean := prev.Sub(start).Seconds() / 1000
	// Exp(2) has sd 0.5, so the mean of 1000 draws has sd ~0.016.
	assert.InDelta(t, 0.5, mean, 0.08)
}

func TestGeneratedOrdersAreValid(t *testing.T) {
	cfg := staticConfig()
	g, err := New(inst, cfg, nil)
	require.NoError(t, err)

	orders, err := g.GenerateOrders(start, 2000)
	require.NoError(t, err)

	seen := map[core.OrderID]bool{}
	var buys, limits int
	for _, o := range orders {
		require.False(t, seen[o.ID], "ids are unique")
		seen[o.ID] = true

		require.GreaterOrEqual(t, o.Amount, int64(1))
		require.LessOrEqual(t, o.Amount, cfg.MaxAmount)
		require.GreaterOrEqual(t, o.CounterpartyID, core.CounterpartyID(1000))
		require.LessOrEqual(t, o.CounterpartyID, core.CounterpartyID(1010))
		require.True(t, o.CancelAt.IsZero(), "no hazard rate, no cancellation time")
		require.Same(t, inst, o.Instrument)

		if o.Side == core.SideBuy {
			buys++
		}
		if o.Type != core.OrderTypeLimit {
			continue
		}
		limits++
		require.True(t, inst.IsTickAligned(o.Price), "price %v is on the tick grid", o.Price)

		bound := cfg.MaxHalfspread*float64(o.Amount)/float64(cfg.MaxAmount) + inst.MinTickSize
		if o.Side == core.SideBuy {
			require.LessOrEqual(t, o.Price, 100+market.PriceTolerance, "bids rest at or below mid")
			require.GreaterOrEqual(t, o.Price, 100-bound)
		} else {
			require.GreaterOrEqual(t, o.Price, 100-market.PriceTolerance, "asks rest at or above mid")
			require.LessOrEqual(t, o.Price, 100+bound)
		}
	}

	assert.InDelta(t, 0.5, float64(buys)/2000, 0.05)
	assert.InDelta(t, 0.8, float64(limits)/2000, 0.05)
}

func TestSeedIsDeterministic(t *testing.T) {
	a, err := New(inst, staticConfig(), nil)
	require.NoError(t, err)
	b, err := New(inst, staticConfig(), nil)
	require.NoError(t, err)

	oa, err := a.GenerateOrders(start, 50)
	require.NoError(t, err)
	ob, err := b.GenerateOrders(start, 50)
	require.NoError(t, err)
	assert.Equal(t, oa, ob)

	other := staticConfig()
	other.Seed = 99
	c, err := New(inst, other, nil)
	require.NoError(t, err)
	oc, err := c.GenerateOrders(start, 50)
	require.NoError(t, err)
	assert.NotEqual(t, oa, oc)
}

func TestStaticOrderType(t *testing.T) {
	marketType := core.OrderTypeMarket
	cfg := DefaultConfig()
	cfg.StaticOrderType = &marketType

	// Market orders need no midprice.
	g, err := New(inst, cfg, nil)
	require.NoError(t, err)
	orders, err := g.GenerateOrders(start, 100)
	require.NoError(t, err)
	for _, o := range orders {
		assert.Equal(t, core.OrderTypeMarket, o.Type)
		assert.False(t, o.HasPrice())
	}
}

func TestLiveMidprice(t *testing.T) {
	limitType := core.OrderTypeLimit
	cfg := DefaultConfig()
	cfg.StaticOrderType = &limitType

	g, err := New(inst, cfg, fixedMid{price: 50, ok: true})
	require.NoError(t, err)
	o, err := g.GenerateOrder(start)
	require.NoError(t, err)
	assert.InDelta(t, 50, o.Price, cfg.MaxHalfspread+inst.MinTickSize)

	g, err = New(inst, cfg, fixedMid{})
	require.NoError(t, err)
	_, err = g.GenerateOrder(start)
	assert.ErrorIs(t, err, ErrNoMidprice)

	g, err = New(inst, cfg, nil)
	require.NoError(t, err)
	orders, err := g.GenerateOrders(start, 3)
	assert.ErrorIs(t, err, ErrNoMidprice)
	assert.Empty(t, orders)
}

func TestHazardRateStampsCancelAt(t *testing.T) {
	cfg := staticConfig()
	cfg.HazardRate = 0.1
	g, err := New(inst, cfg, nil)
	require.NoError(t, err)

	orders, err := g.GenerateOrders(start, 200)
	require.NoError(t, err)
	for _, o := range orders {
		require.False(t, o.CancelAt.IsZero())
		require.False(t, o.CancelAt.Before(o.Timestamp))
	}
}

func TestOptions(t *testing.T) {
	ids := core.NewIDSequence(41)
	g, err := New(inst, staticConfig(), nil, WithIDs(ids), WithRand(rand.New(rand.NewSource(7))))
	require.NoError(t, err)

	o, err := g.GenerateOrder(start)
	require.NoError(t, err)
	assert.Equal(t, core.OrderID(42), o.ID)
	assert.Equal(t, core.OrderID(43), ids.Next(), "sequence is shared")
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New(nil, DefaultConfig(), nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg := DefaultConfig()
	cfg.ArrivalsRate = -1
	_, err = New(inst, cfg, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestAnchoredMidprice(t *testing.T) {
	mid, ok := Anchored(fixedMid{}, 100).Midprice()
	require.True(t, ok)
	assert.Equal(t, 100.0, mid)

	mid, ok = Anchored(fixedMid{price: 101.5, ok: true}, 100).Midprice()
	require.True(t, ok)
	assert.Equal(t, 101.5, mid)

	_, ok = Anchored(nil, 0).Midprice()
	assert.False(t, ok)
}
