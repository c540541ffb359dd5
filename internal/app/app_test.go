package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zappabad/lobsim/internal/config"
	"github.com/zappabad/lobsim/internal/store"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Simulation.Orders = 300
	cfg.Simulation.LogEvery = 0
	cfg.Store.Path = filepath.Join(t.TempDir(), "trades")
	return cfg
}

func TestRunPersistsTrades(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(cfg, nil)
	require.NoError(t, err)

	res, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 300, res.Orders)
	require.Positive(t, res.Trades)

	snap := a.Service.Snapshot()
	assert.Equal(t, res.Trades, snap.TradeCount)
	assert.Equal(t, uint64(res.Trades), a.Store.Count())
	assert.Equal(t, res.LastOrder, a.Clock.Now())

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	ts, err := store.OpenTradeStore(cfg.Store.Path)
	require.NoError(t, err)
	defer ts.Close()
	assert.Equal(t, uint64(res.Trades), ts.Count())
}

func TestRunRecordsMetrics(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Path = ""
	a, err := New(cfg, nil)
	require.NoError(t, err)
	defer a.Close()
	assert.Nil(t, a.Store)

	_, err = a.Run(context.Background())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	a.Metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "lobsim_orders_submitted_total")
	assert.Contains(t, rec.Body.String(), "lobsim_trades_executed_total")
}

func TestRunStopsWithContext(t *testing.T) {
	cfg := testConfig(t)
	cfg.Simulation.Orders = 0
	cfg.Simulation.Speed = 1
	a, err := New(cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = a.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Instrument.TickSize = 0
	_, err := New(cfg, nil)
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.Generator.ArrivalsRate = 0
	_, err = New(cfg, nil)
	assert.Error(t, err)
}
