package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zappabad/lobsim/internal/generator"
	"github.com/zappabad/lobsim/internal/orderbook/core"
)

// unset clears keys for the test and restores them afterwards, so values
// loaded from a .env file do not leak into other tests.
func unset(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func writeEnv(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := LoadFromEnv(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, int64(100), cfg.Generator.MaxAmount)
	assert.Equal(t, 0.01, cfg.Instrument.TickSize)
}

func TestEnvFileAndOverrides(t *testing.T) {
	unset(t, "ARRIVALS_RATE", "MAX_AMOUNT", "STATIC_ORDER_TYPE", "INSTRUMENT_CODE")
	path := writeEnv(t, "ARRIVALS_RATE=4.5\nMAX_AMOUNT=20\nSTATIC_ORDER_TYPE=market\nINSTRUMENT_CODE=FILE\n")

	t.Setenv("INSTRUMENT_CODE", "ENV")
	t.Setenv("SIM_ORDERS", "42")
	t.Setenv("STORE_PATH", "/tmp/trades")

	cfg, err := LoadFromEnv(path)
	require.NoError(t, err)

	assert.Equal(t, "ENV", cfg.Instrument.Code, "environment beats .env")
	assert.Equal(t, 4.5, cfg.Generator.ArrivalsRate)
	assert.Equal(t, int64(20), cfg.Generator.MaxAmount)
	require.NotNil(t, cfg.Generator.StaticOrderType)
	assert.Equal(t, core.OrderTypeMarket, *cfg.Generator.StaticOrderType)
	assert.Equal(t, 42, cfg.Simulation.Orders)
	assert.Equal(t, "/tmp/trades", cfg.Store.Path)
}

func TestParseErrorsAreReported(t *testing.T) {
	t.Setenv("TICK_SIZE", "abc")
	t.Setenv("SEED", "1.5")
	t.Setenv("STATIC_ORDER_TYPE", "stop")

	_, err := LoadFromEnv(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	for _, key := range []string{"TICK_SIZE", "SEED", "STATIC_ORDER_TYPE"} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestInvalidGeneratorConfig(t *testing.T) {
	t.Setenv("BUY_RATIO", "1.2")

	_, err := LoadFromEnv(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorIs(t, err, generator.ErrInvalidConfig)
}
