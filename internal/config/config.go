package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/zappabad/lobsim/internal/generator"
	"github.com/zappabad/lobsim/internal/orderbook/core"
	"github.com/zappabad/lobsim/internal/orderbook/service"
	"github.com/zappabad/lobsim/internal/simulation"
)

// Instrument describes the single traded product.
type Instrument struct {
	Code     string
	Name     string
	TickSize float64
}

// Store configures trade persistence.
type Store struct {
	// Path of the pebble trade store. Empty disables persistence.
	Path string
}

// Log configures the zap logger. File is optional.
type Log struct {
	File  string
	Level string
}

// Metrics configures the Prometheus endpoint.
type Metrics struct {
	// Addr serves /metrics when non-empty, e.g. ":9100".
	Addr string
}

// Config is the full configuration of a simulator run.
type Config struct {
	Instrument Instrument
	Generator  generator.Config
	// InitialMidprice anchors a live book until it quotes its own midprice.
	InitialMidprice float64
	Simulation      simulation.Config
	Service         service.Config
	Store           Store
	Log             Log
	Metrics         Metrics
}

// Default returns the built-in configuration that LoadFromEnv overrides.
func Default() Config {
	return Config{
		Instrument: Instrument{
			Code:     "FOO",
			Name:     "Foo Corp",
			TickSize: 0.01,
		},
		Generator:       generator.DefaultConfig(),
		InitialMidprice: 100,
		Simulation:      simulation.DefaultConfig(),
		Service:         service.DefaultConfig(),
		Log:             Log{Level: "info"},
	}
}

// env collects parse failures so every bad key is reported at once.
type env struct {
	errs []error
}

func (e *env) strVar(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func (e *env) floatVar(key string, dst *float64) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = f
}

func (e *env) int64Var(key string, dst *int64) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = n
}

func (e *env) intVar(key string, dst *int) {
	n := int64(*dst)
	e.int64Var(key, &n)
	*dst = int(n)
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) (Config, error) {
	cfg := Default()

	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("load %s: %w", envPath, err)
		}
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	e := &env{}

	e.strVar("INSTRUMENT_CODE", &cfg.Instrument.Code)
	e.strVar("INSTRUMENT_NAME", &cfg.Instrument.Name)
	e.floatVar("TICK_SIZE", &cfg.Instrument.TickSize)

	g := &cfg.Generator
	e.floatVar("ARRIVALS_RATE", &g.ArrivalsRate)
	e.floatVar("BUY_RATIO", &g.BuyRatio)
	e.floatVar("LIMIT_ORDER_RATIO", &g.LimitOrderRatio)
	e.int64Var("MIN_CONSIDERATION", &g.MinConsideration)
	e.int64Var("MAX_AMOUNT", &g.MaxAmount)
	e.floatVar("MAX_HALFSPREAD", &g.MaxHalfspread)
	e.floatVar("STATIC_MIDPRICE", &g.StaticMidprice)
	e.floatVar("HAZARD_RATE", &g.HazardRate)
	e.int64Var("SEED", &g.Seed)
	if v := strings.TrimSpace(os.Getenv("STATIC_ORDER_TYPE")); v != "" {
		t, err := core.ParseOrderType(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("STATIC_ORDER_TYPE: %w", err))
		} else {
			g.StaticOrderType = &t
		}
	}
	e.floatVar("INITIAL_MIDPRICE", &cfg.InitialMidprice)

	e.intVar("SIM_ORDERS", &cfg.Simulation.Orders)
	e.floatVar("SIM_SPEED", &cfg.Simulation.Speed)
	e.intVar("SIM_LOG_EVERY", &cfg.Simulation.LogEvery)

	e.intVar("SNAPSHOT_LEVELS", &cfg.Service.SnapshotLevels)
	e.intVar("TRADE_TAPE_SIZE", &cfg.Service.TradeTapeSize)

	e.strVar("STORE_PATH", &cfg.Store.Path)
	e.strVar("LOG_FILE", &cfg.Log.File)
	e.strVar("LOG_LEVEL", &cfg.Log.Level)
	e.strVar("METRICS_ADDR", &cfg.Metrics.Addr)

	if err := errors.Join(e.errs...); err != nil {
		return cfg, err
	}
	if err := cfg.Generator.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
