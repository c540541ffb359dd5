// Package app assembles the simulator from a config.Config and manages the
// lifecycle of its parts.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/zappabad/lobsim/internal/config"
	"github.com/zappabad/lobsim/internal/generator"
	"github.com/zappabad/lobsim/internal/market"
	"github.com/zappabad/lobsim/internal/metrics"
	"github.com/zappabad/lobsim/internal/orderbook/core"
	"github.com/zappabad/lobsim/internal/orderbook/service"
	"github.com/zappabad/lobsim/internal/simulation"
	"github.com/zappabad/lobsim/internal/store"
)

// ManualCounterparty places orders entered by hand. It sits outside the
// generator's counterparty range.
const ManualCounterparty core.CounterpartyID = 1

// App owns the book service, the generator driving it and the optional
// trade store and metrics.
type App struct {
	Instrument *market.Instrument
	Clock      *simulation.Clock
	IDs        *core.IDSequence
	Service    *service.Service
	Generator  *generator.Generator
	Simulation *simulation.Simulation
	Metrics    *metrics.Metrics
	Store      *store.TradeStore // nil when persistence is off

	cfg config.Config
	log *zap.SugaredLogger

	mu     sync.Mutex
	closed bool
}

// New wires every subsystem. The caller must Close the App.
func New(cfg config.Config, log *zap.SugaredLogger) (*App, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	inst, err := market.NewInstrument(cfg.Instrument.Code, cfg.Instrument.Name, true, cfg.Instrument.TickSize)
	if err != nil {
		return nil, fmt.Errorf("instrument: %w", err)
	}

	a := &App{
		Instrument: inst,
		Clock:      simulation.NewClock(cfg.Simulation.StartTime),
		IDs:        core.NewIDSequence(0),
		Metrics:    metrics.New(),
		cfg:        cfg,
		log:        log,
	}

	a.Service = service.NewService(inst, cfg.Service,
		service.WithLogger(log.Named("book")),
		service.WithRecorder(a.Metrics),
		service.WithBookOptions(core.WithClock(a.Clock.Now)),
	)

	a.Generator, err = generator.New(inst, cfg.Generator,
		generator.Anchored(a.Service, cfg.InitialMidprice),
		generator.WithIDs(a.IDs),
	)
	if err != nil {
		a.Service.Close()
		return nil, fmt.Errorf("generator: %w", err)
	}

	simOpts := []simulation.Option{
		simulation.WithLogger(log.Named("sim")),
		simulation.WithClock(a.Clock),
	}
	if cfg.Store.Path != "" {
		a.Store, err = store.OpenTradeStore(cfg.Store.Path)
		if err != nil {
			a.Service.Close()
			return nil, fmt.Errorf("trade store: %w", err)
		}
		log.Infow("trade store opened", "path", cfg.Store.Path, "trades", a.Store.Count())
		simOpts = append(simOpts, simulation.WithTradeSink(a.Store))
	}
	a.Simulation = simulation.New(cfg.Simulation, a.Generator, a.Service, simOpts...)

	return a, nil
}

// Run serves metrics when configured and runs the simulation to completion.
func (a *App) Run(ctx context.Context) (simulation.Result, error) {
	if addr := a.cfg.Metrics.Addr; addr != "" {
		metricsCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := a.Metrics.Serve(metricsCtx, addr, a.log.Named("metrics")); err != nil {
				a.log.Errorw("metrics server failed", "addr", addr, "error", err)
			}
		}()
	}
	return a.Simulation.Run(ctx)
}

// Close shuts down all subsystems in reverse dependency order.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true

	a.Service.Close()

	var errs []error
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close trade store: %w", err))
		}
	}
	return errors.Join(errs...)
}
