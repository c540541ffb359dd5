// Package simulation drives a generator against an exchange and keeps
// running statistics of the outcome.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zappabad/lobsim/internal/orderbook/core"
)

// OrderSource produces the next order after prev.
type OrderSource interface {
	GenerateOrder(prev time.Time) (core.Order, error)
}

// Exchange accepts orders, usually a service.Service.
type Exchange interface {
	Submit(ctx context.Context, o core.Order) (core.Report, error)
}

// TradeSink persists trades, usually a store.TradeStore.
type TradeSink interface {
	Append(trades []core.Trade) error
}

// Observer is told about every submitted order.
type Observer interface {
	OnOrder(o core.Order, r core.Report, err error)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(o core.Order, r core.Report, err error)

func (f ObserverFunc) OnOrder(o core.Order, r core.Report, err error) { f(o, r, err) }

// Clock is a settable clock holding the current simulated time. Pass its
// Now method to core.WithClock to stamp trades in simulated time.
type Clock struct {
	mu  sync.RWMutex
	now time.Time
}

// NewClock returns a Clock set to t.
func NewClock(t time.Time) *Clock { return &Clock{now: t} }

// Now returns the current simulated time.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithLogger sets the logger. Nil keeps the no-op logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Simulation) {
		if l != nil {
			s.log = l
		}
	}
}

// WithTradeSink persists every trade batch.
func WithTradeSink(sink TradeSink) Option {
	return func(s *Simulation) { s.sink = sink }
}

// WithObserver adds an observer.
func WithObserver(obs Observer) Option {
	return func(s *Simulation) { s.observers = append(s.observers, obs) }
}

// WithClock advances c to each order's timestamp before submission.
func WithClock(c *Clock) Option {
	return func(s *Simulation) { s.clock = c }
}

// Simulation feeds generated orders to an exchange one at a time.
type Simulation struct {
	cfg       Config
	src       OrderSource
	ex        Exchange
	sink      TradeSink
	observers []Observer
	clock     *Clock
	log       *zap.SugaredLogger

	mu     sync.Mutex
	result Result
}

// New creates a Simulation.
func New(cfg Config, src OrderSource, ex Exchange, opts ...Option) *Simulation {
	s := &Simulation{
		cfg: cfg,
		src: src,
		ex:  ex,
		log: zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func isValidation(err error) bool {
	return errors.Is(err, core.ErrInvalidPrice) ||
		errors.Is(err, core.ErrInvalidOrder) ||
		errors.Is(err, core.ErrInstrumentMismatch)
}

// Run generates and submits orders until cfg.Orders is reached or ctx is
// done. Validation errors are counted and logged. Generator, exchange and
// sink failures end the run. The returned Result is valid even on error.
func (s *Simulation) Run(ctx context.Context) (Result, error) {
	prev := s.cfg.StartTime
	s.log.Infow("simulation started", "orders", s.cfg.Orders, "speed", s.cfg.Speed, "start", prev)

	for i := 0; s.cfg.Orders <= 0 || i < s.cfg.Orders; i++ {
		if err := ctx.Err(); err != nil {
			return s.Stats(), err
		}

		o, err := s.src.GenerateOrder(prev)
		if err != nil {
			return s.Stats(), fmt.Errorf("generate order %d: %w", i, err)
		}

		if err := s.wait(ctx, o.Timestamp.Sub(prev)); err != nil {
			return s.Stats(), err
		}
		prev = o.Timestamp
		if s.clock != nil {
			s.clock.Set(o.Timestamp)
		}

		rep, err := s.ex.Submit(ctx, o)
		if err != nil && !isValidation(err) {
			return s.Stats(), fmt.Errorf("submit order %d: %w", o.ID, err)
		}
		if err != nil {
			s.log.Warnw("order refused", "order_id", o.ID, "error", err)
		}

		s.mu.Lock()
		s.result.record(o, rep, err)
		s.mu.Unlock()

		for _, obs := range s.observers {
			obs.OnOrder(o, rep, err)
		}

		if s.sink != nil && len(rep.Trades) > 0 {
			if err := s.sink.Append(rep.Trades); err != nil {
				return s.Stats(), fmt.Errorf("persist trades: %w", err)
			}
		}

		if s.cfg.LogEvery > 0 && (i+1)%s.cfg.LogEvery == 0 {
			st := s.Stats()
			s.log.Infow("simulation progress",
				"orders", st.Orders,
				"trades", st.Trades,
				"volume", st.Volume,
				"rejected", st.Rejected,
				"sim_time", o.Timestamp,
			)
		}
	}

	st := s.Stats()
	s.log.Infow("simulation finished", "orders", st.Orders, "trades", st.Trades, "volume", st.Volume, "elapsed", st.Elapsed())
	return st, nil
}

// wait sleeps d scaled by Speed. Speed 0 never sleeps.
func (s *Simulation) wait(ctx context.Context, d time.Duration) error {
	if s.cfg.Speed <= 0 || d <= 0 {
		return nil
	}
	timer := time.NewTimer(time.Duration(float64(d) / s.cfg.Speed))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Stats returns a copy of the running result. Safe to call during Run.
func (s *Simulation) Stats() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}
