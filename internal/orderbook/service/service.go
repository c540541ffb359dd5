package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/zappabad/lobsim/internal/market"
	"github.com/zappabad/lobsim/internal/orderbook/core"
	"github.com/zappabad/lobsim/internal/orderbook/view"
)

// ErrClosed is returned by Submit once the service has been closed.
var ErrClosed = errors.New("orderbook service closed")

// Recorder receives one call per processed order, on the writer goroutine.
type Recorder interface {
	ObserveSubmit(o core.Order, r core.Report, err error, latency time.Duration)
	ObserveBook(s view.Snapshot)
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Nil keeps the no-op logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithRecorder attaches a Recorder, typically a metrics sink.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.rec = r }
}

// WithBookOptions passes options through to the owned core.Book.
func WithBookOptions(opts ...core.Option) Option {
	return func(s *Service) { s.bookOpts = append(s.bookOpts, opts...) }
}

type command struct {
	order  core.Order
	respCh chan<- response
}

type response struct {
	report core.Report
	err    error
}

// Service owns a core.Book and serializes every submission through a single
// writer goroutine. Reads are served from a published view.
type Service struct {
	cfg      Config
	book     *core.Book
	bookOpts []core.Option
	view     *view.BookView
	log      *zap.SugaredLogger
	rec      Recorder

	cmdCh  chan command
	trades chan core.Trade

	droppedTrades atomic.Int64

	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewService creates a Service for inst and starts its writer goroutine.
func NewService(inst *market.Instrument, cfg Config, opts ...Option) *Service {
	cfg = cfg.withDefaults()

	s := &Service{
		cfg:    cfg,
		log:    zap.NewNop().Sugar(),
		cmdCh:  make(chan command, cfg.CommandBuffer),
		trades: make(chan core.Trade, cfg.TradeBuffer),
		closed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.book = core.NewBook(inst, s.bookOpts...)
	s.view = view.NewBookView(inst, cfg.TradeTapeSize)

	s.wg.Add(1)
	go s.run()

	return s
}

func (s *Service) run() {
	defer s.wg.Done()
	defer close(s.trades)

	for {
		select {
		case <-s.closed:
			return
		case cmd := <-s.cmdCh:
			s.process(cmd)
		}
	}
}

func (s *Service) process(cmd command) {
	start := time.Now()
	report, err := s.book.Submit(cmd.order)
	latency := time.Since(start)

	if err != nil {
		s.log.Debugw("order rejected by validation", "order_id", cmd.order.ID, "error", err)
	} else if report.Outcome == core.OutcomeRejected {
		s.log.Debugw("market order rejected", "order_id", cmd.order.ID, "side", cmd.order.Side, "amount", cmd.order.Amount)
	}

	// Publish before responding so the submitter observes its own effect.
	snap := view.Capture(s.book, s.cfg.SnapshotLevels)
	s.view.Publish(snap, report.Trades)
	if s.rec != nil {
		s.rec.ObserveSubmit(cmd.order, report, err, latency)
		s.rec.ObserveBook(snap)
	}

	for _, tr := range report.Trades {
		s.emitTrade(tr)
	}

	cmd.respCh <- response{report: report, err: err}
}

func (s *Service) emitTrade(tr core.Trade) {
	if s.cfg.DropExternalTrades {
		select {
		case s.trades <- tr:
		default:
			s.droppedTrades.Add(1)
		}
		return
	}
	select {
	case s.trades <- tr:
	case <-s.closed:
	}
}

// Submit hands o to the book and waits for the report. The order is copied;
// the caller keeps its own value unchanged.
func (s *Service) Submit(ctx context.Context, o core.Order) (core.Report, error) {
	respCh := make(chan response, 1)
	cmd := command{order: o, respCh: respCh}

	select {
	case <-s.closed:
		return core.Report{}, ErrClosed
	case <-ctx.Done():
		return core.Report{}, ctx.Err()
	case s.cmdCh <- cmd:
	}

	select {
	case <-s.closed:
		return core.Report{}, ErrClosed
	case <-ctx.Done():
		return core.Report{}, ctx.Err()
	case resp := <-respCh:
		return resp.report, resp.err
	}
}

// Instrument returns the instrument the service trades.
func (s *Service) Instrument() *market.Instrument { return s.book.Instrument() }

// Midprice returns the midprice as of the last processed order.
func (s *Service) Midprice() (float64, bool) { return s.view.Midprice() }

// Snapshot returns the last published book snapshot.
func (s *Service) Snapshot() view.Snapshot { return s.view.Snapshot() }

// TradesLast returns the last n trades from the tape.
func (s *Service) TradesLast(n int) []core.Trade { return s.view.TradesLast(n) }

// Trades returns the external trades channel. It is closed by Close.
func (s *Service) Trades() <-chan core.Trade { return s.trades }

// DroppedTrades returns how many trades the external channel dropped.
func (s *Service) DroppedTrades() int64 { return s.droppedTrades.Load() }

// Close shuts down the service and waits for the writer to finish.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
	s.wg.Wait()
}
