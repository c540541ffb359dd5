// Package metrics exposes Prometheus instruments for the order book.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/zappabad/lobsim/internal/orderbook/core"
	"github.com/zappabad/lobsim/internal/orderbook/view"
)

const namespace = "lobsim"

// Metrics implements service.Recorder on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	ordersSubmitted *prometheus.CounterVec
	ordersRejected  *prometheus.CounterVec
	tradesExecuted  prometheus.Counter
	tradedVolume    prometheus.Counter
	bookDepth       *prometheus.GaugeVec
	bookLevels      *prometheus.GaugeVec
	midprice        prometheus.Gauge
	matchingLatency prometheus.Histogram
}

// New creates and registers every instrument.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		ordersSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_submitted_total",
			Help:      "Orders submitted to the book",
		}, []string{"side", "type"}),

		ordersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_rejected_total",
			Help:      "Orders the book refused, by reason",
		}, []string{"reason"}),

		tradesExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_executed_total",
			Help:      "Trades executed",
		}),

		tradedVolume: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "traded_volume_total",
			Help:      "Summed trade amount",
		}),

		bookDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "book_depth",
			Help:      "Resting amount by side",
		}, []string{"side"}),

		bookLevels: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "book_levels",
			Help:      "Resting orders by side",
		}, []string{"side"}),

		midprice: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "midprice",
			Help:      "Current midprice, 0 when undefined",
		}),

		matchingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "matching_latency_seconds",
			Help:      "Time spent matching one order",
			Buckets:   prometheus.ExponentialBuckets(1e-7, 4, 10),
		}),
	}

	m.registry.MustRegister(
		m.ordersSubmitted,
		m.ordersRejected,
		m.tradesExecuted,
		m.tradedVolume,
		m.bookDepth,
		m.bookLevels,
		m.midprice,
		m.matchingLatency,
	)
	return m
}

// Registry returns the registry holding every instrument.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func rejectReason(err error) string {
	switch {
	case errors.Is(err, core.ErrInstrumentMismatch):
		return "instrument"
	case errors.Is(err, core.ErrInvalidPrice):
		return "price"
	default:
		return "invalid"
	}
}

// ObserveSubmit records one processed order.
func (m *Metrics) ObserveSubmit(o core.Order, r core.Report, err error, latency time.Duration) {
	m.ordersSubmitted.WithLabelValues(o.Side.String(), o.Type.String()).Inc()
	m.matchingLatency.Observe(latency.Seconds())

	if err != nil {
		m.ordersRejected.WithLabelValues(rejectReason(err)).Inc()
		return
	}
	if r.Outcome == core.OutcomeRejected {
		m.ordersRejected.WithLabelValues("liquidity").Inc()
	}
	m.tradesExecuted.Add(float64(len(r.Trades)))
	m.tradedVolume.Add(float64(r.Filled))
}

// ObserveBook records book gauges from a snapshot.
func (m *Metrics) ObserveBook(s view.Snapshot) {
	m.bookDepth.WithLabelValues(core.SideBuy.String()).Set(float64(s.BidLiquidity))
	m.bookDepth.WithLabelValues(core.SideSell.String()).Set(float64(s.AskLiquidity))
	m.bookLevels.WithLabelValues(core.SideBuy.String()).Set(float64(s.BidOrderCount))
	m.bookLevels.WithLabelValues(core.SideSell.String()).Set(float64(s.AskOrderCount))
	if s.HasMid {
		m.midprice.Set(s.Midprice)
	} else {
		m.midprice.Set(0)
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes Handler on addr at /metrics until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, log *zap.SugaredLogger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Infow("metrics endpoint listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
