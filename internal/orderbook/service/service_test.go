package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/zappabad/lobsim/internal/market"
	"github.com/zappabad/lobsim/internal/orderbook/core"
	"github.com/zappabad/lobsim/internal/orderbook/view"
)

var inst = &market.Instrument{Code: "FOO", Name: "Foo", IsActive: true, MinTickSize: 0.01}

var epoch = time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)

func limit(id core.OrderID, side core.Side, price float64, amount int64) core.Order {
	return core.NewLimitOrder(id, epoch, 1000, inst, side, amount, price)
}

func TestServiceBasic(t *testing.T) {
	svc := NewService(inst, DefaultConfig())
	defer svc.Close()

	ctx := context.Background()

	report, err := svc.Submit(ctx, limit(1, core.SideBuy, 99.5, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Remaining != 10 {
		t.Errorf("expected remaining 10, got %d", report.Remaining)
	}
	if report.Outcome != core.OutcomeRested {
		t.Errorf("expected order to rest, got %s", report.Outcome)
	}

	// The snapshot is published before Submit returns.
	snap := svc.Snapshot()
	if len(snap.Bids) != 1 {
		t.Fatalf("expected 1 level, got %d", len(snap.Bids))
	}
	if snap.Bids[0].Amount != 10 {
		t.Errorf("expected amount 10, got %d", snap.Bids[0].Amount)
	}
	if mid, ok := svc.Midprice(); !ok || mid != 99.5 {
		t.Errorf("expected midprice 99.5, got %v (ok=%v)", mid, ok)
	}
}

func TestServiceConcurrent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SnapshotLevels = 0
	svc := NewService(inst, cfg)
	defer svc.Close()

	ctx := context.Background()
	var wg sync.WaitGroup

	numOrders := 100
	wg.Add(numOrders)
	for i := 0; i < numOrders; i++ {
		go func(i int) {
			defer wg.Done()
			price := 99.0 + float64(i%10)*0.01
			if _, err := svc.Submit(ctx, limit(core.OrderID(i+1), core.SideBuy, price, 1)); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	snap := svc.Snapshot()
	if len(snap.BidOrders) != numOrders {
		t.Errorf("expected %d orders, got %d", numOrders, len(snap.BidOrders))
	}
	if len(snap.Bids) != 10 {
		t.Errorf("expected 10 levels, got %d", len(snap.Bids))
	}
}

func TestServiceTrades(t *testing.T) {
	svc := NewService(inst, DefaultConfig())
	defer svc.Close()

	ctx := context.Background()
	trades := svc.Trades()

	if _, err := svc.Submit(ctx, limit(1, core.SideSell, 100, 5)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	report, err := svc.Submit(ctx, core.NewMarketOrder(2, epoch, 1001, inst, core.SideBuy, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Outcome != core.OutcomeFilled || report.Filled != 3 {
		t.Fatalf("expected full fill of 3, got %+v", report)
	}

	select {
	case tr := <-trades:
		if tr.BuyOrderID != 2 || tr.SellOrderID != 1 || tr.Amount != 3 {
			t.Errorf("unexpected trade %+v", tr)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for trade")
	}

	if got := svc.TradesLast(10); len(got) != 1 {
		t.Errorf("expected 1 trade on the tape, got %d", len(got))
	}
}

func TestServiceValidationError(t *testing.T) {
	svc := NewService(inst, DefaultConfig())
	defer svc.Close()

	_, err := svc.Submit(context.Background(), limit(1, core.SideBuy, 100.005, 1))
	if !errors.Is(err, core.ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
	if snap := svc.Snapshot(); len(snap.Bids) != 0 {
		t.Errorf("expected empty book, got %d bid levels", len(snap.Bids))
	}
}

func TestServiceDropsTradesWhenFull(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TradeBuffer = 1
	svc := NewService(inst, cfg)
	defer svc.Close()

	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		if _, err := svc.Submit(ctx, limit(core.OrderID(i), core.SideSell, 100, 1)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if _, err := svc.Submit(ctx, core.NewMarketOrder(10, epoch, 1001, inst, core.SideBuy, 3)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := svc.DroppedTrades(); got != 2 {
		t.Errorf("expected 2 dropped trades, got %d", got)
	}
}

type countingRecorder struct {
	mu       sync.Mutex
	submits  int
	errs     int
	lastSnap view.Snapshot
}

func (r *countingRecorder) ObserveSubmit(_ core.Order, _ core.Report, err error, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submits++
	if err != nil {
		r.errs++
	}
}

func (r *countingRecorder) ObserveBook(s view.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastSnap = s
}

func TestServiceRecorder(t *testing.T) {
	rec := &countingRecorder{}
	svc := NewService(inst, DefaultConfig(), WithRecorder(rec), WithBookOptions(core.WithClock(func() time.Time { return epoch })))
	defer svc.Close()

	ctx := context.Background()
	_, _ = svc.Submit(ctx, limit(1, core.SideBuy, 100, 1))
	_, _ = svc.Submit(ctx, limit(2, core.SideBuy, -1, 1))
	_, _ = svc.Submit(ctx, limit(3, core.SideSell, 100, 1))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.submits != 3 || rec.errs != 1 {
		t.Errorf("expected 3 submits with 1 error, got %d/%d", rec.submits, rec.errs)
	}
	if rec.lastSnap.TradeCount != 1 {
		t.Errorf("expected 1 trade in last snapshot, got %d", rec.lastSnap.TradeCount)
	}
	if tr := svc.TradesLast(1); len(tr) != 1 || !tr[0].Timestamp.Equal(epoch) {
		t.Errorf("expected trade stamped by book clock, got %+v", tr)
	}
}

func TestServiceClosed(t *testing.T) {
	svc := NewService(inst, DefaultConfig())
	svc.Close()
	svc.Close()

	if _, err := svc.Submit(context.Background(), limit(1, core.SideBuy, 100, 1)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if _, ok := <-svc.Trades(); ok {
		t.Error("expected trades channel to be closed")
	}
}

func TestServiceContextCanceled(t *testing.T) {
	svc := NewService(inst, DefaultConfig())
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Either branch may win the select; a canceled context must never hang.
	_, err := svc.Submit(ctx, limit(1, core.SideBuy, 100, 1))
	if err != nil && !errors.Is(err, context.Canceled) {
		t.Errorf("expected nil or context.Canceled, got %v", err)
	}
}
