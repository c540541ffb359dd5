package simulation

import (
	"time"

	"github.com/zappabad/lobsim/internal/orderbook/core"
)

// Result summarizes a run. Counts are per submitted order unless noted.
type Result struct {
	Orders int
	Limit  int
	Market int
	Buys   int
	Sells  int
	Filled int
	Rested int

	// Rejected counts market orders refused for lack of liquidity.
	Rejected int
	// Invalid counts orders the book refused at validation.
	Invalid  int

	Trades   int
	Volume   int64
	Notional float64

	FirstOrder time.Time
	LastOrder  time.Time
}

func (r *Result) record(o core.Order, rep core.Report, err error) {
	if r.Orders == 0 {
		r.FirstOrder = o.Timestamp
	}
	r.Orders++
	r.LastOrder = o.Timestamp

	if o.Type == core.OrderTypeLimit {
		r.Limit++
	} else {
		r.Market++
	}
	if o.Side == core.SideBuy {
		r.Buys++
	} else {
		r.Sells++
	}

	if err != nil {
		r.Invalid++
		return
	}
	switch rep.Outcome {
	case core.OutcomeFilled:
		r.Filled++
	case core.OutcomeRested:
		r.Rested++
	case core.OutcomeRejected:
		r.Rejected++
	}
	for _, tr := range rep.Trades {
		r.Trades++
		r.Volume += tr.Amount
		r.Notional += tr.Notional()
	}
}

// VWAP returns the volume weighted average trade price.
func (r Result) VWAP() (float64, bool) {
	if r.Volume == 0 {
		return 0, false
	}
	return r.Notional / float64(r.Volume), true
}

// Elapsed returns the simulated time between the first and last order.
func (r Result) Elapsed() time.Duration {
	return r.LastOrder.Sub(r.FirstOrder)
}

// MeanInterarrival returns the mean simulated time between orders.
func (r Result) MeanInterarrival() time.Duration {
	if r.Orders < 2 {
		return 0
	}
	return r.Elapsed() / time.Duration(r.Orders-1)
}
