package generator

import (
	"errors"
	"fmt"
	"math"

	"github.com/zappabad/lobsim/internal/orderbook/core"
)

var ErrInvalidConfig = errors.New("invalid generator config")

// Config holds the parameters of the order arrival process.
type Config struct {
	// ArrivalsRate is the mean number of orders per simulated second.
	ArrivalsRate float64
	// BuyRatio is the probability that an order is a BUY.
	BuyRatio float64
	// LimitOrderRatio is the probability that an order is a LIMIT.
	LimitOrderRatio float64
	// MinConsideration is carried for completeness; orders are not filtered on it.
	MinConsideration int64
	// MaxAmount bounds generated amounts and scales the amount distribution.
	MaxAmount int64
	// MaxHalfspread is the widest midprice offset, reached at MaxAmount.
	MaxHalfspread float64

	// StaticOrderType forces every order to this type when set.
	StaticOrderType *core.OrderType
	// StaticMidprice replaces the live midprice when non-zero.
	StaticMidprice float64

	// HazardRate > 0 stamps each order with a CancelAt time drawn from
	// Exp(HazardRate). The book never acts on it.
	HazardRate float64

	CounterpartyMin core.CounterpartyID
	CounterpartyMax core.CounterpartyID

	Seed int64
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		ArrivalsRate:    2.0,
		BuyRatio:        0.5,
		LimitOrderRatio: 0.8,
		MaxAmount:       100,
		MaxHalfspread:   0.5,
		CounterpartyMin: 1000,
		CounterpartyMax: 1010,
		Seed:            1,
	}
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// Validate reports the first parameter that cannot drive the generator.
func (c Config) Validate() error {
	switch {
	case !finite(c.ArrivalsRate) || c.ArrivalsRate <= 0:
		return fmt.Errorf("%w: arrivals rate %v must be positive", ErrInvalidConfig, c.ArrivalsRate)
	case !(c.BuyRatio >= 0 && c.BuyRatio <= 1):
		return fmt.Errorf("%w: buy ratio %v outside [0, 1]", ErrInvalidConfig, c.BuyRatio)
	case !(c.LimitOrderRatio >= 0 && c.LimitOrderRatio <= 1):
		return fmt.Errorf("%w: limit order ratio %v outside [0, 1]", ErrInvalidConfig, c.LimitOrderRatio)
	case c.MinConsideration < 0:
		return fmt.Errorf("%w: min consideration %d is negative", ErrInvalidConfig, c.MinConsideration)
	case c.MaxAmount <= 0:
		return fmt.Errorf("%w: max amount %d must be positive", ErrInvalidConfig, c.MaxAmount)
	case !finite(c.MaxHalfspread) || c.MaxHalfspread < 0:
		return fmt.Errorf("%w: max halfspread %v is negative", ErrInvalidConfig, c.MaxHalfspread)
	case !finite(c.StaticMidprice) || c.StaticMidprice < 0:
		return fmt.Errorf("%w: static midprice %v is negative", ErrInvalidConfig, c.StaticMidprice)
	case !finite(c.HazardRate) || c.HazardRate < 0:
		return fmt.Errorf("%w: hazard rate %v is negative", ErrInvalidConfig, c.HazardRate)
	case c.CounterpartyMax < c.CounterpartyMin:
		return fmt.Errorf("%w: counterparty range [%d, %d] is empty", ErrInvalidConfig, c.CounterpartyMin, c.CounterpartyMax)
	case counterpartySpread(c.CounterpartyMin, c.CounterpartyMax) >= math.MaxInt64:
		return fmt.Errorf("%w: counterparty range [%d, %d] is too wide", ErrInvalidConfig, c.CounterpartyMin, c.CounterpartyMax)
	}
	if c.StaticOrderType != nil && *c.StaticOrderType != core.OrderTypeLimit && *c.StaticOrderType != core.OrderTypeMarket {
		return fmt.Errorf("%w: static order type %s", ErrInvalidConfig, *c.StaticOrderType)
	}
	return nil
}

// counterpartySpread is max-min without int64 overflow. max must not be
// below min.
func counterpartySpread(lo, hi core.CounterpartyID) uint64 {
	return uint64(hi) - uint64(lo)
}
