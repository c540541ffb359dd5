package market

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// PriceTolerance absorbs floating-point noise in tick alignment and limit checks.
const PriceTolerance = 1e-9

var ErrInvalidInstrument = errors.New("invalid instrument")

// Instrument is static reference data for a tradeable product.
// It is immutable after construction and shared by pointer.
type Instrument struct {
	Code        string
	Name        string
	IsActive    bool
	MinTickSize float64
}

// NewInstrument validates and returns a new Instrument.
func NewInstrument(code, name string, active bool, tick float64) (*Instrument, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: empty code", ErrInvalidInstrument)
	}
	if math.IsNaN(tick) || math.IsInf(tick, 0) || tick <= 0 {
		return nil, fmt.Errorf("%w: tick size %v must be positive", ErrInvalidInstrument, tick)
	}
	return &Instrument{Code: code, Name: name, IsActive: active, MinTickSize: tick}, nil
}

// Equal reports value equality. A nil instrument is never equal to anything.
func (i *Instrument) Equal(other *Instrument) bool {
	if i == nil || other == nil {
		return false
	}
	return *i == *other
}

// IsTickAligned reports whether price is an integer multiple of the tick size.
func (i *Instrument) IsTickAligned(price float64) bool {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return false
	}
	tick := i.MinTickSize
	return math.Abs(math.Round(price/tick)*tick-price) <= PriceTolerance
}

// maxTickIndex bounds tick indexes to what int64 can hold.
const maxTickIndex = float64(math.MaxInt64)

// InTickRange reports whether price maps to a tick index that fits in an
// int64.
func (i *Instrument) InTickRange(price float64) bool {
	return math.Abs(price/i.MinTickSize) < maxTickIndex
}

// Ticks returns the nearest tick index for price. Price must be InTickRange.
func (i *Instrument) Ticks(price float64) int64 {
	return int64(math.Round(price / i.MinTickSize))
}

// RoundUp rounds price up to the nearest multiple of the tick size.
// Values within PriceTolerance above a multiple stay on that multiple.
func (i *Instrument) RoundUp(price float64) float64 {
	tick := i.MinTickSize
	n := math.Ceil(price/tick - PriceTolerance/tick)
	return n * tick
}

// Decimals returns the number of fractional digits implied by the tick size.
func (i *Instrument) Decimals() int32 {
	exp := decimal.NewFromFloat(i.MinTickSize).Exponent()
	if exp >= 0 {
		return 0
	}
	return -exp
}

// FormatPrice renders price at tick precision, e.g. 100.00 for a 0.01 tick.
func (i *Instrument) FormatPrice(price float64) string {
	return decimal.NewFromFloat(price).StringFixed(i.Decimals())
}

func (i *Instrument) String() string {
	if i == nil {
		return "<nil>"
	}
	return i.Code
}
