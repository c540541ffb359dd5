package panels

import (
	"strconv"

	"github.com/zappabad/lobsim/internal/market"
)

func formatPrice(inst *market.Instrument, price float64) string {
	if inst == nil || inst.MinTickSize <= 0 {
		return strconv.FormatFloat(price, 'f', -1, 64)
	}
	return inst.FormatPrice(price)
}
