// Package trading provides trading calculation utilities.
package trading

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrZeroQuantity 表示按精度截断后数量为零。
var ErrZeroQuantity = errors.New("order quantity rounds to zero")

// OrderQuantity computes notional / price, where notional = usdSize * leverage,
// truncated (never rounded up) to precision decimal places.
func OrderQuantity(usdSize float64, leverage int, price float64, precision int32) (decimal.Decimal, error) {
	if price <= 0 {
		return decimal.Zero, errors.New("price must be positive")
	}
	if usdSize <= 0 || leverage <= 0 {
		return decimal.Zero, errors.New("trade size and leverage must be positive")
	}
	if precision < 0 {
		precision = 0
	}
	notional := decimal.NewFromFloat(usdSize).Mul(decimal.NewFromInt(int64(leverage)))
	qty := notional.DivRound(decimal.NewFromFloat(price), precision+8).Truncate(precision)
	if !qty.IsPositive() {
		return decimal.Zero, ErrZeroQuantity
	}
	return qty, nil
}
