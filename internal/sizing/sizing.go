// Package sizing converts a quote-currency notional into an order quantity
// the exchange will accept.
package sizing

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

var (
	// ErrBelowMinimumNotional means the rounded order would be worth less than the exchange minimum.
	ErrBelowMinimumNotional = errors.New("order value below minimum notional")
	// ErrInvalidSizingInput means a non-positive notional, price or step, or a negative minimum.
	ErrInvalidSizingInput = errors.New("invalid sizing input")
)

// DefaultStepSize is used when the exchange does not report a LOT_SIZE filter.
const DefaultStepSize = 0.000001

// LotSize holds the symbol filters that constrain order quantity
type LotSize struct {
	StepSize    float64 `json:"step_size"`
	MinNotional float64 `json:"min_notional"`
}

// Precision returns the number of decimal places implied by a step size,
// computed as round(-log10(step)). Steps above 1 give negative precision.
func Precision(step float64) int32 {
	return int32(math.Round(-math.Log10(step)))
}

// Quantity sizes an order worth roughly notional at price.
// The raw quantity is rounded half away from zero to the step's precision
// using exact decimal arithmetic.
func Quantity(notional, price float64, lot LotSize) (decimal.Decimal, error) {
	if notional <= 0 || price <= 0 || lot.StepSize <= 0 || lot.MinNotional < 0 ||
		math.IsNaN(notional) || math.IsNaN(price) || math.IsInf(notional, 0) || math.IsInf(price, 0) {
		return decimal.Zero, fmt.Errorf("%w: notional=%v price=%v step=%v min_notional=%v",
			ErrInvalidSizingInput, notional, price, lot.StepSize, lot.MinNotional)
	}

	p := decimal.NewFromFloat(price)
	raw := decimal.NewFromFloat(notional).Div(p)
	qty := raw.Round(Precision(lot.StepSize))

	value := qty.Mul(p)
	if !qty.IsPositive() || value.LessThan(decimal.NewFromFloat(lot.MinNotional)) {
		return decimal.Zero, fmt.Errorf("%w: qty=%s value=%s min=%v",
			ErrBelowMinimumNotional, qty.String(), value.String(), lot.MinNotional)
	}
	return qty, nil
}
