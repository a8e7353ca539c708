// Package order defines the market-order capability used to enter and exit positions.
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Side is the direction of a market order
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite returns the side that offsets s.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Mode selects the exchange product an order is routed to
type Mode string

const (
	ModeSpot    Mode = "spot"
	ModeFutures Mode = "futures"
)

// ParseMode accepts spot, futures and the derivatives/margin aliases.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "spot":
		return ModeSpot, nil
	case "futures", "derivatives", "margin":
		return ModeFutures, nil
	}
	return "", fmt.Errorf("unknown trading mode %q", s)
}

// ErrRejected is wrapped by a GatewayError when the exchange accepted the
// request but reported no executed quantity.
var ErrRejected = errors.New("order not filled")

// Request describes one market order
type Request struct {
	Symbol        string
	Side          Side
	Quantity      decimal.Decimal
	ClientOrderID string
}

// Fill is the exchange confirmation of an executed market order.
// Price is the average fill price.
type Fill struct {
	OrderID       int64
	ClientOrderID string
	Symbol        string
	Side          Side
	Mode          Mode
	Price         float64
	Quantity      decimal.Decimal
}

// Gateway places market orders for one trading mode.
// Implementations never retry a failed placement.
type Gateway interface {
	Place(ctx context.Context, req Request) (Fill, error)
	Mode() Mode
}

// GatewayError reports a failed order placement or price query
type GatewayError struct {
	Op     string
	Symbol string
	Side   Side
	Mode   Mode
	Err    error
}

func (e *GatewayError) Error() string {
	if e.Side != "" {
		return fmt.Sprintf("%s %s %s (%s): %v", e.Op, e.Side, e.Symbol, e.Mode, e.Err)
	}
	return fmt.Sprintf("%s %s (%s): %v", e.Op, e.Symbol, e.Mode, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// NewGatewayError wraps err for a placement of req.
func NewGatewayError(mode Mode, req Request, err error) *GatewayError {
	return &GatewayError{Op: "place order", Symbol: req.Symbol, Side: req.Side, Mode: mode, Err: err}
}

// Validate checks the fields every gateway requires.
func (r Request) Validate() error {
	if r.Symbol == "" {
		return errors.New("symbol is required")
	}
	if r.Side != SideBuy && r.Side != SideSell {
		return fmt.Errorf("invalid side %q", r.Side)
	}
	if !r.Quantity.IsPositive() {
		return fmt.Errorf("quantity must be positive, got %s", r.Quantity)
	}
	return nil
}
