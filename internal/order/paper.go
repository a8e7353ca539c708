package order

import (
	"context"
	"fmt"
	"sync/atomic"
)

// PriceSource quotes the latest traded price for a symbol
type PriceSource interface {
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// PaperGateway fills every order at the current quoted price without
// touching the exchange. Used for dry runs.
type PaperGateway struct {
	prices PriceSource
	mode   Mode
	nextID atomic.Int64
}

// NewPaperGateway creates a dry-run gateway reporting the given mode.
func NewPaperGateway(prices PriceSource, mode Mode) *PaperGateway {
	return &PaperGateway{prices: prices, mode: mode}
}

func (g *PaperGateway) Mode() Mode {
	return g.mode
}

// Place simulates an immediate fill of the full quantity.
func (g *PaperGateway) Place(ctx context.Context, req Request) (Fill, error) {
	if err := req.Validate(); err != nil {
		return Fill{}, NewGatewayError(g.mode, req, err)
	}

	price, err := g.prices.CurrentPrice(ctx, req.Symbol)
	if err != nil {
		return Fill{}, NewGatewayError(g.mode, req, fmt.Errorf("quote: %w", err))
	}

	return Fill{
		OrderID:       g.nextID.Add(1),
		ClientOrderID: req.ClientOrderID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Mode:          g.mode,
		Price:         price,
		Quantity:      req.Quantity,
	}, nil
}
