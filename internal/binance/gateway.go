package binance

import (
	"context"
	"fmt"

	"binance-pattern-trader/internal/order"
)

// SpotOrderPlacer places spot market orders
type SpotOrderPlacer interface {
	PlaceMarketOrder(ctx context.Context, symbol, side, quantity, clientOrderID string) (*OrderResponse, error)
}

// FuturesOrderPlacer places futures market orders
type FuturesOrderPlacer interface {
	PlaceFuturesMarketOrder(ctx context.Context, symbol, side, quantity, clientOrderID string) (*FuturesOrderResponse, error)
}

// SpotGateway routes orders to the spot market
type SpotGateway struct {
	client SpotOrderPlacer
}

func NewSpotGateway(client SpotOrderPlacer) *SpotGateway {
	return &SpotGateway{client: client}
}

func (g *SpotGateway) Mode() order.Mode {
	return order.ModeSpot
}

func (g *SpotGateway) Place(ctx context.Context, req order.Request) (order.Fill, error) {
	if err := req.Validate(); err != nil {
		return order.Fill{}, order.NewGatewayError(order.ModeSpot, req, err)
	}

	resp, err := g.client.PlaceMarketOrder(ctx, req.Symbol, string(req.Side), req.Quantity.String(), req.ClientOrderID)
	if err != nil {
		return order.Fill{}, order.NewGatewayError(order.ModeSpot, req, err)
	}

	price, err := SpotFillPrice(resp)
	if err != nil {
		return order.Fill{}, order.NewGatewayError(order.ModeSpot, req, err)
	}

	return order.Fill{
		OrderID:       resp.OrderId,
		ClientOrderID: resp.ClientOrderId,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Mode:          order.ModeSpot,
		Price:         price,
		Quantity:      req.Quantity,
	}, nil
}

// SpotFillPrice is the quantity-weighted average of the fills,
// falling back to cummulativeQuoteQty / executedQty.
func SpotFillPrice(resp *OrderResponse) (float64, error) {
	var notional, qty float64
	for _, f := range resp.Fills {
		notional += f.Price * f.Qty
		qty += f.Qty
	}
	if qty > 0 {
		return notional / qty, nil
	}
	if resp.ExecutedQty > 0 && resp.CummulativeQuoteQty > 0 {
		return resp.CummulativeQuoteQty / resp.ExecutedQty, nil
	}
	if resp.Price > 0 && resp.ExecutedQty > 0 {
		return resp.Price, nil
	}
	return 0, fmt.Errorf("%w: status %s", order.ErrRejected, resp.Status)
}

// FuturesGateway routes orders to USDⓈ-M futures
type FuturesGateway struct {
	client FuturesOrderPlacer
}

func NewFuturesGateway(client FuturesOrderPlacer) *FuturesGateway {
	return &FuturesGateway{client: client}
}

func (g *FuturesGateway) Mode() order.Mode {
	return order.ModeFutures
}

func (g *FuturesGateway) Place(ctx context.Context, req order.Request) (order.Fill, error) {
	if err := req.Validate(); err != nil {
		return order.Fill{}, order.NewGatewayError(order.ModeFutures, req, err)
	}

	resp, err := g.client.PlaceFuturesMarketOrder(ctx, req.Symbol, string(req.Side), req.Quantity.String(), req.ClientOrderID)
	if err != nil {
		return order.Fill{}, order.NewGatewayError(order.ModeFutures, req, err)
	}

	price, err := FuturesFillPrice(resp)
	if err != nil {
		return order.Fill{}, order.NewGatewayError(order.ModeFutures, req, err)
	}

	return order.Fill{
		OrderID:       resp.OrderId,
		ClientOrderID: resp.ClientOrderId,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Mode:          order.ModeFutures,
		Price:         price,
		Quantity:      req.Quantity,
	}, nil
}

// FuturesFillPrice is avgPrice, falling back to cumQuote / executedQty.
func FuturesFillPrice(resp *FuturesOrderResponse) (float64, error) {
	if resp.AvgPrice > 0 {
		return resp.AvgPrice, nil
	}
	if resp.ExecutedQty > 0 && resp.CumQuote > 0 {
		return resp.CumQuote / resp.ExecutedQty, nil
	}
	return 0, fmt.Errorf("%w: status %s", order.ErrRejected, resp.Status)
}
