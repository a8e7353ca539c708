package binance

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"binance-pattern-trader/internal/sizing"
)

// USDⓈ-M futures REST endpoints
const (
	FuturesBaseURL    = "https://fapi.binance.com"
	FuturesTestnetURL = "https://testnet.binancefuture.com"
)

// FuturesClient is a USDⓈ-M futures REST client
type FuturesClient struct {
	rest *restClient
}

func NewFuturesClient(apiKey, secretKey, baseURL string) *FuturesClient {
	if baseURL == "" {
		baseURL = FuturesBaseURL
	}
	return &FuturesClient{rest: newRESTClient(apiKey, secretKey, baseURL)}
}

func (c *FuturesClient) SyncTime(ctx context.Context) (time.Duration, error) {
	return c.rest.syncTime(ctx, "/fapi/v1/time")
}

func (c *FuturesClient) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	var raw [][]interface{}
	if err := c.rest.get(ctx, "/fapi/v1/klines", params, &raw); err != nil {
		return nil, fmt.Errorf("error fetching futures klines: %w", err)
	}
	return parseKlines(raw)
}

func (c *FuturesClient) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var ticker struct {
		Symbol string  `json:"symbol"`
		Price  float64 `json:"price,string"`
	}
	if err := c.rest.get(ctx, "/fapi/v1/ticker/price", params, &ticker); err != nil {
		return 0, fmt.Errorf("error fetching futures price: %w", err)
	}
	return ticker.Price, nil
}

// GetLotSize reads filters from the full futures exchange info, which has no symbol parameter.
func (c *FuturesClient) GetLotSize(ctx context.Context, symbol string) (sizing.LotSize, error) {
	var info ExchangeInfo
	if err := c.rest.get(ctx, "/fapi/v1/exchangeInfo", nil, &info); err != nil {
		return sizing.LotSize{}, fmt.Errorf("error fetching futures exchange info: %w", err)
	}
	return LotSizeFromInfo(&info, symbol)
}

// PlaceFuturesMarketOrder places a MARKET order and asks for the RESULT response with avgPrice
func (c *FuturesClient) PlaceFuturesMarketOrder(ctx context.Context, symbol, side, quantity, clientOrderID string) (*FuturesOrderResponse, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", side)
	params.Set("type", "MARKET")
	params.Set("quantity", quantity)
	params.Set("newOrderRespType", "RESULT")
	if clientOrderID != "" {
		params.Set("newClientOrderId", clientOrderID)
	}

	var resp FuturesOrderResponse
	if err := c.rest.signed(ctx, "POST", "/fapi/v1/order", params, &resp); err != nil {
		return nil, fmt.Errorf("error placing futures order: %w", err)
	}
	return &resp, nil
}
