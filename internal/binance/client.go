package binance

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"binance-pattern-trader/internal/sizing"
)

// Spot REST endpoints
const (
	SpotBaseURL    = "https://api.binance.com"
	SpotTestnetURL = "https://testnet.binance.vision"
)

// Client is a spot REST client
type Client struct {
	rest *restClient
}

func NewClient(apiKey, secretKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = SpotBaseURL
	}
	return &Client{rest: newRESTClient(apiKey, secretKey, baseURL)}
}

// SyncTime corrects signed timestamps for local clock skew.
func (c *Client) SyncTime(ctx context.Context) (time.Duration, error) {
	return c.rest.syncTime(ctx, "/api/v3/time")
}

// GetKlines fetches candlestick data, oldest first
func (c *Client) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	var raw [][]interface{}
	if err := c.rest.get(ctx, "/api/v3/klines", params, &raw); err != nil {
		return nil, fmt.Errorf("error fetching klines: %w", err)
	}
	return parseKlines(raw)
}

// GetCurrentPrice fetches the latest traded price
func (c *Client) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var ticker struct {
		Symbol string  `json:"symbol"`
		Price  float64 `json:"price,string"`
	}
	if err := c.rest.get(ctx, "/api/v3/ticker/price", params, &ticker); err != nil {
		return 0, fmt.Errorf("error fetching price: %w", err)
	}
	return ticker.Price, nil
}

// GetExchangeInfo fetches trading rules for one symbol
func (c *Client) GetExchangeInfo(ctx context.Context, symbol string) (*ExchangeInfo, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var info ExchangeInfo
	if err := c.rest.get(ctx, "/api/v3/exchangeInfo", params, &info); err != nil {
		return nil, fmt.Errorf("error fetching exchange info: %w", err)
	}
	return &info, nil
}

// GetLotSize reads the LOT_SIZE and notional filters for a symbol
func (c *Client) GetLotSize(ctx context.Context, symbol string) (sizing.LotSize, error) {
	info, err := c.GetExchangeInfo(ctx, symbol)
	if err != nil {
		return sizing.LotSize{}, err
	}
	return LotSizeFromInfo(info, symbol)
}

// PlaceMarketOrder places a MARKET order and asks for the FULL response with fills
func (c *Client) PlaceMarketOrder(ctx context.Context, symbol, side, quantity, clientOrderID string) (*OrderResponse, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", side)
	params.Set("type", "MARKET")
	params.Set("quantity", quantity)
	params.Set("newOrderRespType", "FULL")
	if clientOrderID != "" {
		params.Set("newClientOrderId", clientOrderID)
	}

	var resp OrderResponse
	if err := c.rest.signed(ctx, "POST", "/api/v3/order", params, &resp); err != nil {
		return nil, fmt.Errorf("error placing order: %w", err)
	}
	return &resp, nil
}

// LotSizeFromInfo extracts step size and minimum notional for symbol.
// A missing LOT_SIZE filter falls back to sizing.DefaultStepSize.
func LotSizeFromInfo(info *ExchangeInfo, symbol string) (sizing.LotSize, error) {
	for _, s := range info.Symbols {
		if s.Symbol != symbol {
			continue
		}
		lot := sizing.LotSize{StepSize: sizing.DefaultStepSize}
		for _, f := range s.Filters {
			switch f.FilterType {
			case "LOT_SIZE":
				if step, err := strconv.ParseFloat(f.StepSize, 64); err == nil && step > 0 {
					lot.StepSize = step
				}
			case "NOTIONAL", "MIN_NOTIONAL":
				v := f.MinNotional
				if v == "" {
					v = f.Notional
				}
				if m, err := strconv.ParseFloat(v, 64); err == nil {
					lot.MinNotional = m
				}
			}
		}
		return lot, nil
	}
	return sizing.LotSize{}, fmt.Errorf("symbol %s not found in exchange info", symbol)
}
