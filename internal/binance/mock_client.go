package binance

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"binance-pattern-trader/internal/sizing"
)

// MockClient provides simulated market data and fills for development
type MockClient struct {
	mu         sync.Mutex
	rng        *rand.Rand
	prices     map[string]float64
	lastUpdate time.Time
	nextOrder  int64
}

// NewMockClient creates a mock client; seed makes price paths reproducible.
func NewMockClient(seed int64) *MockClient {
	return &MockClient{
		rng: rand.New(rand.NewSource(seed)),
		prices: map[string]float64{
			"BTCUSDT":  104500.00,
			"ETHUSDT":  3900.00,
			"BNBUSDT":  710.00,
			"SOLUSDT":  220.00,
			"XRPUSDT":  2.35,
			"ADAUSDT":  1.05,
			"DOGEUSDT": 0.40,
		},
	}
}

// SetPrice pins a symbol's price.
func (mc *MockClient) SetPrice(symbol string, price float64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.prices[symbol] = price
	mc.lastUpdate = time.Now()
}

// price returns the current price, applying a ±0.25% random walk at most once per second.
func (mc *MockClient) price(symbol string) float64 {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if time.Since(mc.lastUpdate) >= time.Second {
		for s, p := range mc.prices {
			mc.prices[s] = p * (1 + (mc.rng.Float64()-0.5)*0.005)
		}
		mc.lastUpdate = time.Now()
	}

	p, ok := mc.prices[symbol]
	if !ok {
		p = 100.0
		mc.prices[symbol] = p
	}
	return p
}

func (mc *MockClient) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error) {
	current := mc.price(symbol)
	step, err := time.ParseDuration(interval)
	if err != nil {
		step = 5 * time.Minute
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	klines := make([]Kline, limit)
	now := time.Now()
	price := current
	for i := limit - 1; i >= 0; i-- {
		openTime := now.Add(-time.Duration(limit-i) * step)
		closePrice := price
		open := closePrice * (1 + (mc.rng.Float64()-0.5)*0.02)
		high := math.Max(open, closePrice) * (1 + mc.rng.Float64()*0.005)
		low := math.Min(open, closePrice) * (1 - mc.rng.Float64()*0.005)

		klines[i] = Kline{
			OpenTime:  openTime.UnixMilli(),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    1000 + mc.rng.Float64()*5000,
			CloseTime: openTime.Add(step).UnixMilli() - 1,
		}
		price = open
	}
	return klines, nil
}

func (mc *MockClient) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	return mc.price(symbol), nil
}

func (mc *MockClient) GetLotSize(ctx context.Context, symbol string) (sizing.LotSize, error) {
	p := mc.price(symbol)
	step := math.Pow(10, math.Floor(math.Log10(p))-4)
	if step > 1 {
		step = 1
	}
	return sizing.LotSize{StepSize: step, MinNotional: 1}, nil
}

func (mc *MockClient) PlaceMarketOrder(ctx context.Context, symbol, side, quantity, clientOrderID string) (*OrderResponse, error) {
	p := mc.price(symbol)
	qty := parseFloat(quantity)
	return &OrderResponse{
		Symbol:              symbol,
		OrderId:             mc.orderID(),
		ClientOrderId:       clientOrderID,
		TransactTime:        time.Now().UnixMilli(),
		OrigQty:             qty,
		ExecutedQty:         qty,
		CummulativeQuoteQty: p * qty,
		Status:              "FILLED",
		Type:                "MARKET",
		Side:                side,
		Fills:               []OrderFill{{Price: p, Qty: qty}},
	}, nil
}

func (mc *MockClient) PlaceFuturesMarketOrder(ctx context.Context, symbol, side, quantity, clientOrderID string) (*FuturesOrderResponse, error) {
	p := mc.price(symbol)
	qty := parseFloat(quantity)
	return &FuturesOrderResponse{
		Symbol:        symbol,
		OrderId:       mc.orderID(),
		ClientOrderId: clientOrderID,
		Status:        "FILLED",
		Type:          "MARKET",
		Side:          side,
		AvgPrice:      p,
		OrigQty:       qty,
		ExecutedQty:   qty,
		CumQuote:      p * qty,
		UpdateTime:    time.Now().UnixMilli(),
	}, nil
}

func (mc *MockClient) orderID() int64 {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.nextOrder++
	return mc.nextOrder
}

var (
	_ MarketClient       = (*MockClient)(nil)
	_ SpotOrderPlacer    = (*MockClient)(nil)
	_ FuturesOrderPlacer = (*MockClient)(nil)
	_ MarketClient       = (*Client)(nil)
	_ SpotOrderPlacer    = (*Client)(nil)
	_ MarketClient       = (*FuturesClient)(nil)
	_ FuturesOrderPlacer = (*FuturesClient)(nil)
)
