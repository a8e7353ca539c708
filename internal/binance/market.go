package binance

import (
	"context"
	"sync"

	"binance-pattern-trader/internal/patterns"
	"binance-pattern-trader/internal/sizing"
)

// MarketClient is the read side of the spot and futures clients
type MarketClient interface {
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error)
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
	GetLotSize(ctx context.Context, symbol string) (sizing.LotSize, error)
}

// LotSizeStore is a shared cache of exchange filters, typically Redis.
type LotSizeStore interface {
	GetLotSize(ctx context.Context, symbol string) (sizing.LotSize, bool)
	SetLotSize(ctx context.Context, symbol string, lot sizing.LotSize)
}

// Market adapts a MarketClient to the trading core.
// Prices come from the stream when it has a fresh tick, otherwise from REST.
// Lot sizes are fetched once per symbol.
type Market struct {
	client MarketClient
	stream *PriceStream
	shared LotSizeStore

	mu       sync.RWMutex
	lotSizes map[string]sizing.LotSize
}

// NewMarket creates a market adapter. stream may be nil.
func NewMarket(client MarketClient, stream *PriceStream) *Market {
	return &Market{
		client:   client,
		stream:   stream,
		lotSizes: make(map[string]sizing.LotSize),
	}
}

// SetLotSizeStore adds a shared filter cache consulted before the exchange.
func (m *Market) SetLotSizeStore(store LotSizeStore) {
	m.mu.Lock()
	m.shared = store
	m.mu.Unlock()
}

// GetCandles returns OHLC candles, oldest first
func (m *Market) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]patterns.Candle, error) {
	klines, err := m.client.GetKlines(ctx, symbol, interval, limit)
	if err != nil {
		return nil, err
	}
	candles := make([]patterns.Candle, len(klines))
	for i, k := range klines {
		candles[i] = patterns.Candle{Open: k.Open, High: k.High, Low: k.Low, Close: k.Close}
	}
	return candles, nil
}

func (m *Market) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	if m.stream != nil {
		if price, ok := m.stream.Price(symbol); ok {
			return price, nil
		}
	}
	return m.client.GetCurrentPrice(ctx, symbol)
}

func (m *Market) LotSize(ctx context.Context, symbol string) (sizing.LotSize, error) {
	m.mu.RLock()
	lot, ok := m.lotSizes[symbol]
	shared := m.shared
	m.mu.RUnlock()
	if ok {
		return lot, nil
	}

	if shared != nil {
		if lot, ok := shared.GetLotSize(ctx, symbol); ok {
			m.remember(symbol, lot)
			return lot, nil
		}
	}

	lot, err := m.client.GetLotSize(ctx, symbol)
	if err != nil {
		return sizing.LotSize{}, err
	}
	m.remember(symbol, lot)
	if shared != nil {
		shared.SetLotSize(ctx, symbol, lot)
	}
	return lot, nil
}

func (m *Market) remember(symbol string, lot sizing.LotSize) {
	m.mu.Lock()
	m.lotSizes[symbol] = lot
	m.mu.Unlock()
}
