package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"binance-pattern-trader/internal/sizing"
)

const (
	PrefixLotSize     = "patterntrader:lotsize:%s:%s" // mode, symbol
	DefaultLotSizeTTL = 24 * time.Hour
)

// LotSizeCache shares exchange filters between bot instances and restarts.
// Errors are logged and reported as misses so callers fall back to the exchange.
type LotSizeCache struct {
	cs     *CacheService
	mode   string
	ttl    time.Duration
	logger zerolog.Logger
}

func NewLotSizeCache(cs *CacheService, mode string) *LotSizeCache {
	return &LotSizeCache{
		cs:     cs,
		mode:   mode,
		ttl:    DefaultLotSizeTTL,
		logger: cs.logger,
	}
}

func (c *LotSizeCache) key(symbol string) string {
	return fmt.Sprintf(PrefixLotSize, c.mode, symbol)
}

func (c *LotSizeCache) GetLotSize(ctx context.Context, symbol string) (sizing.LotSize, bool) {
	var lot sizing.LotSize
	if err := c.cs.GetJSON(ctx, c.key(symbol), &lot); err != nil {
		if !errors.Is(err, ErrMiss) {
			c.logger.Debug().Err(err).Str("symbol", symbol).Msg("Lot size cache read failed")
		}
		return sizing.LotSize{}, false
	}
	return lot, true
}

func (c *LotSizeCache) SetLotSize(ctx context.Context, symbol string, lot sizing.LotSize) {
	if err := c.cs.SetJSON(ctx, c.key(symbol), lot, c.ttl); err != nil {
		c.logger.Debug().Err(err).Str("symbol", symbol).Msg("Lot size cache write failed")
	}
}
