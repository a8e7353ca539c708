// Package monitor watches an open position until its take-profit or
// stop-loss is crossed and places the closing order.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"binance-pattern-trader/internal/order"
	"binance-pattern-trader/internal/position"
)

// Defaults applied by New when a Config field is zero
const (
	DefaultPollInterval    = 3 * time.Second
	DefaultCloseAttempts   = 3
	DefaultCloseRetryDelay = 2 * time.Second
)

// PriceQuoter returns the latest price for a symbol
type PriceQuoter interface {
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// Config controls polling and closing-order retries
type Config struct {
	PollInterval    time.Duration
	CloseAttempts   int
	CloseRetryDelay time.Duration
}

// MonitorQueryError reports a failed price poll.
// The monitor does not re-query after one.
type MonitorQueryError struct {
	Symbol string
	Err    error
}

func (e *MonitorQueryError) Error() string {
	return fmt.Sprintf("price query for %s failed: %v", e.Symbol, e.Err)
}

func (e *MonitorQueryError) Unwrap() error {
	return e.Err
}

// Result is the terminal outcome of one monitor run.
// Position.Status is always terminal. Err is set for CLOSED_ERROR.
type Result struct {
	Position position.Position
	Exit     *order.Fill
	Err      error
}

// Monitor drives a position from armed to a terminal state
type Monitor struct {
	quoter  PriceQuoter
	gateway order.Gateway
	cfg     Config
	logger  zerolog.Logger
}

// New creates a monitor that quotes prices from quoter and closes through gateway.
func New(quoter PriceQuoter, gateway order.Gateway, cfg Config, logger zerolog.Logger) *Monitor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.CloseAttempts <= 0 {
		cfg.CloseAttempts = DefaultCloseAttempts
	}
	if cfg.CloseRetryDelay < 0 {
		cfg.CloseRetryDelay = 0
	}
	return &Monitor{
		quoter:  quoter,
		gateway: gateway,
		cfg:     cfg,
		logger:  logger.With().Str("component", "ExitMonitor").Logger(),
	}
}

// Run polls immediately and then every PollInterval until pos reaches a terminal state.
// It never returns an OPEN position.
func (m *Monitor) Run(ctx context.Context, pos position.Position) Result {
	log := m.logger.With().
		Str("symbol", pos.Symbol).
		Str("position_id", pos.ID).
		Str("side", string(pos.Side)).
		Logger()

	log.Info().
		Float64("entry", pos.EntryPrice).
		Float64("take_profit", pos.TakeProfit).
		Float64("stop_loss", pos.StopLoss).
		Msg("Monitor armed")

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	lastPrice := pos.EntryPrice
	for {
		price, err := m.quoter.CurrentPrice(ctx, pos.Symbol)
		if err != nil {
			return m.abort(ctx, pos, lastPrice, &MonitorQueryError{Symbol: pos.Symbol, Err: err}, log)
		}
		lastPrice = price

		if status, hit := pos.ExitTrigger(price); hit {
			log.Info().Float64("price", price).Str("status", string(status)).Msg("Exit level crossed")
			return m.close(ctx, pos, status, price, log)
		}

		select {
		case <-ctx.Done():
			return m.abort(ctx, pos, lastPrice, &MonitorQueryError{Symbol: pos.Symbol, Err: ctx.Err()}, log)
		case <-ticker.C:
		}
	}
}

// close places the offsetting order, retrying up to CloseAttempts times with the same client order ID.
func (m *Monitor) close(ctx context.Context, pos position.Position, status position.Status, trigger float64, log zerolog.Logger) Result {
	req := closingRequest(pos)

	var lastErr error
	for attempt := 1; attempt <= m.cfg.CloseAttempts; attempt++ {
		fill, err := m.gateway.Place(ctx, req)
		if err == nil {
			log.Info().
				Int("attempt", attempt).
				Float64("fill_price", fill.Price).
				Int64("order_id", fill.OrderID).
				Msg("Position closed")
			return Result{Position: finish(pos, status, trigger, &fill, ""), Exit: &fill}
		}

		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", m.cfg.CloseAttempts).Msg("Closing order failed")
		if attempt < m.cfg.CloseAttempts && !sleep(ctx, m.cfg.CloseRetryDelay) {
			break
		}
	}

	log.Error().Err(lastErr).Msg("Closing order never filled, resolving as error")
	return Result{
		Position: finish(pos, position.StatusClosedError, trigger, nil, lastErr.Error()),
		Err:      lastErr,
	}
}

// abort makes one immediate closing attempt after a failed poll.
// It runs detached from ctx so a cancelled caller still gets the order out.
func (m *Monitor) abort(ctx context.Context, pos position.Position, lastPrice float64, cause error, log zerolog.Logger) Result {
	log.Error().Err(cause).Float64("last_price", lastPrice).Msg("Price query failed, attempting immediate close")

	fill, err := m.gateway.Place(context.WithoutCancel(ctx), closingRequest(pos))
	if err != nil {
		log.Error().Err(err).Msg("Immediate close after query failure failed")
		joined := errors.Join(cause, err)
		return Result{
			Position: finish(pos, position.StatusClosedError, lastPrice, nil, joined.Error()),
			Err:      joined,
		}
	}

	log.Warn().Float64("fill_price", fill.Price).Msg("Position closed after query failure")
	return Result{
		Position: finish(pos, position.StatusClosedError, lastPrice, &fill, cause.Error()),
		Exit:     &fill,
		Err:      cause,
	}
}

func closingRequest(pos position.Position) order.Request {
	return order.Request{
		Symbol:        pos.Symbol,
		Side:          pos.Side.Opposite(),
		Quantity:      pos.Quantity,
		ClientOrderID: order.NewClientOrderID(order.PurposeExit),
	}
}

func finish(pos position.Position, status position.Status, trigger float64, fill *order.Fill, errText string) position.Position {
	now := time.Now().UTC()
	pos.Status = status
	pos.ClosedAt = &now
	pos.ExitPrice = &trigger
	if fill != nil {
		price := fill.Price
		pos.ExitFillPrice = &price
		pos.ExitOrderID = fill.OrderID
	}
	pos.CloseError = errText
	return pos
}

// sleep waits d or until ctx is done, reporting whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
