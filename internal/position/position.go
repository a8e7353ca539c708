// Package position holds open position records and the per-symbol lock that
// keeps at most one of them open per symbol.
package position

import (
	"time"

	"github.com/shopspring/decimal"

	"binance-pattern-trader/internal/order"
	"binance-pattern-trader/internal/patterns"
)

// Status is the lifecycle state of a position
type Status string

const (
	StatusOpen        Status = "OPEN"
	StatusClosedTP    Status = "CLOSED_TP"
	StatusClosedSL    Status = "CLOSED_SL"
	StatusClosedError Status = "CLOSED_ERROR"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusClosedTP || s == StatusClosedSL || s == StatusClosedError
}

// Position is one filled entry and, once closed, its exit
type Position struct {
	ID         string               `json:"id"`
	Symbol     string               `json:"symbol"`
	Side       order.Side           `json:"side"`
	Mode       order.Mode           `json:"mode"`
	EntryPrice float64              `json:"entry_price"`
	Quantity   decimal.Decimal      `json:"quantity"`
	TakeProfit float64              `json:"take_profit"`
	StopLoss   float64              `json:"stop_loss"`
	Signal     patterns.Signal      `json:"signal"`
	Pattern    patterns.PatternType `json:"pattern"`
	Status     Status               `json:"status"`
	OpenedAt   time.Time            `json:"opened_at"`
	ClosedAt   *time.Time           `json:"closed_at,omitempty"`

	// ExitPrice is the observed price that triggered the exit.
	ExitPrice *float64 `json:"exit_price,omitempty"`
	// ExitFillPrice is the average fill of the closing order, when one filled.
	ExitFillPrice *float64 `json:"exit_fill_price,omitempty"`

	EntryOrderID int64  `json:"entry_order_id"`
	ExitOrderID  int64  `json:"exit_order_id,omitempty"`
	CloseError   string `json:"close_error,omitempty"`
}

// Levels computes take-profit and stop-loss prices for an entry.
// Percentages are in percent units, so 0.5 means half a percent.
func Levels(side order.Side, entry, tpPct, slPct float64) (takeProfit, stopLoss float64) {
	e := decimal.NewFromFloat(entry)
	hundred := decimal.NewFromInt(100)
	tp := decimal.NewFromFloat(tpPct).Div(hundred)
	sl := decimal.NewFromFloat(slPct).Div(hundred)
	one := decimal.NewFromInt(1)

	if side == order.SideSell {
		takeProfit, _ = e.Mul(one.Sub(tp)).Float64()
		stopLoss, _ = e.Mul(one.Add(sl)).Float64()
		return takeProfit, stopLoss
	}
	takeProfit, _ = e.Mul(one.Add(tp)).Float64()
	stopLoss, _ = e.Mul(one.Sub(sl)).Float64()
	return takeProfit, stopLoss
}

// ExitTrigger reports whether price crosses a boundary of p.
// Take-profit is tested before stop-loss.
func (p Position) ExitTrigger(price float64) (Status, bool) {
	if p.Side == order.SideSell {
		switch {
		case price <= p.TakeProfit:
			return StatusClosedTP, true
		case price >= p.StopLoss:
			return StatusClosedSL, true
		}
		return StatusOpen, false
	}

	switch {
	case price >= p.TakeProfit:
		return StatusClosedTP, true
	case price <= p.StopLoss:
		return StatusClosedSL, true
	}
	return StatusOpen, false
}

// PnL returns the realised quote-currency result, using the exit fill when known.
func (p Position) PnL() (float64, bool) {
	exit := p.ExitFillPrice
	if exit == nil {
		exit = p.ExitPrice
	}
	if exit == nil {
		return 0, false
	}
	qty := p.Quantity.InexactFloat64()
	diff := *exit - p.EntryPrice
	if p.Side == order.SideSell {
		diff = -diff
	}
	return diff * qty, true
}
