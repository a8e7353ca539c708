package lifecycle

import (
	"time"

	"binance-pattern-trader/internal/metrics"
	"binance-pattern-trader/internal/order"
	"binance-pattern-trader/internal/patterns"
	"binance-pattern-trader/internal/position"
)

// Hooks observes controller events
type Hooks interface {
	Signal(symbol string, signal patterns.Signal)
	OrderFilled(fill order.Fill, purpose order.Purpose)
	OrderFailed(mode order.Mode, purpose order.Purpose)
	PositionOpened(pos position.Position)
	PositionClosed(pos position.Position)
	Halted(count int)
	TickDone(elapsed time.Duration)
}

// PrometheusHooks records controller events in the metrics package
type PrometheusHooks struct{}

func (PrometheusHooks) Signal(symbol string, signal patterns.Signal) {
	metrics.Signals.WithLabelValues(symbol, string(signal)).Inc()
}

func (PrometheusHooks) OrderFilled(fill order.Fill, purpose order.Purpose) {
	metrics.Orders.WithLabelValues(string(fill.Mode), string(fill.Side), purposeLabel(purpose)).Inc()
}

func (PrometheusHooks) OrderFailed(mode order.Mode, purpose order.Purpose) {
	metrics.OrderFailures.WithLabelValues(string(mode), purposeLabel(purpose)).Inc()
}

func (PrometheusHooks) PositionOpened(position.Position) {
	metrics.OpenPositions.Inc()
}

func (PrometheusHooks) PositionClosed(pos position.Position) {
	metrics.OpenPositions.Dec()
	metrics.PositionsClosed.WithLabelValues(string(pos.Status)).Inc()
}

func (PrometheusHooks) Halted(count int) {
	metrics.HaltedSymbols.Set(float64(count))
}

func (PrometheusHooks) TickDone(elapsed time.Duration) {
	metrics.TickDuration.Observe(elapsed.Seconds())
}

func purposeLabel(p order.Purpose) string {
	if p == order.PurposeExit {
		return "exit"
	}
	return "entry"
}

type nopHooks struct{}

func (nopHooks) Signal(string, patterns.Signal)        {}
func (nopHooks) OrderFilled(order.Fill, order.Purpose) {}
func (nopHooks) OrderFailed(order.Mode, order.Purpose) {}
func (nopHooks) PositionOpened(position.Position)      {}
func (nopHooks) PositionClosed(position.Position)      {}
func (nopHooks) Halted(int)                            {}
func (nopHooks) TickDone(time.Duration)                {}
