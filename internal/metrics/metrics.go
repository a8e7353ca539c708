// Package metrics exposes Prometheus counters for the trading loop.
//
//   - patterntrader_signals_total{symbol,signal}      decisions from the detector
//   - patterntrader_orders_total{mode,side,purpose}   orders placed (purpose: entry|exit)
//   - patterntrader_order_failures_total{mode,purpose}
//   - patterntrader_positions_closed_total{status}
//   - patterntrader_open_positions                    positions currently monitored
//   - patterntrader_halted_symbols                    symbols halted on lock inconsistency
//   - patterntrader_tick_duration_seconds
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Signals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patterntrader_signals_total",
			Help: "Signals produced by the pattern detector",
		},
		[]string{"symbol", "signal"},
	)

	Orders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patterntrader_orders_total",
			Help: "Market orders filled",
		},
		[]string{"mode", "side", "purpose"},
	)

	OrderFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patterntrader_order_failures_total",
			Help: "Market orders that failed",
		},
		[]string{"mode", "purpose"},
	)

	PositionsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patterntrader_positions_closed_total",
			Help: "Positions closed by terminal status",
		},
		[]string{"status"},
	)

	OpenPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "patterntrader_open_positions",
			Help: "Positions currently being monitored",
		},
	)

	HaltedSymbols = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "patterntrader_halted_symbols",
			Help: "Symbols halted pending manual intervention",
		},
	)

	TickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "patterntrader_tick_duration_seconds",
			Help:    "Time spent evaluating all symbols in one tick",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(Signals, Orders, OrderFailures, PositionsClosed, OpenPositions, HaltedSymbols, TickDuration)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
