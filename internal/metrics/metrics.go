// Package metrics provides Prometheus metrics for the trading engine:
// entries, exits by reason, gate denials, order fallback behaviour and
// session-level PnL, exposed via the metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the trading engine.
type Metrics struct {
	TradesOpened    prometheus.Counter     // Total number of trades opened
	TradesClosed    *prometheus.CounterVec // Trades closed, labelled by exit reason
	GateDenials     *prometheus.CounterVec // Entry denials, labelled by check
	OrderFallbacks  prometheus.Counter     // Exit order attempts that fell through to a simpler type
	OrdersAbandoned prometheus.Counter     // Exit legs left unplaced after the full cascade failed
	ActivePositions prometheus.Gauge       // Number of open positions
	DailyPnL        prometheus.Gauge       // Realized PnL since the last daily rollover
	ScanDuration    prometheus.Histogram   // Duration of one full engine cycle
	ErrorsTotal     prometheus.Counter     // Total number of operational errors
}

// New creates and registers all metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		TradesOpened: factory.NewCounter(prometheus.CounterOpts{
			Name: "trades_opened_total",
			Help: "Total number of trades opened",
		}),
		TradesClosed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trades_closed_total",
			Help: "Total number of trades closed, by exit reason",
		}, []string{"reason"}),
		GateDenials: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gate_denials_total",
			Help: "Total number of entry signals denied by the risk gate, by check",
		}, []string{"check"}),
		OrderFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "order_fallbacks_total",
			Help: "Exit order placements that degraded to a simpler order type",
		}),
		OrdersAbandoned: factory.NewCounter(prometheus.CounterOpts{
			Name: "orders_abandoned_total",
			Help: "Exit order legs left unplaced after all order types failed",
		}),
		ActivePositions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "active_positions",
			Help: "Number of open positions",
		}),
		DailyPnL: factory.NewGauge(prometheus.GaugeOpts{
			Name: "daily_pnl",
			Help: "Realized PnL in quote currency since the last daily rollover",
		}),
		ScanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "scan_duration_seconds",
			Help:    "Duration of one engine cycle (monitor plus scan) in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of operational errors",
		}),
	}
}
