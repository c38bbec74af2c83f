package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine counters and gauges, registered on the default registry and
// served by the reporting API's /metrics endpoint.
var (
	TicksProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "daytrader_ticks_processed_total",
		Help: "Number of ticks the engine has evaluated.",
	})

	OpenPositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "daytrader_open_positions",
		Help: "Current number of open positions.",
	})

	CommittedCapital = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "daytrader_committed_capital",
		Help: "Capital currently committed to open positions.",
	})

	RealizedPnL = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "daytrader_realized_pnl",
		Help: "Cumulative realized PnL for the session.",
	})

	TradesClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "daytrader_trades_closed_total",
		Help: "Closed trades by exit reason.",
	}, []string{"reason"})

	EntriesAdmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "daytrader_entries_admitted_total",
		Help: "Positions opened by the allocator.",
	})

	Degradations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "daytrader_degradations_total",
		Help: "Degraded-mode events by kind.",
	}, []string{"kind"})

	ThresholdVersion = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "daytrader_threshold_version",
		Help: "Active scoring threshold version.",
	})

	LeverageCap = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "daytrader_leverage_cap",
		Help: "Current gate-wide leverage cap.",
	})

	CrashActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "daytrader_crash_active",
		Help: "1 while the crash guard is tripped.",
	})
)
