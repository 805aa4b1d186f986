// FILE: metrics.go
// Package main – Prometheus metrics for observability.
//
// Exposes the primary metrics the bot updates during operation:
//   • mm_orders_placed_total{side}   – Maker orders accepted by the venue
//   • mm_orders_rejected_total{side} – Placement failures swallowed per level
//   • mm_cancels_total{mode}         – Cancel passes (bulk|targeted)
//   • mm_iteration_errors_total      – Loop iterations that failed and backed off
//   • mm_volatility                  – Latest volatility estimate (gauge)
//   • mm_sleep_seconds               – Last adaptive sleep duration (gauge)
//   • mm_pause_flag{asset}           – Drawdown pause flags (0/1)
//   • mm_balance_total{asset}        – free+locked balance per tracked asset
//
// These are registered in init() and served by the HTTP handler started in
// main.go at /metrics (Prometheus text exposition format).

package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mtxOrdersPlaced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mm_orders_placed_total",
			Help: "Maker orders accepted by the venue",
		},
		[]string{"side"}, // buy|sell
	)

	mtxOrdersRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mm_orders_rejected_total",
			Help: "Placement failures swallowed per ladder level",
		},
		[]string{"side"},
	)

	mtxCancels = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mm_cancels_total",
			Help: "Order cancel passes by mode",
		},
		[]string{"mode"}, // bulk|targeted
	)

	mtxIterationErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mm_iteration_errors_total",
			Help: "Loop iterations that failed and triggered the fixed backoff",
		},
	)

	mtxVolatility = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mm_volatility",
			Help: "Latest volatility estimate (stddev of fractional changes)",
		},
	)

	mtxSleepSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mm_sleep_seconds",
			Help: "Last adaptive inter-iteration sleep duration",
		},
	)

	mtxPauseFlag = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mm_pause_flag",
			Help: "Drawdown pause flag per asset (1 = side paused)",
		},
		[]string{"asset"},
	)

	mtxBalanceTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mm_balance_total",
			Help: "free+locked balance per tracked asset",
		},
		[]string{"asset"},
	)
)

func init() {
	prometheus.MustRegister(mtxOrdersPlaced, mtxOrdersRejected, mtxCancels)
	prometheus.MustRegister(mtxIterationErrors)
	prometheus.MustRegister(mtxVolatility, mtxSleepSeconds)
	prometheus.MustRegister(mtxPauseFlag, mtxBalanceTotal)
}

// Helper setters (used by the loop; keep call sites terse)

func IncOrderPlaced(side string)   { mtxOrdersPlaced.WithLabelValues(side).Inc() }
func IncOrderRejected(side string) { mtxOrdersRejected.WithLabelValues(side).Inc() }
func IncCancelPass(mode string)    { mtxCancels.WithLabelValues(mode).Inc() }
func IncIterationError()           { mtxIterationErrors.Inc() }

func SetVolatilityMetric(v float64)            { mtxVolatility.Set(v) }
func SetSleepMetric(d time.Duration)           { mtxSleepSeconds.Set(d.Seconds()) }
func SetBalanceMetric(asset string, v float64) { mtxBalanceTotal.WithLabelValues(asset).Set(v) }

func SetPauseMetric(asset string, paused bool) {
	if paused {
		mtxPauseFlag.WithLabelValues(asset).Set(1)
	} else {
		mtxPauseFlag.WithLabelValues(asset).Set(0)
	}
}
