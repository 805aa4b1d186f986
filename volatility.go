// FILE: volatility.go
// Package main – Volatility estimation and the adaptive sleep policy.
//
// Volatility is the standard deviation of fractional period-over-period
// price changes over a trailing minute window. A flat read (exactly zero)
// extends the window by 60 minutes and retries, bounded at 360 minutes with
// a calm-market fallback of 0 — never unbounded.
//
// The sleep policy paces the loop off that estimate: calm markets slow the
// loop down, busy markets speed it up, always inside [1s, 20s].
package main

import (
	"context"
	"math"
	"time"
)

const (
	volWindowExtendMin = 60  // extension per flat retry
	volWindowMaxMin    = 360 // hard window ceiling
	volFlatFallback    = 0.0 // terminal value for perfectly flat markets

	sleepBase = 8 * time.Second
	sleepMin  = 1 * time.Second
	sleepMax  = 20 * time.Second
)

// estimateVolatility fetches a fresh trailing price window and returns its
// volatility, extending the window on flat reads up to volWindowMaxMin.
func estimateVolatility(ctx context.Context, ex Exchange, symbol string, windowMin int) (float64, error) {
	if windowMin <= 0 {
		windowMin = volWindowExtendMin
	}
	for w := windowMin; ; w += volWindowExtendMin {
		prices, err := ex.FetchHistoricalPrices(ctx, symbol, w)
		if err != nil {
			return 0, err
		}
		v := stddevFractionalChanges(prices)
		if v > 0 {
			return v, nil
		}
		if w+volWindowExtendMin > volWindowMaxMin {
			return volFlatFallback, nil
		}
	}
}

// stddevFractionalChanges computes the population standard deviation of
// period-over-period fractional changes. Fewer than two prices yields 0.
func stddevFractionalChanges(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}
	changes := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		changes = append(changes, (prices[i]-prices[i-1])/prices[i-1])
	}
	if len(changes) == 0 {
		return 0
	}
	var sum float64
	for _, c := range changes {
		sum += c
	}
	mean := sum / float64(len(changes))
	var sq float64
	for _, c := range changes {
		d := c - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(changes)))
}

// dynamicSleep maps volatility to the inter-iteration pause: 8s base, halved
// above 0.05, doubled below 0.02, clamped to [1s, 20s].
func dynamicSleep(volatility float64) time.Duration {
	d := sleepBase
	switch {
	case volatility > 0.05:
		d = sleepBase / 2
	case volatility < 0.02:
		d = sleepBase * 2
	}
	if d < sleepMin {
		d = sleepMin
	}
	if d > sleepMax {
		d = sleepMax
	}
	return d
}
