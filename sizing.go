// FILE: sizing.go
// Package main – Order sizing and ladder spacing policies.
//
// This file implements the numeric policies behind each quoting pass:
//   • totalOrderSize(vol, max, min, available, riskFraction)
//       – volatility-shrunk per-side total, clamped to [min, max]
//   • ladderSplit(total, n)
//       – decaying per-level weights (30% first, geometric 0.7 tail)
//   • priceStep(level, base)
//       – widening step schedule for deeper ladder levels
//
// Notes
//   - ladderSplit is a weighting scheme, not a partition: the levels do not
//     sum to total. Downstream code treats the values as per-level sizes.
//   - Keep these fast and allocation-light; they run every iteration.
package main

// totalOrderSize returns the per-side ladder total in asset units.
//
// available is the balance committed to this side: the base free balance for
// sells, or the quote free balance converted at the reference price for buys.
// Higher volatility shrinks the raw size via 1/(vol+1); the result is clamped
// so it always lands in [minSize, maxSize] (maxSize first capped at the
// risk-adjusted balance).
func totalOrderSize(volatility, maxSize, minSize, available, riskFraction float64) float64 {
	if riskFraction <= 0 || riskFraction > 1 {
		riskFraction = 1
	}
	risk := available * riskFraction
	if maxSize > risk {
		maxSize = risk
	}

	adj := 1 / (volatility + 1)
	raw := risk * adj

	if raw < minSize {
		raw = minSize
	}
	if raw > maxSize {
		raw = maxSize
	}
	return raw
}

// ladderSplit splits total into n decaying per-level sizes. Level 0 gets 30%
// of total; every deeper level gets 30% of what the geometric 0.7 tail says
// remains. The sequence is strictly decreasing and intentionally does not
// sum to total.
func ladderSplit(total float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	sizes := make([]float64, n)
	sizes[0] = total * 0.3
	remaining := 0.7
	for i := 1; i < n; i++ {
		sizes[i] = total * remaining * 0.3
		remaining *= 0.7
	}
	return sizes
}

// priceStep returns the fractional price-step percentage for a ladder level.
// Levels 0–8 use the base step; 9–11 widen to 2.5x; 12 and deeper to 4x, so
// far levels space out faster and concentrate less capital away from the touch.
func priceStep(level int, baseStep float64) float64 {
	switch {
	case level >= 12:
		return baseStep * 4
	case level >= 9:
		return baseStep * 2.5
	default:
		return baseStep
	}
}
