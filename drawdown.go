// FILE: drawdown.go
// Package main – Drawdown guard: baseline tracking and pause hysteresis.
//
// The guard captures a session-start balance baseline per tracked asset and,
// on every refresh, flips a per-asset pause flag with hysteresis:
//   • change < −10%  → paused
//   • change > −1%   → resumed
//   • in between     → flag keeps its previous value
//
// Flags persist across iterations; they live here (not as package globals)
// so the loop can be tested in isolation.
package main

const (
	pauseThresholdPct  = -10.0
	resumeThresholdPct = -1.0
)

type drawdownGuard struct {
	baseline map[string]float64
	paused   map[string]bool
	change   map[string]float64
}

// newDrawdownGuard captures the baseline total (free+locked) for each tracked
// asset from the session-start snapshot.
func newDrawdownGuard(initial BalanceSnapshot, assets ...string) *drawdownGuard {
	g := &drawdownGuard{
		baseline: make(map[string]float64, len(assets)),
		paused:   make(map[string]bool, len(assets)),
		change:   make(map[string]float64, len(assets)),
	}
	for _, a := range assets {
		g.baseline[a] = initial[a].Total()
	}
	return g
}

// Update recomputes each asset's percentage change from baseline and applies
// the hysteresis rule.
func (g *drawdownGuard) Update(current BalanceSnapshot) {
	for asset, base := range g.baseline {
		ch := percentageChange(base, current[asset].Total())
		g.change[asset] = ch
		switch {
		case ch < pauseThresholdPct:
			g.paused[asset] = true
		case ch > resumeThresholdPct:
			g.paused[asset] = false
		}
	}
}

// Paused reports whether quoting backed by this asset is paused.
func (g *drawdownGuard) Paused(asset string) bool { return g.paused[asset] }

// Change returns the last computed percentage change for an asset.
func (g *drawdownGuard) Change(asset string) float64 { return g.change[asset] }

// percentageChange returns the percent move from initial to current.
// A zero baseline reports 0 (nothing to draw down from).
func percentageChange(initial, current float64) float64 {
	if initial == 0 {
		return 0
	}
	return (current - initial) / initial * 100
}
