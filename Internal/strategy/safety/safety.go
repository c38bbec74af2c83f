package safety

import (
	"log"

	"github.com/fazecat/daytrader/Internal/types"
	"github.com/fazecat/daytrader/Internal/utils/config"
)

// Leverage tiers by candidate score. The high tier equals MaxLeverage.
const (
	TierMidLeverage = 3.5
	TierLowLeverage = 1.0

	// LowVolLeverageCap is the gate-wide cap under a LOW_VOLATILITY
	// regime. Crash caps to zero.
	LowVolLeverageCap = 2.0
)

// Gate recomputes the SafetyState every tick from market-wide inputs.
// It owns the rolling index window and the session drawdown tracker;
// everything else reads the state value it produces.
type Gate struct {
	lookback      int
	lowVolRange   float64
	crashDraw     float64
	maxLeverage   float64
	unwindPerTick int

	indexWindow []float64
	sessionHigh float64
	crashActive bool
}

func NewGate(cfg *config.Config) *Gate {
	return &Gate{
		lookback:      cfg.Safety.LowVolLookbackTicks,
		lowVolRange:   cfg.Safety.LowVolRangePct,
		crashDraw:     cfg.Safety.CrashDrawdownPct,
		maxLeverage:   cfg.Capital.MaxLeverage,
		unwindPerTick: cfg.Safety.UnwindPerTick,
	}
}

// ResetSession clears intraday trackers at the start of a trading day.
func (g *Gate) ResetSession() {
	g.indexWindow = g.indexWindow[:0]
	g.sessionHigh = 0
	g.crashActive = false
}

// Evaluate classifies the tick. indexKnown=false leaves the previous
// crash/regime inputs untouched rather than inventing an index level.
func (g *Gate) Evaluate(indexLevel float64, indexKnown, shortSession, degraded bool) types.SafetyState {
	if indexKnown && indexLevel > 0 {
		g.indexWindow = append(g.indexWindow, indexLevel)
		if len(g.indexWindow) > g.lookback {
			g.indexWindow = g.indexWindow[len(g.indexWindow)-g.lookback:]
		}
		if indexLevel > g.sessionHigh {
			g.sessionHigh = indexLevel
		}
	}

	regime := types.RegimeNormal
	if g.lowVolatility() {
		regime = types.RegimeLowVolatility
	}

	wasCrash := g.crashActive
	g.crashActive = g.drawdownPct() > g.crashDraw
	if g.crashActive && !wasCrash {
		log.Printf("🚨 CRASH GUARD TRIPPED: index drawdown %.2f%% exceeds %.2f%%\n",
			g.drawdownPct(), g.crashDraw)
	}

	state := types.SafetyState{
		Regime:       regime,
		CrashActive:  g.crashActive,
		ShortSession: shortSession,
		Degraded:     degraded,
	}
	state.LeverageCap = g.leverageCap(state)
	return state
}

func (g *Gate) lowVolatility() bool {
	if len(g.indexWindow) < g.lookback {
		return false
	}
	low, high := g.indexWindow[0], g.indexWindow[0]
	for _, v := range g.indexWindow {
		if v < low {
			low = v
		}
		if v > high {
			high = v
		}
	}
	if low == 0 {
		return false
	}
	return (high-low)/low*100 < g.lowVolRange
}

func (g *Gate) drawdownPct() float64 {
	if g.sessionHigh == 0 || len(g.indexWindow) == 0 {
		return 0
	}
	current := g.indexWindow[len(g.indexWindow)-1]
	return (g.sessionHigh - current) / g.sessionHigh * 100
}

func (g *Gate) leverageCap(state types.SafetyState) float64 {
	switch {
	case state.CrashActive:
		return 0
	case state.Regime == types.RegimeLowVolatility:
		return LowVolLeverageCap
	default:
		return g.maxLeverage
	}
}

// LeverageTier maps a candidate score to its leverage tier using the
// current threshold version's tier boundaries.
func (g *Gate) LeverageTier(score float64, th types.ScoringThresholds) float64 {
	switch {
	case score >= th.HighTierScore:
		return g.maxLeverage
	case score >= th.MidTierScore:
		return TierMidLeverage
	default:
		return TierLowLeverage
	}
}

// EffectiveLeverage is the tier capped by the gate-wide cap.
func (g *Gate) EffectiveLeverage(score float64, th types.ScoringThresholds, state types.SafetyState) float64 {
	tier := g.LeverageTier(score, th)
	if tier > state.LeverageCap {
		return state.LeverageCap
	}
	return tier
}

// UnwindPerTick is how many positions the crash unwind closes per tick.
func (g *Gate) UnwindPerTick() int {
	if g.unwindPerTick <= 0 {
		return 1
	}
	return g.unwindPerTick
}
