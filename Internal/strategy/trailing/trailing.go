package trailing

import (
	"math"
	"time"

	"github.com/fazecat/daytrader/Internal/types"
	"github.com/fazecat/daytrader/Internal/utils/config"
)

// Engine recomputes the trailing-stop level for every open position on
// every tick. The computed width starts at the configured floor, widens
// with recent realized volatility, and tightens with trade duration and
// a LOW_VOLATILITY regime. The width never drops below the floor, and
// the published level only ever ratchets toward the price.
type Engine struct {
	floorPct       float64
	volLookback    int
	volWidenFactor float64
	tightenAfter   []time.Duration
	tightenStepPct float64
}

func NewEngine(cfg *config.Config) *Engine {
	e := &Engine{
		floorPct:       cfg.Exits.TrailingFloorPct,
		volLookback:    cfg.Trailing.VolLookbackTicks,
		volWidenFactor: cfg.Trailing.VolWidenFactor,
		tightenStepPct: cfg.Trailing.TightenStepPct,
	}
	for _, m := range cfg.Trailing.TightenAfterMinutes {
		e.tightenAfter = append(e.tightenAfter, time.Duration(m)*time.Minute)
	}
	return e
}

// realizedVolPct is the mean absolute one-tick close-over-close move in
// percent across the lookback window.
func (e *Engine) realizedVolPct(bars []types.Bar) float64 {
	if len(bars) < 2 {
		return 0
	}
	start := len(bars) - e.volLookback - 1
	if start < 0 {
		start = 0
	}
	window := bars[start:]

	var sum float64
	var n int
	for i := 1; i < len(window); i++ {
		prev := window[i-1].Close
		if prev == 0 {
			continue
		}
		sum += math.Abs((window[i].Close - prev) / prev * 100)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Width computes the trailing distance in percent for a position at the
// given moment. Clamped to the floor: the stop may tighten toward 1%
// but never through it.
func (e *Engine) Width(p *types.Position, bars []types.Bar, now time.Time, state types.SafetyState, th types.ScoringThresholds) float64 {
	width := e.floorPct + e.realizedVolPct(bars)*e.volWidenFactor

	elapsed := now.Sub(p.EntryTime)
	breakpoints := e.tightenAfter
	if state.ShortSession {
		// Shortened sessions hit every breakpoint at half the elapsed
		// time so stops tighten sooner.
		elapsed *= 2
	}
	for _, bp := range breakpoints {
		if elapsed >= bp {
			width -= e.tightenStepPct
		}
	}

	if state.Regime == types.RegimeLowVolatility && th.TSLTightenFactor > 0 {
		width *= th.TSLTightenFactor
	}

	if width < e.floorPct {
		width = e.floorPct
	}
	return width
}

// Update recomputes the position's trailing level and ratchets it.
// For a long the stop only moves up as the peak advances; for a short
// only down. A computation that would loosen the stop is clamped to the
// previous value. Returns the level in force after the update.
func (e *Engine) Update(p *types.Position, bars []types.Bar, now time.Time, state types.SafetyState, th types.ScoringThresholds) float64 {
	width := e.Width(p, bars, now, state, th)

	var level float64
	if p.Direction == types.DirectionLong {
		level = p.PeakPrice * (1 - width/100)
		if p.TrailingStop != 0 && level < p.TrailingStop {
			level = p.TrailingStop
		}
	} else {
		level = p.PeakPrice * (1 + width/100)
		if p.TrailingStop != 0 && level > p.TrailingStop {
			level = p.TrailingStop
		}
	}

	p.TrailingStop = level
	return level
}

// Breached reports whether the price has crossed the stop against the
// position.
func Breached(p *types.Position, price float64) bool {
	if p.TrailingStop == 0 {
		return false
	}
	if p.Direction == types.DirectionLong {
		return price <= p.TrailingStop
	}
	return price >= p.TrailingStop
}
