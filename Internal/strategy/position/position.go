package position

import (
	"time"

	"github.com/fazecat/daytrader/Internal/strategy/trailing"
	"github.com/fazecat/daytrader/Internal/types"
	"github.com/fazecat/daytrader/Internal/utils/config"
)

// Evaluator decides, once per tick per open position, whether the
// position exits and for which reason. Conditions are checked in a
// fixed priority order and the first hit wins, so a tick that breaches
// both the hard stop and the trailing stop always reports SL.
type Evaluator struct {
	slPct        float64
	tgtPct       float64
	minProfitPct float64
	trail        *trailing.Engine
}

func NewEvaluator(cfg *config.Config, trail *trailing.Engine) *Evaluator {
	return &Evaluator{
		slPct:        cfg.Exits.StopLossPct,
		tgtPct:       cfg.Exits.TargetPct,
		minProfitPct: cfg.Exits.MinProfitFloorPct,
		trail:        trail,
	}
}

// Decision carries the exit verdict for one position on one tick.
type Decision struct {
	Exit   bool
	Reason string
}

// Evaluate applies the exit ladder to an open position at the given
// price. When no exit fires it advances the peak tracker, the drawdown
// tracker and the trailing level, in that order: the trailing check
// itself always runs against the level from before this tick's peak
// update.
func (ev *Evaluator) Evaluate(p *types.Position, price float64, bars []types.Bar, now time.Time, forcedExit bool, trend string, state types.SafetyState, th types.ScoringThresholds) Decision {
	ret := p.UnrealizedReturnPct(price)
	p.CurrentPrice = price

	switch {
	case forcedExit:
		return Decision{Exit: true, Reason: types.ExitEOD}
	case ev.trendFlipped(p, trend):
		return Decision{Exit: true, Reason: types.ExitTrendFlip}
	case ret <= -ev.slPct:
		return Decision{Exit: true, Reason: types.ExitStopLoss}
	case ret >= ev.tgtPct:
		return Decision{Exit: true, Reason: types.ExitTarget}
	case trailing.Breached(p, price):
		return Decision{Exit: true, Reason: types.ExitTrailing}
	case state.Regime == types.RegimeLowVolatility && ret >= ev.minProfitPct:
		return Decision{Exit: true, Reason: types.ExitMinProfit}
	}

	ev.track(p, price, ret)
	ev.trail.Update(p, bars, now, state, th)
	return Decision{}
}

func (ev *Evaluator) trendFlipped(p *types.Position, trend string) bool {
	switch p.Direction {
	case types.DirectionLong:
		return trend == types.TrendDown
	case types.DirectionShort:
		return trend == types.TrendUp
	}
	return false
}

// track advances the peak-favorable-price and max-drawdown trackers.
func (ev *Evaluator) track(p *types.Position, price, ret float64) {
	if p.Direction == types.DirectionLong {
		if price > p.PeakPrice {
			p.PeakPrice = price
		}
	} else {
		if price < p.PeakPrice || p.PeakPrice == 0 {
			p.PeakPrice = price
		}
	}
	if ret < 0 && -ret > p.MaxDrawdownPct {
		p.MaxDrawdownPct = -ret
	}
}
