package position

import (
	"math"
	"testing"
	"time"

	"github.com/fazecat/daytrader/Internal/strategy/trailing"
	"github.com/fazecat/daytrader/Internal/types"
	"github.com/fazecat/daytrader/Internal/utils/config"
)

func newTestEvaluator() *Evaluator {
	cfg := config.Default()
	return NewEvaluator(cfg, trailing.NewEngine(cfg))
}

func openLong(entry float64) *types.Position {
	return &types.Position{
		Symbol:     "RELIANCE",
		Direction:  types.DirectionLong,
		Status:     types.StatusOpen,
		EntryPrice: entry,
		EntryTime:  time.Now(),
		Quantity:   100,
		PeakPrice:  entry,
	}
}

func openShort(entry float64) *types.Position {
	p := openLong(entry)
	p.Direction = types.DirectionShort
	return p
}

func normalState() types.SafetyState {
	return types.SafetyState{Regime: types.RegimeNormal, LeverageCap: 5.0}
}

func lowVolState() types.SafetyState {
	return types.SafetyState{Regime: types.RegimeLowVolatility, LeverageCap: 2.0}
}

func testThresholds() types.ScoringThresholds {
	return types.ScoringThresholds{Version: 1, TSLTightenFactor: 0.75}
}

func TestEvaluate_ExitLadder(t *testing.T) {
	tests := []struct {
		name       string
		pos        *types.Position
		price      float64
		forced     bool
		trend      string
		state      types.SafetyState
		wantExit   bool
		wantReason string
	}{
		{
			name: "forced end of day beats everything",
			pos: func() *types.Position {
				p := openLong(100)
				p.TrailingStop = 99.5
				return p
			}(),
			price: 97, forced: true, trend: types.TrendDown, state: normalState(),
			wantExit: true, wantReason: types.ExitEOD,
		},
		{
			name: "trend flip against a long",
			pos:  openLong(100),
			price: 100.1, trend: types.TrendDown, state: normalState(),
			wantExit: true, wantReason: types.ExitTrendFlip,
		},
		{
			name: "trend flip against a short",
			pos:  openShort(100),
			price: 99.9, trend: types.TrendUp, state: normalState(),
			wantExit: true, wantReason: types.ExitTrendFlip,
		},
		{
			name: "matching trend does not flip",
			pos:  openLong(100),
			price: 100.5, trend: types.TrendUp, state: normalState(),
			wantExit: false,
		},
		{
			name: "hard stop loss on a long",
			pos:  openLong(100),
			price: 98, trend: types.TrendFlat, state: normalState(),
			wantExit: true, wantReason: types.ExitStopLoss,
		},
		{
			name: "hard stop loss on a short",
			pos:  openShort(100),
			price: 102, trend: types.TrendFlat, state: normalState(),
			wantExit: true, wantReason: types.ExitStopLoss,
		},
		{
			name: "hard target on a long",
			pos:  openLong(100),
			price: 110, trend: types.TrendFlat, state: normalState(),
			wantExit: true, wantReason: types.ExitTarget,
		},
		{
			name: "stop loss wins over trailing stop",
			pos: func() *types.Position {
				p := openLong(100)
				p.TrailingStop = 99 // also breached at 98
				return p
			}(),
			price: 98, trend: types.TrendFlat, state: normalState(),
			wantExit: true, wantReason: types.ExitStopLoss,
		},
		{
			name: "trailing stop breach",
			pos: func() *types.Position {
				p := openLong(100)
				p.PeakPrice = 105
				p.TrailingStop = 103.95
				return p
			}(),
			price: 103, trend: types.TrendFlat, state: normalState(),
			wantExit: true, wantReason: types.ExitTrailing,
		},
		{
			name: "min profit exit in low volatility",
			pos:  openLong(100),
			price: 101.5, trend: types.TrendFlat, state: lowVolState(),
			wantExit: true, wantReason: types.ExitMinProfit,
		},
		{
			name: "small profit in normal regime stays open",
			pos:  openLong(100),
			price: 101.5, trend: types.TrendFlat, state: normalState(),
			wantExit: false,
		},
	}

	ev := newTestEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ev.Evaluate(tt.pos, tt.price, nil, time.Now(), tt.forced, tt.trend, tt.state, testThresholds())
			if d.Exit != tt.wantExit {
				t.Fatalf("exit = %v, want %v", d.Exit, tt.wantExit)
			}
			if d.Exit && d.Reason != tt.wantReason {
				t.Errorf("reason = %s, want %s", d.Reason, tt.wantReason)
			}
		})
	}
}

func TestEvaluate_PeakAndDrawdownTracking(t *testing.T) {
	ev := newTestEvaluator()
	p := openLong(100)
	now := time.Now()

	// Adverse tick inside the stop: records drawdown, arms the stop.
	d := ev.Evaluate(p, 99.2, nil, now, false, types.TrendFlat, normalState(), testThresholds())
	if d.Exit {
		t.Fatal("unexpected exit")
	}
	if p.PeakPrice != 100 {
		t.Errorf("peak = %.2f, want 100", p.PeakPrice)
	}
	if math.Abs(p.MaxDrawdownPct-0.8) > 1e-9 {
		t.Errorf("max drawdown = %.2f, want 0.8", p.MaxDrawdownPct)
	}
	if math.Abs(p.TrailingStop-99) > 1e-9 {
		t.Errorf("trailing stop = %.2f, want 99", p.TrailingStop)
	}

	// Favorable tick advances the peak and ratchets the stop up.
	d = ev.Evaluate(p, 105, nil, now, false, types.TrendFlat, normalState(), testThresholds())
	if d.Exit {
		t.Fatal("unexpected exit on rally")
	}
	if p.PeakPrice != 105 {
		t.Errorf("peak after rally = %.2f, want 105", p.PeakPrice)
	}
	if math.Abs(p.TrailingStop-105*0.99) > 1e-9 {
		t.Errorf("trailing stop after rally = %.4f, want %.4f", p.TrailingStop, 105*0.99)
	}

	// A surviving pullback keeps the old peak and the ratcheted stop.
	d = ev.Evaluate(p, 104.5, nil, now, false, types.TrendFlat, normalState(), testThresholds())
	if d.Exit {
		t.Fatal("unexpected exit on pullback above the stop")
	}
	if p.PeakPrice != 105 {
		t.Errorf("peak after pullback = %.2f, want 105", p.PeakPrice)
	}
}

func TestEvaluate_ShortPeakMovesDown(t *testing.T) {
	ev := newTestEvaluator()
	p := openShort(100)
	now := time.Now()

	ev.Evaluate(p, 99, nil, now, false, types.TrendFlat, normalState(), testThresholds())
	if p.PeakPrice != 99 {
		t.Errorf("short peak = %.2f, want 99", p.PeakPrice)
	}

	ev.Evaluate(p, 99.5, nil, now, false, types.TrendFlat, normalState(), testThresholds())
	if p.PeakPrice != 99 {
		t.Errorf("short peak after bounce = %.2f, want 99", p.PeakPrice)
	}
}

func TestClosedTrade_PnLRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		direction string
		entry     float64
		exit      float64
		qty       int64
		wantPnL   float64
	}{
		{"long winner", types.DirectionLong, 100, 104, 250, 1000},
		{"long loser", types.DirectionLong, 100, 98, 250, -500},
		{"short winner", types.DirectionShort, 200, 194, 100, 600},
		{"short loser", types.DirectionShort, 200, 203, 100, -300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &types.Position{
				TradeID:    "t1",
				Symbol:     "X",
				Direction:  tt.direction,
				Status:     types.StatusClosed,
				EntryPrice: tt.entry,
				ExitPrice:  tt.exit,
				Quantity:   tt.qty,
			}
			closed := types.NewClosedTrade(p)
			if closed.RealizedPnL != tt.wantPnL {
				t.Errorf("pnl = %.2f, want %.2f", closed.RealizedPnL, tt.wantPnL)
			}
			// The archived record carries enough to recompute independently.
			recomputed := (closed.ExitPrice - closed.EntryPrice) * float64(closed.Quantity)
			if closed.Direction == types.DirectionShort {
				recomputed = -recomputed
			}
			if recomputed != closed.RealizedPnL {
				t.Errorf("recomputed pnl %.2f != recorded %.2f", recomputed, closed.RealizedPnL)
			}
		})
	}
}
