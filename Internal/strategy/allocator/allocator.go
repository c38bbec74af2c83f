package allocator

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/fazecat/daytrader/Internal/broker"
	"github.com/fazecat/daytrader/Internal/strategy/safety"
	"github.com/fazecat/daytrader/Internal/types"
	"github.com/fazecat/daytrader/Internal/utils/config"
)

// Allocator decides who gets capital. It sizes entries off the score's
// leverage tier, displaces the weakest holder when a clearly better
// candidate arrives, and recycles freed capital within the same tick.
type Allocator struct {
	perTradePct        float64
	maxPositions       int
	displacementMargin float64
	cooldown           time.Duration

	portfolio *Portfolio
	gate      *safety.Gate
	exec      broker.Executor

	// displacement budget for the current tick, reset by BeginTick
	displacedThisTick int
}

func New(cfg *config.Config, pf *Portfolio, gate *safety.Gate, exec broker.Executor) *Allocator {
	return &Allocator{
		perTradePct:        cfg.Capital.PerTradePct,
		maxPositions:       cfg.Capital.MaxActivePositions,
		displacementMargin: cfg.Capital.DisplacementMargin,
		cooldown:           time.Duration(cfg.Capital.CooldownSeconds) * time.Second,
		portfolio:          pf,
		gate:               gate,
		exec:               exec,
	}
}

func (a *Allocator) Portfolio() *Portfolio { return a.portfolio }

// BeginTick resets the per-tick displacement budget. One displacement
// per tick keeps churn bounded when scores are noisy.
func (a *Allocator) BeginTick() {
	a.displacedThisTick = 0
}

// Admission is the outcome of a TryAdmit call.
type Admission struct {
	Opened    *types.Position
	Displaced *types.ClosedTrade
}

// TryAdmit attempts to open a position for the candidate at the current
// price. It never opens more than the position limit, never commits
// more capital than exists, and sizes by the score's effective leverage.
// Returns a nil Opened when the candidate is rejected.
func (a *Allocator) TryAdmit(ctx context.Context, c types.Candidate, price float64, now time.Time, state types.SafetyState, th types.ScoringThresholds) (Admission, error) {
	var adm Admission

	if price <= 0 {
		return adm, nil
	}
	if state.CrashActive {
		return adm, nil
	}
	if _, held := a.portfolio.Position(c.Symbol); held {
		return adm, nil
	}
	if a.portfolio.InCooldown(c.Symbol, now) {
		return adm, nil
	}

	leverage := a.gate.EffectiveLeverage(c.Score, th, state)
	if leverage <= 0 {
		return adm, nil
	}

	committed := a.portfolio.TotalCapital() * a.perTradePct / 100 * leverage

	if a.portfolio.OpenCount() >= a.maxPositions || committed > a.portfolio.Available() {
		closed, err := a.tryDisplace(ctx, c, now)
		if err != nil {
			return adm, err
		}
		if closed == nil {
			return adm, nil
		}
		adm.Displaced = closed
		// Re-check: one freed slot may still not cover the commit.
		if a.portfolio.OpenCount() >= a.maxPositions || committed > a.portfolio.Available() {
			return adm, nil
		}
	}

	qty := int64(math.Floor(committed / price))
	if qty <= 0 {
		return adm, nil
	}

	fill, err := a.exec.Fill(ctx, c.Symbol, c.Direction, qty, price, now)
	if err != nil {
		return adm, fmt.Errorf("entry fill for %s: %w", c.Symbol, err)
	}

	p := &types.Position{
		TradeID:          uuid.NewString(),
		Symbol:           c.Symbol,
		Direction:        c.Direction,
		Status:           types.StatusOpen,
		EntryPrice:       fill.Price,
		EntryTime:        fill.Time,
		Quantity:         fill.Quantity,
		CapitalCommitted: committed,
		Leverage:         leverage,
		ScoreAtEntry:     c.Score,
		SentimentAtEntry: c.Sentiment,
		ThresholdVersion: th.Version,
		CurrentPrice:     fill.Price,
		PeakPrice:        fill.Price,
	}
	if price > 0 {
		p.SlippagePct = (fill.Price - price) / price * 100
	}
	a.portfolio.add(p)
	adm.Opened = p

	log.Printf("✅ ENTRY %s %s qty=%d @ %.2f lev=%.1fx committed=%.2f score=%.3f\n",
		p.Direction, p.Symbol, p.Quantity, p.EntryPrice, p.Leverage, p.CapitalCommitted, p.ScoreAtEntry)
	return adm, nil
}

// tryDisplace closes the weakest open position when the incoming score
// beats it by strictly more than the margin. At most one displacement
// per tick.
func (a *Allocator) tryDisplace(ctx context.Context, c types.Candidate, now time.Time) (*types.ClosedTrade, error) {
	if a.displacedThisTick >= 1 {
		return nil, nil
	}
	weakest := a.portfolio.Weakest()
	if weakest == nil {
		return nil, nil
	}
	if !(c.Score > weakest.ScoreAtEntry+a.displacementMargin) {
		return nil, nil
	}

	closed, err := a.Close(ctx, weakest.Symbol, weakest.CurrentPrice, types.ExitReplaced, now)
	if err != nil {
		return nil, err
	}
	if closed != nil {
		a.displacedThisTick++
		log.Printf("🔄 DISPLACED %s (score %.3f) for %s (score %.3f)\n",
			closed.Symbol, closed.ScoreAtEntry, c.Symbol, c.Score)
	}
	return closed, nil
}

// Close exits a position at the decision price via the executor,
// releases its capital immediately and starts the re-entry cooldown.
func (a *Allocator) Close(ctx context.Context, symbol string, decisionPrice float64, reason string, now time.Time) (*types.ClosedTrade, error) {
	p, ok := a.portfolio.Position(symbol)
	if !ok {
		return nil, nil
	}

	side := types.DirectionShort
	if p.Direction == types.DirectionShort {
		side = types.DirectionLong
	}
	fill, err := a.exec.Fill(ctx, symbol, side, p.Quantity, decisionPrice, now)
	if err != nil {
		return nil, fmt.Errorf("exit fill for %s: %w", symbol, err)
	}

	a.portfolio.remove(symbol)
	p.Status = types.StatusClosed
	p.ExitPrice = fill.Price
	p.ExitTime = fill.Time
	p.ExitReason = reason

	closed := types.NewClosedTrade(p)
	a.portfolio.SetCooldown(symbol, now.Add(a.cooldown))

	log.Printf("🏁 EXIT %s %s qty=%d @ %.2f reason=%s pnl=%.2f (%.2f%%)\n",
		p.Direction, p.Symbol, p.Quantity, p.ExitPrice, reason, closed.RealizedPnL, closed.ReturnPct())
	return &closed, nil
}
