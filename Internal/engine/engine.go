package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/fazecat/daytrader/Internal/marketdata"
	"github.com/fazecat/daytrader/Internal/metrics"
	"github.com/fazecat/daytrader/Internal/sentiment"
	"github.com/fazecat/daytrader/Internal/session"
	"github.com/fazecat/daytrader/Internal/strategy/allocator"
	"github.com/fazecat/daytrader/Internal/strategy/position"
	"github.com/fazecat/daytrader/Internal/strategy/ranker"
	"github.com/fazecat/daytrader/Internal/strategy/retrain"
	"github.com/fazecat/daytrader/Internal/strategy/safety"
	"github.com/fazecat/daytrader/Internal/types"
	"github.com/fazecat/daytrader/Internal/utils/config"
)

// Archiver receives closed trades and degradation events. The database
// store satisfies it in live mode; replay runs may use NopArchiver.
type Archiver interface {
	ArchiveTrade(ctx context.Context, t types.ClosedTrade) error
	RecordDegradation(ctx context.Context, d types.Degradation) error
}

type NopArchiver struct{}

func (NopArchiver) ArchiveTrade(context.Context, types.ClosedTrade) error       { return nil }
func (NopArchiver) RecordDegradation(context.Context, types.Degradation) error { return nil }

// Engine drives the tick loop. Ticks are processed strictly one at a
// time; within a tick the evaluation order is fixed: safety update,
// exit pass, capital return, ranking, admissions. Replay and live mode
// run this exact code against different feeds.
type Engine struct {
	cfg       *config.Config
	gate      *session.Gate
	safety    *safety.Gate
	ranker    *ranker.Ranker
	evaluator *position.Evaluator
	alloc     *allocator.Allocator
	scheduler *retrain.Scheduler
	sentiment sentiment.Source
	archiver  Archiver

	universe []string
	history  map[string][]types.Bar

	historyCap        int
	staleSuspendTicks int

	calendarDegraded bool
	sessionPnL       float64
	tradesClosed     int
	closedTrades     []types.ClosedTrade
}

func New(cfg *config.Config, gate *session.Gate, sg *safety.Gate, rk *ranker.Ranker,
	ev *position.Evaluator, al *allocator.Allocator, sched *retrain.Scheduler,
	src sentiment.Source, archiver Archiver) *Engine {

	if archiver == nil {
		archiver = NopArchiver{}
	}
	return &Engine{
		cfg:               cfg,
		gate:              gate,
		safety:            sg,
		ranker:            rk,
		evaluator:         ev,
		alloc:             al,
		scheduler:         sched,
		sentiment:         src,
		archiver:          archiver,
		history:           make(map[string][]types.Bar),
		historyCap:        180,
		staleSuspendTicks: cfg.Data.StaleEntrySuspendTicks,
	}
}

// SessionPnL is the cumulative realized PnL since the session started.
func (e *Engine) SessionPnL() float64 { return e.sessionPnL }

func (e *Engine) TradesClosed() int { return e.tradesClosed }

// ClosedTrades returns the trades closed during the current session.
func (e *Engine) ClosedTrades() []types.ClosedTrade { return e.closedTrades }

// RunSession consumes the feed until it is exhausted, the day is over,
// or the context is cancelled. Cancellation finishes the tick in
// progress (the exit pass must never be cut short) and never force-
// closes positions.
func (e *Engine) RunSession(ctx context.Context, feed marketdata.Feed, universe marketdata.UniverseProvider, day time.Time) error {
	trading, degraded := e.gate.IsTradingDay(ctx, day)
	e.calendarDegraded = degraded
	if degraded {
		e.recordDegradation(ctx, types.Degradation{
			Time: day, Kind: "CALENDAR_FALLBACK",
			Details: "holiday calendar unreachable, using fallback list",
		})
	}
	if !trading {
		log.Printf("📅 %s is not a trading day, session skipped\n", day.Format("2006-01-02"))
		return nil
	}

	short := e.gate.IsShortSessionDay(day)
	e.gate.SetShortSession(short)
	if short {
		log.Printf("⏳ %s is a short session, entry window closes early\n", day.Format("2006-01-02"))
	}

	symbols, err := universe.Symbols(ctx, day)
	if err != nil {
		return fmt.Errorf("failed to load symbol universe: %w", err)
	}
	e.universe = symbols
	e.history = make(map[string][]types.Bar, len(symbols))
	e.safety.ResetSession()
	e.sessionPnL = 0
	e.tradesClosed = 0
	e.closedTrades = nil

	log.Printf("🟢 Session %s: %d symbols in universe\n", day.Format("2006-01-02"), len(symbols))

	for {
		snap, err := feed.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Printf("🔚 Feed exhausted, session %s complete\n", day.Format("2006-01-02"))
				return nil
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			return fmt.Errorf("feed error: %w", err)
		}

		e.ProcessTick(ctx, snap)

		// Day is over once the forced-exit boundary has passed and the
		// book is flat.
		if e.gate.IsForcedExit(snap.Time) && e.alloc.Portfolio().OpenCount() == 0 {
			log.Printf("🔚 Session %s complete: pnl=%.2f trades=%d\n",
				day.Format("2006-01-02"), e.sessionPnL, e.tradesClosed)
			return nil
		}

		if ctx.Err() != nil {
			// The tick above ran to completion, including its exit pass.
			return ctx.Err()
		}
	}
}

// ProcessTick evaluates one snapshot. All I/O for the tick (sentiment)
// happens up front; the evaluation itself never blocks.
func (e *Engine) ProcessTick(ctx context.Context, snap marketdata.Snapshot) {
	metrics.TicksProcessed.Inc()
	e.alloc.BeginTick()

	// Threshold snapshot: the whole tick runs on one version even if a
	// retrain publishes mid-flight.
	th := e.scheduler.Current()

	sentiments, sentimentDegraded := e.sentiment.Scores(ctx, e.universe)
	for _, sym := range sentimentDegraded {
		e.recordDegradation(ctx, types.Degradation{
			Time: snap.Time, Kind: "SENTIMENT_TIMEOUT", Symbol: sym,
			Details: "sentiment unavailable, degraded to fallback",
		})
	}

	e.appendHistory(snap)

	forcedExit := e.gate.IsForcedExit(snap.Time)
	state := e.safety.Evaluate(snap.IndexLevel, snap.IndexKnown, e.gate.ShortSession(), e.calendarDegraded)

	e.runExitPass(ctx, snap, state, th, forcedExit)

	if !forcedExit && e.gate.IsEntryAllowed(snap.Time) && !state.CrashActive {
		e.runAdmissions(ctx, snap, state, th, sentiments)
	}

	if e.scheduler.MaybeRetrain(snap.Time) {
		metrics.ThresholdVersion.Set(float64(e.scheduler.Current().Version))
	}

	pf := e.alloc.Portfolio()
	metrics.OpenPositions.Set(float64(pf.OpenCount()))
	metrics.CommittedCapital.Set(pf.Committed())
	metrics.RealizedPnL.Set(e.sessionPnL)
	metrics.LeverageCap.Set(state.LeverageCap)
	if state.CrashActive {
		metrics.CrashActive.Set(1)
	} else {
		metrics.CrashActive.Set(0)
	}
}

// appendHistory extends the rolling bar history with this tick's fresh
// bars. Carried-forward quotes do not append: a stale symbol's history
// stays where it was.
func (e *Engine) appendHistory(snap marketdata.Snapshot) {
	for sym, q := range snap.Quotes {
		if q.StaleTicks > 0 {
			continue
		}
		bars := append(e.history[sym], q.Bar)
		if len(bars) > e.historyCap {
			bars = bars[len(bars)-e.historyCap:]
		}
		e.history[sym] = bars
	}
}

// runExitPass evaluates every open position exactly once. Crash unwind
// drains the highest-risk positions first, a bounded number per tick;
// the remaining positions go through the normal exit ladder.
func (e *Engine) runExitPass(ctx context.Context, snap marketdata.Snapshot, state types.SafetyState, th types.ScoringThresholds, forcedExit bool) {
	pf := e.alloc.Portfolio()
	unwound := make(map[string]bool)

	if state.CrashActive {
		prices := make(map[string]float64, len(snap.Quotes))
		for sym, q := range snap.Quotes {
			if q.StaleTicks == 0 {
				prices[sym] = q.LastPrice
			}
		}
		queue := safety.BuildUnwindQueue(pf.OpenPositions(), prices)
		for i := 0; i < e.safety.UnwindPerTick(); i++ {
			sym, ok := queue.Pop()
			if !ok {
				break
			}
			e.closePosition(ctx, sym, prices[sym], types.ExitCrashUnwind, snap.Time)
			unwound[sym] = true
		}
	}

	for _, p := range pf.OpenPositions() {
		if unwound[p.Symbol] {
			continue
		}
		q, ok := snap.Quotes[p.Symbol]
		if !ok || q.StaleTicks > 0 {
			// No fresh price: hold last-known state, never treat the
			// gap as a favorable move.
			detail := "no quote for open position"
			if ok {
				detail = fmt.Sprintf("no fresh price for open position (stale %d ticks)", q.StaleTicks)
			}
			e.recordDegradation(ctx, types.Degradation{
				Time: snap.Time, Kind: "DATA_GAP", Symbol: p.Symbol,
				Details: detail,
			})
			continue
		}

		trend := e.ranker.Trend(e.history[p.Symbol])
		d := e.evaluator.Evaluate(p, q.LastPrice, e.history[p.Symbol], snap.Time, forcedExit, trend, state, th)
		if d.Exit {
			e.closePosition(ctx, p.Symbol, q.LastPrice, d.Reason, snap.Time)
		}
	}
}

// runAdmissions walks the tick's candidate ranking and offers each one
// to the allocator. Freed capital from this tick's exits is already
// available here.
func (e *Engine) runAdmissions(ctx context.Context, snap marketdata.Snapshot, state types.SafetyState, th types.ScoringThresholds, sentiments map[string]float64) {
	ranking := e.ranker.Rank(e.universe, e.history, sentiments, th.EntryCutoff, snap.Time)

	for {
		c, ok := ranking.Next()
		if !ok {
			break
		}
		q, ok := snap.Quotes[c.Symbol]
		if !ok {
			continue
		}
		if q.StaleTicks > e.staleSuspendTicks {
			continue
		}

		adm, err := e.alloc.TryAdmit(ctx, c, q.LastPrice, snap.Time, state, th)
		if err != nil {
			log.Printf("❌ Entry failed for %s: %v\n", c.Symbol, err)
			e.recordDegradation(ctx, types.Degradation{
				Time: snap.Time, Kind: "EXECUTION_TIMEOUT", Symbol: c.Symbol,
				Details: err.Error(),
			})
			continue
		}
		if adm.Displaced != nil {
			e.recordClosed(ctx, *adm.Displaced)
		}
		if adm.Opened != nil {
			metrics.EntriesAdmitted.Inc()
		}
	}
}

func (e *Engine) closePosition(ctx context.Context, symbol string, price float64, reason string, now time.Time) {
	closed, err := e.alloc.Close(ctx, symbol, price, reason, now)
	if err != nil {
		log.Printf("❌ Exit failed for %s: %v\n", symbol, err)
		e.recordDegradation(ctx, types.Degradation{
			Time: now, Kind: "EXECUTION_TIMEOUT", Symbol: symbol,
			Details: err.Error(),
		})
		return
	}
	if closed != nil {
		e.recordClosed(ctx, *closed)
	}
}

func (e *Engine) recordClosed(ctx context.Context, t types.ClosedTrade) {
	e.sessionPnL += t.RealizedPnL
	e.tradesClosed++
	e.closedTrades = append(e.closedTrades, t)
	e.scheduler.RecordTrade(t)
	metrics.TradesClosed.WithLabelValues(t.ExitReason).Inc()

	if err := e.archiver.ArchiveTrade(ctx, t); err != nil {
		log.Printf("⚠️  Failed to archive trade %s: %v\n", t.TradeID, err)
	}
}

func (e *Engine) recordDegradation(ctx context.Context, d types.Degradation) {
	metrics.Degradations.WithLabelValues(d.Kind).Inc()
	log.Printf("⚠️  DEGRADED %s %s: %s\n", d.Kind, d.Symbol, d.Details)
	if err := e.archiver.RecordDegradation(ctx, d); err != nil {
		log.Printf("⚠️  Failed to record degradation: %v\n", err)
	}
}
