package retrain

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fazecat/daytrader/Internal/types"
	"github.com/fazecat/daytrader/Internal/utils/config"
)

// Model recomputes scoring thresholds from a window of closed trades.
// It must be deterministic for a given window and must return bounded
// values; the scheduler enforces versioning and publication, not the
// statistics.
type Model interface {
	Fit(window []types.ClosedTrade, prev types.ScoringThresholds) types.ScoringThresholds
}

// Scheduler owns the versioned ScoringThresholds. Retraining fires on a
// wall-clock interval or an accumulated-trade count, whichever comes
// first, and publishes the new version with an atomic swap so a tick in
// progress keeps the version it started with. Hard SL/TGT percentages
// are not part of the threshold set and can never be touched here.
type Scheduler struct {
	interval   time.Duration
	tradeCount int
	windowSize int
	model      Model

	current atomic.Value // types.ScoringThresholds

	mu              sync.Mutex
	window          []types.ClosedTrade
	tradesSinceLast int
	lastRun         time.Time
}

func NewScheduler(cfg *config.Config, model Model, now time.Time) *Scheduler {
	s := &Scheduler{
		interval:   time.Duration(cfg.Retrain.IntervalMinutes) * time.Minute,
		tradeCount: cfg.Retrain.TradeCount,
		windowSize: cfg.Retrain.WindowSize,
		model:      model,
		lastRun:    now,
	}
	s.current.Store(types.ScoringThresholds{
		Version:          1,
		EntryCutoff:      cfg.Ranker.EntryCutoff,
		HighTierScore:    0.80,
		MidTierScore:     0.50,
		TSLTightenFactor: 0.75,
		UpdatedAt:        now,
	})
	return s
}

// Current returns the thresholds in force. Callers snapshot this once
// at tick start and use the snapshot for the whole tick.
func (s *Scheduler) Current() types.ScoringThresholds {
	return s.current.Load().(types.ScoringThresholds)
}

// RecordTrade appends a closed trade to the rolling window.
func (s *Scheduler) RecordTrade(t types.ClosedTrade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.window = append(s.window, t)
	if len(s.window) > s.windowSize {
		s.window = s.window[len(s.window)-s.windowSize:]
	}
	s.tradesSinceLast++
}

// MaybeRetrain checks the triggers and, when one fires, refits and
// publishes a new threshold version. Returns true when a new version
// was published.
func (s *Scheduler) MaybeRetrain(now time.Time) bool {
	s.mu.Lock()
	due := now.Sub(s.lastRun) >= s.interval || s.tradesSinceLast >= s.tradeCount
	if !due || len(s.window) == 0 {
		s.mu.Unlock()
		return false
	}
	window := make([]types.ClosedTrade, len(s.window))
	copy(window, s.window)
	s.tradesSinceLast = 0
	s.lastRun = now
	s.mu.Unlock()

	prev := s.Current()
	next := s.model.Fit(window, prev)
	next.Version = prev.Version + 1
	next.UpdatedAt = now
	s.current.Store(next)

	log.Printf("🧠 THRESHOLDS v%d published: cutoff=%.3f high=%.2f mid=%.2f tighten=%.2f (window=%d trades)\n",
		next.Version, next.EntryCutoff, next.HighTierScore, next.MidTierScore, next.TSLTightenFactor, len(window))
	return true
}

// WinRateModel is the built-in heuristic: a poor recent win rate raises
// the entry bar, a strong one lowers it, within fixed bounds. Tier
// boundaries and the tighten factor move slowly in the same direction.
type WinRateModel struct{}

func (WinRateModel) Fit(window []types.ClosedTrade, prev types.ScoringThresholds) types.ScoringThresholds {
	next := prev

	var wins int
	for _, t := range window {
		if t.RealizedPnL > 0 {
			wins++
		}
	}
	winRate := float64(wins) / float64(len(window))

	switch {
	case winRate < 0.40:
		next.EntryCutoff += 0.02
	case winRate > 0.60:
		next.EntryCutoff -= 0.02
	}
	next.EntryCutoff = clamp(next.EntryCutoff, 0.30, 0.80)

	// Tier boundaries track the cutoff so the leverage ladder keeps its
	// shape as the bar moves.
	next.MidTierScore = clamp(next.EntryCutoff, 0.40, 0.70)
	next.HighTierScore = clamp(next.MidTierScore+0.30, 0.70, 0.95)

	if winRate < 0.40 {
		next.TSLTightenFactor = clamp(next.TSLTightenFactor-0.05, 0.50, 1.0)
	} else if winRate > 0.60 {
		next.TSLTightenFactor = clamp(next.TSLTightenFactor+0.05, 0.50, 1.0)
	}
	return next
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
