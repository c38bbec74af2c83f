package ranker

import (
	"math"
	"sort"
	"time"

	"github.com/fazecat/daytrader/Internal/types"
	"github.com/fazecat/daytrader/Internal/utils/config"
)

// Ranker turns raw per-symbol features into a scored, ordered candidate
// list. It is stateless across ticks: every call re-ranks from scratch so
// replay and live runs produce identical orderings from identical inputs.
type Ranker struct {
	weights struct {
		momentum  float64
		volume    float64
		sentiment float64
		circuit   float64
	}
	vetoBuy       float64
	vetoSell      float64
	trendLookback int
	trendFlipPct  float64
}

func NewRanker(cfg *config.Config) *Ranker {
	r := &Ranker{
		vetoBuy:       cfg.Ranker.SentimentVetoBuy,
		vetoSell:      cfg.Ranker.SentimentVetoSell,
		trendLookback: cfg.Ranker.TrendLookbackTicks,
		trendFlipPct:  cfg.Ranker.TrendFlipThresholdPct,
	}
	r.weights.momentum = cfg.Ranker.Weights.Momentum
	r.weights.volume = cfg.Ranker.Weights.Volume
	r.weights.sentiment = cfg.Ranker.Weights.Sentiment
	r.weights.circuit = cfg.Ranker.Weights.Circuit
	return r
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Features are the raw signal components for one symbol on one tick.
type Features struct {
	MomentumPct        float64 // close-over-close change across the trend lookback, percent
	VolumeRatio        float64 // current volume / rolling average volume
	Sentiment          float64 // [-1, 1]
	CircuitDistancePct float64 // distance from the day's extreme, percent
}

// ComputeFeatures derives the tick's features from recent bars. Returns
// false when there is not enough history to score the symbol.
func (r *Ranker) ComputeFeatures(bars []types.Bar, sentimentScore float64) (Features, bool) {
	if len(bars) < r.trendLookback+1 {
		return Features{}, false
	}

	last := bars[len(bars)-1]
	ref := bars[len(bars)-1-r.trendLookback]
	if ref.Close == 0 || last.Close == 0 {
		return Features{}, false
	}

	momentum := (last.Close - ref.Close) / ref.Close * 100

	var avgVol float64
	for _, b := range bars[:len(bars)-1] {
		avgVol += float64(b.Volume)
	}
	avgVol /= float64(len(bars) - 1)
	volumeRatio := 1.0
	if avgVol > 0 {
		volumeRatio = float64(last.Volume) / avgVol
	}

	// Distance from the session extreme in the direction of travel.
	// A symbol pressing its high (long) or low (short) has circuit
	// potential; a large distance means none.
	var extreme float64
	for _, b := range bars {
		if momentum >= 0 {
			if b.High > extreme {
				extreme = b.High
			}
		} else {
			if extreme == 0 || b.Low < extreme {
				extreme = b.Low
			}
		}
	}
	circuitDist := math.Abs(extreme-last.Close) / last.Close * 100

	return Features{
		MomentumPct:        momentum,
		VolumeRatio:        volumeRatio,
		Sentiment:          sentimentScore,
		CircuitDistancePct: circuitDist,
	}, true
}

// Score combines the features into a composite confidence in [0, 1].
// Monotonic in every component and free of randomness.
func (r *Ranker) Score(direction string, f Features) float64 {
	momentumScore := clamp01(math.Abs(f.MomentumPct) / 2.0) // ±2% saturates
	volumeScore := clamp01((f.VolumeRatio - 1.0) / 4.0)     // 5x baseline saturates

	sentimentScore := (f.Sentiment + 1) / 2
	if direction == types.DirectionShort {
		sentimentScore = (1 - f.Sentiment) / 2
	}

	circuitScore := clamp01(1.0 - f.CircuitDistancePct/5.0) // at the extreme = 1

	total := momentumScore*r.weights.momentum +
		volumeScore*r.weights.volume +
		sentimentScore*r.weights.sentiment +
		circuitScore*r.weights.circuit

	weightSum := r.weights.momentum + r.weights.volume + r.weights.sentiment + r.weights.circuit
	if weightSum == 0 {
		return 0
	}
	return clamp01(total / weightSum)
}

// vetoed applies the sentiment veto: strongly negative news kills a BUY
// regardless of score, strongly positive news kills a SELL.
func (r *Ranker) vetoed(direction string, sentimentScore float64) bool {
	if direction == types.DirectionLong && sentimentScore <= r.vetoBuy {
		return true
	}
	if direction == types.DirectionShort && sentimentScore >= r.vetoSell {
		return true
	}
	return false
}

// Rank scores every symbol with sufficient history and returns the
// ordered candidate sequence for this tick. Candidates below cutoff and
// vetoed candidates are dropped. Ties break on higher volume ratio, then
// symbol lexical order, so backtests reproduce exactly.
func (r *Ranker) Rank(symbols []string, bars map[string][]types.Bar, sentiments map[string]float64, cutoff float64, now time.Time) *Ranking {
	candidates := make([]types.Candidate, 0, len(symbols))

	for _, symbol := range symbols {
		f, ok := r.ComputeFeatures(bars[symbol], sentiments[symbol])
		if !ok {
			continue
		}

		direction := types.DirectionLong
		if f.MomentumPct < 0 {
			direction = types.DirectionShort
		}

		if r.vetoed(direction, f.Sentiment) {
			continue
		}

		score := r.Score(direction, f)
		if score < cutoff {
			continue
		}

		candidates = append(candidates, types.Candidate{
			Symbol:             symbol,
			Direction:          direction,
			MomentumPct:        f.MomentumPct,
			VolumeRatio:        f.VolumeRatio,
			Sentiment:          f.Sentiment,
			CircuitDistancePct: f.CircuitDistancePct,
			Score:              score,
			Timestamp:          now,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.VolumeRatio != b.VolumeRatio {
			return a.VolumeRatio > b.VolumeRatio
		}
		return a.Symbol < b.Symbol
	})

	return &Ranking{candidates: candidates}
}

// Trend classifies the short-horizon direction of a symbol from its
// recent closes. A move smaller than the flip threshold is FLAT.
func (r *Ranker) Trend(bars []types.Bar) string {
	if len(bars) < r.trendLookback+1 {
		return types.TrendFlat
	}
	last := bars[len(bars)-1].Close
	ref := bars[len(bars)-1-r.trendLookback].Close
	if ref == 0 {
		return types.TrendFlat
	}

	changePct := (last - ref) / ref * 100
	switch {
	case changePct >= r.trendFlipPct:
		return types.TrendUp
	case changePct <= -r.trendFlipPct:
		return types.TrendDown
	default:
		return types.TrendFlat
	}
}

// Ranking is the tick's ordered candidate sequence: finite, restartable,
// consumed lazily by the allocator.
type Ranking struct {
	candidates []types.Candidate
	pos        int
}

// Next returns the next candidate in score order.
func (rk *Ranking) Next() (types.Candidate, bool) {
	if rk.pos >= len(rk.candidates) {
		return types.Candidate{}, false
	}
	c := rk.candidates[rk.pos]
	rk.pos++
	return c, true
}

// Reset rewinds the sequence to the top-ranked candidate.
func (rk *Ranking) Reset() { rk.pos = 0 }

func (rk *Ranking) Len() int { return len(rk.candidates) }
