package ranker

import (
	"testing"
	"time"

	"github.com/fazecat/daytrader/Internal/types"
	"github.com/fazecat/daytrader/Internal/utils/config"
)

// trendingBars produces lookback+extra bars drifting by totalPct across
// the trend lookback, with constant volume.
func trendingBars(n int, start, totalPct float64, volume int64) []types.Bar {
	bars := make([]types.Bar, n)
	step := totalPct / float64(n-1)
	for i := range bars {
		c := start * (1 + step*float64(i)/100)
		bars[i] = types.Bar{Open: c, High: c, Low: c, Close: c, Volume: volume}
	}
	return bars
}

func TestComputeFeatures_RequiresHistory(t *testing.T) {
	r := NewRanker(config.Default())
	if _, ok := r.ComputeFeatures(trendingBars(3, 100, 1, 1000), 0); ok {
		t.Error("three bars should be insufficient for a lookback of five")
	}
	if _, ok := r.ComputeFeatures(trendingBars(10, 100, 1, 1000), 0); !ok {
		t.Error("ten bars should be sufficient")
	}
}

func TestScore_MonotonicInMomentum(t *testing.T) {
	r := NewRanker(config.Default())
	weak := r.Score(types.DirectionLong, Features{MomentumPct: 0.2, VolumeRatio: 1, CircuitDistancePct: 2})
	strong := r.Score(types.DirectionLong, Features{MomentumPct: 1.5, VolumeRatio: 1, CircuitDistancePct: 2})
	if strong <= weak {
		t.Errorf("score should grow with momentum: %.3f <= %.3f", strong, weak)
	}
}

func TestScore_Bounded(t *testing.T) {
	r := NewRanker(config.Default())
	extreme := r.Score(types.DirectionLong, Features{MomentumPct: 50, VolumeRatio: 100, Sentiment: 1, CircuitDistancePct: 0})
	if extreme < 0 || extreme > 1 {
		t.Errorf("score %.3f outside [0,1]", extreme)
	}
	floorScore := r.Score(types.DirectionShort, Features{MomentumPct: 0, VolumeRatio: 0, Sentiment: 1, CircuitDistancePct: 100})
	if floorScore < 0 || floorScore > 1 {
		t.Errorf("score %.3f outside [0,1]", floorScore)
	}
}

func TestScore_SentimentFavorsDirection(t *testing.T) {
	r := NewRanker(config.Default())
	f := Features{MomentumPct: 1, VolumeRatio: 2, CircuitDistancePct: 2}

	f.Sentiment = 0.3
	longScore := r.Score(types.DirectionLong, f)
	shortScore := r.Score(types.DirectionShort, f)
	if longScore <= shortScore {
		t.Errorf("positive sentiment should favor the long side: %.3f vs %.3f", longScore, shortScore)
	}
}

func TestRank_VetoAndCutoff(t *testing.T) {
	cfg := config.Default()
	r := NewRanker(cfg)
	now := time.Now()

	bars := map[string][]types.Bar{
		"UP":     trendingBars(10, 100, 2.0, 1000),  // strong upward drift
		"VETOED": trendingBars(10, 100, 2.0, 1000),  // same drift, toxic news
		"DULL":   trendingBars(10, 100, 0.05, 1000), // barely moving
	}
	sentiments := map[string]float64{
		"UP":     0.5,
		"VETOED": -0.8, // below the -0.40 buy veto
		"DULL":   0,
	}

	rk := r.Rank([]string{"UP", "VETOED", "DULL"}, bars, sentiments, cfg.Ranker.EntryCutoff, now)
	if rk.Len() != 1 {
		t.Fatalf("ranking length = %d, want 1", rk.Len())
	}
	c, _ := rk.Next()
	if c.Symbol != "UP" {
		t.Errorf("survivor = %s, want UP", c.Symbol)
	}
	if c.Direction != types.DirectionLong {
		t.Errorf("direction = %s, want LONG", c.Direction)
	}
}

func TestRank_DeterministicOrderAndTieBreaks(t *testing.T) {
	cfg := config.Default()
	cfg.Ranker.EntryCutoff = 0 // keep everything
	r := NewRanker(cfg)
	now := time.Now()

	// Identical feature inputs, distinct symbols: ordering must fall
	// back to the lexical tie-break and stay stable across runs.
	bars := map[string][]types.Bar{
		"ZED":   trendingBars(10, 100, 1.0, 1000),
		"ALPHA": trendingBars(10, 100, 1.0, 1000),
		"MID":   trendingBars(10, 100, 1.0, 1000),
	}
	sentiments := map[string]float64{"ZED": 0, "ALPHA": 0, "MID": 0}
	symbols := []string{"ZED", "MID", "ALPHA"}

	var firstOrder []string
	for run := 0; run < 5; run++ {
		rk := r.Rank(symbols, bars, sentiments, 0, now)
		var order []string
		for {
			c, ok := rk.Next()
			if !ok {
				break
			}
			order = append(order, c.Symbol)
		}
		if run == 0 {
			firstOrder = order
			if len(order) != 3 || order[0] != "ALPHA" || order[1] != "MID" || order[2] != "ZED" {
				t.Fatalf("tie-break order = %v, want lexical", order)
			}
			continue
		}
		for i := range order {
			if order[i] != firstOrder[i] {
				t.Fatalf("run %d order %v differs from first %v", run, order, firstOrder)
			}
		}
	}
}

func TestRank_VolumeSpikeRanksFirst(t *testing.T) {
	cfg := config.Default()
	cfg.Ranker.EntryCutoff = 0
	r := NewRanker(cfg)
	now := time.Now()

	quiet := trendingBars(10, 100, 1.0, 1000)
	spiky := trendingBars(10, 100, 1.0, 1000)
	spiky[len(spiky)-1].Volume = 5000

	bars := map[string][]types.Bar{"QUIET": quiet, "SPIKY": spiky}
	sentiments := map[string]float64{"QUIET": 0, "SPIKY": 0}

	rk := r.Rank([]string{"QUIET", "SPIKY"}, bars, sentiments, 0, now)
	c, _ := rk.Next()
	if c.Symbol != "SPIKY" {
		t.Errorf("top candidate = %s, want SPIKY (volume spike)", c.Symbol)
	}
}

func TestRank_ResetRestartsSequence(t *testing.T) {
	cfg := config.Default()
	cfg.Ranker.EntryCutoff = 0
	r := NewRanker(cfg)
	now := time.Now()

	bars := map[string][]types.Bar{"AAA": trendingBars(10, 100, 1.0, 1000)}
	rk := r.Rank([]string{"AAA"}, bars, map[string]float64{"AAA": 0}, 0, now)

	first, ok := rk.Next()
	if !ok {
		t.Fatal("expected a candidate")
	}
	if _, ok := rk.Next(); ok {
		t.Fatal("sequence should be exhausted")
	}
	rk.Reset()
	again, ok := rk.Next()
	if !ok || again.Symbol != first.Symbol {
		t.Error("Reset should rewind to the top candidate")
	}
}

func TestTrend_Classification(t *testing.T) {
	cfg := config.Default()
	r := NewRanker(cfg)

	tests := []struct {
		name string
		bars []types.Bar
		want string
	}{
		{"rising past threshold", trendingBars(10, 100, 2.0, 1000), types.TrendUp},
		{"falling past threshold", trendingBars(10, 100, -2.0, 1000), types.TrendDown},
		{"inside threshold is flat", trendingBars(10, 100, 0.05, 1000), types.TrendFlat},
		{"insufficient history is flat", trendingBars(3, 100, 5.0, 1000), types.TrendFlat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Trend(tt.bars); got != tt.want {
				t.Errorf("trend = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRank_NegativeMomentumGoesShort(t *testing.T) {
	cfg := config.Default()
	cfg.Ranker.EntryCutoff = 0
	r := NewRanker(cfg)

	bars := map[string][]types.Bar{"DOWN": trendingBars(10, 100, -2.0, 1000)}
	rk := r.Rank([]string{"DOWN"}, bars, map[string]float64{"DOWN": -0.2}, 0, time.Now())
	c, ok := rk.Next()
	if !ok {
		t.Fatal("expected a short candidate")
	}
	if c.Direction != types.DirectionShort {
		t.Errorf("direction = %s, want SHORT", c.Direction)
	}
}
