package perf

import (
	"math"

	"github.com/fazecat/daytrader/Internal/types"
)

// Report summarizes a set of closed trades for the replay runner and
// the reporting API.
type Report struct {
	TotalTrades  int
	Wins         int
	Losses       int
	WinRate      float64
	TotalPnL     float64
	SharpeRatio  float64
	SortinoRatio float64
	ByExitReason map[string]int
}

func Summarize(trades []types.ClosedTrade) Report {
	r := Report{ByExitReason: make(map[string]int)}
	if len(trades) == 0 {
		return r
	}

	returns := make([]float64, 0, len(trades))
	for _, t := range trades {
		r.TotalTrades++
		r.TotalPnL += t.RealizedPnL
		r.ByExitReason[t.ExitReason]++
		if t.RealizedPnL > 0 {
			r.Wins++
		} else if t.RealizedPnL < 0 {
			r.Losses++
		}
		returns = append(returns, t.ReturnPct())
	}

	r.WinRate = float64(r.Wins) / float64(r.TotalTrades) * 100
	r.SharpeRatio = sharpe(returns)
	r.SortinoRatio = sortino(returns)
	return r
}

func sharpe(returns []float64) float64 {
	stdDev := standardDeviation(returns)
	if stdDev == 0 {
		return 0
	}
	return average(returns) / stdDev
}

func sortino(returns []float64) float64 {
	var negative []float64
	for _, v := range returns {
		if v < 0 {
			negative = append(negative, v)
		}
	}
	downsideDev := standardDeviation(negative)
	if downsideDev == 0 {
		return 0
	}
	return average(returns) / downsideDev
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func standardDeviation(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := average(values)
	varianceSum := 0.0
	for _, v := range values {
		varianceSum += (v - mean) * (v - mean)
	}
	variance := varianceSum / float64(len(values))
	return math.Sqrt(variance)
}
