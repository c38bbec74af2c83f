package types

import "time"

// Trade directions
const (
	DirectionLong  = "LONG"
	DirectionShort = "SHORT"
)

// Position lifecycle states
const (
	StatusPending = "PENDING"
	StatusOpen    = "OPEN"
	StatusClosed  = "CLOSED"
)

// Exit reasons, in evaluation priority order (EOD first)
const (
	ExitEOD         = "EOD"
	ExitTrendFlip   = "TREND_FLIP"
	ExitStopLoss    = "SL"
	ExitTarget      = "TGT"
	ExitTrailing    = "TSL"
	ExitMinProfit   = "MIN_PROFIT"
	ExitReplaced    = "REPLACED"
	ExitCrashUnwind = "CRASH_UNWIND"
)

// Market regimes
const (
	RegimeNormal        = "NORMAL"
	RegimeLowVolatility = "LOW_VOLATILITY"
)

// Trend directions published by the ranker's live feature stream
const (
	TrendUp   = "UP"
	TrendDown = "DOWN"
	TrendFlat = "FLAT"
)

type Bar struct {
	Timestamp time.Time `json:"t"`
	Open      float64   `json:"o"`
	High      float64   `json:"h"`
	Low       float64   `json:"l"`
	Close     float64   `json:"c"`
	Volume    int64     `json:"v"`
}

// Position tracks one active or archived trade. While OPEN it is owned
// exclusively by the capital allocator; once CLOSED the record is immutable.
type Position struct {
	TradeID          string
	Symbol           string
	Direction        string // "LONG" or "SHORT"
	Status           string // PENDING, OPEN, CLOSED
	EntryPrice       float64
	EntryTime        time.Time
	Quantity         int64
	CapitalCommitted float64
	Leverage         float64
	ScoreAtEntry     float64
	SentimentAtEntry float64
	ThresholdVersion int

	// Updated every tick while OPEN
	CurrentPrice   float64
	PeakPrice      float64 // best favorable price seen since entry
	TrailingStop   float64
	MaxDrawdownPct float64

	ExitPrice   float64
	ExitTime    time.Time
	ExitReason  string
	RealizedPnL float64
	SlippagePct float64
}

// UnrealizedReturnPct is the signed return of the position at the given
// price, as a percentage of entry (positive = in profit).
func (p *Position) UnrealizedReturnPct(price float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	pct := (price - p.EntryPrice) / p.EntryPrice * 100
	if p.Direction == DirectionShort {
		pct = -pct
	}
	return pct
}

// UnrealizedPnL is the mark-to-market PnL at the given price.
func (p *Position) UnrealizedPnL(price float64) float64 {
	pnl := (price - p.EntryPrice) * float64(p.Quantity)
	if p.Direction == DirectionShort {
		pnl = -pnl
	}
	return pnl
}

func (p *Position) IsOpen() bool {
	return p.Status == StatusOpen
}

// Candidate is an ephemeral per-tick entry candidate. Recomputed from
// scratch every tick, never persisted.
type Candidate struct {
	Symbol             string
	Direction          string
	MomentumPct        float64
	VolumeRatio        float64
	Sentiment          float64 // [-1, 1]
	CircuitDistancePct float64
	Score              float64 // composite confidence in [0, 1]
	Timestamp          time.Time
}

// SafetyState is recomputed every tick by the safety gate and read by the
// allocator and the exit evaluator. Never mutated elsewhere.
type SafetyState struct {
	Regime       string // NORMAL or LOW_VOLATILITY
	CrashActive  bool
	ShortSession bool
	Degraded     bool    // calendar or feed running on fallback data
	LeverageCap  float64 // [0, MaxLeverage]
}

// ScoringThresholds is the versioned parameter set the retraining scheduler
// republishes. Hard SL/TGT percentages are deliberately absent: those are
// policy constants and never learned.
type ScoringThresholds struct {
	Version          int
	EntryCutoff      float64 // minimum composite score to enter
	HighTierScore    float64 // score at or above -> full leverage tier
	MidTierScore     float64 // score at or above -> mid leverage tier
	TSLTightenFactor float64 // multiplier applied to trailing width in low vol
	UpdatedAt        time.Time
}

// ClosedTrade is the archived output record for reporting collaborators.
type ClosedTrade struct {
	TradeID          string
	Symbol           string
	Direction        string
	EntryPrice       float64
	EntryTime        time.Time
	ExitPrice        float64
	ExitTime         time.Time
	Quantity         int64
	CapitalCommitted float64
	Leverage         float64
	ExitReason       string
	RealizedPnL      float64
	ScoreAtEntry     float64
	SentimentAtEntry float64
	PeakPrice        float64
	MaxDrawdownPct   float64
	SlippagePct      float64
	ThresholdVersion int
}

// NewClosedTrade seals a CLOSED position into its archive record and
// computes the realized PnL from the recorded fills. The record carries
// every input needed to recompute PnL independently.
func NewClosedTrade(p *Position) ClosedTrade {
	pnl := (p.ExitPrice - p.EntryPrice) * float64(p.Quantity)
	if p.Direction == DirectionShort {
		pnl = -pnl
	}
	p.RealizedPnL = pnl
	return ClosedTrade{
		TradeID:          p.TradeID,
		Symbol:           p.Symbol,
		Direction:        p.Direction,
		EntryPrice:       p.EntryPrice,
		EntryTime:        p.EntryTime,
		ExitPrice:        p.ExitPrice,
		ExitTime:         p.ExitTime,
		Quantity:         p.Quantity,
		CapitalCommitted: p.CapitalCommitted,
		Leverage:         p.Leverage,
		ExitReason:       p.ExitReason,
		RealizedPnL:      pnl,
		ScoreAtEntry:     p.ScoreAtEntry,
		SentimentAtEntry: p.SentimentAtEntry,
		PeakPrice:        p.PeakPrice,
		MaxDrawdownPct:   p.MaxDrawdownPct,
		SlippagePct:      p.SlippagePct,
		ThresholdVersion: p.ThresholdVersion,
	}
}

// ReturnPct is the realized return as a percentage of entry value.
func (t ClosedTrade) ReturnPct() float64 {
	if t.EntryPrice == 0 || t.Quantity == 0 {
		return 0
	}
	return t.RealizedPnL / (t.EntryPrice * float64(t.Quantity)) * 100
}

// Fill is what the execution collaborator reports back for an admitted
// entry or a triggered exit. Fill price replaces the decision price for
// PnL accounting.
type Fill struct {
	Symbol   string
	Price    float64
	Quantity int64
	Time     time.Time
}

// Degradation is the structured audit record emitted whenever the engine
// continues with reduced functionality (stale feed, neutral sentiment,
// calendar fallback).
type Degradation struct {
	Time    time.Time
	Kind    string // DATA_GAP, SENTIMENT_TIMEOUT, CALENDAR_FALLBACK, EXECUTION_TIMEOUT
	Symbol  string
	Details string
}
