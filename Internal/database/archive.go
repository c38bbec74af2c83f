package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fazecat/daytrader/Internal/types"
)

// ArchiveTrade persists a closed trade record. Prices cross the storage
// boundary as decimals so the archive never accumulates float drift.
func (s *Store) ArchiveTrade(ctx context.Context, t types.ClosedTrade) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO closed_trades (
			trade_id, symbol, direction, entry_price, entry_time,
			exit_price, exit_time, quantity, capital_committed, leverage,
			exit_reason, realized_pnl, score_at_entry, sentiment_at_entry,
			peak_price, max_drawdown_pct, slippage_pct, threshold_version
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		ON CONFLICT (trade_id) DO NOTHING`,
		t.TradeID, t.Symbol, t.Direction,
		decimal.NewFromFloat(t.EntryPrice).String(), t.EntryTime,
		decimal.NewFromFloat(t.ExitPrice).String(), t.ExitTime,
		t.Quantity,
		decimal.NewFromFloat(t.CapitalCommitted).String(),
		decimal.NewFromFloat(t.Leverage).String(),
		t.ExitReason,
		decimal.NewFromFloat(t.RealizedPnL).String(),
		decimal.NewFromFloat(t.ScoreAtEntry).String(),
		decimal.NewFromFloat(t.SentimentAtEntry).String(),
		decimal.NewFromFloat(t.PeakPrice).String(),
		decimal.NewFromFloat(t.MaxDrawdownPct).String(),
		decimal.NewFromFloat(t.SlippagePct).String(),
		t.ThresholdVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to archive trade %s: %w", t.TradeID, err)
	}

	log.Printf("✅ Trade archived: %s %s x%d pnl=%.2f (%s)\n",
		t.Direction, t.Symbol, t.Quantity, t.RealizedPnL, t.ExitReason)
	return nil
}

// RecordDegradation stores one degraded-mode audit event.
func (s *Store) RecordDegradation(ctx context.Context, d types.Degradation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO degradations (occurred_at, kind, symbol, details)
		VALUES ($1,$2,$3,$4)`,
		d.Time, d.Kind, d.Symbol, d.Details)
	if err != nil {
		return fmt.Errorf("failed to record degradation: %w", err)
	}
	return nil
}

// TradeHistory returns the most recent closed trades, newest first.
// An empty symbol returns trades across the whole book.
func (s *Store) TradeHistory(ctx context.Context, symbol string, limit int32) ([]types.ClosedTrade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT trade_id, symbol, direction, entry_price, entry_time,
		       exit_price, exit_time, quantity, capital_committed, leverage,
		       exit_reason, realized_pnl, score_at_entry, sentiment_at_entry,
		       peak_price, max_drawdown_pct, slippage_pct, threshold_version
		FROM closed_trades
		WHERE ($1 = '' OR symbol = $1)
		ORDER BY exit_time DESC
		LIMIT $2`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch trade history: %w", err)
	}
	defer rows.Close()

	var trades []types.ClosedTrade
	for rows.Next() {
		var t types.ClosedTrade
		var entryPrice, exitPrice, committed, leverage, pnl, score, sentiment, peak, drawdown, slippage decimal.Decimal
		if err := rows.Scan(&t.TradeID, &t.Symbol, &t.Direction, &entryPrice, &t.EntryTime,
			&exitPrice, &t.ExitTime, &t.Quantity, &committed, &leverage,
			&t.ExitReason, &pnl, &score, &sentiment,
			&peak, &drawdown, &slippage, &t.ThresholdVersion); err != nil {
			return nil, fmt.Errorf("failed to scan trade row: %w", err)
		}
		t.EntryPrice = entryPrice.InexactFloat64()
		t.ExitPrice = exitPrice.InexactFloat64()
		t.CapitalCommitted = committed.InexactFloat64()
		t.Leverage = leverage.InexactFloat64()
		t.RealizedPnL = pnl.InexactFloat64()
		t.ScoreAtEntry = score.InexactFloat64()
		t.SentimentAtEntry = sentiment.InexactFloat64()
		t.PeakPrice = peak.InexactFloat64()
		t.MaxDrawdownPct = drawdown.InexactFloat64()
		t.SlippagePct = slippage.InexactFloat64()
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// PerformanceSummary aggregates closed trades over a lookback window.
type PerformanceSummary struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64
	TotalPnL      decimal.Decimal
	GrossProfit   decimal.Decimal
	GrossLoss     decimal.Decimal
	ByExitReason  map[string]int
	BySymbolPnL   map[string]decimal.Decimal
}

func (s *Store) Performance(ctx context.Context, since time.Time) (*PerformanceSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, realized_pnl, exit_reason
		FROM closed_trades
		WHERE exit_time >= $1`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch performance rows: %w", err)
	}
	defer rows.Close()

	sum := &PerformanceSummary{
		TotalPnL:     decimal.Zero,
		GrossProfit:  decimal.Zero,
		GrossLoss:    decimal.Zero,
		ByExitReason: make(map[string]int),
		BySymbolPnL:  make(map[string]decimal.Decimal),
	}

	for rows.Next() {
		var symbol, reason string
		var pnl decimal.Decimal
		if err := rows.Scan(&symbol, &pnl, &reason); err != nil {
			return nil, fmt.Errorf("failed to scan performance row: %w", err)
		}
		sum.TotalTrades++
		sum.TotalPnL = sum.TotalPnL.Add(pnl)
		sum.ByExitReason[reason]++
		sum.BySymbolPnL[symbol] = sum.BySymbolPnL[symbol].Add(pnl)
		if pnl.IsPositive() {
			sum.WinningTrades++
			sum.GrossProfit = sum.GrossProfit.Add(pnl)
		} else if pnl.IsNegative() {
			sum.LosingTrades++
			sum.GrossLoss = sum.GrossLoss.Add(pnl)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if sum.TotalTrades > 0 {
		sum.WinRate = float64(sum.WinningTrades) / float64(sum.TotalTrades) * 100
	}
	return sum, nil
}
