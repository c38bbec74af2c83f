package internal

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/fazecat/daytrader/Internal/database"
	"github.com/fazecat/daytrader/Internal/utils/formatting"
)

type API struct {
	Store      *database.Store
	JWTManager *JWTManager
}

type tokenRequest struct {
	UserID string `json:"user_id"`
}

func (api *API) HandleGenerateToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	token, err := api.JWTManager.GenerateToken(req.UserID, 24)
	if err != nil {
		log.Printf("Error generating token: %v", err)
		WriteError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"expires_in": 24 * 3600,
	})
}

func (api *API) HandleGetTrades(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	limit := int32(100)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 1000 {
			limit = int32(n)
		}
	}

	trades, err := api.Store.TradeHistory(r.Context(), symbol, limit)
	if err != nil {
		log.Printf("Error fetching trades: %v", err)
		WriteError(w, http.StatusInternalServerError, "Failed to fetch trades")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(trades),
		"trades": trades,
	})
}

func (api *API) HandlePerformance(w http.ResponseWriter, r *http.Request) {
	lookbackDays := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			lookbackDays = n
		}
	}

	since := time.Now().AddDate(0, 0, -lookbackDays)
	sum, err := api.Store.Performance(r.Context(), since)
	if err != nil {
		log.Printf("Error fetching performance: %v", err)
		WriteError(w, http.StatusInternalServerError, "Failed to fetch performance")
		return
	}

	avgPnL := 0.0
	if sum.TotalTrades > 0 {
		avgPnL = sum.TotalPnL.InexactFloat64() / float64(sum.TotalTrades)
	}
	bySymbol := make(map[string]string, len(sum.BySymbolPnL))
	for symbol, pnl := range sum.BySymbolPnL {
		bySymbol[symbol] = formatting.FormatMoney(pnl.InexactFloat64())
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"lookback_days":     lookbackDays,
		"total_trades":      sum.TotalTrades,
		"winning_trades":    sum.WinningTrades,
		"losing_trades":     sum.LosingTrades,
		"win_rate":          sum.WinRate,
		"total_pnl":         formatting.FormatMoney(sum.TotalPnL.InexactFloat64()),
		"avg_pnl_per_trade": formatting.FormatMoney(avgPnL),
		"gross_profit":      formatting.FormatMoney(sum.GrossProfit.InexactFloat64()),
		"gross_loss":        formatting.FormatMoney(sum.GrossLoss.InexactFloat64()),
		"by_exit_reason":    sum.ByExitReason,
		"by_symbol_pnl":     bySymbol,
	})
}

func (api *API) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := api.Store.HealthCheck(); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	WriteJSON(w, http.StatusOK, "healthy")
}
