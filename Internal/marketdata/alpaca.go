package marketdata

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/fazecat/daytrader/Internal/types"
	"github.com/fazecat/daytrader/Internal/utils"
	"github.com/fazecat/daytrader/Internal/utils/config"
)

// HistoricalClient pulls minute bars from the Alpaca data API for
// replay runs. Live trading never touches this path.
type HistoricalClient struct {
	apiKey    string
	apiSecret string
	client    *http.Client
}

func NewHistoricalClient(env *config.Env) *HistoricalClient {
	return &HistoricalClient{
		apiKey:    env.AlpacaAPIKey,
		apiSecret: env.AlpacaAPISecret,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Bars fetches minute bars for one symbol over [start, end), oldest
// first.
func (hc *HistoricalClient) Bars(symbol string, start, end time.Time) ([]types.Bar, error) {
	apiURL := fmt.Sprintf(
		"https://data.alpaca.markets/v2/stocks/%s/bars?timeframe=1Min&limit=10000&start=%s&end=%s",
		url.PathEscape(symbol),
		url.QueryEscape(start.Format(time.RFC3339)),
		url.QueryEscape(end.Format(time.RFC3339)),
	)

	var bars []types.Bar
	retryConfig := utils.DefaultRetryConfig()

	err := utils.RetryWithBackoff(func() error {
		req, _ := http.NewRequest("GET", apiURL, nil)
		req.Header.Set("APCA-API-KEY-ID", hc.apiKey)
		req.Header.Set("APCA-API-SECRET-KEY", hc.apiSecret)

		resp, err := hc.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("API returned status %d", resp.StatusCode)
		}

		var r struct {
			Bars []types.Bar `json:"bars"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
			return err
		}
		bars = r.Bars
		return nil
	}, retryConfig)
	if err != nil {
		return nil, err
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})
	return bars, nil
}

// LoadReplayDay fetches a full trading day of minute bars for the
// universe plus the index proxy, ready to drive a ReplayFeed.
func (hc *HistoricalClient) LoadReplayDay(symbols []string, indexSymbol string, day time.Time, loc *time.Location) (map[string][]types.Bar, map[time.Time]float64, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	end := start.Add(24 * time.Hour)

	barsBySymbol := make(map[string][]types.Bar, len(symbols))
	for _, sym := range symbols {
		bars, err := hc.Bars(sym, start, end)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load bars for %s: %w", sym, err)
		}
		if len(bars) > 0 {
			barsBySymbol[sym] = bars
		}
	}

	index := make(map[time.Time]float64)
	if indexSymbol != "" {
		bars, err := hc.Bars(indexSymbol, start, end)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load index bars: %w", err)
		}
		for _, b := range bars {
			index[b.Timestamp] = b.Close
		}
	}
	return barsBySymbol, index, nil
}
