package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Global struct {
		MarketHours struct {
			MarketOpen        string `yaml:"market_open"`
			MarketClose       string `yaml:"market_close"`
			EntryOpen         string `yaml:"entry_open"`
			EntryClose        string `yaml:"entry_close"`
			ShortSessionClose string `yaml:"short_session_close"`
			// Dates (2006-01-02) with a shortened trading session,
			// e.g. Muhurat trading.
			ShortSessionDates []string `yaml:"short_session_dates"`
			Timezone          string   `yaml:"timezone"`
		} `yaml:"market_hours"`
		TopNSymbols int `yaml:"top_n_symbols"`
	} `yaml:"global"`

	Capital struct {
		InitialCapital     float64 `yaml:"initial_capital"`
		PerTradePct        float64 `yaml:"per_trade_pct"`
		MaxActivePositions int     `yaml:"max_active_positions"`
		MaxLeverage        float64 `yaml:"max_leverage"`
		DisplacementMargin float64 `yaml:"displacement_margin"`
		CooldownSeconds    int     `yaml:"cooldown_seconds"`
	} `yaml:"capital"`

	Exits struct {
		StopLossPct       float64 `yaml:"stop_loss_pct"`
		TargetPct         float64 `yaml:"target_pct"`
		TrailingFloorPct  float64 `yaml:"trailing_floor_pct"`
		MinProfitFloorPct float64 `yaml:"min_profit_floor_pct"`
	} `yaml:"exits"`

	Trailing struct {
		VolLookbackTicks    int     `yaml:"vol_lookback_ticks"`
		VolWidenFactor      float64 `yaml:"vol_widen_factor"`
		TightenAfterMinutes []int   `yaml:"tighten_after_minutes"`
		TightenStepPct      float64 `yaml:"tighten_step_pct"`
	} `yaml:"trailing"`

	Safety struct {
		LowVolLookbackTicks int     `yaml:"low_vol_lookback_ticks"`
		LowVolRangePct      float64 `yaml:"low_vol_range_pct"`
		CrashDrawdownPct    float64 `yaml:"crash_drawdown_pct"`
		UnwindPerTick       int     `yaml:"unwind_per_tick"`
	} `yaml:"safety"`

	Ranker struct {
		Weights struct {
			Momentum  float64 `yaml:"momentum"`
			Volume    float64 `yaml:"volume"`
			Sentiment float64 `yaml:"sentiment"`
			Circuit   float64 `yaml:"circuit"`
		} `yaml:"weights"`
		EntryCutoff           float64 `yaml:"entry_cutoff"`
		SentimentVetoBuy      float64 `yaml:"sentiment_veto_buy"`
		SentimentVetoSell     float64 `yaml:"sentiment_veto_sell"`
		TrendLookbackTicks    int     `yaml:"trend_lookback_ticks"`
		TrendFlipThresholdPct float64 `yaml:"trend_flip_threshold_pct"`
	} `yaml:"ranker"`

	Retrain struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		TradeCount      int `yaml:"trade_count"`
		WindowSize      int `yaml:"window_size"`
	} `yaml:"retrain"`

	Data struct {
		StaleEntrySuspendTicks int      `yaml:"stale_entry_suspend_ticks"`
		IndexSymbol            string   `yaml:"index_symbol"`
		Universe               []string `yaml:"universe"`
	} `yaml:"data"`
}

func LoadConfig() (*Config, error) {
	// Resolve path relative to this file first
	_, filePath, _, ok := runtime.Caller(0)
	var basePath string
	if ok {
		basePath = filepath.Dir(filePath)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	possiblePaths := []string{}
	if basePath != "" {
		possiblePaths = append(possiblePaths, filepath.Join(basePath, "config.yaml"))
	}
	possiblePaths = append(possiblePaths,
		filepath.Join(cwd, "Internal", "utils", "config", "config.yaml"),
		"Internal/utils/config/config.yaml",
		"config.yaml",
	)

	var data []byte
	for _, path := range possiblePaths {
		data, err = os.ReadFile(path)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("config.yaml not found in any known location: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config.yaml: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in parameter set. LoadConfig overlays
// config.yaml on top of these, so a partial file is fine.
func Default() *Config {
	cfg := &Config{}

	cfg.Global.MarketHours.MarketOpen = "09:15"
	cfg.Global.MarketHours.MarketClose = "15:30"
	cfg.Global.MarketHours.EntryOpen = "09:20"
	cfg.Global.MarketHours.EntryClose = "15:20"
	cfg.Global.MarketHours.ShortSessionClose = "12:30"
	cfg.Global.MarketHours.ShortSessionDates = []string{"2026-11-08"} // Muhurat trading
	cfg.Global.MarketHours.Timezone = "Asia/Kolkata"
	cfg.Global.TopNSymbols = 100

	cfg.Capital.InitialCapital = 1000000.0
	cfg.Capital.PerTradePct = 10.0
	cfg.Capital.MaxActivePositions = 10
	cfg.Capital.MaxLeverage = 5.0
	cfg.Capital.DisplacementMargin = 0.20
	cfg.Capital.CooldownSeconds = 300

	cfg.Exits.StopLossPct = 2.0
	cfg.Exits.TargetPct = 10.0
	cfg.Exits.TrailingFloorPct = 1.0
	cfg.Exits.MinProfitFloorPct = 1.0

	cfg.Trailing.VolLookbackTicks = 15
	cfg.Trailing.VolWidenFactor = 0.5
	cfg.Trailing.TightenAfterMinutes = []int{60, 120, 240}
	cfg.Trailing.TightenStepPct = 0.15

	cfg.Safety.LowVolLookbackTicks = 20
	cfg.Safety.LowVolRangePct = 0.25
	cfg.Safety.CrashDrawdownPct = 3.0
	cfg.Safety.UnwindPerTick = 2

	cfg.Ranker.Weights.Momentum = 0.40
	cfg.Ranker.Weights.Volume = 0.25
	cfg.Ranker.Weights.Sentiment = 0.20
	cfg.Ranker.Weights.Circuit = 0.15
	cfg.Ranker.EntryCutoff = 0.50
	cfg.Ranker.SentimentVetoBuy = -0.40
	cfg.Ranker.SentimentVetoSell = 0.40
	cfg.Ranker.TrendLookbackTicks = 5
	cfg.Ranker.TrendFlipThresholdPct = 0.30

	cfg.Retrain.IntervalMinutes = 60
	cfg.Retrain.TradeCount = 25
	cfg.Retrain.WindowSize = 100

	cfg.Data.StaleEntrySuspendTicks = 5
	cfg.Data.IndexSymbol = "NIFTY50"
	cfg.Data.Universe = []string{
		"RELIANCE", "TCS", "HDFCBANK", "INFY", "ICICIBANK",
		"SBIN", "BHARTIARTL", "ITC", "LT", "AXISBANK",
	}

	return cfg
}

func SaveConfig(cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile("Internal/utils/config/config.yaml", data, 0644)
}
