package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/fazecat/daytrader/Internal/broker"
	"github.com/fazecat/daytrader/Internal/engine"
	"github.com/fazecat/daytrader/Internal/holiday"
	"github.com/fazecat/daytrader/Internal/marketdata"
	"github.com/fazecat/daytrader/Internal/sentiment"
	"github.com/fazecat/daytrader/Internal/session"
	"github.com/fazecat/daytrader/Internal/strategy/allocator"
	"github.com/fazecat/daytrader/Internal/strategy/perf"
	"github.com/fazecat/daytrader/Internal/strategy/position"
	"github.com/fazecat/daytrader/Internal/strategy/ranker"
	"github.com/fazecat/daytrader/Internal/strategy/retrain"
	"github.com/fazecat/daytrader/Internal/strategy/safety"
	"github.com/fazecat/daytrader/Internal/strategy/trailing"
	"github.com/fazecat/daytrader/Internal/types"
	"github.com/fazecat/daytrader/Internal/utils/config"
	"github.com/fazecat/daytrader/Internal/utils/formatting"
)

func main() {
	fromFlag := flag.String("from", "", "first replay date (YYYY-MM-DD)")
	toFlag := flag.String("to", "", "last replay date (YYYY-MM-DD), defaults to --from")
	flag.Parse()

	if *fromFlag == "" {
		log.Fatal("--from is required")
	}
	from := formatting.ParseDate(*fromFlag)
	if from.IsZero() {
		log.Fatalf("Invalid --from date: %s", *fromFlag)
	}
	to := from
	if *toFlag != "" {
		to = formatting.ParseDate(*toFlag)
		if to.IsZero() {
			log.Fatalf("Invalid --to date: %s", *toFlag)
		}
	}
	if to.Before(from) {
		log.Fatal("--to is before --from")
	}

	_ = godotenv.Load(".env")
	_ = godotenv.Load("../../.env")

	env, err := config.LoadEnv()
	if err != nil {
		log.Fatalf("Failed to load environment: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	calendar := holiday.NewCalendar(nil, holiday.FallbackHolidays())
	gate, err := session.NewGate(cfg, calendar)
	if err != nil {
		log.Fatalf("Failed to build session gate: %v", err)
	}

	safetyGate := safety.NewGate(cfg)
	portfolio := allocator.NewPortfolio(cfg.Capital.InitialCapital, cfg.Capital.MaxActivePositions)
	alloc := allocator.New(cfg, portfolio, safetyGate, broker.PaperExecutor{})
	trailEngine := trailing.NewEngine(cfg)
	evaluator := position.NewEvaluator(cfg, trailEngine)
	rk := ranker.NewRanker(cfg)
	scheduler := retrain.NewScheduler(cfg, retrain.WinRateModel{}, from)

	eng := engine.New(cfg, gate, safetyGate, rk, evaluator, alloc, scheduler,
		sentiment.Neutral{}, engine.NopArchiver{})

	hist := marketdata.NewHistoricalClient(env)
	ctx := context.Background()

	var totalPnL float64
	var totalTrades, daysRun int
	var allTrades []types.ClosedTrade

	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		bars, index, err := hist.LoadReplayDay(cfg.Data.Universe, cfg.Data.IndexSymbol, day, gate.Location())
		if err != nil {
			log.Fatalf("Failed to load replay data for %s: %v", day.Format("2006-01-02"), err)
		}
		if len(bars) == 0 {
			log.Printf("📅 No bars for %s, skipping\n", day.Format("2006-01-02"))
			continue
		}

		feed := marketdata.NewReplayFeed(bars, index)
		if err := eng.RunSession(ctx, feed, marketdata.StaticUniverse(cfg.Data.Universe), day); err != nil {
			log.Fatalf("Replay failed on %s: %v", day.Format("2006-01-02"), err)
		}

		totalPnL += eng.SessionPnL()
		totalTrades += eng.TradesClosed()
		allTrades = append(allTrades, eng.ClosedTrades()...)
		daysRun++
	}

	report := perf.Summarize(allTrades)

	fmt.Println(formatting.Separator(48))
	fmt.Printf("Replay complete: %d day(s), %d trades\n", daysRun, totalTrades)
	fmt.Printf("Total PnL: %s\n", formatting.FormatMoney(totalPnL))
	fmt.Printf("Win rate: %.1f%% (%d W / %d L)\n", report.WinRate, report.Wins, report.Losses)
	fmt.Printf("Sharpe: %.2f  Sortino: %.2f\n", report.SharpeRatio, report.SortinoRatio)
	for reason, n := range report.ByExitReason {
		fmt.Printf("  %-12s %d\n", reason, n)
	}
	fmt.Println(formatting.Separator(48))
}
