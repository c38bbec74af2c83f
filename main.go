package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fazecat/daytrader/Internal/broker"
	"github.com/fazecat/daytrader/Internal/database"
	"github.com/fazecat/daytrader/Internal/engine"
	"github.com/fazecat/daytrader/Internal/holiday"
	"github.com/fazecat/daytrader/Internal/marketdata"
	"github.com/fazecat/daytrader/Internal/sentiment"
	"github.com/fazecat/daytrader/Internal/session"
	"github.com/fazecat/daytrader/Internal/strategy/allocator"
	"github.com/fazecat/daytrader/Internal/strategy/position"
	"github.com/fazecat/daytrader/Internal/strategy/ranker"
	"github.com/fazecat/daytrader/Internal/strategy/retrain"
	"github.com/fazecat/daytrader/Internal/strategy/safety"
	"github.com/fazecat/daytrader/Internal/strategy/trailing"
	"github.com/fazecat/daytrader/Internal/utils/config"
	"github.com/fazecat/daytrader/Internal/utils/formatting"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment as-is")
	}

	env, err := config.LoadEnv()
	if err != nil {
		log.Fatalf("Failed to load environment: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := database.Open(env)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	calendar := holiday.NewCalendar(holiday.NewHTTPSource(env.HolidayURL), holiday.FallbackHolidays())
	gate, err := session.NewGate(cfg, calendar)
	if err != nil {
		log.Fatalf("Failed to build session gate: %v", err)
	}

	var exec broker.Executor = broker.PaperExecutor{}
	if env.TradeMode == "live" {
		live, err := broker.NewAlpacaExecutor(env)
		if err != nil {
			log.Fatalf("Failed to initialize live executor: %v", err)
		}
		exec = live
		if equity, err := live.Equity(); err != nil {
			log.Printf("⚠️  Could not fetch account equity: %v\n", err)
		} else {
			log.Printf("💰 Broker account equity: %s\n", formatting.FormatMoney(equity))
		}
		log.Println("Live execution enabled")
	} else {
		log.Println("Paper execution enabled")
	}

	var sentimentSource sentiment.Source = sentiment.Neutral{}
	if env.SentimentURL != "" {
		sentimentSource = sentiment.NewService(env.SentimentURL)
	}

	safetyGate := safety.NewGate(cfg)
	portfolio := allocator.NewPortfolio(cfg.Capital.InitialCapital, cfg.Capital.MaxActivePositions)
	alloc := allocator.New(cfg, portfolio, safetyGate, exec)
	trailEngine := trailing.NewEngine(cfg)
	evaluator := position.NewEvaluator(cfg, trailEngine)
	rk := ranker.NewRanker(cfg)
	scheduler := retrain.NewScheduler(cfg, retrain.WinRateModel{}, time.Now())

	eng := engine.New(cfg, gate, safetyGate, rk, evaluator, alloc, scheduler, sentimentSource, store)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	feed := marketdata.NewStreamFeed(env.FeedURL)
	feed.Start(ctx)

	today := time.Now().In(gate.Location())
	if err := eng.RunSession(ctx, feed, marketdata.StaticUniverse(cfg.Data.Universe), today); err != nil {
		if ctx.Err() != nil {
			log.Println("Stop signal received, session halted after completing the tick in progress")
		} else {
			log.Fatalf("Session failed: %v", err)
		}
	}

	fmt.Println(formatting.Separator(48))
	fmt.Printf("Session PnL: %s across %d trades\n",
		formatting.FormatMoney(eng.SessionPnL()), eng.TradesClosed())
	fmt.Println(formatting.Separator(48))
}
