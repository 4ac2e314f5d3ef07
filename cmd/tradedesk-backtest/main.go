package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tradedesk/internal/backtest"
	"tradedesk/internal/config"
	"tradedesk/internal/domain"
	"tradedesk/internal/events"
	"tradedesk/internal/marketdata"
	"tradedesk/internal/store"
	"tradedesk/internal/util"
)

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "config/tradedesk.yaml", "config file path")
	strategyID := flag.String("strategy", string(domain.KindSMACross), "strategy id to run")
	startDate := flag.String("start", "", "start date (YYYY-MM-DD)")
	endDate := flag.String("end", "", "end date (YYYY-MM-DD)")
	capital := flag.Float64("capital", 100000, "initial capital")
	symbolList := flag.String("symbols", "", "comma-separated symbols (default: sampled from store)")
	flag.Parse()

	if *startDate == "" || *endDate == "" {
		log.Fatal("both -start and -end are required")
	}
	start, err := util.ParseDate(*startDate)
	if err != nil {
		log.Fatalf("invalid -start: %v", err)
	}
	end, err := util.ParseDate(*endDate)
	if err != nil {
		log.Fatalf("invalid -end: %v", err)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

	results, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening result store: %v", err)
	}
	defer results.Close()
	pstore := store.NewParquetStore(cfg.Storage.DataDir, domain.MarketUS)

	factory := func(start, end time.Time) marketdata.Provider {
		return marketdata.NewStoreProvider(pstore, pstore, domain.MarketUS, start, end)
	}
	runner := backtest.NewRunner(results, factory, events.NopPublisher{}, cfg.Backtest.DefaultSymbols, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	bt, err := runner.Create(ctx, backtest.CreateRequest{
		StrategyID:     *strategyID,
		StartDate:      start,
		EndDate:        end,
		InitialCapital: *capital,
		Commission:     cfg.Backtest.Commission,
		Slippage:       cfg.Backtest.Slippage,
	})
	if err != nil {
		log.Fatalf("creating backtest: %v", err)
	}

	var symbols []string
	if *symbolList != "" {
		for _, s := range strings.Split(*symbolList, ",") {
			if s = strings.TrimSpace(s); s != "" {
				symbols = append(symbols, strings.ToUpper(s))
			}
		}
	}

	if err := runner.Run(ctx, bt.ID, symbols); err != nil {
		log.Fatalf("backtest failed: %v", err)
	}

	final, err := results.GetBacktest(ctx, bt.ID)
	if err != nil {
		log.Fatalf("loading results: %v", err)
	}
	printSummary(final)
	os.Exit(0)
}

func printSummary(bt *domain.Backtest) {
	fmt.Printf("backtest %s (%s)\n", bt.ID, bt.Status)
	if bt.Stats == nil {
		return
	}
	s := bt.Stats
	fmt.Printf("  total return:  %.2f%%\n", s.TotalReturn)
	fmt.Printf("  max drawdown:  %.2f%%\n", s.MaxDrawdown)
	fmt.Printf("  sharpe ratio:  %.2f\n", s.SharpeRatio)
	fmt.Printf("  trades:        %d (%d wins / %d losses, win rate %.1f%%)\n",
		s.TotalTrades, s.WinningTrades, s.LosingTrades, s.WinRate)
	fmt.Printf("  profit factor: %.2f\n", s.ProfitFactor)
	fmt.Printf("  avg win/loss:  %.2f / %.2f\n", s.AvgWin, s.AvgLoss)
}
