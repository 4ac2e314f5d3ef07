package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tradedesk/internal/config"
	"tradedesk/internal/domain"
	"tradedesk/internal/ingest"
	"tradedesk/internal/store"
	"tradedesk/internal/util"
)

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "config/tradedesk.yaml", "config file path")
	startDate := flag.String("start", "", "start date (YYYY-MM-DD), overrides config")
	symbolList := flag.String("symbols", "", "comma-separated symbols, overrides config")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

	startStr := cfg.Ingest.StartDate
	if *startDate != "" {
		startStr = *startDate
	}
	start, err := util.ParseDate(startStr)
	if err != nil {
		log.Fatalf("invalid start date %q: %v", startStr, err)
	}
	// Alpaca SIP data lags; stop at yesterday.
	end := util.Midnight(time.Now().UTC()).AddDate(0, 0, -1)

	symbols := cfg.Ingest.Symbols
	if *symbolList != "" {
		symbols = nil
		for _, s := range strings.Split(*symbolList, ",") {
			if s = strings.TrimSpace(s); s != "" {
				symbols = append(symbols, strings.ToUpper(s))
			}
		}
	}

	pstore := store.NewParquetStore(cfg.Storage.DataDir, domain.MarketUS)
	gatherer := ingest.NewDailyBarGatherer(ingest.DailyBarConfig{
		APIKey:          cfg.Alpaca.APIKey,
		APISecret:       cfg.Alpaca.APISecret,
		DataURL:         cfg.Alpaca.DataURL,
		Symbols:         symbols,
		Span:            ingest.DateRange{Start: start, End: end},
		BatchSize:       cfg.Ingest.BatchSize,
		RateLimitPerMin: cfg.Ingest.RateLimitPerMin,
	}, pstore, pstore)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting ingest", "gatherer", gatherer.Name(), "symbols", len(symbols))
	if err := gatherer.Run(ctx); err != nil {
		log.Fatalf("ingest error: %v", err)
	}
}
