package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	alpacamd "github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/joho/godotenv"

	"tradedesk/internal/backtest"
	"tradedesk/internal/config"
	"tradedesk/internal/domain"
	"tradedesk/internal/events"
	"tradedesk/internal/httpapi"
	"tradedesk/internal/marketdata"
	"tradedesk/internal/news"
	"tradedesk/internal/store"
	"tradedesk/internal/strategy"
	"tradedesk/internal/util"
)

func main() {
	_ = godotenv.Load()

	cfgPath := "config/tradedesk.yaml"
	if p := os.Getenv("TRADEDESK_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Stores.
	results, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening result store: %v", err)
	}
	defer results.Close()
	pstore := store.NewParquetStore(cfg.Storage.DataDir, domain.MarketUS)

	// Simulation engine.
	factory := func(start, end time.Time) marketdata.Provider {
		return marketdata.NewStoreProvider(pstore, pstore, domain.MarketUS, start, end)
	}
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Kafka.Enabled {
		kp := events.NewKafkaPublisher(cfg.Kafka.Brokers, logger)
		defer kp.Close()
		publisher = kp
	}
	runner := backtest.NewRunner(results, factory, publisher, cfg.Backtest.DefaultSymbols, logger)
	logger.Info("strategies loaded", "kinds", strategy.DefaultRegistry().List())
	pool := backtest.NewPool(runner, cfg.Backtest.QueueSize, logger)
	pool.Start(ctx, cfg.Backtest.Workers)
	defer pool.Stop()

	// Externally triggered runs over Kafka.
	if cfg.Kafka.Enabled {
		consumer := events.NewRequestConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, pool.Submit, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil {
				logger.Error("request consumer stopped", "error", err)
			}
		}()
	}

	// News source, if Alpaca credentials are configured.
	var newsSource httpapi.NewsSource
	if cfg.Alpaca.APIKey != "" {
		newsSource = news.NewAlpacaFetcher(alpacamd.NewClient(alpacamd.ClientOpts{
			APIKey:    cfg.Alpaca.APIKey,
			APISecret: cfg.Alpaca.APISecret,
			BaseURL:   cfg.Alpaca.DataURL,
		}))
	}

	api := httpapi.NewServer(runner, pool, results, pstore, newsSource, logger)
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: api.Handler(),
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
