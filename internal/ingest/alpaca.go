package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"tradedesk/internal/domain"
	"tradedesk/internal/indicator"
	"tradedesk/internal/store"
	"tradedesk/internal/util"
)

// Compile-time interface check.
var _ Gatherer = (*DailyBarGatherer)(nil)

// DailyBarGatherer fetches daily OHLCV bars for a fixed symbol list via the
// Alpaca market-data API, writes them to the bar store, then recomputes and
// writes the per-symbol indicator files.
type DailyBarGatherer struct {
	client     *marketdata.Client
	bars       store.BarStore
	indicators store.IndicatorStore
	symbols    []string
	span       DateRange
	batchSize  int
	limiter    *util.RateLimiter
	log        *slog.Logger
}

// DailyBarConfig configures a DailyBarGatherer.
type DailyBarConfig struct {
	APIKey          string
	APISecret       string
	DataURL         string
	Symbols         []string
	Span            DateRange
	BatchSize       int
	RateLimitPerMin int
}

// NewDailyBarGatherer creates a gatherer with the given Alpaca credentials
// and target stores.
func NewDailyBarGatherer(cfg DailyBarConfig, bars store.BarStore, indicators store.IndicatorStore) *DailyBarGatherer {
	opts := marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
	}
	if cfg.DataURL != "" {
		opts.BaseURL = cfg.DataURL
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 200
	}
	rateLimit := cfg.RateLimitPerMin
	if rateLimit <= 0 {
		rateLimit = 200
	}

	symbols := make([]string, 0, len(cfg.Symbols))
	for _, s := range cfg.Symbols {
		symbols = append(symbols, strings.ToUpper(s))
	}

	return &DailyBarGatherer{
		client:     marketdata.NewClient(opts),
		bars:       bars,
		indicators: indicators,
		symbols:    symbols,
		span:       cfg.Span,
		batchSize:  batchSize,
		limiter:    util.NewRateLimiter(rateLimit),
		log:        slog.Default().With("gatherer", "daily-bars"),
	}
}

// Name returns the gatherer identifier.
func (g *DailyBarGatherer) Name() string { return "daily-bars" }

// Run fetches bars for every configured symbol in batches, persists them,
// and recomputes indicators for each symbol that received data. Failed
// batches are logged and skipped; one bad batch does not abort the pass.
func (g *DailyBarGatherer) Run(ctx context.Context) error {
	if len(g.symbols) == 0 {
		return fmt.Errorf("no symbols configured")
	}

	runStart := time.Now()
	g.log.Info("starting ingestion",
		"symbols", len(g.symbols),
		"start", g.span.Start.Format(domain.DateLayout),
		"end", g.span.End.Format(domain.DateLayout),
	)

	var fetched, failed int
	for i := 0; i < len(g.symbols); i += g.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch := g.symbols[i:min(i+g.batchSize, len(g.symbols))]

		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}

		var bars []domain.Bar
		err := util.Retry(ctx, 3, time.Second, func() error {
			var fetchErr error
			bars, fetchErr = g.fetchMultiBars(ctx, batch)
			return fetchErr
		})
		if err != nil {
			g.log.Error("batch fetch failed", "batch", i/g.batchSize+1, "err", err)
			failed += len(batch)
			continue
		}
		if len(bars) == 0 {
			continue
		}

		if err := g.bars.WriteBars(ctx, bars); err != nil {
			return fmt.Errorf("writing bars: %w", err)
		}
		fetched += len(bars)

		if err := g.computeIndicators(ctx, symbolsWithBars(bars)); err != nil {
			return err
		}
	}

	g.log.Info("ingestion complete",
		"bars", fetched,
		"failed_symbols", failed,
		"elapsed", time.Since(runStart).Round(time.Second),
	)
	return nil
}

// fetchMultiBars fetches daily bars for a symbol batch in one API call.
func (g *DailyBarGatherer) fetchMultiBars(ctx context.Context, symbols []string) ([]domain.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	multiBars, err := g.client.GetMultiBars(symbols, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     g.span.Start,
		End:       g.span.End,
		Feed:      "sip",
	})
	if err != nil {
		return nil, fmt.Errorf("GetMultiBars: %w", err)
	}

	var bars []domain.Bar
	for symbol, alpacaBars := range multiBars {
		for _, ab := range alpacaBars {
			bars = append(bars, domain.Bar{
				Symbol:     strings.ToUpper(symbol),
				Timestamp:  ab.Timestamp,
				Open:       ab.Open,
				High:       ab.High,
				Low:        ab.Low,
				Close:      ab.Close,
				Volume:     int64(ab.Volume),
				TradeCount: int64(ab.TradeCount),
				VWAP:       ab.VWAP,
			})
		}
	}
	return bars, nil
}

// computeIndicators recomputes the full indicator series for each symbol
// from its stored bars. Indicators always derive from the complete history
// so merged backfills stay consistent.
func (g *DailyBarGatherer) computeIndicators(ctx context.Context, symbols []string) error {
	for _, symbol := range symbols {
		bars, err := g.bars.ReadBars(ctx, symbol, "", g.span.Start, g.span.End)
		if err != nil {
			return fmt.Errorf("reading bars for %s: %w", symbol, err)
		}
		sets := indicator.Compute(bars)
		if len(sets) == 0 {
			continue
		}
		if err := g.indicators.WriteIndicators(ctx, sets); err != nil {
			return fmt.Errorf("writing indicators for %s: %w", symbol, err)
		}
	}
	return nil
}

// symbolsWithBars returns the distinct symbols present in bars.
func symbolsWithBars(bars []domain.Bar) []string {
	seen := make(map[string]struct{})
	var symbols []string
	for _, b := range bars {
		if _, ok := seen[b.Symbol]; !ok {
			seen[b.Symbol] = struct{}{}
			symbols = append(symbols, b.Symbol)
		}
	}
	return symbols
}
