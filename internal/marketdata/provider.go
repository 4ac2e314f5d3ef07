// Package marketdata serves historical bars and precomputed indicators to
// the simulation engine.
package marketdata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tradedesk/internal/domain"
	"tradedesk/internal/store"
	"tradedesk/internal/util"
)

// Provider answers point lookups for daily bars and indicator bundles.
// Both lookups return (nil, nil) when no data exists for the symbol and
// date, which callers treat as "skip this symbol today".
type Provider interface {
	GetDailyBar(ctx context.Context, symbol string, date time.Time) (*domain.Bar, error)
	GetIndicators(ctx context.Context, symbol string, date time.Time) (*domain.IndicatorSet, error)

	// SampleSymbols returns up to limit symbols with stored bar data.
	SampleSymbols(ctx context.Context, limit int) ([]string, error)
}

// Compile-time interface check.
var _ Provider = (*StoreProvider)(nil)

// StoreProvider implements Provider on top of the Parquet-backed bar and
// indicator stores. A symbol's full date range is loaded on first access
// and cached for the lifetime of the provider, so a simulation run reads
// each symbol's files exactly once.
type StoreProvider struct {
	bars       store.BarStore
	indicators store.IndicatorStore
	market     string
	start      time.Time
	end        time.Time

	mu    sync.RWMutex
	cache map[string]*symbolSeries
}

type symbolSeries struct {
	bars       map[int64]domain.Bar
	indicators map[int64]domain.IndicatorSet
}

// NewStoreProvider creates a provider scoped to [start, end] for one market.
func NewStoreProvider(bars store.BarStore, indicators store.IndicatorStore, market domain.Market, start, end time.Time) *StoreProvider {
	return &StoreProvider{
		bars:       bars,
		indicators: indicators,
		market:     string(market),
		start:      util.Midnight(start),
		end:        util.Midnight(end),
		cache:      make(map[string]*symbolSeries),
	}
}

// GetDailyBar returns the bar for symbol on date, or (nil, nil) if the
// symbol has no bar that day.
func (p *StoreProvider) GetDailyBar(ctx context.Context, symbol string, date time.Time) (*domain.Bar, error) {
	series, err := p.series(ctx, symbol)
	if err != nil {
		return nil, err
	}
	bar, ok := series.bars[util.Midnight(date).Unix()]
	if !ok {
		return nil, nil
	}
	return &bar, nil
}

// GetIndicators returns the indicator bundle for symbol on date, or
// (nil, nil) if none was computed for that day.
func (p *StoreProvider) GetIndicators(ctx context.Context, symbol string, date time.Time) (*domain.IndicatorSet, error) {
	series, err := p.series(ctx, symbol)
	if err != nil {
		return nil, err
	}
	set, ok := series.indicators[util.Midnight(date).Unix()]
	if !ok {
		return nil, nil
	}
	return &set, nil
}

// SampleSymbols returns up to limit symbols that have stored bar data.
func (p *StoreProvider) SampleSymbols(ctx context.Context, limit int) ([]string, error) {
	symbols, err := p.bars.ListSymbols(ctx, p.market)
	if err != nil {
		return nil, fmt.Errorf("listing symbols: %w", err)
	}
	if limit > 0 && len(symbols) > limit {
		symbols = symbols[:limit]
	}
	return symbols, nil
}

// series returns the cached series for symbol, loading it on first access.
func (p *StoreProvider) series(ctx context.Context, symbol string) (*symbolSeries, error) {
	p.mu.RLock()
	series, ok := p.cache[symbol]
	p.mu.RUnlock()
	if ok {
		return series, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if series, ok = p.cache[symbol]; ok {
		return series, nil
	}

	bars, err := p.bars.ReadBars(ctx, symbol, p.market, p.start, p.end)
	if err != nil {
		return nil, fmt.Errorf("reading bars for %s: %w", symbol, err)
	}
	sets, err := p.indicators.ReadIndicators(ctx, symbol, p.market, p.start, p.end)
	if err != nil {
		return nil, fmt.Errorf("reading indicators for %s: %w", symbol, err)
	}

	series = &symbolSeries{
		bars:       make(map[int64]domain.Bar, len(bars)),
		indicators: make(map[int64]domain.IndicatorSet, len(sets)),
	}
	for _, b := range bars {
		series.bars[util.Midnight(b.Timestamp).Unix()] = b
	}
	for _, s := range sets {
		series.indicators[util.Midnight(s.Timestamp).Unix()] = s
	}
	p.cache[symbol] = series
	return series, nil
}
