// Package store defines storage interfaces for persisting and retrieving
// domain objects: market data on Parquet, backtest results on SQLite.
package store

import (
	"context"
	"errors"
	"time"

	"tradedesk/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// BarStore persists and retrieves OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars to storage.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol and market within [start, end].
	ReadBars(ctx context.Context, symbol string, market string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols available in the given market.
	ListSymbols(ctx context.Context, market string) ([]string, error)
}

// IndicatorStore persists and retrieves precomputed daily indicator bundles.
type IndicatorStore interface {
	// WriteIndicators persists a batch of indicator sets to storage.
	WriteIndicators(ctx context.Context, sets []domain.IndicatorSet) error

	// ReadIndicators returns indicator sets for the given symbol and market
	// within [start, end].
	ReadIndicators(ctx context.Context, symbol string, market string, start, end time.Time) ([]domain.IndicatorSet, error)
}

// ResultStore persists backtest runs, their trades and equity curves, and
// the strategy catalog.
type ResultStore interface {
	// CreateBacktest inserts a new backtest record.
	CreateBacktest(ctx context.Context, bt *domain.Backtest) error

	// GetBacktest retrieves a backtest by id, including statistics once
	// written. Returns ErrNotFound for unknown ids.
	GetBacktest(ctx context.Context, id string) (*domain.Backtest, error)

	// ListBacktests returns backtests, optionally filtered by strategy id
	// and/or status (empty values match everything), newest first.
	ListBacktests(ctx context.Context, strategyID string, status domain.BacktestStatus) ([]domain.Backtest, error)

	// UpdateStatus transitions a backtest's status. Completed transitions
	// also record the completion time.
	UpdateStatus(ctx context.Context, id string, status domain.BacktestStatus) error

	// WriteStatistics writes the final statistics onto a backtest as a
	// single atomic update.
	WriteStatistics(ctx context.Context, id string, stats domain.Stats) error

	// AppendTrade inserts a newly opened trade.
	AppendTrade(ctx context.Context, trade *domain.Trade) error

	// UpdateTrade persists the closing leg of a trade.
	UpdateTrade(ctx context.Context, trade *domain.Trade) error

	// ListTrades returns all trades for a backtest ordered by entry date.
	ListTrades(ctx context.Context, backtestID string) ([]domain.Trade, error)

	// AppendEquityPoint inserts one equity curve point.
	AppendEquityPoint(ctx context.Context, point *domain.EquityPoint) error

	// ListEquityCurve returns the equity curve for a backtest ordered by date.
	ListEquityCurve(ctx context.Context, backtestID string) ([]domain.EquityPoint, error)

	// CreateStrategy inserts a strategy catalog entry.
	CreateStrategy(ctx context.Context, spec *domain.StrategySpec) error

	// GetStrategy retrieves a strategy by id. Returns ErrNotFound for
	// unknown ids.
	GetStrategy(ctx context.Context, id string) (*domain.StrategySpec, error)

	// ListStrategies returns all active strategies ordered by name.
	ListStrategies(ctx context.Context) ([]domain.StrategySpec, error)
}
