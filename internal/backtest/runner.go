package backtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tradedesk/internal/domain"
	"tradedesk/internal/events"
	"tradedesk/internal/marketdata"
	"tradedesk/internal/store"
	"tradedesk/internal/strategy"
	"tradedesk/internal/util"
)

// ProviderFactory builds a market-data provider scoped to one run's date
// range.
type ProviderFactory func(start, end time.Time) marketdata.Provider

// CreateRequest describes a backtest to create.
type CreateRequest struct {
	StrategyID     string
	Name           string
	StartDate      time.Time
	EndDate        time.Time
	InitialCapital float64
	Commission     float64
	Slippage       float64
}

// Runner orchestrates simulation runs: it creates backtest records,
// executes the day-by-day loop, and persists trades, equity points and
// final statistics.
type Runner struct {
	results        store.ResultStore
	providers      ProviderFactory
	publisher      events.Publisher
	defaultSymbols int
	log            *slog.Logger
}

// NewRunner wires a runner from its collaborators. defaultSymbols caps the
// sample when a run names no symbols.
func NewRunner(results store.ResultStore, providers ProviderFactory, publisher events.Publisher, defaultSymbols int, log *slog.Logger) *Runner {
	return &Runner{
		results:        results,
		providers:      providers,
		publisher:      publisher,
		defaultSymbols: defaultSymbols,
		log:            log,
	}
}

// Create validates the request and persists a new backtest with status
// pending.
func (r *Runner) Create(ctx context.Context, req CreateRequest) (*domain.Backtest, error) {
	if req.StrategyID == "" {
		return nil, errors.New("strategy id is required")
	}
	if req.InitialCapital <= 0 {
		return nil, errors.New("initial capital must be positive")
	}
	if !req.EndDate.After(req.StartDate) {
		return nil, errors.New("end date must be after start date")
	}
	if _, err := r.results.GetStrategy(ctx, req.StrategyID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("unknown strategy %q", req.StrategyID)
		}
		return nil, err
	}

	name := req.Name
	if name == "" {
		name = fmt.Sprintf("%s %s to %s", req.StrategyID,
			req.StartDate.Format(domain.DateLayout), req.EndDate.Format(domain.DateLayout))
	}

	bt := &domain.Backtest{
		ID:             uuid.NewString(),
		StrategyID:     req.StrategyID,
		Name:           name,
		StartDate:      util.Midnight(req.StartDate),
		EndDate:        util.Midnight(req.EndDate),
		InitialCapital: req.InitialCapital,
		Commission:     req.Commission,
		Slippage:       req.Slippage,
		Status:         domain.BacktestPending,
		CreatedAt:      time.Now().UTC(),
	}
	if err := r.results.CreateBacktest(ctx, bt); err != nil {
		return nil, err
	}
	r.log.Info("backtest created", "backtest_id", bt.ID, "strategy", bt.StrategyID)
	return bt, nil
}

// Run executes the full simulation for an already created backtest. On
// success it writes statistics, marks the backtest completed and publishes
// a completion event. On any error it marks the backtest failed; trades
// and equity points persisted before the failure stay in place.
func (r *Runner) Run(ctx context.Context, backtestID string, symbols []string) error {
	if err := r.run(ctx, backtestID, symbols); err != nil {
		r.log.Error("backtest failed", "backtest_id", backtestID, "error", err)
		if updErr := r.results.UpdateStatus(context.WithoutCancel(ctx), backtestID, domain.BacktestFailed); updErr != nil {
			r.log.Error("marking backtest failed", "backtest_id", backtestID, "error", updErr)
		}
		return err
	}
	return nil
}

func (r *Runner) run(ctx context.Context, backtestID string, symbols []string) error {
	bt, err := r.results.GetBacktest(ctx, backtestID)
	if err != nil {
		return fmt.Errorf("loading backtest: %w", err)
	}
	spec, err := r.results.GetStrategy(ctx, bt.StrategyID)
	if err != nil {
		return fmt.Errorf("loading strategy %s: %w", bt.StrategyID, err)
	}
	strat, err := strategy.FromSpec(spec)
	if err != nil {
		return err
	}

	if err := r.results.UpdateStatus(ctx, backtestID, domain.BacktestRunning); err != nil {
		return fmt.Errorf("marking running: %w", err)
	}

	provider := r.providers(bt.StartDate, bt.EndDate)
	if len(symbols) == 0 {
		symbols, err = provider.SampleSymbols(ctx, r.defaultSymbols)
		if err != nil {
			return fmt.Errorf("sampling symbols: %w", err)
		}
	}
	if len(symbols) == 0 {
		return errors.New("no symbols available for simulation")
	}

	r.log.Info("backtest started", "backtest_id", backtestID,
		"strategy", strat.Name(), "symbols", len(symbols),
		"start", bt.StartDate.Format(domain.DateLayout), "end", bt.EndDate.Format(domain.DateLayout))

	portfolio := NewPortfolio(backtestID, bt.InitialCapital, bt.Commission, r.log)
	var curve []domain.EquityPoint

	for _, date := range util.TradingDays(bt.StartDate, bt.EndDate) {
		if err := ctx.Err(); err != nil {
			return err
		}

		closes := make(map[string]float64, len(symbols))
		for _, symbol := range symbols {
			// A failing fetch for one symbol must not take down the
			// rest of the day; skip it and move on.
			bar, err := provider.GetDailyBar(ctx, symbol, date)
			if err != nil {
				r.log.Warn("bar fetch failed", "backtest_id", backtestID,
					"symbol", symbol, "date", date.Format(domain.DateLayout), "error", err)
				continue
			}
			ind, err := provider.GetIndicators(ctx, symbol, date)
			if err != nil {
				r.log.Warn("indicator fetch failed", "backtest_id", backtestID,
					"symbol", symbol, "date", date.Format(domain.DateLayout), "error", err)
				continue
			}
			if bar == nil || ind == nil {
				continue
			}
			closes[symbol] = bar.Close

			sig := strat.Evaluate(*bar, *ind, portfolio.Position(symbol))
			switch sig.Action {
			case domain.ActionBuy:
				if trade := portfolio.ExecuteBuy(symbol, date, bar.Close, sig); trade != nil {
					if err := r.results.AppendTrade(ctx, trade); err != nil {
						return fmt.Errorf("persisting trade: %w", err)
					}
				}
			case domain.ActionSell:
				if trade := portfolio.ExecuteSell(symbol, date, bar.Close, sig); trade != nil {
					if err := r.results.UpdateTrade(ctx, trade); err != nil {
						return fmt.Errorf("closing trade: %w", err)
					}
				}
			}
		}

		point := portfolio.Valuate(date, closes)
		if err := r.results.AppendEquityPoint(ctx, &point); err != nil {
			return fmt.Errorf("persisting equity point: %w", err)
		}
		curve = append(curve, point)
	}

	stats := ComputeStats(portfolio.ClosedTrades(), curve)
	if err := r.results.WriteStatistics(ctx, backtestID, stats); err != nil {
		return fmt.Errorf("writing statistics: %w", err)
	}
	if err := r.results.UpdateStatus(ctx, backtestID, domain.BacktestCompleted); err != nil {
		return fmt.Errorf("marking completed: %w", err)
	}

	event := events.CompletedEvent{
		BacktestID:  backtestID,
		Status:      string(domain.BacktestCompleted),
		TotalTrades: stats.TotalTrades,
		Timestamp:   time.Now().UTC(),
	}
	if err := r.publisher.PublishCompleted(ctx, event); err != nil {
		// The run itself succeeded; a lost notification is not a failure.
		r.log.Warn("publishing completion event", "backtest_id", backtestID, "error", err)
	}

	r.log.Info("backtest completed", "backtest_id", backtestID,
		"total_trades", stats.TotalTrades, "total_return", stats.TotalReturn)
	return nil
}
