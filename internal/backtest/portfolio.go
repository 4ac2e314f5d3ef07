// Package backtest contains the simulation engine: the portfolio ledger,
// the statistics calculator, the run orchestrator, and the worker pool.
package backtest

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"tradedesk/internal/domain"
)

// Portfolio is the ledger for one simulation run: cash, open positions, and
// the trade history. All mutation goes through ExecuteBuy, ExecuteSell and
// Valuate; fills within a run must be serialized, which the methods enforce
// with an internal mutex.
type Portfolio struct {
	backtestID     string
	commissionRate float64
	log            *slog.Logger

	mu        sync.Mutex
	cash      float64
	positions map[string]*domain.Position
	trades    []*domain.Trade
	lastValue float64
}

// NewPortfolio creates a ledger holding the given starting cash.
func NewPortfolio(backtestID string, cash, commissionRate float64, log *slog.Logger) *Portfolio {
	return &Portfolio{
		backtestID:     backtestID,
		commissionRate: commissionRate,
		log:            log,
		cash:           cash,
		positions:      make(map[string]*domain.Position),
	}
}

// ExecuteBuy opens a position in symbol at price, sizing it to at most 10%
// of current cash including commission. Underfunded or zero-quantity orders
// are logged no-ops returning nil. Returns the opened trade.
func (p *Portfolio) ExecuteBuy(symbol string, date time.Time, price float64, sig domain.Signal) *domain.Trade {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, held := p.positions[symbol]; held {
		return nil
	}

	budget := math.Min(0.10*p.cash, p.cash)
	quantity := int64(math.Floor(budget / (price * (1 + p.commissionRate))))
	if quantity <= 0 {
		p.log.Debug("buy skipped, zero quantity", "symbol", symbol, "price", price, "cash", p.cash)
		return nil
	}

	commission := float64(quantity) * price * p.commissionRate
	cost := float64(quantity)*price + commission
	if cost > p.cash {
		p.log.Debug("buy skipped, insufficient cash", "symbol", symbol, "cost", cost, "cash", p.cash)
		return nil
	}

	p.cash -= cost
	p.positions[symbol] = &domain.Position{
		Symbol:     symbol,
		Quantity:   quantity,
		EntryPrice: price,
		EntryDate:  date,
		StopLoss:   sig.StopLoss,
		TakeProfit: sig.TakeProfit,
	}

	trade := &domain.Trade{
		ID:          uuid.NewString(),
		BacktestID:  p.backtestID,
		Symbol:      symbol,
		EntryDate:   date,
		EntryPrice:  price,
		Quantity:    quantity,
		Commission:  commission,
		Status:      domain.TradeOpen,
		EntryReason: sig.Reason,
	}
	p.trades = append(p.trades, trade)
	return trade
}

// ExecuteSell closes the open position in symbol at price. Returns the
// closed trade, or nil when no position exists.
func (p *Portfolio) ExecuteSell(symbol string, date time.Time, price float64, sig domain.Signal) *domain.Trade {
	p.mu.Lock()
	defer p.mu.Unlock()

	pos, held := p.positions[symbol]
	if !held {
		return nil
	}

	quantity := float64(pos.Quantity)
	commission := price * quantity * p.commissionRate
	proceeds := quantity*price - commission
	costBasis := quantity * pos.EntryPrice
	pnl := proceeds - costBasis

	p.cash += proceeds
	delete(p.positions, symbol)

	for _, trade := range p.trades {
		if trade.Symbol != symbol || trade.Status != domain.TradeOpen {
			continue
		}
		trade.ExitDate = date
		trade.ExitPrice = price
		trade.Commission += commission
		trade.PnL = pnl
		trade.PnLPercent = pnl / costBasis * 100
		trade.Status = domain.TradeClosed
		trade.ExitReason = sig.Reason
		return trade
	}
	return nil
}

// Valuate marks every open position to the day's close (0 when the close
// is unavailable) and returns the equity curve point for date. The daily
// return is relative to the previous valuation, 0 for the first point.
func (p *Portfolio) Valuate(date time.Time, closes map[string]float64) domain.EquityPoint {
	p.mu.Lock()
	defer p.mu.Unlock()

	var positionsValue float64
	for symbol, pos := range p.positions {
		positionsValue += float64(pos.Quantity) * closes[symbol]
	}
	value := p.cash + positionsValue

	var dailyReturn float64
	if p.lastValue > 0 {
		dailyReturn = (value - p.lastValue) / p.lastValue
	}
	p.lastValue = value

	return domain.EquityPoint{
		BacktestID:     p.backtestID,
		Date:           date,
		PortfolioValue: value,
		Cash:           p.cash,
		PositionsValue: positionsValue,
		DailyReturn:    dailyReturn,
	}
}

// Cash returns the current cash balance.
func (p *Portfolio) Cash() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cash
}

// Position returns a copy of the open position in symbol, or nil when flat.
func (p *Portfolio) Position(symbol string) *domain.Position {
	p.mu.Lock()
	defer p.mu.Unlock()
	pos, held := p.positions[symbol]
	if !held {
		return nil
	}
	dup := *pos
	return &dup
}

// Trades returns copies of all trades recorded so far, open and closed.
func (p *Portfolio) Trades() []domain.Trade {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.Trade, len(p.trades))
	for i, t := range p.trades {
		out[i] = *t
	}
	return out
}

// ClosedTrades returns copies of the closed trades only.
func (p *Portfolio) ClosedTrades() []domain.Trade {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.Trade
	for _, t := range p.trades {
		if t.Status == domain.TradeClosed {
			out = append(out, *t)
		}
	}
	return out
}
