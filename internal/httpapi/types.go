package httpapi

import (
	"time"

	"tradedesk/internal/domain"
)

// ---------------------------------------------------------------------------
// Requests
// ---------------------------------------------------------------------------

// CreateBacktestRequest is the POST /api/backtests body.
type CreateBacktestRequest struct {
	StrategyID     string   `json:"strategyId"`
	Name           string   `json:"name"`
	StartDate      string   `json:"startDate"`
	EndDate        string   `json:"endDate"`
	InitialCapital float64  `json:"initialCapital"`
	Commission     float64  `json:"commission"`
	Slippage       float64  `json:"slippage"`
	Symbols        []string `json:"symbols"`
}

// CreateStrategyRequest is the POST /api/strategies body.
type CreateStrategyRequest struct {
	Name        string             `json:"name"`
	Kind        string             `json:"kind"`
	Description string             `json:"description"`
	Parameters  map[string]float64 `json:"parameters"`
}

// ---------------------------------------------------------------------------
// Responses
// ---------------------------------------------------------------------------

// BacktestAccepted acknowledges an asynchronously dispatched run.
type BacktestAccepted struct {
	BacktestID string `json:"backtestId"`
	Status     string `json:"status"`
}

// BacktestJSON is the wire form of a backtest.
type BacktestJSON struct {
	ID             string     `json:"id"`
	StrategyID     string     `json:"strategyId"`
	Name           string     `json:"name"`
	StartDate      string     `json:"startDate"`
	EndDate        string     `json:"endDate"`
	InitialCapital float64    `json:"initialCapital"`
	Commission     float64    `json:"commission"`
	Slippage       float64    `json:"slippage"`
	Status         string     `json:"status"`
	Stats          *StatsJSON `json:"stats,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

// StatsJSON is the wire form of run statistics.
type StatsJSON struct {
	TotalReturn   float64 `json:"totalReturn"`
	MaxDrawdown   float64 `json:"maxDrawdown"`
	SharpeRatio   float64 `json:"sharpeRatio"`
	WinRate       float64 `json:"winRate"`
	ProfitFactor  float64 `json:"profitFactor"`
	TotalTrades   int     `json:"totalTrades"`
	WinningTrades int     `json:"winningTrades"`
	LosingTrades  int     `json:"losingTrades"`
	AvgWin        float64 `json:"avgWin"`
	AvgLoss       float64 `json:"avgLoss"`
	LargestWin    float64 `json:"largestWin"`
	LargestLoss   float64 `json:"largestLoss"`
}

// TradeJSON is the wire form of a simulated trade.
type TradeJSON struct {
	ID          string  `json:"id"`
	Symbol      string  `json:"symbol"`
	EntryDate   string  `json:"entryDate"`
	EntryPrice  float64 `json:"entryPrice"`
	ExitDate    string  `json:"exitDate,omitempty"`
	ExitPrice   float64 `json:"exitPrice,omitempty"`
	Quantity    int64   `json:"quantity"`
	Commission  float64 `json:"commission"`
	PnL         float64 `json:"pnl"`
	PnLPercent  float64 `json:"pnlPercent"`
	Status      string  `json:"status"`
	EntryReason string  `json:"entryReason,omitempty"`
	ExitReason  string  `json:"exitReason,omitempty"`
}

// EquityPointJSON is one point of an equity curve.
type EquityPointJSON struct {
	Date           string  `json:"date"`
	PortfolioValue float64 `json:"portfolioValue"`
	Cash           float64 `json:"cash"`
	PositionsValue float64 `json:"positionsValue"`
	DailyReturn    float64 `json:"dailyReturn"`
}

// StrategyJSON is the wire form of a strategy catalog entry.
type StrategyJSON struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Kind        string             `json:"kind"`
	Description string             `json:"description"`
	Parameters  map[string]float64 `json:"parameters"`
	IsActive    bool               `json:"isActive"`
	CreatedAt   time.Time          `json:"createdAt"`
}

// BarJSON is the wire form of a daily bar.
type BarJSON struct {
	Symbol     string  `json:"symbol"`
	Date       string  `json:"date"`
	Open       float64 `json:"open"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Close      float64 `json:"close"`
	Volume     int64   `json:"volume"`
	TradeCount int64   `json:"tradeCount"`
	VWAP       float64 `json:"vwap"`
}

// NewsResponse wraps the articles for one symbol.
type NewsResponse struct {
	Symbol   string        `json:"symbol"`
	Articles []ArticleJSON `json:"articles"`
}

// ArticleJSON is the wire form of a news article.
type ArticleJSON struct {
	Headline  string    `json:"headline"`
	Summary   string    `json:"summary"`
	Source    string    `json:"source"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
}

// ---------------------------------------------------------------------------
// Conversions
// ---------------------------------------------------------------------------

func convertBacktest(bt *domain.Backtest) BacktestJSON {
	out := BacktestJSON{
		ID:             bt.ID,
		StrategyID:     bt.StrategyID,
		Name:           bt.Name,
		StartDate:      bt.StartDate.Format(domain.DateLayout),
		EndDate:        bt.EndDate.Format(domain.DateLayout),
		InitialCapital: bt.InitialCapital,
		Commission:     bt.Commission,
		Slippage:       bt.Slippage,
		Status:         string(bt.Status),
		CreatedAt:      bt.CreatedAt,
	}
	if bt.Stats != nil {
		out.Stats = &StatsJSON{
			TotalReturn:   bt.Stats.TotalReturn,
			MaxDrawdown:   bt.Stats.MaxDrawdown,
			SharpeRatio:   bt.Stats.SharpeRatio,
			WinRate:       bt.Stats.WinRate,
			ProfitFactor:  bt.Stats.ProfitFactor,
			TotalTrades:   bt.Stats.TotalTrades,
			WinningTrades: bt.Stats.WinningTrades,
			LosingTrades:  bt.Stats.LosingTrades,
			AvgWin:        bt.Stats.AvgWin,
			AvgLoss:       bt.Stats.AvgLoss,
			LargestWin:    bt.Stats.LargestWin,
			LargestLoss:   bt.Stats.LargestLoss,
		}
	}
	if !bt.CompletedAt.IsZero() {
		completed := bt.CompletedAt
		out.CompletedAt = &completed
	}
	return out
}

func convertTrade(t *domain.Trade) TradeJSON {
	out := TradeJSON{
		ID:          t.ID,
		Symbol:      t.Symbol,
		EntryDate:   t.EntryDate.Format(domain.DateLayout),
		EntryPrice:  t.EntryPrice,
		Quantity:    t.Quantity,
		Commission:  t.Commission,
		PnL:         t.PnL,
		PnLPercent:  t.PnLPercent,
		Status:      string(t.Status),
		EntryReason: t.EntryReason,
		ExitReason:  t.ExitReason,
	}
	if t.Status == domain.TradeClosed {
		out.ExitDate = t.ExitDate.Format(domain.DateLayout)
		out.ExitPrice = t.ExitPrice
	}
	return out
}

func convertEquityPoint(p *domain.EquityPoint) EquityPointJSON {
	return EquityPointJSON{
		Date:           p.Date.Format(domain.DateLayout),
		PortfolioValue: p.PortfolioValue,
		Cash:           p.Cash,
		PositionsValue: p.PositionsValue,
		DailyReturn:    p.DailyReturn,
	}
}

func convertStrategy(spec *domain.StrategySpec) StrategyJSON {
	return StrategyJSON{
		ID:          spec.ID,
		Name:        spec.Name,
		Kind:        string(spec.Kind),
		Description: spec.Description,
		Parameters:  spec.Parameters,
		IsActive:    spec.IsActive,
		CreatedAt:   spec.CreatedAt,
	}
}

func convertBar(b *domain.Bar) BarJSON {
	return BarJSON{
		Symbol:     b.Symbol,
		Date:       b.Timestamp.Format(domain.DateLayout),
		Open:       b.Open,
		High:       b.High,
		Low:        b.Low,
		Close:      b.Close,
		Volume:     b.Volume,
		TradeCount: b.TradeCount,
		VWAP:       b.VWAP,
	}
}
