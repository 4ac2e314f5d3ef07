// Package domain defines the core data types shared across the tradedesk
// platform: market data, trading signals, and backtest records.
package domain

import "time"

// Market identifies a trading venue region.
type Market string

// Supported markets.
const (
	MarketUS Market = "us"
	MarketCN Market = "cn"
)

// DateLayout is the canonical date format used throughout the platform.
const DateLayout = "2006-01-02"

// Bar is one day's OHLCV data for a symbol.
type Bar struct {
	Symbol     string
	Timestamp  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64
	TradeCount int64
	VWAP       float64
}

// IndicatorSet is the daily technical-indicator bundle for a symbol. Fields
// are nil while the underlying lookback window has not filled (e.g. the first
// 49 bars for SMA50).
type IndicatorSet struct {
	Symbol    string
	Timestamp time.Time
	SMA20     *float64
	SMA50     *float64
	RSI14     *float64
	BBUpper   *float64
	BBMiddle  *float64
	BBLower   *float64
}

// SignalAction is a strategy's per-day decision.
type SignalAction string

// Signal actions.
const (
	ActionBuy  SignalAction = "buy"
	ActionSell SignalAction = "sell"
	ActionHold SignalAction = "hold"
)

// Signal is a strategy's decision for one symbol on one day, with optional
// risk levels attached to buy signals.
type Signal struct {
	Action     SignalAction `json:"action"`
	Reason     string       `json:"reason,omitempty"`
	StopLoss   *float64     `json:"stopLoss,omitempty"`
	TakeProfit *float64     `json:"takeProfit,omitempty"`
}

// Hold returns a hold signal with the given reason.
func Hold(reason string) Signal {
	return Signal{Action: ActionHold, Reason: reason}
}

// Position is an open simulated holding. At most one Position exists per
// symbol per portfolio.
type Position struct {
	Symbol     string
	Quantity   int64
	EntryPrice float64
	EntryDate  time.Time
	StopLoss   *float64
	TakeProfit *float64
}

// TradeStatus is the lifecycle state of a backtest trade.
type TradeStatus string

// Trade statuses.
const (
	TradeOpen   TradeStatus = "open"
	TradeClosed TradeStatus = "closed"
)

// Trade records one round trip (or the open leg of one) produced by a
// backtest. Exit fields are zero while the trade is open.
type Trade struct {
	ID          string
	BacktestID  string
	Symbol      string
	EntryDate   time.Time
	EntryPrice  float64
	ExitDate    time.Time
	ExitPrice   float64
	Quantity    int64
	Commission  float64
	PnL         float64
	PnLPercent  float64
	Status      TradeStatus
	EntryReason string
	ExitReason  string
}

// EquityPoint is one daily snapshot of simulated portfolio value.
type EquityPoint struct {
	BacktestID     string
	Date           time.Time
	PortfolioValue float64
	Cash           float64
	PositionsValue float64
	DailyReturn    float64
}

// BacktestStatus is the lifecycle state of a backtest run. Completed and
// failed are terminal.
type BacktestStatus string

// Backtest statuses.
const (
	BacktestPending   BacktestStatus = "pending"
	BacktestRunning   BacktestStatus = "running"
	BacktestCompleted BacktestStatus = "completed"
	BacktestFailed    BacktestStatus = "failed"
)

// Stats holds the aggregate performance metrics of a completed backtest.
type Stats struct {
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

// Backtest is one simulation run configuration plus its outcome.
type Backtest struct {
	ID             string
	StrategyID     string
	Name           string
	StartDate      time.Time
	EndDate        time.Time
	InitialCapital float64
	Commission     float64
	Slippage       float64
	Status         BacktestStatus
	Stats          *Stats
	CreatedAt      time.Time
	CompletedAt    time.Time
}

// StrategyKind identifies one of the built-in strategy implementations.
type StrategyKind string

// Built-in strategy kinds.
const (
	KindSMACross          StrategyKind = "sma-cross"
	KindRSIReversion      StrategyKind = "rsi-reversion"
	KindBollingerBreakout StrategyKind = "bollinger-breakout"
)

// StrategySpec is a catalog entry: a strategy kind plus parameter overrides.
// Immutable for the duration of a run.
type StrategySpec struct {
	ID          string
	Name        string
	Kind        StrategyKind
	Description string
	Parameters  map[string]float64
	IsActive    bool
	CreatedAt   time.Time
}

// Float is a convenience constructor for optional float fields.
func Float(v float64) *float64 { return &v }
