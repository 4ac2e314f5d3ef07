package domain

import (
	"testing"
	"time"
)

func TestTypesExist(t *testing.T) {
	// Verify Bar can be instantiated with zero values.
	bar := Bar{}
	if bar.Symbol != "" {
		t.Error("expected empty Symbol for zero-value Bar")
	}
	if !bar.Timestamp.IsZero() {
		t.Error("expected zero Timestamp for zero-value Bar")
	}
	if bar.Open != 0 || bar.High != 0 || bar.Low != 0 || bar.Close != 0 {
		t.Error("expected zero OHLC values for zero-value Bar")
	}

	// Verify IndicatorSet defaults to no computed values.
	ind := IndicatorSet{}
	if ind.SMA20 != nil || ind.SMA50 != nil || ind.RSI14 != nil {
		t.Error("expected nil indicator fields for zero-value IndicatorSet")
	}
	if ind.BBUpper != nil || ind.BBMiddle != nil || ind.BBLower != nil {
		t.Error("expected nil band fields for zero-value IndicatorSet")
	}

	// Verify enum constants are defined correctly.
	if ActionBuy != "buy" || ActionSell != "sell" || ActionHold != "hold" {
		t.Error("SignalAction constants have unexpected values")
	}
	if TradeOpen != "open" || TradeClosed != "closed" {
		t.Error("TradeStatus constants have unexpected values")
	}
	if BacktestPending != "pending" || BacktestRunning != "running" ||
		BacktestCompleted != "completed" || BacktestFailed != "failed" {
		t.Error("BacktestStatus constants have unexpected values")
	}
	if MarketUS != "us" || MarketCN != "cn" {
		t.Error("Market constants have unexpected values")
	}

	// Verify structs can be constructed with real values.
	now := time.Now()
	sig := Signal{
		Action:   ActionBuy,
		Reason:   "SMA crossover - short MA above long MA",
		StopLoss: Float(95),
	}
	if sig.StopLoss == nil || *sig.StopLoss != 95 {
		t.Errorf("sig.StopLoss = %v, want 95", sig.StopLoss)
	}

	bt := Backtest{
		ID:             "bt-1",
		StrategyID:     "strat-1",
		Name:           "sma test",
		StartDate:      now.AddDate(0, -1, 0),
		EndDate:        now,
		InitialCapital: 100000,
		Commission:     0.001,
		Status:         BacktestPending,
	}
	if bt.Stats != nil {
		t.Error("expected nil Stats before completion")
	}
	if bt.Status != BacktestPending {
		t.Errorf("bt.Status = %q, want %q", bt.Status, BacktestPending)
	}
}

func TestHold(t *testing.T) {
	sig := Hold("missing indicators")
	if sig.Action != ActionHold {
		t.Errorf("Hold().Action = %q, want %q", sig.Action, ActionHold)
	}
	if sig.Reason != "missing indicators" {
		t.Errorf("Hold().Reason = %q, want %q", sig.Reason, "missing indicators")
	}
	if sig.StopLoss != nil || sig.TakeProfit != nil {
		t.Error("Hold() should not carry risk levels")
	}
}
