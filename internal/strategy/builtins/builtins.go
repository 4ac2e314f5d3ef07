// Package builtins contains the built-in trading strategies.
package builtins

import "tradedesk/internal/domain"

// Parameter map keys shared across the builtins.
const (
	ParamStopLoss   = "stop_loss"
	ParamTakeProfit = "take_profit"
	ParamOversold   = "oversold"
	ParamOverbought = "overbought"
)

// param returns the value for key from params, or def when absent.
func param(params map[string]float64, key string, def float64) float64 {
	if v, ok := params[key]; ok {
		return v
	}
	return def
}

// checkRiskLevels returns a sell signal when the close breaches the
// position's recorded stop-loss or take-profit level, and hold otherwise.
func checkRiskLevels(bar domain.Bar, pos *domain.Position) domain.Signal {
	if pos.StopLoss != nil && bar.Close <= *pos.StopLoss {
		return domain.Signal{Action: domain.ActionSell, Reason: "stop loss hit"}
	}
	if pos.TakeProfit != nil && bar.Close >= *pos.TakeProfit {
		return domain.Signal{Action: domain.ActionSell, Reason: "take profit hit"}
	}
	return domain.Hold("holding")
}
