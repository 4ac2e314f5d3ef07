package builtins

import "tradedesk/internal/domain"

// BollingerBreakout buys closes above the upper band and exits below the
// lower band, with stop-loss and take-profit levels recorded at entry.
type BollingerBreakout struct {
	StopLoss   float64
	TakeProfit float64
}

// NewBollingerBreakout builds a BollingerBreakout with defaults overridden
// by params.
func NewBollingerBreakout(params map[string]float64) *BollingerBreakout {
	return &BollingerBreakout{
		StopLoss:   param(params, ParamStopLoss, 0.05),
		TakeProfit: param(params, ParamTakeProfit, 0.10),
	}
}

func (s *BollingerBreakout) Name() string { return string(domain.KindBollingerBreakout) }

func (s *BollingerBreakout) Evaluate(bar domain.Bar, ind domain.IndicatorSet, pos *domain.Position) domain.Signal {
	if pos == nil {
		if ind.BBUpper == nil {
			return domain.Hold("bands not ready")
		}
		if bar.Close > *ind.BBUpper {
			return domain.Signal{
				Action:     domain.ActionBuy,
				Reason:     "close above upper band",
				StopLoss:   domain.Float(bar.Close * (1 - s.StopLoss)),
				TakeProfit: domain.Float(bar.Close * (1 + s.TakeProfit)),
			}
		}
		return domain.Hold("inside bands")
	}

	if ind.BBLower == nil {
		return domain.Hold("bands not ready")
	}
	if bar.Close < *ind.BBLower {
		return domain.Signal{Action: domain.ActionSell, Reason: "close below lower band"}
	}
	return checkRiskLevels(bar, pos)
}
