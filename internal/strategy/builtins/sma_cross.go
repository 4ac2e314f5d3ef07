package builtins

import "tradedesk/internal/domain"

// SMACross trades the crossover of a short and a long simple moving
// average. Entries carry stop-loss and take-profit levels relative to the
// entry close.
type SMACross struct {
	StopLoss   float64
	TakeProfit float64
}

// NewSMACross builds an SMACross with defaults overridden by params.
func NewSMACross(params map[string]float64) *SMACross {
	return &SMACross{
		StopLoss:   param(params, ParamStopLoss, 0.05),
		TakeProfit: param(params, ParamTakeProfit, 0.10),
	}
}

func (s *SMACross) Name() string { return string(domain.KindSMACross) }

func (s *SMACross) Evaluate(bar domain.Bar, ind domain.IndicatorSet, pos *domain.Position) domain.Signal {
	if pos == nil {
		if ind.SMA20 == nil || ind.SMA50 == nil {
			return domain.Hold("moving averages not ready")
		}
		if *ind.SMA20 > *ind.SMA50 {
			return domain.Signal{
				Action:     domain.ActionBuy,
				Reason:     "short MA above long MA",
				StopLoss:   domain.Float(bar.Close * (1 - s.StopLoss)),
				TakeProfit: domain.Float(bar.Close * (1 + s.TakeProfit)),
			}
		}
		return domain.Hold("no crossover")
	}

	if ind.SMA20 == nil || ind.SMA50 == nil {
		return domain.Hold("moving averages not ready")
	}
	if *ind.SMA20 < *ind.SMA50 {
		return domain.Signal{Action: domain.ActionSell, Reason: "short MA below long MA"}
	}
	return checkRiskLevels(bar, pos)
}
