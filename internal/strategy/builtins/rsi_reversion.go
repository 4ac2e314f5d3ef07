package builtins

import "tradedesk/internal/domain"

// RSIReversion buys oversold conditions and sells overbought ones, with a
// stop-loss level recorded at entry. No take-profit: the overbought exit
// serves that role.
type RSIReversion struct {
	Oversold   float64
	Overbought float64
	StopLoss   float64
}

// NewRSIReversion builds an RSIReversion with defaults overridden by params.
func NewRSIReversion(params map[string]float64) *RSIReversion {
	return &RSIReversion{
		Oversold:   param(params, ParamOversold, 30),
		Overbought: param(params, ParamOverbought, 70),
		StopLoss:   param(params, ParamStopLoss, 0.05),
	}
}

func (s *RSIReversion) Name() string { return string(domain.KindRSIReversion) }

func (s *RSIReversion) Evaluate(bar domain.Bar, ind domain.IndicatorSet, pos *domain.Position) domain.Signal {
	if pos == nil {
		if ind.RSI14 == nil {
			return domain.Hold("rsi not ready")
		}
		if *ind.RSI14 < s.Oversold {
			return domain.Signal{
				Action:   domain.ActionBuy,
				Reason:   "rsi oversold",
				StopLoss: domain.Float(bar.Close * (1 - s.StopLoss)),
			}
		}
		return domain.Hold("rsi neutral")
	}

	if ind.RSI14 == nil {
		return domain.Hold("rsi not ready")
	}
	if *ind.RSI14 > s.Overbought {
		return domain.Signal{Action: domain.ActionSell, Reason: "rsi overbought"}
	}
	if pos.StopLoss != nil && bar.Close <= *pos.StopLoss {
		return domain.Signal{Action: domain.ActionSell, Reason: "stop loss hit"}
	}
	return domain.Hold("holding")
}
