package backtest

import (
	"math"

	"tradedesk/internal/domain"
)

// tradingDaysPerYear is the annualization factor for the Sharpe ratio.
const tradingDaysPerYear = 252

// ComputeStats derives the summary statistics for a finished run from its
// closed trades and ordered equity curve.
func ComputeStats(trades []domain.Trade, curve []domain.EquityPoint) domain.Stats {
	stats := domain.Stats{TotalTrades: len(trades)}

	var winSum, lossSum float64
	for _, t := range trades {
		switch {
		case t.PnL > 0:
			stats.WinningTrades++
			winSum += t.PnL
			if t.PnL > stats.LargestWin {
				stats.LargestWin = t.PnL
			}
		case t.PnL < 0:
			stats.LosingTrades++
			lossSum += -t.PnL
			if t.PnL < stats.LargestLoss {
				stats.LargestLoss = t.PnL
			}
		}
	}

	if stats.TotalTrades > 0 {
		stats.WinRate = float64(stats.WinningTrades) / float64(stats.TotalTrades) * 100
	}
	if stats.WinningTrades > 0 {
		stats.AvgWin = winSum / float64(stats.WinningTrades)
	}
	if stats.LosingTrades > 0 {
		stats.AvgLoss = lossSum / float64(stats.LosingTrades)
	}
	// Never infinite: no losses means profit factor 0.
	if stats.AvgLoss > 0 {
		stats.ProfitFactor = stats.AvgWin / stats.AvgLoss
	}

	if len(curve) > 0 {
		initial := curve[0].PortfolioValue
		final := curve[len(curve)-1].PortfolioValue
		if initial > 0 {
			stats.TotalReturn = (final - initial) / initial * 100
		}
		stats.MaxDrawdown = maxDrawdown(curve)
		stats.SharpeRatio = sharpeRatio(curve)
	}
	return stats
}

// maxDrawdown returns the largest percentage decline from a running peak.
func maxDrawdown(curve []domain.EquityPoint) float64 {
	var peak, maxDD float64
	for _, point := range curve {
		if point.PortfolioValue > peak {
			peak = point.PortfolioValue
		}
		if peak > 0 {
			dd := (peak - point.PortfolioValue) / peak * 100
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// sharpeRatio annualizes mean daily return over its volatility.
func sharpeRatio(curve []domain.EquityPoint) float64 {
	n := float64(len(curve))
	var sum float64
	for _, point := range curve {
		sum += point.DailyReturn
	}
	mean := sum / n

	var variance float64
	for _, point := range curve {
		d := point.DailyReturn - mean
		variance += d * d
	}
	stdev := math.Sqrt(variance / n)
	if stdev == 0 {
		return 0
	}
	return mean / stdev * math.Sqrt(tradingDaysPerYear)
}
