// Package indicator derives daily technical-indicator bundles from bar
// series. The math comes from gct-ta; this package only handles alignment
// between bar series and the zero-padded indicator outputs.
package indicator

import (
	"math"

	"github.com/thrasher-corp/gct-ta/indicators"

	"tradedesk/internal/domain"
)

// Indicator windows. Strategies are written against these and the screener
// surfaces them, so they are fixed rather than configurable.
const (
	SMAShortWindow  = 20
	SMALongWindow   = 50
	RSIWindow       = 14
	BollingerWindow = 20
	BollingerDev    = 2.0
)

// Compute derives one IndicatorSet per input bar. Element i is aligned with
// bars[i]; fields stay nil until the corresponding lookback window has
// filled. Input bars must be in ascending timestamp order.
func Compute(bars []domain.Bar) []domain.IndicatorSet {
	if len(bars) == 0 {
		return nil
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	sets := make([]domain.IndicatorSet, len(bars))
	for i, b := range bars {
		sets[i] = domain.IndicatorSet{Symbol: b.Symbol, Timestamp: b.Timestamp}
	}

	if len(closes) >= SMAShortWindow {
		assign(sets, indicators.SMA(closes, SMAShortWindow), SMAShortWindow-1, func(s *domain.IndicatorSet, v float64) { s.SMA20 = &v })
	}
	if len(closes) >= SMALongWindow {
		assign(sets, indicators.SMA(closes, SMALongWindow), SMALongWindow-1, func(s *domain.IndicatorSet, v float64) { s.SMA50 = &v })
	}
	if len(closes) > RSIWindow {
		assign(sets, indicators.RSI(closes, RSIWindow), RSIWindow, func(s *domain.IndicatorSet, v float64) { s.RSI14 = &v })
	}

	if len(closes) >= BollingerWindow {
		upper, middle, lower := indicators.BBANDS(closes, BollingerWindow, BollingerDev, BollingerDev, indicators.Sma)
		assign(sets, upper, BollingerWindow-1, func(s *domain.IndicatorSet, v float64) { s.BBUpper = &v })
		assign(sets, middle, BollingerWindow-1, func(s *domain.IndicatorSet, v float64) { s.BBMiddle = &v })
		assign(sets, lower, BollingerWindow-1, func(s *domain.IndicatorSet, v float64) { s.BBLower = &v })
	}

	return sets
}

// assign maps an indicator series onto sets, leaving the first warmup
// entries nil. gct-ta returns full-length slices with the lookback period
// zero-filled at the front; those zeros are padding, not values, and must
// not reach strategies.
func assign(sets []domain.IndicatorSet, values []float64, warmup int, set func(*domain.IndicatorSet, float64)) {
	offset := len(sets) - len(values)
	if offset < 0 {
		return
	}
	for i, v := range values {
		if offset+i < warmup {
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		set(&sets[offset+i], v)
	}
}
