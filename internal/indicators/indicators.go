// Package indicators provides the pure, stateless measures the market
// condition detector is built on. Every function takes a bar window and
// returns a value plus a reliability flag; the flag is false whenever the
// window is shorter than the longest required lookback, and callers must
// not act on the value in that case.
package indicators

import (
	"math"

	"regime-bot-go/internal/models"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
)

const (
	shortMAPeriod = 10
	midMAPeriod   = 20
	longMAPeriod  = 50

	trendLookback = 20

	atrPeriod = 14
	rsiPeriod = 14
	rocPeriod = 10

	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
)

// MinLookback is the number of bars required before any indicator in this
// package is considered reliable. Driven by the 50-period moving average.
const MinLookback = longMAPeriod

// Closes extracts the close price series from a bar window.
func Closes(bars []models.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

func highs(bars []models.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.High
	}
	return out
}

func lows(bars []models.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Low
	}
	return out
}

// Trend scores the directional structure of the window. The moving-average
// alignment contributes up to ±10 points (fraction of the 10/20/50 pairs in
// ascending vs descending order), and the percentage change over the trend
// lookback is added on top when it leaves the ±neutralPct band.
//
// The resulting scale is what the detector's trend thresholds (for example
// 5 and 15) are calibrated against.
func Trend(bars []models.Bar, neutralPct float64) (float64, bool) {
	if len(bars) < MinLookback {
		return 0, false
	}

	closes := Closes(bars)
	n := len(closes) - 1

	smaShort := talib.Sma(closes, shortMAPeriod)[n]
	smaMid := talib.Sma(closes, midMAPeriod)[n]
	smaLong := talib.Sma(closes, longMAPeriod)[n]

	score := 0
	pairs := [][2]float64{{smaShort, smaMid}, {smaMid, smaLong}, {smaShort, smaLong}}
	for _, p := range pairs {
		switch {
		case p[0] > p[1]:
			score++
		case p[0] < p[1]:
			score--
		}
	}
	// Fully stacked averages score ±1; ties contribute nothing, so a flat
	// market reads as 0 rather than as a downtrend.
	alignment := float64(score) / float64(len(pairs))

	changePct := 0.0
	base := closes[n-trendLookback]
	if base != 0 {
		changePct = (closes[n] - base) / base * 100
	}
	if math.Abs(changePct) < neutralPct {
		changePct = 0
	}

	return alignment*10 + changePct, true
}

// Volatility buckets the ATR-to-price ratio into LOW/MEDIUM/HIGH using the
// configured boundaries. The raw ratio is returned for diagnostics.
func Volatility(bars []models.Bar, lowPct, highPct float64) (models.VolatilityLevel, float64, bool) {
	if len(bars) < MinLookback {
		return models.VolMedium, 0, false
	}

	closes := Closes(bars)
	n := len(closes) - 1
	atr := talib.Atr(highs(bars), lows(bars), closes, atrPeriod)[n]

	ratio := 0.0
	if closes[n] != 0 {
		ratio = atr / closes[n]
	}

	switch {
	case ratio < lowPct:
		return models.VolLow, ratio, true
	case ratio > highPct:
		return models.VolHigh, ratio, true
	default:
		return models.VolMedium, ratio, true
	}
}

// Momentum combines RSI, MACD histogram and rate-of-change into a single
// weighted score in [-1,1]. Each sub-indicator is normalized to [-1,1]
// before weighting.
func Momentum(bars []models.Bar, w models.MomentumWeights) (float64, bool) {
	if len(bars) < MinLookback {
		return 0, false
	}

	closes := Closes(bars)
	n := len(closes) - 1

	rsi := talib.Rsi(closes, rsiPeriod)[n]
	rsiNorm := (rsi - 50) / 50

	_, _, hist := talib.Macd(closes, macdFast, macdSlow, macdSignal)
	// A histogram of half a percent of price saturates the contribution.
	macdNorm := clamp(hist[n]/(closes[n]*0.005), -1, 1)

	roc := talib.Roc(closes, rocPeriod)[n]
	rocNorm := clamp(roc/10, -1, 1)

	total := w.RSI + w.MACD + w.ROC
	score := (w.RSI*rsiNorm + w.MACD*macdNorm + w.ROC*rocNorm) / total
	return clamp(score, -1, 1), true
}

// RealizedVolatility is the standard deviation of simple bar-to-bar returns
// over the window, exposed for diagnostics and reporting.
func RealizedVolatility(bars []models.Bar) float64 {
	if len(bars) < 2 {
		return 0
	}
	closes := Closes(bars)
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] != 0 {
			returns = append(returns, closes[i]/closes[i-1]-1)
		}
	}
	if len(returns) < 2 {
		return 0
	}
	return stat.StdDev(returns, nil)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
