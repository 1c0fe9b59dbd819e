// Package detector classifies the prevailing market regime from a bar
// window. Classification is a decision table over the trend and momentum
// scores; confidence is the fraction of sub-signals agreeing with the
// chosen regime, damped when volatility is high.
package detector

import (
	"math"
	"time"

	"regime-bot-go/internal/indicators"
	"regime-bot-go/internal/models"
)

// Detector is stateless apart from its configuration; every call to Detect
// recomputes the market state from scratch.
type Detector struct {
	cfg models.DetectorConfig
}

func New(cfg models.DetectorConfig) *Detector {
	return &Detector{cfg: cfg}
}

// Detect computes the MarketState for the given window. With fewer bars
// than the minimum lookback it never guesses: the result is SIDEWAYS with
// confidence exactly 0.
func (d *Detector) Detect(window []models.Bar) models.MarketState {
	ts := lastBarTime(window)

	trend, trendOK := indicators.Trend(window, d.cfg.TrendBullPct)
	vol, _, volOK := indicators.Volatility(window, d.cfg.VolLowPct, d.cfg.VolHighPct)
	momentum, momOK := indicators.Momentum(window, d.cfg.MomentumWeights)

	if !trendOK || !volOK || !momOK {
		return models.MarketState{
			Regime:          models.Sideways,
			Confidence:      0,
			VolatilityLevel: models.VolMedium,
			Timestamp:       ts,
		}
	}

	regime := d.classify(trend, momentum)
	confidence := d.confidence(regime, trend, momentum, vol)

	return models.MarketState{
		Regime:          regime,
		Confidence:      confidence,
		TrendScore:      trend,
		VolatilityLevel: vol,
		MomentumScore:   momentum,
		Timestamp:       ts,
	}
}

// classify applies the decision table, strongest buckets first. The strong
// buckets additionally require momentum agreement beyond ±0.5.
func (d *Detector) classify(trend, momentum float64) models.Regime {
	switch {
	case trend >= d.cfg.TrendStrongPct && momentum > 0.5:
		return models.StrongBull
	case trend >= d.cfg.TrendBullPct:
		return models.Bull
	case trend <= -d.cfg.TrendStrongPct && momentum < -0.5:
		return models.StrongBear
	case trend <= -d.cfg.TrendBullPct:
		return models.Bear
	default:
		return models.Sideways
	}
}

// confidence counts how many of the three votes (trend sign, momentum sign,
// volatility-adjusted strength) agree with the regime's expected direction,
// divides by three, and applies the high-volatility damping factor.
func (d *Detector) confidence(regime models.Regime, trend, momentum float64, vol models.VolatilityLevel) float64 {
	dir := regime.Direction()
	votes := 0

	// Trend vote.
	switch {
	case dir > 0 && trend > 0:
		votes++
	case dir < 0 && trend < 0:
		votes++
	case dir == 0 && math.Abs(trend) < d.cfg.TrendBullPct:
		votes++
	}

	// Momentum vote.
	switch {
	case dir > 0 && momentum > 0:
		votes++
	case dir < 0 && momentum < 0:
		votes++
	case dir == 0 && math.Abs(momentum) <= 0.5:
		votes++
	}

	// Strength vote: a directional call is only strong when the trend
	// magnitude clears the bull threshold and volatility is not HIGH; a
	// sideways call is strong whenever volatility is contained.
	if dir != 0 {
		if math.Abs(trend) >= d.cfg.TrendBullPct && vol != models.VolHigh {
			votes++
		}
	} else if vol != models.VolHigh {
		votes++
	}

	confidence := float64(votes) / 3
	if vol == models.VolHigh {
		confidence *= d.cfg.HighVolDamping
	}
	return clamp01(confidence)
}

func lastBarTime(window []models.Bar) time.Time {
	if len(window) == 0 {
		return time.Time{}
	}
	return window[len(window)-1].OpenTime
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
