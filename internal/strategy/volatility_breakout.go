package strategy

import (
	"fmt"

	"regime-bot-go/internal/models"
)

// Lookback for the prior high/low range, excluding the current bar.
const breakoutLookback = 20

// volatilityBreakout waits for price to clear the prior range expanded by
// the configured K factor. It covers the sideways-to-trend transition
// window; the dispatcher routes to it when momentum starts building while
// the regime is still classified sideways.
type volatilityBreakout struct {
	base
	k float64
}

func newVolatilityBreakout(cfg models.StrategyConfig, k float64) *volatilityBreakout {
	return &volatilityBreakout{
		base: base{desc: models.StrategyDescriptor{
			Name:              VolatilityBreakout,
			ApplicableRegimes: []models.Regime{models.Sideways},
			BaseRiskPct:       cfg.BaseRiskPct,
			MinConfidence:     cfg.MinConfidence,
			StopLossPct:       cfg.StopLossPct,
			TakeProfitPct:     cfg.TakeProfitPct,
		}},
		k: k,
	}
}

func (s *volatilityBreakout) ProduceSignal(in *Input) (models.Signal, error) {
	if len(in.Window) < breakoutLookback+1 {
		return hold("not enough history for the breakout range"), nil
	}

	n := len(in.Window) - 1
	priorHigh, priorLow := priorRange(in.Window[n-breakoutLookback : n])
	price := in.Window[n].Close

	if in.Position != nil {
		if price < priorLow {
			return sell("price fell below the prior range low"), nil
		}
		return hold("breakout position open, range intact"), nil
	}

	trigger := priorHigh + (priorHigh-priorLow)*s.k
	if price > trigger {
		return buy(fmt.Sprintf("close %.4f above breakout trigger %.4f (K=%.2f)", price, trigger, s.k)), nil
	}
	return hold("no range breakout"), nil
}

func priorRange(bars []models.Bar) (high, low float64) {
	high = bars[0].High
	low = bars[0].Low
	for _, b := range bars[1:] {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	return high, low
}
