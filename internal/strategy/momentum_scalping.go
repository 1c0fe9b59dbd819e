package strategy

import (
	"regime-bot-go/internal/indicators"
	"regime-bot-go/internal/models"

	"github.com/markcheno/go-talib"
)

// Short horizon: scalping reacts to acceleration over the last few bars.
const scalpROCPeriod = 3

// momentumScalping takes fast entries on short-horizon momentum
// acceleration and exits on the first sign of reversal. Its descriptor is
// limited to STRONG_BULL; the dispatcher additionally requires HIGH
// volatility before routing to it. The tight stop-loss is mandatory and
// comes from configuration like every other variant's.
type momentumScalping struct {
	base
}

func newMomentumScalping(cfg models.StrategyConfig) *momentumScalping {
	return &momentumScalping{
		base: base{desc: models.StrategyDescriptor{
			Name:              MomentumScalping,
			ApplicableRegimes: []models.Regime{models.StrongBull},
			BaseRiskPct:       cfg.BaseRiskPct,
			MinConfidence:     cfg.MinConfidence,
			StopLossPct:       cfg.StopLossPct,
			TakeProfitPct:     cfg.TakeProfitPct,
		}},
	}
}

func (s *momentumScalping) ProduceSignal(in *Input) (models.Signal, error) {
	closes := indicators.Closes(in.Window)
	if len(closes) < scalpROCPeriod+3 {
		return hold("not enough history for short-horizon momentum"), nil
	}

	roc := talib.Roc(closes, scalpROCPeriod)
	n := len(closes) - 1

	if in.Position != nil {
		if roc[n] < 0 {
			return sell("short-horizon momentum reversed"), nil
		}
		return hold("momentum still positive"), nil
	}

	accelerating := roc[n] > 0 && roc[n-1] > 0 && roc[n] > roc[n-1]
	if accelerating {
		return buy("short-horizon momentum accelerating"), nil
	}
	return hold("no momentum acceleration"), nil
}
