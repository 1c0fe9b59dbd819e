package strategy

import (
	"regime-bot-go/internal/indicators"
	"regime-bot-go/internal/models"

	"github.com/markcheno/go-talib"
)

const (
	defensiveRSI = 14

	// Only an extreme washout justifies a contrarian entry in a bear market.
	defensiveExtremeOversold = 15.0
	defensiveExitRSI         = 50.0
)

// defensive is the bear-market posture: almost always flat, with rare
// low-risk contrarian entries on extreme oversold readings.
type defensive struct {
	base
}

func newDefensive(cfg models.StrategyConfig) *defensive {
	return &defensive{
		base: base{desc: models.StrategyDescriptor{
			Name:              Defensive,
			ApplicableRegimes: []models.Regime{models.Bear, models.StrongBear},
			BaseRiskPct:       cfg.BaseRiskPct,
			MinConfidence:     cfg.MinConfidence,
			StopLossPct:       cfg.StopLossPct,
			TakeProfitPct:     cfg.TakeProfitPct,
		}},
	}
}

func (s *defensive) ProduceSignal(in *Input) (models.Signal, error) {
	closes := indicators.Closes(in.Window)
	if len(closes) < defensiveRSI+1 {
		return hold("not enough history for oscillator"), nil
	}

	rsi := talib.Rsi(closes, defensiveRSI)
	n := len(closes) - 1

	if in.Position != nil {
		if rsi[n] > defensiveExitRSI {
			return sell("oversold bounce played out"), nil
		}
		return hold("contrarian position open"), nil
	}

	if rsi[n] < defensiveExtremeOversold {
		return buy("extreme oversold reading, small contrarian entry"), nil
	}
	return hold("defensive posture, staying flat"), nil
}
