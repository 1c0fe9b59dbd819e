package strategy

import (
	"regime-bot-go/internal/indicators"
	"regime-bot-go/internal/models"

	"github.com/markcheno/go-talib"
)

const (
	rangeBBPeriod = 20
	rangeBBDev    = 2.0
	rangeRSI      = 14

	rangeOversold   = 35.0
	rangeOverbought = 70.0

	// Proximity tolerance to the channel bands.
	rangeBandSlack = 0.01
)

// rangeTrading buys near the lower Bollinger band on oversold readings and
// sells near the upper band or on overbought readings. Only sensible in a
// sideways market, which is all its descriptor covers.
type rangeTrading struct {
	base
}

func newRangeTrading(cfg models.StrategyConfig) *rangeTrading {
	return &rangeTrading{
		base: base{desc: models.StrategyDescriptor{
			Name:              RangeTrading,
			ApplicableRegimes: []models.Regime{models.Sideways},
			BaseRiskPct:       cfg.BaseRiskPct,
			MinConfidence:     cfg.MinConfidence,
			StopLossPct:       cfg.StopLossPct,
			TakeProfitPct:     cfg.TakeProfitPct,
		}},
	}
}

func (s *rangeTrading) ProduceSignal(in *Input) (models.Signal, error) {
	closes := indicators.Closes(in.Window)
	if len(closes) < rangeBBPeriod+rangeRSI {
		return hold("not enough history for channel bands"), nil
	}

	upper, _, lower := talib.BBands(closes, rangeBBPeriod, rangeBBDev, rangeBBDev, talib.SMA)
	rsi := talib.Rsi(closes, rangeRSI)
	n := len(closes) - 1
	price := closes[n]

	if in.Position != nil {
		if price >= upper[n]*(1-rangeBandSlack) {
			return sell("price reached the upper channel band"), nil
		}
		if rsi[n] > rangeOverbought {
			return sell("overbought oscillator reading"), nil
		}
		return hold("inside the channel, holding"), nil
	}

	if price <= lower[n]*(1+rangeBandSlack) && rsi[n] < rangeOversold {
		return buy("price near the lower channel band with oversold oscillator"), nil
	}
	return hold("no edge-of-range setup"), nil
}
