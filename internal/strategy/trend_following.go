package strategy

import (
	"fmt"

	"regime-bot-go/internal/indicators"
	"regime-bot-go/internal/models"

	"github.com/markcheno/go-talib"
)

const (
	trendFastEMA = 10
	trendSlowEMA = 30
)

// trendFollowing rides established trends: it enters when the fast EMA
// crosses above the slow one with positive momentum, and exits on the
// opposite cross.
type trendFollowing struct {
	base
	fast int
	slow int
}

func newTrendFollowing(cfg models.StrategyConfig) *trendFollowing {
	return &trendFollowing{
		base: base{desc: models.StrategyDescriptor{
			Name:              TrendFollowing,
			ApplicableRegimes: []models.Regime{models.Bull, models.StrongBull},
			BaseRiskPct:       cfg.BaseRiskPct,
			MinConfidence:     cfg.MinConfidence,
			StopLossPct:       cfg.StopLossPct,
			TakeProfitPct:     cfg.TakeProfitPct,
		}},
		fast: trendFastEMA,
		slow: trendSlowEMA,
	}
}

func (s *trendFollowing) ProduceSignal(in *Input) (models.Signal, error) {
	closes := indicators.Closes(in.Window)
	if len(closes) < s.slow+2 {
		return hold("not enough history for EMA cross"), nil
	}

	fast := talib.Ema(closes, s.fast)
	slow := talib.Ema(closes, s.slow)
	n := len(closes) - 1

	crossUp := fast[n-1] <= slow[n-1] && fast[n] > slow[n]
	crossDown := fast[n-1] >= slow[n-1] && fast[n] < slow[n]

	if in.Position != nil {
		if crossDown {
			return sell(fmt.Sprintf("fast EMA(%d) crossed below slow EMA(%d)", s.fast, s.slow)), nil
		}
		return hold("riding the trend, no cross-down yet"), nil
	}

	if crossUp && in.Market.MomentumScore > 0 {
		return buy(fmt.Sprintf("fast EMA(%d) crossed above slow EMA(%d) with positive momentum", s.fast, s.slow)), nil
	}
	if crossUp {
		return hold("EMA cross-up but momentum is not positive"), nil
	}
	return hold("no EMA cross-up"), nil
}
