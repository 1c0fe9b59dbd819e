// Package performance aggregates trade outcomes by strategy and by the
// regime at entry time. It holds no primary state: everything is recomputed
// on demand from the trade log and switch history.
package performance

import (
	"regime-bot-go/internal/models"

	"gonum.org/v1/gonum/stat"
)

// Aggregate summarizes a group of trades.
type Aggregate struct {
	Trades      int
	Wins        int
	WinRate     float64 // fraction in [0,1]
	AvgProfit   float64
	TotalProfit float64
}

// Summary is the full performance view over a session.
type Summary struct {
	Overall    Aggregate
	ByStrategy map[string]Aggregate
	ByRegime   map[models.Regime]Aggregate
	Switches   int
}

// Compute builds the summary from scratch.
func Compute(trades []models.Trade, switches []models.StrategySwitch) *Summary {
	byStrategy := make(map[string][]models.Trade)
	byRegime := make(map[models.Regime][]models.Trade)
	for _, t := range trades {
		byStrategy[t.StrategyName] = append(byStrategy[t.StrategyName], t)
		byRegime[t.RegimeAtEntry] = append(byRegime[t.RegimeAtEntry], t)
	}

	sum := &Summary{
		Overall:    aggregate(trades),
		ByStrategy: make(map[string]Aggregate, len(byStrategy)),
		ByRegime:   make(map[models.Regime]Aggregate, len(byRegime)),
		Switches:   len(switches),
	}
	for name, group := range byStrategy {
		sum.ByStrategy[name] = aggregate(group)
	}
	for regime, group := range byRegime {
		sum.ByRegime[regime] = aggregate(group)
	}
	return sum
}

func aggregate(trades []models.Trade) Aggregate {
	agg := Aggregate{Trades: len(trades)}
	if len(trades) == 0 {
		return agg
	}

	profits := make([]float64, len(trades))
	for i, t := range trades {
		profits[i] = t.Profit
		if t.Profit > 0 {
			agg.Wins++
		}
		agg.TotalProfit += t.Profit
	}
	agg.WinRate = float64(agg.Wins) / float64(len(trades))
	agg.AvgProfit = stat.Mean(profits, nil)
	return agg
}

// MaxDrawdown computes the largest peak-to-trough decline of an equity
// curve, as a fraction of the peak.
func MaxDrawdown(equityCurve []float64) float64 {
	if len(equityCurve) < 2 {
		return 0
	}
	peak := equityCurve[0]
	maxDrawdown := 0.0
	for _, equity := range equityCurve {
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			if dd := (peak - equity) / peak; dd > maxDrawdown {
				maxDrawdown = dd
			}
		}
	}
	return maxDrawdown
}
