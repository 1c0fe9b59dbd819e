// Package strategy defines the common contract the five trading variants
// implement, and the registry that builds them from configuration.
package strategy

import (
	"fmt"

	"regime-bot-go/internal/models"
)

// Strategy variant names, as they appear in descriptors, switch history and
// trade records.
const (
	TrendFollowing     = "trend_following"
	RangeTrading       = "range_trading"
	VolatilityBreakout = "volatility_breakout"
	MomentumScalping   = "momentum_scalping"
	Defensive          = "defensive"
)

// Input is the immutable snapshot a variant receives each tick. Variants
// hold no position state of their own: the open position, if any, is passed
// in so exit signals can be produced for it.
type Input struct {
	Window   []models.Bar
	Market   models.MarketState
	Position *models.Position
}

// LastClose returns the close of the most recent bar, 0 on an empty window.
func (in *Input) LastClose() float64 {
	if len(in.Window) == 0 {
		return 0
	}
	return in.Window[len(in.Window)-1].Close
}

// Strategy is the capability set shared by all variants: produce a signal
// for the current tick and size the next entry.
type Strategy interface {
	Name() string
	Descriptor() models.StrategyDescriptor
	ProduceSignal(in *Input) (models.Signal, error)
	// SizePosition returns the notional value to commit, independent of
	// price; callers convert to quantity at the current price.
	SizePosition(accountEquity, riskPct float64) float64
}

// base carries the descriptor and the sizing rule common to every variant.
type base struct {
	desc models.StrategyDescriptor
}

func (b *base) Name() string { return b.desc.Name }

func (b *base) Descriptor() models.StrategyDescriptor { return b.desc }

func (b *base) SizePosition(accountEquity, riskPct float64) float64 {
	if accountEquity <= 0 || riskPct <= 0 {
		return 0
	}
	return accountEquity * riskPct
}

func hold(reason string) models.Signal {
	return models.Signal{Action: models.SignalHold, Reason: reason}
}

func buy(reason string) models.Signal {
	return models.Signal{Action: models.SignalBuy, Reason: reason}
}

func sell(reason string) models.Signal {
	return models.Signal{Action: models.SignalSell, Reason: reason}
}

// Registry holds the five variants constructed from configuration.
type Registry struct {
	byName map[string]Strategy
}

// NewRegistry builds all variants with their descriptors. The descriptor
// table, not runtime discovery, is what the dispatcher selects from.
func NewRegistry(cfg models.StrategiesConfig) *Registry {
	strategies := []Strategy{
		newTrendFollowing(cfg.TrendFollowing),
		newRangeTrading(cfg.RangeTrading),
		newVolatilityBreakout(cfg.VolatilityBreakout, cfg.BreakoutK),
		newMomentumScalping(cfg.MomentumScalping),
		newDefensive(cfg.Defensive),
	}

	byName := make(map[string]Strategy, len(strategies))
	for _, s := range strategies {
		byName[s.Name()] = s
	}
	return &Registry{byName: byName}
}

// Get returns the variant registered under name.
func (r *Registry) Get(name string) (Strategy, error) {
	s, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
	return s, nil
}

// Names lists the registered variant names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	return names
}
