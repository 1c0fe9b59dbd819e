// Package dispatcher owns the active-strategy state machine. It evaluates
// the detector output every tick and switches the active strategy only when
// the confidence and hysteresis gates are both satisfied.
package dispatcher

import (
	"fmt"
	"math"

	"regime-bot-go/internal/models"
	"regime-bot-go/internal/strategy"

	"go.uber.org/zap"
)

// Decision records the outcome of the most recent Evaluate call so a host
// can answer "why did the dispatcher not switch".
type Decision struct {
	Candidate  string
	Confidence float64
	Threshold  float64
	Switched   bool
	Reason     string
}

// Dispatcher holds ActiveStrategyState exclusively; no other component
// mutates it.
type Dispatcher struct {
	registry *strategy.Registry
	cfg      models.DispatcherConfig
	state    models.ActiveStrategyState
	last     Decision
	logger   *zap.SugaredLogger
}

func New(registry *strategy.Registry, cfg models.DispatcherConfig, logger *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		cfg:      cfg,
		logger:   logger,
	}
}

// Evaluate applies the transition rule for one tick and reports whether a
// switch happened. An open position never blocks a switch: the position
// keeps being managed by its originating strategy until closed, so the
// switch only affects the next entry decision.
func (d *Dispatcher) Evaluate(ms models.MarketState) bool {
	candidate := d.candidateFor(ms)

	cs, err := d.registry.Get(candidate)
	if err != nil {
		// Unreachable with the built-in candidate table.
		d.logger.Errorf("dispatcher: %v", err)
		d.state.TicksSinceSwitch++
		return false
	}
	threshold := cs.Descriptor().MinConfidence

	decision := Decision{
		Candidate:  candidate,
		Confidence: ms.Confidence,
		Threshold:  threshold,
	}

	switch {
	case candidate == d.state.ActiveStrategy:
		decision.Reason = "candidate equals the active strategy"
	case ms.Confidence < threshold:
		decision.Reason = fmt.Sprintf("confidence %.2f below %s threshold %.2f", ms.Confidence, candidate, threshold)
	case d.state.ActiveStrategy != "" && d.state.TicksSinceSwitch < d.cfg.MinTicksBetweenSwitches:
		decision.Reason = fmt.Sprintf("hysteresis: %d ticks since last switch, minimum is %d",
			d.state.TicksSinceSwitch, d.cfg.MinTicksBetweenSwitches)
	default:
		d.transition(candidate, ms)
		decision.Switched = true
		decision.Reason = string(ms.Regime)
	}

	if !decision.Switched {
		d.state.TicksSinceSwitch++
	}
	d.last = decision
	return decision.Switched
}

// transition activates the candidate. The initial activation from the
// uninitialized state is not recorded in the switch history; only real
// strategy-to-strategy switches are.
func (d *Dispatcher) transition(to string, ms models.MarketState) {
	from := d.state.ActiveStrategy
	if from != "" {
		d.state.SwitchHistory = append(d.state.SwitchHistory, models.StrategySwitch{
			From:      from,
			To:        to,
			Timestamp: ms.Timestamp,
			Reason:    ms.Regime,
		})
		d.logger.Infow("strategy switch",
			"from", from, "to", to,
			"regime", ms.Regime, "confidence", ms.Confidence)
	} else {
		d.logger.Infow("strategy activated", "strategy", to, "regime", ms.Regime, "confidence", ms.Confidence)
	}

	d.state.ActiveStrategy = to
	d.state.ActivatedAt = ms.Timestamp
	d.state.TicksSinceSwitch = 0
}

// candidateFor maps a market state to the variant tuned for it. Sideways
// markets go to the breakout variant once momentum starts building, and a
// strong bull with high volatility goes to the scalper instead of the
// trend follower.
func (d *Dispatcher) candidateFor(ms models.MarketState) string {
	switch ms.Regime {
	case models.StrongBull:
		if ms.VolatilityLevel == models.VolHigh {
			return strategy.MomentumScalping
		}
		return strategy.TrendFollowing
	case models.Bull:
		return strategy.TrendFollowing
	case models.Bear, models.StrongBear:
		return strategy.Defensive
	default:
		if math.Abs(ms.MomentumScore) >= d.cfg.BreakoutMomentumThreshold {
			return strategy.VolatilityBreakout
		}
		return strategy.RangeTrading
	}
}

// Active returns the current variant, or nil while uninitialized.
func (d *Dispatcher) Active() strategy.Strategy {
	if d.state.ActiveStrategy == "" {
		return nil
	}
	s, err := d.registry.Get(d.state.ActiveStrategy)
	if err != nil {
		return nil
	}
	return s
}

// StrategyFor resolves a variant by name, used to route exit decisions on
// an open position back to its originating strategy.
func (d *Dispatcher) StrategyFor(name string) (strategy.Strategy, error) {
	return d.registry.Get(name)
}

// State returns a copy of the dispatcher-owned state for persistence and
// diagnostics.
func (d *Dispatcher) State() models.ActiveStrategyState {
	st := d.state
	st.SwitchHistory = append([]models.StrategySwitch(nil), d.state.SwitchHistory...)
	return st
}

// RestoreState replaces the dispatcher state, used on live-mode recovery
// and to roll back an aborted tick.
func (d *Dispatcher) RestoreState(st models.ActiveStrategyState) {
	st.SwitchHistory = append([]models.StrategySwitch(nil), st.SwitchHistory...)
	d.state = st
}

// LastDecision exposes the outcome of the most recent Evaluate call.
func (d *Dispatcher) LastDecision() Decision {
	return d.last
}
