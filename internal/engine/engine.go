// Package engine wires the detector, dispatcher, strategies and ledger into
// the tick-driven control loop. Backtest and live mode both run the exact
// same ProcessBar function; only the bar source differs.
package engine

import (
	"context"
	"fmt"
	"time"

	"regime-bot-go/internal/detector"
	"regime-bot-go/internal/dispatcher"
	"regime-bot-go/internal/ledger"
	"regime-bot-go/internal/models"
	"regime-bot-go/internal/persistence"
	"regime-bot-go/internal/strategy"

	"go.uber.org/zap"
)

const stateVersion = 1

// Engine is the session-lifetime control loop. It assumes sequential,
// non-reentrant invocation: all state below is touched only by the single
// tick thread.
type Engine struct {
	cfg        *models.Config
	detector   *detector.Detector
	dispatcher *dispatcher.Dispatcher
	ledger     *ledger.Ledger
	repo       persistence.StateRepository
	logger     *zap.SugaredLogger

	window      []models.Bar
	lastBarTime time.Time
	equityCurve []float64
	lastIntent  models.TradeIntent
}

// New builds an engine from a validated configuration. repo may be nil for
// backtests that do not need restart recovery.
func New(cfg *models.Config, repo persistence.StateRepository, logger *zap.SugaredLogger) *Engine {
	registry := strategy.NewRegistry(cfg.Strategies)
	return &Engine{
		cfg:        cfg,
		detector:   detector.New(cfg.Detector),
		dispatcher: dispatcher.New(registry, cfg.Dispatcher, logger),
		ledger:     ledger.New(cfg.InitialEquity, logger),
		repo:       repo,
		logger:     logger,
		window:     make([]models.Bar, 0, cfg.WindowSize),
	}
}

// ProcessBar runs one tick: classify the regime, maybe switch strategy,
// generate a signal, apply it to the ledger, and emit the intent. Either a
// full tick's effects are applied or none are; a ledger conflict rolls the
// dispatcher back and returns an error with no state mutated beyond the
// window append.
func (e *Engine) ProcessBar(bar models.Bar) (models.TradeIntent, error) {
	if !e.lastBarTime.IsZero() && !bar.OpenTime.After(e.lastBarTime) {
		return e.holdIntent("out-of-order bar ignored"),
			fmt.Errorf("bar at %s is not after last processed bar at %s", bar.OpenTime, e.lastBarTime)
	}

	e.pushBar(bar)
	ms := e.detector.Detect(e.window)

	// Snapshot the dispatcher so a failed ledger operation can abort the
	// tick without leaving a half-applied transition visible.
	dispatcherSnapshot := e.dispatcher.State()
	e.dispatcher.Evaluate(ms)

	// Frozen stop-loss/take-profit levels are checked before any new
	// signal: an exit and an entry never share a tick.
	if trade, closed := e.ledger.Evaluate(bar.Close, bar.OpenTime); closed {
		intent := models.TradeIntent{
			Action:       models.IntentClose,
			Side:         trade.Side,
			Size:         trade.Quantity,
			PriceHint:    trade.ExitPrice,
			StrategyName: trade.StrategyName,
			Regime:       ms.Regime,
			Reason:       trade.ExitReason,
		}
		return e.finishTick(bar, intent), nil
	}

	position := e.ledger.Position()
	strat := e.strategyForTick(position)
	if strat == nil {
		return e.finishTick(bar, e.holdIntentWithRegime(ms, "no strategy active yet")), nil
	}

	sig, err := strat.ProduceSignal(&strategy.Input{
		Window:   e.window,
		Market:   ms,
		Position: position,
	})
	if err != nil {
		// A faulty tick inside a strategy must not crash the loop or
		// corrupt the ledger: degrade to HOLD and keep going.
		e.logger.Warnw("strategy signal failed, holding", "strategy", strat.Name(), "error", err)
		return e.finishTick(bar, e.holdIntentWithRegime(ms, fmt.Sprintf("strategy error: %v", err))), nil
	}

	intent, err := e.applySignal(strat, sig, ms, bar)
	if err != nil {
		e.dispatcher.RestoreState(dispatcherSnapshot)
		return e.holdIntent(err.Error()), err
	}
	return e.finishTick(bar, intent), nil
}

// applySignal turns the strategy signal into ledger effects and the
// outgoing intent.
func (e *Engine) applySignal(strat strategy.Strategy, sig models.Signal, ms models.MarketState, bar models.Bar) (models.TradeIntent, error) {
	desc := strat.Descriptor()

	switch sig.Action {
	case models.SignalBuy:
		if e.ledger.Position() != nil {
			// Strategies check the position themselves; reaching this
			// branch is a logic error and must stay loud in testing.
			return models.TradeIntent{}, ledger.ErrPositionConflict
		}
		notional := strat.SizePosition(e.ledger.Equity(), desc.BaseRiskPct)
		if notional <= 0 || bar.Close <= 0 {
			return e.holdIntentWithRegime(ms, "position size came out non-positive"), nil
		}
		quantity := notional / bar.Close
		pos := models.Position{
			EntryPrice:      bar.Close,
			EntryTime:       bar.OpenTime,
			Quantity:        quantity,
			Side:            models.Long,
			StrategyName:    strat.Name(),
			RegimeAtEntry:   ms.Regime,
			StopLossPrice:   bar.Close * (1 - desc.StopLossPct),
			TakeProfitPrice: bar.Close * (1 + desc.TakeProfitPct),
		}
		if err := e.ledger.Open(pos); err != nil {
			return models.TradeIntent{}, err
		}
		return models.TradeIntent{
			Action:       models.IntentOpen,
			Side:         models.Long,
			Size:         quantity,
			PriceHint:    bar.Close,
			StrategyName: strat.Name(),
			Regime:       ms.Regime,
			Reason:       sig.Reason,
		}, nil

	case models.SignalSell:
		if e.ledger.Position() == nil {
			return e.holdIntentWithRegime(ms, "sell signal with no open position"), nil
		}
		trade, err := e.ledger.Close(bar.Close, bar.OpenTime, models.ExitReasonSignal)
		if err != nil {
			return models.TradeIntent{}, err
		}
		return models.TradeIntent{
			Action:       models.IntentClose,
			Side:         trade.Side,
			Size:         trade.Quantity,
			PriceHint:    bar.Close,
			StrategyName: trade.StrategyName,
			Regime:       ms.Regime,
			Reason:       sig.Reason,
		}, nil

	default:
		return e.holdIntentWithRegime(ms, sig.Reason), nil
	}
}

// strategyForTick picks who speaks this tick: an open position is managed
// by its originating strategy until closed, even after a switch; otherwise
// the active strategy handles the entry decision.
func (e *Engine) strategyForTick(position *models.Position) strategy.Strategy {
	if position != nil {
		s, err := e.dispatcher.StrategyFor(position.StrategyName)
		if err == nil {
			return s
		}
		e.logger.Errorw("originating strategy missing for open position", "strategy", position.StrategyName)
	}
	return e.dispatcher.Active()
}

func (e *Engine) pushBar(bar models.Bar) {
	e.window = append(e.window, bar)
	if len(e.window) > e.cfg.WindowSize {
		e.window = e.window[len(e.window)-e.cfg.WindowSize:]
	}
	e.lastBarTime = bar.OpenTime
}

func (e *Engine) finishTick(bar models.Bar, intent models.TradeIntent) models.TradeIntent {
	e.equityCurve = append(e.equityCurve, e.ledger.MarkToMarket(bar.Close))
	e.lastIntent = intent
	if intent.Action != models.IntentHold {
		e.logger.Infow("trade intent",
			"action", intent.Action, "strategy", intent.StrategyName,
			"size", intent.Size, "price", intent.PriceHint, "reason", intent.Reason)
	}
	return intent
}

func (e *Engine) holdIntent(reason string) models.TradeIntent {
	return models.TradeIntent{Action: models.IntentHold, Reason: reason}
}

func (e *Engine) holdIntentWithRegime(ms models.MarketState, reason string) models.TradeIntent {
	return models.TradeIntent{Action: models.IntentHold, Regime: ms.Regime, Reason: reason}
}

// RunBacktest iterates synchronously over a pre-loaded bar sequence. Ledger
// invariant violations abort the run; they indicate a bug, not bad data.
func (e *Engine) RunBacktest(bars []models.Bar) error {
	for _, bar := range bars {
		if _, err := e.ProcessBar(bar); err != nil {
			return fmt.Errorf("backtest aborted at %s: %w", bar.OpenTime, err)
		}
	}
	return nil
}

// RunLive consumes fully-formed bars from a single-producer channel and
// invokes the same tick function. Shutdown is graceful: the in-flight tick
// finishes, the final state is persisted, and no further ticks run.
func (e *Engine) RunLive(ctx context.Context, bars <-chan models.Bar) error {
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("live loop stopping, persisting final state")
			return e.SaveState()
		case bar, ok := <-bars:
			if !ok {
				e.logger.Warn("bar feed closed, persisting final state")
				return e.SaveState()
			}
			if _, err := e.ProcessBar(bar); err != nil {
				// Availability over strictness in production: log loudly
				// and keep the loop alive.
				e.logger.Errorw("tick failed", "error", err)
				continue
			}
			if err := e.SaveState(); err != nil {
				e.logger.Errorw("failed to persist state after tick", "error", err)
			}
		}
	}
}

// SeedWindow preloads historical bars into the analysis window without
// trading on them, so a live session starts with reliable indicators.
func (e *Engine) SeedWindow(bars []models.Bar) {
	for _, bar := range bars {
		if !e.lastBarTime.IsZero() && !bar.OpenTime.After(e.lastBarTime) {
			continue
		}
		e.pushBar(bar)
	}
}

// Snapshot returns a deep copy of everything needed to reconstruct an
// equivalent engine after a restart.
func (e *Engine) Snapshot() *models.EngineState {
	return &models.EngineState{
		Version:        stateVersion,
		Symbol:         e.cfg.Symbol,
		LastBarTime:    e.lastBarTime,
		Window:         append([]models.Bar(nil), e.window...),
		Equity:         e.ledger.Equity(),
		EquityCurve:    append([]float64(nil), e.equityCurve...),
		Strategy:       e.dispatcher.State(),
		OpenPosition:   e.ledger.Position(),
		TradeLog:       e.ledger.Trades(),
		LastUpdateTime: time.Now(),
	}
}

// RestoreSnapshot replaces the engine state with a previously saved one.
func (e *Engine) RestoreSnapshot(st *models.EngineState) error {
	if st == nil {
		return nil
	}
	if st.Version != stateVersion {
		return fmt.Errorf("unsupported state version %d", st.Version)
	}
	if st.Symbol != e.cfg.Symbol {
		return fmt.Errorf("state symbol %s does not match configured symbol %s", st.Symbol, e.cfg.Symbol)
	}

	e.window = append(e.window[:0], st.Window...)
	e.lastBarTime = st.LastBarTime
	e.equityCurve = append([]float64(nil), st.EquityCurve...)
	e.dispatcher.RestoreState(st.Strategy)
	e.ledger.Restore(st.Equity, st.OpenPosition, st.TradeLog)
	return nil
}

// SaveState persists a snapshot through the configured repository, if any.
func (e *Engine) SaveState() error {
	if e.repo == nil {
		return nil
	}
	return e.repo.SaveState(e.Snapshot())
}

// LoadState restores the last persisted snapshot, if one exists.
func (e *Engine) LoadState() error {
	if e.repo == nil {
		return nil
	}
	st, err := e.repo.LoadState()
	if err != nil {
		return err
	}
	if st == nil {
		return nil
	}
	if err := e.RestoreSnapshot(st); err != nil {
		return err
	}
	e.logger.Infow("state restored",
		"last_bar", st.LastBarTime, "trades", len(st.TradeLog),
		"active_strategy", st.Strategy.ActiveStrategy)
	return nil
}

// Accessors for hosts, the reporter and tests.

func (e *Engine) Trades() []models.Trade { return e.ledger.Trades() }

func (e *Engine) Equity() float64 { return e.ledger.Equity() }

func (e *Engine) EquityCurve() []float64 { return append([]float64(nil), e.equityCurve...) }

func (e *Engine) StrategyState() models.ActiveStrategyState { return e.dispatcher.State() }

func (e *Engine) LastIntent() models.TradeIntent { return e.lastIntent }

func (e *Engine) LastDecision() dispatcher.Decision { return e.dispatcher.LastDecision() }

func (e *Engine) OpenPosition() *models.Position { return e.ledger.Position() }
