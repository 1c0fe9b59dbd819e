// Package ledger tracks the single open position and the append-only trade
// log, and realizes P&L on close.
package ledger

import (
	"errors"
	"time"

	"regime-bot-go/internal/models"

	"github.com/jxskiss/base62"
	"go.uber.org/zap"
)

var (
	// ErrPositionConflict is returned when Open is called while a position
	// is already open. The ledger is left untouched.
	ErrPositionConflict = errors.New("ledger: a position is already open")

	// ErrNoOpenPosition is returned by Close when there is nothing to close.
	ErrNoOpenPosition = errors.New("ledger: no open position")
)

// Ledger owns the Position and the trade log. It is written to only by the
// single tick thread.
type Ledger struct {
	equity   float64
	position *models.Position
	trades   []models.Trade
	logger   *zap.SugaredLogger
}

func New(initialEquity float64, logger *zap.SugaredLogger) *Ledger {
	return &Ledger{equity: initialEquity, logger: logger}
}

// Equity returns the account equity on a realized basis.
func (l *Ledger) Equity() float64 {
	return l.equity
}

// MarkToMarket returns equity including the unrealized P&L of the open
// position at the given price.
func (l *Ledger) MarkToMarket(price float64) float64 {
	if l.position == nil {
		return l.equity
	}
	p := l.position
	return l.equity + (price-p.EntryPrice)*p.Quantity*p.Side.Sign()
}

// Position returns a copy of the open position, or nil when flat.
func (l *Ledger) Position() *models.Position {
	if l.position == nil {
		return nil
	}
	p := *l.position
	return &p
}

// Trades returns a copy of the trade log.
func (l *Ledger) Trades() []models.Trade {
	return append([]models.Trade(nil), l.trades...)
}

// Open records a new position. It fails with ErrPositionConflict, mutating
// nothing, if a position is already open.
func (l *Ledger) Open(p models.Position) error {
	if l.position != nil {
		return ErrPositionConflict
	}
	pos := p
	l.position = &pos
	l.logger.Infow("position opened",
		"strategy", p.StrategyName, "regime", p.RegimeAtEntry,
		"side", p.Side, "entry", p.EntryPrice, "qty", p.Quantity,
		"stop_loss", p.StopLossPrice, "take_profit", p.TakeProfitPrice)
	return nil
}

// Evaluate checks the frozen stop-loss/take-profit levels against the
// current price and closes the position when one is hit. The exit fills at
// the trigger level itself. Returns the closed trade when one was produced.
func (l *Ledger) Evaluate(price float64, t time.Time) (*models.Trade, bool) {
	if l.position == nil {
		return nil, false
	}
	p := l.position

	var exitPrice float64
	var reason string
	if p.Side == models.Long {
		switch {
		case price <= p.StopLossPrice:
			exitPrice, reason = p.StopLossPrice, models.ExitReasonStopLoss
		case price >= p.TakeProfitPrice:
			exitPrice, reason = p.TakeProfitPrice, models.ExitReasonTakeProfit
		}
	} else {
		switch {
		case price >= p.StopLossPrice:
			exitPrice, reason = p.StopLossPrice, models.ExitReasonStopLoss
		case price <= p.TakeProfitPrice:
			exitPrice, reason = p.TakeProfitPrice, models.ExitReasonTakeProfit
		}
	}

	if reason == "" {
		return nil, false
	}

	trade, err := l.Close(exitPrice, t, reason)
	if err != nil {
		return nil, false
	}
	return &trade, true
}

// Close realizes P&L, appends the immutable Trade and clears the position.
func (l *Ledger) Close(price float64, t time.Time, reason string) (models.Trade, error) {
	if l.position == nil {
		return models.Trade{}, ErrNoOpenPosition
	}
	p := l.position

	profit := (price - p.EntryPrice) * p.Quantity * p.Side.Sign()
	profitPct := 0.0
	if p.EntryPrice != 0 {
		profitPct = (price - p.EntryPrice) / p.EntryPrice * p.Side.Sign() * 100
	}

	trade := models.Trade{
		ID:            string(base62.FormatInt(p.EntryTime.UnixNano())),
		StrategyName:  p.StrategyName,
		RegimeAtEntry: p.RegimeAtEntry,
		Side:          p.Side,
		EntryTime:     p.EntryTime,
		ExitTime:      t,
		EntryPrice:    p.EntryPrice,
		ExitPrice:     price,
		Quantity:      p.Quantity,
		Profit:        profit,
		ProfitPct:     profitPct,
		ExitReason:    reason,
	}

	l.trades = append(l.trades, trade)
	l.equity += profit
	l.position = nil

	l.logger.Infow("position closed",
		"strategy", trade.StrategyName, "reason", reason,
		"entry", trade.EntryPrice, "exit", trade.ExitPrice,
		"profit", trade.Profit, "equity", l.equity)
	return trade, nil
}

// Restore replaces the ledger state wholesale, used for live-mode recovery.
func (l *Ledger) Restore(equity float64, position *models.Position, trades []models.Trade) {
	l.equity = equity
	if position != nil {
		p := *position
		l.position = &p
	} else {
		l.position = nil
	}
	l.trades = append([]models.Trade(nil), trades...)
}
