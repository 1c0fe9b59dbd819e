package ledger

import (
	"testing"
	"time"

	"regime-bot-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testLedger(equity float64) *Ledger {
	return New(equity, zap.NewNop().Sugar())
}

func longPosition(entry, qty float64) models.Position {
	return models.Position{
		EntryPrice:      entry,
		EntryTime:       time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		Quantity:        qty,
		Side:            models.Long,
		StrategyName:    "trend_following",
		RegimeAtEntry:   models.Bull,
		StopLossPrice:   entry * 0.95,
		TakeProfitPrice: entry * 1.10,
	}
}

func TestOpenAndReadBack(t *testing.T) {
	l := testLedger(10000)
	require.NoError(t, l.Open(longPosition(100, 2)))

	p := l.Position()
	require.NotNil(t, p)
	assert.Equal(t, 100.0, p.EntryPrice)
	assert.Equal(t, 2.0, p.Quantity)

	// The returned position is a copy.
	p.EntryPrice = 1
	assert.Equal(t, 100.0, l.Position().EntryPrice)
}

func TestSecondOpenConflictsAndMutatesNothing(t *testing.T) {
	l := testLedger(10000)
	require.NoError(t, l.Open(longPosition(100, 2)))

	err := l.Open(longPosition(200, 1))
	assert.ErrorIs(t, err, ErrPositionConflict)

	p := l.Position()
	require.NotNil(t, p)
	assert.Equal(t, 100.0, p.EntryPrice, "existing position must be untouched")
	assert.Empty(t, l.Trades())
	assert.Equal(t, 10000.0, l.Equity())
}

func TestCloseWithoutPosition(t *testing.T) {
	l := testLedger(10000)
	_, err := l.Close(100, time.Now(), models.ExitReasonSignal)
	assert.ErrorIs(t, err, ErrNoOpenPosition)
}

func TestStopLossFillsAtTriggerLevel(t *testing.T) {
	l := testLedger(10000)
	require.NoError(t, l.Open(longPosition(100, 2))) // stop at 95

	trade, closed := l.Evaluate(93.7, time.Date(2025, 1, 1, 13, 0, 0, 0, time.UTC))
	require.True(t, closed)
	require.NotNil(t, trade)

	assert.Equal(t, models.ExitReasonStopLoss, trade.ExitReason)
	assert.Equal(t, 95.0, trade.ExitPrice, "exit fills at the frozen stop level, not the bar price")
	assert.InDelta(t, -10.0, trade.Profit, 1e-9) // (95-100)*2
	assert.InDelta(t, 9990.0, l.Equity(), 1e-9)
	assert.Nil(t, l.Position())
}

func TestTakeProfitFillsAtTriggerLevel(t *testing.T) {
	l := testLedger(10000)
	require.NoError(t, l.Open(longPosition(100, 2))) // target at 110

	trade, closed := l.Evaluate(115, time.Now())
	require.True(t, closed)

	assert.Equal(t, models.ExitReasonTakeProfit, trade.ExitReason)
	assert.Equal(t, 110.0, trade.ExitPrice)
	assert.InDelta(t, 20.0, trade.Profit, 1e-9)
	assert.InDelta(t, 10020.0, l.Equity(), 1e-9)
}

func TestEvaluateHoldsInsideTheBand(t *testing.T) {
	l := testLedger(10000)
	require.NoError(t, l.Open(longPosition(100, 2)))

	_, closed := l.Evaluate(102, time.Now())
	assert.False(t, closed)
	assert.NotNil(t, l.Position())
}

func TestShortSideLevelsAndPnL(t *testing.T) {
	l := testLedger(10000)
	pos := models.Position{
		EntryPrice:      100,
		EntryTime:       time.Now(),
		Quantity:        2,
		Side:            models.Short,
		StrategyName:    "defensive",
		RegimeAtEntry:   models.Bear,
		StopLossPrice:   103,
		TakeProfitPrice: 92,
	}
	require.NoError(t, l.Open(pos))

	trade, closed := l.Evaluate(90, time.Now())
	require.True(t, closed)
	assert.Equal(t, models.ExitReasonTakeProfit, trade.ExitReason)
	assert.Equal(t, 92.0, trade.ExitPrice)
	assert.InDelta(t, 16.0, trade.Profit, 1e-9) // (100-92)*2
}

func TestSignalCloseRealizesPnL(t *testing.T) {
	l := testLedger(10000)
	require.NoError(t, l.Open(longPosition(100, 3)))

	exitTime := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	trade, err := l.Close(104, exitTime, models.ExitReasonSignal)
	require.NoError(t, err)

	assert.Equal(t, models.ExitReasonSignal, trade.ExitReason)
	assert.InDelta(t, 12.0, trade.Profit, 1e-9)
	assert.InDelta(t, 4.0, trade.ProfitPct, 1e-9)
	assert.Equal(t, exitTime, trade.ExitTime)
	assert.NotEmpty(t, trade.ID)
	assert.Equal(t, "trend_following", trade.StrategyName)
	assert.Equal(t, models.Bull, trade.RegimeAtEntry)

	assert.Nil(t, l.Position())
	require.Len(t, l.Trades(), 1)
	assert.InDelta(t, 10012.0, l.Equity(), 1e-9)
}

func TestMarkToMarket(t *testing.T) {
	l := testLedger(10000)
	assert.Equal(t, 10000.0, l.MarkToMarket(123))

	require.NoError(t, l.Open(longPosition(100, 2)))
	assert.InDelta(t, 10008.0, l.MarkToMarket(104), 1e-9)
	assert.InDelta(t, 9996.0, l.MarkToMarket(98), 1e-9)
	assert.Equal(t, 10000.0, l.Equity(), "equity stays realized until close")
}

func TestRestoreRoundTrip(t *testing.T) {
	l := testLedger(10000)
	require.NoError(t, l.Open(longPosition(100, 2)))
	_, err := l.Close(110, time.Now(), models.ExitReasonSignal)
	require.NoError(t, err)
	require.NoError(t, l.Open(longPosition(110, 1)))

	restored := testLedger(0)
	restored.Restore(l.Equity(), l.Position(), l.Trades())

	assert.Equal(t, l.Equity(), restored.Equity())
	assert.Equal(t, l.Position(), restored.Position())
	assert.Equal(t, l.Trades(), restored.Trades())
}
