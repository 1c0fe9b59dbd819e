package engine

import (
	"context"
	"testing"
	"time"

	"regime-bot-go/internal/config"
	"regime-bot-go/internal/models"
	"regime-bot-go/internal/persistence"
	"regime-bot-go/internal/strategy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var barStart = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func testEngine(repo persistence.StateRepository) *Engine {
	return New(config.Default(), repo, zap.NewNop().Sugar())
}

func bar(i int, close float64) models.Bar {
	return models.Bar{
		OpenTime: barStart.Add(time.Duration(i) * time.Minute),
		Open:     close,
		High:     close * 1.005,
		Low:      close * 0.995,
		Close:    close,
		Volume:   100,
	}
}

// sidewaysBars alternates 100.3/100.0 so the detector reads a flat market.
// The last bar is always the low one.
func sidewaysBars(n int) []models.Bar {
	bars := make([]models.Bar, n)
	for i := range bars {
		if i%2 == 0 {
			bars[i] = bar(i, 100.3)
		} else {
			bars[i] = bar(i, 100.0)
		}
	}
	return bars
}

// regimeShiftBars is a flat market followed by a 10% breakout bar: the
// canonical sideways-to-bull transition.
func regimeShiftBars() []models.Bar {
	bars := sidewaysBars(60)
	return append(bars, bar(60, 110))
}

func TestWarmupHoldsUntilWindowIsReliable(t *testing.T) {
	eng := testEngine(nil)

	for _, b := range sidewaysBars(40) {
		intent, err := eng.ProcessBar(b)
		require.NoError(t, err)
		assert.Equal(t, models.IntentHold, intent.Action)
	}
	assert.Empty(t, eng.StrategyState().ActiveStrategy, "no activation on an unreliable window")
	assert.Empty(t, eng.Trades())
}

func TestSidewaysDataActivatesRangeTrading(t *testing.T) {
	eng := testEngine(nil)
	require.NoError(t, eng.RunBacktest(sidewaysBars(60)))

	st := eng.StrategyState()
	assert.Equal(t, strategy.RangeTrading, st.ActiveStrategy)
	assert.Empty(t, st.SwitchHistory, "initial activation is not a switch")
	assert.Empty(t, eng.Trades())
	assert.Equal(t, 10000.0, eng.Equity())
	assert.Len(t, eng.EquityCurve(), 60)
}

func TestRegimeShiftSwitchesAndOpensPosition(t *testing.T) {
	eng := testEngine(nil)
	require.NoError(t, eng.RunBacktest(regimeShiftBars()))

	st := eng.StrategyState()
	assert.Equal(t, strategy.TrendFollowing, st.ActiveStrategy)
	require.Len(t, st.SwitchHistory, 1)
	assert.Equal(t, strategy.RangeTrading, st.SwitchHistory[0].From)
	assert.Equal(t, strategy.TrendFollowing, st.SwitchHistory[0].To)
	assert.Greater(t, st.SwitchHistory[0].Reason.Direction(), 0)

	// The breakout bar also triggers the entry.
	pos := eng.OpenPosition()
	require.NotNil(t, pos)
	assert.Equal(t, strategy.TrendFollowing, pos.StrategyName)
	assert.Equal(t, 110.0, pos.EntryPrice)
	assert.InDelta(t, 400.0/110.0, pos.Quantity, 1e-9) // 4% of 10k equity
	assert.InDelta(t, 104.5, pos.StopLossPrice, 1e-9)
	assert.InDelta(t, 121.0, pos.TakeProfitPrice, 1e-9)

	assert.Equal(t, models.IntentOpen, eng.LastIntent().Action)
}

func TestStopLossClosesThePosition(t *testing.T) {
	eng := testEngine(nil)
	bars := regimeShiftBars()
	bars = append(bars, bar(61, 108), bar(62, 104)) // 104 pierces the 104.5 stop
	require.NoError(t, eng.RunBacktest(bars))

	require.Nil(t, eng.OpenPosition())
	trades := eng.Trades()
	require.Len(t, trades, 1)

	trade := trades[0]
	assert.Equal(t, models.ExitReasonStopLoss, trade.ExitReason)
	assert.Equal(t, 104.5, trade.ExitPrice, "stop fills at the frozen level")
	assert.Equal(t, strategy.TrendFollowing, trade.StrategyName)
	assert.InDelta(t, -20.0, trade.Profit, 1e-6) // (104.5-110) * 400/110
	assert.InDelta(t, 9980.0, eng.Equity(), 1e-6)

	assert.Equal(t, models.IntentClose, eng.LastIntent().Action)
	assert.Equal(t, models.ExitReasonStopLoss, eng.LastIntent().Reason)
}

func TestOutOfOrderBarIsRejected(t *testing.T) {
	eng := testEngine(nil)
	first := bar(0, 100)
	_, err := eng.ProcessBar(first)
	require.NoError(t, err)

	curveLen := len(eng.EquityCurve())
	_, err = eng.ProcessBar(first)
	assert.Error(t, err)
	assert.Len(t, eng.EquityCurve(), curveLen, "rejected bars leave no trace")
}

func TestBacktestLiveParity(t *testing.T) {
	bars := regimeShiftBars()
	bars = append(bars, bar(61, 108), bar(62, 104), bar(63, 105))

	bt := testEngine(nil)
	require.NoError(t, bt.RunBacktest(bars))

	live := testEngine(nil)
	ch := make(chan models.Bar, len(bars))
	for _, b := range bars {
		ch <- b
	}
	close(ch)
	require.NoError(t, live.RunLive(context.Background(), ch))

	assert.Equal(t, bt.Trades(), live.Trades())
	assert.Equal(t, bt.Equity(), live.Equity())
	assert.Equal(t, bt.EquityCurve(), live.EquityCurve())
	assert.Equal(t, bt.StrategyState().ActiveStrategy, live.StrategyState().ActiveStrategy)
	assert.Equal(t, bt.StrategyState().SwitchHistory, live.StrategyState().SwitchHistory)
}

func TestPersistenceRoundTripContinuesIdentically(t *testing.T) {
	bars := regimeShiftBars()
	bars = append(bars, bar(61, 108), bar(62, 104), bar(63, 105), bar(64, 104.5))
	split := 61 // right after the position opens

	reference := testEngine(nil)
	require.NoError(t, reference.RunBacktest(bars))

	repo := persistence.NewMemoryRepository()
	defer repo.Close()

	first := testEngine(repo)
	require.NoError(t, first.RunBacktest(bars[:split]))
	require.NoError(t, first.SaveState())

	resumed := testEngine(repo)
	require.NoError(t, resumed.LoadState())
	assert.Equal(t, first.StrategyState().ActiveStrategy, resumed.StrategyState().ActiveStrategy)
	require.NoError(t, resumed.RunBacktest(bars[split:]))

	assert.Equal(t, reference.Equity(), resumed.Equity())
	assert.Equal(t, reference.Trades(), resumed.Trades())
	assert.Equal(t, reference.EquityCurve(), resumed.EquityCurve())
	assert.Equal(t, reference.StrategyState().ActiveStrategy, resumed.StrategyState().ActiveStrategy)
	assert.Equal(t, reference.StrategyState().SwitchHistory, resumed.StrategyState().SwitchHistory)
}

func TestRestoreRejectsForeignState(t *testing.T) {
	eng := testEngine(nil)

	err := eng.RestoreSnapshot(&models.EngineState{Version: stateVersion, Symbol: "DOGEUSDT"})
	assert.Error(t, err, "state for another symbol must not load")

	err = eng.RestoreSnapshot(&models.EngineState{Version: stateVersion + 1, Symbol: "BTCUSDT"})
	assert.Error(t, err, "unknown state version must not load")

	assert.NoError(t, eng.RestoreSnapshot(nil))
}

func TestSeedWindowPrimesWithoutTrading(t *testing.T) {
	eng := testEngine(nil)
	eng.SeedWindow(sidewaysBars(60))

	assert.Empty(t, eng.EquityCurve(), "seeding produces no ticks")
	assert.Empty(t, eng.Trades())
	assert.Empty(t, eng.StrategyState().ActiveStrategy)

	// The first real tick starts from a reliable window: the breakout bar
	// immediately activates a strategy and trades.
	intent, err := eng.ProcessBar(bar(60, 110))
	require.NoError(t, err)
	assert.Equal(t, models.IntentOpen, intent.Action)
	assert.Equal(t, strategy.TrendFollowing, eng.StrategyState().ActiveStrategy)
}

func TestRunLivePersistsOnShutdown(t *testing.T) {
	repo := persistence.NewMemoryRepository()
	defer repo.Close()

	eng := testEngine(repo)
	bars := sidewaysBars(10)
	ch := make(chan models.Bar, len(bars))
	for _, b := range bars {
		ch <- b
	}
	close(ch)

	require.NoError(t, eng.RunLive(context.Background(), ch))

	saved, err := repo.LoadState()
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.True(t, saved.LastBarTime.Equal(bars[len(bars)-1].OpenTime))
	assert.Len(t, saved.Window, 10)
	assert.Equal(t, 10000.0, saved.Equity)
}

func TestRunLiveStopsOnContextCancel(t *testing.T) {
	eng := testEngine(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch := make(chan models.Bar)
	done := make(chan error, 1)
	go func() { done <- eng.RunLive(ctx, ch) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("RunLive did not stop on context cancellation")
	}
}

func TestPositionStaysWithOriginatingStrategy(t *testing.T) {
	eng := testEngine(nil)
	bars := regimeShiftBars()
	// Drift sideways after the entry so no stop or cross-down fires; the
	// dispatcher may re-evaluate, but the position's manager must not change.
	bars = append(bars, bar(61, 109.5), bar(62, 109.8), bar(63, 109.4))
	require.NoError(t, eng.RunBacktest(bars))

	pos := eng.OpenPosition()
	require.NotNil(t, pos)
	assert.Equal(t, strategy.TrendFollowing, pos.StrategyName)
}
