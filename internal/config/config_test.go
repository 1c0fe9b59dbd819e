package config

import (
	"os"
	"path/filepath"
	"testing"

	"regime-bot-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Validate(Default()))
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	payload := `{
		"symbol": "ETHUSDT",
		"window_size": 80,
		"dispatcher": { "min_ticks_between_switches": 7, "breakout_momentum_threshold": 0.3 }
	}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "ETHUSDT", cfg.Symbol)
	assert.Equal(t, 80, cfg.WindowSize)
	assert.Equal(t, 7, cfg.Dispatcher.MinTicksBetweenSwitches)
	// Untouched fields keep their defaults.
	assert.Equal(t, 10000.0, cfg.InitialEquity)
	assert.Equal(t, 0.8, cfg.Detector.HighVolDamping)
	assert.NoError(t, Validate(cfg))
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*models.Config)
	}{
		{"empty symbol", func(c *models.Config) { c.Symbol = "" }},
		{"non-positive equity", func(c *models.Config) { c.InitialEquity = 0 }},
		{"window below indicator lookback", func(c *models.Config) { c.WindowSize = MinWindowSize - 1 }},
		{"inverted trend thresholds", func(c *models.Config) { c.Detector.TrendStrongPct = c.Detector.TrendBullPct }},
		{"inverted volatility bounds", func(c *models.Config) { c.Detector.VolLowPct = 0.08 }},
		{"zero momentum weights", func(c *models.Config) { c.Detector.MomentumWeights = models.MomentumWeights{} }},
		{"negative momentum weight", func(c *models.Config) { c.Detector.MomentumWeights.RSI = -0.1 }},
		{"damping above one", func(c *models.Config) { c.Detector.HighVolDamping = 1.2 }},
		{"negative hysteresis", func(c *models.Config) { c.Dispatcher.MinTicksBetweenSwitches = -1 }},
		{"breakout threshold above one", func(c *models.Config) { c.Dispatcher.BreakoutMomentumThreshold = 1.5 }},
		{"breakout K out of range", func(c *models.Config) { c.Strategies.BreakoutK = 0.1 }},
		{"confidence above one", func(c *models.Config) { c.Strategies.TrendFollowing.MinConfidence = 1.5 }},
		{"zero risk", func(c *models.Config) { c.Strategies.RangeTrading.BaseRiskPct = 0 }},
		{"stop loss of 100%", func(c *models.Config) { c.Strategies.Defensive.StopLossPct = 1 }},
		{"zero take profit", func(c *models.Config) { c.Strategies.MomentumScalping.TakeProfitPct = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestHysteresisOfZeroIsAllowed(t *testing.T) {
	cfg := Default()
	cfg.Dispatcher.MinTicksBetweenSwitches = 0
	assert.NoError(t, Validate(cfg))
}
