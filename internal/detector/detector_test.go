package detector

import (
	"testing"
	"time"

	"regime-bot-go/internal/config"
	"regime-bot-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDetector() *Detector {
	return New(config.Default().Detector)
}

func barsFromCloses(closes []float64) []models.Bar {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, len(closes))
	for i, c := range closes {
		bars[i] = models.Bar{
			OpenTime: start.Add(time.Duration(i) * time.Minute),
			Open:     c,
			High:     c * 1.005,
			Low:      c * 0.995,
			Close:    c,
			Volume:   100,
		}
	}
	return bars
}

func sidewaysCloses(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		if i%2 == 0 {
			closes[i] = 100.3
		} else {
			closes[i] = 100.0
		}
	}
	return closes
}

func trendingCloses(n int, perBarPct float64) []float64 {
	closes := make([]float64, n)
	price := 100.0
	for i := range closes {
		closes[i] = price
		price *= 1 + perBarPct
	}
	return closes
}

func TestDetectInsufficientDataNeverGuesses(t *testing.T) {
	d := testDetector()
	ms := d.Detect(barsFromCloses(sidewaysCloses(30)))

	assert.Equal(t, models.Sideways, ms.Regime)
	assert.Equal(t, 0.0, ms.Confidence)
	assert.Equal(t, models.VolMedium, ms.VolatilityLevel)
}

func TestDetectSidewaysMarket(t *testing.T) {
	d := testDetector()
	bars := barsFromCloses(sidewaysCloses(60))
	ms := d.Detect(bars)

	assert.Equal(t, models.Sideways, ms.Regime)
	assert.Greater(t, ms.Confidence, 0.6, "an unambiguous flat market should be a confident call")
	assert.Equal(t, bars[len(bars)-1].OpenTime, ms.Timestamp)
}

func TestDetectBullMarket(t *testing.T) {
	d := testDetector()
	ms := d.Detect(barsFromCloses(trendingCloses(60, 0.01)))

	assert.Greater(t, ms.Regime.Direction(), 0, "got %s", ms.Regime)
	assert.Greater(t, ms.TrendScore, 0.0)
	assert.Greater(t, ms.MomentumScore, 0.0)
	assert.GreaterOrEqual(t, ms.Confidence, 0.6)
}

func TestDetectBearMarket(t *testing.T) {
	d := testDetector()
	ms := d.Detect(barsFromCloses(trendingCloses(60, -0.01)))

	assert.Less(t, ms.Regime.Direction(), 0, "got %s", ms.Regime)
	assert.Less(t, ms.TrendScore, 0.0)
	assert.Less(t, ms.MomentumScore, 0.0)
	assert.GreaterOrEqual(t, ms.Confidence, 0.6)
}

func TestConfidenceAlwaysInUnitInterval(t *testing.T) {
	d := testDetector()
	for _, perBar := range []float64{-0.03, -0.01, -0.002, 0, 0.002, 0.01, 0.03} {
		ms := d.Detect(barsFromCloses(trendingCloses(60, perBar)))
		assert.GreaterOrEqual(t, ms.Confidence, 0.0)
		assert.LessOrEqual(t, ms.Confidence, 1.0)
	}
}

func TestHighVolatilityDampsConfidence(t *testing.T) {
	cfg := config.Default().Detector
	closes := trendingCloses(60, 0.01)

	quiet := barsFromCloses(closes)
	noisy := barsFromCloses(closes)
	for i := range noisy {
		noisy[i].High = noisy[i].Close * 1.06
		noisy[i].Low = noisy[i].Close * 0.94
	}

	d := New(cfg)
	quietMS := d.Detect(quiet)
	noisyMS := d.Detect(noisy)

	require.Equal(t, models.VolHigh, noisyMS.VolatilityLevel)
	assert.Less(t, noisyMS.Confidence, quietMS.Confidence)
}

func TestStrongerTrendScoresHigher(t *testing.T) {
	d := testDetector()
	weak := d.Detect(barsFromCloses(trendingCloses(60, 0.004)))
	strong := d.Detect(barsFromCloses(trendingCloses(60, 0.015)))
	assert.Greater(t, strong.TrendScore, weak.TrendScore)
}
