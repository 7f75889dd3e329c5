package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalGate/internal/domain/models"
	"SignalGate/pkg/config"
)

type bar struct{ close, spread, volume float64 }

func windowOf(tf models.Timeframe, bars []bar) models.FeatureWindows {
	end := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, len(bars))
	for i, b := range bars {
		candles[i] = models.Candle{
			Bucket: end.Add(-time.Duration(len(bars)-1-i) * tf.Duration()),
			Open:   b.close,
			High:   b.close + b.spread,
			Low:    b.close - b.spread,
			Close:  b.close,
			Volume: b.volume,
		}
	}
	return models.FeatureWindows{tf: models.NewFeatureWindow(tf, candles)}
}

func series(n int, f func(i int) bar) []bar {
	out := make([]bar, n)
	for i := range out {
		out[i] = f(i)
	}
	return out
}

func newDetector() *RegimeDetector {
	return NewRegimeDetector(config.Default().Engine.Regime, nil)
}

func TestDetectTrendingBullish(t *testing.T) {
	bars := series(60, func(i int) bar {
		c := 100 * math.Pow(1.01, float64(i))
		return bar{close: c, spread: c * 0.002, volume: 1000}
	})
	rc, diag := newDetector().Detect(windowOf(models.TFH1, bars))

	require.Nil(t, diag)
	assert.Equal(t, models.RegimeTrendingBullish, rc.Regime)
	assert.Equal(t, 0.8, rc.Confidence)
	assert.Equal(t, models.TFH1, rc.Timeframe)
	assert.Greater(t, rc.Evidence[EvTrendStrength], 0.02)
	for _, k := range []string{EvVolatility, EvTrend, EvPeriodRange, EvVolatilityRatio, EvVolumeRatio} {
		assert.Contains(t, rc.Evidence, k)
	}
}

func TestDetectTrendingBearish(t *testing.T) {
	bars := series(60, func(i int) bar {
		c := 100 * math.Pow(0.99, float64(i))
		return bar{close: c, spread: c * 0.002}
	})
	rc, diag := newDetector().Detect(windowOf(models.TFH1, bars))

	require.Nil(t, diag)
	assert.Equal(t, models.RegimeTrendingBearish, rc.Regime)
	assert.NotContains(t, rc.Evidence, EvVolumeRatio)
}

func TestDetectRanging(t *testing.T) {
	bars := series(60, func(i int) bar {
		return bar{close: 100 + 0.1*float64(i%2), spread: 0.2, volume: 500}
	})
	rc, diag := newDetector().Detect(windowOf(models.TFH1, bars))

	require.Nil(t, diag)
	assert.Equal(t, models.RegimeRanging, rc.Regime)
	assert.Equal(t, 0.9, rc.Confidence)
}

func TestDetectHighVolatility(t *testing.T) {
	bars := series(50, func(i int) bar {
		if i >= 36 {
			return bar{close: 100, spread: 3}
		}
		return bar{close: 100, spread: 0.1}
	})
	rc, _ := newDetector().Detect(windowOf(models.TFH1, bars))
	assert.Equal(t, models.RegimeHighVolatility, rc.Regime)
	assert.Equal(t, 0.7, rc.Confidence)
}

func TestDetectLowVolatility(t *testing.T) {
	bars := series(50, func(i int) bar {
		if i >= 36 {
			return bar{close: 100, spread: 0.1}
		}
		return bar{close: 100, spread: 3}
	})
	rc, _ := newDetector().Detect(windowOf(models.TFH1, bars))
	assert.Equal(t, models.RegimeLowVolatility, rc.Regime)
	assert.Less(t, rc.Evidence[EvVolatilityRatio], 0.7)
}

func TestDetectBreakout(t *testing.T) {
	bars := series(50, func(i int) bar {
		v := 1000.0
		if i >= 45 {
			v = 5000
		}
		return bar{close: 100, spread: 3, volume: v}
	})
	rc, diag := newDetector().Detect(windowOf(models.TFH1, bars))

	require.Nil(t, diag)
	assert.Equal(t, models.RegimeBreakout, rc.Regime)
	assert.Equal(t, 0.6, rc.Confidence)
	assert.Greater(t, rc.Evidence[EvVolumeRatio], 1.5)
}

func TestDetectTieBrokenByEnumerationOrder(t *testing.T) {
	cfg := config.Default().Engine.Regime
	cfg.Confidence.Trending = 0.7
	d := NewRegimeDetector(cfg, nil)

	// a strong trend whose recent bars are also much wider
	bars := series(50, func(i int) bar {
		c := 100 * math.Pow(1.01, float64(i))
		s := c * 0.001
		if i >= 36 {
			s = c * 0.05
		}
		return bar{close: c, spread: s}
	})
	rc, _ := d.Detect(windowOf(models.TFH1, bars))
	require.Greater(t, rc.Evidence[EvVolatilityRatio], 1.5)
	assert.Equal(t, models.RegimeTrendingBullish, rc.Regime)
}

func TestDetectNoCandidate(t *testing.T) {
	cfg := config.Default().Engine.Regime
	cfg.TrendStrengthMin = 10
	cfg.RangingRangeMax = 0
	cfg.HighVolRatio = 100
	cfg.LowVolRatio = 0
	cfg.BreakoutVolumeRatio = 100

	bars := series(60, func(i int) bar { return bar{close: 100 + float64(i%3), spread: 1, volume: 10} })
	rc, diag := NewRegimeDetector(cfg, nil).Detect(windowOf(models.TFH1, bars))

	assert.Equal(t, models.RegimeUnknown, rc.Regime)
	assert.Equal(t, 0.5, rc.Confidence)
	require.NotNil(t, diag)
	assert.Equal(t, models.ReasonUnknownRegime, diag.Code)
}

func TestDetectInsufficientRows(t *testing.T) {
	bars := series(30, func(i int) bar { return bar{close: 100, spread: 1} })
	rc, diag := newDetector().Detect(windowOf(models.TFH1, bars))

	assert.Equal(t, models.RegimeUnknown, rc.Regime)
	assert.Zero(t, rc.Confidence)
	assert.NotEmpty(t, rc.Reason)
	require.NotNil(t, diag)
}

func TestDetectFallsBackToNextPrimary(t *testing.T) {
	windows := windowOf(models.TFH1, series(30, func(i int) bar { return bar{close: 100, spread: 1} }))
	for k, v := range windowOf(models.TFH4, series(60, func(i int) bar { return bar{close: 100 + 0.1*float64(i%2), spread: 0.2} })) {
		windows[k] = v
	}
	rc, diag := newDetector().Detect(windows)

	require.Nil(t, diag)
	assert.Equal(t, models.TFH4, rc.Timeframe)
	assert.Equal(t, models.RegimeRanging, rc.Regime)
}

func TestDetectDegradesOnArithmeticFailure(t *testing.T) {
	zero := series(60, func(i int) bar { return bar{close: 0, spread: 0} })
	rc, diag := newDetector().Detect(windowOf(models.TFH1, zero))
	assert.Equal(t, models.RegimeUnknown, rc.Regime)
	assert.Zero(t, rc.Confidence)
	require.NotNil(t, diag)

	flat := series(60, func(i int) bar { return bar{close: 100, spread: 0} })
	rc, diag = newDetector().Detect(windowOf(models.TFH1, flat))
	assert.Equal(t, models.RegimeUnknown, rc.Regime)
	assert.Zero(t, rc.Confidence)
	require.NotNil(t, diag)

	nan := series(60, func(i int) bar { return bar{close: 100, spread: 1} })
	w := windowOf(models.TFH1, nan)
	w[models.TFH1].Columns[models.ColHigh][55] = math.NaN()
	assert.NotPanics(t, func() {
		rc, _ = newDetector().Detect(w)
	})
	assert.Equal(t, models.RegimeUnknown, rc.Regime)
}
