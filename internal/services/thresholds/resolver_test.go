package thresholds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalGate/internal/domain/models"
	"SignalGate/pkg/config"
)

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	r, err := NewResolver(config.Default().Engine.Thresholds, 20, nil)
	require.NoError(t, err)
	return r
}

func TestResolveCriteriaRequiredPerRegime(t *testing.T) {
	want := map[models.Regime]int{
		models.RegimeTrendingBullish: 16,
		models.RegimeTrendingBearish: 16,
		models.RegimeRanging:         18,
		models.RegimeHighVolatility:  17,
		models.RegimeLowVolatility:   18,
		models.RegimeBreakout:        16,
		models.RegimeUnknown:         17,
	}
	r := newResolver(t)
	for _, reg := range models.AllRegimes() {
		ts := r.Resolve(models.RegimeClassification{Regime: reg, Confidence: 0.5})
		assert.Equal(t, want[reg], ts.CriteriaRequired, reg.String())
		assert.Equal(t, 20, ts.TotalCriteria)
		assert.Equal(t, reg, ts.Regime)
	}
}

func TestResolveTrendingBullish(t *testing.T) {
	ts := newResolver(t).Resolve(models.RegimeClassification{
		Regime:     models.RegimeTrendingBullish,
		Confidence: 0.8,
		Evidence:   map[string]float64{"trend_strength": 0.03},
	})
	assert.Equal(t, 45.0, ts.RSIMin)
	assert.Equal(t, 75.0, ts.RSIMax)
	assert.Equal(t, 0.7, ts.VolumeRatioMin)
	assert.Equal(t, 16, ts.CriteriaRequired)
	// untouched keys keep the base value
	assert.Equal(t, 100.0, ts.ATRMin)
	assert.Equal(t, 50.0, ts.EMASpacingMin)
	assert.Equal(t, 20.0, ts.ADXMin)
	assert.Equal(t, 0.8, ts.Confidence)
}

func TestResolveOverridesOnlyNamedKeys(t *testing.T) {
	r := newResolver(t)

	hv := r.Resolve(models.RegimeClassification{Regime: models.RegimeHighVolatility})
	assert.Equal(t, 150.0, hv.ATRMin)
	assert.Equal(t, 75.0, hv.EMASpacingMin)
	assert.Equal(t, 40.0, hv.RSIMin)
	assert.Equal(t, 0.8, hv.VolumeRatioMin)

	lv := r.Resolve(models.RegimeClassification{Regime: models.RegimeLowVolatility})
	assert.Equal(t, 50.0, lv.ATRMin)
	assert.Equal(t, 1.2, lv.VolumeRatioMin)

	bo := r.Resolve(models.RegimeClassification{Regime: models.RegimeBreakout})
	assert.Equal(t, 1.5, bo.VolumeRatioMin)

	rg := r.Resolve(models.RegimeClassification{Regime: models.RegimeRanging})
	assert.Equal(t, 35.0, rg.RSIMin)
	assert.Equal(t, 65.0, rg.RSIMax)
	assert.Equal(t, 1.0, rg.VolumeRatioMin)

	unk := r.Resolve(models.RegimeClassification{Regime: models.RegimeUnknown})
	base := config.Default().Engine.Thresholds.Base
	assert.Equal(t, base.RSIMin, unk.RSIMin)
	assert.Equal(t, base.ATRMin, unk.ATRMin)
}

func TestResolveIsPure(t *testing.T) {
	r := newResolver(t)
	rc := models.RegimeClassification{Regime: models.RegimeRanging, Confidence: 0.9}
	a := r.Resolve(rc)
	a.RSIMin = -1
	b := r.Resolve(rc)
	assert.Equal(t, 35.0, b.RSIMin)
	assert.Equal(t, r.Resolve(rc), b)
}

func TestResolveClampsRequired(t *testing.T) {
	r, err := NewResolver(config.Default().Engine.Thresholds, 10, nil)
	require.NoError(t, err)
	for _, reg := range models.AllRegimes() {
		ts := r.Resolve(models.RegimeClassification{Regime: reg})
		assert.GreaterOrEqual(t, ts.CriteriaRequired, 1)
		assert.LessOrEqual(t, ts.CriteriaRequired, 10)
	}

	cfg := config.Default().Engine.Thresholds
	zero := 0
	cfg.Overrides = map[string]config.ThresholdOverride{"RANGING": {CriteriaRequired: &zero}}
	r, err = NewResolver(cfg, 20, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Resolve(models.RegimeClassification{Regime: models.RegimeRanging}).CriteriaRequired)
}

func TestNewResolverRejectsBadConfig(t *testing.T) {
	cfg := config.Default().Engine.Thresholds
	cfg.Overrides = map[string]config.ThresholdOverride{"SIDEWAYS": {}}
	_, err := NewResolver(cfg, 20, nil)
	require.Error(t, err)

	_, err = NewResolver(config.Default().Engine.Thresholds, 0, nil)
	require.Error(t, err)
}
