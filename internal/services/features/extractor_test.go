package features

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalGate/internal/domain/models"
)

func TestComputeLogReturns(t *testing.T) {
	assert.Nil(t, ComputeLogReturns([]float64{1}))

	r := ComputeLogReturns([]float64{100, 110, 0, 121})
	require.Len(t, r, 3)
	assert.InDelta(t, math.Log(1.1), r[0], 1e-12)
	assert.Zero(t, r[1])
	assert.Zero(t, r[2])
}

func TestRealizedVolatility(t *testing.T) {
	assert.Zero(t, RealizedVolatility([]float64{0.1}, 5, 365))

	r := []float64{0.01, -0.01, 0.01, -0.01}
	got := RealizedVolatility(r, 4, 100)
	assert.InDelta(t, Stdev(r)*10, got, 1e-12)
}

func TestMeanStdev(t *testing.T) {
	assert.True(t, math.IsNaN(Mean(nil)))
	assert.Equal(t, 2.5, Mean([]float64{1, 2, 3, 4}))
	assert.Zero(t, Stdev([]float64{3}))
	assert.InDelta(t, 1.2909944, Stdev([]float64{1, 2, 3, 4}), 1e-6)
}

func TestEMA(t *testing.T) {
	assert.True(t, math.IsNaN(EMA(nil, 3)))

	flat := []float64{5, 5, 5, 5}
	assert.Equal(t, 5.0, EMA(flat, 3))

	// alpha = 0.5
	assert.InDelta(t, 2.25, EMA([]float64{1, 2, 3}, 3), 1e-12)

	rising := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Greater(t, EMA(rising, 3), EMA(rising, 8))
}

func TestTrueRangesAndATR(t *testing.T) {
	high := []float64{10, 12, 11}
	low := []float64{9, 10, 8}
	closes := []float64{9.5, 11, 9}

	tr := TrueRanges(high, low, closes)
	assert.Equal(t, []float64{1, 2.5, 3}, tr)
	assert.InDelta(t, 2.75, ATR(high, low, closes, 2), 1e-12)
	assert.True(t, math.IsNaN(ATR(high, low, closes, 4)))
	assert.Nil(t, TrueRanges(high[:1], low, closes))
}

func TestMaxMinTailFinite(t *testing.T) {
	hi, lo := MaxMin([]float64{3, 1, 4, 1, 5})
	assert.Equal(t, 5.0, hi)
	assert.Equal(t, 1.0, lo)

	assert.Equal(t, []float64{4, 5}, Tail([]float64{1, 2, 3, 4, 5}, 2))
	assert.Equal(t, []float64{1}, Tail([]float64{1}, 3))

	assert.True(t, Finite(1, 2))
	assert.False(t, Finite(1, math.NaN()))
	assert.False(t, Finite(math.Inf(1)))
}

func TestBarsPerYearAndAlign(t *testing.T) {
	assert.Equal(t, 365.0, BarsPerYearForTF(models.TFD1))
	assert.Equal(t, 365.0*24, BarsPerYearForTF(models.TFH1))

	from := time.Date(2024, 1, 2, 10, 37, 0, 0, time.UTC)
	to := time.Date(2024, 1, 2, 14, 59, 0, 0, time.UTC)
	f, tt := AlignFromTo(from, to, models.TFH1)
	assert.Equal(t, time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC), f)
	assert.Equal(t, time.Date(2024, 1, 2, 14, 0, 0, 0, time.UTC), tt)
}
