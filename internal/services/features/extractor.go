package features

import (
	"math"
	"time"

	"SignalGate/internal/domain/models"
)

// ComputeLogReturns computes log returns r_t = ln(C_t / C_{t-1}).
// It returns a slice of length len(closes)-1, or nil if insufficient data.
func ComputeLogReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prev := closes[i-1]
		cur := closes[i]
		if !(prev > 0) || !(cur > 0) {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// RealizedVolatility computes annualized realized volatility over the last window returns
// using the provided number of bars per year.
func RealizedVolatility(logReturns []float64, window int, barsPerYear float64) float64 {
	if window <= 1 || len(logReturns) < window {
		return 0
	}
	sd := Stdev(logReturns[len(logReturns)-window:])
	return sd * math.Sqrt(barsPerYear)
}

// BarsPerYearForTF returns the approximate number of bars per year for a timeframe.
func BarsPerYearForTF(tf models.Timeframe) float64 {
	switch tf {
	case models.TFM15:
		return 365 * 24 * 4
	case models.TFH1:
		return 365 * 24
	case models.TFH4:
		return 365 * 6
	case models.TFD1:
		return 365
	default:
		return 365 * 24
	}
}

// AlignFromTo rounds a time range down to bar boundaries of the timeframe.
func AlignFromTo(from, to time.Time, tf models.Timeframe) (time.Time, time.Time) {
	d := tf.Duration()
	if d <= 0 {
		d = time.Minute
	}
	return from.Truncate(d), to.Truncate(d)
}

// Mean returns the arithmetic mean, NaN for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Stdev returns the sample standard deviation, 0 when fewer than two values.
func Stdev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	m := Mean(values)
	ss := 0.0
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// EMA returns the last value of an exponential moving average seeded with the first value.
func EMA(values []float64, period int) float64 {
	if len(values) == 0 || period <= 0 {
		return math.NaN()
	}
	alpha := 2.0 / float64(period+1)
	ema := values[0]
	for _, v := range values[1:] {
		ema = alpha*v + (1-alpha)*ema
	}
	return ema
}

// TrueRanges returns max(high-low, |high-prevClose|, |low-prevClose|) per bar.
// The first bar has no previous close and uses high-low.
func TrueRanges(high, low, closes []float64) []float64 {
	n := len(closes)
	if len(high) < n || len(low) < n {
		return nil
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		tr := high[i] - low[i]
		if i > 0 {
			tr = math.Max(tr, math.Max(math.Abs(high[i]-closes[i-1]), math.Abs(low[i]-closes[i-1])))
		}
		out[i] = tr
	}
	return out
}

// ATR returns the simple average of the last period true ranges, NaN if not enough bars.
func ATR(high, low, closes []float64, period int) float64 {
	tr := TrueRanges(high, low, closes)
	if period <= 0 || len(tr) < period {
		return math.NaN()
	}
	return Mean(tr[len(tr)-period:])
}

// MaxMin returns the largest and smallest values.
func MaxMin(values []float64) (float64, float64) {
	if len(values) == 0 {
		return math.NaN(), math.NaN()
	}
	hi, lo := values[0], values[0]
	for _, v := range values[1:] {
		if v > hi {
			hi = v
		}
		if v < lo {
			lo = v
		}
	}
	return hi, lo
}

// Tail returns the last n values.
func Tail(values []float64, n int) []float64 {
	if n >= len(values) {
		return values
	}
	return values[len(values)-n:]
}

// Finite reports whether every value is a finite number.
func Finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
