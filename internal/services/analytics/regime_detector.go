package analytics

import (
	"fmt"

	"SignalGate/internal/domain/models"
	domsvc "SignalGate/internal/domain/service"
	"SignalGate/internal/services/features"
	"SignalGate/pkg/config"
	"SignalGate/pkg/logger"
)

// Evidence keys reported with every classification.
const (
	EvVolatility      = "volatility"
	EvTrend           = "trend"
	EvTrendStrength   = "trend_strength"
	EvPeriodRange     = "period_range"
	EvVolatilityRatio = "volatility_ratio"
	EvVolumeRatio     = "volume_ratio"
	EvEMAShort        = "ema_short"
	EvEMALong         = "ema_long"
	EvATRShort        = "atr_short"
	EvATRLong         = "atr_long"
)

// RegimeDetector classifies market behaviour from the trailing bars of a primary timeframe.
type RegimeDetector struct {
	cfg config.Regime
	l   *logger.Logger
}

func NewRegimeDetector(cfg config.Regime, l *logger.Logger) *RegimeDetector {
	return &RegimeDetector{cfg: cfg, l: l}
}

type regimeMetrics struct {
	trend       float64
	strength    float64
	periodRange float64
	volRatio    float64
	volumeRatio float64
	hasVolume   bool
}

// Detect returns UNKNOWN with a diagnostic whenever it cannot classify.
func (d *RegimeDetector) Detect(windows models.FeatureWindows) (models.RegimeClassification, *models.Diagnostic) {
	tf, w, ok := d.primary(windows)
	if !ok {
		return d.unknown("", 0, nil, fmt.Sprintf("no primary timeframe with at least %d rows", d.cfg.Lookback))
	}

	m, evidence, err := d.measure(tf, w.Tail(d.cfg.Lookback))
	if err != nil {
		return d.unknown(tf, 0, evidence, err.Error())
	}

	best := models.RegimeUnknown
	bestConf := 0.0
	for _, r := range models.AllRegimes() {
		if c := d.candidate(r, m); c > bestConf {
			best, bestConf = r, c
		}
	}
	if best == models.RegimeUnknown {
		return d.unknown(tf, d.cfg.Confidence.Fallback, evidence, "no regime candidate qualified")
	}

	rc := models.RegimeClassification{Regime: best, Confidence: bestConf, Timeframe: tf, Evidence: evidence}
	if d.l != nil {
		d.l.Debug("regime detected",
			logger.String("regime", best.String()),
			logger.Float64("confidence", bestConf),
			logger.String("timeframe", string(tf)),
		)
	}
	return rc, nil
}

// candidate returns the regime's confidence when its conditions hold, 0 otherwise.
func (d *RegimeDetector) candidate(r models.Regime, m regimeMetrics) float64 {
	c := d.cfg
	switch r {
	case models.RegimeTrendingBullish:
		if m.strength > c.TrendStrengthMin && m.trend > 0 {
			return c.Confidence.Trending
		}
	case models.RegimeTrendingBearish:
		if m.strength > c.TrendStrengthMin && m.trend < 0 {
			return c.Confidence.Trending
		}
	case models.RegimeRanging:
		if m.periodRange < c.RangingRangeMax && m.strength < c.RangingTrendMax {
			return c.Confidence.Ranging
		}
	case models.RegimeHighVolatility:
		if m.volRatio > c.HighVolRatio {
			return c.Confidence.Volatility
		}
	case models.RegimeLowVolatility:
		if m.volRatio < c.LowVolRatio {
			return c.Confidence.Volatility
		}
	case models.RegimeBreakout:
		if m.hasVolume && m.volumeRatio > c.BreakoutVolumeRatio && m.periodRange > c.BreakoutRangeMin {
			return c.Confidence.Breakout
		}
	case models.RegimeUnknown:
	}
	return 0
}

func (d *RegimeDetector) primary(windows models.FeatureWindows) (models.Timeframe, *models.FeatureWindow, bool) {
	for _, tf := range d.cfg.PrimaryTimeframes {
		w := windows[tf]
		if w == nil || !w.IsTable() || w.Len() < d.cfg.Lookback {
			continue
		}
		if _, ok := w.Column(models.ColClose); !ok {
			continue
		}
		if _, ok := w.Column(models.ColHigh); !ok {
			continue
		}
		if _, ok := w.Column(models.ColLow); !ok {
			continue
		}
		return tf, w, true
	}
	return "", nil, false
}

func (d *RegimeDetector) measure(tf models.Timeframe, w *models.FeatureWindow) (regimeMetrics, map[string]float64, error) {
	var m regimeMetrics
	ev := make(map[string]float64, 10)

	closes, _ := w.Column(models.ColClose)
	highs, _ := w.Column(models.ColHigh)
	lows, _ := w.Column(models.ColLow)
	last := closes[len(closes)-1]
	if !(last > 0) {
		return m, ev, fmt.Errorf("last close %v is not a positive price", last)
	}

	returns := features.ComputeLogReturns(closes)
	ev[EvVolatility] = features.RealizedVolatility(returns, len(returns), features.BarsPerYearForTF(tf))

	emaS := features.EMA(closes, d.cfg.EMAShort)
	emaL := features.EMA(closes, d.cfg.EMALong)
	m.trend = (emaS - emaL) / last
	if m.trend < 0 {
		m.strength = -m.trend
	} else {
		m.strength = m.trend
	}
	ev[EvEMAShort], ev[EvEMALong] = emaS, emaL
	ev[EvTrend], ev[EvTrendStrength] = m.trend, m.strength

	maxHigh, _ := features.MaxMin(highs)
	_, minLow := features.MaxMin(lows)
	meanClose := features.Mean(closes)
	if !(meanClose > 0) {
		return m, ev, fmt.Errorf("mean close %v is not positive", meanClose)
	}
	m.periodRange = (maxHigh - minLow) / meanClose
	ev[EvPeriodRange] = m.periodRange

	atrS := features.ATR(highs, lows, closes, d.cfg.ATRShort)
	atrL := features.ATR(highs, lows, closes, d.cfg.ATRLong)
	if !(atrL > 0) {
		return m, ev, fmt.Errorf("long average true range %v is not positive", atrL)
	}
	m.volRatio = atrS / atrL
	ev[EvATRShort], ev[EvATRLong], ev[EvVolatilityRatio] = atrS, atrL, m.volRatio

	if w.HasVolume() {
		vol, _ := w.Column(models.ColVolume)
		long := features.Mean(features.Tail(vol, d.cfg.VolumeLong))
		if long > 0 {
			m.volumeRatio = features.Mean(features.Tail(vol, d.cfg.VolumeShort)) / long
			m.hasVolume = features.Finite(m.volumeRatio)
			if m.hasVolume {
				ev[EvVolumeRatio] = m.volumeRatio
			}
		}
	}

	for k, v := range ev {
		if !features.Finite(v) {
			return m, ev, fmt.Errorf("%s is not finite", k)
		}
	}
	return m, ev, nil
}

func (d *RegimeDetector) unknown(tf models.Timeframe, conf float64, ev map[string]float64, reason string) (models.RegimeClassification, *models.Diagnostic) {
	if d.l != nil {
		d.l.Debug("regime unknown", logger.String("reason", reason), logger.String("timeframe", string(tf)))
	}
	return models.RegimeClassification{
			Regime:     models.RegimeUnknown,
			Confidence: conf,
			Timeframe:  tf,
			Evidence:   ev,
			Reason:     reason,
		}, &models.Diagnostic{
			Stage:   "regime",
			Code:    models.ReasonUnknownRegime,
			Message: reason,
		}
}

var _ domsvc.RegimeDetector = (*RegimeDetector)(nil)
