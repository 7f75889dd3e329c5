package thresholds

import (
	"fmt"

	"SignalGate/internal/domain/models"
	domsvc "SignalGate/internal/domain/service"
	"SignalGate/pkg/config"
	"SignalGate/pkg/logger"
)

// Resolver applies per-regime overrides on top of a base threshold table.
// It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	base      config.ThresholdValues
	overrides map[models.Regime]config.ThresholdOverride
	total     int
	l         *logger.Logger
}

// NewResolver parses the override table once. total is the catalogue size.
func NewResolver(cfg config.Thresholds, total int, l *logger.Logger) (*Resolver, error) {
	if total < 1 {
		return nil, fmt.Errorf("total criteria must be positive, got %d", total)
	}
	r := &Resolver{
		base:      cfg.Base,
		overrides: make(map[models.Regime]config.ThresholdOverride, len(cfg.Overrides)),
		total:     total,
		l:         l,
	}
	for name, o := range cfg.Overrides {
		reg, err := models.ParseRegime(name)
		if err != nil {
			return nil, fmt.Errorf("threshold overrides: %w", err)
		}
		r.overrides[reg] = o
	}
	return r, nil
}

// Resolve returns a fresh copy of the base table with the regime's overrides applied.
func (r *Resolver) Resolve(rc models.RegimeClassification) models.ThresholdSet {
	ts := models.ThresholdSet{
		RSIMin:           r.base.RSIMin,
		RSIMax:           r.base.RSIMax,
		VolumeRatioMin:   r.base.VolumeRatioMin,
		ATRMin:           r.base.ATRMin,
		EMASpacingMin:    r.base.EMASpacingMin,
		ADXMin:           r.base.ADXMin,
		CriteriaRequired: r.base.CriteriaRequired,
		TotalCriteria:    r.total,
		Regime:           rc.Regime,
		Confidence:       rc.Confidence,
	}

	if o, ok := r.overrides[rc.Regime]; ok {
		setF(&ts.RSIMin, o.RSIMin)
		setF(&ts.RSIMax, o.RSIMax)
		setF(&ts.VolumeRatioMin, o.VolumeRatioMin)
		setF(&ts.ATRMin, o.ATRMin)
		setF(&ts.EMASpacingMin, o.EMASpacingMin)
		setF(&ts.ADXMin, o.ADXMin)
		if o.CriteriaRequired != nil {
			ts.CriteriaRequired = *o.CriteriaRequired
		}
	}

	if clamped := clamp(ts.CriteriaRequired, 1, r.total); clamped != ts.CriteriaRequired {
		if r.l != nil {
			r.l.Warn("criteria_required clamped",
				logger.String("regime", rc.Regime.String()),
				logger.Int("configured", ts.CriteriaRequired),
				logger.Int("clamped", clamped),
			)
		}
		ts.CriteriaRequired = clamped
	}
	return ts
}

func setF(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

var _ domsvc.ThresholdResolver = (*Resolver)(nil)
