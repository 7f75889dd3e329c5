package config

import (
	"errors"
	"fmt"
	"math"
	"time"

	"SignalGate/internal/domain/models"
)

var (
	ErrInvalidCatalogue = errors.New("invalid criterion catalogue")
	ErrInvalidBands     = errors.New("invalid band boundaries")
	ErrInvalidPolicy    = errors.New("invalid admission policy")
)

// Engine holds every tunable of the gate.
type Engine struct {
	Pool            string      `yaml:"pool" default:"default" validate:"required"`
	Timezone        string      `yaml:"timezone" default:"UTC"`
	HistoryCapacity int         `yaml:"history_capacity" default:"1000" validate:"min=1"`
	WindowBars      int         `yaml:"window_bars" default:"200" validate:"min=1"` // bars loaded per timeframe when windows are fetched by symbol
	Seed            int64       `yaml:"seed"` // 0 seeds from the clock
	DataQuality     DataQuality `yaml:"data_quality"`
	Regime          Regime      `yaml:"regime"`
	Thresholds      Thresholds  `yaml:"thresholds"`
	Scoring         Scoring     `yaml:"scoring"`
	Admission       Admission   `yaml:"admission"`
	Signal          Signal      `yaml:"signal"`
	Intake          Intake      `yaml:"intake"`
}

// GradeBands are inclusive lower bounds, checked from Excellent down.
type GradeBands struct {
	Excellent float64 `yaml:"excellent"`
	VeryGood  float64 `yaml:"very_good"`
	Good      float64 `yaml:"good"`
	Fair      float64 `yaml:"fair"`
	Poor      float64 `yaml:"poor"`
}

func (b GradeBands) isZero() bool { return b == GradeBands{} }

func (b GradeBands) validate() error {
	if b.Excellent > 100 || b.Poor < 0 ||
		b.Excellent < b.VeryGood || b.VeryGood < b.Good || b.Good < b.Fair || b.Fair < b.Poor {
		return fmt.Errorf("%w: grades must be non-increasing within [0,100]: %+v", ErrInvalidBands, b)
	}
	return nil
}

type DataQuality struct {
	RequiredTimeframes     []models.Timeframe                 `yaml:"required_timeframes" default:"[\"H1\"]"`
	MinRowsIntraday        int                                `yaml:"min_rows_intraday" default:"50" validate:"min=1"`
	MinRowsDaily           int                                `yaml:"min_rows_daily" default:"30" validate:"min=1"`
	Freshness              map[models.Timeframe]time.Duration `yaml:"freshness"`
	MissingTolerance       float64                            `yaml:"missing_tolerance" default:"0.05" validate:"gte=0,lte=1"`
	ExtremeMove            float64                            `yaml:"extreme_move" default:"0.5" validate:"gt=0"`
	ExtremeMoveMaxFraction float64                            `yaml:"extreme_move_max_fraction" default:"0.1" validate:"gte=0,lte=1"`
	Grades                 GradeBands                         `yaml:"grades"`
}

type Regime struct {
	PrimaryTimeframes   []models.Timeframe `yaml:"primary_timeframes" default:"[\"H1\",\"H4\",\"M15\",\"D1\"]" validate:"min=1"`
	Lookback            int                `yaml:"lookback" default:"50" validate:"min=2"`
	EMAShort            int                `yaml:"ema_short" default:"12" validate:"min=1"`
	EMALong             int                `yaml:"ema_long" default:"26" validate:"min=1"`
	ATRShort            int                `yaml:"atr_short" default:"14" validate:"min=1"`
	ATRLong             int                `yaml:"atr_long" default:"50" validate:"min=1"`
	VolumeShort         int                `yaml:"volume_short" default:"5" validate:"min=1"`
	VolumeLong          int                `yaml:"volume_long" default:"20" validate:"min=1"`
	TrendStrengthMin    float64            `yaml:"trend_strength_min" default:"0.02"`
	RangingRangeMax     float64            `yaml:"ranging_range_max" default:"0.05"`
	RangingTrendMax     float64            `yaml:"ranging_trend_max" default:"0.01"`
	HighVolRatio        float64            `yaml:"high_vol_ratio" default:"1.5"`
	LowVolRatio         float64            `yaml:"low_vol_ratio" default:"0.7"`
	BreakoutVolumeRatio float64            `yaml:"breakout_volume_ratio" default:"1.5"`
	BreakoutRangeMin    float64            `yaml:"breakout_range_min" default:"0.03"`
	Confidence          struct {
		Trending   float64 `yaml:"trending" default:"0.8"`
		Ranging    float64 `yaml:"ranging" default:"0.9"`
		Volatility float64 `yaml:"volatility" default:"0.7"`
		Breakout   float64 `yaml:"breakout" default:"0.6"`
		Fallback   float64 `yaml:"fallback" default:"0.5"`
	} `yaml:"confidence"`
}

type ThresholdValues struct {
	RSIMin           float64 `yaml:"rsi_min" default:"40"`
	RSIMax           float64 `yaml:"rsi_max" default:"70"`
	VolumeRatioMin   float64 `yaml:"volume_ratio_min" default:"0.8"`
	ATRMin           float64 `yaml:"atr_min" default:"100"`
	EMASpacingMin    float64 `yaml:"ema_spacing_min" default:"50"`
	ADXMin           float64 `yaml:"adx_min" default:"20"`
	CriteriaRequired int     `yaml:"criteria_required" default:"17"`
}

// ThresholdOverride replaces only the keys it sets.
type ThresholdOverride struct {
	RSIMin           *float64 `yaml:"rsi_min,omitempty"`
	RSIMax           *float64 `yaml:"rsi_max,omitempty"`
	VolumeRatioMin   *float64 `yaml:"volume_ratio_min,omitempty"`
	ATRMin           *float64 `yaml:"atr_min,omitempty"`
	EMASpacingMin    *float64 `yaml:"ema_spacing_min,omitempty"`
	ADXMin           *float64 `yaml:"adx_min,omitempty"`
	CriteriaRequired *int     `yaml:"criteria_required,omitempty"`
}

type Thresholds struct {
	Base      ThresholdValues              `yaml:"base"`
	Overrides map[string]ThresholdOverride `yaml:"overrides"`
}

type ConfidenceBands struct {
	VeryHigh float64 `yaml:"very_high" default:"85"`
	High     float64 `yaml:"high" default:"80"`
	Moderate float64 `yaml:"moderate" default:"75"`
	Low      float64 `yaml:"low" default:"70"`
}

func (b ConfidenceBands) validate() error {
	if b.VeryHigh > 100 || b.Low < 0 || b.VeryHigh < b.High || b.High < b.Moderate || b.Moderate < b.Low {
		return fmt.Errorf("%w: confidence must be non-increasing within [0,100]: %+v", ErrInvalidBands, b)
	}
	return nil
}

type Scoring struct {
	Weights     map[string]float64 `yaml:"weights"`
	Grades      GradeBands         `yaml:"grades"`
	Confidence  ConfidenceBands    `yaml:"confidence"`
	TopFailures int                `yaml:"top_failures" default:"5" validate:"min=0"`
}

// HourWindow is a half-open [Start, End) range of hours; End < Start wraps midnight.
type HourWindow struct {
	Start int `yaml:"start" validate:"min=0,max=23"`
	End   int `yaml:"end" validate:"min=0,max=24"`
}

// Contains reports whether hour h falls in the window.
func (w HourWindow) Contains(h int) bool {
	if w.Start <= w.End {
		return h >= w.Start && h < w.End
	}
	return h >= w.Start || h < w.End
}

type Instrument struct {
	Symbol string  `yaml:"symbol" validate:"required"`
	Weight float64 `yaml:"weight" validate:"gt=0"`
}

type Session struct {
	Name        string       `yaml:"name" validate:"required"`
	Hours       HourWindow   `yaml:"hours"`
	Instruments []Instrument `yaml:"instruments" validate:"min=1,dive"`
}

type Admission struct {
	DailyLimit     int           `yaml:"daily_limit" default:"5" validate:"min=1"`
	HourlyLimit    int           `yaml:"hourly_limit" default:"3" validate:"min=1"`
	MinInterval    time.Duration `yaml:"min_interval" default:"1h" validate:"gte=0"`
	PrimeWindows   []HourWindow  `yaml:"prime_windows" validate:"dive"`
	SecondaryHours []int         `yaml:"secondary_hours" validate:"dive,min=0,max=23"`
	Sessions       []Session     `yaml:"sessions" validate:"dive"`
}

type Signal struct {
	PrimeValidity        time.Duration `yaml:"prime_validity" default:"4h"`
	StandardValidity     time.Duration `yaml:"standard_validity" default:"2h"`
	ConservativeValidity time.Duration `yaml:"conservative_validity" default:"1h"`
	ATRPeriod            int           `yaml:"atr_period" default:"14" validate:"min=1"`
	StopATR              float64       `yaml:"stop_atr" default:"1.5" validate:"gt=0"`
	TargetATR            float64       `yaml:"target_atr" default:"3" validate:"gt=0"`
	PriceDecimals        int32         `yaml:"price_decimals" default:"5" validate:"min=0,max=10"`
}

// Validity returns how long a signal of the given tier stays valid.
func (s Signal) Validity(t models.Tier) time.Duration {
	switch t {
	case models.TierPrime:
		return s.PrimeValidity
	case models.TierStandard:
		return s.StandardValidity
	case models.TierConservative:
		return s.ConservativeValidity
	default:
		return s.ConservativeValidity
	}
}

type Intake struct {
	DebounceWindow time.Duration `yaml:"debounce_window" default:"5m" validate:"gte=0"`
}

// Location resolves the configured timezone.
func (e *Engine) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", e.Timezone, err)
	}
	return loc, nil
}

// fillDefaults sets the table-shaped defaults struct tags cannot express.
// It only touches fields left empty after decoding.
func (e *Engine) fillDefaults() {
	if e.DataQuality.Freshness == nil {
		e.DataQuality.Freshness = map[models.Timeframe]time.Duration{
			models.TFM15: 20 * time.Minute,
			models.TFH1:  70 * time.Minute,
			models.TFH4:  250 * time.Minute,
			models.TFD1:  1440 * time.Minute,
		}
	}
	if e.DataQuality.Grades.isZero() {
		e.DataQuality.Grades = GradeBands{Excellent: 95, VeryGood: 95, Good: 85, Fair: 75, Poor: 60}
	}
	if e.Scoring.Grades.isZero() {
		e.Scoring.Grades = GradeBands{Excellent: 90, VeryGood: 85, Good: 80, Fair: 70, Poor: 60}
	}
	if e.Scoring.Weights == nil {
		e.Scoring.Weights = DefaultCatalogue()
	}
	if e.Thresholds.Overrides == nil {
		e.Thresholds.Overrides = DefaultOverrides()
	}
	if e.Admission.PrimeWindows == nil {
		e.Admission.PrimeWindows = []HourWindow{{Start: 8, End: 10}, {Start: 13, End: 15}}
	}
	if e.Admission.SecondaryHours == nil {
		e.Admission.SecondaryHours = []int{7, 10, 11, 12, 15, 16}
	}
	if e.Admission.Sessions == nil {
		e.Admission.Sessions = DefaultSessions()
	}
}

// DefaultCatalogue returns the relative criterion weights; they are normalized at load.
func DefaultCatalogue() map[string]float64 {
	return map[string]float64{
		"trend_alignment":         8,
		"multi_timeframe_trend":   7,
		"ema_spacing":             6,
		"rsi_momentum":            7,
		"rsi_range":               4,
		"macd_confirmation":       5,
		"adx_strength":            6,
		"volume_confirmation":     7,
		"volume_ratio":            4,
		"atr_range":               5,
		"support_resistance":      6,
		"price_structure":         5,
		"candle_pattern":          4,
		"bollinger_position":      3,
		"stochastic_confirmation": 3,
		"risk_reward":             6,
		"session_timing":          3,
		"spread_acceptable":       3,
		"news_clear":              4,
		"correlation_check":       4,
	}
}

func ptrF(v float64) *float64 { return &v }
func ptrI(v int) *int         { return &v }

// DefaultOverrides returns the per-regime threshold replacements.
func DefaultOverrides() map[string]ThresholdOverride {
	return map[string]ThresholdOverride{
		models.RegimeTrendingBullish.String(): {RSIMin: ptrF(45), RSIMax: ptrF(75), VolumeRatioMin: ptrF(0.7), CriteriaRequired: ptrI(16)},
		models.RegimeTrendingBearish.String(): {RSIMin: ptrF(25), RSIMax: ptrF(55), VolumeRatioMin: ptrF(0.7), CriteriaRequired: ptrI(16)},
		models.RegimeRanging.String():         {RSIMin: ptrF(35), RSIMax: ptrF(65), VolumeRatioMin: ptrF(1.0), CriteriaRequired: ptrI(18)},
		models.RegimeHighVolatility.String():  {ATRMin: ptrF(150), EMASpacingMin: ptrF(75), CriteriaRequired: ptrI(17)},
		models.RegimeLowVolatility.String():   {ATRMin: ptrF(50), VolumeRatioMin: ptrF(1.2), CriteriaRequired: ptrI(18)},
		models.RegimeBreakout.String():        {VolumeRatioMin: ptrF(1.5), CriteriaRequired: ptrI(16)},
	}
}

// DefaultSessions splits the day into a night and a day session.
func DefaultSessions() []Session {
	return []Session{
		{
			Name:  "night",
			Hours: HourWindow{Start: 22, End: 7},
			Instruments: []Instrument{
				{Symbol: "XAUUSD", Weight: 0.5},
				{Symbol: "USDJPY", Weight: 0.3},
				{Symbol: "AUDUSD", Weight: 0.2},
			},
		},
		{
			Name:  "day",
			Hours: HourWindow{Start: 7, End: 22},
			Instruments: []Instrument{
				{Symbol: "EURUSD", Weight: 0.35},
				{Symbol: "GBPUSD", Weight: 0.25},
				{Symbol: "XAUUSD", Weight: 0.25},
				{Symbol: "US30", Weight: 0.15},
			},
		},
	}
}

// Validate runs the semantic checks struct tags cannot express.
func (e *Engine) Validate() error {
	if _, err := e.Location(); err != nil {
		return err
	}
	for _, tf := range e.DataQuality.RequiredTimeframes {
		if !tf.Valid() {
			return fmt.Errorf("data_quality.required_timeframes: unknown timeframe %q", tf)
		}
	}
	for _, tf := range e.Regime.PrimaryTimeframes {
		if !tf.Valid() {
			return fmt.Errorf("regime.primary_timeframes: unknown timeframe %q", tf)
		}
	}
	if e.Regime.EMAShort >= e.Regime.EMALong {
		return fmt.Errorf("regime: ema_short (%d) must be below ema_long (%d)", e.Regime.EMAShort, e.Regime.EMALong)
	}
	if e.Regime.ATRShort > e.Regime.Lookback || e.Regime.ATRLong > e.Regime.Lookback {
		return fmt.Errorf("regime: atr periods must fit inside lookback %d", e.Regime.Lookback)
	}
	if err := e.DataQuality.Grades.validate(); err != nil {
		return fmt.Errorf("data_quality: %w", err)
	}
	if err := e.Scoring.Grades.validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	if err := e.Scoring.Confidence.validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	if err := ValidateCatalogue(e.Scoring.Weights); err != nil {
		return err
	}
	total := len(e.Scoring.Weights)
	if r := e.Thresholds.Base.CriteriaRequired; r < 1 || r > total {
		return fmt.Errorf("thresholds.base.criteria_required %d outside [1,%d]", r, total)
	}
	for name := range e.Thresholds.Overrides {
		if _, err := models.ParseRegime(name); err != nil {
			return fmt.Errorf("thresholds.overrides: %w", err)
		}
	}
	return e.Admission.validate()
}

// ValidateCatalogue rejects catalogues that cannot be normalized to 100.
func ValidateCatalogue(weights map[string]float64) error {
	if len(weights) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidCatalogue)
	}
	sum := 0.0
	for name, w := range weights {
		if name == "" {
			return fmt.Errorf("%w: empty criterion name", ErrInvalidCatalogue)
		}
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: criterion %q has weight %v", ErrInvalidCatalogue, name, w)
		}
		sum += w
	}
	if sum <= 0 {
		return fmt.Errorf("%w: weights sum to zero", ErrInvalidCatalogue)
	}
	return nil
}

func (a *Admission) validate() error {
	if len(a.Sessions) == 0 {
		return fmt.Errorf("%w: no sessions", ErrInvalidPolicy)
	}
	for h := 0; h < 24; h++ {
		covered := false
		for _, s := range a.Sessions {
			if s.Hours.Contains(h) {
				covered = true
				break
			}
		}
		if !covered {
			return fmt.Errorf("%w: hour %d is not covered by any session", ErrInvalidPolicy, h)
		}
	}
	return nil
}

// Grade maps a score onto the bands. Every score maps to exactly one grade.
func (b GradeBands) Grade(score float64) models.Grade {
	switch {
	case score >= b.Excellent:
		return models.GradeExcellent
	case score >= b.VeryGood:
		return models.GradeVeryGood
	case score >= b.Good:
		return models.GradeGood
	case score >= b.Fair:
		return models.GradeFair
	case score >= b.Poor:
		return models.GradePoor
	default:
		return models.GradeInsufficient
	}
}

// Label combines score and pass rate, both on a 0..100 scale.
func (b ConfidenceBands) Label(score, passRate float64) models.ConfidenceLabel {
	switch {
	case score >= b.VeryHigh && passRate >= b.VeryHigh:
		return models.ConfidenceVeryHigh
	case score >= b.High && passRate >= b.High:
		return models.ConfidenceHigh
	case score >= b.Moderate && passRate >= b.Moderate:
		return models.ConfidenceModerate
	case score >= b.Low:
		return models.ConfidenceLow
	default:
		return models.ConfidenceVeryLow
	}
}
