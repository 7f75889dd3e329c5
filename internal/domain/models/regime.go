package models

import "fmt"

// Regime is a coarse classification of current market behaviour.
// The declaration order is the tie-break order used by the detector.
type Regime int

const (
	RegimeTrendingBullish Regime = iota
	RegimeTrendingBearish
	RegimeRanging
	RegimeHighVolatility
	RegimeLowVolatility
	RegimeBreakout
	RegimeUnknown
)

// AllRegimes lists every regime in declaration order.
func AllRegimes() []Regime {
	return []Regime{
		RegimeTrendingBullish,
		RegimeTrendingBearish,
		RegimeRanging,
		RegimeHighVolatility,
		RegimeLowVolatility,
		RegimeBreakout,
		RegimeUnknown,
	}
}

func (r Regime) String() string {
	switch r {
	case RegimeTrendingBullish:
		return "TRENDING_BULLISH"
	case RegimeTrendingBearish:
		return "TRENDING_BEARISH"
	case RegimeRanging:
		return "RANGING"
	case RegimeHighVolatility:
		return "HIGH_VOLATILITY"
	case RegimeLowVolatility:
		return "LOW_VOLATILITY"
	case RegimeBreakout:
		return "BREAKOUT"
	case RegimeUnknown:
		return "UNKNOWN"
	default:
		return fmt.Sprintf("Regime(%d)", int(r))
	}
}

// ParseRegime converts a regime tag into a Regime.
func ParseRegime(s string) (Regime, error) {
	for _, r := range AllRegimes() {
		if r.String() == s {
			return r, nil
		}
	}
	return RegimeUnknown, fmt.Errorf("unknown regime %q", s)
}

func (r Regime) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Regime) UnmarshalText(b []byte) error {
	v, err := ParseRegime(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// RegimeClassification is produced fresh on every detection and never persisted.
type RegimeClassification struct {
	Regime     Regime             `json:"regime"`
	Confidence float64            `json:"confidence"`
	Timeframe  Timeframe          `json:"timeframe,omitempty"`
	Evidence   map[string]float64 `json:"evidence,omitempty"`
	Reason     string             `json:"reason,omitempty"`
}

// ThresholdSet is the resolved acceptance bar for one evaluation.
type ThresholdSet struct {
	RSIMin           float64 `json:"rsi_min"`
	RSIMax           float64 `json:"rsi_max"`
	VolumeRatioMin   float64 `json:"volume_ratio_min"`
	ATRMin           float64 `json:"atr_min"`
	EMASpacingMin    float64 `json:"ema_spacing_min"`
	ADXMin           float64 `json:"adx_min"`
	CriteriaRequired int     `json:"criteria_required"`
	TotalCriteria    int     `json:"total_criteria"`
	Regime           Regime  `json:"regime"`
	Confidence       float64 `json:"regime_confidence"`
}
