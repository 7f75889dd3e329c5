package models

import "fmt"

// Grade is a quality band shared by the data-quality and criteria scorers.
type Grade int

const (
	GradeExcellent Grade = iota
	GradeVeryGood
	GradeGood
	GradeFair
	GradePoor
	GradeInsufficient
)

func (g Grade) String() string {
	switch g {
	case GradeExcellent:
		return "EXCELLENT"
	case GradeVeryGood:
		return "VERY_GOOD"
	case GradeGood:
		return "GOOD"
	case GradeFair:
		return "FAIR"
	case GradePoor:
		return "POOR"
	case GradeInsufficient:
		return "INSUFFICIENT"
	default:
		return fmt.Sprintf("Grade(%d)", int(g))
	}
}

func (g Grade) MarshalText() ([]byte, error) { return []byte(g.String()), nil }

func (g *Grade) UnmarshalText(b []byte) error {
	for v := GradeExcellent; v <= GradeInsufficient; v++ {
		if v.String() == string(b) {
			*g = v
			return nil
		}
	}
	return fmt.Errorf("unknown grade %q", string(b))
}

// ConfidenceLabel summarises score and pass-rate together.
type ConfidenceLabel int

const (
	ConfidenceVeryHigh ConfidenceLabel = iota
	ConfidenceHigh
	ConfidenceModerate
	ConfidenceLow
	ConfidenceVeryLow
)

func (c ConfidenceLabel) String() string {
	switch c {
	case ConfidenceVeryHigh:
		return "VERY_HIGH"
	case ConfidenceHigh:
		return "HIGH"
	case ConfidenceModerate:
		return "MODERATE"
	case ConfidenceLow:
		return "LOW"
	case ConfidenceVeryLow:
		return "VERY_LOW"
	default:
		return fmt.Sprintf("Confidence(%d)", int(c))
	}
}

func (c ConfidenceLabel) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *ConfidenceLabel) UnmarshalText(b []byte) error {
	for v := ConfidenceVeryHigh; v <= ConfidenceVeryLow; v++ {
		if v.String() == string(b) {
			*c = v
			return nil
		}
	}
	return fmt.Errorf("unknown confidence %q", string(b))
}

// CriteriaResult maps a criterion name to pass/fail. Produced upstream.
type CriteriaResult map[string]bool

// PassedCount returns how many criteria passed.
func (c CriteriaResult) PassedCount() int {
	n := 0
	for _, ok := range c {
		if ok {
			n++
		}
	}
	return n
}

// CriterionWeight pairs a criterion with its normalized weight.
type CriterionWeight struct {
	Criterion string  `json:"criterion"`
	Weight    float64 `json:"weight"`
}

// QualityScoreResult is derived from a CriteriaResult and the weight catalogue.
type QualityScoreResult struct {
	Score       float64           `json:"score"`
	Grade       Grade             `json:"grade"`
	Confidence  ConfidenceLabel   `json:"confidence"`
	PassedCount int               `json:"passed_count"`
	Total       int               `json:"total"`
	PassRate    float64           `json:"pass_rate"`
	Passed      []string          `json:"passed"`
	Failed      []string          `json:"failed"`
	TopFailures []CriterionWeight `json:"top_failures,omitempty"`
}

// TimeframeQuality is the validator verdict for a single timeframe.
type TimeframeQuality struct {
	Timeframe  Timeframe          `json:"timeframe"`
	IsValid    bool               `json:"is_valid"`
	Score      float64            `json:"score"`
	Components map[string]float64 `json:"components,omitempty"`
	Issues     []string           `json:"issues,omitempty"`
	Warnings   []string           `json:"warnings,omitempty"`
}

// DataQualityReport aggregates per-timeframe verdicts.
type DataQualityReport struct {
	Timeframes   map[Timeframe]*TimeframeQuality `json:"timeframes"`
	OverallScore float64                         `json:"overall_score"`
	OverallGrade Grade                           `json:"overall_grade"`
	IsValid      bool                            `json:"is_valid"`
	Issues       []string                        `json:"issues,omitempty"`
}
