package models

import (
	"fmt"
	"time"
)

// Reason is the machine-readable cause attached to a decision.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonInvalidData
	ReasonUnknownRegime
	ReasonBlockedDaily
	ReasonBlockedHourly
	ReasonBlockedInterval
	ReasonLowQuality
	ReasonInternalError
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "NONE"
	case ReasonInvalidData:
		return "INVALID_DATA"
	case ReasonUnknownRegime:
		return "UNKNOWN_REGIME"
	case ReasonBlockedDaily:
		return "BLOCKED_DAILY"
	case ReasonBlockedHourly:
		return "BLOCKED_HOURLY"
	case ReasonBlockedInterval:
		return "BLOCKED_INTERVAL"
	case ReasonLowQuality:
		return "LOW_QUALITY"
	case ReasonInternalError:
		return "INTERNAL_ERROR"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

func (r Reason) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Reason) UnmarshalText(b []byte) error {
	for v := ReasonNone; v <= ReasonInternalError; v++ {
		if v.String() == string(b) {
			*r = v
			return nil
		}
	}
	return fmt.Errorf("unknown reason %q", string(b))
}

// ReasonForStatus maps a blocked admission status to its rejection reason.
func ReasonForStatus(s AdmissionStatus) Reason {
	switch s {
	case StatusBlockedDaily:
		return ReasonBlockedDaily
	case StatusBlockedHourly:
		return ReasonBlockedHourly
	case StatusBlockedInterval:
		return ReasonBlockedInterval
	case StatusIdle, StatusAdmitted:
		return ReasonNone
	default:
		return ReasonInternalError
	}
}

// DecisionStatus is the top-level verdict.
type DecisionStatus string

const (
	DecisionAdmitted DecisionStatus = "ADMITTED"
	DecisionRejected DecisionStatus = "REJECTED"
)

// Diagnostic records a degradation observed in a stage without failing it.
type Diagnostic struct {
	Stage   string `json:"stage"`
	Code    Reason `json:"code"`
	Message string `json:"message"`
}

// AdmissionDecision is the result of one gate evaluation.
// Fields after Reason are filled as far as the pipeline got.
type AdmissionDecision struct {
	Status      DecisionStatus        `json:"status"`
	Reason      Reason                `json:"reason"`
	Message     string                `json:"message,omitempty"`
	Record      *SignalRecord         `json:"record,omitempty"`
	DataQuality *DataQualityReport    `json:"data_quality,omitempty"`
	Regime      *RegimeClassification `json:"regime,omitempty"`
	Thresholds  *ThresholdSet         `json:"thresholds,omitempty"`
	Quality     *QualityScoreResult   `json:"quality,omitempty"`
	Admission   *AdmissionState       `json:"admission,omitempty"`
	Diagnostics []Diagnostic          `json:"diagnostics,omitempty"`
}

// Admitted reports whether the candidate was admitted.
func (d *AdmissionDecision) Admitted() bool { return d != nil && d.Status == DecisionAdmitted }

// Rejection captures a rejected attempt for the telemetry sink.
type Rejection struct {
	CandidateID string    `json:"candidate_id,omitempty"`
	Pool        string    `json:"pool"`
	Symbol      string    `json:"symbol,omitempty"`
	Direction   Direction `json:"direction"`
	Reason      Reason    `json:"reason"`
	Message     string    `json:"message,omitempty"`
	Score       float64   `json:"score"`
	Regime      Regime    `json:"regime"`
	At          time.Time `json:"at"`
}
