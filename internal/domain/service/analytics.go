package service

import (
	"time"

	"SignalGate/internal/domain/models"
)

// DataValidator judges feature windows before anything else runs.
type DataValidator interface {
	Validate(windows models.FeatureWindows, now time.Time) *models.DataQualityReport
}

// RegimeDetector classifies current market behaviour. A non-nil diagnostic
// means the classification degraded to UNKNOWN.
type RegimeDetector interface {
	Detect(windows models.FeatureWindows) (models.RegimeClassification, *models.Diagnostic)
}

// ThresholdResolver maps a regime onto concrete acceptance thresholds.
type ThresholdResolver interface {
	Resolve(regime models.RegimeClassification) models.ThresholdSet
}

// QualityScorer computes the weighted quality of a criteria result.
type QualityScorer interface {
	Score(criteria models.CriteriaResult) models.QualityScoreResult
	Total() int
}

// AdmissionController rate-limits emissions per asset-pool.
type AdmissionController interface {
	// Check applies rollover and limit checks without consuming budget.
	Check(pool string, now time.Time) (models.AdmissionState, models.AdmissionStatus)
	// Admit atomically re-checks and, on success, consumes budget.
	Admit(pool string, now time.Time, assetHint string) (*models.AdmissionGrant, models.AdmissionState, models.AdmissionStatus)
	State(pool string) models.AdmissionState
	Snapshot() []models.AdmissionState
	Restore(st models.AdmissionState)
}
