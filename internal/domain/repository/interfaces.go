package repository

import (
	"context"
	"time"

	"SignalGate/internal/domain/models"
)

// SignalSink persists admitted signals, rejected attempts and outcomes.
type SignalSink interface {
	SaveSignal(ctx context.Context, rec *models.SignalRecord) error
	SaveRejection(ctx context.Context, rej *models.Rejection) error
	SaveOutcome(ctx context.Context, id string, out *models.SignalOutcome) error
}

// SignalHistorySource restores recent signals at startup.
type SignalHistorySource interface {
	LoadRecent(ctx context.Context, limit int) ([]models.SignalRecord, error)
}

// SignalPublisher fans admitted signals out to consumers.
type SignalPublisher interface {
	PublishSignal(ctx context.Context, rec *models.SignalRecord) error
	Close() error
}

// StateStore persists admission counters across restarts.
type StateStore interface {
	SaveState(ctx context.Context, st models.AdmissionState) error
	LoadStates(ctx context.Context) ([]models.AdmissionState, error)
}

type Metrics interface {
	RecordDecision(pool string, status models.DecisionStatus, reason models.Reason)
	RecordStage(stage string, d time.Duration)
	RecordQuality(pool string, score float64)
	RecordRegime(regime models.Regime)
	RecordSinkError(sink string)
	RecordAdmissionState(st models.AdmissionState)
}
