package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"SignalGate/internal/domain/models"
	"SignalGate/internal/middleware"
	pkgkafka "SignalGate/pkg/kafka"
	"SignalGate/pkg/logger"
)

// CandidateProcessor is the intake step in front of the gate.
type CandidateProcessor interface {
	Process(ctx context.Context, req *models.CandidateRequest) (*models.AdmissionDecision, error)
}

// KafkaCandidatesHandler decodes candidate messages and feeds them through the intake pipeline.
type KafkaCandidatesHandler struct {
	topic string
	proc  CandidateProcessor
	l     *logger.Logger
}

func NewKafkaCandidatesHandler(topic string, proc CandidateProcessor, l *logger.Logger) *KafkaCandidatesHandler {
	if l == nil {
		l = logger.Nop()
	}
	return &KafkaCandidatesHandler{topic: topic, proc: proc, l: l}
}

func (h *KafkaCandidatesHandler) Topic() string { return h.topic }

// Handle returns an error only for messages that should be retried or dead-lettered.
// Duplicates and gate rejections are normal outcomes.
func (h *KafkaCandidatesHandler) Handle(ctx context.Context, b []byte) error {
	var req models.CandidateRequest
	if err := json.Unmarshal(b, &req); err != nil {
		return fmt.Errorf("decode candidate: %w", err)
	}

	dec, err := h.proc.Process(ctx, &req)
	switch {
	case errors.Is(err, middleware.ErrDuplicateCandidate):
		return nil
	case err != nil:
		return err
	}

	if dec.Reason == models.ReasonInternalError {
		h.l.Warn("candidate hit internal error",
			logger.String("candidate", req.ID),
			logger.String("trace_id", pkgkafka.TraceID(ctx)),
			logger.String("message", dec.Message),
		)
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaCandidatesHandler)(nil)
