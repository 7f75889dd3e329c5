package usecase

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"

	"SignalGate/internal/domain/models"
	"SignalGate/internal/service/history"
	"SignalGate/pkg/logger"
	"SignalGate/pkg/queue"
)

// OutcomeJobType is the queue message type carrying signal outcomes.
const OutcomeJobType = "signal.outcome"

// OutcomeAttacher records the result of an admitted signal.
type OutcomeAttacher interface {
	AttachOutcome(ctx context.Context, id string, out models.SignalOutcome) (models.SignalRecord, error)
}

// OutcomeReport is the payload an execution system enqueues once a signal resolves.
type OutcomeReport struct {
	SignalID string          `json:"signal_id"`
	Result   models.Outcome  `json:"result"`
	PnL      decimal.Decimal `json:"pnl"`
}

// OutcomeJob attaches queued outcome reports to the signal history.
type OutcomeJob struct {
	gate OutcomeAttacher
	l    *logger.Logger
}

func NewOutcomeJob(gate OutcomeAttacher, l *logger.Logger) *OutcomeJob {
	if l == nil {
		l = logger.Nop()
	}
	return &OutcomeJob{gate: gate, l: l}
}

func (j *OutcomeJob) Type() string { return OutcomeJobType }

// Handle drops reports that can never succeed and returns an error only for retryable failures.
func (j *OutcomeJob) Handle(ctx context.Context, payload json.RawMessage) error {
	rep, err := queue.Decode[OutcomeReport](payload)
	if err != nil {
		j.l.Warn("outcome report dropped", logger.Error(err))
		return nil
	}
	if _, err := models.ParseOutcome(string(rep.Result)); err != nil || rep.SignalID == "" {
		j.l.Warn("outcome report dropped", logger.String("signal_id", rep.SignalID), logger.String("result", string(rep.Result)))
		return nil
	}

	_, err = j.gate.AttachOutcome(ctx, rep.SignalID, models.SignalOutcome{Result: rep.Result, PnL: rep.PnL})
	switch {
	case errors.Is(err, history.ErrNotFound), errors.Is(err, history.ErrAlreadyResolved):
		j.l.Warn("outcome report ignored", logger.String("signal_id", rep.SignalID), logger.Error(err))
		return nil
	case err != nil:
		return err
	}
	j.l.Info("outcome attached", logger.String("signal_id", rep.SignalID), logger.String("result", string(rep.Result)))
	return nil
}

var _ queue.Job = (*OutcomeJob)(nil)
