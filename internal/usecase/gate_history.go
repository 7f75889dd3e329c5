package usecase

import (
	"context"
	"fmt"
	"time"

	"SignalGate/internal/domain/models"
	"SignalGate/internal/service/history"
	"SignalGate/pkg/logger"
)

// AttachOutcome records the result of an admitted signal and forwards it to the sink.
func (g *Gate) AttachOutcome(ctx context.Context, id string, out models.SignalOutcome) (models.SignalRecord, error) {
	if out.ResolvedAt.IsZero() {
		out.ResolvedAt = g.now()
	}
	rec, err := g.history.AttachOutcome(id, out)
	if err != nil {
		return rec, err
	}
	if g.sink != nil {
		if err := g.sink.SaveOutcome(ctx, id, &out); err != nil {
			g.l.Warn("outcome sink failed", logger.String("id", id), logger.Error(err))
			if g.metrics != nil {
				g.metrics.RecordSinkError("signal_sink")
			}
		}
	}
	return rec, nil
}

// Recent returns up to limit admitted signals, newest first.
func (g *Gate) Recent(limit int) []models.SignalRecord { return g.history.Recent(limit) }

// Signal looks up a single admitted signal.
func (g *Gate) Signal(id string) (models.SignalRecord, bool) { return g.history.Get(id) }

// Stats summarises signals admitted within the trailing window.
func (g *Gate) Stats(window time.Duration) history.Stats { return g.history.Stats(g.now(), window) }

// AdmissionState returns a snapshot of a pool's counters.
func (g *Gate) AdmissionState(pool string) models.AdmissionState {
	if pool == "" {
		pool = g.pool
	}
	return g.admission.State(pool)
}

// Restore reloads admission counters and recent history from the configured stores.
// Missing stores are skipped; a failing store aborts with its error.
func (g *Gate) Restore(ctx context.Context) error {
	if g.states != nil {
		states, err := g.states.LoadStates(ctx)
		if err != nil {
			return fmt.Errorf("load admission states: %w", err)
		}
		for _, st := range states {
			g.admission.Restore(st)
		}
		g.l.Info("admission states restored", logger.Int("pools", len(states)))
	}
	if g.source != nil {
		recs, err := g.source.LoadRecent(ctx, g.history.Cap())
		if err != nil {
			return fmt.Errorf("load signal history: %w", err)
		}
		// sources return newest first, the ring expects oldest first
		for i := len(recs) - 1; i >= 0; i-- {
			g.history.Append(recs[i])
		}
		g.l.Info("signal history restored", logger.Int("records", len(recs)))
	}
	return nil
}

// PersistState writes every pool's counters to the state store.
func (g *Gate) PersistState(ctx context.Context) error {
	if g.states == nil {
		return nil
	}
	for _, st := range g.admission.Snapshot() {
		if err := g.states.SaveState(ctx, st); err != nil {
			return fmt.Errorf("save state %s: %w", st.Pool, err)
		}
	}
	return nil
}
