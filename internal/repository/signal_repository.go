package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"SignalGate/internal/domain/models"
	domrepo "SignalGate/internal/domain/repository"
	pkgch "SignalGate/pkg/clickhouse"
	applogger "SignalGate/pkg/logger"
)

// CHSignalSink writes admitted signals, rejected attempts and outcomes to ClickHouse
// and restores recent history at startup.
type CHSignalSink struct {
	db       *sql.DB
	database string
	l        *applogger.Logger
}

func NewCHSignalSink(ch *pkgch.Client, l *applogger.Logger) *CHSignalSink {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHSignalSink{db: ch.DB(), database: ch.Database(), l: l}
}

func (s *CHSignalSink) SaveSignal(ctx context.Context, rec *models.SignalRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}
	q := fmt.Sprintf(`INSERT INTO %s.signals
        (id, candidate_id, pool, asset, direction, tier, entry, stop_loss, take_profit,
         score, grade, regime, regime_confidence, payload, created_at, valid_until)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.database)
	_, err = s.db.ExecContext(ctx, q,
		rec.ID,
		rec.CandidateID,
		rec.Pool,
		rec.Asset,
		string(rec.Direction),
		rec.Tier.String(),
		rec.Entry,
		rec.StopLoss,
		rec.TakeProfit,
		rec.Quality.Score,
		rec.Quality.Grade.String(),
		rec.Regime.Regime.String(),
		rec.Regime.Confidence,
		string(payload),
		rec.CreatedAt.UTC(),
		rec.ValidUntil.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert signal %s: %w", rec.ID, err)
	}
	return nil
}

func (s *CHSignalSink) SaveRejection(ctx context.Context, rej *models.Rejection) error {
	q := fmt.Sprintf(`INSERT INTO %s.rejections
        (candidate_id, pool, symbol, direction, reason, message, score, regime, at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.database)
	_, err := s.db.ExecContext(ctx, q,
		rej.CandidateID,
		rej.Pool,
		rej.Symbol,
		string(rej.Direction),
		rej.Reason.String(),
		rej.Message,
		rej.Score,
		rej.Regime.String(),
		rej.At.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert rejection: %w", err)
	}
	return nil
}

func (s *CHSignalSink) SaveOutcome(ctx context.Context, id string, out *models.SignalOutcome) error {
	q := fmt.Sprintf(`INSERT INTO %s.signal_outcomes (id, result, pnl, resolved_at) VALUES (?, ?, ?, ?)`, s.database)
	if _, err := s.db.ExecContext(ctx, q, id, string(out.Result), out.PnL, out.ResolvedAt.UTC()); err != nil {
		return fmt.Errorf("insert outcome %s: %w", id, err)
	}
	return nil
}

// LoadRecent returns up to limit signals, newest first, with their outcomes merged in.
func (s *CHSignalSink) LoadRecent(ctx context.Context, limit int) ([]models.SignalRecord, error) {
	q := fmt.Sprintf(`
        SELECT s.payload, o.result, toString(o.pnl), o.resolved_at
        FROM %[1]s.signals AS s
        LEFT JOIN %[1]s.signal_outcomes AS o ON s.id = o.id
        ORDER BY s.created_at DESC
        LIMIT ?
    `, s.database)
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("load recent signals: %w", err)
	}
	defer rows.Close()

	out := make([]models.SignalRecord, 0, limit)
	for rows.Next() {
		var (
			payload, result, pnl string
			resolved             sql.NullTime
		)
		if err := rows.Scan(&payload, &result, &pnl, &resolved); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		var rec models.SignalRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			s.l.Warn("skipping undecodable signal", applogger.Error(err))
			continue
		}
		if result != "" {
			o, err := models.ParseOutcome(result)
			if err == nil {
				amount, _ := decimal.NewFromString(pnl)
				rec.Outcome = &models.SignalOutcome{Result: o, PnL: amount, ResolvedAt: resolved.Time}
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

var (
	_ domrepo.SignalSink          = (*CHSignalSink)(nil)
	_ domrepo.SignalHistorySource = (*CHSignalSink)(nil)
)
