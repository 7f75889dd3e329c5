package repository

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalGate/internal/domain/models"
	pkgch "SignalGate/pkg/clickhouse"
)

func newSignalSink(t *testing.T) (*CHSignalSink, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewCHSignalSink(pkgch.NewClientFromDB(db, "signalgate"), nil), mock
}

func sampleRecord() models.SignalRecord {
	at := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	return models.SignalRecord{
		ID:         "sig-1",
		Pool:       "default",
		Asset:      "EURUSD",
		Direction:  models.DirectionLong,
		Tier:       models.TierPrime,
		Entry:      decimal.RequireFromString("1.0850"),
		StopLoss:   decimal.RequireFromString("1.0800"),
		TakeProfit: decimal.RequireFromString("1.0950"),
		Quality:    models.QualityScoreResult{Score: 91.5, Grade: models.GradeExcellent},
		Regime:     models.RegimeClassification{Regime: models.RegimeTrendingBullish, Confidence: 0.8},
		CreatedAt:  at,
		ValidUntil: at.Add(4 * time.Hour),
	}
}

func TestSaveSignal(t *testing.T) {
	s, mock := newSignalSink(t)
	rec := sampleRecord()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO signalgate.signals")).
		WithArgs("sig-1", "", "default", "EURUSD", "LONG", "PRIME",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			91.5, "EXCELLENT", "TRENDING_BULLISH", 0.8, sqlmock.AnyArg(), rec.CreatedAt, rec.ValidUntil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.SaveSignal(context.Background(), &rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRejectionWrapsError(t *testing.T) {
	s, mock := newSignalSink(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO signalgate.rejections")).
		WillReturnError(errors.New("readonly"))

	err := s.SaveRejection(context.Background(), &models.Rejection{Pool: "default", Reason: models.ReasonLowQuality})
	assert.ErrorContains(t, err, "insert rejection: readonly")
}

func TestSaveOutcome(t *testing.T) {
	s, mock := newSignalSink(t)
	at := time.Date(2024, 3, 4, 14, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO signalgate.signal_outcomes")).
		WithArgs("sig-1", "WIN", sqlmock.AnyArg(), at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.SaveOutcome(context.Background(), "sig-1", &models.SignalOutcome{Result: models.OutcomeWin, PnL: decimal.NewFromInt(12), ResolvedAt: at})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadRecentMergesOutcomes(t *testing.T) {
	s, mock := newSignalSink(t)
	rec := sampleRecord()
	payload, err := json.Marshal(rec)
	require.NoError(t, err)
	other := sampleRecord()
	other.ID = "sig-2"
	payload2, err := json.Marshal(other)
	require.NoError(t, err)
	resolved := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN signalgate.signal_outcomes")).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"payload", "result", "pnl", "resolved_at"}).
			AddRow(string(payload), "WIN", "12.5", resolved).
			AddRow(string(payload2), "", "0", nil).
			AddRow("not json", "", "0", nil))

	out, err := s.LoadRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.NotNil(t, out[0].Outcome)
	assert.Equal(t, models.OutcomeWin, out[0].Outcome.Result)
	assert.Equal(t, "12.5", out[0].Outcome.PnL.String())
	assert.Nil(t, out[1].Outcome)
	assert.True(t, out[0].Entry.Equal(rec.Entry))
	assert.Equal(t, models.TierPrime, out[0].Tier)
}
