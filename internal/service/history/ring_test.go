package history

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalGate/internal/domain/models"
)

var base = time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)

func record(i int, asset string, tier models.Tier, score float64) models.SignalRecord {
	return models.SignalRecord{
		ID:        fmt.Sprintf("sig-%d", i),
		Asset:     asset,
		Tier:      tier,
		Quality:   models.QualityScoreResult{Score: score},
		CreatedAt: base.Add(time.Duration(i) * time.Minute),
	}
}

func TestRingEvictsOldest(t *testing.T) {
	r := NewRing(3)
	for i := 0; i < 5; i++ {
		r.Append(record(i, "EURUSD", models.TierStandard, 80))
	}
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 3, r.Cap())

	_, ok := r.Get("sig-0")
	assert.False(t, ok)
	_, ok = r.Get("sig-1")
	assert.False(t, ok)

	recent := r.Recent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, "sig-4", recent[0].ID)
	assert.Equal(t, "sig-2", recent[2].ID)

	assert.Len(t, r.Recent(2), 2)
	assert.Len(t, r.Recent(50), 3)
}

func TestAttachOutcome(t *testing.T) {
	r := NewRing(10)
	r.Append(record(1, "XAUUSD", models.TierPrime, 90))

	out := models.SignalOutcome{Result: models.OutcomeWin, PnL: decimal.NewFromFloat(12.5), ResolvedAt: base.Add(time.Hour)}
	rec, err := r.AttachOutcome("sig-1", out)
	require.NoError(t, err)
	require.NotNil(t, rec.Outcome)
	assert.Equal(t, models.OutcomeWin, rec.Outcome.Result)

	_, err = r.AttachOutcome("sig-1", out)
	assert.ErrorIs(t, err, ErrAlreadyResolved)

	_, err = r.AttachOutcome("missing", out)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	r := NewRing(2)
	r.Append(record(1, "XAUUSD", models.TierPrime, 90))
	_, err := r.AttachOutcome("sig-1", models.SignalOutcome{Result: models.OutcomeLoss})
	require.NoError(t, err)

	got, _ := r.Get("sig-1")
	got.Outcome.Result = models.OutcomeWin
	got.Asset = "changed"

	again, _ := r.Get("sig-1")
	assert.Equal(t, models.OutcomeLoss, again.Outcome.Result)
	assert.Equal(t, "XAUUSD", again.Asset)
}

func TestStats(t *testing.T) {
	r := NewRing(100)
	r.Append(record(0, "EURUSD", models.TierPrime, 90))
	r.Append(record(10, "EURUSD", models.TierStandard, 80))
	r.Append(record(20, "XAUUSD", models.TierStandard, 70))
	r.Append(record(30, "US30", models.TierConservative, 60))

	_, _ = r.AttachOutcome("sig-10", models.SignalOutcome{Result: models.OutcomeWin, PnL: decimal.NewFromInt(10)})
	_, _ = r.AttachOutcome("sig-20", models.SignalOutcome{Result: models.OutcomeLoss, PnL: decimal.NewFromInt(-4)})
	_, _ = r.AttachOutcome("sig-30", models.SignalOutcome{Result: models.OutcomeWin, PnL: decimal.NewFromInt(3)})

	now := base.Add(30 * time.Minute)
	st := r.Stats(now, 25*time.Minute)
	assert.Equal(t, 3, st.Count)
	assert.Equal(t, 3, st.Resolved)
	assert.Equal(t, 2, st.Wins)
	assert.Equal(t, 1, st.Losses)
	assert.Equal(t, 66.67, st.WinRate)
	assert.Equal(t, 70.0, st.AvgQuality)
	assert.True(t, decimal.NewFromInt(9).Equal(st.TotalPnL))
	assert.Equal(t, map[string]int{"STANDARD": 2, "CONSERVATIVE": 1}, st.TierDistribution)
	assert.Equal(t, map[string]int{"EURUSD": 1, "XAUUSD": 1, "US30": 1}, st.AssetDistribution)

	all := r.Stats(now, 0)
	assert.Equal(t, 4, all.Count)
	assert.Equal(t, 75.0, all.AvgQuality)

	empty := NewRing(5).Stats(now, time.Hour)
	assert.Zero(t, empty.Count)
	assert.Zero(t, empty.WinRate)
}

func TestLoadKeepsNewest(t *testing.T) {
	r := NewRing(2)
	r.Load([]models.SignalRecord{
		record(1, "A", models.TierPrime, 1),
		record(2, "B", models.TierPrime, 2),
		record(3, "C", models.TierPrime, 3),
	})
	recent := r.Recent(0)
	require.Len(t, recent, 2)
	assert.Equal(t, "sig-3", recent[0].ID)
	assert.Equal(t, "sig-2", recent[1].ID)
}
