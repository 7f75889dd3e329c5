package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalGate/internal/domain/models"
)

type stubGate struct {
	calls  int
	status models.DecisionStatus
	last   *models.CandidateRequest
}

func (g *stubGate) Evaluate(_ context.Context, req *models.CandidateRequest) *models.AdmissionDecision {
	g.calls++
	g.last = req
	return &models.AdmissionDecision{Status: g.status}
}

func req() *models.CandidateRequest {
	return &models.CandidateRequest{
		Symbol:    "eurusd",
		Direction: models.DirectionLong,
		Criteria:  models.CriteriaResult{"trend_alignment": true},
	}
}

func TestPipelineValidates(t *testing.T) {
	p := NewCandidatePipeline(&stubGate{}, nil)
	neg := decimal.NewFromInt(-1)

	cases := map[string]*models.CandidateRequest{
		"nil":       nil,
		"direction": {Symbol: "X", Direction: "UP", Criteria: models.CriteriaResult{"a": true}},
		"criteria":  {Symbol: "X", Direction: models.DirectionLong},
		"source":    {Direction: models.DirectionLong, Criteria: models.CriteriaResult{"a": true}},
		"level":     {Symbol: "X", Direction: models.DirectionLong, Criteria: models.CriteriaResult{"a": true}, Entry: &neg},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := p.Process(context.Background(), c)
			assert.ErrorIs(t, err, ErrInvalidCandidate)
		})
	}
}

func TestPipelineNormalizesAndForwards(t *testing.T) {
	g := &stubGate{status: models.DecisionRejected}
	p := NewCandidatePipeline(g, nil, WithDefaultPool("fx"))

	dec, err := p.Process(context.Background(), req())
	require.NoError(t, err)
	require.NotNil(t, dec)
	assert.Equal(t, "fx", g.last.Pool)
	assert.Equal(t, "EURUSD", g.last.Symbol)
}

func TestPipelineDebouncesAdmitted(t *testing.T) {
	now := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	g := &stubGate{status: models.DecisionAdmitted}
	p := NewCandidatePipeline(g, nil, WithDebounce(5*time.Minute), WithPipelineClock(func() time.Time { return now }))
	ctx := context.Background()

	_, err := p.Process(ctx, req())
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = p.Process(ctx, req())
	assert.ErrorIs(t, err, ErrDuplicateCandidate)

	short := req()
	short.Direction = models.DirectionShort
	_, err = p.Process(ctx, short)
	assert.NoError(t, err)

	now = now.Add(5 * time.Minute)
	_, err = p.Process(ctx, req())
	assert.NoError(t, err)
	assert.Equal(t, 3, g.calls)
}

func TestPipelineDoesNotDebounceRejections(t *testing.T) {
	g := &stubGate{status: models.DecisionRejected}
	p := NewCandidatePipeline(g, nil)

	for i := 0; i < 3; i++ {
		_, err := p.Process(context.Background(), req())
		require.NoError(t, err)
	}
	assert.Equal(t, 3, g.calls)
}
