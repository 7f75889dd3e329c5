package admission

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalGate/internal/domain/models"
	"SignalGate/pkg/config"
)

func admissionCfg(mut func(*config.Admission)) config.Admission {
	cfg := config.Default().Engine.Admission
	if mut != nil {
		mut(&cfg)
	}
	return cfg
}

func at(day, hour, min int) time.Time {
	return time.Date(2024, 3, day, hour, min, 0, 0, time.UTC)
}

func TestHourlyLimitAndRollover(t *testing.T) {
	c := NewController(admissionCfg(func(a *config.Admission) { a.MinInterval = 0 }), time.UTC, 1, nil)

	var statuses []models.AdmissionStatus
	for i := 0; i < 6; i++ {
		_, _, st := c.Admit("fx", at(4, 10, i*5), "")
		statuses = append(statuses, st)
	}
	assert.Equal(t, []models.AdmissionStatus{
		models.StatusAdmitted, models.StatusAdmitted, models.StatusAdmitted,
		models.StatusBlockedHourly, models.StatusBlockedHourly, models.StatusBlockedHourly,
	}, statuses)

	grant, state, st := c.Admit("fx", at(4, 11, 0), "")
	require.Equal(t, models.StatusAdmitted, st)
	require.NotNil(t, grant)
	assert.Equal(t, 4, state.DayCount)
	assert.Equal(t, 1, state.HourCount)
}

func TestDailyLimitAndDayRollover(t *testing.T) {
	c := NewController(admissionCfg(func(a *config.Admission) { a.MinInterval = 0 }), time.UTC, 1, nil)

	for i := 0; i < 3; i++ {
		_, _, st := c.Admit("fx", at(4, 10, i), "")
		require.Equal(t, models.StatusAdmitted, st)
	}
	for i := 0; i < 2; i++ {
		_, _, st := c.Admit("fx", at(4, 11, i), "")
		require.Equal(t, models.StatusAdmitted, st)
	}
	_, state, st := c.Admit("fx", at(4, 12, 0), "")
	assert.Equal(t, models.StatusBlockedDaily, st)
	assert.Equal(t, models.StatusBlockedDaily, state.Status)
	assert.Equal(t, 5, state.DayCount)

	_, state, st = c.Admit("fx", at(5, 0, 30), "")
	assert.Equal(t, models.StatusAdmitted, st)
	assert.Equal(t, 1, state.DayCount)
	assert.Equal(t, "2024-03-05", state.CurrentDay)
}

func TestMinInterval(t *testing.T) {
	c := NewController(admissionCfg(nil), time.UTC, 1, nil)

	_, _, st := c.Admit("fx", at(4, 10, 0), "")
	require.Equal(t, models.StatusAdmitted, st)

	_, _, st = c.Admit("fx", at(4, 10, 30), "")
	assert.Equal(t, models.StatusBlockedInterval, st)

	_, _, st = c.Admit("fx", at(4, 11, 0), "")
	assert.Equal(t, models.StatusAdmitted, st)
}

func TestCheckDoesNotConsume(t *testing.T) {
	c := NewController(admissionCfg(func(a *config.Admission) { a.MinInterval = 0 }), time.UTC, 1, nil)

	for i := 0; i < 10; i++ {
		_, st := c.Check("fx", at(4, 10, 0))
		require.Equal(t, models.StatusAdmitted, st)
	}
	state := c.State("fx")
	assert.Zero(t, state.DayCount)
	assert.Zero(t, state.HourCount)
	assert.Nil(t, state.LastEmissionTime)
	assert.Equal(t, models.StatusIdle, state.Status)
}

func TestCheckReportsBlockedWithoutAdmitting(t *testing.T) {
	c := NewController(admissionCfg(nil), time.UTC, 1, nil)
	_, _, _ = c.Admit("fx", at(4, 10, 0), "")

	state, st := c.Check("fx", at(4, 10, 10))
	assert.Equal(t, models.StatusBlockedInterval, st)
	assert.Equal(t, 1, state.DayCount)
}

func TestPoolsAreIndependent(t *testing.T) {
	c := NewController(admissionCfg(nil), time.UTC, 1, nil)
	_, _, st := c.Admit("fx", at(4, 10, 0), "")
	require.Equal(t, models.StatusAdmitted, st)
	_, _, st = c.Admit("metals", at(4, 10, 0), "")
	assert.Equal(t, models.StatusAdmitted, st)
	assert.Len(t, c.Snapshot(), 2)
}

func TestTierPolicy(t *testing.T) {
	p := NewPolicy(admissionCfg(nil))
	assert.Equal(t, models.TierPrime, p.Tier(8))
	assert.Equal(t, models.TierPrime, p.Tier(9))
	assert.Equal(t, models.TierPrime, p.Tier(13))
	assert.Equal(t, models.TierPrime, p.Tier(14))
	assert.Equal(t, models.TierStandard, p.Tier(7))
	assert.Equal(t, models.TierStandard, p.Tier(12))
	assert.Equal(t, models.TierStandard, p.Tier(16))
	assert.Equal(t, models.TierConservative, p.Tier(3))
	assert.Equal(t, models.TierConservative, p.Tier(20))
}

func TestGrantTierAndSession(t *testing.T) {
	c := NewController(admissionCfg(nil), time.UTC, 1, nil)

	grant, _, _ := c.Admit("fx", at(4, 8, 15), "")
	require.NotNil(t, grant)
	assert.Equal(t, models.TierPrime, grant.Tier)
	assert.Equal(t, "day", grant.Session)
	assert.Contains(t, []string{"EURUSD", "GBPUSD", "XAUUSD", "US30"}, grant.Instrument)

	grant, _, _ = c.Admit("fx", at(4, 23, 0), "")
	require.NotNil(t, grant)
	assert.Equal(t, models.TierConservative, grant.Tier)
	assert.Equal(t, "night", grant.Session)
	assert.Contains(t, []string{"XAUUSD", "USDJPY", "AUDUSD"}, grant.Instrument)
}

func TestAssetHint(t *testing.T) {
	c := NewController(admissionCfg(func(a *config.Admission) { a.MinInterval = 0 }), time.UTC, 1, nil)

	grant, _, _ := c.Admit("fx", at(4, 23, 0), "USDJPY")
	assert.Equal(t, "USDJPY", grant.Instrument)

	grant, _, _ = c.Admit("fx", at(4, 23, 5), "EURUSD")
	assert.NotEqual(t, "EURUSD", grant.Instrument, "EURUSD is not traded in the night session")
}

func TestInstrumentWeights(t *testing.T) {
	p := NewPolicy(admissionCfg(nil))
	night, ok := p.Session(2)
	require.True(t, ok)

	rng := rand.New(rand.NewSource(99))
	counts := map[string]int{}
	const n = 20000
	for i := 0; i < n; i++ {
		counts[p.Instrument(night, "", rng)]++
	}
	assert.InDelta(t, 0.5, float64(counts["XAUUSD"])/n, 0.02)
	assert.InDelta(t, 0.3, float64(counts["USDJPY"])/n, 0.02)
	assert.InDelta(t, 0.2, float64(counts["AUDUSD"])/n, 0.02)
}

func TestSeededSelectionIsReproducible(t *testing.T) {
	pick := func() []string {
		c := NewController(admissionCfg(func(a *config.Admission) { a.MinInterval = 0; a.HourlyLimit = 100; a.DailyLimit = 100 }), time.UTC, 42, nil)
		var out []string
		for i := 0; i < 20; i++ {
			g, _, _ := c.Admit("fx", at(4, 10, i), "")
			out = append(out, g.Instrument)
		}
		return out
	}
	assert.Equal(t, pick(), pick())
}

func TestTimezoneDecidesDayAndHour(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	c := NewController(admissionCfg(nil), loc, 1, nil)

	// 22:30 UTC is 01:30 the next local day.
	grant, state, st := c.Admit("fx", time.Date(2024, 3, 4, 22, 30, 0, 0, time.UTC), "")
	require.Equal(t, models.StatusAdmitted, st)
	assert.Equal(t, "2024-03-05", state.CurrentDay)
	assert.Equal(t, 1, state.CurrentHour)
	assert.Equal(t, "night", grant.Session)
}

func TestRestore(t *testing.T) {
	c := NewController(admissionCfg(nil), time.UTC, 1, nil)
	last := at(4, 9, 30)
	c.Restore(models.AdmissionState{
		Pool: "fx", DayCount: 5, HourCount: 1, CurrentDay: "2024-03-04", CurrentHour: 9,
		LastEmissionTime: &last, Status: models.StatusAdmitted,
	})

	_, _, st := c.Admit("fx", at(4, 12, 0), "")
	assert.Equal(t, models.StatusBlockedDaily, st)

	c.Restore(models.AdmissionState{})
	assert.Len(t, c.Snapshot(), 1)
}

func TestStateIsCopied(t *testing.T) {
	c := NewController(admissionCfg(nil), time.UTC, 1, nil)
	_, state, _ := c.Admit("fx", at(4, 10, 0), "")
	*state.LastEmissionTime = at(1, 0, 0)
	assert.Equal(t, at(4, 10, 0), *c.State("fx").LastEmissionTime)
}

func TestConcurrentAdmissionsRespectLimits(t *testing.T) {
	c := NewController(admissionCfg(func(a *config.Admission) { a.MinInterval = 0 }), time.UTC, 1, nil)
	now := at(4, 10, 0)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, st := c.Admit("fx", now, ""); st == models.StatusAdmitted {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, admitted)
	assert.Equal(t, 3, c.State("fx").HourCount)
}

// Random timestamp sequences never exceed the daily, hourly or spacing limits.
func TestLimitsHoldForRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(2024))
	for run := 0; run < 50; run++ {
		cfg := admissionCfg(func(a *config.Admission) {
			a.DailyLimit = 1 + rng.Intn(6)
			a.HourlyLimit = 1 + rng.Intn(4)
			a.MinInterval = time.Duration(rng.Intn(90)) * time.Minute
		})
		c := NewController(cfg, time.UTC, int64(run+1), nil)

		now := at(1, 0, 0)
		perDay := map[string]int{}
		perHour := map[string]int{}
		var last *time.Time
		for i := 0; i < 500; i++ {
			now = now.Add(time.Duration(rng.Intn(45*60)) * time.Second)
			grant, state, st := c.Admit("fx", now, "")
			if st != models.StatusAdmitted {
				require.Nil(t, grant)
				continue
			}
			require.LessOrEqual(t, state.DayCount, cfg.DailyLimit)
			require.LessOrEqual(t, state.HourCount, cfg.HourlyLimit)

			perDay[now.Format("2006-01-02")]++
			perHour[now.Format("2006-01-02T15")]++
			require.LessOrEqual(t, perDay[now.Format("2006-01-02")], cfg.DailyLimit)
			require.LessOrEqual(t, perHour[now.Format("2006-01-02T15")], cfg.HourlyLimit)
			if last != nil {
				require.GreaterOrEqual(t, now.Sub(*last), cfg.MinInterval)
			}
			tt := now
			last = &tt
		}
	}
}
