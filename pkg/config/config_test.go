package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalGate/internal/domain/models"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 5, c.Engine.Admission.DailyLimit)
	assert.Equal(t, 3, c.Engine.Admission.HourlyLimit)
	assert.Equal(t, time.Hour, c.Engine.Admission.MinInterval)
	assert.Equal(t, 1000, c.Engine.HistoryCapacity)
	assert.Equal(t, 17, c.Engine.Thresholds.Base.CriteriaRequired)
	assert.Len(t, c.Engine.Scoring.Weights, 20)
	assert.Len(t, c.Engine.Thresholds.Overrides, 6)
	assert.Equal(t, []models.Timeframe{models.TFH1, models.TFH4, models.TFM15, models.TFD1}, c.Engine.Regime.PrimaryTimeframes)
	assert.Equal(t, 70*time.Minute, c.Engine.DataQuality.Freshness[models.TFH1])
	assert.Equal(t, "info", c.Logger.Level)
}

func TestParseKeepsDefaultsForOmittedKeys(t *testing.T) {
	c, err := Parse([]byte(`
environment: test
engine:
  pool: metals
  admission:
    daily_limit: 8
    min_interval: 30m
`))
	require.NoError(t, err)
	assert.Equal(t, "test", c.Environment)
	assert.Equal(t, "metals", c.Engine.Pool)
	assert.Equal(t, 8, c.Engine.Admission.DailyLimit)
	assert.Equal(t, 3, c.Engine.Admission.HourlyLimit)
	assert.Equal(t, 30*time.Minute, c.Engine.Admission.MinInterval)
	assert.Len(t, c.Engine.Admission.Sessions, 2)
}

func TestParseReplacesCatalogue(t *testing.T) {
	c, err := Parse([]byte(`
engine:
  thresholds:
    base:
      criteria_required: 2
  scoring:
    weights:
      a: 1
      b: 3
`))
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"a": 1, "b": 3}, c.Engine.Scoring.Weights)
}

func TestParseRejectsBadCatalogue(t *testing.T) {
	cases := map[string]string{
		"empty":    "engine:\n  scoring:\n    weights: {}\n",
		"negative": "engine:\n  thresholds:\n    base:\n      criteria_required: 1\n  scoring:\n    weights:\n      a: -1\n      b: 2\n",
		"zero":     "engine:\n  thresholds:\n    base:\n      criteria_required: 1\n  scoring:\n    weights:\n      a: 0\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.ErrorIs(t, err, ErrInvalidCatalogue)
		})
	}
}

func TestParseRejectsRequiredOutOfRange(t *testing.T) {
	_, err := Parse([]byte("engine:\n  thresholds:\n    base:\n      criteria_required: 21\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "criteria_required")
}

func TestParseRejectsNonMonotonicBands(t *testing.T) {
	_, err := Parse([]byte("engine:\n  scoring:\n    grades: {excellent: 80, very_good: 85, good: 70, fair: 60, poor: 50}\n"))
	require.ErrorIs(t, err, ErrInvalidBands)
}

func TestParseRejectsUnknownOverrideRegime(t *testing.T) {
	_, err := Parse([]byte("engine:\n  thresholds:\n    overrides:\n      SIDEWAYS: {rsi_min: 10}\n"))
	require.Error(t, err)
}

func TestParseRejectsSessionGap(t *testing.T) {
	_, err := Parse([]byte(`
engine:
  admission:
    sessions:
      - name: day
        hours: {start: 7, end: 22}
        instruments:
          - {symbol: EURUSD, weight: 1}
`))
	require.ErrorIs(t, err, ErrInvalidPolicy)
}

func TestParseRejectsBadTimezone(t *testing.T) {
	_, err := Parse([]byte("engine:\n  timezone: Mars/Olympus\n"))
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	c := Default()
	env := map[string]string{
		"SIGNALGATE_ENV":  "production",
		"SIGNALGATE_POOL": "indices",
		"KAFKA_BROKERS":   "k1:9092,k2:9092",
		"CLICKHOUSE_HOST": "ch",
		"REDIS_ADDR":      "cache:6380",
	}
	c.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "production", c.Environment)
	assert.Equal(t, "indices", c.Engine.Pool)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, "ch", c.ClickHouse.Host)
	assert.True(t, c.ClickHouse.Enabled)
	assert.Equal(t, "cache", c.Redis.Host)
	assert.Equal(t, 6380, c.Redis.Port)
	require.NoError(t, c.Validate())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: staging\n"), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "staging", c.Environment)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestHourWindowContains(t *testing.T) {
	night := HourWindow{Start: 22, End: 7}
	assert.True(t, night.Contains(23))
	assert.True(t, night.Contains(0))
	assert.True(t, night.Contains(6))
	assert.False(t, night.Contains(7))
	assert.False(t, night.Contains(12))

	prime := HourWindow{Start: 8, End: 10}
	assert.True(t, prime.Contains(8))
	assert.True(t, prime.Contains(9))
	assert.False(t, prime.Contains(10))
}

func TestSignalValidity(t *testing.T) {
	s := Default().Engine.Signal
	assert.Equal(t, 4*time.Hour, s.Validity(models.TierPrime))
	assert.Equal(t, 2*time.Hour, s.Validity(models.TierStandard))
	assert.Equal(t, time.Hour, s.Validity(models.TierConservative))
}

func TestOutcomeQueueNeedsRedis(t *testing.T) {
	_, err := Parse([]byte(`
redis:
  outcomes:
    enabled: true
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis.outcomes")

	c, err := Parse([]byte(`
redis:
  enabled: true
  outcomes:
    enabled: true
`))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Redis.Outcomes.Workers)
	assert.Equal(t, 10*time.Second, c.Redis.Outcomes.RetryDelay)
}

func TestShippedConfigParses(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "default", c.Engine.Pool)
	assert.False(t, c.Kafka.Enabled)
}
