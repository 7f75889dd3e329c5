package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalGate/internal/domain/models"
)

func TestRecorderDecisions(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.RecordDecision("fx", models.DecisionRejected, models.ReasonLowQuality)
	r.RecordDecision("fx", models.DecisionRejected, models.ReasonLowQuality)
	r.RecordDecision("fx", models.DecisionAdmitted, models.ReasonNone)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.decisions.WithLabelValues("fx", "REJECTED", "LOW_QUALITY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.decisions.WithLabelValues("fx", "ADMITTED", "NONE")))
}

func TestRecorderAdmissionState(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.RecordAdmissionState(models.AdmissionState{Pool: "fx", DayCount: 4, HourCount: 3, Status: models.StatusBlockedHourly})
	assert.Equal(t, 4.0, testutil.ToFloat64(r.dayCount.WithLabelValues("fx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.poolBlocked.WithLabelValues("fx")))

	r.RecordAdmissionState(models.AdmissionState{Pool: "fx", DayCount: 0, Status: models.StatusIdle})
	assert.Equal(t, 0.0, testutil.ToFloat64(r.poolBlocked.WithLabelValues("fx")))
}

func TestRecorderExposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)
	r.RecordSinkError("signal_sink")
	r.RecordRegime(models.RegimeRanging)
	r.RecordStage("score", time.Millisecond)
	r.RecordQuality("fx", 87.5)

	expected := `
# HELP signalgate_sink_errors_total Failed writes to telemetry sinks
# TYPE signalgate_sink_errors_total counter
signalgate_sink_errors_total{sink="signal_sink"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "signalgate_sink_errors_total"))
	n, err := testutil.GatherAndCount(reg, "signalgate_regime_detections_total", "signalgate_stage_duration_seconds", "signalgate_quality_score")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
