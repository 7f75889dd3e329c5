package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"SignalGate/internal/domain/models"
	domrepo "SignalGate/internal/domain/repository"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	decisions   *prometheus.CounterVec
	stage       *prometheus.HistogramVec
	quality     *prometheus.HistogramVec
	regimes     *prometheus.CounterVec
	sinkErrors  *prometheus.CounterVec
	dayCount    *prometheus.GaugeVec
	hourCount   *prometheus.GaugeVec
	poolBlocked *prometheus.GaugeVec
}

// New registers the engine metrics on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		decisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalgate_decisions_total",
				Help: "Gate decisions by pool, status and reason",
			},
			[]string{"pool", "status", "reason"},
		),
		stage: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signalgate_stage_duration_seconds",
				Help:    "Duration of each gate stage",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"stage"},
		),
		quality: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signalgate_quality_score",
				Help:    "Weighted quality score of scored candidates",
				Buckets: prometheus.LinearBuckets(10, 10, 10),
			},
			[]string{"pool"},
		),
		regimes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalgate_regime_detections_total",
				Help: "Detected regimes",
			},
			[]string{"regime"},
		),
		sinkErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalgate_sink_errors_total",
				Help: "Failed writes to telemetry sinks",
			},
			[]string{"sink"},
		),
		dayCount: f.NewGaugeVec(
			prometheus.GaugeOpts{Name: "signalgate_admission_day_count", Help: "Signals admitted in the current day"},
			[]string{"pool"},
		),
		hourCount: f.NewGaugeVec(
			prometheus.GaugeOpts{Name: "signalgate_admission_hour_count", Help: "Signals admitted in the current hour"},
			[]string{"pool"},
		),
		poolBlocked: f.NewGaugeVec(
			prometheus.GaugeOpts{Name: "signalgate_admission_blocked", Help: "1 while the pool is blocked"},
			[]string{"pool"},
		),
	}
}

func (r *Recorder) RecordDecision(pool string, status models.DecisionStatus, reason models.Reason) {
	r.decisions.WithLabelValues(pool, string(status), reason.String()).Inc()
}

func (r *Recorder) RecordStage(stage string, d time.Duration) {
	r.stage.WithLabelValues(stage).Observe(d.Seconds())
}

func (r *Recorder) RecordQuality(pool string, score float64) {
	r.quality.WithLabelValues(pool).Observe(score)
}

func (r *Recorder) RecordRegime(regime models.Regime) {
	r.regimes.WithLabelValues(regime.String()).Inc()
}

func (r *Recorder) RecordSinkError(sink string) {
	r.sinkErrors.WithLabelValues(sink).Inc()
}

func (r *Recorder) RecordAdmissionState(st models.AdmissionState) {
	r.dayCount.WithLabelValues(st.Pool).Set(float64(st.DayCount))
	r.hourCount.WithLabelValues(st.Pool).Set(float64(st.HourCount))
	blocked := 0.0
	if st.Status.Blocked() {
		blocked = 1
	}
	r.poolBlocked.WithLabelValues(st.Pool).Set(blocked)
}

var _ domrepo.Metrics = (*Recorder)(nil)
