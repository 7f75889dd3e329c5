package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"SignalGate/internal/domain/models"
	domrepo "SignalGate/internal/domain/repository"
	domsvc "SignalGate/internal/domain/service"
	"SignalGate/internal/service/history"
	"SignalGate/internal/services/features"
	"SignalGate/pkg/config"
	"SignalGate/pkg/logger"
)

// Stage names used in diagnostics and metrics.
const (
	StageRequest   = "request"
	StageFeatures  = "features"
	StageValidate  = "validate"
	StageRegime    = "regime"
	StageResolve   = "resolve"
	StageAdmission = "admission"
	StageScore     = "score"
	StageRecord    = "record"
	StageSink      = "sink"
)

// Gate sequences validation, regime detection, threshold resolution, admission and scoring
// into a single decision per candidate.
type Gate struct {
	pool      string
	validator domsvc.DataValidator
	detector  domsvc.RegimeDetector
	resolver  domsvc.ThresholdResolver
	scorer    domsvc.QualityScorer
	admission domsvc.AdmissionController
	history   *history.Ring
	signal    config.Signal

	features   domrepo.FeatureStore
	windowBars int
	timeframes []models.Timeframe
	sink       domrepo.SignalSink
	publisher  domrepo.SignalPublisher
	states     domrepo.StateStore
	source     domrepo.SignalHistorySource
	metrics    domrepo.Metrics

	now   func() time.Time
	newID func() string
	l     *logger.Logger
}

// GateOption configures optional collaborators.
type GateOption func(*Gate)

// WithFeatureStore loads windows by symbol when a candidate carries none.
func WithFeatureStore(fs domrepo.FeatureStore, bars int, tfs []models.Timeframe) GateOption {
	return func(g *Gate) {
		g.features = fs
		g.windowBars = bars
		g.timeframes = tfs
	}
}

func WithSignalSink(s domrepo.SignalSink) GateOption { return func(g *Gate) { g.sink = s } }

func WithPublisher(p domrepo.SignalPublisher) GateOption { return func(g *Gate) { g.publisher = p } }

func WithStateStore(s domrepo.StateStore) GateOption { return func(g *Gate) { g.states = s } }

func WithHistorySource(s domrepo.SignalHistorySource) GateOption {
	return func(g *Gate) { g.source = s }
}

func WithMetrics(m domrepo.Metrics) GateOption { return func(g *Gate) { g.metrics = m } }

func WithClock(now func() time.Time) GateOption { return func(g *Gate) { g.now = now } }

func WithIDGenerator(f func() string) GateOption { return func(g *Gate) { g.newID = f } }

func NewGate(
	pool string,
	validator domsvc.DataValidator,
	detector domsvc.RegimeDetector,
	resolver domsvc.ThresholdResolver,
	scorer domsvc.QualityScorer,
	admission domsvc.AdmissionController,
	hist *history.Ring,
	signal config.Signal,
	l *logger.Logger,
	opts ...GateOption,
) *Gate {
	g := &Gate{
		pool:      pool,
		validator: validator,
		detector:  detector,
		resolver:  resolver,
		scorer:    scorer,
		admission: admission,
		history:   hist,
		signal:    signal,
		now:       time.Now,
		newID:     uuid.NewString,
		l:         l,
	}
	if g.l == nil {
		g.l = logger.Nop()
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Pool returns the default asset-pool.
func (g *Gate) Pool() string { return g.pool }

// Evaluate decides a candidate at the current wall-clock time.
func (g *Gate) Evaluate(ctx context.Context, req *models.CandidateRequest) *models.AdmissionDecision {
	return g.EvaluateAt(ctx, req, g.now())
}

// EvaluateAt decides a candidate at the given time. It never panics and never returns nil.
func (g *Gate) EvaluateAt(ctx context.Context, req *models.CandidateRequest, now time.Time) (dec *models.AdmissionDecision) {
	dec = &models.AdmissionDecision{Status: models.DecisionRejected}
	pool := g.pool
	if req != nil && req.Pool != "" {
		pool = req.Pool
	}

	defer func() {
		if r := recover(); r != nil {
			dec.Status = models.DecisionRejected
			dec.Reason = models.ReasonInternalError
			dec.Message = fmt.Sprintf("internal error: %v", r)
			dec.Record = nil
			g.l.Error("gate evaluation panicked", logger.String("pool", pool), logger.Any("panic", r))
		}
		g.finish(ctx, pool, req, dec)
	}()

	if req == nil {
		return g.reject(dec, models.ReasonInvalidData, StageRequest, "candidate is nil")
	}
	if !req.Direction.Valid() {
		return g.reject(dec, models.ReasonInvalidData, StageRequest, fmt.Sprintf("unknown direction %q", req.Direction))
	}

	windows := g.windows(ctx, req, dec)

	// 1. data quality
	start := time.Now()
	report := g.validator.Validate(windows, now)
	g.stage(StageValidate, start)
	dec.DataQuality = report
	if !report.IsValid {
		return g.reject(dec, models.ReasonInvalidData, StageValidate, strings.Join(report.Issues, "; "))
	}

	// 2. regime
	start = time.Now()
	rc, diag := g.detector.Detect(windows)
	g.stage(StageRegime, start)
	dec.Regime = &rc
	if diag != nil {
		dec.Diagnostics = append(dec.Diagnostics, *diag)
	}

	// 3. thresholds
	start = time.Now()
	ts := g.resolver.Resolve(rc)
	g.stage(StageResolve, start)
	dec.Thresholds = &ts

	// 4. admission pre-check
	start = time.Now()
	state, status := g.admission.Check(pool, now)
	g.stage(StageAdmission, start)
	dec.Admission = &state
	if status.Blocked() {
		return g.reject(dec, models.ReasonForStatus(status), StageAdmission, "admission "+strings.ToLower(status.String()))
	}

	// 5. quality
	start = time.Now()
	q := g.scorer.Score(req.Criteria)
	g.stage(StageScore, start)
	dec.Quality = &q
	if q.PassedCount < ts.CriteriaRequired {
		return g.reject(dec, models.ReasonLowQuality, StageScore,
			fmt.Sprintf("%d of %d criteria passed, %d required", q.PassedCount, q.Total, ts.CriteriaRequired))
	}

	grant, state, status := g.admission.Admit(pool, now, req.Symbol)
	dec.Admission = &state
	if grant == nil {
		return g.reject(dec, models.ReasonForStatus(status), StageAdmission, "admission "+strings.ToLower(status.String()))
	}

	rec := g.buildRecord(req, windows, grant, q, rc, now, dec)
	g.history.Append(rec)
	dec.Status = models.DecisionAdmitted
	dec.Reason = models.ReasonNone
	dec.Record = &rec
	return dec
}

func (g *Gate) windows(ctx context.Context, req *models.CandidateRequest, dec *models.AdmissionDecision) models.FeatureWindows {
	windows := req.Windows
	if len(windows) == 0 && req.Symbol != "" && g.features != nil {
		start := time.Now()
		loaded, err := g.features.GetWindows(ctx, req.Symbol, g.windowBars, g.timeframes)
		g.stage(StageFeatures, start)
		if err != nil {
			dec.Diagnostics = append(dec.Diagnostics, models.Diagnostic{
				Stage: StageFeatures, Code: models.ReasonInvalidData, Message: err.Error(),
			})
			if g.metrics != nil {
				g.metrics.RecordSinkError("feature_store")
			}
		}
		windows = loaded
	}
	for tf, w := range windows {
		if w != nil && w.Timeframe == "" {
			w.Timeframe = tf
		}
	}
	return windows
}

func (g *Gate) reject(dec *models.AdmissionDecision, reason models.Reason, stage, msg string) *models.AdmissionDecision {
	dec.Status = models.DecisionRejected
	dec.Reason = reason
	dec.Message = msg
	dec.Diagnostics = append(dec.Diagnostics, models.Diagnostic{Stage: stage, Code: reason, Message: msg})
	return dec
}

func (g *Gate) buildRecord(
	req *models.CandidateRequest,
	windows models.FeatureWindows,
	grant *models.AdmissionGrant,
	q models.QualityScoreResult,
	rc models.RegimeClassification,
	now time.Time,
	dec *models.AdmissionDecision,
) models.SignalRecord {
	asset := grant.Instrument
	if asset == "" {
		asset = req.Symbol
	}
	rec := models.SignalRecord{
		ID:          g.newID(),
		CandidateID: req.ID,
		Pool:        grant.Pool,
		Asset:       asset,
		Direction:   req.Direction,
		Tier:        grant.Tier,
		Quality:     q,
		Regime:      rc,
		CreatedAt:   now,
		ValidUntil:  now.Add(g.signal.Validity(grant.Tier)),
	}

	// Window-derived levels only apply when the signal stays on the candidate's instrument.
	sameAsset := req.Symbol == "" || req.Symbol == asset
	var w *models.FeatureWindow
	if sameAsset {
		w = primaryWindow(windows, rc.Timeframe)
	}

	if req.Entry != nil {
		rec.Entry = *req.Entry
	} else if w != nil {
		if closes, ok := w.Column(models.ColClose); ok && len(closes) > 0 && features.Finite(closes[len(closes)-1]) {
			rec.Entry = decimal.NewFromFloat(closes[len(closes)-1])
		}
	}

	atr := decimal.Zero
	if w != nil {
		high, _ := w.Column(models.ColHigh)
		low, _ := w.Column(models.ColLow)
		closes, _ := w.Column(models.ColClose)
		if v := features.ATR(high, low, closes, g.signal.ATRPeriod); features.Finite(v) && v > 0 {
			atr = decimal.NewFromFloat(v)
		}
	}

	sign := decimal.NewFromInt(1)
	if req.Direction == models.DirectionShort {
		sign = decimal.NewFromInt(-1)
	}
	switch {
	case req.StopLoss != nil:
		rec.StopLoss = *req.StopLoss
	case !atr.IsZero() && !rec.Entry.IsZero():
		rec.StopLoss = rec.Entry.Sub(sign.Mul(atr).Mul(decimal.NewFromFloat(g.signal.StopATR)))
	}
	switch {
	case req.TakeProfit != nil:
		rec.TakeProfit = *req.TakeProfit
	case !atr.IsZero() && !rec.Entry.IsZero():
		rec.TakeProfit = rec.Entry.Add(sign.Mul(atr).Mul(decimal.NewFromFloat(g.signal.TargetATR)))
	}

	places := g.signal.PriceDecimals
	rec.Entry = rec.Entry.Round(places)
	rec.StopLoss = rec.StopLoss.Round(places)
	rec.TakeProfit = rec.TakeProfit.Round(places)

	if rec.Entry.IsZero() || rec.StopLoss.IsZero() || rec.TakeProfit.IsZero() {
		dec.Diagnostics = append(dec.Diagnostics, models.Diagnostic{
			Stage: StageRecord, Code: models.ReasonNone, Message: "price levels incomplete",
		})
	}
	return rec
}

func primaryWindow(windows models.FeatureWindows, tf models.Timeframe) *models.FeatureWindow {
	if w := windows[tf]; w != nil && w.Len() > 0 {
		return w
	}
	for _, tf := range models.AllTimeframes() {
		if w := windows[tf]; w != nil && w.Len() > 0 && w.IsTable() {
			return w
		}
	}
	return nil
}

// finish emits telemetry. Sink failures are logged and never change the decision.
func (g *Gate) finish(ctx context.Context, pool string, req *models.CandidateRequest, dec *models.AdmissionDecision) {
	if g.metrics != nil {
		g.metrics.RecordDecision(pool, dec.Status, dec.Reason)
		if dec.Quality != nil {
			g.metrics.RecordQuality(pool, dec.Quality.Score)
		}
		if dec.Regime != nil {
			g.metrics.RecordRegime(dec.Regime.Regime)
		}
		if dec.Admission != nil {
			g.metrics.RecordAdmissionState(*dec.Admission)
		}
	}

	if dec.Admitted() {
		rec := dec.Record
		g.sinkCall(dec, "signal_sink", g.sink != nil, func() error { return g.sink.SaveSignal(ctx, rec) })
		g.sinkCall(dec, "publisher", g.publisher != nil, func() error { return g.publisher.PublishSignal(ctx, rec) })
		if dec.Admission != nil {
			st := *dec.Admission
			g.sinkCall(dec, "state_store", g.states != nil, func() error { return g.states.SaveState(ctx, st) })
		}
		g.l.Info("signal admitted",
			logger.String("pool", pool),
			logger.String("id", rec.ID),
			logger.String("asset", rec.Asset),
			logger.String("direction", string(rec.Direction)),
			logger.String("tier", rec.Tier.String()),
			logger.Float64("score", rec.Quality.Score),
			logger.String("regime", rec.Regime.Regime.String()),
		)
		return
	}

	rej := &models.Rejection{Pool: pool, Reason: dec.Reason, Message: dec.Message, At: g.now()}
	if req != nil {
		rej.CandidateID, rej.Symbol, rej.Direction = req.ID, req.Symbol, req.Direction
	}
	if dec.Quality != nil {
		rej.Score = dec.Quality.Score
	}
	rej.Regime = models.RegimeUnknown
	if dec.Regime != nil {
		rej.Regime = dec.Regime.Regime
	}
	g.sinkCall(dec, "signal_sink", g.sink != nil, func() error { return g.sink.SaveRejection(ctx, rej) })

	fields := []logger.Field{
		logger.String("pool", pool),
		logger.String("reason", dec.Reason.String()),
		logger.String("message", dec.Message),
	}
	if dec.Reason == models.ReasonInternalError {
		g.l.Error("candidate rejected", fields...)
	} else {
		g.l.Debug("candidate rejected", fields...)
	}
}

func (g *Gate) sinkCall(dec *models.AdmissionDecision, name string, ok bool, fn func() error) {
	if !ok {
		return
	}
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return fn()
	}()
	if err != nil {
		dec.Diagnostics = append(dec.Diagnostics, models.Diagnostic{
			Stage: StageSink, Code: models.ReasonNone, Message: name + ": " + err.Error(),
		})
		if g.metrics != nil {
			g.metrics.RecordSinkError(name)
		}
		g.l.Warn("sink failed", logger.String("sink", name), logger.Error(err))
	}
}

func (g *Gate) stage(name string, start time.Time) {
	if g.metrics != nil {
		g.metrics.RecordStage(name, time.Since(start))
	}
}
