package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"SignalGate/internal/domain/models"
	domrepo "SignalGate/internal/domain/repository"
	domsvc "SignalGate/internal/domain/service"
	"SignalGate/pkg/util"
)

// InspectUseCase runs the read-only stages of the gate (validation, regime detection,
// threshold resolution) over stored windows. It never touches admission budget.
type InspectUseCase struct {
	store     domrepo.FeatureStore
	validator domsvc.DataValidator
	detector  domsvc.RegimeDetector
	resolver  domsvc.ThresholdResolver
	now       func() time.Time
}

func NewInspectUseCase(store domrepo.FeatureStore, v domsvc.DataValidator, d domsvc.RegimeDetector, r domsvc.ThresholdResolver) *InspectUseCase {
	return &InspectUseCase{store: store, validator: v, detector: d, resolver: r, now: time.Now}
}

type InspectParams struct {
	Symbol     string
	Timeframes []models.Timeframe
	// From/To select a fixed range; when To is zero the latest Bars rows are used.
	From time.Time
	To   time.Time
	Bars int
}

type InspectResult struct {
	Symbol      string                      `json:"symbol"`
	Rows        map[models.Timeframe]int    `json:"rows"`
	DataQuality *models.DataQualityReport   `json:"data_quality"`
	Regime      models.RegimeClassification `json:"regime"`
	Thresholds  models.ThresholdSet         `json:"thresholds"`
	Diagnostics []models.Diagnostic         `json:"diagnostics,omitempty"`
}

func (uc *InspectUseCase) Inspect(ctx context.Context, p InspectParams) (*InspectResult, error) {
	if uc.store == nil {
		return nil, fmt.Errorf("feature store not configured")
	}
	if p.Symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	if !p.To.IsZero() && p.From.After(p.To) {
		return nil, fmt.Errorf("from must be <= to")
	}
	if len(p.Timeframes) == 0 {
		p.Timeframes = models.AllTimeframes()
	}
	if p.Bars <= 0 {
		p.Bars = 200
	}
	p.Bars = util.ClampInt(p.Bars, 1, 5000)
	symbol := strings.ToUpper(p.Symbol)

	windows := make(models.FeatureWindows, len(p.Timeframes))
	rows := make(map[models.Timeframe]int, len(p.Timeframes))
	for _, tf := range p.Timeframes {
		var (
			candles []models.Candle
			err     error
		)
		if p.To.IsZero() {
			candles, err = uc.store.GetLatestNCandles(ctx, symbol, p.Bars, tf)
		} else {
			candles, err = uc.store.GetCandles(ctx, symbol, p.From, p.To, tf)
		}
		if err != nil {
			return nil, fmt.Errorf("get candles %s: %w", tf, err)
		}
		if len(candles) > p.Bars {
			candles = candles[len(candles)-p.Bars:]
		}
		rows[tf] = len(candles)
		if len(candles) > 0 {
			windows[tf] = models.NewFeatureWindow(tf, candles)
		}
	}

	now := uc.now()
	if !p.To.IsZero() {
		now = p.To
	}
	res := &InspectResult{Symbol: symbol, Rows: rows}
	res.DataQuality = uc.validator.Validate(windows, now)
	rc, diag := uc.detector.Detect(windows)
	if diag != nil {
		res.Diagnostics = append(res.Diagnostics, *diag)
	}
	res.Regime = rc
	res.Thresholds = uc.resolver.Resolve(rc)
	return res, nil
}
