package quality

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"SignalGate/internal/domain/models"
	domsvc "SignalGate/internal/domain/service"
	"SignalGate/pkg/config"
	"SignalGate/pkg/logger"
)

// Component weights of the per-timeframe score.
const (
	pointsRows          = 20
	pointsColumns       = 20
	pointsFresh         = 25
	pointsStale         = 10
	pointsComplete      = 15
	pointsMostlyPresent = 10
	pointsIncomplete    = 5
	pointsConsistent    = 20
	pointsInconsistent  = 5
)

// Validator checks that feature windows are fresh, complete and consistent.
type Validator struct {
	cfg config.DataQuality
	l   *logger.Logger
}

// NewValidator builds a Validator. The logger may be nil.
func NewValidator(cfg config.DataQuality, l *logger.Logger) *Validator {
	return &Validator{cfg: cfg, l: l}
}

// Validate judges every present timeframe plus every required one.
// It never panics on malformed input; problems are reported as issues.
func (v *Validator) Validate(windows models.FeatureWindows, now time.Time) *models.DataQualityReport {
	report := &models.DataQualityReport{
		Timeframes: make(map[models.Timeframe]*models.TimeframeQuality, len(windows)),
		IsValid:    true,
	}

	for _, tf := range v.cfg.RequiredTimeframes {
		w, ok := windows[tf]
		if !ok || w == nil {
			report.Timeframes[tf] = &models.TimeframeQuality{
				Timeframe: tf,
				Issues:    []string{"required timeframe missing"},
			}
			report.IsValid = false
			report.Issues = append(report.Issues, fmt.Sprintf("%s: required timeframe missing", tf))
		}
	}

	tfs := make([]models.Timeframe, 0, len(windows))
	for tf := range windows {
		tfs = append(tfs, tf)
	}
	sort.Slice(tfs, func(i, j int) bool { return tfs[i] < tfs[j] })

	total := 0.0
	present := 0
	for _, tf := range tfs {
		w := windows[tf]
		if w == nil {
			if _, done := report.Timeframes[tf]; !done {
				report.Timeframes[tf] = &models.TimeframeQuality{Timeframe: tf, Issues: []string{"window is nil"}}
				report.IsValid = false
				report.Issues = append(report.Issues, fmt.Sprintf("%s: window is nil", tf))
			}
			continue
		}
		q := v.validateOne(tf, w, now)
		report.Timeframes[tf] = q
		total += q.Score
		present++
		if !q.IsValid {
			report.IsValid = false
			for _, issue := range q.Issues {
				report.Issues = append(report.Issues, fmt.Sprintf("%s: %s", tf, issue))
			}
		}
	}

	if present == 0 {
		report.IsValid = false
		report.Issues = append(report.Issues, "no feature windows")
	} else {
		report.OverallScore = round2(total / float64(present))
	}
	report.OverallGrade = v.cfg.Grades.Grade(report.OverallScore)

	if v.l != nil {
		v.l.Debug("data quality validated",
			logger.Float64("overall_score", report.OverallScore),
			logger.String("grade", report.OverallGrade.String()),
			logger.Bool("valid", report.IsValid),
			logger.Strings("issues", report.Issues),
		)
	}
	return report
}

func (v *Validator) validateOne(tf models.Timeframe, w *models.FeatureWindow, now time.Time) *models.TimeframeQuality {
	q := &models.TimeframeQuality{
		Timeframe:  tf,
		IsValid:    true,
		Components: make(map[string]float64, 5),
	}
	fail := func(msg string) {
		q.IsValid = false
		q.Issues = append(q.Issues, msg)
	}

	if !tf.Valid() {
		fail(fmt.Sprintf("unsupported timeframe %q", tf))
		return q
	}
	if !w.IsTable() {
		fail("not a valid table: columns have unequal lengths")
		return q
	}

	// 1. row count
	rows := w.Len()
	minRows := v.cfg.MinRowsDaily
	if tf.Intraday() {
		minRows = v.cfg.MinRowsIntraday
	}
	if rows >= minRows {
		q.Components["rows"] = pointsRows
	} else {
		q.Components["rows"] = 0
		fail(fmt.Sprintf("row count %d below minimum row count %d", rows, minRows))
	}

	// 2. required columns
	var missing []string
	for _, c := range models.RequiredColumns {
		if _, ok := w.Column(c); !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 {
		q.Components["columns"] = pointsColumns
	} else {
		q.Components["columns"] = 0
		fail("missing required columns: " + strings.Join(missing, ","))
	}

	// 3. freshness
	q.Components["freshness"] = v.freshness(q, tf, w, now)

	if len(missing) > 0 || rows == 0 {
		q.Components["completeness"] = 0
		q.Components["consistency"] = 0
		q.Score = sumComponents(q.Components)
		return q
	}

	// 4. completeness
	q.Components["completeness"] = v.completeness(q, w, rows)

	// 5. consistency
	q.Components["consistency"] = v.consistency(q, w, rows)

	q.Score = sumComponents(q.Components)
	return q
}

func (v *Validator) freshness(q *models.TimeframeQuality, tf models.Timeframe, w *models.FeatureWindow, now time.Time) float64 {
	last, ok := w.LastTimestamp()
	if !ok {
		q.Warnings = append(q.Warnings, "no timestamp column; treated as stale")
		return pointsStale
	}
	limit, ok := v.cfg.Freshness[tf]
	if !ok {
		limit = tf.Duration()
	}
	age := now.Sub(last)
	if age <= limit {
		return pointsFresh
	}
	q.Warnings = append(q.Warnings, fmt.Sprintf("stale data: last row is %s old, limit %s", age.Truncate(time.Second), limit))
	return pointsStale
}

func (v *Validator) completeness(q *models.TimeframeQuality, w *models.FeatureWindow, rows int) float64 {
	nan := 0
	for _, c := range models.RequiredColumns {
		col, _ := w.Column(c)
		for _, x := range col {
			if math.IsNaN(x) {
				nan++
			}
		}
	}
	frac := float64(nan) / float64(rows*len(models.RequiredColumns))
	switch {
	case nan == 0:
		return pointsComplete
	case frac <= v.cfg.MissingTolerance:
		return pointsMostlyPresent
	default:
		q.Warnings = append(q.Warnings, fmt.Sprintf("%.1f%% of required values missing", frac*100))
		return pointsIncomplete
	}
}

func (v *Validator) consistency(q *models.TimeframeQuality, w *models.FeatureWindow, rows int) float64 {
	open, _ := w.Column(models.ColOpen)
	high, _ := w.Column(models.ColHigh)
	low, _ := w.Column(models.ColLow)
	closes, _ := w.Column(models.ColClose)

	var problems []string
	inverted, nonPositive, extreme := 0, 0, 0
	for i := 0; i < rows; i++ {
		if high[i] < low[i] {
			inverted++
		}
		for _, p := range [...]float64{open[i], high[i], low[i], closes[i]} {
			if p <= 0 {
				nonPositive++
				break
			}
		}
		if i > 0 && closes[i-1] > 0 && !math.IsNaN(closes[i]) {
			if math.Abs(closes[i]/closes[i-1]-1) > v.cfg.ExtremeMove {
				extreme++
			}
		}
	}
	if inverted > 0 {
		problems = append(problems, fmt.Sprintf("%d rows with high < low", inverted))
	}
	if nonPositive > 0 {
		problems = append(problems, fmt.Sprintf("%d rows with non-positive prices", nonPositive))
	}
	if rows > 1 && float64(extreme)/float64(rows-1) > v.cfg.ExtremeMoveMaxFraction {
		problems = append(problems, fmt.Sprintf("%d extreme single-step moves", extreme))
	}
	if len(problems) == 0 {
		return pointsConsistent
	}
	q.Warnings = append(q.Warnings, "inconsistent data: "+strings.Join(problems, "; "))
	return pointsInconsistent
}

func sumComponents(c map[string]float64) float64 {
	s := 0.0
	for _, v := range c {
		s += v
	}
	return s
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }

var _ domsvc.DataValidator = (*Validator)(nil)
