package scoring

import (
	"math"

	"SignalGate/internal/domain/models"
	domsvc "SignalGate/internal/domain/service"
	"SignalGate/pkg/config"
	"SignalGate/pkg/logger"
)

// Scorer computes a weighted quality score from pass/fail criteria.
// It is deterministic and holds no mutable state.
type Scorer struct {
	cat *Catalogue
	cfg config.Scoring
	l   *logger.Logger
}

func NewScorer(cat *Catalogue, cfg config.Scoring, l *logger.Logger) *Scorer {
	return &Scorer{cat: cat, cfg: cfg, l: l}
}

// Total returns the catalogue size.
func (s *Scorer) Total() int { return s.cat.Len() }

// Catalogue returns the normalized catalogue.
func (s *Scorer) Catalogue() *Catalogue { return s.cat }

// Score adds the weight of each passed catalogue criterion.
// Criteria absent from the input count as failed; unknown keys are ignored.
func (s *Scorer) Score(criteria models.CriteriaResult) models.QualityScoreResult {
	res := models.QualityScoreResult{
		Total:  s.cat.Len(),
		Passed: make([]string, 0, len(criteria)),
		Failed: make([]string, 0),
	}

	sum := 0.0
	failures := make([]models.CriterionWeight, 0)
	for _, name := range s.cat.names {
		w := s.cat.weights[name]
		if criteria[name] {
			sum += w
			res.Passed = append(res.Passed, name)
			continue
		}
		res.Failed = append(res.Failed, name)
		failures = append(failures, models.CriterionWeight{Criterion: name, Weight: w})
	}

	res.PassedCount = len(res.Passed)
	switch {
	case len(res.Failed) == 0:
		res.Score = Total
	default:
		res.Score = round2(sum)
		if res.Score >= Total {
			res.Score = Total - 0.01
		}
	}
	if res.Total > 0 {
		res.PassRate = round2(float64(res.PassedCount) / float64(res.Total) * 100)
	}
	res.Grade = s.cfg.Grades.Grade(res.Score)
	res.Confidence = s.cfg.Confidence.Label(res.Score, res.PassRate)

	sortByWeight(failures)
	if n := s.cfg.TopFailures; len(failures) > n {
		failures = failures[:n]
	}
	for i := range failures {
		failures[i].Weight = round2(failures[i].Weight)
	}
	if len(failures) > 0 {
		res.TopFailures = failures
	}

	if s.l != nil {
		s.l.Debug("quality scored",
			logger.Float64("score", res.Score),
			logger.String("grade", res.Grade.String()),
			logger.Int("passed", res.PassedCount),
			logger.Int("total", res.Total),
		)
	}
	return res
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }

var _ domsvc.QualityScorer = (*Scorer)(nil)
