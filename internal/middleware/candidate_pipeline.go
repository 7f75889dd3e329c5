package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"SignalGate/internal/domain/models"
	"SignalGate/pkg/logger"
)

var (
	ErrInvalidCandidate   = errors.New("invalid candidate")
	ErrDuplicateCandidate = errors.New("duplicate candidate")
)

// Evaluator is the minimal gate interface the pipeline needs.
type Evaluator interface {
	Evaluate(ctx context.Context, req *models.CandidateRequest) *models.AdmissionDecision
}

// CandidatePipeline sits between intake transports and the gate.
// It rejects malformed candidates and drops repeats of a candidate that was
// admitted within the debounce window.
type CandidatePipeline struct {
	gate     Evaluator
	debounce time.Duration
	pool     string
	now      func() time.Time
	l        *logger.Logger

	mu       sync.Mutex
	lastSeen map[string]time.Time // key -> last admission
}

type PipelineOption func(*CandidatePipeline)

// WithDebounce sets the window during which a repeat of an admitted candidate is dropped.
func WithDebounce(d time.Duration) PipelineOption {
	return func(p *CandidatePipeline) {
		if d >= 0 {
			p.debounce = d
		}
	}
}

// WithDefaultPool fills the pool of candidates that carry none.
func WithDefaultPool(pool string) PipelineOption {
	return func(p *CandidatePipeline) { p.pool = pool }
}

func WithPipelineClock(now func() time.Time) PipelineOption {
	return func(p *CandidatePipeline) { p.now = now }
}

func NewCandidatePipeline(gate Evaluator, l *logger.Logger, opts ...PipelineOption) *CandidatePipeline {
	if l == nil {
		l = logger.Nop()
	}
	p := &CandidatePipeline{
		gate:     gate,
		debounce: 5 * time.Minute,
		pool:     "default",
		now:      time.Now,
		l:        l,
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process validates and debounces the candidate, then forwards it to the gate.
func (p *CandidatePipeline) Process(ctx context.Context, req *models.CandidateRequest) (*models.AdmissionDecision, error) {
	if err := validateCandidate(req); err != nil {
		return nil, err
	}
	if req.Pool == "" {
		req.Pool = p.pool
	}
	req.Symbol = strings.ToUpper(req.Symbol)

	key := dedupKey(req)
	now := p.now()
	if p.seenRecently(key, now) {
		p.l.Debug("candidate debounced", logger.String("key", key))
		return nil, fmt.Errorf("%w: %s", ErrDuplicateCandidate, key)
	}

	dec := p.gate.Evaluate(ctx, req)
	if dec.Admitted() {
		p.mu.Lock()
		p.lastSeen[key] = now
		p.mu.Unlock()
	}
	return dec, nil
}

func (p *CandidatePipeline) seenRecently(key string, now time.Time) bool {
	if p.debounce <= 0 {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last, ok := p.lastSeen[key]
	if !ok {
		return false
	}
	if now.Sub(last) >= p.debounce {
		delete(p.lastSeen, key)
		return false
	}
	return true
}

func dedupKey(req *models.CandidateRequest) string {
	return req.Pool + "|" + req.Symbol + "|" + string(req.Direction)
}

func validateCandidate(req *models.CandidateRequest) error {
	if req == nil {
		return fmt.Errorf("%w: candidate nil", ErrInvalidCandidate)
	}
	if !req.Direction.Valid() {
		return fmt.Errorf("%w: direction %q", ErrInvalidCandidate, req.Direction)
	}
	if len(req.Criteria) == 0 {
		return fmt.Errorf("%w: criteria empty", ErrInvalidCandidate)
	}
	if req.Symbol == "" && len(req.Windows) == 0 {
		return fmt.Errorf("%w: symbol or windows required", ErrInvalidCandidate)
	}
	for _, lvl := range []*decimal.Decimal{req.Entry, req.StopLoss, req.TakeProfit} {
		if lvl != nil && !lvl.IsPositive() {
			return fmt.Errorf("%w: price level must be positive", ErrInvalidCandidate)
		}
	}
	return nil
}
