package history

import (
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"SignalGate/internal/domain/models"
)

var (
	ErrNotFound        = errors.New("signal not found")
	ErrAlreadyResolved = errors.New("signal already has an outcome")
)

// Ring is a fixed-capacity signal history. The oldest record is evicted first.
type Ring struct {
	mu    sync.RWMutex
	buf   []models.SignalRecord
	head  int // next write position
	n     int
	index map[string]int
}

func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{
		buf:   make([]models.SignalRecord, capacity),
		index: make(map[string]int, capacity),
	}
}

// Append stores a copy of rec, evicting the oldest record when full.
func (r *Ring) Append(rec models.SignalRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.n == len(r.buf) {
		delete(r.index, r.buf[r.head].ID)
	} else {
		r.n++
	}
	r.buf[r.head] = cloneRecord(rec)
	r.index[rec.ID] = r.head
	r.head = (r.head + 1) % len(r.buf)
}

// Load appends records given oldest first.
func (r *Ring) Load(records []models.SignalRecord) {
	for _, rec := range records {
		r.Append(rec)
	}
}

func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.n
}

func (r *Ring) Cap() int { return len(r.buf) }

func (r *Ring) Get(id string) (models.SignalRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[id]
	if !ok {
		return models.SignalRecord{}, false
	}
	return cloneRecord(r.buf[i]), true
}

// AttachOutcome records the result of a signal. It is the only mutation a stored record sees.
func (r *Ring) AttachOutcome(id string, out models.SignalOutcome) (models.SignalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.index[id]
	if !ok {
		return models.SignalRecord{}, ErrNotFound
	}
	if r.buf[i].Outcome != nil {
		return cloneRecord(r.buf[i]), ErrAlreadyResolved
	}
	o := out
	r.buf[i].Outcome = &o
	return cloneRecord(r.buf[i]), nil
}

// Recent returns up to limit records, newest first. limit <= 0 returns all.
func (r *Ring) Recent(limit int) []models.SignalRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if limit <= 0 || limit > r.n {
		limit = r.n
	}
	out := make([]models.SignalRecord, 0, limit)
	for k := 1; k <= limit; k++ {
		i := (r.head - k + len(r.buf)) % len(r.buf)
		out = append(out, cloneRecord(r.buf[i]))
	}
	return out
}

// Stats summarises the signals created within the trailing window.
type Stats struct {
	Window            string          `json:"window"`
	Count             int             `json:"count"`
	Resolved          int             `json:"resolved"`
	Wins              int             `json:"wins"`
	Losses            int             `json:"losses"`
	Breakevens        int             `json:"breakevens"`
	WinRate           float64         `json:"win_rate"`
	AvgQuality        float64         `json:"avg_quality"`
	TotalPnL          decimal.Decimal `json:"total_pnl"`
	TierDistribution  map[string]int  `json:"tier_distribution"`
	AssetDistribution map[string]int  `json:"asset_distribution"`
}

// Stats computes analytics over records created in (now-window, now]. window <= 0 covers everything.
func (r *Ring) Stats(now time.Time, window time.Duration) Stats {
	st := Stats{
		Window:            window.String(),
		TotalPnL:          decimal.Zero,
		TierDistribution:  map[string]int{},
		AssetDistribution: map[string]int{},
	}
	sumQuality := 0.0
	for _, rec := range r.Recent(0) {
		if window > 0 && !rec.CreatedAt.After(now.Add(-window)) {
			continue
		}
		st.Count++
		sumQuality += rec.Quality.Score
		st.TierDistribution[rec.Tier.String()]++
		st.AssetDistribution[rec.Asset]++
		if rec.Outcome == nil {
			continue
		}
		st.Resolved++
		st.TotalPnL = st.TotalPnL.Add(rec.Outcome.PnL)
		switch rec.Outcome.Result {
		case models.OutcomeWin:
			st.Wins++
		case models.OutcomeLoss:
			st.Losses++
		case models.OutcomeBreakeven:
			st.Breakevens++
		}
	}
	if st.Count > 0 {
		st.AvgQuality = round2(sumQuality / float64(st.Count))
	}
	if st.Resolved > 0 {
		st.WinRate = round2(float64(st.Wins) / float64(st.Resolved) * 100)
	}
	return st
}

func cloneRecord(rec models.SignalRecord) models.SignalRecord {
	if rec.Outcome != nil {
		o := *rec.Outcome
		rec.Outcome = &o
	}
	return rec
}

func round2(x float64) float64 {
	return decimal.NewFromFloat(x).Round(2).InexactFloat64()
}
