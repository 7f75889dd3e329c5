package admission

import (
	"hash/fnv"
	"math/rand"
	"sort"
	"sync"
	"time"

	"SignalGate/internal/domain/models"
	domsvc "SignalGate/internal/domain/service"
	"SignalGate/pkg/config"
	"SignalGate/pkg/logger"
)

const dayLayout = "2006-01-02"

// Controller enforces per-pool daily, hourly and spacing limits.
// Every read-modify-write of a pool's counters happens under that pool's mutex.
type Controller struct {
	cfg    config.Admission
	loc    *time.Location
	policy *Policy
	seed   int64
	l      *logger.Logger

	mu    sync.Mutex
	pools map[string]*pool
}

type pool struct {
	mu  sync.Mutex
	st  models.AdmissionState
	rng *rand.Rand
}

// NewController builds a controller. A zero seed draws one from the clock.
func NewController(cfg config.Admission, loc *time.Location, seed int64, l *logger.Logger) *Controller {
	if loc == nil {
		loc = time.UTC
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Controller{
		cfg:    cfg,
		loc:    loc,
		policy: NewPolicy(cfg),
		seed:   seed,
		l:      l,
		pools:  make(map[string]*pool),
	}
}

func (c *Controller) pool(name string) *pool {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pools[name]
	if !ok {
		h := fnv.New64a()
		_, _ = h.Write([]byte(name))
		p = &pool{
			st:  models.AdmissionState{Pool: name, CurrentHour: -1, Status: models.StatusIdle},
			rng: rand.New(rand.NewSource(c.seed ^ int64(h.Sum64()))),
		}
		c.pools[name] = p
	}
	return p
}

// rollover resets counters when the pool-local day or hour changed since the previous request.
func (c *Controller) rollover(st *models.AdmissionState, now time.Time) {
	local := now.In(c.loc)
	day := local.Format(dayLayout)
	if day != st.CurrentDay {
		st.DayCount = 0
		st.HourCount = 0
		st.CurrentDay = day
	}
	if h := local.Hour(); h != st.CurrentHour {
		st.HourCount = 0
		st.CurrentHour = h
	}
}

func (c *Controller) limit(st *models.AdmissionState, now time.Time) models.AdmissionStatus {
	switch {
	case st.DayCount >= c.cfg.DailyLimit:
		return models.StatusBlockedDaily
	case st.HourCount >= c.cfg.HourlyLimit:
		return models.StatusBlockedHourly
	case st.LastEmissionTime != nil && now.Sub(*st.LastEmissionTime) < c.cfg.MinInterval:
		return models.StatusBlockedInterval
	default:
		return models.StatusAdmitted
	}
}

// Check applies rollover and reports whether an admission would be granted now.
// It never consumes budget.
func (c *Controller) Check(name string, now time.Time) (models.AdmissionState, models.AdmissionStatus) {
	p := c.pool(name)
	p.mu.Lock()
	defer p.mu.Unlock()

	c.rollover(&p.st, now)
	status := c.limit(&p.st, now)
	if status.Blocked() {
		p.st.Status = status
	}
	return cloneState(p.st), status
}

// Admit re-checks the limits and, when they allow it, records the emission.
func (c *Controller) Admit(name string, now time.Time, assetHint string) (*models.AdmissionGrant, models.AdmissionState, models.AdmissionStatus) {
	p := c.pool(name)
	p.mu.Lock()
	defer p.mu.Unlock()

	c.rollover(&p.st, now)
	if status := c.limit(&p.st, now); status.Blocked() {
		p.st.Status = status
		return nil, cloneState(p.st), status
	}

	hour := now.In(c.loc).Hour()
	grant := &models.AdmissionGrant{
		Pool:       name,
		Tier:       c.policy.Tier(hour),
		Instrument: assetHint,
		AdmittedAt: now,
	}
	if s, ok := c.policy.Session(hour); ok {
		grant.Session = s.Name
		grant.Instrument = c.policy.Instrument(s, assetHint, p.rng)
	}

	p.st.DayCount++
	p.st.HourCount++
	t := now
	p.st.LastEmissionTime = &t
	p.st.Status = models.StatusAdmitted

	if c.l != nil {
		c.l.Debug("admission granted",
			logger.String("pool", name),
			logger.String("tier", grant.Tier.String()),
			logger.String("instrument", grant.Instrument),
			logger.Int("day_count", p.st.DayCount),
			logger.Int("hour_count", p.st.HourCount),
		)
	}
	return grant, cloneState(p.st), models.StatusAdmitted
}

// State returns a copy of the pool's counters.
func (c *Controller) State(name string) models.AdmissionState {
	p := c.pool(name)
	p.mu.Lock()
	defer p.mu.Unlock()
	return cloneState(p.st)
}

// Snapshot returns every known pool, sorted by name.
func (c *Controller) Snapshot() []models.AdmissionState {
	c.mu.Lock()
	names := make([]string, 0, len(c.pools))
	for n := range c.pools {
		names = append(names, n)
	}
	c.mu.Unlock()
	sort.Strings(names)

	out := make([]models.AdmissionState, 0, len(names))
	for _, n := range names {
		out = append(out, c.State(n))
	}
	return out
}

// Restore replaces a pool's counters, e.g. from a persisted snapshot.
func (c *Controller) Restore(st models.AdmissionState) {
	if st.Pool == "" {
		return
	}
	p := c.pool(st.Pool)
	p.mu.Lock()
	p.st = cloneState(st)
	p.mu.Unlock()
}

func cloneState(st models.AdmissionState) models.AdmissionState {
	if st.LastEmissionTime != nil {
		t := *st.LastEmissionTime
		st.LastEmissionTime = &t
	}
	return st
}

var _ domsvc.AdmissionController = (*Controller)(nil)
