package admission

import (
	"math/rand"

	"SignalGate/internal/domain/models"
	"SignalGate/pkg/config"
)

// Policy maps the hour of day to a tier and a session's instrument set.
type Policy struct {
	prime     []config.HourWindow
	secondary map[int]bool
	sessions  []config.Session
}

func NewPolicy(cfg config.Admission) *Policy {
	p := &Policy{
		prime:     cfg.PrimeWindows,
		secondary: make(map[int]bool, len(cfg.SecondaryHours)),
		sessions:  cfg.Sessions,
	}
	for _, h := range cfg.SecondaryHours {
		p.secondary[h] = true
	}
	return p
}

// Tier returns PRIME inside a prime window, STANDARD on a secondary hour, else CONSERVATIVE.
func (p *Policy) Tier(hour int) models.Tier {
	for _, w := range p.prime {
		if w.Contains(hour) {
			return models.TierPrime
		}
	}
	if p.secondary[hour] {
		return models.TierStandard
	}
	return models.TierConservative
}

// Session returns the first session covering the hour.
func (p *Policy) Session(hour int) (config.Session, bool) {
	for _, s := range p.sessions {
		if s.Hours.Contains(hour) {
			return s, true
		}
	}
	return config.Session{}, false
}

// Instrument honors hint when the session trades it, otherwise draws by weight.
func (p *Policy) Instrument(s config.Session, hint string, rng *rand.Rand) string {
	if len(s.Instruments) == 0 {
		return hint
	}
	total := 0.0
	for _, in := range s.Instruments {
		if hint != "" && in.Symbol == hint {
			return hint
		}
		total += in.Weight
	}
	x := rng.Float64() * total
	for _, in := range s.Instruments {
		x -= in.Weight
		if x < 0 {
			return in.Symbol
		}
	}
	return s.Instruments[len(s.Instruments)-1].Symbol
}
