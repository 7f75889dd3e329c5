package models

import (
	"fmt"
	"time"
)

// AdmissionStatus is the state of an asset-pool's admission state machine.
type AdmissionStatus int

const (
	StatusIdle AdmissionStatus = iota
	StatusAdmitted
	StatusBlockedDaily
	StatusBlockedHourly
	StatusBlockedInterval
)

func (s AdmissionStatus) String() string {
	switch s {
	case StatusIdle:
		return "IDLE"
	case StatusAdmitted:
		return "ADMITTED"
	case StatusBlockedDaily:
		return "BLOCKED_DAILY"
	case StatusBlockedHourly:
		return "BLOCKED_HOURLY"
	case StatusBlockedInterval:
		return "BLOCKED_INTERVAL"
	default:
		return fmt.Sprintf("AdmissionStatus(%d)", int(s))
	}
}

// Blocked reports whether the status is one of the BLOCKED_* states.
func (s AdmissionStatus) Blocked() bool {
	switch s {
	case StatusBlockedDaily, StatusBlockedHourly, StatusBlockedInterval:
		return true
	case StatusIdle, StatusAdmitted:
		return false
	default:
		return false
	}
}

func (s AdmissionStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *AdmissionStatus) UnmarshalText(b []byte) error {
	for v := StatusIdle; v <= StatusBlockedInterval; v++ {
		if v.String() == string(b) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown admission status %q", string(b))
}

// Tier is the conservatism class assigned to an admitted signal.
type Tier int

const (
	TierPrime Tier = iota
	TierStandard
	TierConservative
)

func (t Tier) String() string {
	switch t {
	case TierPrime:
		return "PRIME"
	case TierStandard:
		return "STANDARD"
	case TierConservative:
		return "CONSERVATIVE"
	default:
		return fmt.Sprintf("Tier(%d)", int(t))
	}
}

// ParseTier converts a tier tag into a Tier.
func ParseTier(s string) (Tier, error) {
	for v := TierPrime; v <= TierConservative; v++ {
		if v.String() == s {
			return v, nil
		}
	}
	return TierConservative, fmt.Errorf("unknown tier %q", s)
}

func (t Tier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Tier) UnmarshalText(b []byte) error {
	v, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// AdmissionState holds the rate-limiting counters of one asset-pool.
// CurrentDay is the pool-local calendar date formatted as 2006-01-02.
// CurrentHour is the hour-of-day seen at the previous request, -1 before the first.
type AdmissionState struct {
	Pool             string          `json:"pool"`
	DayCount         int             `json:"day_count"`
	HourCount        int             `json:"hour_count"`
	CurrentDay       string          `json:"current_day"`
	CurrentHour      int             `json:"current_hour"`
	LastEmissionTime *time.Time      `json:"last_emission_time,omitempty"`
	Status           AdmissionStatus `json:"status"`
}

// AdmissionGrant is returned by the controller on a successful admission.
type AdmissionGrant struct {
	Pool       string    `json:"pool"`
	Tier       Tier      `json:"tier"`
	Instrument string    `json:"instrument"`
	Session    string    `json:"session"`
	AdmittedAt time.Time `json:"admitted_at"`
}
