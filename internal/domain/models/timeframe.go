package models

import "time"

// Timeframe represents a feature window resolution.
type Timeframe string

const (
	TFM15 Timeframe = "M15"
	TFH1  Timeframe = "H1"
	TFH4  Timeframe = "H4"
	TFD1  Timeframe = "D1"
)

// Duration returns the bar length of the timeframe, or 0 if unknown.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case TFM15:
		return 15 * time.Minute
	case TFH1:
		return time.Hour
	case TFH4:
		return 4 * time.Hour
	case TFD1:
		return 24 * time.Hour
	default:
		return 0
	}
}

// Intraday reports whether bars are shorter than one day.
func (tf Timeframe) Intraday() bool {
	d := tf.Duration()
	return d > 0 && d < 24*time.Hour
}

// AllTimeframes lists supported timeframes from finest to coarsest.
func AllTimeframes() []Timeframe { return []Timeframe{TFM15, TFH1, TFH4, TFD1} }

// Valid reports whether tf is one of the supported timeframes.
func (tf Timeframe) Valid() bool { return tf.Duration() > 0 }
