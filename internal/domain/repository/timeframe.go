package repository

import (
	"strings"

	"SignalGate/internal/domain/models"
)

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf models.Timeframe) bool { return tf.Valid() }

// DefaultTimeframe returns the default timeframe.
func DefaultTimeframe() models.Timeframe { return models.TFH1 }

// NormalizeTimeframe converts raw string to a valid timeframe (or default).
func NormalizeTimeframe(s string) models.Timeframe {
	if s == "" {
		return DefaultTimeframe()
	}
	tf := models.Timeframe(strings.ToUpper(s))
	if IsValidTimeframe(tf) {
		return tf
	}
	return DefaultTimeframe()
}

// TableFor returns the OHLCV table backing a timeframe.
func TableFor(tf models.Timeframe) string {
	switch tf {
	case models.TFM15:
		return "candles_15m"
	case models.TFH1:
		return "candles_1h"
	case models.TFH4:
		return "candles_4h"
	case models.TFD1:
		return "candles_1d"
	default:
		return "candles_1h"
	}
}
