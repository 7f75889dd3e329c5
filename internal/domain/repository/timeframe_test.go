package repository

import (
	"testing"

	"SignalGate/internal/domain/models"
)

func TestNormalizeTimeframe(t *testing.T) {
	cases := map[string]models.Timeframe{
		"":    models.TFH1,
		"h4":  models.TFH4,
		"M15": models.TFM15,
		"D1":  models.TFD1,
		"5m":  models.TFH1,
	}
	for in, want := range cases {
		if got := NormalizeTimeframe(in); got != want {
			t.Fatalf("NormalizeTimeframe(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTableFor(t *testing.T) {
	if got := TableFor(models.TFD1); got != "candles_1d" {
		t.Fatalf("TableFor(D1) = %q", got)
	}
	if got := TableFor("X"); got != "candles_1h" {
		t.Fatalf("TableFor(X) = %q", got)
	}
}
