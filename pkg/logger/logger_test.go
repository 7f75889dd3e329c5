package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.DebugLevel)

	l.Info("admitted",
		String("pool", "forex"),
		Int("day_count", 2),
		Float64("score", 87.5),
		Bool("ok", true),
		Duration("took", 1500*time.Millisecond),
		Error(errors.New("boom")),
	)

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "info", out["level"])
	assert.Equal(t, "admitted", out["message"])
	assert.Equal(t, "forex", out["pool"])
	assert.EqualValues(t, 2, out["day_count"])
	assert.EqualValues(t, 87.5, out["score"])
	assert.Equal(t, true, out["ok"])
	assert.EqualValues(t, 1500, out["took"])
	assert.Equal(t, "boom", out["error"])
}

func TestLoggerLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.WarnLevel)

	l.Debug("hidden")
	l.Info("hidden")
	assert.Zero(t, buf.Len())

	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.InfoLevel).With(String("component", "gate"))
	l.Info("hello")
	assert.Contains(t, buf.String(), `"component":"gate"`)
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Output: "stdout"})
	require.Error(t, err)
}

func TestNopDiscards(t *testing.T) {
	assert.NotPanics(t, func() { Nop().Error("nothing", String("k", "v")) })
}
