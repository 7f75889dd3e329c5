package models

import (
	"encoding/json"
	"math"
	"time"
)

// Column names understood by the engine.
const (
	ColOpen   = "open"
	ColHigh   = "high"
	ColLow    = "low"
	ColClose  = "close"
	ColVolume = "volume"
)

// RequiredColumns must be present in every feature window.
var RequiredColumns = []string{ColOpen, ColHigh, ColLow, ColClose}

// Candle represents an OHLCV record as stored by the feature store.
type Candle struct {
	Bucket time.Time
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// FeatureWindow is a columnar, time-ordered table for one timeframe.
// Missing values are NaN. The window is read-only to the engine.
type FeatureWindow struct {
	Timeframe  Timeframe
	Columns    map[string][]float64
	Timestamps []time.Time
}

// FeatureWindows maps a timeframe to its window.
type FeatureWindows map[Timeframe]*FeatureWindow

// NewFeatureWindow builds a window from candles ordered oldest first.
func NewFeatureWindow(tf Timeframe, candles []Candle) *FeatureWindow {
	n := len(candles)
	w := &FeatureWindow{
		Timeframe: tf,
		Columns: map[string][]float64{
			ColOpen:   make([]float64, n),
			ColHigh:   make([]float64, n),
			ColLow:    make([]float64, n),
			ColClose:  make([]float64, n),
			ColVolume: make([]float64, n),
		},
		Timestamps: make([]time.Time, n),
	}
	for i, c := range candles {
		w.Columns[ColOpen][i] = c.Open
		w.Columns[ColHigh][i] = c.High
		w.Columns[ColLow][i] = c.Low
		w.Columns[ColClose][i] = c.Close
		w.Columns[ColVolume][i] = c.Volume
		w.Timestamps[i] = c.Bucket
	}
	return w
}

// Column returns the named column.
func (w *FeatureWindow) Column(name string) ([]float64, bool) {
	if w == nil || w.Columns == nil {
		return nil, false
	}
	c, ok := w.Columns[name]
	return c, ok
}

// Len returns the row count, taken from the close column when present.
func (w *FeatureWindow) Len() int {
	if w == nil {
		return 0
	}
	if c, ok := w.Columns[ColClose]; ok {
		return len(c)
	}
	n := 0
	for _, c := range w.Columns {
		if len(c) > n {
			n = len(c)
		}
	}
	return n
}

// IsTable reports whether all columns (and timestamps, if any) share one length.
func (w *FeatureWindow) IsTable() bool {
	if w == nil || len(w.Columns) == 0 {
		return false
	}
	n := -1
	for _, c := range w.Columns {
		if n == -1 {
			n = len(c)
			continue
		}
		if len(c) != n {
			return false
		}
	}
	return len(w.Timestamps) == 0 || len(w.Timestamps) == n
}

// HasVolume reports whether a volume column with at least one positive value exists.
func (w *FeatureWindow) HasVolume() bool {
	v, ok := w.Column(ColVolume)
	if !ok {
		return false
	}
	for _, x := range v {
		if x > 0 && !math.IsNaN(x) {
			return true
		}
	}
	return false
}

// LastTimestamp returns the timestamp of the newest row.
func (w *FeatureWindow) LastTimestamp() (time.Time, bool) {
	if w == nil || len(w.Timestamps) == 0 {
		return time.Time{}, false
	}
	return w.Timestamps[len(w.Timestamps)-1], true
}

// Tail returns a view over the last n rows. Slices share the backing arrays.
func (w *FeatureWindow) Tail(n int) *FeatureWindow {
	if w == nil {
		return nil
	}
	out := &FeatureWindow{Timeframe: w.Timeframe, Columns: make(map[string][]float64, len(w.Columns))}
	for k, c := range w.Columns {
		start := len(c) - n
		if start < 0 {
			start = 0
		}
		out.Columns[k] = c[start:]
	}
	if len(w.Timestamps) > 0 {
		start := len(w.Timestamps) - n
		if start < 0 {
			start = 0
		}
		out.Timestamps = w.Timestamps[start:]
	}
	return out
}

type featureWindowJSON struct {
	Timeframe  Timeframe             `json:"timeframe"`
	Columns    map[string][]*float64 `json:"columns"`
	Timestamps []time.Time           `json:"timestamps,omitempty"`
}

// MarshalJSON encodes NaN values as null.
func (w FeatureWindow) MarshalJSON() ([]byte, error) {
	out := featureWindowJSON{Timeframe: w.Timeframe, Timestamps: w.Timestamps, Columns: make(map[string][]*float64, len(w.Columns))}
	for k, c := range w.Columns {
		col := make([]*float64, len(c))
		for i := range c {
			if math.IsNaN(c[i]) {
				continue
			}
			v := c[i]
			col[i] = &v
		}
		out.Columns[k] = col
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes null cells as NaN.
func (w *FeatureWindow) UnmarshalJSON(b []byte) error {
	var in featureWindowJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	w.Timeframe = in.Timeframe
	w.Timestamps = in.Timestamps
	w.Columns = make(map[string][]float64, len(in.Columns))
	for k, c := range in.Columns {
		col := make([]float64, len(c))
		for i, v := range c {
			if v == nil {
				col[i] = math.NaN()
				continue
			}
			col[i] = *v
		}
		w.Columns[k] = col
	}
	return nil
}
