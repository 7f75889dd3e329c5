package scoring

import (
	"fmt"
	"math"
	"sort"

	"SignalGate/internal/domain/models"
	"SignalGate/pkg/config"
)

// Total weight of a normalized catalogue.
const Total = 100.0

// Catalogue is an immutable, normalized set of criterion weights.
type Catalogue struct {
	names   []string
	weights map[string]float64
}

// NewCatalogue normalizes relative weights so they sum to exactly 100.
// The largest weight absorbs the floating-point residual.
func NewCatalogue(raw map[string]float64) (*Catalogue, error) {
	if err := config.ValidateCatalogue(raw); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(raw))
	sum := 0.0
	for name, w := range raw {
		names = append(names, name)
		sum += w
	}
	sort.Strings(names)

	heaviest := names[0]
	for _, name := range names[1:] {
		if raw[name] > raw[heaviest] {
			heaviest = name
		}
	}

	weights := make(map[string]float64, len(raw))
	rest := 0.0
	for _, name := range names {
		if name == heaviest {
			continue
		}
		w := raw[name] / sum * Total
		weights[name] = w
		rest += w
	}
	weights[heaviest] = Total - rest

	c := &Catalogue{names: names, weights: weights}
	if s := c.Sum(); math.Abs(s-Total) > 1e-9 {
		return nil, fmt.Errorf("%w: normalized weights sum to %v", config.ErrInvalidCatalogue, s)
	}
	return c, nil
}

// Names returns criterion names in ascending order.
func (c *Catalogue) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Weight returns the normalized weight of a criterion.
func (c *Catalogue) Weight(name string) (float64, bool) {
	w, ok := c.weights[name]
	return w, ok
}

// Len returns the number of criteria.
func (c *Catalogue) Len() int { return len(c.names) }

// Sum adds every normalized weight in name order.
func (c *Catalogue) Sum() float64 {
	s := 0.0
	for _, n := range c.names {
		s += c.weights[n]
	}
	return s
}

// Weights returns the normalized weights sorted by weight descending, name ascending.
func (c *Catalogue) Weights() []models.CriterionWeight {
	out := make([]models.CriterionWeight, 0, len(c.names))
	for _, n := range c.names {
		out = append(out, models.CriterionWeight{Criterion: n, Weight: c.weights[n]})
	}
	sortByWeight(out)
	return out
}

func sortByWeight(ws []models.CriterionWeight) {
	sort.SliceStable(ws, func(i, j int) bool {
		if ws[i].Weight != ws[j].Weight {
			return ws[i].Weight > ws[j].Weight
		}
		return ws[i].Criterion < ws[j].Criterion
	})
}
