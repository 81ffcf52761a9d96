// Package metrics implements trajectory.Metric accumulators.
package metrics

import (
	"math"
	"time"

	"github.com/san-kum/statespace/internal/statespace"
)

// Stability is the fraction of samples whose every field magnitude stays
// within threshold.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(_ time.Duration, x, _ statespace.Vector) {
	s.samples++
	for _, val := range x.Floats() {
		if math.IsNaN(val) || math.Abs(val) > s.threshold {
			s.violations++
			break
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
