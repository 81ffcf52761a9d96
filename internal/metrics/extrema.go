package metrics

import (
	"math"
	"time"

	"github.com/san-kum/statespace/internal/statespace"
)

// Extreme selects which end of a field's range FieldExtremum reports.
type Extreme int

const (
	Max Extreme = iota
	Min
)

// FieldExtremum tracks the largest or smallest value one field takes.
type FieldExtremum struct {
	name string
	key  statespace.Key
	want Extreme
	val  float64
	seen bool
}

func NewFieldMax(key statespace.Key) *FieldExtremum {
	return &FieldExtremum{name: "max_" + key.Name(), key: key, want: Max}
}

func NewFieldMin(key statespace.Key) *FieldExtremum {
	return &FieldExtremum{name: "min_" + key.Name(), key: key, want: Min}
}

func (f *FieldExtremum) Name() string { return f.name }

func (f *FieldExtremum) Observe(_ time.Duration, x, _ statespace.Vector) {
	v := x.Float(f.key)
	switch {
	case !f.seen:
		f.val, f.seen = v, true
	case f.want == Max:
		f.val = math.Max(f.val, v)
	default:
		f.val = math.Min(f.val, v)
	}
}

// Value returns NaN before any sample is observed.
func (f *FieldExtremum) Value() float64 {
	if !f.seen {
		return math.NaN()
	}
	return f.val
}

func (f *FieldExtremum) Reset() {
	f.val, f.seen = 0, false
}

// InputEffort is the mean absolute input value per sample, summed over the
// input fields.
type InputEffort struct {
	name    string
	sum     float64
	samples int
}

func NewInputEffort() *InputEffort {
	return &InputEffort{
		name: "input_effort",
	}
}

func (c *InputEffort) Name() string {
	return c.name
}

func (c *InputEffort) Observe(_ time.Duration, _, u statespace.Vector) {
	for _, val := range u.Floats() {
		c.sum += math.Abs(val)
	}
	c.samples++
}

func (c *InputEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *InputEffort) Reset() {
	c.sum = 0
	c.samples = 0
}
