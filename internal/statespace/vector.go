package statespace

import (
	"math"
	"strings"
	"time"

	"gonum.org/v1/gonum/unit"

	"github.com/san-kum/statespace/internal/dynamo"
	"github.com/san-kum/statespace/internal/quantity"
)

// Vector is a fixed-schema record of dimensioned values stored in SI base
// units. It behaves as a value: a plain copy is independent of the original.
// The backing slice is never written once a vector has been handed out, so
// the pointer-receiver mutators (Set, SetFloat, AddAssign, ScaleAssign)
// install fresh storage rather than writing through a slice a copy may share.
type Vector struct {
	schema *Schema
	values []float64
}

// New builds a vector from one quantity per field, in declaration order.
func New(s *Schema, values ...quantity.Quantity) (Vector, error) {
	if len(values) != s.Len() {
		return Vector{}, &dynamo.ShapeError{Schema: s.String(), Want: s.Len(), Got: len(values)}
	}

	v := Zero(s)
	for i, q := range values {
		f := s.fields[i]
		if !q.Is(f.Dims) {
			return Vector{}, &dynamo.DimensionMismatchError{
				Op:    "field " + f.Name,
				Left:  describe(q.Dimensions()),
				Right: describe(f.Dims),
			}
		}
		v.values[i] = q.Value()
	}
	return v, nil
}

// MustNew is New that panics on error.
func MustNew(s *Schema, values ...quantity.Quantity) Vector {
	v, err := New(s, values...)
	if err != nil {
		panic(err)
	}
	return v
}

// Zero returns the vector with every field zero.
func Zero(s *Schema) Vector {
	return Vector{schema: s, values: make([]float64, s.Len())}
}

// FromFloats builds a vector from raw SI values in declaration order. The
// slice is copied.
func FromFloats(s *Schema, values []float64) (Vector, error) {
	if len(values) != s.Len() {
		return Vector{}, &dynamo.ShapeError{Schema: s.String(), Want: s.Len(), Got: len(values)}
	}
	v := Zero(s)
	copy(v.values, values)
	return v, nil
}

// FromMap builds a vector from raw SI values keyed by field name. Omitted
// fields are zero; unknown names are an error.
func FromMap(s *Schema, values map[string]float64) (Vector, error) {
	v := Zero(s)
	for name, val := range values {
		i, ok := s.fam.index[name]
		if !ok {
			return Vector{}, &dynamo.KeyNotFoundError{Key: name, Schema: s.String()}
		}
		v.values[i] = val
	}
	return v, nil
}

// Schema returns the vector's schema.
func (v Vector) Schema() *Schema { return v.schema }

// Len returns the number of fields.
func (v Vector) Len() int { return len(v.values) }

// Get returns the value of field k.
func (v Vector) Get(k Key) quantity.Quantity {
	i := v.schema.resolve(k)
	return quantity.New(v.values[i], v.schema.fields[i].Dims)
}

// Float returns the raw SI value of field k.
func (v Vector) Float(k Key) float64 {
	return v.values[v.schema.resolve(k)]
}

// Set writes q into field k after checking its dimensions.
func (v *Vector) Set(k Key, q quantity.Quantity) error {
	i := v.schema.resolve(k)
	f := v.schema.fields[i]
	if !q.Is(f.Dims) {
		return &dynamo.DimensionMismatchError{
			Op:    "field " + f.Name,
			Left:  describe(q.Dimensions()),
			Right: describe(f.Dims),
		}
	}
	v.values = v.Floats()
	v.values[i] = q.Value()
	return nil
}

// SetFloat writes a raw SI value into field k.
func (v *Vector) SetFloat(k Key, x float64) {
	i := v.schema.resolve(k)
	v.values = v.Floats()
	v.values[i] = x
}

// Clone returns a copy. Since copies never share writable storage it is
// equivalent to assignment, and is kept for readability at call sites.
func (v Vector) Clone() Vector {
	return Vector{schema: v.schema, values: v.Floats()}
}

// Floats returns a copy of the raw SI values in declaration order.
func (v Vector) Floats() []float64 {
	out := make([]float64, len(v.values))
	copy(out, v.values)
	return out
}

func (v Vector) sameShape(o Vector, op string) error {
	if v.schema == o.schema || v.schema.Equal(o.schema) {
		return nil
	}
	return &dynamo.ShapeError{
		Schema: v.schema.String(),
		Reason: op + " with " + o.schema.String(),
	}
}

// AddAssign adds o elementwise. Both vectors must share a schema.
func (v *Vector) AddAssign(o Vector) error {
	r, err := v.Add(o)
	if err != nil {
		return err
	}
	v.values = r.values
	return nil
}

// Add returns v+o.
func (v Vector) Add(o Vector) (Vector, error) {
	if err := v.sameShape(o, "addition"); err != nil {
		return Vector{}, err
	}
	r := v.Clone()
	for i := range r.values {
		r.values[i] += o.values[i]
	}
	return r, nil
}

// Sub returns v-o.
func (v Vector) Sub(o Vector) (Vector, error) {
	if err := v.sameShape(o, "subtraction"); err != nil {
		return Vector{}, err
	}
	r := v.Clone()
	for i := range r.values {
		r.values[i] -= o.values[i]
	}
	return r, nil
}

// ScaleAssign multiplies every field by the dimensionless factor a.
func (v *Vector) ScaleAssign(a float64) {
	v.values = v.Scale(a).values
}

// Scale returns a*v.
func (v Vector) Scale(a float64) Vector {
	r := v.Clone()
	for i := range r.values {
		r.values[i] *= a
	}
	return r
}

// Quo returns v/a for a dimensionless divisor a.
func (v Vector) Quo(a float64) Vector {
	r := v.Clone()
	for i := range r.values {
		r.values[i] /= a
	}
	return r
}

// ScaleBy returns q*v. q must be dimensionless.
func (v Vector) ScaleBy(q quantity.Quantity) (Vector, error) {
	if !q.Dimensionless() {
		return Vector{}, &dynamo.DimensionMismatchError{
			Op:    "vector scale",
			Left:  describe(q.Dimensions()),
			Right: "dimensionless",
		}
	}
	return v.Scale(q.Value()), nil
}

// MulDuration returns dt*v as a vector of the next lower derivative order.
// It is the Euler increment: a derivative times a step is a state delta.
func (v Vector) MulDuration(dt time.Duration) Vector {
	return v.MulSeconds(dt.Seconds())
}

// MulSeconds is MulDuration for a step given in seconds.
func (v Vector) MulSeconds(h float64) Vector {
	r := Vector{schema: v.schema.Derivative(-1), values: make([]float64, len(v.values))}
	for i, x := range v.values {
		r.values[i] = x * h
	}
	return r
}

// DivSeconds returns v/h as a vector of the next higher derivative order.
func (v Vector) DivSeconds(h float64) Vector {
	r := Vector{schema: v.schema.Derivative(1), values: make([]float64, len(v.values))}
	for i, x := range v.values {
		r.values[i] = x / h
	}
	return r
}

// ForEach visits every field in declaration order.
func (v Vector) ForEach(fn func(name string, q quantity.Quantity)) {
	for i, f := range v.schema.fields {
		fn(f.Name, quantity.New(v.values[i], f.Dims))
	}
}

// Equal reports whether v and o share a schema and hold identical values.
func (v Vector) Equal(o Vector) bool {
	if v.sameShape(o, "comparison") != nil || len(v.values) != len(o.values) {
		return false
	}
	for i := range v.values {
		if v.values[i] != o.values[i] {
			return false
		}
	}
	return true
}

// IsValid reports whether every value is finite.
func (v Vector) IsValid() bool {
	for _, x := range v.values {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// Norm returns the Euclidean norm of the raw SI values.
func (v Vector) Norm() float64 {
	sum := 0.0
	for _, x := range v.values {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// String renders the values in declaration order, e.g. "{0 m, 0 m, 0 rad, 10 m s^-1}".
func (v Vector) String() string {
	if v.schema == nil {
		return "{}"
	}
	var b strings.Builder
	b.WriteString("{")
	first := true
	v.ForEach(func(_ string, q quantity.Quantity) {
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(q.String())
	})
	b.WriteString("}")
	return b.String()
}

func describe(d unit.Dimensions) string {
	if s := d.String(); s != "" {
		return s
	}
	return "dimensionless"
}
