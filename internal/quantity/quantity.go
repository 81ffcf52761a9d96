// Package quantity provides dimension-checked scalars backed by gonum/unit.
//
// A Quantity is an SI value plus its dimensions. Arithmetic between
// incompatible dimensions is a programming error: like gonum/unit it panics,
// here with a *dynamo.DimensionMismatchError so that operation boundaries can
// turn it back into an error with Recover.
package quantity

import (
	"math"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/unit"

	"github.com/san-kum/statespace/internal/dynamo"
)

// Quantity is an immutable dimensioned scalar in SI base units. The
// underlying unit is never mutated once built; every operation works on a
// copy.
type Quantity struct {
	u *unit.Unit
}

// New returns a quantity of value v with dimensions d.
func New(v float64, d unit.Dimensions) Quantity {
	return Quantity{u: unit.New(v, nonNil(d))}
}

// Of converts any gonum unit value, e.g. Of(unit.Length(1.105)).
func Of(u unit.Uniter) Quantity {
	uu := u.Unit()
	return New(uu.Value(), uu.Dimensions())
}

// Scalar returns a dimensionless quantity.
func Scalar(v float64) Quantity {
	return New(v, Dimless)
}

// Seconds converts d into a time quantity. The conversion is exact for every
// duration representable in float64 seconds.
func Seconds(d time.Duration) Quantity {
	return New(d.Seconds(), Time)
}

// base returns the backing unit; the zero Quantity is a dimensionless zero.
func (q Quantity) base() *unit.Unit {
	if q.u == nil {
		return unit.New(0, Dimless)
	}
	return q.u
}

// derive applies op to a copy of q's unit.
func (q Quantity) derive(op func(*unit.Unit) *unit.Unit) Quantity {
	return Quantity{u: op(q.base().Copy())}
}

func (q Quantity) Value() float64 { return q.base().Value() }

// Dimensions returns a copy of the quantity's dimensions.
func (q Quantity) Dimensions() unit.Dimensions {
	return q.base().Dimensions()
}

// Unit implements unit.Uniter. The result is a copy.
func (q Quantity) Unit() *unit.Unit {
	return q.base().Copy()
}

// Is reports whether q has dimensions d.
func (q Quantity) Is(d unit.Dimensions) bool {
	return unit.DimensionsMatch(q.base(), unit.New(1, d))
}

// Dimensionless reports whether q carries no dimension.
func (q Quantity) Dimensionless() bool {
	return q.Is(Dimless)
}

// In returns the raw value of q, checking that it has dimensions d.
func (q Quantity) In(d unit.Dimensions) (float64, error) {
	if !q.Is(d) {
		return 0, mismatch("conversion", q.Dimensions(), d)
	}
	return q.Value(), nil
}

// TryAdd is Add returning the mismatch as an error instead of panicking.
func (q Quantity) TryAdd(o Quantity) (Quantity, error) {
	if !unit.DimensionsMatch(q.base(), o.base()) {
		return Quantity{}, mismatch("addition", q.Dimensions(), o.Dimensions())
	}
	return q.derive(func(u *unit.Unit) *unit.Unit { return u.Add(o.base()) }), nil
}

// Add returns q+o. It panics if the dimensions differ.
func (q Quantity) Add(o Quantity) Quantity {
	r, err := q.TryAdd(o)
	if err != nil {
		panic(err)
	}
	return r
}

// Sub returns q-o. It panics if the dimensions differ.
func (q Quantity) Sub(o Quantity) Quantity {
	if !unit.DimensionsMatch(q.base(), o.base()) {
		panic(mismatch("subtraction", q.Dimensions(), o.Dimensions()))
	}
	return q.Add(o.Neg())
}

// Mul returns the product, combining dimensions.
func (q Quantity) Mul(o Quantity) Quantity {
	return q.derive(func(u *unit.Unit) *unit.Unit { return u.Mul(o.base()) })
}

// Div returns the quotient, combining dimensions.
func (q Quantity) Div(o Quantity) Quantity {
	return q.derive(func(u *unit.Unit) *unit.Unit { return u.Div(o.base()) })
}

// Scale multiplies q by a dimensionless factor.
func (q Quantity) Scale(a float64) Quantity {
	return q.derive(func(u *unit.Unit) *unit.Unit {
		u.SetValue(u.Value() * a)
		return u
	})
}

func (q Quantity) Neg() Quantity {
	return q.Scale(-1)
}

// MulDuration multiplies q by a time span, raising its time exponent by one.
func (q Quantity) MulDuration(d time.Duration) Quantity {
	return q.Mul(Seconds(d))
}

// DivDuration divides q by a time span, lowering its time exponent by one.
func (q Quantity) DivDuration(d time.Duration) Quantity {
	return q.Div(Seconds(d))
}

// Equal reports whether q and o have the same value and dimensions.
func (q Quantity) Equal(o Quantity) bool {
	return q.Value() == o.Value() && unit.DimensionsMatch(q.base(), o.base())
}

func (q Quantity) String() string {
	s := strconv.FormatFloat(q.Value(), 'g', -1, 64)
	if d := q.Dimensions().String(); d != "" {
		s += " " + d
	}
	return s
}

// Sin returns the sine of an angle as a dimensionless quantity.
func Sin(a Quantity) Quantity {
	mustAngle("sin", a)
	return Scalar(math.Sin(a.Value()))
}

// Cos returns the cosine of an angle as a dimensionless quantity.
func Cos(a Quantity) Quantity {
	mustAngle("cos", a)
	return Scalar(math.Cos(a.Value()))
}

// Tan returns the tangent of an angle as a dimensionless quantity.
func Tan(a Quantity) Quantity {
	mustAngle("tan", a)
	return Scalar(math.Tan(a.Value()))
}

// Atan returns the arctangent of a dimensionless quantity as an angle.
func Atan(x Quantity) Quantity {
	if !x.Dimensionless() {
		panic(mismatch("atan", x.Dimensions(), Dimless))
	}
	return New(math.Atan(x.Value()), Angle)
}

func mustAngle(op string, a Quantity) {
	if !a.Is(Angle) {
		panic(mismatch(op, a.Dimensions(), Angle))
	}
}

func mismatch(op string, left, right unit.Dimensions) *dynamo.DimensionMismatchError {
	return &dynamo.DimensionMismatchError{
		Op:    op,
		Left:  describe(left),
		Right: describe(right),
	}
}

// unitMismatch prefixes the panic message of (*unit.Unit).Add.
const unitMismatch = "unit: mismatched dimensions in "

func describe(d unit.Dimensions) string {
	if s := d.String(); s != "" {
		return s
	}
	return "dimensionless"
}

// Recover converts a dimension-mismatch panic into *err. That covers both
// *dynamo.DimensionMismatchError and the string panics of gonum/unit's own
// arithmetic. Other panics are re-raised. It must be deferred directly:
//
//	defer quantity.Recover(&err)
func Recover(err *error) {
	r := recover()
	if r == nil {
		return
	}
	switch v := r.(type) {
	case *dynamo.DimensionMismatchError:
		*err = v
		return
	case string:
		if op, ok := strings.CutPrefix(v, unitMismatch); ok {
			*err = &dynamo.DimensionMismatchError{Op: op, Left: "unknown", Right: "unknown"}
			return
		}
	}
	panic(r)
}
