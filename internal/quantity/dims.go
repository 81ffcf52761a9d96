package quantity

import "gonum.org/v1/gonum/unit"

// Dimension sets used by the bundled models. Treat them as read-only.
var (
	Dimless      = unit.Dimensions{}
	Length       = unit.Dimensions{unit.LengthDim: 1}
	Time         = unit.Dimensions{unit.TimeDim: 1}
	Mass         = unit.Dimensions{unit.MassDim: 1}
	Angle        = unit.Dimensions{unit.AngleDim: 1}
	Velocity     = unit.Dimensions{unit.LengthDim: 1, unit.TimeDim: -1}
	Acceleration = unit.Dimensions{unit.LengthDim: 1, unit.TimeDim: -2}
	AngularRate  = unit.Dimensions{unit.AngleDim: 1, unit.TimeDim: -1}
	Force        = unit.Dimensions{unit.MassDim: 1, unit.LengthDim: 1, unit.TimeDim: -2}
	Torque       = unit.Dimensions{unit.MassDim: 1, unit.LengthDim: 2, unit.TimeDim: -2}
)

// nonNil returns d, or an empty set when d is nil. gonum's Mul and Div write
// into the receiver's map, so a unit built from nil dimensions cannot be
// multiplied.
func nonNil(d unit.Dimensions) unit.Dimensions {
	if d == nil {
		return unit.Dimensions{}
	}
	return d
}

// SameDimensions reports whether a and b describe the same dimension,
// ignoring zero exponents.
func SameDimensions(a, b unit.Dimensions) bool {
	return unit.DimensionsMatch(unit.New(1, a), unit.New(1, b))
}

// ShiftTime returns a copy of d with the time exponent changed by n.
// ShiftTime(d, -1) is the dimension of the first time derivative of d.
func ShiftTime(d unit.Dimensions, n int) unit.Dimensions {
	u := unit.New(1, nonNil(d))
	return u.Mul(unit.New(1, unit.Dimensions{unit.TimeDim: n})).Dimensions()
}
