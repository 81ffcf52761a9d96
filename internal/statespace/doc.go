// Package statespace provides named, physically dimensioned vectors.
//
// A [Schema] is an ordered list of uniquely named fields, each with SI
// dimensions. A [Vector] holds one float64 per field in SI base units.
// Field names are resolved into [Key] values once, next to the schema
// declaration, so that a misspelt field aborts at program start:
//
//	var State = statespace.MustSchema(
//	    statespace.F("x", unit.Length(0)),
//	    statespace.F("v", unit.Velocity(0)),
//	)
//
//	var keyV = State.MustKey("v")
//
// [Schema.Derivative] shifts every field's time exponent, so
// State.Derivative(1) describes dx/dt. Multiplying a derivative vector by a
// duration ([Vector.MulDuration]) yields a vector of the original schema,
// which is the increment every stepper adds onto a state.
package statespace
