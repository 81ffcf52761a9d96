// Package dynamo holds the error taxonomy shared by the state-space packages.
//
// The simulation core is split by responsibility:
//
//   - [quantity]: dimensioned scalars on top of gonum/unit
//   - [statespace]: named, dimensioned vectors and their derivative schemas
//   - [system]: transition functions normalised into one evaluation contract
//   - [stepper]: fixed-step integrators (RK4, Euler)
//   - [trajectory]: lazy iteration over (elapsed, state) samples
//
// Every inconsistency those packages detect is a programming error, not a
// transient condition. They surface as the typed errors in this package, each
// of which unwraps to a sentinel so callers can use [errors.Is]:
//
//	if errors.Is(err, dynamo.ErrKeyNotFound) {
//	    ...
//	}
//
// [quantity]: github.com/san-kum/statespace/internal/quantity
// [statespace]: github.com/san-kum/statespace/internal/statespace
// [system]: github.com/san-kum/statespace/internal/system
// [stepper]: github.com/san-kum/statespace/internal/stepper
// [trajectory]: github.com/san-kum/statespace/internal/trajectory
package dynamo
