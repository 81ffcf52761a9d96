// Package stepper holds the fixed-step integration strategies and their
// classification into value-returning and mutate-in-place kinds.
package stepper

import (
	"fmt"
	"time"

	"github.com/san-kum/statespace/internal/dynamo"
	"github.com/san-kum/statespace/internal/statespace"
)

// Func returns the state derivative at (t, x).
type Func func(t time.Duration, x statespace.Vector) (statespace.Vector, error)

// MutateFunc writes the state derivative at (x, t) into dxdt.
type MutateFunc func(x statespace.Vector, dxdt *statespace.Vector, t time.Duration) error

// ValueStepper advances a state by one step and returns the new state.
// Implementing Step marks a stepper as value-returning.
type ValueStepper interface {
	Step(f Func, x statespace.Vector, t, dt time.Duration) (statespace.Vector, error)
}

// MutatingStepper advances x in place by one step.
type MutatingStepper interface {
	DoStep(f MutateFunc, x *statespace.Vector, t, dt time.Duration) error
}

// Kind is the calling convention a stepper was classified as.
type Kind int

const (
	KindValue Kind = iota + 1
	KindMutating
)

func (k Kind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindMutating:
		return "mutating"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Classify reports the kind of s. Step takes precedence when a stepper
// implements both methods.
func Classify(s any) (Kind, error) {
	switch s.(type) {
	case ValueStepper:
		return KindValue, nil
	case MutatingStepper:
		return KindMutating, nil
	}
	return 0, fmt.Errorf("%w: %T implements neither Step nor DoStep", dynamo.ErrStepperShape, s)
}
