package stepper

import (
	"time"

	"github.com/san-kum/statespace/internal/statespace"
)

// Euler is the explicit forward Euler method in mutate-in-place form.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) DoStep(f MutateFunc, x *statespace.Vector, t, dt time.Duration) error {
	dxdt := statespace.Zero(x.Schema().Derivative(1))
	if err := f(*x, &dxdt, t); err != nil {
		return err
	}
	return x.AddAssign(dxdt.MulDuration(dt))
}
