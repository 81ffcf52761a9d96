package stepper

import (
	"time"

	"github.com/san-kum/statespace/internal/statespace"
)

// RK4 is the classical explicit fourth-order Runge-Kutta method. It holds no
// state between steps, so one value can be shared by many trajectories.
type RK4 struct{}

func NewRK4() RK4 {
	return RK4{}
}

// Step computes
//
//	k1 = f(t, x)
//	k2 = f(t+dt/2, x + dt/2*k1)
//	k3 = f(t+dt/2, x + dt/2*k2)
//	k4 = f(t+dt, x + dt*k3)
//	x' = x + dt*(k1 + 2(k2+k3) + k4)/6
//
// The weighted slope is evaluated as a + 2(b-a)/3 with a = (k1+k4)/2 and
// b = (k2+k3)/2. When every stage sees the same derivative k, b-a is zero
// and the step is x + dt*k with the same rounding as computing it directly.
func (RK4) Step(f Func, x statespace.Vector, t, dt time.Duration) (statespace.Vector, error) {
	h := dt.Seconds()
	mid := t + dt/2

	k1, err := f(t, x)
	if err != nil {
		return statespace.Vector{}, err
	}

	y, err := x.Add(k1.MulSeconds(h / 2))
	if err != nil {
		return statespace.Vector{}, err
	}
	k2, err := f(mid, y)
	if err != nil {
		return statespace.Vector{}, err
	}

	if y, err = x.Add(k2.MulSeconds(h / 2)); err != nil {
		return statespace.Vector{}, err
	}
	k3, err := f(mid, y)
	if err != nil {
		return statespace.Vector{}, err
	}

	if y, err = x.Add(k3.MulSeconds(h)); err != nil {
		return statespace.Vector{}, err
	}
	k4, err := f(t+dt, y)
	if err != nil {
		return statespace.Vector{}, err
	}

	a, err := k1.Add(k4)
	if err != nil {
		return statespace.Vector{}, err
	}
	b, err := k2.Add(k3)
	if err != nil {
		return statespace.Vector{}, err
	}
	a, b = a.Scale(0.5), b.Scale(0.5)

	d, err := b.Sub(a)
	if err != nil {
		return statespace.Vector{}, err
	}
	slope, err := a.Add(d.Scale(2).Quo(3))
	if err != nil {
		return statespace.Vector{}, err
	}
	return x.Add(slope.MulSeconds(h))
}
