package models

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/unit"

	"github.com/san-kum/statespace/internal/quantity"
	"github.com/san-kum/statespace/internal/statespace"
	"github.com/san-kum/statespace/internal/system"
)

var (
	PendulumState = statespace.MustSchema(
		statespace.F("theta", unit.Angle(0)),
		statespace.Field{Name: "omega", Dims: quantity.AngularRate},
	)
	PendulumInput = statespace.MustSchema(
		statespace.Field{Name: "torque", Dims: quantity.Torque},
	)

	pendTheta  = PendulumState.MustKey("theta")
	pendOmega  = PendulumState.MustKey("omega")
	pendTorque = PendulumInput.MustKey("torque")
)

// Pendulum is a damped rigid pendulum driven by a torque at the pivot.
type Pendulum struct {
	Mass    float64
	Length  float64
	Damping float64
	Gravity float64
}

func NewPendulum() *Pendulum {
	return &Pendulum{
		Mass:    DefaultMass,
		Length:  DefaultLength,
		Damping: 0.1,
		Gravity: DefaultGravity,
	}
}

func (p *Pendulum) Name() string              { return "pendulum" }
func (p *Pendulum) State() *statespace.Schema { return PendulumState }
func (p *Pendulum) Input() *statespace.Schema { return PendulumInput }

func (p *Pendulum) DefaultState() statespace.Vector {
	return statespace.MustNew(PendulumState,
		quantity.Of(unit.Angle(0.5)),
		quantity.New(0, quantity.AngularRate),
	)
}

func (p *Pendulum) DefaultInput() statespace.Vector {
	return statespace.Zero(PendulumInput)
}

func (p *Pendulum) accel(theta, omega, torque float64) float64 {
	return (-p.Damping*omega - p.Mass*p.Gravity*p.Length*math.Sin(theta) + torque) / (p.Mass * p.Length * p.Length)
}

func (p *Pendulum) Evaluate(x, u statespace.Vector, _ time.Duration) (statespace.Vector, error) {
	omega := x.Float(pendOmega)
	alpha := p.accel(x.Float(pendTheta), omega, u.Float(pendTorque))
	return statespace.FromFloats(x.Schema().Derivative(1), []float64{omega, alpha})
}

func (p *Pendulum) External() system.ExternalFunc {
	return func(u statespace.Vector) system.MutateFunc {
		torque := u.Float(pendTorque)
		return func(x statespace.Vector, dxdt *statespace.Vector, _ time.Duration) error {
			omega := x.Float(pendOmega)
			dxdt.SetFloat(pendTheta, omega)
			dxdt.SetFloat(pendOmega, p.accel(x.Float(pendTheta), omega, torque))
			return nil
		}
	}
}

// Energy returns kinetic plus potential energy, zero at rest at the bottom.
func (p *Pendulum) Energy(x statespace.Vector) float64 {
	v := p.Length * x.Float(pendOmega)
	ke := 0.5 * p.Mass * v * v
	pe := p.Mass * p.Gravity * p.Length * (1.0 - math.Cos(x.Float(pendTheta)))
	return ke + pe
}

func (p *Pendulum) GetParams() map[string]float64 {
	return map[string]float64{
		"mass":    p.Mass,
		"length":  p.Length,
		"damping": p.Damping,
		"gravity": p.Gravity,
	}
}

func (p *Pendulum) SetParam(name string, value float64) error {
	switch name {
	case "mass":
		p.Mass = value
	case "length":
		p.Length = value
	case "damping":
		p.Damping = value
	case "gravity":
		p.Gravity = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}
