package models

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/unit"

	"github.com/san-kum/statespace/internal/quantity"
	"github.com/san-kum/statespace/internal/statespace"
	"github.com/san-kum/statespace/internal/system"
)

const (
	DefaultStiffness = 10.0
	DefaultDamping   = 0.5
)

var (
	SpringMassState = statespace.MustSchema(
		statespace.F("pos", unit.Length(0)),
		statespace.Field{Name: "vel", Dims: quantity.Velocity},
	)
	SpringMassInput = statespace.MustSchema(
		statespace.Field{Name: "force", Dims: quantity.Force},
	)

	springPos   = SpringMassState.MustKey("pos")
	springVel   = SpringMassState.MustKey("vel")
	springForce = SpringMassInput.MustKey("force")
)

// SpringMass is a single mass on a linear spring with viscous damping.
type SpringMass struct {
	Mass      float64
	Stiffness float64
	Damping   float64
}

func NewSpringMass() *SpringMass {
	return &SpringMass{
		Mass:      DefaultMass,
		Stiffness: DefaultStiffness,
		Damping:   DefaultDamping,
	}
}

func (s *SpringMass) Name() string              { return "spring_mass" }
func (s *SpringMass) State() *statespace.Schema { return SpringMassState }
func (s *SpringMass) Input() *statespace.Schema { return SpringMassInput }

func (s *SpringMass) DefaultState() statespace.Vector {
	return statespace.MustNew(SpringMassState,
		quantity.Of(unit.Length(1)),
		quantity.New(0, quantity.Velocity),
	)
}

func (s *SpringMass) DefaultInput() statespace.Vector {
	return statespace.Zero(SpringMassInput)
}

func (s *SpringMass) accel(pos, vel, force float64) float64 {
	return (-s.Stiffness*pos - s.Damping*vel + force) / s.Mass
}

func (s *SpringMass) Evaluate(x, u statespace.Vector, _ time.Duration) (statespace.Vector, error) {
	vel := x.Float(springVel)
	acc := s.accel(x.Float(springPos), vel, u.Float(springForce))
	return statespace.FromFloats(x.Schema().Derivative(1), []float64{vel, acc})
}

func (s *SpringMass) External() system.ExternalFunc {
	return func(u statespace.Vector) system.MutateFunc {
		force := u.Float(springForce)
		return func(x statespace.Vector, dxdt *statespace.Vector, _ time.Duration) error {
			vel := x.Float(springVel)
			dxdt.SetFloat(springPos, vel)
			dxdt.SetFloat(springVel, s.accel(x.Float(springPos), vel, force))
			return nil
		}
	}
}

func (s *SpringMass) Energy(x statespace.Vector) float64 {
	pos, vel := x.Float(springPos), x.Float(springVel)
	return 0.5*s.Mass*vel*vel + 0.5*s.Stiffness*pos*pos
}

func (s *SpringMass) GetParams() map[string]float64 {
	return map[string]float64{
		"mass":      s.Mass,
		"stiffness": s.Stiffness,
		"damping":   s.Damping,
	}
}

func (s *SpringMass) SetParam(name string, value float64) error {
	switch name {
	case "mass":
		s.Mass = value
	case "stiffness":
		s.Stiffness = value
	case "damping":
		s.Damping = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}
