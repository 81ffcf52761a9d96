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
	BicycleState = statespace.MustSchema(
		statespace.F("x", unit.Length(0)),
		statespace.F("y", unit.Length(0)),
		statespace.F("yaw", unit.Angle(0)),
		statespace.Field{Name: "v", Dims: quantity.Velocity},
	)
	BicycleInput = statespace.MustSchema(
		statespace.Field{Name: "a", Dims: quantity.Acceleration},
		statespace.F("steering", unit.Angle(0)),
	)

	bikeX        = BicycleState.MustKey("x")
	bikeY        = BicycleState.MustKey("y")
	bikeYaw      = BicycleState.MustKey("yaw")
	bikeV        = BicycleState.MustKey("v")
	bikeA        = BicycleInput.MustKey("a")
	bikeSteering = BicycleInput.MustKey("steering")
)

// Bicycle is the kinematic bicycle model of Kong et al. (2015) with front
// wheel steering. Lf and Lr are the distances from the centre of mass to the
// front and rear axles.
type Bicycle struct {
	Lf unit.Length
	Lr unit.Length
}

func NewBicycle() *Bicycle {
	return &Bicycle{
		Lf: 1.105,
		Lr: 1.738,
	}
}

func (b *Bicycle) Name() string              { return "bicycle" }
func (b *Bicycle) State() *statespace.Schema { return BicycleState }
func (b *Bicycle) Input() *statespace.Schema { return BicycleInput }

func (b *Bicycle) DefaultState() statespace.Vector {
	return statespace.MustNew(BicycleState,
		quantity.Of(unit.Length(0)),
		quantity.Of(unit.Length(0)),
		quantity.Of(unit.Angle(0)),
		quantity.New(10, quantity.Velocity),
	)
}

func (b *Bicycle) DefaultInput() statespace.Vector {
	return statespace.MustNew(BicycleInput,
		quantity.New(0, quantity.Acceleration),
		quantity.Of(unit.Angle(0.2)),
	)
}

// slip returns the slip angle of the centre of mass for a front steering angle.
func (b *Bicycle) slip(steering quantity.Quantity) quantity.Quantity {
	ratio := quantity.Of(b.Lr).Div(quantity.Of(b.Lf).Add(quantity.Of(b.Lr)))
	return quantity.Atan(ratio.Mul(quantity.Tan(steering)))
}

// Evaluate implements system.Evaluator with dimension-checked arithmetic.
func (b *Bicycle) Evaluate(x, u statespace.Vector, _ time.Duration) (statespace.Vector, error) {
	v := x.Get(bikeV)
	beta := b.slip(u.Get(bikeSteering))
	heading := x.Get(bikeYaw).Add(beta)
	radian := quantity.Of(unit.Angle(1))

	return statespace.New(x.Schema().Derivative(1),
		v.Mul(quantity.Cos(heading)),
		v.Mul(quantity.Sin(heading)),
		v.Div(quantity.Of(b.Lr)).Mul(quantity.Sin(beta)).Mul(radian),
		u.Get(bikeA),
	)
}

// External returns the dynamics in bind-then-mutate form on raw SI values.
func (b *Bicycle) External() system.ExternalFunc {
	return func(u statespace.Vector) system.MutateFunc {
		lf, lr := float64(b.Lf), float64(b.Lr)
		a := u.Float(bikeA)
		beta := math.Atan(lr / (lf + lr) * math.Tan(u.Float(bikeSteering)))

		return func(x statespace.Vector, dxdt *statespace.Vector, _ time.Duration) error {
			v := x.Float(bikeV)
			heading := x.Float(bikeYaw) + beta
			dxdt.SetFloat(bikeX, v*math.Cos(heading))
			dxdt.SetFloat(bikeY, v*math.Sin(heading))
			dxdt.SetFloat(bikeYaw, v/lr*math.Sin(beta))
			dxdt.SetFloat(bikeV, a)
			return nil
		}
	}
}

func (b *Bicycle) GetParams() map[string]float64 {
	return map[string]float64{
		"lf": float64(b.Lf),
		"lr": float64(b.Lr),
	}
}

func (b *Bicycle) SetParam(name string, value float64) error {
	if value <= 0 {
		return fmt.Errorf("param %s must be positive, got %g", name, value)
	}
	switch name {
	case "lf":
		b.Lf = unit.Length(value)
	case "lr":
		b.Lr = unit.Length(value)
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}
