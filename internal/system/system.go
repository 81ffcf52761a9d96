// Package system normalises a user transition function into one evaluation
// contract.
//
// A transition function is accepted in one of two forms. The direct form
// (Evaluator, TransitionFunc) returns the state derivative by value. The
// external form (External, ExternalFunc) binds an input and returns a
// MutateFunc that writes the derivative into a caller-owned vector. New
// classifies the function once; afterwards Evaluate and Adapt serve both
// stepper kinds regardless of which form was supplied.
package system

import (
	"fmt"
	"time"

	"github.com/san-kum/statespace/internal/dynamo"
	"github.com/san-kum/statespace/internal/quantity"
	"github.com/san-kum/statespace/internal/statespace"
)

// Form identifies which calling convention a transition function satisfied.
type Form int

const (
	// FormExternal is the bind-then-mutate form.
	FormExternal Form = iota + 1
	// FormDirect is the value-returning form.
	FormDirect
)

func (f Form) String() string {
	switch f {
	case FormExternal:
		return "external"
	case FormDirect:
		return "direct"
	default:
		return fmt.Sprintf("Form(%d)", int(f))
	}
}

// ParseForm maps "external" or "direct" to a Form.
func ParseForm(s string) (Form, error) {
	switch s {
	case "external", "mutate":
		return FormExternal, nil
	case "direct", "":
		return FormDirect, nil
	}
	return 0, fmt.Errorf("unknown transition form %q", s)
}

// MutateFunc writes the derivative of x at time t into dxdt.
type MutateFunc func(x statespace.Vector, dxdt *statespace.Vector, t time.Duration) error

// Evaluator is the direct form.
type Evaluator interface {
	Evaluate(x, u statespace.Vector, t time.Duration) (statespace.Vector, error)
}

// TransitionFunc adapts a plain function to Evaluator.
type TransitionFunc func(x, u statespace.Vector, t time.Duration) (statespace.Vector, error)

func (f TransitionFunc) Evaluate(x, u statespace.Vector, t time.Duration) (statespace.Vector, error) {
	return f(x, u, t)
}

// External is the bind-then-mutate form.
type External interface {
	Bind(u statespace.Vector) MutateFunc
}

// ExternalFunc adapts a plain function to External.
type ExternalFunc func(u statespace.Vector) MutateFunc

func (f ExternalFunc) Bind(u statespace.Vector) MutateFunc { return f(u) }

// System is an immutable pairing of state and input schemas with a
// classified transition function.
type System struct {
	state *statespace.Schema
	input *statespace.Schema
	deriv *statespace.Schema

	form     Form
	direct   Evaluator
	external External
}

// New classifies tf and returns the System. tf must satisfy exactly one
// form; otherwise the error is a *dynamo.TransitionShapeError.
func New(state, input *statespace.Schema, tf any) (*System, error) {
	if state == nil || input == nil {
		return nil, &dynamo.ShapeError{Schema: "system", Reason: "state and input schemas are required"}
	}

	direct, isDirect := asDirect(tf)
	external, isExternal := asExternal(tf)

	s := &System{
		state: state,
		input: input,
		deriv: state.Derivative(1),
	}

	switch {
	case isDirect && isExternal:
		return nil, &dynamo.TransitionShapeError{
			Type:    fmt.Sprintf("%T", tf),
			Matched: []string{FormDirect.String(), FormExternal.String()},
		}
	case isDirect:
		s.form, s.direct = FormDirect, direct
	case isExternal:
		s.form, s.external = FormExternal, external
	default:
		return nil, &dynamo.TransitionShapeError{Type: fmt.Sprintf("%T", tf)}
	}
	return s, nil
}

// MustNew is New that panics on error.
func MustNew(state, input *statespace.Schema, tf any) *System {
	s, err := New(state, input, tf)
	if err != nil {
		panic(err)
	}
	return s
}

func asDirect(tf any) (Evaluator, bool) {
	switch f := tf.(type) {
	case nil:
		return nil, false
	case func(x, u statespace.Vector, t time.Duration) (statespace.Vector, error):
		return TransitionFunc(f), true
	case Evaluator:
		return f, true
	}
	return nil, false
}

func asExternal(tf any) (External, bool) {
	switch f := tf.(type) {
	case nil:
		return nil, false
	case func(u statespace.Vector) MutateFunc:
		return ExternalFunc(f), true
	case func(u statespace.Vector) func(statespace.Vector, *statespace.Vector, time.Duration) error:
		return ExternalFunc(func(u statespace.Vector) MutateFunc { return f(u) }), true
	case External:
		return f, true
	}
	return nil, false
}

// Form reports which form the transition function was classified as.
func (s *System) Form() Form { return s.form }

// State returns the state schema.
func (s *System) State() *statespace.Schema { return s.state }

// Input returns the input schema.
func (s *System) Input() *statespace.Schema { return s.input }

// Derivative returns the schema of the state derivative.
func (s *System) Derivative() *statespace.Schema { return s.deriv }

// Evaluate returns dx/dt at (x, u, t). Dimension panics raised inside the
// transition function come back as *dynamo.DimensionMismatchError. For the
// external form each call binds u afresh; use Func or Adapt to bind once per
// trajectory.
func (s *System) Evaluate(x, u statespace.Vector, t time.Duration) (dxdt statespace.Vector, err error) {
	if err := check(s.state, x, "state"); err != nil {
		return statespace.Vector{}, err
	}

	if s.form == FormExternal {
		bound, err := s.bind(u)
		if err != nil {
			return statespace.Vector{}, err
		}
		return s.evaluateBound(bound, x, t)
	}

	if err := check(s.input, u, "input"); err != nil {
		return statespace.Vector{}, err
	}
	defer quantity.Recover(&err)

	dxdt, err = s.direct.Evaluate(x, u, t)
	if err != nil {
		return statespace.Vector{}, err
	}
	if err := s.checkDerivative(dxdt); err != nil {
		return statespace.Vector{}, err
	}
	return dxdt, nil
}

// Func binds u and returns the function of (t, x) a value-returning stepper
// integrates. For the external form the user function is bound once, here.
func (s *System) Func(u statespace.Vector) func(t time.Duration, x statespace.Vector) (statespace.Vector, error) {
	if s.form == FormExternal {
		bound, err := s.bind(u)
		return func(t time.Duration, x statespace.Vector) (statespace.Vector, error) {
			if err != nil {
				return statespace.Vector{}, err
			}
			if err := check(s.state, x, "state"); err != nil {
				return statespace.Vector{}, err
			}
			return s.evaluateBound(bound, x, t)
		}
	}

	return func(t time.Duration, x statespace.Vector) (statespace.Vector, error) {
		return s.Evaluate(x, u, t)
	}
}

// Adapt binds u and returns the closure a mutate-in-place stepper drives.
// For the external form the user function is bound once, here.
func (s *System) Adapt(u statespace.Vector) MutateFunc {
	if s.form == FormExternal {
		bound, err := s.bind(u)
		return func(x statespace.Vector, dxdt *statespace.Vector, t time.Duration) error {
			if err != nil {
				return err
			}
			if err := check(s.state, x, "state"); err != nil {
				return err
			}
			if err := s.checkDerivative(*dxdt); err != nil {
				return err
			}
			return s.mutate(bound, x, dxdt, t)
		}
	}

	return func(x statespace.Vector, dxdt *statespace.Vector, t time.Duration) error {
		d, err := s.Evaluate(x, u, t)
		if err != nil {
			return err
		}
		*dxdt = d
		return nil
	}
}

// bind checks u and hands it to the external transition function.
func (s *System) bind(u statespace.Vector) (f MutateFunc, err error) {
	if err := check(s.input, u, "input"); err != nil {
		return nil, err
	}
	defer quantity.Recover(&err)
	if f = s.external.Bind(u); f == nil {
		return nil, fmt.Errorf("%w: %T bound a nil function", dynamo.ErrTransitionShape, s.external)
	}
	return f, nil
}

func (s *System) evaluateBound(bound MutateFunc, x statespace.Vector, t time.Duration) (statespace.Vector, error) {
	dxdt := statespace.Zero(s.deriv)
	if err := s.mutate(bound, x, &dxdt, t); err != nil {
		return statespace.Vector{}, err
	}
	return dxdt, nil
}

// mutate runs a bound function and checks what it left in dxdt.
func (s *System) mutate(bound MutateFunc, x statespace.Vector, dxdt *statespace.Vector, t time.Duration) (err error) {
	defer quantity.Recover(&err)
	if err := bound(x, dxdt, t); err != nil {
		return err
	}
	return s.checkDerivative(*dxdt)
}

func (s *System) checkDerivative(d statespace.Vector) error {
	if d.Schema() == s.deriv || s.deriv.Equal(d.Schema()) {
		return nil
	}
	if d.Schema() == nil || d.Len() != s.deriv.Len() {
		return &dynamo.ShapeError{Schema: s.deriv.String(), Want: s.deriv.Len(), Got: d.Len()}
	}
	return &dynamo.DimensionMismatchError{
		Op:    "transition result",
		Left:  d.Schema().String(),
		Right: s.deriv.String(),
	}
}

func check(want *statespace.Schema, v statespace.Vector, role string) error {
	if v.Schema() == want || want.Equal(v.Schema()) {
		return nil
	}
	return &dynamo.ShapeError{
		Schema: want.String(),
		Reason: fmt.Sprintf("%s vector has schema %s", role, v.Schema()),
	}
}
