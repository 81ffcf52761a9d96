// Package models provides ready-made dynamical systems with dimensioned
// state and input schemas.
package models

import (
	"fmt"
	"sort"

	"github.com/san-kum/statespace/internal/statespace"
	"github.com/san-kum/statespace/internal/system"
)

const (
	DefaultMass    = 1.0
	DefaultLength  = 1.0
	DefaultGravity = 9.81
)

// Model is a dynamical system that can be supplied to system.New in either
// calling form.
type Model interface {
	system.Evaluator

	Name() string
	State() *statespace.Schema
	Input() *statespace.Schema

	// External returns the same dynamics in bind-then-mutate form.
	External() system.ExternalFunc

	DefaultState() statespace.Vector
	DefaultInput() statespace.Vector
}

// Configurable models expose named scalar parameters.
type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// Hamiltonian models report the total mechanical energy of a state in joules.
type Hamiltonian interface {
	Energy(x statespace.Vector) float64
}

// NewSystem wraps m in a System using the requested form.
func NewSystem(m Model, form system.Form) (*system.System, error) {
	switch form {
	case system.FormDirect:
		return system.New(m.State(), m.Input(), system.TransitionFunc(m.Evaluate))
	case system.FormExternal:
		return system.New(m.State(), m.Input(), m.External())
	}
	return nil, fmt.Errorf("model %s: unsupported form %v", m.Name(), form)
}

// ApplyParams sets every entry of params on m. Models without parameters
// reject a non-empty map.
func ApplyParams(m Model, params map[string]float64) error {
	if len(params) == 0 {
		return nil
	}
	c, ok := m.(Configurable)
	if !ok {
		return fmt.Errorf("model %s has no parameters", m.Name())
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := c.SetParam(name, params[name]); err != nil {
			return fmt.Errorf("model %s: %w", m.Name(), err)
		}
	}
	return nil
}
