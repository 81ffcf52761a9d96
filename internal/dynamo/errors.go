package dynamo

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Domain errors for state-space construction and integration.
var (
	// ErrShape indicates a vector or schema built with the wrong field count or layout.
	ErrShape = errors.New("dynamo: shape mismatch")

	// ErrKeyNotFound indicates access by a field name that is not part of a schema.
	ErrKeyNotFound = errors.New("dynamo: field not found")

	// ErrDimensionMismatch indicates arithmetic between incompatible physical dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch")

	// ErrTransitionShape indicates a transition function matching neither or both accepted forms.
	ErrTransitionShape = errors.New("dynamo: transition function has unsupported shape")

	// ErrStepperShape indicates a stepper implementing neither Step nor DoStep.
	ErrStepperShape = errors.New("dynamo: stepper has unsupported shape")

	// ErrInvalidSpan indicates a negative span or a non-positive step for a non-empty span.
	ErrInvalidSpan = errors.New("dynamo: invalid span or step")

	// ErrInvalidState indicates a state vector holding NaN or Inf values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrExhausted indicates an advance requested on a trajectory that reached its span.
	ErrExhausted = errors.New("dynamo: trajectory exhausted")

	// ErrContextCanceled indicates the run was interrupted.
	ErrContextCanceled = errors.New("dynamo: simulation canceled by context")
)

// ShapeError reports a vector constructed with the wrong number of values or a
// schema with an invalid field list.
type ShapeError struct {
	Schema string
	Want   int
	Got    int
	Reason string
}

func (e *ShapeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("dynamo: shape mismatch for %s: %s", e.Schema, e.Reason)
	}
	return fmt.Sprintf("dynamo: shape mismatch for %s: want %d values, got %d", e.Schema, e.Want, e.Got)
}

func (e *ShapeError) Unwrap() error {
	return ErrShape
}

// KeyNotFoundError reports a field name missing from a schema.
type KeyNotFoundError struct {
	Key    string
	Schema string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("dynamo: field %q not found in %s", e.Key, e.Schema)
}

func (e *KeyNotFoundError) Unwrap() error {
	return ErrKeyNotFound
}

// DimensionMismatchError reports an operation whose operands carry different
// physical dimensions.
type DimensionMismatchError struct {
	Op    string
	Left  string
	Right string
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dynamo: dimension mismatch in %s: %s vs %s", e.Op, e.Left, e.Right)
}

func (e *DimensionMismatchError) Unwrap() error {
	return ErrDimensionMismatch
}

// TransitionShapeError reports a transition function that could not be
// classified into exactly one calling form.
type TransitionShapeError struct {
	Type    string
	Matched []string
}

func (e *TransitionShapeError) Error() string {
	if len(e.Matched) == 0 {
		return fmt.Sprintf("dynamo: transition function %s matches no accepted form", e.Type)
	}
	return fmt.Sprintf("dynamo: transition function %s is ambiguous, matches %s", e.Type, strings.Join(e.Matched, " and "))
}

func (e *TransitionShapeError) Unwrap() error {
	return ErrTransitionShape
}

// SimulationError wraps an error with the trajectory position it occurred at.
type SimulationError struct {
	Step    int
	Elapsed time.Duration
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%v): %v", e.Step, e.Elapsed, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
