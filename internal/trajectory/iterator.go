// Package trajectory integrates a system over a time span.
//
// An Iterator produces the trajectory lazily, one step per advance. Runner
// collects a whole trajectory and feeds metrics and observers, and
// RunEnsemble runs independent trajectories concurrently.
package trajectory

import (
	"fmt"
	"iter"
	"time"

	"github.com/san-kum/statespace/internal/dynamo"
	"github.com/san-kum/statespace/internal/statespace"
	"github.com/san-kum/statespace/internal/stepper"
	"github.com/san-kum/statespace/internal/system"
)

// Iterator is a single-pass, forward-only walk along a trajectory. The input
// is fixed for the whole span. An Iterator is not safe for concurrent use.
type Iterator struct {
	kind stepper.Kind
	vs   stepper.ValueStepper
	ms   stepper.MutatingStepper
	f    stepper.Func
	mf   stepper.MutateFunc

	x       statespace.Vector
	span    time.Duration
	step    time.Duration
	elapsed time.Duration
	steps   int
	err     error

	sentinel bool
}

// New returns an iterator positioned at elapsed zero. The stepper is
// classified once here. x0 and u are copied.
//
// A zero span yields an iterator that is already at its end. A negative span,
// or a positive span with a non-positive step, is dynamo.ErrInvalidSpan.
func New(sys *system.System, st any, x0, u statespace.Vector, span, step time.Duration) (*Iterator, error) {
	if span < 0 || (span > 0 && step <= 0) {
		return nil, fmt.Errorf("%w: span=%v step=%v", dynamo.ErrInvalidSpan, span, step)
	}
	if !sys.State().Equal(x0.Schema()) {
		return nil, &dynamo.ShapeError{Schema: sys.State().String(), Reason: "initial state has schema " + x0.Schema().String()}
	}
	if !sys.Input().Equal(u.Schema()) {
		return nil, &dynamo.ShapeError{Schema: sys.Input().String(), Reason: "input has schema " + u.Schema().String()}
	}

	kind, err := stepper.Classify(st)
	if err != nil {
		return nil, err
	}

	it := &Iterator{
		kind: kind,
		x:    x0.Clone(),
		span: span,
		step: step,
	}
	switch kind {
	case stepper.KindValue:
		it.vs = st.(stepper.ValueStepper)
		it.f = sys.Func(u)
	case stepper.KindMutating:
		it.ms = st.(stepper.MutatingStepper)
		it.mf = stepper.MutateFunc(sys.Adapt(u))
	}
	return it, nil
}

// End returns the end-of-range sentinel. It compares equal to any iterator
// that is at its end.
func End() *Iterator {
	return &Iterator{sentinel: true}
}

// AtEnd reports whether elapsed has reached the span.
func (it *Iterator) AtEnd() bool {
	return it.sentinel || it.elapsed >= it.span
}

// Current returns the elapsed time and state of the latest sample. Vectors
// are values, so neither later advances nor changes made by the caller reach
// the other side.
func (it *Iterator) Current() (time.Duration, statespace.Vector) {
	return it.elapsed, it.x
}

// Steps returns the number of completed advances.
func (it *Iterator) Steps() int { return it.steps }

// Span returns the configured span.
func (it *Iterator) Span() time.Duration { return it.span }

// Err returns the error that stopped Next, if any.
func (it *Iterator) Err() error { return it.err }

// Advance applies exactly one stepper operation. The final step is clipped
// so the last sample lands exactly on the span. Advancing an iterator at its
// end returns dynamo.ErrExhausted.
func (it *Iterator) Advance() error {
	if it.err != nil {
		return it.err
	}
	if it.AtEnd() {
		return dynamo.ErrExhausted
	}

	dt := it.step
	if rest := it.span - it.elapsed; dt > rest {
		dt = rest
	}

	var err error
	switch it.kind {
	case stepper.KindValue:
		var next statespace.Vector
		if next, err = it.vs.Step(it.f, it.x, it.elapsed, dt); err == nil {
			it.x = next
		}
	case stepper.KindMutating:
		next := it.x.Clone()
		if err = it.ms.DoStep(it.mf, &next, it.elapsed, dt); err == nil {
			it.x = next
		}
	}
	if err != nil {
		it.err = &dynamo.SimulationError{Step: it.steps, Elapsed: it.elapsed, Wrapped: err}
		return it.err
	}

	it.elapsed += dt
	it.steps++
	return nil
}

// Next advances and reports whether a new sample is available. It returns
// false at the end of the span or after an error; check Err to tell them
// apart.
func (it *Iterator) Next() bool {
	if it.err != nil || it.AtEnd() {
		return false
	}
	return it.Advance() == nil
}

// All yields every remaining sample in order:
//
//	for t, x := range it.All() {
//		fmt.Printf("t=%v: %v\n", t, x)
//	}
//	if err := it.Err(); err != nil { ... }
func (it *Iterator) All() iter.Seq2[time.Duration, statespace.Vector] {
	return func(yield func(time.Duration, statespace.Vector) bool) {
		for it.Next() {
			if !yield(it.Current()) {
				return
			}
		}
	}
}

// Equal compares positions only. A nil iterator stands for the End
// sentinel. If either side is the sentinel the result is whether both are at
// their end; otherwise span, step and elapsed must match. State and input are
// not compared, so Equal is meant for end-of-range checks, not for comparing
// trajectories.
func (it *Iterator) Equal(o *Iterator) bool {
	if it == nil || o == nil || it.sentinel || o.sentinel {
		return finished(it) && finished(o)
	}
	return it.span == o.span && it.step == o.step && it.elapsed == o.elapsed
}

func finished(it *Iterator) bool {
	return it == nil || it.AtEnd()
}
