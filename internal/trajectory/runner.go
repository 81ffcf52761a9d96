package trajectory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/san-kum/statespace/internal/dynamo"
	"github.com/san-kum/statespace/internal/logging"
	"github.com/san-kum/statespace/internal/statespace"
	"github.com/san-kum/statespace/internal/system"
)

// Metric accumulates a scalar over the samples of one run.
type Metric interface {
	Name() string
	Observe(t time.Duration, x, u statespace.Vector)
	Value() float64
	Reset()
}

// Observer is notified of every sample of a run.
type Observer interface {
	OnStep(t time.Duration, x, u statespace.Vector)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(t time.Duration, x, u statespace.Vector)

func (f ObserverFunc) OnStep(t time.Duration, x, u statespace.Vector) { f(t, x, u) }

// Config controls one run.
type Config struct {
	Step time.Duration
	Span time.Duration

	// ValidateState stops the run at the first sample holding NaN or Inf.
	ValidateState bool
}

// Sample is one point of a trajectory.
type Sample struct {
	Elapsed time.Duration
	State   statespace.Vector
}

// Result is a collected trajectory. Samples[0] is the initial state at
// elapsed zero; the remaining samples are the ones the iterator produced.
type Result struct {
	Samples    []Sample
	Metrics    map[string]float64
	StepsTaken int
}

// Final returns the last sample.
func (r *Result) Final() Sample {
	return r.Samples[len(r.Samples)-1]
}

// Runner drives an Iterator to completion for a fixed system and stepper.
// Metrics are stateful, so a Runner must not be shared between concurrent
// runs.
type Runner struct {
	sys       *system.System
	stepper   any
	metrics   []Metric
	observers []Observer
	logger    *slog.Logger
}

func NewRunner(sys *system.System, st any) *Runner {
	return &Runner{
		sys:       sys,
		stepper:   st,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
		logger:    logging.Discard(),
	}
}

func (r *Runner) AddMetric(m Metric)     { r.metrics = append(r.metrics, m) }
func (r *Runner) AddObserver(o Observer) { r.observers = append(r.observers, o) }

// SetLogger sets the logger used for run diagnostics.
func (r *Runner) SetLogger(l *slog.Logger) {
	if l != nil {
		r.logger = l
	}
}

// System returns the system being integrated.
func (r *Runner) System() *system.System { return r.sys }

// Run integrates x0 under the constant input u. On cancellation or an
// invalid state the partial result is returned together with the error.
func (r *Runner) Run(ctx context.Context, x0, u statespace.Vector, cfg Config) (*Result, error) {
	it, err := New(r.sys, r.stepper, x0, u, cfg.Span, cfg.Step)
	if err != nil {
		return nil, err
	}

	capacity := 1
	if cfg.Step > 0 {
		capacity += int((cfg.Span + cfg.Step - 1) / cfg.Step)
	}
	result := &Result{
		Samples: make([]Sample, 0, capacity),
		Metrics: make(map[string]float64),
	}

	for _, m := range r.metrics {
		m.Reset()
	}

	r.logger.Debug("run started",
		"state", r.sys.State().String(),
		"stepper", fmt.Sprintf("%T", r.stepper),
		"span", cfg.Span,
		"step", cfg.Step)
	started := time.Now()

	t, x := it.Current()
	r.record(result, t, x, u)

	for !it.AtEnd() {
		select {
		case <-ctx.Done():
			r.finish(result)
			return result, fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, ctx.Err())
		default:
		}

		if err := it.Advance(); err != nil {
			r.finish(result)
			return result, err
		}
		result.StepsTaken++

		t, x = it.Current()
		if cfg.ValidateState && !x.IsValid() {
			r.finish(result)
			return result, &dynamo.SimulationError{Step: it.Steps(), Elapsed: t, Wrapped: dynamo.ErrInvalidState}
		}
		r.record(result, t, x, u)
		if r.logger.Enabled(ctx, logging.LevelTrace) {
			r.logger.Log(ctx, logging.LevelTrace, "step", "t", t, "state", x.String())
		}
	}

	r.finish(result)
	r.logger.Debug("run finished",
		"steps", result.StepsTaken,
		"duration", time.Since(started))
	return result, nil
}

func (r *Runner) record(result *Result, t time.Duration, x, u statespace.Vector) {
	result.Samples = append(result.Samples, Sample{Elapsed: t, State: x})
	for _, m := range r.metrics {
		m.Observe(t, x, u)
	}
	for _, obs := range r.observers {
		obs.OnStep(t, x, u)
	}
}

func (r *Runner) finish(result *Result) {
	for _, m := range r.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}
