// Package experiment assembles a runnable scenario from a config.Config.
package experiment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/statespace/internal/config"
	"github.com/san-kum/statespace/internal/logging"
	"github.com/san-kum/statespace/internal/models"
	"github.com/san-kum/statespace/internal/statespace"
	"github.com/san-kum/statespace/internal/system"
	"github.com/san-kum/statespace/internal/trajectory"
)

// Experiment is a fully resolved scenario: model, system, stepper, initial
// state and input.
type Experiment struct {
	cfg    *config.Config
	model  models.Model
	sys    *system.System
	runner *trajectory.Runner
	x0     statespace.Vector
	u      statespace.Vector
}

// New resolves cfg against the registry. Unknown names, unknown state or
// input fields, and bad parameters are reported here, before any integration.
func New(reg *Registry, cfg *config.Config) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	model, err := reg.GetModel(cfg.Model)
	if err != nil {
		return nil, err
	}
	if err := models.ApplyParams(model, cfg.Params); err != nil {
		return nil, err
	}

	form, err := system.ParseForm(cfg.Form)
	if err != nil {
		return nil, err
	}
	sys, err := models.NewSystem(model, form)
	if err != nil {
		return nil, err
	}

	st, err := reg.GetStepper(cfg.Stepper)
	if err != nil {
		return nil, err
	}

	x0, err := overlay(model.DefaultState(), cfg.State)
	if err != nil {
		return nil, fmt.Errorf("state: %w", err)
	}
	u, err := overlay(model.DefaultInput(), cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("input: %w", err)
	}

	runner := trajectory.NewRunner(sys, st)
	for _, m := range reg.DefaultMetrics(model) {
		runner.AddMetric(m)
	}

	return &Experiment{
		cfg:    cfg.Clone(),
		model:  model,
		sys:    sys,
		runner: runner,
		x0:     x0,
		u:      u,
	}, nil
}

func overlay(base statespace.Vector, values map[string]float64) (statespace.Vector, error) {
	out := base.Clone()
	for name, v := range values {
		k, err := out.Schema().Key(name)
		if err != nil {
			return statespace.Vector{}, err
		}
		out.SetFloat(k, v)
	}
	return out, nil
}

// SetLogger routes run diagnostics to l, tagged with the scenario.
func (e *Experiment) SetLogger(l *slog.Logger) {
	e.runner.SetLogger(logging.WithScenario(l, e.cfg.Model, e.cfg.Stepper, e.cfg.Form))
}

// AddObserver attaches an observer to the underlying runner.
func (e *Experiment) AddObserver(o trajectory.Observer) { e.runner.AddObserver(o) }

func (e *Experiment) Model() models.Model             { return e.model }
func (e *Experiment) System() *system.System          { return e.sys }
func (e *Experiment) InitialState() statespace.Vector { return e.x0.Clone() }
func (e *Experiment) Input() statespace.Vector        { return e.u.Clone() }
func (e *Experiment) Config() *config.Config          { return e.cfg.Clone() }

// Run collects the whole trajectory.
func (e *Experiment) Run(ctx context.Context) (*trajectory.Result, error) {
	return e.runner.Run(ctx, e.x0, e.u, trajectory.Config{
		Step:          e.cfg.Step,
		Span:          e.cfg.Span,
		ValidateState: e.cfg.ValidateState,
	})
}

// Iterator returns a fresh lazy iterator over the scenario.
func (e *Experiment) Iterator(reg *Registry) (*trajectory.Iterator, error) {
	st, err := reg.GetStepper(e.cfg.Stepper)
	if err != nil {
		return nil, err
	}
	return trajectory.New(e.sys, st, e.x0, e.u, e.cfg.Span, e.cfg.Step)
}

// Job returns an ensemble job for this experiment.
func (e *Experiment) Job(name string) trajectory.Job {
	return trajectory.Job{
		Name:   name,
		Runner: e.runner,
		X0:     e.x0,
		U:      e.u,
		Config: trajectory.Config{Step: e.cfg.Step, Span: e.cfg.Span, ValidateState: e.cfg.ValidateState},
	}
}
