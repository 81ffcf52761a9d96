package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/statespace/internal/metrics"
	"github.com/san-kum/statespace/internal/models"
	"github.com/san-kum/statespace/internal/stepper"
	"github.com/san-kum/statespace/internal/trajectory"
)

// Registry maps names to model and stepper factories. Factories return fresh
// values so that concurrent experiments never share a model or stepper.
type Registry struct {
	models   map[string]func() models.Model
	steppers map[string]func() any
}

func NewRegistry() *Registry {
	r := &Registry{
		models:   make(map[string]func() models.Model),
		steppers: make(map[string]func() any),
	}

	r.models["bicycle"] = func() models.Model { return models.NewBicycle() }
	r.models["pendulum"] = func() models.Model { return models.NewPendulum() }
	r.models["spring_mass"] = func() models.Model { return models.NewSpringMass() }

	r.steppers["rk4"] = func() any { return stepper.NewRK4() }
	r.steppers["euler"] = func() any { return stepper.NewEuler() }

	return r
}

// RegisterModel adds or replaces a model factory.
func (r *Registry) RegisterModel(name string, fn func() models.Model) {
	r.models[name] = fn
}

// RegisterStepper adds or replaces a stepper factory. The stepper must
// implement Step or DoStep.
func (r *Registry) RegisterStepper(name string, fn func() any) error {
	if _, err := stepper.Classify(fn()); err != nil {
		return fmt.Errorf("stepper %s: %w", name, err)
	}
	r.steppers[name] = fn
	return nil
}

func (r *Registry) GetModel(name string) (models.Model, error) {
	fn, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", name)
	}
	return fn(), nil
}

func (r *Registry) GetStepper(name string) (any, error) {
	fn, ok := r.steppers[name]
	if !ok {
		return nil, fmt.Errorf("unknown stepper: %s", name)
	}
	return fn(), nil
}

func (r *Registry) ListModels() []string {
	return sortedKeys(r.models)
}

func (r *Registry) ListSteppers() []string {
	return sortedKeys(r.steppers)
}

// DefaultMetrics returns the metrics that apply to m.
func (r *Registry) DefaultMetrics(m models.Model) []trajectory.Metric {
	ms := []trajectory.Metric{
		metrics.NewStability(1e6),
		metrics.NewInputEffort(),
	}
	if h, ok := m.(models.Hamiltonian); ok {
		ms = append(ms, metrics.NewEnergyDrift(h))
	}
	if names := m.State().Names(); len(names) > 0 {
		k := m.State().MustKey(names[0])
		ms = append(ms, metrics.NewFieldMin(k), metrics.NewFieldMax(k))
	}
	return ms
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
