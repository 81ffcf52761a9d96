package config

import (
	"sort"
	"time"
)

var Presets = map[string]map[string]*Config{
	"bicycle": {
		"scenario": {
			Model: "bicycle", Stepper: "rk4", Step: 100 * time.Millisecond, Span: 3 * time.Second,
			State: map[string]float64{"v": 10},
			Input: map[string]float64{"a": 0, "steering": 0.2},
		},
		"straight": {
			Model: "bicycle", Stepper: "rk4", Step: 100 * time.Millisecond, Span: 5 * time.Second,
			State: map[string]float64{"v": 10},
			Input: map[string]float64{"steering": 0},
		},
		"braking": {
			Model: "bicycle", Stepper: "rk4", Step: 50 * time.Millisecond, Span: 4 * time.Second,
			State: map[string]float64{"v": 15},
			Input: map[string]float64{"a": -3, "steering": 0.05},
		},
		"tight_turn": {
			Model: "bicycle", Stepper: "rk4", Step: 20 * time.Millisecond, Span: 6 * time.Second,
			State: map[string]float64{"v": 5},
			Input: map[string]float64{"steering": 0.5},
		},
	},
	"pendulum": {
		"small": {
			Model: "pendulum", Stepper: "rk4", Step: 10 * time.Millisecond, Span: 20 * time.Second,
			State: map[string]float64{"theta": 0.2, "omega": 0},
		},
		"large": {
			Model: "pendulum", Stepper: "rk4", Step: 10 * time.Millisecond, Span: 20 * time.Second,
			State: map[string]float64{"theta": 2.5, "omega": 0},
		},
		"spinning": {
			Model: "pendulum", Stepper: "rk4", Step: 10 * time.Millisecond, Span: 30 * time.Second,
			State: map[string]float64{"theta": 0.1, "omega": 8},
		},
		"undamped": {
			Model: "pendulum", Stepper: "rk4", Step: 10 * time.Millisecond, Span: 20 * time.Second,
			State:  map[string]float64{"theta": 1},
			Params: map[string]float64{"damping": 0},
		},
	},
	"spring_mass": {
		"bounce": {
			Model: "spring_mass", Stepper: "rk4", Step: 10 * time.Millisecond, Span: 20 * time.Second,
			State: map[string]float64{"pos": 2, "vel": 0},
		},
		"fast": {
			Model: "spring_mass", Stepper: "rk4", Step: 10 * time.Millisecond, Span: 10 * time.Second,
			State: map[string]float64{"pos": 1, "vel": 5},
		},
		"driven": {
			Model: "spring_mass", Stepper: "euler", Form: "external", Step: time.Millisecond, Span: 10 * time.Second,
			State: map[string]float64{"pos": 0},
			Input: map[string]float64{"force": 5},
		},
	},
}

// GetPreset returns a copy of the named preset, or nil if there is none.
func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	out := cfg.Clone()
	if out.Form == "" {
		out.Form = DefaultForm
	}
	return out
}

// ListPresets returns the preset names for model in sorted order.
func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
