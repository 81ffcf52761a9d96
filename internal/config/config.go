// Package config loads and saves integration scenarios as YAML.
package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultModel   = "bicycle"
	DefaultStepper = "rk4"
	DefaultForm    = "direct"
	DefaultStep    = 100 * time.Millisecond
	DefaultSpan    = 3 * time.Second
)

// Config describes one scenario. State, Input and Params are keyed by field
// or parameter name and hold raw SI values; fields left out keep the model's
// defaults.
type Config struct {
	Model         string             `yaml:"model"`
	Stepper       string             `yaml:"stepper"`
	Form          string             `yaml:"form"`
	Step          time.Duration      `yaml:"step"`
	Span          time.Duration      `yaml:"span"`
	ValidateState bool               `yaml:"validate,omitempty"`
	State         map[string]float64 `yaml:"state,omitempty"`
	Input         map[string]float64 `yaml:"input,omitempty"`
	Params        map[string]float64 `yaml:"params,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:   DefaultModel,
		Stepper: DefaultStepper,
		Form:    DefaultForm,
		Step:    DefaultStep,
		Span:    DefaultSpan,
	}
}

// Parse decodes YAML on top of DefaultConfig.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the fields that can be checked without a model registry.
func (c *Config) Validate() error {
	var errs []error
	if c.Model == "" {
		errs = append(errs, errors.New("model is required"))
	}
	if c.Span < 0 {
		errs = append(errs, fmt.Errorf("span must not be negative, got %v", c.Span))
	}
	if c.Span > 0 && c.Step <= 0 {
		errs = append(errs, fmt.Errorf("step must be positive, got %v", c.Step))
	}
	return errors.Join(errs...)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.State = maps.Clone(c.State)
	out.Input = maps.Clone(c.Input)
	out.Params = maps.Clone(c.Params)
	return &out
}
