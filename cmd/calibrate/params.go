package main

import (
	"fmt"
	"slices"

	"github.com/pthm-cable/steppe/config"
)

// ParamSpec defines a single calibrated parameter.
type ParamSpec struct {
	Name    string // Human-readable name
	Species int    // index into the config species
	Min     float64
	Max     float64
	Default float64
}

// ParamVector holds the calibrated parameters: one establishment probability
// per targeted species.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector builds the parameter set for the targeted species.
func NewParamVector(cfg *config.Config, targets []Target) (*ParamVector, error) {
	pv := &ParamVector{}
	for _, t := range targets {
		i, err := cfg.SpeciesByName(t.Species)
		if err != nil {
			return nil, err
		}
		sp := cfg.Species[i]
		if sp.Disabled {
			return nil, fmt.Errorf("species %q is disabled", sp.Name)
		}
		pv.Specs = append(pv.Specs, ParamSpec{
			Name:    sp.Name + ".estab_prob",
			Species: i,
			Min:     0,
			Max:     1,
			Default: sp.EstabProb,
		})
	}
	return pv, nil
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the configured parameter values.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig returns a copy of base with the clamped values applied. The
// copy shares everything but the species list with base.
func (pv *ParamVector) ApplyToConfig(base *config.Config, values []float64) *config.Config {
	cfg := *base
	cfg.Species = slices.Clone(base.Species)
	for i, v := range pv.Clamp(values) {
		cfg.Species[pv.Specs[i].Species].EstabProb = v
	}
	return &cfg
}
