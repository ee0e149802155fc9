// Package main provides CMA-ES optimization for murmur simulation parameters.
package main

import (
	"github.com/pthm-cable/murmur/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Flocking rules (max_speed locked at 4.0, field_of_view locked at 270)
			{Name: "max_force", Path: "flocking.max_force", Min: 0.1, Max: 0.6, Default: 0.25},
			{Name: "perception_radius", Path: "flocking.perception_radius", Min: 25, Max: 100, Default: 50},
			{Name: "separation_radius", Path: "flocking.separation_radius", Min: 10, Max: 45, Default: 25},
			{Name: "alignment_weight", Path: "flocking.alignment_weight", Min: 0.3, Max: 2.5, Default: 1.0},
			{Name: "cohesion_weight", Path: "flocking.cohesion_weight", Min: 0.3, Max: 2.5, Default: 1.0},
			{Name: "separation_weight", Path: "flocking.separation_weight", Min: 0.5, Max: 3.0, Default: 1.5},
			{Name: "noise_strength", Path: "flocking.noise_strength", Min: 0.0, Max: 1.0, Default: 0.3},
			{Name: "wander_strength", Path: "flocking.wander_strength", Min: 0.0, Max: 0.2, Default: 0.05},
			// Wind (direction locked, irrelevant on a symmetric world)
			{Name: "wind_turbulence", Path: "wind.turbulence", Min: 0.0, Max: 1.5, Default: 0.5},
			// Panic (decay locked at 0.98 so recovery time stays comparable)
			{Name: "panic_radius", Path: "panic.radius", Min: 60, Max: 200, Default: 120},
			{Name: "contagion_threshold", Path: "panic.contagion_threshold", Min: 0.1, Max: 0.8, Default: 0.4},
			{Name: "contagion_fraction", Path: "panic.contagion_fraction", Min: 0.2, Max: 1.0, Default: 0.6},
			// Energy
			{Name: "drain_rate", Path: "energy.drain_rate", Min: 0.01, Max: 0.10, Default: 0.04},
			{Name: "panic_drain", Path: "energy.panic_drain", Min: 0.05, Max: 0.30, Default: 0.15},
			{Name: "regen_rate", Path: "energy.regen_rate", Min: 0.02, Max: 0.15, Default: 0.06},
			// Predator pressure
			{Name: "pred_speed", Path: "predator.speed", Min: 0.8, Max: 1.3, Default: 1.0},
			{Name: "pred_aggression", Path: "predator.aggression", Min: 0.3, Max: 1.0, Default: 0.7},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
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
		val := v[i]
		if val < spec.Min {
			val = spec.Min
		}
		if val > spec.Max {
			val = spec.Max
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	// Clamp values to ensure they're within bounds
	clamped := pv.Clamp(values)

	// Apply each parameter to the config
	// Order must match Specs order
	i := 0

	// Flocking (max_speed and field_of_view locked)
	cfg.Flocking.MaxSpeed = 4.0
	cfg.Flocking.FieldOfView = 270
	cfg.Flocking.MaxForce = clamped[i]; i++
	cfg.Flocking.PerceptionRadius = clamped[i]; i++
	cfg.Flocking.SeparationRadius = clamped[i]; i++
	cfg.Flocking.AlignmentWeight = clamped[i]; i++
	cfg.Flocking.CohesionWeight = clamped[i]; i++
	cfg.Flocking.SeparationWeight = clamped[i]; i++
	cfg.Flocking.NoiseStrength = clamped[i]; i++
	cfg.Flocking.WanderStrength = clamped[i]; i++

	// Wind
	cfg.Wind.Turbulence = clamped[i]; i++

	// Panic (decay locked)
	cfg.Panic.Decay = 0.98
	cfg.Panic.Radius = clamped[i]; i++
	cfg.Panic.ContagionThreshold = clamped[i]; i++
	cfg.Panic.ContagionFraction = clamped[i]; i++

	// Energy
	cfg.Energy.DrainRate = clamped[i]; i++
	cfg.Energy.PanicDrain = clamped[i]; i++
	cfg.Energy.RegenRate = clamped[i]; i++

	// Predator
	cfg.Predator.Speed = clamped[i]; i++
	cfg.Predator.Aggression = clamped[i]

	cfg.ComputeDerived()
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		// Flocking (max_speed and field_of_view locked)
		cfg.Flocking.MaxForce,
		cfg.Flocking.PerceptionRadius,
		cfg.Flocking.SeparationRadius,
		cfg.Flocking.AlignmentWeight,
		cfg.Flocking.CohesionWeight,
		cfg.Flocking.SeparationWeight,
		cfg.Flocking.NoiseStrength,
		cfg.Flocking.WanderStrength,
		// Wind
		cfg.Wind.Turbulence,
		// Panic (decay locked)
		cfg.Panic.Radius,
		cfg.Panic.ContagionThreshold,
		cfg.Panic.ContagionFraction,
		// Energy
		cfg.Energy.DrainRate,
		cfg.Energy.PanicDrain,
		cfg.Energy.RegenRate,
		// Predator
		cfg.Predator.Speed,
		cfg.Predator.Aggression,
	}
}
