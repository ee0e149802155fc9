// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters. The loaded value
// is injected into the simulation at construction; there is no package
// global.
type Config struct {
	World      WorldConfig       `yaml:"world"`
	Flocking   FlockingConfig    `yaml:"flocking"`
	Wind       WindConfig        `yaml:"wind"`
	Panic      PanicConfig       `yaml:"panic"`
	Energy     EnergyConfig      `yaml:"energy"`
	Predator   PredatorConfig    `yaml:"predator"`
	Telemetry  TelemetryConfig   `yaml:"telemetry"`
	Bookmarks  BookmarksConfig   `yaml:"bookmarks"`
	Archetypes []ArchetypeConfig `yaml:"archetypes"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds simulation world dimensions and edge behavior.
type WorldConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
	Wrap   bool    `yaml:"wrap"` // toroidal world; boundary force unused when set
}

// FlockingConfig holds the per-tick swarm rule parameters. This struct is
// externally owned: a control layer may mutate it between update calls and
// the simulation reads it each tick.
type FlockingConfig struct {
	AgentCount       int     `yaml:"agent_count"`
	MaxSpeed         float64 `yaml:"max_speed"`         // world units per frame at 60 Hz
	MaxForce         float64 `yaml:"max_force"`
	PerceptionRadius float64 `yaml:"perception_radius"`
	SeparationRadius float64 `yaml:"separation_radius"`
	FieldOfView      float64 `yaml:"field_of_view"` // full view angle in degrees
	AlignmentWeight  float64 `yaml:"alignment_weight"`
	CohesionWeight   float64 `yaml:"cohesion_weight"`
	SeparationWeight float64 `yaml:"separation_weight"`
	NoiseStrength    float64 `yaml:"noise_strength"`
	WanderStrength   float64 `yaml:"wander_strength"`
	BoundaryMargin   float64 `yaml:"boundary_margin"`
	BoundaryForce    float64 `yaml:"boundary_force"`
	SimulationSpeed  float64 `yaml:"simulation_speed"`
	Paused           bool    `yaml:"paused"`
}

// WindConfig holds the directional wind and its turbulence field.
type WindConfig struct {
	Speed      float64 `yaml:"speed"`      // magnitude of the base force term
	Direction  float64 `yaml:"direction"`  // degrees, 0 = +x
	Turbulence float64 `yaml:"turbulence"` // noise force amplitude
	NoiseScale float64 `yaml:"noise_scale"`
	TimeScale  float64 `yaml:"time_scale"`
}

// PanicConfig holds predator fear response parameters.
type PanicConfig struct {
	Radius             float64 `yaml:"radius"` // base scare radius around a predator
	Decay              float64 `yaml:"decay"`  // geometric decay factor per substep
	ContagionThreshold float64 `yaml:"contagion_threshold"`
	ContagionFraction  float64 `yaml:"contagion_fraction"`
}

// EnergyConfig holds the agent exertion model, rates per simulated second.
type EnergyConfig struct {
	DrainRate     float64 `yaml:"drain_rate"`
	PanicDrain    float64 `yaml:"panic_drain"`
	RegenRate     float64 `yaml:"regen_rate"`
	RestThreshold float64 `yaml:"rest_threshold"`
}

// PredatorConfig holds predator deployment parameters.
type PredatorConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Count      int     `yaml:"count"`
	Archetype  string  `yaml:"archetype"`  // empty = rotate through all archetypes
	Speed      float64 `yaml:"speed"`      // global speed multiplier
	Aggression float64 `yaml:"aggression"` // [0,1], shortens idle delay and widens strikes
}

// ScoreWeightsConfig holds one archetype's target scoring weight vector.
type ScoreWeightsConfig struct {
	Isolation float64 `yaml:"isolation"`
	Edge      float64 `yaml:"edge"`
	Velocity  float64 `yaml:"velocity"`
	Panic     float64 `yaml:"panic"`
	Intercept float64 `yaml:"intercept"`
}

// TimeoutsConfig holds one archetype's hard per-state timeouts in seconds.
// Every active state forces a transition when its timeout elapses, so no
// hunting state can stall.
type TimeoutsConfig struct {
	Scan   float64 `yaml:"scan"`
	Stalk  float64 `yaml:"stalk"`
	Hunt   float64 `yaml:"hunt"`
	Attack float64 `yaml:"attack"`
}

// ArchetypeConfig defines one hunting style as pure data: stats, energy
// profile, scoring weights, and the transition style selecting one of the
// engine's transition functions. Adding a style is a config change.
type ArchetypeConfig struct {
	Name  string `yaml:"name"`
	Style string `yaml:"style"` // pursuit, dive, or ambush

	CruiseSpeed     float64 `yaml:"cruise_speed"` // world units per frame at 60 Hz
	SteeringForce   float64 `yaml:"steering_force"`
	AttackRange     float64 `yaml:"attack_range"`
	EngagementSec   float64 `yaml:"engagement_sec"` // preferred hunt duration
	BurstMultiplier float64 `yaml:"burst_multiplier"`
	ScanRange       float64 `yaml:"scan_range"`
	PanicFactor     float64 `yaml:"panic_factor"` // scare radius multiplier while striking

	MaxEnergy           float64 `yaml:"max_energy"`
	RegenRate           float64 `yaml:"regen_rate"`
	DrainRate           float64 `yaml:"drain_rate"`
	AttackCost          float64 `yaml:"attack_cost"`
	ExhaustionThreshold float64 `yaml:"exhaustion_threshold"` // fraction of max energy
	RecoveryDelaySec    float64 `yaml:"recovery_delay_sec"`

	Weights  ScoreWeightsConfig `yaml:"weights"`
	Timeouts TimeoutsConfig     `yaml:"timeouts"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`
	BookmarkHistorySize int     `yaml:"bookmark_history_size"`
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
}

// BookmarksConfig holds bookmark detection thresholds.
type BookmarksConfig struct {
	PanicWave   PanicWaveConfig   `yaml:"panic_wave"`
	Convergence ConvergenceConfig `yaml:"convergence"`
}

// PanicWaveConfig holds panic wave detection parameters.
type PanicWaveConfig struct {
	Multiplier float64 `yaml:"multiplier"` // mean panic vs rolling average
	MinPanic   float64 `yaml:"min_panic"`
}

// ConvergenceConfig holds flock convergence detection parameters.
type ConvergenceConfig struct {
	VarianceThreshold float64 `yaml:"variance_threshold"`
	StableWindows     int     `yaml:"stable_windows"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	WorldW32       float32          // World.Width as float32
	WorldH32       float32          // World.Height as float32
	FOVRadians     float32          // Flocking.FieldOfView in radians
	ArchetypeIndex map[string]uint8 // name -> index for archetype lookup
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.ComputeDerived()

	return cfg, nil
}

// MustLoad is like Load but panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(fmt.Sprintf("config: failed to load: %v", err))
	}
	return cfg
}

// ComputeDerived recalculates values derived from the loaded config. Call
// again after mutating World or Flocking fields that feed Derived.
func (c *Config) ComputeDerived() {
	c.Derived.WorldW32 = float32(c.World.Width)
	c.Derived.WorldH32 = float32(c.World.Height)
	c.Derived.FOVRadians = float32(c.Flocking.FieldOfView * math.Pi / 180)

	if len(c.Archetypes) == 0 {
		c.Archetypes = defaultArchetypes()
	}

	// Apply defaults to archetypes that don't specify all fields
	for i := range c.Archetypes {
		arch := &c.Archetypes[i]
		if arch.Style == "" {
			arch.Style = "pursuit"
		}
		if arch.MaxEnergy == 0 {
			arch.MaxEnergy = 100
		}
		if arch.BurstMultiplier == 0 {
			arch.BurstMultiplier = 1.5
		}
		if arch.ExhaustionThreshold == 0 {
			arch.ExhaustionThreshold = 0.2
		}
		if arch.PanicFactor == 0 {
			arch.PanicFactor = 1.0
		}
		if arch.ScanRange == 0 {
			arch.ScanRange = 600
		}
	}

	c.Derived.ArchetypeIndex = make(map[string]uint8, len(c.Archetypes))
	for i, arch := range c.Archetypes {
		c.Derived.ArchetypeIndex[arch.Name] = uint8(i)
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// defaultArchetypes synthesizes the hunting styles when the config lists
// none. Values mirror defaults.yaml.
func defaultArchetypes() []ArchetypeConfig {
	return []ArchetypeConfig{
		{
			Name: "peregrine", Style: "dive",
			CruiseSpeed: 3.4, SteeringForce: 0.3, AttackRange: 60, EngagementSec: 6,
			BurstMultiplier: 3.0, ScanRange: 900, PanicFactor: 1.4,
			MaxEnergy: 100, RegenRate: 9, DrainRate: 7, AttackCost: 22,
			ExhaustionThreshold: 0.2, RecoveryDelaySec: 2.5,
			Weights:  ScoreWeightsConfig{Isolation: 0.9, Edge: 1.2, Velocity: 0.5, Panic: 0.3, Intercept: 1.0},
			Timeouts: TimeoutsConfig{Scan: 4, Stalk: 8, Hunt: 5, Attack: 2},
		},
		{
			Name: "goshawk", Style: "ambush",
			CruiseSpeed: 3.0, SteeringForce: 0.45, AttackRange: 70, EngagementSec: 4,
			BurstMultiplier: 2.6, ScanRange: 500, PanicFactor: 1.2,
			MaxEnergy: 90, RegenRate: 10, DrainRate: 8, AttackCost: 20,
			ExhaustionThreshold: 0.25, RecoveryDelaySec: 2,
			Weights:  ScoreWeightsConfig{Isolation: 1.1, Edge: 0.8, Velocity: 0.3, Panic: 0.2, Intercept: 1.4},
			Timeouts: TimeoutsConfig{Scan: 5, Stalk: 12, Hunt: 3, Attack: 1.5},
		},
		{
			Name: "gyrfalcon", Style: "pursuit",
			CruiseSpeed: 3.6, SteeringForce: 0.28, AttackRange: 50, EngagementSec: 14,
			BurstMultiplier: 1.8, ScanRange: 800, PanicFactor: 1.1,
			MaxEnergy: 140, RegenRate: 7, DrainRate: 4.5, AttackCost: 18,
			ExhaustionThreshold: 0.15, RecoveryDelaySec: 3,
			Weights:  ScoreWeightsConfig{Isolation: 0.6, Edge: 0.7, Velocity: 1.2, Panic: 0.6, Intercept: 0.7},
			Timeouts: TimeoutsConfig{Scan: 4, Stalk: 6, Hunt: 14, Attack: 3},
		},
		{
			Name: "harrier", Style: "pursuit",
			CruiseSpeed: 2.4, SteeringForce: 0.35, AttackRange: 45, EngagementSec: 8,
			BurstMultiplier: 1.6, ScanRange: 450, PanicFactor: 0.8,
			MaxEnergy: 110, RegenRate: 10, DrainRate: 4, AttackCost: 14,
			ExhaustionThreshold: 0.2, RecoveryDelaySec: 2,
			Weights:  ScoreWeightsConfig{Isolation: 1.5, Edge: 0.9, Velocity: 0.2, Panic: 0.4, Intercept: 0.9},
			Timeouts: TimeoutsConfig{Scan: 7, Stalk: 9, Hunt: 8, Attack: 2},
		},
		{
			Name: "merlin", Style: "pursuit",
			CruiseSpeed: 3.2, SteeringForce: 0.5, AttackRange: 40, EngagementSec: 10,
			BurstMultiplier: 2.0, ScanRange: 550, PanicFactor: 0.9,
			MaxEnergy: 95, RegenRate: 11, DrainRate: 6, AttackCost: 15,
			ExhaustionThreshold: 0.22, RecoveryDelaySec: 1.5,
			Weights:  ScoreWeightsConfig{Isolation: 0.7, Edge: 0.5, Velocity: 1.5, Panic: 0.8, Intercept: 0.8},
			Timeouts: TimeoutsConfig{Scan: 3.5, Stalk: 5, Hunt: 10, Attack: 2},
		},
		{
			Name: "sparrowhawk", Style: "ambush",
			CruiseSpeed: 2.8, SteeringForce: 0.55, AttackRange: 55, EngagementSec: 3,
			BurstMultiplier: 2.8, ScanRange: 350, PanicFactor: 1.0,
			MaxEnergy: 70, RegenRate: 13, DrainRate: 9, AttackCost: 16,
			ExhaustionThreshold: 0.3, RecoveryDelaySec: 1.2,
			Weights:  ScoreWeightsConfig{Isolation: 1.2, Edge: 0.6, Velocity: 0.4, Panic: 0.3, Intercept: 1.5},
			Timeouts: TimeoutsConfig{Scan: 4, Stalk: 9, Hunt: 2.5, Attack: 1.2},
		},
		{
			Name: "lanner", Style: "pursuit",
			CruiseSpeed: 3.0, SteeringForce: 0.32, AttackRange: 55, EngagementSec: 9,
			BurstMultiplier: 2.1, ScanRange: 700, PanicFactor: 1.3,
			MaxEnergy: 115, RegenRate: 8, DrainRate: 5, AttackCost: 17,
			ExhaustionThreshold: 0.18, RecoveryDelaySec: 2.5,
			Weights:  ScoreWeightsConfig{Isolation: 0.5, Edge: 1.5, Velocity: 0.6, Panic: 1.0, Intercept: 0.6},
			Timeouts: TimeoutsConfig{Scan: 5, Stalk: 7, Hunt: 9, Attack: 2.5},
		},
		{
			Name: "eagle", Style: "dive",
			CruiseSpeed: 2.6, SteeringForce: 0.22, AttackRange: 80, EngagementSec: 7,
			BurstMultiplier: 2.4, ScanRange: 1100, PanicFactor: 1.6,
			MaxEnergy: 160, RegenRate: 6, DrainRate: 3.5, AttackCost: 30,
			ExhaustionThreshold: 0.12, RecoveryDelaySec: 4,
			Weights:  ScoreWeightsConfig{Isolation: 0.8, Edge: 1.3, Velocity: 0.3, Panic: 1.1, Intercept: 0.5},
			Timeouts: TimeoutsConfig{Scan: 6, Stalk: 10, Hunt: 6, Attack: 3},
		},
	}
}
