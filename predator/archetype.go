// Package predator implements the hunting state machine driven against
// the flock. One generic engine executes every hunting style; the styles
// differ only by an Archetype value carrying stats, an energy profile,
// target scoring weights, per-state timeouts, and a transition function.
package predator

import (
	"fmt"

	"github.com/pthm-cable/murmur/config"
)

// State is the current phase of a predator's hunting cycle.
type State uint8

const (
	StateIdle State = iota
	StateScanning
	StateStalking
	StateHunting
	StateDiving    // hunting variant: committed stoop, cannot re-aim
	StateAmbushing // stalking variant: hold position, wait for approach
	StateAttacking
	StateRecovering

	stateCount
)

var stateNames = [stateCount]string{
	"idle", "scanning", "stalking", "hunting",
	"diving", "ambushing", "attacking", "recovering",
}

func (s State) String() string {
	if s < stateCount {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// StateFromString maps a snapshot state name back to its State.
func StateFromString(name string) (State, bool) {
	for i, n := range stateNames {
		if n == name {
			return State(i), true
		}
	}
	return StateIdle, false
}

// Active reports whether the state drains energy and counts toward hunt
// timers. Ambushing holds still and is treated as inactive for drain.
func (s State) Active() bool {
	switch s {
	case StateScanning, StateStalking, StateHunting, StateDiving, StateAttacking:
		return true
	}
	return false
}

// Engaged reports whether the predator is committed to a specific target.
func (s State) Engaged() bool {
	switch s {
	case StateStalking, StateHunting, StateDiving, StateAmbushing, StateAttacking:
		return true
	}
	return false
}

// ScoreWeights is one archetype's target scoring weight vector.
type ScoreWeights struct {
	Isolation float32
	Edge      float32
	Velocity  float32
	Panic     float32
	Intercept float32
}

// transitionFunc decides the next state for one update. It may commit
// hunt outcomes through the events pointer.
type transitionFunc func(p *Predator, view *FlockView, ev *Events) State

// Archetype is the immutable description of one hunting style. Instances
// are shared between predators; all mutable state lives on the Predator.
type Archetype struct {
	Name  string
	Style string

	CruiseSpeed     float32 // world units per frame at 60 Hz
	SteeringForce   float32
	AttackRange     float32
	EngagementSec   float32
	BurstMultiplier float32
	ScanRange       float32
	PanicFactor     float32 // scare radius multiplier at full commitment

	MaxEnergy        float32
	RegenRate        float32 // per simulated second
	DrainRate        float32
	AttackCost       float32
	ExhaustionEnergy float32 // absolute level forcing recovery
	RecoveryDelaySec float32

	Weights  ScoreWeights
	timeouts [stateCount]float32

	transition transitionFunc
}

// FromConfig builds the runtime archetype from its configuration block.
func FromConfig(ac *config.ArchetypeConfig) (*Archetype, error) {
	a := &Archetype{
		Name:  ac.Name,
		Style: ac.Style,

		CruiseSpeed:     float32(ac.CruiseSpeed),
		SteeringForce:   float32(ac.SteeringForce),
		AttackRange:     float32(ac.AttackRange),
		EngagementSec:   float32(ac.EngagementSec),
		BurstMultiplier: float32(ac.BurstMultiplier),
		ScanRange:       float32(ac.ScanRange),
		PanicFactor:     float32(ac.PanicFactor),

		MaxEnergy:        float32(ac.MaxEnergy),
		RegenRate:        float32(ac.RegenRate),
		DrainRate:        float32(ac.DrainRate),
		AttackCost:       float32(ac.AttackCost),
		ExhaustionEnergy: float32(ac.ExhaustionThreshold * ac.MaxEnergy),
		RecoveryDelaySec: float32(ac.RecoveryDelaySec),

		Weights: ScoreWeights{
			Isolation: float32(ac.Weights.Isolation),
			Edge:      float32(ac.Weights.Edge),
			Velocity:  float32(ac.Weights.Velocity),
			Panic:     float32(ac.Weights.Panic),
			Intercept: float32(ac.Weights.Intercept),
		},
	}

	a.timeouts[StateScanning] = float32(ac.Timeouts.Scan)
	a.timeouts[StateStalking] = float32(ac.Timeouts.Stalk)
	a.timeouts[StateAmbushing] = float32(ac.Timeouts.Stalk)
	a.timeouts[StateHunting] = float32(ac.Timeouts.Hunt)
	a.timeouts[StateDiving] = float32(ac.Timeouts.Hunt)
	a.timeouts[StateAttacking] = float32(ac.Timeouts.Attack)

	switch ac.Style {
	case "", "pursuit":
		a.transition = pursuitTransition
	case "dive":
		a.transition = diveTransition
	case "ambush":
		a.transition = ambushTransition
	default:
		return nil, fmt.Errorf("archetype %q: unknown style %q", ac.Name, ac.Style)
	}

	return a, nil
}

// Timeout returns the hard cap on time spent in the given state, or 0 when
// the state has no timeout (idle, recovering).
func (a *Archetype) Timeout(s State) float32 {
	return a.timeouts[s]
}
