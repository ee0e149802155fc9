package predator

import (
	"math"
	"math/rand"
)

// referenceRate matches the flock physics: speeds are world units per
// frame at 60 Hz, so a substep of dt seconds advances dt*60 frames.
const referenceRate = 60

// recoveringExitFraction is the energy fraction (of max) above which a
// recovering predator returns to idle.
const recoveringExitFraction = 0.7

// recoveringHardCapSec bounds time spent recovering even when regen is
// configured very low, so the cycle always resumes.
const recoveringHardCapSec = 30

// Outcome is the hunt result committed during one update, if any.
type Outcome uint8

const (
	OutcomeNone Outcome = iota
	OutcomeSuccess
	OutcomeFailure
)

// Events reports what happened during one update so the orchestrator can
// feed telemetry without polling internal state.
type Events struct {
	HuntStarted bool
	Outcome     Outcome
	Target      int32 // target at the time of the outcome
}

// Predator is one hunter instance. All per-instance state lives here; the
// archetype is shared immutable configuration.
type Predator struct {
	ID   int
	Arch *Archetype

	X, Y   float32
	VX, VY float32

	state        State
	energy       float32
	target       int32 // agent index, -1 when unlocked
	cooldown     float32
	stateElapsed float32
	huntDuration float32
	inactiveFor  float32 // time without activity, gates regen

	successes int
	failures  int

	speedMult  float32
	aggression float32

	rng     *rand.Rand
	scratch []TargetScore
}

// New creates a predator at (x, y). The RNG is seeded from the simulation
// seed and the predator id so fixed-seed runs reproduce hunts exactly.
func New(id int, arch *Archetype, seed int64, x, y, speedMult, aggression float32) *Predator {
	p := &Predator{
		ID:         id,
		Arch:       arch,
		X:          x,
		Y:          y,
		target:     -1,
		energy:     arch.MaxEnergy,
		speedMult:  speedMult,
		aggression: aggression,
		rng:        rand.New(rand.NewSource(seed + int64(id)*7919)),
		scratch:    make([]TargetScore, 0, 64),
	}
	return p
}

// Reset reinitializes transient hunting state at a new position while
// preserving the aggregate success/failure counters.
func (p *Predator) Reset(x, y float32) {
	p.X, p.Y = x, y
	p.VX, p.VY = 0, 0
	p.state = StateIdle
	p.energy = p.Arch.MaxEnergy
	p.target = -1
	p.cooldown = 0
	p.stateElapsed = 0
	p.huntDuration = 0
	p.inactiveFor = 0
}

// Update advances the predator by one substep against the given flock
// view: timers, energy, the archetype transition, then movement.
func (p *Predator) Update(dt float32, view *FlockView) Events {
	var ev Events

	p.stateElapsed += dt
	if p.cooldown > 0 {
		p.cooldown -= dt
		if p.cooldown < 0 {
			p.cooldown = 0
		}
	}
	if p.state.Engaged() {
		p.huntDuration += dt
	}

	p.updateEnergy(dt)

	// Exhaustion preempts the archetype's own logic from any active state
	if p.state.Active() && p.energy <= p.Arch.ExhaustionEnergy {
		if p.state.Engaged() {
			p.fail(&ev)
		}
		p.setState(StateRecovering)
	} else if next := p.Arch.transition(p, view, &ev); next != p.state {
		p.setState(next)
	}

	p.move(dt, view)

	return ev
}

// updateEnergy drains active states and regenerates after the recovery
// delay of inactivity. Energy stays in [0, MaxEnergy].
func (p *Predator) updateEnergy(dt float32) {
	if p.state.Active() {
		drain := p.Arch.DrainRate
		switch p.state {
		case StateHunting, StateDiving, StateAttacking:
			drain *= 1.5
		}
		p.energy -= drain * dt
		p.inactiveFor = 0
	} else {
		p.inactiveFor += dt
		if p.inactiveFor >= p.Arch.RecoveryDelaySec {
			p.energy += p.Arch.RegenRate * dt
		}
	}
	if p.energy < 0 {
		p.energy = 0
	} else if p.energy > p.Arch.MaxEnergy {
		p.energy = p.Arch.MaxEnergy
	}
}

func (p *Predator) setState(s State) {
	p.state = s
	p.stateElapsed = 0
	if !s.Engaged() {
		p.huntDuration = 0
	}
}

// timedOut reports whether the current state has exceeded its archetype
// timeout. States without a timeout never time out here.
func (p *Predator) timedOut() bool {
	t := p.Arch.Timeout(p.state)
	return t > 0 && p.stateElapsed >= t
}

// idleDelay is how long the predator rests in idle before the next scan.
// High aggression shortens it.
func (p *Predator) idleDelay() float32 {
	d := 1.5 - p.aggression
	if d < 0.2 {
		d = 0.2
	}
	return d
}

// strikeRange is the kill distance inside the attack envelope.
func (p *Predator) strikeRange() float32 {
	return p.Arch.AttackRange * (0.35 + 0.25*p.aggression)
}

// readyToHunt gates leaving idle: off cooldown with a real energy margin.
func (p *Predator) readyToHunt() bool {
	return p.cooldown <= 0 && p.energy > p.Arch.ExhaustionEnergy*2
}

// RegisterSuccess books a successful strike: attack cost, a long
// cooldown, and the success counter. The hunt-duration timer resets.
func (p *Predator) RegisterSuccess() {
	p.energy -= p.Arch.AttackCost
	if p.energy < 0 {
		p.energy = 0
	}
	p.cooldown = p.Arch.RecoveryDelaySec * 3
	p.successes++
	p.huntDuration = 0
	p.target = -1
}

// RegisterFailure books a blown hunt: a short cooldown and the failure
// counter. The hunt-duration timer resets.
func (p *Predator) RegisterFailure() {
	p.cooldown = p.Arch.RecoveryDelaySec
	p.failures++
	p.huntDuration = 0
	p.target = -1
}

func (p *Predator) succeed(ev *Events) {
	ev.Outcome = OutcomeSuccess
	ev.Target = p.target
	p.RegisterSuccess()
}

func (p *Predator) fail(ev *Events) {
	ev.Outcome = OutcomeFailure
	ev.Target = p.target
	p.RegisterFailure()
}

// distToTarget returns the distance to the given prey along the shortest
// path.
func (p *Predator) distToTarget(prey *Prey, view *FlockView) float32 {
	dx, dy := view.Delta(p.X, p.Y, prey.X, prey.Y)
	return float32(math.Sqrt(float64(dx*dx + dy*dy)))
}

// ---------- transition styles ----------

// pursuitTransition is the sustained chase: scan, stalk close, run the
// target down, strike when the gap closes.
func pursuitTransition(p *Predator, view *FlockView, ev *Events) State {
	switch p.state {
	case StateIdle:
		if p.readyToHunt() && p.stateElapsed >= p.idleDelay() {
			return StateScanning
		}
	case StateScanning:
		if t := p.selectTarget(view); t >= 0 {
			p.target = t
			ev.HuntStarted = true
			ev.Target = t
			return StateStalking
		}
		if p.timedOut() {
			return StateIdle
		}
	case StateStalking:
		prey := view.Lookup(p.target)
		if prey == nil {
			p.target = -1
			return StateScanning
		}
		if p.distToTarget(prey, view) < p.Arch.AttackRange*3 {
			return StateHunting
		}
		if p.timedOut() {
			p.target = -1
			return StateScanning
		}
	case StateHunting:
		prey := view.Lookup(p.target)
		if prey == nil {
			p.target = -1
			return StateScanning
		}
		if p.distToTarget(prey, view) < p.Arch.AttackRange {
			return StateAttacking
		}
		if p.timedOut() || p.huntDuration > p.Arch.EngagementSec*1.5 {
			p.fail(ev)
			return StateRecovering
		}
	case StateAttacking:
		return attackResolution(p, view, ev)
	case StateRecovering:
		return recoveringTransition(p)
	}
	return p.state
}

// diveTransition shadows the target from range, then commits to a stoop
// that cannot re-aim: a dodged dive is a failed hunt.
func diveTransition(p *Predator, view *FlockView, ev *Events) State {
	switch p.state {
	case StateIdle:
		if p.readyToHunt() && p.stateElapsed >= p.idleDelay() {
			return StateScanning
		}
	case StateScanning:
		if t := p.selectTarget(view); t >= 0 {
			p.target = t
			ev.HuntStarted = true
			ev.Target = t
			return StateStalking
		}
		if p.timedOut() {
			return StateIdle
		}
	case StateStalking:
		prey := view.Lookup(p.target)
		if prey == nil {
			p.target = -1
			return StateScanning
		}
		if p.distToTarget(prey, view) < p.Arch.AttackRange*5 {
			return StateDiving
		}
		if p.timedOut() {
			p.target = -1
			return StateScanning
		}
	case StateDiving:
		prey := view.Lookup(p.target)
		if prey == nil {
			p.fail(ev)
			return StateRecovering
		}
		if p.distToTarget(prey, view) < p.Arch.AttackRange {
			return StateAttacking
		}
		if p.timedOut() {
			p.fail(ev)
			return StateRecovering
		}
	case StateAttacking:
		return attackResolution(p, view, ev)
	case StateRecovering:
		return recoveringTransition(p)
	}
	return p.state
}

// ambushTransition parks near the flock's path and waits. Waiting costs
// nothing; the strike is launched only when prey drifts into range.
func ambushTransition(p *Predator, view *FlockView, ev *Events) State {
	switch p.state {
	case StateIdle:
		if p.readyToHunt() && p.stateElapsed >= p.idleDelay() {
			return StateScanning
		}
	case StateScanning:
		if t := p.selectTarget(view); t >= 0 {
			p.target = t
			ev.HuntStarted = true
			ev.Target = t
			return StateAmbushing
		}
		if p.timedOut() {
			return StateIdle
		}
	case StateAmbushing:
		// The ambusher takes whatever comes closest, not only the
		// original mark
		if near := p.nearestPrey(view, p.Arch.AttackRange*1.5); near >= 0 {
			p.target = near
			return StateAttacking
		}
		if view.Lookup(p.target) == nil {
			p.target = -1
			return StateScanning
		}
		// Prey that never wanders into range is a blown hunt, not a
		// free rescan
		if p.timedOut() {
			p.fail(ev)
			return StateRecovering
		}
	case StateAttacking:
		return attackResolution(p, view, ev)
	case StateRecovering:
		return recoveringTransition(p)
	}
	return p.state
}

// attackResolution is shared by every style: strike when inside kill
// range, book a failure when the attack window closes first.
func attackResolution(p *Predator, view *FlockView, ev *Events) State {
	prey := view.Lookup(p.target)
	if prey == nil {
		p.fail(ev)
		return StateIdle
	}
	if p.distToTarget(prey, view) < p.strikeRange() {
		p.succeed(ev)
		return StateRecovering
	}
	if p.timedOut() {
		p.fail(ev)
		return StateIdle
	}
	return StateAttacking
}

func recoveringTransition(p *Predator) State {
	if p.energy >= p.Arch.MaxEnergy*recoveringExitFraction &&
		p.stateElapsed >= p.Arch.RecoveryDelaySec {
		return StateIdle
	}
	if p.stateElapsed >= recoveringHardCapSec {
		return StateIdle
	}
	return StateRecovering
}

// nearestPrey returns the index of the closest prey within radius, or -1.
func (p *Predator) nearestPrey(view *FlockView, radius float32) int32 {
	bestSq := radius * radius
	best := int32(-1)
	for i := range view.Prey {
		prey := &view.Prey[i]
		dx, dy := view.Delta(p.X, p.Y, prey.X, prey.Y)
		if dSq := dx*dx + dy*dy; dSq < bestSq {
			bestSq = dSq
			best = prey.Index
		}
	}
	return best
}

// ---------- movement ----------

// burstSpeed is the top speed in burst states, attenuated as energy
// approaches exhaustion so a tired hunter cannot sprint at full rate.
func (p *Predator) burstSpeed() float32 {
	margin := float32(1)
	if span := p.Arch.MaxEnergy - p.Arch.ExhaustionEnergy; span > 0 {
		margin = clamp01((p.energy - p.Arch.ExhaustionEnergy) / span)
	}
	mult := 1 + (p.Arch.BurstMultiplier-1)*(0.35+0.65*margin)
	return p.Arch.CruiseSpeed * mult * p.speedMult
}

// move applies per-state kinematics: steer toward the state's goal point
// at the state's speed, clamped by the archetype steering force.
func (p *Predator) move(dt float32, view *FlockView) {
	frames := dt * referenceRate
	cruise := p.Arch.CruiseSpeed * p.speedMult

	var goalX, goalY, speed float32
	hasGoal := true

	switch p.state {
	case StateIdle, StateRecovering:
		// Bleed off speed and drift
		p.VX *= 1 - 0.05*frames
		p.VY *= 1 - 0.05*frames
		hasGoal = false
	case StateAmbushing:
		// Hold position
		p.VX *= 1 - 0.25*frames
		p.VY *= 1 - 0.25*frames
		hasGoal = false
	case StateScanning:
		goalX, goalY = view.CentroidX, view.CentroidY
		speed = cruise * 0.7
	case StateStalking:
		if prey := view.Lookup(p.target); prey != nil {
			goalX, goalY = prey.X, prey.Y
			speed = cruise * 0.85
		} else {
			hasGoal = false
		}
	case StateHunting, StateDiving:
		if prey := view.Lookup(p.target); prey != nil {
			goalX, goalY = p.interceptPoint(prey, view)
			speed = p.burstSpeed()
		} else {
			hasGoal = false
		}
	case StateAttacking:
		if prey := view.Lookup(p.target); prey != nil {
			goalX, goalY = p.interceptPoint(prey, view)
			speed = p.burstSpeed() * 1.1
		} else {
			hasGoal = false
		}
	}

	if hasGoal {
		dx, dy := view.Delta(p.X, p.Y, goalX, goalY)
		dist := float32(math.Sqrt(float64(dx*dx + dy*dy)))
		if dist > 1e-4 {
			inv := speed / dist
			fx := dx*inv - p.VX
			fy := dy*inv - p.VY
			fx, fy = limit(fx, fy, p.Arch.SteeringForce)
			p.VX += fx * frames
			p.VY += fy * frames
		}
		p.VX, p.VY = limit(p.VX, p.VY, speed)
	}

	p.X += p.VX * frames
	p.Y += p.VY * frames

	if view.Wrap {
		p.X = wrapCoord(p.X, view.Width)
		p.Y = wrapCoord(p.Y, view.Height)
	} else {
		if p.X < 0 {
			p.X = 0
		} else if p.X > view.Width {
			p.X = view.Width
		}
		if p.Y < 0 {
			p.Y = 0
		} else if p.Y > view.Height {
			p.Y = view.Height
		}
	}
}

// interceptPoint leads the target by its velocity over the closing time.
func (p *Predator) interceptPoint(prey *Prey, view *FlockView) (float32, float32) {
	dx, dy := view.Delta(p.X, p.Y, prey.X, prey.Y)
	dist := float32(math.Sqrt(float64(dx*dx + dy*dy)))
	closing := p.burstSpeed()
	if closing < 1e-4 {
		return prey.X, prey.Y
	}
	lead := dist / closing
	return prey.X + prey.VX*lead, prey.Y + prey.VY*lead
}

func limit(x, y, maxLen float32) (float32, float32) {
	magSq := x*x + y*y
	if magSq == 0 || magSq <= maxLen*maxLen {
		return x, y
	}
	scale := maxLen / float32(math.Sqrt(float64(magSq)))
	return x * scale, y * scale
}

func wrapCoord(v, size float32) float32 {
	r := float32(math.Mod(float64(v), float64(size)))
	if r < 0 {
		r += size
	}
	return r
}

// ---------- accessors ----------

// State returns the current behavior state.
func (p *Predator) State() State { return p.state }

// Energy returns the current energy level.
func (p *Predator) Energy() float32 { return p.energy }

// Target returns the locked target agent index, or -1.
func (p *Predator) Target() int32 { return p.target }

// Successes returns the lifetime successful strike count.
func (p *Predator) Successes() int { return p.successes }

// Failures returns the lifetime failed hunt count.
func (p *Predator) Failures() int { return p.failures }

// SetPosition teleports the predator, clearing velocity. External control
// surfaces use this to place hunters by hand.
func (p *Predator) SetPosition(x, y float32) {
	p.X, p.Y = x, y
	p.VX, p.VY = 0, 0
}

// EffectivePanicRadius scales the base scare radius by the archetype's
// panic factor and the commitment of the current state: a parked ambusher
// barely registers, a striking hunter terrifies a wide area.
func (p *Predator) EffectivePanicRadius(base float32) float32 {
	r := base * p.Arch.PanicFactor
	switch p.state {
	case StateAmbushing:
		return r * 0.25
	case StateStalking:
		return r * 0.5
	case StateIdle, StateRecovering:
		return r * 0.6
	case StateAttacking, StateDiving:
		return r * 1.25
	}
	return r
}
