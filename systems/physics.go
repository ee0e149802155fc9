package systems

import (
	"math"

	"github.com/pthm-cable/murmur/components"
)

// ReferenceRate is the frame rate the motion constants are tuned
// against. Speeds and forces are expressed in world units per frame at
// this rate, so a substep of dt seconds advances dt*ReferenceRate frames.
const ReferenceRate = 60

// MinHeadingSpeedSq is the squared speed below which an agent keeps its
// previous heading and perceives in every direction.
const MinHeadingSpeedSq = 0.01

// panicFloor is the level below which decaying panic snaps to zero.
const panicFloor = 0.01

// PhysicsParams carries the per-substep integration inputs, read from
// config once per substep.
type PhysicsParams struct {
	DT         float32
	MaxSpeed   float32
	PanicDecay float32
	Width      float32
	Height     float32
	Wrap       bool
}

// Integrate advances one agent by a substep: panic decay, acceleration
// into velocity, panic-adjusted speed cap, velocity into position, then
// heading update. Panicked agents fly up to 50% over the configured max
// speed. Decay runs before the cap so the speed an agent leaves the
// substep with never exceeds the allowance of the panic it leaves with.
func Integrate(pos *components.Position, vel *components.Velocity, bird *components.Bird, ax, ay float32, p *PhysicsParams) {
	frames := p.DT * ReferenceRate

	bird.Panic *= p.PanicDecay
	if bird.Panic < panicFloor {
		bird.Panic = 0
	}

	vel.X += ax * frames
	vel.Y += ay * frames

	limit := p.MaxSpeed * (1 + 0.5*bird.Panic)
	vel.X, vel.Y = limitVec(vel.X, vel.Y, limit)

	pos.X += vel.X * frames
	pos.Y += vel.Y * frames

	if p.Wrap {
		pos.X = mod(pos.X, p.Width)
		pos.Y = mod(pos.Y, p.Height)
	} else {
		pos.X = clampFloat(pos.X, 0, p.Width)
		pos.Y = clampFloat(pos.Y, 0, p.Height)
	}

	// Heading keeps its last value while the agent is nearly stopped
	if vel.X*vel.X+vel.Y*vel.Y > MinHeadingSpeedSq {
		bird.Heading = float32(math.Atan2(float64(vel.Y), float64(vel.X)))
	}
}

// BoundaryForce returns a force steering an agent back into the world
// once it is within margin of an edge, growing linearly with
// penetration. Unused in wrap mode.
func BoundaryForce(x, y, margin, strength, width, height float32) (float32, float32) {
	if margin <= 0 {
		return 0, 0
	}
	var fx, fy float32
	if x < margin {
		fx += strength * (margin - x) / margin
	} else if x > width-margin {
		fx -= strength * (x - (width - margin)) / margin
	}
	if y < margin {
		fy += strength * (margin - y) / margin
	} else if y > height-margin {
		fy -= strength * (y - (height - margin)) / margin
	}
	return fx, fy
}
