// Package systems implements the flocking core: the spatial index
// agents perceive through, the steering force model, substep physics
// integration, and the exertion energy model.
package systems

import "math"

// Density damping shrinks cohesion for crowded agents so packed flocks
// stop collapsing inward. The factor falls linearly with neighbor count
// down to densityFloor.
const (
	densityFloor = 0.3
	densityRef   = 20
)

// Noise sampling scales. Positions are compressed so nearby agents read
// similar gradients, and each agent id offsets the time axis so the
// flock never jitters in unison.
const (
	noisePosScale   = 0.008
	noiseTimeScale  = 0.35
	noiseAgentPhase = 10.7
	wanderChannel   = 100.5
)

// fleeGain scales the flee force so escape outweighs flock rules once
// panic is high.
const fleeGain = 2.0

// FlockParams holds the force model inputs derived from config once per
// substep and shared by every agent in it.
type FlockParams struct {
	MaxSpeed         float32
	MaxForce         float32
	PerceptionRadius float32
	SeparationRadius float32
	AlignmentWeight  float32
	CohesionWeight   float32
	SeparationWeight float32
	NoiseStrength    float32
	WanderStrength   float32
	Width            float32
	Height           float32
	Wrap             bool
}

// delta returns the vector from (fromX, fromY) to (toX, toY), along the
// shortest path in wrap mode.
func (p *FlockParams) delta(fromX, fromY, toX, toY float32) (float32, float32) {
	dx := toX - fromX
	dy := toY - fromY
	if p.Wrap {
		dx = ToroidalDelta(dx, p.Width)
		dy = ToroidalDelta(dy, p.Height)
	}
	return dx, dy
}

// AgentState is the pre-substep view of one agent that force functions
// read. Force passes never touch live component storage.
type AgentState struct {
	Index int32
	X     float32
	Y     float32
	VX    float32
	VY    float32
	Panic float32
}

// Swarm computes the composite steering force for one agent. Alignment
// and cohesion average neighbor velocity and offset with closeness
// weights, separation pushes away from close neighbors with inverse
// square falloff, and a coherent noise field adds wander plus a small
// heading perturbation. The result is clamped to the panic-adjusted
// force limit. With no neighbors only the wander force remains.
func Swarm(a *AgentState, neighbors []Neighbor, noise *PerlinNoise, t float64, p *FlockParams) (float32, float32) {
	wx, wy := wanderForce(a, noise, t, p)
	if len(neighbors) == 0 {
		return wx, wy
	}

	var (
		avgVX, avgVY float32
		avgDX, avgDY float32
		weightSum    float32
		sepX, sepY   float32
		sepCount     int
	)
	sepRadiusSq := p.SeparationRadius * p.SeparationRadius

	for i := range neighbors {
		n := &neighbors[i]
		d := fastSqrt(n.DistSq)
		if w := 1 - d/p.PerceptionRadius; w > 0 {
			avgVX += n.VX * w
			avgVY += n.VY * w
			avgDX += n.DX * w
			avgDY += n.DY * w
			weightSum += w
		}
		if n.DistSq < sepRadiusSq && n.DistSq > 0 {
			// Inverse-square weighted unit vector away from the neighbor
			f := fastInvSqrt(n.DistSq) / n.DistSq
			sepX -= n.DX * f
			sepY -= n.DY * f
			sepCount++
		}
	}

	var fx, fy float32
	if weightSum > 0 {
		inv := 1 / weightSum
		ax, ay := steerToward(a.VX, a.VY, avgVX*inv, avgVY*inv, p.MaxSpeed, p.MaxForce)
		fx += ax * p.AlignmentWeight
		fy += ay * p.AlignmentWeight

		damping := 1 - float32(len(neighbors))/densityRef
		if damping < densityFloor {
			damping = densityFloor
		}
		cx, cy := steerToward(a.VX, a.VY, avgDX*inv, avgDY*inv, p.MaxSpeed, p.MaxForce)
		fx += cx * damping * p.CohesionWeight
		fy += cy * damping * p.CohesionWeight
	}
	if sepCount > 0 {
		invN := 1 / float32(sepCount)
		sx, sy := steerToward(a.VX, a.VY, sepX*invN, sepY*invN, p.MaxSpeed, p.MaxForce)
		fx += sx * p.SeparationWeight
		fy += sy * p.SeparationWeight
	}

	// Rotate the rule force by a noise-driven angle so trajectories
	// wobble coherently instead of tracking perfectly straight lines
	if p.NoiseStrength > 0 && (fx != 0 || fy != 0) {
		theta := float32(noise.Noise3D(
			float64(a.X)*noisePosScale,
			float64(a.Y)*noisePosScale,
			t*noiseTimeScale+float64(a.Index)*noiseAgentPhase,
		)) * p.NoiseStrength
		sin, cos := fastSin(theta), fastCos(theta)
		fx, fy = fx*cos-fy*sin, fx*sin+fy*cos
	}

	fx += wx
	fy += wy

	return limitVec(fx, fy, p.MaxForce*(1+a.Panic))
}

// wanderForce samples the noise field for a small free-roaming push so
// lone agents drift instead of coasting straight forever.
func wanderForce(a *AgentState, noise *PerlinNoise, t float64, p *FlockParams) (float32, float32) {
	if p.WanderStrength <= 0 {
		return 0, 0
	}
	angle := float32(noise.Noise3D(
		float64(a.X)*noisePosScale+wanderChannel,
		float64(a.Y)*noisePosScale+wanderChannel,
		t*noiseTimeScale+float64(a.Index)*noiseAgentPhase,
	) * math.Pi)
	mag := p.MaxForce * p.WanderStrength
	return fastCos(angle) * mag, fastSin(angle) * mag
}

// steerToward returns the force that turns the current velocity toward
// the desired direction at full speed, clamped to maxForce. A near-zero
// desired vector yields no force.
func steerToward(vx, vy, dx, dy, maxSpeed, maxForce float32) (float32, float32) {
	magSq := dx*dx + dy*dy
	if magSq < 1e-12 {
		return 0, 0
	}
	inv := fastInvSqrt(magSq)
	sx := dx*inv*maxSpeed - vx
	sy := dy*inv*maxSpeed - vy
	return limitVec(sx, sy, maxForce)
}

// PanicResponse raises the agent's panic from predator proximity and
// returns the new level plus a flee force pointing away from the
// predator. Panic from this call only ever increases; decay happens in
// Integrate.
func PanicResponse(a *AgentState, predX, predY, radius float32, p *FlockParams) (level, fx, fy float32) {
	level = a.Panic
	if radius <= 0 {
		return level, 0, 0
	}
	dx, dy := p.delta(predX, predY, a.X, a.Y)
	distSq := dx*dx + dy*dy
	if distSq >= radius*radius {
		return level, 0, 0
	}
	d := fastSqrt(distSq)
	if near := 1 - d/radius; near > level {
		level = near
	}
	if distSq < 1e-6 {
		return level, 0, 0
	}
	inv := 1 / d
	sx := dx*inv*p.MaxSpeed - a.VX
	sy := dy*inv*p.MaxSpeed - a.VY
	sx, sy = limitVec(sx, sy, p.MaxForce)
	return level, sx * level * fleeGain, sy * level * fleeGain
}

// Contagion returns the panic level caught from neighbors. Neighbors
// above the threshold pass on a fraction of their fear; the caller
// keeps the max of the returned level and the agent's own.
func Contagion(neighbors []Neighbor, threshold, fraction float32) float32 {
	var caught float32
	for i := range neighbors {
		if p := neighbors[i].Panic; p > threshold {
			if c := p * fraction; c > caught {
				caught = c
			}
		}
	}
	return caught
}

// AttractorForce returns the pull an attractor exerts at (x, y), fading
// linearly to zero at its radius. Negative strength repels.
func AttractorForce(x, y, ax, ay, strength, radius float32, p *FlockParams) (float32, float32) {
	if radius <= 0 || strength == 0 {
		return 0, 0
	}
	dx, dy := p.delta(x, y, ax, ay)
	distSq := dx*dx + dy*dy
	if distSq >= radius*radius || distSq < 1e-6 {
		return 0, 0
	}
	d := fastSqrt(distSq)
	falloff := 1 - d/radius
	mag := strength * falloff * p.MaxForce / d
	return dx * mag, dy * mag
}
