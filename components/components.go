// Package components defines ECS components for the simulation.
package components

// NoNeighbor marks an agent with no neighbor in perception range.
// Stored in Bird.Nearest, which otherwise holds a squared distance.
const NoNeighbor = float32(1e30)

// Position represents an agent's world position.
type Position struct {
	X, Y float32
}

// Velocity represents an agent's velocity in world units per frame
// at the 60 Hz reference rate.
type Velocity struct {
	X, Y float32
}

// Bird holds per-agent flocking state beyond position and velocity.
type Bird struct {
	Heading float32 // radians in [-Pi, Pi], held while nearly stopped
	Panic   float32 // fear level in [0, 1], geometric decay per substep
	Energy  float32 // exertion reserve in [0, 1]
	Density float32 // neighbor count from the last completed substep
	Nearest float32 // squared distance to nearest neighbor, or NoNeighbor
}
