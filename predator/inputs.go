package predator

// Prey is the per-agent flock state the engine reads when scanning and
// chasing. Entries are a snapshot; the engine never touches live agent
// storage.
type Prey struct {
	Index     int32
	X, Y      float32
	VX, VY    float32
	Panic     float32
	Density   float32 // neighbor count from the last substep
	NearestSq float32 // squared distance to nearest flockmate
}

// FlockView is the read-only picture of the flock for one predator
// update: the prey snapshot, the flock centroid, and the world geometry
// needed for wrap-aware distances. The caller rebuilds it each substep.
type FlockView struct {
	Prey      []Prey
	CentroidX float32
	CentroidY float32

	Width  float32
	Height float32
	Wrap   bool
}

// Lookup resolves a locked target index against the current snapshot.
// Returns nil when the agent no longer exists (flock truncation); callers
// fall back to a retargeting transition rather than erroring.
func (v *FlockView) Lookup(index int32) *Prey {
	if index < 0 || int(index) >= len(v.Prey) {
		return nil
	}
	p := &v.Prey[index]
	if p.Index != index {
		return nil
	}
	return p
}

// Delta returns the vector from (fromX, fromY) to (toX, toY), along the
// shortest path in wrap mode.
func (v *FlockView) Delta(fromX, fromY, toX, toY float32) (float32, float32) {
	dx := toX - fromX
	dy := toY - fromY
	if v.Wrap {
		if dx > v.Width/2 {
			dx -= v.Width
		} else if dx < -v.Width/2 {
			dx += v.Width
		}
		if dy > v.Height/2 {
			dy -= v.Height
		} else if dy < -v.Height/2 {
			dy += v.Height
		}
	}
	return dx, dy
}
