package sim

import (
	"log/slog"

	"github.com/pthm-cable/murmur/predator"
	"github.com/pthm-cable/murmur/telemetry"
)

// AgentView is one agent's state as exposed to renderers and side
// layers. Plain values; mutating a view has no effect on the world.
type AgentView struct {
	X, Y    float32
	VX, VY  float32
	Heading float32
	Panic   float32
	Energy  float32
	Density float32
}

// PredatorStatus summarizes one predator for the stats view.
type PredatorStatus struct {
	ID        int
	Archetype string
	State     string
	Energy    float32
	Target    int32
	Successes int
	Failures  int
}

// Stats is the aggregate view recomputed once per outer update.
type Stats struct {
	FPS             float64
	Tick            int32
	SimTime         float64
	Count           int
	AvgDensity      float64
	AvgVelocity     float64
	AvgEnergy       float64
	DensityVariance float64
	Predators       []PredatorStatus
}

// SetAgentCount grows or shrinks the flock to n agents. Growth spawns
// at random positions; shrink truncates from the tail so surviving
// indices stay stable.
func (s *Simulation) SetAgentCount(n int) {
	if n < 0 {
		n = 0
	}
	cur := len(s.entities)
	switch {
	case n > cur:
		s.spawnAgents(n - cur)
	case n < cur:
		s.truncateAgents(n)
	default:
		return
	}
	s.cfg.Flocking.AgentCount = n
	slog.Info("flock resized", "from", cur, "to", n)
}

// SetPerceptionRadius updates the perception radius; the grid cell size
// follows on the next substep.
func (s *Simulation) SetPerceptionRadius(r float64) {
	if r <= 0 {
		return
	}
	s.cfg.Flocking.PerceptionRadius = r
}

// AddAttractor places an attractor (negative strength repels) and
// returns its id. lifetime is in simulated seconds.
func (s *Simulation) AddAttractor(x, y, strength, radius, lifetime float32) int32 {
	id := s.nextAttrID
	s.nextAttrID++
	s.attractors = append(s.attractors, Attractor{
		ID:        id,
		X:         x,
		Y:         y,
		Strength:  strength,
		Radius:    radius,
		Remaining: lifetime,
	})
	return id
}

// RemoveAttractor removes the attractor with the given id before its
// lifetime runs out. Reports whether it was present.
func (s *Simulation) RemoveAttractor(id int32) bool {
	for i := range s.attractors {
		if s.attractors[i].ID == id {
			s.attractors = append(s.attractors[:i], s.attractors[i+1:]...)
			return true
		}
	}
	return false
}

// SetPredatorPosition teleports a predator, e.g. for cursor-driven
// control layers. Velocity is preserved.
func (s *Simulation) SetPredatorPosition(id int, x, y float32) {
	if id < 0 || id >= len(s.predators) {
		return
	}
	s.predators[id].SetPosition(x, y)
}

// AddForceHook registers an extra per-agent force callback invoked each
// substep during the compute phase.
func (s *Simulation) AddForceHook(hook ForceHook) {
	s.forceHooks = append(s.forceHooks, hook)
}

// Agents returns a read-only snapshot of the flock. The slice is reused
// across calls; callers must not retain it past the next call.
func (s *Simulation) Agents() []AgentView {
	n := len(s.entities)
	if cap(s.agents) < n {
		s.agents = make([]AgentView, n)
	}
	s.agents = s.agents[:n]

	for i, e := range s.entities {
		pos := s.posMap.Get(e)
		vel := s.velMap.Get(e)
		bird := s.birdMap.Get(e)
		s.agents[i] = AgentView{
			X:       pos.X,
			Y:       pos.Y,
			VX:      vel.X,
			VY:      vel.Y,
			Heading: bird.Heading,
			Panic:   bird.Panic,
			Energy:  bird.Energy,
			Density: bird.Density,
		}
	}
	return s.agents
}

// Attractors returns a copy of the live attractors.
func (s *Simulation) Attractors() []Attractor {
	out := make([]Attractor, len(s.attractors))
	copy(out, s.attractors)
	return out
}

// Predators returns JSON-serializable snapshots of every predator,
// panic radii resolved against the configured base.
func (s *Simulation) Predators() []predator.Snapshot {
	base := float32(s.cfg.Panic.Radius)
	out := make([]predator.Snapshot, len(s.predators))
	for i, p := range s.predators {
		out[i] = p.Snapshot(base)
	}
	return out
}

// Stats returns the aggregate view computed by the last outer update.
func (s *Simulation) Stats() Stats {
	return s.stats
}

// Tick returns the number of completed substeps.
func (s *Simulation) Tick() int32 {
	return s.tick
}

// SimTime returns the accumulated simulated seconds.
func (s *Simulation) SimTime() float64 {
	return s.simTime
}

// DrainEvents returns the events accumulated since the previous drain
// and clears the buffer. Side layers poll this for hunt flashes and
// attractor expirations.
func (s *Simulation) DrainEvents() []telemetry.Event {
	if len(s.events) == 0 {
		return nil
	}
	out := make([]telemetry.Event, len(s.events))
	copy(out, s.events)
	s.events = s.events[:0]
	return out
}

// refreshStats recomputes the aggregate view. Called once per outer
// update, not per substep.
func (s *Simulation) refreshStats() {
	s.collectSample()

	avgVel, _ := telemetry.ComputeMeanVariance(s.sample.Speeds)
	avgDen, denVar := telemetry.ComputeMeanVariance(s.sample.Densities)
	avgEnergy, _ := telemetry.ComputeMeanVariance(s.sample.Energies)

	if cap(s.stats.Predators) < len(s.predators) {
		s.stats.Predators = make([]PredatorStatus, len(s.predators))
	}
	s.stats.Predators = s.stats.Predators[:len(s.predators)]
	for i, p := range s.predators {
		s.stats.Predators[i] = PredatorStatus{
			ID:        p.ID,
			Archetype: p.Arch.Name,
			State:     p.State().String(),
			Energy:    p.Energy(),
			Target:    p.Target(),
			Successes: p.Successes(),
			Failures:  p.Failures(),
		}
	}

	s.stats.FPS = s.perf.Stats().FPS
	s.stats.Tick = s.tick
	s.stats.SimTime = s.simTime
	s.stats.Count = len(s.entities)
	s.stats.AvgDensity = avgDen
	s.stats.AvgVelocity = avgVel
	s.stats.AvgEnergy = avgEnergy
	s.stats.DensityVariance = denVar
}
