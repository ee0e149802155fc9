package sim

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/pthm-cable/murmur/components"
	"github.com/pthm-cable/murmur/predator"
)

// spawnAgents appends n agents at random positions with random cruise
// headings. Indices of existing agents are untouched.
func (s *Simulation) spawnAgents(n int) {
	w := float32(s.cfg.World.Width)
	h := float32(s.cfg.World.Height)
	speed := float32(s.cfg.Flocking.MaxSpeed) * 0.5

	for i := 0; i < n; i++ {
		heading := s.rng.Float32() * 2 * math.Pi
		pos := components.Position{
			X: s.rng.Float32() * w,
			Y: s.rng.Float32() * h,
		}
		vel := components.Velocity{
			X: float32(math.Cos(float64(heading))) * speed,
			Y: float32(math.Sin(float64(heading))) * speed,
		}
		bird := components.Bird{
			Heading: heading,
			Energy:  1,
			Nearest: components.NoNeighbor,
		}

		e := s.mapper.NewEntity(&pos, &vel, &bird)
		s.entities = append(s.entities, e)
	}
}

// truncateAgents removes agents from the tail until n remain, so the
// indices of survivors never shift. Predator target locks past the new
// length go stale and resolve through the view lookup fallback.
func (s *Simulation) truncateAgents(n int) {
	for len(s.entities) > n {
		last := len(s.entities) - 1
		s.world.RemoveEntity(s.entities[last])
		s.entities = s.entities[:last]
	}
}

// spawnPredators creates count predators of the named archetype, or
// rotates through all archetypes when the name is empty.
func (s *Simulation) spawnPredators(count int, archetypeName string) error {
	if len(s.archetypes) == 0 {
		return fmt.Errorf("spawning predators: no archetypes configured")
	}

	var fixed *predator.Archetype
	if archetypeName != "" {
		fixed = s.archetypeByName(archetypeName)
		if fixed == nil {
			return fmt.Errorf("spawning predators: unknown archetype %q", archetypeName)
		}
	}

	w := float32(s.cfg.World.Width)
	h := float32(s.cfg.World.Height)
	speedMult := float32(s.cfg.Predator.Speed)
	aggression := float32(s.cfg.Predator.Aggression)

	for i := 0; i < count; i++ {
		arch := fixed
		if arch == nil {
			arch = s.archetypes[i%len(s.archetypes)]
		}
		p := predator.New(
			len(s.predators), arch, s.rngSeed,
			s.rng.Float32()*w, s.rng.Float32()*h,
			speedMult, aggression,
		)
		s.predators = append(s.predators, p)

		slog.Info("predator spawned",
			"id", p.ID,
			"archetype", arch.Name,
			"style", arch.Style,
		)
	}
	return nil
}

func (s *Simulation) archetypeByName(name string) *predator.Archetype {
	for _, a := range s.archetypes {
		if a.Name == name {
			return a
		}
	}
	return nil
}
