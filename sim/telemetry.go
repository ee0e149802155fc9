package sim

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/pthm-cable/murmur/components"
	"github.com/pthm-cable/murmur/predator"
	"github.com/pthm-cable/murmur/telemetry"
)

// flushTelemetry flushes the stats window when due, routes the result
// to the callback, log, and CSV sinks, and checks for bookmarks.
func (s *Simulation) flushTelemetry() {
	if !s.collector.ShouldFlush(s.tick) {
		return
	}

	s.collectSample()
	stats := s.collector.Flush(s.tick, &s.sample)
	perfStats := s.perf.Stats()

	if s.statsCb != nil {
		s.statsCb(stats)
	}

	if s.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if s.output != nil {
		if err := s.output.WriteTelemetry(stats); err != nil {
			slog.Error("failed to write telemetry", "error", err)
		}
		if err := s.output.WritePerf(perfStats, stats.WindowEndTick); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}

	bookmarks := s.bookmarks.Check(stats)
	for _, bm := range bookmarks {
		if s.logStats {
			bm.LogBookmark()
		}

		if bm.Type == telemetry.BookmarkPanicWave {
			s.events = append(s.events, telemetry.NewPanicWaveEvent(s.tick, float32(stats.PanicMean)))
		}

		if s.output != nil {
			if err := s.output.WriteBookmark(bm); err != nil {
				slog.Error("failed to write bookmark", "error", err)
			}
		}

		if s.snapshotDir != "" {
			s.saveSnapshot(&bm)
		}
	}
}

// collectSample refills the reused flock sample from live components.
func (s *Simulation) collectSample() {
	s.sample.AgentCount = len(s.entities)
	s.sample.PredatorCount = len(s.predators)
	s.sample.ActiveAttractors = len(s.attractors)
	s.sample.Speeds = s.sample.Speeds[:0]
	s.sample.Densities = s.sample.Densities[:0]
	s.sample.Panics = s.sample.Panics[:0]
	s.sample.Energies = s.sample.Energies[:0]

	query := s.filter.Query()
	for query.Next() {
		_, vel, bird := query.Get()

		speedSq := float64(vel.X*vel.X + vel.Y*vel.Y)
		s.sample.Speeds = append(s.sample.Speeds, math.Sqrt(speedSq))
		s.sample.Densities = append(s.sample.Densities, float64(bird.Density))
		s.sample.Panics = append(s.sample.Panics, float64(bird.Panic))
		s.sample.Energies = append(s.sample.Energies, float64(bird.Energy))
	}
}

// saveSnapshot writes the current state to the snapshot directory.
func (s *Simulation) saveSnapshot(bookmark *telemetry.Bookmark) {
	snapshot := s.createSnapshot(bookmark)

	path, err := telemetry.SaveSnapshot(snapshot, s.snapshotDir)
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}

	slog.Info("snapshot saved", "path", path, "tick", s.tick)
}

// createSnapshot captures the full state: agents in index order,
// predators, attractors.
func (s *Simulation) createSnapshot(bookmark *telemetry.Bookmark) *telemetry.Snapshot {
	snapshot := &telemetry.Snapshot{
		Version:     telemetry.SnapshotVersion,
		RNGSeed:     s.rngSeed,
		WorldWidth:  float32(s.cfg.World.Width),
		WorldHeight: float32(s.cfg.World.Height),
		Wrap:        s.cfg.World.Wrap,
		Tick:        s.tick,
		SimTime:     s.simTime,
		Bookmark:    bookmark,
	}

	snapshot.Agents = make([]telemetry.AgentRecord, len(s.entities))
	for i, e := range s.entities {
		pos := s.posMap.Get(e)
		vel := s.velMap.Get(e)
		bird := s.birdMap.Get(e)
		snapshot.Agents[i] = telemetry.AgentRecord{
			X:       pos.X,
			Y:       pos.Y,
			VelX:    vel.X,
			VelY:    vel.Y,
			Heading: bird.Heading,
			Panic:   bird.Panic,
			Energy:  bird.Energy,
			Density: bird.Density,
			Nearest: bird.Nearest,
		}
	}

	base := float32(s.cfg.Panic.Radius)
	for _, p := range s.predators {
		ps := p.Snapshot(base)
		snapshot.Predators = append(snapshot.Predators, telemetry.PredatorRecord{
			ID:            ps.ID,
			Archetype:     ps.Archetype,
			X:             ps.X,
			Y:             ps.Y,
			VelX:          ps.VX,
			VelY:          ps.VY,
			State:         ps.State,
			Energy:        ps.Energy,
			Cooldown:      ps.Cooldown,
			Target:        ps.Target,
			HuntSuccesses: ps.HuntSuccesses,
			HuntFailures:  ps.HuntFailures,
		})
	}

	for _, a := range s.attractors {
		snapshot.Attractors = append(snapshot.Attractors, telemetry.AttractorRecord{
			ID:        a.ID,
			X:         a.X,
			Y:         a.Y,
			Strength:  a.Strength,
			Radius:    a.Radius,
			Remaining: a.Remaining,
		})
	}

	return snapshot
}

// RestoreSnapshot overwrites the live state from a snapshot: world
// geometry, every agent, predators matched to archetypes by name, and
// attractors. The accumulator resets; the next update starts clean at
// the snapshot tick.
func (s *Simulation) RestoreSnapshot(snapshot *telemetry.Snapshot) error {
	s.cfg.World.Width = float64(snapshot.WorldWidth)
	s.cfg.World.Height = float64(snapshot.WorldHeight)
	s.cfg.World.Wrap = snapshot.Wrap
	s.cfg.ComputeDerived()

	s.SetAgentCount(len(snapshot.Agents))
	for i, rec := range snapshot.Agents {
		e := s.entities[i]
		pos := s.posMap.Get(e)
		vel := s.velMap.Get(e)
		bird := s.birdMap.Get(e)
		pos.X, pos.Y = rec.X, rec.Y
		vel.X, vel.Y = rec.VelX, rec.VelY
		bird.Heading = rec.Heading
		bird.Panic = rec.Panic
		bird.Energy = rec.Energy
		bird.Density = rec.Density
		// Captures without a nearest-neighbor distance restore as loners
		// so proximity scoring never sees a spurious zero
		bird.Nearest = rec.Nearest
		if bird.Nearest <= 0 {
			bird.Nearest = components.NoNeighbor
		}
	}

	s.predators = s.predators[:0]
	speedMult := float32(s.cfg.Predator.Speed)
	aggression := float32(s.cfg.Predator.Aggression)
	for i := range snapshot.Predators {
		rec := &snapshot.Predators[i]
		arch := s.archetypeByName(rec.Archetype)
		if arch == nil {
			return fmt.Errorf("restoring snapshot: unknown archetype %q", rec.Archetype)
		}
		p := predator.New(rec.ID, arch, s.rngSeed, rec.X, rec.Y, speedMult, aggression)
		p.Restore(&predator.Snapshot{
			ID:            rec.ID,
			Archetype:     rec.Archetype,
			X:             rec.X,
			Y:             rec.Y,
			VX:            rec.VelX,
			VY:            rec.VelY,
			State:         rec.State,
			Energy:        rec.Energy,
			Cooldown:      rec.Cooldown,
			Target:        rec.Target,
			HuntSuccesses: rec.HuntSuccesses,
			HuntFailures:  rec.HuntFailures,
		})
		s.predators = append(s.predators, p)
	}

	s.attractors = s.attractors[:0]
	s.nextAttrID = 0
	for _, rec := range snapshot.Attractors {
		s.attractors = append(s.attractors, Attractor{
			ID:        rec.ID,
			X:         rec.X,
			Y:         rec.Y,
			Strength:  rec.Strength,
			Radius:    rec.Radius,
			Remaining: rec.Remaining,
		})
		if rec.ID >= s.nextAttrID {
			s.nextAttrID = rec.ID + 1
		}
	}

	s.tick = snapshot.Tick
	s.simTime = snapshot.SimTime
	s.accumulator = 0

	slog.Info("snapshot restored",
		"tick", s.tick,
		"agents", len(s.entities),
		"predators", len(s.predators),
	)

	return nil
}
