package sim

import (
	"math"
	"testing"

	"github.com/pthm-cable/murmur/config"
)

// testConfig loads the embedded defaults and trims them down for tests.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	cfg.Flocking.AgentCount = 300
	cfg.Predator.Count = 1
	return cfg
}

func newTestSim(t *testing.T, cfg *config.Config, opts Options) *Simulation {
	t.Helper()
	s, err := New(cfg, opts)
	if err != nil {
		t.Fatalf("creating simulation: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// step advances n fixed substeps directly, without wall-clock pacing.
func step(s *Simulation, n int) {
	for i := 0; i < n; i++ {
		s.substep(float32(DT))
	}
}

func TestDeterministicTrajectories(t *testing.T) {
	a := newTestSim(t, testConfig(t), Options{Seed: 7, Workers: 1})
	b := newTestSim(t, testConfig(t), Options{Seed: 7, Workers: 1})

	step(a, 120)
	step(b, 120)

	agentsA := a.Agents()
	agentsB := b.Agents()
	if len(agentsA) != len(agentsB) {
		t.Fatalf("agent counts diverged: %d vs %d", len(agentsA), len(agentsB))
	}
	for i := range agentsA {
		if agentsA[i] != agentsB[i] {
			t.Fatalf("agent %d diverged: %+v vs %+v", i, agentsA[i], agentsB[i])
		}
	}

	predsA := a.Predators()
	predsB := b.Predators()
	for i := range predsA {
		if predsA[i] != predsB[i] {
			t.Fatalf("predator %d diverged: %+v vs %+v", i, predsA[i], predsB[i])
		}
	}
}

func TestParallelMatchesSequential(t *testing.T) {
	cfgSeq := testConfig(t)
	cfgPar := testConfig(t)

	seq := newTestSim(t, cfgSeq, Options{Seed: 11, Workers: 1})
	par := newTestSim(t, cfgPar, Options{Seed: 11, Workers: 4})

	step(seq, 60)
	step(par, 60)

	agentsSeq := seq.Agents()
	agentsPar := par.Agents()
	for i := range agentsSeq {
		if agentsSeq[i] != agentsPar[i] {
			t.Fatalf("agent %d: parallel %+v != sequential %+v", i, agentsPar[i], agentsSeq[i])
		}
	}
}

func TestSpeedCapInvariant(t *testing.T) {
	cfg := testConfig(t)
	s := newTestSim(t, cfg, Options{Seed: 3, Workers: 1})

	maxSpeed := float32(cfg.Flocking.MaxSpeed)
	for batch := 0; batch < 10; batch++ {
		step(s, 30)
		for i, a := range s.Agents() {
			speed := float32(math.Sqrt(float64(a.VX*a.VX + a.VY*a.VY)))
			limit := maxSpeed * (1 + 0.5*a.Panic)
			if speed > limit+1e-3 {
				t.Fatalf("agent %d speed %v exceeds cap %v (panic %v)", i, speed, limit, a.Panic)
			}
		}
	}
}

func TestPanicBoundedAndDecaysToZero(t *testing.T) {
	cfg := testConfig(t)
	cfg.Flocking.AgentCount = 50
	cfg.Predator.Enabled = false
	cfg.Panic.ContagionFraction = 0
	s := newTestSim(t, cfg, Options{Seed: 5, Workers: 1})

	// Scare one agent directly
	s.birdMap.Get(s.entities[0]).Panic = 1

	step(s, 300) // 0.98^n drops below the snap floor well before 300

	for i, a := range s.Agents() {
		if a.Panic < 0 || a.Panic > 1 {
			t.Fatalf("agent %d panic %v out of [0,1]", i, a.Panic)
		}
		if a.Panic != 0 {
			t.Errorf("agent %d panic %v, want exact 0 after decay", i, a.Panic)
		}
	}
}

func TestEnergyStaysInRange(t *testing.T) {
	cfg := testConfig(t)
	cfg.Flocking.AgentCount = 100
	s := newTestSim(t, cfg, Options{Seed: 9, Workers: 1})

	step(s, 600)

	for i, a := range s.Agents() {
		if a.Energy < 0 || a.Energy > 1 {
			t.Fatalf("agent %d energy %v out of [0,1]", i, a.Energy)
		}
	}
}

func TestFlockConvergenceScenario(t *testing.T) {
	cfg := testConfig(t)
	cfg.Flocking.AgentCount = 500
	cfg.Flocking.AlignmentWeight = 1.0
	cfg.Flocking.CohesionWeight = 1.0
	cfg.Flocking.SeparationWeight = 1.5
	cfg.Flocking.PerceptionRadius = 50
	cfg.Predator.Enabled = false
	s := newTestSim(t, cfg, Options{Seed: 21, Workers: 1})

	step(s, 1)
	s.refreshStats()
	initialDensity := s.Stats().AvgDensity

	step(s, 499)
	s.refreshStats()
	stats := s.Stats()

	if stats.AvgDensity <= initialDensity {
		t.Errorf("flock did not cohere: density %v -> %v", initialDensity, stats.AvgDensity)
	}

	w := float32(cfg.World.Width)
	h := float32(cfg.World.Height)
	for i, a := range s.Agents() {
		if a.X < 0 || a.X > w || a.Y < 0 || a.Y > h {
			t.Fatalf("agent %d at (%v, %v) escaped %vx%v world", i, a.X, a.Y, w, h)
		}
	}
}

func TestPredatorHuntScenario(t *testing.T) {
	cfg := testConfig(t)
	cfg.Flocking.AgentCount = 200
	cfg.Predator.Enabled = true
	cfg.Predator.Count = 1
	cfg.Predator.Archetype = "gyrfalcon"
	cfg.Predator.Aggression = 1.0
	s := newTestSim(t, cfg, Options{Seed: 13, Workers: 1})

	// Leaves idle within two simulated seconds
	leftIdle := false
	for i := 0; i < 120; i++ {
		step(s, 1)
		if s.Predators()[0].State != "idle" {
			leftIdle = true
			break
		}
	}
	if !leftIdle {
		t.Fatal("predator never left idle")
	}

	// At least one resolved hunt within sixty simulated seconds
	for i := 0; i < 60*60; i++ {
		step(s, 1)
		p := s.Predators()[0]
		if p.HuntSuccesses+p.HuntFailures >= 1 {
			return
		}
	}
	t.Error("no hunt outcome within 60 simulated seconds")
}

func TestUpdateConsumesFixedSubsteps(t *testing.T) {
	cfg := testConfig(t)
	cfg.Flocking.AgentCount = 10
	cfg.Predator.Enabled = false
	s := newTestSim(t, cfg, Options{Seed: 1, Workers: 1})

	// A one-second frame clamps to 0.1s = exactly 6 substeps
	s.Update(1.0)
	if s.Tick() != 6 {
		t.Errorf("tick = %d after clamped update, want 6", s.Tick())
	}

	// Sub-substep remainders accumulate
	s.Update(DT / 2)
	if s.Tick() != 6 {
		t.Errorf("tick = %d, half a substep should not advance", s.Tick())
	}
	s.Update(DT / 2)
	if s.Tick() != 7 {
		t.Errorf("tick = %d after accumulated full substep, want 7", s.Tick())
	}
}

func TestPausedShortCircuits(t *testing.T) {
	cfg := testConfig(t)
	cfg.Flocking.AgentCount = 10
	cfg.Flocking.Paused = true
	s := newTestSim(t, cfg, Options{Seed: 1, Workers: 1})

	s.Update(1.0)
	s.UpdateHeadless()
	if s.Tick() != 0 {
		t.Errorf("tick = %d while paused, want 0", s.Tick())
	}

	cfg.Flocking.Paused = false
	s.Update(1.0)
	if s.Tick() == 0 {
		t.Error("unpausing did not resume")
	}
}
