// Package sim implements the orchestrator: a fixed-timestep loop over an
// ECS world of flocking agents, the predators hunting them, and the
// telemetry pipeline observing both. The engine is headless; renderers
// and control layers work through the read views and entry points in
// api.go.
package sim

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/mlange-42/ark/ecs"
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/murmur/components"
	"github.com/pthm-cable/murmur/config"
	"github.com/pthm-cable/murmur/predator"
	"github.com/pthm-cable/murmur/systems"
	"github.com/pthm-cable/murmur/telemetry"
)

// DT is the fixed substep length in seconds.
const DT = 1.0 / 60.0

// maxFrameDelta caps the scaled wall-clock delta entering the
// accumulator, so a stall never triggers a catch-up spiral.
const maxFrameDelta = 0.1

// windChannel offsets the second turbulence axis so the x and y
// components sample decorrelated regions of the same noise field.
const windChannel = 37.3

// Attractor is a point of interest pulling (or, with negative strength,
// pushing) nearby agents. Removed once its lifetime runs out.
type Attractor struct {
	ID        int32
	X, Y      float32
	Strength  float32
	Radius    float32
	Remaining float32 // seconds
}

// ForceHook is an extension point invoked once per agent per substep.
// Side layers return an extra force to add to the agent's accumulator.
// Hooks run during the compute phase and must not mutate shared state.
type ForceHook func(index int32, agent *systems.AgentState) (fx, fy float32)

// Options configures a Simulation beyond what the config file carries.
type Options struct {
	Seed           int64
	Workers        int // 0 = GOMAXPROCS, 1 = force sequential
	LogStats       bool
	StatsWindowSec float64 // 0 = use config
	OutputDir      string
	SnapshotDir    string
	StepsPerUpdate int // substeps per UpdateHeadless call

	// StatsCallback receives every flushed telemetry window.
	StatsCallback func(telemetry.WindowStats)
}

// Simulation owns the world, all generators and scratch buffers, and the
// telemetry sinks. Not safe for concurrent use; one goroutine drives it.
type Simulation struct {
	cfg *config.Config

	world   *ecs.World
	mapper  *ecs.Map3[components.Position, components.Velocity, components.Bird]
	filter  *ecs.Filter3[components.Position, components.Velocity, components.Bird]
	posMap  *ecs.Map1[components.Position]
	velMap  *ecs.Map1[components.Velocity]
	birdMap *ecs.Map1[components.Bird]

	// Ordered entity list: the agent index every subsystem shares.
	// Growth appends, shrink truncates from the tail, so indices of
	// surviving agents never move.
	entities []ecs.Entity

	grid      *systems.SpatialGrid
	noise     *systems.PerlinNoise
	windNoise opensimplex.Noise
	rng       *rand.Rand
	rngSeed   int64

	archetypes []*predator.Archetype
	predators  []*predator.Predator

	attractors []Attractor
	nextAttrID int32

	tick        int32
	simTime     float64
	accumulator float64

	parallel *parallelState

	// Grid geometry the current buckets were built for.
	gridCellSize float32
	gridW, gridH float32

	forceHooks []ForceHook

	// Predator positions and scare radii captured before the compute
	// phase, so every agent reads the same predator state.
	predatorViews []predatorView
	view          predator.FlockView

	collector   *telemetry.Collector
	perf        *telemetry.PerfCollector
	bookmarks   *telemetry.BookmarkDetector
	hunts       *telemetry.HuntTracker
	output      *telemetry.OutputManager
	logStats    bool
	snapshotDir string
	stepsPerUpd int
	statsCb     func(telemetry.WindowStats)

	events []telemetry.Event

	// Reused sampling buffers for stats and telemetry flushes.
	sample telemetry.FlockSample
	agents []AgentView
	stats  Stats
}

type predatorView struct {
	x, y   float32
	radius float32
}

// New creates a simulation from the given config. The config remains
// externally owned: callers may mutate Flocking, Wind, Panic, and Energy
// fields between updates and the next substep picks them up.
func New(cfg *config.Config, opts Options) (*Simulation, error) {
	world := ecs.NewWorld()

	s := &Simulation{
		cfg:     cfg,
		world:   world,
		mapper:  ecs.NewMap3[components.Position, components.Velocity, components.Bird](world),
		filter:  ecs.NewFilter3[components.Position, components.Velocity, components.Bird](world),
		posMap:  ecs.NewMap1[components.Position](world),
		velMap:  ecs.NewMap1[components.Velocity](world),
		birdMap: ecs.NewMap1[components.Bird](world),

		rng:     rand.New(rand.NewSource(opts.Seed)),
		rngSeed: opts.Seed,

		noise:     systems.NewPerlinNoise(opts.Seed),
		windNoise: opensimplex.New(opts.Seed + 1),

		logStats:    opts.LogStats,
		snapshotDir: opts.SnapshotDir,
		stepsPerUpd: max(opts.StepsPerUpdate, 1),
		statsCb:     opts.StatsCallback,
	}

	s.gridCellSize = float32(cfg.Flocking.PerceptionRadius)
	s.gridW = cfg.Derived.WorldW32
	s.gridH = cfg.Derived.WorldH32
	s.grid = systems.NewSpatialGrid(s.gridW, s.gridH, s.gridCellSize, cfg.World.Wrap)

	s.parallel = newParallelState(opts.Workers)

	for i := range cfg.Archetypes {
		arch, err := predator.FromConfig(&cfg.Archetypes[i])
		if err != nil {
			return nil, fmt.Errorf("building archetypes: %w", err)
		}
		s.archetypes = append(s.archetypes, arch)
	}

	statsWindow := cfg.Telemetry.StatsWindow
	if opts.StatsWindowSec > 0 {
		statsWindow = opts.StatsWindowSec
	}
	s.collector = telemetry.NewCollector(statsWindow, DT)
	s.perf = telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow)
	s.bookmarks = telemetry.NewBookmarkDetector(cfg.Telemetry.BookmarkHistorySize, telemetry.BookmarkThresholds{
		PanicWaveMultiplier: cfg.Bookmarks.PanicWave.Multiplier,
		PanicWaveMinPanic:   cfg.Bookmarks.PanicWave.MinPanic,
		VarianceThreshold:   cfg.Bookmarks.Convergence.VarianceThreshold,
		StableWindows:       cfg.Bookmarks.Convergence.StableWindows,
	})
	s.hunts = telemetry.NewHuntTracker(DT)

	output, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("opening output: %w", err)
	}
	s.output = output
	if err := s.output.WriteConfig(cfg); err != nil {
		return nil, fmt.Errorf("writing config echo: %w", err)
	}

	s.spawnAgents(cfg.Flocking.AgentCount)
	if cfg.Predator.Enabled {
		if err := s.spawnPredators(cfg.Predator.Count, cfg.Predator.Archetype); err != nil {
			return nil, err
		}
	}

	slog.Info("simulation created",
		"seed", opts.Seed,
		"agents", len(s.entities),
		"predators", len(s.predators),
		"world", fmt.Sprintf("%.0fx%.0f", cfg.World.Width, cfg.World.Height),
		"wrap", cfg.World.Wrap,
	)

	return s, nil
}

// Update advances the simulation by one rendered frame. frameDelta is
// wall-clock seconds since the previous call; it is scaled by the
// simulation speed, clamped, and consumed in fixed substeps.
func (s *Simulation) Update(frameDelta float64) {
	s.perf.RecordFrame()

	if s.cfg.Flocking.Paused {
		return
	}

	delta := frameDelta * s.cfg.Flocking.SimulationSpeed
	if delta > maxFrameDelta {
		delta = maxFrameDelta
	}
	s.accumulator += delta

	for s.accumulator >= DT {
		s.substep(float32(DT))
		s.accumulator -= DT
	}

	s.refreshStats()
}

// UpdateHeadless advances a fixed number of substeps without wall-clock
// pacing, for batch runs.
func (s *Simulation) UpdateHeadless() {
	s.perf.RecordFrame()

	if s.cfg.Flocking.Paused {
		return
	}

	for i := 0; i < s.stepsPerUpd; i++ {
		s.substep(float32(DT))
	}

	s.refreshStats()
}

// substep runs one fixed tick: index rebuild, force computation against
// the pre-substep snapshot, sequential apply, attractor aging, predator
// updates, telemetry.
func (s *Simulation) substep(dt float32) {
	s.perf.StartTick()

	s.perf.StartPhase(telemetry.PhaseSpatialGrid)
	s.syncGrid()
	s.rebuildGrid()

	s.perf.StartPhase(telemetry.PhaseForces)
	s.capturePredatorViews()
	s.computeIntents()

	s.perf.StartPhase(telemetry.PhaseIntegrate)
	s.applyIntents(dt)

	s.perf.StartPhase(telemetry.PhaseAttractors)
	s.ageAttractors(dt)

	s.perf.StartPhase(telemetry.PhasePredators)
	s.updatePredators(dt)

	s.perf.StartPhase(telemetry.PhaseTelemetry)
	s.tick++
	s.simTime += float64(dt)
	s.flushTelemetry()

	s.perf.EndTick()
}

// syncGrid re-derives the grid geometry when the perception radius or
// world size changed since the buckets were built.
func (s *Simulation) syncGrid() {
	cell := float32(s.cfg.Flocking.PerceptionRadius)
	w := float32(s.cfg.World.Width)
	h := float32(s.cfg.World.Height)
	if cell != s.gridCellSize || w != s.gridW || h != s.gridH {
		s.gridCellSize = cell
		s.gridW, s.gridH = w, h
		s.grid.Resize(w, h, cell)
	}
	s.grid.SetWrap(s.cfg.World.Wrap)
}

// rebuildGrid clears and refills the index in agent-index order.
func (s *Simulation) rebuildGrid() {
	s.grid.Clear()
	for i, e := range s.entities {
		pos := s.posMap.Get(e)
		vel := s.velMap.Get(e)
		bird := s.birdMap.Get(e)
		s.grid.Insert(int32(i), pos.X, pos.Y, vel.X, vel.Y, bird.Panic)
	}
}

// capturePredatorViews freezes predator positions and scare radii for
// the compute phase.
func (s *Simulation) capturePredatorViews() {
	base := float32(s.cfg.Panic.Radius)
	s.predatorViews = s.predatorViews[:0]
	for _, p := range s.predators {
		s.predatorViews = append(s.predatorViews, predatorView{
			x:      p.X,
			y:      p.Y,
			radius: p.EffectivePanicRadius(base),
		})
	}
}

// flockParams derives the per-substep force model inputs from config.
func (s *Simulation) flockParams() systems.FlockParams {
	fl := &s.cfg.Flocking
	return systems.FlockParams{
		MaxSpeed:         float32(fl.MaxSpeed),
		MaxForce:         float32(fl.MaxForce),
		PerceptionRadius: float32(fl.PerceptionRadius),
		SeparationRadius: float32(fl.SeparationRadius),
		AlignmentWeight:  float32(fl.AlignmentWeight),
		CohesionWeight:   float32(fl.CohesionWeight),
		SeparationWeight: float32(fl.SeparationWeight),
		NoiseStrength:    float32(fl.NoiseStrength),
		WanderStrength:   float32(fl.WanderStrength),
		Width:            float32(s.cfg.World.Width),
		Height:           float32(s.cfg.World.Height),
		Wrap:             s.cfg.World.Wrap,
	}
}

// applyIntents writes the computed forces back in agent-index order:
// panic level, integration, energy, and perception stats. Sequential on
// purpose; this is what makes the parallel path bit-identical.
func (s *Simulation) applyIntents(dt float32) {
	phys := systems.PhysicsParams{
		DT:         dt,
		MaxSpeed:   float32(s.cfg.Flocking.MaxSpeed),
		PanicDecay: float32(s.cfg.Panic.Decay),
		Width:      float32(s.cfg.World.Width),
		Height:     float32(s.cfg.World.Height),
		Wrap:       s.cfg.World.Wrap,
	}
	energy := systems.EnergyParams{
		DrainRate:     float32(s.cfg.Energy.DrainRate),
		PanicDrain:    float32(s.cfg.Energy.PanicDrain),
		RegenRate:     float32(s.cfg.Energy.RegenRate),
		RestThreshold: float32(s.cfg.Energy.RestThreshold),
	}

	for i, e := range s.entities {
		in := &s.parallel.intents[i]
		pos := s.posMap.Get(e)
		vel := s.velMap.Get(e)
		bird := s.birdMap.Get(e)

		bird.Panic = in.Panic
		systems.Integrate(pos, vel, bird, in.AX, in.AY, &phys)

		speed := float32(math.Sqrt(float64(vel.X*vel.X + vel.Y*vel.Y)))
		systems.UpdateEnergy(bird, speed, phys.MaxSpeed, dt, &energy)

		bird.Density = in.Density
		bird.Nearest = in.NearestSq
	}
}

// ageAttractors decrements lifetimes and removes expired attractors,
// preserving the order of the survivors.
func (s *Simulation) ageAttractors(dt float32) {
	kept := s.attractors[:0]
	for i := range s.attractors {
		a := s.attractors[i]
		a.Remaining -= dt
		if a.Remaining <= 0 {
			s.collector.RecordAttractorExpired()
			s.events = append(s.events, telemetry.NewAttractorExpiredEvent(s.tick, a.ID))
			continue
		}
		kept = append(kept, a)
	}
	s.attractors = kept
}

// updatePredators rebuilds the flock view from post-integration state
// and steps every predator, routing hunt events into telemetry.
func (s *Simulation) updatePredators(dt float32) {
	if len(s.predators) == 0 {
		return
	}
	s.rebuildFlockView()

	for _, p := range s.predators {
		ev := p.Update(dt, &s.view)

		if ev.HuntStarted {
			s.collector.RecordHuntStarted()
			s.hunts.Start(p.ID, p.Arch.Name, ev.Target, s.tick)
			s.events = append(s.events, telemetry.NewHuntStartedEvent(s.tick, p.ID, ev.Target))
		}

		switch ev.Outcome {
		case predator.OutcomeSuccess:
			s.collector.RecordHuntSuccess()
			s.events = append(s.events, telemetry.NewHuntSuccessEvent(s.tick, p.ID, ev.Target))
			s.resolveHunt(p, s.tick, "success")
			s.strikePrey(ev.Target)
			if s.logStats {
				slog.Info("attack_success",
					"predator", p.ID,
					"archetype", p.Arch.Name,
					"target", ev.Target,
					"tick", s.tick,
				)
			}
		case predator.OutcomeFailure:
			s.collector.RecordHuntFailure()
			s.events = append(s.events, telemetry.NewHuntFailureEvent(s.tick, p.ID, ev.Target))
			s.resolveHunt(p, s.tick, "failure")
		}
	}
}

func (s *Simulation) resolveHunt(p *predator.Predator, tick int32, outcome string) {
	rec := s.hunts.Resolve(p.ID, tick, outcome)
	if rec == nil || s.output == nil {
		return
	}
	if err := s.output.WriteHunt(*rec); err != nil {
		slog.Error("failed to write hunt record", "error", err)
	}
}

// strikePrey maxes the struck agent's panic. The flock keeps its size;
// a successful strike scatters rather than removes.
func (s *Simulation) strikePrey(index int32) {
	if index < 0 || int(index) >= len(s.entities) {
		return
	}
	bird := s.birdMap.Get(s.entities[index])
	bird.Panic = 1
}

// rebuildFlockView snapshots every agent plus the flock centroid for
// predator targeting.
func (s *Simulation) rebuildFlockView() {
	n := len(s.entities)
	if cap(s.view.Prey) < n {
		s.view.Prey = make([]predator.Prey, n)
	}
	s.view.Prey = s.view.Prey[:n]

	var cx, cy float64
	for i, e := range s.entities {
		pos := s.posMap.Get(e)
		vel := s.velMap.Get(e)
		bird := s.birdMap.Get(e)
		s.view.Prey[i] = predator.Prey{
			Index:     int32(i),
			X:         pos.X,
			Y:         pos.Y,
			VX:        vel.X,
			VY:        vel.Y,
			Panic:     bird.Panic,
			Density:   bird.Density,
			NearestSq: bird.Nearest,
		}
		cx += float64(pos.X)
		cy += float64(pos.Y)
	}
	if n > 0 {
		s.view.CentroidX = float32(cx / float64(n))
		s.view.CentroidY = float32(cy / float64(n))
	}
	s.view.Width = float32(s.cfg.World.Width)
	s.view.Height = float32(s.cfg.World.Height)
	s.view.Wrap = s.cfg.World.Wrap
}

// Close stops the worker pool and flushes telemetry output.
func (s *Simulation) Close() error {
	s.parallel.stopWorkers()
	return s.output.Close()
}
