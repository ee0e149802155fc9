package sim

import (
	"math"
	"runtime"
	"sync"

	"github.com/pthm-cable/murmur/components"
	"github.com/pthm-cable/murmur/systems"
)

// parallelThreshold is the minimum agent count to use parallel
// processing. Below this, single-threaded is faster due to goroutine
// overhead.
const parallelThreshold = 64

// agentSnapshot captures one agent's pre-substep state for the compute
// phase. Force functions only ever read snapshots, never live storage.
type agentSnapshot struct {
	State   systems.AgentState
	Heading float32
}

// agentIntent is the compute phase output for one agent, applied
// sequentially afterwards.
type agentIntent struct {
	AX, AY    float32
	Panic     float32
	Density   float32
	NearestSq float32
}

// workerScratch holds per-worker reusable buffers.
type workerScratch struct {
	neighbors []systems.Neighbor
}

// workChunk is a range of agents for one worker to process.
type workChunk struct {
	start, end int
}

// substepCtx carries the per-substep inputs the compute phase reads.
// Built once before dispatch; read-only while workers run.
type substepCtx struct {
	flock systems.FlockParams
	fov   float32
	t     float64

	windBaseX, windBaseY float32
	windTurbulence       float32
	windNoiseScale       float64
	windTimeScale        float64

	contagionThreshold float32
	contagionFraction  float32

	boundaryMargin float32
	boundaryForce  float32
}

// parallelState holds the snapshot/intent buffers and the persistent
// worker pool.
type parallelState struct {
	snapshots  []agentSnapshot
	intents    []agentIntent
	scratches  []workerScratch
	numWorkers int
	ctx        substepCtx

	workChan chan workChunk
	doneChan chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

func newParallelState(workers int) *parallelState {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	scratches := make([]workerScratch, workers)
	for i := range scratches {
		scratches[i].neighbors = make([]systems.Neighbor, 0, 64)
	}
	return &parallelState{
		numWorkers: workers,
		scratches:  scratches,
		snapshots:  make([]agentSnapshot, 0, 512),
		intents:    make([]agentIntent, 0, 512),
	}
}

// startWorkers launches the persistent worker goroutines.
func (p *parallelState) startWorkers(s *Simulation) {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(s, i)
	}
}

// stopWorkers signals all workers to exit and waits for them.
func (p *parallelState) stopWorkers() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

// worker runs in a goroutine, processing chunks until stopped.
func (p *parallelState) worker(s *Simulation, workerID int) {
	defer p.wg.Done()
	scratch := &p.scratches[workerID]

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			s.computeChunk(chunk.start, chunk.end, scratch)
			p.doneChan <- struct{}{}
		}
	}
}

// computeIntents snapshots the flock and fills the intent buffer, in
// parallel when the flock is large enough. Each agent's result depends
// only on its own snapshot and the read-only grid, so chunk boundaries
// never change the output.
func (s *Simulation) computeIntents() {
	s.parallel.ctx = s.buildSubstepCtx()

	s.parallel.snapshots = s.parallel.snapshots[:0]
	for i, e := range s.entities {
		pos := s.posMap.Get(e)
		vel := s.velMap.Get(e)
		bird := s.birdMap.Get(e)
		s.parallel.snapshots = append(s.parallel.snapshots, agentSnapshot{
			State: systems.AgentState{
				Index: int32(i),
				X:     pos.X,
				Y:     pos.Y,
				VX:    vel.X,
				VY:    vel.Y,
				Panic: bird.Panic,
			},
			Heading: bird.Heading,
		})
	}

	n := len(s.parallel.snapshots)
	if n == 0 {
		return
	}

	if cap(s.parallel.intents) < n {
		s.parallel.intents = make([]agentIntent, n)
	}
	s.parallel.intents = s.parallel.intents[:n]

	if n < parallelThreshold || s.parallel.numWorkers == 1 {
		s.computeChunk(0, n, &s.parallel.scratches[0])
		return
	}
	s.computeParallel(n)
}

// computeParallel dispatches chunks to the worker pool.
func (s *Simulation) computeParallel(n int) {
	if !s.parallel.running {
		s.parallel.startWorkers(s)
	}

	numWorkers := s.parallel.numWorkers
	chunkSize := (n + numWorkers - 1) / numWorkers

	chunksDispatched := 0
	for w := 0; w < numWorkers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}

		s.parallel.workChan <- workChunk{start: start, end: end}
		chunksDispatched++
	}

	for i := 0; i < chunksDispatched; i++ {
		<-s.parallel.doneChan
	}
}

// buildSubstepCtx derives the read-only compute inputs from config.
func (s *Simulation) buildSubstepCtx() substepCtx {
	wind := &s.cfg.Wind
	dir := wind.Direction * math.Pi / 180
	return substepCtx{
		flock: s.flockParams(),
		fov:   float32(s.cfg.Flocking.FieldOfView * math.Pi / 180),
		t:     s.simTime,

		windBaseX:      float32(wind.Speed * math.Cos(dir)),
		windBaseY:      float32(wind.Speed * math.Sin(dir)),
		windTurbulence: float32(wind.Turbulence),
		windNoiseScale: wind.NoiseScale,
		windTimeScale:  wind.TimeScale,

		contagionThreshold: float32(s.cfg.Panic.ContagionThreshold),
		contagionFraction:  float32(s.cfg.Panic.ContagionFraction),

		boundaryMargin: float32(s.cfg.Flocking.BoundaryMargin),
		boundaryForce:  float32(s.cfg.Flocking.BoundaryForce),
	}
}

// computeChunk processes a range of agents: neighbor query, FOV filter,
// swarm rules, wind, panic and flee, contagion, attractors, hooks, and
// the boundary push. Pure reads against the grid and snapshots.
func (s *Simulation) computeChunk(i0, i1 int, scratch *workerScratch) {
	ctx := &s.parallel.ctx
	p := &ctx.flock

	for i := i0; i < i1; i++ {
		snap := &s.parallel.snapshots[i]
		intent := &s.parallel.intents[i]
		st := snap.State

		scratch.neighbors = s.grid.QueryRadiusInto(
			scratch.neighbors[:0],
			st.X, st.Y, p.PerceptionRadius, st.Index,
		)
		// Slow agents perceive in every direction
		if st.VX*st.VX+st.VY*st.VY > systems.MinHeadingSpeedSq {
			scratch.neighbors = systems.FilterFOV(scratch.neighbors, snap.Heading, ctx.fov)
		}
		neighbors := scratch.neighbors

		fx, fy := systems.Swarm(&st, neighbors, s.noise, ctx.t, p)

		wx, wy := s.windForce(st.X, st.Y, ctx)
		fx += wx
		fy += wy

		level := st.Panic
		for _, pv := range s.predatorViews {
			st.Panic = level
			var px, py float32
			level, px, py = systems.PanicResponse(&st, pv.x, pv.y, pv.radius, p)
			fx += px
			fy += py
		}
		if caught := systems.Contagion(neighbors, ctx.contagionThreshold, ctx.contagionFraction); caught > level {
			level = caught
		}
		st.Panic = level

		for j := range s.attractors {
			a := &s.attractors[j]
			ax, ay := systems.AttractorForce(st.X, st.Y, a.X, a.Y, a.Strength, a.Radius, p)
			fx += ax
			fy += ay
		}

		for _, hook := range s.forceHooks {
			hx, hy := hook(st.Index, &st)
			fx += hx
			fy += hy
		}

		if !p.Wrap {
			bx, by := systems.BoundaryForce(st.X, st.Y, ctx.boundaryMargin, ctx.boundaryForce, p.Width, p.Height)
			fx += bx
			fy += by
		}

		nearest := components.NoNeighbor
		for j := range neighbors {
			if d := neighbors[j].DistSq; d < nearest {
				nearest = d
			}
		}

		intent.AX = fx
		intent.AY = fy
		intent.Panic = level
		intent.Density = float32(len(neighbors))
		intent.NearestSq = nearest
	}
}

// windForce returns the directional base wind plus a turbulence term
// sampled from the simplex field by position and time.
func (s *Simulation) windForce(x, y float32, ctx *substepCtx) (float32, float32) {
	fx := ctx.windBaseX
	fy := ctx.windBaseY
	if ctx.windTurbulence > 0 {
		nx := float64(x) * ctx.windNoiseScale
		ny := float64(y) * ctx.windNoiseScale
		nt := ctx.t * ctx.windTimeScale
		fx += ctx.windTurbulence * float32(s.windNoise.Eval3(nx, ny, nt))
		fy += ctx.windTurbulence * float32(s.windNoise.Eval3(nx+windChannel, ny, nt))
	}
	return fx, fy
}
