package main

import (
	"math"
	"sync"

	"github.com/pthm-cable/murmur/config"
	"github.com/pthm-cable/murmur/sim"
	"github.com/pthm-cable/murmur/telemetry"
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params      *ParamVector
	maxTicks    int32
	seeds       []int64
	baseConfig  *config.Config
	statsWindow float64

	// Best run tracking
	mu          sync.Mutex
	bestFitness float64
	bestWindows []telemetry.WindowStats
	lastQuality float64 // quality from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int32, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxTicks:    maxTicks,
		seeds:       seeds,
		baseConfig:  baseCfg,
		statsWindow: 10.0, // 10 seconds per window
		bestFitness: math.Inf(1),
	}
}

// BestWindows returns the window stats series from the best evaluation.
func (fe *FitnessEvaluator) BestWindows() []telemetry.WindowStats {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestWindows
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// runResult holds the results from a single simulation run.
type runResult struct {
	windowStats []telemetry.WindowStats // collected via StatsCallback each window
}

// seedResult holds the result from one seed evaluation.
type seedResult struct {
	fitness float64
	quality float64
	windows []telemetry.WindowStats
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Fitness is negative murmuration quality averaged across seeds.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	// Run all seeds in parallel
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			result := fe.runSimulation(x, s)
			quality := fe.computeQuality(result.windowStats)
			results[idx] = seedResult{
				fitness: -quality,
				quality: quality,
				windows: result.windowStats,
			}
		}(i, seed)
	}
	wg.Wait()

	// Aggregate results
	var totalFitness, totalQuality float64
	var bestSeedFitness float64 = math.Inf(1)
	var bestSeedWindows []telemetry.WindowStats

	for _, r := range results {
		totalFitness += r.fitness
		totalQuality += r.quality
		if r.fitness < bestSeedFitness {
			bestSeedFitness = r.fitness
			bestSeedWindows = r.windows
		}
	}

	n := float64(len(fe.seeds))
	avgFitness := totalFitness / n

	// Update best tracking
	fe.mu.Lock()
	if avgFitness < fe.bestFitness {
		fe.bestFitness = avgFitness
		fe.bestWindows = bestSeedWindows
	}
	fe.lastQuality = totalQuality / n
	fe.mu.Unlock()

	return avgFitness
}

// runSimulation executes a single headless simulation run for maxTicks.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) *runResult {
	// Create a fresh config copy and apply parameters
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	result := &runResult{}

	// Seeds already run concurrently; keep each run single-threaded
	s, err := sim.New(cfg, sim.Options{
		Seed:           seed,
		Workers:        1,
		StatsWindowSec: fe.statsWindow,
		StepsPerUpdate: 1,
		StatsCallback: func(stats telemetry.WindowStats) {
			result.windowStats = append(result.windowStats, stats)
		},
	})
	if err != nil {
		return result
	}
	defer s.Close()

	for s.Tick() < fe.maxTicks {
		s.UpdateHeadless()
	}

	return result
}

// copyConfig creates a deep copy of the base config.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	// Load fresh defaults and copy base values
	cfg, _ := config.Load("")

	cfg.World = fe.baseConfig.World
	cfg.Flocking = fe.baseConfig.Flocking
	cfg.Wind = fe.baseConfig.Wind
	cfg.Panic = fe.baseConfig.Panic
	cfg.Energy = fe.baseConfig.Energy
	cfg.Predator = fe.baseConfig.Predator
	cfg.Telemetry = fe.baseConfig.Telemetry
	cfg.Bookmarks = fe.baseConfig.Bookmarks
	cfg.Archetypes = fe.baseConfig.Archetypes

	cfg.ComputeDerived()
	return cfg
}

// Quality component weights.
const (
	qualityWeightCohesion  = 0.30
	qualityWeightStability = 0.25
	qualityWeightRecovery  = 0.25
	qualityWeightHunting   = 0.20

	qualityWarmupWindows = 3 // skip first N windows (warmup)

	// Neighbor count where the cohesion score reaches half its maximum
	cohesionHalfDensity = 10.0
)

// computeQuality computes murmuration quality ∈ [0, 1] from window stats.
//
// A good murmuration holds a dense flock (cohesion), keeps its shape
// from window to window (stability), sheds panic and regains energy
// between attacks (recovery), and sustains a hunt cadence where the
// predator connects sometimes but not often (hunting).
func (fe *FitnessEvaluator) computeQuality(windows []telemetry.WindowStats) float64 {
	if len(windows) <= qualityWarmupWindows {
		return 0
	}

	valid := windows[qualityWarmupWindows:]

	// --- Per-window accumulators ---
	var cohesionSum, recoverySum, huntSum float64
	var huntCount int

	// --- Full time series for stability ---
	densities := make([]float64, 0, len(valid))
	speeds := make([]float64, 0, len(valid))

	for _, w := range valid {
		densities = append(densities, w.DensityMean)
		speeds = append(speeds, w.SpeedMean)

		// 1. Cohesion score: saturating in mean neighbor count
		cohesionSum += w.DensityMean / (w.DensityMean + cohesionHalfDensity)

		// 3. Recovery score: healthy energy reserves and low ambient fear
		energyH := math.Exp(-math.Pow((w.EnergyMean-0.60)/0.25, 2))
		panicH := math.Exp(-math.Pow(w.PanicMean/0.25, 2))
		recoverySum += (energyH + panicH) / 2.0

		// 4. Hunting balance score (only when hunts were attempted)
		if w.HuntsStarted > 0 {
			srScore := math.Exp(-math.Pow((w.SuccessRate-0.25)/0.20, 2))
			activityScore := 1.0 - math.Exp(-float64(w.HuntsStarted)/2.0)
			huntSum += 0.6*srScore + 0.4*activityScore
			huntCount++
		}
	}

	n := float64(len(valid))

	// 1. Cohesion (averaged per window)
	cohesionScore := cohesionSum / n

	// 2. Shape stability (CV of density and speed across windows)
	stabilityScore := 0.0
	if len(densities) >= 2 {
		cvDensity := cv(densities)
		cvSpeed := cv(speeds)
		stabilityScore = math.Exp(-(cvDensity*cvDensity + cvSpeed*cvSpeed))
	}

	// 3. Recovery (averaged per window)
	recoveryScore := recoverySum / n

	// 4. Hunting balance (averaged per window with hunting)
	huntScore := 0.0
	if huntCount > 0 {
		huntScore = huntSum / float64(huntCount)
	}

	quality := qualityWeightCohesion*cohesionScore +
		qualityWeightStability*stabilityScore +
		qualityWeightRecovery*recoveryScore +
		qualityWeightHunting*huntScore

	return clamp01(quality)
}

// cv computes the coefficient of variation (std/mean) for a slice of values.
func cv(values []float64) float64 {
	n := float64(len(values))
	if n == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / n
	if mean == 0 {
		return 0
	}
	var sqDiff float64
	for _, v := range values {
		d := v - mean
		sqDiff += d * d
	}
	return math.Sqrt(sqDiff/n) / mean
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
