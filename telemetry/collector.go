package telemetry

// FlockSample carries the per-window end-of-window samples the collector
// aggregates. Slices are caller-owned scratch reused across flushes.
type FlockSample struct {
	AgentCount    int
	PredatorCount int

	Speeds    []float64
	Densities []float64
	Panics    []float64
	Energies  []float64

	ActiveAttractors int
}

// Collector accumulates events within time windows and produces WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int32
	dt                  float32

	windowStartTick int32

	// Event counters for current window
	huntsStarted         int
	huntSuccesses        int
	huntFailures         int
	attractorExpirations int
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per substep (used for tick-to-time conversion)
func NewCollector(windowDurationSec float64, dt float32) *Collector {
	// Round to the nearest tick; float32 dt makes the quotient land just
	// under whole windows (5.0 / float64(float32(1.0/60)) ≈ 299.99994)
	ticksPerWindow := int32(windowDurationSec/float64(dt) + 0.5)
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
		windowStartTick:     0,
	}
}

// RecordHuntStarted records a predator locking onto a target.
func (c *Collector) RecordHuntStarted() {
	c.huntsStarted++
}

// RecordHuntSuccess records a successful strike.
func (c *Collector) RecordHuntSuccess() {
	c.huntSuccesses++
}

// RecordHuntFailure records a blown hunt.
func (c *Collector) RecordHuntFailure() {
	c.huntFailures++
}

// RecordAttractorExpired records an attractor aging out.
func (c *Collector) RecordAttractorExpired() {
	c.attractorExpirations++
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats from the counters and the caller's flock
// sample, then resets counters for the next window.
func (c *Collector) Flush(currentTick int32, sample *FlockSample) WindowStats {
	var successRate float64
	if resolved := c.huntSuccesses + c.huntFailures; resolved > 0 {
		successRate = float64(c.huntSuccesses) / float64(resolved)
	}

	speedMean, speedP10, speedP50, speedP90 := ComputeDistStats(sample.Speeds)
	energyMean, energyP10, energyP50, energyP90 := ComputeDistStats(sample.Energies)
	densityMean, densityVar := ComputeMeanVariance(sample.Densities)

	var panicMean, panicMax float64
	panicked := 0
	if n := len(sample.Panics); n > 0 {
		var sum float64
		for _, p := range sample.Panics {
			sum += p
			if p > panicMax {
				panicMax = p
			}
			if p > 0 {
				panicked++
			}
		}
		panicMean = sum / float64(n)
	}

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * float64(c.dt),

		AgentCount:    sample.AgentCount,
		PredatorCount: sample.PredatorCount,

		SpeedMean: speedMean,
		SpeedP10:  speedP10,
		SpeedP50:  speedP50,
		SpeedP90:  speedP90,

		DensityMean:     densityMean,
		DensityVariance: densityVar,

		PanicMean:     panicMean,
		PanicMax:      panicMax,
		PanickedCount: panicked,

		EnergyMean: energyMean,
		EnergyP10:  energyP10,
		EnergyP50:  energyP50,
		EnergyP90:  energyP90,

		HuntsStarted:  c.huntsStarted,
		HuntSuccesses: c.huntSuccesses,
		HuntFailures:  c.huntFailures,
		SuccessRate:   successRate,

		ActiveAttractors:     sample.ActiveAttractors,
		AttractorExpirations: c.attractorExpirations,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.huntsStarted = 0
	c.huntSuccesses = 0
	c.huntFailures = 0
	c.attractorExpirations = 0

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}
