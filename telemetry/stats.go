package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated flock statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Population at window end
	AgentCount    int `csv:"agents"`
	PredatorCount int `csv:"predators"`

	// Kinematics (sampled at window end)
	SpeedMean float64 `csv:"speed_mean"`
	SpeedP10  float64 `csv:"speed_p10"`
	SpeedP50  float64 `csv:"speed_p50"`
	SpeedP90  float64 `csv:"speed_p90"`

	// Flock shape
	DensityMean     float64 `csv:"density_mean"`
	DensityVariance float64 `csv:"density_variance"`

	// Fear
	PanicMean     float64 `csv:"panic_mean"`
	PanicMax      float64 `csv:"panic_max"`
	PanickedCount int     `csv:"panicked"` // agents above zero panic

	// Exertion
	EnergyMean float64 `csv:"energy_mean"`
	EnergyP10  float64 `csv:"energy_p10"`
	EnergyP50  float64 `csv:"energy_p50"`
	EnergyP90  float64 `csv:"energy_p90"`

	// Hunting during window
	HuntsStarted  int     `csv:"hunts_started"`
	HuntSuccesses int     `csv:"hunt_successes"`
	HuntFailures  int     `csv:"hunt_failures"`
	SuccessRate   float64 `csv:"success_rate"`

	// Environment
	ActiveAttractors     int `csv:"active_attractors"`
	AttractorExpirations int `csv:"attractor_expirations"`
}

// Percentile calculates the p-th percentile of a sorted slice with linear
// interpolation. p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeDistStats calculates mean and percentiles from sample values.
// The input slice is not modified.
func ComputeDistStats(values []float64) (mean, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0
	}

	mean = stat.Mean(values, nil)

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)

	return mean, p10, p50, p90
}

// ComputeMeanVariance calculates the mean and population variance.
func ComputeMeanVariance(values []float64) (mean, variance float64) {
	n := len(values)
	if n == 0 {
		return 0, 0
	}
	if n == 1 {
		return values[0], 0
	}
	mean, variance = stat.MeanVariance(values, nil)
	// MeanVariance is the unbiased sample variance; scale to population
	variance *= float64(n-1) / float64(n)
	return mean, variance
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("agents", s.AgentCount),
		slog.Int("predators", s.PredatorCount),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_p10", s.SpeedP10),
		slog.Float64("speed_p50", s.SpeedP50),
		slog.Float64("speed_p90", s.SpeedP90),
		slog.Float64("density_mean", s.DensityMean),
		slog.Float64("density_variance", s.DensityVariance),
		slog.Float64("panic_mean", s.PanicMean),
		slog.Float64("panic_max", s.PanicMax),
		slog.Int("panicked", s.PanickedCount),
		slog.Float64("energy_mean", s.EnergyMean),
		slog.Float64("energy_p10", s.EnergyP10),
		slog.Float64("energy_p50", s.EnergyP50),
		slog.Float64("energy_p90", s.EnergyP90),
		slog.Int("hunts_started", s.HuntsStarted),
		slog.Int("hunt_successes", s.HuntSuccesses),
		slog.Int("hunt_failures", s.HuntFailures),
		slog.Float64("success_rate", s.SuccessRate),
		slog.Int("active_attractors", s.ActiveAttractors),
		slog.Int("attractor_expirations", s.AttractorExpirations),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"agents", s.AgentCount,
		"predators", s.PredatorCount,
		"speed_mean", s.SpeedMean,
		"speed_p10", s.SpeedP10,
		"speed_p50", s.SpeedP50,
		"speed_p90", s.SpeedP90,
		"density_mean", s.DensityMean,
		"density_variance", s.DensityVariance,
		"panic_mean", s.PanicMean,
		"panic_max", s.PanicMax,
		"panicked", s.PanickedCount,
		"energy_mean", s.EnergyMean,
		"energy_p10", s.EnergyP10,
		"energy_p50", s.EnergyP50,
		"energy_p90", s.EnergyP90,
		"hunts_started", s.HuntsStarted,
		"hunt_successes", s.HuntSuccesses,
		"hunt_failures", s.HuntFailures,
		"success_rate", s.SuccessRate,
		"active_attractors", s.ActiveAttractors,
		"attractor_expirations", s.AttractorExpirations,
	)
}
