package telemetry

import (
	"testing"
	"time"
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	pc.StartTick()
	pc.StartPhase(PhaseSpatialGrid)
	time.Sleep(1 * time.Millisecond)
	pc.StartPhase(PhaseForces)
	time.Sleep(2 * time.Millisecond)
	pc.EndTick()

	stats := pc.Stats()

	if stats.AvgTickDuration < 3*time.Millisecond {
		t.Errorf("tick duration = %v, want >= 3ms", stats.AvgTickDuration)
	}
	if stats.PhaseAvg[PhaseSpatialGrid] < 1*time.Millisecond {
		t.Errorf("spatial grid phase = %v, want >= 1ms", stats.PhaseAvg[PhaseSpatialGrid])
	}
	if stats.PhaseAvg[PhaseForces] < 2*time.Millisecond {
		t.Errorf("forces phase = %v, want >= 2ms", stats.PhaseAvg[PhaseForces])
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(3)

	// Record 5 ticks; only the last 3 are kept
	for i := 0; i < 5; i++ {
		pc.StartTick()
		time.Sleep(time.Duration(i+1) * time.Millisecond)
		pc.EndTick()
	}

	stats := pc.Stats()

	// Window holds ticks 3, 4, 5 (3ms, 4ms, 5ms)
	if stats.MinTickDuration < 3*time.Millisecond {
		t.Errorf("min tick = %v, want >= 3ms (oldest samples evicted)", stats.MinTickDuration)
	}
}

func TestPerfCollector_PhasePercentages(t *testing.T) {
	pc := NewPerfCollector(10)

	pc.StartTick()
	pc.StartPhase(PhaseForces)
	time.Sleep(5 * time.Millisecond)
	pc.EndTick()

	stats := pc.Stats()

	// A single phase should dominate the tick
	if stats.PhasePct[PhaseForces] < 90 {
		t.Errorf("forces pct = %v, want >= 90", stats.PhasePct[PhaseForces])
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	pc := NewPerfCollector(10)

	stats := pc.Stats()

	if stats.AvgTickDuration != 0 {
		t.Errorf("avg tick = %v, want 0", stats.AvgTickDuration)
	}
	if stats.TicksPerSecond != 0 {
		t.Errorf("ticks/sec = %v, want 0", stats.TicksPerSecond)
	}
	if stats.PhaseAvg == nil || stats.PhasePct == nil {
		t.Error("phase maps should be non-nil for empty stats")
	}
}

func TestPerfCollector_FrameTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	pc.RecordFrame()
	time.Sleep(5 * time.Millisecond)
	pc.RecordFrame()

	stats := pc.Stats()

	if stats.FrameDuration < 5*time.Millisecond {
		t.Errorf("frame duration = %v, want >= 5ms", stats.FrameDuration)
	}
	if stats.FPS <= 0 {
		t.Errorf("fps = %v, want > 0", stats.FPS)
	}
}

func TestPerfStatsToCSV(t *testing.T) {
	stats := PerfStats{
		AvgTickDuration: 500 * time.Microsecond,
		MinTickDuration: 200 * time.Microsecond,
		MaxTickDuration: 900 * time.Microsecond,
		TicksPerSecond:  2000,
		FPS:             60,
		PhasePct: map[string]float64{
			PhaseSpatialGrid: 10,
			PhaseForces:      55,
			PhaseIntegrate:   15,
			PhasePredators:   10,
			PhaseAttractors:  5,
			PhaseTelemetry:   5,
		},
	}

	row := stats.ToCSV(1200)

	if row.WindowEnd != 1200 {
		t.Errorf("window end = %d, want 1200", row.WindowEnd)
	}
	if row.AvgTickUS != 500 {
		t.Errorf("avg tick us = %d, want 500", row.AvgTickUS)
	}
	if row.ForcesPct != 55 {
		t.Errorf("forces pct = %v, want 55", row.ForcesPct)
	}
	if row.TelemetryPct != 5 {
		t.Errorf("telemetry pct = %v, want 5", row.TelemetryPct)
	}
}
