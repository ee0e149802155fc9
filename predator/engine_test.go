package predator

import (
	"testing"

	"github.com/pthm-cable/murmur/config"
)

const testDT = float32(1.0 / 60.0)

func testArchetypeConfig(style string) *config.ArchetypeConfig {
	return &config.ArchetypeConfig{
		Name:  "test-" + style,
		Style: style,

		CruiseSpeed:     3.0,
		SteeringForce:   0.5,
		AttackRange:     60,
		EngagementSec:   6,
		BurstMultiplier: 2.0,
		ScanRange:       900,
		PanicFactor:     1.0,

		MaxEnergy:           100,
		RegenRate:           50,
		DrainRate:           5,
		AttackCost:          10,
		ExhaustionThreshold: 0.2,
		RecoveryDelaySec:    1.0,

		Weights: config.ScoreWeightsConfig{
			Isolation: 1.0,
			Edge:      1.0,
			Velocity:  0.5,
			Panic:     0.5,
			Intercept: 1.0,
		},
		Timeouts: config.TimeoutsConfig{
			Scan:   4,
			Stalk:  8,
			Hunt:   5,
			Attack: 2,
		},
	}
}

func testArchetype(t *testing.T, style string) *Archetype {
	t.Helper()
	a, err := FromConfig(testArchetypeConfig(style))
	if err != nil {
		t.Fatalf("FromConfig(%q): %v", style, err)
	}
	return a
}

// emptyView is a flock view with no prey in a non-wrapping world.
func emptyView() *FlockView {
	return &FlockView{Width: 1600, Height: 900}
}

// clusterView places n stationary prey around (cx, cy).
func clusterView(n int, cx, cy float32) *FlockView {
	v := &FlockView{Width: 1600, Height: 900}
	for i := 0; i < n; i++ {
		v.Prey = append(v.Prey, Prey{
			Index:     int32(i),
			X:         cx + float32(i%3)*8,
			Y:         cy + float32(i/3)*8,
			Density:   float32(n - 1),
			NearestSq: 64,
		})
	}
	v.CentroidX, v.CentroidY = cx, cy
	return v
}

func TestFromConfigStyles(t *testing.T) {
	tests := []struct {
		style   string
		wantErr bool
	}{
		{"", false},
		{"pursuit", false},
		{"dive", false},
		{"ambush", false},
		{"glide", true},
	}

	for _, tt := range tests {
		t.Run("style="+tt.style, func(t *testing.T) {
			_, err := FromConfig(testArchetypeConfig(tt.style))
			if (err != nil) != tt.wantErr {
				t.Errorf("FromConfig style %q: err = %v, wantErr %v", tt.style, err, tt.wantErr)
			}
		})
	}
}

func TestFromConfigTimeoutMapping(t *testing.T) {
	a := testArchetype(t, "dive")

	// Variant states inherit the base-state timeouts
	if got, want := a.Timeout(StateAmbushing), a.Timeout(StateStalking); got != want {
		t.Errorf("ambushing timeout = %v, want stalk timeout %v", got, want)
	}
	if got, want := a.Timeout(StateDiving), a.Timeout(StateHunting); got != want {
		t.Errorf("diving timeout = %v, want hunt timeout %v", got, want)
	}
	if a.Timeout(StateIdle) != 0 || a.Timeout(StateRecovering) != 0 {
		t.Errorf("idle/recovering must have no timeout, got %v / %v",
			a.Timeout(StateIdle), a.Timeout(StateRecovering))
	}
}

func TestExhaustionComputedFromThreshold(t *testing.T) {
	a := testArchetype(t, "pursuit")
	if a.ExhaustionEnergy != 20 {
		t.Errorf("ExhaustionEnergy = %v, want 20 (0.2 * 100)", a.ExhaustionEnergy)
	}
}

func TestEnergyStaysBounded(t *testing.T) {
	a := testArchetype(t, "pursuit")
	p := New(0, a, 42, 100, 100, 1.0, 0.7)
	view := clusterView(12, 400, 300)

	for i := 0; i < 60*120; i++ {
		p.Update(testDT, view)
		if p.Energy() < 0 || p.Energy() > a.MaxEnergy {
			t.Fatalf("tick %d: energy %v outside [0, %v] in state %v",
				i, p.Energy(), a.MaxEnergy, p.State())
		}
	}
}

func TestLeavesIdlePromptly(t *testing.T) {
	a := testArchetype(t, "pursuit")
	p := New(0, a, 1, 100, 100, 1.0, 0.7)
	view := emptyView()

	// Aggression 0.7 rests 0.8s in idle; allow a full second
	left := false
	for i := 0; i < 60; i++ {
		p.Update(testDT, view)
		if p.State() != StateIdle {
			left = true
			break
		}
	}
	if !left {
		t.Errorf("predator never left idle within 1s, state %v", p.State())
	}
	if p.State() != StateScanning {
		t.Errorf("state after idle = %v, want scanning", p.State())
	}
}

func TestScanningTimesOutWithoutPrey(t *testing.T) {
	a := testArchetype(t, "pursuit")
	p := New(0, a, 1, 100, 100, 1.0, 0.7)
	p.setState(StateScanning)
	view := emptyView()

	// Scan timeout is 4s; it must fall back to idle, not spin forever
	for i := 0; i < 60*5; i++ {
		p.Update(testDT, view)
		if p.State() == StateIdle {
			return
		}
	}
	t.Errorf("scanning never timed out back to idle")
}

func TestAttackTimeoutRegistersFailure(t *testing.T) {
	a := testArchetype(t, "pursuit")
	p := New(0, a, 1, 100, 100, 1.0, 0.7)

	// One prey far out of reach: the 2s attack window must close with a
	// failure, not hang
	view := &FlockView{Width: 10000, Height: 900}
	view.Prey = append(view.Prey, Prey{Index: 0, X: 9000, Y: 100, NearestSq: 1e9})
	view.CentroidX, view.CentroidY = 9000, 100

	p.setState(StateAttacking)
	p.target = 0

	var sawFailure bool
	for i := 0; i < 60*3; i++ {
		ev := p.Update(testDT, view)
		if ev.Outcome == OutcomeFailure {
			sawFailure = true
			break
		}
		if ev.Outcome == OutcomeSuccess {
			t.Fatalf("unreachable prey reported as caught")
		}
	}
	if !sawFailure {
		t.Fatalf("attack against unreachable prey never failed, state %v", p.State())
	}
	if p.Failures() != 1 {
		t.Errorf("failures = %d, want 1", p.Failures())
	}
	if p.Target() != -1 {
		t.Errorf("target = %d after failure, want -1", p.Target())
	}
}

func TestAmbushTimeoutBooksFailure(t *testing.T) {
	a := testArchetype(t, "ambush")
	p := New(0, a, 1, 100, 100, 1.0, 0.7)

	// A mark that never drifts into strike range: the wait must end in
	// a booked failure, not a silent rescan
	view := &FlockView{Width: 1600, Height: 900}
	view.Prey = append(view.Prey, Prey{Index: 0, X: 500, Y: 100, NearestSq: 1e9})
	view.CentroidX, view.CentroidY = 500, 100

	p.setState(StateAmbushing)
	p.target = 0

	var sawFailure bool
	for i := 0; i < 60*10; i++ {
		ev := p.Update(testDT, view)
		if ev.HuntStarted {
			t.Fatalf("hunt restarted at tick %d instead of resolving", i)
		}
		if ev.Outcome == OutcomeFailure {
			sawFailure = true
			break
		}
	}
	if !sawFailure {
		t.Fatalf("ambush against out-of-range prey never failed, state %v", p.State())
	}
	if p.Failures() != 1 {
		t.Errorf("failures = %d, want 1", p.Failures())
	}
	if p.Target() != -1 {
		t.Errorf("target = %d after failure, want -1", p.Target())
	}
}

func TestHuntResolvesWithinMinute(t *testing.T) {
	styles := []string{"pursuit", "dive", "ambush"}
	for _, style := range styles {
		t.Run(style, func(t *testing.T) {
			a := testArchetype(t, style)
			p := New(0, a, 7, 100, 100, 1.0, 0.7)
			view := clusterView(9, 300, 100)

			for i := 0; i < 60*60; i++ {
				ev := p.Update(testDT, view)
				if ev.Outcome != OutcomeNone {
					return
				}
			}
			t.Errorf("no hunt outcome within 60 simulated seconds, state %v", p.State())
		})
	}
}

func TestHuntStartedEventFiresOnce(t *testing.T) {
	a := testArchetype(t, "pursuit")
	p := New(0, a, 3, 100, 100, 1.0, 0.9)
	view := clusterView(9, 300, 100)

	starts := 0
	for i := 0; i < 60*10; i++ {
		ev := p.Update(testDT, view)
		if ev.HuntStarted {
			starts++
		}
		if ev.Outcome != OutcomeNone {
			break
		}
	}
	if starts != 1 {
		t.Errorf("hunt started %d times before first outcome, want 1", starts)
	}
}

func TestExhaustionForcesRecovery(t *testing.T) {
	a := testArchetype(t, "pursuit")
	p := New(0, a, 1, 100, 100, 1.0, 0.7)
	view := clusterView(9, 1400, 800)

	p.setState(StateHunting)
	p.target = 0
	p.energy = a.ExhaustionEnergy + 0.01

	ev := p.Update(testDT, view)
	if p.State() != StateRecovering {
		t.Errorf("state = %v after exhaustion, want recovering", p.State())
	}
	if ev.Outcome != OutcomeFailure {
		t.Errorf("exhaustion mid-hunt must book a failure, got %v", ev.Outcome)
	}
}

func TestRecoveringReturnsToIdle(t *testing.T) {
	a := testArchetype(t, "pursuit")
	p := New(0, a, 1, 100, 100, 1.0, 0.7)
	p.setState(StateRecovering)
	p.energy = 0
	view := emptyView()

	// Regen 50/s from zero reaches the 70% exit level in under 2s
	for i := 0; i < 60*5; i++ {
		p.Update(testDT, view)
		if p.State() == StateIdle {
			return
		}
	}
	t.Errorf("never recovered to idle, energy %v", p.Energy())
}

func TestResetPreservesCounters(t *testing.T) {
	a := testArchetype(t, "pursuit")
	p := New(0, a, 1, 100, 100, 1.0, 0.7)
	p.successes = 3
	p.failures = 5
	p.energy = 10
	p.setState(StateHunting)
	p.target = 4

	p.Reset(800, 450)

	if p.Successes() != 3 || p.Failures() != 5 {
		t.Errorf("counters = %d/%d after reset, want 3/5", p.Successes(), p.Failures())
	}
	if p.State() != StateIdle {
		t.Errorf("state = %v after reset, want idle", p.State())
	}
	if p.Energy() != a.MaxEnergy {
		t.Errorf("energy = %v after reset, want %v", p.Energy(), a.MaxEnergy)
	}
	if p.Target() != -1 {
		t.Errorf("target = %d after reset, want -1", p.Target())
	}
	if p.X != 800 || p.Y != 450 {
		t.Errorf("position = (%v, %v), want (800, 450)", p.X, p.Y)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	a := testArchetype(t, "dive")
	p := New(2, a, 9, 321, 123, 1.0, 0.5)
	p.setState(StateDiving)
	p.target = 7
	p.energy = 42
	p.cooldown = 1.5
	p.successes = 2
	p.failures = 1
	p.VX, p.VY = 1.5, -0.5

	snap := p.Snapshot(120)
	if snap.State != "diving" {
		t.Fatalf("snapshot state = %q, want diving", snap.State)
	}
	if snap.Archetype != a.Name {
		t.Errorf("snapshot archetype = %q, want %q", snap.Archetype, a.Name)
	}

	q := New(2, a, 9, 0, 0, 1.0, 0.5)
	q.Restore(&snap)

	if q.X != p.X || q.Y != p.Y || q.VX != p.VX || q.VY != p.VY {
		t.Errorf("restored kinematics (%v,%v,%v,%v) != (%v,%v,%v,%v)",
			q.X, q.Y, q.VX, q.VY, p.X, p.Y, p.VX, p.VY)
	}
	if q.State() != StateDiving {
		t.Errorf("restored state = %v, want diving", q.State())
	}
	if q.Energy() != 42 || q.Target() != 7 {
		t.Errorf("restored energy/target = %v/%d, want 42/7", q.Energy(), q.Target())
	}
	if q.Successes() != 2 || q.Failures() != 1 {
		t.Errorf("restored counters = %d/%d, want 2/1", q.Successes(), q.Failures())
	}
}

func TestRestoreUnknownStateFallsBackToIdle(t *testing.T) {
	a := testArchetype(t, "pursuit")
	p := New(0, a, 1, 0, 0, 1.0, 0.5)
	p.Restore(&Snapshot{State: "soaring", Target: -1})
	if p.State() != StateIdle {
		t.Errorf("state = %v for unknown snapshot state, want idle", p.State())
	}
}

func TestEffectivePanicRadiusScalesWithState(t *testing.T) {
	a := testArchetype(t, "ambush")
	p := New(0, a, 1, 0, 0, 1.0, 0.5)

	p.setState(StateAmbushing)
	ambush := p.EffectivePanicRadius(120)
	p.setState(StateAttacking)
	attack := p.EffectivePanicRadius(120)

	if ambush >= attack {
		t.Errorf("ambush radius %v not smaller than attack radius %v", ambush, attack)
	}
}

func TestWorldBoundsRespected(t *testing.T) {
	a := testArchetype(t, "pursuit")
	view := emptyView()

	p := New(0, a, 1, 5, 5, 1.0, 0.7)
	p.VX, p.VY = -10, -10
	for i := 0; i < 120; i++ {
		p.Update(testDT, view)
		if p.X < 0 || p.X > view.Width || p.Y < 0 || p.Y > view.Height {
			t.Fatalf("tick %d: position (%v, %v) left the clamped world", i, p.X, p.Y)
		}
	}
}
