package predator

// Snapshot is the JSON shape of one predator for save files. State is
// stored by name so snapshots stay readable and survive enum reordering.
type Snapshot struct {
	ID        int     `json:"id"`
	Archetype string  `json:"archetype"`
	X         float32 `json:"x"`
	Y         float32 `json:"y"`
	VX        float32 `json:"vx"`
	VY        float32 `json:"vy"`
	State     string  `json:"state"`
	Energy    float32 `json:"energy"`
	Cooldown  float32 `json:"cooldown"`
	Target    int32   `json:"target"`

	PanicRadius float32 `json:"panic_radius"`

	HuntSuccesses int `json:"hunt_successes"`
	HuntFailures  int `json:"hunt_failures"`
}

// Snapshot captures the predator's current state. The panic radius is
// resolved against the given base so viewers need no archetype table.
func (p *Predator) Snapshot(basePanicRadius float32) Snapshot {
	return Snapshot{
		ID:            p.ID,
		Archetype:     p.Arch.Name,
		X:             p.X,
		Y:             p.Y,
		VX:            p.VX,
		VY:            p.VY,
		State:         p.state.String(),
		Energy:        p.energy,
		Cooldown:      p.cooldown,
		Target:        p.target,
		PanicRadius:   p.EffectivePanicRadius(basePanicRadius),
		HuntSuccesses: p.successes,
		HuntFailures:  p.failures,
	}
}

// Restore overwrites the predator's mutable state from a snapshot. The
// archetype is matched by the caller; unknown state names fall back to
// idle. Per-state timers restart, which at worst re-runs a timeout
// window after load.
func (p *Predator) Restore(s *Snapshot) {
	p.X, p.Y = s.X, s.Y
	p.VX, p.VY = s.VX, s.VY
	if st, ok := StateFromString(s.State); ok {
		p.state = st
	} else {
		p.state = StateIdle
	}
	p.energy = s.Energy
	p.cooldown = s.Cooldown
	p.target = s.Target
	p.successes = s.HuntSuccesses
	p.failures = s.HuntFailures
	p.stateElapsed = 0
	p.huntDuration = 0
	p.inactiveFor = 0
}
