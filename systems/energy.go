package systems

import "github.com/pthm-cable/murmur/components"

// EnergyParams holds the exertion model rates, all per simulated second.
type EnergyParams struct {
	DrainRate     float32 // drain at full speed
	PanicDrain    float32 // extra drain at full panic
	RegenRate     float32 // recovery while cruising slowly
	RestThreshold float32 // fraction of max speed below which agents recover
}

// UpdateEnergy drains an agent's reserve in proportion to effort and
// fear, and restores it while the agent cruises below the rest
// threshold. Energy stays in [0, 1].
func UpdateEnergy(bird *components.Bird, speed, maxSpeed, dt float32, p *EnergyParams) {
	if maxSpeed <= 0 || dt <= 0 {
		return
	}
	effort := speed / maxSpeed
	if effort > p.RestThreshold || bird.Panic > 0 {
		bird.Energy -= (p.DrainRate*effort + p.PanicDrain*bird.Panic) * dt
	} else {
		bird.Energy += p.RegenRate * dt
	}
	bird.Energy = clamp01(bird.Energy)
}
