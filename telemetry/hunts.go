package telemetry

// HuntRecord is one completed hunt episode, from target lock to outcome.
type HuntRecord struct {
	PredatorID  int     `csv:"predator"`
	Archetype   string  `csv:"archetype"`
	Target      int32   `csv:"target"`
	StartTick   int32   `csv:"start_tick"`
	EndTick     int32   `csv:"end_tick"`
	DurationSec float64 `csv:"duration_sec"`
	Outcome     string  `csv:"outcome"` // success or failure
}

// HuntTracker pairs hunt-start events with their outcomes to build episode
// records. One open episode per predator; a new start while one is open
// overwrites it, since the engine resolves every hunt before starting the
// next.
type HuntTracker struct {
	open map[int]*HuntRecord
	dt   float32
}

// NewHuntTracker creates a tracker. dt is seconds per tick, used to
// convert episode tick spans to durations.
func NewHuntTracker(dt float32) *HuntTracker {
	return &HuntTracker{
		open: make(map[int]*HuntRecord),
		dt:   dt,
	}
}

// Start opens an episode for the predator.
func (ht *HuntTracker) Start(predatorID int, archetype string, target int32, tick int32) {
	ht.open[predatorID] = &HuntRecord{
		PredatorID: predatorID,
		Archetype:  archetype,
		Target:     target,
		StartTick:  tick,
	}
}

// Resolve closes the predator's open episode with the given outcome and
// returns the completed record, or nil when no episode is open (an
// exhaustion failure can land before any lock).
func (ht *HuntTracker) Resolve(predatorID int, tick int32, outcome string) *HuntRecord {
	rec, ok := ht.open[predatorID]
	if !ok {
		return nil
	}
	delete(ht.open, predatorID)

	rec.EndTick = tick
	rec.DurationSec = float64(tick-rec.StartTick) * float64(ht.dt)
	rec.Outcome = outcome
	return rec
}

// OpenCount returns the number of unresolved episodes.
func (ht *HuntTracker) OpenCount() int {
	return len(ht.open)
}
