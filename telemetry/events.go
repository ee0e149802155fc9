// Package telemetry provides flock health tracking, hunt episode records,
// bookmarking, and snapshots.
package telemetry

// EventType identifies telemetry events.
type EventType uint8

const (
	EventHuntStarted EventType = iota
	EventHuntSuccess
	EventHuntFailure
	EventPanicWave
	EventAttractorExpired
)

// Event represents a single telemetry event.
type Event struct {
	Type       EventType
	Tick       int32
	PredatorID int

	// Optional fields depending on event type
	TargetIndex int32   // hunted agent index, or attractor id
	Value       float32 // mean panic level for wave events
}

// NewHuntStartedEvent creates a hunt start event.
func NewHuntStartedEvent(tick int32, predatorID int, target int32) Event {
	return Event{
		Type:        EventHuntStarted,
		Tick:        tick,
		PredatorID:  predatorID,
		TargetIndex: target,
	}
}

// NewHuntSuccessEvent creates a successful strike event.
func NewHuntSuccessEvent(tick int32, predatorID int, target int32) Event {
	return Event{
		Type:        EventHuntSuccess,
		Tick:        tick,
		PredatorID:  predatorID,
		TargetIndex: target,
	}
}

// NewHuntFailureEvent creates a failed hunt event.
func NewHuntFailureEvent(tick int32, predatorID int, target int32) Event {
	return Event{
		Type:        EventHuntFailure,
		Tick:        tick,
		PredatorID:  predatorID,
		TargetIndex: target,
	}
}

// NewPanicWaveEvent creates a panic wave event with the flock mean panic.
func NewPanicWaveEvent(tick int32, meanPanic float32) Event {
	return Event{
		Type:  EventPanicWave,
		Tick:  tick,
		Value: meanPanic,
	}
}

// NewAttractorExpiredEvent creates an attractor expiration event.
func NewAttractorExpiredEvent(tick int32, id int32) Event {
	return Event{
		Type:        EventAttractorExpired,
		Tick:        tick,
		TargetIndex: id,
	}
}
