package board

import "github.com/famish99/casterboard/internal/backends"

// EventKind says what changed on a slot
type EventKind int

const (
	// EventTransition is a play, resume, pause, or stop
	EventTransition EventKind = iota
	// EventDucking is a change of the ducking flag
	EventDucking
	// EventReconfigured is a wholesale replacement of the slot's configuration
	EventReconfigured
)

func (k EventKind) String() string {
	switch k {
	case EventTransition:
		return "transition"
	case EventDucking:
		return "ducking"
	case EventReconfigured:
		return "reconfigured"
	default:
		return "unknown"
	}
}

// Event is emitted by a PlayerSlot after a successful change
type Event struct {
	Label  Label
	Kind   EventKind
	Status backends.State
	State  SlotState
}

// Listener observes slot events on the event thread
type Listener func(Event)
