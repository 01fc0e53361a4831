package domain

// Status is the lifecycle status of the initialization subsystem.
type Status int

const (
	StatusUninitialized Status = iota
	StatusInitializing
	StatusInitialized
	StatusFailed
)

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "Uninitialized"
	case StatusInitializing:
		return "Initializing"
	case StatusInitialized:
		return "Initialized"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Event drives status transitions. Events are not persisted.
type Event int

const (
	EventStart Event = iota
	EventComplete
	EventFail
	EventReset
)

// String returns a human-readable representation of the event.
func (e Event) String() string {
	switch e {
	case EventStart:
		return "Start"
	case EventComplete:
		return "Complete"
	case EventFail:
		return "Fail"
	case EventReset:
		return "Reset"
	default:
		return "Unknown"
	}
}

// Phase names one step of the initialization sequence.
type Phase string

const (
	PhaseConfig        Phase = "config"
	PhaseLogger        Phase = "logger"
	PhaseRegistry      Phase = "registry"
	PhaseEventHandlers Phase = "event_handlers"

	// PhaseTransition is reported when the state machine rejects an event.
	PhaseTransition Phase = "transition"
)

// Phases lists the initialization steps in execution order.
var Phases = []Phase{PhaseConfig, PhaseLogger, PhaseRegistry, PhaseEventHandlers}
