package player

import "fmt"

// Status is the engine's transport state.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusPlaying
	StatusPaused
	StatusEnded
	StatusAdvancing
	StatusErrored
	StatusRecovering
	StatusStopped
	// StatusRecoveringPaused is a pause during recovery. It remembers that a
	// skip already happened, so the next error still stops.
	StatusRecoveringPaused
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusEnded:
		return "ended"
	case StatusAdvancing:
		return "advancing"
	case StatusErrored:
		return "errored"
	case StatusRecovering:
		return "recovering"
	case StatusStopped:
		return "stopped"
	case StatusRecoveringPaused:
		return "recovering-paused"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// trigger is an input to the transition table.
type trigger int

const (
	trLoad    trigger = iota // a new source is loaded by a user action
	trStart                  // the element accepted play()
	trConfirm                // the element reports audio is flowing
	trRefuse                 // the element rejected play()
	trPause                  // paused by the user or the platform
	trEnd                    // the media ended naturally
	trError                  // a media error was reported
	trAdvance                // the queue is asked for the next item
	trRecover                // the queue is asked for the item after a failed one
	trExhaust                // the queue has nothing next
	trStop                   // playback is shut down
)

func (t trigger) String() string {
	return [...]string{"load", "start", "confirm", "refuse", "pause", "end", "error", "advance", "recover", "exhaust", "stop"}[t]
}

// transitions is the complete table. A trigger missing for a state is ignored.
//
// Errors while Recovering, or paused during recovery, lead to Stopped, so a
// failure causes at most one automatic skip.
var transitions = map[Status]map[trigger]Status{
	StatusIdle: {
		trLoad: StatusLoading,
		trStop: StatusStopped,
	},
	StatusLoading: {
		trLoad:    StatusLoading,
		trStart:   StatusPlaying,
		trConfirm: StatusPlaying,
		trRefuse:  StatusPaused,
		trPause:   StatusPaused,
		trError:   StatusErrored,
		trStop:    StatusStopped,
	},
	StatusPlaying: {
		trLoad:    StatusLoading,
		trStart:   StatusPlaying,
		trConfirm: StatusPlaying,
		trRefuse:  StatusPaused,
		trPause:   StatusPaused,
		trEnd:     StatusEnded,
		trError:   StatusErrored,
		trStop:    StatusStopped,
	},
	StatusPaused: {
		trLoad:   StatusLoading,
		trStart:  StatusPlaying,
		trRefuse: StatusPaused,
		trPause:  StatusPaused,
		trEnd:    StatusEnded,
		trError:  StatusErrored,
		trStop:   StatusStopped,
	},
	StatusEnded: {
		trLoad:    StatusLoading,
		trStart:   StatusPlaying,
		trAdvance: StatusAdvancing,
		trStop:    StatusStopped,
	},
	StatusAdvancing: {
		trLoad:    StatusLoading,
		trStart:   StatusPlaying,
		trConfirm: StatusPlaying,
		trRefuse:  StatusStopped,
		trExhaust: StatusStopped,
		trError:   StatusErrored,
		trStop:    StatusStopped,
	},
	StatusErrored: {
		trLoad:    StatusLoading,
		trRecover: StatusRecovering,
		trStop:    StatusStopped,
	},
	StatusRecovering: {
		trLoad:    StatusLoading,
		trStart:   StatusRecovering,
		trConfirm: StatusPlaying,
		trRefuse:  StatusStopped,
		trExhaust: StatusStopped,
		trError:   StatusStopped,
		trPause:   StatusRecoveringPaused,
		trEnd:     StatusEnded,
		trStop:    StatusStopped,
	},
	StatusRecoveringPaused: {
		trLoad:   StatusLoading,
		trStart:  StatusRecovering,
		trRefuse: StatusRecoveringPaused,
		trPause:  StatusRecoveringPaused,
		trEnd:    StatusEnded,
		trError:  StatusStopped,
		trStop:   StatusStopped,
	},
	StatusStopped: {
		trLoad:  StatusLoading,
		trStart: StatusPlaying,
		trStop:  StatusStopped,
	},
}

// machine tracks the current status. It is not safe for concurrent use; the engine's lock guards it.
type machine struct {
	status Status
}

// fire applies t and reports the previous status and whether the transition exists.
func (m *machine) fire(t trigger) (Status, bool) {
	from := m.status
	to, ok := transitions[from][t]
	if !ok {
		return from, false
	}
	m.status = to
	return from, true
}

func (m *machine) is(statuses ...Status) bool {
	for _, s := range statuses {
		if m.status == s {
			return true
		}
	}
	return false
}
