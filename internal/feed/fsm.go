package feed

import "fmt"

// State is the connection phase of the feed.
type State int

const (
	StateConnecting State = iota
	StateStreaming
	StateDegraded
	StatePolling
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateDegraded:
		return "degraded"
	case StatePolling:
		return "polling"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Status is a State plus the number of consecutive stream failures.
type Status struct {
	State    State
	Failures int
}

func (s Status) String() string {
	if s.State == StateDegraded {
		return fmt.Sprintf("degraded(%d)", s.Failures)
	}
	return s.State.String()
}

// Event is an input to the state machine.
type Event int

const (
	EventConnected Event = iota
	EventConnectFailed
	EventClosed
	EventRetryElapsed
	EventStop
)

func (e Event) String() string {
	switch e {
	case EventConnected:
		return "connected"
	case EventConnectFailed:
		return "connect_failed"
	case EventClosed:
		return "closed"
	case EventRetryElapsed:
		return "retry_elapsed"
	case EventStop:
		return "stop"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// Action is the side effect the client performs after a transition.
type Action int

const (
	ActionNone Action = iota
	ActionOpenStream
	ActionScheduleReconnect
	ActionStartPolling
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionOpenStream:
		return "open_stream"
	case ActionScheduleReconnect:
		return "schedule_reconnect"
	case ActionStartPolling:
		return "start_polling"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Initial is the status a new client starts in; its action is ActionOpenStream.
var Initial = Status{State: StateConnecting}

// Next returns the status following ev and the action to take.
// Events that do not apply to the current state leave it unchanged.
// Polling and Stopped are terminal for the session.
func Next(s Status, ev Event, maxReconnects int) (Status, Action) {
	if ev == EventStop {
		return Status{State: StateStopped, Failures: s.Failures}, ActionNone
	}

	switch s.State {
	case StateConnecting:
		switch ev {
		case EventConnected:
			return Status{State: StateStreaming}, ActionNone
		case EventConnectFailed, EventClosed:
			return fail(s.Failures+1, maxReconnects)
		}

	case StateStreaming:
		if ev == EventClosed || ev == EventConnectFailed {
			return fail(s.Failures+1, maxReconnects)
		}

	case StateDegraded:
		if ev == EventRetryElapsed {
			return Status{State: StateConnecting, Failures: s.Failures}, ActionOpenStream
		}
	}

	return s, ActionNone
}

func fail(n, maxReconnects int) (Status, Action) {
	if n > maxReconnects {
		return Status{State: StatePolling, Failures: n}, ActionStartPolling
	}
	return Status{State: StateDegraded, Failures: n}, ActionScheduleReconnect
}
