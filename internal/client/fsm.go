package client

import "time"

// Reconnection policy: one attempt per unexpected closure, after a fixed
// delay, up to a bounded count of consecutive closures.
const (
	RetryDelay  = 3 * time.Second
	MaxAttempts = 5
)

// State of the transport connection.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateClosed // terminal: explicit close or retries exhausted
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Action tells the connection manager what to do after an event.
type Action int

const (
	ActionNone Action = iota
	ActionDial
	ActionRetry
	ActionGiveUp
)

// fsm is the reconnection state machine, pure so it can be driven in tests
// without timers or sockets. Callers serialize access.
type fsm struct {
	state    State
	attempts int
}

// connectRequested is the initial user-driven dial.
func (f *fsm) connectRequested() Action {
	if f.state != StateDisconnected {
		return ActionNone
	}
	f.state = StateConnecting
	return ActionDial
}

// dialSucceeded resets the consecutive-closure count: only an unbroken run
// of failures exhausts the retry budget.
func (f *fsm) dialSucceeded() {
	f.state = StateOpen
	f.attempts = 0
}

// closedUnexpectedly covers both a lost open connection and a failed
// reconnect dial. Returns ActionRetry until the budget runs out.
func (f *fsm) closedUnexpectedly() Action {
	if f.state == StateClosed {
		return ActionNone
	}
	f.attempts++
	if f.attempts >= MaxAttempts {
		f.state = StateClosed
		return ActionGiveUp
	}
	f.state = StateConnecting
	return ActionRetry
}

// closeRequested is an explicit local close: the counter jumps to its
// maximum so no automatic reconnection can fire afterwards.
func (f *fsm) closeRequested() {
	f.attempts = MaxAttempts
	f.state = StateClosed
}
