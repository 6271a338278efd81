// Package transition decides what to do on each poll of a source node's
// asynchronous state change after a restart.
package transition

import "time"

// State is what the node reports about its pending transition
type State int

const (
	// StatePending means the change towards running is still in progress
	StatePending State = iota
	// StateRunning means the node reached running
	StateRunning
	// StateFailed means the transition failed
	StateFailed
	// StateStalled means the node settled short of running with nothing pending
	StateStalled
)

// String returns a human-readable representation of the state
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateFailed:
		return "failed"
	case StateStalled:
		return "stalled"
	default:
		return "unknown"
	}
}

// Action tells the watcher owner what to do after a poll
type Action int

const (
	// ActionWait keeps polling
	ActionWait Action = iota
	// ActionNudge asks the node to go to running again, then keeps polling
	ActionNudge
	// ActionSettled means the restart succeeded
	ActionSettled
	// ActionFailed means the restart attempt failed
	ActionFailed
)

// String returns a human-readable representation of the action
func (a Action) String() string {
	switch a {
	case ActionWait:
		return "wait"
	case ActionNudge:
		return "nudge"
	case ActionSettled:
		return "settled"
	case ActionFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Observation is one poll's view of the transition
type Observation struct {
	State State
	// Elapsed is the time since the restart was started
	Elapsed time.Duration
	// SettleTimeout caps how long Pending/Stalled may last (0 means no cap)
	SettleTimeout time.Duration
}

// Decision is the result of one poll
type Decision struct {
	Action     Action
	Reschedule bool
	// Reason is set for ActionFailed
	Reason string
}

// Evaluate decides on one poll. Running and Failed are one-shot: the watcher
// retires after them.
func Evaluate(obs Observation) Decision {
	switch obs.State {
	case StateRunning:
		return Decision{Action: ActionSettled}
	case StateFailed:
		return Decision{Action: ActionFailed, Reason: "state change failed"}
	}

	if obs.SettleTimeout > 0 && obs.Elapsed >= obs.SettleTimeout {
		return Decision{Action: ActionFailed, Reason: "settle timeout"}
	}

	if obs.State == StateStalled {
		return Decision{Action: ActionNudge, Reschedule: true}
	}
	return Decision{Action: ActionWait, Reschedule: true}
}
