// Package liveness decides, tick by tick, whether a source has gone stale and
// whether a reconnect may be spent on it.
package liveness

import "time"

// Unbounded marks a source whose reconnect attempts are never capped
const Unbounded = -1

// Action is the outcome of one liveness tick
type Action int

const (
	// ActionNone means the source is fresh (or not monitored)
	ActionNone Action = iota
	// ActionDebounced means the source is stale but the global debounce window is still open
	ActionDebounced
	// ActionReconnect means a restart must be started now
	ActionReconnect
	// ActionExhausted means the attempt budget is spent: the source must fail
	ActionExhausted
	// ActionRetire means the source already failed and the timer must stop
	ActionRetire
)

// String returns a human-readable representation of the action
func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionDebounced:
		return "debounced"
	case ActionReconnect:
		return "reconnect"
	case ActionExhausted:
		return "exhausted"
	case ActionRetire:
		return "retire"
	default:
		return "unknown"
	}
}

// Input is everything one tick looks at
type Input struct {
	Now             time.Time
	LastBuffer      time.Time
	LastGlobalReset time.Time

	// Interval is the staleness threshold (0 disables reconnection)
	Interval time.Duration
	// Debounce is the minimum spacing between restarts across all sources
	Debounce time.Duration

	Reconfiguring bool
	Failed        bool

	NumReconnects int
	MaxAttempts   int

	// Forced treats the source as stale regardless of buffer age
	// (the transport reported a terminal signal)
	Forced bool
}

// Decision is the result of one tick
type Decision struct {
	Action Action
	// NumReconnects is the value the counter must take if Action is ActionReconnect
	NumReconnects int
	// SinceLastBuffer is how long the source has been silent (never negative)
	SinceLastBuffer time.Duration
	// Reschedule is false when the liveness timer must not fire again
	Reschedule bool
}

// Evaluate runs one liveness tick.
//
// This function:
//  1. Retires the timer of a failed source
//  2. Defers to the transition watcher while a restart is in flight
//  3. Detects staleness (silence >= Interval, or Forced)
//  4. Applies the global debounce window
//  5. Spends one attempt from the budget, or reports exhaustion
//
// The caller is responsible for updating LastGlobalReset when the decision is
// ActionReconnect, under the same lock it read it with.
func Evaluate(in Input) Decision {
	if in.Failed {
		return Decision{Action: ActionRetire}
	}

	since := in.Now.Sub(in.LastBuffer)
	if since < 0 {
		since = 0
	}

	d := Decision{
		Action:          ActionNone,
		NumReconnects:   in.NumReconnects,
		SinceLastBuffer: since,
		Reschedule:      true,
	}

	if in.Reconfiguring {
		return d
	}

	stale := in.Forced || (in.Interval > 0 && since >= in.Interval)
	if !stale {
		return d
	}

	if in.Now.Sub(in.LastGlobalReset) < in.Debounce {
		d.Action = ActionDebounced
		return d
	}

	if in.MaxAttempts == Unbounded {
		d.Action = ActionReconnect
		return d
	}

	next := in.NumReconnects + 1
	if next > in.MaxAttempts {
		d.Action = ActionExhausted
		d.Reschedule = false
		return d
	}

	d.Action = ActionReconnect
	d.NumReconnects = next
	return d
}
