// Package reconnect holds the per-source reconnection state machine and the
// restart procedure applied to a source node.
package reconnect

// Phase is the coarse lifecycle of a source
type Phase int

const (
	// PhaseConnected means data is flowing (or expected to flow)
	PhaseConnected Phase = iota
	// PhaseReconnecting means at least one restart was started and none has settled yet
	PhaseReconnecting
	// PhaseFailed is terminal: the budget is spent or the transport ended for good
	PhaseFailed
)

// String returns a human-readable representation of the phase
func (p Phase) String() string {
	switch p {
	case PhaseConnected:
		return "connected"
	case PhaseReconnecting:
		return "reconnecting"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Machine tracks one source's reconnection state.
//
// Watching is true between Begin and the end of the transition it started
// (Settle or Abort). Reconfiguring and "async watch running" are both this one
// flag, so a restart in flight always has a watcher.
//
// Not safe for concurrent use: the owner drives it from the event loop.
type Machine struct {
	phase           Phase
	watching        bool
	numReconnects   int
	totalReconnects uint64
}

// Begin starts a restart with the attempt counter set to next.
// Returns false (and changes nothing) while a restart is in flight or after Fail.
func (m *Machine) Begin(next int) bool {
	if m.watching || m.phase == PhaseFailed {
		return false
	}
	m.phase = PhaseReconnecting
	m.watching = true
	m.numReconnects = next
	m.totalReconnects++
	return true
}

// Settle marks the transition as reached running: the source is healthy again
func (m *Machine) Settle() {
	if m.phase == PhaseFailed {
		return
	}
	m.phase = PhaseConnected
	m.watching = false
	m.numReconnects = 0
}

// Abort ends a transition that failed. The attempt stays spent and the phase
// stays Reconnecting, so the next staleness detection decides what happens.
func (m *Machine) Abort() {
	m.watching = false
}

// Fail makes the source terminally failed. Never reversed.
func (m *Machine) Fail() {
	m.phase = PhaseFailed
	m.watching = false
}

// Phase returns the current phase
func (m *Machine) Phase() Phase { return m.phase }

// Watching reports whether a restart transition is in flight
func (m *Machine) Watching() bool { return m.watching }

// Failed reports whether the source is terminally failed
func (m *Machine) Failed() bool { return m.phase == PhaseFailed }

// NumReconnects returns the attempts spent since the last success
func (m *Machine) NumReconnects() int { return m.numReconnects }

// TotalReconnects returns every restart ever begun, including unbounded ones
func (m *Machine) TotalReconnects() uint64 { return m.totalReconnects }
