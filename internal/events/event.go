// Package events defines the lifecycle notifications emitted by the
// supervisor and a NATS sink that publishes them.
package events

import "time"

// Kind names a lifecycle notification
type Kind string

const (
	// KindReconnectAttempt is emitted when a restart is started
	KindReconnectAttempt Kind = "reconnect_attempt"
	// KindReconnected is emitted when a restarted source reaches running
	KindReconnected Kind = "reconnected"
	// KindTransitionFailed is emitted when a restart's state change fails or times out
	KindTransitionFailed Kind = "transition_failed"
	// KindSourceFailed is emitted once per source when it becomes terminally failed
	KindSourceFailed Kind = "source_failed"
	// KindTerminalSignal is emitted when a source's transport reports end-of-stream
	KindTerminalSignal Kind = "terminal_signal"
	// KindAllSourcesFailed is emitted once when no source can produce data anymore
	KindAllSourcesFailed Kind = "all_sources_failed"
)

// Event is one lifecycle notification. Index is -1 for KindAllSourcesFailed.
type Event struct {
	Kind     Kind
	Index    int
	SourceID string

	// Attempt is the spent attempt count for bounded sources, and the total
	// restart count for unbounded ones
	Attempt     int
	MaxAttempts int
	// AttemptID correlates every event of one restart
	AttemptID string

	Reason string
	// Elapsed is the restart duration for KindReconnected and KindTransitionFailed
	Elapsed time.Duration
	At      time.Time
}

// Sink receives events on the supervisor's loop goroutine. Implementations must not block.
type Sink interface {
	HandleEvent(Event)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(Event)

// HandleEvent calls f(ev)
func (f SinkFunc) HandleEvent(ev Event) { f(ev) }
