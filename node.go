package streamsupervisor

import "github.com/e7canasta/orion-care-sensor/modules/stream-supervisor/internal/events"

// SourceNode is the per-source media node the supervisor drives.
//
// Implementations must guarantee:
//   - Every method returns promptly (state changes complete asynchronously)
//   - QueryTransition never blocks waiting for the transition to finish
//   - Events flow back through Supervisor.OnBufferArrived and
//     Supervisor.OnTerminalSignal, from any goroutine
//
// The supervisor calls these methods from its loop goroutine only.
type SourceNode interface {
	// RequestStop drops the node to its idle state. A failure aborts the
	// restart attempt before any resync is requested.
	RequestStop() error

	// RequestResync asks the node to follow its parent back to running.
	// The change may complete asynchronously; QueryTransition reports it.
	RequestResync() error

	// QueryTransition reports the state of the change started by RequestResync.
	//
	// Returns:
	//   - TransitionPending: still changing
	//   - TransitionRunning: reached running
	//   - TransitionFailed: the change failed
	//   - TransitionStalled: settled short of running with nothing pending
	QueryTransition() TransitionState

	// RequestRunning asks a stalled node to go to running again
	RequestRunning() error

	// Terminate sends a real end-of-stream downstream and tears the node down.
	// Called once, when the source becomes terminally failed.
	Terminate() error
}

// Aggregator is the shared stage all sources feed.
type Aggregator interface {
	// InstallEOSSuppression places a filter on the aggregator's outgoing
	// end-of-stream signals. For each one the aggregator calls intercept and
	// forwards the signal only when it returns true. intercept is safe to call
	// from the data path.
	InstallEOSSuppression(intercept func() bool) error

	// RemoveEOSSuppression removes the filter
	RemoveEOSSuppression() error

	// ReportFatal is called once when no source can produce data anymore
	ReportFatal(err error)
}

// EventSink receives lifecycle events. HandleEvent is called on the
// supervisor loop goroutine and must not block.
type EventSink = events.Sink

// EventSinkFunc adapts a function to EventSink
type EventSinkFunc = events.SinkFunc
