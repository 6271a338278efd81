package gstnode

import (
	"time"

	"github.com/tinyzimmer/go-gst/gst"

	streamsupervisor "github.com/e7canasta/orion-care-sensor/modules/stream-supervisor"
)

// DefaultStallAfter is how long a restarted source may sit below PLAYING
// without any state change before it is reported as stalled
const DefaultStallAfter = 500 * time.Millisecond

// transitionState maps what the bus told us about a source to the state the
// supervisor polls. go-gst has no non-blocking get_state binding, so state
// comes from StateChanged messages and "stalled" means no change for a while.
func transitionState(failed bool, current gst.State, sinceChange, stallAfter time.Duration) streamsupervisor.TransitionState {
	switch {
	case failed:
		return streamsupervisor.TransitionFailed
	case current == gst.StatePlaying:
		return streamsupervisor.TransitionRunning
	case sinceChange >= stallAfter:
		return streamsupervisor.TransitionStalled
	default:
		return streamsupervisor.TransitionPending
	}
}
