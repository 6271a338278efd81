package reconnect

import "fmt"

// Node is the part of a source node a restart touches
type Node interface {
	RequestStop() error
	RequestResync() error
}

// Outcome reports what a restart managed to do
type Outcome struct {
	// Stopped is false when the stop request failed and the attempt must be aborted
	Stopped bool
	// ResyncErr is non-nil when the resync request failed; the transition is
	// still watched because the node may recover on its own
	ResyncErr error
}

// Restart asks node to drop to idle and then to resynchronize with its parent.
//
// A stop failure short-circuits (no resync is requested) and is returned as
// an error. A resync failure is reported in the Outcome only.
func Restart(node Node) (Outcome, error) {
	if err := node.RequestStop(); err != nil {
		return Outcome{}, fmt.Errorf("stop source: %w", err)
	}

	out := Outcome{Stopped: true}
	if err := node.RequestResync(); err != nil {
		out.ResyncErr = fmt.Errorf("resync source: %w", err)
	}
	return out, nil
}
