// Package eos implements the end-of-stream suppression filter placed at the
// aggregator boundary, and the check that decides when it may be released.
package eos

import "sync"

// FilterState is the lifecycle of the filter
type FilterState int

const (
	// FilterAbsent means no filter was ever installed
	FilterAbsent FilterState = iota
	// FilterInstalled means every end-of-stream is dropped
	FilterInstalled
	// FilterReleasing means the next end-of-stream passes and the filter goes away
	FilterReleasing
	// FilterRemoved means the filter no longer intercepts anything
	FilterRemoved
)

// String returns a human-readable representation of the filter state
func (s FilterState) String() string {
	switch s {
	case FilterAbsent:
		return "absent"
	case FilterInstalled:
		return "installed"
	case FilterReleasing:
		return "releasing"
	case FilterRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Verdict is what happens to one intercepted end-of-stream
type Verdict int

const (
	// Drop swallows the signal
	Drop Verdict = iota
	// Forward lets the signal through
	Forward
)

// Filter is safe for concurrent use: Intercept is called from the data path.
type Filter struct {
	mu      sync.Mutex
	state   FilterState
	dropped uint64
}

// Install arms the filter. Returns false if it was already installed once.
func (f *Filter) Install() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != FilterAbsent {
		return false
	}
	f.state = FilterInstalled
	return true
}

// Intercept classifies one end-of-stream signal. After Release exactly one
// signal is forwarded by the filter, which then removes itself.
func (f *Filter) Intercept() Verdict {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case FilterInstalled:
		f.dropped++
		return Drop
	case FilterReleasing:
		f.state = FilterRemoved
		return Forward
	default:
		return Forward
	}
}

// Release lets the next signal through. Returns false if the filter was not installed.
func (f *Filter) Release() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != FilterInstalled {
		return false
	}
	f.state = FilterReleasing
	return true
}

// State returns the current filter state
func (f *Filter) State() FilterState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Dropped returns how many signals were swallowed
func (f *Filter) Dropped() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropped
}
