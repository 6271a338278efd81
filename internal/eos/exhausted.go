package eos

// View is what the exhaustion check needs from one source
type View struct {
	Failed bool
	// Reconnects is false for sources configured with no reconnect interval
	Reconnects bool
	HaveEOS    bool
}

// Exhausted reports whether no source can produce data anymore: each one has
// either failed, or cannot reconnect and has already signaled end-of-stream.
// An empty set is not exhausted.
func Exhausted(views []View) bool {
	if len(views) == 0 {
		return false
	}
	for _, v := range views {
		if v.Failed {
			continue
		}
		if !v.Reconnects && v.HaveEOS {
			continue
		}
		return false
	}
	return true
}
