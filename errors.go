package streamsupervisor

import "errors"

var (
	// ErrAlreadyRunning is returned by Attach after Run started, and by a second Run
	ErrAlreadyRunning = errors.New("stream-supervisor: already running")
	// ErrNotRunning is returned when an operation needs a running supervisor
	ErrNotRunning = errors.New("stream-supervisor: not running")
	// ErrUnknownSource is returned for an index that was never attached
	ErrUnknownSource = errors.New("stream-supervisor: unknown source")
	// ErrAllSourcesFailed is returned by Run (and reported to the aggregator)
	// once every source is exhausted
	ErrAllSourcesFailed = errors.New("stream-supervisor: all sources failed")
	// ErrInvalidConfig wraps every configuration validation failure
	ErrInvalidConfig = errors.New("stream-supervisor: invalid configuration")
)
