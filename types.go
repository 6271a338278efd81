package streamsupervisor

import (
	"log/slog"
	"time"

	"github.com/e7canasta/orion-care-sensor/modules/stream-supervisor/internal/events"
	"github.com/e7canasta/orion-care-sensor/modules/stream-supervisor/internal/reconnect"
	"github.com/e7canasta/orion-care-sensor/modules/stream-supervisor/internal/transition"
)

// UnboundedAttempts disables the reconnect budget of a source
const UnboundedAttempts = -1

// Defaults applied by New to zero Config fields
const (
	DefaultLivenessInterval = time.Second
	DefaultWatchInterval    = 20 * time.Millisecond
	DefaultDebounce         = 3 * time.Second
	DefaultSettleTimeout    = 60 * time.Second
	DefaultLatency          = 100 * time.Millisecond
)

// RTPProtocol restricts the lower transport an RTSP source negotiates
type RTPProtocol int

const (
	// RTPAny lets the transport negotiate (UDP first)
	RTPAny RTPProtocol = 0
	// RTPTCP forces RTP over the RTSP TCP connection
	RTPTCP RTPProtocol = 0x4
	// RTPAll allows UDP, UDP multicast and TCP
	RTPAll RTPProtocol = 0x7
)

// String returns a human-readable representation of the protocol
func (p RTPProtocol) String() string {
	switch p {
	case RTPAny:
		return "any"
	case RTPTCP:
		return "tcp"
	case RTPAll:
		return "all"
	default:
		return "unknown"
	}
}

// ParseRTPProtocol maps a config name (any, tcp, all; empty means any) to an RTPProtocol
func ParseRTPProtocol(s string) (RTPProtocol, bool) {
	switch s {
	case "", "any":
		return RTPAny, true
	case "tcp":
		return RTPTCP, true
	case "all":
		return RTPAll, true
	default:
		return RTPAny, false
	}
}

// SourceConfig is the immutable per-source configuration
type SourceConfig struct {
	// ID names the source in logs, metrics and events (defaults to "source-<index>")
	ID string
	// URI is the transport URI (e.g., "rtsp://10.0.0.5/stream")
	URI string
	// ReconnectInterval is how long a source may stay silent before a restart.
	// Zero disables reconnection for this source.
	ReconnectInterval time.Duration
	// MaxReconnectAttempts caps restarts between two successes (-1 = unbounded)
	MaxReconnectAttempts int
	// Latency is the connection latency budget. The first staleness deadline
	// is pushed out by it.
	Latency time.Duration
	// RTPProtocol is passed through to the transport
	RTPProtocol RTPProtocol
}

// Clock supplies time to the supervisor
type Clock interface {
	Now() time.Time
}

// Config holds the supervisor tunables
type Config struct {
	// LivenessInterval is the period of the per-source staleness check (default 1s)
	LivenessInterval time.Duration
	// WatchInterval is the poll period of a pending restart transition (default 20ms)
	WatchInterval time.Duration
	// Debounce is the minimum spacing between two restarts of any sources (default 3s)
	Debounce time.Duration
	// SettleTimeout fails a restart whose transition has not settled in time (default 60s)
	SettleTimeout time.Duration

	// Logger defaults to slog.Default()
	Logger *slog.Logger
	// Sinks receive every lifecycle event, in order, on the loop goroutine
	Sinks []EventSink
	// Clock defaults to the system clock
	Clock Clock
}

func (c Config) withDefaults() Config {
	if c.LivenessInterval == 0 {
		c.LivenessInterval = DefaultLivenessInterval
	}
	if c.WatchInterval == 0 {
		c.WatchInterval = DefaultWatchInterval
	}
	if c.Debounce == 0 {
		c.Debounce = DefaultDebounce
	}
	if c.SettleTimeout == 0 {
		c.SettleTimeout = DefaultSettleTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// TransitionState is what a node reports about its state change after a restart
type TransitionState = transition.State

const (
	TransitionPending = transition.StatePending
	TransitionRunning = transition.StateRunning
	TransitionFailed  = transition.StateFailed
	TransitionStalled = transition.StateStalled
)

// Phase is the coarse lifecycle of a source
type Phase = reconnect.Phase

const (
	PhaseConnected    = reconnect.PhaseConnected
	PhaseReconnecting = reconnect.PhaseReconnecting
	PhaseFailed       = reconnect.PhaseFailed
)

// Event is one lifecycle notification delivered to every EventSink
type Event = events.Event

// EventKind names a lifecycle notification
type EventKind = events.Kind

const (
	EventReconnectAttempt = events.KindReconnectAttempt
	EventReconnected      = events.KindReconnected
	EventTransitionFailed = events.KindTransitionFailed
	EventSourceFailed     = events.KindSourceFailed
	EventTerminalSignal   = events.KindTerminalSignal
	EventAllSourcesFailed = events.KindAllSourcesFailed
)

// SourceStats is a point-in-time view of one source
type SourceStats struct {
	// Index is the stable aggregator port index
	Index int
	ID    string
	URI   string

	Phase Phase
	// Reconfiguring is true while a restart transition is being watched
	Reconfiguring bool

	// NumReconnects is the attempts spent since the last success (bounded sources only)
	NumReconnects int
	MaxAttempts   int
	// TotalReconnects counts every restart ever started
	TotalReconnects uint64

	LastBuffer    time.Time
	LastReconnect time.Time
	// AttemptID identifies the latest restart (empty before the first one)
	AttemptID string
	HaveEOS   bool
}
