package streamsupervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/e7canasta/orion-care-sensor/modules/stream-supervisor/internal/eos"
	"github.com/e7canasta/orion-care-sensor/modules/stream-supervisor/internal/sched"
)

// Supervisor is the aggregation context: it owns every attached source's
// runtime state, the global debounce and the EOS suppression filter.
//
// All resilience logic runs on one loop goroutine (the one calling Run).
// OnBufferArrived, OnTerminalSignal, InterceptEOS and Stats are safe from
// any goroutine.
type Supervisor struct {
	cfg  Config
	log  *slog.Logger
	agg  Aggregator
	loop *sched.Loop

	// copy-on-attach, immutable once Run started
	sources atomic.Pointer[[]*source]

	// mu guards the fields below. Lock order: mu before any source lock.
	mu              sync.Mutex
	started         bool
	lastGlobalReset time.Time
	filter          eos.Filter
	terminated      bool
}

// New creates a Supervisor feeding agg.
//
// Zero Config durations take their defaults. Returns ErrInvalidConfig if agg
// is nil or a duration is negative.
func New(agg Aggregator, cfg Config) (*Supervisor, error) {
	if agg == nil {
		return nil, fmt.Errorf("%w: aggregator is required", ErrInvalidConfig)
	}
	if cfg.LivenessInterval < 0 || cfg.WatchInterval < 0 || cfg.Debounce < 0 || cfg.SettleTimeout < 0 {
		return nil, fmt.Errorf("%w: intervals must be >= 0", ErrInvalidConfig)
	}

	cfg = cfg.withDefaults()

	s := &Supervisor{
		cfg:  cfg,
		log:  cfg.Logger,
		agg:  agg,
		loop: sched.New(cfg.Clock),
	}
	empty := []*source{}
	s.sources.Store(&empty)

	return s, nil
}

// Attach registers a source and returns its stable aggregator port index.
// Only allowed before Run.
func (s *Supervisor) Attach(cfg SourceConfig, node SourceNode) (int, error) {
	if node == nil {
		return -1, fmt.Errorf("%w: source node is required", ErrInvalidConfig)
	}
	if err := validateSource(cfg); err != nil {
		return -1, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return -1, ErrAlreadyRunning
	}

	list := s.list()
	index := len(list)
	if cfg.ID == "" {
		cfg.ID = fmt.Sprintf("source-%d", index)
	}
	for _, other := range list {
		if other.cfg.ID == cfg.ID {
			return -1, fmt.Errorf("%w: source id %q already attached at index %d",
				ErrInvalidConfig, cfg.ID, other.index)
		}
	}

	src := newSource(index, cfg, node)
	next := make([]*source, 0, index+1)
	next = append(next, list...)
	next = append(next, src)
	s.sources.Store(&next)
	s.publish(src)

	s.log.Info("stream-supervisor: source attached",
		"source_id", cfg.ID,
		"index", index,
		"uri", cfg.URI,
		"reconnect_interval", cfg.ReconnectInterval,
		"max_attempts", cfg.MaxReconnectAttempts,
		"latency", cfg.Latency,
	)

	return index, nil
}

func validateSource(cfg SourceConfig) error {
	switch {
	case cfg.URI == "":
		return fmt.Errorf("%w: source URI is required", ErrInvalidConfig)
	case cfg.ReconnectInterval < 0:
		return fmt.Errorf("%w: reconnect interval must be >= 0 (got %v)", ErrInvalidConfig, cfg.ReconnectInterval)
	case cfg.MaxReconnectAttempts < UnboundedAttempts:
		return fmt.Errorf("%w: max reconnect attempts must be >= -1 (got %d)", ErrInvalidConfig, cfg.MaxReconnectAttempts)
	case cfg.Latency < 0:
		return fmt.Errorf("%w: latency must be >= 0 (got %v)", ErrInvalidConfig, cfg.Latency)
	case cfg.RTPProtocol.String() == "unknown":
		return fmt.Errorf("%w: unknown RTP protocol %d", ErrInvalidConfig, cfg.RTPProtocol)
	}
	return nil
}

// Run starts supervision and blocks until ctx is canceled or every source is
// exhausted.
//
// This method:
//  1. Installs EOS suppression on the aggregator if any source can reconnect
//  2. Seeds each source's staleness deadline at now + Latency
//  3. Arms one liveness timer per source and runs the loop
//  4. On exit stops every timer, force-stops sources with a restart in flight
//     and removes the suppression if it is still installed
//
// Returns nil on cancellation, ErrAllSourcesFailed on exhaustion and
// ErrAlreadyRunning if called twice.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.start(); err != nil {
		return err
	}

	if err := s.loop.Run(ctx); err != nil {
		s.log.Debug("stream-supervisor: context done, shutting down", "reason", err)
	}
	s.shutdown()

	if s.isTerminated() {
		return ErrAllSourcesFailed
	}
	return nil
}

func (s *Supervisor) start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyRunning
	}
	list := s.list()
	if len(list) == 0 {
		return fmt.Errorf("%w: no sources attached", ErrInvalidConfig)
	}
	s.started = true

	now := s.loop.Now()
	suppress := false
	for _, src := range list {
		src.seed(now.Add(src.cfg.Latency))
		if src.reconnects() {
			suppress = true
		}
	}

	if suppress && s.filter.Install() {
		if err := s.agg.InstallEOSSuppression(s.InterceptEOS); err != nil {
			return fmt.Errorf("stream-supervisor: failed to install EOS suppression: %w", err)
		}
	}

	for _, src := range list {
		s.armLiveness(src)
		s.publish(src)
	}

	s.log.Info("stream-supervisor: supervision started",
		"sources", len(list),
		"eos_suppression", suppress,
		"liveness_interval", s.cfg.LivenessInterval,
		"debounce", s.cfg.Debounce,
	)
	return nil
}

func (s *Supervisor) shutdown() {
	s.loop.Stop()

	for _, src := range s.list() {
		if src.machine.Watching() {
			s.log.Info("stream-supervisor: stopping source with restart in flight",
				"source_id", src.cfg.ID,
				"index", src.index,
				"attempt_id", src.attemptID,
			)
			if err := src.node.RequestStop(); err != nil {
				s.log.Warn("stream-supervisor: failed to stop source on shutdown",
					"source_id", src.cfg.ID,
					"error", err,
				)
			}
			src.machine.Abort()
		}
		s.publish(src)
	}

	s.mu.Lock()
	released := s.filter.Release()
	s.mu.Unlock()

	if released {
		if err := s.agg.RemoveEOSSuppression(); err != nil {
			s.log.Warn("stream-supervisor: failed to remove EOS suppression", "error", err)
		}
	}

	s.log.Info("stream-supervisor: supervision stopped")
}

// OnBufferArrived records data from source index. Safe from the data path.
func (s *Supervisor) OnBufferArrived(index int, at time.Time) error {
	src, err := s.source(index)
	if err != nil {
		return err
	}
	src.touch(at)
	return nil
}

// OnTerminalSignal reports that source index's transport ended (EOS).
// Safe from the data path; the reaction runs on the loop.
//
// Returns ErrNotRunning once supervision has stopped.
func (s *Supervisor) OnTerminalSignal(index int) error {
	src, err := s.source(index)
	if err != nil {
		return err
	}
	if s.loop.Stopped() {
		return ErrNotRunning
	}

	src.markEOS()
	s.loop.Post(func() { s.handleTerminal(src) })
	return nil
}

// Stats returns one snapshot per attached source, in index order.
// Never waits on the loop.
func (s *Supervisor) Stats() []SourceStats {
	list := s.list()
	out := make([]SourceStats, 0, len(list))
	for _, src := range list {
		out = append(out, src.stats())
	}
	return out
}

func (s *Supervisor) list() []*source {
	return *s.sources.Load()
}

func (s *Supervisor) source(index int) (*source, error) {
	list := s.list()
	if index < 0 || index >= len(list) {
		return nil, fmt.Errorf("%w: index %d", ErrUnknownSource, index)
	}
	return list[index], nil
}

func (s *Supervisor) isTerminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminated
}

func (s *Supervisor) emit(ev Event) {
	if ev.At.IsZero() {
		ev.At = s.loop.Now()
	}
	for _, sink := range s.cfg.Sinks {
		sink.HandleEvent(ev)
	}
}
