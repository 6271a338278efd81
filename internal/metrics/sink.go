// Package metrics exposes supervisor lifecycle events as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/e7canasta/orion-care-sensor/modules/stream-supervisor/internal/events"
)

// Source state gauge values
const (
	StateConnected    = 0
	StateReconnecting = 1
	StateFailed       = 2
)

// Sink turns events into counters, a per-source state gauge and a restart
// duration histogram.
type Sink struct {
	ReconnectAttempts *prometheus.CounterVec
	Reconnects        *prometheus.CounterVec
	TransitionFailed  *prometheus.CounterVec
	TerminalSignals   *prometheus.CounterVec
	SourceFailures    *prometheus.CounterVec
	SourceState       *prometheus.GaugeVec
	RestartDuration   *prometheus.HistogramVec
	AllSourcesFailed  prometheus.Counter
}

// NewSink creates the collectors and registers them on reg (nil skips registration)
func NewSink(reg prometheus.Registerer) (*Sink, error) {
	s := &Sink{
		ReconnectAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stream_supervisor",
				Subsystem: "source",
				Name:      "reconnect_attempts_total",
				Help:      "Restarts started per source",
			},
			[]string{"source"},
		),
		Reconnects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stream_supervisor",
				Subsystem: "source",
				Name:      "reconnects_total",
				Help:      "Restarts that reached running per source",
			},
			[]string{"source"},
		),
		TransitionFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stream_supervisor",
				Subsystem: "source",
				Name:      "transition_failures_total",
				Help:      "Restarts whose state change failed or timed out",
			},
			[]string{"source"},
		),
		TerminalSignals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stream_supervisor",
				Subsystem: "source",
				Name:      "terminal_signals_total",
				Help:      "End-of-stream signals reported by the transport",
			},
			[]string{"source"},
		),
		SourceFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stream_supervisor",
				Subsystem: "source",
				Name:      "failures_total",
				Help:      "Sources that became terminally failed",
			},
			[]string{"source"},
		),
		SourceState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "stream_supervisor",
				Subsystem: "source",
				Name:      "state",
				Help:      "Source state (0=connected, 1=reconnecting, 2=failed)",
			},
			[]string{"source"},
		),
		RestartDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "stream_supervisor",
				Subsystem: "source",
				Name:      "restart_duration_seconds",
				Help:      "Time from restart request to running",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"source"},
		),
		AllSourcesFailed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "stream_supervisor",
				Name:      "all_sources_failed_total",
				Help:      "Times every source of an aggregation context was exhausted",
			},
		),
	}

	if reg == nil {
		return s, nil
	}
	for _, c := range s.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Sink) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		s.ReconnectAttempts,
		s.Reconnects,
		s.TransitionFailed,
		s.TerminalSignals,
		s.SourceFailures,
		s.SourceState,
		s.RestartDuration,
		s.AllSourcesFailed,
	}
}

// HandleEvent implements events.Sink
func (s *Sink) HandleEvent(ev events.Event) {
	src := ev.SourceID

	switch ev.Kind {
	case events.KindReconnectAttempt:
		s.ReconnectAttempts.WithLabelValues(src).Inc()
		s.SourceState.WithLabelValues(src).Set(StateReconnecting)
	case events.KindReconnected:
		s.Reconnects.WithLabelValues(src).Inc()
		s.SourceState.WithLabelValues(src).Set(StateConnected)
		s.RestartDuration.WithLabelValues(src).Observe(ev.Elapsed.Seconds())
	case events.KindTransitionFailed:
		s.TransitionFailed.WithLabelValues(src).Inc()
	case events.KindTerminalSignal:
		s.TerminalSignals.WithLabelValues(src).Inc()
	case events.KindSourceFailed:
		s.SourceFailures.WithLabelValues(src).Inc()
		s.SourceState.WithLabelValues(src).Set(StateFailed)
	case events.KindAllSourcesFailed:
		s.AllSourcesFailed.Inc()
	}
}
