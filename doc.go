// Package streamsupervisor keeps N live RTSP sources feeding one aggregator
// healthy: it detects sources that stopped delivering data, restarts them in
// place, gives up on sources that exhaust their reconnect budget, and hides
// per-source end-of-stream from the aggregator until no source can recover.
//
// The package is transport-agnostic. A source is anything implementing
// SourceNode; the aggregator implements Aggregator. The gstnode package
// provides both on GStreamer.
//
// # Quick Start
//
//	cfg, sources, err := streamsupervisor.LoadConfig("supervisor.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	sup, err := streamsupervisor.New(aggregator, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for i, src := range sources {
//	    if _, err := sup.Attach(src, nodes[i]); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
//	// Data path, from any goroutine
//	sup.OnBufferArrived(index, time.Now())
//	sup.OnTerminalSignal(index)
//
//	// Blocks until ctx is canceled or every source is exhausted
//	err = sup.Run(ctx)
//	if errors.Is(err, streamsupervisor.ErrAllSourcesFailed) {
//	    // nothing left to aggregate
//	}
//
// # Features
//
//   - Per-source liveness check against a configurable silence interval
//   - In-place restart (stop, then resync with the parent) without touching other sources
//   - Global debounce across sources so a shared outage doesn't restart everything at once
//   - Bounded or unbounded reconnect budget per source, reset on every success
//   - EOS suppression at the aggregator while any source can still recover
//   - Lifecycle events to any EventSink (Prometheus and NATS sinks included)
//   - Stats() snapshots that never wait on the supervision loop
//
// # Reconnection
//
// Every LivenessInterval each source with a non-zero ReconnectInterval is
// checked. A source silent for ReconnectInterval or longer is restarted,
// unless another source was restarted less than Debounce ago (the check is
// then retried on the next tick). After a restart the transition is watched
// every WatchInterval:
//
//   - Running: the attempt succeeded, the budget counter resets
//   - Pending: keep waiting
//   - Stalled: nudge the node with RequestRunning and keep waiting
//   - Failed, or no result within SettleTimeout: the attempt counts as spent
//
// A bounded source with MaxReconnectAttempts = N gets N restarts; the next
// detection fails it for good. A zero ReconnectInterval opts a source out:
// it is never restarted and its first terminal signal fails it.
//
// # EOS Suppression
//
// Run installs a filter through Aggregator.InstallEOSSuppression. While any
// source is healthy or still has budget, end-of-stream reaching the
// aggregator output is dropped. When the last source is exhausted the
// filter is released, removed, ReportFatal(ErrAllSourcesFailed) is called
// and Run returns ErrAllSourcesFailed.
//
// # Events
//
// Each lifecycle step emits an Event (reconnect_attempt, reconnected,
// transition_failed, source_failed, terminal_signal, all_sources_failed).
// Sinks run on the loop goroutine and must not block:
//
//	promSink, _ := streamsupervisor.NewPrometheusSink(prometheus.DefaultRegisterer)
//	natsSink := streamsupervisor.NewNATSSink(nc, "stream.supervisor", logger)
//	cfg.Sinks = []streamsupervisor.EventSink{promSink, natsSink}
//
// # Thread Safety
//
//   - OnBufferArrived, OnTerminalSignal and InterceptEOS are safe from data-path goroutines
//   - Stats() is safe from any goroutine
//   - New, Attach and Run are called from the owner goroutine, Attach before Run
//   - SourceNode and Aggregator methods are only called from the loop goroutine,
//     except the intercept callback handed to InstallEOSSuppression
package streamsupervisor
