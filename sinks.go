package streamsupervisor

import (
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/e7canasta/orion-care-sensor/modules/stream-supervisor/internal/events"
	"github.com/e7canasta/orion-care-sensor/modules/stream-supervisor/internal/metrics"
)

// NewPrometheusSink returns an EventSink maintaining per-source counters, a
// state gauge and a restart duration histogram under the
// "stream_supervisor" namespace. The collectors are registered on reg.
func NewPrometheusSink(reg prometheus.Registerer) (EventSink, error) {
	sink, err := metrics.NewSink(reg)
	if err != nil {
		return nil, fmt.Errorf("stream-supervisor: failed to register metrics: %w", err)
	}
	return sink, nil
}

// NewNATSSink returns an EventSink publishing every event as JSON on
// <prefix>.<source_id>.<kind> (prefix defaults to "stream.supervisor").
func NewNATSSink(nc *nats.Conn, prefix string, logger *slog.Logger) EventSink {
	return events.NewNATSSink(nc, prefix, logger)
}
