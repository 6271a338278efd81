package streamsupervisor

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/e7canasta/orion-care-sensor/modules/stream-supervisor/internal/metrics"
)

func TestNewPrometheusSink_SupervisedRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)
	m, ok := sink.(*metrics.Sink)
	require.True(t, ok)

	h := newHarness(t, Config{Sinks: []EventSink{sink}})
	h.attach(stale(5*time.Second, 1), failingNode())
	h.start()

	h.step(60 * time.Second)

	id := h.stats(0).ID
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ReconnectAttempts.WithLabelValues(id)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TransitionFailed.WithLabelValues(id)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SourceFailures.WithLabelValues(id)))
	assert.Equal(t, float64(metrics.StateFailed), testutil.ToFloat64(m.SourceState.WithLabelValues(id)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.AllSourcesFailed))
}

func TestNewPrometheusSink_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	sink, err := NewPrometheusSink(reg)
	require.Error(t, err)
	assert.Nil(t, sink)
}
