package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
supervisor:
  liveness_interval_ms: 500
  debounce_ms: 3000
  settle_timeout_s: 30
sources:
  - id: cam-0
    uri: rtsp://10.0.0.5/stream
    reconnect_interval_s: 5
    reconnect_attempts: 3
    latency_ms: 200
    rtp_protocol: tcp
  - uri: rtsp://10.0.0.6/stream
`

func TestParse_AppliesDefaults(t *testing.T) {
	f, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, 500, f.Supervisor.LivenessIntervalMS)
	assert.Equal(t, 0, f.Supervisor.WatchIntervalMS)
	require.Len(t, f.Sources, 2)

	cam := f.Sources[0]
	assert.Equal(t, "cam-0", cam.ID)
	assert.Equal(t, 5, cam.ReconnectIntervalS)
	assert.Equal(t, 3, cam.Attempts())
	assert.Equal(t, 200, cam.Latency())
	assert.Equal(t, "tcp", cam.RTPProtocol)

	other := f.Sources[1]
	assert.Equal(t, "source-1", other.ID)
	assert.Equal(t, 0, other.ReconnectIntervalS)
	assert.Equal(t, DefaultReconnectAttempts, other.Attempts())
	assert.Equal(t, DefaultLatencyMS, other.Latency())
}

func TestParse_ExplicitZeroAttemptsKept(t *testing.T) {
	f, err := Parse([]byte(`
sources:
  - uri: rtsp://a
    reconnect_attempts: 0
    latency_ms: 0
`))
	require.NoError(t, err)
	assert.Equal(t, 0, f.Sources[0].Attempts())
	assert.Equal(t, 0, f.Sources[0].Latency())
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"no sources", "supervisor: {}\n", "at least one source"},
		{"missing uri", "sources:\n  - id: a\n", "uri is required"},
		{"duplicate id", "sources:\n  - {id: a, uri: x}\n  - {id: a, uri: y}\n", "already used"},
		{"negative interval", "sources:\n  - {uri: x, reconnect_interval_s: -1}\n", "reconnect_interval_s"},
		{"attempts below -1", "sources:\n  - {uri: x, reconnect_attempts: -2}\n", "reconnect_attempts"},
		{"negative latency", "sources:\n  - {uri: x, latency_ms: -5}\n", "latency_ms"},
		{"unknown protocol", "sources:\n  - {uri: x, rtp_protocol: udp}\n", "rtp_protocol"},
		{"negative debounce", "supervisor: {debounce_ms: -1}\nsources:\n  - {uri: x}\n", "debounce_ms"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("sources: [\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}
