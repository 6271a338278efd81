package streamsupervisor

import (
	"fmt"
	"os"
	"time"

	"github.com/e7canasta/orion-care-sensor/modules/stream-supervisor/internal/config"
)

// LoadConfig reads a YAML supervisor file.
//
// The returned Config carries only the tunables; Logger, Sinks and Clock are
// left for the caller. Omitted reconnect_attempts means unbounded and omitted
// latency_ms means 100ms.
//
// Example file:
//
//	supervisor:
//	  liveness_interval_ms: 1000
//	  debounce_ms: 3000
//	sources:
//	  - id: cam-0
//	    uri: rtsp://10.0.0.5/stream
//	    reconnect_interval_s: 5
//	    reconnect_attempts: 3
//	    rtp_protocol: tcp
func LoadConfig(path string) (Config, []SourceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, nil, fmt.Errorf("stream-supervisor: failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig is LoadConfig over in-memory YAML
func ParseConfig(data []byte) (Config, []SourceConfig, error) {
	f, err := config.Parse(data)
	if err != nil {
		return Config{}, nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	cfg := Config{
		LivenessInterval: time.Duration(f.Supervisor.LivenessIntervalMS) * time.Millisecond,
		WatchInterval:    time.Duration(f.Supervisor.WatchIntervalMS) * time.Millisecond,
		Debounce:         time.Duration(f.Supervisor.DebounceMS) * time.Millisecond,
		SettleTimeout:    time.Duration(f.Supervisor.SettleTimeoutS) * time.Second,
	}

	sources := make([]SourceConfig, 0, len(f.Sources))
	for _, src := range f.Sources {
		proto, _ := ParseRTPProtocol(src.RTPProtocol)
		sources = append(sources, SourceConfig{
			ID:                   src.ID,
			URI:                  src.URI,
			ReconnectInterval:    time.Duration(src.ReconnectIntervalS) * time.Second,
			MaxReconnectAttempts: src.Attempts(),
			Latency:              time.Duration(src.Latency()) * time.Millisecond,
			RTPProtocol:          proto,
		})
	}

	return cfg, sources, nil
}
