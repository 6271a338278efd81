package config

import "fmt"

// RTP protocol names accepted by rtp_protocol
var rtpProtocols = map[string]bool{
	"":    true,
	"any": true,
	"tcp": true,
	"all": true,
}

// Validate checks the file and fills in missing source ids
func Validate(f *File) error {
	sv := f.Supervisor
	if sv.LivenessIntervalMS < 0 {
		return fmt.Errorf("supervisor.liveness_interval_ms must be >= 0")
	}
	if sv.WatchIntervalMS < 0 {
		return fmt.Errorf("supervisor.watch_interval_ms must be >= 0")
	}
	if sv.DebounceMS < 0 {
		return fmt.Errorf("supervisor.debounce_ms must be >= 0")
	}
	if sv.SettleTimeoutS < 0 {
		return fmt.Errorf("supervisor.settle_timeout_s must be >= 0")
	}

	if len(f.Sources) == 0 {
		return fmt.Errorf("at least one source is required")
	}

	seen := make(map[string]int, len(f.Sources))
	for i := range f.Sources {
		src := &f.Sources[i]

		if src.ID == "" {
			src.ID = fmt.Sprintf("source-%d", i)
		}
		if prev, dup := seen[src.ID]; dup {
			return fmt.Errorf("sources[%d]: id '%s' already used by sources[%d]", i, src.ID, prev)
		}
		seen[src.ID] = i

		if src.URI == "" {
			return fmt.Errorf("sources[%d] (%s): uri is required", i, src.ID)
		}
		if src.ReconnectIntervalS < 0 {
			return fmt.Errorf("sources[%d] (%s): reconnect_interval_s must be >= 0", i, src.ID)
		}
		if src.Attempts() < -1 {
			return fmt.Errorf("sources[%d] (%s): reconnect_attempts must be >= -1, got %d",
				i, src.ID, src.Attempts())
		}
		if src.Latency() < 0 {
			return fmt.Errorf("sources[%d] (%s): latency_ms must be >= 0", i, src.ID)
		}
		if !rtpProtocols[src.RTPProtocol] {
			return fmt.Errorf("sources[%d] (%s): unknown rtp_protocol '%s' (must be 'any', 'tcp' or 'all')",
				i, src.ID, src.RTPProtocol)
		}
	}

	return nil
}
