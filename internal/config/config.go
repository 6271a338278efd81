// Package config loads the supervisor YAML file.
package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Defaults applied to omitted per-source keys
const (
	DefaultReconnectAttempts = -1
	DefaultLatencyMS         = 100
)

// File is the on-disk layout
type File struct {
	Supervisor SupervisorConfig `yaml:"supervisor"`
	Sources    []SourceConfig   `yaml:"sources"`
}

// SupervisorConfig holds the global tunables. Zero means "use the built-in default".
type SupervisorConfig struct {
	LivenessIntervalMS int `yaml:"liveness_interval_ms"`
	WatchIntervalMS    int `yaml:"watch_interval_ms"`
	DebounceMS         int `yaml:"debounce_ms"`
	SettleTimeoutS     int `yaml:"settle_timeout_s"`
}

// SourceConfig is one entry of the sources list
type SourceConfig struct {
	ID                 string `yaml:"id"`
	URI                string `yaml:"uri"`
	ReconnectIntervalS int    `yaml:"reconnect_interval_s"`
	ReconnectAttempts  *int   `yaml:"reconnect_attempts"`
	LatencyMS          *int   `yaml:"latency_ms"`
	RTPProtocol        string `yaml:"rtp_protocol"`
}

// Attempts returns reconnect_attempts, or the default when omitted
func (s SourceConfig) Attempts() int {
	if s.ReconnectAttempts == nil {
		return DefaultReconnectAttempts
	}
	return *s.ReconnectAttempts
}

// Latency returns latency_ms, or the default when omitted
func (s SourceConfig) Latency() int {
	if s.LatencyMS == nil {
		return DefaultLatencyMS
	}
	return *s.LatencyMS
}

// Parse decodes and validates YAML bytes
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(&f); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &f, nil
}
