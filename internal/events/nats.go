package events

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"
)

// Publisher is the subset of *nats.Conn the sink needs
type Publisher interface {
	Publish(subject string, data []byte) error
}

// DefaultSubjectPrefix is used when NATSSink is created with an empty prefix
const DefaultSubjectPrefix = "stream.supervisor"

// payload is the JSON document published for each event
type payload struct {
	Kind        Kind      `json:"kind"`
	Index       int       `json:"index"`
	SourceID    string    `json:"source_id,omitempty"`
	Attempt     int       `json:"attempt,omitempty"`
	MaxAttempts int       `json:"max_attempts,omitempty"`
	AttemptID   string    `json:"attempt_id,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	ElapsedMS   int64     `json:"elapsed_ms,omitempty"`
	At          time.Time `json:"at"`
}

// NATSSink publishes every event as JSON on <prefix>.<source_id>.<kind>.
//
// Publish on a core NATS connection only buffers, so HandleEvent does not
// block the loop. Publish errors are logged and dropped.
type NATSSink struct {
	pub    Publisher
	prefix string
	logger *slog.Logger
}

// NewNATSSink creates a sink publishing through pub
func NewNATSSink(pub Publisher, prefix string, logger *slog.Logger) *NATSSink {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSSink{
		pub:    pub,
		prefix: strings.TrimSuffix(prefix, "."),
		logger: logger,
	}
}

// Subject returns the subject an event is published on
func (s *NATSSink) Subject(ev Event) string {
	id := ev.SourceID
	if id == "" {
		id = "all"
	}
	return s.prefix + "." + subjectToken(id) + "." + string(ev.Kind)
}

// HandleEvent implements Sink
func (s *NATSSink) HandleEvent(ev Event) {
	data, err := json.Marshal(payload{
		Kind:        ev.Kind,
		Index:       ev.Index,
		SourceID:    ev.SourceID,
		Attempt:     ev.Attempt,
		MaxAttempts: ev.MaxAttempts,
		AttemptID:   ev.AttemptID,
		Reason:      ev.Reason,
		ElapsedMS:   ev.Elapsed.Milliseconds(),
		At:          ev.At.UTC(),
	})
	if err != nil {
		s.logger.Error("stream-supervisor: failed to encode event", "kind", ev.Kind, "error", err)
		return
	}

	subject := s.Subject(ev)
	if err := s.pub.Publish(subject, data); err != nil {
		s.logger.Warn("stream-supervisor: failed to publish event",
			"subject", subject,
			"error", err,
		)
	}
}

// subjectToken replaces characters NATS treats as separators or wildcards
func subjectToken(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}
