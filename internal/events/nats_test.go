package events

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type message struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	msgs []message
	err  error
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.msgs = append(f.msgs, message{subject: subject, data: data})
	return f.err
}

func TestNATSSink_PublishesJSON(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewNATSSink(pub, "orion.streams.", nil)

	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	sink.HandleEvent(Event{
		Kind:        KindReconnected,
		Index:       2,
		SourceID:    "cam-2",
		Attempt:     1,
		MaxAttempts: 3,
		AttemptID:   "abc",
		Elapsed:     1500 * time.Millisecond,
		At:          at,
	})

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "orion.streams.cam-2.reconnected", pub.msgs[0].subject)

	var got map[string]any
	require.NoError(t, json.Unmarshal(pub.msgs[0].data, &got))
	assert.Equal(t, "reconnected", got["kind"])
	assert.Equal(t, "cam-2", got["source_id"])
	assert.Equal(t, float64(1500), got["elapsed_ms"])
	assert.Equal(t, "abc", got["attempt_id"])
	assert.Equal(t, "2024-03-01T10:00:00Z", got["at"])
}

func TestNATSSink_Subject(t *testing.T) {
	sink := NewNATSSink(&fakePublisher{}, "", nil)

	assert.Equal(t, "stream.supervisor.all.all_sources_failed",
		sink.Subject(Event{Kind: KindAllSourcesFailed, Index: -1}))
	assert.Equal(t, "stream.supervisor.lobby_cam_1.source_failed",
		sink.Subject(Event{Kind: KindSourceFailed, SourceID: "lobby.cam 1"}))
}

func TestNATSSink_PublishErrorIsSwallowed(t *testing.T) {
	pub := &fakePublisher{err: errors.New("nats: connection closed")}
	sink := NewNATSSink(pub, "x", nil)

	assert.NotPanics(t, func() {
		sink.HandleEvent(Event{Kind: KindTerminalSignal, SourceID: "a"})
	})
	assert.Len(t, pub.msgs, 1)
}

func TestSinkFunc(t *testing.T) {
	var got []Kind
	var s Sink = SinkFunc(func(ev Event) { got = append(got, ev.Kind) })

	s.HandleEvent(Event{Kind: KindReconnectAttempt})
	assert.Equal(t, []Kind{KindReconnectAttempt}, got)
}
