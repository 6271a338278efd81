package streamsupervisor

import (
	"time"

	"github.com/google/uuid"

	"github.com/e7canasta/orion-care-sensor/modules/stream-supervisor/internal/liveness"
	"github.com/e7canasta/orion-care-sensor/modules/stream-supervisor/internal/reconnect"
	"github.com/e7canasta/orion-care-sensor/modules/stream-supervisor/internal/transition"
)

// Everything in this file runs on the loop goroutine.

func (s *Supervisor) armLiveness(src *source) {
	s.loop.Schedule(src.livenessKey(), s.cfg.LivenessInterval, func(now time.Time) bool {
		return s.checkLiveness(src, now, false)
	})
}

// checkLiveness runs one liveness evaluation and applies it. Returns whether
// the liveness timer stays armed.
func (s *Supervisor) checkLiveness(src *source, now time.Time, forced bool) bool {
	// Evaluated and applied under mu so two sources cannot spend one debounce window
	s.mu.Lock()
	d := liveness.Evaluate(liveness.Input{
		Now:             now,
		LastBuffer:      src.lastBufferTime(),
		LastGlobalReset: s.lastGlobalReset,
		Interval:        src.cfg.ReconnectInterval,
		Debounce:        s.cfg.Debounce,
		Reconfiguring:   src.machine.Watching(),
		Failed:          src.machine.Failed(),
		NumReconnects:   src.machine.NumReconnects(),
		MaxAttempts:     src.cfg.MaxReconnectAttempts,
		Forced:          forced,
	})
	if d.Action == liveness.ActionReconnect {
		s.lastGlobalReset = now
	}
	s.mu.Unlock()

	switch d.Action {
	case liveness.ActionDebounced:
		s.log.Debug("stream-supervisor: source stale, inside debounce window",
			"source_id", src.cfg.ID,
			"index", src.index,
			"since_last_buffer", d.SinceLastBuffer,
		)
	case liveness.ActionExhausted:
		s.failSource(src, "reconnect attempts exhausted")
	case liveness.ActionReconnect:
		s.restart(src, now, d.NumReconnects, d.SinceLastBuffer)
		return false
	}

	return d.Reschedule
}

// restart stops and resyncs the node, then hands control to the transition watcher
func (s *Supervisor) restart(src *source, now time.Time, next int, since time.Duration) {
	if !src.machine.Begin(next) {
		return
	}

	src.lastReconnect = now
	src.restartedAt = now
	src.seed(now)
	src.attemptID = uuid.NewString()
	s.loop.Cancel(src.livenessKey())

	s.log.Warn("stream-supervisor: source stale, reconnecting",
		"source_id", src.cfg.ID,
		"index", src.index,
		"attempt", src.attempt(),
		"max_attempts", src.cfg.MaxReconnectAttempts,
		"attempt_id", src.attemptID,
		"since_last_buffer", since,
	)
	s.emit(Event{
		Kind:        EventReconnectAttempt,
		Index:       src.index,
		SourceID:    src.cfg.ID,
		Attempt:     src.attempt(),
		MaxAttempts: src.cfg.MaxReconnectAttempts,
		AttemptID:   src.attemptID,
		Reason:      "no data",
		At:          now,
	})

	out, err := reconnect.Restart(src.node)
	if err != nil {
		s.log.Error("stream-supervisor: restart aborted",
			"source_id", src.cfg.ID,
			"attempt_id", src.attemptID,
			"error", err,
		)
		s.endTransition(src, now, err.Error())
		return
	}
	if out.ResyncErr != nil {
		s.log.Warn("stream-supervisor: couldn't resync source with aggregator, watching anyway",
			"source_id", src.cfg.ID,
			"attempt_id", src.attemptID,
			"error", out.ResyncErr,
		)
	}

	s.loop.Schedule(src.watchKey(), s.cfg.WatchInterval, func(now time.Time) bool {
		return s.watchTransition(src, now)
	})
	s.publish(src)
}

// watchTransition is one poll of the restart's state change
func (s *Supervisor) watchTransition(src *source, now time.Time) bool {
	if !src.machine.Watching() {
		return false
	}

	state := src.node.QueryTransition()
	elapsed := now.Sub(src.restartedAt)
	d := transition.Evaluate(transition.Observation{
		State:         state,
		Elapsed:       elapsed,
		SettleTimeout: s.cfg.SettleTimeout,
	})

	switch d.Action {
	case transition.ActionNudge:
		s.log.Debug("stream-supervisor: transition stalled, requesting running",
			"source_id", src.cfg.ID,
			"attempt_id", src.attemptID,
		)
		if err := src.node.RequestRunning(); err != nil {
			s.log.Warn("stream-supervisor: failed to request running",
				"source_id", src.cfg.ID,
				"error", err,
			)
		}

	case transition.ActionSettled:
		src.machine.Settle()
		src.clearEOS()
		s.publish(src)

		s.log.Info("stream-supervisor: source reconnected",
			"source_id", src.cfg.ID,
			"index", src.index,
			"attempt_id", src.attemptID,
			"elapsed", elapsed,
		)
		s.emit(Event{
			Kind:        EventReconnected,
			Index:       src.index,
			SourceID:    src.cfg.ID,
			MaxAttempts: src.cfg.MaxReconnectAttempts,
			AttemptID:   src.attemptID,
			Elapsed:     elapsed,
			At:          now,
		})
		s.armLiveness(src)

	case transition.ActionFailed:
		s.log.Warn("stream-supervisor: restart transition failed",
			"source_id", src.cfg.ID,
			"attempt", src.attempt(),
			"attempt_id", src.attemptID,
			"reason", d.Reason,
			"elapsed", elapsed,
		)
		s.endTransition(src, now, d.Reason)
	}

	return d.Reschedule
}

// endTransition aborts the in-flight attempt and returns control to the
// liveness monitor, which decides on the next attempt or on failure
func (s *Supervisor) endTransition(src *source, now time.Time, reason string) {
	src.machine.Abort()
	s.loop.Cancel(src.watchKey())
	s.publish(src)

	s.emit(Event{
		Kind:        EventTransitionFailed,
		Index:       src.index,
		SourceID:    src.cfg.ID,
		Attempt:     src.attempt(),
		MaxAttempts: src.cfg.MaxReconnectAttempts,
		AttemptID:   src.attemptID,
		Reason:      reason,
		Elapsed:     now.Sub(src.restartedAt),
		At:          now,
	})
	s.armLiveness(src)
}

func (s *Supervisor) handleTerminal(src *source) {
	if src.machine.Failed() {
		// Typically the end-of-stream pushed by Terminate
		s.checkExhausted()
		return
	}

	now := s.loop.Now()
	s.log.Info("stream-supervisor: end of stream from source",
		"source_id", src.cfg.ID,
		"index", src.index,
	)
	s.emit(Event{
		Kind:     EventTerminalSignal,
		Index:    src.index,
		SourceID: src.cfg.ID,
		At:       now,
	})

	if !src.reconnects() {
		s.failSource(src, "end of stream with reconnection disabled")
		return
	}

	// Restart now if debounce and budget allow; the regular tick catches it otherwise
	s.checkLiveness(src, now, true)
}

// failSource makes src terminally failed. Never reversed.
func (s *Supervisor) failSource(src *source, reason string) {
	if src.machine.Failed() {
		return
	}
	src.machine.Fail()
	s.loop.Cancel(src.livenessKey())
	s.loop.Cancel(src.watchKey())
	s.publish(src)

	s.log.Warn("stream-supervisor: source failed, no further reconnects",
		"source_id", src.cfg.ID,
		"index", src.index,
		"reason", reason,
		"total_reconnects", src.machine.TotalReconnects(),
	)
	s.emit(Event{
		Kind:        EventSourceFailed,
		Index:       src.index,
		SourceID:    src.cfg.ID,
		Attempt:     src.attempt(),
		MaxAttempts: src.cfg.MaxReconnectAttempts,
		Reason:      reason,
	})

	// Check first: if this was the last source the filter is released and
	// the end-of-stream Terminate pushes goes through
	s.checkExhausted()

	if err := src.node.Terminate(); err != nil {
		s.log.Warn("stream-supervisor: failed to terminate source",
			"source_id", src.cfg.ID,
			"error", err,
		)
	}
}
