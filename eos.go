package streamsupervisor

import (
	"github.com/e7canasta/orion-care-sensor/modules/stream-supervisor/internal/eos"
)

// InterceptEOS is the callback handed to Aggregator.InstallEOSSuppression.
//
// While suppression is active it returns false (drop the signal) and queues
// an exhaustion check. Once every source is exhausted the filter is released:
// the next call returns true and the filter removes itself.
//
// Safe from the data path.
func (s *Supervisor) InterceptEOS() bool {
	if s.filter.Intercept() == eos.Forward {
		return true
	}
	s.loop.Post(s.checkExhausted)
	return false
}

// checkExhausted releases the filter and stops supervision the first time no
// source can produce data anymore. Loop goroutine only.
func (s *Supervisor) checkExhausted() {
	list := s.list()

	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		return
	}

	views := make([]eos.View, 0, len(list))
	for _, src := range list {
		views = append(views, eos.View{
			Failed:     src.machine.Failed(),
			Reconnects: src.reconnects(),
			HaveEOS:    src.eosSignaled(),
		})
	}
	if !eos.Exhausted(views) {
		s.mu.Unlock()
		return
	}

	s.terminated = true
	released := s.filter.Release()
	s.mu.Unlock()

	if released {
		if err := s.agg.RemoveEOSSuppression(); err != nil {
			s.log.Warn("stream-supervisor: failed to remove EOS suppression", "error", err)
		}
	}
	s.agg.ReportFatal(ErrAllSourcesFailed)

	s.log.Error("stream-supervisor: all sources exhausted, releasing end of stream",
		"sources", len(list),
		"dropped_eos", s.filter.Dropped(),
	)
	s.emit(Event{
		Kind:   EventAllSourcesFailed,
		Index:  -1,
		Reason: "every source failed or ended",
	})

	s.loop.Stop()
}
