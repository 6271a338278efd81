package streamsupervisor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/e7canasta/orion-care-sensor/modules/stream-supervisor/internal/reconnect"
	"github.com/e7canasta/orion-care-sensor/modules/stream-supervisor/internal/sched"
)

// source is the runtime state of one attached source
type source struct {
	index int
	cfg   SourceConfig
	node  SourceNode

	// mu guards the fields written from the data path
	mu         sync.Mutex
	lastBuffer time.Time
	haveEOS    bool

	// loop-only
	machine       reconnect.Machine
	lastReconnect time.Time
	restartedAt   time.Time
	attemptID     string

	snapshot atomic.Pointer[SourceStats]
}

func newSource(index int, cfg SourceConfig, node SourceNode) *source {
	return &source{
		index: index,
		cfg:   cfg,
		node:  node,
	}
}

func (src *source) livenessKey() sched.Key {
	return sched.Key{Source: src.index, Kind: sched.TaskLiveness}
}

func (src *source) watchKey() sched.Key {
	return sched.Key{Source: src.index, Kind: sched.TaskWatch}
}

// reconnects reports whether staleness triggers restarts for this source
func (src *source) reconnects() bool {
	return src.cfg.ReconnectInterval > 0
}

func (src *source) bounded() bool {
	return src.cfg.MaxReconnectAttempts != UnboundedAttempts
}

// attempt is the number reported in events and logs
func (src *source) attempt() int {
	if src.bounded() {
		return src.machine.NumReconnects()
	}
	return int(src.machine.TotalReconnects())
}

// seed overwrites the last buffer time, pushing the next staleness deadline
func (src *source) seed(t time.Time) {
	src.mu.Lock()
	src.lastBuffer = t
	src.mu.Unlock()
}

// touch records a buffer; the last buffer time never moves backwards
func (src *source) touch(at time.Time) {
	src.mu.Lock()
	if at.After(src.lastBuffer) {
		src.lastBuffer = at
	}
	src.mu.Unlock()
}

func (src *source) lastBufferTime() time.Time {
	src.mu.Lock()
	defer src.mu.Unlock()
	return src.lastBuffer
}

func (src *source) markEOS() {
	src.mu.Lock()
	src.haveEOS = true
	src.mu.Unlock()
}

func (src *source) clearEOS() {
	src.mu.Lock()
	src.haveEOS = false
	src.mu.Unlock()
}

func (src *source) eosSignaled() bool {
	src.mu.Lock()
	defer src.mu.Unlock()
	return src.haveEOS
}

// publish refreshes the snapshot of loop-owned fields. Loop goroutine only
// (or before Run).
func (s *Supervisor) publish(src *source) {
	src.snapshot.Store(&SourceStats{
		Index:           src.index,
		ID:              src.cfg.ID,
		URI:             src.cfg.URI,
		Phase:           src.machine.Phase(),
		Reconfiguring:   src.machine.Watching(),
		NumReconnects:   src.machine.NumReconnects(),
		MaxAttempts:     src.cfg.MaxReconnectAttempts,
		TotalReconnects: src.machine.TotalReconnects(),
		LastReconnect:   src.lastReconnect,
		AttemptID:       src.attemptID,
	})
}

func (src *source) stats() SourceStats {
	st := *src.snapshot.Load()

	src.mu.Lock()
	st.LastBuffer = src.lastBuffer
	st.HaveEOS = src.haveEOS
	src.mu.Unlock()

	return st
}
