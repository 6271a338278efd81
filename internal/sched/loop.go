// Package sched implements the single logical event loop that drives every
// per-source timer of an aggregation context.
//
// Tasks are keyed by (source index, kind) so a source can hold at most one
// task of each kind, and a task re-arms itself by returning true. Work coming
// from other goroutines (data-path callbacks) is handed to the loop with Post
// and runs serially with the timer tasks, so loop-owned state needs no lock.
package sched

import (
	"context"
	"sort"
	"sync"
	"time"
)

// TaskKind distinguishes the timers a single source can own
type TaskKind int

const (
	// TaskLiveness is the periodic staleness check of a source
	TaskLiveness TaskKind = iota
	// TaskWatch is the short-interval poll of a pending state transition
	TaskWatch
)

// String returns a human-readable name for the task kind
func (k TaskKind) String() string {
	switch k {
	case TaskLiveness:
		return "liveness"
	case TaskWatch:
		return "watch"
	default:
		return "unknown"
	}
}

// Key identifies a scheduled task
type Key struct {
	Source int
	Kind   TaskKind
}

// Task is a tick function. Returning false retires the task.
type Task func(now time.Time) bool

type entry struct {
	key   Key
	every time.Duration
	next  time.Time
	seq   uint64
	task  Task
}

// idleWait bounds how long Run sleeps when nothing is scheduled
const idleWait = time.Hour

// Loop runs scheduled tasks and posted functions on one goroutine
type Loop struct {
	clock Clock

	mu      sync.Mutex
	tasks   map[Key]*entry
	posted  []func()
	seq     uint64
	stopped bool

	wake chan struct{}
	done chan struct{}
}

// New creates a Loop reading time from clock
func New(clock Clock) *Loop {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Loop{
		clock: clock,
		tasks: make(map[Key]*entry),
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Now returns the loop clock's current time
func (l *Loop) Now() time.Time {
	return l.clock.Now()
}

// Schedule arms task under key, first firing one interval from now.
//
// An existing task under the same key is replaced. Scheduling on a stopped
// loop is ignored.
func (l *Loop) Schedule(key Key, every time.Duration, task Task) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.seq++
	l.tasks[key] = &entry{
		key:   key,
		every: every,
		next:  l.clock.Now().Add(every),
		seq:   l.seq,
		task:  task,
	}
	l.mu.Unlock()
	l.notify()
}

// Cancel disarms the task under key. Returns true if one was armed.
func (l *Loop) Cancel(key Key) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.tasks[key]; !ok {
		return false
	}
	delete(l.tasks, key)
	return true
}

// Armed reports whether a task is scheduled under key
func (l *Loop) Armed(key Key) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.tasks[key]
	return ok
}

// Post queues fn to run on the loop goroutine. Safe from any goroutine.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.posted = append(l.posted, fn)
	l.mu.Unlock()
	l.notify()
}

// RunDue executes all posted functions, then every task whose deadline is at
// or before the current clock time, in deadline order (ties in scheduling
// order). Each due task runs at most once per call.
//
// Returns the number of tasks executed (posted functions are not counted).
func (l *Loop) RunDue() int {
	l.drainPosted()

	now := l.clock.Now()

	l.mu.Lock()
	due := make([]*entry, 0, len(l.tasks))
	for _, e := range l.tasks {
		if !e.next.After(now) {
			due = append(due, e)
		}
	}
	l.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].next.Equal(due[j].next) {
			return due[i].seq < due[j].seq
		}
		return due[i].next.Before(due[j].next)
	})

	ran := 0
	for _, e := range due {
		// A task that ran earlier in this pass may have canceled or replaced it
		if !l.current(e) {
			continue
		}

		keep := e.task(now)
		ran++

		l.mu.Lock()
		if l.tasks[e.key] == e {
			if keep && !l.stopped {
				e.next = now.Add(e.every)
			} else {
				delete(l.tasks, e.key)
			}
		}
		l.mu.Unlock()

		// Work posted by the task runs before the next task observes state
		l.drainPosted()
	}

	return ran
}

// Run drives the loop in real time until ctx is canceled or Stop is called.
//
// Returns ctx.Err() on cancellation, nil after Stop.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.RunDue()

		timer := time.NewTimer(l.nextWait())
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-l.done:
			timer.Stop()
			return nil
		case <-l.wake:
		case <-timer.C:
		}
		timer.Stop()
	}
}

// Stop cancels every task, drops pending posted work and makes Run return.
// Idempotent.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped {
		return
	}
	l.stopped = true
	l.tasks = make(map[Key]*entry)
	l.posted = nil
	close(l.done)
}

// Stopped reports whether Stop has been called
func (l *Loop) Stopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopped
}

// Len returns the number of armed tasks
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

func (l *Loop) current(e *entry) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tasks[e.key] == e
}

func (l *Loop) drainPosted() {
	for {
		l.mu.Lock()
		if len(l.posted) == 0 {
			l.mu.Unlock()
			return
		}
		batch := l.posted
		l.posted = nil
		l.mu.Unlock()

		for _, fn := range batch {
			fn()
		}
	}
}

func (l *Loop) nextWait() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.posted) > 0 {
		return 0
	}

	var earliest time.Time
	for _, e := range l.tasks {
		if earliest.IsZero() || e.next.Before(earliest) {
			earliest = e.next
		}
	}
	if earliest.IsZero() {
		return idleWait
	}

	wait := earliest.Sub(l.clock.Now())
	if wait < 0 {
		return 0
	}
	return wait
}

func (l *Loop) notify() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}
