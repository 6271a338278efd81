package sched

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestLoop_TaskFiresEveryInterval(t *testing.T) {
	clock := NewManualClock(epoch)
	loop := New(clock)

	var ticks int
	loop.Schedule(Key{Source: 0, Kind: TaskLiveness}, time.Second, func(time.Time) bool {
		ticks++
		return true
	})

	for i := 0; i < 10; i++ {
		clock.Advance(500 * time.Millisecond)
		loop.RunDue()
	}

	assert.Equal(t, 5, ticks)
	assert.True(t, loop.Armed(Key{Source: 0, Kind: TaskLiveness}))
}

func TestLoop_ReturningFalseRetiresTask(t *testing.T) {
	clock := NewManualClock(epoch)
	loop := New(clock)
	key := Key{Source: 1, Kind: TaskWatch}

	var polls int
	loop.Schedule(key, 20*time.Millisecond, func(time.Time) bool {
		polls++
		return polls < 3
	})

	for i := 0; i < 10; i++ {
		clock.Advance(20 * time.Millisecond)
		loop.RunDue()
	}

	assert.Equal(t, 3, polls)
	assert.False(t, loop.Armed(key))
	assert.Equal(t, 0, loop.Len())
}

func TestLoop_DueOrderFollowsDeadlineThenScheduling(t *testing.T) {
	clock := NewManualClock(epoch)
	loop := New(clock)

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		loop.Schedule(Key{Source: i}, time.Second, func(time.Time) bool {
			order = append(order, i)
			return false
		})
	}

	clock.Advance(time.Second)
	ran := loop.RunDue()

	assert.Equal(t, 3, ran)
	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestLoop_TaskCanHandOverToAnotherKey(t *testing.T) {
	clock := NewManualClock(epoch)
	loop := New(clock)
	live := Key{Source: 0, Kind: TaskLiveness}
	watch := Key{Source: 0, Kind: TaskWatch}

	var watched int
	loop.Schedule(live, time.Second, func(time.Time) bool {
		loop.Schedule(watch, 20*time.Millisecond, func(time.Time) bool {
			watched++
			return false
		})
		return false
	})

	clock.Advance(time.Second)
	loop.RunDue()
	assert.False(t, loop.Armed(live))
	assert.True(t, loop.Armed(watch))

	// Newly scheduled work never runs in the pass that scheduled it
	assert.Equal(t, 0, watched)

	clock.Advance(20 * time.Millisecond)
	loop.RunDue()
	assert.Equal(t, 1, watched)
	assert.Equal(t, 0, loop.Len())
}

func TestLoop_CancelledByEarlierTaskInSamePass(t *testing.T) {
	clock := NewManualClock(epoch)
	loop := New(clock)

	var secondRan bool
	loop.Schedule(Key{Source: 0}, time.Second, func(time.Time) bool {
		loop.Cancel(Key{Source: 1})
		return true
	})
	loop.Schedule(Key{Source: 1}, time.Second, func(time.Time) bool {
		secondRan = true
		return true
	})

	clock.Advance(time.Second)
	loop.RunDue()

	assert.False(t, secondRan)
	assert.False(t, loop.Armed(Key{Source: 1}))
}

func TestLoop_PostedWorkRunsBeforeTasks(t *testing.T) {
	clock := NewManualClock(epoch)
	loop := New(clock)

	var log []string
	loop.Schedule(Key{}, time.Second, func(time.Time) bool {
		log = append(log, "task")
		return false
	})
	loop.Post(func() { log = append(log, "posted") })

	clock.Advance(time.Second)
	loop.RunDue()

	assert.Equal(t, []string{"posted", "task"}, log)
}

func TestLoop_StopCancelsEverything(t *testing.T) {
	clock := NewManualClock(epoch)
	loop := New(clock)

	loop.Schedule(Key{Source: 0}, time.Second, func(time.Time) bool { return true })
	loop.Schedule(Key{Source: 1}, time.Second, func(time.Time) bool { return true })
	loop.Stop()
	loop.Stop()

	assert.True(t, loop.Stopped())
	assert.Equal(t, 0, loop.Len())

	loop.Schedule(Key{Source: 2}, time.Second, func(time.Time) bool { return true })
	assert.Equal(t, 0, loop.Len(), "scheduling on a stopped loop is ignored")
}

func TestLoop_RunRealTime(t *testing.T) {
	loop := New(SystemClock{})

	var ticks atomic.Int32
	loop.Schedule(Key{}, 5*time.Millisecond, func(time.Time) bool {
		if ticks.Add(1) == 3 {
			loop.Stop()
		}
		return true
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := loop.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(3), ticks.Load())
}

func TestLoop_RunReturnsOnCancel(t *testing.T) {
	loop := New(nil)

	ctx, cancel := context.WithCancel(context.Background())
	posted := make(chan struct{})
	loop.Post(func() {
		close(posted)
		cancel()
	})

	err := loop.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	<-posted
}
