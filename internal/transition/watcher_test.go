package transition

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	const timeout = 60 * time.Second

	tests := []struct {
		name       string
		obs        Observation
		action     Action
		reschedule bool
	}{
		{"pending keeps polling", Observation{StatePending, time.Second, timeout}, ActionWait, true},
		{"stalled is nudged", Observation{StateStalled, time.Second, timeout}, ActionNudge, true},
		{"running settles", Observation{StateRunning, time.Second, timeout}, ActionSettled, false},
		{"running after timeout still settles", Observation{StateRunning, 2 * timeout, timeout}, ActionSettled, false},
		{"failure retires", Observation{StateFailed, 0, timeout}, ActionFailed, false},
		{"pending past timeout fails", Observation{StatePending, timeout, timeout}, ActionFailed, false},
		{"stalled past timeout fails", Observation{StateStalled, timeout + time.Millisecond, timeout}, ActionFailed, false},
		{"no timeout waits forever", Observation{StatePending, 24 * time.Hour, 0}, ActionWait, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := Evaluate(tc.obs)
			assert.Equal(t, tc.action, d.Action)
			assert.Equal(t, tc.reschedule, d.Reschedule)
			if d.Action == ActionFailed {
				assert.NotEmpty(t, d.Reason)
			}
		})
	}
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "stalled", StateStalled.String())
	assert.Equal(t, "unknown", State(9).String())
	assert.Equal(t, "nudge", ActionNudge.String())
	assert.Equal(t, "unknown", Action(9).String())
}
