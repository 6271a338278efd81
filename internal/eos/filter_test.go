package eos

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_DropsUntilReleasedThenForwardsOnce(t *testing.T) {
	var f Filter

	assert.True(t, f.Install())
	assert.False(t, f.Install(), "second install is refused")
	assert.Equal(t, FilterInstalled, f.State())

	for i := 0; i < 3; i++ {
		assert.Equal(t, Drop, f.Intercept())
	}
	assert.Equal(t, uint64(3), f.Dropped())

	assert.True(t, f.Release())
	assert.False(t, f.Release())
	assert.Equal(t, FilterReleasing, f.State())

	assert.Equal(t, Forward, f.Intercept())
	assert.Equal(t, FilterRemoved, f.State())
	assert.Equal(t, Forward, f.Intercept())
	assert.Equal(t, uint64(3), f.Dropped())
}

func TestFilter_NotInstalledForwards(t *testing.T) {
	var f Filter

	assert.Equal(t, Forward, f.Intercept())
	assert.False(t, f.Release())
	assert.Equal(t, FilterAbsent, f.State())
}

func TestFilter_ConcurrentIntercept(t *testing.T) {
	var f Filter
	f.Install()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.Intercept()
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(50), f.Dropped())
}

func TestExhausted(t *testing.T) {
	tests := []struct {
		name  string
		views []View
		want  bool
	}{
		{"no sources", nil, false},
		{"one healthy", []View{{Reconnects: true}}, false},
		{"all failed", []View{{Failed: true}, {Failed: true}}, true},
		{"one can still recover", []View{{Failed: true}, {Reconnects: true}}, false},
		{"non-reconnecting ended", []View{{Failed: true}, {HaveEOS: true}}, true},
		{"non-reconnecting still live", []View{{Failed: true}, {}}, false},
		{"reconnecting source with eos is not done", []View{{Reconnects: true, HaveEOS: true}}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Exhausted(tc.views))
		})
	}
}

func TestFilterState_String(t *testing.T) {
	assert.Equal(t, "releasing", FilterReleasing.String())
	assert.Equal(t, "unknown", FilterState(7).String())
}
