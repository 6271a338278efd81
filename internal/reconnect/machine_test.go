package reconnect

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachine_BeginIsGuarded(t *testing.T) {
	var m Machine

	require.True(t, m.Begin(1))
	assert.Equal(t, PhaseReconnecting, m.Phase())
	assert.True(t, m.Watching())
	assert.Equal(t, 1, m.NumReconnects())

	// Second restart while the first is in flight is a no-op
	assert.False(t, m.Begin(2))
	assert.Equal(t, 1, m.NumReconnects())
	assert.Equal(t, uint64(1), m.TotalReconnects())
}

func TestMachine_SettleResetsCounter(t *testing.T) {
	var m Machine

	m.Begin(1)
	m.Settle()
	assert.Equal(t, PhaseConnected, m.Phase())
	assert.False(t, m.Watching())
	assert.Equal(t, 0, m.NumReconnects())
	assert.Equal(t, uint64(1), m.TotalReconnects())
}

func TestMachine_AbortKeepsAttemptSpent(t *testing.T) {
	var m Machine

	m.Begin(2)
	m.Abort()
	assert.Equal(t, PhaseReconnecting, m.Phase())
	assert.False(t, m.Watching())
	assert.Equal(t, 2, m.NumReconnects())

	assert.True(t, m.Begin(3), "abort frees the guard")
}

func TestMachine_FailIsTerminal(t *testing.T) {
	var m Machine

	m.Begin(1)
	m.Fail()
	assert.True(t, m.Failed())
	assert.False(t, m.Watching())

	assert.False(t, m.Begin(1))
	m.Settle()
	assert.Equal(t, PhaseFailed, m.Phase())
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "connected", PhaseConnected.String())
	assert.Equal(t, "reconnecting", PhaseReconnecting.String())
	assert.Equal(t, "failed", PhaseFailed.String())
	assert.Equal(t, "unknown", Phase(42).String())
}

type fakeNode struct {
	calls     []string
	stopErr   error
	resyncErr error
}

func (f *fakeNode) RequestStop() error {
	f.calls = append(f.calls, "stop")
	return f.stopErr
}

func (f *fakeNode) RequestResync() error {
	f.calls = append(f.calls, "resync")
	return f.resyncErr
}

func TestRestart(t *testing.T) {
	errBoom := errors.New("boom")

	tests := []struct {
		name      string
		node      *fakeNode
		wantErr   bool
		wantCalls []string
		resyncErr bool
	}{
		{
			name:      "stop then resync",
			node:      &fakeNode{},
			wantCalls: []string{"stop", "resync"},
		},
		{
			name:      "stop failure skips resync",
			node:      &fakeNode{stopErr: errBoom},
			wantErr:   true,
			wantCalls: []string{"stop"},
		},
		{
			name:      "resync failure still counts as stopped",
			node:      &fakeNode{resyncErr: errBoom},
			wantCalls: []string{"stop", "resync"},
			resyncErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Restart(tc.node)

			assert.Equal(t, tc.wantCalls, tc.node.calls)
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, errBoom)
				assert.False(t, out.Stopped)
				return
			}
			require.NoError(t, err)
			assert.True(t, out.Stopped)
			if tc.resyncErr {
				assert.ErrorIs(t, out.ResyncErr, errBoom)
			} else {
				assert.NoError(t, out.ResyncErr)
			}
		})
	}
}
