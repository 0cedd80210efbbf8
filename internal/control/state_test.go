package control

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateDefaults(t *testing.T) {
	s := NewState()
	assert.False(t, s.Started())
	assert.False(t, s.Paused())
	assert.False(t, s.Cancelled())
	require.NoError(t, s.WaitResumed(t.Context()), "pause gate starts open")
}

func TestStateIdempotence(t *testing.T) {
	s := NewState()

	assert.True(t, s.OpenStart())
	assert.False(t, s.OpenStart())
	assert.True(t, s.Started())

	assert.True(t, s.Pause())
	assert.False(t, s.Pause())
	assert.True(t, s.Paused())

	assert.True(t, s.Resume())
	assert.False(t, s.Resume())
	assert.False(t, s.Paused())

	assert.True(t, s.Cancel())
	assert.False(t, s.Cancel())
	assert.True(t, s.Cancelled())
}

func TestPauseGateIsRepeatable(t *testing.T) {
	s := NewState()
	for range 3 {
		require.True(t, s.Pause())
		ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
		assert.ErrorIs(t, s.WaitResumed(ctx), context.DeadlineExceeded)
		cancel()
		require.True(t, s.Resume())
		require.NoError(t, s.WaitResumed(t.Context()))
	}
}

func TestCancelForcesGatesOpen(t *testing.T) {
	s := NewState()
	require.True(t, s.Pause())

	startErr := make(chan error, 1)
	resumeErr := make(chan error, 1)
	go func() { startErr <- s.WaitStart(t.Context()) }()
	go func() { resumeErr <- s.WaitResumed(t.Context()) }()

	require.True(t, s.Cancel())

	select {
	case err := <-startErr:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("start waiter not released by cancel")
	}
	select {
	case err := <-resumeErr:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("pause waiter not released by cancel")
	}
	assert.True(t, s.Started())
	assert.False(t, s.Paused())
	assert.False(t, s.Pause(), "a cancelled run cannot be paused")

	select {
	case <-s.CancelRequested():
	default:
		t.Fatal("cancel channel should be closed")
	}
}

func TestStateContextCancelledWithRun(t *testing.T) {
	s := NewState()
	ctx, cancel := s.Context(t.Context())
	defer cancel()

	s.Cancel()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("derived context not cancelled")
	}
}
