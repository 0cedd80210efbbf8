// Package control holds the run-control primitives shared between the orchestrator and the
// operator's control listener: a one-shot start gate, a repeatable pause gate and a monotone
// cancel flag.
//
// Every primitive is written only by the control side (listener, auto-start timer, signal
// handler) and read by the orchestrator and the command runner. Waits are channel based, so a
// waiter reacts as soon as a gate opens; cancelling opens both gates so nobody can stay blocked
// on a cancelled run.
package control

import (
	"context"
	"sync"
)

// State is the explicit shared run-control state for one run.
type State struct {
	mu sync.Mutex

	started bool
	startCh chan struct{} // closed once the start gate opens

	paused   bool
	resumeCh chan struct{} // closed while the pause gate is open

	cancelled bool
	cancelCh  chan struct{} // closed once cancel is requested
}

// NewState returns a state with the start gate closed, the pause gate open and no cancel.
func NewState() *State {
	resume := make(chan struct{})
	close(resume)
	return &State{
		startCh:  make(chan struct{}),
		resumeCh: resume,
		cancelCh: make(chan struct{}),
	}
}

// OpenStart opens the start gate. It reports false if the gate was already open.
func (s *State) OpenStart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openStartLocked()
}

func (s *State) openStartLocked() bool {
	if s.started {
		return false
	}
	s.started = true
	close(s.startCh)
	return true
}

// Started reports whether the start gate is open.
func (s *State) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Pause closes the pause gate. It reports false if the gate was already closed or the run is
// cancelled (a cancelled run keeps its gates open).
func (s *State) Pause() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused || s.cancelled {
		return false
	}
	s.paused = true
	s.resumeCh = make(chan struct{})
	return true
}

// Resume reopens the pause gate. It reports false if the gate was already open.
func (s *State) Resume() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resumeLocked()
}

func (s *State) resumeLocked() bool {
	if !s.paused {
		return false
	}
	s.paused = false
	close(s.resumeCh)
	return true
}

// Paused reports whether the pause gate is closed.
func (s *State) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Cancel sets the cancel flag and forces both gates open. It reports false if the run was
// already cancelled.
func (s *State) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled {
		return false
	}
	s.cancelled = true
	close(s.cancelCh)
	s.openStartLocked()
	s.resumeLocked()
	return true
}

// Cancelled reports whether cancel was requested.
func (s *State) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// CancelRequested is closed once Cancel has been called.
func (s *State) CancelRequested() <-chan struct{} {
	return s.cancelCh
}

// Resumed returns a channel that is closed while the pause gate is open. The channel
// reflects the gate at call time; callers re-fetch it after each wake-up.
func (s *State) Resumed() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resumeCh
}

// WaitStart blocks until the start gate opens or ctx is done.
func (s *State) WaitStart(ctx context.Context) error {
	select {
	case <-s.startCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitResumed blocks while the pause gate is closed. It returns nil once the gate is open
// (which includes cancellation) or ctx's error.
func (s *State) WaitResumed(ctx context.Context) error {
	select {
	case <-s.Resumed():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Context returns a child of parent that is cancelled when Cancel is called, so
// context-aware stage work stops with the run.
func (s *State) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-s.cancelCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
