package features

import (
	"fmt"
	"sync/atomic"
)

// runState tracks a background extraction started once and waited on once
type runState struct {
	started atomic.Bool
	done    chan struct{}
	summary Summary
	err     error
}

func newRunState() *runState {
	return &runState{done: make(chan struct{})}
}

func (s *runState) start(backend string, run func() (Summary, error)) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(s.done)
		defer func() {
			if r := recover(); r != nil {
				s.err = backendError(fmt.Errorf("extraction panicked: %v", r), backend, "extract")
			}
		}()
		s.summary, s.err = run()
	}()
}

func (s *runState) wait() error {
	if !s.started.Load() {
		return ErrNotStarted
	}
	<-s.done
	return s.err
}
