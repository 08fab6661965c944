// Package runloop provides a cooperative run loop bound to a single OS thread.
//
// Some execution contexts may only be used from the thread that created them.
// The owner calls Run on that thread; other goroutines hand work to it with Do
// and end it with RequestStop:
//
//	loop := runloop.New()
//	go func() {
//	    defer loop.RequestStop()
//	    _ = loop.Do(func() { /* thread-affine work */ })
//	}()
//	_ = loop.Run() // returns after RequestStop
package runloop

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

type task struct {
	fn   func()
	done chan error
}

// Loop is a run loop. The zero value is not usable, use New.
type Loop struct {
	tasks    chan task
	stop     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
}

// New creates a loop that has not been started
func New() *Loop {
	return &Loop{
		tasks:   make(chan task),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Run locks the calling goroutine to its OS thread and executes posted tasks
// until RequestStop is called. A loop runs at most once.
func (l *Loop) Run() error {
	if !l.started.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(l.stopped)

	for {
		select {
		case t := <-l.tasks:
			t.done <- t.run()
		case <-l.stop:
			return nil
		}
	}
}

func (t task) run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("run loop task panicked: %v", r)
		}
	}()
	t.fn()
	return nil
}

// RequestStop asks the loop to return from Run after the task in progress, if
// any. It is safe to call from any goroutine and more than once, and may be
// called before Run.
func (l *Loop) RequestStop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Do runs fn on the loop thread and waits for it to finish. Do blocks until the
// loop is running. A panic in fn is returned as an error.
func (l *Loop) Do(fn func()) error {
	select {
	case <-l.stop:
		return ErrLoopStopped
	default:
	}

	t := task{fn: fn, done: make(chan error, 1)}
	select {
	case l.tasks <- t:
	case <-l.stop:
		return ErrLoopStopped
	}
	return <-t.done
}

// StopRequested is closed once RequestStop has been called
func (l *Loop) StopRequested() <-chan struct{} {
	return l.stop
}

// Stopped is closed when Run has returned
func (l *Loop) Stopped() <-chan struct{} {
	return l.stopped
}
