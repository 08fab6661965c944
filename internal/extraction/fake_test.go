package extraction

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tphakala/sift-go/internal/runloop"
)

// fakeExtractor records its lifecycle and returns a canned result from Wait
type fakeExtractor struct {
	t       *testing.T
	loop    *runloop.Loop // nil for CPU
	delay   time.Duration
	err     error
	panicIn string // "start" or "wait"

	started  atomic.Bool
	waited   atomic.Bool
	finished atomic.Bool

	// loopAliveAtFinish is set when the loop still served a task at the end of Wait
	loopAliveAtFinish atomic.Bool
}

func (f *fakeExtractor) Start() {
	if f.panicIn == "start" {
		panic("start failed")
	}
	f.started.Store(true)
}

func (f *fakeExtractor) Wait() error {
	f.waited.Store(true)
	if f.panicIn == "wait" {
		panic("wait failed")
	}
	time.Sleep(f.delay)
	if f.loop != nil {
		select {
		case <-f.loop.Stopped():
			f.t.Error("run loop exited before the backend completed")
		default:
		}
		if err := f.loop.Do(func() {}); err == nil {
			f.loopAliveAtFinish.Store(true)
		}
	}
	f.finished.Store(true)
	return f.err
}

// fakeFactory hands out fakeExtractors and records the configurations it saw
type fakeFactory struct {
	t     *testing.T
	delay time.Duration
	err   error
	panic string

	mu       sync.Mutex
	gpuCalls int
	cpuCalls int
	configs  []RunConfig
	handles  []*fakeExtractor
}

func (f *fakeFactory) newHandle(cfg RunConfig, loop *runloop.Loop) *fakeExtractor {
	h := &fakeExtractor{t: f.t, loop: loop, delay: f.delay, err: f.err, panicIn: f.panic}
	f.configs = append(f.configs, cfg)
	f.handles = append(f.handles, h)
	return h
}

func (f *fakeFactory) NewGPU(cfg RunConfig, loop *runloop.Loop) Extractor {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gpuCalls++
	return f.newHandle(cfg, loop)
}

func (f *fakeFactory) NewCPU(cfg RunConfig) Extractor {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cpuCalls++
	return f.newHandle(cfg, nil)
}

func (f *fakeFactory) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gpuCalls + f.cpuCalls
}
