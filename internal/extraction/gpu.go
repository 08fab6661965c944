package extraction

import (
	"fmt"
	"sync"

	"github.com/tphakala/sift-go/internal/errors"
	"github.com/tphakala/sift-go/internal/logger"
	"github.com/tphakala/sift-go/internal/runloop"
)

// GPUState is a step of the GPU execution lifecycle
type GPUState int

const (
	GPUCreated GPUState = iota
	GPUStarted
	GPUWaitingOnBackend
	GPULoopTerminating
	GPUJoined
)

func (s GPUState) String() string {
	switch s {
	case GPUCreated:
		return "created"
	case GPUStarted:
		return "started"
	case GPUWaitingOnBackend:
		return "waiting_on_backend"
	case GPULoopTerminating:
		return "loop_terminating"
	case GPUJoined:
		return "joined"
	default:
		return fmt.Sprintf("GPUState(%d)", int(s))
	}
}

// GPUContext runs the GPU backend next to a run loop owned by the calling
// goroutine. A single worker goroutine starts the backend, waits for it and
// then stops the loop; the owner joins the worker once the loop returned.
type GPUContext struct {
	cfg     RunConfig
	factory Factory
	log     logger.Logger

	mu      sync.Mutex
	history []GPUState
}

// NewGPUContext returns a context for one run
func NewGPUContext(cfg RunConfig, factory Factory, log logger.Logger) *GPUContext {
	if log == nil {
		log = GetLogger()
	}
	return &GPUContext{cfg: cfg, factory: factory, log: log}
}

func (g *GPUContext) setState(s GPUState) {
	g.mu.Lock()
	g.history = append(g.history, s)
	g.mu.Unlock()
	g.log.Trace("gpu context state", logger.String("state", s.String()))
}

// State returns the most recent state
func (g *GPUContext) State() GPUState {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.history) == 0 {
		return GPUCreated
	}
	return g.history[len(g.history)-1]
}

// History returns every state the context went through, in order
func (g *GPUContext) History() []GPUState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]GPUState(nil), g.history...)
}

// Run blocks until the backend finished, the loop returned and the worker was
// joined. It must be called at most once. The backend error, if any, is
// returned after teardown.
func (g *GPUContext) Run() error {
	loop := runloop.New()
	handle := g.factory.NewGPU(g.cfg.Clone(), loop)
	g.setState(GPUCreated)

	var backendErr error
	var worker sync.WaitGroup
	worker.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				backendErr = errors.New(fmt.Errorf("%w: %v", ErrBackendPanic, r)).
					Component("extraction").
					Category(errors.CategoryBackend).
					Context("backend", BackendGPU.String()).
					Build()
			}
			g.setState(GPULoopTerminating)
			loop.RequestStop()
		}()

		handle.Start()
		g.setState(GPUStarted)
		g.setState(GPUWaitingOnBackend)
		backendErr = handle.Wait()
	})

	loopErr := loop.Run()
	worker.Wait()
	g.setState(GPUJoined)

	if loopErr != nil {
		return errors.New(loopErr).
			Component("extraction").
			Category(errors.CategoryState).
			Build()
	}
	return backendErr
}
