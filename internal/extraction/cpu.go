package extraction

// CPURunner runs the CPU backend on the calling goroutine
type CPURunner struct {
	cfg     RunConfig
	factory Factory
}

// NewCPURunner returns a runner for one run
func NewCPURunner(cfg RunConfig, factory Factory) *CPURunner {
	return &CPURunner{cfg: cfg, factory: factory}
}

// Run starts the backend and blocks until it finished
func (r *CPURunner) Run() error {
	handle := r.factory.NewCPU(r.cfg.Clone())
	handle.Start()
	return handle.Wait()
}
