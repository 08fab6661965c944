package features

import (
	"fmt"

	"github.com/tphakala/sift-go/internal/logger"
	"github.com/tphakala/sift-go/internal/observability/metrics"
	"github.com/tphakala/sift-go/internal/runloop"
)

// numGPUDevices is the number of devices of the software GPU context
const numGPUDevices = 1

// GPUExtractor extracts features with a device context that may only be used
// from the thread running loop. Detection is dispatched onto the loop, reading
// and writing happen on background goroutines.
type GPUExtractor struct {
	reader  ReaderOptions
	sift    SiftOptions
	gpu     GPUOptions
	loop    *runloop.Loop
	metrics *metrics.ExtractionMetrics
	state   *runState
}

// NewGPUExtractor returns an extractor that has not been started. The caller
// owns loop and must run it for the extraction to make progress. m may be nil.
func NewGPUExtractor(reader ReaderOptions, sift SiftOptions, gpu GPUOptions, loop *runloop.Loop, m *metrics.ExtractionMetrics) *GPUExtractor {
	return &GPUExtractor{
		reader:  reader,
		sift:    sift,
		gpu:     gpu,
		loop:    loop,
		metrics: m,
		state:   newRunState(),
	}
}

// Start launches the extraction in the background. Calls after the first are ignored.
func (e *GPUExtractor) Start() {
	e.state.start(BackendLabelGPU, e.run)
}

// Wait blocks until the extraction finished and returns its fatal error, if any.
func (e *GPUExtractor) Wait() error {
	return e.state.wait()
}

// Summary returns the image counts of a finished run. Call it after Wait.
func (e *GPUExtractor) Summary() Summary {
	return e.state.summary
}

// deviceContext is created and used on the loop thread only
type deviceContext struct {
	index    int
	detector *Detector
}

func (e *GPUExtractor) run() (Summary, error) {
	log := GetLogger().With(logger.String("backend", BackendLabelGPU))

	if e.gpu.Index < -1 || e.gpu.Index >= numGPUDevices {
		return Summary{}, backendError(fmt.Errorf("%w: index %d", ErrDeviceUnavailable, e.gpu.Index), BackendLabelGPU, "create_context")
	}

	var dev *deviceContext
	var ctxErr error
	if err := e.loop.Do(func() {
		detector, err := NewDetector(e.sift)
		if err != nil {
			ctxErr = err
			return
		}
		dev = &deviceContext{index: max(0, e.gpu.Index), detector: detector}
	}); err != nil {
		return Summary{}, backendError(err, BackendLabelGPU, "create_context")
	}
	if ctxErr != nil {
		return Summary{}, backendError(ctxErr, BackendLabelGPU, "create_context")
	}
	log.Info("gpu context created", logger.Int("device", dev.index))

	if e.metrics != nil {
		e.metrics.SetWorkerThreads(1)
	}

	p := &pipeline{
		backend: BackendLabelGPU,
		reader:  e.reader,
		workers: 1,
		queue:   2,
		detect: func(data *ImageData) (*Features, error) {
			var feats *Features
			if err := e.loop.Do(func() { feats = dev.detector.Extract(data.Gray) }); err != nil {
				return nil, fmt.Errorf("gpu detection of %s: %w", data.Record.Name, err)
			}
			return feats, nil
		},
		metrics: e.metrics,
		log:     log,
	}
	return p.run()
}
