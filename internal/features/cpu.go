package features

import (
	"fmt"

	"github.com/tphakala/sift-go/internal/cpuspec"
	"github.com/tphakala/sift-go/internal/logger"
	"github.com/tphakala/sift-go/internal/observability/metrics"
)

// CPUExtractor extracts features on a pool of worker goroutines.
type CPUExtractor struct {
	reader  ReaderOptions
	sift    SiftOptions
	cpu     CPUOptions
	metrics *metrics.ExtractionMetrics
	state   *runState
}

// NewCPUExtractor returns an extractor that has not been started. m may be nil.
func NewCPUExtractor(reader ReaderOptions, sift SiftOptions, cpu CPUOptions, m *metrics.ExtractionMetrics) *CPUExtractor {
	return &CPUExtractor{
		reader:  reader,
		sift:    sift,
		cpu:     cpu,
		metrics: m,
		state:   newRunState(),
	}
}

// Start launches the extraction in the background. Calls after the first are ignored.
func (e *CPUExtractor) Start() {
	e.state.start(BackendLabelCPU, e.run)
}

// Wait blocks until the extraction finished and returns its fatal error, if any.
func (e *CPUExtractor) Wait() error {
	return e.state.wait()
}

// Summary returns the image counts of a finished run. Call it after Wait.
func (e *CPUExtractor) Summary() Summary {
	return e.state.summary
}

func (e *CPUExtractor) run() (Summary, error) {
	detector, err := NewDetector(e.sift)
	if err != nil {
		return Summary{}, backendError(err, BackendLabelCPU, "create_detector")
	}

	threads := cpuspec.ThreadCount(e.cpu.NumThreads)
	batch := max(1, e.cpu.BatchSizeFactor)
	if e.metrics != nil {
		e.metrics.SetWorkerThreads(threads)
	}

	p := &pipeline{
		backend: BackendLabelCPU,
		reader:  e.reader,
		workers: threads,
		queue:   threads * batch,
		detect: func(data *ImageData) (feats *Features, err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("detector panicked on %s: %v", data.Record.Name, r)
				}
			}()
			return detector.Extract(data.Gray), nil
		},
		metrics: e.metrics,
		log:     GetLogger().With(logger.String("backend", BackendLabelCPU)),
	}
	return p.run()
}
