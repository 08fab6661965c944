package extraction

import (
	"github.com/tphakala/sift-go/internal/features"
	"github.com/tphakala/sift-go/internal/observability/metrics"
	"github.com/tphakala/sift-go/internal/runloop"
)

// Backend is one of the two mutually exclusive extraction backends
type Backend int

const (
	BackendCPU Backend = iota
	BackendGPU
)

func (b Backend) String() string {
	if b == BackendGPU {
		return features.BackendLabelGPU
	}
	return features.BackendLabelCPU
}

// SelectBackend picks the backend of a run. It is defined for every input.
func SelectBackend(useGPU bool) Backend {
	if useGPU {
		return BackendGPU
	}
	return BackendCPU
}

// Extractor is a running backend instance. Start is called once, then Wait
// once; Wait returns after the backend finished.
type Extractor interface {
	Start()
	Wait() error
}

// Factory constructs backend instances from a validated configuration.
type Factory interface {
	// NewGPU returns a backend whose device context lives on loop's thread
	NewGPU(cfg RunConfig, loop *runloop.Loop) Extractor
	NewCPU(cfg RunConfig) Extractor
}

// FeatureFactory builds the extractors of the features package.
type FeatureFactory struct {
	Metrics *metrics.ExtractionMetrics // optional
}

// NewGPU implements Factory.
func (f FeatureFactory) NewGPU(cfg RunConfig, loop *runloop.Loop) Extractor {
	return features.NewGPUExtractor(cfg.Reader, cfg.Sift, cfg.GPU, loop, f.Metrics)
}

// NewCPU implements Factory.
func (f FeatureFactory) NewCPU(cfg RunConfig) Extractor {
	return features.NewCPUExtractor(cfg.Reader, cfg.Sift, cfg.CPU, f.Metrics)
}
