// Package metrics provides custom Prometheus metrics for sift-go.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tphakala/sift-go/internal/errors"
)

// Run outcomes recorded by RecordRun.
const (
	OutcomeSuccess          = "success"
	OutcomeValidationFailed = "validation_failed"
	OutcomePrecondition     = "precondition_failed"
	OutcomeBackendFailed    = "backend_failed"
)

// Image statuses recorded by RecordImage.
const (
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// ExtractionMetrics contains all Prometheus metrics related to feature extraction runs.
type ExtractionMetrics struct {
	ImagesTotal      *prometheus.CounterVec
	FeaturesPerImage *prometheus.HistogramVec
	ImageDuration    *prometheus.HistogramVec
	KeypointsTotal   *prometheus.CounterVec
	BackendErrors    *prometheus.CounterVec

	// Run level
	RunsTotal     *prometheus.CounterVec
	RunDuration   *prometheus.HistogramVec
	ActiveBackend *prometheus.GaugeVec
	WorkerThreads prometheus.Gauge
}

// NewExtractionMetrics creates a new instance of ExtractionMetrics.
// It returns an error if metric registration fails.
func NewExtractionMetrics(registry *prometheus.Registry) (*ExtractionMetrics, error) {
	m := &ExtractionMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register extraction metrics: %w", err)
	}
	return m, nil
}

func (m *ExtractionMetrics) initMetrics() {
	m.ImagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "siftgo_images_total",
			Help: "Total number of images handled by an extraction backend, partitioned by status.",
		},
		[]string{"backend", "status"},
	)

	m.FeaturesPerImage = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "siftgo_features_per_image",
			Help:    "Number of features extracted from a single image",
			Buckets: prometheus.ExponentialBuckets(16, 2, 10), // 16 to 8192
		},
		[]string{"backend"},
	)

	m.ImageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "siftgo_image_extraction_duration_seconds",
			Help:    "Time taken to read, detect and store the features of one image",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		},
		[]string{"backend"},
	)

	m.KeypointsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "siftgo_keypoints_total",
			Help: "Total number of keypoints written to the database",
		},
		[]string{"backend"},
	)

	m.BackendErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "siftgo_backend_errors_total",
			Help: "Total number of backend errors partitioned by error category",
		},
		[]string{"backend", "category"},
	)

	m.RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "siftgo_runs_total",
			Help: "Total number of extraction runs by outcome",
		},
		[]string{"backend", "outcome"},
	)

	m.RunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "siftgo_run_duration_seconds",
			Help:    "Wall time of a complete extraction run",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		},
		[]string{"backend"},
	)

	m.ActiveBackend = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "siftgo_active_backend",
			Help: "Whether a backend is currently running (1) or not (0)",
		},
		[]string{"backend"},
	)

	m.WorkerThreads = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "siftgo_worker_threads",
			Help: "Number of extraction worker threads of the current run",
		},
	)
}

// RecordImage records the outcome of one image. Feature count and duration
// are only observed for processed images.
func (m *ExtractionMetrics) RecordImage(backend, status string, numFeatures int, duration time.Duration) {
	m.ImagesTotal.WithLabelValues(backend, status).Inc()
	if status != StatusProcessed {
		return
	}
	m.FeaturesPerImage.WithLabelValues(backend).Observe(float64(numFeatures))
	m.ImageDuration.WithLabelValues(backend).Observe(duration.Seconds())
	m.KeypointsTotal.WithLabelValues(backend).Add(float64(numFeatures))
}

// RecordBackendError counts a backend error under its error category.
func (m *ExtractionMetrics) RecordBackendError(backend string, err error) {
	if err == nil {
		return
	}
	m.BackendErrors.WithLabelValues(backend, categorizeError(err)).Inc()
}

// RecordRun records the outcome and duration of a run.
func (m *ExtractionMetrics) RecordRun(backend, outcome string, duration time.Duration) {
	m.RunsTotal.WithLabelValues(backend, outcome).Inc()
	m.RunDuration.WithLabelValues(backend).Observe(duration.Seconds())
}

// SetBackendActive flags backend as running or idle.
func (m *ExtractionMetrics) SetBackendActive(backend string, active bool) {
	v := 0.0
	if active {
		v = 1
	}
	m.ActiveBackend.WithLabelValues(backend).Set(v)
}

// SetWorkerThreads records the resolved worker thread count.
func (m *ExtractionMetrics) SetWorkerThreads(n int) {
	m.WorkerThreads.Set(float64(n))
}

func categorizeError(err error) string {
	if err == nil {
		return "none"
	}
	return string(errors.CategoryOf(err))
}

// Describe implements the prometheus.Collector interface.
func (m *ExtractionMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.ImagesTotal.Describe(ch)
	m.FeaturesPerImage.Describe(ch)
	m.ImageDuration.Describe(ch)
	m.KeypointsTotal.Describe(ch)
	m.BackendErrors.Describe(ch)
	m.RunsTotal.Describe(ch)
	m.RunDuration.Describe(ch)
	m.ActiveBackend.Describe(ch)
	ch <- m.WorkerThreads.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *ExtractionMetrics) Collect(ch chan<- prometheus.Metric) {
	m.ImagesTotal.Collect(ch)
	m.FeaturesPerImage.Collect(ch)
	m.ImageDuration.Collect(ch)
	m.KeypointsTotal.Collect(ch)
	m.BackendErrors.Collect(ch)
	m.RunsTotal.Collect(ch)
	m.RunDuration.Collect(ch)
	m.ActiveBackend.Collect(ch)
	m.WorkerThreads.Collect(ch)
}
