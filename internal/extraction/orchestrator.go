// Package extraction sets up, validates and drives a feature extraction run.
package extraction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/sift-go/internal/camera"
	"github.com/tphakala/sift-go/internal/conf"
	"github.com/tphakala/sift-go/internal/diagnostics"
	"github.com/tphakala/sift-go/internal/errors"
	"github.com/tphakala/sift-go/internal/imagelist"
	"github.com/tphakala/sift-go/internal/logger"
	"github.com/tphakala/sift-go/internal/observability/metrics"
	"github.com/tphakala/sift-go/internal/privacy"
)

// Orchestrator sequences a run: resolve the image list, validate the camera,
// select a backend and run it to completion.
type Orchestrator struct {
	factory Factory
	metrics *metrics.ExtractionMetrics
}

// NewOrchestrator returns an orchestrator constructing backends with factory.
// m may be nil.
func NewOrchestrator(factory Factory, m *metrics.ExtractionMetrics) *Orchestrator {
	return &Orchestrator{factory: factory, metrics: m}
}

// Run executes one extraction run. Validation failures are returned before
// any backend is constructed.
func (o *Orchestrator) Run(cfg RunConfig) error {
	runID := uuid.NewString()
	log := GetLogger().WithContext(logger.WithTraceID(context.Background(), runID))
	start := time.Now()
	cfg = cfg.Clone()
	backend := SelectBackend(cfg.UseGPU)

	log.Info("starting feature extraction",
		logger.String("database_path", privacy.RedactDSN(cfg.DatabasePath)),
		logger.String("image_path", cfg.ImagePath),
		logger.String("backend", backend.String()))
	log.Debug("system information", diagnostics.Snapshot().Fields()...)

	if cfg.ImageListPath != "" {
		list, err := imagelist.Read(cfg.ImageListPath, cfg.ImagePath)
		if err != nil {
			log.Error("failed to read image list", logger.String("path", cfg.ImageListPath), logger.Error(err))
			o.recordRun(backend, metrics.OutcomePrecondition, start)
			return err
		}
		cfg.ImageList = list
		log.Info("image list loaded", logger.Int("images", len(list)))
	}

	if cfg.paramsErr != nil {
		log.Error("failed to parse camera parameters", logger.Error(cfg.paramsErr))
		o.recordRun(backend, metrics.OutcomeValidationFailed, start)
		return cfg.paramsErr
	}
	if !camera.Validate(cfg.CameraModel, cfg.CameraParams) {
		err := errors.New(fmt.Errorf("%w: model %q with params %q",
			ErrInvalidCameraParams, cfg.CameraModel, conf.FormatCSV(cfg.CameraParams))).
			Component("extraction").
			Category(errors.CategoryValidation).
			Context("camera_model", cfg.CameraModel).
			Context("num_params", len(cfg.CameraParams)).
			Build()
		log.Error("invalid camera parameters", logger.Error(err))
		o.recordRun(backend, metrics.OutcomeValidationFailed, start)
		return err
	}

	cfg = cfg.withSharedFields()

	if o.metrics != nil {
		o.metrics.SetBackendActive(backend.String(), true)
		defer o.metrics.SetBackendActive(backend.String(), false)
	}

	var err error
	switch backend {
	case BackendGPU:
		err = NewGPUContext(cfg, o.factory, log).Run()
	default:
		err = NewCPURunner(cfg, o.factory).Run()
	}
	if err != nil {
		log.Error("feature extraction failed", logger.Error(err), logger.Duration("elapsed", time.Since(start)))
		o.recordRun(backend, metrics.OutcomeBackendFailed, start)
		return err
	}

	o.recordRun(backend, metrics.OutcomeSuccess, start)
	log.Info("feature extraction completed", logger.Duration("elapsed", time.Since(start)))
	log.Debug("memory usage", diagnostics.MemStats()...)
	return nil
}

func (o *Orchestrator) recordRun(backend Backend, outcome string, start time.Time) {
	if o.metrics == nil {
		return
	}
	o.metrics.RecordRun(backend.String(), outcome, time.Since(start))
}
