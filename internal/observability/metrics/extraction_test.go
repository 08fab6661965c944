package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/sift-go/internal/errors"
)

func newTestMetrics(t *testing.T) (*ExtractionMetrics, *prometheus.Registry) {
	t.Helper()
	registry := prometheus.NewRegistry()
	m, err := NewExtractionMetrics(registry)
	require.NoError(t, err)
	return m, registry
}

func TestRecordImage(t *testing.T) {
	t.Parallel()
	m, _ := newTestMetrics(t)

	testCases := []struct {
		name     string
		backend  string
		status   string
		features int
	}{
		{"processed on cpu", "cpu", StatusProcessed, 100},
		{"processed on gpu", "gpu", StatusProcessed, 2048},
		{"skipped", "cpu", StatusSkipped, 0},
		{"failed", "gpu", StatusFailed, 0},
	}

	for _, tc := range testCases {
		m.RecordImage(tc.backend, tc.status, tc.features, 5*time.Millisecond)
		assert.InDelta(t, 1, testutil.ToFloat64(m.ImagesTotal.WithLabelValues(tc.backend, tc.status)), 0, tc.name)
	}

	assert.InDelta(t, 100, testutil.ToFloat64(m.KeypointsTotal.WithLabelValues("cpu")), 0)
	assert.InDelta(t, 2048, testutil.ToFloat64(m.KeypointsTotal.WithLabelValues("gpu")), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(m.FeaturesPerImage), "skipped and failed images are not observed")
}

func TestRecordRunAndBackendState(t *testing.T) {
	t.Parallel()
	m, registry := newTestMetrics(t)

	m.SetBackendActive("gpu", true)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ActiveBackend.WithLabelValues("gpu")), 0)
	m.SetBackendActive("gpu", false)
	assert.InDelta(t, 0, testutil.ToFloat64(m.ActiveBackend.WithLabelValues("gpu")), 0)

	m.SetWorkerThreads(8)
	assert.InDelta(t, 8, testutil.ToFloat64(m.WorkerThreads), 0)

	m.RecordRun("gpu", OutcomeSuccess, 2*time.Second)
	m.RecordRun("gpu", OutcomeSuccess, 3*time.Second)
	m.RecordRun("cpu", OutcomeBackendFailed, time.Second)
	assert.InDelta(t, 2, testutil.ToFloat64(m.RunsTotal.WithLabelValues("gpu", OutcomeSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RunsTotal.WithLabelValues("cpu", OutcomeBackendFailed)), 0)

	families, err := registry.Gather()
	require.NoError(t, err)
	var runDuration *dto.MetricFamily
	for _, mf := range families {
		if mf.GetName() == "siftgo_run_duration_seconds" {
			runDuration = mf
		}
	}
	require.NotNil(t, runDuration)
	var samples uint64
	for _, metric := range runDuration.GetMetric() {
		samples += metric.GetHistogram().GetSampleCount()
	}
	assert.Equal(t, uint64(3), samples)
}

func TestRecordBackendError(t *testing.T) {
	t.Parallel()
	m, _ := newTestMetrics(t)

	m.RecordBackendError("cpu", nil)
	assert.Equal(t, 0, testutil.CollectAndCount(m.BackendErrors))

	dbErr := errors.Newf("disk full").Category(errors.CategoryDatabase).Build()
	m.RecordBackendError("cpu", dbErr)
	m.RecordBackendError("cpu", errors.NewStd("plain"))

	assert.InDelta(t, 1, testutil.ToFloat64(m.BackendErrors.WithLabelValues("cpu", string(errors.CategoryDatabase))), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.BackendErrors.WithLabelValues("cpu", string(errors.CategoryGeneric))), 0)
}

func TestDuplicateRegistrationFails(t *testing.T) {
	t.Parallel()
	registry := prometheus.NewRegistry()
	_, err := NewExtractionMetrics(registry)
	require.NoError(t, err)

	_, err = NewExtractionMetrics(registry)
	assert.Error(t, err)
}
