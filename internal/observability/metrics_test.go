package observability

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/sift-go/internal/observability/metrics"
)

// TestNewMetricsConcurrency verifies that NewMetrics can be called concurrently
// because every instance owns its registry.
func TestNewMetricsConcurrency(t *testing.T) {
	const numGoroutines = 20

	var wg sync.WaitGroup
	for range numGoroutines {
		wg.Go(func() {
			m, err := NewMetrics()
			if err != nil {
				t.Errorf("NewMetrics failed: %v", err)
				return
			}
			if m.Extraction == nil {
				t.Error("extraction metrics not initialized")
			}
		})
	}
	wg.Wait()
}

func TestWriteTextfile(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)

	m.Extraction.RecordImage("cpu", metrics.StatusProcessed, 42, 10*time.Millisecond)
	m.Extraction.RecordRun("cpu", metrics.OutcomeSuccess, time.Second)

	path := filepath.Join(t.TempDir(), "nested", "sift-go.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `siftgo_images_total{backend="cpu",status="processed"} 1`)
	assert.Contains(t, out, `siftgo_runs_total{backend="cpu",outcome="success"} 1`)
	assert.Contains(t, out, "go_goroutines")
}

func TestWriteTextfileEmptyPathIsNoop(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)
	assert.NoError(t, m.WriteTextfile(""))
}

func TestRegistryGathers(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
