package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/sift-go/internal/errors"
)

// resetViper isolates tests from each other; viper state is process global.
func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	resetViper(t)
	t.Chdir(t.TempDir())

	settings, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultCameraModel, settings.Reader.CameraModel)
	assert.Empty(t, settings.Reader.CameraParams)
	assert.InDelta(t, 1.2, settings.Reader.DefaultFocalLengthFactor, 1e-9)
	assert.Equal(t, 3200, settings.Reader.MaxImageSize)
	assert.True(t, settings.GPU.Enabled)
	assert.Equal(t, -1, settings.GPU.Index)
	assert.Equal(t, -1, settings.CPU.NumThreads)
	assert.Equal(t, 3, settings.CPU.BatchSizeFactor)
	assert.Equal(t, 8192, settings.Sift.MaxNumFeatures)
	assert.InDelta(t, 0.02/3, settings.Sift.PeakThreshold, 1e-12)
	assert.Equal(t, NormalizationL1Root, settings.Sift.Normalization)
	assert.Empty(t, settings.Image.ListPath)
	require.NotNil(t, settings.Logging.Console)
	assert.True(t, settings.Logging.Console.Enabled)
	require.NotNil(t, settings.Logging.FileOutput)
	assert.False(t, settings.Logging.FileOutput.Enabled)

	assert.Same(t, settings, GetSettings())
}

func TestLoadConfigFileAndEnvPrecedence(t *testing.T) {
	resetViper(t)

	path := writeConfig(t, `
database:
  path: /data/db.sqlite
image:
  path: /data/images
reader:
  camera_model: PINHOLE
  camera_params: "1000,1000,640,480"
sift:
  max_num_features: 2048
gpu:
  enabled: false
`)
	t.Setenv("SIFTGO_SIFT_MAX_NUM_FEATURES", "1024")
	t.Setenv("SIFTGO_CPU_NUM_THREADS", "6")

	settings, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/db.sqlite", settings.Database.Path)
	assert.Equal(t, "/data/images", settings.Image.Path)
	assert.Equal(t, "PINHOLE", settings.Reader.CameraModel)
	assert.Equal(t, "1000,1000,640,480", settings.Reader.CameraParams)
	assert.False(t, settings.GPU.Enabled)
	assert.Equal(t, 1024, settings.Sift.MaxNumFeatures, "environment overrides the config file")
	assert.Equal(t, 6, settings.CPU.NumThreads)
}

func TestLoadFlagOverridesEnv(t *testing.T) {
	resetViper(t)
	t.Chdir(t.TempDir())
	t.Setenv("SIFTGO_GPU_ENABLED", "true")

	viper.Set("gpu.enabled", false)

	settings, err := Load("")
	require.NoError(t, err)
	assert.False(t, settings.GPU.Enabled)
}

func TestLoadMissingExplicitConfigFile(t *testing.T) {
	resetViper(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	resetViper(t)

	path := writeConfig(t, `
sift:
  normalization: L3
  max_num_features: 0
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 1, "both problems belong to the sift section")
	assert.Contains(t, ve.Error(), "sift.normalization")
	assert.Contains(t, ve.Error(), "sift.max_num_features")
}

func TestSettingsYAML(t *testing.T) {
	resetViper(t)
	t.Chdir(t.TempDir())

	settings, err := Load("")
	require.NoError(t, err)

	data, err := settings.YAML()
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "camera_model: SIMPLE_RADIAL")
	assert.Contains(t, out, "normalization: L1_ROOT")
	assert.Contains(t, out, "single_camera_per_folder: false")
}
