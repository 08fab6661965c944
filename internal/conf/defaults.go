// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"

	"github.com/tphakala/sift-go/internal/logger"
)

// Defaults shared with the command line flag definitions.
const (
	DefaultCameraModel           = "SIMPLE_RADIAL"
	DefaultFocalLengthFactor     = 1.2
	DefaultMaxImageSize          = 3200
	DefaultUseGPU                = true
	DefaultGPUIndex              = -1
	DefaultNumThreads            = -1
	DefaultBatchSizeFactor       = 3
	DefaultMaxNumFeatures        = 8192
	DefaultFirstOctave           = -1
	DefaultNumOctaves            = 4
	DefaultOctaveResolution      = 3
	DefaultPeakThreshold         = 0.02 / DefaultOctaveResolution
	DefaultEdgeThreshold         = 10.0
	DefaultMaxNumOrientations    = 2
	DefaultNormalization         = NormalizationL1Root
	NormalizationL1Root          = "L1_ROOT"
	NormalizationL2              = "L2"
	DefaultLoggingTimezone       = "Local"
	DefaultFileOutputEnabled     = false
	DefaultSingleCamera          = false
	DefaultSingleCameraPerFolder = false
	DefaultUpright               = false
	DefaultDebug                 = false
)

// SetDefaults registers the default value of every setting with viper.
// Keys without a default are invisible to environment overrides.
func SetDefaults() {
	viper.SetDefault("debug", DefaultDebug)

	viper.SetDefault("database.path", "")
	viper.SetDefault("database.password_file", "")

	viper.SetDefault("image.path", "")
	viper.SetDefault("image.list_path", "")

	viper.SetDefault("reader.camera_model", DefaultCameraModel)
	viper.SetDefault("reader.camera_params", "")
	viper.SetDefault("reader.single_camera", DefaultSingleCamera)
	viper.SetDefault("reader.single_camera_per_folder", DefaultSingleCameraPerFolder)
	viper.SetDefault("reader.default_focal_length_factor", DefaultFocalLengthFactor)
	viper.SetDefault("reader.max_image_size", DefaultMaxImageSize)

	viper.SetDefault("sift.max_num_features", DefaultMaxNumFeatures)
	viper.SetDefault("sift.first_octave", DefaultFirstOctave)
	viper.SetDefault("sift.num_octaves", DefaultNumOctaves)
	viper.SetDefault("sift.octave_resolution", DefaultOctaveResolution)
	viper.SetDefault("sift.peak_threshold", DefaultPeakThreshold)
	viper.SetDefault("sift.edge_threshold", DefaultEdgeThreshold)
	viper.SetDefault("sift.max_num_orientations", DefaultMaxNumOrientations)
	viper.SetDefault("sift.upright", DefaultUpright)
	viper.SetDefault("sift.normalization", DefaultNormalization)

	viper.SetDefault("gpu.enabled", DefaultUseGPU)
	viper.SetDefault("gpu.index", DefaultGPUIndex)

	viper.SetDefault("cpu.num_threads", DefaultNumThreads)
	viper.SetDefault("cpu.batch_size_factor", DefaultBatchSizeFactor)

	viper.SetDefault("metrics.path", "")

	viper.SetDefault("logging.default_level", logger.DefaultLogLevel)
	viper.SetDefault("logging.timezone", DefaultLoggingTimezone)
	viper.SetDefault("logging.console.enabled", logger.DefaultConsoleEnabled)
	viper.SetDefault("logging.console.level", logger.DefaultLogLevel)
	viper.SetDefault("logging.console.color", logger.DefaultColorMode)
	viper.SetDefault("logging.file_output.enabled", DefaultFileOutputEnabled)
	viper.SetDefault("logging.file_output.path", logger.DefaultLogPath)
	viper.SetDefault("logging.file_output.level", logger.DefaultLogLevel)
}
