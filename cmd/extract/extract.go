package extract

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tphakala/sift-go/internal/conf"
	"github.com/tphakala/sift-go/internal/extraction"
	"github.com/tphakala/sift-go/internal/logger"
	"github.com/tphakala/sift-go/internal/observability"
)

// flagKeys maps each command line flag to the settings key it overrides
var flagKeys = map[string]string{
	"database_path":               "database.path",
	"database_password_file":      "database.password_file",
	"image_path":                  "image.path",
	"image_list_path":             "image.list_path",
	"camera_model":                "reader.camera_model",
	"camera_params":               "reader.camera_params",
	"single_camera":               "reader.single_camera",
	"single_camera_per_folder":    "reader.single_camera_per_folder",
	"default_focal_length_factor": "reader.default_focal_length_factor",
	"max_image_size":              "reader.max_image_size",
	"use_gpu":                     "gpu.enabled",
	"gpu_index":                   "gpu.index",
	"num_threads":                 "cpu.num_threads",
	"batch_size_factor":           "cpu.batch_size_factor",
	"max_num_features":            "sift.max_num_features",
	"first_octave":                "sift.first_octave",
	"num_octaves":                 "sift.num_octaves",
	"octave_resolution":           "sift.octave_resolution",
	"peak_threshold":              "sift.peak_threshold",
	"edge_threshold":              "sift.edge_threshold",
	"max_num_orientations":        "sift.max_num_orientations",
	"upright":                     "sift.upright",
	"normalization":               "sift.normalization",
	"metrics_path":                "metrics.path",
}

// Command creates the extract command, which runs one feature extraction.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "extract",
		Aliases: []string{"feature_extractor"},
		Short:   "Extract SIFT features from a directory of images",
		Long: `Detect keypoints and descriptors in every image under --image_path, or in
the images named by --image_list_path, and store them in the database at
--database_path. Images that already have features are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(conf.GetSettings())
		},
	}

	// Set up flags specific to the 'extract' command
	setupFlags(cmd)

	return cmd
}

func run(settings *conf.Settings) error {
	if err := conf.ValidateRunPaths(settings); err != nil {
		return err
	}
	cfg, err := extraction.NewRunConfig(settings)
	if err != nil {
		return err
	}

	m, err := observability.NewMetrics()
	if err != nil {
		return err
	}
	orchestrator := extraction.NewOrchestrator(extraction.FeatureFactory{Metrics: m.Extraction}, m.Extraction)
	runErr := orchestrator.Run(cfg)

	// the textfile is written for failed runs too, the outcome counter tells them apart
	if err := m.WriteTextfile(settings.Metrics.Path); err != nil {
		if runErr != nil {
			extraction.GetLogger().Warn("failed to write metrics", logger.Error(err))
			return runErr
		}
		return err
	}
	return runErr
}

// setupFlags configures flags specific to the extract command and binds them to
// their settings keys, so a flag given on the command line beats the config file.
func setupFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("database_path", "", "Path of the SQLite feature database or a mysql:// DSN")
	f.String("database_password_file", "", "File holding the MySQL password, e.g. a Docker secret")
	f.String("image_path", "", "Root directory of the input images")
	f.String("image_list_path", "", "File listing the images to process, one relative path per line")

	f.String("camera_model", conf.DefaultCameraModel, "Camera model of new cameras, e.g. SIMPLE_RADIAL or OPENCV")
	f.String("camera_params", "", "Comma-separated camera parameters, empty to estimate from the image size")
	f.Bool("single_camera", conf.DefaultSingleCamera, "Share one camera between all images")
	f.Bool("single_camera_per_folder", conf.DefaultSingleCameraPerFolder, "Share one camera between the images of a folder")
	f.Float64("default_focal_length_factor", conf.DefaultFocalLengthFactor, "Focal length estimate as a factor of max(width, height)")
	f.Int("max_image_size", conf.DefaultMaxImageSize, "Downscale images whose larger side exceeds this")

	f.Bool("use_gpu", conf.DefaultUseGPU, "Extract on the GPU backend")
	f.Int("gpu_index", conf.DefaultGPUIndex, "GPU device index, -1 for the default device")
	f.Int("num_threads", conf.DefaultNumThreads, "CPU worker threads, -1 to detect")
	f.Int("batch_size_factor", conf.DefaultBatchSizeFactor, "Images queued per CPU worker")

	f.Int("max_num_features", conf.DefaultMaxNumFeatures, "Maximum number of features per image")
	f.Int("first_octave", conf.DefaultFirstOctave, "First octave of the scale space, -1 upsamples the image")
	f.Int("num_octaves", conf.DefaultNumOctaves, "Number of octaves")
	f.Int("octave_resolution", conf.DefaultOctaveResolution, "Scale levels per octave")
	f.Float64("peak_threshold", conf.DefaultPeakThreshold, "Minimum difference-of-Gaussian response")
	f.Float64("edge_threshold", conf.DefaultEdgeThreshold, "Maximum principal curvature ratio")
	f.Int("max_num_orientations", conf.DefaultMaxNumOrientations, "Orientations assigned per keypoint")
	f.Bool("upright", conf.DefaultUpright, "Skip orientation estimation")
	f.String("normalization", conf.DefaultNormalization, "Descriptor normalization: L1_ROOT or L2")

	f.String("metrics_path", "", "Write prometheus metrics to this textfile after the run")

	bindFlags(f)
}

func bindFlags(f *pflag.FlagSet) {
	for name, key := range flagKeys {
		if err := viper.BindPFlag(key, f.Lookup(name)); err != nil {
			extraction.GetLogger().Error("error binding flag", logger.String("flag", name), logger.Error(err))
		}
	}
}
