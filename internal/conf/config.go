// Package conf provides configuration management for sift-go.
//
// Settings are resolved with viper in increasing precedence: built-in defaults,
// an optional YAML config file, SIFTGO_ environment variables and command line
// flags bound by the cmd packages.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/sift-go/internal/errors"
	"github.com/tphakala/sift-go/internal/logger"
)

// EnvPrefix is the prefix of environment variables overriding settings,
// e.g. SIFTGO_SIFT_MAX_NUM_FEATURES.
const EnvPrefix = "SIFTGO"

// DatabaseSettings locates the feature database
type DatabaseSettings struct {
	Path         string `yaml:"path" mapstructure:"path"`                   // SQLite file path or mysql:// DSN, ${VAR} references expanded
	PasswordFile string `yaml:"password_file" mapstructure:"password_file"` // optional file holding the MySQL password
}

// ImageSettings locates the input images
type ImageSettings struct {
	Path     string `yaml:"path" mapstructure:"path"`           // root directory of the images
	ListPath string `yaml:"list_path" mapstructure:"list_path"` // optional file restricting the run to listed images
}

// ReaderSettings controls how images are read and which camera they get
type ReaderSettings struct {
	CameraModel              string  `yaml:"camera_model" mapstructure:"camera_model"`
	CameraParams             string  `yaml:"camera_params" mapstructure:"camera_params"` // comma-separated, empty for defaults
	SingleCamera             bool    `yaml:"single_camera" mapstructure:"single_camera"`
	SingleCameraPerFolder    bool    `yaml:"single_camera_per_folder" mapstructure:"single_camera_per_folder"`
	DefaultFocalLengthFactor float64 `yaml:"default_focal_length_factor" mapstructure:"default_focal_length_factor"`
	MaxImageSize             int     `yaml:"max_image_size" mapstructure:"max_image_size"`
}

// SiftSettings tunes keypoint detection and description
type SiftSettings struct {
	MaxNumFeatures     int     `yaml:"max_num_features" mapstructure:"max_num_features"`
	FirstOctave        int     `yaml:"first_octave" mapstructure:"first_octave"`
	NumOctaves         int     `yaml:"num_octaves" mapstructure:"num_octaves"`
	OctaveResolution   int     `yaml:"octave_resolution" mapstructure:"octave_resolution"`
	PeakThreshold      float64 `yaml:"peak_threshold" mapstructure:"peak_threshold"`
	EdgeThreshold      float64 `yaml:"edge_threshold" mapstructure:"edge_threshold"`
	MaxNumOrientations int     `yaml:"max_num_orientations" mapstructure:"max_num_orientations"`
	Upright            bool    `yaml:"upright" mapstructure:"upright"`
	Normalization      string  `yaml:"normalization" mapstructure:"normalization"` // L1_ROOT or L2
}

// GPUSettings selects the thread-affine backend
type GPUSettings struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	Index   int  `yaml:"index" mapstructure:"index"` // -1 picks the default device
}

// CPUSettings tunes the worker pool backend
type CPUSettings struct {
	NumThreads      int `yaml:"num_threads" mapstructure:"num_threads"` // <= 0 detects the optimal count
	BatchSizeFactor int `yaml:"batch_size_factor" mapstructure:"batch_size_factor"`
}

// MetricsSettings controls the prometheus textfile written after a run
type MetricsSettings struct {
	Path string `yaml:"path" mapstructure:"path"` // empty disables the textfile
}

// Settings contains all configuration options for sift-go
type Settings struct {
	Debug    bool                 `yaml:"debug" mapstructure:"debug"`
	Database DatabaseSettings     `yaml:"database" mapstructure:"database"`
	Image    ImageSettings        `yaml:"image" mapstructure:"image"`
	Reader   ReaderSettings       `yaml:"reader" mapstructure:"reader"`
	Sift     SiftSettings         `yaml:"sift" mapstructure:"sift"`
	GPU      GPUSettings          `yaml:"gpu" mapstructure:"gpu"`
	CPU      CPUSettings          `yaml:"cpu" mapstructure:"cpu"`
	Metrics  MetricsSettings      `yaml:"metrics" mapstructure:"metrics"`
	Logging  logger.LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load resolves settings from defaults, the config file, the environment and any
// flags already bound to viper. An empty configFile searches the default config
// paths and tolerates a missing file; an explicit configFile must exist.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := initViper(configFile); err != nil {
		return nil, err
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error validating settings: %w", err)).
			Category(errors.CategoryValidation).
			Build()
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper sets defaults, the environment binding and reads the config file
func initViper(configFile string) error {
	SetDefaults()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return errors.New(fmt.Errorf("error reading config file %s: %w", configFile, err)).
				Category(errors.CategoryConfiguration).
				FileContext(configFile).
				Build()
		}
		GetLogger().Debug("config file loaded", logger.String("path", viper.ConfigFileUsed()))
		return nil
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	for _, path := range DefaultConfigPaths() {
		viper.AddConfigPath(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errors.New(fmt.Errorf("fatal error reading config file: %w", err)).
			Category(errors.CategoryConfiguration).
			Build()
	}
	GetLogger().Debug("config file loaded", logger.String("path", viper.ConfigFileUsed()))
	return nil
}

// DefaultConfigPaths returns the directories searched for config.yaml when no
// config file is given: the working directory, the user config directory and
// /etc/sift-go.
func DefaultConfigPaths() []string {
	paths := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "sift-go"))
	}
	return append(paths, "/etc/sift-go")
}

// GetSettings returns the settings of the last successful Load
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// YAML renders settings as a YAML document, as printed by `sift-go config`.
func (s *Settings) YAML() ([]byte, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, errors.New(fmt.Errorf("error marshaling settings to YAML: %w", err)).
			Category(errors.CategoryConfiguration).
			Build()
	}
	return data, nil
}
