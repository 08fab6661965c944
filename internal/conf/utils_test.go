package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/sift-go/internal/errors"
)

func TestParseCSV(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    []float64
		wantErr bool
	}{
		{"empty", "", []float64{}, false},
		{"whitespace only", "  ", []float64{}, false},
		{"single", "1000", []float64{1000}, false},
		{"simple radial", "1000,640,480", []float64{1000, 640, 480}, false},
		{"spaces and blanks", " 1.5 , ,2e3,", []float64{1.5, 2000}, false},
		{"negative", "-0.25,0.1", []float64{-0.25, 0.1}, false},
		{"not a number", "1000,abc", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseCSV(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatCSV(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1000,640.5,480", FormatCSV([]float64{1000, 640.5, 480}))
	assert.Empty(t, FormatCSV(nil))
}

func TestValidateRunPaths(t *testing.T) {
	t.Parallel()

	err := ValidateRunPaths(&Settings{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database_path")
	assert.Contains(t, err.Error(), "image_path")

	err = ValidateRunPaths(&Settings{
		Database: DatabaseSettings{Path: "db.sqlite"},
		Image:    ImageSettings{Path: "images"},
	})
	assert.NoError(t, err)
}

func TestValidateSettingsNormalizesCase(t *testing.T) {
	t.Parallel()

	s := &Settings{
		Reader: ReaderSettings{CameraModel: "PINHOLE", DefaultFocalLengthFactor: 1.2, MaxImageSize: 100},
		Sift: SiftSettings{
			MaxNumFeatures: 10, NumOctaves: 1, OctaveResolution: 1,
			PeakThreshold: 0.1, EdgeThreshold: 1, MaxNumOrientations: 1,
			Normalization: "l2",
		},
		GPU: GPUSettings{Index: -1},
		CPU: CPUSettings{BatchSizeFactor: 1},
	}
	require.NoError(t, ValidateSettings(s))
	assert.Equal(t, NormalizationL2, s.Sift.Normalization)

	s.GPU.Index = -2
	s.CPU.BatchSizeFactor = 0
	var ve ValidationError
	require.ErrorAs(t, ValidateSettings(s), &ve)
	assert.Len(t, ve.Errors, 2)
}
