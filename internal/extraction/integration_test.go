package extraction

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/sift-go/internal/datastore"
	"github.com/tphakala/sift-go/internal/features"
	"github.com/tphakala/sift-go/internal/testutil"
)

func TestOrchestratorWithFeatureBackends(t *testing.T) {
	for _, useGPU := range []bool{false, true} {
		t.Run(SelectBackend(useGPU).String(), func(t *testing.T) {
			root := t.TempDir()
			testutil.WriteBlobImages(t, root, 96, 72, "a.png", "b.png", "c.png")
			listPath := filepath.Join(t.TempDir(), "list.txt")
			require.NoError(t, os.WriteFile(listPath, []byte("c.png\n# skip b\na.png\n"), 0o600))

			cfg := RunConfig{
				DatabasePath:  filepath.Join(t.TempDir(), "db", "features.db"),
				ImagePath:     root,
				ImageListPath: listPath,
				CameraModel:   "SIMPLE_RADIAL",
				UseGPU:        useGPU,
				Reader: features.ReaderOptions{
					SingleCamera:             true,
					DefaultFocalLengthFactor: 1.2,
					MaxImageSize:             3200,
				},
				Sift: features.SiftOptions{
					MaxNumFeatures:     256,
					FirstOctave:        -1,
					NumOctaves:         3,
					OctaveResolution:   3,
					PeakThreshold:      0.02 / 3,
					EdgeThreshold:      10,
					MaxNumOrientations: 2,
					Normalization:      features.NormalizationL2,
				},
				GPU: features.GPUOptions{Index: -1},
				CPU: features.CPUOptions{NumThreads: 2, BatchSizeFactor: 2},
			}

			require.NoError(t, NewOrchestrator(FeatureFactory{}, nil).Run(cfg))

			store, err := datastore.Open(cfg.DatabasePath, testutil.DiscardLogger())
			require.NoError(t, err)
			defer func() { assert.NoError(t, store.Close()) }()

			n, err := store.NumImages()
			require.NoError(t, err)
			assert.Equal(t, int64(2), n, "only listed images are processed")
			n, err = store.NumCameras()
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)

			_, err = store.ImageByName("b.png")
			require.ErrorIs(t, err, datastore.ErrImageNotFound)
			img, err := store.ImageByName("c.png")
			require.NoError(t, err)
			has, err := store.HasFeatures(img.ID)
			require.NoError(t, err)
			assert.True(t, has)
		})
	}
}
