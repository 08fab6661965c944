package features

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/sift-go/internal/datastore"
	"github.com/tphakala/sift-go/internal/errors"
	"github.com/tphakala/sift-go/internal/testutil"
)

type readResult struct {
	data   *ImageData
	status ReadStatus
}

func readAll(t *testing.T, r *ImageReader) []readResult {
	t.Helper()
	var out []readResult
	for {
		data, status, ok, err := r.Next()
		require.NoError(t, err)
		if !ok {
			return out
		}
		out = append(out, readResult{data, status})
	}
}

func TestImageReaderWalksRootInOrder(t *testing.T) {
	store, dbPath := openStore(t)
	root := t.TempDir()
	testutil.WriteBlobImages(t, root, 96, 72, "b/d.png", "a.png", "b/c.png")
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o600))

	r, err := NewImageReader(testReaderOptions(dbPath, root), store)
	require.NoError(t, err)
	require.Equal(t, 3, r.NumImages())

	results := readAll(t, r)
	require.Len(t, results, 3)
	var names []string
	for i, res := range results {
		assert.Equal(t, ReadSuccess, res.status)
		assert.Equal(t, i, res.data.Index)
		assert.NotZero(t, res.data.Record.CameraID)
		names = append(names, res.data.Record.Name)
	}
	assert.Equal(t, []string{"a.png", "b/c.png", "b/d.png"}, names)

	n, err := store.NumCameras()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n, "one camera per image by default")

	cam, err := store.Camera(results[0].data.Record.CameraID)
	require.NoError(t, err)
	assert.Equal(t, 96, cam.Width)
	assert.Equal(t, 72, cam.Height)
	assert.InDeltaSlice(t, []float64{1.2 * 96, 48, 36}, cam.Params, 1e-9)
	assert.False(t, cam.PriorFocalLength)
}

func TestImageReaderExplicitList(t *testing.T) {
	store, dbPath := openStore(t)
	root := t.TempDir()
	paths := testutil.WriteBlobImages(t, root, 64, 64, "a.png", "b.png", "c.png")

	opts := testReaderOptions(dbPath, root)
	opts.ImageList = []string{paths[2], paths[0]}
	r, err := NewImageReader(opts, store)
	require.NoError(t, err)

	results := readAll(t, r)
	require.Len(t, results, 2)
	assert.Equal(t, "c.png", results[0].data.Record.Name)
	assert.Equal(t, "a.png", results[1].data.Record.Name)
}

func TestImageReaderRegistersImagesInListOrder(t *testing.T) {
	store, dbPath := openStore(t)
	root := t.TempDir()
	paths := testutil.WriteBlobImages(t, root, 64, 48, "a.png", "b.png")

	opts := testReaderOptions(dbPath, root)
	opts.ImageList = []string{paths[1], paths[0], paths[1]}
	r, err := NewImageReader(opts, store)
	require.NoError(t, err)

	results := readAll(t, r)
	require.Len(t, results, 3)
	assert.Equal(t, ReadSuccess, results[0].status)
	assert.Equal(t, ReadSuccess, results[1].status)
	assert.Equal(t, ReadSkipped, results[2].status, "repeated list entry")
	assert.NotZero(t, results[0].data.Record.ID)
	assert.Less(t, results[0].data.Record.ID, results[1].data.Record.ID)

	img, err := store.ImageByName("b.png")
	require.NoError(t, err)
	assert.Equal(t, results[0].data.Record.ID, img.ID)

	n, err := store.NumImages()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	n, err = store.NumCameras()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "no camera for the repeated entry")
}

func TestImageReaderCameraSharing(t *testing.T) {
	tests := []struct {
		name      string
		single    bool
		perFolder bool
		want      int64
	}{
		{"per image", false, false, 4},
		{"single camera", true, false, 1},
		{"single camera per folder", false, true, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, dbPath := openStore(t)
			root := t.TempDir()
			testutil.WriteBlobImages(t, root, 64, 48, "x/1.png", "x/2.png", "y/1.png", "y/2.png")

			opts := testReaderOptions(dbPath, root)
			opts.SingleCamera = tt.single
			opts.SingleCameraPerFolder = tt.perFolder
			r, err := NewImageReader(opts, store)
			require.NoError(t, err)

			results := readAll(t, r)
			require.Len(t, results, 4)
			n, err := store.NumCameras()
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestImageReaderSingleCameraSizeMismatch(t *testing.T) {
	store, dbPath := openStore(t)
	root := t.TempDir()
	testutil.WritePNG(t, filepath.Join(root, "a.png"), testutil.BlobImage(64, 48, 1))
	testutil.WritePNG(t, filepath.Join(root, "b.png"), testutil.BlobImage(48, 64, 2))

	opts := testReaderOptions(dbPath, root)
	opts.SingleCamera = true
	r, err := NewImageReader(opts, store)
	require.NoError(t, err)

	results := readAll(t, r)
	require.Len(t, results, 2)
	assert.Equal(t, ReadSuccess, results[0].status)
	assert.Equal(t, ReadFailed, results[1].status)
}

func TestImageReaderConfiguredParams(t *testing.T) {
	store, dbPath := openStore(t)
	root := t.TempDir()
	testutil.WriteBlobImages(t, root, 64, 48, "a.png")

	opts := testReaderOptions(dbPath, root)
	opts.CameraModel = "PINHOLE"
	opts.CameraParams = []float64{500, 510, 32, 24}
	r, err := NewImageReader(opts, store)
	require.NoError(t, err)

	results := readAll(t, r)
	require.Len(t, results, 1)
	cam, err := store.Camera(results[0].data.Record.CameraID)
	require.NoError(t, err)
	assert.Equal(t, []float64{500, 510, 32, 24}, cam.Params)
	assert.True(t, cam.PriorFocalLength)

	opts.CameraParams = []float64{500, 32, 24}
	_, err = NewImageReader(opts, store)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestImageReaderSkipsImagesWithFeatures(t *testing.T) {
	store, dbPath := openStore(t)
	root := t.TempDir()
	testutil.WriteBlobImages(t, root, 64, 48, "a.png", "b.png")

	camID, err := store.AddCamera(&datastore.Camera{ModelID: 2, Width: 64, Height: 48, Params: []float64{1, 2, 3}})
	require.NoError(t, err)
	feats := &Features{Keypoints: []Keypoint{{X: 1, Y: 2, Scale: 3}}, Descriptors: make([]uint8, DescriptorDim)}
	kp, desc := feats.ToRecords()
	require.NoError(t, store.WriteImageFeatures(&datastore.Image{Name: "a.png", CameraID: camID}, kp, desc))

	// b.png is registered but has no features yet, so it keeps its camera
	bID, err := store.AddImage(&datastore.Image{Name: "b.png", CameraID: camID})
	require.NoError(t, err)

	r, err := NewImageReader(testReaderOptions(dbPath, root), store)
	require.NoError(t, err)
	results := readAll(t, r)
	require.Len(t, results, 2)

	assert.Equal(t, ReadSkipped, results[0].status)
	assert.Equal(t, ReadSuccess, results[1].status)
	assert.Equal(t, bID, results[1].data.Record.ID)
	assert.Equal(t, camID, results[1].data.Record.CameraID)

	n, err := store.NumCameras()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestImageReaderUnreadableImage(t *testing.T) {
	store, dbPath := openStore(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "broken.png"), []byte("not a png"), 0o600))
	testutil.WriteBlobImages(t, root, 64, 48, "ok.png")

	r, err := NewImageReader(testReaderOptions(dbPath, root), store)
	require.NoError(t, err)
	results := readAll(t, r)
	require.Len(t, results, 2)
	assert.Equal(t, ReadFailed, results[0].status)
	assert.Equal(t, ReadSuccess, results[1].status)

	_, err = store.ImageByName("broken.png")
	require.ErrorIs(t, err, datastore.ErrImageNotFound)
}

func TestImageReaderDownscales(t *testing.T) {
	store, dbPath := openStore(t)
	root := t.TempDir()
	testutil.WriteBlobImages(t, root, 96, 72, "big.png")

	opts := testReaderOptions(dbPath, root)
	opts.MaxImageSize = 48
	r, err := NewImageReader(opts, store)
	require.NoError(t, err)

	results := readAll(t, r)
	require.Len(t, results, 1)
	data := results[0].data
	assert.Equal(t, 96, data.Width)
	assert.Equal(t, 72, data.Height)
	assert.Equal(t, 48, data.Gray.Rect.Dx())
	assert.Equal(t, 36, data.Gray.Rect.Dy())
	assert.InDelta(t, 2.0, data.ScaleX, 1e-9)
	assert.InDelta(t, 2.0, data.ScaleY, 1e-9)
}

func TestNewImageReaderRejectsBadOptions(t *testing.T) {
	store, dbPath := openStore(t)

	opts := testReaderOptions(dbPath, t.TempDir())
	opts.CameraModel = "FISH"
	_, err := NewImageReader(opts, store)
	require.Error(t, err)

	opts = testReaderOptions(dbPath, filepath.Join(t.TempDir(), "missing"))
	_, err = NewImageReader(opts, store)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
}

func TestIsSupportedImage(t *testing.T) {
	for path, want := range map[string]bool{
		"a.png":     true,
		"b.JPG":     true,
		"c.jpeg":    true,
		"d.tiff":    true,
		"e.webp":    true,
		"f.txt":     false,
		"noext":     false,
		"dir/g.Bmp": true,
	} {
		assert.Equal(t, want, IsSupportedImage(path), path)
	}
}
