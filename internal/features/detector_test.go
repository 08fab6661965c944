package features

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/sift-go/internal/testutil"
)

func newTestDetector(t *testing.T, mutate func(*SiftOptions)) *Detector {
	t.Helper()
	opts := testSiftOptions()
	if mutate != nil {
		mutate(&opts)
	}
	d, err := NewDetector(opts)
	require.NoError(t, err)
	return d
}

func TestDetectorFindsBlobs(t *testing.T) {
	t.Parallel()
	img := testutil.BlobImage(96, 72, 3)
	feats := newTestDetector(t, nil).Extract(img)

	require.Positive(t, feats.Len())
	assert.Len(t, feats.Descriptors, feats.Len()*DescriptorDim)
	for _, kp := range feats.Keypoints {
		assert.GreaterOrEqual(t, kp.X, float32(0))
		assert.GreaterOrEqual(t, kp.Y, float32(0))
		assert.Less(t, kp.X, float32(96))
		assert.Less(t, kp.Y, float32(72))
		assert.Positive(t, kp.Scale)
	}
}

func TestDetectorBlankImage(t *testing.T) {
	t.Parallel()
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	feats := newTestDetector(t, nil).Extract(img)
	assert.Zero(t, feats.Len())
	assert.Empty(t, feats.Descriptors)
}

func TestDetectorTinyImage(t *testing.T) {
	t.Parallel()
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	img.SetGray(1, 1, color.Gray{Y: 255})
	d := newTestDetector(t, func(o *SiftOptions) { o.FirstOctave = 0 })
	assert.Zero(t, d.Extract(img).Len())
}

func TestDetectorRespectsMaxNumFeatures(t *testing.T) {
	t.Parallel()
	img := testutil.BlobImage(96, 72, 5)
	all := newTestDetector(t, nil).Extract(img)
	require.Greater(t, all.Len(), 3)

	capped := newTestDetector(t, func(o *SiftOptions) { o.MaxNumFeatures = 3 }).Extract(img)
	assert.Equal(t, 3, capped.Len())
	assert.Equal(t, all.Keypoints[:3], capped.Keypoints, "the strongest features are kept")
}

func TestDetectorUpright(t *testing.T) {
	t.Parallel()
	img := testutil.BlobImage(96, 72, 2)
	feats := newTestDetector(t, func(o *SiftOptions) { o.Upright = true }).Extract(img)
	require.Positive(t, feats.Len())
	for _, kp := range feats.Keypoints {
		assert.Zero(t, kp.Orientation)
	}
}

func TestDetectorIsDeterministic(t *testing.T) {
	t.Parallel()
	img := testutil.BlobImage(80, 80, 7)
	d := newTestDetector(t, nil)
	assert.Equal(t, d.Extract(img), d.Extract(img))
}

func TestDetectorNormalizations(t *testing.T) {
	t.Parallel()
	img := testutil.BlobImage(96, 72, 4)
	l1 := newTestDetector(t, nil).Extract(img)
	l2 := newTestDetector(t, func(o *SiftOptions) { o.Normalization = "l2" }).Extract(img)

	require.Equal(t, l1.Keypoints, l2.Keypoints, "normalization only changes descriptors")
	require.Positive(t, l1.Len())
	assert.NotEqual(t, l1.Descriptors, l2.Descriptors)
}

func TestNewDetectorValidatesOptions(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*SiftOptions)
	}{
		{"normalization", func(o *SiftOptions) { o.Normalization = "L3" }},
		{"max features", func(o *SiftOptions) { o.MaxNumFeatures = 0 }},
		{"octaves", func(o *SiftOptions) { o.NumOctaves = 0 }},
		{"peak threshold", func(o *SiftOptions) { o.PeakThreshold = 0 }},
		{"orientations", func(o *SiftOptions) { o.MaxNumOrientations = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testSiftOptions()
			tt.mutate(&opts)
			_, err := NewDetector(opts)
			assert.Error(t, err)
		})
	}
}

func TestFeatureRecordsRoundTrip(t *testing.T) {
	t.Parallel()
	feats := &Features{
		Keypoints:   []Keypoint{{X: 1.5, Y: 2.25, Scale: 3, Orientation: 0.5}, {X: 10, Y: 20, Scale: 1.6}},
		Descriptors: make([]uint8, 2*DescriptorDim),
	}
	kp, desc := feats.ToRecords()
	assert.Equal(t, 2, kp.Rows)
	assert.Equal(t, 4, kp.Cols)
	assert.Equal(t, 2, desc.Rows)
	assert.Equal(t, DescriptorDim, desc.Cols)
	assert.Equal(t, feats.Keypoints, DecodeKeypoints(kp))
}

func TestScaleKeypoints(t *testing.T) {
	t.Parallel()
	kps := []Keypoint{{X: 10, Y: 5, Scale: 2}}
	scaleKeypoints(kps, 2, 4)
	assert.Equal(t, Keypoint{X: 20, Y: 20, Scale: 6}, kps[0])
}
